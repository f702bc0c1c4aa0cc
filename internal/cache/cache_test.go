package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type head struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, "chat-heads", "https://api.example.com", "co_1", DefaultTTL)

	var miss []head
	assert.False(t, s.Get(&miss))

	s.Put([]head{{ID: "t1", Name: "Maria"}})

	var got []head
	require.True(t, s.Get(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].ID)
}

func TestFileStoreExpiry(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, "chat-heads", "https://api.example.com", "co_1", 1*time.Nanosecond)

	s.Put([]head{{ID: "t1"}})
	time.Sleep(2 * time.Millisecond)

	var got []head
	assert.False(t, s.Get(&got))
}

func TestFileStoreScopedByServerAndCompany(t *testing.T) {
	dir := t.TempDir()
	a := NewFileStore(dir, "chat-heads", "https://a.example.com", "co_1", DefaultTTL)
	b := NewFileStore(dir, "chat-heads", "https://b.example.com", "co_1", DefaultTTL)
	c := NewFileStore(dir, "chat-heads", "https://a.example.com", "co_2", DefaultTTL)

	a.Put([]head{{ID: "from-a"}})

	var got []head
	assert.False(t, b.Get(&got))
	assert.False(t, c.Get(&got))
	assert.True(t, a.Get(&got))
}

func TestFileStoreClear(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, "agents", "https://api.example.com", "co_1", DefaultTTL)

	s.Put([]head{{ID: "t1"}})
	s.Clear()

	var got []head
	assert.False(t, s.Get(&got))
}

func TestDisabledByEnv(t *testing.T) {
	t.Setenv("BOTBRIDGE_NO_CACHE", "1")

	dir := t.TempDir()
	s := NewFileStore(dir, "chat-heads", "https://api.example.com", "co_1", DefaultTTL)
	s.Put([]head{{ID: "t1"}})

	var got []head
	assert.False(t, s.Get(&got))
}

func TestClearAllOnlyRemovesCacheFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, "chat-heads", "https://api.example.com", "co_1", DefaultTTL)
	s.Put([]head{{ID: "t1"}})

	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("keep"), 0o644))

	ClearAll(dir)

	var got []head
	assert.False(t, s.Get(&got))
	_, err := os.Stat(other)
	assert.NoError(t, err)
}

func TestNewStorePicksFileBackendByDefault(t *testing.T) {
	t.Setenv("BOTBRIDGE_CACHE_REDIS", "")
	s := NewStore(t.TempDir(), "chat-heads", "https://api.example.com", "co_1")
	_, ok := s.(*FileStore)
	assert.True(t, ok)
}
