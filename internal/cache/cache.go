// Package cache provides a small snapshot cache for API responses such as
// chat-head lists and agent rosters.
//
// Two backends exist: a JSON-file store (the default) and a Redis store for
// shared agent desks (BOTBRIDGE_CACHE_REDIS=redis://...). Entries are scoped
// per resource type, server URL, and company id. Default TTL is 5 minutes.
// Disable entirely with BOTBRIDGE_NO_CACHE=1.
package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const DefaultTTL = 5 * time.Minute

// Store reads and writes one cache key (resource+server+company).
type Store interface {
	// Get loads cached items into dst. Returns false on miss
	// (absent, expired, or caching disabled).
	Get(dst any) bool
	// Put writes items to the cache. Silently no-ops on error or when disabled.
	Put(items any)
	// Clear removes this cache entry.
	Clear()
}

type entry struct {
	CachedAt time.Time       `json:"cached_at"`
	Items    json.RawMessage `json:"items"`
}

func disabled() bool {
	return os.Getenv("BOTBRIDGE_NO_CACHE") == "1"
}

// cacheKey builds the scoped key name shared by both backends.
func cacheKey(resource, baseURL, companyID string) string {
	hash := sha1.Sum([]byte(baseURL))
	suffix := hex.EncodeToString(hash[:6])
	return fmt.Sprintf("%s_%s_%s", sanitizeKey(resource), suffix, sanitizeKey(companyID))
}

func sanitizeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "default"
	}
	return b.String()
}

// NewStore returns the configured backend for one cache key with the
// default TTL: Redis when BOTBRIDGE_CACHE_REDIS is set, file otherwise.
func NewStore(dir, resource, baseURL, companyID string) Store {
	return NewStoreWithTTL(dir, resource, baseURL, companyID, DefaultTTL)
}

// NewStoreWithTTL is NewStore with a custom TTL.
func NewStoreWithTTL(dir, resource, baseURL, companyID string, ttl time.Duration) Store {
	if addr := strings.TrimSpace(os.Getenv("BOTBRIDGE_CACHE_REDIS")); addr != "" {
		if s, err := NewRedisStore(addr, cacheKey(resource, baseURL, companyID), ttl); err == nil {
			return s
		}
		// Fall through to the file store when the Redis URL is unusable.
	}
	return NewFileStore(dir, resource, baseURL, companyID, ttl)
}

// FileStore is the JSON-file backend.
type FileStore struct {
	path string
	ttl  time.Duration
}

// NewFileStore creates a file-backed Store. dir is the cache directory
// (typically from DefaultDir).
func NewFileStore(dir, resource, baseURL, companyID string, ttl time.Duration) *FileStore {
	return &FileStore{
		path: filepath.Join(dir, cacheKey(resource, baseURL, companyID)+".json"),
		ttl:  ttl,
	}
}

func (s *FileStore) Get(dst any) bool {
	if disabled() {
		return false
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return false
	}
	if time.Since(e.CachedAt) > s.ttl {
		return false
	}
	return json.Unmarshal(e.Items, dst) == nil
}

func (s *FileStore) Put(items any) {
	if disabled() {
		return
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return
	}
	data, err := json.Marshal(entry{CachedAt: time.Now(), Items: raw})
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return
	}

	// Atomic-ish write: write temp then rename.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return
	}
	_ = os.Rename(tmp, s.path)
}

func (s *FileStore) Clear() {
	_ = os.Remove(s.path)
}

// ClearAll removes all cache files from the directory. For safety it only
// removes files matching this project's cache filename scheme.
func ClearAll(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".json") || strings.Count(name, "_") < 2 {
			continue
		}
		_ = os.Remove(filepath.Join(dir, name))
	}
}

// DefaultDir returns the cache directory, honoring BOTBRIDGE_CACHE_DIR.
func DefaultDir() string {
	if dir := strings.TrimSpace(os.Getenv("BOTBRIDGE_CACHE_DIR")); dir != "" {
		return dir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "botbridge-cli")
	}
	return filepath.Join(base, "botbridge-cli")
}
