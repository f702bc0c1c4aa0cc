package config

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockKeyring is an in-memory keyring for tests.
type mockKeyring struct {
	items map[string]keyring.Item
}

func newMockKeyring() *mockKeyring {
	return &mockKeyring{items: make(map[string]keyring.Item)}
}

func (m *mockKeyring) Get(key string) (keyring.Item, error) {
	item, ok := m.items[key]
	if !ok {
		return keyring.Item{}, keyring.ErrKeyNotFound
	}
	return item, nil
}

func (m *mockKeyring) GetMetadata(string) (keyring.Metadata, error) {
	return keyring.Metadata{}, nil
}

func (m *mockKeyring) Set(item keyring.Item) error {
	m.items[item.Key] = item
	return nil
}

func (m *mockKeyring) Remove(key string) error {
	if _, ok := m.items[key]; !ok {
		return keyring.ErrKeyNotFound
	}
	delete(m.items, key)
	return nil
}

func (m *mockKeyring) Keys() ([]string, error) {
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	return keys, nil
}

func withMockKeyring(t *testing.T) *mockKeyring {
	t.Helper()
	mock := newMockKeyring()
	restore := SetOpenKeyring(func(keyring.Config) (keyring.Keyring, error) {
		return mock, nil
	})
	t.Cleanup(restore)
	return mock
}

func clearEnvOverrides(t *testing.T) {
	t.Helper()
	t.Setenv(envBaseURL, "")
	t.Setenv(envAPIToken, "")
	t.Setenv(envCompanyID, "")
}

func TestSaveAndLoad(t *testing.T) {
	withMockKeyring(t)

	err := Save(Account{
		BaseURL:   "https://api.botbridge.example/",
		APIToken:  "tok_123",
		CompanyID: "co_1",
	})
	require.NoError(t, err)

	account, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.botbridge.example", account.BaseURL, "trailing slash trimmed")
	assert.Equal(t, "tok_123", account.APIToken)
	assert.Equal(t, "co_1", account.CompanyID)
}

func TestSaveValidation(t *testing.T) {
	withMockKeyring(t)

	tests := []struct {
		name    string
		account Account
	}{
		{"missing base URL", Account{APIToken: "t", CompanyID: "c"}},
		{"missing token", Account{BaseURL: "https://x", CompanyID: "c"}},
		{"missing company", Account{BaseURL: "https://x", APIToken: "t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, Save(tt.account))
		})
	}
}

func TestLoadNotConfigured(t *testing.T) {
	withMockKeyring(t)

	_, err := Load()
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestDeleteIsIdempotent(t *testing.T) {
	withMockKeyring(t)

	require.NoError(t, Save(Account{BaseURL: "https://x", APIToken: "t", CompanyID: "c"}))
	require.NoError(t, Delete())
	require.NoError(t, Delete())

	_, err := Load()
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestResolveClientConfigFromEnvOnly(t *testing.T) {
	restore := SetOpenKeyring(func(keyring.Config) (keyring.Keyring, error) {
		return nil, errors.New("keyring must not be opened")
	})
	t.Cleanup(restore)

	t.Setenv(envBaseURL, "https://env.example/")
	t.Setenv(envAPIToken, "env-token")
	t.Setenv(envCompanyID, "co_env")

	cfg, err := ResolveClientConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://env.example", cfg.BaseURL)
	assert.Equal(t, "env-token", cfg.Token)
	assert.Equal(t, "co_env", cfg.CompanyID)
}

func TestResolveClientConfigMergesStoredAccount(t *testing.T) {
	withMockKeyring(t)
	clearEnvOverrides(t)

	require.NoError(t, Save(Account{
		BaseURL:   "https://stored.example",
		APIToken:  "stored-token",
		CompanyID: "co_stored",
	}))
	t.Setenv(envCompanyID, "co_override")

	cfg, err := ResolveClientConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://stored.example", cfg.BaseURL)
	assert.Equal(t, "stored-token", cfg.Token)
	assert.Equal(t, "co_override", cfg.CompanyID)
}

func TestResolveClientConfigNotConfigured(t *testing.T) {
	withMockKeyring(t)
	clearEnvOverrides(t)

	_, err := ResolveClientConfig()
	assert.ErrorIs(t, err, ErrNotConfigured)
}
