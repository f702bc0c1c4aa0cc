// Package config stores Botbridge connection details in the system keyring,
// with an encrypted-file fallback for headless machines.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/99designs/keyring"
)

const (
	serviceName = "botbridge-cli"
	accountKey  = "default"

	envKeyringBackend  = "BOTBRIDGE_KEYRING_BACKEND"
	envKeyringPassword = "BOTBRIDGE_KEYRING_PASSWORD"
	envCredentialsDir  = "BOTBRIDGE_CREDENTIALS_DIR"

	keyringBackendAuto   = "auto"
	keyringBackendFile   = "file"
	keyringBackendSystem = "system"
)

// Account holds the Botbridge connection details: the API base URL, the
// bearer token, and the company (tenant) scope every chat call is made in.
type Account struct {
	BaseURL   string `json:"base_url"`
	APIToken  string `json:"api_token"`
	CompanyID string `json:"company_id"`
}

// ErrNotConfigured is returned when no account is configured.
var ErrNotConfigured = errors.New("botbridge not configured - run 'bb auth login' first")

// openKeyring is a package-level function for opening keyrings.
// It can be replaced in tests to use a mock keyring.
var openKeyring = func(cfg keyring.Config) (keyring.Keyring, error) {
	return keyring.Open(cfg)
}

// SetOpenKeyring replaces the keyring opener for testing.
// Returns a cleanup function that restores the original.
func SetOpenKeyring(fn func(keyring.Config) (keyring.Keyring, error)) func() {
	original := openKeyring
	openKeyring = fn
	return func() { openKeyring = original }
}

func keyringBackendMode() string {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv(envKeyringBackend)))
	switch mode {
	case keyringBackendFile, keyringBackendSystem:
		return mode
	default:
		return keyringBackendAuto
	}
}

func credentialsDir() string {
	if dir := strings.TrimSpace(os.Getenv(envCredentialsDir)); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), serviceName)
	}
	return filepath.Join(base, serviceName)
}

func keyringConfig() keyring.Config {
	cfg := keyring.Config{ServiceName: serviceName}

	mode := keyringBackendMode()
	if mode == keyringBackendSystem {
		return cfg
	}

	// Configure the encrypted-file backend so keyring.Open can fall through
	// to it when native backends are missing (headless CI, containers).
	cfg.FileDir = credentialsDir()
	cfg.FilePasswordFunc = func(prompt string) (string, error) {
		if pw := os.Getenv(envKeyringPassword); pw != "" {
			return pw, nil
		}
		return "", fmt.Errorf("set %s to unlock the file keyring", envKeyringPassword)
	}
	if mode == keyringBackendFile {
		cfg.AllowedBackends = []keyring.BackendType{keyring.FileBackend}
	}
	return cfg
}

func open() (keyring.Keyring, error) {
	ring, err := openKeyring(keyringConfig())
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return ring, nil
}

// Save stores the account, replacing any existing one.
func Save(account Account) error {
	account.BaseURL = strings.TrimRight(strings.TrimSpace(account.BaseURL), "/")
	if account.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(account.APIToken) == "" {
		return fmt.Errorf("API token is required")
	}
	if strings.TrimSpace(account.CompanyID) == "" {
		return fmt.Errorf("company id is required")
	}

	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}

	ring, err := open()
	if err != nil {
		return err
	}
	if err := ring.Set(keyring.Item{Key: accountKey, Data: data}); err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}
	return nil
}

// Load retrieves the stored account. Returns ErrNotConfigured when absent.
func Load() (Account, error) {
	ring, err := open()
	if err != nil {
		return Account{}, err
	}

	item, err := ring.Get(accountKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return Account{}, ErrNotConfigured
		}
		return Account{}, fmt.Errorf("read credentials: %w", err)
	}

	var account Account
	if err := json.Unmarshal(item.Data, &account); err != nil {
		return Account{}, fmt.Errorf("parse stored credentials: %w", err)
	}
	return account, nil
}

// Delete removes the stored account. Deleting a missing account is not an error.
func Delete() error {
	ring, err := open()
	if err != nil {
		return err
	}
	if err := ring.Remove(accountKey); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}
