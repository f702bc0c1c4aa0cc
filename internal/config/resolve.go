package config

import (
	"os"
	"strings"
)

// Environment overrides. Each one takes precedence over the stored account,
// so CI jobs and one-off scripts can run without touching the keyring.
const (
	envBaseURL   = "BOTBRIDGE_BASE_URL"
	envAPIToken  = "BOTBRIDGE_API_TOKEN"
	envCompanyID = "BOTBRIDGE_COMPANY_ID"
)

// ClientConfig is the resolved connection configuration handed to the API
// client and the live channel.
type ClientConfig struct {
	BaseURL   string
	Token     string
	CompanyID string
}

// ResolveClientConfig merges environment overrides with the stored account.
// When all three values come from the environment the keyring is never
// opened at all.
func ResolveClientConfig() (ClientConfig, error) {
	cfg := ClientConfig{
		BaseURL:   strings.TrimRight(strings.TrimSpace(os.Getenv(envBaseURL)), "/"),
		Token:     strings.TrimSpace(os.Getenv(envAPIToken)),
		CompanyID: strings.TrimSpace(os.Getenv(envCompanyID)),
	}
	if cfg.BaseURL != "" && cfg.Token != "" && cfg.CompanyID != "" {
		return cfg, nil
	}

	account, err := Load()
	if err != nil {
		return ClientConfig{}, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = account.BaseURL
	}
	if cfg.Token == "" {
		cfg.Token = account.APIToken
	}
	if cfg.CompanyID == "" {
		cfg.CompanyID = account.CompanyID
	}
	return cfg, nil
}
