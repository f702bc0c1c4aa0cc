package cmd

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/botbridge/botbridge-cli/internal/config"
)

// newAuthCmd returns the auth command with subcommands
func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "auth",
		Aliases: []string{"au"},
		Short:   "Manage authentication credentials",
		Long:    "Configure and manage Botbridge API credentials stored securely in your OS keychain.",
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthLogoutCmd())

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var (
		baseURL   string
		token     string
		companyID string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save API credentials",
		Long: strings.TrimSpace(`
Save Botbridge authentication credentials securely to your OS keychain.

You'll need:
- Base URL: Your Botbridge API URL (e.g. https://api.botbridge.example.com)
- API Token: Generate from Settings > API Tokens
- Company ID: The tenant every chat call is scoped to
`),
		Example: strings.TrimSpace(`
  bb auth login --url https://api.botbridge.example.com --token YOUR_TOKEN --company-id co-1
`),
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			if baseURL == "" {
				return fmt.Errorf("--url is required")
			}
			if token == "" {
				return fmt.Errorf("--token is required")
			}
			if strings.TrimSpace(companyID) == "" {
				return fmt.Errorf("--company-id is required")
			}

			baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
			parsed, err := url.Parse(baseURL)
			if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
				return fmt.Errorf("invalid --url %q: must be an absolute http(s) URL", baseURL)
			}

			account := config.Account{
				BaseURL:   baseURL,
				APIToken:  token,
				CompanyID: strings.TrimSpace(companyID),
			}
			if err := config.Save(account); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{
					"status":    "ok",
					"baseUrl":   account.BaseURL,
					"companyId": account.CompanyID,
				})
			}
			printIfNotQuiet(cmd, "Credentials saved for %s (company %s)\n", account.BaseURL, account.CompanyID)
			return nil
		}),
	}

	cmd.Flags().StringVar(&baseURL, "url", "", "Botbridge API base URL")
	cmd.Flags().StringVar(&token, "token", "", "API bearer token")
	cmd.Flags().StringVar(&companyID, "company-id", "", "Company (tenant) id")
	flagAlias(cmd.Flags(), "company-id", "cid")

	return cmd
}

func newAuthStatusCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the configured account",
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.ResolveClientConfig()
			if err != nil {
				return err
			}

			healthy := ""
			if check {
				client, err := getClient()
				if err != nil {
					return err
				}
				if ok, err := client.HealthCheck(cmdContext(cmd)); err != nil {
					healthy = fmt.Sprintf("unreachable (%v)", err)
				} else if ok {
					healthy = "ok"
				} else {
					healthy = "unhealthy"
				}
			}

			if isJSON(cmd) {
				out := map[string]any{
					"baseUrl":   cfg.BaseURL,
					"companyId": cfg.CompanyID,
					"token":     maskToken(cfg.Token),
				}
				if check {
					out["health"] = healthy
				}
				return printJSON(cmd, out)
			}

			w := newTabWriterFromCmd(cmd)
			_, _ = fmt.Fprintf(w, "Base URL:\t%s\n", cfg.BaseURL)
			_, _ = fmt.Fprintf(w, "Company:\t%s\n", cfg.CompanyID)
			_, _ = fmt.Fprintf(w, "Token:\t%s\n", maskToken(cfg.Token))
			if check {
				_, _ = fmt.Fprintf(w, "Health:\t%s\n", healthy)
			}
			return w.Flush()
		}),
	}

	cmd.Flags().BoolVar(&check, "check", false, "Ping the API health endpoint")
	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			if err := config.Delete(); err != nil {
				return fmt.Errorf("failed to remove credentials: %w", err)
			}
			printIfNotQuiet(cmd, "Logged out\n")
			return nil
		}),
	}
}

// maskToken shows only the last 4 characters of a token.
func maskToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}
