package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/concierge/internal/app"
	"github.com/example/concierge/internal/config"
	"github.com/example/concierge/internal/credstore"
	"github.com/example/concierge/internal/domain/credential"
	"github.com/example/concierge/internal/domain/reservation"
)

func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage stored platform credentials",
	}
	cmd.AddCommand(newCredentialsSetCmd())
	cmd.AddCommand(newCredentialsShowCmd())
	cmd.AddCommand(newCredentialsDeleteCmd())
	return cmd
}

func openCredStore() (*credstore.Store, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	return credstore.Open(cfg.CredentialDir, app.NewLogger(cfg.LogLevel))
}

func parsePlatform(s string) (reservation.Platform, error) {
	for _, p := range reservation.Platforms {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q (want resy or opentable)", s)
}

func newCredentialsSetCmd() *cobra.Command {
	var email, password, apiKey, token string

	cmd := &cobra.Command{
		Use:   "set <platform>",
		Short: "Store or update a platform credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			platform, err := parsePlatform(args[0])
			if err != nil {
				return err
			}
			store, err := openCredStore()
			if err != nil {
				return err
			}

			cred, err := store.Get(platform)
			if err != nil {
				cred = credential.Credential{Platform: string(platform), CreatedAt: time.Now().UTC()}
			}
			if email != "" {
				cred.Email = email
			}
			if password != "" {
				cred.Password = password
			}
			if apiKey != "" {
				cred.APIKey = apiKey
			}
			if token != "" {
				cred.Token = token
			}
			cred.UpdatedAt = time.Now().UTC()

			if err := store.Save(platform, cred); err != nil {
				return err
			}
			fmt.Printf("stored credential for %s\n", platform)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (used for refresh only)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "platform API key, where required")
	cmd.Flags().StringVar(&token, "token", "", "session token, if already known")
	return cmd
}

func newCredentialsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <platform>",
		Short: "Show the stored credential (secrets redacted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			platform, err := parsePlatform(args[0])
			if err != nil {
				return err
			}
			store, err := openCredStore()
			if err != nil {
				return err
			}
			cred, err := store.Get(platform)
			if err != nil {
				return err
			}
			fmt.Printf("platform:  %s\n", cred.Platform)
			fmt.Printf("email:     %s\n", cred.Email)
			fmt.Printf("token:     %s\n", redact(cred.Token))
			fmt.Printf("api key:   %s\n", redact(cred.APIKey))
			fmt.Printf("updated:   %s\n", cred.UpdatedAt.Format(time.RFC3339))
			return nil
		},
	}
}

func newCredentialsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <platform>",
		Short: "Delete the stored credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			platform, err := parsePlatform(args[0])
			if err != nil {
				return err
			}
			store, err := openCredStore()
			if err != nil {
				return err
			}
			if err := store.Delete(platform); err != nil {
				return err
			}
			fmt.Printf("deleted credential for %s\n", platform)
			return nil
		},
	}
}

func redact(s string) string {
	if s == "" {
		return "(none)"
	}
	if len(s) <= 6 {
		return "****"
	}
	return s[:3] + "…" + s[len(s)-3:]
}
