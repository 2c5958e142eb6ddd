package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/coupn-app/coupn/internal/config"
	"github.com/coupn-app/coupn/internal/ingest"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with external services",
		Long:  `Authenticate with external services like Gmail.`,
	}

	cmd.AddCommand(authGmailCmd())

	return cmd
}

func authGmailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gmail",
		Short: "Connect your Gmail account",
		Long: `Grant read-only access to your Gmail inbox.

This command will:
1. Start a local callback server
2. Print a Google consent URL for you to open
3. Save the resulting token for 'coupn ingest'

Set gmail.client_id and gmail.client_secret (or GOOGLE_CLIENT_ID and
GOOGLE_CLIENT_SECRET) first.`,
		RunE: runAuthGmail,
	}
}

func runAuthGmail(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadGmailConfig()
	if err != nil {
		return fmt.Errorf("failed to load gmail config: %w", err)
	}

	if _, err := ingest.AuthenticateInteractive(cmd.Context(), *cfg, slog.Default()); err != nil {
		return fmt.Errorf("gmail authentication failed: %w", err)
	}

	slog.Info("✅ Gmail connected", "token_file", cfg.TokenFile)
	return nil
}
