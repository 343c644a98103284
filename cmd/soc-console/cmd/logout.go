package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cyberblue/soc-console/internal/domain/auth"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored credential and end the provider session",
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	tokens := newTokenStore()

	provider, err := newProvider(cfg, logger)
	if err != nil {
		// No provider configured: still clear the local credential.
		logger.Warn("identity provider not configured, clearing local credential only", "error", err)
		if clearErr := tokens.Clear(cmd.Context()); clearErr != nil {
			return clearErr
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out (local credential cleared).")
		return nil
	}
	defer provider.Close()

	manager := auth.NewManager(tokens, provider, logger)
	manager.Logout(cmd.Context())

	fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
	return nil
}
