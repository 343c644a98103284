package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cyberblue/soc-console/internal/domain/auth"
)

var loginForce bool

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in through the browser",
	Long: `Sign in against the configured OpenID Connect provider.

A browser window opens on the provider's login page; after signing in, the
provider redirects back to a local loopback port and the resulting token is
stored in the OS keyring.`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().BoolVar(&loginForce, "force", false, "discard any existing session and sign in again")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	tokens := newTokenStore()

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return err
	}
	defer provider.Close()

	manager := auth.NewManager(tokens, provider, logger)
	ctx := cmd.Context()

	if loginForce {
		if err := tokens.Clear(ctx); err != nil {
			logger.Warn("failed to clear existing credential", "error", err)
		}
	}

	if err := manager.Initialize(ctx, nil); err != nil {
		return err
	}
	if manager.State() == auth.StateAuthenticated {
		printIdentity(cmd, "Already signed in", manager.Identity())
		return nil
	}

	if err := provider.BeginLogin(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Waiting for browser sign-in...")

	cb, err := provider.WaitForCallback(ctx)
	if err != nil {
		return err
	}
	if err := manager.Initialize(ctx, cb); err != nil {
		return err
	}
	if manager.State() != auth.StateAuthenticated {
		return fmt.Errorf("sign-in did not complete; check the provider logs and retry")
	}

	printIdentity(cmd, "Signed in", manager.Identity())
	return nil
}

func printIdentity(cmd *cobra.Command, prefix string, id *auth.Identity) {
	if id == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s.\n", prefix)
		return
	}
	name := id.Name
	if name == "" {
		name = id.Subject
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s as %s", prefix, name)
	if len(id.Roles) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), " (roles: %s)", strings.Join(id.Roles, ", "))
	}
	fmt.Fprintln(cmd.OutOrStdout())
}
