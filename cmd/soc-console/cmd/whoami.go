package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cyberblue/soc-console/internal/adapter/outbound/api"
	"github.com/cyberblue/soc-console/internal/domain/claims"
)

var whoamiLocal bool

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the authenticated identity",
	Long: `Show the authenticated identity.

By default the identity is confirmed against the backend's who-am-I endpoint.
With --local, only the stored token's claims are decoded, without any network
call; this is a display hint, not a verification.`,
	RunE: runWhoami,
}

func init() {
	whoamiCmd.Flags().BoolVar(&whoamiLocal, "local", false, "decode the stored token's claims without contacting the backend")
	rootCmd.AddCommand(whoamiCmd)
}

func runWhoami(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	tokens := newTokenStore()
	ctx := cmd.Context()

	tok, err := tokens.Get(ctx)
	if err != nil {
		return fmt.Errorf("not signed in; run: soc-console login")
	}

	out := cmd.OutOrStdout()
	c := claims.Decode(tok)
	if c != nil {
		if name := c.Name(); name != "" {
			fmt.Fprintf(out, "Name:    %s\n", name)
		}
		if email := c.Email(); email != "" {
			fmt.Fprintf(out, "Email:   %s\n", email)
		}
		if sub := c.Subject(); sub != "" {
			fmt.Fprintf(out, "Subject: %s\n", sub)
		}
		if roles := claims.Roles(c); len(roles) > 0 {
			fmt.Fprintf(out, "Roles:   %s\n", strings.Join(roles, ", "))
		}
	}

	if whoamiLocal {
		return nil
	}

	client := newAPIClient(cfg, tokens, logger)
	profile, err := client.Me(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthenticated) {
			return fmt.Errorf("the backend rejected the stored token; run: soc-console login")
		}
		return fmt.Errorf("failed to confirm identity with the backend: %w", err)
	}

	fmt.Fprintf(out, "Backend: role=%s", profile.Role)
	if profile.Username != "" {
		fmt.Fprintf(out, " username=%s", profile.Username)
	}
	fmt.Fprintln(out)
	return nil
}
