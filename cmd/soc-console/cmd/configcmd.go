package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cyberblue/soc-console/internal/config"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and scaffold the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Print the effective configuration after merging the config file,
environment variables, and defaults.`,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a starter soc-console.yaml",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if file := config.ConfigFileUsed(); file != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", file)
	}
	_, err = cmd.OutOrStdout().Write(raw)
	return err
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := "soc-console.yaml"
	if len(args) == 1 {
		path = args[0]
	}

	if !configInitForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	cfg := config.Config{
		API:  config.APIConfig{BaseURL: "https://soc.example.com"},
		OIDC: config.OIDCConfig{IssuerURL: "https://keycloak.example.com/realms/soc"},
	}
	cfg.SetDefaults()

	raw, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s. Edit api.base_url and oidc.issuer_url, then run: soc-console login\n", path)
	return nil
}
