// Package cmd provides the CLI commands for soc-console.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cyberblue/soc-console/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "soc-console",
	Short: "soc-console - terminal client for the CyberBlue SOC",
	Long: `soc-console is a terminal client for the CyberBlue SOC backend.

It signs in against the SOC's OpenID Connect provider, stores the bearer
token in the OS keyring, and drives the backend's tool inventory, incident
and anomaly APIs from the command line.

Quick start:
  1. Create a config file: soc-console config init (edit api.base_url, oidc.issuer_url)
  2. Sign in:              soc-console login
  3. List tools:           soc-console tools list

Configuration:
  Config is loaded from soc-console.yaml in the current directory,
  the user config dir (soc-console/), or /etc/soc-console/.

  Environment variables can override config values with the SOC_CONSOLE_ prefix.
  Example: SOC_CONSOLE_API_BASE_URL=https://soc.example.com

Commands:
  login       Sign in through the browser
  logout      Clear the stored credential and end the provider session
  whoami      Show the authenticated identity
  tools       List tools and apply lifecycle actions
  watch       Follow live updates and refresh the tool inventory
  incidents   List tracked incidents
  metrics     Show the latest system metrics snapshot
  anomalies   List and acknowledge detected anomalies
  audit       List audit trail entries
  config      Inspect and scaffold the configuration
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./soc-console.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
