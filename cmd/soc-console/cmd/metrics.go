package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show the latest system metrics snapshot",
	RunE:  runMetrics,
}

func init() {
	rootCmd.AddCommand(metricsCmd)
}

func runMetrics(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	tokens := newTokenStore()
	client := newAPIClient(cfg, tokens, logger)

	source, closeSource, err := newDataSource(cfg, client, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	m, err := source.Metrics(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to fetch metrics: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Snapshot:     %s\n", m.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "CPU:          %.1f%%\n", m.CPUPercent)
	fmt.Fprintf(out, "Memory:       %.1f%%\n", m.MemoryPercent)
	fmt.Fprintf(out, "Disk:         %.1f%%\n", m.DiskPercent)
	fmt.Fprintf(out, "Agents:       %d\n", m.ActiveAgents)
	fmt.Fprintf(out, "Connections:  %d\n", m.ActiveConnections)
	fmt.Fprintf(out, "Open alerts:  %d\n", m.AlertsCount)
	fmt.Fprintf(out, "Health:       %s\n", m.OverallHealth)
	return nil
}
