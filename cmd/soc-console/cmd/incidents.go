package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var incidentsCmd = &cobra.Command{
	Use:   "incidents",
	Short: "List tracked incidents",
	RunE:  runIncidents,
}

func init() {
	rootCmd.AddCommand(incidentsCmd)
}

func runIncidents(cmd *cobra.Command, args []string) error {
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

	incidents, err := source.Incidents(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to fetch incidents: %w", err)
	}

	if len(incidents) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No incidents.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSEVERITY\tSTATUS\tASSIGNED\tUPDATED\tTITLE")
	for _, inc := range incidents {
		assigned := inc.AssignedTo
		if assigned == "" {
			assigned = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			inc.ID, inc.Severity, inc.Status, assigned,
			inc.UpdatedAt.Format("2006-01-02 15:04"), inc.Title)
	}
	return w.Flush()
}
