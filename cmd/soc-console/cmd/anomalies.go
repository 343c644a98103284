package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cyberblue/soc-console/internal/domain/report"
)

var (
	anomaliesAcked bool
	anomaliesLimit int
)

var anomaliesCmd = &cobra.Command{
	Use:   "anomalies",
	Short: "List and acknowledge detected anomalies",
}

var anomaliesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List detected anomalies",
	RunE:  runAnomaliesList,
}

var anomaliesAckCmd = &cobra.Command{
	Use:   "ack <anomaly-id>...",
	Short: "Acknowledge one or more anomalies",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnomaliesAck,
}

func init() {
	anomaliesListCmd.Flags().BoolVar(&anomaliesAcked, "acknowledged", false, "include already-acknowledged anomalies")
	anomaliesListCmd.Flags().IntVar(&anomaliesLimit, "limit", 50, "maximum number of anomalies to list")

	anomaliesCmd.AddCommand(anomaliesListCmd)
	anomaliesCmd.AddCommand(anomaliesAckCmd)
	rootCmd.AddCommand(anomaliesCmd)
}

func runAnomaliesList(cmd *cobra.Command, args []string) error {
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

	anomalies, err := source.Anomalies(cmd.Context(), report.AnomalyQuery{
		Acknowledged: anomaliesAcked,
		Limit:        anomaliesLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to fetch anomalies: %w", err)
	}

	if len(anomalies) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No anomalies.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tTYPE\tSEVERITY\tSCORE\tACK\tDESCRIPTION")
	for _, a := range anomalies {
		ack := ""
		if a.Acknowledged {
			ack = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.2f\t%s\t%s\n",
			a.ID, a.Timestamp.Format("01-02 15:04"), a.Type, a.Severity, a.Score, ack, a.Description)
	}
	return w.Flush()
}

func runAnomaliesAck(cmd *cobra.Command, args []string) error {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		id, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid anomaly id %q", arg)
		}
		ids = append(ids, id)
	}

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

	if err := source.AcknowledgeAnomalies(cmd.Context(), ids); err != nil {
		return fmt.Errorf("failed to acknowledge anomalies: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Acknowledged %d anomaly(ies).\n", len(ids))
	return nil
}
