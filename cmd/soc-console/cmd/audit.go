package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cyberblue/soc-console/internal/domain/report"
)

var (
	auditAction string
	auditLimit  int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List audit trail entries",
	RunE:  runAudit,
}

func init() {
	auditCmd.Flags().StringVar(&auditAction, "action", "", "filter by action")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 100, "maximum number of entries to list")
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
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

	logs, err := source.AuditLogs(cmd.Context(), report.AuditQuery{
		Action: auditAction,
		Limit:  auditLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to fetch audit logs: %w", err)
	}

	if len(logs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No audit entries.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tUSER\tACTION\tRESOURCE")
	for _, entry := range logs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			entry.ID, entry.Timestamp.Format("2006-01-02 15:04"), entry.UserSub, entry.Action, entry.Resource)
	}
	return w.Flush()
}
