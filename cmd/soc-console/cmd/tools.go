package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cyberblue/soc-console/internal/domain/tool"
	"github.com/cyberblue/soc-console/internal/service"
)

var (
	toolsStatus   string
	toolsCategory string
	toolsWhere    string
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List tools and apply lifecycle actions",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tool inventory",
	Long: `List the tool inventory.

Status filters: all, running, stopped, critical, recent (uptime <= 60 min).
Category filters match the category exactly. --where takes a filter
expression over the tool fields, e.g.:

  soc-console tools list --where 'tool.status == "running" && tool.uptime_minutes <= 60'
  soc-console tools list --where '"hids" in tool.tags'`,
	RunE: runToolsList,
}

var toolsStartCmd = &cobra.Command{
	Use:   "start <tool-id>...",
	Short: "Start one or more tools",
	Args:  cobra.MinimumNArgs(0),
	RunE:  toolActionRunner(tool.ActionStart),
}

var toolsStopCmd = &cobra.Command{
	Use:   "stop <tool-id>...",
	Short: "Stop one or more tools",
	Args:  cobra.MinimumNArgs(0),
	RunE:  toolActionRunner(tool.ActionStop),
}

var toolsRestartCmd = &cobra.Command{
	Use:   "restart <tool-id>...",
	Short: "Restart one or more tools",
	Args:  cobra.MinimumNArgs(0),
	RunE:  toolActionRunner(tool.ActionRestart),
}

func init() {
	toolsCmd.PersistentFlags().StringVar(&toolsStatus, "status", tool.FilterAll, "status filter: all, running, stopped, critical, recent")
	toolsCmd.PersistentFlags().StringVar(&toolsCategory, "category", "", "exact category filter")
	toolsCmd.PersistentFlags().StringVar(&toolsWhere, "where", "", "filter expression over tool fields")

	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsStartCmd)
	toolsCmd.AddCommand(toolsStopCmd)
	toolsCmd.AddCommand(toolsRestartCmd)
	rootCmd.AddCommand(toolsCmd)
}

// selectTools fetches the inventory and applies the status, category, and
// expression filters.
func selectTools(cmd *cobra.Command) ([]tool.Tool, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg)
	tokens := newTokenStore()
	client := newAPIClient(cfg, tokens, logger)

	source, closeSource, err := newDataSource(cfg, client, logger)
	if err != nil {
		return nil, nil, err
	}

	svc := service.NewToolService(source, logger)
	if err := svc.Refresh(cmd.Context()); err != nil {
		closeSource()
		return nil, nil, fmt.Errorf("failed to fetch tools: %w", err)
	}

	tools := svc.Tools(toolsStatus, toolsCategory)
	if toolsWhere != "" {
		filter, err := tool.CompileExpr(toolsWhere)
		if err != nil {
			closeSource()
			return nil, nil, fmt.Errorf("invalid --where expression: %w", err)
		}
		tools = filter.Apply(tools)
	}
	return tools, closeSource, nil
}

func runToolsList(cmd *cobra.Command, args []string) error {
	tools, closeSource, err := selectTools(cmd)
	if err != nil {
		return err
	}
	defer closeSource()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tSTATUS\tHEALTH\tUPTIME\tCRITICAL")
	for _, t := range tools {
		uptime := "-"
		if t.UptimeMinutes != nil {
			uptime = strconv.Itoa(*t.UptimeMinutes) + "m"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%v\n",
			t.ID, t.Name, t.Category, t.Status, t.Health, uptime, t.Critical)
	}
	return w.Flush()
}

// toolActionRunner builds the RunE for a lifecycle action command. With
// explicit IDs the action is applied to those tools; without IDs it is
// applied to every tool matching the filters, one request per tool.
func toolActionRunner(action tool.Action) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && toolsStatus == tool.FilterAll && toolsCategory == "" && toolsWhere == "" {
			return fmt.Errorf("give tool ids or narrow the selection with --status, --category, or --where")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)
		tokens := newTokenStore()
		client := newAPIClient(cfg, tokens, logger)
		ctx := cmd.Context()

		// Lifecycle actions are admin-only; check before any request fires.
		if err := requireRole(ctx, tokens, client, logger, nil, "admin"); err != nil {
			return err
		}

		source, closeSource, err := newDataSource(cfg, client, logger)
		if err != nil {
			return err
		}
		defer closeSource()

		svc := service.NewToolService(source, logger)

		sel := tool.NewSelection()
		if len(args) > 0 {
			for _, id := range args {
				if !sel.Contains(id) {
					sel.Toggle(id)
				}
			}
		} else {
			if err := svc.Refresh(ctx); err != nil {
				return fmt.Errorf("failed to fetch tools: %w", err)
			}
			matched := svc.Tools(toolsStatus, toolsCategory)
			if toolsWhere != "" {
				filter, err := tool.CompileExpr(toolsWhere)
				if err != nil {
					return fmt.Errorf("invalid --where expression: %w", err)
				}
				matched = filter.Apply(matched)
			}
			for _, t := range matched {
				sel.Toggle(t.ID)
			}
		}

		if sel.Len() == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No tools selected.")
			return nil
		}

		if err := svc.BulkAct(ctx, action, sel); err != nil {
			return fmt.Errorf("%s failed for some tools: %w", action, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Applied %s to %d tool(s).\n", action, sel.Len())
		return nil
	}
}
