package cmd

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/cyberblue/soc-console/internal/adapter/outbound/api"
	"github.com/cyberblue/soc-console/internal/adapter/outbound/live"
	"github.com/cyberblue/soc-console/internal/domain/tool"
	"github.com/cyberblue/soc-console/internal/metrics"
	"github.com/cyberblue/soc-console/internal/service"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow live updates and refresh the tool inventory",
	Long: `Follow the backend's live update channel.

The tool inventory is refreshed whenever the channel reports a relevant
event (tool status change, detected anomaly) and on a periodic fallback
interval. Changed inventories are printed as they arrive. Stop with Ctrl+C.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 30*time.Second, "periodic refresh fallback interval")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	tokens := newTokenStore()

	wsURL, err := liveURL(cfg)
	if err != nil {
		return err
	}

	// Metrics are only worth scraping for a long-running session, so the
	// listener lives here rather than in every command.
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		m = metrics.NewMetrics(reg)
		srv := &stdhttp.Server{
			Addr:              cfg.Metrics.ListenAddr,
			Handler:           metrics.Handler(reg),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
				logger.Error("metrics listener failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("metrics listener started", "addr", cfg.Metrics.ListenAddr)
	}

	var clientOpts []api.Option
	if m != nil {
		clientOpts = append(clientOpts, api.WithMetrics(m))
	}
	client := newAPIClient(cfg, tokens, logger, clientOpts...)

	// A watch session is a protected view: prove the credential before
	// opening the channel.
	var rec service.DecisionRecorder
	if m != nil {
		rec = m
	}
	if err := requireRole(cmd.Context(), tokens, client, logger, rec); err != nil {
		return err
	}

	source, closeSource, err := newDataSource(cfg, client, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	svc := service.NewToolService(source, logger)
	if m != nil {
		svc.SetMetrics(m)
	}
	defer svc.Close()

	svc.OnUpdate(func(tools []tool.Tool) {
		printWatchUpdate(cmd, tools)
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := svc.Refresh(ctx); err != nil {
		return fmt.Errorf("initial fetch failed: %w", err)
	}
	printWatchUpdate(cmd, svc.Tools(tool.FilterAll, ""))

	channel := live.NewChannel(live.Config{
		URL:            wsURL,
		ReconnectDelay: parseConfigDuration(cfg.Live.ReconnectDelay, live.DefaultReconnectDelay),
		BackoffFactor:  cfg.Live.BackoffFactor,
		MaxDelay:       parseConfigDuration(cfg.Live.MaxDelay, 0),
		MaxAttempts:    cfg.Live.MaxAttempts,
		Logger:         logger,
		Metrics:        liveRecorder(m),
	})
	unsubscribe := channel.Subscribe(func(msg live.Message) {
		svc.OnLiveMessage(ctx, msg.Type)
	})
	defer unsubscribe()

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(cmd.OutOrStdout(), "Stopped.")
			return nil
		case <-ticker.C:
			if err := svc.Refresh(ctx); err != nil {
				logger.Warn("periodic refresh failed", "error", err)
			}
		}
	}
}

// liveRecorder adapts optional metrics to the channel's recorder port.
func liveRecorder(m *metrics.Metrics) live.ReconnectRecorder {
	if m == nil {
		return nil
	}
	return m
}

func printWatchUpdate(cmd *cobra.Command, tools []tool.Tool) {
	running, stopped := 0, 0
	for _, t := range tools {
		switch t.Status {
		case tool.StatusRunning:
			running++
		case tool.StatusStopped:
			stopped++
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "[%s] %d tools (%d running, %d stopped)\n",
		time.Now().Format("15:04:05"), len(tools), running, stopped)
}
