package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cyberblue/soc-console/internal/adapter/outbound/api"
	"github.com/cyberblue/soc-console/internal/adapter/outbound/oidc"
	"github.com/cyberblue/soc-console/internal/adapter/outbound/snapshot"
	"github.com/cyberblue/soc-console/internal/config"
	"github.com/cyberblue/soc-console/internal/domain/token"
	"github.com/cyberblue/soc-console/internal/port/outbound"
	"github.com/cyberblue/soc-console/internal/service"
)

// loadConfig loads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the stderr logger at the configured level. Stdout is
// reserved for command output.
func newLogger(cfg *config.Config) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	if file := config.ConfigFileUsed(); file != "" {
		logger.Debug("loaded config", "file", file)
	}
	return logger
}

// parseLogLevel maps a config string to a slog level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newTokenStore is the one place that decides where credentials live.
func newTokenStore() token.Store {
	return token.NewKeyringStore()
}

// newAPIClient builds the backend client from config. Extra options are
// appended after the config-derived ones.
func newAPIClient(cfg *config.Config, tokens token.Store, logger *slog.Logger, extra ...api.Option) *api.Client {
	opts := []api.Option{api.WithLogger(logger)}
	if cfg.API.BaseURL != "" {
		opts = append(opts, api.WithBaseURL(cfg.API.BaseURL))
	}
	if d, err := time.ParseDuration(cfg.API.Timeout); err == nil && d > 0 {
		opts = append(opts, api.WithTimeout(d))
	}
	opts = append(opts, extra...)
	return api.NewClient(tokens, opts...)
}

// newDataSource wraps the backend client with the snapshot cache when
// enabled. The returned closer releases the cache database.
func newDataSource(cfg *config.Config, client *api.Client, logger *slog.Logger) (outbound.DataSource, func(), error) {
	if !cfg.Snapshot.Enabled {
		return client, func() {}, nil
	}
	store, err := snapshot.Open(cfg.Snapshot.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open snapshot cache: %w", err)
	}
	return snapshot.NewSource(client, store, logger), func() { _ = store.Close() }, nil
}

// requireRole gates a protected command through the access gate before any
// state-changing request is issued. A nil recorder disables decision metrics.
func requireRole(ctx context.Context, tokens token.Store, introspector outbound.Introspector, logger *slog.Logger, rec service.DecisionRecorder, roles ...string) error {
	gate := service.NewGateService(tokens, introspector, logger)
	if rec != nil {
		gate.SetMetrics(rec)
	}
	switch gate.Decide(ctx, roles) {
	case service.RedirectLogin:
		return fmt.Errorf("not signed in; run: soc-console login")
	case service.RedirectUnauthorized:
		return fmt.Errorf("requires one of the roles: %s", strings.Join(roles, ", "))
	}
	return nil
}

// newProvider builds the OIDC provider adapter from config.
func newProvider(cfg *config.Config, logger *slog.Logger) (*oidc.Provider, error) {
	if cfg.OIDC.IssuerURL == "" {
		return nil, fmt.Errorf("oidc.issuer_url is not configured (or set SOC_CONSOLE_OIDC_ISSUER_URL)")
	}
	return oidc.NewProvider(oidc.Config{
		IssuerURL:    cfg.OIDC.IssuerURL,
		ClientID:     cfg.OIDC.ClientID,
		Scopes:       cfg.OIDC.Scopes,
		CallbackPort: cfg.OIDC.CallbackPort,
		Logger:       logger,
	}), nil
}

// liveURL resolves the streaming endpoint: the configured URL, or the API
// base URL with the scheme swapped to websocket and /ws appended.
func liveURL(cfg *config.Config) (string, error) {
	if cfg.Live.URL != "" {
		return cfg.Live.URL, nil
	}
	if cfg.API.BaseURL == "" {
		return "", fmt.Errorf("neither live.url nor api.base_url is configured")
	}
	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid api.base_url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

// parseConfigDuration parses a duration string, falling back when empty or
// malformed.
func parseConfigDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
