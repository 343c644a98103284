// Package config provides configuration types for soc-console.
package config

import (
	"os"
	"path/filepath"
)

// Config is the top-level configuration for the console.
type Config struct {
	// API configures the SOC backend connection.
	API APIConfig `yaml:"api" mapstructure:"api"`

	// OIDC configures the identity provider for browser logins.
	OIDC OIDCConfig `yaml:"oidc" mapstructure:"oidc"`

	// Live configures the streaming update channel.
	Live LiveConfig `yaml:"live" mapstructure:"live"`

	// Snapshot configures the local offline cache.
	Snapshot SnapshotConfig `yaml:"snapshot" mapstructure:"snapshot"`

	// Metrics configures the optional Prometheus scrape listener.
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`

	// LogLevel sets the minimum log level.
	// Valid values: "debug", "info", "warn", "error".
	// Defaults to "info" if empty.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
}

// APIConfig configures the SOC backend API client.
type APIConfig struct {
	// BaseURL is the backend base URL (e.g., "https://soc.example.com").
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`

	// Timeout is the per-request timeout (e.g., "15s").
	// Defaults to "15s" if not specified.
	Timeout string `yaml:"timeout" mapstructure:"timeout" validate:"omitempty"`
}

// OIDCConfig configures the identity provider.
type OIDCConfig struct {
	// IssuerURL is the OIDC issuer base URL
	// (e.g., "https://keycloak.example.com/realms/soc").
	IssuerURL string `yaml:"issuer_url" mapstructure:"issuer_url" validate:"omitempty,url"`

	// ClientID is the registered public client identifier.
	// Defaults to "soc-console".
	ClientID string `yaml:"client_id" mapstructure:"client_id"`

	// Scopes requested at login. Defaults to openid, profile, email.
	Scopes []string `yaml:"scopes" mapstructure:"scopes"`

	// CallbackPort is the loopback port for the login redirect.
	// 0 uses the adapter default.
	CallbackPort int `yaml:"callback_port" mapstructure:"callback_port" validate:"omitempty,min=0,max=65535"`
}

// LiveConfig configures the streaming update channel.
type LiveConfig struct {
	// URL is the websocket endpoint. When empty it is derived from the API
	// base URL by swapping the scheme and appending /ws.
	URL string `yaml:"url" mapstructure:"url" validate:"omitempty,ws_url"`

	// ReconnectDelay is the pause before a reconnect attempt (e.g., "3s").
	// Defaults to "3s".
	ReconnectDelay string `yaml:"reconnect_delay" mapstructure:"reconnect_delay" validate:"omitempty"`

	// BackoffFactor multiplies the delay after consecutive failures.
	// Values <= 1 keep the delay fixed. Defaults to 1.
	BackoffFactor float64 `yaml:"backoff_factor" mapstructure:"backoff_factor" validate:"omitempty,min=0"`

	// MaxDelay caps the grown delay (e.g., "1m"). Empty means no cap.
	MaxDelay string `yaml:"max_delay" mapstructure:"max_delay" validate:"omitempty"`

	// MaxAttempts caps consecutive failed reconnects. 0 retries forever.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts" validate:"omitempty,min=0"`
}

// SnapshotConfig configures the local offline cache.
type SnapshotConfig struct {
	// Enabled turns the snapshot cache on or off.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Path is the SQLite database file.
	// Defaults to <user config dir>/soc-console/snapshots.db.
	Path string `yaml:"path" mapstructure:"path"`
}

// MetricsConfig configures the Prometheus scrape listener for long-running
// watch sessions.
type MetricsConfig struct {
	// Enabled turns the scrape listener on or off. Default: off.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// ListenAddr is the scrape listener address.
	// Defaults to "127.0.0.1:9464".
	ListenAddr string `yaml:"listen_addr" mapstructure:"listen_addr" validate:"omitempty,hostname_port"`
}

// SetDefaults applies sensible default values to the configuration.
func (c *Config) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.API.Timeout == "" {
		c.API.Timeout = "15s"
	}

	if c.OIDC.ClientID == "" {
		c.OIDC.ClientID = "soc-console"
	}

	if c.Live.ReconnectDelay == "" {
		c.Live.ReconnectDelay = "3s"
	}
	if c.Live.BackoffFactor == 0 {
		c.Live.BackoffFactor = 1
	}

	if c.Snapshot.Path == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			c.Snapshot.Path = filepath.Join(dir, "soc-console", "snapshots.db")
		}
	}

	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = "127.0.0.1:9464"
	}
}
