// Package config provides configuration loading for soc-console.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment
// variables. If configFile is empty, it searches for soc-console.yaml/.yml in
// standard locations. The search requires an explicit YAML extension so the
// binary itself (same base name, no extension) is never matched.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No config file found in any standard location. Set name/type
		// without search paths so ReadInConfig returns
		// ConfigFileNotFoundError, which callers handle gracefully.
		viper.SetConfigName("soc-console")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: SOC_CONSOLE_API_BASE_URL
	viper.SetEnvPrefix("SOC_CONSOLE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for a soc-console config file
// with an explicit YAML extension (.yaml or .yml).
func findConfigFile() string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "soc-console"))
	}
	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/soc-console")
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths searches the given directories for soc-console.yaml
// or .yml. Returns the full path of the first match, or empty string.
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "soc-console"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds config keys for environment variable support.
// Example: SOC_CONSOLE_API_BASE_URL overrides api.base_url
func bindNestedEnvKeys() {
	_ = viper.BindEnv("api.base_url")
	_ = viper.BindEnv("api.timeout")

	_ = viper.BindEnv("oidc.issuer_url")
	_ = viper.BindEnv("oidc.client_id")
	_ = viper.BindEnv("oidc.callback_port")
	// Note: oidc.scopes is an array, handled by Viper's env parsing

	_ = viper.BindEnv("live.url")
	_ = viper.BindEnv("live.reconnect_delay")
	_ = viper.BindEnv("live.backoff_factor")
	_ = viper.BindEnv("live.max_delay")
	_ = viper.BindEnv("live.max_attempts")

	_ = viper.BindEnv("snapshot.enabled")
	_ = viper.BindEnv("snapshot.path")

	_ = viper.BindEnv("metrics.enabled")
	_ = viper.BindEnv("metrics.listen_addr")

	_ = viper.BindEnv("log_level")
}

// LoadConfig reads the configuration file, applies environment overrides,
// sets defaults, validates, and returns the Config.
func LoadConfig() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - continue with env vars only.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was loaded.
// Returns an empty string if no config file was found (env vars only mode).
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
