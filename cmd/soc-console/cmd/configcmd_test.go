package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/cyberblue/soc-console/internal/config"
)

func TestConfigInitWritesParseableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soc-console.yaml")

	var out bytes.Buffer
	configInitCmd.SetOut(&out)
	if err := runConfigInit(configInitCmd, []string{path}); err != nil {
		t.Fatalf("runConfigInit() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading generated file: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		t.Fatalf("generated config does not parse: %v", err)
	}
	if cfg.API.BaseURL != "https://soc.example.com" {
		t.Errorf("API.BaseURL = %q, want placeholder base URL", cfg.API.BaseURL)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default %q", cfg.LogLevel, "info")
	}
}

func TestConfigInitRefusesToOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soc-console.yaml")
	if err := os.WriteFile(path, []byte("log_level: debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	configInitForce = false
	if err := runConfigInit(configInitCmd, []string{path}); err == nil {
		t.Fatal("runConfigInit() succeeded, want refusal on existing file")
	}
}
