package cmd

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/cyberblue/soc-console/internal/adapter/outbound/api"
	"github.com/cyberblue/soc-console/internal/config"
	"github.com/cyberblue/soc-console/internal/domain/token"
	"github.com/cyberblue/soc-console/internal/port/outbound"
)

func TestLiveURLDerivation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		want    string
		wantErr bool
	}{
		{
			name: "explicit live url wins",
			cfg: config.Config{
				API:  config.APIConfig{BaseURL: "https://soc.example.com"},
				Live: config.LiveConfig{URL: "wss://stream.example.com/ws"},
			},
			want: "wss://stream.example.com/ws",
		},
		{
			name: "derived from https base",
			cfg:  config.Config{API: config.APIConfig{BaseURL: "https://soc.example.com"}},
			want: "wss://soc.example.com/ws",
		},
		{
			name: "derived from http base",
			cfg:  config.Config{API: config.APIConfig{BaseURL: "http://localhost:8000"}},
			want: "ws://localhost:8000/ws",
		},
		{
			name: "trailing slash trimmed",
			cfg:  config.Config{API: config.APIConfig{BaseURL: "http://localhost:8000/"}},
			want: "ws://localhost:8000/ws",
		},
		{
			name:    "nothing configured",
			cfg:     config.Config{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := liveURL(&tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// stubIntrospector returns a canned who-am-I result.
type stubIntrospector struct {
	profile *outbound.Profile
	err     error
	calls   int
}

func (s *stubIntrospector) Me(context.Context) (*outbound.Profile, error) {
	s.calls++
	return s.profile, s.err
}

func TestRequireRole(t *testing.T) {
	ctx := context.Background()
	var logger *slog.Logger // requireRole tolerates nil and falls back to the default

	t.Run("no stored token fails without a network call", func(t *testing.T) {
		stub := &stubIntrospector{profile: &outbound.Profile{Role: "admin"}}
		err := requireRole(ctx, token.NewMemoryStore(), stub, logger, nil, "admin")
		if err == nil || !strings.Contains(err.Error(), "soc-console login") {
			t.Fatalf("err = %v, want login hint", err)
		}
		if stub.calls != 0 {
			t.Fatalf("introspector called %d times, want 0", stub.calls)
		}
	})

	t.Run("insufficient role is refused", func(t *testing.T) {
		tokens := token.NewMemoryStore()
		if err := tokens.Set(ctx, "tok-123"); err != nil {
			t.Fatal(err)
		}
		stub := &stubIntrospector{profile: &outbound.Profile{Role: "viewer"}}
		err := requireRole(ctx, tokens, stub, logger, nil, "admin")
		if err == nil || !strings.Contains(err.Error(), "admin") {
			t.Fatalf("err = %v, want role refusal", err)
		}
	})

	t.Run("rejected token is refused", func(t *testing.T) {
		tokens := token.NewMemoryStore()
		if err := tokens.Set(ctx, "tok-123"); err != nil {
			t.Fatal(err)
		}
		stub := &stubIntrospector{err: api.ErrUnauthenticated}
		if err := requireRole(ctx, tokens, stub, logger, nil, "admin"); err == nil {
			t.Fatal("expected refusal for a rejected token")
		}
	})

	t.Run("matching role passes", func(t *testing.T) {
		tokens := token.NewMemoryStore()
		if err := tokens.Set(ctx, "tok-123"); err != nil {
			t.Fatal(err)
		}
		stub := &stubIntrospector{profile: &outbound.Profile{Role: "admin"}}
		if err := requireRole(ctx, tokens, stub, logger, nil, "admin"); err != nil {
			t.Fatalf("requireRole() error = %v", err)
		}
	})

	t.Run("no required roles only checks the credential", func(t *testing.T) {
		tokens := token.NewMemoryStore()
		if err := tokens.Set(ctx, "tok-123"); err != nil {
			t.Fatal(err)
		}
		stub := &stubIntrospector{profile: &outbound.Profile{Role: "viewer"}}
		if err := requireRole(ctx, tokens, stub, logger, nil); err != nil {
			t.Fatalf("requireRole() error = %v", err)
		}
	})
}

func TestParseConfigDuration(t *testing.T) {
	if got := parseConfigDuration("", 3*time.Second); got != 3*time.Second {
		t.Errorf("empty: got %v", got)
	}
	if got := parseConfigDuration("bogus", 3*time.Second); got != 3*time.Second {
		t.Errorf("malformed: got %v", got)
	}
	if got := parseConfigDuration("10s", 3*time.Second); got != 10*time.Second {
		t.Errorf("explicit: got %v", got)
	}
}
