package config

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		ModelName:      "googleai/gemini-2.5-flash",
		ModelRPS:       10,
		ModelBurst:     30,
		Host:           "127.0.0.1",
		Port:           8000,
		SessionIdleTTL: time.Hour,
		LogLevel:       "info",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "empty model name",
			mutate:  func(c *Config) { c.ModelName = "  " },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "port too low",
			mutate:  func(c *Config) { c.Port = 0 },
			wantErr: ErrInvalidPort,
		},
		{
			name:    "port too high",
			mutate:  func(c *Config) { c.Port = 70000 },
			wantErr: ErrInvalidPort,
		},
		{
			name:    "zero rps",
			mutate:  func(c *Config) { c.ModelRPS = 0 },
			wantErr: ErrInvalidRateLimit,
		},
		{
			name:    "zero ttl",
			mutate:  func(c *Config) { c.SessionIdleTTL = 0 },
			wantErr: ErrInvalidSessionTTL,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequireAPIKey(t *testing.T) {
	cfg := validConfig()
	if err := cfg.RequireAPIKey(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("err = %v, want ErrMissingAPIKey", err)
	}
	cfg.GeminiAPIKey = "test-key"
	if err := cfg.RequireAPIKey(); err != nil {
		t.Errorf("err = %v, want nil", err)
	}
}

func TestAddr(t *testing.T) {
	cfg := validConfig()
	if got := cfg.Addr(); got != "127.0.0.1:8000" {
		t.Errorf("Addr() = %q", got)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for level, want := range tests {
		cfg := validConfig()
		cfg.LogLevel = level
		if got := cfg.SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", level, got, want)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ModelName == "" {
		t.Error("default model name is empty")
	}
	if cfg.Port == 0 {
		t.Error("default port is zero")
	}
	if cfg.SessionIdleTTL <= 0 {
		t.Error("default session TTL is non-positive")
	}
}
