// Package config provides application configuration with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.evi/config.yaml or ./config.yaml)
//  3. Default values
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrMissingAPIKey indicates the Gemini API key is not set.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidPort indicates the HTTP port is out of range.
	ErrInvalidPort = errors.New("invalid port")

	// ErrInvalidRateLimit indicates the model rate limit is non-positive.
	ErrInvalidRateLimit = errors.New("invalid rate limit")

	// ErrInvalidSessionTTL indicates the session idle TTL is non-positive.
	ErrInvalidSessionTTL = errors.New("invalid session TTL")
)

// Config stores application configuration.
type Config struct {
	// Model configuration. ModelName is the Genkit model identifier,
	// e.g. "googleai/gemini-2.5-flash".
	ModelName string `mapstructure:"model_name"`

	// GeminiAPIKey authenticates against the Google AI backend.
	// SENSITIVE: never logged.
	GeminiAPIKey string `mapstructure:"gemini_api_key"`

	// Model call pacing shared across sessions.
	ModelRPS   float64 `mapstructure:"model_rps"`
	ModelBurst int     `mapstructure:"model_burst"`

	// HTTP server configuration (serve mode only).
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`

	// SessionIdleTTL is how long an inactive session survives before the
	// store purges it.
	SessionIdleTTL time.Duration `mapstructure:"session_idle_ttl"`

	// Logging configuration.
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	configDir := filepath.Join(home, ".evi")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model_name", "googleai/gemini-2.5-flash")
	v.SetDefault("model_rps", 10.0)
	v.SetDefault("model_burst", 30)

	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8000)
	v.SetDefault("cors_origins", []string{"http://localhost:5173"})

	v.SetDefault("session_idle_ttl", 2*time.Hour)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// bindEnvVariables binds environment variables explicitly. The API key
// accepts both names the Google AI SDKs conventionally use.
func bindEnvVariables(v *viper.Viper) {
	_ = v.BindEnv("gemini_api_key", "GEMINI_API_KEY", "GOOGLE_API_KEY")
	_ = v.BindEnv("model_name", "EVI_MODEL_NAME")
	_ = v.BindEnv("host", "EVI_HOST")
	_ = v.BindEnv("port", "EVI_PORT", "PORT")
	_ = v.BindEnv("log_level", "EVI_LOG_LEVEL")
}

// Validate fails fast on configuration that cannot work.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model_name is empty", ErrInvalidModelName)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: %d (must be 1-65535)", ErrInvalidPort, c.Port)
	}
	if c.ModelRPS <= 0 || c.ModelBurst < 1 {
		return fmt.Errorf("%w: rps=%v burst=%d", ErrInvalidRateLimit, c.ModelRPS, c.ModelBurst)
	}
	if c.SessionIdleTTL <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSessionTTL, c.SessionIdleTTL)
	}
	return nil
}

// RequireAPIKey validates that a Gemini key is present. Called by modes
// that actually reach the model, so offline commands keep working.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.GeminiAPIKey) == "" {
		return fmt.Errorf("%w: set GEMINI_API_KEY or GOOGLE_API_KEY", ErrMissingAPIKey)
	}
	return nil
}

// Addr returns the host:port the HTTP server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SlogLevel maps the configured level string to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
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
