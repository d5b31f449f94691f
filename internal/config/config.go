package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// maxFrameSize bounds MAX_FRAME_SIZE; a frame is held in memory while it is read.
const maxFrameSize = 1 << 20

type Config struct {
	// Environment
	GoEnv string `envconfig:"GO_ENV" default:"development"`

	// Access point handed to the network bring-up hook
	APSSID     string `envconfig:"AP_SSID" default:"Bridge Controller 26"`
	APPassword string `envconfig:"AP_PASSWORD" default:"password"`

	// Operator link
	BindHost     string        `envconfig:"BIND_HOST" default:"0.0.0.0"`
	CommandPort  int           `envconfig:"COMMAND_PORT" default:"55555"`
	PushPort     int           `envconfig:"PUSH_PORT" default:"55055"`
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"50ms"`
	MaxFrameSize int           `envconfig:"MAX_FRAME_SIZE" default:"4096"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"2s"`
	PushBuffer   int           `envconfig:"PUSH_BUFFER" default:"8"`

	// Per-peer inbound limit; COMMAND_RATE=0 disables it
	CommandRate  float64 `envconfig:"COMMAND_RATE" default:"10"`
	CommandBurst int     `envconfig:"COMMAND_BURST" default:"20"`

	// Bridge simulation
	StatusInterval time.Duration `envconfig:"STATUS_INTERVAL" default:"1s"`

	// Status API; HTTP_PORT=0 disables it
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Snapshot cache; empty REDIS_URL disables it
	RedisURL      string        `envconfig:"REDIS_URL"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	SnapshotTTL   time.Duration `envconfig:"SNAPSHOT_TTL" default:"10m"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// LoadConfig loads configuration from .env (if present) and the environment.
func LoadConfig() (*Config, error) {
	// a missing .env is fine, system env vars still apply
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		fmt.Printf("Warning: could not read .env file: %v\n", err)
	}

	config := &Config{}
	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return config, nil
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	var errors []string

	// Ports; 0 is allowed for HTTP only
	if c.CommandPort < 1 || c.CommandPort > 65535 {
		errors = append(errors, "COMMAND_PORT must be between 1 and 65535")
	}
	if c.PushPort < 1 || c.PushPort > 65535 {
		errors = append(errors, "PUSH_PORT must be between 1 and 65535")
	}
	if c.CommandPort == c.PushPort {
		errors = append(errors, "COMMAND_PORT and PUSH_PORT must differ")
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		errors = append(errors, "HTTP_PORT must be between 0 and 65535")
	}

	if c.PollInterval <= 0 {
		errors = append(errors, "POLL_INTERVAL must be positive")
	}
	if c.WriteTimeout <= 0 {
		errors = append(errors, "WRITE_TIMEOUT must be positive")
	}
	if c.MaxFrameSize < 16 || c.MaxFrameSize > maxFrameSize {
		errors = append(errors, fmt.Sprintf("MAX_FRAME_SIZE must be between 16 and %d", maxFrameSize))
	}
	if c.PushBuffer < 1 {
		errors = append(errors, "PUSH_BUFFER must be at least 1")
	}
	if c.CommandRate < 0 {
		errors = append(errors, "COMMAND_RATE must not be negative")
	}
	if c.CommandRate > 0 && c.CommandBurst < 1 {
		errors = append(errors, "COMMAND_BURST must be at least 1 when COMMAND_RATE is set")
	}
	if c.StatusInterval <= 0 {
		errors = append(errors, "STATUS_INTERVAL must be positive")
	}
	if c.RedisURL != "" && c.SnapshotTTL <= 0 {
		errors = append(errors, "SNAPSHOT_TTL must be positive when REDIS_URL is set")
	}

	// Validate log level
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", ")))
	}

	// Validate log format
	validLogFormats := []string{"text", "json"}
	if !contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: %s", strings.Join(validLogFormats, ", ")))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// SlogLevel maps LOG_LEVEL onto slog levels, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger from LOG_FORMAT and LOG_LEVEL.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// Helper function to check if slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
