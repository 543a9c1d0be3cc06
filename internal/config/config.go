package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Kube      KubeConfig
	Terminal  TerminalConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8000"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"*"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// KubeConfig holds cluster access configuration. $KUBECONFIG is honored by
// the standard loading rules; ConfigPath overrides it with a single file.
type KubeConfig struct {
	ConfigPath       string `envconfig:"KUBE_CONFIG_PATH"`
	AutoSelect       bool   `envconfig:"KUBE_AUTOSELECT" default:"true"`
	DefaultNamespace string `envconfig:"KUBE_DEFAULT_NAMESPACE" default:"default"`
}

// TerminalConfig holds exec session configuration.
type TerminalConfig struct {
	Command         string        `envconfig:"TERMINAL_COMMAND" default:"kubectl"`
	Shell           string        `envconfig:"TERMINAL_SHELL" default:"/bin/sh"`
	WorkingDir      string        `envconfig:"TERMINAL_WORKDIR"`
	ScrollbackBytes int           `envconfig:"TERMINAL_SCROLLBACK_BYTES" default:"262144"`
	ShutdownTimeout time.Duration `envconfig:"TERMINAL_SHUTDOWN_TIMEOUT" default:"5s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	// Input frames per second accepted from one WebSocket connection
	InputPerSecond int `envconfig:"RATE_LIMIT_INPUT_RPS" default:"1000"`
	InputBurst     int `envconfig:"RATE_LIMIT_INPUT_BURST" default:"2000"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Host:            "0.0.0.0",
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		Kube: KubeConfig{
			AutoSelect:       true,
			DefaultNamespace: "default",
		},
		Terminal: TerminalConfig{
			Command:         "kubectl",
			Shell:           "/bin/sh",
			ScrollbackBytes: 256 * 1024,
			ShutdownTimeout: 5 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
			InputPerSecond:    1000,
			InputBurst:        2000,
		},
	}
}
