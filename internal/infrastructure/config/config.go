// Package config loads launcher configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Supervisor SupervisorConfig
	Store      StoreConfig
	Logging    LogConfig
	RateLimit  RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// SupervisorConfig holds process supervision tunables.
type SupervisorConfig struct {
	// GraceWindow is how long after launch a client must stay alive
	// before the session counts as Connected.
	GraceWindow time.Duration `envconfig:"GRACE_WINDOW" default:"2s"`
	// PollInterval is the liveness poll cadence for running sessions.
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"1s"`
	// GracefulTimeout bounds graceful termination before force-kill.
	GracefulTimeout time.Duration `envconfig:"GRACEFUL_TIMEOUT" default:"3s"`
	// KillSweep enables the name-based process sweep on teardown. Off by
	// default: the sweep can take down unrelated same-named processes.
	KillSweep bool `envconfig:"KILL_SWEEP" default:"false"`
}

// StoreConfig holds persistence locations.
type StoreConfig struct {
	ServersPath string `envconfig:"SERVERS_PATH" default:"config.json"`
	ClientsPath string `envconfig:"CLIENTS_PATH" default:"clients.toml"`
	HistoryPath string `envconfig:"HISTORY_PATH" default:"history.db"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"50"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"100"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
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
			Port: "8080",
			Host: "0.0.0.0",
		},
		Supervisor: SupervisorConfig{
			GraceWindow:     2 * time.Second,
			PollInterval:    time.Second,
			GracefulTimeout: 3 * time.Second,
			KillSweep:       false,
		},
		Store: StoreConfig{
			ServersPath: "config.json",
			ClientsPath: "clients.toml",
			HistoryPath: "history.db",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			Enabled:           true,
		},
	}
}
