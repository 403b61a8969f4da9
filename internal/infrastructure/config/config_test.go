package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 2*time.Second, cfg.Supervisor.GraceWindow)
	assert.Equal(t, time.Second, cfg.Supervisor.PollInterval)
	assert.Equal(t, 3*time.Second, cfg.Supervisor.GracefulTimeout)
	assert.False(t, cfg.Supervisor.KillSweep)
	assert.Equal(t, "config.json", cfg.Store.ServersPath)
	assert.Equal(t, "clients.toml", cfg.Store.ClientsPath)
	assert.Equal(t, "history.db", cfg.Store.HistoryPath)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("GRACE_WINDOW", "5s")
	t.Setenv("KILL_SWEEP", "true")
	t.Setenv("HISTORY_PATH", "/var/lib/kiosk/history.db")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Supervisor.GraceWindow)
	assert.True(t, cfg.Supervisor.KillSweep)
	assert.Equal(t, "/var/lib/kiosk/history.db", cfg.Store.HistoryPath)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadOrDefaultFallsBack(t *testing.T) {
	t.Setenv("GRACE_WINDOW", "not-a-duration")

	cfg := LoadOrDefault()
	assert.Equal(t, 2*time.Second, cfg.Supervisor.GraceWindow)
}
