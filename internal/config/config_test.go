package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  host: 0.0.0.0
  port: 9090
  read_timeout: 5s
games:
  max_games: 10
  idle_ttl: 30m
auth:
  secret: hunter2
websocket:
  ping_period: 30s
development:
  log_level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout, "unset keys keep defaults")
	assert.Equal(t, 10, cfg.Games.MaxGames)
	assert.Equal(t, 30*time.Minute, cfg.Games.IdleTTL)
	assert.Equal(t, "hunter2", cfg.Auth.Secret)
	assert.Equal(t, 30*time.Second, cfg.WebSocket.PingPeriod)
	assert.Equal(t, "debug", cfg.Development.LogLevel)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 9090\n"), 0o600))
	t.Setenv("CHESSRULES_SERVER_PORT", "7070")
	t.Setenv("CHESSRULES_GAMES_IDLE_TTL", "1m")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Games.IdleTTL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"port out of range", "server:\n  port: 70000\n"},
		{"no games allowed", "games:\n  max_games: 0\n"},
		{"zero sweep interval", "games:\n  sweep_interval: 0s\n"},
		{"malformed yaml", "server: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(tt.yaml), 0o600))

			_, err := LoadFrom(dir)
			assert.Error(t, err)
		})
	}
}

func TestPongWaitExceedsPingPeriod(t *testing.T) {
	ws := Defaults().WebSocket
	assert.Greater(t, ws.PongWait(), ws.PingPeriod)
	assert.Equal(t, 60*time.Second, ws.PongWait())
}
