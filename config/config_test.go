package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("applies defaults over a minimal file", func(t *testing.T) {
		path := writeConfigFile(t, `
postgres:
  dsn: postgres://localhost:5432/raffle
nats:
  url: nats://localhost:4222
`)

		cfg, err := LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, int64(100), cfg.Raffle.EntryFee)
		assert.Equal(t, time.Hour, cfg.Raffle.DrawInterval)
		assert.Equal(t, 30*time.Second, cfg.Raffle.PollInterval)
		assert.Equal(t, "raffle:pot", cfg.Raffle.PotAccount)
		assert.Equal(t, ":8080", cfg.HTTP.Addr)
	})

	t.Run("env overrides take precedence over the file", func(t *testing.T) {
		path := writeConfigFile(t, `
postgres:
  dsn: postgres://localhost:5432/raffle
nats:
  url: nats://localhost:4222
raffle:
  entry_fee: 100
  draw_interval: 1h
`)
		t.Setenv("RAFFLE_ENTRY_FEE", "250")
		t.Setenv("RAFFLE_DRAW_INTERVAL", "30m")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, int64(250), cfg.Raffle.EntryFee)
		assert.Equal(t, 30*time.Minute, cfg.Raffle.DrawInterval)
	})

	t.Run("malformed entry fee override fails loudly", func(t *testing.T) {
		path := writeConfigFile(t, `
postgres:
  dsn: postgres://localhost:5432/raffle
nats:
  url: nats://localhost:4222
`)
		t.Setenv("RAFFLE_ENTRY_FEE", "one hundred")

		_, err := LoadConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RAFFLE_ENTRY_FEE")
	})

	t.Run("malformed draw interval override fails loudly", func(t *testing.T) {
		path := writeConfigFile(t, `
postgres:
  dsn: postgres://localhost:5432/raffle
nats:
  url: nats://localhost:4222
`)
		t.Setenv("RAFFLE_DRAW_INTERVAL", "soon")

		_, err := LoadConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RAFFLE_DRAW_INTERVAL")
	})
}
