package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2000, cfg.MaxThesisLength)
	assert.Equal(t, 10, cfg.Karma.Pitch)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envOf(map[string]string{
		"PORT":               "9090",
		"STORAGE":            "postgres",
		"DATABASE_URL":       "postgres://localhost/pitchfeed",
		"ORACLE_TIMEOUT":     "500ms",
		"ORACLE_RPS":         "0.5",
		"MAX_COMMENT_LENGTH": "280",
		"SEED_DEMO":          "true",
	}))
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres", cfg.Storage)
	assert.Equal(t, 500*time.Millisecond, cfg.OracleTimeout)
	assert.Equal(t, 0.5, cfg.OracleRPS)
	assert.Equal(t, 280, cfg.MaxCommentLength)
	assert.True(t, cfg.SeedDemo)
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnvRejectsGarbage(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envOf(map[string]string{
		"MAX_THESIS_LENGTH": "lots",
		"ORACLE_TIMEOUT":    "soon",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_THESIS_LENGTH")
	assert.Contains(t, err.Error(), "ORACLE_TIMEOUT")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Storage = "postgres"
	assert.Error(t, cfg.Validate(), "postgres needs a DSN")

	cfg = Default()
	cfg.Oracle = "alphavantage"
	assert.Error(t, cfg.Validate(), "alphavantage needs a key")

	cfg = Default()
	cfg.Oracle = "bloomberg"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.LogLevel = "loud"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.LogFormat = "xml"
	assert.Error(t, cfg.Validate())
}

func TestConsoleLog(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.ConsoleLog(), "info defaults to JSON")

	cfg.LogLevel = "debug"
	assert.True(t, cfg.ConsoleLog())

	cfg.LogFormat = "json"
	assert.False(t, cfg.ConsoleLog())

	cfg = Default()
	require.NoError(t, cfg.applyEnv(envOf(map[string]string{"LOG_FORMAT": "console"})))
	assert.True(t, cfg.ConsoleLog())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pitchfeed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "7000"
karma:
  pitch: 20
  like: 3
  share: 1
feed:
  limit: 50
  rank:
    half_life: 12h
    return_cap: 25
`), 0o600))

	cfg := Default()
	require.NoError(t, cfg.loadFile(path))
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, 20, cfg.Karma.Pitch)
	assert.Equal(t, 50, cfg.Feed.Limit)
	assert.Equal(t, 12*time.Hour, cfg.Feed.Rank.HalfLife)
	assert.Equal(t, 25.0, cfg.Feed.Rank.ReturnCap)
	assert.Equal(t, 5, cfg.Feed.DiscoverySize, "unset keys keep defaults")
}
