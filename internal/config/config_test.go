package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "https://api.apify.com/v2", cfg.Apify.BaseURL)
	assert.True(t, cfg.Enrich.Enabled)
	assert.Equal(t, 20, cfg.Enrich.MaxCandidates)
	assert.Equal(t, 50, cfg.Scoring.ReadinessThreshold)
	assert.Equal(t, 30, cfg.Scoring.TitleKeywordBonus)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LEADGEN_STORE_DRIVER", "sqlite")
	t.Setenv("LEADGEN_STORE_DATABASE_URL", "leads.db")
	t.Setenv("LEADGEN_SERVER_PORT", "9090")
	t.Setenv("LEADGEN_SCORING_READINESS_THRESHOLD", "75")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "leads.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 75, cfg.Scoring.ReadinessThreshold)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nope"}))
}
