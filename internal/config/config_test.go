package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "./topicrank.db", cfg.Database.Path)
	assert.Equal(t, "0 3 * * *", cfg.Schedule.Cron)
	assert.Equal(t, "https://api.openalex.org", cfg.Providers.OpenAlex.BaseURL)
	assert.Equal(t, 0.55, cfg.Scoring.Weights.ImpactCited)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  path: /tmp/other.db
schedule:
  cron: "30 4 * * *"
scoring:
  views_ttl: 12h
  weights:
    impact_cited: 0.5
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/other.db", cfg.Database.Path)
	assert.Equal(t, "30 4 * * *", cfg.Schedule.Cron)
	assert.Equal(t, 0.5, cfg.Scoring.Weights.ImpactCited)
	assert.Equal(t, 12*time.Hour, cfg.Scoring.Policy().ViewsTTL)
	// Untouched sections keep their defaults.
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestScoringConfig_PolicyFallsBackOnBadDurations(t *testing.T) {
	s := ScoringConfig{TotalsTTL: "not-a-duration"}
	p := s.Policy()

	assert.Equal(t, 7*24*time.Hour, p.TotalsTTL)
	assert.Equal(t, 24*time.Hour, p.Backoff)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("TOPICRANK_DB_PATH", "/data/topics.db")
	t.Setenv("OPENALEX_MAILTO", "ops@example.org")

	cfg := Default()
	applyEnvOverrides(cfg)

	assert.Equal(t, "/data/topics.db", cfg.Database.Path)
	assert.Equal(t, "ops@example.org", cfg.Providers.OpenAlex.Mailto)
}
