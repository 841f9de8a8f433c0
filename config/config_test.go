package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("DATABASE_URL", "")
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Progression.CountryBonus)
	assert.Equal(t, 200, cfg.Progression.ContinentBonus)
	assert.Equal(t, time.UTC, cfg.Progression.LeaderboardLocation)
	assert.True(t, cfg.IsDevelopment())
	assert.True(t, cfg.UsesMemoryStore())
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.True(t, cfg.Features.IsEnabled(FeatureLeaderboardCache))
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CONTINENT_COMPLETION_BONUS=350\nFEATURE_LEADERBOARD_CACHE=false\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("CONTINENT_COMPLETION_BONUS", "")
	t.Setenv("FEATURE_LEADERBOARD_CACHE", "")
	os.Unsetenv("CONTINENT_COMPLETION_BONUS")
	os.Unsetenv("FEATURE_LEADERBOARD_CACHE")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 350, cfg.Progression.ContinentBonus)
	assert.False(t, cfg.Features.IsEnabled(FeatureLeaderboardCache))
}

func TestLoad_InvalidTimezone(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("LEADERBOARD_TIMEZONE", "Mars/Olympus")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		App:         AppConfig{Environment: EnvProduction},
		HTTP:        HTTPConfig{Port: 8080},
		Progression: ProgressionConfig{CountryBonus: -1},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required in production")
	assert.Contains(t, err.Error(), "COUNTRY_COMPLETION_BONUS cannot be negative")

	cfg.Database.URL = "postgres://localhost/tq"
	cfg.Progression.CountryBonus = 50
	assert.NoError(t, cfg.Validate())
}

func TestFeatureFlags_Rollout(t *testing.T) {
	ff := LoadFeatureFlags()
	require.NoError(t, ff.SetRolloutPercent(FeatureRequestLogging, 50))

	first := ff.IsEnabledFor(FeatureRequestLogging, "user-42")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ff.IsEnabledFor(FeatureRequestLogging, "user-42"))
	}
	assert.False(t, ff.IsEnabled(FeatureRequestLogging))

	require.NoError(t, ff.DisableFeature(FeatureRequestLogging))
	assert.False(t, ff.IsEnabledFor(FeatureRequestLogging, "user-42"))

	assert.ErrorIs(t, ff.SetRolloutPercent("nope", 10), ErrFeatureNotFound)
	assert.ErrorIs(t, ff.SetRolloutPercent(FeatureCatalogCache, 101), ErrInvalidRolloutPercent)
}

func TestFeatureFlags_ResolveDependencies(t *testing.T) {
	ff := LoadFeatureFlags()
	assert.Empty(t, ff.ResolveDependencies())
	assert.True(t, ff.IsEnabled(FeatureLeaderboardCache))

	require.NoError(t, ff.DisableFeature(FeatureDomainEvents))
	assert.Equal(t, []string{FeatureLeaderboardCache, FeatureLeaderboardWarmup}, ff.ResolveDependencies())
	assert.False(t, ff.IsEnabled(FeatureLeaderboardCache))
	assert.False(t, ff.IsEnabled(FeatureLeaderboardWarmup))
	assert.True(t, ff.IsEnabled(FeatureCatalogCache))

	all := ff.GetAllFeatures()
	assert.False(t, all[FeatureLeaderboardCache].Enabled)
	assert.Empty(t, ff.ResolveDependencies())
}
