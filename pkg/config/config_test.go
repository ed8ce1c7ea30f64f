package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.False(t, cfg.Auth.Enabled)
	assert.Equal(t, 720*time.Hour, cfg.Auth.Expiration)
	assert.Equal(t, 500*time.Millisecond, cfg.Lessons.DebounceInterval)
	assert.Equal(t, 15*time.Minute, cfg.Lessons.PendingCancelTTL)
	assert.Equal(t, 6*7*24*time.Hour, cfg.Lessons.Lookahead())
	assert.Equal(t, time.UTC, cfg.Lessons.Location())
	assert.Equal(t, 1, cfg.Jobs.Workers)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DB_SQLITE_PATH", "/tmp/lessons.db")
	t.Setenv("LESSONS_LOOKAHEAD_WEEKS", "2")
	t.Setenv("LESSONS_PENDING_CANCEL_TTL", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("ENABLE_AGENDA_CACHE", "true")
	t.Setenv("AGENDA_CACHE_TTL", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/lessons.db", cfg.Database.SQLitePath)
	assert.Equal(t, 14*24*time.Hour, cfg.Lessons.Lookahead())
	assert.Equal(t, 15*time.Minute, cfg.Lessons.PendingCancelTTL, "invalid durations fall back to the default")
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Cache.AgendaTTL)
}

func TestLessonsConfigLocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, LessonsConfig{Timezone: "Not/AZone"}.Location())
	assert.Equal(t, time.UTC, LessonsConfig{}.Location())
}
