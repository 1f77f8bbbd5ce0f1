package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "PORT", "DB_NAME", "MONGODB_URI", "JWT_SECRET", "OUTBOX_REPLAY_INTERVAL", "FINALIZE_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "ezeatin", cfg.DBName)
	assert.Equal(t, time.Minute, cfg.OutboxReplayInterval)
	assert.Equal(t, 10*time.Second, cfg.FinalizeTimeout)
	assert.True(t, cfg.IsDevelopment())

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGODB_URI")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("FINALIZE_TIMEOUT", "3s")
	t.Setenv("OUTBOX_REPLAY_INTERVAL", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 3*time.Second, cfg.FinalizeTimeout)
	assert.Equal(t, 30*time.Second, cfg.OutboxReplayInterval)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("FINALIZE_TIMEOUT", "soon")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FINALIZE_TIMEOUT")
}
