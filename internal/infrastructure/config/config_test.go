package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// No configs/config.yaml exists here: defaults plus environment variables
// must be a complete configuration.
func TestLoad_MissingConfigFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load("test")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "test", cfg.Server.Mode)
	assert.Equal(t, 2, cfg.Quota.GuestDailyLimit)
	assert.Equal(t, 3, cfg.Quota.FreeDailyLimit)
	assert.Equal(t, "lem_session", cfg.Auth.Session.CookieName)
	assert.Equal(t, "America/Mexico_City", cfg.Quota.Timezone)

	assert.Same(t, cfg, Get())
}
