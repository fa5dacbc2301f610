package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, PolicyFailOpen, cfg.Visibility.ResolutionPolicy)
	assert.Equal(t, 30*time.Second, cfg.Auth.SessionCacheTTL)
	assert.Empty(t, cfg.Redis.URL)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("COPPERDESK_PORT", "9999")
	t.Setenv("COPPERDESK_RESOLUTION_POLICY", "fail_closed")
	t.Setenv("COPPERDESK_READ_TIMEOUT", "5s")
	t.Setenv("COPPERDESK_METRICS_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, PolicyFailClosed, cfg.Visibility.ResolutionPolicy)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.False(t, cfg.Observability.MetricsEnabled)
}

func TestLoadConfig_InvalidPolicy(t *testing.T) {
	t.Setenv("COPPERDESK_RESOLUTION_POLICY", "fail_sideways")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolution policy")
}

func TestValidate_InvalidPort(t *testing.T) {
	t.Setenv("COPPERDESK_PORT", "not-a-port")

	_, err := LoadConfig()
	require.Error(t, err)
}
