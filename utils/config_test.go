// File: utils/config_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigTiming(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 30, cfg.TickRate)
	assert.InDelta(t, 33.333, cfg.FixedStepMS(), 0.001)
	assert.InDelta(t, 1.0/30.0, cfg.FixedStepSeconds(), 1e-9)
	assert.Equal(t, 100.0, cfg.MaxFrameMS)
	assert.Equal(t, 4, cfg.MaxKillAmount)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "4040")
	t.Setenv("MAX_PLAYERS_PER_MATCH", "6")
	t.Setenv("VALID_REGIONS", "na, eu")
	t.Setenv("CLIENT_URL", "https://example.com")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 4040, cfg.Port)
	assert.Equal(t, 6, cfg.MaxPlayersPerMatch)
	assert.Equal(t, []string{"NA", "EU"}, cfg.ValidRegions)
	assert.Equal(t, "https://example.com", cfg.ClientURL)
}

func TestLoadFromEnvRejectsMalformedPort(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestLoadFromEnvRejectsNonPositivePlayerCap(t *testing.T) {
	t.Setenv("MAX_PLAYERS_PER_MATCH", "0")
	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestIsValidRegion(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.IsValidRegion(RegionNA))
	assert.True(t, cfg.IsValidRegion(RegionASIA))
	assert.False(t, cfg.IsValidRegion(RegionGLOBAL))
	assert.False(t, cfg.IsValidRegion("na"))
}
