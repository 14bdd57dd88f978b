package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghogue02/living-economy-arena-sub000/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Port)
	assert.Equal(t, 24, cfg.EnumerationCeiling)
	assert.Equal(t, 8, cfg.ShapleyExactMax)
	assert.Equal(t, 2000, cfg.ShapleySamples)
	assert.Equal(t, 80.0, cfg.StrongBondThreshold)
	assert.Equal(t, 0.6, cfg.DefectionThreshold)
	assert.Equal(t, 3, cfg.MaxCoalitionsPerAgent)
	assert.Equal(t, int64(1<<20), cfg.MaxRequestBodyBytes)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ARENA_PORT", "9999")
	t.Setenv("ARENA_ENUMERATION_CEILING", "12")
	t.Setenv("ARENA_MAX_COALITIONS_PER_AGENT", "1")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, 12, cfg.EnumerationCeiling)
	assert.Equal(t, 1, cfg.MaxCoalitionsPerAgent)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("ARENA_PORT", "not-a-number")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 8090, cfg.Port, "malformed env values fall back to defaults")
}

func TestValidateRejectsBadValues(t *testing.T) {
	base, err := config.Load()
	require.NoError(t, err)

	ceiling := base
	ceiling.EnumerationCeiling = 31
	assert.Error(t, ceiling.Validate(), "ceiling above mask-safe bound")

	defection := base
	defection.DefectionThreshold = 1.5
	assert.Error(t, defection.Validate())

	perAgent := base
	perAgent.MaxCoalitionsPerAgent = 0
	assert.Error(t, perAgent.Validate())

	bond := base
	bond.StrongBondThreshold = 150
	assert.Error(t, bond.Validate())
}
