package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://webapi.legistar.com/v1/metro", cfg.APIBaseURL)
	assert.Equal(t, "America/Los_Angeles", cfg.Timezone)
	assert.True(t, cfg.FindMissingPartner)
	assert.Zero(t, cfg.WindowDays)
	assert.Empty(t, cfg.EventIDs)
}

func TestFromEnvParsesEventIDs(t *testing.T) {
	t.Setenv("HARVEST_EVENT_IDS", "641, 642,643")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []int{641, 642, 643}, cfg.EventIDs)
}

func TestFromEnvRejectsWindowWithEventIDs(t *testing.T) {
	t.Setenv("HARVEST_WINDOW_DAYS", "7")
	t.Setenv("HARVEST_EVENT_IDS", "641")

	_, err := FromEnv()
	assert.Error(t, err)
}

func TestFromEnvParsesWindow(t *testing.T) {
	t.Setenv("HARVEST_WINDOW_DAYS", "0.5")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.WindowDays)
}
