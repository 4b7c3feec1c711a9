package triggers_test

import (
	"testing"
	"time"

	"github.com/dan-online/autopulse-sub000/internal/config"
	"github.com/dan-online/autopulse-sub000/internal/triggers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSonarr_UsesDefaultTimerWaitWhenUnset(t *testing.T) {
	s, err := triggers.NewSonarr("sonarr", config.Trigger{Type: "sonarr"}, 120)
	require.NoError(t, err)
	assert.Equal(t, 120*time.Second, s.Timer())
}

func TestNewSonarr_PerTriggerTimerOverridesDefault(t *testing.T) {
	s, err := triggers.NewSonarr("sonarr", config.Trigger{
		Type:  "sonarr",
		Timer: &config.Timer{WaitSeconds: 5},
	}, 120)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, s.Timer())
}

func TestNewSonarr_CompilesRewriteRules(t *testing.T) {
	s, err := triggers.NewSonarr("sonarr", config.Trigger{
		Type: "sonarr",
		Rewrite: []config.RewriteRule{
			{From: "^/tv/", To: "/mnt/tv/"},
		},
	}, 60)
	require.NoError(t, err)
	require.Len(t, s.Rewrite(), 1)
}

func TestNewSonarr_InvalidRewritePatternErrors(t *testing.T) {
	_, err := triggers.NewSonarr("sonarr", config.Trigger{
		Type: "sonarr",
		Rewrite: []config.RewriteRule{
			{From: "(unterminated", To: "x"},
		},
	}, 60)
	assert.Error(t, err)
}

func TestNewSonarr_CopiesExcludes(t *testing.T) {
	s, err := triggers.NewSonarr("sonarr", config.Trigger{
		Type:     "sonarr",
		Excludes: []string{"*.nfo", "*.jpg"},
	}, 60)
	require.NoError(t, err)
	assert.Equal(t, []string{"*.nfo", "*.jpg"}, s.Excludes())
}

func TestNewSonarr_Name(t *testing.T) {
	s, err := triggers.NewSonarr("sonarr-4k", config.Trigger{Type: "sonarr"}, 60)
	require.NoError(t, err)
	assert.Equal(t, "sonarr-4k", s.Name())
}
