package triggers_test

import (
	"testing"

	"github.com/dan-online/autopulse-sub000/internal/config"
	"github.com/dan-online/autopulse-sub000/internal/triggers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManual_ParseQuery_WithPath(t *testing.T) {
	m, err := triggers.NewManual("manual", config.Trigger{Type: "manual"}, 60)
	require.NoError(t, err)

	intents, err := m.ParseQuery("/movies/Film.mkv", "deadbeef", "")
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, "/movies/Film.mkv", intents[0].Path)
	assert.True(t, intents[0].ExpectPresent)
}

func TestManual_ParseQuery_NoPathReturnsNothing(t *testing.T) {
	m, err := triggers.NewManual("manual", config.Trigger{Type: "manual"}, 60)
	require.NoError(t, err)

	intents, err := m.ParseQuery("", "", "")
	require.NoError(t, err)
	assert.Empty(t, intents)
}
