package triggers_test

import (
	"testing"

	"github.com/dan-online/autopulse-sub000/internal/config"
	"github.com/dan-online/autopulse-sub000/internal/triggers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotify_ParseQuery_PreferPathOverDir(t *testing.T) {
	n, err := triggers.NewNotify("notify", config.Trigger{Type: "notify"}, 60)
	require.NoError(t, err)

	intents, err := n.ParseQuery("/tv/Show/ep.mkv", "", "/tv/Show")
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, "/tv/Show/ep.mkv", intents[0].Path)
}

func TestNotify_ParseQuery_FallsBackToDir(t *testing.T) {
	n, err := triggers.NewNotify("notify", config.Trigger{Type: "notify"}, 60)
	require.NoError(t, err)

	intents, err := n.ParseQuery("", "", "/tv/Show")
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, "/tv/Show", intents[0].Path)
}

func TestNotify_ParseQuery_NeitherReturnsNothing(t *testing.T) {
	n, err := triggers.NewNotify("notify", config.Trigger{Type: "notify"}, 60)
	require.NoError(t, err)

	intents, err := n.ParseQuery("", "", "")
	require.NoError(t, err)
	assert.Empty(t, intents)
}
