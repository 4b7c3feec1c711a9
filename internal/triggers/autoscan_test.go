package triggers_test

import (
	"testing"

	"github.com/dan-online/autopulse-sub000/internal/config"
	"github.com/dan-online/autopulse-sub000/internal/triggers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoscan_ParseBody(t *testing.T) {
	a, err := triggers.NewAutoscan("autoscan", config.Trigger{Type: "autoscan"}, 60)
	require.NoError(t, err)

	intents, err := a.ParseBody([]byte(`{"path": "/data/media/file.mkv"}`))
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, "/data/media/file.mkv", intents[0].Path)
	assert.True(t, intents[0].ExpectPresent)
}

func TestAutoscan_ParseBody_EmptyPath(t *testing.T) {
	a, err := triggers.NewAutoscan("autoscan", config.Trigger{Type: "autoscan"}, 60)
	require.NoError(t, err)

	intents, err := a.ParseBody([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, intents)
}

func TestAutoscan_ParseBody_InvalidJSONErrors(t *testing.T) {
	a, err := triggers.NewAutoscan("autoscan", config.Trigger{Type: "autoscan"}, 60)
	require.NoError(t, err)

	_, err = a.ParseBody([]byte(`not json`))
	assert.Error(t, err)
}
