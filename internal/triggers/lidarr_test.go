package triggers_test

import (
	"testing"

	"github.com/dan-online/autopulse-sub000/internal/config"
	"github.com/dan-online/autopulse-sub000/internal/triggers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLidarr_Download_MultipleTracks(t *testing.T) {
	l, err := triggers.NewLidarr("lidarr", config.Trigger{Type: "lidarr"}, 60)
	require.NoError(t, err)

	body := []byte(`{
		"eventType": "Download",
		"artist": {"path": "/music/Artist"},
		"trackFiles": [
			{"relativePath": "Album/01.flac"},
			{"relativePath": "Album/02.flac"}
		]
	}`)

	intents, err := l.ParseBody(body)
	require.NoError(t, err)
	require.Len(t, intents, 2)
	assert.Equal(t, "/music/Artist/Album/01.flac", intents[0].Path)
	assert.Equal(t, "/music/Artist/Album/02.flac", intents[1].Path)
}

func TestLidarr_TrackFileDelete(t *testing.T) {
	l, err := triggers.NewLidarr("lidarr", config.Trigger{Type: "lidarr"}, 60)
	require.NoError(t, err)

	body := []byte(`{
		"eventType": "TrackFileDelete",
		"artist": {"path": "/music/Artist"},
		"deletedFiles": [{"relativePath": "Album/01.flac"}]
	}`)

	intents, err := l.ParseBody(body)
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.False(t, intents[0].ExpectPresent)
}
