package triggers_test

import (
	"testing"

	"github.com/dan-online/autopulse-sub000/internal/config"
	"github.com/dan-online/autopulse-sub000/internal/triggers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSonarr_Download_S1(t *testing.T) {
	s, err := triggers.NewSonarr("sonarr", config.Trigger{Type: "sonarr"}, 60)
	require.NoError(t, err)

	body := []byte(`{
		"eventType": "Download",
		"series": {"path": "/tv/Show"},
		"episodeFile": {"relativePath": "Season 01/ep01.mkv"}
	}`)

	intents, err := s.ParseBody(body)
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, "/tv/Show/Season 01/ep01.mkv", intents[0].Path)
	assert.True(t, intents[0].ExpectPresent)
}

func TestSonarr_Rename_S2(t *testing.T) {
	s, err := triggers.NewSonarr("sonarr", config.Trigger{Type: "sonarr"}, 60)
	require.NoError(t, err)

	body := []byte(`{
		"eventType": "Rename",
		"series": {"path": "/tv/Show"},
		"renamedEpisodeFiles": [
			{"previousPath": "/tv/Show/old.mkv", "relativePath": "Season 01/new.mkv"}
		]
	}`)

	intents, err := s.ParseBody(body)
	require.NoError(t, err)
	require.Len(t, intents, 2)
	assert.Equal(t, "/tv/Show/old.mkv", intents[0].Path)
	assert.False(t, intents[0].ExpectPresent)
	assert.Equal(t, "/tv/Show/Season 01/new.mkv", intents[1].Path)
	assert.True(t, intents[1].ExpectPresent)
}

func TestSonarr_EpisodeFileDelete(t *testing.T) {
	s, err := triggers.NewSonarr("sonarr", config.Trigger{Type: "sonarr"}, 60)
	require.NoError(t, err)

	body := []byte(`{
		"eventType": "EpisodeFileDelete",
		"series": {"path": "/tv/Show"},
		"episodeFile": {"relativePath": "Season 01/ep01.mkv"}
	}`)

	intents, err := s.ParseBody(body)
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.False(t, intents[0].ExpectPresent)
}

func TestSonarr_Test_ReturnsNoIntents(t *testing.T) {
	s, err := triggers.NewSonarr("sonarr", config.Trigger{Type: "sonarr"}, 60)
	require.NoError(t, err)

	intents, err := s.ParseBody([]byte(`{"eventType": "Test"}`))
	require.NoError(t, err)
	assert.Empty(t, intents)
}

func TestSonarr_InvalidJSON_Errors(t *testing.T) {
	s, err := triggers.NewSonarr("sonarr", config.Trigger{Type: "sonarr"}, 60)
	require.NoError(t, err)

	_, err = s.ParseBody([]byte(`not json`))
	assert.Error(t, err)
}
