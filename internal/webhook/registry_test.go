package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dan-online/autopulse-sub000/internal/config"
)

func TestBuildSinks_DispatchesDiscordAndGeneric(t *testing.T) {
	sinks, err := BuildSinks(map[string]config.Webhook{
		"alerts": {Type: "discord", URL: "https://discord.com/api/webhooks/x/y"},
		"chat":   {Type: "slack", URL: "slack://token@channel"},
	})

	require.NoError(t, err)
	require.Len(t, sinks, 2)

	var sawDiscord, sawGeneric bool
	for _, s := range sinks {
		switch s.(type) {
		case *DiscordSink:
			sawDiscord = true
		case *GenericSink:
			sawGeneric = true
		}
	}
	assert.True(t, sawDiscord)
	assert.True(t, sawGeneric)
}

func TestBuildSinks_MissingURLIsError(t *testing.T) {
	_, err := BuildSinks(map[string]config.Webhook{
		"broken": {Type: "discord", URL: ""},
	})
	assert.Error(t, err)
}

func TestBuildSinks_EmptyConfigReturnsEmptySlice(t *testing.T) {
	sinks, err := BuildSinks(map[string]config.Webhook{})
	require.NoError(t, err)
	assert.Empty(t, sinks)
}
