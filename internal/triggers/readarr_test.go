package triggers_test

import (
	"testing"

	"github.com/dan-online/autopulse-sub000/internal/config"
	"github.com/dan-online/autopulse-sub000/internal/triggers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadarr_BookFileImport(t *testing.T) {
	r, err := triggers.NewReadarr("readarr", config.Trigger{Type: "readarr"}, 60)
	require.NoError(t, err)

	body := []byte(`{
		"eventType": "BookFileImport",
		"author": {"path": "/books/Author"},
		"bookFiles": [{"relativePath": "Book One.epub"}]
	}`)

	intents, err := r.ParseBody(body)
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, "/books/Author/Book One.epub", intents[0].Path)
	assert.True(t, intents[0].ExpectPresent)
}

func TestReadarr_Rename(t *testing.T) {
	r, err := triggers.NewReadarr("readarr", config.Trigger{Type: "readarr"}, 60)
	require.NoError(t, err)

	body := []byte(`{
		"eventType": "Rename",
		"author": {"path": "/books/Author"},
		"renamedBookFiles": [
			{"previousPath": "/books/Author/old.epub", "relativePath": "new.epub"}
		]
	}`)

	intents, err := r.ParseBody(body)
	require.NoError(t, err)
	require.Len(t, intents, 2)
}
