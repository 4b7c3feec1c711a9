package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleConfigTemplate_DefaultJSON(t *testing.T) {
	s := newTestServer(t, testConfig(false), &fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/config-template", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Contains(t, rec.Body.String(), `"port":"8980"`)
}

func TestHandleConfigTemplate_TOMLOutput(t *testing.T) {
	s := newTestServer(t, testConfig(false), &fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/config-template?output=toml", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/toml")
	assert.Contains(t, rec.Body.String(), "port = '8980'")
}

func TestHandleConfigTemplate_TriggersAndTargetsSectionsAreOptIn(t *testing.T) {
	s := newTestServer(t, testConfig(false), &fakeStore{})

	bare := httptest.NewRequest(http.MethodGet, "/api/config-template", nil)
	bareRec := httptest.NewRecorder()
	s.router.ServeHTTP(bareRec, bare)
	assert.NotContains(t, bareRec.Body.String(), `"sonarr"`)

	seeded := httptest.NewRequest(http.MethodGet, "/api/config-template?triggers&targets", nil)
	seededRec := httptest.NewRecorder()
	s.router.ServeHTTP(seededRec, seeded)
	assert.Contains(t, seededRec.Body.String(), `"sonarr"`)
	assert.Contains(t, seededRec.Body.String(), `"plex"`)
}
