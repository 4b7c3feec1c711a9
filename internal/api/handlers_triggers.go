package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dan-online/autopulse-sub000/internal/ingest"
	"github.com/dan-online/autopulse-sub000/internal/triggers"
)

// handleTriggerGet answers GET /triggers/:name?path=&hash=&dir=, the
// query-driven variant reserved for manual/notify-style producers
// (§6.1). Unknown names 404; names that don't accept a query 400.
func (s *Server) handleTriggerGet(c *gin.Context) {
	name := c.Param("name")
	if _, ok := s.triggers.Get(name); !ok {
		respondError(c, http.StatusNotFound, errMsgUnknownName, nil)
		return
	}

	parser, ok := s.triggers.QueryParser(name)
	if !ok {
		respondBadRequest(c, errMsgInvalid, nil)
		return
	}

	path := c.Query("path")
	hash := c.Query("hash")
	dir := c.Query("dir")

	intents, err := parser.ParseQuery(path, hash, dir)
	if err != nil {
		respondBadRequest(c, errMsgInvalid, err)
		return
	}

	src := ingest.Source{Name: name, Rewrite: parser.Rewrite(), Timer: parser.Timer()}
	events := s.intake.ApplyHashed(c.Request.Context(), src, toIngestIntents(intents), hash)
	c.JSON(http.StatusOK, events)
}

// handleTriggerPost answers POST /triggers/:name, the body-driven variant
// every *arr-style webhook producer uses (§6.1). manual/notify variants
// 400 here since they're QueryParser-only; unknown names 404.
func (s *Server) handleTriggerPost(c *gin.Context) {
	name := c.Param("name")
	if _, ok := s.triggers.Get(name); !ok {
		respondError(c, http.StatusNotFound, errMsgUnknownName, nil)
		return
	}

	parser, ok := s.triggers.BodyParser(name)
	if !ok {
		respondBadRequest(c, errMsgInvalid, nil)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondBadRequest(c, errMsgInvalid, err)
		return
	}

	intents, err := parser.ParseBody(body)
	if err != nil {
		respondBadRequest(c, errMsgInvalid, err)
		return
	}

	src := ingest.Source{Name: name, Rewrite: parser.Rewrite(), Timer: parser.Timer()}
	events := s.intake.Apply(c.Request.Context(), src, toIngestIntents(intents))
	c.JSON(http.StatusOK, events)
}

func toIngestIntents(in []triggers.PathIntent) []ingest.PathIntent {
	out := make([]ingest.PathIntent, len(in))
	for i, p := range in {
		out[i] = ingest.PathIntent{Path: p.Path, ExpectPresent: p.ExpectPresent}
	}
	return out
}
