package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dan-online/autopulse-sub000/internal/db"
)

// handleStatus answers GET /status/:id with the stored event, or null when
// it doesn't exist (§6.1).
func (s *Server) handleStatus(c *gin.Context) {
	ev, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusOK, nil)
		return
	}
	if err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

// handleList answers GET /list with a paginated, filterable event listing
// (§6.1, limits enforced by db.Repository.List per §4.1).
func (s *Server) handleList(c *gin.Context) {
	opts := db.ListOptions{
		Limit:  atoiOr(c.Query("limit"), 0),
		Page:   atoiOr(c.Query("page"), 1),
		Sort:   c.Query("sort"),
		Status: c.Query("status"),
		Search: c.Query("search"),
	}

	events, err := s.store.List(c.Request.Context(), opts)
	if err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func atoiOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
