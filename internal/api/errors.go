package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dan-online/autopulse-sub000/internal/logger"
)

// Standard error messages (don't leak internal details).
const (
	errMsgInternal    = "internal server error"
	errMsgInvalid     = "invalid request"
	errMsgUnknownName = "unknown trigger"
	errMsgUnauthorized = "unauthorized"
)

func respondError(c *gin.Context, status int, publicMsg string, err error) {
	if err != nil {
		logger.Debugf("api: %s: %v", publicMsg, err)
	}
	c.JSON(status, gin.H{"error": publicMsg})
}

func respondInternal(c *gin.Context, err error) {
	respondError(c, http.StatusInternalServerError, errMsgInternal, err)
}

func respondBadRequest(c *gin.Context, publicMsg string, err error) {
	respondError(c, http.StatusBadRequest, publicMsg, err)
}
