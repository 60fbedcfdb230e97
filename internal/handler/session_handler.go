package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schedule-browser/internal/models"
	"github.com/noah-isme/schedule-browser/pkg/response"
)

type sessionProvider interface {
	Session(ctx context.Context) models.SessionInfo
}

// SessionHandler reports on the credential used for upstream calls.
type SessionHandler struct {
	sessions sessionProvider
}

// NewSessionHandler constructs handler.
func NewSessionHandler(sessions sessionProvider) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Get godoc
// @Summary Credential summary
// @Description Claims read from the bearer token. The token itself is never returned.
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /session [get]
func (h *SessionHandler) Get(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.sessions.Session(c.Request.Context()), nil)
}
