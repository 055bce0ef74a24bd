package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"channel-chat-service/internal/session"
	"channel-chat-service/internal/ws"
)

// KeyHandler announces released public keys. The key itself is opaque to
// the service; clients verify signatures among themselves.
type KeyHandler struct {
	resolver *session.Resolver
	hub      *ws.Hub
}

// NewKeyHandler builds a KeyHandler.
func NewKeyHandler(resolver *session.Resolver, hub *ws.Hub) *KeyHandler {
	return &KeyHandler{resolver: resolver, hub: hub}
}

// ReleasePublicKey handles POST /api/release-public-key. The announcement
// is channel-agnostic, so it goes to every live connection.
func (h *KeyHandler) ReleasePublicKey(c *gin.Context) {
	var req struct {
		Key       string `json:"key" binding:"required"`
		SessionID string `json:"sessionID" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok, err := h.resolver.ResolveUser(c.Request.Context(), req.SessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve session"})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session ID"})
		return
	}

	h.hub.BroadcastPublicKey(req.Key, user.Username)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
