package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"channel-chat-service/internal/models"
	"channel-chat-service/internal/repositories"
	"channel-chat-service/internal/session"
	"channel-chat-service/internal/telemetry"
	"channel-chat-service/internal/ws"
)

// ChannelHandler manages channel endpoints.
type ChannelHandler struct {
	channelRepo repositories.ChannelRepository
	messageRepo repositories.MessageRepository
	resolver    *session.Resolver
	hub         *ws.Hub
	audit       *telemetry.AuditEmitter
	pageSize    int
}

// NewChannelHandler builds a ChannelHandler.
func NewChannelHandler(channelRepo repositories.ChannelRepository, messageRepo repositories.MessageRepository, resolver *session.Resolver, hub *ws.Hub, audit *telemetry.AuditEmitter, pageSize int) *ChannelHandler {
	return &ChannelHandler{
		channelRepo: channelRepo,
		messageRepo: messageRepo,
		resolver:    resolver,
		hub:         hub,
		audit:       audit,
		pageSize:    pageSize,
	}
}

// CreateChannel handles POST /api/create-channel. Admin only. Announced
// globally: no connection can already be viewing a channel that did not
// exist.
func (h *ChannelHandler) CreateChannel(c *gin.Context) {
	var req struct {
		Name      string `json:"name" binding:"required"`
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
	if !user.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not an admin"})
		return
	}

	channel, err := h.channelRepo.CreateChannel(c.Request.Context(), req.Name)
	if err != nil {
		if errors.Is(err, repositories.ErrChannelNameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "channel name already taken"})
			return
		}
		emitAudit(c, h.audit, "ERROR", "failed to create channel", user.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create channel"})
		return
	}

	h.hub.BroadcastNewChannel(channel)
	emitAudit(c, h.audit, "INFO", "channel created", user.ID)
	c.JSON(http.StatusCreated, gin.H{"success": true, "channel": channel})
}

// ListChannels handles GET /api/channel-list with an id+name projection.
func (h *ChannelHandler) ListChannels(c *gin.Context) {
	channels, err := h.channelRepo.ListChannels(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load channels"})
		return
	}
	if channels == nil {
		channels = []models.Channel{}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "channels": channels})
}

// GetChannelPage handles GET /api/channel/:channelID/latest-messages. With
// no before cursor it returns the newest page; with one, the page strictly
// older than the referenced message.
func (h *ChannelHandler) GetChannelPage(c *gin.Context) {
	channelID := c.Param("channelID")
	if _, err := h.channelRepo.GetChannel(c.Request.Context(), channelID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrChannelNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "channel not found"})
		return
	}

	msgs, err := h.messageRepo.GetChannelPage(c.Request.Context(), channelID, c.Query("before"), h.pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "messages": msgs})
}
