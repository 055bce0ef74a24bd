package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"channel-chat-service/internal/repositories"
	"channel-chat-service/internal/session"
	"channel-chat-service/internal/telemetry"
	"channel-chat-service/internal/ws"
)

// MessageHandler validates and applies message mutations, then hands the
// result to the hub. It owns no state of its own.
type MessageHandler struct {
	messageRepo repositories.MessageRepository
	channelRepo repositories.ChannelRepository
	resolver    *session.Resolver
	hub         *ws.Hub
	audit       *telemetry.AuditEmitter
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(messageRepo repositories.MessageRepository, channelRepo repositories.ChannelRepository, resolver *session.Resolver, hub *ws.Hub, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{
		messageRepo: messageRepo,
		channelRepo: channelRepo,
		resolver:    resolver,
		hub:         hub,
		audit:       audit,
	}
}

// SendMessage handles POST /api/send-message. The new message is pushed
// only to connections viewing its channel, and only after the store
// confirmed the insert.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req struct {
		Text      string `json:"text" binding:"required"`
		ChannelID string `json:"channelID" binding:"required"`
		Signature string `json:"signature"`
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

	if _, err := h.channelRepo.GetChannel(c.Request.Context(), req.ChannelID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrChannelNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "channel not found"})
		return
	}

	msg, err := h.messageRepo.CreateMessage(c.Request.Context(), req.ChannelID, user.ID, user.Username, req.Text, req.Signature)
	if err != nil {
		emitAudit(c, h.audit, "ERROR", "failed to store message", user.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	h.hub.BroadcastNewMessage(msg)
	emitAudit(c, h.audit, "INFO", "message sent", user.ID)
	c.JSON(http.StatusCreated, gin.H{"success": true, "messageID": msg.ID})
}

// EditMessage handles POST /api/edit-message. Only the author may append a
// revision; the edit event is scoped by the message's own channel.
func (h *MessageHandler) EditMessage(c *gin.Context) {
	var req struct {
		MessageID string `json:"messageID" binding:"required"`
		Text      string `json:"text" binding:"required"`
		Signature string `json:"signature"`
		SessionID string `json:"sessionID" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok, err := h.resolver.ResolveUserID(c.Request.Context(), req.SessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve session"})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session ID"})
		return
	}

	msg, err := h.messageRepo.GetMessage(c.Request.Context(), req.MessageID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return
	}

	if msg.AuthorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not the author of this message"})
		return
	}

	updated, err := h.messageRepo.AppendRevision(c.Request.Context(), req.MessageID, req.Text, req.Signature)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		emitAudit(c, h.audit, "ERROR", "failed to edit message", userID)
		c.JSON(status, gin.H{"error": "failed to edit message"})
		return
	}

	h.hub.BroadcastEditedMessage(updated)
	emitAudit(c, h.audit, "INFO", "message edited", userID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AddReaction handles POST /api/add-message-reaction. A duplicate reaction
// is rejected rather than silently absorbed so a client retry cannot
// inflate counts.
func (h *MessageHandler) AddReaction(c *gin.Context) {
	var req struct {
		MessageID    string `json:"messageID" binding:"required"`
		ReactionCode string `json:"reactionCode" binding:"required"`
		SessionID    string `json:"sessionID" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Only identity is needed here, so skip the user-record fetch.
	userID, ok, err := h.resolver.ResolveUserID(c.Request.Context(), req.SessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve session"})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session ID"})
		return
	}

	msg, err := h.messageRepo.GetMessage(c.Request.Context(), req.MessageID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return
	}

	count, err := h.messageRepo.AddReaction(c.Request.Context(), req.MessageID, req.ReactionCode, userID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrInvalidReactionCode):
			c.JSON(http.StatusBadRequest, gin.H{"error": "reactionCode should be a 1-character string"})
		case errors.Is(err, repositories.ErrMessageNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		case errors.Is(err, repositories.ErrDuplicateReaction):
			c.JSON(http.StatusConflict, gin.H{"error": "you already reacted with this"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add reaction"})
		}
		return
	}

	h.hub.BroadcastReaction(msg.ChannelID, msg.ID, req.ReactionCode, count)
	c.JSON(http.StatusOK, gin.H{"success": true, "newCount": count})
}

// GetMessage handles GET /api/message/:messageID.
func (h *MessageHandler) GetMessage(c *gin.Context) {
	msg, err := h.messageRepo.GetMessage(c.Request.Context(), c.Param("messageID"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}
