package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"channel-chat-service/internal/middleware"
	"channel-chat-service/internal/telemetry"
)

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(middleware.RequestIDKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(middleware.RequestIDKey, requestID)
	return requestID
}

func emitAudit(c *gin.Context, audit *telemetry.AuditEmitter, level, text string, userID string) {
	if audit == nil {
		return
	}
	var uid *string
	if userID != "" {
		uid = &userID
	}
	audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), uid)
}
