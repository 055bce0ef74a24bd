package handlers

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"channel-chat-service/internal/auth"
	"channel-chat-service/internal/repositories"
	"channel-chat-service/internal/session"
	"channel-chat-service/internal/telemetry"
)

var validUsername = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// UserHandler manages registration, login and identity lookups.
type UserHandler struct {
	userRepo    repositories.UserRepository
	sessionRepo repositories.SessionRepository
	resolver    *session.Resolver
	audit       *telemetry.AuditEmitter
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(userRepo repositories.UserRepository, sessionRepo repositories.SessionRepository, resolver *session.Resolver, audit *telemetry.AuditEmitter) *UserHandler {
	return &UserHandler{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		resolver:    resolver,
		audit:       audit,
	}
}

// Register handles POST /api/register.
func (h *UserHandler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !validUsername.MatchString(req.Username) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username invalid"})
		return
	}
	if len(req.Password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 6 characters long"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register"})
		return
	}

	user, err := h.userRepo.CreateUser(c.Request.Context(), req.Username, hash, "")
	if err != nil {
		if errors.Is(err, repositories.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register"})
		return
	}

	emitAudit(c, h.audit, "INFO", "user registered", user.ID)
	c.JSON(http.StatusCreated, gin.H{"success": true, "username": user.Username, "id": user.ID})
}

// Login handles POST /api/login, issuing a fresh session token.
func (h *UserHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userRepo.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "user not found"})
		return
	}

	if !auth.ComparePassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect password"})
		return
	}

	sess, err := h.sessionRepo.CreateSession(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	emitAudit(c, h.audit, "INFO", "user logged in", user.ID)
	c.JSON(http.StatusOK, gin.H{"success": true, "sessionID": sess.ID})
}

// GetUser handles GET /api/user/:userID with credential fields stripped.
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userRepo.GetUser(c.Request.Context(), c.Param("userID"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": user.Sanitized()})
}

// GetSession handles GET /api/session/:sessionID, returning the sanitized
// user the session resolves to.
func (h *UserHandler) GetSession(c *gin.Context) {
	user, ok, err := h.resolver.ResolveUser(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve session"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": user.Sanitized()})
}
