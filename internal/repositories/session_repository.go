package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"channel-chat-service/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository abstracts session token persistence.
type SessionRepository interface {
	CreateSession(ctx context.Context, userID string) (models.Session, error)
	GetSession(ctx context.Context, sessionID string) (models.Session, error)
}

// SessionRepo is a sqlx implementation of SessionRepository.
type SessionRepo struct {
	db *sqlx.DB
}

// NewSessionRepo constructs a SessionRepo.
func NewSessionRepo(db *sqlx.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// CreateSession issues a fresh opaque token for a user.
func (r *SessionRepo) CreateSession(ctx context.Context, userID string) (models.Session, error) {
	var session models.Session
	err := r.db.GetContext(ctx, &session, `INSERT INTO sessions (id, user_id) VALUES ($1, $2)
        RETURNING id, user_id, created_at`, uuid.NewString(), userID)
	return session, err
}

// GetSession retrieves a session by token.
func (r *SessionRepo) GetSession(ctx context.Context, sessionID string) (models.Session, error) {
	var session models.Session
	err := r.db.GetContext(ctx, &session, `SELECT id, user_id, created_at FROM sessions WHERE id = $1`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, ErrSessionNotFound
	}
	return session, err
}
