package session

import (
	"context"
	"errors"
	"time"

	"channel-chat-service/internal/models"
	"channel-chat-service/internal/repositories"
)

// Resolver maps opaque session tokens to user identities. It is a lookup
// primitive, not an authorization decision: a miss means "unauthenticated"
// and is reported with ok=false, never as an error.
type Resolver struct {
	sessions repositories.SessionRepository
	users    repositories.UserRepository
	ttl      time.Duration
}

// NewResolver builds a Resolver. A ttl of zero means sessions never expire.
func NewResolver(sessions repositories.SessionRepository, users repositories.UserRepository, ttl time.Duration) *Resolver {
	return &Resolver{sessions: sessions, users: users, ttl: ttl}
}

// ResolveUser performs the two-step session -> user lookup and returns the
// full user record.
func (r *Resolver) ResolveUser(ctx context.Context, sessionID string) (models.User, bool, error) {
	sess, ok, err := r.lookup(ctx, sessionID)
	if err != nil || !ok {
		return models.User{}, false, err
	}

	user, err := r.users.GetUser(ctx, sess.UserID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, err
	}
	return user, true, nil
}

// ResolveUserID resolves only the user id, skipping the user-record fetch.
// Use it when identity alone is enough, e.g. reaction authorship.
func (r *Resolver) ResolveUserID(ctx context.Context, sessionID string) (string, bool, error) {
	sess, ok, err := r.lookup(ctx, sessionID)
	if err != nil || !ok {
		return "", false, err
	}
	return sess.UserID, true, nil
}

func (r *Resolver) lookup(ctx context.Context, sessionID string) (models.Session, bool, error) {
	if sessionID == "" {
		return models.Session{}, false, nil
	}

	sess, err := r.sessions.GetSession(ctx, sessionID)
	if errors.Is(err, repositories.ErrSessionNotFound) {
		return models.Session{}, false, nil
	}
	if err != nil {
		return models.Session{}, false, err
	}

	if r.ttl > 0 && time.Since(sess.CreatedAt) > r.ttl {
		return models.Session{}, false, nil
	}
	return sess, true, nil
}
