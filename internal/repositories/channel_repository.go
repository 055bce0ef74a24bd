package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"channel-chat-service/internal/models"
)

var (
	ErrChannelNotFound  = errors.New("channel not found")
	ErrChannelNameTaken = errors.New("channel name already taken")
)

// ChannelRepository abstracts channel persistence.
type ChannelRepository interface {
	CreateChannel(ctx context.Context, name string) (models.Channel, error)
	GetChannel(ctx context.Context, channelID string) (models.Channel, error)
	ListChannels(ctx context.Context) ([]models.Channel, error)
}

// ChannelRepo is a sqlx implementation of ChannelRepository.
type ChannelRepo struct {
	db *sqlx.DB
}

// NewChannelRepo constructs a ChannelRepo.
func NewChannelRepo(db *sqlx.DB) *ChannelRepo {
	return &ChannelRepo{db: db}
}

// CreateChannel creates a channel with a unique name.
func (r *ChannelRepo) CreateChannel(ctx context.Context, name string) (models.Channel, error) {
	var channel models.Channel
	err := r.db.GetContext(ctx, &channel, `INSERT INTO channels (id, name) VALUES ($1, $2) RETURNING id, name`,
		uuid.NewString(), name)
	if isUniqueViolation(err) {
		return models.Channel{}, ErrChannelNameTaken
	}
	return channel, err
}

// GetChannel retrieves a channel by id.
func (r *ChannelRepo) GetChannel(ctx context.Context, channelID string) (models.Channel, error) {
	var channel models.Channel
	err := r.db.GetContext(ctx, &channel, `SELECT id, name FROM channels WHERE id = $1`, channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, ErrChannelNotFound
	}
	return channel, err
}

// ListChannels returns every channel, id and name only.
func (r *ChannelRepo) ListChannels(ctx context.Context) ([]models.Channel, error) {
	var channels []models.Channel
	err := r.db.SelectContext(ctx, &channels, `SELECT id, name FROM channels ORDER BY name ASC`)
	return channels, err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
