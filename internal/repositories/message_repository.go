package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"channel-chat-service/internal/models"
)

var (
	ErrMessageNotFound     = errors.New("message not found")
	ErrDuplicateReaction   = errors.New("already reacted with this code")
	ErrInvalidReactionCode = errors.New("reaction code must be a single printable character")
)

const messageColumns = `id, channel_id, author_id, author_username, created_at, revisions, reactions`

// MessageRepository owns message documents: revisions, reactions, authorship.
type MessageRepository interface {
	CreateMessage(ctx context.Context, channelID, authorID, authorUsername, text, signature string) (models.Message, error)
	AppendRevision(ctx context.Context, messageID, text, signature string) (models.Message, error)
	AddReaction(ctx context.Context, messageID, code, userID string) (int, error)
	GetMessage(ctx context.Context, messageID string) (models.Message, error)
	GetChannelPage(ctx context.Context, channelID, beforeID string, limit int) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository. Revisions and reactions live in
// JSONB columns so appends are single atomic statements, never app-level
// read-then-write.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a new message with one initial revision and no
// reactions. Callers must have verified the channel exists.
func (r *MessageRepo) CreateMessage(ctx context.Context, channelID, authorID, authorUsername, text, signature string) (models.Message, error) {
	now := time.Now().UTC()
	revisions, err := json.Marshal(models.RevisionList{{Text: text, Signature: signature, Date: now}})
	if err != nil {
		return models.Message{}, err
	}

	var msg models.Message
	err = r.db.GetContext(ctx, &msg, `INSERT INTO messages (id, channel_id, author_id, author_username, created_at, revisions, reactions)
        VALUES ($1, $2, $3, $4, $5, $6, '{}'::jsonb)
        RETURNING `+messageColumns,
		uuid.NewString(), channelID, authorID, authorUsername, now, revisions)
	return msg, err
}

// AppendRevision appends a revision to a message and returns the updated
// document. The append happens inside a single UPDATE: concurrent edits to
// the same message serialize at the row level and neither is lost.
func (r *MessageRepo) AppendRevision(ctx context.Context, messageID, text, signature string) (models.Message, error) {
	revision, err := json.Marshal(models.RevisionList{{Text: text, Signature: signature, Date: time.Now().UTC()}})
	if err != nil {
		return models.Message{}, err
	}

	var msg models.Message
	err = r.db.GetContext(ctx, &msg, `UPDATE messages
        SET revisions = revisions || $2::jsonb
        WHERE id = $1
        RETURNING `+messageColumns, messageID, revision)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// AddReaction records that userID reacted with code and returns the new
// count for that code. The guard in the WHERE clause makes the duplicate
// check and the append one atomic operation, so two concurrent reactions
// with the same code from different users both land.
func (r *MessageRepo) AddReaction(ctx context.Context, messageID, code, userID string) (int, error) {
	if utf8.RuneCountInString(code) != 1 {
		return 0, ErrInvalidReactionCode
	}
	ch, _ := utf8.DecodeRuneInString(code)
	if !unicode.IsGraphic(ch) {
		return 0, ErrInvalidReactionCode
	}

	var reactions models.ReactionMap
	err := r.db.QueryRowxContext(ctx, `UPDATE messages
        SET reactions = jsonb_set(reactions, ARRAY[$2], COALESCE(reactions->$2, '[]'::jsonb) || to_jsonb($3::text))
        WHERE id = $1 AND NOT COALESCE(reactions->$2, '[]'::jsonb) @> to_jsonb($3::text)
        RETURNING reactions`, messageID, code, userID).Scan(&reactions)
	if errors.Is(err, sql.ErrNoRows) {
		// Either the message does not exist or the user already reacted.
		var exists bool
		if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM messages WHERE id = $1)`, messageID); err != nil {
			return 0, err
		}
		if !exists {
			return 0, ErrMessageNotFound
		}
		return 0, ErrDuplicateReaction
	}
	if err != nil {
		return 0, err
	}
	return len(reactions[code]), nil
}

// GetMessage retrieves a single message document.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// GetChannelPage returns up to limit messages of a channel, oldest first
// within the page. An empty beforeID means the newest page; otherwise the
// page strictly older than the referenced message.
func (r *MessageRepo) GetChannelPage(ctx context.Context, channelID, beforeID string, limit int) ([]models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
        WHERE channel_id = $1
        AND ($2 = '' OR (created_at, id) < (SELECT created_at, id FROM messages WHERE id = $2))
        ORDER BY created_at DESC, id DESC
        LIMIT $3`
	var msgs []models.Message
	if err := r.db.SelectContext(ctx, &msgs, query, channelID, beforeID, limit); err != nil {
		return nil, err
	}
	// Reverse to chronological order for the client.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
