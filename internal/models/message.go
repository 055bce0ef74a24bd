package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Revision is one historical version of a message's text. Revisions are
// append-only: edits add a new entry, the displayed text is always the last.
type Revision struct {
	Text      string    `json:"text"`
	Signature string    `json:"signature,omitempty"`
	Date      time.Time `json:"date"`
}

// RevisionList is stored as a JSONB column so appends happen as a single
// atomic update at the database layer.
type RevisionList []Revision

func (l RevisionList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *RevisionList) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	case nil:
		*l = nil
		return nil
	}
	return fmt.Errorf("cannot scan %T into RevisionList", src)
}

// ReactionMap maps a single-character reaction code to the users who used
// it. A user id appears at most once per code.
type ReactionMap map[string][]string

func (m ReactionMap) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(ReactionMap{})
	}
	return json.Marshal(m)
}

func (m *ReactionMap) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	case nil:
		*m = ReactionMap{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into ReactionMap", src)
}

// Message is a chat message in a channel. AuthorUsername is denormalized at
// creation time and goes stale if the author renames; that is accepted.
type Message struct {
	ID             string       `db:"id" json:"id"`
	ChannelID      string       `db:"channel_id" json:"channelID"`
	AuthorID       string       `db:"author_id" json:"authorID"`
	AuthorUsername string       `db:"author_username" json:"authorUsername"`
	CreatedAt      time.Time    `db:"created_at" json:"date"`
	Revisions      RevisionList `db:"revisions" json:"revisions"`
	Reactions      ReactionMap  `db:"reactions" json:"reactions"`
}

// Text returns the currently displayed text, i.e. the last revision's.
func (m Message) Text() string {
	if len(m.Revisions) == 0 {
		return ""
	}
	return m.Revisions[len(m.Revisions)-1].Text
}

// Signature returns the currently displayed signature, if any.
func (m Message) Signature() string {
	if len(m.Revisions) == 0 {
		return ""
	}
	return m.Revisions[len(m.Revisions)-1].Signature
}
