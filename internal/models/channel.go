package models

// Channel is a named, persistent room scoping a set of messages. Channels
// are created by admins and never deleted.
type Channel struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
