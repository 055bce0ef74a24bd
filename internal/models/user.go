package models

import "time"

// Permission levels.
const (
	PermissionMember = "member"
	PermissionAdmin  = "admin"
)

// User is a registered account. PasswordHash and Salt never leave the
// service; Sanitized strips them before a user record goes over the wire.
type User struct {
	ID              string `db:"id" json:"id"`
	Username        string `db:"username" json:"username"`
	PermissionLevel string `db:"permission_level" json:"permissionLevel"`
	PasswordHash    []byte `db:"password_hash" json:"-"`
	Salt            string `db:"salt" json:"-"`
}

// SanitizedUser is the outward projection of a User.
type SanitizedUser struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	PermissionLevel string `json:"permissionLevel"`
}

// Sanitized returns the user without credential fields.
func (u User) Sanitized() SanitizedUser {
	return SanitizedUser{
		ID:              u.ID,
		Username:        u.Username,
		PermissionLevel: u.PermissionLevel,
	}
}

// IsAdmin reports whether the user may perform admin-only operations.
func (u User) IsAdmin() bool {
	return u.PermissionLevel == PermissionAdmin
}

// Session maps an opaque token to a user. Expiry is a policy decision made
// at resolve time, not stored here.
type Session struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userID"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
