package models

import (
	"time"

	"github.com/evalforge/evalforge/internal/common/uuid"
)

// User is a registered account. AlternativeID is embedded in issued tokens
// and rotated on password change, which invalidates every outstanding session
// without tracking them individually.
type User struct {
	UserID           uuid.UUID  `db:"user_id"`
	Username         string     `db:"username"`
	Email            string     `db:"email"`
	PasswordHash     string     `db:"password_hash"`
	AlternativeID    uuid.UUID  `db:"alternative_id"`
	PasswordExpireOn time.Time  `db:"password_expire_on"`
	LastLoginOn      *time.Time `db:"last_login_on"`
	IsDeleted        bool       `db:"is_deleted"`
	CreatedOn        time.Time  `db:"created_on"`
}

// Group is the ownership and permission boundary for resources.
type Group struct {
	GroupID   uuid.UUID `db:"group_id"`
	Name      string    `db:"name"`
	CreatorID uuid.UUID `db:"creator_id"`
	CreatedOn time.Time `db:"created_on"`
}

// GroupMember links a user to a group with per-user permission bits and
// manager flags.
type GroupMember struct {
	GroupID    uuid.UUID `db:"group_id"`
	UserID     uuid.UUID `db:"user_id"`
	Read       bool      `db:"read"`
	Write      bool      `db:"write"`
	ShareRead  bool      `db:"share_read"`
	ShareWrite bool      `db:"share_write"`
	IsOwner    bool      `db:"is_owner"`
	IsAdmin    bool      `db:"is_admin"`
}
