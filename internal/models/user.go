package models

import (
	"time"

	"github.com/google/uuid"
)

// User is one registered account.
// Username and email are stored lower-cased; uniqueness is enforced by the db.
type User struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Username       string
	Email          string
	FullName       string
	HashedPassword string

	// Single refresh token slot. Nil means no active session.
	// Login, refresh and logout are the only writers.
	RefreshToken *string

	// Opaque object storage keys, empty if never uploaded
	AvatarRef string
	CoverRef  string
}
