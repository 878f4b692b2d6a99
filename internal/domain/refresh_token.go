package domain

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the opaque long-lived session token. One row per user,
// replaced on every sign-in and revoked on sign-out.
type RefreshToken struct {
	UserID    uuid.UUID
	Token     string
	Revoked   bool
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
