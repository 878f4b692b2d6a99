package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActionType identifies which sensitive transition an action token authorizes.
type ActionType string

const (
	ActionVerifyAccount ActionType = "verify-account"
	ActionResetPassword ActionType = "reset-password"
)

// Action token TTLs. Verification links live a day; reset links are short.
const (
	VerifyAccountTTL = 24 * time.Hour
	ResetPasswordTTL = 2 * time.Hour
)

// ActionToken is a single-use, time-bounded secret tied to one user and one
// action type. At most one live row exists per (user, action type); consuming
// it nulls Token/ExpiresAt and stamps UsedAt.
type ActionToken struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Token      *string
	ActionType ActionType
	UsedAt     *time.Time
	ExpiresAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Consumed reports whether the token has already authorized its transition.
func (t *ActionToken) Consumed() bool {
	return t.UsedAt != nil
}

// ExpiredAt reports whether the token is past its expiry at the given instant.
// A token with no expiry or no value is treated as expired.
func (t *ActionToken) ExpiredAt(now time.Time) bool {
	if t.ExpiresAt == nil || t.Token == nil {
		return true
	}
	return now.After(*t.ExpiresAt)
}
