package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the domain model for registered accounts.
type User struct {
	ID           uuid.UUID
	RoleID       uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	IsVerified   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
