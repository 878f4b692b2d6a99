package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered         EventType = "user_registered"
	EventUserVerified           EventType = "user_verified"
	EventActivationResent       EventType = "activation_resent"
	EventPasswordResetRequested EventType = "password_reset_requested"
	EventPasswordChanged        EventType = "password_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    uuid.UUID   `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	VerificationToken string `json:"verification_token"`
}

// ActivationResentPayload payload.
type ActivationResentPayload struct {
	Email             string `json:"email"`
	VerificationToken string `json:"verification_token"`
}

// PasswordResetRequestedPayload payload.
type PasswordResetRequestedPayload struct {
	Email      string `json:"email"`
	ResetToken string `json:"reset_token"`
}

// UserVerifiedPayload payload.
type UserVerifiedPayload struct {
	Email string `json:"email"`
}

// PasswordChangedPayload payload.
type PasswordChangedPayload struct {
	Email string `json:"email"`
}
