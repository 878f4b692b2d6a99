package domain

import (
	"time"

	"github.com/google/uuid"
)

// Follow records one directed follower relationship.
type Follow struct {
	FollowerID uuid.UUID
	FolloweeID uuid.UUID
	CreatedAt  time.Time
}
