package domain

import (
	"time"

	"github.com/google/uuid"
)

// RoleType enumerates the deployment's static roles.
type RoleType string

const (
	RoleAdmin RoleType = "admin"
	RoleUser  RoleType = "user"
)

// Role groups users under a named permission set.
type Role struct {
	ID          uuid.UUID
	Name        RoleType
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission names granted to roles. Flat "resource:action" strings,
// checked by set membership only.
const (
	PermissionUserSelf   = "user:self"
	PermissionUserRead   = "user:read"
	PermissionUserFollow = "user:follow"
	PermissionUserManage = "user:manage"
)
