package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-gateway/internal/repository"
	apperrors "github.com/spec-kit/auth-gateway/pkg/util"
)

// Gate authorizes identities against the role permission matrix.
type Gate struct {
	permissions repository.PermissionRepository
}

// NewGate constructs the authorization gate.
func NewGate(permissions repository.PermissionRepository) *Gate {
	return &Gate{permissions: permissions}
}

// RequirePermission returns a route stage that admits only identities whose
// role's permission set contains the named permission. Membership is flat;
// no role is implicitly granted anything.
func (g *Gate) RequirePermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok || identity.User == nil {
			// The session stage never ran; a wiring bug, not a business deny.
			return apperrors.NewUserNotAuthenticated()
		}

		granted, err := g.permissions.GetPermissionsByRole(c.UserContext(), identity.User.RoleID)
		if err != nil {
			return apperrors.NewServerError(err)
		}

		for _, name := range granted {
			if name == permission {
				return c.Next()
			}
		}
		return apperrors.NewPermissionDenied()
	}
}
