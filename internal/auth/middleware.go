package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/auth-gateway/internal/domain"
	"github.com/spec-kit/auth-gateway/internal/repository"
	apperrors "github.com/spec-kit/auth-gateway/pkg/util"
)

const identityKey = "auth_identity"

// Identity is the authenticated caller's resolved user record, attached to
// the request for its lifetime.
type Identity struct {
	User *domain.User
}

// Middleware resolves session credentials into authenticated identities.
type Middleware struct {
	tokens *TokenManager
	users  repository.UserRepository
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager, users repository.UserRepository) *Middleware {
	return &Middleware{tokens: tokens, users: users}
}

// Authenticate validates the session credential and loads the caller's user
// row. The credential is read from the "token" cookie first, then from the
// Authorization header. Any failure short-circuits with 401.
func (m *Middleware) Authenticate(c *fiber.Ctx) error {
	credential := c.Cookies("token")
	if credential == "" {
		credential = c.Get(fiber.HeaderAuthorization)
	}
	if strings.TrimSpace(credential) == "" {
		return apperrors.NewTokenNotProvided()
	}

	token := credential
	if strings.HasPrefix(credential, "Bearer ") {
		parts := strings.Fields(credential)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return apperrors.NewTokenInvalid()
		}
		token = parts[1]
	}

	subject, err := m.tokens.VerifyToken(token)
	if err != nil {
		return apperrors.NewTokenInvalid()
	}

	userID, err := uuid.Parse(subject)
	if err != nil {
		return apperrors.NewTokenInvalid()
	}

	// A deleted user and a lookup failure read the same to the caller.
	user, err := m.users.GetByID(c.UserContext(), userID)
	if err != nil {
		return apperrors.NewUserNoLongerExist()
	}

	c.Locals(identityKey, &Identity{User: user})
	return c.Next()
}

// RequireBasic guards service-to-service routes with static HTTP Basic
// credentials.
func (m *Middleware) RequireBasic(expectedUser, expectedPass string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		headerValue := c.Get(fiber.HeaderAuthorization)
		if strings.TrimSpace(headerValue) == "" {
			return apperrors.NewTokenNotProvided()
		}
		if err := DecodeBasic(headerValue, expectedUser, expectedPass); err != nil {
			if errors.Is(err, ErrWrongCredentials) {
				return apperrors.NewWrongCredentials()
			}
			return apperrors.NewTokenInvalid()
		}
		return c.Next()
	}
}

// IdentityFromContext retrieves the authenticated caller.
func IdentityFromContext(c *fiber.Ctx) (*Identity, bool) {
	val := c.Locals(identityKey)
	if val == nil {
		return nil, false
	}
	identity, ok := val.(*Identity)
	return identity, ok
}
