package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/auth-gateway/internal/api/dto"
	"github.com/spec-kit/auth-gateway/internal/auth"
	"github.com/spec-kit/auth-gateway/internal/service"
	apperrors "github.com/spec-kit/auth-gateway/pkg/util"
)

// UsersHandler exposes account read and follow endpoints.
type UsersHandler struct {
	accounts *service.AccountService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(accounts *service.AccountService) *UsersHandler {
	return &UsersHandler{accounts: accounts}
}

// Self handles GET /api/user/self.
func (h *UsersHandler) Self(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok || identity.User == nil {
		return apperrors.NewUserNotAuthenticated()
	}
	return c.JSON(fiber.Map{
		"status": "success",
		"data":   dto.NewUserResponse(identity.User),
	})
}

// Detail handles GET /api/user/:id.
func (h *UsersHandler) Detail(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NewValidationError("invalid user id")
	}

	user, err := h.accounts.GetUser(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status": "success",
		"data":   dto.NewUserResponse(user),
	})
}

// ToggleFollow handles POST /api/user/:id/follow.
func (h *UsersHandler) ToggleFollow(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok || identity.User == nil {
		return apperrors.NewUserNotAuthenticated()
	}

	followeeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NewValidationError("invalid user id")
	}

	following, err := h.accounts.ToggleFollow(c.UserContext(), identity.User.ID, followeeID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status": "success",
		"data":   dto.FollowResponse{Following: following},
	})
}
