package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-gateway/internal/api/dto"
	"github.com/spec-kit/auth-gateway/internal/auth"
	"github.com/spec-kit/auth-gateway/internal/service"
	apperrors "github.com/spec-kit/auth-gateway/pkg/util"
)

// AuthHandler exposes registration, session and action-token endpoints.
type AuthHandler struct {
	accounts *service.AccountService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(accounts *service.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// SignUp handles POST /api/auth/sign-up.
func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("name, email, password required")
	}

	user, err := h.accounts.SignUp(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"status":  "success",
		"message": "Registration is successful! Please check your email to verify your account.",
		"data":    dto.NewUserResponse(user),
	})
}

// SignIn handles POST /api/auth/sign-in.
func (h *AuthHandler) SignIn(c *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required")
	}

	user, session, err := h.accounts.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     "token",
		Value:    session.AccessToken,
		Expires:  session.ExpiresAt,
		HTTPOnly: true,
	})
	return c.JSON(fiber.Map{
		"status": "success",
		"data": fiber.Map{
			"user": dto.NewUserResponse(user),
			"auth": dto.SessionResponse{
				Token:        session.AccessToken,
				ExpiresAt:    session.ExpiresAt,
				RefreshToken: session.RefreshToken,
			},
		},
	})
}

// SignOut handles POST /api/auth/sign-out.
func (h *AuthHandler) SignOut(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok || identity.User == nil {
		return apperrors.NewUserNotAuthenticated()
	}
	if err := h.accounts.SignOut(c.UserContext(), identity.User.ID); err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{Name: "token", Value: "", MaxAge: -1, HTTPOnly: true})
	return c.JSON(fiber.Map{"status": "success", "message": "Signed out."})
}

// Refresh handles POST /api/auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}
	if req.RefreshToken == "" {
		return apperrors.NewValidationError("refresh_token required")
	}

	session, err := h.accounts.RefreshSession(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status": "success",
		"data": dto.SessionResponse{
			Token:        session.AccessToken,
			ExpiresAt:    session.ExpiresAt,
			RefreshToken: session.RefreshToken,
		},
	})
}

// Verify handles GET /api/auth/verify?token=.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	rawToken := c.Query("token")
	if rawToken == "" {
		return apperrors.NewValidationError("token required")
	}

	user, err := h.accounts.VerifyAccount(c.UserContext(), rawToken)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Account verified.",
		"data":    dto.NewUserResponse(user),
	})
}

// ResendActivation handles POST /api/auth/resend-activation.
func (h *AuthHandler) ResendActivation(c *fiber.Ctx) error {
	var req dto.ResendActivationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}
	if req.Email == "" {
		return apperrors.NewValidationError("email required")
	}

	if err := h.accounts.ResendActivation(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "success", "message": "Verification email sent."})
}

// ForgotPassword handles POST /api/auth/forgot-password.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}
	if req.Email == "" {
		return apperrors.NewValidationError("email required")
	}

	if err := h.accounts.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "success", "message": "Reset email sent."})
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}
	if req.Token == "" || req.Password == "" {
		return apperrors.NewValidationError("token and password required")
	}

	if _, err := h.accounts.ResetPassword(c.UserContext(), req.Token, req.Password); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "success", "message": "Password has been reset."})
}
