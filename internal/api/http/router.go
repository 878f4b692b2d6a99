package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-gateway/internal/api/http/handlers"
	"github.com/spec-kit/auth-gateway/internal/auth"
	"github.com/spec-kit/auth-gateway/internal/domain"
	"github.com/spec-kit/auth-gateway/internal/ratelimit"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Metrics        *handlers.MetricsHandler
	AuthMiddleware *auth.Middleware
	Gate           *auth.Gate
	Limiter        *ratelimit.Limiter
	BasicUsername  string
	BasicPassword  string
}

// RegisterRoutes wires HTTP routes. Every route passes the rate limiter
// first; protected routes then authenticate and check one permission.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Use(cfg.Limiter.Handle)

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("PONG")
	})

	authGroup := api.Group("/auth")
	authGroup.Post("/sign-up", cfg.Auth.SignUp)
	authGroup.Post("/sign-in", cfg.Auth.SignIn)
	authGroup.Post("/sign-out", cfg.AuthMiddleware.Authenticate, cfg.Auth.SignOut)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Get("/verify", cfg.Auth.Verify)
	authGroup.Post("/resend-activation", cfg.Auth.ResendActivation)
	authGroup.Post("/forgot-password", cfg.Auth.ForgotPassword)
	authGroup.Post("/reset-password", cfg.Auth.ResetPassword)

	userGroup := api.Group("/user", cfg.AuthMiddleware.Authenticate)
	userGroup.Get("/self", cfg.Gate.RequirePermission(domain.PermissionUserSelf), cfg.Users.Self)
	userGroup.Get("/:id", cfg.Gate.RequirePermission(domain.PermissionUserRead), cfg.Users.Detail)
	userGroup.Post("/:id/follow", cfg.Gate.RequirePermission(domain.PermissionUserFollow), cfg.Users.ToggleFollow)

	internal := app.Group("/internal", cfg.AuthMiddleware.RequireBasic(cfg.BasicUsername, cfg.BasicPassword))
	internal.Get("/metrics", cfg.Metrics.Report)
}
