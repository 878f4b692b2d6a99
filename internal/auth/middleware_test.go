package auth_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-gateway/internal/auth"
	"github.com/spec-kit/auth-gateway/internal/domain"
	"github.com/spec-kit/auth-gateway/internal/repository"
	apperrors "github.com/spec-kit/auth-gateway/pkg/util"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*domain.User
	err   error
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (f *fakeUserRepo) CreateWithActionToken(_ context.Context, user *domain.User, _ repository.NewActionToken) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{
				"status":  "error",
				"message": domainErr.Message,
			})
		},
	})
}

func setupSessionApp(t *testing.T, repo *fakeUserRepo) (*fiber.App, *auth.TokenManager) {
	t.Helper()
	tokens := auth.NewTokenManager("test-secret", 60)
	middleware := auth.NewMiddleware(tokens, repo)

	app := newTestApp()
	app.Get("/protected", middleware.Authenticate, func(c *fiber.Ctx) error {
		identity, ok := auth.IdentityFromContext(c)
		require.True(t, ok)
		return c.JSON(fiber.Map{"id": identity.User.ID.String()})
	})
	return app, tokens
}

func TestAuthenticateWithBearerHeader(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Email: "a@example.com"}
	app, tokens := setupSessionApp(t, newFakeUserRepo(user))

	token, _, err := tokens.IssueToken(user.ID.String())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthenticateWithCookie(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Email: "a@example.com"}
	app, tokens := setupSessionApp(t, newFakeUserRepo(user))

	token, _, err := tokens.IssueToken(user.ID.String())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthenticateRawHeaderWithoutBearerPrefix(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Email: "a@example.com"}
	app, tokens := setupSessionApp(t, newFakeUserRepo(user))

	token, _, err := tokens.IssueToken(user.ID.String())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthenticateFailures(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Email: "a@example.com"}
	repo := newFakeUserRepo(user)
	app, tokens := setupSessionApp(t, repo)

	validToken, _, err := tokens.IssueToken(user.ID.String())
	require.NoError(t, err)

	otherTokens := auth.NewTokenManager("other-secret", 60)
	foreignToken, _, err := otherTokens.IssueToken(user.ID.String())
	require.NoError(t, err)

	nonUUIDToken, _, err := tokens.IssueToken("not-a-uuid")
	require.NoError(t, err)

	deletedUserToken, _, err := tokens.IssueToken(uuid.NewString())
	require.NoError(t, err)

	tests := []struct {
		name        string
		header      string
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "no credential",
			header:      "",
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "You are not logged in, please provide a token.",
		},
		{
			name:        "whitespace credential",
			header:      "   ",
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "You are not logged in, please provide a token.",
		},
		{
			name:        "bearer with extra parts",
			header:      "Bearer " + validToken + " extra",
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Authentication token is invalid or expired.",
		},
		{
			name:        "bearer with missing token",
			header:      "Bearer ",
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Authentication token is invalid or expired.",
		},
		{
			name:        "wrong secret",
			header:      "Bearer " + foreignToken,
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Authentication token is invalid or expired.",
		},
		{
			name:        "subject not a uuid",
			header:      "Bearer " + nonUUIDToken,
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Authentication token is invalid or expired.",
		},
		{
			name:        "user no longer exists",
			header:      "Bearer " + deletedUserToken,
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "User belonging to this token no longer exists.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Contains(t, string(body), tt.wantMessage)
		})
	}
}

func TestAuthenticateStoreErrorFailsClosed(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Email: "a@example.com"}
	repo := newFakeUserRepo(user)
	repo.err = errors.New("connection reset")
	app, tokens := setupSessionApp(t, repo)

	token, _, err := tokens.IssueToken(user.ID.String())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRequireBasic(t *testing.T) {
	middleware := auth.NewMiddleware(auth.NewTokenManager("test-secret", 60), newFakeUserRepo())

	app := newTestApp()
	app.Get("/internal", middleware.RequireBasic("user", "pass"), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "valid", header: "Basic dXNlcjpwYXNz", wantStatus: http.StatusOK},
		{name: "wrong password", header: "Basic dXNlcjpub3Bl", wantStatus: http.StatusUnauthorized},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Bearer abc", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/internal", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			resp, err := app.Test(req, int(2*time.Second/time.Millisecond))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}
