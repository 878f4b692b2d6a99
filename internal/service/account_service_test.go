package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-gateway/internal/auth"
	"github.com/spec-kit/auth-gateway/internal/config"
	"github.com/spec-kit/auth-gateway/internal/domain"
	"github.com/spec-kit/auth-gateway/internal/repository"
	apperrors "github.com/spec-kit/auth-gateway/pkg/util"
)

// memStore is an in-memory double for every repository port the service uses.
type memStore struct {
	users        map[uuid.UUID]*domain.User
	actionTokens map[uuid.UUID]*domain.ActionToken
	refresh      map[uuid.UUID]*domain.RefreshToken
	follows      map[string]int
	userRoleID   uuid.UUID
	now          func() time.Time
	followErr    error
}

func newMemStore(now func() time.Time) *memStore {
	return &memStore{
		users:        make(map[uuid.UUID]*domain.User),
		actionTokens: make(map[uuid.UUID]*domain.ActionToken),
		refresh:      make(map[uuid.UUID]*domain.RefreshToken),
		follows:      make(map[string]int),
		userRoleID:   uuid.New(),
		now:          now,
	}
}

func followKey(followerID, followeeID uuid.UUID) string {
	return followerID.String() + "|" + followeeID.String()
}

func (m *memStore) CreateWithActionToken(_ context.Context, user *domain.User, actionToken repository.NewActionToken) error {
	user.ID = uuid.New()
	user.CreatedAt = m.now()
	user.UpdatedAt = m.now()
	m.users[user.ID] = user

	token := actionToken.Token
	expiresAt := actionToken.ExpiresAt
	id := uuid.New()
	m.actionTokens[id] = &domain.ActionToken{
		ID:         id,
		UserID:     user.ID,
		Token:      &token,
		ActionType: actionToken.ActionType,
		ExpiresAt:  &expiresAt,
	}
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStore) GetRoleIDByName(_ context.Context, name domain.RoleType) (uuid.UUID, error) {
	if name == domain.RoleUser {
		return m.userRoleID, nil
	}
	return uuid.Nil, pgx.ErrNoRows
}

func (m *memStore) GetRoleNameByID(_ context.Context, roleID uuid.UUID) (domain.RoleType, error) {
	if roleID == m.userRoleID {
		return domain.RoleUser, nil
	}
	return "", pgx.ErrNoRows
}

func (m *memStore) GetByToken(_ context.Context, raw string) (*domain.ActionToken, error) {
	for _, stored := range m.actionTokens {
		if stored.Token != nil && *stored.Token == raw && stored.UsedAt == nil {
			copied := *stored
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStore) Upsert(_ context.Context, userID uuid.UUID, actionType domain.ActionType, token string, expiresAt time.Time) (*domain.ActionToken, error) {
	for _, stored := range m.actionTokens {
		if stored.UserID == userID && stored.ActionType == actionType {
			stored.Token = &token
			stored.ExpiresAt = &expiresAt
			stored.UsedAt = nil
			copied := *stored
			return &copied, nil
		}
	}
	id := uuid.New()
	created := &domain.ActionToken{
		ID:         id,
		UserID:     userID,
		Token:      &token,
		ActionType: actionType,
		ExpiresAt:  &expiresAt,
	}
	m.actionTokens[id] = created
	copied := *created
	return &copied, nil
}

func (m *memStore) Consume(_ context.Context, tokenID, userID uuid.UUID, mutation repository.UserMutation) (*domain.User, error) {
	stored, ok := m.actionTokens[tokenID]
	if !ok || stored.UsedAt != nil {
		return nil, pgx.ErrNoRows
	}
	usedAt := m.now()
	stored.UsedAt = &usedAt
	stored.Token = nil
	stored.ExpiresAt = nil

	user, ok := m.users[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	switch {
	case mutation.NewPasswordHash != nil:
		user.PasswordHash = *mutation.NewPasswordHash
	case mutation.Verify:
		user.IsVerified = true
	default:
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (m *memStore) UpsertRefresh(_ context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	m.refresh[userID] = &domain.RefreshToken{UserID: userID, Token: token, ExpiresAt: expiresAt}
	return nil
}

func (m *memStore) Revoke(_ context.Context, userID uuid.UUID) error {
	if stored, ok := m.refresh[userID]; ok {
		stored.Revoked = true
	}
	return nil
}

func (m *memStore) GetRefreshByToken(_ context.Context, raw string) (*domain.RefreshToken, error) {
	for _, stored := range m.refresh {
		if stored.Token == raw {
			copied := *stored
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStore) Exists(_ context.Context, followerID, followeeID uuid.UUID) (bool, error) {
	if m.followErr != nil {
		return false, m.followErr
	}
	count := m.follows[followKey(followerID, followeeID)]
	if count > 1 {
		return false, fmt.Errorf("follows integrity violation: %d rows", count)
	}
	return count == 1, nil
}

func (m *memStore) Create(_ context.Context, followerID, followeeID uuid.UUID) error {
	m.follows[followKey(followerID, followeeID)] = 1
	return nil
}

func (m *memStore) Delete(_ context.Context, followerID, followeeID uuid.UUID) error {
	delete(m.follows, followKey(followerID, followeeID))
	return nil
}

// refreshAdapter and routes below satisfy the narrower repository interfaces.
type refreshAdapter struct{ store *memStore }

func (a refreshAdapter) Upsert(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	return a.store.UpsertRefresh(ctx, userID, token, expiresAt)
}
func (a refreshAdapter) Revoke(ctx context.Context, userID uuid.UUID) error {
	return a.store.Revoke(ctx, userID)
}
func (a refreshAdapter) GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	return a.store.GetRefreshByToken(ctx, token)
}

type serviceFixture struct {
	service *AccountService
	store   *memStore
	clock   *time.Time
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	now := time.Now().Truncate(time.Second)
	clock := &now
	store := newMemStore(func() time.Time { return *clock })

	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 60,
			RefreshTokenTTLHours:  24,
			BcryptCost:            4,
		},
	}
	svc := NewAccountService(cfg, AccountDependencies{
		UserRepo:         store,
		RoleRepo:         store,
		ActionTokenRepo:  store,
		RefreshTokenRepo: refreshAdapter{store: store},
		FollowRepo:       store,
		Logger:           zap.NewNop(),
	})
	svc.now = func() time.Time { return *clock }
	return &serviceFixture{service: svc, store: store, clock: clock}
}

func (f *serviceFixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func (f *serviceFixture) liveToken(t *testing.T, userID uuid.UUID, actionType domain.ActionType) string {
	t.Helper()
	for _, stored := range f.store.actionTokens {
		if stored.UserID == userID && stored.ActionType == actionType && stored.Token != nil {
			return *stored.Token
		}
	}
	t.Fatalf("no live %s token for user %s", actionType, userID)
	return ""
}

func TestSignUpIssuesVerificationToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.service.SignUp(ctx, "Alice", "alice@example.com", "secret123")
	require.NoError(t, err)
	assert.False(t, user.IsVerified)
	assert.Equal(t, f.store.userRoleID, user.RoleID)
	assert.NoError(t, auth.ComparePassword(user.PasswordHash, "secret123"))

	var tokens []*domain.ActionToken
	for _, stored := range f.store.actionTokens {
		if stored.UserID == user.ID {
			tokens = append(tokens, stored)
		}
	}
	require.Len(t, tokens, 1)
	assert.Equal(t, domain.ActionVerifyAccount, tokens[0].ActionType)
	require.NotNil(t, tokens[0].ExpiresAt)
	assert.Equal(t, f.clock.Add(24*time.Hour), *tokens[0].ExpiresAt)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.SignUp(ctx, "Alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	_, err = f.service.SignUp(ctx, "Other", "alice@example.com", "secret456")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeEmailExist))
}

func TestVerifyAccountConsumesTokenOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.service.SignUp(ctx, "Alice", "alice@example.com", "secret123")
	require.NoError(t, err)
	raw := f.liveToken(t, user.ID, domain.ActionVerifyAccount)

	verified, err := f.service.VerifyAccount(ctx, raw)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)

	// Replay: the consumed token reads the same as a missing one.
	_, err = f.service.VerifyAccount(ctx, raw)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeTokenKeyInvalid))
}

func TestVerifyAccountUnknownToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.VerifyAccount(context.Background(), "no-such-token")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeTokenKeyInvalid))
}

func TestVerifyAccountExpiryBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.service.SignUp(ctx, "Alice", "alice@example.com", "secret123")
	require.NoError(t, err)
	raw := f.liveToken(t, user.ID, domain.ActionVerifyAccount)

	// One second past expiry fails, well inside it passes.
	f.advance(24*time.Hour + time.Second)
	_, err = f.service.VerifyAccount(ctx, raw)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeTokenKeyExpired))

	require.NoError(t, f.service.ResendActivation(ctx, "alice@example.com"))
	raw = f.liveToken(t, user.ID, domain.ActionVerifyAccount)
	f.advance(23 * time.Hour)
	_, err = f.service.VerifyAccount(ctx, raw)
	assert.NoError(t, err)
}

func TestResendActivationReplacesSingleRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.service.SignUp(ctx, "Alice", "alice@example.com", "secret123")
	require.NoError(t, err)
	first := f.liveToken(t, user.ID, domain.ActionVerifyAccount)

	require.NoError(t, f.service.ResendActivation(ctx, "alice@example.com"))
	second := f.liveToken(t, user.ID, domain.ActionVerifyAccount)
	assert.NotEqual(t, first, second)

	rows := 0
	for _, stored := range f.store.actionTokens {
		if stored.UserID == user.ID && stored.ActionType == domain.ActionVerifyAccount {
			rows++
		}
	}
	assert.Equal(t, 1, rows)

	// Old token value no longer resolves.
	_, err = f.service.VerifyAccount(ctx, first)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeTokenKeyInvalid))
}

func TestResendActivationRequiresUnverifiedAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.service.SignUp(ctx, "Alice", "alice@example.com", "secret123")
	require.NoError(t, err)
	raw := f.liveToken(t, user.ID, domain.ActionVerifyAccount)
	_, err = f.service.VerifyAccount(ctx, raw)
	require.NoError(t, err)

	err = f.service.ResendActivation(ctx, "alice@example.com")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))

	err = f.service.ResendActivation(ctx, "nobody@example.com")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.service.SignUp(ctx, "Alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	require.NoError(t, f.service.ForgotPassword(ctx, "alice@example.com"))
	raw := f.liveToken(t, user.ID, domain.ActionResetPassword)

	reset, err := f.service.ResetPassword(ctx, raw, "newpass456")
	require.NoError(t, err)
	assert.NoError(t, auth.ComparePassword(reset.PasswordHash, "newpass456"))

	// Replay after consumption is invalid, not expired.
	_, err = f.service.ResetPassword(ctx, raw, "again789")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeTokenKeyInvalid))

	_, session, err := f.service.SignIn(ctx, "alice@example.com", "newpass456")
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
}

func TestResetPasswordTokenExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.service.SignUp(ctx, "Alice", "alice@example.com", "secret123")
	require.NoError(t, err)
	require.NoError(t, f.service.ForgotPassword(ctx, "alice@example.com"))
	raw := f.liveToken(t, user.ID, domain.ActionResetPassword)

	f.advance(2*time.Hour + time.Second)
	_, err = f.service.ResetPassword(ctx, raw, "newpass456")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeTokenKeyExpired))
}

func TestActionTokenTypeMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.service.SignUp(ctx, "Alice", "alice@example.com", "secret123")
	require.NoError(t, err)
	verifyToken := f.liveToken(t, user.ID, domain.ActionVerifyAccount)

	// A verification token cannot reset a password.
	_, err = f.service.ResetPassword(ctx, verifyToken, "newpass456")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeTokenKeyInvalid))
}

func TestSignInWrongCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.SignUp(ctx, "Alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	_, _, err = f.service.SignIn(ctx, "alice@example.com", "wrong")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeWrongCredentials))

	_, _, err = f.service.SignIn(ctx, "nobody@example.com", "secret123")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeWrongCredentials))
}

func TestRefreshSessionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.service.SignUp(ctx, "Alice", "alice@example.com", "secret123")
	require.NoError(t, err)
	_, session, err := f.service.SignIn(ctx, "alice@example.com", "secret123")
	require.NoError(t, err)

	renewed, err := f.service.RefreshSession(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, renewed.AccessToken)

	require.NoError(t, f.service.SignOut(ctx, user.ID))
	_, err = f.service.RefreshSession(ctx, renewed.RefreshToken)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeTokenInvalid))
}

func TestRefreshSessionExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.SignUp(ctx, "Alice", "alice@example.com", "secret123")
	require.NoError(t, err)
	_, session, err := f.service.SignIn(ctx, "alice@example.com", "secret123")
	require.NoError(t, err)

	f.advance(25 * time.Hour)
	_, err = f.service.RefreshSession(ctx, session.RefreshToken)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeTokenInvalid))
}

func TestToggleFollow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice, err := f.service.SignUp(ctx, "Alice", "alice@example.com", "secret123")
	require.NoError(t, err)
	bob, err := f.service.SignUp(ctx, "Bob", "bob@example.com", "secret123")
	require.NoError(t, err)

	following, err := f.service.ToggleFollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	following, err = f.service.ToggleFollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, following)

	_, err = f.service.ToggleFollow(ctx, alice.ID, alice.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))

	_, err = f.service.ToggleFollow(ctx, alice.ID, uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestToggleFollowIntegrityErrorSurfaces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice, err := f.service.SignUp(ctx, "Alice", "alice@example.com", "secret123")
	require.NoError(t, err)
	bob, err := f.service.SignUp(ctx, "Bob", "bob@example.com", "secret123")
	require.NoError(t, err)

	f.store.follows[followKey(alice.ID, bob.ID)] = 2
	_, err = f.service.ToggleFollow(ctx, alice.ID, bob.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeServerError))
}
