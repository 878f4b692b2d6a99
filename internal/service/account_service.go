package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-gateway/internal/auth"
	"github.com/spec-kit/auth-gateway/internal/config"
	"github.com/spec-kit/auth-gateway/internal/domain"
	"github.com/spec-kit/auth-gateway/internal/events"
	"github.com/spec-kit/auth-gateway/internal/repository"
	apperrors "github.com/spec-kit/auth-gateway/pkg/util"
)

// AccountService coordinates registration, session and action-token flows.
type AccountService struct {
	users         repository.UserRepository
	roles         repository.RoleRepository
	actionTokens  repository.ActionTokenRepository
	refreshTokens repository.RefreshTokenRepository
	follows       repository.FollowRepository
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	tokenMgr      *auth.TokenManager
	bcryptCost    int
	refreshTTL    time.Duration
	now           func() time.Time
}

// AccountDependencies encapsulates repo requirements for the account service.
type AccountDependencies struct {
	UserRepo         repository.UserRepository
	RoleRepo         repository.RoleRepository
	ActionTokenRepo  repository.ActionTokenRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	FollowRepo       repository.FollowRepository
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
}

// NewAccountService builds the service.
func NewAccountService(cfg config.Config, deps AccountDependencies) *AccountService {
	return &AccountService{
		users:         deps.UserRepo,
		roles:         deps.RoleRepo,
		actionTokens:  deps.ActionTokenRepo,
		refreshTokens: deps.RefreshTokenRepo,
		follows:       deps.FollowRepo,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
		tokenMgr:      auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost:    cfg.Auth.BcryptCost,
		refreshTTL:    time.Duration(cfg.Auth.RefreshTokenTTLHours) * time.Hour,
		now:           time.Now,
	}
}

// SignUp registers an account and issues its verification token. User row and
// token commit in one transaction.
func (s *AccountService) SignUp(ctx context.Context, name, email, password string) (*domain.User, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewEmailExist()
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewServerError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewServerError(err)
	}

	roleID, err := s.roles.GetRoleIDByName(ctx, domain.RoleUser)
	if err != nil {
		return nil, apperrors.NewServerError(err)
	}

	verificationToken, err := auth.GenerateRandomToken()
	if err != nil {
		return nil, apperrors.NewServerError(err)
	}

	user := &domain.User{
		RoleID:       roleID,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	actionToken := repository.NewActionToken{
		Token:      verificationToken,
		ActionType: domain.ActionVerifyAccount,
		ExpiresAt:  s.now().Add(domain.VerifyAccountTTL),
	}
	if err := s.users.CreateWithActionToken(ctx, user, actionToken); err != nil {
		return nil, apperrors.NewServerError(err)
	}

	s.publish(ctx, events.EventUserRegistered, user.ID, events.UserRegisteredPayload{
		Email:             user.Email,
		Name:              user.Name,
		VerificationToken: verificationToken,
	})
	return user, nil
}

// SignIn authenticates credentials and mints an access/refresh token pair.
func (s *AccountService) SignIn(ctx context.Context, email, password string) (*domain.User, *Session, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewWrongCredentials()
		}
		return nil, nil, apperrors.NewServerError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, nil, apperrors.NewWrongCredentials()
	}

	session, err := s.mintSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// Session is an issued access/refresh token pair.
type Session struct {
	AccessToken  string
	ExpiresAt    time.Time
	RefreshToken string
}

func (s *AccountService) mintSession(ctx context.Context, userID uuid.UUID) (*Session, error) {
	accessToken, expiresAt, err := s.tokenMgr.IssueToken(userID.String())
	if err != nil {
		return nil, apperrors.NewServerError(err)
	}
	refreshToken, err := auth.GenerateRandomToken()
	if err != nil {
		return nil, apperrors.NewServerError(err)
	}
	if err := s.refreshTokens.Upsert(ctx, userID, refreshToken, s.now().Add(s.refreshTTL)); err != nil {
		return nil, apperrors.NewServerError(err)
	}
	return &Session{AccessToken: accessToken, ExpiresAt: expiresAt, RefreshToken: refreshToken}, nil
}

// SignOut revokes the caller's refresh token. Access tokens stay stateless.
func (s *AccountService) SignOut(ctx context.Context, userID uuid.UUID) error {
	if err := s.refreshTokens.Revoke(ctx, userID); err != nil {
		return apperrors.NewServerError(err)
	}
	return nil
}

// RefreshSession exchanges a live refresh token for a new access token.
func (s *AccountService) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	stored, err := s.refreshTokens.GetByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewTokenInvalid()
		}
		return nil, apperrors.NewServerError(err)
	}
	if stored.Revoked || s.now().After(stored.ExpiresAt) {
		return nil, apperrors.NewTokenInvalid()
	}
	return s.mintSession(ctx, stored.UserID)
}

// VerifyAccount consumes a verification token and marks the user verified.
func (s *AccountService) VerifyAccount(ctx context.Context, rawToken string) (*domain.User, error) {
	actionToken, err := s.lookupActionToken(ctx, rawToken, domain.ActionVerifyAccount)
	if err != nil {
		return nil, err
	}

	user, err := s.consume(ctx, actionToken, repository.UserMutation{Verify: true})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventUserVerified, user.ID, events.UserVerifiedPayload{Email: user.Email})
	return user, nil
}

// ResendActivation regenerates the verification token for an unverified
// account, replacing the previous value and expiry via upsert.
func (s *AccountService) ResendActivation(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user")
		}
		return apperrors.NewServerError(err)
	}
	if user.IsVerified {
		return apperrors.NewValidationError("account is already verified")
	}

	verificationToken, err := auth.GenerateRandomToken()
	if err != nil {
		return apperrors.NewServerError(err)
	}
	if _, err := s.actionTokens.Upsert(ctx, user.ID, domain.ActionVerifyAccount, verificationToken, s.now().Add(domain.VerifyAccountTTL)); err != nil {
		return apperrors.NewServerError(err)
	}

	s.publish(ctx, events.EventActivationResent, user.ID, events.ActivationResentPayload{
		Email:             user.Email,
		VerificationToken: verificationToken,
	})
	return nil
}

// ForgotPassword issues a short-lived reset token for the account.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user")
		}
		return apperrors.NewServerError(err)
	}

	resetToken, err := auth.GenerateRandomToken()
	if err != nil {
		return apperrors.NewServerError(err)
	}
	if _, err := s.actionTokens.Upsert(ctx, user.ID, domain.ActionResetPassword, resetToken, s.now().Add(domain.ResetPasswordTTL)); err != nil {
		return apperrors.NewServerError(err)
	}

	s.publish(ctx, events.EventPasswordResetRequested, user.ID, events.PasswordResetRequestedPayload{
		Email:      user.Email,
		ResetToken: resetToken,
	})
	return nil
}

// ResetPassword consumes a reset token and installs the new password hash.
func (s *AccountService) ResetPassword(ctx context.Context, rawToken, newPassword string) (*domain.User, error) {
	actionToken, err := s.lookupActionToken(ctx, rawToken, domain.ActionResetPassword)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewServerError(err)
	}

	user, err := s.consume(ctx, actionToken, repository.UserMutation{NewPasswordHash: &hash})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventPasswordChanged, user.ID, events.PasswordChangedPayload{Email: user.Email})
	return user, nil
}

// GetUser loads one account by id.
func (s *AccountService) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user")
		}
		return nil, apperrors.NewServerError(err)
	}
	return user, nil
}

// ToggleFollow flips the follower relationship and reports the new state.
func (s *AccountService) ToggleFollow(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error) {
	if followerID == followeeID {
		return false, apperrors.NewValidationError("cannot follow yourself")
	}
	if _, err := s.users.GetByID(ctx, followeeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, apperrors.NewNotFound("user")
		}
		return false, apperrors.NewServerError(err)
	}

	exists, err := s.follows.Exists(ctx, followerID, followeeID)
	if err != nil {
		return false, apperrors.NewServerError(err)
	}
	if exists {
		if err := s.follows.Delete(ctx, followerID, followeeID); err != nil {
			return false, apperrors.NewServerError(err)
		}
		return false, nil
	}
	if err := s.follows.Create(ctx, followerID, followeeID); err != nil {
		return false, apperrors.NewServerError(err)
	}
	return true, nil
}

// lookupActionToken resolves a raw token and validates the state machine:
// a consumed or unknown token is invalid, a stale one is expired.
func (s *AccountService) lookupActionToken(ctx context.Context, rawToken string, expected domain.ActionType) (*domain.ActionToken, error) {
	actionToken, err := s.actionTokens.GetByToken(ctx, rawToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewTokenKeyInvalid()
		}
		return nil, apperrors.NewServerError(err)
	}
	if actionToken.ActionType != expected {
		return nil, apperrors.NewTokenKeyInvalid()
	}
	if actionToken.ExpiredAt(s.now()) {
		return nil, apperrors.NewTokenKeyExpired()
	}
	return actionToken, nil
}

func (s *AccountService) consume(ctx context.Context, actionToken *domain.ActionToken, mutation repository.UserMutation) (*domain.User, error) {
	user, err := s.actionTokens.Consume(ctx, actionToken.ID, actionToken.UserID, mutation)
	if err != nil {
		// Losing the consume race reads as an already-used token.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewTokenKeyInvalid()
		}
		return nil, apperrors.NewServerError(err)
	}
	return user, nil
}

func (s *AccountService) publish(ctx context.Context, eventType events.EventType, userID uuid.UUID, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: s.now(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", zap.String("type", string(eventType)), zap.Error(err))
	}
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AccountService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
