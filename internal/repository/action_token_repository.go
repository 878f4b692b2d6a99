package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/auth-gateway/internal/domain"
)

// UserMutation describes the account change applied when a token is consumed.
type UserMutation struct {
	Verify          bool
	NewPasswordHash *string
}

// ActionTokenRepository manages single-use action token persistence.
type ActionTokenRepository interface {
	// GetByToken returns the live row for a raw token value. Consumed rows are
	// filtered out, so a used token reads the same as a missing one.
	GetByToken(ctx context.Context, token string) (*domain.ActionToken, error)
	// Upsert creates or replaces the single row for (user, action type),
	// overwriting token/expiry and clearing any previous used_at.
	Upsert(ctx context.Context, userID uuid.UUID, actionType domain.ActionType, token string, expiresAt time.Time) (*domain.ActionToken, error)
	// Consume marks the token used and applies the user mutation in one
	// row-locked transaction.
	Consume(ctx context.Context, tokenID, userID uuid.UUID, mutation UserMutation) (*domain.User, error)
}

type actionTokenRepository struct {
	pool *pgxpool.Pool
}

// NewActionTokenRepository constructs repository.
func NewActionTokenRepository(pool *pgxpool.Pool) ActionTokenRepository {
	return &actionTokenRepository{pool: pool}
}

func (r *actionTokenRepository) GetByToken(ctx context.Context, tokenStr string) (*domain.ActionToken, error) {
	const query = `
        SELECT id, user_id, token, action_type, used_at, expires_at, created_at, updated_at
        FROM user_action_tokens
        WHERE token=$1 AND used_at IS NULL`
	return scanActionToken(r.pool.QueryRow(ctx, query, tokenStr))
}

func (r *actionTokenRepository) Upsert(ctx context.Context, userID uuid.UUID, actionType domain.ActionType, token string, expiresAt time.Time) (*domain.ActionToken, error) {
	const query = `
        INSERT INTO user_action_tokens (user_id, token, action_type, expires_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_id, action_type) DO UPDATE
            SET token=EXCLUDED.token, expires_at=EXCLUDED.expires_at, used_at=NULL, updated_at=NOW()
        RETURNING id, user_id, token, action_type, used_at, expires_at, created_at, updated_at`
	return scanActionToken(r.pool.QueryRow(ctx, query, userID, token, string(actionType), expiresAt))
}

func (r *actionTokenRepository) Consume(ctx context.Context, tokenID, userID uuid.UUID, mutation UserMutation) (*domain.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Lock the user row first so two concurrent consumes serialize here and
	// the loser observes used_at already set.
	const lockUser = `SELECT id FROM users WHERE id=$1 FOR UPDATE`
	var lockedID uuid.UUID
	if err := tx.QueryRow(ctx, lockUser, userID).Scan(&lockedID); err != nil {
		return nil, err
	}

	const consumeToken = `
        UPDATE user_action_tokens
        SET used_at=NOW(), token=NULL, expires_at=NULL, updated_at=NOW()
        WHERE id=$1 AND used_at IS NULL`
	cmd, err := tx.Exec(ctx, consumeToken, tokenID)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, pgx.ErrNoRows
	}

	var row pgx.Row
	switch {
	case mutation.NewPasswordHash != nil:
		const resetPassword = `
            UPDATE users SET password_hash=$1, updated_at=NOW()
            WHERE id=$2
            RETURNING id, role_id, name, email, password_hash, is_verified, created_at, updated_at`
		row = tx.QueryRow(ctx, resetPassword, *mutation.NewPasswordHash, userID)
	case mutation.Verify:
		const verifyAccount = `
            UPDATE users SET is_verified=true, updated_at=NOW()
            WHERE id=$1
            RETURNING id, role_id, name, email, password_hash, is_verified, created_at, updated_at`
		row = tx.QueryRow(ctx, verifyAccount, userID)
	default:
		return nil, pgx.ErrNoRows
	}

	user, err := scanUser(row)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return user, nil
}

func scanActionToken(row pgx.Row) (*domain.ActionToken, error) {
	var token domain.ActionToken
	if err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.Token,
		&token.ActionType,
		&token.UsedAt,
		&token.ExpiresAt,
		&token.CreatedAt,
		&token.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &token, nil
}
