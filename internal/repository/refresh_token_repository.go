package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/auth-gateway/internal/domain"
)

// RefreshTokenRepository manages the one-row-per-user refresh tokens.
type RefreshTokenRepository interface {
	Upsert(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	Revoke(ctx context.Context, userID uuid.UUID) error
	GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error)
}

type refreshTokenRepository struct {
	pool *pgxpool.Pool
}

// NewRefreshTokenRepository constructs repository.
func NewRefreshTokenRepository(pool *pgxpool.Pool) RefreshTokenRepository {
	return &refreshTokenRepository{pool: pool}
}

func (r *refreshTokenRepository) Upsert(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	const query = `
        INSERT INTO refresh_tokens (user_id, token, expires_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id) DO UPDATE
            SET token=$2, expires_at=$3, revoked=false, updated_at=NOW()`
	_, err := r.pool.Exec(ctx, query, userID, token, expiresAt)
	return err
}

func (r *refreshTokenRepository) Revoke(ctx context.Context, userID uuid.UUID) error {
	const query = `
        UPDATE refresh_tokens SET revoked=true, updated_at=NOW()
        WHERE user_id=$1`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}

func (r *refreshTokenRepository) GetByToken(ctx context.Context, tokenStr string) (*domain.RefreshToken, error) {
	const query = `
        SELECT user_id, token, revoked, expires_at, created_at, updated_at
        FROM refresh_tokens WHERE token=$1`
	var token domain.RefreshToken
	if err := r.pool.QueryRow(ctx, query, tokenStr).Scan(
		&token.UserID,
		&token.Token,
		&token.Revoked,
		&token.ExpiresAt,
		&token.CreatedAt,
		&token.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &token, nil
}
