package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/auth-gateway/internal/domain"
)

// NewActionToken carries the values for a freshly issued action token.
type NewActionToken struct {
	Token      string
	ActionType domain.ActionType
	ExpiresAt  time.Time
}

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	CreateWithActionToken(ctx context.Context, user *domain.User, actionToken NewActionToken) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

// CreateWithActionToken inserts the user row and its verification token in one
// transaction so a crash cannot leave an account without a pending token.
func (r *userRepository) CreateWithActionToken(ctx context.Context, user *domain.User, actionToken NewActionToken) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertUser = `
        INSERT INTO users (role_id, name, email, password_hash)
        VALUES ($1, $2, $3, $4)
        RETURNING id, is_verified, created_at, updated_at`
	if err := tx.QueryRow(ctx, insertUser,
		user.RoleID,
		user.Name,
		user.Email,
		user.PasswordHash,
	).Scan(&user.ID, &user.IsVerified, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return err
	}

	const insertToken = `
        INSERT INTO user_action_tokens (user_id, token, action_type, expires_at)
        VALUES ($1, $2, $3, $4)`
	if _, err := tx.Exec(ctx, insertToken,
		user.ID,
		actionToken.Token,
		string(actionToken.ActionType),
		actionToken.ExpiresAt,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const query = `
        SELECT id, role_id, name, email, password_hash, is_verified, created_at, updated_at
        FROM users WHERE id=$1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT id, role_id, name, email, password_hash, is_verified, created_at, updated_at
        FROM users WHERE email=$1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.RoleID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.IsVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
