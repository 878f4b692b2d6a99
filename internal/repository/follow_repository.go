package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FollowRepository manages directed follower relationships.
type FollowRepository interface {
	// Exists reports whether the relationship is present. More than one row
	// for the pair is a data-integrity failure and surfaces as an error.
	Exists(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error)
	Create(ctx context.Context, followerID, followeeID uuid.UUID) error
	Delete(ctx context.Context, followerID, followeeID uuid.UUID) error
}

type followRepository struct {
	pool *pgxpool.Pool
}

// NewFollowRepository returns a Postgres-backed implementation.
func NewFollowRepository(pool *pgxpool.Pool) FollowRepository {
	return &followRepository{pool: pool}
}

func (r *followRepository) Exists(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error) {
	const query = `
        SELECT COUNT(*) FROM follows
        WHERE follower_id=$1 AND followee_id=$2`
	var count int
	if err := r.pool.QueryRow(ctx, query, followerID, followeeID).Scan(&count); err != nil {
		return false, err
	}
	if count > 1 {
		return false, fmt.Errorf("follows integrity violation: %d rows for pair (%s, %s)", count, followerID, followeeID)
	}
	return count == 1, nil
}

func (r *followRepository) Create(ctx context.Context, followerID, followeeID uuid.UUID) error {
	const query = `
        INSERT INTO follows (follower_id, followee_id)
        VALUES ($1, $2)
        ON CONFLICT (follower_id, followee_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, followerID, followeeID)
	return err
}

func (r *followRepository) Delete(ctx context.Context, followerID, followeeID uuid.UUID) error {
	const query = `
        DELETE FROM follows
        WHERE follower_id=$1 AND followee_id=$2`
	_, err := r.pool.Exec(ctx, query, followerID, followeeID)
	return err
}
