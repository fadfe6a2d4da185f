package authstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores pending authorizations in the auth_states
// table so that the initiation and callback requests may be served by
// different processes.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a PostgreSQL-backed state store.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Store registers a new pending authorization.
func (r *PostgresRepository) Store(ctx context.Context, pending *PendingAuth) error {
	if pending == nil {
		return fmt.Errorf("pending authorization cannot be nil")
	}
	if pending.State == "" {
		return fmt.Errorf("state token cannot be empty")
	}

	query := `
		INSERT INTO auth_states (state, provider, code_verifier, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		pending.State,
		pending.Provider,
		pending.CodeVerifier,
		pending.UserID,
		pending.CreatedAt,
		pending.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store pending authorization: %w", err)
	}
	return nil
}

// Consume removes and returns the entry for the state token. The DELETE
// with RETURNING gives the read-once guarantee: of two concurrent
// callbacks carrying the same token, exactly one row comes back.
// Expired rows are filtered in the same statement so a stale entry can
// never be consumed, swept or not.
func (r *PostgresRepository) Consume(ctx context.Context, state string) (*PendingAuth, error) {
	query := `
		DELETE FROM auth_states
		WHERE state = $1 AND expires_at > $2
		RETURNING state, provider, code_verifier, user_id, created_at, expires_at
	`

	pending := &PendingAuth{}
	err := r.pool.QueryRow(ctx, query, state, time.Now()).Scan(
		&pending.State,
		&pending.Provider,
		&pending.CodeVerifier,
		&pending.UserID,
		&pending.CreatedAt,
		&pending.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to consume state: %w", err)
	}
	return pending, nil
}

// DeleteExpired removes entries past their TTL.
func (r *PostgresRepository) DeleteExpired(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM auth_states WHERE expires_at <= $1`, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete expired states: %w", err)
	}
	return nil
}
