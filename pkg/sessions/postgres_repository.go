package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores sessions in the sessions table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a session repository backed by a pgx pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const sessionColumns = "id, user_id, jti, issued_at, expires_at, revoked_at, created_at"

func scanSession(row pgx.Row) (*Session, error) {
	var session Session
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.JTI,
		&session.IssuedAt,
		&session.ExpiresAt,
		&session.RevokedAt,
		&session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	return &session, nil
}

// Create records a new session row.
func (r *PostgresRepository) Create(ctx context.Context, userID uuid.UUID, jti string, expiresAt time.Time) (*Session, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO sessions (user_id, jti, issued_at, expires_at)
		VALUES ($1, $2, NOW(), $3)
		RETURNING `+sessionColumns,
		userID, jti, expiresAt)
	return scanSession(row)
}

// GetByJTI returns the session row for a JWT ID.
func (r *PostgresRepository) GetByJTI(ctx context.Context, jti string) (*Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE jti = $1`,
		jti)
	return scanSession(row)
}

// RevokeByJTI marks a session revoked. Already revoked sessions keep
// their original revocation time.
func (r *PostgresRepository) RevokeByJTI(ctx context.Context, jti string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sessions
		SET revoked_at = NOW()
		WHERE jti = $1 AND revoked_at IS NULL`,
		jti)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM sessions WHERE jti = $1)`, jti).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check session: %w", err)
		}
		if !exists {
			return ErrSessionNotFound
		}
	}
	return nil
}

// RevokeAllByUserID marks every active session of a user revoked.
func (r *PostgresRepository) RevokeAllByUserID(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE sessions
		SET revoked_at = NOW()
		WHERE user_id = $1 AND revoked_at IS NULL`,
		userID)
	if err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions past their expiry.
func (r *PostgresRepository) DeleteExpired(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return nil
}
