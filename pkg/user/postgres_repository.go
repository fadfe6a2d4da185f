package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolationCode = "23505"

const userColumns = `
	id, x_user_id, x_username, x_display_name, email, username,
	strava_athlete_id, profile_picture_url, backfill_status, created_at, updated_at
`

// PostgresRepository implements Repository on pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a PostgreSQL-backed user repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	err := row.Scan(
		&u.ID,
		&u.XUserID,
		&u.XUsername,
		&u.XDisplayName,
		&u.Email,
		&u.Username,
		&u.StravaAthleteID,
		&u.ProfilePictureURL,
		&u.BackfillStatus,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return u, nil
}

// GetByID retrieves a user by primary key.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetByXUserID retrieves a user by the X.com remote id.
func (r *PostgresRepository) GetByXUserID(ctx context.Context, xUserID string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE x_user_id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, xUserID))
}

func getByXUserID(ctx context.Context, q queryer, xUserID string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE x_user_id = $1`
	return scanUser(q.QueryRow(ctx, query, xUserID))
}

// ReconcileX maps an X.com remote id to a local user and refreshes the
// stored authorization, committing both in one transaction. Reconnects do
// not overwrite cached profile fields.
func (r *PostgresRepository) ReconcileX(ctx context.Context, params ReconcileXParams) (*User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	u, err := getByXUserID(ctx, tx, params.XUserID)
	if errors.Is(err, ErrUserNotFound) {
		u, err = createFromXProfile(ctx, tx, params)
		if errors.Is(err, ErrUserNotFound) {
			// Another login for the same remote id won the insert race;
			// ON CONFLICT DO NOTHING returned no row. Reconcile to the
			// winner's row and continue.
			u, err = getByXUserID(ctx, tx, params.XUserID)
		}
	}
	if err != nil {
		return nil, err
	}

	if err := upsertAuthorization(ctx, tx, u.ID, params.Authorization); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit reconcile: %w", err)
	}
	return u, nil
}

func createFromXProfile(ctx context.Context, q queryer, params ReconcileXParams) (*User, error) {
	query := `
		INSERT INTO users (x_user_id, x_username, x_display_name, profile_picture_url, backfill_status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (x_user_id) DO NOTHING
		RETURNING ` + userColumns

	row := q.QueryRow(ctx, query,
		params.XUserID,
		params.XUsername,
		params.XDisplayName,
		params.ProfilePictureURL,
		BackfillPending,
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// LinkStrava binds a Strava athlete to an existing user, queues the
// backfill, and upserts the strava authorization in one transaction.
func (r *PostgresRepository) LinkStrava(ctx context.Context, params LinkStravaParams) (*User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE users
		SET strava_athlete_id = $2,
		    backfill_status = CASE WHEN backfill_status = $3 THEN $4 ELSE backfill_status END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	u, err := scanUser(tx.QueryRow(ctx, query, params.UserID, params.StravaAthleteID, BackfillPending, BackfillQueued))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrStravaAlreadyLinked{AthleteID: params.StravaAthleteID}
		}
		return nil, err
	}

	if err := upsertAuthorization(ctx, tx, u.ID, params.Authorization); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit strava link: %w", err)
	}
	return u, nil
}

func upsertAuthorization(ctx context.Context, q queryer, userID uuid.UUID, params AuthorizationParams) error {
	query := `
		INSERT INTO provider_authorizations
			(user_id, provider, access_token, refresh_token, expires_at, scopes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			scopes = EXCLUDED.scopes,
			updated_at = NOW()
	`

	_, err := q.Exec(ctx, query,
		userID,
		params.Provider,
		params.AccessToken,
		params.RefreshToken,
		params.ExpiresAt,
		params.Scopes,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert %s authorization: %w", params.Provider, err)
	}
	return nil
}

// GetAuthorization returns the stored authorization row; token columns
// remain ciphertext.
func (r *PostgresRepository) GetAuthorization(ctx context.Context, userID uuid.UUID, providerID string) (*ProviderAuthorization, error) {
	query := `
		SELECT id, user_id, provider, access_token, refresh_token, expires_at, scopes, created_at, updated_at
		FROM provider_authorizations
		WHERE user_id = $1 AND provider = $2
	`

	auth := &ProviderAuthorization{}
	err := r.pool.QueryRow(ctx, query, userID, providerID).Scan(
		&auth.ID,
		&auth.UserID,
		&auth.Provider,
		&auth.AccessToken,
		&auth.RefreshToken,
		&auth.ExpiresAt,
		&auth.Scopes,
		&auth.CreatedAt,
		&auth.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAuthorizationNotFound
		}
		return nil, fmt.Errorf("failed to get authorization: %w", err)
	}
	return auth, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
