package activity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores activities and best efforts in Postgres.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates an activity repository backed by a pgx
// pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const activityColumns = "id, user_id, strava_activity_id, name, distance_meters, moving_time_seconds, elevation_gain_meters, start_date, created_at"

func scanActivity(row pgx.Row) (*Activity, error) {
	var a Activity
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.StravaActivityID,
		&a.Name,
		&a.DistanceMeters,
		&a.MovingTimeSeconds,
		&a.ElevationGainMeters,
		&a.StartDate,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrActivityNotFound
		}
		return nil, fmt.Errorf("failed to scan activity: %w", err)
	}
	return &a, nil
}

// Upsert writes the activity and replaces its best efforts in one
// transaction.
func (r *PostgresRepository) Upsert(ctx context.Context, params UpsertParams) (*Activity, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO activities (user_id, strava_activity_id, name, distance_meters, moving_time_seconds, elevation_gain_meters, start_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, strava_activity_id) DO UPDATE SET
			name = EXCLUDED.name,
			distance_meters = EXCLUDED.distance_meters,
			moving_time_seconds = EXCLUDED.moving_time_seconds,
			elevation_gain_meters = EXCLUDED.elevation_gain_meters,
			start_date = EXCLUDED.start_date
		RETURNING `+activityColumns,
		params.UserID, params.StravaActivityID, params.Name, params.DistanceMeters,
		params.MovingTimeSeconds, params.ElevationGainMeters, params.StartDate)
	a, err := scanActivity(row)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `DELETE FROM activity_best_efforts WHERE activity_id = $1`, a.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to clear best efforts: %w", err)
	}
	for _, effort := range params.BestEfforts {
		_, err = tx.Exec(ctx, `
			INSERT INTO activity_best_efforts (activity_id, user_id, distance, elapsed_time_seconds)
			VALUES ($1, $2, $3, $4)`,
			a.ID, a.UserID, effort.Distance, effort.ElapsedTimeSeconds)
		if err != nil {
			return nil, fmt.Errorf("failed to insert best effort: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit activity upsert: %w", err)
	}
	return a, nil
}

// GetDetail returns an activity with its best efforts.
func (r *PostgresRepository) GetDetail(ctx context.Context, id uuid.UUID) (*ActivityDetail, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+activityColumns+`
		FROM activities
		WHERE id = $1`,
		id)
	a, err := scanActivity(row)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, activity_id, user_id, distance, elapsed_time_seconds
		FROM activity_best_efforts
		WHERE activity_id = $1
		ORDER BY elapsed_time_seconds`,
		id)
	if err != nil {
		return nil, fmt.Errorf("failed to query best efforts: %w", err)
	}
	defer rows.Close()

	detail := &ActivityDetail{Activity: *a, BestEfforts: []BestEffort{}}
	for rows.Next() {
		var effort BestEffort
		if err := rows.Scan(&effort.ID, &effort.ActivityID, &effort.UserID, &effort.Distance, &effort.ElapsedTimeSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan best effort: %w", err)
		}
		detail.BestEfforts = append(detail.BestEfforts, effort)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read best efforts: %w", err)
	}
	return detail, nil
}

// ListByUser returns a page of a user's activities, newest first, and
// the total count.
func (r *PostgresRepository) ListByUser(ctx context.Context, params ListParams) ([]Activity, int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM activities WHERE user_id = $1`, params.UserID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count activities: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+activityColumns+`
		FROM activities
		WHERE user_id = $1
		ORDER BY start_date DESC
		LIMIT $2 OFFSET $3`,
		params.UserID, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	activities := []Activity{}
	for rows.Next() {
		var a Activity
		err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.StravaActivityID,
			&a.Name,
			&a.DistanceMeters,
			&a.MovingTimeSeconds,
			&a.ElevationGainMeters,
			&a.StartDate,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read activities: %w", err)
	}
	return activities, total, nil
}
