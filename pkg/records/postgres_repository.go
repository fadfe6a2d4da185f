package records

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kyle-compute/StravaTPOT/pkg/activity"
)

// PostgresRepository stores personal records in Postgres.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a records repository backed by a pgx
// pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Upsert keeps only the fastest time per (user, distance). The conflict
// guard runs in the database so concurrent imports cannot regress a
// record.
func (r *PostgresRepository) Upsert(ctx context.Context, params UpsertParams) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO personal_records (user_id, source_activity_id, distance, elapsed_time_seconds, achieved_on)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, distance) DO UPDATE SET
			source_activity_id = EXCLUDED.source_activity_id,
			elapsed_time_seconds = EXCLUDED.elapsed_time_seconds,
			achieved_on = EXCLUDED.achieved_on,
			updated_at = NOW()
		WHERE personal_records.elapsed_time_seconds > EXCLUDED.elapsed_time_seconds`,
		params.UserID, params.SourceActivityID, params.Distance, params.ElapsedTimeSeconds, params.AchievedOn)
	if err != nil {
		return fmt.Errorf("failed to upsert personal record: %w", err)
	}
	return nil
}

// ListByUser returns a user's records in canonical distance order.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]PersonalRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, source_activity_id, distance, elapsed_time_seconds, achieved_on, updated_at
		FROM personal_records
		WHERE user_id = $1`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query personal records: %w", err)
	}
	defer rows.Close()

	byDistance := make(map[activity.Distance]PersonalRecord)
	for rows.Next() {
		var record PersonalRecord
		err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.SourceActivityID,
			&record.Distance,
			&record.ElapsedTimeSeconds,
			&record.AchievedOn,
			&record.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan personal record: %w", err)
		}
		byDistance[record.Distance] = record
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read personal records: %w", err)
	}

	// Distance labels do not sort lexically; order them here.
	result := []PersonalRecord{}
	for _, d := range activity.Distances {
		if record, exists := byDistance[d]; exists {
			result = append(result, record)
		}
	}
	return result, nil
}

// Leaderboard returns the fastest users over a distance, ranked.
func (r *PostgresRepository) Leaderboard(ctx context.Context, distance activity.Distance, limit int32) ([]LeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT RANK() OVER (ORDER BY pr.elapsed_time_seconds), pr.user_id, u.x_username, u.x_display_name, pr.elapsed_time_seconds, pr.achieved_on
		FROM personal_records pr
		JOIN users u ON u.id = pr.user_id
		WHERE pr.distance = $1
		ORDER BY pr.elapsed_time_seconds
		LIMIT $2`,
		distance, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []LeaderboardEntry{}
	for rows.Next() {
		var entry LeaderboardEntry
		var rank int64
		err := rows.Scan(
			&rank,
			&entry.UserID,
			&entry.XUsername,
			&entry.XDisplayName,
			&entry.ElapsedTimeSeconds,
			&entry.AchievedOn,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entry.Rank = int32(rank)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	return entries, nil
}
