package user

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jackc/pgx/v5/pgxpool"
)

func setupTestDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	postgresContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", connStr)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.Up(db, "../../migrations"))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func reconcileParams(xUserID, accessToken string) ReconcileXParams {
	expiresAt := time.Now().UTC().Add(2 * time.Hour)
	return ReconcileXParams{
		XUserID:           xUserID,
		XUsername:         "runner",
		XDisplayName:      "Road Runner",
		ProfilePictureURL: "https://pbs.twimg.com/p.jpg",
		Authorization: AuthorizationParams{
			Provider:    "x",
			AccessToken: accessToken,
			ExpiresAt:   &expiresAt,
			Scopes:      "tweet.read users.read",
		},
	}
}

func TestPostgresRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool := setupTestDatabase(t)
	repo := NewPostgresRepository(pool)
	ctx := context.Background()

	t.Run("ReconcileXCreatesUserAndAuthorization", func(t *testing.T) {
		u, err := repo.ReconcileX(ctx, reconcileParams("1001", "ciphertext-1"))
		require.NoError(t, err)
		assert.Equal(t, "1001", u.XUserID)
		assert.Equal(t, BackfillPending, u.BackfillStatus)

		auth, err := repo.GetAuthorization(ctx, u.ID, "x")
		require.NoError(t, err)
		assert.Equal(t, "ciphertext-1", auth.AccessToken)
	})

	t.Run("ReconcileXUpdatesAuthorizationInPlace", func(t *testing.T) {
		first, err := repo.ReconcileX(ctx, reconcileParams("1002", "old-ciphertext"))
		require.NoError(t, err)

		second, err := repo.ReconcileX(ctx, reconcileParams("1002", "new-ciphertext"))
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		auth, err := repo.GetAuthorization(ctx, first.ID, "x")
		require.NoError(t, err)
		assert.Equal(t, "new-ciphertext", auth.AccessToken)

		var count int
		err = pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM provider_authorizations WHERE user_id = $1 AND provider = 'x'`,
			first.ID).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("ReconcileXDoesNotOverwriteProfile", func(t *testing.T) {
		first, err := repo.ReconcileX(ctx, reconcileParams("1003", "ct"))
		require.NoError(t, err)

		params := reconcileParams("1003", "ct-2")
		params.XUsername = "renamed"
		params.XDisplayName = "Renamed Runner"
		second, err := repo.ReconcileX(ctx, params)
		require.NoError(t, err)

		assert.Equal(t, first.XUsername, second.XUsername)
		assert.Equal(t, first.XDisplayName, second.XDisplayName)
	})

	t.Run("LinkStravaQueuesBackfill", func(t *testing.T) {
		u, err := repo.ReconcileX(ctx, reconcileParams("1004", "ct"))
		require.NoError(t, err)

		expiresAt := time.Now().UTC().Add(6 * time.Hour)
		linked, err := repo.LinkStrava(ctx, LinkStravaParams{
			UserID:          u.ID,
			StravaAthleteID: 555001,
			Authorization: AuthorizationParams{
				Provider:    "strava",
				AccessToken: "strava-ciphertext",
				ExpiresAt:   &expiresAt,
				Scopes:      "read,activity:read_all",
			},
		})
		require.NoError(t, err)
		require.NotNil(t, linked.StravaAthleteID)
		assert.Equal(t, int64(555001), *linked.StravaAthleteID)
		assert.Equal(t, BackfillQueued, linked.BackfillStatus)

		auth, err := repo.GetAuthorization(ctx, u.ID, "strava")
		require.NoError(t, err)
		assert.Equal(t, "strava-ciphertext", auth.AccessToken)
	})

	t.Run("LinkStravaRejectsDuplicateAthlete", func(t *testing.T) {
		first, err := repo.ReconcileX(ctx, reconcileParams("1005", "ct"))
		require.NoError(t, err)
		second, err := repo.ReconcileX(ctx, reconcileParams("1006", "ct"))
		require.NoError(t, err)

		expiresAt := time.Now().UTC().Add(6 * time.Hour)
		auth := AuthorizationParams{
			Provider:    "strava",
			AccessToken: "ct",
			ExpiresAt:   &expiresAt,
		}

		_, err = repo.LinkStrava(ctx, LinkStravaParams{UserID: first.ID, StravaAthleteID: 555002, Authorization: auth})
		require.NoError(t, err)

		_, err = repo.LinkStrava(ctx, LinkStravaParams{UserID: second.ID, StravaAthleteID: 555002, Authorization: auth})
		var linkedErr ErrStravaAlreadyLinked
		require.ErrorAs(t, err, &linkedErr)
		assert.Equal(t, int64(555002), linkedErr.AthleteID)
	})

	t.Run("GetByIDNotFound", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("ConcurrentFirstLoginsConverge", func(t *testing.T) {
		const racers = 8
		results := make(chan *User, racers)
		errs := make(chan error, racers)

		for i := 0; i < racers; i++ {
			go func(n int) {
				u, err := repo.ReconcileX(ctx, reconcileParams("1007", "ct"))
				if err != nil {
					errs <- err
					return
				}
				results <- u
			}(i)
		}

		var ids []uuid.UUID
		for i := 0; i < racers; i++ {
			select {
			case u := <-results:
				ids = append(ids, u.ID)
			case err := <-errs:
				t.Fatalf("concurrent reconcile failed: %v", err)
			}
		}

		for _, id := range ids {
			assert.Equal(t, ids[0], id)
		}

		var count int
		err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE x_user_id = '1007'`).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}
