package user

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ReconcileXParams carries everything needed to map an X.com profile to a
// local user in one transaction. Token fields are ciphertext.
type ReconcileXParams struct {
	XUserID           string
	XUsername         string
	XDisplayName      string
	ProfilePictureURL string
	Authorization     AuthorizationParams
}

// LinkStravaParams binds a Strava athlete to an existing user in one
// transaction. Token fields are ciphertext.
type LinkStravaParams struct {
	UserID          uuid.UUID
	StravaAthleteID int64
	Authorization   AuthorizationParams
}

// AuthorizationParams is the upsert payload for provider_authorizations.
type AuthorizationParams struct {
	Provider     string
	AccessToken  string
	RefreshToken *string
	ExpiresAt    *time.Time
	Scopes       string
}

// Repository is the durable store for users and provider authorizations.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByXUserID(ctx context.Context, xUserID string) (*User, error)

	// ReconcileX finds the user for an X.com remote id, creating it when
	// absent, and upserts the x authorization. Both writes commit in one
	// transaction. A concurrent first login racing on the same remote id
	// resolves to the winner's row via the unique constraint.
	ReconcileX(ctx context.Context, params ReconcileXParams) (*User, error)

	// LinkStrava sets the user's strava_athlete_id, moves the backfill
	// status from PENDING to QUEUED, and upserts the strava
	// authorization, all in one transaction.
	LinkStrava(ctx context.Context, params LinkStravaParams) (*User, error)

	// GetAuthorization returns the stored (still encrypted) authorization
	// for a (user, provider) pair.
	GetAuthorization(ctx context.Context, userID uuid.UUID, providerID string) (*ProviderAuthorization, error)
}
