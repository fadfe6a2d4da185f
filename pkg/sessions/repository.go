package sessions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when no session matches the JTI.
var ErrSessionNotFound = errors.New("session not found")

// Repository is the durable store for session records.
type Repository interface {
	Create(ctx context.Context, userID uuid.UUID, jti string, expiresAt time.Time) (*Session, error)
	GetByJTI(ctx context.Context, jti string) (*Session, error)
	RevokeByJTI(ctx context.Context, jti string) error
	RevokeAllByUserID(ctx context.Context, userID uuid.UUID) error
	DeleteExpired(ctx context.Context) error
}

// InMemoryRepository keeps sessions in a mutex-guarded map, for
// single-process deployments and tests.
type InMemoryRepository struct {
	mutex    sync.RWMutex
	sessions map[string]*Session
}

// NewInMemoryRepository creates an empty in-memory session store.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{sessions: make(map[string]*Session)}
}

// Create records a new session.
func (r *InMemoryRepository) Create(ctx context.Context, userID uuid.UUID, jti string, expiresAt time.Time) (*Session, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := time.Now()
	session := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		JTI:       jti,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	r.sessions[jti] = session

	result := *session
	return &result, nil
}

// GetByJTI returns the session for a JWT ID.
func (r *InMemoryRepository) GetByJTI(ctx context.Context, jti string) (*Session, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	session, exists := r.sessions[jti]
	if !exists {
		return nil, ErrSessionNotFound
	}
	result := *session
	return &result, nil
}

// RevokeByJTI marks a session revoked.
func (r *InMemoryRepository) RevokeByJTI(ctx context.Context, jti string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	session, exists := r.sessions[jti]
	if !exists {
		return ErrSessionNotFound
	}
	if session.RevokedAt == nil {
		now := time.Now()
		session.RevokedAt = &now
	}
	return nil
}

// RevokeAllByUserID marks every session of a user revoked.
func (r *InMemoryRepository) RevokeAllByUserID(ctx context.Context, userID uuid.UUID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := time.Now()
	for _, session := range r.sessions {
		if session.UserID == userID && session.RevokedAt == nil {
			session.RevokedAt = &now
		}
	}
	return nil
}

// DeleteExpired removes sessions past their expiry.
func (r *InMemoryRepository) DeleteExpired(ctx context.Context) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := time.Now()
	for jti, session := range r.sessions {
		if now.After(session.ExpiresAt) {
			delete(r.sessions, jti)
		}
	}
	return nil
}
