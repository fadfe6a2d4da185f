package authstate

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ErrStateNotFound is returned when a state token is absent, already
// consumed, or expired. Callers must treat all three identically: the
// callback is not tied to a live authorization attempt.
var ErrStateNotFound = fmt.Errorf("state not found or expired")

// Repository stores pending authorization attempts between the initiation
// and callback requests.
type Repository interface {
	// Store registers a new pending authorization.
	Store(ctx context.Context, pending *PendingAuth) error

	// Consume atomically looks up and removes the entry for the given
	// state token. Expired entries are rejected at lookup time even if
	// no sweeper has run. A second Consume with the same token returns
	// ErrStateNotFound.
	Consume(ctx context.Context, state string) (*PendingAuth, error)

	// DeleteExpired removes entries past their TTL (maintenance sweep).
	DeleteExpired(ctx context.Context) error
}

// InMemoryRepository keeps pending authorizations in a mutex-guarded map.
// Suitable for single-process deployments and tests; horizontally scaled
// deployments use PostgresRepository so that the initiation and callback
// requests may land on different processes.
type InMemoryRepository struct {
	mutex   sync.Mutex
	pending map[string]*PendingAuth
}

// NewInMemoryRepository creates an empty in-memory state store.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		pending: make(map[string]*PendingAuth),
	}
}

// Store registers a new pending authorization.
func (r *InMemoryRepository) Store(ctx context.Context, pending *PendingAuth) error {
	if pending == nil {
		return fmt.Errorf("pending authorization cannot be nil")
	}
	if pending.State == "" {
		return fmt.Errorf("state token cannot be empty")
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	entry := *pending
	r.pending[pending.State] = &entry
	return nil
}

// Consume removes and returns the entry for the state token. The delete
// happens under the same lock as the lookup, so concurrent callbacks
// carrying the same token see exactly one success.
func (r *InMemoryRepository) Consume(ctx context.Context, state string) (*PendingAuth, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	entry, exists := r.pending[state]
	if !exists {
		return nil, ErrStateNotFound
	}
	delete(r.pending, state)

	if entry.Expired(time.Now()) {
		return nil, ErrStateNotFound
	}

	result := *entry
	return &result, nil
}

// DeleteExpired removes entries past their TTL.
func (r *InMemoryRepository) DeleteExpired(ctx context.Context) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := time.Now()
	for state, entry := range r.pending {
		if entry.Expired(now) {
			delete(r.pending, state)
		}
	}
	return nil
}

// Len returns the number of pending entries (useful for tests).
func (r *InMemoryRepository) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.pending)
}
