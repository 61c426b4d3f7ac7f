// Package authflow tracks pending OAuth authorization attempts between the
// join redirect and the provider callback. State lives only in memory: a
// process restart drops in-flight authorizations, which is an accepted
// trade-off since the user can simply follow the join link again.
package authflow

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrStateNotFound = errors.New("authorization state not found")
	ErrStateExpired  = errors.New("authorization state expired")
)

// TTL is how long a pending authorization stays consumable.
const TTL = 10 * time.Minute

// PendingAuthorization records who asked to join which server, keyed by the
// opaque state embedded in the provider's authorize URL.
type PendingAuthorization struct {
	State     string
	ServerID  string
	UserID    string
	CreatedAt time.Time
}

// Store holds pending authorizations in a mutex-guarded map. Begin, Consume
// and the sweeper all serialize on the same lock, so lookup-and-remove is
// indivisible per state.
type Store struct {
	mu      sync.Mutex
	pending map[string]PendingAuthorization
}

// NewStore creates an empty pending-authorization store.
func NewStore() *Store {
	return &Store{
		pending: make(map[string]PendingAuthorization),
	}
}

// Begin registers a new pending authorization and returns its opaque state.
func (s *Store) Begin(serverID, userID string, now time.Time) string {
	state := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[state] = PendingAuthorization{
		State:     state,
		ServerID:  serverID,
		UserID:    userID,
		CreatedAt: now,
	}
	return state
}

// Consume atomically removes and returns the pending authorization for
// state. A state is consumable exactly once: a second Consume with the same
// value fails with ErrStateNotFound. Entries older than TTL fail with
// ErrStateExpired and are removed as well.
func (s *Store) Consume(state string, now time.Time) (*PendingAuthorization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pa, ok := s.pending[state]
	if !ok {
		return nil, ErrStateNotFound
	}
	delete(s.pending, state)

	if now.Sub(pa.CreatedAt) > TTL {
		return nil, ErrStateExpired
	}
	return &pa, nil
}

// Sweep removes every pending authorization older than TTL. It bounds memory
// and closes the replay window for callbacks that never arrive.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for state, pa := range s.pending {
		if now.Sub(pa.CreatedAt) > TTL {
			delete(s.pending, state)
			removed++
		}
	}
	return removed
}

// Len returns the number of pending authorizations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
