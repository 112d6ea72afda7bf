package recording

import (
	"errors"
	"sort"
	"sync"

	"noise-recorder/internal/platform/memstore"
)

// Store is the persistence abstraction for session state. The Repository
// uses it for all reads and writes.
type Store = memstore.Store[SessionID, *SessionState]

// Repository defines the concurrency-safe contract for session state.
type Repository interface {
	// Create stores a new session. It fails with ErrSessionExists if the
	// ID is taken.
	Create(st SessionState) error

	// Update applies fn to the stored session under the write lock.
	Update(id SessionID, fn func(*SessionState)) error

	// Get returns a copy of the session.
	Get(id SessionID) (SessionState, bool)

	// List returns copies of all sessions ordered by start time.
	List() []SessionState

	// LiveCount returns the number of sessions that are not unloaded.
	// Used for metrics.
	LiveCount() int
}

var (
	// ErrSessionNotFound is returned for an unknown session ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExists is returned when creating a session twice.
	ErrSessionExists = errors.New("session already exists")
)

// InMemoryRepository is a concurrency-safe Repository over a Store; by
// default that is an in-memory memstore.Map.
type InMemoryRepository struct {
	mu    sync.RWMutex
	store Store
}

// NewInMemoryRepository constructs a repository with a default in-memory store.
func NewInMemoryRepository() *InMemoryRepository {
	return NewInMemoryRepositoryWithStore(memstore.New[SessionID, *SessionState]())
}

// NewInMemoryRepositoryWithStore constructs a repository that uses the given Store.
func NewInMemoryRepositoryWithStore(store Store) *InMemoryRepository {
	return &InMemoryRepository{store: store}
}

// Create implements Repository.Create.
func (r *InMemoryRepository) Create(st SessionState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.store.Get(st.ID); exists {
		return ErrSessionExists
	}
	cp := st.clone()
	r.store.Set(cp.ID, &cp)
	return nil
}

// Update implements Repository.Update.
func (r *InMemoryRepository) Update(id SessionID, fn func(*SessionState)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.store.Get(id)
	if !ok {
		return ErrSessionNotFound
	}
	fn(st)
	r.store.Set(id, st)
	return nil
}

// Get implements Repository.Get.
func (r *InMemoryRepository) Get(id SessionID) (SessionState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.store.Get(id)
	if !ok {
		return SessionState{}, false
	}
	return st.clone(), true
}

// List implements Repository.List.
func (r *InMemoryRepository) List() []SessionState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.store.Keys()
	out := make([]SessionState, 0, len(ids))
	for _, id := range ids {
		if st, ok := r.store.Get(id); ok {
			out = append(out, st.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// LiveCount implements Repository.LiveCount.
func (r *InMemoryRepository) LiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, id := range r.store.Keys() {
		if st, ok := r.store.Get(id); ok && st.Status != StatusUnloaded {
			n++
		}
	}
	return n
}
