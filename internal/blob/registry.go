package blob

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"noise-recorder/internal/platform/memstore"
)

// Store keeps live object URLs keyed by their uuid.
type Store = memstore.Store[string, *Blob]

// Scheme prefixes every object URL.
const Scheme = "blob:"

// Registry mints and revokes object URLs of the form blob:<origin>/<uuid>.
// A URL resolves until it is revoked; revoking does not affect the Blob.
type Registry struct {
	mu     sync.RWMutex
	origin string
	store  Store
}

// NewRegistry returns a registry for origin backed by an in-memory store.
func NewRegistry(origin string) *Registry {
	return NewRegistryWithStore(origin, memstore.New[string, *Blob]())
}

// NewRegistryWithStore returns a registry that keeps references in store.
func NewRegistryWithStore(origin string, store Store) *Registry {
	return &Registry{origin: strings.TrimSuffix(origin, "/"), store: store}
}

// CreateObjectURL returns a fresh URL referencing b.
func (r *Registry) CreateObjectURL(b *Blob) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.store.Set(id, b)
	r.mu.Unlock()
	return Scheme + r.origin + "/" + id
}

// Resolve returns the Blob behind a live URL.
func (r *Registry) Resolve(url string) (*Blob, bool) {
	id, ok := r.idOf(url)
	if !ok {
		return nil, false
	}
	return r.ResolveID(id)
}

// ResolveID is Resolve keyed by the trailing uuid only.
func (r *Registry) ResolveID(id string) (*Blob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.Get(id)
}

// RevokeObjectURL releases url. Unknown or malformed URLs are ignored.
func (r *Registry) RevokeObjectURL(url string) {
	id, ok := r.idOf(url)
	if !ok {
		return
	}
	r.mu.Lock()
	r.store.Delete(id)
	r.mu.Unlock()
}

// Len returns the number of live URLs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.store.Keys())
}

// ID extracts the uuid part of an object URL.
func ID(url string) (string, bool) {
	if !strings.HasPrefix(url, Scheme) {
		return "", false
	}
	i := strings.LastIndexByte(url, '/')
	if i < 0 {
		return "", false
	}
	id := url[i+1:]
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

func (r *Registry) idOf(url string) (string, bool) {
	if !strings.HasPrefix(url, Scheme+r.origin+"/") {
		return "", false
	}
	return ID(url)
}
