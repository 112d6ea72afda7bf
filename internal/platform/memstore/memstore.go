// Package memstore is the keyed persistence layer behind the blob registry
// and the session repository.
package memstore

// Store is the persistence abstraction the registries build on.
// Implementations can be in-memory, file-based, or remote. Callers serialise
// access, so implementations need not be concurrency-safe.
type Store[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, v V)
	Delete(key K)
	Keys() []K
}

// Map is an in-memory Store.
type Map[K comparable, V any] struct {
	items map[K]V
}

// New returns an empty Map.
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{items: make(map[K]V)}
}

// Get implements Store.Get.
func (m *Map[K, V]) Get(key K) (V, bool) {
	v, ok := m.items[key]
	return v, ok
}

// Set implements Store.Set.
func (m *Map[K, V]) Set(key K, v V) {
	m.items[key] = v
}

// Delete implements Store.Delete.
func (m *Map[K, V]) Delete(key K) {
	delete(m.items, key)
}

// Keys implements Store.Keys. Order is unspecified.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of stored items.
func (m *Map[K, V]) Len() int { return len(m.items) }
