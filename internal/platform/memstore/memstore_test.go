package memstore

import (
	"sort"
	"testing"
)

func TestMap_GetSetDelete(t *testing.T) {
	m := New[string, int]()
	if _, ok := m.Get("a"); ok {
		t.Error("expected missing key")
	}
	m.Set("a", 1)
	m.Set("a", 2)
	if v, ok := m.Get("a"); !ok || v != 2 {
		t.Errorf("Get(a) = %d, %v; want 2, true", v, ok)
	}
	m.Delete("a")
	m.Delete("missing")
	if _, ok := m.Get("a"); ok {
		t.Error("expected key to be deleted")
	}
	if m.Len() != 0 {
		t.Errorf("Len = %d, want 0", m.Len())
	}
}

func TestMap_Keys(t *testing.T) {
	m := New[string, bool]()
	for _, k := range []string{"b", "a", "c", "a"} {
		m.Set(k, true)
	}
	keys := m.Keys()
	sort.Strings(keys)
	if len(keys) != 3 || keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Errorf("Keys = %v", keys)
	}
}

func TestMap_satisfies_Store(t *testing.T) {
	var _ Store[int, string] = New[int, string]()
}
