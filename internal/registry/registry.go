// Package registry maps CMS type names to implementations. A registry is
// filled once at startup, frozen, and then only read, so lookups need no
// locking beyond the build phase.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry is a case-insensitive name to value table.
type Registry[T any] struct {
	kind    string
	entries map[string]entry[T]
	frozen  bool
	mutex   sync.RWMutex
}

type entry[T any] struct {
	name  string
	value T
}

// New creates an empty registry. kind names what it holds ("module",
// "template") in panic messages.
func New[T any](kind string) *Registry[T] {
	return &Registry[T]{
		kind:    kind,
		entries: make(map[string]entry[T]),
	}
}

// Key is the lookup key for a type name.
func Key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds value under name. Registering an empty name, a duplicate
// name, or into a frozen registry is a programming error and panics.
func (r *Registry[T]) Register(name string, value T) *Registry[T] {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := Key(name)
	switch {
	case r.frozen:
		panic(fmt.Sprintf("registry: %s %q registered after freeze", r.kind, name))
	case key == "":
		panic(fmt.Sprintf("registry: empty %s name", r.kind))
	}
	if existing, dup := r.entries[key]; dup {
		panic(fmt.Sprintf("registry: %s %q collides with %q", r.kind, name, existing.name))
	}
	r.entries[key] = entry[T]{name: name, value: value}
	return r
}

// Freeze makes the registry read-only.
func (r *Registry[T]) Freeze() *Registry[T] {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.frozen = true
	return r
}

func (r *Registry[T]) Frozen() bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.frozen
}

// Get looks a name up, ignoring case.
func (r *Registry[T]) Get(name string) (T, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	e, ok := r.entries[Key(name)]
	return e.value, ok
}

// Names returns the registered names as given, sorted case-insensitively.
func (r *Registry[T]) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.name)
	}
	sort.Slice(names, func(i, j int) bool { return Key(names[i]) < Key(names[j]) })
	return names
}

// Count returns the number of registered names.
func (r *Registry[T]) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.entries)
}
