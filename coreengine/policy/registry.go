package policy

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is a thread-safe MethodKey → Descriptor table.
//
// Registrations normally happen during setup, before calls begin. Runtime
// re-registration is allowed and is mutually exclusive with lookups.
type Registry struct {
	descriptors map[MethodKey]Descriptor
	mu          sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		descriptors: make(map[MethodKey]Descriptor),
	}
}

// Register attaches d to key. An existing descriptor for the key is replaced.
func (r *Registry) Register(key MethodKey, d Descriptor) error {
	if key.IsZero() {
		return fmt.Errorf("policy: method name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.descriptors[key] = d
	return nil
}

// RegisterType attaches descriptors for several methods of one type.
// The map is keyed by method name.
func (r *Registry) RegisterType(typeName string, methods map[string]Descriptor) error {
	entries := make(map[MethodKey]Descriptor, len(methods))
	for name, d := range methods {
		key := NewMethodKey(typeName, name)
		if key.IsZero() {
			return fmt.Errorf("policy: empty method name for type %q", typeName)
		}
		if _, dup := entries[key]; dup {
			return fmt.Errorf("policy: duplicate method %q for type %q", key.Method, typeName)
		}
		entries[key] = d
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for key, d := range entries {
		r.descriptors[key] = d
	}
	return nil
}

// Unregister removes the descriptor for key. It reports whether one existed.
func (r *Registry) Unregister(key MethodKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.descriptors[key]
	delete(r.descriptors, key)
	return exists
}

// Lookup implements the Lookup interface.
func (r *Registry) Lookup(key MethodKey) (Descriptor, bool) {
	if r == nil {
		return Descriptor{}, false
	}

	r.mu.RLock()
	d, ok := r.descriptors[key]
	r.mu.RUnlock()
	return d, ok
}

// Keys returns all registered keys sorted by their string form.
func (r *Registry) Keys() []MethodKey {
	r.mu.RLock()
	keys := make([]MethodKey, 0, len(r.descriptors))
	for k := range r.descriptors {
		keys = append(keys, k)
	}
	r.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.descriptors)
}

// Clear removes all descriptors. Useful for testing.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.descriptors = make(map[MethodKey]Descriptor)
}

// Ensure Registry implements Lookup.
var _ Lookup = (*Registry)(nil)
