// Package extension provides the process-wide registry of extensions that
// every generated implementation of a base event type must include.
package extension

import (
	"sync"

	"github.com/dshills/eventsys/internal/spec"
	"github.com/dshills/eventsys/internal/typedesc"
)

// Registry maps base event types to their registered extensions.
// It only grows: there is no removal API.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	// keys preserves first-registration order for the compatibility
	// fallback.
	keys    []*typedesc.Descriptor
	entries map[*typedesc.Descriptor][]spec.ExtensionSpecification
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[*typedesc.Descriptor][]spec.ExtensionSpecification),
	}
}

// Register appends ext to the extensions of base. Registering an extension
// that is already present is a no-op. It reports whether ext was added.
func (r *Registry) Register(base *typedesc.Descriptor, ext spec.ExtensionSpecification) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, ok := r.entries[base]
	if !ok {
		r.keys = append(r.keys, base)
	}
	for _, e := range list {
		if e == ext {
			return false
		}
	}
	r.entries[base] = append(list, ext)
	return true
}

// Lookup returns the extensions for t. An exact entry wins; otherwise the
// first registered base that t is assignable to is used. The returned slice
// is a copy.
func (r *Registry) Lookup(t *typedesc.Descriptor) []spec.ExtensionSpecification {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if list, ok := r.entries[t]; ok {
		return clone(list)
	}
	for _, k := range r.keys {
		if t.AssignableTo(k) {
			return clone(r.entries[k])
		}
	}
	return nil
}

// Len returns the number of base types with registered extensions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}

// Entry is a snapshot of one registry key.
type Entry struct {
	Base       *typedesc.Descriptor
	Extensions []spec.ExtensionSpecification
}

// Entries returns a snapshot of the registry in registration order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, Entry{Base: k, Extensions: clone(r.entries[k])})
	}
	return out
}

func clone(list []spec.ExtensionSpecification) []spec.ExtensionSpecification {
	if len(list) == 0 {
		return nil
	}
	out := make([]spec.ExtensionSpecification, len(list))
	copy(out, list)
	return out
}
