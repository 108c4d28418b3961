package install

import (
	"sort"
	"sync"
)

// Loader is an execution context artifacts are installed into. It owns a
// symbol table and the units installed into it. Lookups fall back to the
// parent loader.
//
// Loader is safe for concurrent use.
type Loader struct {
	name   string
	parent *Loader

	mu      sync.RWMutex
	symbols map[string]any
	units   map[string]*Unit
}

// NewLoader creates a loader. parent may be nil.
func NewLoader(name string, parent *Loader) *Loader {
	return &Loader{
		name:    name,
		parent:  parent,
		symbols: make(map[string]any),
		units:   make(map[string]*Unit),
	}
}

// Name returns the loader name.
func (l *Loader) Name() string {
	return l.name
}

// Parent returns the parent loader, or nil.
func (l *Loader) Parent() *Loader {
	return l.parent
}

// Expose makes v visible under symbol to artifacts installed in l and its
// children.
func (l *Loader) Expose(symbol string, v any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.symbols[symbol] = v
}

// Lookup resolves symbol in l or its ancestors.
func (l *Loader) Lookup(symbol string) (any, bool) {
	for cur := l; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		v, ok := cur.symbols[symbol]
		cur.mu.RUnlock()
		if ok {
			return v, true
		}
	}
	return nil, false
}

// Unit returns the unit installed under name in l or its ancestors.
func (l *Loader) Unit(name string) (*Unit, bool) {
	for cur := l; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		u, ok := cur.units[name]
		cur.mu.RUnlock()
		if ok {
			return u, true
		}
	}
	return nil, false
}

// Units returns the names of units installed directly in l, sorted.
func (l *Loader) Units() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.units))
	for n := range l.units {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// add registers u unless its name is taken in l. Ancestors are not
// consulted: different loaders may hold units of the same name.
func (l *Loader) add(u *Unit) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.units[u.name]; exists {
		return false
	}
	l.units[u.name] = u
	return true
}

func (l *Loader) hasDirect(name string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.units[name]
	return ok
}
