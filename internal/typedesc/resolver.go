package typedesc

import (
	"sync"
)

// Structure is the flattened view of a descriptor.
type Structure struct {
	Descriptor *Descriptor

	// Supertypes lists every transitive supertype in depth-first order,
	// without duplicates and excluding the descriptor itself.
	Supertypes []*Descriptor

	// Methods lists every method visible on the descriptor. A method
	// declared on a subtype hides a method with the same signature on a
	// supertype.
	Methods []Method

	// Abstract is the subset of Methods that need an implementation.
	Abstract []Method
}

// Lookup finds a visible method by signature.
func (s *Structure) Lookup(sig string) (Method, bool) {
	for _, m := range s.Methods {
		if m.Signature() == sig {
			return m, true
		}
	}
	return Method{}, false
}

// Resolver memoizes structures per descriptor. It is safe for concurrent
// use.
type Resolver struct {
	mu    sync.RWMutex
	cache map[*Descriptor]*Structure
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{cache: make(map[*Descriptor]*Structure)}
}

var defaultResolver = NewResolver()

// Resolve returns the memoized structure of d using the package resolver.
func Resolve(d *Descriptor) *Structure {
	return defaultResolver.Resolve(d)
}

// Resolve returns the memoized structure of d.
func (r *Resolver) Resolve(d *Descriptor) *Structure {
	r.mu.RLock()
	s, ok := r.cache[d]
	r.mu.RUnlock()
	if ok {
		return s
	}

	s = flatten(d)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.cache[d]; ok {
		return existing
	}
	r.cache[d] = s
	return s
}

// Len returns the number of memoized structures.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

func flatten(d *Descriptor) *Structure {
	s := &Structure{Descriptor: d}

	seen := make(map[*Descriptor]bool)
	var walk func(*Descriptor)
	walk = func(cur *Descriptor) {
		for _, sup := range cur.Extends {
			if seen[sup] {
				continue
			}
			seen[sup] = true
			s.Supertypes = append(s.Supertypes, sup)
			walk(sup)
		}
	}
	walk(d)

	sigs := make(map[string]bool)
	add := func(ms []Method) {
		for _, m := range ms {
			sig := m.Signature()
			if sigs[sig] {
				continue
			}
			sigs[sig] = true
			s.Methods = append(s.Methods, m)
		}
	}
	add(d.Methods)
	for _, sup := range s.Supertypes {
		add(sup.Methods)
	}

	for _, m := range s.Methods {
		if m.Abstract() {
			s.Abstract = append(s.Abstract, m)
		}
	}
	return s
}

// FindImplementation looks for a static method on holder that implements m.
// A match has the same name and takes the receiving object followed by
// parameters of the same types as m. Untyped provider parameters (Any)
// match any type.
func FindImplementation(holder *Descriptor, m Method) (Method, bool) {
	if holder == nil {
		return Method{}, false
	}
	for _, cand := range holder.Methods {
		if !cand.Static || cand.Name != m.Name || cand.Body == nil {
			continue
		}
		if len(cand.Params) != len(m.Params)+1 {
			continue
		}
		match := true
		for i, p := range m.Params {
			ct := cand.Params[i+1].Type
			if ct == nil || isAny(ct) {
				continue
			}
			if ct != p.Type {
				match = false
				break
			}
		}
		if match {
			return cand, true
		}
	}
	return Method{}, false
}
