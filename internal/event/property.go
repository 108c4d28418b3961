package event

import (
	"fmt"
	"sync"

	"github.com/dshills/eventsys/internal/typedesc"
)

// ValueProperty is a standalone mutable property backed by its own value.
type ValueProperty struct {
	name string
	typ  typedesc.Type

	mu    sync.RWMutex
	value any
}

// NewValueProperty returns a property holding v.
func NewValueProperty(name string, t typedesc.Type, v any) *ValueProperty {
	return &ValueProperty{name: name, typ: t, value: v}
}

// Name implements Property.
func (p *ValueProperty) Name() string { return p.name }

// Type implements Property.
func (p *ValueProperty) Type() typedesc.Type { return p.typ }

// Get implements GetterProperty.
func (p *ValueProperty) Get() any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}

// Set implements SetterProperty.
func (p *ValueProperty) Set(v any) error {
	cv, err := typedesc.Coerce(v, p.typ)
	if err != nil {
		return fmt.Errorf("property %s: %w", p.name, err)
	}
	p.mu.Lock()
	p.value = cv
	p.mu.Unlock()
	return nil
}

// FuncProperty adapts accessor functions to the property interfaces. A nil
// set makes the property read-only.
type FuncProperty struct {
	name string
	typ  typedesc.Type
	get  func() any
	set  func(any) error
}

// NewFuncProperty returns a property delegating to get and set.
func NewFuncProperty(name string, t typedesc.Type, get func() any, set func(any) error) *FuncProperty {
	return &FuncProperty{name: name, typ: t, get: get, set: set}
}

// Name implements Property.
func (p *FuncProperty) Name() string { return p.name }

// Type implements Property.
func (p *FuncProperty) Type() typedesc.Type { return p.typ }

// Get implements GetterProperty.
func (p *FuncProperty) Get() any { return p.get() }

// Set implements SetterProperty. It fails with ErrReadOnly for read-only
// properties.
func (p *FuncProperty) Set(v any) error {
	if p.set == nil {
		return fmt.Errorf("property %s: %w", p.name, ErrReadOnly)
	}
	return p.set(v)
}

// Writable reports whether Set is supported.
func (p *FuncProperty) Writable() bool { return p.set != nil }
