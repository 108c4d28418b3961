package install

import (
	"fmt"
	"sync"

	"github.com/dshills/eventsys/internal/event"
	"github.com/dshills/eventsys/internal/typedesc"
)

// Object is an instance of a Unit. Objects of event units implement
// event.Event.
//
// Object is safe for concurrent use.
type Object struct {
	unit *Unit

	mu     sync.RWMutex
	values []any

	props []event.Property
}

var _ event.Event = (*Object)(nil)

// Unit returns the unit o was created from.
func (o *Object) Unit() *Unit {
	return o.unit
}

// TypeDescriptor implements typedesc.Instance. It returns the primary
// capability of the unit.
func (o *Object) TypeDescriptor() *typedesc.Descriptor {
	return o.unit.Primary()
}

// Implements reports whether o implements t.
func (o *Object) Implements(t *typedesc.Descriptor) bool {
	return o.unit.Implements(t)
}

// Call invokes a method by name.
func (o *Object) Call(name string, args ...any) (any, error) {
	m, ok := o.unit.methods[name]
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", o.unit.name, name, event.ErrNoSuchMethod)
	}
	return m(o, args)
}

// Has reports whether the object's unit declares a method.
func (o *Object) Has(name string) bool {
	_, ok := o.unit.methods[name]
	return ok
}

// Properties implements event.PropertyHolder.
func (o *Object) Properties() []event.Property {
	out := make([]event.Property, len(o.props))
	copy(out, o.props)
	return out
}

// Property implements event.PropertyHolder.
func (o *Object) Property(name string, t typedesc.Type) (event.Property, bool) {
	return event.FindProperty(o.props, name, t)
}

// GetterProperty implements event.PropertyHolder.
func (o *Object) GetterProperty(name string, t typedesc.Type) (event.GetterProperty, bool) {
	p, ok := event.FindProperty(o.props, name, t)
	if !ok {
		return nil, false
	}
	gp, ok := p.(event.GetterProperty)
	return gp, ok
}

// String returns the unit name.
func (o *Object) String() string {
	return o.unit.name
}

func (o *Object) load(i int) any {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.values[i]
}

func (o *Object) store(i int, v any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.values[i] = v
}

func (o *Object) property(p propSlot) event.Property {
	get := func() any { return o.load(p.field) }
	var set func(any) error
	if p.writable {
		set = func(v any) error {
			cv, err := typedesc.Coerce(v, p.typ)
			if err != nil {
				return fmt.Errorf("property %s: %w", p.name, err)
			}
			o.store(p.field, cv)
			return nil
		}
	}
	return event.NewFuncProperty(p.name, p.typ, get, set)
}
