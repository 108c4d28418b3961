package event

import (
	"github.com/dshills/eventsys/internal/typedesc"
)

// Event is an instance of a generated event type.
type Event interface {
	PropertyHolder
	typedesc.Instance

	// Call invokes a method of the event's type.
	Call(method string, args ...any) (any, error)
}

// PropertyHolder exposes named, typed properties.
type PropertyHolder interface {
	// Properties returns every property in declaration order.
	Properties() []Property

	// Property returns the property with the given name whose type is
	// assignable to t.
	Property(name string, t typedesc.Type) (Property, bool)

	// GetterProperty is like Property but only returns readable properties.
	GetterProperty(name string, t typedesc.Type) (GetterProperty, bool)
}

// Property is a named, typed attribute.
type Property interface {
	Name() string
	Type() typedesc.Type
}

// GetterProperty is a readable property. A nil result means the value is
// absent.
type GetterProperty interface {
	Property
	Get() any
}

// SetterProperty is a writable property.
type SetterProperty interface {
	Property
	Set(v any) error
}

// Root capability descriptors.
var (
	// EventType is the capability every event type extends.
	EventType = typedesc.Interface("eventsys.Event", nil)

	// CancellableType marks events that can be cancelled by listeners.
	CancellableType = typedesc.Interface("eventsys.Cancellable", []*typedesc.Descriptor{EventType},
		typedesc.Method{Name: "isCancelled", Returns: typedesc.Bool},
		typedesc.Method{Name: "setCancelled", Params: []typedesc.Param{{Name: "cancelled", Type: typedesc.Bool}}},
	)
)

// CancelledProperty is the conventional name of the cancellation flag.
const CancelledProperty = "cancelled"

// IsCancelled reports whether evt is a cancellable event that has been
// cancelled.
func IsCancelled(evt Event) bool {
	p, ok := evt.GetterProperty(CancelledProperty, typedesc.Bool)
	if !ok {
		return false
	}
	b, _ := p.Get().(bool)
	return b
}

// FindProperty returns the first property in props named name whose type is
// assignable to t.
func FindProperty(props []Property, name string, t typedesc.Type) (Property, bool) {
	for _, p := range props {
		if p.Name() != name {
			continue
		}
		if t == nil || p.Type() == t || p.Type().AssignableTo(t) {
			return p, true
		}
	}
	return nil, false
}
