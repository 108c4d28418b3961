package spec

import (
	"context"
	"fmt"
	"reflect"

	"github.com/dshills/eventsys/internal/event"
	"github.com/dshills/eventsys/internal/typedesc"
)

// ListenerParameter describes one target parameter resolved from the event.
type ListenerParameter struct {
	Name string

	// Type is the property value type used for lookup.
	Type typedesc.Type

	// Nullable parameters receive nil when the property is absent.
	Nullable bool

	// Property parameters receive the property object instead of its value.
	Property bool
}

// ListenerSpec describes a dispatch adapter. The first parameter is always
// the event itself.
type ListenerSpec struct {
	EventType       *typedesc.Descriptor
	Parameters      []ListenerParameter
	Priority        event.Priority
	Phase           int
	IgnoreCancelled bool
}

// ListenerMeta is the declarative metadata attached to a listener method.
type ListenerMeta struct {
	// EventType is the accepted event type. Defaults to event.EventType.
	EventType *typedesc.Descriptor

	// Names lists the property names of the parameters following the event
	// parameter, in order.
	Names []string

	// PropertyTypes gives the value type for property-object parameters.
	// Missing entries default to typedesc.Any.
	PropertyTypes map[string]typedesc.Type

	Priority        event.Priority
	Phase           int
	IgnoreCancelled bool
}

var (
	contextType    = reflect.TypeFor[context.Context]()
	eventType      = reflect.TypeFor[event.Event]()
	errorType      = reflect.TypeFor[error]()
	propertyType   = reflect.TypeFor[event.Property]()
	getterPropType = reflect.TypeFor[event.GetterProperty]()
	setterPropType = reflect.TypeFor[event.SetterProperty]()
)

// WantsContext reports whether the target takes a leading context.Context.
func WantsContext(t typedesc.Target) bool {
	ps := t.Params()
	return len(ps) > 0 && ps[0] == contextType
}

// IsPropertyParam reports whether a Go parameter type receives a property
// object rather than a value.
func IsPropertyParam(rt reflect.Type) bool {
	return rt == propertyType || rt == getterPropType || rt == setterPropType
}

// ListenerSpecFromTarget derives the listener specification of a target.
//
// The target takes an optional context.Context, then the event, then one
// parameter per entry of meta.Names. It returns nothing or an error.
// Pointer and interface parameters are nullable; pointer parameters are
// looked up by their element type.
func ListenerSpecFromTarget(t typedesc.Target, meta ListenerMeta) (ListenerSpec, error) {
	owner := typedesc.OwnerName(t.Owner)
	fail := func(param, reason string) (ListenerSpec, error) {
		return ListenerSpec{}, &event.ConfigError{Type: owner, Method: t.Name, Parameter: param, Reason: reason}
	}

	ft := t.Func.Type()
	switch {
	case ft.NumOut() == 0:
	case ft.NumOut() == 1 && ft.Out(0) == errorType:
	default:
		return fail("", "listener must return nothing or an error")
	}

	ps := t.Params()
	if WantsContext(t) {
		ps = ps[1:]
	}
	if len(ps) == 0 {
		return fail("", "listener must accept the event")
	}
	if !eventType.AssignableTo(ps[0]) {
		return fail("event", fmt.Sprintf("first parameter %s cannot hold an event", ps[0]))
	}
	ps = ps[1:]
	if len(ps) != len(meta.Names) {
		return fail("", fmt.Sprintf("%d parameters but %d names", len(ps), len(meta.Names)))
	}

	evtType := meta.EventType
	if evtType == nil {
		evtType = event.EventType
	}

	s := ListenerSpec{
		EventType:       evtType,
		Parameters:      make([]ListenerParameter, 0, len(ps)+1),
		Priority:        meta.Priority,
		Phase:           meta.Phase,
		IgnoreCancelled: meta.IgnoreCancelled,
	}
	s.Parameters = append(s.Parameters, ListenerParameter{Name: "event", Type: evtType})

	for i, rt := range ps {
		name := meta.Names[i]
		if name == "" {
			return fail(fmt.Sprintf("#%d", i+1), "parameter has no name")
		}
		p := ListenerParameter{Name: name}
		switch {
		case IsPropertyParam(rt):
			p.Property = true
			p.Nullable = true
			p.Type = meta.PropertyTypes[name]
			if p.Type == nil {
				p.Type = typedesc.Any
			}
		case rt.Kind() == reflect.Pointer:
			p.Nullable = true
			p.Type = typedesc.Of(rt.Elem())
		case rt.Kind() == reflect.Interface:
			p.Nullable = true
			p.Type = typedesc.Of(rt)
		default:
			p.Type = typedesc.Of(rt)
		}
		s.Parameters = append(s.Parameters, p)
	}
	return s, nil
}
