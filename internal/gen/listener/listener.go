// Package listener synthesizes dispatch adapters that deliver events to Go
// methods and functions.
//
// An adapter implements event.Listener. Its onEvent body takes the event,
// resolves each remaining target parameter from an event property by name
// and type, and calls the target. A missing non-nullable property skips the
// call. Priority, phase and the ignore-cancelled flag are constants of the
// synthesized type.
package listener

import (
	"context"
	"fmt"
	"reflect"

	"github.com/dshills/eventsys/internal/event"
	"github.com/dshills/eventsys/internal/gen/emit"
	"github.com/dshills/eventsys/internal/gen/install"
	"github.com/dshills/eventsys/internal/spec"
	"github.com/dshills/eventsys/internal/typedesc"
)

// InstanceField holds the receiver of instance targets.
const InstanceField = "instance"

// Adapter method names.
const (
	MethodOnEvent         = "onEvent"
	MethodPriority        = "getPriority"
	MethodPhase           = "getPhase"
	MethodIgnoreCancelled = "getIgnoreCancelled"
)

// NameFor returns the artifact name of the adapter for target.
func NameFor(target typedesc.Target) string {
	return "eventsys.generated._" + typedesc.Mangle(typedesc.OwnerName(target.Owner)) + "_" + target.Name
}

// Synthesize builds the adapter declaration for target. The declaring type
// of the target must be exposed by the installing loader under
// emit.OwnerSymbol.
func Synthesize(target typedesc.Target, s spec.ListenerSpec) (*emit.TypeDecl, emit.Symbols, error) {
	fail := func(reason string) (*emit.TypeDecl, emit.Symbols, error) {
		owner := "<nil>"
		if target.Owner != nil {
			owner = typedesc.OwnerName(target.Owner)
		}
		return nil, nil, &event.ConfigError{Type: owner, Method: target.Name, Reason: reason}
	}
	switch {
	case target.Owner == nil || !target.Func.IsValid():
		return fail("listener target is incomplete")
	case s.EventType == nil:
		return fail("listener has no event type")
	case len(s.Parameters) == 0:
		return fail("listener must accept the event")
	}

	syms := emit.Symbols{}
	targetSym := emit.TargetSymbol(target)
	syms[targetSym] = target

	decl := &emit.TypeDecl{
		Name:     NameFor(target),
		Kind:     emit.KindListener,
		Requires: []string{emit.OwnerSymbol(target.Owner)},
	}
	if !target.Static {
		decl.Fields = []emit.Field{{Name: InstanceField, Type: syms.AddType(typedesc.Any)}}
		decl.Ctor = []string{InstanceField}
	}

	fetch := make([]emit.Fetch, 0, len(s.Parameters))
	fetch = append(fetch, emit.Fetch{Name: s.Parameters[0].Name, Type: syms.AddType(s.EventType)})
	for _, p := range s.Parameters[1:] {
		if p.Type == nil {
			return fail(fmt.Sprintf("parameter %s has no type", p.Name))
		}
		fetch = append(fetch, emit.Fetch{
			Name:     p.Name,
			Type:     syms.AddType(p.Type),
			Nullable: p.Nullable,
			Property: p.Property,
		})
	}

	intSym := syms.AddType(typedesc.Int)
	decl.Methods = []emit.Method{
		{Name: MethodPriority, Returns: intSym, Body: emit.Op{Code: emit.OpReturnConst, Const: int(s.Priority)}},
		{Name: MethodPhase, Returns: intSym, Body: emit.Op{Code: emit.OpReturnConst, Const: s.Phase}},
		{Name: MethodIgnoreCancelled, Returns: syms.AddType(typedesc.Bool), Body: emit.Op{Code: emit.OpReturnConst, Const: s.IgnoreCancelled}},
		{
			Name:   MethodOnEvent,
			Params: []string{syms.AddType(typedesc.TypeFor[context.Context]()), syms.AddType(event.EventType)},
			Body: emit.Op{
				Code:   emit.OpDispatch,
				Symbol: targetSym,
				Field:  InstanceField,
				Fetch:  fetch,
			},
		},
	}
	return decl, syms, nil
}

// Adapter is an instantiated dispatch adapter.
type Adapter struct {
	obj             *install.Object
	priority        event.Priority
	phase           int
	ignoreCancelled bool
}

var _ event.Listener = (*Adapter)(nil)

// NewAdapter instantiates the adapter unit u for target. Instance targets
// require an instance assignable to the target receiver; static targets
// ignore instance.
func NewAdapter(u *install.Unit, target typedesc.Target, instance any) (*Adapter, error) {
	var (
		obj *install.Object
		err error
	)
	if target.Static {
		obj, err = u.New()
	} else {
		if err := checkInstance(target, instance); err != nil {
			return nil, err
		}
		obj, err = u.New(instance)
	}
	if err != nil {
		return nil, err
	}

	priority, err := accessor[int](u, obj, MethodPriority)
	if err != nil {
		return nil, err
	}
	phase, err := accessor[int](u, obj, MethodPhase)
	if err != nil {
		return nil, err
	}
	ignoreCancelled, err := accessor[bool](u, obj, MethodIgnoreCancelled)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		obj:             obj,
		priority:        event.Priority(priority),
		phase:           phase,
		ignoreCancelled: ignoreCancelled,
	}, nil
}

// accessor reads one of the constant accessors of an adapter object.
func accessor[T any](u *install.Unit, obj *install.Object, method string) (T, error) {
	var zero T
	v, err := obj.Call(method)
	if err != nil {
		return zero, fmt.Errorf("adapter %s: %s: %w", u.Name(), method, err)
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("adapter %s: %s returned %T, want %T", u.Name(), method, v, zero)
	}
	return out, nil
}

func checkInstance(target typedesc.Target, instance any) error {
	owner := typedesc.OwnerName(target.Owner)
	if instance == nil {
		return &event.ConfigError{Type: owner, Method: target.Name, Reason: "instance listener requires an instance"}
	}
	if rt := target.Receiver(); !reflect.TypeOf(instance).AssignableTo(rt) {
		return &event.ConfigError{
			Type:   owner,
			Method: target.Name,
			Reason: fmt.Sprintf("instance of type %T is not a %s", instance, rt),
		}
	}
	return nil
}

// OnEvent implements event.Listener.
func (a *Adapter) OnEvent(ctx context.Context, evt event.Event) error {
	_, err := a.obj.Call(MethodOnEvent, ctx, evt)
	return err
}

// Priority implements event.Listener.
func (a *Adapter) Priority() event.Priority { return a.priority }

// Phase implements event.Listener.
func (a *Adapter) Phase() int { return a.phase }

// IgnoreCancelled implements event.Listener.
func (a *Adapter) IgnoreCancelled() bool { return a.ignoreCancelled }

// Unit returns the adapter unit.
func (a *Adapter) Unit() *install.Unit { return a.obj.Unit() }
