package install

import (
	"context"
	"fmt"
	"reflect"

	"github.com/dshills/eventsys/internal/event"
	"github.com/dshills/eventsys/internal/gen/emit"
	"github.com/dshills/eventsys/internal/spec"
	"github.com/dshills/eventsys/internal/typedesc"
)

type fetchSlot struct {
	emit.Fetch
	typ    typedesc.Type
	goType reflect.Type
}

// linkDispatch builds the listener dispatch body. The linked method takes
// (ctx, event). Fetch[0] describes the event parameter; the remaining
// entries resolve target parameters from event properties.
func linkDispatch(u *Unit, op emit.Op, resolve func(string) (any, error), resolveType func(string) (typedesc.Type, error)) (method, error) {
	sym, err := resolve(op.Symbol)
	if err != nil {
		return nil, err
	}
	target, ok := sym.(typedesc.Target)
	if !ok {
		return nil, fmt.Errorf("symbol %s is not a listener target", op.Symbol)
	}
	if len(op.Fetch) == 0 {
		return nil, fmt.Errorf("dispatch %s has no event parameter", op.Symbol)
	}

	instance := -1
	if !target.Static {
		instance = u.decl.FieldIndex(op.Field)
		if instance < 0 {
			return nil, fmt.Errorf("dispatch %s: unknown instance field %q", op.Symbol, op.Field)
		}
	}

	wantsCtx := spec.WantsContext(target)
	goParams := target.Params()
	if wantsCtx {
		goParams = goParams[1:]
	}
	if len(goParams) != len(op.Fetch) {
		return nil, fmt.Errorf("dispatch %s: target takes %d parameters, %d declared", op.Symbol, len(goParams), len(op.Fetch))
	}

	evtType, err := resolveType(op.Fetch[0].Type)
	if err != nil {
		return nil, err
	}
	evtParam := goParams[0]

	slots := make([]fetchSlot, len(op.Fetch)-1)
	for i, f := range op.Fetch[1:] {
		t, err := resolveType(f.Type)
		if err != nil {
			return nil, err
		}
		slots[i] = fetchSlot{Fetch: f, typ: t, goType: goParams[i+1]}
	}

	return func(o *Object, args []any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("onEvent takes (ctx, event)")
		}
		ctx, _ := args[0].(context.Context)
		if ctx == nil {
			ctx = context.Background()
		}
		evt, ok := args[1].(event.Event)
		if !ok || !typedesc.IsInstance(evt, evtType) {
			return nil, nil
		}
		evtVal := reflect.ValueOf(evt)
		if !evtVal.Type().AssignableTo(evtParam) {
			return nil, nil
		}

		in := make([]reflect.Value, 0, len(slots)+3)
		if instance >= 0 {
			recv := o.load(instance)
			if recv == nil {
				return nil, fmt.Errorf("%s: listener has no instance", u.name)
			}
			in = append(in, reflect.ValueOf(recv))
		}
		if wantsCtx {
			in = append(in, reflect.ValueOf(ctx))
		}
		in = append(in, evtVal)

		for _, s := range slots {
			v, ok, err := resolveParam(evt, s)
			if err != nil {
				return nil, fmt.Errorf("%s: parameter %s: %w", u.name, s.Name, err)
			}
			if !ok {
				// a required property is missing: do not call the target
				return nil, nil
			}
			in = append(in, v)
		}

		out := target.Func.Call(in)
		if len(out) == 1 && !out[0].IsNil() {
			return nil, out[0].Interface().(error)
		}
		return nil, nil
	}, nil
}

// resolveParam fetches one parameter value. ok is false when the property
// is absent and the parameter is not nullable.
func resolveParam(evt event.Event, s fetchSlot) (reflect.Value, bool, error) {
	if s.Property {
		p, found := evt.Property(s.Name, s.typ)
		if !found {
			if s.Nullable {
				return reflect.Zero(s.goType), true, nil
			}
			return reflect.Value{}, false, nil
		}
		pv := reflect.ValueOf(p)
		if !pv.Type().AssignableTo(s.goType) {
			if s.Nullable {
				return reflect.Zero(s.goType), true, nil
			}
			return reflect.Value{}, false, nil
		}
		return pv, true, nil
	}

	var raw any
	if gp, found := evt.GetterProperty(s.Name, s.typ); found {
		raw = gp.Get()
	}
	if raw == nil {
		if s.Nullable {
			return reflect.Zero(s.goType), true, nil
		}
		return reflect.Value{}, false, nil
	}
	v, err := toGo(raw, s.goType)
	if err != nil {
		return reflect.Value{}, false, err
	}
	return v, true, nil
}

// toGo converts a property value to the parameter type, allocating a
// pointer for pointer parameters.
func toGo(raw any, pt reflect.Type) (reflect.Value, error) {
	rv := reflect.ValueOf(raw)
	if rv.Type().AssignableTo(pt) {
		return rv, nil
	}
	if pt.Kind() == reflect.Pointer {
		elem, err := toGo(raw, pt.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(pt.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	}
	cv, err := typedesc.Coerce(raw, typedesc.Of(pt))
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(cv), nil
}
