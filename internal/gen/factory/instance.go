package factory

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/dshills/eventsys/internal/gen/install"
	"github.com/dshills/eventsys/internal/spec"
	"github.com/dshills/eventsys/internal/typedesc"
)

// Factory is an instantiated factory implementation.
type Factory struct {
	typ  *typedesc.Descriptor
	unit *install.Unit
	obj  *install.Object
}

// New instantiates the factory unit u implementing t.
func New(t *typedesc.Descriptor, u *install.Unit) (*Factory, error) {
	obj, err := u.New()
	if err != nil {
		return nil, err
	}
	return &Factory{typ: t, unit: u, obj: obj}, nil
}

// Type returns the factory interface.
func (f *Factory) Type() *typedesc.Descriptor { return f.typ }

// Unit returns the installed implementation.
func (f *Factory) Unit() *install.Unit { return f.unit }

// Object returns the factory instance.
func (f *Factory) Object() *install.Object { return f.obj }

// Call invokes a factory method. A nil argument is rejected unless the
// parameter is nullable or its type has a nil value.
func (f *Factory) Call(method string, args ...any) (any, error) {
	if m, ok := f.typ.Method(method); ok {
		for i, p := range m.Params {
			if i < len(args) && args[i] == nil && !p.Nullable && !typedesc.Nillable(p.Type) {
				return nil, fmt.Errorf("%s.%s: parameter %s of type %s cannot be nil",
					f.typ.Name, method, p.EffectiveName(), p.Type.TypeName())
			}
		}
	}
	return f.obj.Call(method, args...)
}

// Invoke calls a factory method and asserts its result to T.
func Invoke[T any](f *Factory, method string, args ...any) (T, error) {
	var zero T
	v, err := f.Call(method, args...)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%s.%s returned %T", f.typ.Name, method, v)
	}
	return out, nil
}

var errorType = reflect.TypeFor[error]()

// Bind fills the func fields of the struct ptr points to with calls to the
// factory method of the same name (first letter case-insensitive). Each
// func must return an error as its last result and at most one other value.
// Fields without a matching method are left untouched.
func (f *Factory) Bind(ptr any) error {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return errors.New("bind: target must be a pointer to a struct")
	}
	sv := rv.Elem()
	st := sv.Type()

	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		if !field.IsExported() || field.Type.Kind() != reflect.Func {
			continue
		}
		name := spec.Decapitalize(field.Name)
		if !f.obj.Has(name) {
			if !f.obj.Has(field.Name) {
				continue
			}
			name = field.Name
		}
		ft := field.Type
		if ft.NumOut() == 0 || ft.NumOut() > 2 || ft.Out(ft.NumOut()-1) != errorType {
			return fmt.Errorf("bind: field %s must return an error as its last result", field.Name)
		}
		sv.Field(i).Set(reflect.MakeFunc(ft, f.caller(name, ft)))
	}
	return nil
}

func (f *Factory) caller(method string, ft reflect.Type) func([]reflect.Value) []reflect.Value {
	return func(in []reflect.Value) []reflect.Value {
		args := make([]any, len(in))
		for i, v := range in {
			args[i] = v.Interface()
		}
		v, err := f.Call(method, args...)

		out := make([]reflect.Value, ft.NumOut())
		errv := reflect.Zero(errorType)
		if err != nil {
			errv = reflect.ValueOf(&err).Elem()
		}
		out[len(out)-1] = errv
		if len(out) == 2 {
			rt := ft.Out(0)
			switch {
			case v == nil || err != nil:
				out[0] = reflect.Zero(rt)
			case reflect.TypeOf(v).AssignableTo(rt):
				out[0] = reflect.ValueOf(v)
			default:
				out[0] = reflect.Zero(rt)
				wrapped := fmt.Errorf("%s.%s returned %T, not %s", f.typ.Name, method, v, rt)
				out[1] = reflect.ValueOf(&wrapped).Elem()
			}
		}
		return out
	}
}
