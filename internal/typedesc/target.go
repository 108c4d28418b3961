package typedesc

import (
	"fmt"
	"reflect"
	"strings"
)

// Target is a Go function or method that a listener adapter dispatches to.
type Target struct {
	// Owner is the declaring type.
	Owner reflect.Type

	// Name is the method name.
	Name string

	// Func is the callable. For instance methods the receiver is the first
	// argument.
	Func reflect.Value

	// Static marks a target that needs no receiver.
	Static bool
}

// MethodOf returns the exported method name of owner as a target. owner is
// usually a pointer type.
func MethodOf(owner reflect.Type, name string) (Target, error) {
	m, ok := owner.MethodByName(name)
	if !ok {
		return Target{}, fmt.Errorf("type %s has no method %s", owner, name)
	}
	return Target{Owner: owner, Name: name, Func: m.Func}, nil
}

// StaticFunc returns fn as a static target declared on owner.
func StaticFunc(owner reflect.Type, name string, fn any) (Target, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return Target{}, fmt.Errorf("static target %s.%s is not a function", owner, name)
	}
	return Target{Owner: owner, Name: name, Func: v, Static: true}, nil
}

// Key identifies the target method.
func (t Target) Key() string {
	return OwnerName(t.Owner) + "#" + t.Name
}

// Params returns the Go parameter types after the receiver.
func (t Target) Params() []reflect.Type {
	ft := t.Func.Type()
	start := 0
	if !t.Static {
		start = 1
	}
	out := make([]reflect.Type, 0, ft.NumIn()-start)
	for i := start; i < ft.NumIn(); i++ {
		out = append(out, ft.In(i))
	}
	return out
}

// Receiver returns the receiver type of an instance target.
func (t Target) Receiver() reflect.Type {
	if t.Static {
		return nil
	}
	return t.Func.Type().In(0)
}

// OwnerName returns the package-qualified name of a Go type, dereferencing
// pointers.
func OwnerName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// Mangle turns a qualified name into an identifier fragment.
func Mangle(name string) string {
	return strings.NewReplacer("/", "_", ".", "_", "-", "_").Replace(name)
}
