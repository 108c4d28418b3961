package typedesc

import (
	"reflect"
)

// Type describes a property, parameter or return type.
//
// Implementations are comparable: two Type values are the same type iff
// they compare equal with ==.
type Type interface {
	// TypeName returns the fully-qualified type name.
	TypeName() string

	// AssignableTo reports whether a value of this type can be used where
	// u is expected.
	AssignableTo(u Type) bool

	isType()
}

// goType wraps a reflect.Type. It is a value type so that equal reflect
// types yield equal Type values.
type goType struct {
	t reflect.Type
}

// Predefined value types.
var (
	Int     = Of(reflect.TypeFor[int]())
	Int64   = Of(reflect.TypeFor[int64]())
	Float64 = Of(reflect.TypeFor[float64]())
	String  = Of(reflect.TypeFor[string]())
	Bool    = Of(reflect.TypeFor[bool]())
	Any     = Of(reflect.TypeFor[any]())
)

// Of returns the Type for a Go type.
func Of(t reflect.Type) Type {
	return goType{t: t}
}

// TypeFor returns the Type for T.
func TypeFor[T any]() Type {
	return Of(reflect.TypeFor[T]())
}

// TypeName implements Type.
func (g goType) TypeName() string {
	return g.t.String()
}

// AssignableTo implements Type.
func (g goType) AssignableTo(u Type) bool {
	switch u := u.(type) {
	case goType:
		return g.t.AssignableTo(u.t)
	default:
		return false
	}
}

// Reflect returns the underlying Go type.
func (g goType) Reflect() reflect.Type {
	return g.t
}

func (goType) isType() {}

// ReflectOf returns the Go type behind t, or nil when t is a Descriptor.
func ReflectOf(t Type) reflect.Type {
	if g, ok := t.(goType); ok {
		return g.t
	}
	return nil
}

// isAny reports whether t is the empty interface.
func isAny(t Type) bool {
	g, ok := t.(goType)
	return ok && g.t.Kind() == reflect.Interface && g.t.NumMethod() == 0
}

// Instance is implemented by runtime values that carry a descriptor, such as
// installed event objects.
type Instance interface {
	TypeDescriptor() *Descriptor
}

// IsInstance reports whether v is a value of type t. A nil v is never an
// instance.
func IsInstance(v any, t Type) bool {
	if v == nil {
		return false
	}
	switch t := t.(type) {
	case *Descriptor:
		inst, ok := v.(Instance)
		return ok && inst.TypeDescriptor().AssignableTo(t)
	case goType:
		return reflect.TypeOf(v).AssignableTo(t.t)
	default:
		return false
	}
}
