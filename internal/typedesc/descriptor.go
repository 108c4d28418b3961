package typedesc

import (
	"strings"
)

// Kind classifies a descriptor.
type Kind uint8

const (
	// KindInterface is a capability contract with abstract methods.
	KindInterface Kind = iota
	// KindStruct is a concrete holder of static methods, such as an
	// extension-methods provider or a factory implementation companion.
	KindStruct
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInterface:
		return "interface"
	case KindStruct:
		return "struct"
	default:
		return "unknown"
	}
}

// Body is the implementation of a default or static method.
//
// For default methods self is the receiving object. Static methods receive
// nil for self; when they serve as extension or delegate implementations the
// receiving object is passed as args[0].
type Body func(self any, args []any) (any, error)

// Param describes a method parameter.
type Param struct {
	// Name is the declared parameter name.
	Name string

	// NameOverride replaces Name for property binding when set.
	NameOverride string

	Type Type

	// Mutable marks a factory parameter whose derived property gets a setter.
	Mutable bool

	// Nullable marks a parameter that accepts an absent value.
	Nullable bool
}

// EffectiveName returns NameOverride when set, otherwise Name.
func (p Param) EffectiveName() string {
	if p.NameOverride != "" {
		return p.NameOverride
	}
	return p.Name
}

// Extension is method-level metadata requesting that the returned event type
// also implement an interface, optionally with method bodies taken from a
// provider.
type Extension struct {
	Implement *Descriptor
	Provider  *Descriptor
}

// Method describes a method of a descriptor.
type Method struct {
	Name   string
	Params []Param

	// Returns is nil for methods without a result.
	Returns Type

	// Default marks a method that carries its own Body.
	Default bool

	// Static marks a method that is not bound to an instance.
	Static bool

	Body Body

	Extensions []Extension
}

// Abstract reports whether the method needs an implementation.
func (m Method) Abstract() bool {
	return !m.Default && !m.Static
}

// Signature returns the name and parameter types, used to match methods
// across descriptors.
func (m Method) Signature() string {
	return signature(m.Name, m.Params)
}

func signature(name string, params []Param) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			b.WriteByte(',')
		}
		if p.Type != nil {
			b.WriteString(p.Type.TypeName())
		}
	}
	b.WriteByte(')')
	return b.String()
}

// Descriptor describes a capability contract or a static-method holder.
// A Descriptor must not be modified once it has been handed to a resolver
// or generator.
type Descriptor struct {
	// Name is the fully-qualified name, for example "bank.Transfer".
	Name string

	Kind Kind

	// Extends lists direct supertypes.
	Extends []*Descriptor

	Methods []Method

	// Impl optionally points at a companion holding static implementations
	// of this descriptor's methods.
	Impl *Descriptor
}

// Interface returns a new interface descriptor.
func Interface(name string, extends []*Descriptor, methods ...Method) *Descriptor {
	return &Descriptor{Name: name, Kind: KindInterface, Extends: extends, Methods: methods}
}

// Struct returns a new static-method holder.
func Struct(name string, methods ...Method) *Descriptor {
	return &Descriptor{Name: name, Kind: KindStruct, Methods: methods}
}

// TypeName implements Type.
func (d *Descriptor) TypeName() string {
	return d.Name
}

// AssignableTo implements Type. A descriptor is assignable to itself, to
// any of its supertypes and to the empty interface.
func (d *Descriptor) AssignableTo(u Type) bool {
	if d == nil || u == nil {
		return false
	}
	if isAny(u) {
		return true
	}
	target, ok := u.(*Descriptor)
	if !ok {
		return false
	}
	if d == target {
		return true
	}
	for _, s := range d.Extends {
		if s.AssignableTo(target) {
			return true
		}
	}
	return false
}

func (*Descriptor) isType() {}

// Method returns the method declared directly on d with the given name.
func (d *Descriptor) Method(name string) (Method, bool) {
	for _, m := range d.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return Method{}, false
}

// String returns the descriptor name.
func (d *Descriptor) String() string {
	if d == nil {
		return "<nil>"
	}
	return d.Name
}
