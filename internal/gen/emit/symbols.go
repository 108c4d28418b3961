package emit

import (
	"reflect"

	"github.com/dshills/eventsys/internal/typedesc"
)

// TypeSymbol returns the link symbol for a type.
func TypeSymbol(t typedesc.Type) string {
	if t == nil {
		return ""
	}
	return t.TypeName()
}

// BodySymbol returns the link symbol for a method body declared on holder.
func BodySymbol(holder *typedesc.Descriptor, m typedesc.Method) string {
	return "body:" + holder.Name + "." + m.Signature()
}

// UnitSymbol returns the link symbol for an installed unit.
func UnitSymbol(name string) string {
	return "unit:" + name
}

// TargetSymbol returns the link symbol for a listener target.
func TargetSymbol(t typedesc.Target) string {
	return "target:" + t.Key()
}

// AddType bundles t and returns its symbol.
func (s Symbols) AddType(t typedesc.Type) string {
	sym := TypeSymbol(t)
	if sym != "" {
		s[sym] = t
	}
	return sym
}

// AddBody bundles the body of m and returns its symbol.
func (s Symbols) AddBody(holder *typedesc.Descriptor, m typedesc.Method) string {
	sym := BodySymbol(holder, m)
	s[sym] = m.Body
	return sym
}

// OwnerSymbol returns the link symbol under which a loader exposes the
// declaring type of listener targets.
func OwnerSymbol(owner reflect.Type) string {
	return typedesc.OwnerName(owner)
}
