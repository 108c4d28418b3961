// Package spec holds the immutable specification values that drive
// generation and key the generation caches.
package spec

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dshills/eventsys/internal/typedesc"
)

// PropertyInfo describes one property of an event type. An empty SetterName
// means the property is read-only.
type PropertyInfo struct {
	Name       string
	Type       typedesc.Type
	GetterName string
	SetterName string
}

// NewProperty returns a property with conventional accessor names.
func NewProperty(name string, t typedesc.Type, mutable bool) PropertyInfo {
	p := PropertyInfo{Name: name, Type: t, GetterName: GetterName(name)}
	if mutable {
		p.SetterName = SetterName(name)
	}
	return p
}

// Mutable reports whether the property has a setter.
func (p PropertyInfo) Mutable() bool {
	return p.SetterName != ""
}

// Matches reports whether p has the given name and exactly type t.
func (p PropertyInfo) Matches(name string, t typedesc.Type) bool {
	return p.Name == name && p.Type == t
}

// Key returns a fingerprint of p.
func (p PropertyInfo) Key() string {
	return p.Name + ":" + TypeKey(p.Type) + ":" + p.GetterName + ":" + p.SetterName
}

// ExtensionSpecification requests that an event type also implement
// Implement, taking method bodies from Provider. Either may be nil.
type ExtensionSpecification struct {
	Implement *typedesc.Descriptor
	Provider  *typedesc.Descriptor
}

// Key returns a fingerprint of e.
func (e ExtensionSpecification) Key() string {
	return descKey(e.Implement) + "+" + descKey(e.Provider)
}

// FromMethodExtensions converts method metadata into specifications.
func FromMethodExtensions(exts []typedesc.Extension) []ExtensionSpecification {
	out := make([]ExtensionSpecification, 0, len(exts))
	for _, e := range exts {
		out = append(out, ExtensionSpecification{Implement: e.Implement, Provider: e.Provider})
	}
	return out
}

// EventClassSpecification is a request for an implementation of an event
// shape.
type EventClassSpecification struct {
	Type                 *typedesc.Descriptor
	AdditionalProperties []PropertyInfo
	Extensions           []ExtensionSpecification
}

// Equal reports whether s and o describe the same shape. Order matters.
func (s EventClassSpecification) Equal(o EventClassSpecification) bool {
	return s.Type == o.Type &&
		equalSlices(s.AdditionalProperties, o.AdditionalProperties) &&
		equalSlices(s.Extensions, o.Extensions)
}

// Key returns a fingerprint that is equal for equal specifications.
func (s EventClassSpecification) Key() string {
	var b strings.Builder
	b.WriteString(descKey(s.Type))
	b.WriteString("|")
	writePropKeys(&b, s.AdditionalProperties)
	b.WriteString("|")
	writeExtKeys(&b, s.Extensions)
	return b.String()
}

// EventClassKey is the cache key of an event-type request. Registry derived
// and caller supplied extensions are tracked separately.
type EventClassKey struct {
	Type                 *typedesc.Descriptor
	AdditionalProperties []PropertyInfo
	CurrentExtensions    []ExtensionSpecification
	UserExtensions       []ExtensionSpecification
}

// Realize returns the specification the key stands for: the registry
// extensions followed by the caller's.
func (k EventClassKey) Realize() EventClassSpecification {
	exts := make([]ExtensionSpecification, 0, len(k.CurrentExtensions)+len(k.UserExtensions))
	exts = append(exts, k.CurrentExtensions...)
	exts = append(exts, k.UserExtensions...)
	return EventClassSpecification{
		Type:                 k.Type,
		AdditionalProperties: k.AdditionalProperties,
		Extensions:           exts,
	}
}

// Key returns the cache fingerprint.
func (k EventClassKey) Key() string {
	var b strings.Builder
	b.WriteString(descKey(k.Type))
	b.WriteString("|")
	writePropKeys(&b, k.AdditionalProperties)
	b.WriteString("|")
	writeExtKeys(&b, k.CurrentExtensions)
	b.WriteString("|")
	writeExtKeys(&b, k.UserExtensions)
	return b.String()
}

// Stale reports whether an entry cached under k must be evicted for a new
// request n for the same type and properties: same caller extensions,
// different registry extensions.
func (k EventClassKey) Stale(n EventClassKey) bool {
	return k.Type == n.Type &&
		equalSlices(k.AdditionalProperties, n.AdditionalProperties) &&
		!equalSlices(k.CurrentExtensions, n.CurrentExtensions) &&
		equalSlices(k.UserExtensions, n.UserExtensions)
}

// GetterName returns the conventional getter name for a property.
func GetterName(name string) string {
	return "get" + Capitalize(name)
}

// SetterName returns the conventional setter name for a property.
func SetterName(name string) string {
	return "set" + Capitalize(name)
}

// Capitalize upper-cases the first rune of s.
func Capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

// Decapitalize lower-cases the first rune of s.
func Decapitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}

// TypeKey fingerprints a type. Descriptors are keyed by identity so that two
// distinct descriptors with the same name never share a cache entry.
func TypeKey(t typedesc.Type) string {
	if d, ok := t.(*typedesc.Descriptor); ok {
		return descKey(d)
	}
	if t == nil {
		return "-"
	}
	return t.TypeName()
}

func descKey(d *typedesc.Descriptor) string {
	if d == nil {
		return "-"
	}
	return fmt.Sprintf("%s@%p", d.Name, d)
}

func writePropKeys(b *strings.Builder, props []PropertyInfo) {
	for i, p := range props {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(p.Key())
	}
}

func writeExtKeys(b *strings.Builder, exts []ExtensionSpecification) {
	for i, e := range exts {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(e.Key())
	}
}

func equalSlices[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
