// Package eventclass synthesizes implementations of event types.
//
// An event implementation stores one field per property, implements the
// base type and every extension interface, and takes method bodies from
// extension providers or from default methods. Any abstract method left
// without a body is a configuration error.
package eventclass

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/dshills/eventsys/internal/event"
	"github.com/dshills/eventsys/internal/gen/emit"
	"github.com/dshills/eventsys/internal/spec"
	"github.com/dshills/eventsys/internal/typedesc"
)

// NameFor returns the artifact name for an implementation of base
// identified by key.
func NameFor(base *typedesc.Descriptor, key string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return fmt.Sprintf("%sImpl_%016x", base.Name, h.Sum64())
}

// PropertiesOf infers the properties of t from its abstract accessors,
// including inherited ones. getX() and isX() declare a property x; a
// matching setX(v) makes it mutable.
func PropertiesOf(t *typedesc.Descriptor) []spec.PropertyInfo {
	s := typedesc.Resolve(t)

	var props []spec.PropertyInfo
	index := make(map[string]int)
	for _, m := range s.Abstract {
		if len(m.Params) != 0 || m.Returns == nil {
			continue
		}
		var name string
		switch {
		case strings.HasPrefix(m.Name, "get") && len(m.Name) > 3:
			name = spec.Decapitalize(m.Name[3:])
		case strings.HasPrefix(m.Name, "is") && len(m.Name) > 2 && m.Returns == typedesc.Bool:
			name = spec.Decapitalize(m.Name[2:])
		default:
			continue
		}
		if _, dup := index[name]; dup {
			continue
		}
		index[name] = len(props)
		props = append(props, spec.PropertyInfo{Name: name, Type: m.Returns, GetterName: m.Name})
	}

	for _, m := range s.Abstract {
		if len(m.Params) != 1 || m.Returns != nil || !strings.HasPrefix(m.Name, "set") || len(m.Name) <= 3 {
			continue
		}
		i, ok := index[spec.Decapitalize(m.Name[3:])]
		if !ok || props[i].Type != m.Params[0].Type {
			continue
		}
		props[i].SetterName = m.Name
	}
	return props
}

// Synthesize builds the declaration of an implementation of s named name,
// together with the symbols it links against.
func Synthesize(s spec.EventClassSpecification, name string) (*emit.TypeDecl, emit.Symbols, error) {
	base := s.Type
	fail := func(method, reason string) (*emit.TypeDecl, emit.Symbols, error) {
		return nil, nil, &event.ConfigError{Type: base.String(), Method: method, Reason: reason}
	}
	if base == nil {
		return nil, nil, &event.ConfigError{Type: "<nil>", Reason: "event type is required"}
	}
	if base.Kind != typedesc.KindInterface {
		return fail("", "event type must be an interface")
	}
	if !base.AssignableTo(event.EventType) {
		return fail("", "event type must extend "+event.EventType.Name)
	}

	caps := []*typedesc.Descriptor{base}
	var providers []*typedesc.Descriptor
	for _, ext := range s.Extensions {
		if ext.Implement != nil && !contains(caps, ext.Implement) {
			caps = append(caps, ext.Implement)
		}
		if ext.Provider != nil && !contains(providers, ext.Provider) {
			providers = append(providers, ext.Provider)
		}
	}

	props, err := mergeProperties(caps, s.AdditionalProperties)
	if err != nil {
		return fail("", err.Error())
	}

	syms := emit.Symbols{}
	decl := &emit.TypeDecl{Name: name, Kind: emit.KindEvent}
	for _, c := range caps {
		decl.Implements = append(decl.Implements, syms.AddType(c))
	}

	accessors := make(map[string]bool)
	for _, p := range props {
		ts := syms.AddType(p.Type)
		decl.Fields = append(decl.Fields, emit.Field{Name: p.Name, Type: ts, Mutable: p.Mutable()})
		decl.Ctor = append(decl.Ctor, p.Name)
		decl.Methods = append(decl.Methods, emit.Method{
			Name:    p.GetterName,
			Returns: ts,
			Body:    emit.Op{Code: emit.OpLoadField, Field: p.Name},
		})
		accessors[p.GetterName+"()"] = true
		if p.Mutable() {
			decl.Methods = append(decl.Methods, emit.Method{
				Name:   p.SetterName,
				Params: []string{ts},
				Body:   emit.Op{Code: emit.OpStoreField, Field: p.Name},
			})
			accessors[p.SetterName+"("+p.Type.TypeName()+")"] = true
		}
	}

	// defaults declared by any capability, first declaration wins
	defaults := make(map[string]typedesc.Method)
	defaultOwner := make(map[string]*typedesc.Descriptor)
	for _, c := range caps {
		st := typedesc.Resolve(c)
		for _, m := range st.Methods {
			if !m.Default || m.Body == nil {
				continue
			}
			if _, ok := defaults[m.Signature()]; !ok {
				defaults[m.Signature()] = m
				defaultOwner[m.Signature()] = owner(c, st, m)
			}
		}
	}

	done := make(map[string]bool)
	for _, c := range caps {
		for _, m := range typedesc.Resolve(c).Abstract {
			sig := m.Signature()
			if done[sig] || accessors[sig] {
				continue
			}
			done[sig] = true

			body, err := implement(m, providers, defaults[sig], defaultOwner[sig], syms)
			if err != nil {
				return fail(m.Name, err.Error())
			}
			decl.Methods = append(decl.Methods, emit.Method{
				Name:    m.Name,
				Params:  paramSymbols(m, syms),
				Returns: syms.AddType(m.Returns),
				Body:    body,
			})
		}
	}

	// expose default methods through Call as well
	for sig, m := range defaults {
		if done[sig] || accessors[sig] {
			continue
		}
		done[sig] = true
		decl.Methods = append(decl.Methods, emit.Method{
			Name:    m.Name,
			Params:  paramSymbols(m, syms),
			Returns: syms.AddType(m.Returns),
			Body:    emit.Op{Code: emit.OpInvokeDefault, Symbol: syms.AddBody(defaultOwner[sig], m)},
		})
	}
	sortMethods(decl.Methods)

	return decl, syms, nil
}

// implement picks the body of an abstract method: an extension provider
// first, then a default declared by another capability.
func implement(m typedesc.Method, providers []*typedesc.Descriptor, def typedesc.Method, defOwner *typedesc.Descriptor, syms emit.Symbols) (emit.Op, error) {
	for _, p := range providers {
		if impl, ok := typedesc.FindImplementation(p, m); ok {
			return emit.Op{Code: emit.OpInvokeStatic, Symbol: syms.AddBody(p, impl)}, nil
		}
	}
	if def.Body != nil {
		return emit.Op{Code: emit.OpInvokeDefault, Symbol: syms.AddBody(defOwner, def)}, nil
	}
	return emit.Op{}, fmt.Errorf("no implementation for abstract method %s", m.Signature())
}

// mergeProperties collects properties from every capability followed by
// the additional ones. Duplicates by name and type collapse into the first
// occurrence, gaining a setter if a later one has one.
func mergeProperties(caps []*typedesc.Descriptor, additional []spec.PropertyInfo) ([]spec.PropertyInfo, error) {
	var out []spec.PropertyInfo
	index := make(map[string]int)

	add := func(p spec.PropertyInfo) error {
		if p.Type == nil {
			return fmt.Errorf("property %s has no type", p.Name)
		}
		if i, ok := index[p.Name]; ok {
			if out[i].Type != p.Type {
				return fmt.Errorf("property %s declared as both %s and %s", p.Name, out[i].Type.TypeName(), p.Type.TypeName())
			}
			if !out[i].Mutable() && p.Mutable() {
				out[i].SetterName = p.SetterName
			}
			return nil
		}
		index[p.Name] = len(out)
		out = append(out, p)
		return nil
	}

	for _, c := range caps {
		for _, p := range PropertiesOf(c) {
			if err := add(p); err != nil {
				return nil, err
			}
		}
	}
	for _, p := range additional {
		if err := add(p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func owner(c *typedesc.Descriptor, st *typedesc.Structure, m typedesc.Method) *typedesc.Descriptor {
	if _, ok := c.Method(m.Name); ok {
		return c
	}
	for _, sup := range st.Supertypes {
		for _, sm := range sup.Methods {
			if sm.Signature() == m.Signature() {
				return sup
			}
		}
	}
	return c
}

func paramSymbols(m typedesc.Method, syms emit.Symbols) []string {
	if len(m.Params) == 0 {
		return nil
	}
	out := make([]string, len(m.Params))
	for i, p := range m.Params {
		out[i] = syms.AddType(p.Type)
	}
	return out
}

// sortMethods keeps accessors first and orders the remaining methods by
// name so that equal specifications emit identical payloads.
func sortMethods(ms []emit.Method) {
	rest := ms
	for len(rest) > 0 && (rest[0].Body.Code == emit.OpLoadField || rest[0].Body.Code == emit.OpStoreField) {
		rest = rest[1:]
	}
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].Name < rest[j].Name })
}

func contains(list []*typedesc.Descriptor, d *typedesc.Descriptor) bool {
	for _, x := range list {
		if x == d {
			return true
		}
	}
	return false
}
