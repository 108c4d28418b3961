// Package factory synthesizes implementations of factory interfaces.
//
// Every abstract method of a factory either delegates to a static
// implementation found on the factory's Impl companion, or constructs an
// event: parameters that are not properties of the returned event type
// become additional properties, the event implementation is requested from
// the caller, and the method body binds the event constructor to the
// method arguments by name and type. Default methods keep their own body.
package factory

import (
	"fmt"

	"github.com/dshills/eventsys/internal/event"
	"github.com/dshills/eventsys/internal/gen/emit"
	"github.com/dshills/eventsys/internal/gen/eventclass"
	"github.com/dshills/eventsys/internal/gen/install"
	"github.com/dshills/eventsys/internal/spec"
	"github.com/dshills/eventsys/internal/typedesc"
)

// EventClassFunc returns the installed implementation of an event type with
// additional properties and extensions.
type EventClassFunc func(t *typedesc.Descriptor, props []spec.PropertyInfo, exts []spec.ExtensionSpecification) (*install.Unit, error)

// NameFor returns the artifact name of the implementation of factory.
func NameFor(factory *typedesc.Descriptor) string {
	return factory.Name + "Impl"
}

// Validate checks that factory is an interface with no supertypes.
func Validate(factory *typedesc.Descriptor) error {
	if factory == nil {
		return &event.ConfigError{Type: "<nil>", Reason: "factory type is required"}
	}
	if factory.Kind != typedesc.KindInterface {
		return &event.ConfigError{Type: factory.Name, Reason: "factory type must be an interface"}
	}
	if len(factory.Extends) > 0 {
		return &event.ConfigError{Type: factory.Name, Reason: "factory type must not extend other types"}
	}
	return nil
}

// Synthesize builds the declaration implementing factory. createEventClass
// is called once per constructing method.
func Synthesize(factory *typedesc.Descriptor, createEventClass EventClassFunc) (*emit.TypeDecl, emit.Symbols, error) {
	if err := Validate(factory); err != nil {
		return nil, nil, err
	}

	syms := emit.Symbols{}
	decl := &emit.TypeDecl{
		Name:       NameFor(factory),
		Kind:       emit.KindFactory,
		Implements: []string{syms.AddType(factory)},
	}

	for _, m := range factory.Methods {
		if m.Static {
			continue
		}
		dm := emit.Method{
			Name:    m.Name,
			Params:  paramSymbols(m, syms),
			Returns: syms.AddType(m.Returns),
		}

		switch {
		case m.Default:
			if m.Body == nil {
				return nil, nil, &event.ConfigError{Type: factory.Name, Method: m.Name, Reason: "default method has no body"}
			}
			dm.Body = emit.Op{Code: emit.OpInvokeDefault, Symbol: syms.AddBody(factory, m)}

		default:
			if impl, ok := typedesc.FindImplementation(factory.Impl, m); ok {
				dm.Body = emit.Op{Code: emit.OpInvokeStatic, Symbol: syms.AddBody(factory.Impl, impl)}
				break
			}
			op, err := construct(factory, m, createEventClass, syms)
			if err != nil {
				return nil, nil, err
			}
			dm.Body = op
		}
		decl.Methods = append(decl.Methods, dm)
	}
	return decl, syms, nil
}

// construct synthesizes the body of a method returning a new event.
func construct(factory *typedesc.Descriptor, m typedesc.Method, createEventClass EventClassFunc, syms emit.Symbols) (emit.Op, error) {
	fail := func(param, reason string) (emit.Op, error) {
		return emit.Op{}, &event.ConfigError{Type: factory.Name, Method: m.Name, Parameter: param, Reason: reason}
	}

	evtType, ok := m.Returns.(*typedesc.Descriptor)
	if !ok || !evtType.AssignableTo(event.EventType) {
		ret := "nothing"
		if m.Returns != nil {
			ret = m.Returns.TypeName()
		}
		return fail("", fmt.Sprintf("factory methods must return a type assignable to %s, not %s", event.EventType.Name, ret))
	}

	known := eventclass.PropertiesOf(evtType)
	var additional []spec.PropertyInfo
	for _, p := range m.Params {
		if p.Type == nil {
			return fail(p.EffectiveName(), "parameter has no type")
		}
		if hasProperty(known, p.EffectiveName(), p.Type) {
			continue
		}
		additional = append(additional, spec.NewProperty(p.EffectiveName(), p.Type, p.Mutable))
	}

	u, err := createEventClass(evtType, additional, spec.FromMethodExtensions(m.Extensions))
	if err != nil {
		return emit.Op{}, err
	}

	args, berr := bindConstructor(u, m, evtType)
	if berr != nil {
		return fail(berr.param, berr.reason)
	}

	sym := emit.UnitSymbol(u.Name())
	syms[sym] = u
	return emit.Op{Code: emit.OpConstruct, Symbol: sym, Args: args}, nil
}

type bindError struct {
	param  string
	reason string
}

// bindConstructor matches every constructor parameter of u to a method
// argument. The effective parameter name is tried first, then the declared
// one. An unmatched cancelled flag of a cancellable event defaults to false.
func bindConstructor(u *install.Unit, m typedesc.Method, evtType *typedesc.Descriptor) ([]emit.Arg, *bindError) {
	ctor := u.CtorParams()
	args := make([]emit.Arg, 0, len(ctor))

	for _, cp := range ctor {
		i := findArg(m.Params, cp, typedesc.Param.EffectiveName)
		if i < 0 {
			i = findArg(m.Params, cp, func(p typedesc.Param) string { return p.Name })
		}
		switch {
		case i >= 0:
			args = append(args, emit.Arg{Kind: emit.ArgParam, Index: i})
		case cp.Name == event.CancelledProperty && cp.Type == typedesc.Bool && evtType.AssignableTo(event.CancellableType):
			args = append(args, emit.Arg{Kind: emit.ArgLiteral, Literal: false})
		default:
			return nil, &bindError{
				param:  cp.Name,
				reason: fmt.Sprintf("no argument supplies property %s of type %s", cp.Name, cp.Type.TypeName()),
			}
		}
	}
	return args, nil
}

func findArg(params []typedesc.Param, cp typedesc.Param, name func(typedesc.Param) string) int {
	for i, p := range params {
		if name(p) == cp.Name && p.Type == cp.Type {
			return i
		}
	}
	return -1
}

func hasProperty(props []spec.PropertyInfo, name string, t typedesc.Type) bool {
	for _, p := range props {
		if p.Matches(name, t) {
			return true
		}
	}
	return false
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
