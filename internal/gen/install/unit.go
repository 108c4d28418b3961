package install

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dshills/eventsys/internal/event"
	"github.com/dshills/eventsys/internal/gen/emit"
	"github.com/dshills/eventsys/internal/typedesc"
)

// method is a linked method body.
type method func(o *Object, args []any) (any, error)

// Unit is an installed, linked artifact that can be instantiated.
type Unit struct {
	id       uuid.UUID
	name     string
	decl     *emit.TypeDecl
	artifact *emit.Artifact
	loader   *Loader

	implements []*typedesc.Descriptor
	fieldTypes []typedesc.Type
	ctor       []int
	methods    map[string]method

	// props lists the fields exposed as properties, with their accessors.
	props []propSlot
}

type propSlot struct {
	field    int
	name     string
	typ      typedesc.Type
	writable bool
}

// ID returns the installation ID.
func (u *Unit) ID() uuid.UUID { return u.id }

// Name returns the fully-qualified artifact name.
func (u *Unit) Name() string { return u.name }

// Kind returns the artifact kind.
func (u *Unit) Kind() string { return u.decl.Kind }

// Loader returns the loader the unit is installed in.
func (u *Unit) Loader() *Loader { return u.loader }

// Artifact returns the emitted artifact.
func (u *Unit) Artifact() *emit.Artifact { return u.artifact }

// Decl returns the linked declaration.
func (u *Unit) Decl() *emit.TypeDecl { return u.decl }

// Primary returns the primary implemented capability, or nil.
func (u *Unit) Primary() *typedesc.Descriptor {
	if len(u.implements) == 0 {
		return nil
	}
	return u.implements[0]
}

// Implements reports whether the unit implements t.
func (u *Unit) Implements(t *typedesc.Descriptor) bool {
	for _, d := range u.implements {
		if d.AssignableTo(t) {
			return true
		}
	}
	return false
}

// CtorParams returns the constructor parameters as (name, type) pairs in
// order.
func (u *Unit) CtorParams() []typedesc.Param {
	out := make([]typedesc.Param, len(u.ctor))
	for i, fi := range u.ctor {
		out[i] = typedesc.Param{Name: u.decl.Fields[fi].Name, Type: u.fieldTypes[fi]}
	}
	return out
}

// New instantiates the unit. args bind the constructor parameters in order
// and are coerced to the field types.
func (u *Unit) New(args ...any) (*Object, error) {
	if len(args) != len(u.ctor) {
		return nil, fmt.Errorf("new %s: %d arguments, want %d", u.name, len(args), len(u.ctor))
	}
	o := &Object{unit: u, values: make([]any, len(u.decl.Fields))}
	for i, fi := range u.ctor {
		v, err := typedesc.Coerce(args[i], u.fieldTypes[fi])
		if err != nil {
			return nil, fmt.Errorf("new %s: argument %s: %w", u.name, u.decl.Fields[fi].Name, err)
		}
		o.values[fi] = v
	}
	o.props = make([]event.Property, len(u.props))
	for i, p := range u.props {
		o.props[i] = o.property(p)
	}
	return o, nil
}

// link resolves every symbol the declaration references and builds the
// method table.
func link(l *Loader, a *emit.Artifact) (*Unit, error) {
	decl := a.Decl
	u := &Unit{
		name:     decl.Name,
		decl:     decl,
		artifact: a,
		loader:   l,
		methods:  make(map[string]method, len(decl.Methods)),
	}

	for _, sym := range decl.Requires {
		if _, ok := l.Lookup(sym); !ok {
			return nil, &event.LookupError{Symbol: sym, Loader: l.name}
		}
	}

	resolve := func(sym string) (any, error) {
		if v, ok := a.Symbols[sym]; ok {
			return v, nil
		}
		if v, ok := l.Lookup(sym); ok {
			return v, nil
		}
		return nil, &event.LookupError{Symbol: sym, Loader: l.name}
	}
	resolveType := func(sym string) (typedesc.Type, error) {
		if sym == "" {
			return nil, nil
		}
		v, err := resolve(sym)
		if err != nil {
			return nil, err
		}
		t, ok := v.(typedesc.Type)
		if !ok {
			return nil, fmt.Errorf("symbol %s is not a type", sym)
		}
		return t, nil
	}

	for _, sym := range decl.Implements {
		t, err := resolveType(sym)
		if err != nil {
			return nil, err
		}
		d, ok := t.(*typedesc.Descriptor)
		if !ok {
			return nil, fmt.Errorf("implemented symbol %s is not a capability", sym)
		}
		u.implements = append(u.implements, d)
	}

	u.fieldTypes = make([]typedesc.Type, len(decl.Fields))
	for i, f := range decl.Fields {
		t, err := resolveType(f.Type)
		if err != nil {
			return nil, err
		}
		u.fieldTypes[i] = t
	}

	for _, name := range decl.Ctor {
		fi := decl.FieldIndex(name)
		if fi < 0 {
			return nil, fmt.Errorf("constructor binds unknown field %s", name)
		}
		u.ctor = append(u.ctor, fi)
	}

	getters := make(map[int]bool)
	setters := make(map[int]bool)
	for _, m := range decl.Methods {
		fn, err := linkMethod(u, m, resolve, resolveType)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", m.Name, err)
		}
		u.methods[m.Name] = fn
		switch m.Body.Code {
		case emit.OpLoadField:
			getters[decl.FieldIndex(m.Body.Field)] = true
		case emit.OpStoreField:
			setters[decl.FieldIndex(m.Body.Field)] = true
		}
	}
	for i, f := range decl.Fields {
		if getters[i] {
			u.props = append(u.props, propSlot{field: i, name: f.Name, typ: u.fieldTypes[i], writable: setters[i]})
		}
	}
	return u, nil
}

func linkMethod(u *Unit, m emit.Method, resolve func(string) (any, error), resolveType func(string) (typedesc.Type, error)) (method, error) {
	op := m.Body
	switch op.Code {
	case emit.OpLoadField:
		fi := u.decl.FieldIndex(op.Field)
		if fi < 0 {
			return nil, fmt.Errorf("unknown field %s", op.Field)
		}
		return func(o *Object, _ []any) (any, error) {
			return o.load(fi), nil
		}, nil

	case emit.OpStoreField:
		fi := u.decl.FieldIndex(op.Field)
		if fi < 0 {
			return nil, fmt.Errorf("unknown field %s", op.Field)
		}
		typ := u.fieldTypes[fi]
		return func(o *Object, args []any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("%s takes 1 argument", m.Name)
			}
			v, err := typedesc.Coerce(args[0], typ)
			if err != nil {
				return nil, err
			}
			o.store(fi, v)
			return nil, nil
		}, nil

	case emit.OpReturnConst:
		rt, err := resolveType(m.Returns)
		if err != nil {
			return nil, err
		}
		v, err := typedesc.Coerce(op.Const, rt)
		if err != nil {
			return nil, err
		}
		return func(*Object, []any) (any, error) {
			return v, nil
		}, nil

	case emit.OpInvokeStatic, emit.OpInvokeDefault:
		sym, err := resolve(op.Symbol)
		if err != nil {
			return nil, err
		}
		body, ok := sym.(typedesc.Body)
		if !ok || body == nil {
			return nil, fmt.Errorf("symbol %s is not a method body", op.Symbol)
		}
		if op.Code == emit.OpInvokeDefault {
			return func(o *Object, args []any) (any, error) {
				return body(o, args)
			}, nil
		}
		return func(o *Object, args []any) (any, error) {
			full := make([]any, 0, len(args)+1)
			full = append(full, o)
			full = append(full, args...)
			return body(nil, full)
		}, nil

	case emit.OpConstruct:
		sym, err := resolve(op.Symbol)
		if err != nil {
			return nil, err
		}
		target, ok := sym.(*Unit)
		if !ok {
			return nil, fmt.Errorf("symbol %s is not a unit", op.Symbol)
		}
		if len(op.Args) != len(target.ctor) {
			return nil, fmt.Errorf("new %s: %d arguments, want %d", target.name, len(op.Args), len(target.ctor))
		}
		spec := op.Args
		return func(_ *Object, args []any) (any, error) {
			ctorArgs := make([]any, len(spec))
			for i, a := range spec {
				switch a.Kind {
				case emit.ArgParam:
					if a.Index >= len(args) {
						return nil, fmt.Errorf("%s: missing argument %d", m.Name, a.Index)
					}
					ctorArgs[i] = args[a.Index]
				case emit.ArgLiteral:
					ctorArgs[i] = a.Literal
				}
			}
			o, err := target.New(ctorArgs...)
			if err != nil {
				return nil, err
			}
			return o, nil
		}, nil

	case emit.OpDispatch:
		return linkDispatch(u, op, resolve, resolveType)

	default:
		return nil, fmt.Errorf("unsupported op %s", op.Code)
	}
}
