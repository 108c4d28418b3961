package manifest

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/afero"

	"github.com/dshills/eventsys/internal/event"
	"github.com/dshills/eventsys/internal/script"
	"github.com/dshills/eventsys/internal/spec"
	"github.com/dshills/eventsys/internal/typedesc"
)

// ErrInvalid wraps every problem Build finds in a document.
var ErrInvalid = errors.New("invalid manifest")

var builtins = map[string]typedesc.Type{
	"int":     typedesc.Int,
	"int64":   typedesc.Int64,
	"float64": typedesc.Float64,
	"string":  typedesc.String,
	"bool":    typedesc.Bool,
	"any":     typedesc.Any,

	event.EventType.Name:       event.EventType,
	event.CancellableType.Name: event.CancellableType,
}

// Model is a built manifest. Close releases its script providers.
type Model struct {
	// Types holds every declared type by name.
	Types map[string]*typedesc.Descriptor

	Extensions []Registration
	Factories  []*typedesc.Descriptor
	Events     []spec.EventClassSpecification

	scripts map[string]*script.Provider
}

// Registration is an extension registered for a base type.
type Registration struct {
	Base      *typedesc.Descriptor
	Extension spec.ExtensionSpecification
}

// Close releases the script providers.
func (m *Model) Close() error {
	var errs []error
	for _, p := range m.scripts {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

// Scripts returns the names of the loaded scripts, sorted.
func (m *Model) Scripts() []string {
	names := make([]string, 0, len(m.scripts))
	for name := range m.scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type builder struct {
	fs    afero.Fs
	dir   string
	opts  []script.Option
	model *Model
	errs  []error

	// providers memoizes script descriptors per script and interface so
	// equal references yield identical extension values.
	providers map[[2]string]*typedesc.Descriptor
}

// Build resolves doc into descriptors and specifications. Script files are
// read from fs relative to dir.
func Build(fs afero.Fs, dir string, doc *Document, opts ...script.Option) (*Model, error) {
	b := &builder{
		fs:   fs,
		dir:  dir,
		opts: opts,
		model: &Model{
			Types:   make(map[string]*typedesc.Descriptor),
			scripts: make(map[string]*script.Provider),
		},
		providers: make(map[[2]string]*typedesc.Descriptor),
	}

	b.loadScripts(doc.Scripts)
	b.declare(doc.Types)
	b.define(doc.Types)
	b.checkCycles()
	if len(b.errs) == 0 {
		b.bindImpls(doc.Types)
		b.registrations(doc.Extensions)
		b.factories(doc.Factories)
		b.events(doc.Events)
	}

	if len(b.errs) > 0 {
		_ = b.model.Close()
		return nil, fmt.Errorf("%w: %w", ErrInvalid, errors.Join(b.errs...))
	}
	return b.model, nil
}

func (b *builder) fail(format string, args ...any) {
	b.errs = append(b.errs, fmt.Errorf(format, args...))
}

func (b *builder) loadScripts(scripts []Script) {
	for i, s := range scripts {
		if s.Name == "" {
			b.fail("scripts[%d]: name is required", i)
			continue
		}
		if _, dup := b.model.scripts[s.Name]; dup {
			b.fail("script %s: declared twice", s.Name)
			continue
		}
		source := s.Source
		switch {
		case s.File != "" && s.Source != "":
			b.fail("script %s: file and source are exclusive", s.Name)
			continue
		case s.File != "":
			data, err := afero.ReadFile(b.fs, resolvePath(b.dir, s.File))
			if err != nil {
				b.fail("script %s: %w", s.Name, err)
				continue
			}
			source = string(data)
		}
		p, err := script.Load(s.Name, source, b.opts...)
		if err != nil {
			b.fail("script %s: %w", s.Name, err)
			continue
		}
		b.model.scripts[s.Name] = p
	}
}

// declare creates an empty descriptor per type so references can be
// resolved regardless of declaration order.
func (b *builder) declare(types []Type) {
	for i, t := range types {
		switch {
		case t.Name == "":
			b.fail("types[%d]: name is required", i)
		case builtins[t.Name] != nil:
			b.fail("type %s: redeclares a builtin", t.Name)
		case b.model.Types[t.Name] != nil:
			b.fail("type %s: declared twice", t.Name)
		default:
			b.model.Types[t.Name] = &typedesc.Descriptor{Name: t.Name, Kind: typedesc.KindInterface}
		}
	}
}

func (b *builder) define(types []Type) {
	for _, t := range types {
		d := b.model.Types[t.Name]
		if d == nil {
			continue
		}
		for _, name := range t.Extends {
			if sup := b.descriptor(name); sup != nil {
				d.Extends = append(d.Extends, sup)
			} else {
				b.fail("type %s: extends unknown interface %q", t.Name, name)
			}
		}
		for _, m := range t.Methods {
			if method, ok := b.method(t.Name, m); ok {
				d.Methods = append(d.Methods, method)
			}
		}
	}
}

func (b *builder) method(owner string, m Method) (typedesc.Method, bool) {
	if m.Name == "" {
		b.fail("type %s: method name is required", owner)
		return typedesc.Method{}, false
	}
	out := typedesc.Method{Name: m.Name}
	ok := true
	if m.Returns != "" {
		if out.Returns = b.typ(m.Returns); out.Returns == nil {
			b.fail("%s.%s: unknown return type %q", owner, m.Name, m.Returns)
			ok = false
		}
	}
	for _, p := range m.Params {
		pt := b.typ(p.Type)
		if pt == nil {
			b.fail("%s.%s: parameter %s has unknown type %q", owner, m.Name, p.Name, p.Type)
			ok = false
			continue
		}
		out.Params = append(out.Params, typedesc.Param{
			Name:         p.Name,
			NameOverride: p.As,
			Type:         pt,
			Mutable:      p.Mutable,
			Nullable:     p.Nullable,
		})
	}
	// Script providers are bound by bindImpls.
	for _, ref := range m.Extensions {
		impl := b.descriptor(ref.Implement)
		if ref.Implement != "" && impl == nil {
			b.fail("%s.%s: unknown extension interface %q", owner, m.Name, ref.Implement)
			ok = false
			continue
		}
		out.Extensions = append(out.Extensions, typedesc.Extension{Implement: impl})
	}
	return out, ok
}

func (b *builder) checkCycles() {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[*typedesc.Descriptor]int)
	var visit func(d *typedesc.Descriptor) bool
	visit = func(d *typedesc.Descriptor) bool {
		switch state[d] {
		case visiting:
			return false
		case done:
			return true
		}
		state[d] = visiting
		for _, sup := range d.Extends {
			if !visit(sup) {
				return false
			}
		}
		state[d] = done
		return true
	}

	names := make([]string, 0, len(b.model.Types))
	for name := range b.model.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !visit(b.model.Types[name]) {
			b.fail("type %s: cyclic extends", name)
			return
		}
	}
}

// bindImpls attaches script companions and method extension providers
// once every descriptor is complete.
func (b *builder) bindImpls(types []Type) {
	for _, t := range types {
		d := b.model.Types[t.Name]
		if t.Impl != "" {
			d.Impl = b.provider(t.Impl, d)
		}
		for i, m := range t.Methods {
			for j, ref := range m.Extensions {
				if ref.Script == "" || i >= len(d.Methods) || j >= len(d.Methods[i].Extensions) {
					continue
				}
				ext := &d.Methods[i].Extensions[j]
				if ext.Implement == nil {
					b.fail("%s.%s: script %s needs an interface to implement", t.Name, m.Name, ref.Script)
					continue
				}
				ext.Provider = b.provider(ref.Script, ext.Implement)
			}
		}
	}
}

func (b *builder) registrations(exts []Extension) {
	for i, e := range exts {
		base := b.descriptor(e.Base)
		if base == nil {
			b.fail("extensions[%d]: unknown base %q", i, e.Base)
			continue
		}
		ext, ok := b.extension(fmt.Sprintf("extensions[%d]", i), e.ExtensionRef)
		if ok {
			b.model.Extensions = append(b.model.Extensions, Registration{Base: base, Extension: ext})
		}
	}
}

func (b *builder) factories(names []string) {
	for _, name := range names {
		d := b.model.Types[name]
		if d == nil {
			b.fail("factory %q: unknown type", name)
			continue
		}
		b.model.Factories = append(b.model.Factories, d)
	}
}

func (b *builder) events(events []EventClass) {
	for i, e := range events {
		d := b.descriptor(e.Type)
		if d == nil {
			b.fail("events[%d]: unknown type %q", i, e.Type)
			continue
		}
		s := spec.EventClassSpecification{Type: d}
		for _, p := range e.Properties {
			pt := b.typ(p.Type)
			if p.Name == "" || pt == nil {
				b.fail("events[%d]: property %q has unknown type %q", i, p.Name, p.Type)
				continue
			}
			s.AdditionalProperties = append(s.AdditionalProperties, spec.NewProperty(p.Name, pt, p.Mutable))
		}
		for j, ref := range e.Extensions {
			if ext, ok := b.extension(fmt.Sprintf("events[%d].extensions[%d]", i, j), ref); ok {
				s.Extensions = append(s.Extensions, ext)
			}
		}
		b.model.Events = append(b.model.Events, s)
	}
}

func (b *builder) extension(where string, ref ExtensionRef) (spec.ExtensionSpecification, bool) {
	var ext spec.ExtensionSpecification
	if ref.Implement != "" {
		if ext.Implement = b.descriptor(ref.Implement); ext.Implement == nil {
			b.fail("%s: unknown interface %q", where, ref.Implement)
			return ext, false
		}
	}
	if ref.Script != "" {
		if ext.Implement == nil {
			b.fail("%s: script %s needs an interface to implement", where, ref.Script)
			return ext, false
		}
		if ext.Provider = b.provider(ref.Script, ext.Implement); ext.Provider == nil {
			return ext, false
		}
	}
	if ext.Implement == nil {
		b.fail("%s: implement or script is required", where)
		return ext, false
	}
	return ext, true
}

func (b *builder) provider(name string, implement *typedesc.Descriptor) *typedesc.Descriptor {
	key := [2]string{name, implement.Name}
	if d, ok := b.providers[key]; ok {
		return d
	}
	p := b.model.scripts[name]
	if p == nil {
		b.fail("unknown script %q", name)
		return nil
	}
	d, err := p.Descriptor(implement)
	if err != nil {
		b.fail("script %s: %w", name, err)
		return nil
	}
	b.providers[key] = d
	return d
}

func (b *builder) descriptor(name string) *typedesc.Descriptor {
	if d, ok := b.model.Types[name]; ok {
		return d
	}
	d, _ := builtins[name].(*typedesc.Descriptor)
	return d
}

func (b *builder) typ(name string) typedesc.Type {
	if d, ok := b.model.Types[name]; ok {
		return d
	}
	return builtins[name]
}
