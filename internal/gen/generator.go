// Package gen is the entry point for generating event implementations,
// factories and listener adapters.
//
// A Generator memoizes every artifact it produces: equal requests return the
// same installed unit, and concurrent requests for the same key share one
// synthesis. Event implementations are keyed by the base type, the
// additional properties, the extensions registered for the type and the
// caller supplied extensions. Registering an extension evicts the entries
// that were built without it on the next request for the same shape.
//
// # Basic Usage
//
//	g, err := gen.New(gen.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	defer g.Close(ctx)
//
//	f, err := g.CreateFactory(transferFactory)
//	evt, err := factory.Invoke[*install.Object](f, "create", 42)
package gen

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"github.com/dshills/eventsys/internal/config"
	"github.com/dshills/eventsys/internal/event"
	"github.com/dshills/eventsys/internal/gen/cache"
	"github.com/dshills/eventsys/internal/gen/emit"
	"github.com/dshills/eventsys/internal/gen/eventclass"
	"github.com/dshills/eventsys/internal/gen/extension"
	"github.com/dshills/eventsys/internal/gen/factory"
	"github.com/dshills/eventsys/internal/gen/install"
	"github.com/dshills/eventsys/internal/gen/listener"
	"github.com/dshills/eventsys/internal/logging"
	"github.com/dshills/eventsys/internal/metrics"
	"github.com/dshills/eventsys/internal/spec"
	"github.com/dshills/eventsys/internal/typedesc"
	"github.com/dshills/eventsys/internal/workpool"
)

// Generator produces and caches generated artifacts. It is safe for
// concurrent use.
type Generator struct {
	cfg        config.Config
	log        *logging.Logger
	emitter    *emit.Emitter
	installer  *install.Installer
	loader     *install.Loader
	sink       *install.DebugSink
	registerer prometheus.Registerer
	metrics    *metrics.Metrics
	workers    int
	queueSize  int
	pool       *workpool.Pool

	extensions *extension.Registry

	factories *cache.Cache[*typedesc.Descriptor, *factory.Factory]
	events    *cache.Cache[spec.EventClassKey, *install.Unit]
	listeners *cache.Cache[string, *install.Unit]
	adapters  *cache.Cache[string, *listener.Adapter]

	syntheses struct {
		factory, event, listener atomic.Uint64
	}

	closeOnce sync.Once
	closed    atomic.Bool
}

// New creates a generator and starts its worker pool.
func New(opts ...Option) (*Generator, error) {
	g := &Generator{
		cfg:        config.Default(),
		log:        logging.Nop(),
		extensions: extension.NewRegistry(),
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.emitter == nil {
		e, err := emit.NewEmitter()
		if err != nil {
			return nil, err
		}
		g.emitter = e
	}
	g.installer = install.NewInstaller(g.emitter)
	if g.loader == nil {
		g.loader = install.NewLoader("eventsys", nil)
	}
	if g.sink == nil && g.cfg.AnyDebug() {
		g.sink = install.NewDebugSink(afero.NewOsFs(), g.cfg.Debug.Dir)
	}
	g.metrics = metrics.New(g.registerer)

	g.factories = cache.New[*typedesc.Descriptor, *factory.Factory](metrics.CacheFactory, g.metrics)
	g.events = cache.New[spec.EventClassKey, *install.Unit](metrics.CacheEvent, g.metrics)
	g.listeners = cache.New[string, *install.Unit](metrics.CacheListener, g.metrics)
	g.adapters = cache.New[string, *listener.Adapter](metrics.CacheAdapter, g.metrics)

	if g.workers == 0 {
		g.workers = g.cfg.Workers
	}
	if g.queueSize == 0 {
		g.queueSize = g.cfg.QueueSize
	}
	g.pool = workpool.New(
		workpool.WithWorkers(g.workers),
		workpool.WithQueueSize(g.queueSize),
		workpool.WithPanicHandler(func(v any, _ []byte) {
			g.log.Error("generation task panicked: %v", v)
		}),
	)
	if err := g.pool.Start(); err != nil {
		return nil, err
	}
	return g, nil
}

// Close stops the worker pool. Pending async requests finish first unless
// ctx is done. Async requests made after Close fail with
// event.ErrGeneratorClosed.
func (g *Generator) Close(ctx context.Context) error {
	var err error
	g.closeOnce.Do(func() {
		g.closed.Store(true)
		err = g.pool.Stop(ctx)
	})
	return err
}

// Loader returns the default loader.
func (g *Generator) Loader() *install.Loader { return g.loader }

// Metrics returns the generator metrics.
func (g *Generator) Metrics() *metrics.Metrics { return g.metrics }

// RegisterExtension registers ext for base. It reports whether ext was
// new. Registration takes effect for later event class requests.
func (g *Generator) RegisterExtension(base *typedesc.Descriptor, ext spec.ExtensionSpecification) bool {
	added := g.extensions.Register(base, ext)
	if added {
		g.log.WithField("base", base.Name).Info("registered extension %s", ext.Key())
	}
	return added
}

// Extensions returns a snapshot of the extension registry.
func (g *Generator) Extensions() []extension.Entry {
	return g.extensions.Entries()
}

// CreateEventClass returns the implementation of t with the additional
// properties and extensions. Extensions registered for t (or, failing an
// exact entry, for the first registered type t extends) come before exts.
func (g *Generator) CreateEventClass(t *typedesc.Descriptor, props []spec.PropertyInfo, exts []spec.ExtensionSpecification) (*install.Unit, error) {
	if t == nil {
		return nil, &event.ConfigError{Type: "<nil>", Reason: "event type is required"}
	}
	key := spec.EventClassKey{
		Type:                 t,
		AdditionalProperties: slices.Clone(props),
		CurrentExtensions:    g.extensions.Lookup(t),
		UserExtensions:       slices.Clone(exts),
	}

	if n := g.events.EvictIf(func(k spec.EventClassKey) bool { return k.Stale(key) }); n > 0 {
		g.log.WithField("type", t.Name).Info("evicted %d stale event implementations", n)
	}

	return g.events.Get(key.Key(), key, func() (*install.Unit, error) {
		g.syntheses.event.Add(1)
		s := key.Realize()
		name := eventclass.NameFor(t, key.Key())
		if u, ok := g.loader.Unit(name); ok {
			if err := g.sameEvent(u, s, name); err != nil {
				return nil, err
			}
			return u, nil
		}
		return g.build(emit.KindEvent, install.TagEvent, g.cfg.EventGenEnabled(), g.loader, func() (*emit.TypeDecl, emit.Symbols, error) {
			return eventclass.Synthesize(s, name)
		})
	})
}

// sameEvent checks that the installed unit u is the implementation s would
// synthesize, so a name shared by two different requests is never reused.
func (g *Generator) sameEvent(u *install.Unit, s spec.EventClassSpecification, name string) error {
	decl, syms, err := eventclass.Synthesize(s, name)
	if err != nil {
		return err
	}
	a, err := g.emitter.Emit(decl, syms)
	if err != nil {
		return err
	}
	if u.Artifact() == nil || !bytes.Equal(u.Artifact().Bytes, a.Bytes) {
		return &event.InstallError{Name: name, Loader: g.loader.Name(), Err: event.ErrDuplicateArtifact}
	}
	return nil
}

// RegisterEventImplementation makes u the implementation returned for s.
// The extensions of s are treated as caller supplied.
func (g *Generator) RegisterEventImplementation(s spec.EventClassSpecification, u *install.Unit) error {
	if s.Type == nil || u == nil {
		return &event.ConfigError{Type: "<nil>", Reason: "type and implementation are required"}
	}
	if !u.Implements(s.Type) {
		return &event.ConfigError{Type: s.Type.Name, Reason: fmt.Sprintf("%s does not implement it", u.Name())}
	}
	key := spec.EventClassKey{
		Type:                 s.Type,
		AdditionalProperties: slices.Clone(s.AdditionalProperties),
		CurrentExtensions:    g.extensions.Lookup(s.Type),
		UserExtensions:       slices.Clone(s.Extensions),
	}
	g.events.Put(key.Key(), key, u)
	return nil
}

// CreateFactory returns the implementation of the factory interface t.
// Each factory type is synthesized once.
func (g *Generator) CreateFactory(t *typedesc.Descriptor) (*factory.Factory, error) {
	if err := factory.Validate(t); err != nil {
		return nil, err
	}
	return g.factories.Get(spec.TypeKey(t), t, func() (*factory.Factory, error) {
		g.syntheses.factory.Add(1)
		u, err := g.build(emit.KindFactory, install.TagFactory, g.cfg.FactoryGenEnabled(), g.loader, func() (*emit.TypeDecl, emit.Symbols, error) {
			return factory.Synthesize(t, g.CreateEventClass)
		})
		if err != nil {
			return nil, err
		}
		return factory.New(t, u)
	})
}

// ListenerSpecFromTarget derives the listener specification of target.
func (g *Generator) ListenerSpecFromTarget(target typedesc.Target, meta spec.ListenerMeta) (spec.ListenerSpec, error) {
	return spec.ListenerSpecFromTarget(target, meta)
}

// CreateMethodListenerType returns the adapter unit for target. Adapter
// units are cached per target and loader.
func (g *Generator) CreateMethodListenerType(target typedesc.Target, s spec.ListenerSpec, opts ...ListenerOption) (*install.Unit, error) {
	req := listenerRequest{}
	for _, opt := range opts {
		opt(&req)
	}
	l := req.loader
	if l == nil {
		l = g.loader
		if target.Owner != nil {
			l.Expose(emit.OwnerSymbol(target.Owner), target.Owner)
		}
	}
	key := listenerKey(l, target)
	return g.listeners.Get(key, key, func() (*install.Unit, error) {
		g.syntheses.listener.Add(1)
		return g.build(emit.KindListener, install.TagListener, g.cfg.ListenerGenEnabled(), l, func() (*emit.TypeDecl, emit.Symbols, error) {
			return listener.Synthesize(target, s)
		})
	})
}

// CreateMethodListener returns a listener delivering events to target.
// instance is the receiver of instance targets and is ignored for static
// ones. Adapters are reused for the same target and instance when the
// instance has pointer identity.
func (g *Generator) CreateMethodListener(target typedesc.Target, instance any, s spec.ListenerSpec, opts ...ListenerOption) (event.Listener, error) {
	u, err := g.CreateMethodListenerType(target, s, opts...)
	if err != nil {
		return nil, err
	}
	create := func() (*listener.Adapter, error) {
		return listener.NewAdapter(u, target, instance)
	}

	var a *listener.Adapter
	if id, ok := identity(target, instance); ok {
		key := u.ID().String() + "|" + id
		a, err = g.adapters.Get(key, key, create)
	} else {
		a, err = create()
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Installed returns every artifact installed in this process.
func (g *Generator) Installed() []install.Record {
	return install.Installed()
}

// build synthesizes, emits and installs one artifact.
func (g *Generator) build(kind, tag string, save bool, l *install.Loader, synth func() (*emit.TypeDecl, emit.Symbols, error)) (*install.Unit, error) {
	start := time.Now()
	log := g.log.WithField("kind", kind)

	decl, syms, err := synth()
	if err != nil {
		g.metrics.SynthesisFailed(kind)
		log.Err(err, "synthesis failed")
		return nil, err
	}
	a, err := g.emitter.Emit(decl, syms)
	if err != nil {
		g.metrics.SynthesisFailed(kind)
		log.Err(err, "emit %s failed", decl.Name)
		return nil, err
	}
	u, err := g.installer.InstallArtifact(l, a)
	if err != nil {
		g.metrics.SynthesisFailed(kind)
		log.Err(err, "install %s failed", decl.Name)
		return nil, err
	}
	g.metrics.Installed(kind)
	g.metrics.ObserveSynthesis(kind, time.Since(start))
	log.Debug("installed %s into %s", u.Name(), l.Name())

	if save && g.sink != nil {
		if err := g.sink.Save(tag, a); err != nil {
			log.Err(err, "saving %s", u.Name())
		}
	}
	return u, nil
}

func listenerKey(l *install.Loader, target typedesc.Target) string {
	return fmt.Sprintf("%s@%p|%s", l.Name(), l, target.Key())
}

// identity returns a key for instance when adapters for it can be shared.
func identity(target typedesc.Target, instance any) (string, bool) {
	if target.Static {
		return "static", true
	}
	if instance == nil {
		return "", false
	}
	v := reflect.ValueOf(instance)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return fmt.Sprintf("%s@%x", v.Type(), v.Pointer()), true
	default:
		return "", false
	}
}
