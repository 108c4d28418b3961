package gen

import (
	"context"

	"github.com/dshills/eventsys/internal/event"
	"github.com/dshills/eventsys/internal/gen/factory"
	"github.com/dshills/eventsys/internal/gen/install"
	"github.com/dshills/eventsys/internal/spec"
	"github.com/dshills/eventsys/internal/typedesc"
	"github.com/dshills/eventsys/internal/workpool"
)

// The async variants run the synchronous operation on the worker pool. A
// request for a key that is already being synthesized waits for that
// synthesis. ctx bounds queueing only: a queued synthesis always runs to
// completion.

// CreateFactoryAsync is the asynchronous form of CreateFactory.
func (g *Generator) CreateFactoryAsync(ctx context.Context, t *typedesc.Descriptor) *workpool.Future[*factory.Factory] {
	return submit(ctx, g, func() (*factory.Factory, error) {
		return g.CreateFactory(t)
	})
}

// CreateEventClassAsync is the asynchronous form of CreateEventClass.
func (g *Generator) CreateEventClassAsync(ctx context.Context, t *typedesc.Descriptor, props []spec.PropertyInfo, exts []spec.ExtensionSpecification) *workpool.Future[*install.Unit] {
	return submit(ctx, g, func() (*install.Unit, error) {
		return g.CreateEventClass(t, props, exts)
	})
}

// CreateMethodListenerTypeAsync is the asynchronous form of
// CreateMethodListenerType.
func (g *Generator) CreateMethodListenerTypeAsync(ctx context.Context, target typedesc.Target, s spec.ListenerSpec, opts ...ListenerOption) *workpool.Future[*install.Unit] {
	return submit(ctx, g, func() (*install.Unit, error) {
		return g.CreateMethodListenerType(target, s, opts...)
	})
}

// CreateMethodListenerAsync is the asynchronous form of
// CreateMethodListener.
func (g *Generator) CreateMethodListenerAsync(ctx context.Context, target typedesc.Target, instance any, s spec.ListenerSpec, opts ...ListenerOption) *workpool.Future[event.Listener] {
	return submit(ctx, g, func() (event.Listener, error) {
		return g.CreateMethodListener(target, instance, s, opts...)
	})
}

func submit[T any](ctx context.Context, g *Generator, fn func() (T, error)) *workpool.Future[T] {
	if g.closed.Load() {
		var zero T
		return workpool.Resolved(zero, event.ErrGeneratorClosed)
	}
	return workpool.Go(ctx, g.pool, func(context.Context) (T, error) {
		return fn()
	})
}
