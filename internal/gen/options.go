package gen

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/eventsys/internal/config"
	"github.com/dshills/eventsys/internal/gen/emit"
	"github.com/dshills/eventsys/internal/gen/install"
	"github.com/dshills/eventsys/internal/logging"
)

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.log = l
		}
	}
}

// WithConfig sets the configuration. Worker and queue sizes given by
// WithWorkers and WithQueueSize take precedence.
func WithConfig(cfg config.Config) Option {
	return func(g *Generator) {
		g.cfg = cfg
	}
}

// WithWorkers sets the number of async workers.
func WithWorkers(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.workers = n
		}
	}
}

// WithQueueSize sets the async queue size.
func WithQueueSize(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.queueSize = n
		}
	}
}

// WithLoader sets the loader artifacts are installed into by default.
func WithLoader(l *install.Loader) Option {
	return func(g *Generator) {
		if l != nil {
			g.loader = l
		}
	}
}

// WithDebugSink sets the sink debug artifacts are written to. The config
// still decides which kinds are written.
func WithDebugSink(s *install.DebugSink) Option {
	return func(g *Generator) {
		g.sink = s
	}
}

// WithRegisterer registers the generator metrics on r instead of a private
// registry.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(g *Generator) {
		g.registerer = r
	}
}

// WithEmitter sets the emission backend.
func WithEmitter(e *emit.Emitter) Option {
	return func(g *Generator) {
		if e != nil {
			g.emitter = e
		}
	}
}

// ListenerOption configures a single listener request.
type ListenerOption func(*listenerRequest)

type listenerRequest struct {
	loader *install.Loader
}

// InLoader installs the adapter into l. The declaring type of the target
// must be exposed by l under emit.OwnerSymbol.
func InLoader(l *install.Loader) ListenerOption {
	return func(r *listenerRequest) {
		r.loader = l
	}
}
