package gen

import (
	"github.com/dshills/eventsys/internal/workpool"
)

// Stats is a snapshot of generator state.
type Stats struct {
	// Cached entries per artifact kind.
	Factories     int
	EventClasses  int
	ListenerTypes int
	Listeners     int

	// Synthesis runs per artifact kind, including failed ones.
	FactorySyntheses  uint64
	EventSyntheses    uint64
	ListenerSyntheses uint64

	// Extensions is the number of types with registered extensions.
	Extensions int

	Pool workpool.Stats
}

// Stats returns a snapshot of the generator state.
func (g *Generator) Stats() Stats {
	return Stats{
		Factories:         g.factories.Len(),
		EventClasses:      g.events.Len(),
		ListenerTypes:     g.listeners.Len(),
		Listeners:         g.adapters.Len(),
		FactorySyntheses:  g.syntheses.factory.Load(),
		EventSyntheses:    g.syntheses.event.Load(),
		ListenerSyntheses: g.syntheses.listener.Load(),
		Extensions:        g.extensions.Len(),
		Pool:              g.pool.Stats(),
	}
}
