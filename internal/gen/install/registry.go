package install

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/eventsys/internal/gen/emit"
)

// Record describes one installed artifact.
type Record struct {
	ID          uuid.UUID
	Name        string
	Kind        string
	Loader      string
	Artifact    *emit.Artifact
	InstalledAt time.Time
}

// installed is the process-wide list of installed artifacts.
var installed struct {
	mu      sync.RWMutex
	records []Record
}

func record(u *Unit) {
	installed.mu.Lock()
	defer installed.mu.Unlock()
	installed.records = append(installed.records, Record{
		ID:          u.id,
		Name:        u.name,
		Kind:        u.decl.Kind,
		Loader:      u.loader.name,
		Artifact:    u.artifact,
		InstalledAt: time.Now(),
	})
}

// Installed returns every artifact installed in this process, in
// installation order. The returned slice is a copy.
func Installed() []Record {
	installed.mu.RLock()
	defer installed.mu.RUnlock()
	out := make([]Record, len(installed.records))
	copy(out, installed.records)
	return out
}

// InstalledSince returns the records installed after the first n.
func InstalledSince(n int) []Record {
	installed.mu.RLock()
	defer installed.mu.RUnlock()
	if n >= len(installed.records) {
		return nil
	}
	if n < 0 {
		n = 0
	}
	out := make([]Record, len(installed.records)-n)
	copy(out, installed.records[n:])
	return out
}

// InstalledCount returns the number of installed artifacts.
func InstalledCount() int {
	installed.mu.RLock()
	defer installed.mu.RUnlock()
	return len(installed.records)
}
