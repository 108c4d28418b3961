package event

import (
	"context"
	"strings"
)

// Priority determines listener execution order.
// Lower values execute first.
type Priority int

const (
	PriorityFirst Priority = iota
	PriorityHigher
	PriorityHigh
	PriorityNormal
	PriorityLow
	PriorityLower
	PriorityLast
)

var priorityNames = [...]string{"first", "higher", "high", "normal", "low", "lower", "last"}

// String returns a human-readable priority name.
func (p Priority) String() string {
	if p < 0 || int(p) >= len(priorityNames) {
		return "unknown"
	}
	return priorityNames[p]
}

// ParsePriority parses a priority name. Unknown names yield PriorityNormal
// and false.
func ParsePriority(s string) (Priority, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range priorityNames {
		if name == s {
			return Priority(i), true
		}
	}
	return PriorityNormal, false
}

// Listener receives events. Implementations are produced by the listener
// adapter generator.
type Listener interface {
	// OnEvent delivers evt. A listener that cannot resolve a required
	// property returns nil without doing anything.
	OnEvent(ctx context.Context, evt Event) error

	// Priority returns the configured priority.
	Priority() Priority

	// Phase returns the configured phase.
	Phase() int

	// IgnoreCancelled reports whether cancelled events are still delivered.
	IgnoreCancelled() bool
}
