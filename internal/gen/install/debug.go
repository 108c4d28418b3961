package install

import (
	"fmt"
	"path"
	"strings"

	"github.com/spf13/afero"

	"github.com/dshills/eventsys/internal/gen/emit"
)

// Debug sink tags.
const (
	TagFactory  = "factorygen"
	TagEvent    = "eventgen"
	TagListener = "listenergen"
)

// DebugSink persists artifacts for inspection. Each artifact is written as
// <root>/<tag>/<name with dots as slashes>.cbor plus a .txt listing.
type DebugSink struct {
	fs   afero.Fs
	root string
}

// NewDebugSink creates a sink writing below root on fs.
func NewDebugSink(fs afero.Fs, root string) *DebugSink {
	return &DebugSink{fs: fs, root: root}
}

// Paths returns the payload and listing paths for an artifact name.
func (s *DebugSink) Paths(tag, name string) (payload, listing string) {
	base := path.Join(s.root, tag, strings.ReplaceAll(name, ".", "/"))
	return base + ".cbor", base + ".txt"
}

// Save writes a. Failures to remove previous files are ignored.
func (s *DebugSink) Save(tag string, a *emit.Artifact) error {
	payload, listing := s.Paths(tag, a.Name())

	if err := s.fs.MkdirAll(path.Dir(payload), 0o755); err != nil {
		return fmt.Errorf("debug sink: %w", err)
	}
	_ = s.fs.Remove(payload)
	_ = s.fs.Remove(listing)

	if err := afero.WriteFile(s.fs, payload, a.Bytes, 0o644); err != nil {
		return fmt.Errorf("debug sink: %w", err)
	}
	if err := afero.WriteFile(s.fs, listing, []byte(a.Readable()), 0o644); err != nil {
		return fmt.Errorf("debug sink: %w", err)
	}
	return nil
}
