// Package install links emitted artifacts into executable units.
//
// Artifacts are installed into a Loader. Installing decodes the declaration
// when needed, resolves every referenced symbol, builds one closure per
// method and records the result in the process-wide Installed list. A name
// can be installed only once per loader.
package install

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dshills/eventsys/internal/event"
	"github.com/dshills/eventsys/internal/gen/emit"
)

// Installer installs artifacts into loaders.
type Installer struct {
	emitter *emit.Emitter
}

// NewInstaller creates an installer that decodes raw payloads with e.
func NewInstaller(e *emit.Emitter) *Installer {
	return &Installer{emitter: e}
}

// Install installs the raw payload under name. The payload must encode a
// declaration with the same name.
func (in *Installer) Install(l *Loader, name string, payload []byte, symbols emit.Symbols) (*Unit, error) {
	decl, err := in.emitter.Decode(payload)
	if err != nil {
		return nil, &event.InstallError{Name: name, Loader: l.name, Err: err}
	}
	if decl.Name != name {
		return nil, &event.InstallError{
			Name:   name,
			Loader: l.name,
			Err:    fmt.Errorf("payload declares %s", decl.Name),
		}
	}
	a, err := in.emitter.Emit(decl, symbols)
	if err != nil {
		return nil, &event.InstallError{Name: name, Loader: l.name, Err: err}
	}
	a.Bytes = payload
	return in.define(l, a)
}

// InstallArtifact installs an emitted artifact.
func (in *Installer) InstallArtifact(l *Loader, a *emit.Artifact) (*Unit, error) {
	return in.define(l, a)
}

// define is the single installation primitive.
func (in *Installer) define(l *Loader, a *emit.Artifact) (*Unit, error) {
	name := a.Decl.Name
	if l.hasDirect(name) {
		return nil, &event.InstallError{Name: name, Loader: l.name, Err: event.ErrDuplicateArtifact}
	}

	u, err := link(l, a)
	if err != nil {
		return nil, &event.InstallError{Name: name, Loader: l.name, Err: err}
	}
	u.id = uuid.New()

	if !l.add(u) {
		return nil, &event.InstallError{Name: name, Loader: l.name, Err: event.ErrDuplicateArtifact}
	}
	record(u)
	return u, nil
}
