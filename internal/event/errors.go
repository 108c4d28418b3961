package event

import (
	"errors"
	"strings"
)

// Sentinel errors for generation and installation.
var (
	// ErrConfiguration is matched by every *ConfigError.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrInstallation is matched by every *InstallError.
	ErrInstallation = errors.New("artifact installation failed")

	// ErrDuplicateArtifact is returned when an artifact name is already
	// installed in a loader.
	ErrDuplicateArtifact = errors.New("artifact already installed")

	// ErrLookup is matched by every *LookupError.
	ErrLookup = errors.New("symbol not visible")

	// ErrReadOnly is returned when setting a read-only property.
	ErrReadOnly = errors.New("property is read-only")

	// ErrNoSuchMethod is returned when calling an unknown method.
	ErrNoSuchMethod = errors.New("no such method")

	// ErrGeneratorClosed is returned by async operations after Close.
	ErrGeneratorClosed = errors.New("generator is closed")
)

// ConfigError reports a malformed specification. It names the offending
// type and, where known, the method and parameter.
type ConfigError struct {
	// Type is the name of the type being generated.
	Type string

	// Method is the offending method, if any.
	Method string

	// Parameter is the offending parameter, if any.
	Parameter string

	// Reason describes the problem.
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error in ")
	b.WriteString(e.Type)
	if e.Method != "" {
		b.WriteString(".")
		b.WriteString(e.Method)
	}
	if e.Parameter != "" {
		b.WriteString(" parameter ")
		b.WriteString(e.Parameter)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

// Is allows errors.Is to match ConfigError with ErrConfiguration.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

// InstallError wraps a failure to install an artifact.
type InstallError struct {
	// Name is the fully-qualified artifact name.
	Name string

	// Loader is the name of the target loader.
	Loader string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *InstallError) Error() string {
	return "install " + e.Name + " into " + e.Loader + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *InstallError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is to match InstallError with ErrInstallation.
func (e *InstallError) Is(target error) bool {
	return target == ErrInstallation
}

// LookupError reports a symbol that is not visible from a loader.
type LookupError struct {
	// Symbol is the name that could not be resolved.
	Symbol string

	// Loader is the name of the loader the lookup started from.
	Loader string
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	return "symbol " + e.Symbol + " is not visible from loader " + e.Loader
}

// Is allows errors.Is to match LookupError with ErrLookup.
func (e *LookupError) Is(target error) bool {
	return target == ErrLookup
}
