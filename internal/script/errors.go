package script

import "errors"

var (
	// ErrClosed is returned by calls on a closed provider.
	ErrClosed = errors.New("script provider is closed")

	// ErrNoFunction is returned when a script does not define the function.
	ErrNoFunction = errors.New("function not defined")
)

// Error reports a failure to compile, load or run a script.
type Error struct {
	Script string
	Func   string
	Err    error
}

func (e *Error) Error() string {
	if e.Func != "" {
		return "script " + e.Script + ": " + e.Func + ": " + e.Err.Error()
	}
	return "script " + e.Script + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
