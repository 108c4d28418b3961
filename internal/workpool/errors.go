package workpool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
)

// Sentinel errors for the workpool package.
var (
	// ErrAlreadyRunning is returned when Start is called on a running pool.
	ErrAlreadyRunning = errors.New("pool is already running")

	// ErrNotRunning is returned when tasks are submitted to a stopped pool.
	ErrNotRunning = errors.New("pool is not running")
)

// PanicHandler is called with the recovered value and stack of a panicking
// task.
type PanicHandler func(value any, stack []byte)

// PanicError is the result of a task that panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

func asPanic(err error, target **PanicError) bool {
	return err != nil && errors.As(err, target)
}

// execute runs task, converting a panic into a *PanicError.
func execute(ctx context.Context, task Task, h PanicHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			err = &PanicError{Value: r, Stack: stack}
			if h != nil {
				func() {
					defer func() { _ = recover() }()
					h(r, stack)
				}()
			}
		}
	}()
	return task(ctx)
}
