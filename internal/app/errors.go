package app

import (
	"errors"
	"fmt"
)

// ErrShutdownTimeout is returned when a subsystem does not stop within
// the shutdown deadline.
var ErrShutdownTimeout = errors.New("shutdown timed out")

// ComponentError records which subsystem failed during assembly or
// shutdown.
type ComponentError struct {
	// Component is the subsystem name, matching its log component.
	Component string

	// Action is what the subsystem was doing.
	Action string

	// Err is the underlying error.
	Err error
}

func (e *ComponentError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Component, e.Action, e.Err)
}

func (e *ComponentError) Unwrap() error {
	return e.Err
}
