package gosinter

import (
	"fmt"
)

// PreconditionError reports a state which failed a precondition between
// stages.
type PreconditionError struct {
	Name string
	Err  error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition '%s' failed: %v", e.Name, e.Err)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// StageError reports a failed stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage '%s' failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
