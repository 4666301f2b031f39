package pipeline

import "fmt"

// Run stages, used to tag failures for the trigger caller.
const (
	StageFetch  = "fetch"
	StageLoad   = "load"
	StageCursor = "cursor"
)

// RunError tags a run failure with the stage it happened in.
type RunError struct {
	Stage string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
