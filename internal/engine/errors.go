package engine

import (
	"fmt"
	"strings"
)

// MissingInputsError reports workflow-level inputs a step declares but that
// are absent from the supplied inputs document. Fatal at validation time.
type MissingInputsError struct {
	StepID int
	Names  []string
}

func (e *MissingInputsError) Error() string {
	return fmt.Sprintf("step %d: missing inputs: %s", e.StepID, strings.Join(e.Names, ","))
}

// UnknownToolError reports a tool_id that the ToolBox does not recognise.
// Fatal at validation time.
type UnknownToolError struct {
	StepID int
	ToolID string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("step %d: unknown tool %q", e.StepID, e.ToolID)
}

// RenderError wraps a failure from Tool.RenderCmdline. Fatal for the run.
type RenderError struct {
	StepID int
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("step %d: render command: %v", e.StepID, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// RunnerStartFailureError reports a runner that could not be started (local
// subprocess spawn failure, or non-2xx from a remote submission). Fatal.
type RunnerStartFailureError struct {
	StepID int
	Err    error
}

func (e *RunnerStartFailureError) Error() string {
	return fmt.Sprintf("step %d: failed to start runner: %v", e.StepID, e.Err)
}

func (e *RunnerStartFailureError) Unwrap() error { return e.Err }

// JobNonZeroExitError records a job that completed with a non-zero exit
// code. Not fatal by default; promoted to fatal when Config.FailFast is set.
type JobNonZeroExitError struct {
	StepID     int
	ReturnCode int
}

func (e *JobNonZeroExitError) Error() string {
	return fmt.Sprintf("step %d: exited with code %d", e.StepID, e.ReturnCode)
}

// InternalError reports a scheduler invariant violation, such as resolving
// an upstream result that has not yet been recorded. Always fatal.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string { return "internal error: " + e.Msg }
