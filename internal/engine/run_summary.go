package engine

// StuckStep describes a tool step that never became ready by the time the
// driver loop terminated, along with which upstream connections it was still
// waiting on.
type StuckStep struct {
	StepID    int
	WaitingOn []int
}

// RunSummary is the aggregate result of one Engine.Run call, letting callers
// (the CLI, tests, the completion notifier) inspect the outcome without
// parsing logs.
type RunSummary struct {
	Done        []int
	Stuck       []StuckStep
	WallSeconds float64
}

// OK reports whether the run completed with no stuck steps.
func (r *RunSummary) OK() bool { return len(r.Stuck) == 0 }
