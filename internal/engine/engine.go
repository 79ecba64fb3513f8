package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kellrott/gwftool/internal/events"
	"github.com/kellrott/gwftool/internal/galaxy"
	"github.com/kellrott/gwftool/internal/jobreport"
	"github.com/kellrott/gwftool/internal/runner"
	"github.com/kellrott/gwftool/internal/tool"
)

// ReapInterval is the sleep between scheduling rounds, spec.md §4.5's
// "sleep(1 second)".
const ReapInterval = time.Second

// Factory selects a concrete Runner implementation for a job; injected so
// the driver loop never imports a concrete backend package.
type Factory func(*Job) (runner.Runner, error)

// Config holds the engine's execution-mode knobs. Ambient settings (log
// format, history DB path, etc.) live in internal/config, not here; these
// are the flags spec.md §6 says directly affect engine semantics.
type Config struct {
	Workdir  string
	Outdir   string
	FailFast bool
}

// Engine is the driver loop described in spec.md §4.5: it repeatedly scans
// for ready tool steps, starts runners for them, and reaps finished ones
// until nothing is pending and nothing is alive.
type Engine struct {
	WF      galaxy.Workflow
	Box     tool.Box
	State   *State
	Cfg     Config
	Factory Factory
	Log     *slog.Logger

	// Events publishes step transitions if non-nil; a publish failure is
	// logged and otherwise ignored, never treated as a run error.
	Events *events.Publisher

	jobs map[int]*Job
}

// New constructs an Engine ready to Run. State should already have been
// produced by BuildState against the same workflow/inputs/box.
func New(wf galaxy.Workflow, box tool.Box, st *State, cfg Config, factory Factory, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		WF:      wf,
		Box:     box,
		State:   st,
		Cfg:     cfg,
		Factory: factory,
		Log:     log,
		jobs:    make(map[int]*Job),
	}
}

// ready implements spec.md §4.5's ready(step) predicate: every upstream
// connection must already have a recorded result. (Missing declared-input
// validation has already happened in BuildState and cannot regress.)
func (e *Engine) ready(step galaxy.Step) bool {
	for _, conn := range step.InputConnections {
		if !e.State.Done(conn.UpstreamID) {
			return false
		}
	}
	return true
}

// Run drives the scheduling loop to completion and returns the aggregate
// RunSummary. The context is checked once per scheduling round; cancelling
// it stops the loop from starting new steps but lets in-flight runners drain,
// matching spec.md §7's propagation policy for runtime errors. With
// Cfg.FailFast set, a non-zero job exit stops new steps from starting, and
// once in-flight runners have drained Run returns the summary together with
// a *JobNonZeroExitError for the first failed step.
func (e *Engine) Run(ctx context.Context) (*RunSummary, error) {
	start := time.Now()
	failFast := false

	for {
		started := 0
		if ctx.Err() == nil && !failFast {
			for _, step := range e.WF.ToolSteps() {
				if !e.ready(step) || e.State.IsRunning(step.StepID) || e.State.Done(step.StepID) {
					continue
				}
				if err := e.startStep(ctx, step); err != nil {
					return nil, err
				}
				started++
			}
		}

		anyAlive, reaped, err := e.reap(ctx)
		if err != nil {
			return nil, err
		}
		if e.Cfg.FailFast && e.stepFailed() {
			failFast = true
		}
		if !anyAlive && started == 0 && reaped == 0 {
			// A round that neither started nor reaped anything, with
			// nothing in flight, can never make further progress: terminal,
			// whether or not steps remain pending (those surface as stuck
			// in the RunSummary).
			break
		}
		if anyAlive {
			select {
			case <-ctx.Done():
			case <-time.After(ReapInterval):
			}
		}
	}

	summary := e.summarize(start)
	if failFast {
		for _, step := range e.WF.ToolSteps() {
			if j, ok := e.jobs[step.StepID]; ok && j.ReturnCode != 0 {
				return summary, &JobNonZeroExitError{StepID: j.StepID, ReturnCode: j.ReturnCode}
			}
		}
	}
	return summary, nil
}

func (e *Engine) stepFailed() bool {
	for _, j := range e.jobs {
		if j.ReturnCode != 0 {
			return true
		}
	}
	return false
}

func (e *Engine) startStep(ctx context.Context, step galaxy.Step) error {
	t, ok := e.Box.Lookup(step.ToolID)
	if !ok {
		return &UnknownToolError{StepID: step.StepID, ToolID: step.ToolID}
	}

	inputs, err := ResolveInputs(e.State, e.WF, step)
	if err != nil {
		return err
	}
	outputs, err := GenerateOutputs(e.Cfg.Outdir, step.StepID, t)
	if err != nil {
		return err
	}
	jobdir, err := e.State.AllocateJobDir()
	if err != nil {
		return err
	}

	outputEnv := make(map[string]any, len(outputs))
	for name, ref := range outputs {
		outputEnv[name] = ref.AsMap()
	}
	script, err := t.RenderCmdline(ctx, inputs, outputEnv)
	if err != nil {
		return &RenderError{StepID: step.StepID, Err: err}
	}

	job := &Job{
		StepID:  step.StepID,
		Dir:     jobdir,
		Tool:    t,
		Inputs:  inputs,
		Outputs: outputs,
		Script:  script,
		Stdout:  filepath.Join(jobdir, "stdout.log"),
		Stderr:  filepath.Join(jobdir, "stderr.log"),
	}

	r, err := e.Factory(job)
	if err != nil {
		return &RunnerStartFailureError{StepID: step.StepID, Err: err}
	}
	job.StartedAt = time.Now()
	if err := r.Start(); err != nil {
		return &RunnerStartFailureError{StepID: step.StepID, Err: err}
	}

	e.jobs[step.StepID] = job
	e.State.Running[step.StepID] = r
	e.Log.Info("started step", "step_id", step.StepID, "tool_id", step.ToolID, "jobdir", jobdir)
	e.publish(ctx, step.StepID, "running", nil)
	return nil
}

// publish sends a step transition if events publishing is configured,
// logging rather than failing the run on a publish error.
func (e *Engine) publish(ctx context.Context, stepID int, state string, exitCode *int) {
	if e.Events == nil {
		return
	}
	t := events.Transition{StepID: stepID, State: state, ExitCode: exitCode, Timestamp: time.Now()}
	if err := e.Events.Publish(ctx, t); err != nil {
		e.Log.Warn("failed to publish step transition", "step_id", stepID, "state", state, "error", err)
	}
}

// reap implements spec.md §4.6: relocates from_work_dir outputs, writes the
// job report, records the result, and drops the runner. Returns whether any
// runner is still alive, plus how many runners were reaped this round.
func (e *Engine) reap(ctx context.Context) (bool, int, error) {
	anyAlive := false
	reaped := 0
	for stepID, r := range e.State.Running {
		if r.Alive() {
			anyAlive = true
			continue
		}

		job := e.jobs[stepID]
		job.FinishedAt = time.Now()

		var result runner.Result
		if rp, ok := r.(runner.ResultProvider); ok {
			result = rp.Result()
		}
		job.ReturnCode = result.ReturnCode
		if result.Stdout != "" {
			_ = os.WriteFile(job.Stdout, []byte(result.Stdout), 0o644)
		}
		if result.Stderr != "" {
			_ = os.WriteFile(job.Stderr, []byte(result.Stderr), 0o644)
		}

		for name, out := range job.Tool.Outputs() {
			if !out.HasWorkDir {
				continue
			}
			src := filepath.Join(job.Dir, out.FromWorkDir)
			dst := job.Outputs[name].Path
			if _, err := os.Stat(dst); err == nil {
				continue
			}
			if _, err := os.Stat(src); err != nil {
				e.Log.Warn("missing output", "step_id", stepID, "output", name, "source", src)
				continue
			}
			if err := os.Rename(src, dst); err != nil {
				e.Log.Warn("failed to relocate output", "step_id", stepID, "output", name, "error", err)
			}
		}

		resultsEnv := make(map[string]any, len(job.Outputs))
		for name, ref := range job.Outputs {
			resultsEnv[name] = ref.AsMap()
		}

		if _, err := jobreport.Write(e.Cfg.Outdir, jobreport.Report{
			StepID:      stepID,
			ToolID:      job.Tool.ToolID(),
			Image:       job.Tool.DockerImage(),
			Script:      job.Script,
			Stdout:      result.Stdout,
			Stderr:      result.Stderr,
			ExitCode:    job.ReturnCode,
			StartedAt:   job.StartedAt.Format(time.RFC3339),
			FinishedAt:  job.FinishedAt.Format(time.RFC3339),
			WallSeconds: job.WallSeconds(),
		}); err != nil {
			return false, 0, err
		}

		e.State.Results[stepID] = resultsEnv
		delete(e.State.Running, stepID)
		e.Log.Info("step finished", "step_id", stepID, "exitcode", job.ReturnCode)
		exitCode := job.ReturnCode
		e.publish(ctx, stepID, "done", &exitCode)
		reaped++
	}
	return anyAlive, reaped, nil
}

func (e *Engine) summarize(start time.Time) *RunSummary {
	summary := &RunSummary{WallSeconds: time.Since(start).Seconds()}
	for _, step := range e.WF.ToolSteps() {
		if e.State.Done(step.StepID) {
			summary.Done = append(summary.Done, step.StepID)
			continue
		}
		var waiting []int
		for _, conn := range step.InputConnections {
			if !e.State.Done(conn.UpstreamID) {
				waiting = append(waiting, conn.UpstreamID)
			}
		}
		summary.Stuck = append(summary.Stuck, StuckStep{StepID: step.StepID, WaitingOn: waiting})
		e.Log.Warn("stuck step", "step_id", step.StepID, "waiting_on", fmt.Sprint(waiting))
	}
	return summary
}
