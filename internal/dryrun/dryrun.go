// Package dryrun implements spec.md §4.8's dry-run compile mode: the Step
// Graph Builder and Input Resolver run to completion but no runner is ever
// started; each step's would-be TES task body is written to disk instead.
package dryrun

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kellrott/gwftool/internal/engine"
	"github.com/kellrott/gwftool/internal/galaxy"
	"github.com/kellrott/gwftool/internal/runner/tes"
	"github.com/kellrott/gwftool/internal/tool"
)

// Compile runs BuildState's companion loop to completion without executing
// anything: for each tool step, once its inputs resolve, its outputs are
// pre-computed (exactly as a real run would, per spec.md §4.4) and recorded
// as done immediately, so downstream steps can resolve against them. Each
// step's TES task body is validated and written to "<dir>/task-<i>.json",
// numbered in the order the steps become ready (upstream steps first), not
// in the workflow's tool_steps order.
func Compile(wf galaxy.Workflow, box tool.Box, st *engine.State, dir string) ([]string, error) {
	var written []string
	pending := wf.ToolSteps()
	i := 0

	for len(pending) > 0 {
		var stillPending []galaxy.Step
		progressed := false

		for _, step := range pending {
			if !ready(st, step) {
				stillPending = append(stillPending, step)
				continue
			}
			progressed = true

			t, ok := box.Lookup(step.ToolID)
			if !ok {
				return written, &engine.UnknownToolError{StepID: step.StepID, ToolID: step.ToolID}
			}

			inputs, err := engine.ResolveInputs(st, wf, step)
			if err != nil {
				return written, err
			}
			outputs, err := engine.GenerateOutputs(dir, step.StepID, t)
			if err != nil {
				return written, err
			}

			job := &engine.Job{
				StepID:  step.StepID,
				Dir:     filepath.Join(dir, "jobs", fmt.Sprintf("%d", i+1)),
				Tool:    t,
				Inputs:  inputs,
				Outputs: outputs,
			}

			task := tes.BuildTask(job)
			if err := tes.ValidateTask(task); err != nil {
				return written, fmt.Errorf("dryrun: step %d: %w", step.StepID, err)
			}

			path := filepath.Join(dir, fmt.Sprintf("task-%d.json", i))
			data, err := json.MarshalIndent(task, "", "  ")
			if err != nil {
				return written, fmt.Errorf("dryrun: marshal task for step %d: %w", step.StepID, err)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return written, fmt.Errorf("dryrun: write %s: %w", path, err)
			}
			written = append(written, path)
			i++

			resultsEnv := make(map[string]any, len(outputs))
			for name, ref := range outputs {
				resultsEnv[name] = ref.AsMap()
			}
			st.Results[step.StepID] = resultsEnv
		}

		if !progressed {
			return written, &engine.InternalError{Msg: "dryrun: unresolved steps remain (missing connection or cyclic workflow)"}
		}
		pending = stillPending
	}

	return written, nil
}

// ready mirrors Engine's readiness check: every upstream connection must
// already have a recorded (pre-computed) result.
func ready(st *engine.State, step galaxy.Step) bool {
	for _, conn := range step.InputConnections {
		if !st.Done(conn.UpstreamID) {
			return false
		}
	}
	return true
}
