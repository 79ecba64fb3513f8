package engine

import (
	"github.com/kellrott/gwftool/internal/galaxy"
	"github.com/kellrott/gwftool/internal/tool"
)

// BuildState runs the Step Graph Builder (spec.md §4.2): it seeds Results for
// every data_input step, seeds States for every tool step, and validates
// tool_id/declared-input references before any runner can start.
func BuildState(workdir string, wf galaxy.Workflow, workflowInputs map[string]any, box tool.Box) (*State, error) {
	st := NewState(workdir)

	for _, step := range wf.Steps() {
		switch step.Type {
		case galaxy.DataInput:
			val, ok := workflowInputs[step.Label]
			if !ok {
				val = nil
			}
			st.Results[step.StepID] = map[string]any{"output": val}
		case galaxy.ToolStep:
			st.States[step.StepID] = step.ToolState
		}
	}

	for _, step := range wf.ToolSteps() {
		if _, ok := box.Lookup(step.ToolID); !ok {
			return nil, &UnknownToolError{StepID: step.StepID, ToolID: step.ToolID}
		}

		var missing []string
		for _, in := range step.Inputs {
			if _, ok := workflowInputs[in.Name]; !ok {
				missing = append(missing, in.Name)
			}
		}
		if len(missing) > 0 {
			return nil, &MissingInputsError{StepID: step.StepID, Names: missing}
		}
	}

	return st, nil
}
