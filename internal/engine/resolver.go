package engine

import (
	"strconv"

	"dario.cat/mergo"

	"github.com/kellrott/gwftool/internal/expand"
	"github.com/kellrott/gwftool/internal/galaxy"
)

// ResolveInputs implements the Input Resolver (spec.md §4.3): it merges a
// tool step's literal tool_state defaults with its upstream connections,
// then runs the Value Expander so the template renderer sees both the flat
// pipe-delimited keys and their nested-map projection.
func ResolveInputs(st *State, wf galaxy.Workflow, step galaxy.Step) (map[string]any, error) {
	flat := map[string]any{}
	for k, v := range st.States[step.StepID] {
		if v != nil {
			flat[k] = v
		}
	}

	conns := map[string]any{}
	for name, conn := range step.InputConnections {
		upstream, ok := st.Results[conn.UpstreamID]
		if !ok {
			return nil, &InternalError{Msg: "resolve step " + strconv.Itoa(step.StepID) + ": upstream " + strconv.Itoa(conn.UpstreamID) + " has no recorded result"}
		}

		upstreamStep, _ := wf.GetStep(conn.UpstreamID)
		key := conn.OutputName
		if upstreamStep.Type == galaxy.DataInput {
			key = "output"
		}
		val, ok := upstream[key]
		if !ok {
			return nil, &InternalError{Msg: "resolve step " + strconv.Itoa(step.StepID) + ": upstream " + strconv.Itoa(conn.UpstreamID) + " missing output " + key}
		}
		conns[name] = val
	}

	// connection-supplied values always override a non-nil tool_state
	// default, matching expand_galaxy_input_dict's flat-overwrite semantics.
	if err := mergo.Merge(&flat, conns, mergo.WithOverride()); err != nil {
		return nil, &InternalError{Msg: "merge inputs for step " + strconv.Itoa(step.StepID) + ": " + err.Error()}
	}

	return expand.Nested(flat), nil
}
