package galaxy

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// rawWorkflow is the on-disk ".ga" shape, following the step/uuid/
// input_connections layout used by workflow_io.py's GalaxyWorkflow.
type rawWorkflow struct {
	Steps map[string]rawStep `json:"steps"`
}

type rawStep struct {
	ID               int                      `json:"id"`
	Type             string                   `json:"type"`
	Label            *string                  `json:"label"`
	Annotation       string                   `json:"annotation"`
	ToolID           string                   `json:"tool_id"`
	ToolState        json.RawMessage          `json:"tool_state"`
	Inputs           []rawInputDecl           `json:"inputs"`
	InputConnections map[string]rawConnection `json:"input_connections"`
	Outputs          []rawOutputDecl          `json:"outputs"`
}

type rawInputDecl struct {
	Name string `json:"name"`
}

type rawOutputDecl struct {
	Name string `json:"name"`
}

type rawConnection struct {
	ID         json.Number `json:"id"`
	OutputName string      `json:"output_name"`
}

// Doc is the default Workflow implementation, loaded from a ".ga" file.
type Doc struct {
	steps     []Step
	byID      map[int]Step
	toolSteps []Step
}

// Load reads and normalises a Galaxy ".ga" workflow document.
//
// Step ids arrive from encoding/json as either JSON numbers or (in the
// "input_connections"/"steps" map keys) strings; both are normalised to Go
// int here, resolving the step-id type ambiguity called out in spec.md §9.
func Load(path string) (*Doc, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("galaxy: read workflow %s: %w", path, err)
	}
	doc, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("galaxy: parse workflow %s: %w", path, err)
	}
	return doc, nil
}

// Parse normalises a Galaxy ".ga" document already read into memory; split
// out from Load so callers that obtain the bytes some other way (embedded
// fixtures, network fetch) skip the filesystem round-trip.
func Parse(data []byte) (*Doc, error) {
	var wf rawWorkflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, err
	}
	return FromRaw(wf)
}

// FromRaw builds a Doc from an already-decoded raw workflow; split out from
// Load so tests can construct a Doc without touching the filesystem.
func FromRaw(wf rawWorkflow) (*Doc, error) {
	d := &Doc{byID: make(map[int]Step, len(wf.Steps))}

	// sort numeric step keys for deterministic iteration order, matching the
	// engine's requirement that ordering not affect correctness but helping
	// tests and dry-run output be reproducible.
	keys := make([]string, 0, len(wf.Steps))
	for k := range wf.Steps {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, _ := strconv.Atoi(keys[i])
		nj, _ := strconv.Atoi(keys[j])
		return ni < nj
	})

	for _, k := range keys {
		rs := wf.Steps[k]
		step, err := normalizeStep(rs)
		if err != nil {
			return nil, fmt.Errorf("galaxy: step %s: %w", k, err)
		}
		d.steps = append(d.steps, step)
		d.byID[step.StepID] = step
		if step.Type == ToolStep {
			d.toolSteps = append(d.toolSteps, step)
		}
	}
	return d, nil
}

func normalizeStep(rs rawStep) (Step, error) {
	label := strconv.Itoa(rs.ID)
	if rs.Label != nil && *rs.Label != "" {
		label = *rs.Label
	} else if rs.Annotation != "" {
		label = rs.Annotation
	}

	step := Step{
		StepID: rs.ID,
		Type:   StepType(rs.Type),
		Label:  label,
		ToolID: rs.ToolID,
	}

	for _, in := range rs.Inputs {
		step.Inputs = append(step.Inputs, InputDecl{Name: in.Name})
	}
	for _, o := range rs.Outputs {
		step.OutputNames = append(step.OutputNames, o.Name)
	}

	if len(rs.InputConnections) > 0 {
		step.InputConnections = make(map[string]Connection, len(rs.InputConnections))
		for name, c := range rs.InputConnections {
			id, err := strconv.Atoi(string(c.ID))
			if err != nil {
				return Step{}, fmt.Errorf("input_connections[%s].id %q: %w", name, c.ID, err)
			}
			step.InputConnections[name] = Connection{UpstreamID: id, OutputName: c.OutputName}
		}
	}

	raw, err := decodeToolState(rs.ToolState)
	if err != nil {
		return Step{}, fmt.Errorf("tool_state: %w", err)
	}

	switch step.Type {
	case ToolStep:
		state := map[string]any{}
		for k, v := range raw {
			if k == "__page__" || k == "__rerun_remap_job_id__" {
				continue
			}
			state[k] = decodeValue(v)
		}
		step.ToolState = state
	case DataInput:
		if name, ok := decodeValue(raw["name"]).(string); ok && name != "" {
			step.Label = name
		}
	}

	return step, nil
}

// decodeToolState unwraps the ".ga" file's double-encoded tool_state: the
// field itself is a JSON string whose contents are a JSON object whose
// *values* are, in turn, individually JSON-encoded (Galaxy re-serialises
// every parameter value independently). Returns the outer object with its
// values left as raw JSON for decodeValue to finish unpacking.
func decodeToolState(field json.RawMessage) (map[string]json.RawMessage, error) {
	if len(field) == 0 {
		return map[string]json.RawMessage{}, nil
	}
	var inner string
	if err := json.Unmarshal(field, &inner); err != nil {
		// not double-encoded; treat the field itself as the object.
		var direct map[string]json.RawMessage
		if err2 := json.Unmarshal(field, &direct); err2 != nil {
			return nil, err
		}
		return direct, nil
	}
	if inner == "" || inner == "null" {
		return map[string]json.RawMessage{}, nil
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal([]byte(inner), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// decodeValue unpacks one tool_state value. Galaxy stores each value
// individually JSON-encoded (so "x" becomes "\"x\"" and 3 becomes "3"); a
// decoded string is decoded once more to undo that, and kept as-is when it is
// not itself JSON. If raw isn't valid JSON, its string content is used as-is.
func decodeValue(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	if s, ok := v.(string); ok {
		var inner any
		if err := json.Unmarshal([]byte(s), &inner); err == nil {
			return inner
		}
	}
	return v
}

// Steps implements Workflow.
func (d *Doc) Steps() []Step { return d.steps }

// ToolSteps implements Workflow.
func (d *Doc) ToolSteps() []Step { return d.toolSteps }

// GetStep implements Workflow.
func (d *Doc) GetStep(stepID int) (Step, bool) {
	s, ok := d.byID[stepID]
	return s, ok
}
