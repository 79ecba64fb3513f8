package dryrun

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kellrott/gwftool/internal/engine"
	"github.com/kellrott/gwftool/internal/galaxy"
	"github.com/kellrott/gwftool/internal/runner/tes"
	"github.com/kellrott/gwftool/internal/tool"
)

type fakeTool struct {
	id      string
	outputs map[string]tool.Output
}

func (f *fakeTool) ToolID() string                 { return f.id }
func (f *fakeTool) ToolDir() string                 { return "/tools/" + f.id }
func (f *fakeTool) DockerImage() string             { return "busybox:1.0" }
func (f *fakeTool) Outputs() map[string]tool.Output { return f.outputs }
func (f *fakeTool) RenderCmdline(context.Context, map[string]any, map[string]any) (string, error) {
	return "echo ok", nil
}

type fakeBox struct{ tools map[string]tool.Tool }

func (b *fakeBox) Lookup(id string) (tool.Tool, bool) { t, ok := b.tools[id]; return t, ok }

type fakeWorkflow struct {
	steps     []galaxy.Step
	toolSteps []galaxy.Step
	byID      map[int]galaxy.Step
}

func newFakeWorkflow(steps []galaxy.Step) *fakeWorkflow {
	wf := &fakeWorkflow{steps: steps, byID: map[int]galaxy.Step{}}
	for _, s := range steps {
		wf.byID[s.StepID] = s
		if s.Type == galaxy.ToolStep {
			wf.toolSteps = append(wf.toolSteps, s)
		}
	}
	return wf
}

func (w *fakeWorkflow) Steps() []galaxy.Step     { return w.steps }
func (w *fakeWorkflow) ToolSteps() []galaxy.Step { return w.toolSteps }
func (w *fakeWorkflow) GetStep(id int) (galaxy.Step, bool) {
	s, ok := w.byID[id]
	return s, ok
}

// TestCompile_TwoStepChainWritesOrderedTasks covers the scenario.md §6
// two-step chain: step 1 reads a workflow input, produces "out"; step 2
// consumes step 1's "out" as its own input. Compile must resolve step 2's
// task only after step 1's output path is known, even though ToolSteps is
// handed back in a non-dependency-respecting order.
func TestCompile_TwoStepChainWritesOrderedTasks(t *testing.T) {
	steps := []galaxy.Step{
		{StepID: 0, Type: galaxy.DataInput, Label: "reads"},
		{
			StepID: 2,
			Type:   galaxy.ToolStep,
			ToolID: "step2-tool",
			InputConnections: map[string]galaxy.Connection{
				"in": {UpstreamID: 1, OutputName: "out"},
			},
		},
		{
			StepID: 1,
			Type:   galaxy.ToolStep,
			ToolID: "step1-tool",
			InputConnections: map[string]galaxy.Connection{
				"in": {UpstreamID: 0},
			},
		},
	}
	wf := newFakeWorkflow(steps)

	box := &fakeBox{tools: map[string]tool.Tool{
		"step1-tool": &fakeTool{id: "step1-tool", outputs: map[string]tool.Output{"out": {Name: "out"}}},
		"step2-tool": &fakeTool{id: "step2-tool", outputs: map[string]tool.Output{"result": {Name: "result"}}},
	}}

	workdir := t.TempDir()
	st, err := engine.BuildState(workdir, wf, map[string]any{"reads": map[string]any{"class": "File", "path": "/in/reads.fastq"}}, box)
	require.NoError(t, err)

	outdir := t.TempDir()
	written, err := Compile(wf, box, st, outdir)
	require.NoError(t, err)
	require.Len(t, written, 2)

	assert.Equal(t, filepath.Join(outdir, "task-0.json"), written[0])
	assert.Equal(t, filepath.Join(outdir, "task-1.json"), written[1])

	var task0 tes.Task
	data, err := os.ReadFile(written[0])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &task0))
	assert.Equal(t, "gwftool-step-1", task0.Name)

	var task1 tes.Task
	data, err = os.ReadFile(written[1])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &task1))
	assert.Equal(t, "gwftool-step-2", task1.Name)

	// step 2's input must reference the path Compile pre-computed for
	// step 1's "out" output, not the raw upstream reference.
	step1OutPath := st.Results[1]["out"].(map[string]any)["path"].(string)
	found := false
	for _, in := range task1.Inputs {
		if in.Path == step1OutPath {
			found = true
		}
	}
	assert.True(t, found, "step 2's task must mount step 1's resolved output path")
}

func TestCompile_UnresolvableGraphReturnsInternalError(t *testing.T) {
	steps := []galaxy.Step{
		{
			StepID: 1,
			Type:   galaxy.ToolStep,
			ToolID: "t1",
			InputConnections: map[string]galaxy.Connection{
				"in": {UpstreamID: 2, OutputName: "out"},
			},
		},
		{
			StepID: 2,
			Type:   galaxy.ToolStep,
			ToolID: "t2",
			InputConnections: map[string]galaxy.Connection{
				"in": {UpstreamID: 1, OutputName: "out"},
			},
		},
	}
	wf := newFakeWorkflow(steps)
	box := &fakeBox{tools: map[string]tool.Tool{
		"t1": &fakeTool{id: "t1", outputs: map[string]tool.Output{"out": {Name: "out"}}},
		"t2": &fakeTool{id: "t2", outputs: map[string]tool.Output{"out": {Name: "out"}}},
	}}

	st := engine.NewState(t.TempDir())
	_, err := Compile(wf, box, st, t.TempDir())
	require.Error(t, err)
	var internalErr *engine.InternalError
	assert.ErrorAs(t, err, &internalErr)
}
