package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kellrott/gwftool/internal/events"
	"github.com/kellrott/gwftool/internal/galaxy"
	"github.com/kellrott/gwftool/internal/runner"
	"github.com/kellrott/gwftool/internal/tool"
)

// fakeTool is a minimal in-memory Tool used to drive the engine without
// touching the filesystem-backed FileTool loader.
type fakeTool struct {
	id      string
	image   string
	outputs map[string]tool.Output
	render  func(inputs, outputs map[string]any) (string, error)
}

func (f *fakeTool) ToolID() string      { return f.id }
func (f *fakeTool) ToolDir() string     { return "/tools/" + f.id }
func (f *fakeTool) DockerImage() string { return f.image }
func (f *fakeTool) Outputs() map[string]tool.Output { return f.outputs }
func (f *fakeTool) RenderCmdline(_ context.Context, inputs, outputs map[string]any) (string, error) {
	if f.render != nil {
		return f.render(inputs, outputs)
	}
	return "echo ok", nil
}

type fakeBox struct{ tools map[string]tool.Tool }

func (b *fakeBox) Lookup(id string) (tool.Tool, bool) { t, ok := b.tools[id]; return t, ok }

// fakeRunner completes immediately on the first Alive() call after Start().
type fakeRunner struct {
	started bool
	exit    int
}

func (r *fakeRunner) Start() error { r.started = true; return nil }
func (r *fakeRunner) Alive() bool  { return false }
func (r *fakeRunner) Result() runner.Result {
	return runner.Result{ReturnCode: r.exit, Stdout: "out", Stderr: ""}
}

func factoryOK(exit int) Factory {
	return func(j *Job) (runner.Runner, error) { return &fakeRunner{exit: exit}, nil }
}

func oneOutputTool(id string) *fakeTool {
	return &fakeTool{
		id:      id,
		image:   "busybox",
		outputs: map[string]tool.Output{"out": {Name: "out"}},
	}
}

func TestRun_EmptyWorkflow(t *testing.T) {
	doc, err := galaxy.Parse([]byte(`{"steps":{}}`))
	require.NoError(t, err)

	workdir := t.TempDir()
	outdir := t.TempDir()
	box := &fakeBox{tools: map[string]tool.Tool{}}
	st, err := BuildState(workdir, doc, map[string]any{}, box)
	require.NoError(t, err)

	e := New(doc, box, st, Config{Workdir: workdir, Outdir: outdir}, factoryOK(0), nil)
	summary, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary.Done)
	assert.Empty(t, summary.Stuck)

	entries, _ := os.ReadDir(filepath.Join(workdir, "jobs"))
	assert.Empty(t, entries)
}

func TestRun_SingleToolStep(t *testing.T) {
	doc, err := galaxy.Parse([]byte(`{
		"steps": {
			"0": {"id": 0, "type": "data_input", "label": "in"},
			"1": {
				"id": 1, "type": "tool", "tool_id": "cat1",
				"input_connections": {"src": {"id": 0, "output_name": ""}}
			}
		}
	}`))
	require.NoError(t, err)

	workdir, outdir := t.TempDir(), t.TempDir()
	box := &fakeBox{tools: map[string]tool.Tool{"cat1": oneOutputTool("cat1")}}
	inputs := map[string]any{"in": map[string]any{"class": "File", "path": "/abs/a.txt"}}

	st, err := BuildState(workdir, doc, inputs, box)
	require.NoError(t, err)

	e := New(doc, box, st, Config{Workdir: workdir, Outdir: outdir}, factoryOK(0), nil)
	summary, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1}, summary.Done)
	assert.Empty(t, summary.Stuck)

	reportPath := filepath.Join(outdir, "1", "1.json")
	_, err = os.Stat(reportPath)
	assert.NoError(t, err, "job report must exist")

	_, ok := st.Results[1]["out"]
	assert.True(t, ok)
}

func TestRun_LinearChainPropagatesPath(t *testing.T) {
	doc, err := galaxy.Parse([]byte(`{
		"steps": {
			"0": {"id": 0, "type": "data_input", "label": "in"},
			"1": {
				"id": 1, "type": "tool", "tool_id": "t1",
				"input_connections": {"src": {"id": 0, "output_name": ""}}
			},
			"2": {
				"id": 2, "type": "tool", "tool_id": "t2",
				"input_connections": {"src": {"id": 1, "output_name": "out"}}
			}
		}
	}`))
	require.NoError(t, err)

	var sawPath string
	t2 := oneOutputTool("t2")
	t2.render = func(inputs, outputs map[string]any) (string, error) {
		if f, ok := inputs["src"].(map[string]any); ok {
			sawPath, _ = f["path"].(string)
		}
		return "echo ok", nil
	}

	workdir, outdir := t.TempDir(), t.TempDir()
	box := &fakeBox{tools: map[string]tool.Tool{"t1": oneOutputTool("t1"), "t2": t2}}
	inputs := map[string]any{"in": map[string]any{"class": "File", "path": "/abs/a.txt"}}

	st, err := BuildState(workdir, doc, inputs, box)
	require.NoError(t, err)

	e := New(doc, box, st, Config{Workdir: workdir, Outdir: outdir}, factoryOK(0), nil)
	summary, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2}, summary.Done)

	expected := filepath.Join(outdir, "1", "out")
	assert.Equal(t, expected, sawPath)
}

func TestRun_DiamondDAG(t *testing.T) {
	doc, err := galaxy.Parse([]byte(`{
		"steps": {
			"0": {"id": 0, "type": "data_input", "label": "in"},
			"1": {"id": 1, "type": "tool", "tool_id": "a",
				"input_connections": {"src": {"id": 0, "output_name": ""}}},
			"2": {"id": 2, "type": "tool", "tool_id": "b",
				"input_connections": {"src": {"id": 1, "output_name": "out"}}},
			"3": {"id": 3, "type": "tool", "tool_id": "c",
				"input_connections": {"src": {"id": 1, "output_name": "out"}}},
			"4": {"id": 4, "type": "tool", "tool_id": "d",
				"input_connections": {
					"x": {"id": 2, "output_name": "out"},
					"y": {"id": 3, "output_name": "out"}
				}}
		}
	}`))
	require.NoError(t, err)

	workdir, outdir := t.TempDir(), t.TempDir()
	box := &fakeBox{tools: map[string]tool.Tool{
		"a": oneOutputTool("a"), "b": oneOutputTool("b"),
		"c": oneOutputTool("c"), "d": oneOutputTool("d"),
	}}
	inputs := map[string]any{"in": map[string]any{"class": "File", "path": "/abs/a.txt"}}

	st, err := BuildState(workdir, doc, inputs, box)
	require.NoError(t, err)

	e := New(doc, box, st, Config{Workdir: workdir, Outdir: outdir}, factoryOK(0), nil)
	summary, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2, 3, 4}, summary.Done)
}

func TestBuildState_MissingInputsError(t *testing.T) {
	doc, err := galaxy.Parse([]byte(`{
		"steps": {
			"1": {"id": 1, "type": "tool", "tool_id": "t",
				"inputs": [{"name": "foo"}]}
		}
	}`))
	require.NoError(t, err)

	box := &fakeBox{tools: map[string]tool.Tool{"t": oneOutputTool("t")}}
	_, err = BuildState(t.TempDir(), doc, map[string]any{}, box)
	require.Error(t, err)
	var mi *MissingInputsError
	require.ErrorAs(t, err, &mi)
	assert.Equal(t, []string{"foo"}, mi.Names)

	entries, _ := os.ReadDir(filepath.Join(t.TempDir(), "jobs"))
	assert.Empty(t, entries)
}

func TestBuildState_UnknownToolError(t *testing.T) {
	doc, err := galaxy.Parse([]byte(`{
		"steps": {"1": {"id": 1, "type": "tool", "tool_id": "nope"}}
	}`))
	require.NoError(t, err)

	box := &fakeBox{tools: map[string]tool.Tool{}}
	_, err = BuildState(t.TempDir(), doc, map[string]any{}, box)
	require.Error(t, err)
	var ut *UnknownToolError
	require.ErrorAs(t, err, &ut)
	assert.Equal(t, "nope", ut.ToolID)
}

// TestRun_EventsPublishFailureNeverFailsRun verifies a step transition
// publish error (here, an unreachable Redis address) is logged and
// swallowed rather than surfacing as a Run error.
func TestRun_EventsPublishFailureNeverFailsRun(t *testing.T) {
	doc, err := galaxy.Parse([]byte(`{
		"steps": {
			"0": {"id": 0, "type": "data_input", "label": "in"},
			"1": {
				"id": 1, "type": "tool", "tool_id": "cat1",
				"input_connections": {"src": {"id": 0, "output_name": ""}}
			}
		}
	}`))
	require.NoError(t, err)

	workdir, outdir := t.TempDir(), t.TempDir()
	box := &fakeBox{tools: map[string]tool.Tool{"cat1": oneOutputTool("cat1")}}
	inputs := map[string]any{"in": map[string]any{"class": "File", "path": "/abs/a.txt"}}

	st, err := BuildState(workdir, doc, inputs, box)
	require.NoError(t, err)

	e := New(doc, box, st, Config{Workdir: workdir, Outdir: outdir}, factoryOK(0), nil)
	e.Events = events.NewPublisher("127.0.0.1:1", "gwftool.transitions")
	defer e.Events.Close()

	summary, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1}, summary.Done)
}
