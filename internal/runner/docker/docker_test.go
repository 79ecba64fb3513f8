package docker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kellrott/gwftool/internal/engine"
	"github.com/kellrott/gwftool/internal/tool"
)

type fakeTool struct {
	id, image, dir string
}

func (f *fakeTool) ToolID() string                          { return f.id }
func (f *fakeTool) ToolDir() string                          { return f.dir }
func (f *fakeTool) DockerImage() string                      { return f.image }
func (f *fakeTool) Outputs() map[string]tool.Output          { return nil }
func (f *fakeTool) RenderCmdline(context.Context, map[string]any, map[string]any) (string, error) {
	return "echo ok", nil
}

func newJob(t *testing.T, inputs map[string]any, outputs map[string]engine.FileRef) *engine.Job {
	t.Helper()
	dir := t.TempDir()
	return &engine.Job{
		StepID:  1,
		Dir:     dir,
		Tool:    &fakeTool{id: "t1", image: "busybox:1.0", dir: "/tools/t1"},
		Inputs:  inputs,
		Outputs: outputs,
		Script:  "echo ok\n",
	}
}

func TestBuildArgs_DedupesRepeatedMountPaths(t *testing.T) {
	job := newJob(t, map[string]any{
		"a": map[string]any{"class": "File", "path": "/data/shared/in.txt"},
		"b": map[string]any{"class": "File", "path": "/data/shared/in.txt"},
	}, nil)

	r := &Runner{cfg: Config{UID: 1000}, job: job}
	args, err := r.buildArgs(filepath.Join(job.Dir, "script"))
	require.NoError(t, err)

	count := 0
	for i, a := range args {
		if a == "-v" && i+1 < len(args) && args[i+1] == "/data/shared/in.txt:/data/shared/in.txt:ro" {
			count++
		}
	}
	assert.Equal(t, 1, count, "repeated input path must be mounted exactly once")
}

func TestBuildArgs_TouchesAndMountsOutputsReadWrite(t *testing.T) {
	outDir := t.TempDir()
	outPath := filepath.Join(outDir, "nested", "out.txt")
	job := newJob(t, nil, map[string]engine.FileRef{
		"out": {Class: "File", Path: outPath},
	})

	r := &Runner{cfg: Config{UID: 1000}, job: job}
	args, err := r.buildArgs(filepath.Join(job.Dir, "script"))
	require.NoError(t, err)

	if _, err := os.Stat(outPath); err != nil {
		t.Fatalf("expected output path to be created, got %v", err)
	}

	found := false
	for i, a := range args {
		if a == "-v" && i+1 < len(args) && args[i+1] == outPath+":"+outPath {
			found = true
		}
	}
	assert.True(t, found, "output path must be mounted read-write (no :ro suffix)")
}

func TestBuildArgs_AppliesNoNetAndUID(t *testing.T) {
	job := newJob(t, nil, nil)
	r := &Runner{cfg: Config{UID: 42, NoNet: true}, job: job}
	args, err := r.buildArgs(filepath.Join(job.Dir, "script"))
	require.NoError(t, err)

	assert.Contains(t, args, "--net=none")
	assert.Contains(t, args, "42")
	assert.Contains(t, args, job.Tool.DockerImage())
}

func TestForEachFilePath_RecursesMapsAndSlices(t *testing.T) {
	var got []string
	v := map[string]any{
		"single": map[string]any{"class": "File", "path": "/a"},
		"list": []any{
			map[string]any{"class": "File", "path": "/b"},
			map[string]any{"class": "File", "path": "/c"},
		},
		"not_a_file": map[string]any{"class": "int", "value": 1},
	}
	forEachFilePath(v, func(p string) { got = append(got, p) })

	assert.ElementsMatch(t, []string{"/a", "/b", "/c"}, got)
}
