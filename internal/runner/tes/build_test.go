package tes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kellrott/gwftool/internal/engine"
)

func TestBuildTask_CollectsInputOutputPathsSorted(t *testing.T) {
	job := &engine.Job{
		StepID: 3,
		Dir:    "/work/3",
		Script: "echo ok\n",
		Stdout: "/work/3/stdout",
		Stderr: "/work/3/stderr",
		Tool:   &fakeTool{id: "sort-tool", image: "biocontainer/sort:1", dir: "/tools/sort-tool"},
		Inputs: map[string]any{
			"b": map[string]any{"class": "File", "path": "/data/b.txt"},
			"a": map[string]any{"class": "File", "path": "/data/a.txt"},
		},
		Outputs: map[string]engine.FileRef{
			"out": {Class: "File", Path: "/data/out.txt"},
		},
	}

	task := BuildTask(job)

	require.Len(t, task.Executors, 1)
	assert.Equal(t, "gwftool-step-3", task.Name)
	assert.Equal(t, "biocontainer/sort:1", task.Executors[0].Image)
	assert.Equal(t, []string{"bash", scriptContainerPath}, task.Executors[0].Command)
	assert.Equal(t, "/work/3", task.Executors[0].Workdir)

	// input file paths must be sorted, followed by the script body and tool dir
	require.GreaterOrEqual(t, len(task.Inputs), 3)
	assert.Equal(t, "/data/a.txt", task.Inputs[0].Path)
	assert.Equal(t, "/data/b.txt", task.Inputs[1].Path)
	assert.Equal(t, scriptContainerPath, task.Inputs[2].Path)
	assert.Equal(t, job.Script, task.Inputs[2].Contents)

	require.Len(t, task.Outputs, 2)
	assert.Equal(t, "/data/out.txt", task.Outputs[0].Path)
	assert.Equal(t, "/work/3", task.Outputs[1].Path)
	assert.Equal(t, "DIRECTORY", task.Outputs[1].Type)
}

func TestBuildTask_DeduplicatesRepeatedInputPaths(t *testing.T) {
	job := &engine.Job{
		StepID: 1,
		Dir:    "/work/1",
		Tool:   &fakeTool{id: "t1", image: "busybox", dir: "/tools/t1"},
		Inputs: map[string]any{
			"a": map[string]any{"class": "File", "path": "/data/x.txt"},
			"b": map[string]any{"class": "File", "path": "/data/x.txt"},
		},
	}

	task := BuildTask(job)

	count := 0
	for _, in := range task.Inputs {
		if in.Path == "/data/x.txt" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestValidateTask_RejectsMissingImage(t *testing.T) {
	task := Task{
		Name:      "broken",
		Executors: []Executor{{Command: []string{"bash", "script"}}},
	}
	err := ValidateTask(task)
	assert.Error(t, err)
}

func TestValidateTask_AcceptsWellFormedTask(t *testing.T) {
	task := Task{
		Name: "ok",
		Executors: []Executor{{
			Image:   "busybox",
			Command: []string{"bash", "script"},
		}},
	}
	assert.NoError(t, ValidateTask(task))
}
