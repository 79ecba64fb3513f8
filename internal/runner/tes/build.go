package tes

import (
	"fmt"
	"sort"

	"github.com/kellrott/gwftool/internal/engine"
)

const scriptContainerPath = "/opt/gwftool/script.sh"

// BuildTask converts a resolved Job into the TES task structure of spec.md
// §4.7.2. Shared by the live TES runner and dry-run compilation so both
// paths emit byte-identical task bodies for the same job.
func BuildTask(job *engine.Job) Task {
	var inputs, outputs []IOEntry

	for _, path := range collectFilePaths(job.Inputs) {
		inputs = append(inputs, IOEntry{URL: path, Path: path})
	}
	inputs = append(inputs, IOEntry{Path: scriptContainerPath, Contents: job.Script})
	inputs = append(inputs, IOEntry{URL: job.Tool.ToolDir(), Path: job.Tool.ToolDir(), Type: "DIRECTORY"})

	for _, ref := range job.Outputs {
		outputs = append(outputs, IOEntry{URL: ref.Path, Path: ref.Path})
	}
	outputs = append(outputs, IOEntry{URL: job.Dir, Path: job.Dir, Type: "DIRECTORY"})

	return Task{
		Name: fmt.Sprintf("gwftool-step-%d", job.StepID),
		Executors: []Executor{{
			Image:   job.Tool.DockerImage(),
			Command: []string{"bash", scriptContainerPath},
			Workdir: job.Dir,
			Stdout:  job.Stdout,
			Stderr:  job.Stderr,
		}},
		Inputs:  inputs,
		Outputs: outputs,
	}
}

// collectFilePaths walks a resolved, expanded input environment and returns
// every File-class path it finds, in a stable order (sorted) so BuildTask's
// output is deterministic across runs.
func collectFilePaths(env map[string]any) []string {
	seen := map[string]bool{}
	var paths []string
	var walk func(v any)
	walk = func(v any) {
		switch val := v.(type) {
		case map[string]any:
			if cls, _ := val["class"].(string); cls == "File" {
				if p, ok := val["path"].(string); ok && !seen[p] {
					seen[p] = true
					paths = append(paths, p)
				}
				return
			}
			for _, nested := range val {
				walk(nested)
			}
		case []any:
			for _, nested := range val {
				walk(nested)
			}
		}
	}
	for _, v := range env {
		walk(v)
	}
	sort.Strings(paths)
	return paths
}
