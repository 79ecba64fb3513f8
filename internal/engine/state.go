package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kellrott/gwftool/internal/runner"
	"github.com/kellrott/gwftool/internal/tool"
)

// State is the process-lifetime aggregate spec.md §3 calls WorkflowState:
// results/states/running maps plus the job-directory sequence counter. It is
// owned exclusively by the driver goroutine; runners never touch it.
type State struct {
	Results map[int]map[string]any
	States  map[int]map[string]any
	Running map[int]runner.Runner

	jobNum  int
	workdir string
}

// NewState returns an empty State rooted at workdir, under which job
// directories are allocated as "<workdir>/jobs/<n>".
func NewState(workdir string) *State {
	return &State{
		Results: make(map[int]map[string]any),
		States:  make(map[int]map[string]any),
		Running: make(map[int]runner.Runner),
		workdir: workdir,
	}
}

// Done reports whether step has a recorded result.
func (s *State) Done(stepID int) bool {
	_, ok := s.Results[stepID]
	return ok
}

// IsRunning reports whether step currently has a live runner registered.
func (s *State) IsRunning(stepID int) bool {
	_, ok := s.Running[stepID]
	return ok
}

// AllocateJobDir creates and returns a fresh "<workdir>/jobs/<n>" directory,
// matching the Engine driver loop's allocate_jobdir() step.
func (s *State) AllocateJobDir() (string, error) {
	s.jobNum++
	dir := filepath.Join(s.workdir, "jobs", fmt.Sprintf("%d", s.jobNum))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("engine: allocate job dir %s: %w", dir, err)
	}
	return dir, nil
}

// GenerateOutputs implements the Output Generator (spec.md §4.4): it creates
// "<outdir>/<step_id>" and pre-computes one deterministic FileRef per
// declared tool output, before any job starts.
func GenerateOutputs(outdir string, stepID int, t tool.Tool) (map[string]FileRef, error) {
	dir := filepath.Join(outdir, fmt.Sprintf("%d", stepID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("engine: create output dir %s: %w", dir, err)
	}
	outs := make(map[string]FileRef, len(t.Outputs()))
	for name := range t.Outputs() {
		abs, err := filepath.Abs(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("engine: resolve output path for %s/%s: %w", dir, name, err)
		}
		outs[name] = FileRef{Class: "File", Path: abs, URL: abs}
	}
	return outs, nil
}
