package engine

import (
	"time"

	"github.com/kellrott/gwftool/internal/tool"
)

// FileRef is the {class:"File", path, url} shape the engine hands downstream
// steps and the template renderer for every materialised output.
type FileRef struct {
	Class string `json:"class"`
	Path  string `json:"path"`
	URL   string `json:"url"`
}

// AsMap renders f as the generic map[string]any shape the resolver and
// template renderer operate on (CMDFilter only knows how to look at plain
// maps, never concrete Go structs).
func (f FileRef) AsMap() map[string]any {
	return map[string]any{"class": f.Class, "path": f.Path, "url": f.URL}
}

// Job is the engine's internal job descriptor: one per tool step per run,
// grounded on spec.md §3's "Step (core's internal job descriptor)". Named Job
// here to avoid colliding with galaxy.Step, the workflow-document node type.
type Job struct {
	StepID int
	Dir    string
	Tool   tool.Tool

	Inputs  map[string]any
	Outputs map[string]FileRef

	Script string
	Stdout string
	Stderr string

	StartedAt  time.Time
	FinishedAt time.Time
	ReturnCode int
}

// WallSeconds returns the elapsed run time, or 0 if either timestamp is zero.
func (j *Job) WallSeconds() float64 {
	if j.StartedAt.IsZero() || j.FinishedAt.IsZero() {
		return 0
	}
	return j.FinishedAt.Sub(j.StartedAt).Seconds()
}
