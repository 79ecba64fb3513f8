// Package jobreport defines the on-disk job report shape spec.md §4.6/§6
// requires the Engine to emit for every step that ran.
package jobreport

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Report is written to "<outdir>/<step_id>/<step_id>.json" once a job
// terminates. Field names are lowercased on the wire to match the job report
// keys spec.md §8's job-report-completeness property checks for
// (exitcode, script, tool, image).
type Report struct {
	StepID      int     `json:"step_id"`
	ToolID      string  `json:"tool"`
	Image       string  `json:"image"`
	Script      string  `json:"script"`
	Stdout      string  `json:"stdout"`
	Stderr      string  `json:"stderr"`
	ExitCode    int     `json:"exitcode"`
	StartedAt   string  `json:"starttime,omitempty"`
	FinishedAt  string  `json:"endtime,omitempty"`
	WallSeconds float64 `json:"wallSeconds"`
}

// Write serialises r to "<outdir>/<step_id>/<step_id>.json", creating the
// per-step directory if it does not already exist.
func Write(outdir string, r Report) (string, error) {
	dir := filepath.Join(outdir, fmt.Sprintf("%d", r.StepID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("jobreport: create dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%d.json", r.StepID))

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("jobreport: marshal step %d: %w", r.StepID, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("jobreport: write %s: %w", path, err)
	}
	return path, nil
}
