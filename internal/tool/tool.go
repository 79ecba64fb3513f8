// Package tool defines the read-only contract the engine needs from a tool
// descriptor registry (the Galaxy tool-XML parser itself is an external
// collaborator, out of scope here) and ships a minimal default
// implementation so the module is runnable end to end.
package tool

import "context"

// Output describes one declared tool output. From_work_dir is the relative
// path inside the container that must be relocated to the declared output
// location after the job terminates, mirroring Galaxy's <data
// from_work_dir="..."/> semantics.
type Output struct {
	Name        string
	FromWorkDir string
	HasWorkDir  bool
}

// Tool is the read interface the engine depends on. Nothing in internal/engine
// or internal/runner imports a concrete tool implementation directly.
type Tool interface {
	// ToolID returns the tool's stable identifier, matching WorkflowStep.ToolID.
	ToolID() string
	// ToolDir returns the absolute directory the tool descriptor lives in;
	// it is bind-mounted read-only into the container.
	ToolDir() string
	// Outputs returns the declared outputs keyed by name.
	Outputs() map[string]Output
	// DockerImage returns the container image reference to run the tool in.
	DockerImage() string
	// RenderCmdline renders the tool's command template against the merged
	// input/output environment, returning a shell script body.
	RenderCmdline(ctx context.Context, inputs map[string]any, outputs map[string]any) (string, error)
}

// Box is the read interface the engine needs from a tool registry.
type Box interface {
	// Lookup returns the tool registered under id, or ok=false if unknown.
	Lookup(id string) (Tool, bool)
}
