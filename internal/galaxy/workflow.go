// Package galaxy defines the read-only Workflow/Step contract the engine
// depends on and ships a default loader for the Galaxy ".ga" JSON workflow
// format. Parsing the format in full generality is an external collaborator
// per SPEC_FULL.md §1; this loader covers what the engine's invariants need.
package galaxy

// StepType distinguishes the two kinds of step the engine understands.
type StepType string

const (
	// DataInput steps supply a workflow-level input under Step.Label.
	DataInput StepType = "data_input"
	// ToolStep steps invoke a Tool.
	ToolStep StepType = "tool"
)

// Connection is one entry of a step's InputConnections: it names the
// upstream step and, for tool-to-tool edges, the upstream output to read.
type Connection struct {
	UpstreamID int
	OutputName string
}

// InputDecl is one entry of Step.Inputs: a workflow-level input the step
// declares it needs by name.
type InputDecl struct {
	Name string
}

// Step is the read interface the engine needs from one workflow node.
// StepID is the canonical int form (resolving spec.md §9's open question on
// string-vs-int step ids); loaders are responsible for normalising to it.
type Step struct {
	StepID           int
	Type             StepType
	Label            string
	ToolID           string
	ToolState        map[string]any
	Inputs           []InputDecl
	InputConnections map[string]Connection
	OutputNames      []string
}

// Workflow is the read interface the engine needs from the workflow
// document: iteration over all steps, iteration over tool steps only, and
// lookup by id.
type Workflow interface {
	Steps() []Step
	ToolSteps() []Step
	GetStep(stepID int) (Step, bool)
}
