// Package runner defines the minimal capability set the engine drives a job
// through, and a factory type used to select a concrete backend at startup.
package runner

// Runner is the capability set spec.md §4.7 requires of any execution
// backend: start it, then poll whether it is still in flight.
type Runner interface {
	// Start begins executing the job. Non-blocking; returns once the job has
	// been launched (subprocess spawned, or task submitted), not once it has
	// finished.
	Start() error
	// Alive reports whether the job is still in progress.
	Alive() bool
}

// Result is the terminal state of a Runner once Alive() has gone false.
type Result struct {
	ReturnCode int
	Stdout     string
	Stderr     string
}

// ResultProvider is implemented by runners that can report a terminal
// Result; the engine type-asserts for it during reap.
type ResultProvider interface {
	Result() Result
}
