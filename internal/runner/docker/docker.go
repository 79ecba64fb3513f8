// Package docker implements the Local Docker Runner (spec.md §4.7.1): one
// "docker run --rm" subprocess per job, executed on its own goroutine.
package docker

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/kellrott/gwftool/internal/engine"
	"github.com/kellrott/gwftool/internal/runner"
)

// Config holds the settings that apply to every job the runner starts.
type Config struct {
	// DockerPath is the resolved "docker" executable, looked up via PATH at
	// startup and injected here so the runner has no environmental lookups
	// of its own (spec.md §9, "No global state").
	DockerPath string
	// UID is appended as "-u <uid>"; 0 means "do not look up the current
	// process uid" is never valid, callers always pass os.Getuid().
	UID int
	// NoNet appends "--net=none" when set.
	NoNet bool
}

// Runner runs one job as a single "docker run --rm" subprocess.
type Runner struct {
	cfg Config
	job *engine.Job

	mu      sync.Mutex
	alive   bool
	done    chan struct{}
	result  runner.Result
	started bool
}

// New returns a runner.Factory bound to cfg, suitable for engine.New.
func New(cfg Config) func(*engine.Job) (runner.Runner, error) {
	return func(job *engine.Job) (runner.Runner, error) {
		return &Runner{cfg: cfg, job: job, done: make(chan struct{})}, nil
	}
}

// Start builds the docker run argv, writes the script to the job directory,
// and launches the subprocess on its own goroutine. Non-blocking.
func (r *Runner) Start() error {
	scriptPath := filepath.Join(r.job.Dir, "script")
	if err := os.WriteFile(scriptPath, []byte(r.job.Script), 0o755); err != nil {
		return fmt.Errorf("docker: write script %s: %w", scriptPath, err)
	}

	args, err := r.buildArgs(scriptPath)
	if err != nil {
		return fmt.Errorf("docker: build argv for step %d: %w", r.job.StepID, err)
	}

	cmd := exec.Command(r.cfg.DockerPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("docker: spawn step %d: %w", r.job.StepID, err)
	}

	r.mu.Lock()
	r.alive = true
	r.started = true
	r.mu.Unlock()

	go func() {
		waitErr := cmd.Wait()
		exitCode := 0
		if waitErr != nil {
			if exitErr, ok := waitErr.(*exec.ExitError); ok {
				exitCode = exitErr.ExitCode()
			} else {
				exitCode = -1
			}
		}
		r.mu.Lock()
		r.alive = false
		r.result = runner.Result{ReturnCode: exitCode, Stdout: stdout.String(), Stderr: stderr.String()}
		r.mu.Unlock()
		close(r.done)
	}()

	return nil
}

// Alive implements runner.Runner.
func (r *Runner) Alive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.alive
}

// Result implements runner.ResultProvider; only meaningful once Alive()
// returns false.
func (r *Runner) Result() runner.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// buildArgs constructs the full docker argv per spec.md §4.7.1: a
// deduplicated (by destination path) bind-mount list, uid, workdir, image,
// and the bash invocation of the written script.
func (r *Runner) buildArgs(scriptPath string) ([]string, error) {
	args := []string{"run", "--rm"}
	if r.cfg.NoNet {
		args = append(args, "--net=none")
	}

	seen := make(map[string]bool)
	addMount := func(hostPath, mode string) {
		if seen[hostPath] {
			return
		}
		seen[hostPath] = true
		spec := hostPath + ":" + hostPath
		if mode != "" {
			spec += ":" + mode
		}
		args = append(args, "-v", spec)
	}

	for _, v := range r.job.Inputs {
		forEachFilePath(v, func(path string) { addMount(path, "ro") })
	}
	for _, ref := range r.job.Outputs {
		if err := touch(ref.Path); err != nil {
			return nil, err
		}
		addMount(ref.Path, "")
	}
	addMount(r.job.Dir, "")
	addMount(r.job.Tool.ToolDir(), "ro")

	args = append(args, "-u", fmt.Sprintf("%d", r.cfg.UID))
	args = append(args, "-w", r.job.Dir)
	args = append(args, r.job.Tool.DockerImage(), "bash", scriptPath)
	return args, nil
}

// touch creates an empty file at path (and its parent directory) so the
// container user can write into it once bind-mounted read-write.
func touch(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("docker: create output dir for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("docker: touch output %s: %w", path, err)
	}
	return f.Close()
}

// forEachFilePath walks a resolved input value (which may be a nested map
// produced by the Value Expander) and invokes fn for every File-class path
// it finds, recursing into any nested maps and slices.
func forEachFilePath(v any, fn func(string)) {
	switch val := v.(type) {
	case map[string]any:
		if cls, _ := val["class"].(string); cls == "File" {
			if p, ok := val["path"].(string); ok {
				fn(p)
				return
			}
		}
		for _, nested := range val {
			forEachFilePath(nested, fn)
		}
	case []any:
		for _, nested := range val {
			forEachFilePath(nested, fn)
		}
	}
}
