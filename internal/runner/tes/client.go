package tes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/kellrott/gwftool/internal/backoff"
	"github.com/kellrott/gwftool/internal/engine"
	"github.com/kellrott/gwftool/internal/runner"
)

// Client is a thin wrapper over the TES REST surface spec.md §6 names:
// POST /v1/tasks, GET /v1/tasks/{id}.
type Client struct {
	http *resty.Client
}

// NewClient returns a Client targeting baseURL, with resty's own retry
// handling enabled for transient 5xx/network failures on the submit call.
func NewClient(baseURL string) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetRetryCount(3).
		SetRetryWaitTime(200 * time.Millisecond)
	return &Client{http: http}
}

func (c *Client) submit(ctx context.Context, task Task) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(task).
		SetResult(&created).
		Post("/v1/tasks")
	if err != nil {
		return "", fmt.Errorf("tes: submit task: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("tes: submit task: status %d: %s", resp.StatusCode(), resp.String())
	}
	return created.ID, nil
}

func (c *Client) get(ctx context.Context, taskID string) (taskView, error) {
	var view taskView
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&view).
		Get("/v1/tasks/" + taskID)
	if err != nil {
		return taskView{}, fmt.Errorf("tes: get task %s: %w", taskID, err)
	}
	if resp.IsError() {
		return taskView{}, fmt.Errorf("tes: get task %s: status %d: %s", taskID, resp.StatusCode(), resp.String())
	}
	return view, nil
}

// Runner is the TES-backed runner.Runner implementation: Start submits the
// task, and a background goroutine polls it with a capped exponential
// backoff until it reaches a terminal state.
type Runner struct {
	client *Client
	job    *engine.Job

	mu      sync.Mutex
	alive   bool
	taskID  string
	result  runner.Result
	pollErr error
}

// New returns a runner.Factory bound to a Client, suitable for engine.New.
func New(client *Client) func(*engine.Job) (runner.Runner, error) {
	return func(job *engine.Job) (runner.Runner, error) {
		return &Runner{client: client, job: job}, nil
	}
}

// Start submits job as a TES task and begins polling it in the background.
func (r *Runner) Start() error {
	task := BuildTask(r.job)
	if err := ValidateTask(task); err != nil {
		return err
	}
	taskID, err := r.client.submit(context.Background(), task)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.taskID = taskID
	r.alive = true
	r.mu.Unlock()

	go r.poll()
	return nil
}

func (r *Runner) poll() {
	policy := backoff.NewExponentialBackoffPolicy(100 * time.Millisecond)
	var final taskView
	err := backoff.PollUntil(context.Background(), policy, func(ctx context.Context) (bool, error) {
		view, err := r.client.get(ctx, r.taskID)
		if err != nil {
			return false, err
		}
		if view.State.Terminal() {
			final = view
			return true, nil
		}
		return false, nil
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.alive = false
	if err != nil {
		r.pollErr = err
		return
	}
	r.result = resultFromTaskView(final)
}

func resultFromTaskView(view taskView) runner.Result {
	res := runner.Result{ReturnCode: -1}
	if view.State != StateComplete {
		return res
	}
	if len(view.Logs) == 0 || len(view.Logs[0].Logs) == 0 {
		return res
	}
	log := view.Logs[0].Logs[0]
	return runner.Result{ReturnCode: log.ExitCode, Stdout: log.Stdout, Stderr: log.Stderr}
}

// Alive implements runner.Runner.
func (r *Runner) Alive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.alive
}

// Result implements runner.ResultProvider.
func (r *Runner) Result() runner.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// Wait polls at a fixed 100ms step until the task reaches a terminal state
// or timeout elapses, matching spec.md §4.7.2's optional wait(timeout)
// helper. Unlike poll(), which the driver loop never blocks on, Wait is for
// callers that want a synchronous result.
func (r *Runner) Wait(ctx context.Context, timeout time.Duration) (runner.Result, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var final taskView
	err := backoff.PollUntil(waitCtx, backoff.NewConstantBackoffPolicy(100*time.Millisecond), func(ctx context.Context) (bool, error) {
		view, err := r.client.get(ctx, r.taskID)
		if err != nil {
			return false, err
		}
		if view.State.Terminal() {
			final = view
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return runner.Result{}, err
	}
	return resultFromTaskView(final), nil
}
