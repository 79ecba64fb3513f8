// Package backoff paces the TES Runner's poll loop (internal/runner/tes):
// a job submitted to a TES server is polled for its terminal state on an
// interval that grows between attempts instead of hammering the server at a
// fixed rate.
//
// The retry-policy shape here is inspired by Temporal's backoff package
// (https://github.com/temporalio/temporal/blob/2a1044994085bffbeeee789cad52ecf2650c501c/common/backoff/retrypolicy.go,
// MIT licensed): a pluggable ComputeNextInterval policy plus a stateful
// Retrier that tracks retry count and elapsed time across calls.
package backoff

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"
)

var (
	// ErrRetriesExhausted is returned once a policy's retry budget is used up.
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrOperationCanceled is returned when ctx is cancelled while waiting
	// out an interval.
	ErrOperationCanceled = errors.New("operation canceled")
)

// RetryPolicy computes the wait before the next attempt, or an error once no
// further attempts should be made.
type RetryPolicy interface {
	ComputeNextInterval(retryCount int, elapsedTime time.Duration, err error) (time.Duration, error)
}

// Retrier is the stateful driver of a RetryPolicy: it tracks how many
// attempts have happened and blocks for the policy's computed interval.
type Retrier interface {
	// Next blocks until the next retry interval elapses, or returns an
	// error if the policy's budget is exhausted or ctx is cancelled first.
	Next(ctx context.Context, err error) error
	Reset()
}

const (
	unlimitedRetries = 0
)

var (
	defaultBackoffFactor = 2.0
	defaultMaxInterval   = 10 * time.Second
	defaultMaxRetries    = unlimitedRetries
)

// retriesExhausted reports whether retryCount has used up maxRetries.
// maxRetries of 0 means unlimited, matching every policy below.
func retriesExhausted(retryCount, maxRetries int) bool {
	return maxRetries > 0 && retryCount >= maxRetries
}

// ExponentialBackoffPolicy doubles (by default) the wait on every attempt,
// capped at MaxInterval. This is what the TES poll loop uses: a freshly
// submitted task is checked almost immediately, a long-running one is
// checked less and less often.
type ExponentialBackoffPolicy struct {
	InitialInterval time.Duration `json:"initialInterval,omitempty"`
	BackoffFactor   float64       `json:"backoffFactor,omitempty"`
	MaxInterval     time.Duration `json:"maxInterval,omitempty"`
	MaxRetries      int           `json:"maxRetries,omitempty"`
}

// NewExponentialBackoffPolicy builds an ExponentialBackoffPolicy with a
// 2x factor, a 10s cap, and unlimited retries.
func NewExponentialBackoffPolicy(initialInterval time.Duration) *ExponentialBackoffPolicy {
	return &ExponentialBackoffPolicy{
		InitialInterval: initialInterval,
		BackoffFactor:   defaultBackoffFactor,
		MaxInterval:     defaultMaxInterval,
		MaxRetries:      defaultMaxRetries,
	}
}

func (p *ExponentialBackoffPolicy) ComputeNextInterval(retryCount int, _ time.Duration, _ error) (time.Duration, error) {
	if retriesExhausted(retryCount, p.MaxRetries) {
		return 0, ErrRetriesExhausted
	}

	interval := float64(p.InitialInterval) * math.Pow(p.BackoffFactor, float64(retryCount))
	if interval > float64(p.MaxInterval) {
		interval = float64(p.MaxInterval)
	}
	return time.Duration(interval), nil
}

// ConstantBackoffPolicy waits the same interval before every attempt. Used
// by the TES runner's Wait helper, where a caller wants a synchronous,
// predictable poll cadence rather than the driver loop's exponential one.
type ConstantBackoffPolicy struct {
	Interval   time.Duration `json:"interval,omitempty"`
	MaxRetries int           `json:"maxRetries,omitempty"`
}

// NewConstantBackoffPolicy builds a ConstantBackoffPolicy with unlimited
// retries at the given interval.
func NewConstantBackoffPolicy(interval time.Duration) *ConstantBackoffPolicy {
	return &ConstantBackoffPolicy{Interval: interval, MaxRetries: defaultMaxRetries}
}

func (p *ConstantBackoffPolicy) ComputeNextInterval(retryCount int, _ time.Duration, _ error) (time.Duration, error) {
	if retriesExhausted(retryCount, p.MaxRetries) {
		return 0, ErrRetriesExhausted
	}
	return p.Interval, nil
}

// LinearBackoffPolicy increases the wait by a fixed Increment on every
// attempt, capped at MaxInterval.
type LinearBackoffPolicy struct {
	InitialInterval time.Duration `json:"initialInterval,omitempty"`
	Increment       time.Duration `json:"increment,omitempty"`
	MaxInterval     time.Duration `json:"maxInterval,omitempty"`
	MaxRetries      int           `json:"maxRetries,omitempty"`
}

// NewLinearBackoffPolicy builds a LinearBackoffPolicy with a 10s cap and
// unlimited retries.
func NewLinearBackoffPolicy(initialInterval, increment time.Duration) *LinearBackoffPolicy {
	return &LinearBackoffPolicy{
		InitialInterval: initialInterval,
		Increment:       increment,
		MaxInterval:     defaultMaxInterval,
		MaxRetries:      defaultMaxRetries,
	}
}

func (p *LinearBackoffPolicy) ComputeNextInterval(retryCount int, _ time.Duration, _ error) (time.Duration, error) {
	if retriesExhausted(retryCount, p.MaxRetries) {
		return 0, ErrRetriesExhausted
	}

	interval := p.InitialInterval + time.Duration(retryCount)*p.Increment
	if interval > p.MaxInterval {
		interval = p.MaxInterval
	}
	return interval, nil
}

// pollRetrier is the default Retrier: it tracks retry count and the time of
// the first Next call, guarded by a mutex since the TES runner's poll loop
// and any caller of Wait may share one across goroutines.
type pollRetrier struct {
	policy     RetryPolicy
	retryCount int
	startedAt  time.Time
	mu         sync.Mutex
}

// NewRetrier returns a Retrier driven by policy.
func NewRetrier(policy RetryPolicy) Retrier {
	return &pollRetrier{policy: policy}
}

func (r *pollRetrier) Next(ctx context.Context, lastErr error) error {
	r.mu.Lock()
	if r.startedAt.IsZero() {
		r.startedAt = time.Now()
	}
	elapsed := time.Since(r.startedAt)

	interval, err := r.policy.ComputeNextInterval(r.retryCount, elapsed, lastErr)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.retryCount++
	r.mu.Unlock()

	timer := time.NewTimer(interval)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ErrOperationCanceled
	}
}

func (r *pollRetrier) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retryCount = 0
	r.startedAt = time.Time{}
}
