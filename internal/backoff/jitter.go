package backoff

import (
	"math/rand"
	"time"
)

// JitterType selects how NewJitterFunc randomizes an interval.
type JitterType int

const (
	// NoJitter returns the interval unchanged.
	NoJitter JitterType = iota
	// FullJitter returns a uniform random value in [0, interval].
	FullJitter
	// Jitter returns a uniform random value in [0.5x, 1.5x] of interval
	// ("equal jitter"): half the wait is guaranteed, the other half varies.
	Jitter
)

// NewJitterFunc returns a function that randomizes a computed interval
// according to jt. Any interval <= 0 always maps to 0.
func NewJitterFunc(jt JitterType) func(time.Duration) time.Duration {
	switch jt {
	case FullJitter:
		return func(interval time.Duration) time.Duration {
			if interval <= 0 {
				return 0
			}
			return time.Duration(rand.Int63n(int64(interval) + 1))
		}
	case Jitter:
		return func(interval time.Duration) time.Duration {
			if interval <= 0 {
				return 0
			}
			return interval/2 + time.Duration(rand.Int63n(int64(interval)+1))
		}
	default:
		return func(interval time.Duration) time.Duration {
			if interval <= 0 {
				return 0
			}
			return interval
		}
	}
}

// jitteredPolicy wraps a RetryPolicy, randomizing every interval it computes
// while passing its errors (ErrRetriesExhausted included) through unchanged.
type jitteredPolicy struct {
	policy     RetryPolicy
	jitterFunc func(time.Duration) time.Duration
}

// WithJitter decorates policy so every computed interval is randomized per
// jt, without altering its retry-budget behavior.
func WithJitter(policy RetryPolicy, jt JitterType) RetryPolicy {
	return &jitteredPolicy{policy: policy, jitterFunc: NewJitterFunc(jt)}
}

func (p *jitteredPolicy) ComputeNextInterval(retryCount int, elapsedTime time.Duration, err error) (time.Duration, error) {
	interval, computeErr := p.policy.ComputeNextInterval(retryCount, elapsedTime, err)
	if computeErr != nil {
		return 0, computeErr
	}
	return p.jitterFunc(interval), nil
}
