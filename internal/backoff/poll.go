package backoff

import "context"

// PollUntil repeatedly calls check until it reports done, using policy to
// pace the interval between calls. Used by the TES runner to replace the
// fixed-step poll loop of the original implementation with a capped
// exponential backoff while still honoring a context deadline/cancellation.
func PollUntil(ctx context.Context, policy RetryPolicy, check func(ctx context.Context) (done bool, err error)) error {
	retrier := NewRetrier(policy)
	for {
		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if err := retrier.Next(ctx, nil); err != nil {
			return err
		}
	}
}
