package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// WithTimeout runs fn under a context cancelled after timeout. fn runs on
// the calling goroutine and is expected to honor its context; when it
// returns a cancellation caused by this deadline, the error is rewritten to
// name the operation and the limit. A timeout <= 0 runs fn with the parent
// context unchanged.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	cause := fmt.Errorf("%s: %w (limit: %v)", name, context.DeadlineExceeded, timeout)
	timeoutCtx, cancel := context.WithTimeoutCause(ctx, timeout, cause)
	defer cancel()

	err := fn(timeoutCtx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && context.Cause(timeoutCtx) == cause {
		return cause
	}
	return err
}
