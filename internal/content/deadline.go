package content

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// runWithDeadline runs fn on a worker goroutine and waits at most budget.
// On expiry the worker's result is abandoned; fn receives a context that is
// cancelled so it can stop early. Panics in fn become errors.
func runWithDeadline[T any](ctx context.Context, budget time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if budget <= 0 {
		return zero, ErrDeadlineExceeded
	}

	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("extractor panic: %v", r)}
			}
		}()
		v, err := fn(ctx)
		done <- result{val: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) {
			return zero, ErrDeadlineExceeded
		}
		return r.val, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, ErrDeadlineExceeded
		}
		return zero, ctx.Err()
	}
}
