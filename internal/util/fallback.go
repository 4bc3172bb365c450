package util

import "context"

// Attempt is one fallible step of an ordered fallback chain.
type Attempt[T any] func(ctx context.Context) (T, bool)

// FirstOf runs attempts in order and returns the first success. Later
// attempts are never evaluated once one succeeds, and evaluation stops
// when ctx is done.
func FirstOf[T any](ctx context.Context, attempts ...Attempt[T]) (T, bool) {
	var zero T
	for _, attempt := range attempts {
		if ctx.Err() != nil {
			return zero, false
		}
		if v, ok := attempt(ctx); ok {
			return v, true
		}
	}
	return zero, false
}
