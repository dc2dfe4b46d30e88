package transport

import "context"

// The retry guard is an immutable per-call context value, not a mutable
// flag on a shared request object. Each outbound call starts unmarked; the
// single refresh-triggered replay carries the mark, so a second 401 on the
// replay propagates instead of looping.
type retryGuardKey struct{}

func markRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retryGuardKey{}, true)
}

func wasRetried(ctx context.Context) bool {
	v, _ := ctx.Value(retryGuardKey{}).(bool)
	return v
}
