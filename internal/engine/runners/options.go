package runner

import (
	"context"
	"time"
)

// withDefaultTimeout ограничивает ctx таймаутом, если у него еще нет дедлайна
func withDefaultTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// remaining время до дедлайна ctx, но не больше fallback
func remaining(ctx context.Context, fallback time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return fallback
	}
	left := time.Until(deadline)
	if left <= 0 {
		return time.Millisecond
	}
	if left < fallback {
		return left
	}
	return fallback
}
