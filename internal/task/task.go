// Package task starts named goroutines so long-running workers show up with
// readable labels in pprof output.
package task

import (
	"context"
	"runtime/pprof"
)

type ctxKey string

const nameKey ctxKey = "task_name"

// Go starts fn on its own goroutine labeled with name. A nil parent context
// falls back to context.Background().
func Go(parent context.Context, name string, fn func(ctx context.Context)) {
	if parent == nil {
		parent = context.Background()
	}

	labels := pprof.Labels("task_name", name)
	go pprof.Do(parent, labels, func(ctx context.Context) {
		fn(context.WithValue(ctx, nameKey, name))
	})
}

// Name returns the label the goroutine was started with, or "".
func Name(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(nameKey).(string); ok {
		return s
	}
	return ""
}
