package platform

import (
	"context"
	"fmt"
)

// Progress is one step of a multi-call operation such as page fan-out or
// link generation.
type Progress struct {
	Stage string
	Done  int
	Total int
}

func (p Progress) String() string {
	if p.Total <= 0 {
		return p.Stage
	}
	return fmt.Sprintf("%s (%d/%d)", p.Stage, p.Done, p.Total)
}

// ProgressFunc receives progress steps. It may be called from several goroutines.
type ProgressFunc func(Progress)

type progressKey struct{}

// WithProgress attaches fn to ctx.
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

// ReportProgress forwards p to the callback in ctx. MCP and chat calls carry
// none, so it is a no-op there.
func ReportProgress(ctx context.Context, p Progress) {
	if fn, ok := ctx.Value(progressKey{}).(ProgressFunc); ok && fn != nil {
		fn(p)
	}
}

// Messages adapts a plain string sink, such as a spinner, to a ProgressFunc.
func Messages(fn func(string)) ProgressFunc {
	return func(p Progress) { fn(p.String()) }
}
