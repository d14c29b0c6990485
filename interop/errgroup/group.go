// Package errgroup bridges a cancelscope.CancelScope to
// golang.org/x/sync/errgroup's fan-out/fan-in semantics: RunAll runs a set
// of functions concurrently, cancelling the rest as soon as one returns a
// non-nil error (errgroup's own behavior), while also registering the
// group with scope so the scope's own cancellation reaches every function
// still running.
package errgroup

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/concurrence/asynccancel/cancelscope"
)

// bridge is the Cancellable registered with scope for the duration of
// RunAll: cancelling it cancels the context shared by every function
// RunAll started.
type bridge struct {
	cancel    context.CancelFunc
	cancelled atomic.Bool
}

func (b *bridge) Cancel() {
	if b.cancelled.CompareAndSwap(false, true) {
		b.cancel()
	}
}

func (b *bridge) IsCancelled() bool { return b.cancelled.Load() }

// RunAll runs each of fns concurrently under a context derived from
// parent, waits for all of them, and returns the first non-nil error (if
// any), per errgroup.Group's own fail-fast semantics: the shared context
// is cancelled as soon as one function errors, signaling the rest to stop
// early. If scope is non-nil, the running group is also registered with
// it, so cancelling scope cancels every function still in flight even if
// none of them has yet returned an error.
func RunAll(parent context.Context, scope *cancelscope.CancelScope, fns ...func(ctx context.Context) error) error {
	g, gctx := errgroup.WithContext(parent)

	if scope != nil {
		ctx, cancel := context.WithCancel(gctx)
		gctx = ctx
		b := &bridge{cancel: cancel}
		unbind := scope.BindSuspension(func(error) {})
		defer unbind()
		scope.Add(b)
		defer b.Cancel()
	}

	for _, fn := range fns {
		fn := fn
		g.Go(func() error { return fn(gctx) })
	}
	return g.Wait()
}
