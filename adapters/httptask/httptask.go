package httptask

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/concurrence/asynccancel/asynctask"
	"github.com/concurrence/asynccancel/cancelscope"
)

// request is the Cancellable registered with a CancelScope for the
// lifetime of one Do call: cancelling it cancels the request's own
// context, which unblocks the in-flight http.Client.Do.
type request struct {
	cancel    context.CancelFunc
	cancelled atomic.Bool
}

func (r *request) Cancel() {
	if r.cancelled.CompareAndSwap(false, true) {
		r.cancel()
	}
}

func (r *request) IsCancelled() bool { return r.cancelled.Load() }

// Do performs req with client and suspends the calling asynctask body until
// the response (or an error) is available. If the ambient context carries a
// *cancelscope.CancelScope, the request is registered with it so the
// scope's cancellation reaches the request the same way it reaches any
// other cancellable: a derived context is cancelled, which unblocks
// client.Do with context.Canceled, translated here into
// cancelscope.ErrCancelled.
//
// Do must be called from within an asynctask.Begin body (directly or
// transitively); like Suspend, it panics otherwise.
func Do(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}

	return asynctask.Suspend[*http.Response](ctx, func(resume func(*http.Response), fail func(error)) {
		reqCtx, cancel := context.WithCancel(req.Context())
		r := &request{cancel: cancel}

		if scope, ok := asynctask.Get[*cancelscope.CancelScope](ctx); ok {
			scope.Add(r)
		}

		go func() {
			resp, err := client.Do(req.WithContext(reqCtx))
			if err != nil {
				if errors.Is(err, context.Canceled) && r.IsCancelled() {
					fail(cancelscope.ErrCancelled)
					return
				}
				fail(err)
				return
			}
			resume(resp)
		}()
	})
}
