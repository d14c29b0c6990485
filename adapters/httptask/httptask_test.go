package httptask

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/concurrence/asynccancel/ambient"
	"github.com/concurrence/asynccancel/asynctask"
	"github.com/concurrence/asynccancel/cancelscope"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDoReturnsResponseOnSuccess(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	scope := cancelscope.New()
	// Begin returns the zero value once body suspends inside Do, so body
	// publishes its outcome on a channel instead.
	type outcome struct {
		result int
		err    error
	}
	outcomes := make(chan outcome, 1)
	asynctask.Begin[int](context.Background(), ambient.Wrap(scope), nil, func(ctx context.Context) (int, error) {
		req, reqErr := http.NewRequest(http.MethodGet, srv.URL, nil)
		if reqErr != nil {
			outcomes <- outcome{0, reqErr}
			return 0, reqErr
		}
		resp, doErr := Do(ctx, srv.Client(), req)
		if doErr != nil {
			outcomes <- outcome{0, doErr}
			return 0, doErr
		}
		defer resp.Body.Close()
		outcomes <- outcome{resp.StatusCode, nil}
		return resp.StatusCode, nil
	})

	var result int
	var err error
	select {
	case oc := <-outcomes:
		result, err = oc.result, oc.err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the request to complete")
	}
	if err != nil || result != http.StatusOK {
		t.Fatalf("expected 200 with no error, got result=%d err=%v", result, err)
	}
}

func TestDoCancelledByScope(t *testing.T) {
	t.Parallel()
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer func() {
		close(block)
		srv.Close()
	}()

	scope := cancelscope.New()

	var onErrCalls int32
	var onErrErr error
	requestStarted := make(chan struct{})

	asynctask.Begin[int](context.Background(), ambient.Wrap(scope), func(err error) {
		atomic.AddInt32(&onErrCalls, 1)
		onErrErr = err
	}, func(ctx context.Context) (int, error) {
		req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
		go close(requestStarted)
		resp, doErr := Do(ctx, srv.Client(), req)
		if doErr == nil {
			resp.Body.Close()
		}
		return 0, doErr
	})

	<-requestStarted
	time.Sleep(20 * time.Millisecond)
	scope.Cancel()

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&onErrCalls) == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the cancelled request to surface")
		case <-time.After(2 * time.Millisecond):
		}
	}
	if !asynctask.IsCancelled(onErrErr) {
		t.Fatalf("expected Cancelled, got %v", onErrErr)
	}
}
