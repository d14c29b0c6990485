package future

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/concurrence/asynccancel/cancelscope"
)

// ErrTimedOut is returned by GetWithTimeout when the wait expires before
// the future completes; the future is cancelled as a side effect.
var ErrTimedOut = errors.New("future: timed out")

// State is the execution state of a Future.
type State int32

const (
	StateRunning State = iota
	StateSucceeded
	StateFailed
	StateCancelled
)

func (s State) IsRunning() bool   { return s == StateRunning }
func (s State) IsSucceeded() bool { return s == StateSucceeded }
func (s State) IsFailed() bool    { return s == StateFailed }
func (s State) IsCancelled() bool { return s == StateCancelled }

// Future is a cancellable handle to a background computation producing a
// T. A Future is itself a cancelscope.Cancellable.
type Future[T any] struct {
	state     atomic.Int32
	value     T
	err       error
	done      chan struct{}
	interrupt chan struct{}
	doneOnce  sync.Once
}

// Spawn starts task on a new goroutine and returns a handle to it. The
// task receives an interrupt channel that closes when the future is
// cancelled; well-behaved tasks select on it to stop early. If scope is
// non-nil, the Future is registered with it (requires an active
// suspension bound to scope, like cancelscope.Add), so cancelling the
// scope cancels the future.
func Spawn[T any](scope *cancelscope.CancelScope, task func(interrupt <-chan struct{}) (T, error)) *Future[T] {
	f := &Future[T]{
		done:      make(chan struct{}),
		interrupt: make(chan struct{}),
	}
	f.state.Store(int32(StateRunning))

	if scope != nil {
		scope.Add(f)
	}

	go func() {
		v, err := task(f.interrupt)
		f.complete(v, err)
	}()

	return f
}

func (f *Future[T]) complete(v T, err error) {
	f.doneOnce.Do(func() {
		if err != nil {
			f.state.Store(int32(StateFailed))
			f.err = err
		} else {
			f.state.Store(int32(StateSucceeded))
			f.value = v
		}
		close(f.done)
		close(f.interrupt)
	})
}

// Cancel interrupts the running task, if it hasn't already completed.
func (f *Future[T]) Cancel() {
	f.doneOnce.Do(func() {
		f.state.Store(int32(StateCancelled))
		f.err = cancelscope.ErrCancelled
		close(f.interrupt)
		close(f.done)
	})
}

// IsCancelled reports whether Cancel won the race to complete this future.
func (f *Future[T]) IsCancelled() bool { return f.State().IsCancelled() }

// IsDone reports whether the future has completed, by any means.
func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// State returns the future's current state without blocking.
func (f *Future[T]) State() State { return State(f.state.Load()) }

// Get blocks until the future completes and returns its outcome.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.value, f.err
}

// GetWithTimeout blocks for at most d. If d elapses first, the future is
// cancelled and ErrTimedOut is returned.
func (f *Future[T]) GetWithTimeout(d time.Duration) (T, error) {
	if d <= 0 {
		select {
		case <-f.done:
			return f.value, f.err
		default:
			f.Cancel()
			var zero T
			return zero, ErrTimedOut
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-f.done:
		return f.value, f.err
	case <-timer.C:
		f.Cancel()
		var zero T
		return zero, ErrTimedOut
	}
}

// GetWithContext blocks until the future completes or ctx is done,
// whichever comes first. If ctx wins, the future is cancelled and ctx's
// error is joined with whatever error the future had already recorded.
func (f *Future[T]) GetWithContext(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		f.Cancel()
		var zero T
		return zero, errors.Join(f.err, ctx.Err())
	}
}

// TryGet returns the outcome without blocking; ok is false if the future
// has not yet completed, in which case the other return values are zero.
func (f *Future[T]) TryGet() (value T, err error, ok bool) {
	select {
	case <-f.done:
		return f.value, f.err, true
	default:
		var zero T
		return zero, nil, false
	}
}
