package asynctask

import (
	"context"
	"sync"

	"github.com/concurrence/asynccancel/ambient"
	"github.com/concurrence/asynccancel/cancelscope"
)

type ambientKey struct{}
type handoffKey struct{}

func ambientFrom(ctx context.Context) ambient.Context {
	c, _ := ctx.Value(ambientKey{}).(ambient.Context)
	return c
}

// Get queries the ambient context installed by the nearest enclosing Begin
// for an element of type T (get_context<T>(), §6/P4).
func Get[T any](ctx context.Context) (T, bool) {
	return ambient.Get[T](ambientFrom(ctx))
}

// handoff is the "fresh completion signal installed as thread-local state"
// of §4.5, reimagined as an explicitly threaded context value (see
// SPEC_FULL.md §1 for why): it lets Suspend tell Begin "I have suspended,
// stop waiting and return," and lets Begin's own goroutine tell it "body
// completed without ever suspending." Whichever happens first wins; the
// second is a no-op.
type handoff struct {
	once sync.Once
	done chan struct{}
}

func newHandoff() *handoff { return &handoff{done: make(chan struct{})} }

func (h *handoff) signal() { h.once.Do(func() { close(h.done) }) }

// Begin computes the merged ambient context from the currently installed
// outer context (if any) and newCtx, then runs body on a fresh goroutine
// under that merged context. It blocks the calling goroutine until body
// either completes or reaches its first Suspend call, whichever comes
// first (§4.5.3). If body completes synchronously without suspending, its
// error (if any) is both returned to the caller and, if onError is
// non-nil, delivered to onError exactly once. If body suspends first, Begin
// returns the zero value and a nil error immediately; body's eventual
// outcome is delivered only to onError (if any) once it completes — it is
// not retrievable from Begin's return value at that point. Callers that
// need the eventual result have body publish it itself, for example on a
// channel that body closes over.
func Begin[T any](parent context.Context, newCtx ambient.Context, onError func(error), body func(ctx context.Context) (T, error)) (T, error) {
	if parent == nil {
		parent = context.Background()
	}

	merged := ambient.Merge(ambientFrom(parent), newCtx)
	h := newHandoff()

	childCtx := context.WithValue(parent, ambientKey{}, merged)
	childCtx = context.WithValue(childCtx, handoffKey{}, h)

	type outcome struct {
		result T
		err    error
	}
	results := make(chan outcome, 1)

	go func() {
		result, err := body(childCtx)
		results <- outcome{result: result, err: err}
		h.signal()
	}()

	<-h.done

	select {
	case oc := <-results:
		// body completed before ever suspending: contract 4.5.3(b).
		if oc.err != nil && onError != nil {
			onError(oc.err)
		}
		return oc.result, oc.err
	default:
		// body suspended first; deliver its eventual outcome only to
		// onError, per §4.5/§7 ("after the first suspension the error goes
		// only to on_error").
		if onError != nil {
			go func() {
				oc := <-results
				if oc.err != nil {
					onError(oc.err)
				}
			}()
		}
		var zero T
		return zero, nil
	}
}

// frame is the SuspensionFrame of §3: a transient, one-shot result/error
// slot plus a completion signal, alive for the duration of one Suspend
// call.
type frame[T any] struct {
	mu         sync.Mutex
	value      T
	err        error
	hasValue   bool
	hasRealErr bool
	done       chan struct{}
	doneOnce   sync.Once
}

func newFrame[T any]() *frame[T] { return &frame[T]{done: make(chan struct{})} }

func (f *frame[T]) wake() { f.doneOnce.Do(func() { close(f.done) }) }

// resume records v. It is a fatal misuse to call it more than once, or to
// call it after a non-Cancelled error has already been recorded (Open
// Question #2 in DESIGN.md: the spec mandates treating this as fatal). A
// prior Cancelled is cleared, giving a genuine late success precedence over
// an earlier speculative cancellation (the "cancellation race" of §4.5).
func (f *frame[T]) resume(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hasValue {
		panic("asynctask: resume called more than once on the same suspension")
	}
	if f.hasRealErr {
		panic("asynctask: resume called after a non-cancelled error was already recorded")
	}
	f.value = v
	f.hasValue = true
	f.err = nil
	f.wake()
}

// fail records e. Per I6/§4.5: e may be Cancelled any number of times
// (idempotent), but at most one non-Cancelled error may ever be recorded; a
// non-Cancelled error recorded later supersedes an earlier Cancelled
// (error precedence). A nil error is ignored.
func (f *frame[T]) fail(e error) {
	if e == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.hasValue {
		if IsCancelled(e) {
			return // late, moot cancellation after a real value: no-op.
		}
		panic("asynctask: fail called with a real error after resume already recorded a value")
	}
	if f.hasRealErr {
		if IsCancelled(e) {
			return // idempotent per I6.
		}
		panic("asynctask: fail called with a second non-cancelled error")
	}
	if !IsCancelled(e) {
		f.hasRealErr = true
	}
	f.err = e
	f.wake()
}

func (f *frame[T]) wait() (T, error) {
	<-f.done
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}

// Suspend is the cancellation-aware suspend_async variant. It requires that
// a completion signal is installed, i.e. it is being called from within
// Begin's body (directly or transitively) — otherwise it is a fatal misuse
// and panics. If a *cancelscope.CancelScope is reachable through the
// ambient context, this Suspend's fail closure is bound to it until the
// suspension resolves, so cancellables op registers (via scope.Add) route
// their cancellation errors here; once the suspension resolves (normally,
// via cancellation, or by op panicking), the binding is released and any
// items it registered are pruned from the scope (I5).
func Suspend[T any](ctx context.Context, op func(resume func(T), fail func(error))) (T, error) {
	h, ok := ctx.Value(handoffKey{}).(*handoff)
	if !ok || h == nil {
		panic("asynctask: Suspend called outside Begin")
	}

	f := newFrame[T]()

	if scope, hasScope := Get[*cancelscope.CancelScope](ctx); hasScope {
		unbind := scope.BindSuspension(f.fail)
		defer unbind()
	}

	op(f.resume, f.fail)

	h.signal()

	return f.wait()
}

// SuspendSimple is the non-throwing suspend_async variant: it provides only
// resume and never touches a cancel scope. Calling scope.Add from within op
// is a usage error unless some active Suspend has already bound a failure
// closure to that scope — SuspendSimple itself never binds
// one, so an otherwise-unbound scope will panic in Add (I3), which is the
// closest approximation Go's type system gives us to "a usage error."
func SuspendSimple[T any](ctx context.Context, op func(resume func(T))) (T, error) {
	h, ok := ctx.Value(handoffKey{}).(*handoff)
	if !ok || h == nil {
		panic("asynctask: SuspendSimple called outside Begin")
	}

	f := newFrame[T]()
	op(f.resume)
	h.signal()
	return f.wait()
}
