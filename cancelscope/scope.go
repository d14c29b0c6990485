package cancelscope

import (
	"errors"
	"sync"
	"time"
)

// ErrCancelled is the sentinel every scope delivers to a failure closure on
// cancellation. It is the "cancelled" variant of the error model (see
// asynctask.Cancelled, which is this same sentinel value).
var ErrCancelled = errors.New("cancelled")

// Cancellable is a uniform handle registrable with a CancelScope: cancel()
// requests cessation of the underlying work and is idempotent and safe to
// call from any goroutine; IsCancelled reflects observable state.
type Cancellable interface {
	Cancel()
	IsCancelled() bool
}

// Suspender is an optional capability a Cancellable may additionally
// implement. CancelScope never invokes it itself; it exists so adapters can
// batch-suspend/resume their own cancellables, e.g. via Cancellables[T].
type Suspender interface {
	Suspend()
	Resume()
}

// Observer receives lifecycle events for metrics/tracing. A nil Observer on
// Options means hooks are skipped entirely (near-zero overhead).
type Observer interface {
	ScopeCreated()
	ScopeCancelled()
	ItemAdded()
	ItemCancelled()
	SubscopeCreated()
	SuspensionStarted()
	SuspensionResolved()
	TimeoutArmed(d time.Duration)
}

// Option configures a CancelScope at construction time.
type Option func(*Options)

// Options holds optional settings for CancelScope construction.
type Options struct {
	// Timeout arms a single-shot timer that calls Cancel() when positive.
	Timeout time.Duration
	// Observer receives lifecycle events; nil disables hooks.
	Observer Observer
}

// WithTimeout arms a single-shot timer that cancels the scope after d.
func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }

// WithObserver attaches an observer for metrics/tracing hooks.
func WithObserver(obs Observer) Option { return func(o *Options) { o.Observer = obs } }

// failureFrame is both the failure closure bound to one active suspension
// and the tag used to prune items registered under that suspension once it
// resolves (I5). Its identity (pointer equality) is what "tag" means here;
// Go closures aren't otherwise comparable.
type failureFrame struct {
	fail func(error)
}

type item struct {
	cancellable Cancellable
	frame       *failureFrame
}

// CancelScope registers cancellables, broadcasts cancellation in insertion
// order, owns an optional timeout, and mints subscopes. A single mutex
// guards items, cancelCalled, and failureStack; failure-closure invocation
// and Cancellable.Cancel() calls happen outside the lock against a
// snapshot, so a cancellable's own Cancel() may safely call back into the
// scope (Add, Cancellables, another Cancel) without deadlocking.
type CancelScope struct {
	mu           sync.Mutex
	items        []item
	cancelCalled bool
	failureStack []*failureFrame
	timeout      time.Duration
	timer        *time.Timer

	obs Observer
}

// New creates a CancelScope. If WithTimeout is given a positive duration, a
// single-shot timer is armed immediately that calls Cancel() on the scope.
func New(opts ...Option) *CancelScope {
	var o Options
	for _, fn := range opts {
		fn(&o)
	}
	s := &CancelScope{obs: o.Observer}
	s.notify(func(ob Observer) { ob.ScopeCreated() })
	if o.Timeout > 0 {
		s.SetTimeout(o.Timeout)
	}
	return s
}

func (s *CancelScope) notify(f func(Observer)) {
	if s.obs != nil {
		f(s.obs)
	}
}

// SetTimeout (re)arms the scope's timeout: any prior timer is disarmed and,
// if d is positive, a new single-shot timer is armed relative to now that
// calls Cancel(). A zero or negative d disarms the timer without arming a
// new one ("no timer").
func (s *CancelScope) SetTimeout(d time.Duration) {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timeout = d
	if d > 0 {
		s.timer = time.AfterFunc(d, s.Cancel)
	}
	s.mu.Unlock()
	if d > 0 {
		s.notify(func(ob Observer) { ob.TimeoutArmed(d) })
	}
}

// Cancel broadcasts cancellation. It is sticky: the first call snapshots
// the registered items, marks the scope cancelled, disarms the timer, then
// outside the lock invokes each item's failure closure with ErrCancelled
// followed by the item's own Cancel(), in insertion order. Subsequent calls
// are no-ops, making Cancel safe to call repeatedly and from any goroutine.
func (s *CancelScope) Cancel() {
	s.mu.Lock()
	if s.cancelCalled {
		s.mu.Unlock()
		return
	}
	s.cancelCalled = true
	snapshot := make([]item, len(s.items))
	copy(snapshot, s.items)
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	s.notify(func(ob Observer) { ob.ScopeCancelled() })
	for _, it := range snapshot {
		it.frame.fail(ErrCancelled)
		it.cancellable.Cancel()
		s.notify(func(ob Observer) { ob.ItemCancelled() })
	}
}

// IsCancelled reports whether every currently registered item reports
// IsCancelled (I1). A scope with no registered items is vacuously
// cancelled only once Cancel() has actually been called; absent that, an
// empty scope reports not-cancelled, matching the intuitive reading of "a
// scope that was never asked to cancel is not cancelled."
func (s *CancelScope) IsCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return s.cancelCalled
	}
	for _, it := range s.items {
		if !it.cancellable.IsCancelled() {
			return false
		}
	}
	return true
}

// Add registers c, binding it to the topmost failure closure on the
// suspension stack (I3: this is only legal while a failure closure is
// active, i.e. from within a suspension bound to this scope — otherwise it
// is a fatal misuse and Add panics). If the scope has already had Cancel
// called, c is synchronously cancelled before Add returns (I2).
func (s *CancelScope) Add(c Cancellable) {
	s.mu.Lock()
	if len(s.failureStack) == 0 {
		s.mu.Unlock()
		panic("cancelscope: Add called with no active suspension bound to this scope")
	}
	frame := s.failureStack[len(s.failureStack)-1]
	cancelled := s.cancelCalled
	s.items = append(s.items, item{cancellable: c, frame: frame})
	s.mu.Unlock()

	s.notify(func(ob Observer) { ob.ItemAdded() })

	if cancelled {
		frame.fail(ErrCancelled)
		c.Cancel()
		s.notify(func(ob Observer) { ob.ItemCancelled() })
	}
}

// Cancellables filters s's currently registered items by runtime type T,
// returning them in insertion order. This is a package-level generic
// function, not a method, because Go methods cannot carry their own type
// parameters.
func Cancellables[T any](s *CancelScope) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []T
	for _, it := range s.items {
		if t, ok := it.cancellable.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// MakeSubscope creates a new scope, pushes the parent's current topmost
// failure closure onto the child's failure stack (so cancellations inside
// the child route to the parent's awaiter), and registers the child as a
// Cancellable of the parent. Like Add, this requires an active suspension
// on the parent; otherwise it is a fatal misuse and panics.
func (s *CancelScope) MakeSubscope(opts ...Option) *CancelScope {
	s.mu.Lock()
	if len(s.failureStack) == 0 {
		s.mu.Unlock()
		panic("cancelscope: MakeSubscope called with no active suspension bound to the parent")
	}
	parentFrame := s.failureStack[len(s.failureStack)-1]
	s.mu.Unlock()

	child := New(opts...)
	child.failureStack = append(child.failureStack, parentFrame)
	s.notify(func(ob Observer) { ob.SubscopeCreated() })
	s.Add(child)
	return child
}

// BindSuspension pushes fail onto the scope's failure stack for the
// duration of one suspend_async frame and returns a function that pops it
// and prunes items registered under it (I5: items registered during this
// frame are removed; items belonging to outer frames survive). Callers
// (asynctask.Suspend) must invoke the returned function exactly once, on
// every exit path — normal resume, error, or panic.
func (s *CancelScope) BindSuspension(fail func(error)) (unbind func()) {
	frame := &failureFrame{fail: fail}
	s.mu.Lock()
	s.failureStack = append(s.failureStack, frame)
	s.mu.Unlock()
	s.notify(func(ob Observer) { ob.SuspensionStarted() })

	return func() {
		s.mu.Lock()
		for i := len(s.failureStack) - 1; i >= 0; i-- {
			if s.failureStack[i] == frame {
				s.failureStack = append(s.failureStack[:i], s.failureStack[i+1:]...)
				break
			}
		}
		kept := make([]item, 0, len(s.items))
		for _, it := range s.items {
			if it.frame != frame {
				kept = append(kept, it)
			}
		}
		s.items = kept
		s.mu.Unlock()
		s.notify(func(ob Observer) { ob.SuspensionResolved() })
	}
}

// Cancel implements Cancellable for *CancelScope itself, so a scope may be
// registered as an item of another scope (subscopes, see MakeSubscope). The
// Cancel and IsCancelled methods above already satisfy this; this block
// exists only to document the conformance.
var _ Cancellable = (*CancelScope)(nil)
