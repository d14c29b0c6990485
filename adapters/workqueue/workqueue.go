package workqueue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/concurrence/asynccancel/cancelscope"
)

// Task is a scheduled unit of work. ctx is cancelled if the item is
// cancelled, replaced (debounced), or the Manager shuts down.
type Task func(ctx context.Context)

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithConcurrency bounds the number of Tasks running at once across the
// Manager. n <= 0 means unbounded, adapted from the teacher's semaphore
// Limiter into a package-level option.
func WithConcurrency(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.semaphore = make(chan struct{}, n)
		}
	}
}

// item is both the Cancellable registered with the scope and the
// bookkeeping record for one scheduled id.
type item struct {
	id        string
	timer     *time.Timer
	cancel    context.CancelFunc
	cancelled atomic.Bool
}

func (it *item) Cancel() {
	if it.cancelled.CompareAndSwap(false, true) {
		it.timer.Stop()
		it.cancel()
	}
}

func (it *item) IsCancelled() bool { return it.cancelled.Load() }

// Manager coordinates the lifecycle of delayed tasks: scheduling,
// debounced replacement by id, optional concurrency bounding, explicit
// per-id cancellation, and graceful shutdown.
type Manager struct {
	mu      sync.Mutex
	pending map[string]*item
	wg      sync.WaitGroup

	semaphore chan struct{}

	scope  *cancelscope.CancelScope
	unbind func()

	closed       bool
	shutdownOnce sync.Once
	shutdownDone chan struct{}
}

// NewManager creates a Manager. If scope is non-nil, every scheduled item
// is registered with it so the scope's own cancellation reaches pending
// and running tasks; the Manager holds its own suspension binding on scope
// for its entire lifetime, released by Shutdown.
func NewManager(scope *cancelscope.CancelScope, opts ...Option) *Manager {
	m := &Manager{
		pending:      make(map[string]*item),
		shutdownDone: make(chan struct{}),
		scope:        scope,
	}
	if scope != nil {
		m.unbind = scope.BindSuspension(func(error) {})
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Schedule plans task for execution after d under id. If a task with the
// same id is already pending or running, it is cancelled and replaced
// (debouncing). Schedule is a no-op once the Manager has been shut down.
func (m *Manager) Schedule(id string, d time.Duration, task Task) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	if old, exists := m.pending[id]; exists {
		old.Cancel()
		delete(m.pending, id)
	}

	ctx, cancel := context.WithCancel(context.Background())
	it := &item{id: id, cancel: cancel}

	it.timer = time.AfterFunc(d, func() {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			cancel()
			return
		}
		m.mu.Unlock()

		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			defer cancel()

			if !m.acquireSlot(ctx) {
				return
			}
			defer m.releaseSlot()

			task(ctx)
			m.deleteIfCurrent(id, it)
		}()
	})

	m.pending[id] = it
	if m.scope != nil {
		m.scope.Add(it)
	}
}

func (m *Manager) acquireSlot(ctx context.Context) bool {
	if m.semaphore == nil {
		return true
	}
	select {
	case m.semaphore <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (m *Manager) releaseSlot() {
	if m.semaphore != nil {
		<-m.semaphore
	}
}

// Cancel stops a pending or in-flight task by id. A no-op if id is unknown.
func (m *Manager) Cancel(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.pending[id]; ok {
		it.Cancel()
		delete(m.pending, id)
	}
}

func (m *Manager) deleteIfCurrent(id string, target *item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.pending[id]; ok && cur == target {
		delete(m.pending, id)
	}
}

// Shutdown cancels every pending and in-flight task, releases the
// Manager's binding on its scope (if any), and waits for running tasks to
// return or ctx to be done, whichever comes first.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.shutdownOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		for id, it := range m.pending {
			it.Cancel()
			delete(m.pending, id)
		}
		m.mu.Unlock()

		go func() {
			m.wg.Wait()
			if m.unbind != nil {
				m.unbind()
			}
			close(m.shutdownDone)
		}()
	})

	select {
	case <-m.shutdownDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
