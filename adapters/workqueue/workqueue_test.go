package workqueue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/concurrence/asynccancel/cancelscope"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestScheduleRunsAfterDelay(t *testing.T) {
	t.Parallel()
	m := NewManager(nil)
	defer m.Shutdown(context.Background())

	var ran atomic.Bool
	m.Schedule("a", 10*time.Millisecond, func(ctx context.Context) { ran.Store(true) })

	deadline := time.After(time.Second)
	for !ran.Load() {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for task to run")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestScheduleDebouncesSameID(t *testing.T) {
	t.Parallel()
	m := NewManager(nil)
	defer m.Shutdown(context.Background())

	var runs atomic.Int32
	m.Schedule("a", 30*time.Millisecond, func(ctx context.Context) { runs.Add(1) })
	time.Sleep(5 * time.Millisecond)
	m.Schedule("a", 30*time.Millisecond, func(ctx context.Context) { runs.Add(1) })

	time.Sleep(80 * time.Millisecond)
	if runs.Load() != 1 {
		t.Fatalf("expected exactly one run after debouncing, got %d", runs.Load())
	}
}

func TestCancelPreventsExecution(t *testing.T) {
	t.Parallel()
	m := NewManager(nil)
	defer m.Shutdown(context.Background())

	var ran atomic.Bool
	m.Schedule("a", 20*time.Millisecond, func(ctx context.Context) { ran.Store(true) })
	m.Cancel("a")

	time.Sleep(60 * time.Millisecond)
	if ran.Load() {
		t.Fatal("expected cancelled task to never run")
	}
}

func TestScopeCancellationCancelsPendingItems(t *testing.T) {
	t.Parallel()
	scope := cancelscope.New()
	m := NewManager(scope)
	defer m.Shutdown(context.Background())

	var ran atomic.Bool
	m.Schedule("a", time.Hour, func(ctx context.Context) { ran.Store(true) })

	scope.Cancel()
	time.Sleep(10 * time.Millisecond)
	if ran.Load() {
		t.Fatal("expected scope cancellation to prevent execution")
	}
}

func TestConcurrencyLimitBoundsParallelism(t *testing.T) {
	t.Parallel()
	m := NewManager(nil, WithConcurrency(1))
	defer m.Shutdown(context.Background())

	var inFlight atomic.Int32
	var maxSeen atomic.Int32
	done := make(chan struct{})

	track := func(ctx context.Context) {
		n := inFlight.Add(1)
		for {
			old := maxSeen.Load()
			if n <= old || maxSeen.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		done <- struct{}{}
	}

	m.Schedule("a", time.Millisecond, track)
	m.Schedule("b", time.Millisecond, track)

	<-done
	<-done
	if maxSeen.Load() > 1 {
		t.Fatalf("expected concurrency bounded to 1, saw %d in flight", maxSeen.Load())
	}
}

func TestShutdownWaitsForRunningTasks(t *testing.T) {
	t.Parallel()
	m := NewManager(nil)

	var completed atomic.Bool
	m.Schedule("a", time.Millisecond, func(ctx context.Context) {
		time.Sleep(30 * time.Millisecond)
		completed.Store(true)
	})
	time.Sleep(10 * time.Millisecond)

	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
	if !completed.Load() {
		t.Fatal("expected the in-flight task to complete before Shutdown returned")
	}
}
