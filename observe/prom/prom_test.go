package prom

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/concurrence/asynccancel/cancelscope"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestMetricsWiredIntoScope(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	s := cancelscope.New(cancelscope.WithObserver(m))
	unbind := s.BindSuspension(func(error) {})
	s.Add(&noopCancellable{})
	s.Cancel()
	unbind()

	if got := counterValue(t, m.scopesCreated); got != 1 {
		t.Fatalf("expected 1 scope created, got %v", got)
	}
	if got := counterValue(t, m.scopesCancelled); got != 1 {
		t.Fatalf("expected 1 scope cancelled, got %v", got)
	}
	if got := counterValue(t, m.itemsAdded); got != 1 {
		t.Fatalf("expected 1 item added, got %v", got)
	}
	if got := counterValue(t, m.itemsCancelled); got != 1 {
		t.Fatalf("expected 1 item cancelled, got %v", got)
	}
}

func TestTimeoutArmedRecordsObservation(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.TimeoutArmed(2 * time.Second)

	var out dto.Metric
	if err := m.timeoutsArmed.(prometheus.Histogram).Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if out.GetHistogram().GetSampleCount() != 1 {
		t.Fatalf("expected one observation, got %d", out.GetHistogram().GetSampleCount())
	}
}

type noopCancellable struct{}

func (noopCancellable) Cancel()          {}
func (noopCancellable) IsCancelled() bool { return true }
