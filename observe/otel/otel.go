package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/concurrence/asynccancel/cancelscope"
)

// Observer implements cancelscope.Observer by recording each lifecycle
// event as a short, immediately-ended span on tracer. cancelscope's
// Observer interface carries no context (scopes may outlive and be shared
// across many requests), so spans are started against context.Background
// rather than against any particular caller's trace; callers that want
// scope activity attached to a specific trace should start their own span
// around the code that owns the scope instead.
type Observer struct {
	tracer trace.Tracer
}

// NewObserver returns an Observer that records events on the given tracer.
func NewObserver(tracer trace.Tracer) *Observer {
	return &Observer{tracer: tracer}
}

func (o *Observer) emit(name string, attrs ...attribute.KeyValue) {
	_, span := o.tracer.Start(context.Background(), name, trace.WithAttributes(attrs...))
	span.End()
}

func (o *Observer) ScopeCreated()       { o.emit("cancelscope.scope_created") }
func (o *Observer) ScopeCancelled()     { o.emit("cancelscope.scope_cancelled") }
func (o *Observer) ItemAdded()          { o.emit("cancelscope.item_added") }
func (o *Observer) ItemCancelled()      { o.emit("cancelscope.item_cancelled") }
func (o *Observer) SubscopeCreated()    { o.emit("cancelscope.subscope_created") }
func (o *Observer) SuspensionStarted()  { o.emit("cancelscope.suspension_started") }
func (o *Observer) SuspensionResolved() { o.emit("cancelscope.suspension_resolved") }

func (o *Observer) TimeoutArmed(d time.Duration) {
	o.emit("cancelscope.timeout_armed", attribute.Float64("timeout_seconds", d.Seconds()))
}

var _ cancelscope.Observer = (*Observer)(nil)
