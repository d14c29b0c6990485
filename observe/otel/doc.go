// Package otel provides an OpenTelemetry tracing observer for cancelscope:
// each lifecycle event is recorded as a short span on the tracer passed to
// NewObserver, giving cancel scope activity a place in an existing trace
// pipeline.
package otel
