// Package workqueue schedules delayed, debounced, and concurrency-bounded
// work items and registers each as a cancelscope.Cancellable, so a
// CancelScope's cancellation reaches pending and in-flight work the same
// way it reaches any other cancellable item (C7, adapter layer).
package workqueue
