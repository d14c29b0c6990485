// Package future provides a cancellable, pollable handle to a background
// computation: Spawn starts a goroutine and returns a Future[T] that is
// itself a cancelscope.Cancellable, so a CancelScope reaches it the same
// way it reaches any other registered item. It complements asynctask's
// blocking Suspend/Begin pair for callers that want a handle they can poll
// or wait on later rather than a suspension that resolves in place.
package future
