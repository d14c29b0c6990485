// Package httptask adapts outgoing HTTP requests to cancelscope.Cancellable
// so a CancelScope's cascading cancellation reaches requests in flight the
// same way it reaches any other cancellable item (C7, adapter layer).
package httptask
