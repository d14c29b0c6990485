// Package asynctask implements the begin_async/suspend_async pair: a
// direct-style asynchronous control flow built on top of callback APIs via
// a blocking handoff. Begin starts body on a fresh goroutine, installs the
// merged ambient context, and returns no later than body's first call to
// Suspend (or its synchronous completion). Suspend pushes a failure closure
// onto the ambient cancel scope's suspension stack (if one is installed),
// invokes the caller-supplied op, and blocks the calling goroutine until
// resumed.
//
// This is an acknowledged prototype limitation: the calling goroutine of
// Begin, and the goroutine running body, both block rather than yield. A
// production implementation could swap the blocking handoff for stackful
// coroutines or a single-threaded event loop without changing the contract
// observable by body or by adapters.
package asynctask
