// Package cancelscope implements cancel scopes: a thread-safe registry of
// cancellables with an optional timeout, a subscope hierarchy, and pruning
// of items that belonged to a resolved suspension frame. A scope is the
// addressable domain over which Cancel() fans out, in insertion order, to
// every Cancellable registered with it.
package cancelscope
