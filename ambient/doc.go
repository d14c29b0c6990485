// Package ambient implements the typed, mergeable context bag that flows
// through nested asynchronous computations. A Context is either a single
// element or an ordered list of elements of arbitrary types, looked up by
// runtime type rather than by key. Merging two contexts (an outer one and a
// newly supplied one) follows a fixed rule that makes inner values shadow
// outer ones while keeping outer values reachable for types the inner
// computation didn't provide.
package ambient
