package ambient

// Context is an opaque ambient value: either a single element or an
// ordered list of elements of arbitrary types. The zero value (nil) means
// "no context installed."
//
// Context values are reference types; Merge relies on pointer identity to
// detect "the same context passed through unchanged" (rule 2 below).
type Context interface {
	elements() []any
}

type single struct{ value any }

func (s *single) elements() []any { return []any{s.value} }

type list struct{ items []any }

func (l *list) elements() []any { return l.items }

// Wrap returns a single-element Context holding v. Passing nil yields a nil
// Context (equivalent to "no context").
func Wrap(v any) Context {
	if v == nil {
		return nil
	}
	return &single{value: v}
}

// Merge combines an outer context (from an enclosing computation) with a
// newly supplied one (from the computation being entered), per the nesting
// rule:
//
//  1. If either is empty (nil), use the other.
//  2. If outer and newC are the same reference, use outer.
//  3. If both are lists, the merged context is newC's items followed by
//     outer's items (new elements precede outer elements).
//  4. If only outer is a list, prepend newC to outer's items.
//  5. If only newC is a list, append outer to newC's items.
//  6. Otherwise the merged context is the two-element list [newC, outer].
//
// The ordering guarantees that a lookup by type finds the innermost
// matching element first, while outer elements of types the inner context
// did not supply remain discoverable.
func Merge(outer, newC Context) Context {
	if outer == nil {
		return newC
	}
	if newC == nil {
		return outer
	}
	if sameReference(outer, newC) {
		return outer
	}

	outerList, outerIsList := outer.(*list)
	newList, newIsList := newC.(*list)

	switch {
	case outerIsList && newIsList:
		items := make([]any, 0, len(newList.items)+len(outerList.items))
		items = append(items, newList.items...)
		items = append(items, outerList.items...)
		return &list{items: items}
	case outerIsList:
		items := make([]any, 0, len(outerList.items)+1)
		items = append(items, newC)
		items = append(items, outerList.items...)
		return &list{items: items}
	case newIsList:
		items := make([]any, 0, len(newList.items)+1)
		items = append(items, newList.items...)
		items = append(items, outer)
		return &list{items: items}
	default:
		return &list{items: []any{newC, outer}}
	}
}

func sameReference(a, b Context) bool {
	sa, aOK := a.(*single)
	sb, bOK := b.(*single)
	if aOK && bOK {
		return sa == sb
	}
	la, aOK := a.(*list)
	lb, bOK := b.(*list)
	if aOK && bOK {
		return la == lb
	}
	return false
}

// Get looks up the first element of c whose runtime type is T. If c itself
// is a single element of type T, that element is returned. If c is a list,
// its elements are scanned in order and the first matching one wins —
// which, by Merge's ordering, is the innermost element of that type.
func Get[T any](c Context) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	for _, v := range c.elements() {
		if t, ok := v.(T); ok {
			return t, true
		}
		// A list element may itself be a single-element Context produced by
		// Merge's branches 4–6 (they store newC or outer itself, not its
		// unwrapped value, when that side was a *single*).
		if inner, ok := v.(Context); ok {
			if t, ok := Get[T](inner); ok {
				return t, true
			}
		}
	}
	return zero, false
}
