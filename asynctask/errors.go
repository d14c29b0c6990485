package asynctask

import (
	"errors"

	"github.com/concurrence/asynccancel/cancelscope"
)

// Cancelled is the "cancelled" variant of the error model (C6). It is the
// same sentinel a CancelScope delivers to a failure closure on
// cancellation, re-exported here so callers need not import cancelscope
// just to compare errors.
var Cancelled = cancelscope.ErrCancelled

// IsCancelled is the Error.is_cancelled predicate: it reports whether err
// is, or wraps, Cancelled.
func IsCancelled(err error) bool { return errors.Is(err, Cancelled) }
