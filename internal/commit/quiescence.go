package commit

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrQuiescenceTimeout is returned by a backoff-based quiescence check
// that never reported the dataplane drained within its budget.
var ErrQuiescenceTimeout = errors.New("commit: quiescence check did not settle")

// NewBackoffQuiescence builds an Engine.Quiescence func that polls ready
// with exponential backoff instead of sleeping a fixed grace interval —
// the explicit alternative to "grace via sleep" flagged in spec §9.
// ready should report whether no reader can still observe the
// about-to-be-retired table state.
func NewBackoffQuiescence(ready func() bool, b backoff.BackOff) func() error {
	return func() error {
		op := func() error {
			if ready() {
				return nil
			}
			return ErrQuiescenceTimeout
		}
		return backoff.Retry(op, b)
	}
}

// DefaultBackoff returns a short exponential backoff suitable for
// polling reader quiescence: starts at 10µs, caps at 1ms, gives up
// after roughly 10ms total.
func DefaultBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Microsecond
	b.MaxInterval = time.Millisecond
	return backoff.WithMaxRetries(b, 20)
}
