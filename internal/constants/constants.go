// Package constants holds default tunables shared across the allocator,
// staging, and commit-engine packages.
package constants

import "time"

const (
	// BadIOVA is the sentinel returned by a failed iova.Alloc/Search.
	BadIOVA uint64 = ^uint64(0)

	// DefaultGracePeriod is the pause between publishing ts_next and
	// mutating the old ts shadow, giving an in-flight dataplane reader
	// time to finish dereferencing the old pointer.
	DefaultGracePeriod = 100 * time.Microsecond

	// DefaultTableCapacityHint sizes the initial backing slice for a
	// table's "entries" set; purely a allocation-avoidance hint.
	DefaultTableCapacityHint = 64

	// MaxActionDataSize bounds action_data to keep table entries small;
	// no table in this package allows a wider action.
	MaxActionDataSize = 256
)
