//go:build !linux

package numa

// BindCurrentThread is a no-op outside Linux: CPU-affinity syscalls have
// no portable equivalent, so callers fall back to the OS scheduler.
func BindCurrentThread(cpus []int) (unlock func(), err error) {
	return func() {}, nil
}

// Available reports whether CPU-affinity binding is supported on this
// platform.
func Available() bool { return false }
