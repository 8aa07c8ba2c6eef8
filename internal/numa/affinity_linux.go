//go:build linux

// Package numa pins the calling OS thread to a CPU set, used to keep the
// commit engine's goroutine on predictable cores for the duration of a
// commit.
package numa

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// BindCurrentThread locks the calling goroutine to its OS thread and pins
// that thread to cpus. The caller owns the returned unlock func and must
// invoke it (typically via defer) once affinity no longer needs to be
// held, which also releases the OS-thread lock.
func BindCurrentThread(cpus []int) (unlock func(), err error) {
	if len(cpus) == 0 {
		return func() {}, nil
	}
	runtime.LockOSThread()

	var mask unix.CPUSet
	for _, cpu := range cpus {
		mask.Set(cpu)
	}
	if err := unix.SchedSetaffinity(0, &mask); err != nil {
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("numa: set affinity to %v: %w", cpus, err)
	}
	return runtime.UnlockOSThread, nil
}

// Available reports whether CPU-affinity binding is supported on this
// platform.
func Available() bool { return true }
