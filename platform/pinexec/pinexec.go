// Package pinexec implements vtx.PinnedExecutor on Linux using
// sched_setaffinity and a locked OS thread, so VMXON/VMPTRLD/VMLAUNCH and
// the rest of the VMX lifecycle execute on the exact logical CPU that
// owns their structures.
package pinexec

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Executor pins closures to logical CPUs via sched_setaffinity.
type Executor struct{}

// New returns an Executor. There is no per-instance state: every RunOn
// call spawns and joins its own locked OS thread.
func New() *Executor {
	return &Executor{}
}

// RunOn runs fn on a goroutine locked to an OS thread whose CPU affinity
// mask is set to exactly cpu, and returns fn's error (or its own, if the
// affinity mask could not be set).
func (e *Executor) RunOn(cpu int, fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		var mask unix.CPUSet
		mask.Zero()
		mask.Set(cpu)
		if err := unix.SchedSetaffinity(0, &mask); err != nil {
			errCh <- fmt.Errorf("pinexec: sched_setaffinity(cpu=%d): %w", cpu, err)
			return
		}

		errCh <- fn()
	}()
	return <-errCh
}
