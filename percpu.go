package vtx

// PinnedExecutor is the external CPU/thread collaborator (spec §6): submit
// a closure, have it run to completion pinned to a single logical CPU, and
// report its outcome. VMXON/VMXOFF/VMPTRLD/VMLAUNCH must execute on the
// same logical CPU that owns their structures, so every lifecycle
// operation in this package that touches hardware state runs through this
// seam instead of calling into VMX instructions directly from whatever
// goroutine happened to invoke it. A reference implementation backed by
// sched_setaffinity and runtime.LockOSThread lives in platform/pinexec.
type PinnedExecutor interface {
	// RunOn executes fn pinned to logical CPU cpu and returns fn's error,
	// or its own error if the closure could not be scheduled or joined.
	RunOn(cpu int, fn func() error) error
}

// runOnEach runs fn once per CPU in cpus, pinned via exec, stopping and
// returning the first error encountered. Nothing in this package calls it;
// CreateHost runs its own per-CPU loop.
func runOnEach(exec PinnedExecutor, cpus []int, fn func(cpu int) error) error {
	for _, cpu := range cpus {
		cpu := cpu
		if err := exec.RunOn(cpu, func() error { return fn(cpu) }); err != nil {
			return err
		}
	}
	return nil
}
