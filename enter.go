//go:build amd64

package vtx

import "time"

// vmcsLoadGuard is the RAII-style scope guard spec.md's Design Notes call
// for: "Scoped acquisition of 'VMCS loaded + interrupts disabled' must be
// expressed as an explicit resource guard that releases on every exit
// path." Construction performs VMPTRLD and disables interrupts; Release
// re-enables interrupts. Callers always pair construction with a deferred
// Release.
type vmcsLoadGuard struct {
	released bool
}

func newVmcsLoadGuard(physAddr uint64) (*vmcsLoadGuard, error) {
	disableInterrupts()
	if status := vmptrld(physAddr); !status.ok() {
		enableInterrupts()
		return nil, newErr(KindInternal, "enter", "VMPTRLD failed")
	}
	return &vmcsLoadGuard{}, nil
}

func (g *vmcsLoadGuard) Release() {
	if g.released {
		return
	}
	g.released = true
	enableInterrupts()
}

// enterGuest implements Enter (spec.md §4.5): load the VMCS, refresh
// per-thread host state, write guest CR3/RIP on first launch, transfer
// control via the low-level trampoline, and run the Exit Dispatcher on
// return.
func enterGuest(rec *guestCpuRecord, accessor VmcsAccessor, hostCpu HostCpuState, addrSpace GuestAddressSpace, sink ByteSink, cr3, entryRip uint64) error {
	const op = "enter"
	start := time.Now()

	guard, err := newVmcsLoadGuard(uint64(rec.vmcsRegion.PhysAddr()))
	if err != nil {
		return err
	}
	defer guard.Release()

	if err := accessor.Write(vmcsHostFSBase, rdmsr(msrIA32FSBase)); err != nil {
		return err
	}
	if err := accessor.Write(vmcsHostCR3, uint64(readCR3())); err != nil {
		return err
	}
	rec.hostMsrLoad.Edit(3, msrIA32KernelGSBase, rdmsr(msrIA32KernelGSBase))

	if !rec.doResume {
		if err := accessor.Write(vmcsGuestCR3, cr3); err != nil {
			return err
		}
		if err := accessor.Write(vmcsGuestRip, entryRip); err != nil {
			return err
		}
	}

	status := vmxEnter(&rec.state, rec.doResume)
	recordEnter(time.Since(start))
	if !status.ok() {
		recordLaunchFailure()
		code, _ := accessor.Read(vmcsVmInstructionError)
		return wrapErr(KindInternal, op, "VMLAUNCH/VMRESUME failed", &VmInstructionError{Code: uint32(code)})
	}
	rec.doResume = true

	// VM-exit always reloads TR with limit 0x67 (excluding the IO bitmap)
	// and IDTR with limit 0xffff; restore the host's real descriptors
	// before anything below depends on them.
	restoreHostDescriptors(rec.hostDescriptors)

	info, err := readExitInfo(accessor)
	if err != nil {
		return err
	}
	return dispatchExit(info, &rec.state.Guest, accessor, sink)
}
