//go:build amd64

package vtx

import "sync"

// Guest is the Guest Context Facade (spec.md §4.4/§4.5/§6): the external
// API for creating a guest, setting its initial CR3 and entry RIP, and
// running it. It owns exactly one guestCpuRecord — the design pins to one
// logical CPU at a time (spec.md Non-goals: "SMP execution of the guest").
type Guest struct {
	exec      PinnedExecutor
	hostCpu   HostCpuState
	addrSpace GuestAddressSpace
	sink      ByteSink
	accessor  VmcsAccessor

	cpu int
	rec *guestCpuRecord

	mu       sync.Mutex
	closed   bool
	cr3      uint64
	entry    uint64
	cr3Set   bool
	entrySet bool
}

// CreateGuest builds the EPT-backed guest context: allocates the VMCS and
// its auxiliary pages, then runs Setup, all pinned to cpu.
func CreateGuest(exec PinnedExecutor, alloc PageAllocator, caps CapabilityView, hostCpu HostCpuState, addrSpace GuestAddressSpace, sink ByteSink, cpu int) (*Guest, error) {
	g := &Guest{
		exec:      exec,
		hostCpu:   hostCpu,
		addrSpace: addrSpace,
		sink:      sink,
		accessor:  hardwareVmcs{},
		cpu:       cpu,
		rec:       &guestCpuRecord{cpu: cpu},
	}

	if err := exec.RunOn(cpu, func() error { return g.setup(alloc, caps) }); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Guest) setup(alloc PageAllocator, caps CapabilityView) error {
	const op = "create_guest"

	if err := g.rec.vmcsRegion.Alloc(alloc, 0); err != nil {
		return err
	}
	g.rec.vmcsRegion.WriteRevisionID(caps.RevisionID)
	if status := vmclear(uint64(g.rec.vmcsRegion.PhysAddr())); !status.ok() {
		return newErr(KindInternal, op, "VMCLEAR failed")
	}
	if err := g.rec.msrBitmap.Alloc(alloc, 0xff); err != nil {
		return err
	}
	if err := g.rec.hostMsrLoad.Alloc(alloc, 0); err != nil {
		return err
	}
	if err := g.rec.guestMsrSaveLoad.Alloc(alloc, 0); err != nil {
		return err
	}

	guard, err := newVmcsLoadGuard(uint64(g.rec.vmcsRegion.PhysAddr()))
	if err != nil {
		return err
	}
	defer guard.Release()

	return setupVmcs(g.rec, g.accessor, caps, g.addrSpace, g.hostCpu)
}

// SetCR3 validates and stores the guest's initial CR3. Must be less than
// the EPT address space size minus one page (spec.md §4.5).
func (g *Guest) SetCR3(cr3 uint64) error {
	const op = "set_cr3"
	if cr3 >= g.addrSpace.Size()-pageSize {
		return newErr(KindInvalidArgs, op, "CR3 is outside the guest address space")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cr3 = cr3
	g.cr3Set = true
	return nil
}

// SetEntry validates and stores the guest's initial entry RIP. Must be
// less than the EPT address space size (spec.md §4.5).
func (g *Guest) SetEntry(rip uint64) error {
	const op = "set_entry"
	if rip >= g.addrSpace.Size() {
		return newErr(KindInvalidArgs, op, "entry RIP is outside the guest address space")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entry = rip
	g.entrySet = true
	return nil
}

// Enter requires CR3 and entry to have been set; otherwise bad_state
// (spec.md §6). It then runs Enter (spec.md §4.5) pinned to the guest's
// CPU.
func (g *Guest) Enter() error {
	const op = "enter"
	g.mu.Lock()
	if !g.cr3Set || !g.entrySet {
		g.mu.Unlock()
		return newErr(KindBadState, op, "CR3 and entry RIP must be set before Enter")
	}
	cr3, entry := g.cr3, g.entry
	g.mu.Unlock()

	return g.exec.RunOn(g.cpu, func() error {
		return enterGuest(g.rec, g.accessor, g.hostCpu, g.addrSpace, g.sink, cr3, entry)
	})
}

// Close releases the VMCS and its auxiliary pages, returning the owning
// CPU to its prior state. Safe to call more than once.
func (g *Guest) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true

	err := g.exec.RunOn(g.cpu, func() error {
		vmclear(uint64(g.rec.vmcsRegion.PhysAddr()))
		g.rec.vmcsRegion.Release()
		g.rec.msrBitmap.Release()
		g.rec.hostMsrLoad.Release()
		g.rec.guestMsrSaveLoad.Release()
		return nil
	})
	recordGuestClose()
	return err
}
