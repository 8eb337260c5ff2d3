//go:build amd64

package vtx

import "sync"

const (
	featureControlLock            = 1 << 0
	featureControlVmxOutsideSmx   = 1 << 2
	cr4VMXE                       = 1 << 13
)

// hostCpuRecord is the per-CPU state VmxRoot owns: the VMXON region for
// that CPU and whether VMXON has succeeded on it. Per spec.md §3,
// is_on ⇒ that CPU executed VMXON successfully and must execute VMXOFF
// before release.
type hostCpuRecord struct {
	cpu    int
	region VmxRegion
	isOn   bool
}

// VmxRoot is the Host VMX Lifecycle (spec.md §4.3): it owns one
// hostCpuRecord per CPU it was asked to enable, and transitions each one
// Off → On during CreateHost, On → Off during Close.
type VmxRoot struct {
	exec  PinnedExecutor
	alloc PageAllocator
	caps  CapabilityView

	mu     sync.Mutex
	closed bool
	cpus   []*hostCpuRecord
}

// CreateHost probes hardware capabilities, then for each cpu in cpus:
// verifies the feature-control MSR, validates CR0/CR4 against their
// fixed0/fixed1 pairs, allocates a VMXON region, and executes VMXON —
// all pinned to that CPU via exec. If any CPU fails, CPUs already
// enabled are rolled back before the error is returned.
func CreateHost(exec PinnedExecutor, alloc PageAllocator, cpus []int) (*VmxRoot, error) {
	const op = "create_host"

	caps, err := DefaultCapabilities()
	if err != nil {
		return nil, err
	}

	root := &VmxRoot{exec: exec, alloc: alloc, caps: caps}
	for _, cpu := range cpus {
		rec := &hostCpuRecord{cpu: cpu}
		if err := exec.RunOn(cpu, func() error { return root.enableOn(rec) }); err != nil {
			root.teardownEnabled()
			return nil, err
		}
		root.cpus = append(root.cpus, rec)
	}

	log.WithField("cpus", cpus).Info("vtx: host lifecycle entered VMX root")
	recordHostCreate()
	return root, nil
}

// enableOn performs the Off→On transition described in spec.md §4.3,
// steps 1-4, for a single hostCpuRecord. Must run pinned to rec.cpu.
func (r *VmxRoot) enableOn(rec *hostCpuRecord) error {
	const op = "create_host"

	fc := rdmsr(msrIA32FeatureControl)
	if fc&featureControlLock != 0 {
		if fc&featureControlVmxOutsideSmx == 0 {
			return newErr(KindNotSupported, op, "IA32_FEATURE_CONTROL is locked with VMXON outside SMX disabled")
		}
	} else {
		wrmsr(msrIA32FeatureControl, fc|featureControlLock|featureControlVmxOutsideSmx)
	}

	cr0Fixed0 := rdmsr(msrIA32VmxCR0Fixed0)
	cr0Fixed1 := rdmsr(msrIA32VmxCR0Fixed1)
	if crIsInvalid(readCR0(), cr0Fixed0, cr0Fixed1) {
		return newErr(KindBadState, op, "CR0 violates the VMX fixed0/fixed1 constraint")
	}

	cr4Fixed0 := rdmsr(msrIA32VmxCR4Fixed0)
	cr4Fixed1 := rdmsr(msrIA32VmxCR4Fixed1)
	cr4 := readCR4()
	if crIsInvalid(cr4|cr4VMXE, cr4Fixed0, cr4Fixed1) {
		return newErr(KindBadState, op, "CR4 violates the VMX fixed0/fixed1 constraint")
	}
	writeCR4(cr4 | cr4VMXE)

	if err := rec.region.Alloc(r.alloc, 0); err != nil {
		return err
	}
	rec.region.WriteRevisionID(r.caps.RevisionID)

	status := vmxon(uint64(rec.region.PhysAddr()))
	if !status.ok() {
		rec.region.Release()
		return newErr(KindInternal, op, "VMXON failed")
	}
	rec.isOn = true
	return nil
}

// teardownEnabled runs disableOn for every hostCpuRecord already appended
// to r.cpus, used to roll back a partially-succeeded CreateHost.
func (r *VmxRoot) teardownEnabled() {
	for _, rec := range r.cpus {
		_ = r.exec.RunOn(rec.cpu, func() error { return r.disableOn(rec) })
	}
	r.cpus = nil
}

// disableOn performs the On→Off transition (spec.md §4.3): VMXOFF then
// clear CR4.VMXE, both pinned to the CPU that performed VMXON.
func (r *VmxRoot) disableOn(rec *hostCpuRecord) error {
	if rec.isOn {
		vmxoff()
		writeCR4(readCR4() &^ cr4VMXE)
		rec.isOn = false
	}
	rec.region.Release()
	return nil
}

// Close returns every enabled CPU to its prior VMX-off state. Safe to
// call more than once; the second and later calls are no-ops.
func (r *VmxRoot) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	for _, rec := range r.cpus {
		if err := r.exec.RunOn(rec.cpu, func() error { return r.disableOn(rec) }); err != nil {
			log.WithError(err).WithField("cpu", rec.cpu).Warn("vtx: VMXOFF teardown failed")
		}
	}
	r.cpus = nil
	recordHostClose()
	return nil
}

// Capabilities returns the CapabilityView this host was created with.
func (r *VmxRoot) Capabilities() CapabilityView { return r.caps }
