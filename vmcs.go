//go:build amd64

package vtx

import "unsafe"

// Required/cleared control masks for Setup (spec.md §4.4). Named after the
// architectural bit position they occupy in each control field.
const (
	sec2ReqEnableEpt    = 1 << 1
	sec2ReqEnableRdtscp = 1 << 3
	sec2ReqEnableVpid   = 1 << 5
	sec2ReqEnableXsave  = 1 << 20

	pinReqExternalIntExiting = 1 << 0
	pinReqNmiExiting         = 1 << 3

	procReqUnconditionalIO  = 1 << 24
	procReqUseMsrBitmaps    = 1 << 28
	procReqActivateSecondary = 1 << 31
	procClrCR3LoadExiting   = 1 << 15
	procClrCR3StoreExiting  = 1 << 16

	exitReqHostAddrSpaceSize = 1 << 9
	exitReqSavePat           = 1 << 18
	exitReqLoadPat           = 1 << 19
	exitReqSaveEfer          = 1 << 20
	exitReqLoadEfer          = 1 << 21

	entryReqIA32eModeGuest = 1 << 9
	entryReqLoadPat        = 1 << 14
	entryReqLoadEfer       = 1 << 15

	guestCR0Required = (1 << 0) | (1 << 31) | (1 << 5) // PE | PG | NE
	guestCR4Required = (1 << 5) | (1 << 13)            // PAE | VMXE

	accessRightsUnusable = 1 << 16
	csAccessRights       = 0xB | (1 << 4) | (1 << 7) | (1 << 13) // type=code,S,P,L
	trAccessRights       = 0xB | (1 << 7)                        // type=busy TSS,P

	vmcsLinkPointerNone = ^uint64(0)
	guestRflagsReserved = 1 << 1
)

// guestCpuRecord is the per-CPU state Vmcs owns (spec.md §3): a VMCS page,
// an MSR bitmap, a host MSR-load list, a guest MSR save/load list, and the
// VmxState scratch area the entry/exit trampoline reads and writes.
type guestCpuRecord struct {
	cpu              int
	vmcsRegion       VmxRegion
	msrBitmap        MsrBitmap
	hostMsrLoad      MsrListEntry
	guestMsrSaveLoad MsrListEntry
	state            VmxState
	doResume         bool
	hostDescriptors  hostDescriptorState
}

// setupVmcs performs the one-time Setup (spec.md §4.4) on rec, which must
// already be VMPTRLD'd (accessor reads/writes the currently loaded VMCS).
// rec.cpu is used to derive the VPID (cpu_index+1, must be nonzero).
func setupVmcs(rec *guestCpuRecord, accessor VmcsAccessor, caps CapabilityView, addrSpace GuestAddressSpace, hostCpu HostCpuState) error {
	const op = "guest_setup"

	sec2, err := negotiateControl(op, caps.TrueProcbasedCtls2, 0,
		sec2ReqEnableEpt|sec2ReqEnableRdtscp|sec2ReqEnableVpid|sec2ReqEnableXsave, 0)
	if err != nil {
		return err
	}
	if err := accessor.Write(vmcsProcBasedControls2, uint64(sec2)); err != nil {
		return err
	}

	pin, err := negotiateControl(op, caps.TruePinbasedCtls, 0, pinReqExternalIntExiting|pinReqNmiExiting, 0)
	if err != nil {
		return err
	}
	if err := accessor.Write(vmcsPinBasedControls, uint64(pin)); err != nil {
		return err
	}

	proc, err := negotiateControl(op, caps.TrueProcbasedCtls, 0,
		procReqUnconditionalIO|procReqUseMsrBitmaps|procReqActivateSecondary,
		procClrCR3LoadExiting|procClrCR3StoreExiting)
	if err != nil {
		return err
	}
	if err := accessor.Write(vmcsProcBasedControls, uint64(proc)); err != nil {
		return err
	}

	exitCtls, err := negotiateControl(op, caps.TrueExitCtls, 0,
		exitReqHostAddrSpaceSize|exitReqSavePat|exitReqLoadPat|exitReqSaveEfer|exitReqLoadEfer, 0)
	if err != nil {
		return err
	}
	if err := accessor.Write(vmcsVmExitControls, uint64(exitCtls)); err != nil {
		return err
	}

	entryCtls, err := negotiateControl(op, caps.TrueEntryCtls, 0,
		entryReqIA32eModeGuest|entryReqLoadPat|entryReqLoadEfer, 0)
	if err != nil {
		return err
	}
	if err := accessor.Write(vmcsVmEntryControls, uint64(entryCtls)); err != nil {
		return err
	}

	if err := accessor.Write(vmcsExceptionBitmap, 0xFFFFFFFF); err != nil {
		return err
	}
	if err := accessor.Write(vmcsPageFaultErrCodeMask, 0); err != nil {
		return err
	}
	if err := accessor.Write(vmcsPageFaultErrCodeMatch, 0); err != nil {
		return err
	}

	vpid := uint64(rec.cpu + 1)
	if err := accessor.Write(vmcsVpid, vpid); err != nil {
		return err
	}

	if err := accessor.Write(vmcsEptPointer, eptPointer(addrSpace.Pml4PhysAddr())); err != nil {
		return err
	}

	rec.msrBitmap.Ignore(msrIA32FSBase)
	rec.msrBitmap.Ignore(msrIA32KernelGSBase)
	if err := accessor.Write(vmcsMsrBitmap, uint64(rec.msrBitmap.PhysAddr())); err != nil {
		return err
	}

	rec.hostMsrLoad.Edit(0, msrIA32Star, rdmsr(msrIA32Star))
	rec.hostMsrLoad.Edit(1, msrIA32Lstar, rdmsr(msrIA32Lstar))
	rec.hostMsrLoad.Edit(2, msrIA32Fmask, rdmsr(msrIA32Fmask))
	rec.hostMsrLoad.Edit(3, msrIA32KernelGSBase, rdmsr(msrIA32KernelGSBase))
	if err := accessor.Write(vmcsVmExitMsrLoadAddr, uint64(rec.hostMsrLoad.PhysAddr())); err != nil {
		return err
	}
	if err := accessor.Write(vmcsVmExitMsrLoadCount, 4); err != nil {
		return err
	}

	rec.guestMsrSaveLoad.Edit(0, msrIA32KernelGSBase, 0)
	if err := accessor.Write(vmcsVmExitMsrStoreAddr, uint64(rec.guestMsrSaveLoad.PhysAddr())); err != nil {
		return err
	}
	if err := accessor.Write(vmcsVmExitMsrStoreCount, 1); err != nil {
		return err
	}
	if err := accessor.Write(vmcsVmEntryMsrLoadAddr, uint64(rec.guestMsrSaveLoad.PhysAddr())); err != nil {
		return err
	}
	if err := accessor.Write(vmcsVmEntryMsrLoadCount, 1); err != nil {
		return err
	}

	if err := setupHostState(rec, accessor, hostCpu); err != nil {
		return err
	}
	if err := setupInitialGuestState(accessor, caps); err != nil {
		return err
	}

	recordGuestSetup()
	return nil
}

func setupHostState(rec *guestCpuRecord, accessor VmcsAccessor, hostCpu HostCpuState) error {
	seg := captureHostSegments()

	rec.hostDescriptors = hostDescriptorState{
		gdtrBase:    seg.gdtrBase,
		tssSelector: hostCpu.TssSelector(),
		idtrBase:    seg.idtrBase,
		idtrLimit:   seg.idtrLimit,
	}

	writes := []struct {
		field vmcsField
		value uint64
	}{
		{vmcsHostPat, rdmsr(msrIA32Pat)},
		{vmcsHostEfer, rdmsr(msrIA32Efer)},
		{vmcsHostCR0, readCR0()},
		{vmcsHostCR4, readCR4()},
		{vmcsHostCSSelector, uint64(seg.cs)},
		{vmcsHostSSSelector, uint64(seg.ss)},
		{vmcsHostTRSelector, uint64(hostCpu.TssSelector())},
		{vmcsHostDSSelector, 0},
		{vmcsHostESSelector, 0},
		{vmcsHostFSSelector, 0},
		{vmcsHostGSSelector, 0},
		{vmcsHostFSBase, rdmsr(msrIA32FSBase)},
		{vmcsHostGSBase, rdmsr(msrIA32GSBase)},
		{vmcsHostTRBase, hostCpu.TssBase()},
		{vmcsHostGdtrBase, seg.gdtrBase},
		{vmcsHostIdtrBase, seg.idtrBase},
		{vmcsHostSysenterESP, 0},
		{vmcsHostSysenterEIP, 0},
		{vmcsHostSysenterCS, 0},
		{vmcsHostRsp, uint64(vmxStateAddr(rec))},
		{vmcsHostRip, uint64(vmxExitAddr())},
	}
	for _, w := range writes {
		if err := accessor.Write(w.field, w.value); err != nil {
			return err
		}
	}
	return nil
}

func setupInitialGuestState(accessor VmcsAccessor, caps CapabilityView) error {
	const op = "guest_setup"

	cr0Fixed0 := rdmsr(msrIA32VmxCR0Fixed0)
	cr0Fixed1 := rdmsr(msrIA32VmxCR0Fixed1)
	if crIsInvalid(guestCR0Required, cr0Fixed0, cr0Fixed1) {
		return newErr(KindBadState, op, "initial guest CR0 violates the VMX fixed0/fixed1 constraint")
	}
	cr4Fixed0 := rdmsr(msrIA32VmxCR4Fixed0)
	cr4Fixed1 := rdmsr(msrIA32VmxCR4Fixed1)
	if crIsInvalid(guestCR4Required, cr4Fixed0, cr4Fixed1) {
		return newErr(KindBadState, op, "initial guest CR4 violates the VMX fixed0/fixed1 constraint")
	}

	writes := []struct {
		field vmcsField
		value uint64
	}{
		{vmcsGuestCR0, guestCR0Required},
		{vmcsGuestCR4, guestCR4Required},
		{vmcsGuestPat, rdmsr(msrIA32Pat)},
		{vmcsGuestEfer, rdmsr(msrIA32Efer)},
		{vmcsGuestCSSelector, 0},
		{vmcsGuestCSAccessRights, csAccessRights},
		{vmcsGuestCSBase, 0},
		{vmcsGuestTRSelector, 0},
		{vmcsGuestTRAccessRights, trAccessRights},
		{vmcsGuestTRBase, 0},
		{vmcsGuestSSSelector, 0},
		{vmcsGuestDSSelector, 0},
		{vmcsGuestESSelector, 0},
		{vmcsGuestFSSelector, 0},
		{vmcsGuestGSSelector, 0},
		{vmcsGuestGdtrBase, 0},
		{vmcsGuestGdtrLimit, 0},
		{vmcsGuestIdtrBase, 0},
		{vmcsGuestIdtrLimit, 0},
		{vmcsGuestRflags, guestRflagsReserved},
		{vmcsGuestActivityState, 0},
		{vmcsGuestInterruptibility, 0},
		{vmcsGuestPendingDebugExc, 0},
		{vmcsGuestSysenterESP, 0},
		{vmcsGuestSysenterEIP, 0},
		{vmcsGuestSysenterCS, 0},
		{vmcsGuestRsp, 0},
		{vmcsGuestVmcsLinkPointer, vmcsLinkPointerNone},
	}
	for _, w := range writes {
		if err := accessor.Write(w.field, w.value); err != nil {
			return err
		}
	}

	for _, f := range []vmcsField{vmcsGuestESAccessRights, vmcsGuestSSAccessRights, vmcsGuestDSAccessRights, vmcsGuestFSAccessRights, vmcsGuestGSAccessRights, vmcsGuestLdtrAccessRights} {
		if err := accessor.Write(f, accessRightsUnusable); err != nil {
			return err
		}
	}

	return nil
}

// vmxStateAddr returns the host-virtual address of rec's VmxState scratch
// area: HOST_RSP is programmed to point directly at it (spec.md §4.4), so
// the exit trampoline can address GuestState fields via SP-relative
// addressing with no pointer register needed on exit.
func vmxStateAddr(rec *guestCpuRecord) uintptr {
	return uintptr(unsafe.Pointer(&rec.state))
}
