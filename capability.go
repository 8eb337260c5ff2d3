//go:build amd64

package vtx

// msrSource abstracts "read this capability MSR" so ProbeCapabilities is
// testable without real VMX hardware; the amd64 build's hardwareMSR
// (capability_amd64.go) backs it with the real RDMSR instruction.
type msrSource interface {
	ReadMSR(msr uint32) uint64
}

// EptCapabilities is the subset of IA32_VMX_EPT_VPID_CAP this design
// requires.
type EptCapabilities struct {
	PageWalk4           bool
	WriteBack           bool
	Pde2MbPage          bool
	Pdpe1GbPage         bool
	AccessedDirty       bool
	InveptSupported     bool
	InveptSingleContext bool
	InveptAllContext    bool
}

// MiscCapabilities is the subset of IA32_VMX_MISC this design requires.
type MiscCapabilities struct {
	WaitForSipi  bool
	MsrListLimit uint32
}

// CapabilityView is an immutable snapshot of hardware capability bits,
// created once per host-lifecycle construction and never mutated.
type CapabilityView struct {
	RevisionID          uint32
	RegionSize          uint32
	WriteBackSupported  bool
	IoExitInfoAvailable bool
	HasTrueControls     bool

	Ept  EptCapabilities
	Misc MiscCapabilities

	TruePinbasedCtls   uint64
	TrueProcbasedCtls  uint64
	TrueProcbasedCtls2 uint64
	TrueExitCtls       uint64
	TrueEntryCtls      uint64
}

// ProbeCapabilities reads IA32_VMX_BASIC, IA32_VMX_MISC, and
// IA32_VMX_EPT_VPID_CAP (plus the four "true controls" MSRs) and reports
// them as a CapabilityView. It fails not_supported if the CPU lacks VMX
// entirely (CPUID.1:ECX.VMX) or if any of the required feature bits in
// spec.md §4.1 is false.
func ProbeCapabilities(src msrSource) (CapabilityView, error) {
	const op = "probe_capabilities"

	if !cpuSupportsVMX() {
		return CapabilityView{}, newErr(KindNotSupported, op, "CPUID.1:ECX.VMX is not set")
	}

	basic := src.ReadMSR(msrIA32VmxBasic)
	misc := src.ReadMSR(msrIA32VmxMisc)
	eptVpid := src.ReadMSR(msrIA32VmxEptVpidCap)

	const memTypeWriteBack = 6

	view := CapabilityView{
		RevisionID:          uint32(basic),
		RegionSize:          uint32((basic >> 32) & 0x1FFF),
		WriteBackSupported:  (basic>>50)&0xF == memTypeWriteBack,
		IoExitInfoAvailable: (basic>>54)&1 == 1,
		HasTrueControls:     (basic>>55)&1 == 1,
		Ept: EptCapabilities{
			PageWalk4:           (eptVpid>>6)&1 == 1,
			WriteBack:           (eptVpid>>14)&1 == 1,
			Pde2MbPage:          (eptVpid>>16)&1 == 1,
			Pdpe1GbPage:         (eptVpid>>17)&1 == 1,
			AccessedDirty:       (eptVpid>>21)&1 == 1,
			InveptSupported:     (eptVpid>>20)&1 == 1,
			InveptSingleContext: (eptVpid>>25)&1 == 1,
			InveptAllContext:    (eptVpid>>26)&1 == 1,
		},
		Misc: MiscCapabilities{
			WaitForSipi:  (misc>>8)&1 == 1,
			MsrListLimit: ((uint32(misc>>25) & 0x7) + 1) * 512,
		},
	}

	if view.RegionSize > pageSize {
		return CapabilityView{}, newErr(KindNotSupported, op, "VMCS region size exceeds one page")
	}
	if !view.WriteBackSupported {
		return CapabilityView{}, newErr(KindNotSupported, op, "write-back memory type not supported for VMX structures")
	}
	if !view.IoExitInfoAvailable {
		return CapabilityView{}, newErr(KindNotSupported, op, "IO exit qualification info not available")
	}
	if !view.HasTrueControls {
		return CapabilityView{}, newErr(KindNotSupported, op, "true controls MSRs not available")
	}
	if !view.Ept.PageWalk4 {
		return CapabilityView{}, newErr(KindNotSupported, op, "EPT does not support a 4-level page walk")
	}
	if !view.Ept.WriteBack {
		return CapabilityView{}, newErr(KindNotSupported, op, "EPT does not support write-back memory type")
	}
	if !view.Ept.AccessedDirty {
		return CapabilityView{}, newErr(KindNotSupported, op, "EPT does not support accessed/dirty flags")
	}
	if !view.Ept.InveptSupported || !view.Ept.InveptSingleContext || !view.Ept.InveptAllContext {
		return CapabilityView{}, newErr(KindNotSupported, op, "INVEPT instruction and its single- and all-context variants are all required")
	}
	if !view.Misc.WaitForSipi {
		return CapabilityView{}, newErr(KindNotSupported, op, "wait-for-SIPI activity state not supported")
	}

	view.TruePinbasedCtls = src.ReadMSR(msrIA32VmxTruePinbasedCtls)
	view.TrueProcbasedCtls = src.ReadMSR(msrIA32VmxTrueProcbasedCtls)
	view.TrueProcbasedCtls2 = src.ReadMSR(msrIA32VmxProcbasedCtls2)
	view.TrueExitCtls = src.ReadMSR(msrIA32VmxTrueExitCtls)
	view.TrueEntryCtls = src.ReadMSR(msrIA32VmxTrueEntryCtls)

	return view, nil
}
