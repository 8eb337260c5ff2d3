//go:build amd64

package vtx

import (
	"errors"
	"testing"
)

// fakeMsrSource is a map-backed msrSource for exercising ProbeCapabilities
// without real VMX hardware.
type fakeMsrSource map[uint32]uint64

func (f fakeMsrSource) ReadMSR(msr uint32) uint64 { return f[msr] }

// fullySupportedMsrs builds an IA32_VMX_BASIC / IA32_VMX_MISC /
// IA32_VMX_EPT_VPID_CAP combination that satisfies every gate in
// ProbeCapabilities, so individual tests can flip one bit at a time.
func fullySupportedMsrs() fakeMsrSource {
	basic := uint64(0x1234) // revision id
	basic |= uint64(1024) << 32
	basic |= 6 << 50 // memory type: write-back (0b0110)
	basic |= 1 << 54 // io exit info available
	basic |= 1 << 55 // true controls

	eptVpid := uint64(0)
	eptVpid |= 1 << 6  // page walk 4
	eptVpid |= 1 << 14 // write back
	eptVpid |= 1 << 16 // 2mb pages
	eptVpid |= 1 << 17 // 1gb pages
	eptVpid |= 1 << 21 // accessed/dirty
	eptVpid |= 1 << 20 // invept supported
	eptVpid |= 1 << 25 // invept single
	eptVpid |= 1 << 26 // invept all

	misc := uint64(1 << 8) // wait for sipi
	misc |= 2 << 25        // msr list limit factor: (2+1)*512 = 1536

	return fakeMsrSource{
		msrIA32VmxBasic:             basic,
		msrIA32VmxMisc:              misc,
		msrIA32VmxEptVpidCap:        eptVpid,
		msrIA32VmxTruePinbasedCtls:  0x1,
		msrIA32VmxTrueProcbasedCtls: 0x2,
		msrIA32VmxProcbasedCtls2:    0x3,
		msrIA32VmxTrueExitCtls:      0x4,
		msrIA32VmxTrueEntryCtls:     0x5,
	}
}

func withoutVMXCheck(t *testing.T) {
	t.Helper()
	if !cpuSupportsVMX() {
		t.Skip("host CPU does not report VMX support; skipping capability-gating test")
	}
}

func TestProbeCapabilitiesHappyPath(t *testing.T) {
	withoutVMXCheck(t)

	view, err := ProbeCapabilities(fullySupportedMsrs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.RevisionID != 0x1234 {
		t.Errorf("RevisionID = 0x%x, want 0x1234", view.RevisionID)
	}
	if view.RegionSize != 1024 {
		t.Errorf("RegionSize = %d, want 1024", view.RegionSize)
	}
	if !view.Ept.PageWalk4 || !view.Ept.WriteBack || !view.Ept.AccessedDirty {
		t.Error("expected EPT capabilities to be reported as supported")
	}
	if !view.Misc.WaitForSipi {
		t.Error("expected WaitForSipi to be reported as supported")
	}
	if view.Misc.MsrListLimit != 1536 {
		t.Errorf("MsrListLimit = %d, want 1536", view.Misc.MsrListLimit)
	}
	if !view.Ept.InveptSupported {
		t.Error("expected InveptSupported to be reported as supported")
	}
	if view.TruePinbasedCtls != 0x1 || view.TrueEntryCtls != 0x5 {
		t.Error("true controls MSRs not propagated into the view")
	}
}

func TestProbeCapabilitiesGating(t *testing.T) {
	withoutVMXCheck(t)

	clearBit := func(msrs fakeMsrSource, msr uint32, bit uint) fakeMsrSource {
		out := fakeMsrSource{}
		for k, v := range msrs {
			out[k] = v
		}
		out[msr] &^= 1 << bit
		return out
	}

	cases := []struct {
		name string
		msrs fakeMsrSource
	}{
		{"write-back unsupported", clearBit(fullySupportedMsrs(), msrIA32VmxBasic, 51)},
		{"io exit info unavailable", clearBit(fullySupportedMsrs(), msrIA32VmxBasic, 54)},
		{"true controls unavailable", clearBit(fullySupportedMsrs(), msrIA32VmxBasic, 55)},
		{"ept page walk 4 unsupported", clearBit(fullySupportedMsrs(), msrIA32VmxEptVpidCap, 6)},
		{"ept write-back unsupported", clearBit(fullySupportedMsrs(), msrIA32VmxEptVpidCap, 14)},
		{"ept accessed/dirty unsupported", clearBit(fullySupportedMsrs(), msrIA32VmxEptVpidCap, 21)},
		{"invept instruction unsupported", clearBit(fullySupportedMsrs(), msrIA32VmxEptVpidCap, 20)},
		{"invept single-context unsupported", clearBit(fullySupportedMsrs(), msrIA32VmxEptVpidCap, 25)},
		{"invept all-context unsupported", clearBit(fullySupportedMsrs(), msrIA32VmxEptVpidCap, 26)},
		{"wait-for-sipi unsupported", clearBit(fullySupportedMsrs(), msrIA32VmxMisc, 8)},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ProbeCapabilities(tt.msrs)
			if !errors.Is(err, NotSupported) {
				t.Errorf("expected not_supported, got %v", err)
			}
		})
	}
}

func TestProbeCapabilitiesRegionTooLarge(t *testing.T) {
	withoutVMXCheck(t)

	msrs := fullySupportedMsrs()
	basic := msrs[msrIA32VmxBasic]
	basic &^= uint64(0x1FFF) << 32
	basic |= uint64(4097) << 32
	msrs[msrIA32VmxBasic] = basic

	_, err := ProbeCapabilities(msrs)
	if !errors.Is(err, NotSupported) {
		t.Errorf("expected not_supported for oversized VMCS region, got %v", err)
	}
}
