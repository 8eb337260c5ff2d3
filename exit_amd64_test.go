//go:build amd64

package vtx

import (
	"errors"
	"testing"
)

func TestDispatchExitCPUIDLeafZero(t *testing.T) {
	rec := newVmcsRecorder()
	rec.values[vmcsGuestRip] = 0x1000

	guest := &GuestState{RAX: 0}
	info := ExitInfo{Reason: ReasonCPUID, InstructionLength: 2, GuestRip: 0x1000}

	if err := dispatchExit(info, guest, rec, &fakeByteSink{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if guest.RAX != 0 {
		t.Errorf("guest.RAX = %d, want 0 (max basic leaf restricted to 0)", guest.RAX)
	}
	if rec.values[vmcsGuestRip] != 0x1002 {
		t.Errorf("guest RIP = 0x%x, want 0x1002", rec.values[vmcsGuestRip])
	}
}

func TestDispatchExitCPUIDNonZeroLeaf(t *testing.T) {
	rec := newVmcsRecorder()
	guest := &GuestState{RAX: 1}
	info := ExitInfo{Reason: ReasonCPUID, InstructionLength: 2}

	err := dispatchExit(info, guest, rec, &fakeByteSink{})
	if !errors.Is(err, NotSupported) {
		t.Errorf("CPUID leaf 1 = %v, want not_supported", err)
	}
}

func TestDispatchExitIOToUART(t *testing.T) {
	rec := newVmcsRecorder()
	sink := &fakeByteSink{}
	guest := &GuestState{RAX: 'H'}
	info := ExitInfo{Reason: ReasonIO, InstructionLength: 1, Qualification: 0x3f80000}

	if err := dispatchExit(info, guest, rec, sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.writes) != 1 || len(sink.writes[0]) != 1 || sink.writes[0][0] != 'H' {
		t.Errorf("sink.writes = %v, want one write of {'H'}", sink.writes)
	}
}

func TestDispatchExitIOToOtherPort(t *testing.T) {
	rec := newVmcsRecorder()
	sink := &fakeByteSink{}
	guest := &GuestState{RAX: 0x42}
	info := ExitInfo{Reason: ReasonIO, InstructionLength: 1, Qualification: 0x3f9000}

	if err := dispatchExit(info, guest, rec, sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.writes) != 0 {
		t.Errorf("sink.writes = %v, want no writes for a non-UART port", sink.writes)
	}
}

func TestDispatchExitWrmsrNotSupported(t *testing.T) {
	rec := newVmcsRecorder()
	guest := &GuestState{}
	info := ExitInfo{Reason: ReasonWRMSR}
	if err := dispatchExit(info, guest, rec, &fakeByteSink{}); !errors.Is(err, NotSupported) {
		t.Errorf("WRMSR exit = %v, want not_supported", err)
	}
}

func TestDispatchExitExternalInterrupt(t *testing.T) {
	t.Skip("exercises STI/CLI, which fault outside ring 0; run under the kernel-mode integration harness")
}
