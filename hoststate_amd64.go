//go:build amd64

package vtx

import "unsafe"

// vmxExitAddr, readCSSelector, readSSSelector, readTRSelector, sgdt,
// sidt, ltr, and lidt are implemented in asm_amd64.s.
func vmxExitAddr() uintptr
func readCSSelector() uint16
func readSSSelector() uint16
func readTRSelector() uint16
func sgdt() (base uint64, limit uint16)
func sidt() (base uint64, limit uint16)
func ltr(selector uint16)
func lidt(base uint64, limit uint16)

// HostCpuState is the external per-CPU host-environment collaborator
// (spec.md §6: "CPU/thread: ... read per-CPU TSS"). The current code/
// stack/data selectors, GDTR, and IDTR are read directly off hardware via
// the asm helpers above; only the per-CPU TSS — a structure this package
// does not own or allocate — is supplied by the host kernel through this
// interface.
type HostCpuState interface {
	// TssSelector returns the GDT selector of the per-CPU TSS for the
	// currently running CPU.
	TssSelector() uint16
	// TssBase returns the host-virtual base address of that same TSS.
	TssBase() uint64
}

// captureHostSegments snapshots the selectors and descriptor-table
// pointers Setup programs into the VMCS host-state area.
type hostSegments struct {
	cs, ss, tr uint16
	gdtrBase   uint64
	gdtrLimit  uint16
	idtrBase   uint64
	idtrLimit  uint16
}

func captureHostSegments() hostSegments {
	gdtrBase, gdtrLimit := sgdt()
	idtrBase, idtrLimit := sidt()
	return hostSegments{
		cs:        readCSSelector(),
		ss:        readSSSelector(),
		tr:        readTRSelector(),
		gdtrBase:  gdtrBase,
		gdtrLimit: gdtrLimit,
		idtrBase:  idtrBase,
		idtrLimit: idtrLimit,
	}
}

// hostDescriptorState is what restoreHostDescriptors needs to undo VM-exit's
// forced TR/IDTR limits: the GDT base (to reach the TSS descriptor's busy
// bit), the TSS selector, and the host's real IDTR.
type hostDescriptorState struct {
	gdtrBase    uint64
	tssSelector uint16
	idtrBase    uint64
	idtrLimit   uint16
}

// clearTssBusy clears the busy bit (bit 1 of the descriptor's type field,
// at byte offset 5) of the GDT entry selector refers to. LTR faults if
// asked to load a descriptor already marked busy, and VM-exit leaves the
// host TSS marked busy from the VM-entry that loaded it.
func clearTssBusy(gdtrBase uint64, selector uint16) {
	accessByte := (*byte)(unsafe.Pointer(uintptr(gdtrBase) + uintptr(selector&^0x7) + 5))
	*accessByte &^= 0x02
}

// restoreHostDescriptors undoes the TR and IDTR limits VM-exit always
// forces (TR limit 0x67, excluding the IO bitmap; IDTR limit 0xffff),
// reproducing hypervisor.cpp's vmx_exit. Must run before any host code
// that depends on the real IDT or on using the IO bitmap via the TSS —
// in particular before the Go-level Exit Dispatcher.
func restoreHostDescriptors(d hostDescriptorState) {
	clearTssBusy(d.gdtrBase, d.tssSelector)
	ltr(d.tssSelector)
	lidt(d.idtrBase, d.idtrLimit)
}
