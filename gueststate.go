package vtx

// GuestState is the ordered general-purpose register save/restore area
// touched only by the low-level entry/exit trampoline (asm_amd64.s) and by
// exit handlers before re-entry. RSP and RIP are not here: the processor
// saves and restores them itself via the VMCS GUEST_RSP/GUEST_RIP fields.
type GuestState struct {
	RAX, RCX, RDX, RBX uint64
	RBP, RSI, RDI      uint64
	R8, R9, R10, R11   uint64
	R12, R13, R14, R15 uint64
}

// VmxState is the scratch area whose host-virtual address is installed
// into the VMCS HOST_RSP field during Setup. Its layout is depended on
// byte-for-byte by asm_amd64.s (the GS_* offsets there must track the
// field order here); Guest must remain the first field and HostSP the
// last for that reason.
type VmxState struct {
	Guest GuestState
	// HostSP is scratch storage for the Go stack pointer vmxEnter was
	// called with. HOST_RSP always points at this struct, so a VM-exit
	// resets RSP here; HostSP is how the trampoline finds its way back to
	// the real goroutine stack afterward.
	HostSP uintptr
}
