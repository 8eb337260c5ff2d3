//go:build amd64

package vtx

// vmxStatus mirrors the two-bit condition-code result VMX instructions
// leave in RFLAGS: CF set means "VMfailInvalid" (no current VMCS), ZF set
// means "VMfailValid" (current VMCS holds an error code), neither set
// means success.
type vmxStatus uint8

const (
	vmxOK vmxStatus = iota
	vmxFailInvalid
	vmxFailValid
)

func (s vmxStatus) ok() bool { return s == vmxOK }

// vmxon, vmxoff, vmclear, vmptrld, vmread, vmwrite are implemented in
// asm_amd64.s as raw encodings of the corresponding privileged
// instructions; none of them has a Go-assembler mnemonic, so they are
// hand-encoded byte sequences, following the pattern the rest of the
// corpus uses for instructions unsupported by the assembler (gvisor's
// ring0 does the same for xsave/xrstor family instructions).
func vmxon(regionPhysAddr uint64) vmxStatus
func vmxoff() vmxStatus
func vmclear(vmcsPhysAddr uint64) vmxStatus
func vmptrld(vmcsPhysAddr uint64) vmxStatus
func vmreadRaw(field uint64) (value uint64, status vmxStatus)
func vmwriteRaw(field, value uint64) vmxStatus

// vmxEnter is the entry/exit trampoline described in the Design Notes: it
// receives a pointer to the VmxState scratch area (whose host-virtual
// address was programmed into HOST_RSP during Setup), stores the host
// stack pointer into it and the host's callee-saved registers on its own
// stack frame, loads the guest's saved registers, and executes VMLAUNCH
// or VMRESUME depending on resume. On architectural failure (CF or ZF
// set) it returns immediately with a non-ok vmxStatus and the guest
// registers are left untouched. On a later VM-exit, control returns to
// this same function's exit half (via HOST_RIP), which saves guest
// registers back into state, restores host registers, and returns vmxOK.
func vmxEnter(state *VmxState, resume bool) vmxStatus
