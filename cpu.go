//go:build amd64

package vtx

// cpuid is implemented in asm_amd64.s. It executes the CPUID instruction
// for the given leaf/subleaf and returns eax, ebx, ecx, edx, following the
// no-Go-body declaration idiom used for privileged instructions throughout
// this package (and modeled on how the rest of the corpus declares raw
// CPUID/HostID trampolines).
func cpuid(leaf, subleaf uint32) (eax, ebx, ecx, edx uint32)

// x86FeatureVMXBit is CPUID.1:ECX bit 5, set when the processor supports
// VMX (Intel VT-x).
const x86FeatureVMXBit = 1 << 5

// cpuSupportsVMX reports whether CPUID.1:ECX.VMX is set. This is the first
// gate arch_hypervisor_create applies in the original implementation,
// before any capability MSR is even read.
func cpuSupportsVMX() bool {
	_, _, ecx, _ := cpuid(1, 0)
	return ecx&x86FeatureVMXBit != 0
}

// vendorID reads CPUID leaf 0 and returns the maximum basic leaf together
// with the three vendor-id dwords as ebx, ecx, edx, each exactly as the
// processor returned it in that register (the ASCII vendor string reads
// in ebx, edx, ecx order).
func vendorID() (maxLeaf, ebx, ecx, edx uint32) {
	eax, ebx, ecx, edx := cpuid(0, 0)
	return eax, ebx, ecx, edx
}
