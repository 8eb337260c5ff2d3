//go:build amd64

package vtx

// Supported reports whether the current CPU advertises VMX support
// (CPUID.1:ECX.VMX) and the BIOS/firmware has not locked VMXON out via
// IA32_FEATURE_CONTROL. It is a cheap pre-flight check callers can run
// before attempting CreateHost.
func Supported() (bool, error) {
	if !cpuSupportsVMX() {
		return false, nil
	}
	fc := rdmsr(msrIA32FeatureControl)
	if fc&featureControlLock != 0 && fc&featureControlVmxOutsideSmx == 0 {
		return false, nil
	}
	return true, nil
}
