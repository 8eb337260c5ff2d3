//go:build amd64

package vtx

// hardwareMSR backs msrSource with the real RDMSR instruction.
type hardwareMSR struct{}

func (hardwareMSR) ReadMSR(msr uint32) uint64 {
	return rdmsr(msr)
}

// DefaultCapabilities probes the local CPU's VMX capabilities using RDMSR.
func DefaultCapabilities() (CapabilityView, error) {
	return ProbeCapabilities(hardwareMSR{})
}
