//go:build amd64

package vtx

// fakeHostCpuState is a HostCpuState test double.
type fakeHostCpuState struct {
	selector uint16
	base     uint64
}

func (f fakeHostCpuState) TssSelector() uint16 { return f.selector }
func (f fakeHostCpuState) TssBase() uint64     { return f.base }
