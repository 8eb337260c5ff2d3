//go:build amd64

package vtx

// vmcsRecorder is an in-memory VmcsAccessor test double: every Write is
// stored in a map and every Read returns whatever was last written (zero
// if never written). It never touches real VMX hardware, so code that only
// reads and writes VMCS fields through a VmcsAccessor, such as the Exit
// Dispatcher, can be exercised in ordinary unit tests. Setup and Enter
// also execute RDMSR, MOV-from-CR and other privileged instructions
// directly, so they are not exercised through it.
type vmcsRecorder struct {
	values map[vmcsField]uint64
	writes []vmcsField
}

func newVmcsRecorder() *vmcsRecorder {
	return &vmcsRecorder{values: make(map[vmcsField]uint64)}
}

func (r *vmcsRecorder) Read(field vmcsField) (uint64, error) {
	return r.values[field], nil
}

func (r *vmcsRecorder) Write(field vmcsField, value uint64) error {
	if _, ok := r.values[field]; !ok {
		r.writes = append(r.writes, field)
	}
	r.values[field] = value
	return nil
}
