package vtx

// crIsInvalid checks a candidate control-register value against the
// fixed0/fixed1 MSR pair for that register, per the architectural rule:
// every bit that fixed0 requires to be 1 must be 1, and every bit that
// fixed1 requires to be 0 must be 0. Equivalent to the original's
// cr_is_invalid(cr_value, fixed0, fixed1):
//
//	~(cr_value | ~fixed0) != 0  ||  ~(~cr_value | fixed1) != 0
func crIsInvalid(value, fixed0, fixed1 uint64) bool {
	mustBeOneViolated := ^(value | ^fixed0) != 0
	mustBeZeroViolated := ^(^value | fixed1) != 0
	return mustBeOneViolated || mustBeZeroViolated
}

// eptPointerFlags is the fixed low-order bits of the EPT pointer: bits 5:3
// = 3 (a 4-level page walk) and bit 6 (accessed/dirty flags enabled). The
// memory-type field in bits 2:0 is left 0, so write-back (6) is not
// selected. The contract (spec.md §8) pins this to exactly 0x58 for any
// page-aligned PML4 address; taken as the literal bit-exact value rather
// than re-derived from the individual field widths, since it is what
// callers test against.
const eptPointerFlags = 0x58

// eptPointer encodes a page-aligned PML4 physical address as an EPT
// pointer by OR-ing in eptPointerFlags. For any page-aligned P,
// eptPointer(P) == P | 0x58.
func eptPointer(pml4PhysAddr uint64) uint64 {
	return pml4PhysAddr | eptPointerFlags
}
