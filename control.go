package vtx

// negotiateControl implements the architectural "true controls" algorithm
// (spec.md §4.2). trueCtls packs allowed-0 in the low 32 bits and
// allowed-1 in the high 32 bits (the layout IA32_VMX_TRUE_*_CTLS and the
// legacy IA32_VMX_*_CTLS MSRs share). legacy is the pre-"true" MSR's
// value, consulted only for bits the caller left unconstrained; required
// and cleared are the caller's required-set and required-clear masks.
func negotiateControl(op string, trueCtls uint64, legacy uint32, required, cleared uint32) (uint32, error) {
	allowed0 := uint32(trueCtls)
	allowed1 := uint32(trueCtls >> 32)

	if allowed1&required != required {
		return 0, newErr(KindNotSupported, op, "required control bits are not allowed to be set")
	}
	if ^allowed0&cleared != cleared {
		return 0, newErr(KindNotSupported, op, "required-clear control bits are not allowed to be cleared")
	}
	if required&cleared != 0 {
		return 0, newErr(KindInvalidArgs, op, "required-set and required-clear masks overlap")
	}

	flexible := allowed0 ^ allowed1
	unknown := flexible &^ (required | cleared)
	defaults := unknown & legacy

	return allowed0 | defaults | required, nil
}
