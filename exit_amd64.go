//go:build amd64

package vtx

// enableInterrupts and disableInterrupts wrap STI/CLI; implemented in
// asm_amd64.s. The Exit Dispatcher uses them to let the host IDT take an
// external-interrupt exit before re-disabling and resuming the guest
// (spec.md §4.6, §5).
func enableInterrupts()
func disableInterrupts()

// readExitInfo reads the architectural exit-information fields out of the
// current VMCS via vmcs.
func readExitInfo(vmcs VmcsAccessor) (ExitInfo, error) {
	reason, err := vmcs.Read(vmcsExitReasonField)
	if err != nil {
		return ExitInfo{}, err
	}
	qual, err := vmcs.Read(vmcsExitQualification)
	if err != nil {
		return ExitInfo{}, err
	}
	intrInfo, err := vmcs.Read(vmcsExitInterruptionInfo)
	if err != nil {
		return ExitInfo{}, err
	}
	intrErr, err := vmcs.Read(vmcsExitInterruptionErrCode)
	if err != nil {
		return ExitInfo{}, err
	}
	insnLen, err := vmcs.Read(vmcsExitInstructionLength)
	if err != nil {
		return ExitInfo{}, err
	}
	insnInfo, err := vmcs.Read(vmcsExitInstructionInfo)
	if err != nil {
		return ExitInfo{}, err
	}
	gpa, err := vmcs.Read(vmcsGuestPhysicalAddress)
	if err != nil {
		return ExitInfo{}, err
	}
	gla, err := vmcs.Read(vmcsGuestLinearAddress)
	if err != nil {
		return ExitInfo{}, err
	}
	interruptibility, err := vmcs.Read(vmcsGuestInterruptibility)
	if err != nil {
		return ExitInfo{}, err
	}
	rip, err := vmcs.Read(vmcsGuestRip)
	if err != nil {
		return ExitInfo{}, err
	}

	return ExitInfo{
		Reason:               ExitReason(reason & 0xffff),
		Qualification:        qual,
		InterruptionInfo:     uint32(intrInfo),
		InterruptionErrCode:  uint32(intrErr),
		InstructionLength:    uint32(insnLen),
		InstructionInfo:      uint32(insnInfo),
		GuestPhysicalAddress: gpa,
		GuestLinearAddress:   gla,
		Interruptibility:     uint32(interruptibility),
		GuestRip:             rip,
	}, nil
}

// dispatchExit implements the Exit Dispatcher (spec.md §4.6). guest is the
// live guest register save area (mutated in place for CPUID/IO emulation);
// vmcs is the loaded VMCS for the exiting guest; sink receives UART bytes.
func dispatchExit(info ExitInfo, guest *GuestState, vmcs VmcsAccessor, sink ByteSink) error {
	const op = "enter"
	recordExit(info.Reason)

	switch info.Reason {
	case ReasonExternalInterrupt:
		enableInterrupts()
		disableInterrupts()
		return nil

	case ReasonCPUID:
		if err := advanceRip(vmcs, info); err != nil {
			return err
		}
		if guest.RAX != 0 {
			return newErr(KindNotSupported, op, "CPUID leaf other than 0 is not emulated")
		}
		_, ebx, ecx, edx := vendorID()
		guest.RAX = 0
		guest.RBX = uint64(ebx)
		guest.RCX = uint64(ecx)
		guest.RDX = uint64(edx)
		return nil

	case ReasonIO:
		if err := advanceRip(vmcs, info); err != nil {
			return err
		}
		io := decodeIoInfo(info.Qualification)
		if io.Input || io.String || io.Repeat || io.Port != uartPort {
			return nil
		}
		buf := make([]byte, io.Bytes)
		for i := 0; i < io.Bytes; i++ {
			buf[i] = byte(guest.RAX >> (8 * i))
		}
		_, _ = sink.Write(buf)
		return nil

	case ReasonWRMSR:
		return newErr(KindNotSupported, op, "WRMSR exit is not emulated")

	default:
		return newErr(KindNotSupported, op, "unhandled exit reason")
	}
}

func advanceRip(vmcs VmcsAccessor, info ExitInfo) error {
	return vmcs.Write(vmcsGuestRip, info.GuestRip+uint64(info.InstructionLength))
}
