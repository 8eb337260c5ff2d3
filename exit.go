package vtx

// ExitReason classifies a VM-exit. Values are the architectural exit
// reason field's low 16 bits for the handful of reasons this design
// services; everything else collapses to reasonOther for metrics
// purposes but is still routed through the same not_supported path.
type ExitReason uint32

const (
	ReasonExternalInterrupt ExitReason = 1
	ReasonCPUID             ExitReason = 10
	ReasonWRMSR             ExitReason = 32
	ReasonIO                ExitReason = 30
	reasonOther             ExitReason = 63
	reasonCount             ExitReason = 64
)

func (r ExitReason) String() string {
	switch r {
	case ReasonExternalInterrupt:
		return "external_interrupt"
	case ReasonCPUID:
		return "cpuid"
	case ReasonWRMSR:
		return "wrmsr"
	case ReasonIO:
		return "io_instruction"
	default:
		return "other"
	}
}

// uartPort is the only IO port this design forwards to the byte sink.
const uartPort = 0x3f8

// ExitInfo is the snapshot read immediately after a VM-exit (spec.md §3).
// Created at the top of the dispatcher, discarded at exit from it.
type ExitInfo struct {
	Reason               ExitReason
	Qualification        uint64
	InterruptionInfo     uint32
	InterruptionErrCode  uint32
	InstructionLength    uint32
	InstructionInfo      uint32
	GuestPhysicalAddress uint64
	GuestLinearAddress   uint64
	Interruptibility     uint32
	GuestRip             uint64
}

// IoInfo is the decoded form of an IO-exit qualification.
type IoInfo struct {
	Bytes  int
	Input  bool
	String bool
	Repeat bool
	Port   uint16
}

// decodeIoInfo decodes an IO-instruction exit qualification per the
// architecture manual's bit layout: bits[2:0] = size-1, bit3 = direction
// (1=in), bit4 = string instruction, bit5 = REP prefix, bits[31:16] = port.
func decodeIoInfo(qualification uint64) IoInfo {
	return IoInfo{
		Bytes:  int(qualification&0x7) + 1,
		Input:  qualification&(1<<3) != 0,
		String: qualification&(1<<4) != 0,
		Repeat: qualification&(1<<5) != 0,
		Port:   uint16(qualification >> 16),
	}
}

