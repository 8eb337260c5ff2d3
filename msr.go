//go:build amd64

package vtx

// Well-known MSR indices this package reads or writes directly. Named
// exactly as the architecture manual and the original C++ implementation
// name them, so a reader cross-checking against hypervisor.cpp does not
// have to translate.
const (
	msrIA32FeatureControl = 0x3a
	msrIA32VmxBasic       = 0x480
	msrIA32VmxPinbasedCtls     = 0x481
	msrIA32VmxProcbasedCtls    = 0x482
	msrIA32VmxExitCtls         = 0x483
	msrIA32VmxEntryCtls        = 0x484
	msrIA32VmxMisc             = 0x485
	msrIA32VmxCR0Fixed0        = 0x486
	msrIA32VmxCR0Fixed1        = 0x487
	msrIA32VmxCR4Fixed0        = 0x488
	msrIA32VmxCR4Fixed1        = 0x489
	msrIA32VmxProcbasedCtls2   = 0x48b
	msrIA32VmxEptVpidCap       = 0x48c
	msrIA32VmxTruePinbasedCtls  = 0x48d
	msrIA32VmxTrueProcbasedCtls = 0x48e
	msrIA32VmxTrueExitCtls      = 0x48f
	msrIA32VmxTrueEntryCtls     = 0x490

	msrIA32Pat = 0x277
	msrIA32Efer = 0xc0000080

	msrIA32Star           = 0xc0000081
	msrIA32Lstar          = 0xc0000082
	msrIA32Fmask          = 0xc0000084
	msrIA32FSBase         = 0xc0000100
	msrIA32GSBase         = 0xc0000101
	msrIA32KernelGSBase   = 0xc0000102

	msrIA32SysenterCS  = 0x174
	msrIA32SysenterESP = 0x175
	msrIA32SysenterEIP = 0x176
)

// rdmsr and wrmsr are implemented in asm_amd64.s.
func rdmsr(msr uint32) uint64
func wrmsr(msr uint32, value uint64)

// readCR0/writeCR0/readCR4/writeCR4/readCR3 wrap the privileged
// MOV-to/from-CR instructions; implemented in asm_amd64.s.
func readCR0() uint64
func writeCR0(v uint64)
func readCR4() uint64
func writeCR4(v uint64)
func readCR3() uint64
