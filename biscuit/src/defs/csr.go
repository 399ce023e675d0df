package defs

// PrivMode is one of the three RISC-V privilege levels the shadow CSR file
// tracks for a guest that never actually executes in U/S/M mode on the
// host hart.
type PrivMode int

const (
	ModeU PrivMode = iota /// user mode
	ModeS                 /// supervisor mode
	ModeM                 /// machine mode
)

/// String renders a PrivMode for logging.
func (m PrivMode) String() string {
	switch m {
	case ModeU:
		return "U"
	case ModeS:
		return "S"
	case ModeM:
		return "M"
	default:
		return "?"
	}
}

// CSR numbers from the RISC-V privileged spec, grouped the way
// csr_constants.h grouped them.
const (
	// User trap setup
	CSR_USTATUS = 0x000
	CSR_UIE     = 0x004
	CSR_UTVEC   = 0x005

	// User trap handling
	CSR_USCRATCH = 0x040
	CSR_UEPC     = 0x041
	CSR_UCAUSE   = 0x042
	CSR_UTVAL    = 0x043
	CSR_UIP      = 0x044

	// Supervisor trap setup
	CSR_SSTATUS    = 0x100
	CSR_SEDELEG    = 0x102
	CSR_SIDELEG    = 0x103
	CSR_SIE        = 0x104
	CSR_STVEC      = 0x105
	CSR_SCOUNTEREN = 0x106

	// Supervisor trap handling
	CSR_SSCRATCH = 0x140
	CSR_SEPC     = 0x141
	CSR_SCAUSE   = 0x142
	CSR_STVAL    = 0x143
	CSR_SIP      = 0x144

	// Supervisor page table register
	CSR_SATP = 0x180

	// Machine information registers
	CSR_MVENDORID = 0xF11
	CSR_MARCHID   = 0xF12
	CSR_MIMPID    = 0xF13
	CSR_MHARTID   = 0xF14

	// Machine trap setup
	CSR_MSTATUS    = 0x300
	CSR_MISA       = 0x301
	CSR_MEDELEG    = 0x302
	CSR_MIDELEG    = 0x303
	CSR_MIE        = 0x304
	CSR_MTVEC      = 0x305
	CSR_MCOUNTEREN = 0x306

	// Machine trap handling
	CSR_MSCRATCH = 0x340
	CSR_MEPC     = 0x341
	CSR_MCAUSE   = 0x342
	CSR_MTVAL    = 0x343
	CSR_MIP      = 0x344

	// Machine physical memory protection
	CSR_PMPCFG_BASE  = 0x3A0
	CSR_PMPADDR_BASE = 0x3B0

	// Pseudo-CSR numbers used only in the funct3==0 SYSTEM class, never
	// looked up in the shadow file.
	CSR_ECALL = 0x000
	CSR_SRET  = 0x102
	CSR_MRET  = 0x302
)

// TrustedVendorID identifies this virtual machine. mvendorid must carry
// this value at all times; "cse536" in hex.
const TrustedVendorID uint64 = 0x637365353336

// GuestState is the terminal outcome of a trapped instruction.
type GuestState int

const (
	GuestRunning GuestState = iota
	GuestKilled
)

// Algorithm selects a ULT scheduling policy.
type Algorithm int

const (
	RoundRobin Algorithm = iota
	Priority
	FCFS
)

/// String renders an Algorithm for logging and flag help text.
func (a Algorithm) String() string {
	switch a {
	case RoundRobin:
		return "roundrobin"
	case Priority:
		return "priority"
	case FCFS:
		return "fcfs"
	default:
		return "unknown"
	}
}
