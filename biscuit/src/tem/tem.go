// Package tem implements the trap-and-emulate CSR monitor: decode a
// trapped SYSTEM instruction, mutate the shadow CSR file, and redirect the
// guest program counter. It is invoked synchronously from the host trap
// dispatcher's handle_illegal_instruction path, exactly once per fault,
// and never suspends.
package tem

import (
	"fmt"
	"io"

	"caller"
	"csr"
	"defs"
	"obslog"
	"trapframe"
)

// Host is the seam this package draws against the surrounding kernel, the
// same kind of interface the teacher draws between its address-space
// state and its physical-page allocator: a monitor can be driven and
// tested without any real trap-dispatch machinery underneath it.
type Host interface {
	// TrapFrame returns the current guest trap frame (general registers).
	TrapFrame() *trapframe.Frame
	// SEPC returns the guest program counter at trap time.
	SEPC() uint64
	// CopyIn copies len(dst) bytes from the guest address space at vaddr.
	CopyIn(dst []byte, vaddr uint64) error
	// Kill terminates the guest process that caused the fault.
	Kill(reason string)
}

const sysOpcode = 0x73

// decoded holds the bitfields of a 32-bit SYSTEM-class instruction word.
type decoded struct {
	op     uint32
	rd     uint32
	funct3 uint32
	rs1    uint32
	csr    uint16
}

// decode splits a little-endian 32-bit instruction word into its SYSTEM
// encoding fields.
func decode(word uint32) decoded {
	return decoded{
		op:     word & 0x7f,
		rd:     (word >> 7) & 0x1f,
		funct3: (word >> 12) & 0x7,
		rs1:    (word >> 15) & 0x1f,
		csr:    uint16(word >> 20),
	}
}

// ErrDecoderInconsistency is the host-fatal error raised when the decoder
// reaches a state the classification table does not cover: an unknown CSR
// number behind a CSRW/CSRR, per spec §7 kind 1. Callers that cannot
// recover from this should panic; Monitor.HandleIllegalInstruction
// returns it rather than panicking itself so tests can observe it.
type ErrDecoderInconsistency struct {
	Word uint32
	Note string
}

func (e *ErrDecoderInconsistency) Error() string {
	return fmt.Sprintf("tem: decoder inconsistency on word %#08x: %s", e.Word, e.Note)
}

// distinctFault dedupes decoder-inconsistency call stacks: the first time
// a given ancestor chain hits the fault, its stack is logged in full;
// repeats of the same chain are logged with the one-line note only.
var distinctFault = caller.Distinct_caller_t{Enabled: true}

// decoderFault builds the host-fatal error for an unknown CSR number and
// logs it through obslog.TEM, dumping the full call stack the first time
// this particular ancestor chain produces the fault.
func decoderFault(csrNumber uint16, note string) error {
	entry := obslog.TEM.WithField("csr", fmt.Sprintf("%#x", csrNumber))
	if firstSeen, stack := distinctFault.Distinct(); firstSeen {
		entry.WithField("stack", stack).Error("decoder inconsistency")
	} else {
		entry.Error("decoder inconsistency: " + note)
	}
	return &ErrDecoderInconsistency{Word: uint32(csrNumber), Note: note}
}

// Monitor is the trap-and-emulate CSR monitor. It holds no state of its
// own beyond the shadow CSR file it mutates and the optional Trace sink.
// The zero value has a nil File and is not usable; New(&csr.Shadow) binds
// a Monitor to the package-level singleton.
type Monitor struct {
	File *csr.File

	// Trace, if set, receives one line per decoded instruction.
	// cmd/vmshell plugs a circbuf.Circbuf in here since it implements
	// io.Writer; left nil the monitor does no extra work.
	Trace io.Writer
}

// New returns a Monitor bound to shadow. Passing csr.Shadow gives the
// package-level singleton; tests construct their own csr.File instead.
func New(shadow *csr.File) *Monitor {
	return &Monitor{File: shadow}
}

// Init populates the shadow CSR file, matching the monitor's init() entry
// point called once at OS startup.
func (m *Monitor) Init() {
	m.File.Init()
}

// reinit kills the current guest and resets the shadow file to its
// initial contents, the uniform recovery action for every guest-visible
// fault this monitor detects.
func (m *Monitor) reinit(host Host, reason string) {
	obslog.TEM.WithField("mode", m.File.Mode).Warn(reason)
	host.Kill(reason)
	m.File.Init()
}

// HandleIllegalInstruction is handle_illegal_instruction(): read the
// faulting word at sepc, classify it, and dispatch to the matching
// emulation routine. It returns a non-nil error only for the host-fatal
// conditions of spec §7 kind 1 (invalid opcode reaching the decoder's
// default arm is instead a guest kill, per the classification table).
func (m *Monitor) HandleIllegalInstruction(host Host) error {
	sepc := host.SEPC()
	var buf [4]byte
	if err := host.CopyIn(buf[:], sepc); err != nil {
		return fmt.Errorf("tem: copyin at sepc %#x: %w", sepc, err)
	}
	word := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24

	d := decode(word)
	if m.Trace != nil {
		fmt.Fprintf(m.Trace, "sepc=%#x word=%#08x op=%#x rd=%d funct3=%d rs1=%d csr=%#x mode=%s\n",
			sepc, word, d.op, d.rd, d.funct3, d.rs1, d.csr, m.File.Mode)
	}
	if d.op != sysOpcode {
		m.reinit(host, fmt.Sprintf("non-SYSTEM opcode %#x", d.op))
		return nil
	}

	switch d.funct3 {
	case 0:
		if d.rd != 0 || d.rs1 != 0 {
			m.reinit(host, "malformed ECALL/xRET encoding")
			return nil
		}
		switch d.csr {
		case defs.CSR_ECALL:
			return m.ecall(host)
		case defs.CSR_SRET:
			return m.sret(host)
		case defs.CSR_MRET:
			return m.mret(host)
		default:
			m.reinit(host, fmt.Sprintf("unrecognized system instruction csr=%#x", d.csr))
			return nil
		}
	case 1:
		return m.csrw(host, d)
	case 2:
		return m.csrr(host, d)
	default:
		m.reinit(host, fmt.Sprintf("unrecognized funct3 %#x", d.funct3))
		return nil
	}
}

// csrr emulates CSRRS used as a plain read (write mask zero): rs1 must be
// x0, the slot value is written into guest register rd.
func (m *Monitor) csrr(host Host, d decoded) error {
	if d.rs1 != 0 {
		m.reinit(host, "CSRR with rs1 != x0")
		return nil
	}
	slot, err := m.File.Lookup(d.csr)
	if err != nil {
		return decoderFault(d.csr, err.Error())
	}
	if !csr.PermittedRead(m.File.Mode, slot) {
		m.reinit(host, fmt.Sprintf("mode %s below minimum %s for csr %#x", m.File.Mode, slot.MinimumMode, d.csr))
		return nil
	}
	if d.rd != 0 {
		*host.TrapFrame().GPR(d.rd) = slot.Value
	}
	host.TrapFrame().Epc += 4
	return nil
}

// csrw emulates CSRRW: rd must be x0, guest register rs1 is stored into
// the slot value.
func (m *Monitor) csrw(host Host, d decoded) error {
	if d.rd != 0 {
		m.reinit(host, "CSRW with rd != x0")
		return nil
	}
	slot, err := m.File.Lookup(d.csr)
	if err != nil {
		return decoderFault(d.csr, err.Error())
	}
	if !csr.PermittedWrite(m.File.Mode, slot) {
		m.reinit(host, fmt.Sprintf("mode %s below minimum %s for csr %#x", m.File.Mode, slot.MinimumMode, d.csr))
		return nil
	}
	var value uint64
	if d.rs1 != 0 {
		value = *host.TrapFrame().GPR(d.rs1)
	}
	if d.csr == defs.CSR_MVENDORID && value == 0 {
		m.reinit(host, "write of 0 to mvendorid")
		return nil
	}
	slot.Value = value
	host.TrapFrame().Epc += 4
	return nil
}

// ecall raises guest privilege by one level, legal only from U or S mode.
func (m *Monitor) ecall(host Host) error {
	frame := host.TrapFrame()
	switch m.File.Mode {
	case defs.ModeU:
		m.File.Scause.Value = 8
		m.File.Sepc.Value = frame.Epc
		m.File.Mode = defs.ModeS
		frame.Epc = m.File.Stvec.Value
	case defs.ModeS:
		m.File.Scause.Value = 9
		m.File.Sepc.Value = frame.Epc
		m.File.Mode = defs.ModeM
		frame.Epc = m.File.Mtvec.Value
	case defs.ModeM:
		// no higher mode exists; no-op return.
	}
	return nil
}

const sstatusSPP = 1 << 8

// sret lowers guest privilege to the value encoded in shadow sstatus.SPP.
func (m *Monitor) sret(host Host) error {
	if m.File.Mode < defs.ModeS {
		m.reinit(host, "SRET below mode S")
		return nil
	}
	frame := host.TrapFrame()
	if m.File.Sstatus.Value&sstatusSPP != 0 {
		m.File.Mode = defs.ModeS
	} else {
		m.File.Mode = defs.ModeU
	}
	frame.Epc = m.File.Sepc.Value
	return nil
}

const (
	mstatusMPPShift = 11
	mstatusMPPMask  = 0x3 << mstatusMPPShift
	mstatusMIE      = 1 << 3
)

// mret restores guest privilege to the value encoded in shadow
// mstatus.MPP, legal only from mode M.
func (m *Monitor) mret(host Host) error {
	if m.File.Mode != defs.ModeM {
		m.reinit(host, "MRET outside mode M")
		return nil
	}
	frame := host.TrapFrame()
	mpp := (m.File.Mstatus.Value & mstatusMPPMask) >> mstatusMPPShift
	switch mpp {
	case 0:
		m.File.Mode = defs.ModeU
	case 1:
		m.File.Mode = defs.ModeS
	case 3:
		m.File.Mode = defs.ModeM
	default:
		m.reinit(host, fmt.Sprintf("invalid MPP encoding %d", mpp))
		return nil
	}
	mie := m.File.Mstatus.Value & mstatusMIE
	m.File.Mstatus.Value &^= mstatusMPPMask
	m.File.Mstatus.Value |= mie
	frame.Epc = m.File.Mepc.Value
	return nil
}
