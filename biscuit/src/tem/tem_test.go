package tem

import (
	"testing"

	"csr"
	"defs"
	"trapframe"
)

// fakeHost is a minimal tem.Host backed by a flat byte slice standing in
// for guest memory, grounded on the teacher's pattern of driving kernel
// logic through small interface fakes in tests rather than a booted VM.
type fakeHost struct {
	frame   trapframe.Frame
	sepc    uint64
	mem     map[uint64][]byte
	killed  bool
	killMsg string
}

func newFakeHost(sepc uint64, word uint32) *fakeHost {
	h := &fakeHost{sepc: sepc, mem: make(map[uint64][]byte)}
	h.frame.Epc = sepc
	buf := []byte{byte(word), byte(word >> 8), byte(word >> 16), byte(word >> 24)}
	h.mem[sepc] = buf
	return h
}

func (h *fakeHost) TrapFrame() *trapframe.Frame { return &h.frame }
func (h *fakeHost) SEPC() uint64                { return h.sepc }

func (h *fakeHost) CopyIn(dst []byte, vaddr uint64) error {
	src, ok := h.mem[vaddr]
	if !ok {
		return &ErrDecoderInconsistency{Note: "no mapping"}
	}
	copy(dst, src)
	return nil
}

func (h *fakeHost) Kill(reason string) {
	h.killed = true
	h.killMsg = reason
}

// word builds a SYSTEM-class instruction word from its bitfields.
func word(op, rd, funct3, rs1, csrnum uint32) uint32 {
	return op | rd<<7 | funct3<<12 | rs1<<15 | csrnum<<20
}

func newMonitor() (*Monitor, *csr.File) {
	f := &csr.File{}
	m := New(f)
	m.Init()
	return m, f
}

func TestPrivilegeDrop(t *testing.T) {
	m, f := newMonitor()
	f.Mode = defs.ModeU

	w := word(sysOpcode, 5, 2, 0, defs.CSR_MSTATUS) // csrr x5, mstatus
	host := newFakeHost(0x1000, w)

	if err := m.HandleIllegalInstruction(host); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !host.killed {
		t.Fatalf("expected guest kill on privilege violation")
	}
	if f.Mode != defs.ModeM {
		t.Fatalf("shadow file not reinitialized: mode = %s, want M", f.Mode)
	}
}

func TestECALLUserToSupervisor(t *testing.T) {
	m, f := newMonitor()
	f.Mode = defs.ModeU
	f.Stvec.Value = 0x2000

	w := word(sysOpcode, 0, 0, 0, defs.CSR_ECALL)
	host := newFakeHost(0x1000, w)

	if err := m.HandleIllegalInstruction(host); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if host.killed {
		t.Fatalf("guest unexpectedly killed: %s", host.killMsg)
	}
	if f.Mode != defs.ModeS {
		t.Fatalf("guest_mode = %s, want S", f.Mode)
	}
	if f.Scause.Value != 8 {
		t.Fatalf("scause = %d, want 8", f.Scause.Value)
	}
	if f.Sepc.Value != 0x1000 {
		t.Fatalf("sepc = %#x, want 0x1000", f.Sepc.Value)
	}
	if host.frame.Epc != 0x2000 {
		t.Fatalf("frame.epc = %#x, want 0x2000", host.frame.Epc)
	}
}

func TestMRET(t *testing.T) {
	m, f := newMonitor()
	f.Mode = defs.ModeM
	f.Mstatus.Value = 1 << mstatusMPPShift // MPP = 1 (S)
	f.Mepc.Value = 0x4000

	w := word(sysOpcode, 0, 0, 0, defs.CSR_MRET)
	host := newFakeHost(0x3000, w)

	if err := m.HandleIllegalInstruction(host); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Mode != defs.ModeS {
		t.Fatalf("guest_mode = %s, want S", f.Mode)
	}
	if host.frame.Epc != 0x4000 {
		t.Fatalf("frame.epc = %#x, want 0x4000", host.frame.Epc)
	}
	if f.Mstatus.Value&mstatusMPPMask != 0 {
		t.Fatalf("MPP not cleared: mstatus = %#x", f.Mstatus.Value)
	}
}

func TestCSRWriteReadRoundTrip(t *testing.T) {
	m, f := newMonitor()
	f.Mode = defs.ModeM
	host := newFakeHost(0x1000, 0)

	*host.TrapFrame().GPR(2) = 0xdeadbeef
	wW := word(sysOpcode, 0, 1, 2, defs.CSR_MSCRATCH)
	host.mem[0x1000] = []byte{byte(wW), byte(wW >> 8), byte(wW >> 16), byte(wW >> 24)}
	host.sepc = 0x1000
	if err := m.HandleIllegalInstruction(host); err != nil {
		t.Fatalf("csrw: unexpected error: %v", err)
	}
	if host.killed {
		t.Fatalf("csrw: guest unexpectedly killed: %s", host.killMsg)
	}
	if f.Mscratch.Value != 0xdeadbeef {
		t.Fatalf("mscratch = %#x, want 0xdeadbeef", f.Mscratch.Value)
	}

	host.frame.Epc = 0x2000
	host.sepc = 0x2000
	wR := word(sysOpcode, 9, 2, 0, defs.CSR_MSCRATCH)
	host.mem[0x2000] = []byte{byte(wR), byte(wR >> 8), byte(wR >> 16), byte(wR >> 24)}
	if err := m.HandleIllegalInstruction(host); err != nil {
		t.Fatalf("csrr: unexpected error: %v", err)
	}
	if got := *host.TrapFrame().GPR(9); got != 0xdeadbeef {
		t.Fatalf("gpr[9] = %#x, want 0xdeadbeef", got)
	}
}

func TestMvendoridZeroWriteRejected(t *testing.T) {
	m, f := newMonitor()
	f.Mode = defs.ModeM
	orig := f.Mvendorid.Value

	host := newFakeHost(0x1000, 0)
	*host.TrapFrame().GPR(3) = 0 // rs1 = x3, value 0
	w := word(sysOpcode, 0, 1, 3, defs.CSR_MVENDORID)
	host.mem[0x1000] = []byte{byte(w), byte(w >> 8), byte(w >> 16), byte(w >> 24)}

	if err := m.HandleIllegalInstruction(host); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !host.killed {
		t.Fatalf("expected guest kill on mvendorid zero write")
	}
	if f.Mvendorid.Value != orig {
		t.Fatalf("mvendorid mutated: %#x", f.Mvendorid.Value)
	}
}

func TestUnknownCSRIsDecoderInconsistency(t *testing.T) {
	m, _ := newMonitor()
	w := word(sysOpcode, 9, 2, 0, 0x7ff) // not in the shadow table
	host := newFakeHost(0x1000, w)

	err := m.HandleIllegalInstruction(host)
	if err == nil {
		t.Fatalf("expected decoder inconsistency error")
	}
	if _, ok := err.(*ErrDecoderInconsistency); !ok {
		t.Fatalf("error = %T, want *ErrDecoderInconsistency", err)
	}
}
