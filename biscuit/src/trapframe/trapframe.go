// Package trapframe gives the guest's saved general-purpose registers an
// explicit, bounds-checked home instead of the original monitor's pointer
// arithmetic (&frame.ra + rd - 1), per the register-file-access design
// note: a 31-entry array indexed by register number, preserving the
// layout the host trap vector expects (x1=ra is register 1).
package trapframe

// Frame is the guest trap frame the host trap dispatcher hands to the
// monitor. Epc is the guest program counter at trap time (sepc).
type Frame struct {
	Epc uint64
	gpr [31]uint64 // x1 (ra) .. x31, indexed by reg-1
}

// GPR returns a pointer to guest register xN (N in [1,31]); x0 is
// hardwired to zero on real RISC-V and is never addressed this way.
func (f *Frame) GPR(n uint32) *uint64 {
	if n < 1 || n > 31 {
		panic("trapframe: register out of range")
	}
	return &f.gpr[n-1]
}

// Ra is a convenience accessor for x1, matching the saved-context "ra"
// field both BOOT's return-address poisoning and ULT's context switch
// reason about.
func (f *Frame) Ra() *uint64 { return f.GPR(1) }
