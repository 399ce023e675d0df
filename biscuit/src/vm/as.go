// Package vm keeps the two page-table handles the shadow CSR file reserves
// for future PMP-aware address-space swaps. The original monitor's
// emulate_ecall carries two commented-out branches that would swap
// p->pagetable between vm_state.pmp_pagetable and vm_state.og_pagetable on
// a U<->S privilege crossing; pmp_setup is written whenever a pmpcfg or
// pmpaddr slot is touched but, per the design note, is never consulted.
// This package is the hook point the note asks for: a typed handle and
// the lock discipline the original Vm_t used around page-table
// manipulation, without inventing the swap semantics themselves.
package vm

import "sync"

// Pagetable is an opaque handle to an address space. The toolkit never
// dereferences it; it exists so a real kernel can plug in its own
// page-table type without changing the shadow CSR file's shape.
type Pagetable interface{}

// AddressSpace is the small lock-guarded pair of page-table handles the
// shadow CSR file stores per the spec's data model: one for the current
// PMP-restricted mapping and one for the original mapping it was carved
// from.
type AddressSpace struct {
	mu sync.Mutex

	PMPPagetable Pagetable
	OGPagetable  Pagetable

	// held mirrors the original Vm_t's own-lock-held assertion flag;
	// kept so Lock/Unlock remain a matched, assertable pair the way the
	// rest of this codebase's locking does.
	held bool
}

// Lock acquires the address-space lock before a page-table handle is read
// or swapped.
func (as *AddressSpace) Lock() {
	as.mu.Lock()
	as.held = true
}

// Unlock releases the address-space lock.
func (as *AddressSpace) Unlock() {
	as.held = false
	as.mu.Unlock()
}

// LockAssert panics if the lock is not held, matching Lockassert_pmap's
// role of catching callers that forgot to take the lock.
func (as *AddressSpace) LockAssert() {
	if !as.held {
		panic("vm: address space lock must be held")
	}
}
