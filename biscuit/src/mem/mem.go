// Package mem holds the small set of physical-address types the original
// kernel's page-table/physical-allocator code shared with everything else.
// The full biscuit allocator (per-CPU freelists, pml4 page maps, TLB
// shootdown masks) managed many-core x86 physical memory and has no
// equivalent in this single-hart RISC-V teaching toolkit; what survives is
// the address type and the permission bits PMP regions also express.
package mem

// PGSHIFT is the base-2 exponent for the page size.
const PGSHIFT uint = 12

// PGSIZE is the size of a single page in bytes.
const PGSIZE int = 1 << PGSHIFT

// Pa_t represents a physical address.
type Pa_t uintptr

// Perm_t mirrors a page table entry's permission bits; PMP region
// configuration bytes reuse the same R/W/X shape (RISC-V pmpcfg encodes
// R, W, X in its low three bits, the same order xv6's PTE does).
type Perm_t uint8

const (
	PERM_R Perm_t = 1 << 0 /// region readable
	PERM_W Perm_t = 1 << 1 /// region writable
	PERM_X Perm_t = 1 << 2 /// region executable
)

/// Rwx is the all-permissions value used by the default PMP profile.
const Rwx = PERM_R | PERM_W | PERM_X
