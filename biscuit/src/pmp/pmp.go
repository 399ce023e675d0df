// Package pmp builds the physical-memory-protection region tables BOOT
// writes into pmpaddr/pmpcfg before mret. The three profiles mirror the
// mutually exclusive KERNELPMP1/KERNELPMP2 build macros of the original
// bootloader; here they are ordinary Go values instead of preprocessor
// branches so all three are exercised by the same test binary.
package pmp

import "mem"

// Profile names a PMP configuration. Exactly one is active per boot.
type Profile int

const (
	Default    Profile = iota /// one R/W/X region covering all memory
	KernelPMP1                /// single TOR region isolating the upper 10MiB
	KernelPMP2                /// three NAPOT regions over 118-120/120-122/126-128MiB
)

// Region is one PMP address/config pair as it would be written to a
// pmpaddrN/pmpcfgN CSR pair.
type Region struct {
	Addr mem.Pa_t
	Perm mem.Perm_t
	// Tor selects top-of-range addressing; Napot selects naturally
	// aligned power-of-two addressing. Exactly one should be set, or
	// neither for the all-memory default region.
	Tor   bool
	Napot bool
}

// kernelPMP1Boundary is the TOR boundary isolating the upper 10MiB, taken
// verbatim from the bootloader's w_pmpaddr0 constant.
const kernelPMP1Boundary mem.Pa_t = 0x21d40000

// kernelPMP2Addrs are the three NAPOT encodings for the 118-120, 120-122,
// and 126-128 MiB windows, taken verbatim from the bootloader.
var kernelPMP2Addrs = [3]mem.Pa_t{0x21d80000, 0x21E3FFFF, 0x21FBFFFF}

// KernelPMP2Cfg0 is the raw pmpcfg0 value the KernelPMP2 profile writes; kept as a
// named constant since it packs three regions' worth of R/W/X + A bits
// that would otherwise need per-region byte assembly this toolkit has no
// other use for.
const KernelPMP2Cfg0 uint64 = 0x1F1F0F

// Regions returns the PMP regions for a profile, in CSR slot order
// (regions[i] belongs in pmpaddr[i]/pmpcfg byte i).
func Regions(p Profile) []Region {
	switch p {
	case KernelPMP1:
		return []Region{{Addr: kernelPMP1Boundary, Perm: mem.Rwx, Tor: true}}
	case KernelPMP2:
		rs := make([]Region, len(kernelPMP2Addrs))
		for i, a := range kernelPMP2Addrs {
			rs[i] = Region{Addr: a, Perm: mem.Rwx, Napot: true}
		}
		return rs
	default:
		return []Region{{Addr: 0x3fffffffffffff, Perm: mem.Rwx}}
	}
}
