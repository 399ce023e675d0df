//go:build profile_kernelpmp2

package pmp

// BuildProfile pins this binary to the KernelPMP2 profile at compile
// time, mirroring the original KERNELPMP2 build macro.
var BuildProfile = KernelPMP2
