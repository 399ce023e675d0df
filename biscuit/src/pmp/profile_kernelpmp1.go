//go:build profile_kernelpmp1

package pmp

// BuildProfile pins this binary to the KernelPMP1 profile at compile
// time, mirroring the original KERNELPMP1 build macro.
var BuildProfile = KernelPMP1
