//go:build profile_default

package pmp

// BuildProfile pins this binary to the Default PMP profile at compile
// time, for a caller that wants the old macro-selection contract instead
// of setting a Profile value on boot.Sequence at run time.
var BuildProfile = Default
