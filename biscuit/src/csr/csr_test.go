package csr

import (
	"testing"

	"defs"
)

func TestInitFixesMvendoridAndMode(t *testing.T) {
	var f File
	f.Init()

	if f.Mvendorid.Value != defs.TrustedVendorID {
		t.Errorf("mvendorid = %#x, want %#x", f.Mvendorid.Value, defs.TrustedVendorID)
	}
	if f.Mode != defs.ModeM {
		t.Errorf("mode after init = %v, want %v", f.Mode, defs.ModeM)
	}
	if f.PMPConfigured {
		t.Error("PMPConfigured should be false immediately after init")
	}
}

func TestMvendoridAlwaysReadable(t *testing.T) {
	var f File
	f.Init()
	if !PermittedRead(defs.ModeU, &f.Mvendorid) {
		t.Error("mvendorid must be readable from user mode")
	}
}

func TestMvendoridWriteStillChecksMode(t *testing.T) {
	var f File
	f.Init()
	if PermittedWrite(defs.ModeU, &f.Mvendorid) {
		t.Error("mvendorid must not be writable from user mode, unlike reads")
	}
	if !PermittedWrite(defs.ModeM, &f.Mvendorid) {
		t.Error("mvendorid should be writable from machine mode")
	}
}

func TestMinimumModeOrdering(t *testing.T) {
	var f File
	f.Init()
	for _, s := range f.All() {
		if s.Number == defs.CSR_MVENDORID {
			continue
		}
		if s.MinimumMode < defs.ModeU || s.MinimumMode > defs.ModeM {
			t.Errorf("csr %#x: out-of-range minimum mode %v", s.Number, s.MinimumMode)
		}
	}
}

func TestRaiseMinimumNeverLowers(t *testing.T) {
	s := Slot{MinimumMode: defs.ModeS}
	s.RaiseMinimum(defs.ModeU)
	if s.MinimumMode != defs.ModeS {
		t.Errorf("RaiseMinimum lowered mode to %v, want unchanged %v", s.MinimumMode, defs.ModeS)
	}
	s.RaiseMinimum(defs.ModeM)
	if s.MinimumMode != defs.ModeM {
		t.Errorf("RaiseMinimum = %v, want %v", s.MinimumMode, defs.ModeM)
	}
}

func TestLookupUnknownCSR(t *testing.T) {
	var f File
	f.Init()
	_, err := f.Lookup(0x999)
	if err == nil {
		t.Fatal("expected ErrUnknownCSR for an unregistered number")
	}
	if _, ok := err.(*ErrUnknownCSR); !ok {
		t.Errorf("got error type %T, want *ErrUnknownCSR", err)
	}
}

func TestLookupPMPSetsConfigured(t *testing.T) {
	var f File
	f.Init()
	if f.PMPConfigured {
		t.Fatal("PMPConfigured should start false")
	}
	if _, err := f.Lookup(defs.CSR_PMPCFG_BASE); err != nil {
		t.Fatalf("Lookup(pmpcfg0): %v", err)
	}
	if !f.PMPConfigured {
		t.Error("looking up a pmpcfg slot should set PMPConfigured")
	}
}

func TestPermittedRespectsMinimumMode(t *testing.T) {
	var f File
	f.Init()
	if PermittedRead(defs.ModeU, &f.Mstatus) {
		t.Error("user mode should not be permitted to read mstatus")
	}
	if !PermittedRead(defs.ModeM, &f.Mstatus) {
		t.Error("machine mode should be permitted to read mstatus")
	}
	if PermittedWrite(defs.ModeU, &f.Mstatus) {
		t.Error("user mode should not be permitted to write mstatus")
	}
	if !PermittedWrite(defs.ModeM, &f.Mstatus) {
		t.Error("machine mode should be permitted to write mstatus")
	}
}
