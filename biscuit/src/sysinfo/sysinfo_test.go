package sysinfo

import "testing"

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	r := Record{
		BLStart: 0x80000000,
		BLEnd:   0x80200000,
		DRStart: 0x80200000,
		DREnd:   0x88000000,
	}
	for i := range r.ExpectedHash {
		r.ExpectedHash[i] = byte(i)
		r.ObservedHash[i] = byte(i)
	}

	buf := r.Marshal()
	if len(buf) != Size {
		t.Fatalf("Marshal produced %d bytes, want %d", len(buf), Size)
	}

	got, err := Unmarshal(buf)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != r {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, r)
	}
}

func TestUnmarshalShortBuffer(t *testing.T) {
	_, err := Unmarshal(make([]byte, Size-1))
	if err == nil {
		t.Fatal("expected error for short buffer, got nil")
	}
}
