package pmp

import "testing"

func TestDefaultProfileCoversAllMemory(t *testing.T) {
	rs := Regions(Default)
	if len(rs) != 1 {
		t.Fatalf("default profile: got %d regions, want 1", len(rs))
	}
	if rs[0].Tor || rs[0].Napot {
		t.Errorf("default region should use neither TOR nor NAPOT addressing, got %+v", rs[0])
	}
}

func TestKernelPMP1IsSingleTORRegion(t *testing.T) {
	rs := Regions(KernelPMP1)
	if len(rs) != 1 {
		t.Fatalf("kernelpmp1: got %d regions, want 1", len(rs))
	}
	if !rs[0].Tor {
		t.Errorf("kernelpmp1 region must use TOR addressing")
	}
	if rs[0].Addr != kernelPMP1Boundary {
		t.Errorf("kernelpmp1 boundary = %#x, want %#x", rs[0].Addr, kernelPMP1Boundary)
	}
}

func TestKernelPMP2IsThreeNAPOTRegions(t *testing.T) {
	rs := Regions(KernelPMP2)
	if len(rs) != 3 {
		t.Fatalf("kernelpmp2: got %d regions, want 3", len(rs))
	}
	for i, r := range rs {
		if !r.Napot {
			t.Errorf("region %d: expected NAPOT addressing", i)
		}
		if r.Addr != kernelPMP2Addrs[i] {
			t.Errorf("region %d: addr = %#x, want %#x", i, r.Addr, kernelPMP2Addrs[i])
		}
	}
}
