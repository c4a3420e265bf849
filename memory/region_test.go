package memory

import "testing"

func TestRegionInitialSize(t *testing.T) {
	r := NewRegion(2, 10)
	if got := r.PageCount(); got != 2 {
		t.Fatalf("PageCount() = %d, want 2", got)
	}
	if got := len(r.Bytes()); got != 2*PageSize {
		t.Fatalf("len(Bytes()) = %d, want %d", got, 2*PageSize)
	}
}

func TestRegionGrowPreservesContent(t *testing.T) {
	r := NewRegion(1, 10)
	r.Bytes()[0] = 0xAB
	r.Bytes()[PageSize-1] = 0xCD

	newTotal, err := r.GrowPages(3)
	if err != nil {
		t.Fatalf("GrowPages: %v", err)
	}
	if newTotal != 4 {
		t.Fatalf("newTotal = %d, want 4", newTotal)
	}
	buf := r.Bytes()
	if len(buf) != 4*PageSize {
		t.Fatalf("len(Bytes()) = %d, want %d", len(buf), 4*PageSize)
	}
	if buf[0] != 0xAB || buf[PageSize-1] != 0xCD {
		t.Fatalf("grown region lost prefix content")
	}
}

func TestRegionGrowRefusesOverMax(t *testing.T) {
	r := NewRegion(1, 2)
	if _, err := r.GrowPages(5); err != ErrGrowFailed {
		t.Fatalf("GrowPages over max: got %v, want ErrGrowFailed", err)
	}
}

func TestRegionClampsInitialToMax(t *testing.T) {
	r := NewRegion(20, 4)
	if got := r.PageCount(); got != 4 {
		t.Fatalf("PageCount() = %d, want 4 (clamped)", got)
	}
}

func TestRegionClose(t *testing.T) {
	r := NewRegion(1, 1)
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := len(r.Bytes()); got != 0 {
		t.Fatalf("Bytes() after Close has length %d, want 0", got)
	}
}
