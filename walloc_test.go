package walloc

import (
	"testing"

	"github.com/nathanpotter17/walloc/arena"
)

func newTestAllocator(t *testing.T) *Allocator {
	t.Helper()
	a, err := New(Config{InitialPages: 1, MaxPages: 16})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestAllocateAcrossTiers(t *testing.T) {
	a := newTestAllocator(t)
	for _, tier := range []arena.Tier{arena.Render, arena.Scene, arena.Entity} {
		h, err := a.Allocate(tier, 64)
		if err != nil {
			t.Fatalf("Allocate(%s): %v", tier, err)
		}
		if h.IsNull() {
			t.Fatalf("Allocate(%s) returned null handle", tier)
		}
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	a := newTestAllocator(t)
	h, err := a.Allocate(arena.Entity, 40)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	want := []byte("the quick brown fox jumps over lazy")
	if err := a.Write(arena.Entity, h, want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := a.Read(arena.Entity, h, uint32(len(want)))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("round trip mismatch: got %q, want %q", got, want)
	}
}

func TestWriteReadSmallRoundTrip(t *testing.T) {
	a := newTestAllocator(t)
	for _, n := range []int{1, 3, 7, 8, 15, 16, 17, 33, 129} {
		h, err := a.Allocate(arena.Entity, uint32(n))
		if err != nil {
			t.Fatalf("Allocate(%d): %v", n, err)
		}
		want := make([]byte, n)
		for i := range want {
			want[i] = byte(i + 1)
		}
		if err := a.Write(arena.Entity, h, want); err != nil {
			t.Fatalf("Write(%d): %v", n, err)
		}
		got, err := a.Read(arena.Entity, h, uint32(n))
		if err != nil {
			t.Fatalf("Read(%d): %v", n, err)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("len=%d byte %d: got %d want %d", n, i, got[i], want[i])
			}
		}
	}
}

func TestResetTierClearsUsage(t *testing.T) {
	a := newTestAllocator(t)
	if _, err := a.Allocate(arena.Entity, 64); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	before := a.Stats()
	a.ResetTier(arena.Entity)
	after := a.Stats()

	if before.Tiers[2].Used == 0 {
		t.Fatalf("expected nonzero usage before reset")
	}
	if after.Tiers[2].Used != 0 {
		t.Fatalf("Used after reset = %d, want 0", after.Tiers[2].Used)
	}
	if after.Tiers[2].HighWaterMark == 0 {
		t.Fatalf("HighWaterMark should survive reset")
	}
}

func TestGrowOnCapacityExceeded(t *testing.T) {
	a, err := New(Config{InitialPages: 1, MaxPages: 4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	stats := a.Stats()
	tierCap := stats.Tiers[0].Capacity

	h, err := a.Allocate(arena.Render, tierCap+128)
	if err != nil {
		t.Fatalf("Allocate beyond initial tier capacity should grow, got: %v", err)
	}
	if h.IsNull() {
		t.Fatalf("expected a valid handle after growth")
	}
}

func TestStatsFieldNames(t *testing.T) {
	a := newTestAllocator(t)
	snap := a.Stats()
	if snap.AllocatorType == "" {
		t.Fatalf("AllocatorType should not be empty")
	}
	if len(snap.Tiers) != 3 {
		t.Fatalf("expected 3 tiers, got %d", len(snap.Tiers))
	}
	names := map[string]bool{}
	for _, tr := range snap.Tiers {
		names[tr.Name] = true
	}
	for _, want := range []string{"render", "scene", "entity"} {
		if !names[want] {
			t.Fatalf("missing tier %q in stats", want)
		}
	}
}
