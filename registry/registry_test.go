package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/nathanpotter17/walloc/arena"
)

// fakeAllocator is a minimal bump allocator standing in for
// *walloc.Allocator so the registry can be tested without a live arena.
type fakeAllocator struct {
	head      map[arena.Tier]uint32
	store     map[arena.Handle][]byte
	compacted []struct {
		tier     arena.Tier
		preserve uint32
	}
}

func newFakeAllocator() *fakeAllocator {
	return &fakeAllocator{
		head:  make(map[arena.Tier]uint32),
		store: make(map[arena.Handle][]byte),
	}
}

func (f *fakeAllocator) Allocate(tier arena.Tier, size uint32) (arena.Handle, error) {
	off := f.head[tier]
	h := arena.Handle(uint64(tier)<<32 | uint64(off))
	f.store[h] = make([]byte, size)
	f.head[tier] = off + size
	return h, nil
}

func (f *fakeAllocator) Write(tier arena.Tier, h arena.Handle, data []byte) error {
	buf, ok := f.store[h]
	if !ok || len(buf) < len(data) {
		return arena.ErrInvalidHandle
	}
	copy(buf, data)
	return nil
}

func (f *fakeAllocator) Read(tier arena.Tier, h arena.Handle, length uint32) ([]byte, error) {
	buf, ok := f.store[h]
	if !ok {
		return nil, arena.ErrInvalidHandle
	}
	return buf[:length], nil
}

func (f *fakeAllocator) Deallocate(tier arena.Tier, h arena.Handle, size uint32) bool {
	_, ok := f.store[h]
	delete(f.store, h)
	return ok
}

func (f *fakeAllocator) TierUsed(tier arena.Tier) uint32 {
	return f.head[tier]
}

func (f *fakeAllocator) TierOffset(tier arena.Tier, h arena.Handle) uint32 {
	return uint32(uint64(h))
}

func (f *fakeAllocator) FastCompactTier(tier arena.Tier, preserveBytes uint32) bool {
	f.head[tier] = preserveBytes
	f.compacted = append(f.compacted, struct {
		tier     arena.Tier
		preserve uint32
	}{tier, preserveBytes})
	return true
}

type fakeFetcher struct {
	calls int
	fail  bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("fetch failed")
	}
	return []byte("fetched:" + url), nil
}

func TestRegisterAndGetData(t *testing.T) {
	reg := New(Config{Allocator: newFakeAllocator()})
	if _, err := reg.Register("mesh.obj", arena.Entity, Binary, []byte("vertices"), false); err != nil {
		t.Fatalf("Register: %v", err)
	}
	data, err := reg.GetData("mesh.obj")
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if string(data) != "vertices" {
		t.Fatalf("GetData = %q, want vertices", data)
	}
}

func TestRegisterReplaceDoesNotReclaimOldData(t *testing.T) {
	reg := New(Config{Allocator: newFakeAllocator()})
	if _, err := reg.Register("k", arena.Entity, Binary, []byte("first"), false); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := reg.Register("k", arena.Entity, Binary, []byte("second-value"), false); err != nil {
		t.Fatalf("replace Register: %v", err)
	}
	data, err := reg.GetData("k")
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if string(data) != "second-value" {
		t.Fatalf("GetData after replace = %q, want second-value", data)
	}
}

func TestGetMissingKey(t *testing.T) {
	reg := New(Config{Allocator: newFakeAllocator()})
	if _, err := reg.Get("nope"); err != ErrNotFound {
		t.Fatalf("Get missing: got %v, want ErrNotFound", err)
	}
}

func TestEvictRemovesAsset(t *testing.T) {
	reg := New(Config{Allocator: newFakeAllocator()})
	if _, err := reg.Register("k", arena.Entity, Binary, []byte("data"), false); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Evict("k"); err != nil {
		t.Fatalf("Evict: %v", err)
	}
	if _, err := reg.Get("k"); err != ErrNotFound {
		t.Fatalf("Get after evict: got %v, want ErrNotFound", err)
	}
}

func TestEvictTailCompacts(t *testing.T) {
	fake := newFakeAllocator()
	reg := New(Config{Allocator: fake})
	if _, err := reg.Register("tail", arena.Entity, Binary, []byte("0123456789"), false); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Evict("tail"); err != nil {
		t.Fatalf("Evict: %v", err)
	}
	if len(fake.compacted) != 1 {
		t.Fatalf("expected a fast-compact call for a tail eviction, got %d", len(fake.compacted))
	}
	if fake.compacted[0].preserve != 0 {
		t.Fatalf("compacted preserve = %d, want 0", fake.compacted[0].preserve)
	}
}

func TestEvictNonTailDoesNotCompact(t *testing.T) {
	fake := newFakeAllocator()
	reg := New(Config{Allocator: fake})
	if _, err := reg.Register("first", arena.Entity, Binary, []byte("aaaa"), false); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := reg.Register("second", arena.Entity, Binary, []byte("bbbb"), false); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Evict("first"); err != nil {
		t.Fatalf("Evict: %v", err)
	}
	if len(fake.compacted) != 0 {
		t.Fatalf("expected no fast-compact for a non-tail eviction, got %d", len(fake.compacted))
	}
}

func TestEvictBatchCollectsErrors(t *testing.T) {
	reg := New(Config{Allocator: newFakeAllocator()})
	if _, err := reg.Register("a", arena.Entity, Binary, []byte("x"), false); err != nil {
		t.Fatalf("Register: %v", err)
	}
	errs := reg.EvictBatch([]string{"a", "missing"})
	if len(errs) != 1 {
		t.Fatalf("EvictBatch errors = %d, want 1", len(errs))
	}
}

func TestLoadAssetUsesFetcherAndRegistersInSceneTier(t *testing.T) {
	fetcher := &fakeFetcher{}
	reg := New(Config{Allocator: newFakeAllocator(), Fetcher: fetcher, FetchesPerSecond: 100, FetchBurst: 100})
	asset, err := reg.LoadAsset(context.Background(), "model.bin", Binary)
	if err != nil {
		t.Fatalf("LoadAsset: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("fetcher called %d times, want 1", fetcher.calls)
	}
	if asset.Tier != arena.Scene {
		t.Fatalf("LoadAsset tier = %v, want Scene", asset.Tier)
	}
	data, err := reg.GetData(asset.Key)
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if string(data) != "fetched:model.bin" {
		t.Fatalf("GetData = %q", data)
	}
}

func TestLoadAssetWithoutFetcherFails(t *testing.T) {
	reg := New(Config{Allocator: newFakeAllocator()})
	if _, err := reg.LoadAsset(context.Background(), "url", Binary); err == nil {
		t.Fatalf("expected error with no fetcher configured")
	}
}

func TestLoadAssetZeroCopyWritesWithoutFetchingOrRegistering(t *testing.T) {
	fetcher := &fakeFetcher{}
	reg := New(Config{Allocator: newFakeAllocator(), Fetcher: fetcher})
	h, err := reg.LoadAssetZeroCopy([]byte("raw-bytes"), arena.Entity)
	if err != nil {
		t.Fatalf("LoadAssetZeroCopy: %v", err)
	}
	if h.IsNull() {
		t.Fatalf("expected a valid handle")
	}
	if fetcher.calls != 0 {
		t.Fatalf("LoadAssetZeroCopy should never call the fetcher, got %d calls", fetcher.calls)
	}
	if len(reg.assets) != 0 {
		t.Fatalf("LoadAssetZeroCopy should not register a key, found %d assets", len(reg.assets))
	}
	data, err := reg.alloc.Read(arena.Entity, h, 9)
	if err != nil {
		t.Fatalf("Read back: %v", err)
	}
	if string(data) != "raw-bytes" {
		t.Fatalf("Read back = %q, want raw-bytes", data)
	}
}

func TestResolveURLPrefixesRelative(t *testing.T) {
	reg := New(Config{Allocator: newFakeAllocator()})
	reg.SetBaseURL("https://cdn.example.com/")
	if got := reg.resolveURL("model.bin"); got != "https://cdn.example.com/model.bin" {
		t.Fatalf("resolveURL relative = %q", got)
	}
	if got := reg.resolveURL("https://other.example.com/x.bin"); got != "https://other.example.com/x.bin" {
		t.Fatalf("resolveURL absolute = %q", got)
	}
}
