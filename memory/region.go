package memory

import (
	"sync"
)

// Region is the default Backing implementation: a single Go byte slice
// that grows by allocating a larger slice and copying the old contents
// over. This is the "single contiguous region" the allocator requires —
// there is never more than one live backing array — and it behaves
// identically whether compiled to wasm or native, which is the whole
// point of using it as the default on both targets.
//
// Region never shrinks and never reuses a stale slice: once GrowPages
// succeeds, every subsequent Bytes() call returns the new array. Handles
// (plain offsets) stay valid across a grow because the prefix is copied
// byte-for-byte; only a live *memory_view* taken before a grow is
// invalidated, per the host-boundary contract.
type Region struct {
	mu       sync.RWMutex
	buf      []byte
	maxPages uint32
}

// NewRegion reserves an initial region of initialPages pages, growable up
// to maxPages. maxPages is clamped to MaxPages.
func NewRegion(initialPages, maxPages uint32) *Region {
	if maxPages > MaxPages {
		maxPages = MaxPages
	}
	if initialPages > maxPages {
		initialPages = maxPages
	}
	return &Region{
		buf:      make([]byte, uint64(initialPages)*PageSize),
		maxPages: maxPages,
	}
}

func (r *Region) Bytes() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.buf
}

func (r *Region) PageCount() uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return uint32(len(r.buf) / PageSize)
}

func (r *Region) GrowPages(delta uint32) (uint32, error) {
	if delta == 0 {
		return r.PageCount(), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := uint32(len(r.buf) / PageSize)
	newTotal := current + delta
	if newTotal < current || newTotal > r.maxPages {
		return current, ErrGrowFailed
	}

	grown := make([]byte, uint64(newTotal)*PageSize)
	copy(grown, r.buf)
	r.buf = grown
	return newTotal, nil
}

func (r *Region) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = nil
	return nil
}
