// Package walloc implements a tiered bump-arena allocator over a single
// growable linear-memory backing, designed for render/scene/entity
// lifetime classes that reset at different cadences.
package walloc

import (
	"fmt"
	"sync"

	"github.com/nathanpotter17/walloc/arena"
	"github.com/nathanpotter17/walloc/memory"
	"github.com/nathanpotter17/walloc/runtimeinfo"
	"github.com/nathanpotter17/walloc/utils"
)

// TierSplit controls what fraction of total capacity each tier receives
// when an Allocator is constructed. The three values need not sum to 1;
// they are normalized.
type TierSplit struct {
	Top    float64
	Middle float64
	Bottom float64
}

// DefaultTierSplit matches the 50/30/20 baseline for render/scene/entity
// workloads.
var DefaultTierSplit = TierSplit{Top: 0.5, Middle: 0.3, Bottom: 0.2}

// Config configures a new Allocator.
type Config struct {
	InitialPages uint32
	MaxPages     uint32
	Split        TierSplit
	Backing      memory.Backing // optional; Region is used if nil
	Logger       *utils.Logger
}

// Allocator is the top-level entry point: it owns the backing memory and
// the three lifetime-segregated arenas carved out of it.
type Allocator struct {
	mu sync.RWMutex

	backing memory.Backing
	caps    runtimeinfo.Capabilities
	logger  *utils.Logger

	tiers [3]*arena.Arena
	split TierSplit
}

// New constructs an Allocator with the given configuration, growing the
// backing memory by InitialPages and carving all of it into three tiers
// per Split.
func New(cfg Config) (*Allocator, error) {
	if cfg.Split == (TierSplit{}) {
		cfg.Split = DefaultTierSplit
	}
	logger := cfg.Logger
	if logger == nil {
		logger = utils.DefaultLogger("walloc")
	}

	backing := cfg.Backing
	if backing == nil {
		backing = memory.NewRegion(0, cfg.MaxPages)
	}
	if cfg.InitialPages > 0 {
		if _, err := backing.GrowPages(cfg.InitialPages); err != nil {
			return nil, fmt.Errorf("walloc: initial grow failed: %w", err)
		}
	}

	profiler := runtimeinfo.NewProfiler()
	caps := profiler.Profile()

	a := &Allocator{
		backing: backing,
		caps:    caps,
		logger:  logger,
		split:   cfg.Split,
	}
	a.layout(uint32(len(backing.Bytes())))

	logger.Info("allocator initialized",
		utils.Uint32("pages", backing.PageCount()),
		utils.String("copy_regime", caps.CopyRegime()),
	)
	return a, nil
}

// layout (re)carves the three tiers over the first total bytes of the
// backing buffer, in proportion to a.split.
func (a *Allocator) layout(total uint32) {
	sum := a.split.Top + a.split.Middle + a.split.Bottom
	if sum <= 0 {
		sum = 1
	}
	topCap := uint32(float64(total) * a.split.Top / sum)
	midCap := uint32(float64(total) * a.split.Middle / sum)
	botCap := total - topCap - midCap

	backing := a.backing
	a.tiers[arena.Top] = arena.New(backing, 0, topCap, arena.DefaultAlignment(arena.Top))
	a.tiers[arena.Middle] = arena.New(backing, topCap, midCap, arena.DefaultAlignment(arena.Middle))
	a.tiers[arena.Bottom] = arena.New(backing, topCap+midCap, botCap, arena.DefaultAlignment(arena.Bottom))
}

// Allocate reserves size bytes in the given tier, returning a handle
// that is only meaningful together with that tier.
func (a *Allocator) Allocate(tier arena.Tier, size uint32) (arena.Handle, error) {
	a.mu.RLock()
	t := a.tierArena(tier)
	a.mu.RUnlock()
	if t == nil {
		return arena.NullHandle, fmt.Errorf("walloc: %w", arena.ErrInvalidHandle)
	}

	h, err := t.Allocate(size, arena.DefaultAlignment(tier))
	if err == arena.ErrCapacityExceeded {
		if growErr := a.growTier(tier, size); growErr != nil {
			return arena.NullHandle, growErr
		}
		a.mu.RLock()
		t = a.tierArena(tier)
		a.mu.RUnlock()
		h, err = t.Allocate(size, arena.DefaultAlignment(tier))
	}
	return h, err
}

// AllocateBatch performs count independent allocations of size bytes in
// tier, stopping and returning what it has on the first failure.
func (a *Allocator) AllocateBatch(tier arena.Tier, size uint32, count int) ([]arena.Handle, error) {
	handles := make([]arena.Handle, 0, count)
	for i := 0; i < count; i++ {
		h, err := a.Allocate(tier, size)
		if err != nil {
			return handles, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// growTier grows the backing memory by enough pages to cover an
// additional-size allocation, plus host-appropriate headroom, then extends
// tier's capacity to absorb the new bytes.
//
// Backing memory only ever grows at its physical tail, but tier's layout
// position need not be last (Bottom is). So when tier is Top or Middle,
// every tier positioned after it is shifted forward by the same number of
// bytes tier gains: their live bytes are copied to their new location and
// their Arena.baseOffset is rebased, keeping every tier's extent
// contiguous and disjoint. This invalidates any handle already issued into
// a tier positioned after the one being grown; it is the caller's
// responsibility to avoid growing an earlier tier while holding handles
// into a later one across the call.
func (a *Allocator) growTier(tier arena.Tier, additional uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	t := a.tierArena(tier)
	needPages := (additional + memory.PageSize - 1) / memory.PageSize
	headroom := a.caps.GrowthHeadroomPages()

	oldTotal := uint32(len(a.backing.Bytes()))
	newTotalPages, err := a.backing.GrowPages(needPages + headroom)
	if err != nil {
		return fmt.Errorf("walloc: grow failed: %w", err)
	}
	newTotal := newTotalPages * memory.PageSize
	grown := newTotal - oldTotal

	buf := a.backing.Bytes()
	for order := int(arena.Bottom); order > int(tier); order-- {
		downstream := a.tiers[order]
		oldBase := downstream.BaseOffset()
		newBase := oldBase + grown
		copy(buf[newBase:newBase+downstream.Capacity()], buf[oldBase:oldBase+downstream.Capacity()])
		downstream.Rebase(newBase)
	}
	t.Extend(t.Capacity() + grown)

	a.logger.Debug("tier grown",
		utils.String("tier", tier.String()),
		utils.Uint32("new_total_pages", newTotalPages),
	)
	return nil
}

func (a *Allocator) tierArena(tier arena.Tier) *arena.Arena {
	if !tier.Valid() {
		return nil
	}
	return a.tiers[tier]
}

// TierUsed returns how many bytes of tier's capacity are currently
// claimed by the bump cursor, as a tier-relative offset.
func (a *Allocator) TierUsed(tier arena.Tier) uint32 {
	a.mu.RLock()
	t := a.tierArena(tier)
	a.mu.RUnlock()
	if t == nil {
		return 0
	}
	return t.Stats().Used
}

// TierOffset converts an absolute handle into tier into a tier-relative
// offset, the form FastCompactTier and TierUsed both operate in.
func (a *Allocator) TierOffset(tier arena.Tier, h arena.Handle) uint32 {
	a.mu.RLock()
	t := a.tierArena(tier)
	a.mu.RUnlock()
	if t == nil {
		return 0
	}
	return uint32(uint64(h) - uint64(t.BaseOffset()))
}

// Deallocate returns size bytes at h in tier to that tier's free list.
func (a *Allocator) Deallocate(tier arena.Tier, h arena.Handle, size uint32) bool {
	a.mu.RLock()
	t := a.tierArena(tier)
	a.mu.RUnlock()
	if t == nil {
		return false
	}
	return t.Deallocate(h, size)
}

// ResetTier clears a tier's bump cursor, free lists and monotonic
// counters back to zero, preserving only its high-water mark.
func (a *Allocator) ResetTier(tier arena.Tier) {
	a.mu.RLock()
	t := a.tierArena(tier)
	a.mu.RUnlock()
	if t != nil {
		t.Reset()
	}
}

// FastCompactTier moves a tier's bump cursor back to preserveBytes and
// clears its free lists, without touching total_allocated/memory_saved.
func (a *Allocator) FastCompactTier(tier arena.Tier, preserveBytes uint32) bool {
	a.mu.RLock()
	t := a.tierArena(tier)
	a.mu.RUnlock()
	if t == nil {
		return false
	}
	return t.FastCompact(preserveBytes)
}

// Write copies data into the backing memory at h's absolute offset,
// selecting a copy regime from §4.3 by length and host vector width.
func (a *Allocator) Write(tier arena.Tier, h arena.Handle, data []byte) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	t := a.tierArena(tier)
	if t == nil || !t.Contains(h) {
		return arena.ErrInvalidHandle
	}
	off := uint32(h)
	buf := a.backing.Bytes()
	if int(off)+len(data) > len(buf) {
		return arena.ErrInvalidHandle
	}
	vectorCopy(buf[off:off+uint32(len(data))], data, a.caps.CopyRegime() == "wide")
	return nil
}

// Read returns a copy of length bytes at h's absolute offset.
func (a *Allocator) Read(tier arena.Tier, h arena.Handle, length uint32) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	t := a.tierArena(tier)
	if t == nil || !t.Contains(h) {
		return nil, arena.ErrInvalidHandle
	}
	off := uint32(h)
	buf := a.backing.Bytes()
	if int(off)+int(length) > len(buf) {
		return nil, arena.ErrInvalidHandle
	}
	out := make([]byte, length)
	vectorCopy(out, buf[off:off+length], a.caps.CopyRegime() == "wide")
	return out, nil
}

// MemoryView returns the live backing slice restricted to [offset, offset+length).
// Callers must not retain it across a GrowPages call, which may reallocate
// the underlying buffer.
func (a *Allocator) MemoryView(offset, length uint32) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	buf := a.backing.Bytes()
	if int(offset)+int(length) > len(buf) {
		return nil, arena.ErrInvalidHandle
	}
	return buf[offset : offset+length], nil
}

// BulkCopy copies length bytes from src to dst within the same backing
// buffer, used for defragmenting moves after a FastCompact.
func (a *Allocator) BulkCopy(dst, src, length uint32) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	buf := a.backing.Bytes()
	if int(dst)+int(length) > len(buf) || int(src)+int(length) > len(buf) {
		return arena.ErrInvalidHandle
	}
	vectorCopy(buf[dst:dst+length], buf[src:src+length], a.caps.CopyRegime() == "wide")
	return nil
}

// Close releases the backing memory.
func (a *Allocator) Close() error {
	return a.backing.Close()
}
