package arena

import (
	"encoding/binary"
	"sync/atomic"
)

// emptyList is the free-list sentinel meaning "no node", stored using the
// all-ones pattern for the same reason NullHandle is all-ones: offset 0 is
// legal and must not collide with "empty".
const emptyList = ^uint32(0)

// Backing is the minimal view an [Arena] needs onto its owning region's
// bytes. It is satisfied structurally by memory.Backing so this package
// does not need to import it.
type Backing interface {
	Bytes() []byte
}

// Stats is a point-in-time snapshot of one arena's bookkeeping counters.
type Stats struct {
	Used             uint32
	Capacity         uint32
	HighWaterMark    uint32
	TotalAllocated   uint64
	MemorySaved      uint64
}

// Arena is a single tier: an atomic bump allocator over
// [BaseOffset, BaseOffset+Capacity) with eight size-classed free lists for
// recycling. It never frees memory back to the operating system and never
// moves allocated bytes; its only destructive operations are Reset and
// FastCompact, both of which only move the bump cursor.
type Arena struct {
	backing    Backing
	baseOffset uint32
	alignment  uint32

	capacity       atomic.Uint32
	allocationHead atomic.Uint32
	freelists      [sizeClassCount]atomic.Uint32

	highWaterMark       atomic.Uint32
	totalAllocatedBytes atomic.Uint64
	memorySavedBytes    atomic.Uint64
}

// New creates an arena over [baseOffset, baseOffset+capacity) of backing,
// enforcing alignment on every bump allocation.
func New(backing Backing, baseOffset, capacity, alignment uint32) *Arena {
	a := &Arena{
		backing:    backing,
		baseOffset: baseOffset,
		alignment:  alignment,
	}
	a.capacity.Store(capacity)
	for i := range a.freelists {
		a.freelists[i].Store(emptyList)
	}
	return a
}

// BaseOffset returns the arena's current starting offset.
func (a *Arena) BaseOffset() uint32 { return a.baseOffset }

// Rebase updates the arena's base offset after the tiered allocator has
// relocated its backing bytes to a new physical location (growing a tier
// that is not physically last shifts every later tier's bytes to the new
// tail of backing memory). Any handle issued before the rebase was computed
// against the old base offset and is invalidated by this call, the same way
// Reset invalidates outstanding handles.
func (a *Arena) Rebase(newBase uint32) { a.baseOffset = newBase }

// Capacity returns the arena's current capacity, which only ever grows.
func (a *Arena) Capacity() uint32 { return a.capacity.Load() }

// Contains reports whether h falls within this arena's current extent.
func (a *Arena) Contains(h Handle) bool {
	if h.IsNull() {
		return false
	}
	off := uint64(h)
	base := uint64(a.baseOffset)
	return off >= base && off < base+uint64(a.capacity.Load())
}

// Extend grows the arena's capacity to newCapacity. It is a no-op if
// newCapacity is not larger than the current capacity. Extend is called by
// the tiered allocator after it has grown the backing memory; it never
// shrinks the arena and never moves the bump cursor or free lists.
func (a *Arena) Extend(newCapacity uint32) {
	for {
		cur := a.capacity.Load()
		if newCapacity <= cur {
			return
		}
		if a.capacity.CompareAndSwap(cur, newCapacity) {
			return
		}
	}
}

// Allocate carves size bytes out of the arena, first attempting a
// size-classed free-list pop and falling back to the bump cursor. It
// returns ErrCapacityExceeded if the arena cannot satisfy the request at
// its current capacity; the caller (the tiered allocator) is responsible
// for growing backing memory and retrying.
func (a *Arena) Allocate(size, align uint32) (Handle, error) {
	if align == 0 || align < a.alignment {
		align = a.alignment
	}

	if class, oversize := sizeClass(size); !oversize {
		if h, ok := a.popFreelist(class); ok {
			return h, nil
		}
	}

	for {
		cur := a.allocationHead.Load()
		start := alignUp(cur, align)
		end, overflow := addOverflows(start, size)
		if overflow || end > a.capacity.Load() {
			return NullHandle, ErrCapacityExceeded
		}
		if a.allocationHead.CompareAndSwap(cur, end) {
			a.bumpHighWaterMark(end)
			a.totalAllocatedBytes.Add(uint64(size))
			return Handle(uint64(a.baseOffset) + uint64(start)), nil
		}
	}
}

// Deallocate returns a previously allocated region to the free list of the
// largest size class that fits within size, so every node on a list is at
// least its class's size. It is advisory: the arena remains correct if the
// caller never calls it. Oversize requests, sizes below the smallest class
// and handles outside this arena's range are rejected with false and leave
// the arena unchanged.
func (a *Arena) Deallocate(h Handle, size uint32) bool {
	if !a.Contains(h) {
		return false
	}
	class, oversize := sizeClass(size)
	if oversize {
		return false
	}
	if size < classSize(class) {
		if class == 0 {
			return false
		}
		class--
	}
	offset := uint32(uint64(h) - uint64(a.baseOffset))
	a.pushFreelist(class, offset)
	return true
}

// Reset returns the arena to its initial empty state: the bump cursor and
// every free-list head are cleared, and the allocation/saved-bytes
// counters are zeroed. HighWaterMark is a diagnostic peak and survives
// reset.
func (a *Arena) Reset() {
	a.allocationHead.Store(0)
	for i := range a.freelists {
		a.freelists[i].Store(emptyList)
	}
	a.totalAllocatedBytes.Store(0)
	a.memorySavedBytes.Store(0)
}

// FastCompact moves the bump cursor back to preserveBytes without copying
// any memory: bytes in [0, preserveBytes) remain byte-identical and their
// handles remain valid, while anything at or past preserveBytes is
// invalidated the same way Reset invalidates it. It fails, without
// changing any state, if preserveBytes exceeds the arena's capacity.
func (a *Arena) FastCompact(preserveBytes uint32) bool {
	if preserveBytes > a.capacity.Load() {
		return false
	}
	a.allocationHead.Store(preserveBytes)
	for i := range a.freelists {
		a.freelists[i].Store(emptyList)
	}
	return true
}

// Stats returns a snapshot of the arena's bookkeeping counters.
func (a *Arena) Stats() Stats {
	return Stats{
		Used:           a.allocationHead.Load(),
		Capacity:       a.capacity.Load(),
		HighWaterMark:  a.highWaterMark.Load(),
		TotalAllocated: a.totalAllocatedBytes.Load(),
		MemorySaved:    a.memorySavedBytes.Load(),
	}
}

func (a *Arena) bumpHighWaterMark(candidate uint32) {
	for {
		cur := a.highWaterMark.Load()
		if candidate <= cur {
			return
		}
		if a.highWaterMark.CompareAndSwap(cur, candidate) {
			return
		}
	}
}

// popFreelist attempts a lock-free pop from freelists[class], reading the
// next-pointer stored in the freed block's first four bytes.
func (a *Arena) popFreelist(class int) (Handle, bool) {
	for {
		head := a.freelists[class].Load()
		if head == emptyList {
			return NullHandle, false
		}
		next := a.readNext(head)
		if a.freelists[class].CompareAndSwap(head, next) {
			a.memorySavedBytes.Add(uint64(classSize(class)))
			return Handle(uint64(a.baseOffset) + uint64(head)), true
		}
	}
}

// pushFreelist performs a Treiber-stack push of offset onto
// freelists[class], storing the previous head as offset's next-pointer.
func (a *Arena) pushFreelist(class int, offset uint32) {
	for {
		head := a.freelists[class].Load()
		a.writeNext(offset, head)
		if a.freelists[class].CompareAndSwap(head, offset) {
			return
		}
	}
}

func (a *Arena) readNext(offset uint32) uint32 {
	b := a.backing.Bytes()
	abs := a.baseOffset + offset
	return binary.LittleEndian.Uint32(b[abs : abs+4])
}

func (a *Arena) writeNext(offset, next uint32) {
	b := a.backing.Bytes()
	abs := a.baseOffset + offset
	binary.LittleEndian.PutUint32(b[abs:abs+4], next)
}

func alignUp(x, align uint32) uint32 {
	return (x + align - 1) &^ (align - 1)
}

func addOverflows(a, b uint32) (sum uint32, overflow bool) {
	sum = a + b
	return sum, sum < a
}
