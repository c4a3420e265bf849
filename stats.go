package walloc

// TierStats is the host-visible snapshot of one tier's bookkeeping.
type TierStats struct {
	Name           string `json:"name"`
	Used           uint32 `json:"used"`
	Capacity       uint32 `json:"capacity"`
	HighWaterMark  uint32 `json:"highWaterMark"`
	TotalAllocated uint64 `json:"totalAllocated"`
	MemorySaved    uint64 `json:"memorySaved"`
}

// Snapshot is the full host-visible memory report, field-named to match
// the allocator's wire contract exactly.
type Snapshot struct {
	AllocatorType     string      `json:"allocatorType"`
	Pages             uint32      `json:"pages"`
	RawMemorySize     uint32      `json:"rawMemorySize"`
	TotalSize         uint32      `json:"totalSize"`
	TotalUsed         uint32      `json:"totalUsed"`
	MemoryUtilization float64     `json:"memoryUtilization"`
	Tiers             []TierStats `json:"tiers"`
}

// Stats builds a point-in-time Snapshot of every tier plus the backing
// memory's raw size.
func (a *Allocator) Stats() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	raw := uint32(len(a.backing.Bytes()))
	snap := Snapshot{
		AllocatorType: "walloc.tiered",
		Pages:         a.backing.PageCount(),
		RawMemorySize: raw,
	}

	var totalCap, totalUsed uint32
	for _, tier := range []struct {
		id   uint8
		name string
	}{{0, "render"}, {1, "scene"}, {2, "entity"}} {
		arenaStats := a.tiers[tier.id].Stats()
		snap.Tiers = append(snap.Tiers, TierStats{
			Name:           tier.name,
			Used:           arenaStats.Used,
			Capacity:       arenaStats.Capacity,
			HighWaterMark:  arenaStats.HighWaterMark,
			TotalAllocated: arenaStats.TotalAllocated,
			MemorySaved:    arenaStats.MemorySaved,
		})
		totalCap += arenaStats.Capacity
		totalUsed += arenaStats.Used
	}

	snap.TotalSize = totalCap
	snap.TotalUsed = totalUsed
	if totalCap > 0 {
		snap.MemoryUtilization = float64(totalUsed) / float64(totalCap)
	}
	return snap
}
