package walloc

import "google.golang.org/protobuf/encoding/protowire"

// Field numbers for the compact wire-format stats snapshot. No .proto
// file backs this: protowire's low-level tag/varint API lets the host
// decode a manifest without generating or linking full message types.
const (
	fieldPages         = 1
	fieldRawMemorySize = 2
	fieldTotalSize     = 3
	fieldTotalUsed     = 4
	fieldTier          = 5 // repeated, each value itself a length-delimited TierStats message

	tierFieldName           = 1
	tierFieldUsed           = 2
	tierFieldCapacity       = 3
	tierFieldHighWaterMark  = 4
	tierFieldTotalAllocated = 5
	tierFieldMemorySaved    = 6
)

// EncodeManifest serializes a Snapshot into the compact protowire format
// used for out-of-band transfer (e.g. over a SharedArrayBuffer control
// channel) where JSON's overhead isn't worth paying every frame.
func EncodeManifest(snap Snapshot) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, fieldPages, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(snap.Pages))
	buf = protowire.AppendTag(buf, fieldRawMemorySize, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(snap.RawMemorySize))
	buf = protowire.AppendTag(buf, fieldTotalSize, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(snap.TotalSize))
	buf = protowire.AppendTag(buf, fieldTotalUsed, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(snap.TotalUsed))

	for _, tier := range snap.Tiers {
		buf = protowire.AppendTag(buf, fieldTier, protowire.BytesType)
		buf = protowire.AppendBytes(buf, encodeTier(tier))
	}
	return buf
}

func encodeTier(t TierStats) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, tierFieldName, protowire.BytesType)
	buf = protowire.AppendString(buf, t.Name)
	buf = protowire.AppendTag(buf, tierFieldUsed, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(t.Used))
	buf = protowire.AppendTag(buf, tierFieldCapacity, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(t.Capacity))
	buf = protowire.AppendTag(buf, tierFieldHighWaterMark, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(t.HighWaterMark))
	buf = protowire.AppendTag(buf, tierFieldTotalAllocated, protowire.VarintType)
	buf = protowire.AppendVarint(buf, t.TotalAllocated)
	buf = protowire.AppendTag(buf, tierFieldMemorySaved, protowire.VarintType)
	buf = protowire.AppendVarint(buf, t.MemorySaved)
	return buf
}

// DecodeManifest parses the wire format EncodeManifest produces.
func DecodeManifest(buf []byte) (Snapshot, error) {
	var snap Snapshot
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return snap, protowire.ParseError(n)
		}
		buf = buf[n:]

		switch num {
		case fieldPages, fieldRawMemorySize, fieldTotalSize, fieldTotalUsed:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return snap, protowire.ParseError(n)
			}
			buf = buf[n:]
			switch num {
			case fieldPages:
				snap.Pages = uint32(v)
			case fieldRawMemorySize:
				snap.RawMemorySize = uint32(v)
			case fieldTotalSize:
				snap.TotalSize = uint32(v)
			case fieldTotalUsed:
				snap.TotalUsed = uint32(v)
			}
		case fieldTier:
			if typ != protowire.BytesType {
				return snap, protowire.ParseError(-1)
			}
			data, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return snap, protowire.ParseError(n)
			}
			buf = buf[n:]
			tier, err := decodeTier(data)
			if err != nil {
				return snap, err
			}
			snap.Tiers = append(snap.Tiers, tier)
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return snap, protowire.ParseError(n)
			}
			buf = buf[n:]
		}
	}
	if snap.TotalSize > 0 {
		snap.MemoryUtilization = float64(snap.TotalUsed) / float64(snap.TotalSize)
	}
	snap.AllocatorType = "walloc.tiered"
	return snap, nil
}

func decodeTier(buf []byte) (TierStats, error) {
	var t TierStats
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return t, protowire.ParseError(n)
		}
		buf = buf[n:]

		switch num {
		case tierFieldName:
			s, n := protowire.ConsumeString(buf)
			if n < 0 {
				return t, protowire.ParseError(n)
			}
			t.Name = s
			buf = buf[n:]
		case tierFieldUsed, tierFieldCapacity, tierFieldHighWaterMark, tierFieldTotalAllocated, tierFieldMemorySaved:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return t, protowire.ParseError(n)
			}
			buf = buf[n:]
			switch num {
			case tierFieldUsed:
				t.Used = uint32(v)
			case tierFieldCapacity:
				t.Capacity = uint32(v)
			case tierFieldHighWaterMark:
				t.HighWaterMark = uint32(v)
			case tierFieldTotalAllocated:
				t.TotalAllocated = v
			case tierFieldMemorySaved:
				t.MemorySaved = v
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return t, protowire.ParseError(n)
			}
			buf = buf[n:]
		}
	}
	return t, nil
}
