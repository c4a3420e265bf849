package arena

import "math/bits"

// sizeClassCount is the number of size-classed free lists per arena,
// covering [32, 64, 128, 256, 512, 1024, 2048, 4096] bytes.
const sizeClassCount = 8

// minClassSize and maxClassSize bound the size classes; any request above
// maxClassSize bypasses the free lists entirely and is always served from
// the bump cursor (an "oversize" allocation).
const (
	minClassSize = 32
	maxClassSize = 4096
)

var classSizes = [sizeClassCount]uint32{32, 64, 128, 256, 512, 1024, 2048, 4096}

// sizeClass maps a request of n bytes to the free-list class that serves
// it, or reports oversize for anything above maxClassSize. The formula is
// class = clamp(ceil_log2(max(n, minClassSize)) - 5, 0, 7).
func sizeClass(n uint32) (class int, oversize bool) {
	if n > maxClassSize {
		return 0, true
	}
	if n < minClassSize {
		n = minClassSize
	}
	// ceil_log2(n): for a power of two n, bits.Len32(n-1) gives log2(n)
	// exactly; for non-powers it rounds up, which is what we want since
	// every class boundary is itself a power of two.
	log2 := bits.Len32(n - 1)
	c := log2 - 5
	if c < 0 {
		c = 0
	}
	if c > sizeClassCount-1 {
		c = sizeClassCount - 1
	}
	return c, false
}

// classSize returns the byte size served by free-list class c.
func classSize(c int) uint32 {
	return classSizes[c]
}
