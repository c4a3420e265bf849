package walloc

import (
	"bytes"
	"testing"
)

func makeSeq(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + 1)
	}
	return b
}

func TestVectorCopyAllRegimes(t *testing.T) {
	lengths := []int{0, 1, 4, 7, 8, 16, 32, 33, 64, 128, 129, 200, 1000, 5000}
	for _, wide := range []bool{true, false} {
		for _, n := range lengths {
			src := makeSeq(n)
			dst := make([]byte, n)
			vectorCopy(dst, src, wide)
			if !bytes.Equal(dst, src) {
				t.Fatalf("vectorCopy(wide=%v, n=%d): mismatch", wide, n)
			}
		}
	}
}

func TestVectorCopyRegimeSelection(t *testing.T) {
	cases := []struct {
		n    int
		wide bool
		want vectorRegime
	}{
		{1, true, regimeWord},
		{32, false, regimeWord},
		{33, true, regimeVector16Overlap},
		{128, false, regimeVector16Overlap},
		{129, true, regimeVector32Wide},
		{129, false, regimeVector16Narrow},
	}
	for _, c := range cases {
		src := makeSeq(c.n)
		dst := make([]byte, c.n)
		got := vectorCopy(dst, src, c.wide)
		if got != c.want {
			t.Fatalf("n=%d wide=%v: regime = %v, want %v", c.n, c.wide, got, c.want)
		}
	}
}

func TestVectorFillAllRegimes(t *testing.T) {
	lengths := []int{0, 1, 7, 8, 32, 33, 128, 129, 500}
	for _, wide := range []bool{true, false} {
		for _, n := range lengths {
			dst := make([]byte, n)
			vectorFill(dst, 0x5A, wide)
			for i, b := range dst {
				if b != 0x5A {
					t.Fatalf("vectorFill(wide=%v, n=%d): byte %d = %x, want 5a", wide, n, i, b)
				}
			}
		}
	}
}
