//go:build !js || !wasm

package memory

import (
	"fmt"

	"github.com/wasmerio/wasmer-go/wasmer"
)

// WasmerBacking backs a region with an actual Wasmer linear memory object
// instead of a plain Go slice. It exists so native builds can be tested
// against the real WebAssembly grow semantics (Memory.Grow can relocate
// the underlying buffer, exactly like the sandboxed target) rather than
// only our own pure-Go approximation in Region. It is not the default
// backing for production arenas — Region is simpler and has no cgo
// dependency — but it is what cmd/walloc-demo allocates against.
type WasmerBacking struct {
	store  *wasmer.Store
	memory *wasmer.Memory
}

// NewWasmerBacking creates a standalone Wasmer memory (no module required)
// with the given initial and maximum page counts.
func NewWasmerBacking(initialPages, maxPages uint32) (*WasmerBacking, error) {
	if maxPages > MaxPages {
		maxPages = MaxPages
	}
	limits, err := wasmer.NewLimits(initialPages, maxPages)
	if err != nil {
		return nil, fmt.Errorf("memory: wasmer limits: %w", err)
	}

	engine := wasmer.NewEngine()
	store := wasmer.NewStore(engine)
	memoryType := wasmer.NewMemoryType(limits)
	mem := wasmer.NewMemory(store, memoryType)

	return &WasmerBacking{store: store, memory: mem}, nil
}

func (w *WasmerBacking) Bytes() []byte {
	return w.memory.Data()
}

func (w *WasmerBacking) PageCount() uint32 {
	return uint32(w.memory.Size())
}

func (w *WasmerBacking) GrowPages(delta uint32) (uint32, error) {
	if delta == 0 {
		return w.PageCount(), nil
	}
	if !w.memory.Grow(wasmer.Pages(delta)) {
		return w.PageCount(), ErrGrowFailed
	}
	return w.PageCount(), nil
}

func (w *WasmerBacking) Close() error {
	return nil
}
