// Package memory provides the growable backing regions that underlie
// walloc's arenas: a page-oriented abstraction modeled directly on
// WebAssembly linear memory, with a pure-Go implementation usable on any
// target and a Wasmer-backed implementation for native builds that want
// byte-for-byte WASM grow semantics.
package memory

import "errors"

// PageSize is the WebAssembly page size: backing memory only ever grows
// by whole pages of this size.
const PageSize = 64 * 1024

// MaxPages is the hard cap on total backing memory: 65536 pages is 4 GiB,
// the largest linear memory a 32-bit offset space can address.
const MaxPages = 65536

// ErrGrowFailed is returned when a grow request is refused, either by the
// host capability or because it would exceed MaxPages.
var ErrGrowFailed = errors.New("memory: grow failed")

// Backing is a contiguous, page-granular byte region that may grow at its
// tail but never relocate already-committed offsets out from under a
// caller holding them across a single operation. Implementations must
// support concurrent ReadAt/WriteAt-style access via Bytes(); callers that
// need atomicity across a grow must serialize through GrowPages.
type Backing interface {
	// Bytes returns the current view of the whole region. Its length is
	// always PageCount()*PageSize. The slice returned may change
	// identity after a successful GrowPages call; callers must not
	// retain a Bytes() result across a GrowPages call.
	Bytes() []byte

	// PageCount returns the current size of the region in pages.
	PageCount() uint32

	// GrowPages grows the region by delta pages and returns the new
	// total page count. It fails if the grow would exceed MaxPages or
	// if the underlying host capability refuses it.
	GrowPages(delta uint32) (newTotal uint32, err error)

	// Close releases any resources (file descriptors, mmaps, Wasmer
	// stores) held by the backing region.
	Close() error
}
