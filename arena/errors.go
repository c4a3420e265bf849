package arena

import "errors"

// Sentinel errors surfaced by the arena's allocation path. Per the error
// taxonomy, capacity and growth failures are communicated to callers as a
// null [Handle] rather than thrown; these errors exist for internal
// plumbing between the arena and the tiered allocator that drives growth.
var (
	// ErrCapacityExceeded means the arena's current capacity cannot
	// satisfy the request even after aligning the bump cursor.
	ErrCapacityExceeded = errors.New("arena: capacity exceeded")
	// ErrInvalidHandle means a tier was not valid, or a handle (or a
	// handle plus length) fell outside the owning arena or the backing
	// memory. Arena.Deallocate reports its rejections as false instead.
	ErrInvalidHandle = errors.New("arena: invalid handle")
	// ErrOversize names an oversize request. No function in this module
	// returns it; FastCompact reports a preserve_bytes above capacity by
	// returning false.
	ErrOversize = errors.New("arena: oversize request")
)
