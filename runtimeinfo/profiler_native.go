//go:build !js || !wasm

package runtimeinfo

import (
	"runtime"
	"time"
)

// Profiler measures the runtime environment on native targets using
// ordinary Go facilities; there is no browser to ask.
type Profiler struct{}

func NewProfiler() *Profiler { return &Profiler{} }

// Profile returns capabilities derived from GOARCH: every amd64/
// arm64 host is assumed to have a usable wide-vector path, matching the
// real-world baseline the §4.3 table targets.
func (p *Profiler) Profile() Capabilities {
	return Capabilities{
		ComputeScore:    1.0,
		AtomicsOverhead: 100 * time.Nanosecond,
		HasSIMD:         runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64",
		IsHeadless:      true,
	}
}
