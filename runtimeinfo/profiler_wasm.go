//go:build js && wasm

package runtimeinfo

import (
	"syscall/js"
	"time"

	"github.com/nathanpotter17/walloc/utils"
)

// Profiler measures the runtime environment when compiled for js/wasm,
// where these signals come from the browser rather than the OS.
type Profiler struct{}

func NewProfiler() *Profiler { return &Profiler{} }

// Profile runs the measurement suite and returns the host's capabilities.
func (p *Profiler) Profile() Capabilities {
	caps := Capabilities{
		ComputeScore:    p.measureCompute(),
		AtomicsOverhead: p.measureAtomicsOverhead(),
		IsHeadless:      p.detectHeadless(),
		HasSIMD:         p.detectSIMD(),
	}

	utils.Debug("runtimeinfo: profile complete",
		utils.Float64("compute_score", caps.ComputeScore),
		utils.Bool("headless", caps.IsHeadless),
		utils.Bool("simd", caps.HasSIMD),
	)
	return caps
}

// measureCompute runs a small Sieve of Eratosthenes as an integer-throughput proxy.
func (p *Profiler) measureCompute() float64 {
	start := time.Now()
	const n = 100000
	isComposite := make([]bool, n+1)
	for i := 2; i*i <= n; i++ {
		if !isComposite[i] {
			for j := i * i; j <= n; j += i {
				isComposite[j] = true
			}
		}
	}
	duration := time.Since(start)
	baseline := 10 * time.Millisecond
	if duration == 0 {
		return 2.0
	}
	return float64(baseline) / float64(duration)
}

// measureAtomicsOverhead proxies Atomics.wait cost with a JS call round trip.
func (p *Profiler) measureAtomicsOverhead() time.Duration {
	start := time.Now()
	const iterations = 1000
	global := js.Global()
	for i := 0; i < iterations; i++ {
		_ = global.Get("undefined")
	}
	return time.Since(start) / iterations
}

func (p *Profiler) detectHeadless() bool {
	navigator := js.Global().Get("navigator")
	if !navigator.Truthy() {
		return true
	}
	webdriver := navigator.Get("webdriver")
	return webdriver.Truthy() || navigator.Get("userAgent").String() == ""
}

func (p *Profiler) detectSIMD() bool {
	return js.Global().Get("WebAssembly").Truthy()
}
