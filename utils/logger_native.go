//go:build !js || !wasm

package utils

// redirectLogToBridge is a no-op on native: there is no JS console to mirror to.
func (l *Logger) redirectLogToBridge(level LogLevel, logLine string) {}
