//go:build js && wasm

package utils

import "syscall/js"

// redirectLogToBridge mirrors a formatted log line to the browser's JS
// console so logs are visible in devtools even though stdout is usually
// discarded by the host.
func (l *Logger) redirectLogToBridge(level LogLevel, logLine string) {
	console := js.Global().Get("console")
	if console.Type() == js.TypeNull || console.Type() == js.TypeUndefined {
		return
	}
	method := "log"
	switch level {
	case DEBUG:
		method = "debug"
	case INFO:
		method = "info"
	case WARN:
		method = "warn"
	case ERROR, FATAL:
		method = "error"
	}
	console.Call(method, logLine)
}
