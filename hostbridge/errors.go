//go:build js && wasm

package hostbridge

import "errors"

var errMissingArgs = errors.New("hostbridge: missing arguments")
