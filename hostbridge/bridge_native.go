//go:build !js || !wasm

// Package hostbridge exposes walloc's allocator and registry to the host
// JavaScript environment; on native targets there is no host to bridge
// to, so Install is a documented no-op kept only so callers can build
// the same main.go for both targets.
package hostbridge

import (
	"github.com/nathanpotter17/walloc"
	"github.com/nathanpotter17/walloc/registry"
)

// Install is a no-op outside js/wasm.
func Install(alloc *walloc.Allocator, reg *registry.Registry) {}
