//go:build js && wasm

// Package hostbridge exposes walloc's allocator and registry to the host
// JavaScript environment as a flat table of global functions.
package hostbridge

import (
	"context"
	"syscall/js"

	"github.com/nathanpotter17/walloc"
	"github.com/nathanpotter17/walloc/arena"
	"github.com/nathanpotter17/walloc/registry"
	"github.com/nathanpotter17/walloc/utils"
)

var (
	instance     *walloc.Allocator
	assets       *registry.Registry
	bridgeLogger = utils.DefaultLogger("hostbridge")
)

// Install registers every host-visible function on the JS global object.
// Call it once from a wasm main() after constructing alloc and reg.
func Install(alloc *walloc.Allocator, reg *registry.Registry) {
	instance = alloc
	assets = reg

	js.Global().Set("wallocNewWithBaseURL", js.FuncOf(jsNewWithBaseURL))
	js.Global().Set("wallocAllocate", js.FuncOf(jsAllocate))
	js.Global().Set("wallocWriteMemory", js.FuncOf(jsWriteMemory))
	js.Global().Set("wallocGetMemoryView", js.FuncOf(jsGetMemoryView))
	js.Global().Set("wallocFastCompactTier", js.FuncOf(jsFastCompactTier))
	js.Global().Set("wallocResetTier", js.FuncOf(jsResetTier))
	js.Global().Set("wallocRegisterAsset", js.FuncOf(jsRegisterAsset))
	js.Global().Set("wallocGetAssetData", js.FuncOf(jsGetAssetData))
	js.Global().Set("wallocEvictAsset", js.FuncOf(jsEvictAsset))
	js.Global().Set("wallocEvictAssetsBatch", js.FuncOf(jsEvictAssetsBatch))
	js.Global().Set("wallocLoadAsset", js.FuncOf(jsLoadAsset))
	js.Global().Set("wallocLoadAssetZeroCopy", js.FuncOf(jsLoadAssetZeroCopy))
	js.Global().Set("wallocMemoryStats", js.FuncOf(jsMemoryStats))

	bridgeLogger.Info("hostbridge installed")
}

func errValue(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func tierArg(args []js.Value, i int) arena.Tier {
	return arena.Tier(uint8(args[i].Int()))
}

func jsNewWithBaseURL(this js.Value, args []js.Value) interface{} {
	if assets == nil || len(args) < 1 {
		return errValue(errMissingArgs)
	}
	assets.SetBaseURL(args[0].String())
	return js.ValueOf(map[string]interface{}{"success": true})
}

func jsAllocate(this js.Value, args []js.Value) interface{} {
	if instance == nil || len(args) < 2 {
		return errValue(errMissingArgs)
	}
	tier := tierArg(args, 0)
	size := uint32(args[1].Int())
	h, err := instance.Allocate(tier, size)
	if err != nil {
		return errValue(err)
	}
	return js.ValueOf(map[string]interface{}{"handle": float64(uint64(h))})
}

func jsWriteMemory(this js.Value, args []js.Value) interface{} {
	if instance == nil || len(args) < 3 {
		return errValue(errMissingArgs)
	}
	tier := tierArg(args, 0)
	h := arena.Handle(uint64(args[1].Int()))
	data := jsBytesOf(args[2])
	if err := instance.Write(tier, h, data); err != nil {
		return errValue(err)
	}
	return js.ValueOf(map[string]interface{}{"success": true})
}

func jsGetMemoryView(this js.Value, args []js.Value) interface{} {
	if instance == nil || len(args) < 2 {
		return errValue(errMissingArgs)
	}
	offset := uint32(args[0].Int())
	length := uint32(args[1].Int())
	view, err := instance.MemoryView(offset, length)
	if err != nil {
		return errValue(err)
	}
	out := js.Global().Get("Uint8Array").New(len(view))
	js.CopyBytesToJS(out, view)
	return out
}

func jsFastCompactTier(this js.Value, args []js.Value) interface{} {
	if instance == nil || len(args) < 2 {
		return errValue(errMissingArgs)
	}
	tier := tierArg(args, 0)
	preserve := uint32(args[1].Int())
	ok := instance.FastCompactTier(tier, preserve)
	return js.ValueOf(map[string]interface{}{"success": ok})
}

func jsResetTier(this js.Value, args []js.Value) interface{} {
	if instance == nil || len(args) < 1 {
		return errValue(errMissingArgs)
	}
	instance.ResetTier(tierArg(args, 0))
	return js.ValueOf(map[string]interface{}{"success": true})
}

func jsRegisterAsset(this js.Value, args []js.Value) interface{} {
	if assets == nil || len(args) < 5 {
		return errValue(errMissingArgs)
	}
	key := args[0].String()
	assetType := registry.AssetType(uint8(args[1].Int()))
	data := jsBytesOf(args[2])
	tier := tierArg(args, 4)
	compressed := len(args) > 5 && args[5].Bool()
	asset, err := assets.Register(key, tier, assetType, data, compressed)
	if err != nil {
		return errValue(err)
	}
	return js.ValueOf(map[string]interface{}{
		"handle": float64(uint64(asset.Handle)),
		"size":   float64(asset.Size),
	})
}

func jsGetAssetData(this js.Value, args []js.Value) interface{} {
	if assets == nil || len(args) < 1 {
		return errValue(errMissingArgs)
	}
	data, err := assets.GetData(args[0].String())
	if err != nil {
		return errValue(err)
	}
	out := js.Global().Get("Uint8Array").New(len(data))
	js.CopyBytesToJS(out, data)
	return out
}

func jsEvictAsset(this js.Value, args []js.Value) interface{} {
	if assets == nil || len(args) < 1 {
		return errValue(errMissingArgs)
	}
	if err := assets.Evict(args[0].String()); err != nil {
		return errValue(err)
	}
	return js.ValueOf(map[string]interface{}{"success": true})
}

func jsEvictAssetsBatch(this js.Value, args []js.Value) interface{} {
	if assets == nil || len(args) < 1 {
		return errValue(errMissingArgs)
	}
	keys := make([]string, args[0].Length())
	for i := range keys {
		keys[i] = args[0].Index(i).String()
	}
	errs := assets.EvictBatch(keys)
	return js.ValueOf(map[string]interface{}{"evicted": len(keys) - len(errs), "failed": len(errs)})
}

func jsLoadAsset(this js.Value, args []js.Value) interface{} {
	if assets == nil || len(args) < 2 {
		return errValue(errMissingArgs)
	}
	path := args[0].String()
	assetType := registry.AssetType(uint8(args[1].Int()))
	asset, err := assets.LoadAsset(context.Background(), path, assetType)
	if err != nil {
		return errValue(err)
	}
	return js.ValueOf(map[string]interface{}{"handle": float64(uint64(asset.Handle)), "size": float64(asset.Size)})
}

func jsLoadAssetZeroCopy(this js.Value, args []js.Value) interface{} {
	if assets == nil || len(args) < 2 {
		return errValue(errMissingArgs)
	}
	data := jsBytesOf(args[0])
	tier := tierArg(args, 1)
	h, err := assets.LoadAssetZeroCopy(data, tier)
	if err != nil {
		return errValue(err)
	}
	return js.ValueOf(map[string]interface{}{"handle": float64(uint64(h)), "size": float64(len(data))})
}

func jsMemoryStats(this js.Value, args []js.Value) interface{} {
	if instance == nil {
		return errValue(errMissingArgs)
	}
	snap := instance.Stats()
	tiers := make([]interface{}, len(snap.Tiers))
	for i, t := range snap.Tiers {
		tiers[i] = map[string]interface{}{
			"name":           t.Name,
			"used":           float64(t.Used),
			"capacity":       float64(t.Capacity),
			"highWaterMark":  float64(t.HighWaterMark),
			"totalAllocated": float64(t.TotalAllocated),
			"memorySaved":    float64(t.MemorySaved),
		}
	}
	return js.ValueOf(map[string]interface{}{
		"allocatorType":     snap.AllocatorType,
		"pages":             float64(snap.Pages),
		"rawMemorySize":     float64(snap.RawMemorySize),
		"totalSize":         float64(snap.TotalSize),
		"totalUsed":         float64(snap.TotalUsed),
		"memoryUtilization": snap.MemoryUtilization,
		"tiers":             tiers,
	})
}

func jsBytesOf(v js.Value) []byte {
	length := v.Get("length").Int()
	buf := make([]byte, length)
	js.CopyBytesToGo(buf, v)
	return buf
}
