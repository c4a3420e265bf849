// Command walloc-demo exercises the allocator natively: it builds a
// tiered allocator over a Wasmer-backed linear memory region, allocates
// across all three tiers, registers a couple of assets, and prints a
// memory_stats snapshot before shutting down cleanly.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/nathanpotter17/walloc"
	"github.com/nathanpotter17/walloc/arena"
	"github.com/nathanpotter17/walloc/memory"
	"github.com/nathanpotter17/walloc/registry"
	"github.com/nathanpotter17/walloc/utils"
)

// staticFetcher is a stand-in Fetcher for the demo; a real host would
// supply one backed by its own HTTP client.
type staticFetcher struct{}

func (staticFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return []byte("demo-bytes-for:" + url), nil
}

func main() {
	logger := utils.DefaultLogger("walloc-demo")
	shutdown := utils.NewGracefulShutdown(5*time.Second, logger)

	backing, err := memory.NewWasmerBacking(4, 256)
	if err != nil {
		logger.Fatal("failed to create wasmer backing", utils.Err(err))
		os.Exit(1)
	}
	shutdown.Register(backing.Close)

	alloc, err := walloc.New(walloc.Config{
		InitialPages: 0,
		MaxPages:     256,
		Backing:      backing,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal("failed to create allocator", utils.Err(err))
		os.Exit(1)
	}
	shutdown.Register(alloc.Close)

	reg := registry.New(registry.Config{
		Allocator: alloc,
		Fetcher:   staticFetcher{},
		Logger:    logger,
	})

	h, err := alloc.Allocate(arena.Render, 256)
	if err != nil {
		logger.Error("render allocation failed", utils.Err(err))
	} else {
		logger.Info("allocated render block", utils.String("handle", h.String()))
	}

	if _, err := reg.Register("demo.texture", arena.Entity, registry.Binary, []byte("hello walloc"), false); err != nil {
		logger.Error("register failed", utils.Err(err))
	}

	if asset, err := reg.LoadAsset(context.Background(), "assets/model.bin", registry.Binary); err != nil {
		logger.Error("load asset failed", utils.Err(err))
	} else {
		logger.Info("loaded asset", utils.String("key", asset.Key), utils.Uint32("size", asset.Size))
	}

	snap := alloc.Stats()
	out, _ := json.MarshalIndent(snap, "", "  ")
	fmt.Println(string(out))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", utils.Err(err))
	}
}
