// Package registry implements the asset registry layered on top of a
// walloc.Allocator: key-addressed metadata over allocations in any tier,
// with a bloom-filter fast path for negative lookups and a guarded
// Fetcher for loading asset bytes from an external source.
package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/bits-and-blooms/bloom/v3"
	"github.com/dolthub/maphash"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/yasserelgammal/rate-limiter/limiter"
	"github.com/yasserelgammal/rate-limiter/store"

	"github.com/nathanpotter17/walloc/arena"
	"github.com/nathanpotter17/walloc/utils"
)

// ErrNotFound is returned when a key has no registered asset.
var ErrNotFound = errors.New("registry: asset not found")

// AssetType classifies a registered asset's payload.
type AssetType uint8

const (
	Image AssetType = iota
	Json
	Binary
)

// Fetcher is the external collaborator capability used to retrieve raw
// asset bytes for a URL; load_asset never implements HTTP itself, it
// only calls through this interface.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Asset is the registry's metadata record for one key. Data itself lives
// in the allocator; Asset only remembers where.
type Asset struct {
	Key        string
	Type       AssetType
	Tier       arena.Tier
	Handle     arena.Handle
	Size       uint32
	Compressed bool
	Registered time.Time
}

// Allocator is the subset of *walloc.Allocator the registry depends on,
// kept as an interface so registry can be tested without a live arena.
type Allocator interface {
	Allocate(tier arena.Tier, size uint32) (arena.Handle, error)
	Write(tier arena.Tier, h arena.Handle, data []byte) error
	Read(tier arena.Tier, h arena.Handle, length uint32) ([]byte, error)
	Deallocate(tier arena.Tier, h arena.Handle, size uint32) bool
	TierUsed(tier arena.Tier) uint32
	TierOffset(tier arena.Tier, h arena.Handle) uint32
	FastCompactTier(tier arena.Tier, preserveBytes uint32) bool
}

// Registry maps string keys to assets backed by allocator memory.
type Registry struct {
	mu      sync.RWMutex
	alloc   Allocator
	assets  map[uint64]*Asset
	hasher  maphash.Hasher[string]
	exists  *bloom.BloomFilter
	fetcher Fetcher
	limiter *limiter.TokenBucket
	breaker *gobreaker.CircuitBreaker
	baseURL string
	logger  *utils.Logger
}

// Config configures a new Registry.
type Config struct {
	Allocator          Allocator
	Fetcher            Fetcher
	ExpectedAssets     uint
	FalsePositiveRate  float64
	FetchesPerSecond   int64
	FetchBurst         int64
	BreakerMaxFailures uint32
	Logger             *utils.Logger
}

// New constructs a Registry over alloc, wiring a bloom filter sized for
// ExpectedAssets and a rate-limited, circuit-broken path to Fetcher.
func New(cfg Config) *Registry {
	if cfg.ExpectedAssets == 0 {
		cfg.ExpectedAssets = 10000
	}
	if cfg.FalsePositiveRate == 0 {
		cfg.FalsePositiveRate = 0.01
	}
	if cfg.FetchesPerSecond == 0 {
		cfg.FetchesPerSecond = 8
	}
	if cfg.FetchBurst == 0 {
		cfg.FetchBurst = 4
	}
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = 5
	}
	logger := cfg.Logger
	if logger == nil {
		logger = utils.DefaultLogger("registry")
	}

	st := store.NewMemoryStore(time.Minute)
	tb, _ := limiter.NewTokenBucket(
		limiter.Config{
			Rate:     cfg.FetchesPerSecond,
			Duration: time.Second,
			Burst:    cfg.FetchBurst,
		},
		st,
	)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "registry-fetch",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
	})

	return &Registry{
		alloc:   cfg.Allocator,
		assets:  make(map[uint64]*Asset),
		hasher:  maphash.NewHasher[string](),
		exists:  bloom.NewWithEstimates(cfg.ExpectedAssets, cfg.FalsePositiveRate),
		fetcher: cfg.Fetcher,
		limiter: tb,
		breaker: breaker,
		logger:  logger,
	}
}

// SetBaseURL sets the prefix load_asset resolves relative keys against.
func (r *Registry) SetBaseURL(base string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.baseURL = base
}

func (r *Registry) keyHash(key string) uint64 {
	return r.hasher.Hash(key)
}

// Register allocates space for data in tier, writes it, and inserts or
// replaces the metadata entry for key. Replacing an existing key does
// not reclaim the prior entry's memory — there is no per-object free —
// so repeated re-registration under the same key leaks the old region
// until its tier is compacted or reset.
func (r *Registry) Register(key string, tier arena.Tier, assetType AssetType, data []byte, compressed bool) (*Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, err := r.alloc.Allocate(tier, uint32(len(data)))
	if err != nil {
		return nil, fmt.Errorf("registry: allocate for %q: %w", key, err)
	}
	if err := r.alloc.Write(tier, h, data); err != nil {
		return nil, fmt.Errorf("registry: write for %q: %w", key, err)
	}

	asset := &Asset{
		Key:        key,
		Type:       assetType,
		Tier:       tier,
		Handle:     h,
		Size:       uint32(len(data)),
		Compressed: compressed,
		Registered: time.Now(),
	}
	r.assets[r.keyHash(key)] = asset
	r.exists.Add([]byte(key))
	r.logger.Debug("asset registered", utils.String("key", key), utils.Uint32("size", asset.Size))
	return asset, nil
}

// Get returns the metadata record for key, or ErrNotFound.
func (r *Registry) Get(key string) (*Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.exists.Test([]byte(key)) {
		return nil, ErrNotFound
	}
	asset, ok := r.assets[r.keyHash(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return asset, nil
}

// GetData returns a copy of the raw bytes backing key, decompressing
// with brotli if the asset was registered compressed.
func (r *Registry) GetData(key string) ([]byte, error) {
	asset, err := r.Get(key)
	if err != nil {
		return nil, err
	}
	raw, err := r.alloc.Read(asset.Tier, asset.Handle, asset.Size)
	if err != nil {
		return nil, fmt.Errorf("registry: read %q: %w", key, err)
	}
	if !asset.Compressed {
		return raw, nil
	}
	reader := brotli.NewReader(bytes.NewReader(raw))
	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("registry: decompress %q: %w", key, err)
	}
	return out, nil
}

// Evict removes key's metadata and returns its allocation's size class to
// the free list. If the evicted region happens to be the tail of its
// arena, it additionally fast-compacts back to the region's start,
// reclaiming the space immediately instead of waiting on the free list.
func (r *Registry) Evict(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kh := r.keyHash(key)
	asset, ok := r.assets[kh]
	if !ok {
		return ErrNotFound
	}
	r.alloc.Deallocate(asset.Tier, asset.Handle, asset.Size)

	localOffset := r.alloc.TierOffset(asset.Tier, asset.Handle)
	if r.alloc.TierUsed(asset.Tier) == localOffset+asset.Size {
		r.alloc.FastCompactTier(asset.Tier, localOffset)
	}

	delete(r.assets, kh)
	return nil
}

// EvictBatch evicts every key in keys, collecting but not stopping on
// individual errors.
func (r *Registry) EvictBatch(keys []string) []error {
	errs := make([]error, 0, len(keys))
	for _, k := range keys {
		if err := r.Evict(k); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// LoadAsset fetches path (resolved against baseURL) through the rate
// limiter and circuit breaker, then registers the result in the Scene
// (Middle) tier under key = path, matching the fixed tier the host-level
// load_asset contract always targets.
func (r *Registry) LoadAsset(ctx context.Context, path string, assetType AssetType) (*Asset, error) {
	if r.fetcher == nil {
		return nil, errors.New("registry: no fetcher configured")
	}

	requestID := uuid.NewString()
	if !r.limiter.Allow(path) {
		return nil, errors.New("registry: fetch rate limit exceeded")
	}

	r.logger.Debug("fetch started", utils.String("request_id", requestID), utils.String("path", path))
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.fetcher.Fetch(ctx, r.resolveURL(path))
	})
	if err != nil {
		return nil, fmt.Errorf("registry: fetch %q: %w", path, err)
	}

	data, _ := result.([]byte)
	return r.Register(path, arena.Scene, assetType, data, false)
}

// LoadAssetZeroCopy ingests a caller-owned buffer directly into tier with a
// single in-arena allocate-then-write, skipping both the fetch path and the
// registry's key→Asset bookkeeping. Unlike LoadAsset, which always fetches
// over the network and always targets Scene, this never touches the
// network and writes to whatever tier the caller chooses.
func (r *Registry) LoadAssetZeroCopy(data []byte, tier arena.Tier) (arena.Handle, error) {
	h, err := r.alloc.Allocate(tier, uint32(len(data)))
	if err != nil {
		return arena.NullHandle, fmt.Errorf("registry: allocate zero-copy: %w", err)
	}
	if err := r.alloc.Write(tier, h, data); err != nil {
		return arena.NullHandle, fmt.Errorf("registry: write zero-copy: %w", err)
	}
	return h, nil
}

func (r *Registry) resolveURL(url string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.baseURL == "" || (len(url) > 0 && (url[0] == '/' || bytes.Contains([]byte(url), []byte("://")))) {
		return url
	}
	return r.baseURL + url
}
