// Package textcache stores oversized text payloads by caller-assigned
// handle. A fast in-memory layer fronts a compressed backing store; the
// bypass read path skips the fast layer entirely, which callers use to
// verify cache coherence or recover after eviction.
package textcache

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Cache is a handle-indexed payload store.
type Cache struct {
	mu      sync.RWMutex
	backing map[uint64][]byte // zstd-compressed authoritative copies
	fast    sync.Map          // uint64 -> string

	// onFastPath fires on every Load with whether the fast layer served it.
	onFastPath func(hit bool)

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// New creates an empty cache.
func New() (*Cache, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &Cache{
		backing: make(map[uint64][]byte),
		enc:     enc,
		dec:     dec,
	}, nil
}

// Store writes text under handle, overwriting any prior entry. Handles are
// caller-assigned (commonly the owning element's index) and stable.
func (c *Cache) Store(handle uint64, text string) {
	compressed := c.enc.EncodeAll([]byte(text), nil)

	c.mu.Lock()
	c.backing[handle] = compressed
	c.mu.Unlock()

	c.fast.Store(handle, text)
}

// SetFastPathHook registers a callback fired on every Load with whether
// the fast layer served it. Used for hit ratio counters.
func (c *Cache) SetFastPathHook(fn func(hit bool)) {
	c.onFastPath = fn
}

// Load reads through the fast layer, falling back to the backing store.
func (c *Cache) Load(handle uint64) (string, bool) {
	if v, ok := c.fast.Load(handle); ok {
		if c.onFastPath != nil {
			c.onFastPath(true)
		}
		return v.(string), true
	}
	if c.onFastPath != nil {
		c.onFastPath(false)
	}
	text, ok := c.loadBacking(handle)
	if ok {
		c.fast.Store(handle, text)
	}
	return text, ok
}

// BypassLoad reads the backing store directly, ignoring the fast layer.
func (c *Cache) BypassLoad(handle uint64) (string, bool) {
	return c.loadBacking(handle)
}

func (c *Cache) loadBacking(handle uint64) (string, bool) {
	c.mu.RLock()
	compressed, ok := c.backing[handle]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}
	raw, err := c.dec.DecodeAll(compressed, nil)
	if err != nil {
		// backing entry is corrupt; treat as absent rather than erroring
		return "", false
	}
	return string(raw), true
}

// EvictFast drops a handle from the fast layer only. The backing copy stays
// authoritative; a subsequent Load repopulates the fast layer from it.
func (c *Cache) EvictFast(handle uint64) {
	c.fast.Delete(handle)
}

// Len reports the number of backing entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.backing)
}
