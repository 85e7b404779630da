package tile

import (
	"sync"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"github.com/alde/mangaview/internal/sysmem"
	"github.com/alde/mangaview/pkg/cache"
)

// Config holds the tunable sizing policy for a Cache. The zero value picks
// the documented defaults; every field can be overridden.
type Config struct {
	// Budget fixes the total byte budget. When zero, the budget is derived
	// from free system memory via MemoryFraction, clamped to [MinBudget,
	// MaxBudget].
	Budget int64

	// MemoryFraction of free system memory to claim when Budget is zero.
	MemoryFraction float64

	// MinBudget and MaxBudget clamp the derived budget.
	MinBudget int64
	MaxBudget int64

	// ScaledFraction of the budget that goes to the scaled pool. Native
	// decodes are the expensive operation, so the native pool gets the
	// remainder. A negative value disables the scaled pool and makes
	// scaled tiles purely transient.
	ScaledFraction float64

	// TileSize is the grid edge length used when pre-splitting pages.
	TileSize int
}

const (
	defaultMemoryFraction = 0.20
	defaultMinBudget      = 32 << 20  // 32 MiB
	defaultMaxBudget      = 256 << 20 // 256 MiB
	defaultScaledFraction = 0.25
)

func (c Config) withDefaults() Config {
	if c.MemoryFraction <= 0 || c.MemoryFraction >= 1 {
		c.MemoryFraction = defaultMemoryFraction
	}
	if c.MinBudget <= 0 {
		c.MinBudget = defaultMinBudget
	}
	if c.MaxBudget < c.MinBudget {
		c.MaxBudget = defaultMaxBudget
	}
	if c.ScaledFraction == 0 || c.ScaledFraction >= 1 {
		c.ScaledFraction = defaultScaledFraction
	}
	if c.ScaledFraction < 0 {
		c.ScaledFraction = 0
	}
	if c.TileSize <= 0 {
		c.TileSize = DefaultTileSize
	}
	return c
}

// resolveBudget computes the total byte budget, sampling free system memory
// once. Probe failures fall back to the minimum budget.
func (c Config) resolveBudget() int64 {
	if c.Budget > 0 {
		return c.Budget
	}

	free, err := sysmem.FreeBytes()
	if err != nil {
		log.Debugf("tile: memory probe unavailable, using minimum budget: %v", err)
		return c.MinBudget
	}

	budget := int64(float64(free) * c.MemoryFraction)
	if budget < c.MinBudget {
		budget = c.MinBudget
	}
	if budget > c.MaxBudget {
		budget = c.MaxBudget
	}
	return budget
}

// Counters aggregates cache traffic since construction.
type Counters struct {
	Hits      int64
	Misses    int64
	Stores    int64
	Evictions int64
}

// Stats is a point-in-time snapshot of the cache, for diagnostics surfaces
// and for the prefetch scheduler's buffer sizing.
type Stats struct {
	Counters
	NativeCount int
	ScaledCount int
	TotalSize   int64
	MaxSize     int64
	Utilization float64
	PagesCached int
}

type pageRef struct {
	doc  string
	page int
}

// Cache holds rendered tiles in two size-bounded pools sharing one budget.
// It is safe for concurrent use; the paint path and the prefetch scheduler
// both go through it.
type Cache struct {
	mu       sync.Mutex
	native   *cache.Store[Key, *Tile]
	scaled   *cache.Store[ScaledKey, *Tile]
	counters Counters
	pages    map[pageRef]int // native tiles per page, for PagesCached
	tileSize int
	budget   int64
}

// NewCache builds a cache sized per cfg. The memory probe runs once, here.
func NewCache(cfg Config) *Cache {
	cfg = cfg.withDefaults()
	budget := cfg.resolveBudget()

	scaledBudget := int64(float64(budget) * cfg.ScaledFraction)
	nativeBudget := budget - scaledBudget

	c := &Cache{
		pages:    make(map[pageRef]int),
		tileSize: cfg.TileSize,
		budget:   budget,
	}
	c.native = cache.New(nativeBudget, c.releaseNative)
	c.scaled = cache.New(scaledBudget, c.releaseScaled)

	log.Debugf("tile: cache budget %s (native %s, scaled %s)",
		humanize.IBytes(uint64(budget)),
		humanize.IBytes(uint64(nativeBudget)),
		humanize.IBytes(uint64(scaledBudget)))
	return c
}

// Budget returns the total byte budget across both pools.
func (c *Cache) Budget() int64 {
	return c.budget
}

// TileSize returns the configured grid edge length.
func (c *Cache) TileSize() int {
	return c.tileSize
}

// GetNative returns the cached native tile for key, if present.
func (c *Cache) GetNative(key Key) (*Tile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.native.Get(key)
	if ok {
		c.counters.Hits++
	} else {
		c.counters.Misses++
	}
	return t, ok
}

// ContainsNative reports presence without promoting the entry or counting
// traffic; the prefetch scheduler uses it for its contiguity walk.
func (c *Cache) ContainsNative(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.native.Contains(key)
}

// SetNative stores a native tile.
func (c *Cache) SetNative(key Key, t *Tile) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ref := pageRef{doc: key.Doc, page: key.Page}
	fresh := !c.native.Contains(key)
	if !c.native.Set(key, t, t.ByteSize()) {
		return false
	}
	c.counters.Stores++
	if fresh {
		c.pages[ref]++
	}
	return true
}

// GetScaled returns the cached scaled tile for key, if present.
func (c *Cache) GetScaled(key ScaledKey) (*Tile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.scaled.Get(key)
	if ok {
		c.counters.Hits++
	} else {
		c.counters.Misses++
	}
	return t, ok
}

// SetScaled stores a scaled tile.
func (c *Cache) SetScaled(key ScaledKey, t *Tile) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.scaled.Set(key, t, t.ByteSize()) {
		return false
	}
	c.counters.Stores++
	return true
}

// InvalidateScaled flushes the scaled pool. Scaled tiles are keyed to one
// zoom factor, so the controller calls this whenever zoom or rotation
// changes.
func (c *Cache) InvalidateScaled() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scaled.Clear()
}

// Clear flushes both pools, releasing every tile.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.native.Clear()
	c.scaled.Clear()
}

// Stats returns a combined snapshot across both pools.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	ns := c.native.Stats()
	ss := c.scaled.Stats()
	total := ns.TotalSize + ss.TotalSize
	max := ns.MaxSize + ss.MaxSize

	util := 0.0
	if max > 0 {
		util = float64(total) / float64(max)
	}

	return Stats{
		Counters:    c.counters,
		NativeCount: ns.Count,
		ScaledCount: ss.Count,
		TotalSize:   total,
		MaxSize:     max,
		Utilization: util,
		PagesCached: len(c.pages),
	}
}

// releaseNative runs inside the store's eviction path with c.mu held.
func (c *Cache) releaseNative(key Key, t *Tile) {
	c.counters.Evictions++
	ref := pageRef{doc: key.Doc, page: key.Page}
	if n := c.pages[ref]; n <= 1 {
		delete(c.pages, ref)
	} else {
		c.pages[ref] = n - 1
	}
}

func (c *Cache) releaseScaled(key ScaledKey, t *Tile) {
	c.counters.Evictions++
}
