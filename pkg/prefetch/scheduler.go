// Package prefetch fills the tile cache ahead of the reading position.
//
// The scheduler owns one background goroutine fed by a latest-wins
// mailbox. Navigation setters post and return; the actual rendering
// happens on the scheduler goroutine, so a page turn is never delayed
// by look-ahead work. Each tick recomputes everything from current
// state, which is how stale queued work is superseded rather than
// cancelled.
package prefetch

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/alde/mangaview/pkg/document"
	"github.com/alde/mangaview/pkg/render"
	"github.com/alde/mangaview/pkg/tile"
	"github.com/alde/mangaview/pkg/viewport"
)

const (
	// DefaultMinTiles and DefaultMaxTiles clamp the target buffer depth.
	DefaultMinTiles = 12
	DefaultMaxTiles = 60

	// DefaultPerPageCap bounds how many tiles one tick renders beyond its
	// first page, keeping a single tick's wall-clock cost predictable.
	DefaultPerPageCap = 8

	// DefaultTargetFraction of the cache budget the buffer may aim for.
	DefaultTargetFraction = 0.75
)

// Config tunes the scheduler. The zero value picks the defaults above;
// BytesPerTile defaults to an uncompressed tile at the cache's tile size.
type Config struct {
	MinTiles       int
	MaxTiles       int
	PerPageCap     int
	TargetFraction float64
	BytesPerTile   int64
}

func (cfg Config) withDefaults(tileSize int) Config {
	if cfg.MinTiles <= 0 {
		cfg.MinTiles = DefaultMinTiles
	}
	if cfg.MaxTiles <= 0 {
		cfg.MaxTiles = DefaultMaxTiles
	}
	if cfg.MaxTiles < cfg.MinTiles {
		cfg.MaxTiles = cfg.MinTiles
	}
	if cfg.PerPageCap <= 0 {
		cfg.PerPageCap = DefaultPerPageCap
	}
	if cfg.TargetFraction <= 0 || cfg.TargetFraction > 1 {
		cfg.TargetFraction = DefaultTargetFraction
	}
	if cfg.BytesPerTile <= 0 {
		cfg.BytesPerTile = int64(tileSize) * int64(tileSize) * 4
	}
	return cfg
}

// Scheduler keeps a contiguous run of rendered tiles ahead of the
// reading position, ramping up depth as the reader keeps turning pages.
type Scheduler struct {
	doc   *document.Document
	view  *viewport.Controller
	rend  *render.Renderer
	tiles *tile.Cache
	cfg   Config

	mu      sync.Mutex
	turns   int
	started bool

	wake chan struct{}
	done chan struct{}
	stop sync.Once
	wg   sync.WaitGroup
}

// New creates a scheduler and subscribes it to the controller's
// navigation events.
func New(doc *document.Document, view *viewport.Controller, rend *render.Renderer, tiles *tile.Cache, cfg Config) *Scheduler {
	s := &Scheduler{
		doc:   doc,
		view:  view,
		rend:  rend,
		tiles: tiles,
		cfg:   cfg.withDefaults(tiles.TileSize()),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	view.AddListener(s.onNavigate)
	return s
}

// Start launches the scheduler goroutine.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop()
}

// Stop shuts the scheduler goroutine down and waits for the current
// tick, if any, to finish.
func (s *Scheduler) Stop() {
	s.stop.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

// Notify nudges the scheduler to re-evaluate buffer depth. Posting is
// non-blocking; a pending wake-up absorbs further ones.
func (s *Scheduler) Notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Turns returns how many page changes have been seen since open.
func (s *Scheduler) Turns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turns
}

// RunOnce executes a single prefetch tick synchronously.
func (s *Scheduler) RunOnce() {
	s.tick()
}

func (s *Scheduler) onNavigate(ev viewport.Event) {
	if ev.PageChanged {
		s.mu.Lock()
		s.turns++
		s.mu.Unlock()
	}
	s.Notify()
}

func (s *Scheduler) loop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
			s.tick()
		}
	}
}

// tick renders forward from the first gap after the reading position
// until the contiguous buffer reaches the target depth, the per-tick
// cap is hit, or the document ends.
func (s *Scheduler) tick() {
	count := s.doc.PageCount()
	if count == 0 {
		return
	}

	current := s.currentPage()
	zoom := s.view.Zoom()
	rotation := s.view.Rotation()
	target := s.targetDepth(s.Turns())

	// Count cached tiles on fully covered pages; the first page with a
	// hole is where rendering starts.
	cachedAhead := 0
	next := current + 1
	for next <= count {
		cached, total := s.rend.PageTilesCached(next, rotation)
		if cached < total {
			break
		}
		cachedAhead += cached
		next++
	}
	if next > count || cachedAhead >= target {
		return
	}

	log.WithField("page", next).Debugf("prefetch: depth %d/%d tiles, filling from page %d", cachedAhead, target, next)

	// The first page always renders in full so every tick makes forward
	// progress, even when the page alone blows through the cap.
	batch := s.rend.RenderPageTiles(next, zoom, rotation)

	for page := next + 1; page <= count; page++ {
		if cachedAhead+batch >= target {
			break
		}
		cached, total := s.rend.PageTilesCached(page, rotation)
		missing := total - cached
		if missing == 0 {
			cachedAhead += cached
			continue
		}
		if batch+missing > s.cfg.PerPageCap {
			break
		}
		batch += s.rend.RenderPageTiles(page, zoom, rotation)
	}
}

// currentPage resolves the reading position. In scroll mode that is the
// last page intersecting the viewport, since the reader is headed there.
func (s *Scheduler) currentPage() int {
	if s.view.Mode() == viewport.ModeScroll {
		if pages := s.view.VisiblePages(); len(pages) > 0 {
			return pages[len(pages)-1]
		}
	}
	return s.view.CurrentPage()
}

// targetDepth converts the cache budget into a tile count, clamps it to
// the configured band, then scales it by the ramp: a reader a few pages
// in gets a shallow buffer, a reader deep into the document the full one.
func (s *Scheduler) targetDepth(turns int) int {
	raw := int(float64(s.tiles.Budget()) * s.cfg.TargetFraction / float64(s.cfg.BytesPerTile))
	target := raw
	if target < s.cfg.MinTiles {
		target = s.cfg.MinTiles
	}
	if target > s.cfg.MaxTiles {
		target = s.cfg.MaxTiles
	}

	switch {
	case turns <= 2:
		if target > 3 {
			target = 3
		}
	case turns <= 5:
		target = target * 25 / 100
	case turns <= 10:
		target = target * 50 / 100
	case turns <= 15:
		target = target * 75 / 100
	}
	if target < 1 {
		target = 1
	}
	return target
}
