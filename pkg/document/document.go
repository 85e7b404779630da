// Package document models an ordered set of lazily fetched pages as one
// virtual paginated canvas.
//
// Each page starts with placeholder dimensions until its real size is
// learned, either from a source that reports sizes up front, from an
// explicit validation fetch, or as feedback from the first decode. Layouts
// stack pages vertically per rotation and are memoized; any structural
// change discards them wholesale and the next query rebuilds.
package document

import (
	"bytes"
	"fmt"
	"image"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	log "github.com/sirupsen/logrus"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"

	"github.com/alde/mangaview/pkg/source"
)

// Placeholder dimensions stand in for pages whose real size is not yet
// known, so layout and zoom math always have something to work with.
const (
	PlaceholderWidth  = 800
	PlaceholderHeight = 1200
)

type pageState struct {
	width, height int
	resolved      bool
	validated     bool
}

// Document is the virtual canvas over a PageSource. It is safe for
// concurrent use by the paint path and the prefetch scheduler.
type Document struct {
	id    string
	stamp int64
	src   source.PageSource

	mu      sync.RWMutex
	pages   []pageState
	gap     int
	layouts map[layoutKey]*Layout

	fetch singleflight.Group
}

var lastStamp atomic.Int64

// nextStamp returns a strictly increasing open stamp, so two opens in the
// same clock tick still get distinct values.
func nextStamp() int64 {
	for {
		now := time.Now().UnixNano()
		last := lastStamp.Load()
		if now <= last {
			now = last + 1
		}
		if lastStamp.CompareAndSwap(last, now) {
			return now
		}
	}
}

// NewDocument opens a document over src. If the source knows page sizes
// without fetching, they are adopted immediately and no placeholder is
// ever visible for those pages.
func NewDocument(id string, src source.PageSource) *Document {
	d := &Document{
		id:      id,
		stamp:   nextStamp(),
		src:     src,
		pages:   make([]pageState, src.PageCount()),
		layouts: make(map[layoutKey]*Layout),
	}
	if reporter, ok := src.(source.DimensionReporter); ok {
		d.PreloadDimensions(reporter.KnownDimensions())
	}
	return d
}

// ID identifies the document in tile cache keys.
func (d *Document) ID() string {
	return d.id
}

// Stamp distinguishes separate opens of the same document id, so stale
// tiles from an earlier session can never be mistaken for current ones.
func (d *Document) Stamp() int64 {
	return d.stamp
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return len(d.pages)
}

// Gap returns the inter-page gap in unzoomed pixels.
func (d *Document) Gap() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.gap
}

// SetGap changes the inter-page gap. Layouts for other gaps are dropped;
// the memoization key includes the gap, so queries after this call build
// against the new value.
func (d *Document) SetGap(gap int) {
	if gap < 0 {
		gap = 0
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if gap == d.gap {
		return
	}
	d.gap = gap
	for key := range d.layouts {
		if key.gap != gap {
			delete(d.layouts, key)
		}
	}
}

// CurrentDimensions returns the page's dimensions as currently known,
// placeholder included, without triggering any fetch. The renderer clamps
// against these and corrects them after its first decode.
func (d *Document) CurrentDimensions(page int) (int, int) {
	if page < 1 || page > len(d.pages) {
		return PlaceholderWidth, PlaceholderHeight
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	p := d.pages[page-1]
	if !p.resolved {
		return PlaceholderWidth, PlaceholderHeight
	}
	return p.width, p.height
}

// NativeDimensions returns the page's native pixel size. Unresolved pages
// get one best-effort validation (fetch plus header decode); if that fails
// the placeholder size is returned and later decodes may still correct it.
// It never fails, only degrades.
func (d *Document) NativeDimensions(page int) (int, int) {
	if page < 1 || page > len(d.pages) {
		return PlaceholderWidth, PlaceholderHeight
	}

	d.mu.Lock()
	p := d.pages[page-1]
	if p.resolved {
		d.mu.Unlock()
		return p.width, p.height
	}
	if p.validated {
		d.mu.Unlock()
		return PlaceholderWidth, PlaceholderHeight
	}
	// Claim the validation attempt before fetching so a failing page is
	// probed once, not on every query.
	d.pages[page-1].validated = true
	d.mu.Unlock()

	data, err := d.RawBytes(page)
	if err != nil {
		return PlaceholderWidth, PlaceholderHeight
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		log.WithField("page", page).Debugf("document: dimension probe failed: %v", err)
		return PlaceholderWidth, PlaceholderHeight
	}

	d.SetDimensions(page, cfg.Width, cfg.Height)
	return cfg.Width, cfg.Height
}

// SetDimensions records a page's real pixel size, typically fed back by
// the renderer after a decode. A change discards all memoized layouts.
func (d *Document) SetDimensions(page, width, height int) {
	if page < 1 || page > len(d.pages) || width <= 0 || height <= 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	p := &d.pages[page-1]
	if p.resolved && p.width == width && p.height == height {
		return
	}
	p.width = width
	p.height = height
	p.resolved = true
	p.validated = true

	log.WithField("page", page).Debugf("document: dimensions resolved to %dx%d", width, height)
	d.layouts = make(map[layoutKey]*Layout)
}

// PreloadDimensions bulk-accepts externally known page sizes, avoiding the
// placeholder-to-real layout shift for pages covered by the report.
func (d *Document) PreloadDimensions(dims []source.Dimensions) {
	d.mu.Lock()
	defer d.mu.Unlock()

	changed := false
	for _, dim := range dims {
		if dim.Page < 1 || dim.Page > len(d.pages) || dim.Width <= 0 || dim.Height <= 0 {
			continue
		}
		p := &d.pages[dim.Page-1]
		if p.resolved && p.width == dim.Width && p.height == dim.Height {
			continue
		}
		p.width = dim.Width
		p.height = dim.Height
		p.resolved = true
		p.validated = true
		changed = true
	}
	if changed {
		d.layouts = make(map[layoutKey]*Layout)
	}
}

// ResolvedPages counts pages whose real dimensions are known.
func (d *Document) ResolvedPages() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n := 0
	for _, p := range d.pages {
		if p.resolved {
			n++
		}
	}
	return n
}

// RawBytes fetches a page's encoded bytes through the source. Concurrent
// requests for the same page share a single fetch; failures are reported
// to the caller but are never fatal to the document.
func (d *Document) RawBytes(page int) ([]byte, error) {
	if page < 1 || page > len(d.pages) {
		return nil, fmt.Errorf("page number %d out of range (1-%d)", page, len(d.pages))
	}

	v, err, _ := d.fetch.Do(strconv.Itoa(page), func() (interface{}, error) {
		return d.src.Fetch(page)
	})
	if err != nil {
		log.WithField("page", page).Debugf("document: fetch failed: %v", err)
		return nil, fmt.Errorf("failed to fetch page %d: %w", page, err)
	}
	return v.([]byte), nil
}

// Close releases the underlying source.
func (d *Document) Close() error {
	return d.src.Close()
}

func (d *Document) invalidateLayouts() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.layouts = make(map[layoutKey]*Layout)
}
