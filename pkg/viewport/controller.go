// Package viewport tracks how the virtual document is framed on screen:
// view mode, zoom, rotation, pan center and scroll position.
//
// Setters clamp their input, treat unchanged values as no-ops, and mark
// the controller dirty only when the change affects geometry. Committed
// changes are posted to registered listeners; listeners must be cheap
// (the prefetch scheduler just drops the event into a mailbox).
package viewport

import (
	"image/color"
	"math"
	"sync"

	"github.com/alde/mangaview/pkg/document"
	"github.com/alde/mangaview/pkg/tile"
)

// Mode selects how pages are presented.
type Mode int

const (
	ModePage Mode = iota
	ModeScroll
	ModeDual
)

func (m Mode) String() string {
	switch m {
	case ModePage:
		return "page"
	case ModeScroll:
		return "scroll"
	case ModeDual:
		return "dual"
	default:
		return "unknown"
	}
}

// ZoomMode selects how the zoom factor is derived from the viewport.
type ZoomMode int

const (
	ZoomFull ZoomMode = iota
	ZoomWidth
	ZoomHeight
)

func (z ZoomMode) String() string {
	switch z {
	case ZoomFull:
		return "full"
	case ZoomWidth:
		return "width"
	case ZoomHeight:
		return "height"
	default:
		return "unknown"
	}
}

// Direction is the reading direction. It decides which physical page of a
// spread renders on the visual left, nothing else.
type Direction int

const (
	LTR Direction = iota
	RTL
)

// Event describes a committed navigation.
type Event struct {
	Page        int
	PageChanged bool
}

const (
	ratioEpsilon  = 1e-3
	scrollEpsilon = 0.5
)

// Controller is the single writer of viewport state. It is safe for
// concurrent use; readers like the prefetch scheduler may query it from
// other goroutines.
type Controller struct {
	doc   *document.Document
	tiles *tile.Cache

	mu           sync.Mutex
	mode         Mode
	zoomMode     ZoomMode
	rotation     int
	direction    Direction
	currentPage  int
	scrollOffset float64
	centerX      float64
	centerY      float64
	viewportW    int
	viewportH    int
	background   color.NRGBA
	dirty        bool
	listeners    []func(Event)
}

// NewController creates a controller over a document. tiles may be nil;
// when present its scaled pool is invalidated whenever zoom geometry or
// rotation changes.
func NewController(doc *document.Document, tiles *tile.Cache) *Controller {
	c := &Controller{
		doc:        doc,
		tiles:      tiles,
		centerX:    0.5,
		centerY:    0.5,
		background: color.NRGBA{R: 0x30, G: 0x30, B: 0x30, A: 0xff},
		dirty:      true,
	}
	if doc.PageCount() > 0 {
		c.currentPage = 1
	}
	return c
}

// AddListener registers a callback for committed navigations.
func (c *Controller) AddListener(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Controller) notify(ev Event) {
	c.mu.Lock()
	listeners := make([]func(Event), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

func (c *Controller) invalidateScaled() {
	if c.tiles != nil {
		c.tiles.InvalidateScaled()
	}
}

// Mode returns the current view mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetViewMode switches between page, scroll and dual presentation.
func (c *Controller) SetViewMode(mode Mode) {
	c.mu.Lock()
	if mode == c.mode {
		c.mu.Unlock()
		return
	}
	c.mode = mode
	c.dirty = true
	page := c.currentPage
	c.mu.Unlock()

	c.notify(Event{Page: page})
}

// ZoomMode returns the current zoom mode.
func (c *Controller) ZoomMode() ZoomMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.zoomMode
}

// SetZoomMode switches how zoom is derived. The scaled tile pool is
// dropped since its entries are keyed to the previous zoom.
func (c *Controller) SetZoomMode(mode ZoomMode) {
	c.mu.Lock()
	if mode == c.zoomMode {
		c.mu.Unlock()
		return
	}
	c.zoomMode = mode
	c.dirty = true
	page := c.currentPage
	c.mu.Unlock()

	c.invalidateScaled()
	c.notify(Event{Page: page})
}

// Rotation returns the current rotation in degrees.
func (c *Controller) Rotation() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rotation
}

// SetRotation rotates the whole document by quarter turns.
func (c *Controller) SetRotation(deg int) {
	deg = normalizeRotation(deg)

	c.mu.Lock()
	if deg == c.rotation {
		c.mu.Unlock()
		return
	}
	c.rotation = deg
	c.dirty = true
	page := c.currentPage
	c.mu.Unlock()

	c.invalidateScaled()
	c.notify(Event{Page: page})
}

// Direction returns the reading direction.
func (c *Controller) Direction() Direction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.direction
}

// SetDirection flips the reading direction. Pairing is unaffected; only
// the visual order of spreads changes.
func (c *Controller) SetDirection(dir Direction) {
	c.mu.Lock()
	if dir == c.direction {
		c.mu.Unlock()
		return
	}
	c.direction = dir
	c.dirty = true
	c.mu.Unlock()
}

// Background returns the canvas background color.
func (c *Controller) Background() color.NRGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.background
}

// SetBackground changes the canvas color behind pages. It never dirties
// the layout; no geometry depends on it.
func (c *Controller) SetBackground(bg color.NRGBA) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.background = bg
}

// ViewportSize returns the viewport dimensions in pixels.
func (c *Controller) ViewportSize() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewportW, c.viewportH
}

// SetViewportSize records the on-screen canvas size.
func (c *Controller) SetViewportSize(w, h int) {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}

	c.mu.Lock()
	if w == c.viewportW && h == c.viewportH {
		c.mu.Unlock()
		return
	}
	c.viewportW = w
	c.viewportH = h
	c.dirty = true
	page := c.currentPage
	c.mu.Unlock()

	c.invalidateScaled()
	c.notify(Event{Page: page})
}

// CurrentPage returns the page the reader is on.
func (c *Controller) CurrentPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentPage
}

// SetPage turns to a page. In scroll mode the scroll offset snaps to the
// page's top edge.
func (c *Controller) SetPage(page int) {
	count := c.doc.PageCount()
	if count == 0 {
		return
	}
	if page < 1 {
		page = 1
	}
	if page > count {
		page = count
	}

	c.mu.Lock()
	if page == c.currentPage {
		c.mu.Unlock()
		return
	}
	c.currentPage = page
	c.dirty = true
	mode := c.mode
	rotation := c.rotation
	c.mu.Unlock()

	if mode == ModeScroll {
		offset := c.doc.ScrollPositionForPage(page, c.Zoom(), rotation)
		c.mu.Lock()
		c.scrollOffset = offset
		c.mu.Unlock()
	}

	c.notify(Event{Page: page, PageChanged: true})
}

// ScrollOffset returns the current scroll position in zoomed pixels.
func (c *Controller) ScrollOffset() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scrollOffset
}

// SetScrollOffset moves the scroll position, clamped to the document.
// Sub-pixel deltas are ignored so floating-point noise cannot churn the
// layout.
func (c *Controller) SetScrollOffset(offset float64) {
	max := c.MaxScroll()
	if offset < 0 {
		offset = 0
	}
	if offset > max {
		offset = max
	}

	c.mu.Lock()
	if math.Abs(offset-c.scrollOffset) < scrollEpsilon {
		c.mu.Unlock()
		return
	}
	c.scrollOffset = offset
	c.dirty = true
	rotation := c.rotation
	prevPage := c.currentPage
	c.mu.Unlock()

	page := c.doc.PageAtOffset(offset, c.Zoom(), rotation)
	c.mu.Lock()
	c.currentPage = page
	c.mu.Unlock()

	c.notify(Event{Page: page, PageChanged: page != prevPage})
}

// Center returns the pan center ratios.
func (c *Controller) Center() (float64, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.centerX, c.centerY
}

// SetCenter pans the view. Ratios are clamped to [0, 1].
func (c *Controller) SetCenter(cx, cy float64) {
	cx = clampRatio(cx)
	cy = clampRatio(cy)

	c.mu.Lock()
	defer c.mu.Unlock()
	if math.Abs(cx-c.centerX) < ratioEpsilon && math.Abs(cy-c.centerY) < ratioEpsilon {
		return
	}
	c.centerX = cx
	c.centerY = cy
	c.dirty = true
}

// Dirty reports whether geometry changed since the last ClearDirty.
func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// ClearDirty acknowledges the current geometry, typically after a paint.
func (c *Controller) ClearDirty() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = false
}

// ZoomForPage computes the zoom fitting one page to the viewport under
// the current zoom mode. Degenerate viewports yield the identity zoom.
func (c *Controller) ZoomForPage(page int) float64 {
	c.mu.Lock()
	vw, vh := c.viewportW, c.viewportH
	zoomMode := c.zoomMode
	rotation := c.rotation
	c.mu.Unlock()

	return c.zoomFor(page, vw, vh, zoomMode, rotation)
}

func (c *Controller) zoomFor(page, vw, vh int, zoomMode ZoomMode, rotation int) float64 {
	if vw <= 0 || vh <= 0 {
		return 1.0
	}

	w, h := c.doc.CurrentDimensions(page)
	w, h = rotatedDims(w, h, rotation)
	if w <= 0 || h <= 0 {
		return 1.0
	}

	switch zoomMode {
	case ZoomWidth:
		return float64(vw) / float64(w)
	case ZoomHeight:
		return float64(vh) / float64(h)
	default:
		return math.Min(float64(vw)/float64(w), float64(vh)/float64(h))
	}
}

// Zoom returns the effective zoom factor for the current state. In
// continuous scroll with width zoom it is computed once against the
// widest page, so pages never jump in width mid-scroll. In dual mode the
// spread's tighter page wins.
func (c *Controller) Zoom() float64 {
	c.mu.Lock()
	vw, vh := c.viewportW, c.viewportH
	mode := c.mode
	zoomMode := c.zoomMode
	rotation := c.rotation
	page := c.currentPage
	c.mu.Unlock()

	if vw <= 0 || vh <= 0 {
		return 1.0
	}

	switch mode {
	case ModeScroll:
		if zoomMode == ZoomWidth {
			maxWidth := c.doc.EnsureLayout(rotation).RotatedMaxWidth
			if maxWidth <= 0 {
				return 1.0
			}
			return float64(vw) / float64(maxWidth)
		}
		return c.zoomFor(page, vw, vh, zoomMode, rotation)

	case ModeDual:
		spread := c.SpreadFor(page)
		if spread.Right == SoloPage {
			return c.zoomFor(spread.Left, vw, vh, zoomMode, rotation)
		}
		left := c.zoomFor(spread.Left, vw/2, vh, zoomMode, rotation)
		right := c.zoomFor(spread.Right, vw/2, vh, zoomMode, rotation)
		return math.Min(left, right)

	default:
		return c.zoomFor(page, vw, vh, zoomMode, rotation)
	}
}

// MaxScroll returns the largest valid scroll offset for the current zoom.
func (c *Controller) MaxScroll() float64 {
	c.mu.Lock()
	vh := c.viewportH
	rotation := c.rotation
	c.mu.Unlock()

	max := c.doc.VirtualHeight(c.Zoom(), rotation) - float64(vh)
	if max < 0 {
		return 0
	}
	return max
}

// VisiblePages returns the pages the reader can currently see, in
// document order.
func (c *Controller) VisiblePages() []int {
	c.mu.Lock()
	mode := c.mode
	page := c.currentPage
	offset := c.scrollOffset
	vh := c.viewportH
	rotation := c.rotation
	c.mu.Unlock()

	switch mode {
	case ModeScroll:
		visible := c.doc.VisiblePagesAtOffset(offset, float64(vh), c.Zoom(), rotation)
		pages := make([]int, 0, len(visible))
		for _, v := range visible {
			pages = append(pages, v.Page)
		}
		return pages

	case ModeDual:
		spread := c.SpreadFor(page)
		if spread.Left == 0 {
			return nil
		}
		if spread.Right == SoloPage {
			return []int{spread.Left}
		}
		return []int{spread.Left, spread.Right}

	default:
		if page == 0 {
			return nil
		}
		return []int{page}
	}
}

// DocToScreen maps a point in unzoomed document coordinates to screen
// pixels under the current zoom, pan and scroll.
func (c *Controller) DocToScreen(x, y float64) (float64, float64) {
	zoom := c.Zoom()
	return x*zoom - c.panX(zoom), y*zoom - c.ScrollOffset()
}

// ScreenToDoc is the inverse of DocToScreen.
func (c *Controller) ScreenToDoc(x, y float64) (float64, float64) {
	zoom := c.Zoom()
	if zoom <= 0 {
		zoom = 1.0
	}
	return (x + c.panX(zoom)) / zoom, (y + c.ScrollOffset()) / zoom
}

// panX returns the horizontal offset subtracted from zoomed document x.
// Content narrower than the viewport is centered; wider content pans by
// the center ratio, 0 flush left through 1 flush right.
func (c *Controller) panX(zoom float64) float64 {
	c.mu.Lock()
	vw := c.viewportW
	rotation := c.rotation
	cx := c.centerX
	c.mu.Unlock()

	content := float64(c.doc.EnsureLayout(rotation).RotatedMaxWidth) * zoom
	overflow := content - float64(vw)
	if overflow <= 0 {
		return overflow / 2
	}
	return cx * overflow
}

func clampRatio(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func rotatedDims(w, h, rotation int) (int, int) {
	if rotation == 90 || rotation == 270 {
		return h, w
	}
	return w, h
}

func normalizeRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return (deg / 90 * 90) % 360
}
