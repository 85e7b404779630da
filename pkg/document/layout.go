package document

import (
	"math"

	log "github.com/sirupsen/logrus"
)

type layoutKey struct {
	rotation int
	gap      int
	count    int
}

// LayoutEntry is one page's placement in a virtual layout, in unzoomed
// pixel units.
type LayoutEntry struct {
	Page          int
	NativeY       int
	RotatedY      int
	NativeWidth   int
	NativeHeight  int
	RotatedWidth  int
	RotatedHeight int
}

// Layout stacks every page vertically for one rotation, with the
// configured gap between consecutive pages. A layout is immutable once
// built; structural changes produce a replacement instead of patching.
type Layout struct {
	Rotation           int
	Gap                int
	Entries            []LayoutEntry
	NativeTotalHeight  int
	RotatedTotalHeight int
	RotatedMaxWidth    int
}

// VisiblePage is one page intersecting a viewport window, with its band
// and the visible sub-range in zoomed document coordinates.
type VisiblePage struct {
	Page       int
	Top        float64
	Bottom     float64
	ClipTop    float64
	ClipBottom float64
}

// EnsureLayout returns the memoized layout for a rotation, building it if
// needed. Rebuild cost is linear in the page count.
func (d *Document) EnsureLayout(rotation int) *Layout {
	rotation = normalizeRotation(rotation)

	d.mu.RLock()
	key := layoutKey{rotation: rotation, gap: d.gap, count: len(d.pages)}
	if l, ok := d.layouts[key]; ok {
		d.mu.RUnlock()
		return l
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	key = layoutKey{rotation: rotation, gap: d.gap, count: len(d.pages)}
	if l, ok := d.layouts[key]; ok {
		return l
	}
	l := d.buildLayout(rotation, d.gap)
	d.layouts[key] = l
	return l
}

// buildLayout assembles a fresh layout. The caller holds d.mu.
func (d *Document) buildLayout(rotation, gap int) *Layout {
	l := &Layout{
		Rotation: rotation,
		Gap:      gap,
		Entries:  make([]LayoutEntry, 0, len(d.pages)),
	}

	nativeY, rotatedY := 0, 0
	for i, p := range d.pages {
		w, h := p.width, p.height
		if !p.resolved {
			w, h = PlaceholderWidth, PlaceholderHeight
		}
		rw, rh := rotatedDims(w, h, rotation)

		l.Entries = append(l.Entries, LayoutEntry{
			Page:          i + 1,
			NativeY:       nativeY,
			RotatedY:      rotatedY,
			NativeWidth:   w,
			NativeHeight:  h,
			RotatedWidth:  rw,
			RotatedHeight: rh,
		})

		nativeY += h
		rotatedY += rh
		if i < len(d.pages)-1 {
			nativeY += gap
			rotatedY += gap
		}
		if rw > l.RotatedMaxWidth {
			l.RotatedMaxWidth = rw
		}
	}

	l.NativeTotalHeight = nativeY
	l.RotatedTotalHeight = rotatedY
	return l
}

// VirtualHeight returns the document's total height at a zoom factor, in
// zoomed pixels.
func (d *Document) VirtualHeight(zoom float64, rotation int) float64 {
	if zoom <= 0 {
		zoom = 1.0
	}
	return float64(d.EnsureLayout(rotation).RotatedTotalHeight) * zoom
}

// VisiblePagesAtOffset returns every page whose band intersects the window
// [offset, offset+viewportHeight), in document order. An empty result for
// an offset inside the document is treated as layout staleness and
// triggers exactly one rebuild-and-retry; if the retry also comes up
// empty the caller skips painting that frame.
func (d *Document) VisiblePagesAtOffset(offset, viewportHeight, zoom float64, rotation int) []VisiblePage {
	if viewportHeight <= 0 || d.PageCount() == 0 {
		return nil
	}
	if zoom <= 0 {
		zoom = 1.0
	}

	layout := d.EnsureLayout(rotation)
	visible := scanVisible(layout, offset, viewportHeight, zoom)
	if len(visible) > 0 {
		return visible
	}

	total := float64(layout.RotatedTotalHeight) * zoom
	if offset < 0 || offset >= total {
		return nil
	}

	log.WithField("offset", offset).Warn("document: no visible pages for a valid offset, rebuilding layout")
	d.invalidateLayouts()
	layout = d.EnsureLayout(rotation)
	return scanVisible(layout, offset, viewportHeight, zoom)
}

func scanVisible(layout *Layout, offset, viewportHeight, zoom float64) []VisiblePage {
	var visible []VisiblePage
	viewBottom := offset + viewportHeight

	for _, e := range layout.Entries {
		top := float64(e.RotatedY) * zoom
		bottom := top + float64(e.RotatedHeight)*zoom
		if bottom <= offset {
			continue
		}
		if top >= viewBottom {
			break
		}
		visible = append(visible, VisiblePage{
			Page:       e.Page,
			Top:        top,
			Bottom:     bottom,
			ClipTop:    math.Max(top, offset),
			ClipBottom: math.Min(bottom, viewBottom),
		})
	}
	return visible
}

// ScrollPositionForPage returns the scroll offset of a page's top edge in
// zoomed pixels. The page number is clamped to the document.
func (d *Document) ScrollPositionForPage(page int, zoom float64, rotation int) float64 {
	count := d.PageCount()
	if count == 0 {
		return 0
	}
	if zoom <= 0 {
		zoom = 1.0
	}
	if page < 1 {
		page = 1
	}
	if page > count {
		page = count
	}

	layout := d.EnsureLayout(rotation)
	return float64(layout.Entries[page-1].RotatedY) * zoom
}

// PageAtOffset returns the page containing a scroll offset. Ownership of
// each band runs from a page's top to the next page's top, so an offset
// inside an inter-page gap resolves to the page above it. Offsets at or
// past the document end clamp to the last page.
func (d *Document) PageAtOffset(offset, zoom float64, rotation int) int {
	count := d.PageCount()
	if count == 0 {
		return 0
	}
	if zoom <= 0 {
		zoom = 1.0
	}
	if offset <= 0 {
		return 1
	}

	layout := d.EnsureLayout(rotation)
	if offset >= float64(layout.RotatedTotalHeight)*zoom {
		return count
	}

	page := 1
	for _, e := range layout.Entries {
		if float64(e.RotatedY)*zoom > offset {
			break
		}
		page = e.Page
	}
	return page
}

// rotatedDims swaps width and height for quarter turns.
func rotatedDims(w, h, rotation int) (int, int) {
	if rotation == 90 || rotation == 270 {
		return h, w
	}
	return w, h
}

// normalizeRotation maps any degree value onto {0, 90, 180, 270}.
func normalizeRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return (deg / 90 * 90) % 360
}
