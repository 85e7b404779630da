package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/alde/mangaview/pkg/tile"
)

// placeholderGray fills tile slots whose pixels are not available yet.
var placeholderGray = image.NewUniform(color.NRGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff})

// RenderPageTiles materializes every missing grid tile of a page into the
// cache, returning how many it rendered. Already-resident tiles are left
// untouched.
func (r *Renderer) RenderPageTiles(page int, zoom float64, rotation int) int {
	if page < 1 || page > r.doc.PageCount() {
		return 0
	}

	r.BeginBatch(page, rotation)
	defer r.EndBatch()

	w, h := r.pageDims(page, rotation)
	rendered := 0
	for _, rect := range tile.Grid(w, h, r.opts.TileSize) {
		rect := rect
		if r.tiles.ContainsNative(r.nativeKey(page, rect, rotation)) {
			continue
		}
		if r.Render(page, &rect, zoom, rotation) == nil {
			break
		}
		rendered++
	}
	return rendered
}

// PageTilesCached reports how many of a page's grid tiles are resident in
// the native pool, and the grid's total tile count.
func (r *Renderer) PageTilesCached(page, rotation int) (int, int) {
	if page < 1 || page > r.doc.PageCount() {
		return 0, 0
	}

	w, h := r.pageDims(page, rotation)
	rects := tile.Grid(w, h, r.opts.TileSize)

	cached := 0
	for _, rect := range rects {
		if r.tiles.ContainsNative(r.nativeKey(page, rect, rotation)) {
			cached++
		}
	}
	return cached, len(rects)
}

// DrawTiled paints the tiles covering clip, a region of the page in
// rotated native coordinates, into dst with the region's zoomed top-left
// corner at the given point. Slots whose tile cannot be produced are
// filled flat gray. It reports how many real tiles were painted and
// whether the region was completely covered by them.
func (r *Renderer) DrawTiled(dst draw.Image, page int, zoom float64, rotation int, clip image.Rectangle, at image.Point) (int, bool) {
	if dst == nil || page < 1 || page > r.doc.PageCount() {
		return 0, false
	}
	if zoom <= 0 {
		zoom = 1.0
	}

	r.BeginBatch(page, rotation)
	defer r.EndBatch()

	w, h := r.pageDims(page, rotation)
	cells := tile.GridCovering(w, h, r.opts.TileSize, clip)
	if len(cells) == 0 {
		return 0, false
	}

	screenClip := image.Rect(
		at.X,
		at.Y,
		at.X+scalePx(clip.Dx(), zoom),
		at.Y+scalePx(clip.Dy(), zoom),
	)

	painted := 0
	for _, cell := range cells {
		cell := cell
		t := r.Render(page, &cell, zoom, rotation)

		minX := at.X + scalePx(cell.Min.X-clip.Min.X, zoom)
		minY := at.Y + scalePx(cell.Min.Y-clip.Min.Y, zoom)
		cellScreen := image.Rect(minX, minY, minX+scalePx(cell.Dx(), zoom), minY+scalePx(cell.Dy(), zoom))

		destRect := cellScreen.Intersect(screenClip)
		if destRect.Empty() {
			continue
		}

		if t == nil {
			draw.Draw(dst, destRect, placeholderGray, image.Point{}, draw.Src)
			continue
		}

		src := t.Image.Bounds().Min.Add(destRect.Min.Sub(cellScreen.Min))
		draw.Draw(dst, destRect, t.Image, src, draw.Src)
		painted++
	}
	return painted, painted == len(cells)
}

func scalePx(v int, zoom float64) int {
	return int(math.Round(float64(v) * zoom))
}
