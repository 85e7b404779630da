// Package render produces tiles from document pages.
//
// A page is decoded once at native resolution and kept warm in a small
// decoder cache; every tile of that page is cropped from the same decode.
// Rotation, gamma and grayscale are applied at decode time, so tiles and
// cache keys always live in rotated page coordinates. Scaling to the
// display zoom happens last and is cached separately.
package render

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"
	_ "golang.org/x/image/webp"

	"github.com/alde/mangaview/pkg/document"
	"github.com/alde/mangaview/pkg/tile"
)

const (
	// DefaultDecoderCache is how many decoded pages stay warm.
	DefaultDecoderCache = 4

	// zoomEpsilon bounds how far from 1.0 a zoom factor may stray and
	// still reuse the native tile without resampling.
	zoomEpsilon = 0.001
)

// Options configures a Renderer. The zero value renders neutral color
// tiles at the cache's grid size.
type Options struct {
	// Gamma correction applied at decode; 1.0 is neutral.
	Gamma float64

	// Mode selects color or grayscale output.
	Mode tile.RenderMode

	// TileSize overrides the cache's grid edge length when positive.
	TileSize int

	// DecoderCacheSize bounds the warm decoded-page cache.
	DecoderCacheSize int

	// OnPageError is notified the first time a page fails to fetch or
	// decode; repeated failures of the same page stay silent.
	OnPageError func(page int, err error)
}

type decoderKey struct {
	page     int
	rotation int
}

// decodedPage is a fully decoded page with rotation, gamma and grayscale
// already applied.
type decodedPage struct {
	img       *image.NRGBA
	createdAt time.Time
}

// Renderer turns page rectangles into tiles, backed by the tile cache and
// the warm decoder cache. It is safe for concurrent use.
type Renderer struct {
	doc   *document.Document
	tiles *tile.Cache
	opts  Options

	mu       sync.Mutex
	decoders *lru.Cache[decoderKey, *decodedPage]
	pinKey   decoderKey
	pinned   *decodedPage
	notified map[int]bool
}

// NewRenderer creates a renderer over a document and its tile cache.
func NewRenderer(doc *document.Document, tiles *tile.Cache, opts Options) *Renderer {
	if opts.Gamma <= 0 {
		opts.Gamma = 1.0
	}
	if opts.DecoderCacheSize <= 0 {
		opts.DecoderCacheSize = DefaultDecoderCache
	}
	if opts.TileSize <= 0 {
		opts.TileSize = tiles.TileSize()
	}

	r := &Renderer{
		doc:      doc,
		tiles:    tiles,
		opts:     opts,
		notified: make(map[int]bool),
	}
	r.decoders, _ = lru.NewWithEvict(opts.DecoderCacheSize, func(key decoderKey, _ *decodedPage) {
		log.Debugf("render: releasing decoded page %d (rotation %d)", key.page, key.rotation)
	})
	return r
}

// Render returns the tile covering rect on a page at a zoom factor. rect
// is in rotated native pixel coordinates; nil requests the full page. A
// nil tile means nothing to draw: the rectangle misses the page entirely,
// or the page could not be fetched or decoded.
func (r *Renderer) Render(page int, rect *image.Rectangle, zoom float64, rotation int) *tile.Tile {
	if page < 1 || page > r.doc.PageCount() {
		return nil
	}
	if zoom <= 0 {
		zoom = 1.0
	}

	pw, ph := r.pageDims(page, rotation)
	pageRect := image.Rect(0, 0, pw, ph)

	want := pageRect
	if rect != nil {
		want = rect.Intersect(pageRect)
		if want.Empty() {
			return nil
		}
	}

	key := r.nativeKey(page, want, rotation)
	native, ok := r.tiles.GetNative(key)
	if !ok {
		dec := r.decodedPage(page, rotation)
		if dec == nil {
			return nil
		}

		// The decode may have corrected placeholder dimensions, so the
		// clamp and key are recomputed against the real page before
		// anything is stored.
		pageRect = dec.img.Bounds()
		want = pageRect
		if rect != nil {
			want = rect.Intersect(pageRect)
			if want.Empty() {
				return nil
			}
		}
		key = r.nativeKey(page, want, rotation)

		if cached, hit := r.tiles.GetNative(key); hit {
			native = cached
		} else {
			native = &tile.Tile{
				Doc:       r.doc.ID(),
				Page:      page,
				Rect:      want,
				Image:     imaging.Crop(dec.img, want),
				CreatedAt: time.Now(),
			}
			r.tiles.SetNative(key, native)
		}
	}

	if math.Abs(zoom-1.0) <= zoomEpsilon {
		return native
	}

	skey := r.scaledKey(page, native.Rect, rotation, zoom)
	if scaled, hit := r.tiles.GetScaled(skey); hit {
		return scaled
	}

	sw := int(math.Round(float64(native.Rect.Dx()) * zoom))
	sh := int(math.Round(float64(native.Rect.Dy()) * zoom))
	if sw < 1 {
		sw = 1
	}
	if sh < 1 {
		sh = 1
	}

	scaled := &tile.Tile{
		Doc:       r.doc.ID(),
		Page:      page,
		Rect:      native.Rect,
		Image:     imaging.Resize(native.Image, sw, sh, imaging.Lanczos),
		CreatedAt: time.Now(),
	}
	r.tiles.SetScaled(skey, scaled)
	return scaled
}

// BeginBatch warms and pins a page's decode across a run of tile renders.
// A second BeginBatch replaces the pin; EndBatch releases it.
func (r *Renderer) BeginBatch(page, rotation int) {
	dec := r.decodedPage(page, rotation)

	r.mu.Lock()
	defer r.mu.Unlock()
	if dec == nil {
		r.pinKey, r.pinned = decoderKey{}, nil
		return
	}
	r.pinKey = decoderKey{page: page, rotation: rotation}
	r.pinned = dec
}

// EndBatch releases the pinned decode.
func (r *Renderer) EndBatch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pinKey, r.pinned = decoderKey{}, nil
}

// decodedPage returns the prepared image for a page, from the batch pin,
// the warm cache, or a fresh decode. nil means the page is unrenderable
// right now; the failure has already been notified.
func (r *Renderer) decodedPage(page, rotation int) *decodedPage {
	key := decoderKey{page: page, rotation: rotation}

	r.mu.Lock()
	if r.pinned != nil && r.pinKey == key {
		dec := r.pinned
		r.mu.Unlock()
		return dec
	}
	if dec, ok := r.decoders.Get(key); ok {
		r.mu.Unlock()
		return dec
	}
	r.mu.Unlock()

	data, err := r.doc.RawBytes(page)
	if err != nil {
		r.notifyPageError(page, err)
		return nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		r.notifyPageError(page, fmt.Errorf("failed to decode page %d: %w", page, err))
		return nil
	}

	bounds := img.Bounds()
	r.doc.SetDimensions(page, bounds.Dx(), bounds.Dy())

	dec := &decodedPage{
		img:       r.preparePage(img, rotation),
		createdAt: time.Now(),
	}

	r.mu.Lock()
	r.decoders.Add(key, dec)
	r.mu.Unlock()
	return dec
}

// preparePage applies rotation, gamma and grayscale in one pass over the
// freshly decoded image.
func (r *Renderer) preparePage(img image.Image, rotation int) *image.NRGBA {
	out := imaging.Clone(img)

	// imaging rotates counter-clockwise; viewer rotation is clockwise.
	switch normalizeRotation(rotation) {
	case 90:
		out = imaging.Rotate270(out)
	case 180:
		out = imaging.Rotate180(out)
	case 270:
		out = imaging.Rotate90(out)
	}

	if tile.QuantizeGamma(r.opts.Gamma) != tile.QuantizeGamma(1.0) {
		out = imaging.AdjustGamma(out, r.opts.Gamma)
	}
	if r.opts.Mode == tile.ModeGray {
		out = imaging.Grayscale(out)
	}
	return out
}

func (r *Renderer) notifyPageError(page int, err error) {
	r.mu.Lock()
	already := r.notified[page]
	r.notified[page] = true
	r.mu.Unlock()
	if already {
		return
	}

	log.WithField("page", page).Warnf("render: %v", err)
	if r.opts.OnPageError != nil {
		r.opts.OnPageError(page, err)
	}
}

// pageDims returns the page size in rotated coordinates as currently
// known, without fetching anything.
func (r *Renderer) pageDims(page, rotation int) (int, int) {
	w, h := r.doc.CurrentDimensions(page)
	return rotatedDims(w, h, normalizeRotation(rotation))
}

func (r *Renderer) nativeKey(page int, rect image.Rectangle, rotation int) tile.Key {
	return tile.NewKey(r.doc.ID(), r.doc.Stamp(), page, rect, rotation, r.opts.Gamma, r.opts.Mode)
}

func (r *Renderer) scaledKey(page int, rect image.Rectangle, rotation int, zoom float64) tile.ScaledKey {
	return tile.NewScaledKey(r.doc.ID(), r.doc.Stamp(), page, rect, rotation, r.opts.Gamma, r.opts.Mode, zoom)
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
