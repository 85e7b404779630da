package render

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/alde/mangaview/pkg/document"
	"github.com/alde/mangaview/pkg/source"
	"github.com/alde/mangaview/pkg/tile"
)

// gradientPNG encodes a page whose pixel (x, y) carries R=x%256, G=y%256,
// so tests can verify crops land on the right pixels.
func gradientPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i+0] = uint8(x % 256)
			img.Pix[i+1] = uint8(y % 256)
			img.Pix[i+2] = 0
			img.Pix[i+3] = 0xff
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type trackingSource struct {
	pages   [][]byte
	fetches map[int]int
}

func newTrackingSource(pages ...[]byte) *trackingSource {
	return &trackingSource{pages: pages, fetches: make(map[int]int)}
}

func (s *trackingSource) PageCount() int {
	return len(s.pages)
}

func (s *trackingSource) Fetch(page int) ([]byte, error) {
	s.fetches[page]++
	if page < 1 || page > len(s.pages) || s.pages[page-1] == nil {
		return nil, errors.New("no data")
	}
	return s.pages[page-1], nil
}

func (s *trackingSource) Close() error {
	return nil
}

func testRenderer(t *testing.T, src source.PageSource, opts Options) (*Renderer, *tile.Cache) {
	t.Helper()
	doc := document.NewDocument("doc", src)
	tiles := tile.NewCache(tile.Config{Budget: 64 << 20})
	if opts.TileSize == 0 {
		opts.TileSize = 64
	}
	return NewRenderer(doc, tiles, opts), tiles
}

func TestRenderCropsRequestedRect(t *testing.T) {
	r, _ := testRenderer(t, source.NewMemorySource(gradientPNG(t, 100, 100)), Options{})

	rect := image.Rect(10, 20, 60, 70)
	tl := r.Render(1, &rect, 1.0, 0)
	if tl == nil {
		t.Fatal("Render() = nil for a renderable page")
	}
	if tl.Image.Bounds().Dx() != 50 || tl.Image.Bounds().Dy() != 50 {
		t.Fatalf("tile size = %v, expected 50x50", tl.Image.Bounds())
	}

	px := tl.Image.NRGBAAt(tl.Image.Bounds().Min.X, tl.Image.Bounds().Min.Y)
	if px.R != 10 || px.G != 20 {
		t.Errorf("top-left pixel = (%d, %d), expected (10, 20)", px.R, px.G)
	}
}

func TestZoomOnePassthrough(t *testing.T) {
	r, tiles := testRenderer(t, source.NewMemorySource(gradientPNG(t, 100, 100)), Options{})

	rect := image.Rect(0, 0, 64, 64)
	first := r.Render(1, &rect, 1.0, 0)
	if first == nil {
		t.Fatal("Render() = nil")
	}

	second := r.Render(1, &rect, 1.0, 0)
	if second != first {
		t.Error("second unit-zoom render returned a different buffer")
	}

	// A zoom within epsilon of 1.0 skips resampling too.
	near := r.Render(1, &rect, 1.0005, 0)
	if near != first {
		t.Error("near-unit zoom should reuse the native tile")
	}

	if got := tiles.Stats().ScaledCount; got != 0 {
		t.Errorf("scaled pool holds %d tiles, expected 0", got)
	}
}

func TestNativeDecodeSharedAcrossZooms(t *testing.T) {
	src := newTrackingSource(gradientPNG(t, 100, 100))
	r, tiles := testRenderer(t, src, Options{})

	rect := image.Rect(0, 0, 64, 64)
	native := r.Render(1, &rect, 1.0, 0)
	if native == nil {
		t.Fatal("Render() = nil")
	}

	scaled := r.Render(1, &rect, 1.5, 0)
	if scaled == nil {
		t.Fatal("scaled Render() = nil")
	}
	if scaled == native {
		t.Fatal("scaled render returned the native buffer")
	}
	if got := scaled.Image.Bounds().Dx(); got != 96 {
		t.Errorf("scaled width = %d, expected 96", got)
	}

	if src.fetches[1] != 1 {
		t.Errorf("fetches = %d, expected one decode across zooms", src.fetches[1])
	}
	if got := tiles.Stats().ScaledCount; got != 1 {
		t.Errorf("scaled pool holds %d tiles, expected 1", got)
	}
}

func TestScaledTileCached(t *testing.T) {
	r, _ := testRenderer(t, source.NewMemorySource(gradientPNG(t, 100, 100)), Options{})

	rect := image.Rect(0, 0, 64, 64)
	first := r.Render(1, &rect, 2.0, 0)
	second := r.Render(1, &rect, 2.0, 0)
	if first == nil || second == nil {
		t.Fatal("Render() = nil")
	}
	if first != second {
		t.Error("repeated scaled render did not hit the scaled pool")
	}
}

func TestRenderOutOfBoundsRect(t *testing.T) {
	r, _ := testRenderer(t, source.NewMemorySource(gradientPNG(t, 100, 100)), Options{})

	outside := image.Rect(500, 500, 600, 600)
	if tl := r.Render(1, &outside, 1.0, 0); tl != nil {
		t.Error("fully out-of-bounds rect should yield no tile")
	}

	straddling := image.Rect(80, 80, 200, 200)
	tl := r.Render(1, &straddling, 1.0, 0)
	if tl == nil {
		t.Fatal("straddling rect should clamp, not vanish")
	}
	if tl.Rect != image.Rect(80, 80, 100, 100) {
		t.Errorf("clamped rect = %v, expected (80,80)-(100,100)", tl.Rect)
	}
}

func TestRenderRotationSwapsPage(t *testing.T) {
	r, _ := testRenderer(t, source.NewMemorySource(gradientPNG(t, 100, 60)), Options{})

	tl := r.Render(1, nil, 1.0, 90)
	if tl == nil {
		t.Fatal("Render() = nil")
	}
	if tl.Image.Bounds().Dx() != 60 || tl.Image.Bounds().Dy() != 100 {
		t.Fatalf("rotated page = %v, expected 60x100", tl.Image.Bounds())
	}

	// Clockwise 90: the original bottom-left corner lands top-left.
	px := tl.Image.NRGBAAt(tl.Image.Bounds().Min.X, tl.Image.Bounds().Min.Y)
	if px.R != 0 || px.G != 59 {
		t.Errorf("top-left pixel = (%d, %d), expected (0, 59)", px.R, px.G)
	}
}

func TestRenderGrayscaleMode(t *testing.T) {
	r, _ := testRenderer(t, source.NewMemorySource(gradientPNG(t, 100, 100)), Options{Mode: tile.ModeGray})

	tl := r.Render(1, nil, 1.0, 0)
	if tl == nil {
		t.Fatal("Render() = nil")
	}
	px := tl.Image.NRGBAAt(50, 80)
	if px.R != px.G || px.G != px.B {
		t.Errorf("pixel = %+v, expected gray (R==G==B)", px)
	}
}

func TestDimensionFeedback(t *testing.T) {
	src := source.NewMemorySource(gradientPNG(t, 640, 480))
	doc := document.NewDocument("doc", src)
	tiles := tile.NewCache(tile.Config{Budget: 64 << 20})
	r := NewRenderer(doc, tiles, Options{TileSize: 64})

	if w, h := doc.CurrentDimensions(1); w != document.PlaceholderWidth || h != document.PlaceholderHeight {
		t.Fatalf("CurrentDimensions before render = %dx%d, expected placeholder", w, h)
	}

	if tl := r.Render(1, nil, 1.0, 0); tl == nil {
		t.Fatal("Render() = nil")
	}

	if w, h := doc.CurrentDimensions(1); w != 640 || h != 480 {
		t.Errorf("CurrentDimensions after render = %dx%d, expected 640x480", w, h)
	}
}

func TestDecodeFailureNotifiedOnce(t *testing.T) {
	var calls []int
	opts := Options{
		OnPageError: func(page int, err error) {
			calls = append(calls, page)
		},
	}
	src := source.NewMemorySource(
		gradientPNG(t, 100, 100),
		gradientPNG(t, 100, 100),
		gradientPNG(t, 100, 100),
		[]byte("definitely not an image"),
	)
	r, _ := testRenderer(t, src, opts)

	for i := 0; i < 4; i++ {
		if tl := r.Render(4, nil, 1.0, 0); tl != nil {
			t.Fatal("Render() of a corrupt page should yield no tile")
		}
	}

	if len(calls) != 1 || calls[0] != 4 {
		t.Errorf("notifier calls = %v, expected exactly one for page 4", calls)
	}
}

func TestFetchFailureNotifiedPerPage(t *testing.T) {
	var calls []int
	opts := Options{
		OnPageError: func(page int, err error) {
			calls = append(calls, page)
		},
	}
	r, _ := testRenderer(t, source.NewMemorySource(nil, nil), opts)

	r.Render(1, nil, 1.0, 0)
	r.Render(2, nil, 1.0, 0)
	r.Render(1, nil, 1.0, 0)

	if len(calls) != 2 || calls[0] != 1 || calls[1] != 2 {
		t.Errorf("notifier calls = %v, expected one per failing page", calls)
	}
}

func TestBatchPinSurvivesDecoderEviction(t *testing.T) {
	src := newTrackingSource(gradientPNG(t, 100, 100), gradientPNG(t, 100, 100))
	r, _ := testRenderer(t, src, Options{DecoderCacheSize: 1})

	r.BeginBatch(1, 0)
	defer r.EndBatch()

	// Decoding page 2 evicts page 1 from the one-slot decoder cache; the
	// batch pin must keep page 1 warm regardless.
	if tl := r.Render(2, nil, 1.0, 0); tl == nil {
		t.Fatal("Render(2) = nil")
	}

	rect := image.Rect(0, 0, 32, 32)
	if tl := r.Render(1, &rect, 1.0, 0); tl == nil {
		t.Fatal("Render(1) = nil")
	}

	if src.fetches[1] != 1 {
		t.Errorf("page 1 fetches = %d, expected 1 with an open batch", src.fetches[1])
	}
}

func TestRenderPageTiles(t *testing.T) {
	r, _ := testRenderer(t, source.NewMemorySource(gradientPNG(t, 100, 100)), Options{})

	rendered := r.RenderPageTiles(1, 1.0, 0)
	if rendered != 4 {
		t.Fatalf("RenderPageTiles() = %d, expected 4 tiles at size 64", rendered)
	}

	if again := r.RenderPageTiles(1, 1.0, 0); again != 0 {
		t.Errorf("second RenderPageTiles() = %d, expected 0", again)
	}

	cached, total := r.PageTilesCached(1, 0)
	if cached != 4 || total != 4 {
		t.Errorf("PageTilesCached() = %d/%d, expected 4/4", cached, total)
	}
}

func TestPageTilesCachedUnrendered(t *testing.T) {
	r, _ := testRenderer(t, source.NewMemorySource(gradientPNG(t, 100, 100)), Options{})

	cached, total := r.PageTilesCached(1, 0)
	if cached != 0 {
		t.Errorf("cached = %d, expected 0 before rendering", cached)
	}
	if total == 0 {
		t.Error("total = 0, expected a placeholder-sized grid")
	}
}

func TestDrawTiled(t *testing.T) {
	r, _ := testRenderer(t, source.NewMemorySource(gradientPNG(t, 100, 100)), Options{})

	dst := image.NewNRGBA(image.Rect(0, 0, 120, 120))
	clip := image.Rect(0, 0, 100, 100)
	painted, complete := r.DrawTiled(dst, 1, 1.0, 0, clip, image.Point{X: 5, Y: 5})
	if painted != 4 || !complete {
		t.Fatalf("DrawTiled() = %d, %v, expected 4 tiles complete", painted, complete)
	}

	px := dst.NRGBAAt(5+30, 5+40)
	if px.R != 30 || px.G != 40 {
		t.Errorf("dst pixel = (%d, %d), expected page pixel (30, 40)", px.R, px.G)
	}
}

func TestDrawTiledFailedPagePaintsPlaceholder(t *testing.T) {
	r, _ := testRenderer(t, source.NewMemorySource(nil), Options{})

	dst := image.NewNRGBA(image.Rect(0, 0, 120, 120))
	clip := image.Rect(0, 0, 100, 100)
	painted, complete := r.DrawTiled(dst, 1, 1.0, 0, clip, image.Point{})
	if painted != 0 || complete {
		t.Fatalf("DrawTiled() = %d, %v, expected no real tiles", painted, complete)
	}

	px := dst.NRGBAAt(10, 10)
	if px.R != 0xe0 || px.G != 0xe0 || px.B != 0xe0 {
		t.Errorf("placeholder pixel = %+v, expected flat gray", px)
	}
}
