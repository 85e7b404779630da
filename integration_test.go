package main

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alde/mangaview/pkg/display"
	"github.com/alde/mangaview/pkg/document"
	"github.com/alde/mangaview/pkg/export"
	"github.com/alde/mangaview/pkg/prefetch"
	"github.com/alde/mangaview/pkg/render"
	"github.com/alde/mangaview/pkg/source"
	"github.com/alde/mangaview/pkg/tile"
	"github.com/alde/mangaview/pkg/viewport"
)

// syntheticPages builds count encoded PNG pages of the given size, each a
// distinct flat shade so pages are distinguishable after decode.
func syntheticPages(t *testing.T, count, width, height int) [][]byte {
	t.Helper()

	pages := make([][]byte, count)
	for i := range pages {
		img := image.NewNRGBA(image.Rect(0, 0, width, height))
		shade := uint8(40 + i*24)
		for p := 0; p < len(img.Pix); p += 4 {
			img.Pix[p+0] = shade
			img.Pix[p+1] = shade
			img.Pix[p+2] = 0x80
			img.Pix[p+3] = 0xff
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			t.Fatalf("Failed to encode page %d: %v", i+1, err)
		}
		pages[i] = buf.Bytes()
	}
	return pages
}

func TestIntegrationReadingSession(t *testing.T) {
	// Six pages at 256x384 with 128px tiles: each page is a 2x3 grid.
	doc := document.NewDocument("integration", source.NewMemorySource(syntheticPages(t, 6, 256, 384)...))
	defer doc.Close()

	tiles := tile.NewCache(tile.Config{Budget: 64 << 20, TileSize: 128})
	rend := render.NewRenderer(doc, tiles, render.Options{})
	view := viewport.NewController(doc, tiles)
	view.SetViewportSize(600, 800)
	view.SetZoomMode(viewport.ZoomWidth)

	sched := prefetch.New(doc, view, rend, tiles, prefetch.Config{MinTiles: 12, MaxTiles: 24})
	sched.Start()
	defer sched.Stop()

	// Paint the first page the way a UI frame would.
	if complete := paintPage(t, doc, rend, view, 1); !complete {
		t.Fatal("Page 1 painted with placeholder tiles")
	}

	// Turn the page; the frame paints it while the scheduler fills ahead.
	view.SetPage(2)
	if complete := paintPage(t, doc, rend, view, 2); !complete {
		t.Fatal("Page 2 painted with placeholder tiles")
	}

	// The scheduler runs on its own goroutine, so give it a deadline to
	// fully cover the page after the reading position.
	deadline := time.Now().Add(5 * time.Second)
	for {
		cached, total := rend.PageTilesCached(3, 0)
		if total > 0 && cached == total {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Page 3 never prefetched: %d/%d tiles cached", cached, total)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Decoded pages should have corrected their placeholder dimensions.
	if w, h := doc.CurrentDimensions(2); w != 256 || h != 384 {
		t.Errorf("CurrentDimensions(2) = %dx%d, expected 256x384", w, h)
	}
	if w, h := doc.CurrentDimensions(3); w != 256 || h != 384 {
		t.Errorf("CurrentDimensions(3) = %dx%d, expected 256x384", w, h)
	}

	stats := tiles.Stats()
	if stats.NativeCount < 12 {
		t.Errorf("NativeCount = %d, expected at least 12 (two painted pages and one prefetched)", stats.NativeCount)
	}
	if stats.TotalSize > stats.MaxSize {
		t.Errorf("Cache size %d exceeds budget %d", stats.TotalSize, stats.MaxSize)
	}

	t.Logf("Reading session completed:")
	t.Logf("  Native tiles: %d", stats.NativeCount)
	t.Logf("  Scaled tiles: %d", stats.ScaledCount)
	t.Logf("  Cache usage: %d/%d bytes", stats.TotalSize, stats.MaxSize)
	t.Logf("  Page turns seen: %d", sched.Turns())
}

// paintPage draws the full page into an off-screen image at the
// controller's zoom, as a frame callback would.
func paintPage(t *testing.T, doc *document.Document, rend *render.Renderer, view *viewport.Controller, page int) bool {
	t.Helper()

	w, h := doc.NativeDimensions(page)
	zoom := view.ZoomForPage(page)
	outW := int(float64(w)*zoom + 0.5)
	outH := int(float64(h)*zoom + 0.5)

	dst := image.NewNRGBA(image.Rect(0, 0, outW, outH))
	_, complete := rend.DrawTiled(dst, page, zoom, 0, image.Rect(0, 0, w, h), image.Point{})
	return complete
}

func TestIntegrationExportEPUB(t *testing.T) {
	doc := document.NewDocument("export-integration", source.NewMemorySource(syntheticPages(t, 6, 256, 384)...))
	defer doc.Close()

	tiles := tile.NewCache(tile.Config{Budget: 64 << 20, TileSize: 256})
	rend := render.NewRenderer(doc, tiles, render.Options{})

	profile, err := display.GetProfile("kobo")
	if err != nil {
		t.Fatalf("GetProfile(kobo) error: %v", err)
	}

	tempDir := t.TempDir()
	outputFile := filepath.Join(tempDir, "integration.epub")

	exp := export.New(doc, rend, export.Options{
		Title:       "Integration Volume",
		Author:      "Test Author",
		Profile:     profile,
		WorkerCount: 2,
	})
	if err := exp.Export(outputFile); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	// Check that output file was created with content
	outputStat, err := os.Stat(outputFile)
	if err != nil {
		t.Fatalf("Output EPUB file was not created: %v", err)
	}
	if outputStat.Size() == 0 {
		t.Error("Output EPUB file is empty")
	}

	stats := exp.GetStats()
	if stats.PageCount != 6 {
		t.Errorf("PageCount = %d, expected 6", stats.PageCount)
	}
	if stats.ExportedPages != 6 {
		t.Errorf("ExportedPages = %d, expected 6", stats.ExportedPages)
	}
	if stats.PlaceholderPages != 0 {
		t.Errorf("PlaceholderPages = %d, expected 0", stats.PlaceholderPages)
	}
	if stats.OutputFileSize == 0 {
		t.Error("Output file size should be greater than 0")
	}
	if stats.ProcessingTime == 0 {
		t.Error("Processing time should be greater than 0")
	}

	t.Logf("Export completed successfully:")
	t.Logf("  Output size: %d bytes", outputStat.Size())
	t.Logf("  Pages exported: %d", stats.ExportedPages)
	t.Logf("  Processing time: %v", stats.ProcessingTime)
}

func TestIntegrationCorruptPageDegrades(t *testing.T) {
	pages := syntheticPages(t, 4, 200, 300)
	pages[2] = []byte("this is not an image")

	doc := document.NewDocument("degraded", source.NewMemorySource(pages...))
	defer doc.Close()

	tiles := tile.NewCache(tile.Config{Budget: 32 << 20, TileSize: 256})
	rend := render.NewRenderer(doc, tiles, render.Options{})

	profile, err := display.GetProfile("generic")
	if err != nil {
		t.Fatalf("GetProfile(generic) error: %v", err)
	}

	outputFile := filepath.Join(t.TempDir(), "degraded.epub")
	exp := export.New(doc, rend, export.Options{Profile: profile, WorkerCount: 2})
	if err := exp.Export(outputFile); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	// The corrupt page exports as a flat placeholder, keeping numbering.
	stats := exp.GetStats()
	if stats.ExportedPages != 4 {
		t.Errorf("ExportedPages = %d, expected 4", stats.ExportedPages)
	}
	if stats.PlaceholderPages != 1 {
		t.Errorf("PlaceholderPages = %d, expected 1", stats.PlaceholderPages)
	}
}

func TestIntegrationExportEmptyDocument(t *testing.T) {
	doc := document.NewDocument("empty", source.NewMemorySource())
	defer doc.Close()

	tiles := tile.NewCache(tile.Config{Budget: 32 << 20})
	rend := render.NewRenderer(doc, tiles, render.Options{})

	profile, err := display.GetProfile("generic")
	if err != nil {
		t.Fatalf("GetProfile(generic) error: %v", err)
	}

	exp := export.New(doc, rend, export.Options{Profile: profile})
	if err := exp.Export(filepath.Join(t.TempDir(), "empty.epub")); err == nil {
		t.Error("Expected error when exporting a document with no pages")
	}
}

func TestIntegrationWorkerPoolConfiguration(t *testing.T) {
	workerCounts := []int{1, 2, 4}

	profile, err := display.GetProfile("generic")
	if err != nil {
		t.Fatalf("GetProfile(generic) error: %v", err)
	}

	for _, workerCount := range workerCounts {
		t.Run(fmt.Sprintf("workers_%d", workerCount), func(t *testing.T) {
			doc := document.NewDocument("workers", source.NewMemorySource(syntheticPages(t, 4, 160, 240)...))
			defer doc.Close()

			tiles := tile.NewCache(tile.Config{Budget: 32 << 20, TileSize: 256})
			rend := render.NewRenderer(doc, tiles, render.Options{})

			outputFile := filepath.Join(t.TempDir(), "test.epub")
			exp := export.New(doc, rend, export.Options{
				Profile:     profile,
				WorkerCount: workerCount,
			})
			if err := exp.Export(outputFile); err != nil {
				t.Fatalf("Export with %d workers failed: %v", workerCount, err)
			}

			if stats := exp.GetStats(); stats.ExportedPages != 4 {
				t.Errorf("ExportedPages = %d, expected 4", stats.ExportedPages)
			}
		})
	}
}
