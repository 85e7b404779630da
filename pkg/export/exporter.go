// Package export renders document pages through the tile renderer and
// assembles them into an EPUB for a display target.
package export

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"github.com/alde/mangaview/internal/worker"
	"github.com/alde/mangaview/pkg/display"
	"github.com/alde/mangaview/pkg/document"
	"github.com/alde/mangaview/pkg/render"
)

// Options contains export settings
type Options struct {
	Title       string
	Author      string
	Language    string
	Identifier  string
	Description string
	Profile     display.Profile
	Pages       document.RangeSet
	WorkerCount int
	Verbose     bool
}

// Stats tracks export metrics
type Stats struct {
	PageCount        int
	ExportedPages    int
	PlaceholderPages int
	OutputFileSize   uint64
	Images           ImageStats
	ProcessingTime   time.Duration
}

// Exporter turns document pages into an EPUB book.
type Exporter struct {
	doc       *document.Document
	rend      *render.Renderer
	options   Options
	epubGen   *EPUBGenerator
	processor *PageProcessor
	stats     Stats
	startTime time.Time
}

// New creates an exporter over an open document and its renderer.
func New(doc *document.Document, rend *render.Renderer, opts Options) *Exporter {
	if opts.Title == "" {
		opts.Title = doc.ID()
	}
	if opts.Author == "" {
		opts.Author = "Unknown Author"
	}
	if opts.Identifier == "" {
		opts.Identifier = fmt.Sprintf("mangaview-%d", time.Now().Unix())
	}
	if opts.Description == "" {
		opts.Description = fmt.Sprintf("Exported from %s by mangaview", doc.ID())
	}

	return &Exporter{
		doc:       doc,
		rend:      rend,
		options:   opts,
		startTime: time.Now(),
	}
}

// pageResult is filled by a render job and consumed during assembly.
type pageResult struct {
	page         int
	path         string
	placeholder  bool
	renderedSize int64
	encodedSize  int64
}

// pageJob renders and encodes one page on the worker pool.
type pageJob struct {
	exporter *Exporter
	page     int
	slot     *pageResult
}

func (j *pageJob) ID() string {
	return fmt.Sprintf("page-%d", j.page)
}

func (j *pageJob) Process(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	e := j.exporter

	var img image.Image
	var renderedSize int64
	var degraded bool
	if t := e.rend.Render(j.page, nil, 1.0, 0); t != nil {
		img = t.Image
		renderedSize = t.ByteSize()
	} else {
		// A page that cannot be fetched or decoded exports as a flat
		// placeholder so the book keeps its page numbering.
		w, h := e.doc.CurrentDimensions(j.page)
		placeholder := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.Draw(placeholder, placeholder.Bounds(),
			image.NewUniform(color.NRGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}), image.Point{}, draw.Src)
		img = placeholder
		renderedSize = int64(len(placeholder.Pix))
		degraded = true
	}

	path, size, err := e.processor.ProcessPage(img, j.page)
	if err != nil {
		return fmt.Errorf("failed to encode page %d: %w", j.page, err)
	}

	*j.slot = pageResult{
		page:         j.page,
		path:         path,
		placeholder:  degraded,
		renderedSize: renderedSize,
		encodedSize:  size,
	}
	return nil
}

// Export renders the selected pages and writes the EPUB to outputPath.
func (e *Exporter) Export(outputPath string) error {
	pages := e.options.Pages.Pages(e.doc.PageCount())
	if len(pages) == 0 {
		return fmt.Errorf("no pages to export")
	}
	e.stats.PageCount = len(pages)

	tempDir, err := os.MkdirTemp("", "mangaview-export-*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	e.processor = NewPageProcessor(e.options.Profile, tempDir)
	defer e.processor.Cleanup()

	e.epubGen = NewEPUBGenerator(e.options.Profile, EPUBOptions{
		Title:       e.options.Title,
		Author:      e.options.Author,
		Language:    e.options.Language,
		Identifier:  e.options.Identifier,
		Description: e.options.Description,
	})
	if err := e.epubGen.Validate(); err != nil {
		return fmt.Errorf("EPUB validation failed: %w", err)
	}

	if err := e.renderPages(pages); err != nil {
		return err
	}

	if err := e.epubGen.Write(outputPath); err != nil {
		return fmt.Errorf("failed to write EPUB: %w", err)
	}

	if err := e.calculateFinalStats(outputPath); err != nil {
		return fmt.Errorf("failed to calculate final statistics: %w", err)
	}

	if e.options.Verbose {
		e.displayResults(outputPath)
	}

	return nil
}

// renderPages runs the page jobs on a worker pool and assembles the
// results in reading order.
func (e *Exporter) renderPages(pages []int) error {
	var pool *worker.Pool
	if e.options.Verbose {
		pool = worker.NewPoolWithProgress(e.options.WorkerCount, len(pages))
	} else {
		pool = worker.NewPool(e.options.WorkerCount)
	}
	pool.Start()

	results := make([]pageResult, len(pages))
	go func() {
		for i, page := range pages {
			pool.Submit(&pageJob{exporter: e, page: page, slot: &results[i]})
		}
	}()

	for range pages {
		res := <-pool.Results()
		if res.Error != nil {
			log.WithField("job", res.JobID).Warnf("page export failed: %v", res.Error)
		}
	}
	pool.Stop()

	var renderedSizes, encodedSizes []int64
	for i := range results {
		r := &results[i]
		if r.path == "" {
			continue
		}
		if err := e.epubGen.AddPageImage(r.page, r.path); err != nil {
			return fmt.Errorf("failed to add page %d: %w", r.page, err)
		}
		e.stats.ExportedPages++
		if r.placeholder {
			e.stats.PlaceholderPages++
		}
		renderedSizes = append(renderedSizes, r.renderedSize)
		encodedSizes = append(encodedSizes, r.encodedSize)
	}
	if e.stats.ExportedPages == 0 {
		return fmt.Errorf("no pages could be rendered")
	}

	e.stats.Images = CalculateImageStats(renderedSizes, encodedSizes)
	return nil
}

// calculateFinalStats computes final export statistics
func (e *Exporter) calculateFinalStats(outputPath string) error {
	outputStat, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("failed to get output file size: %w", err)
	}
	e.stats.OutputFileSize = uint64(outputStat.Size())
	e.stats.ProcessingTime = time.Since(e.startTime)

	return nil
}

// displayResults shows the export results
func (e *Exporter) displayResults(outputPath string) {
	fmt.Printf("\nExport completed successfully\n")
	fmt.Printf("================================================================\n")
	fmt.Printf("Export Summary\n")
	fmt.Printf("================================================================\n")

	fmt.Printf("Output:        %s (%s)\n", filepath.Base(outputPath), humanize.Bytes(e.stats.OutputFileSize))
	fmt.Printf("Pages:         %d exported", e.stats.ExportedPages)
	if e.stats.PlaceholderPages > 0 {
		fmt.Printf(" (%d placeholders)", e.stats.PlaceholderPages)
	}
	fmt.Printf("\n")

	if e.stats.Images.OriginalSize > 0 {
		fmt.Printf("Page images:   %s raw -> %s encoded (%.1f%%)\n",
			humanize.Bytes(uint64(e.stats.Images.OriginalSize)),
			humanize.Bytes(uint64(e.stats.Images.OptimizedSize)),
			e.stats.Images.CompressionRatio*100)
	}

	fmt.Printf("Target:        %s\n", e.options.Profile.Name)
	fmt.Printf("Processing:    %v\n", e.stats.ProcessingTime.Round(time.Millisecond))
	fmt.Printf("================================================================\n")
}

// GetStats returns the current export statistics
func (e *Exporter) GetStats() Stats {
	return e.stats
}
