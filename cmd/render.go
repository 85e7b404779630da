package cmd

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/alde/mangaview/pkg/display"
	"github.com/alde/mangaview/pkg/document"
	"github.com/alde/mangaview/pkg/prefetch"
	"github.com/alde/mangaview/pkg/progress"
	"github.com/alde/mangaview/pkg/render"
	"github.com/alde/mangaview/pkg/tile"
	"github.com/alde/mangaview/pkg/viewport"
	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	renderOutputDir string
	renderProfile   string
	renderPages     string
	renderZoomMode  string
	renderRotation  int
	renderGray      bool
	renderGamma     float64
)

var renderCmd = &cobra.Command{
	Use:   "render [input]",
	Short: "Render pages to PNG files at a display profile",
	Long: `Render document pages to PNG files sized for a display profile.

Pages go through the same tile pipeline an interactive reader would use,
with the prefetcher warming upcoming pages in the background, so the
output doubles as a preview of on-device appearance.

Examples:
  mangaview render series-vol1.cbz -o preview/ --profile kobo
  mangaview render chapter.pdf -o out/ --pages "1-10" --zoom-mode full
  mangaview render scans/ -o out/ --rotation 90 --gray`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderOutputDir, "output", "o", "", "Output directory for rendered pages (required)")
	renderCmd.Flags().StringVar(&renderProfile, "profile", "generic", "Display profile (kobo, kobo-bw, kindle, tablet, generic)")
	renderCmd.Flags().StringVar(&renderPages, "pages", "", "Page ranges to render (e.g. \"1-10,15\"); default all")
	renderCmd.Flags().StringVar(&renderZoomMode, "zoom-mode", "width", "Zoom mode (width, height, full)")
	renderCmd.Flags().IntVar(&renderRotation, "rotation", 0, "Rotation in degrees (0, 90, 180, 270)")
	renderCmd.Flags().BoolVar(&renderGray, "gray", false, "Force grayscale output")
	renderCmd.Flags().Float64Var(&renderGamma, "gamma", 1.0, "Gamma correction (1.0 = neutral)")

	renderCmd.MarkFlagRequired("output")
}

func runRender(cmd *cobra.Command, args []string) error {
	if err := ensureOutputDir(renderOutputDir); err != nil {
		return fmt.Errorf("output validation failed: %w", err)
	}

	zoomMode, err := parseZoomMode(renderZoomMode)
	if err != nil {
		return err
	}

	profile, err := display.GetProfile(renderProfile)
	if err != nil {
		return fmt.Errorf("display profile error: %w", err)
	}

	doc, err := openDocument(args[0])
	if err != nil {
		return err
	}
	defer doc.Close()

	selection := &document.RangeSet{}
	if renderPages != "" {
		selection, err = document.ParseRanges(renderPages)
		if err != nil {
			return fmt.Errorf("invalid pages format: %w", err)
		}
		if err := selection.Validate(doc.PageCount()); err != nil {
			return err
		}
	}
	pages := selection.Pages(doc.PageCount())
	if len(pages) == 0 {
		return fmt.Errorf("no pages selected")
	}

	mode := tile.ModeColor
	if renderGray || !profile.Capabilities.SupportsColor {
		mode = tile.ModeGray
	}

	tiles := tile.NewCache(tile.Config{})
	rend := render.NewRenderer(doc, tiles, render.Options{Gamma: renderGamma, Mode: mode})

	view := viewport.NewController(doc, tiles)
	view.SetViewportSize(profile.Viewport())
	view.SetZoomMode(zoomMode)
	view.SetRotation(renderRotation)

	sched := prefetch.New(doc, view, rend, tiles, prefetch.Config{})
	sched.Start()
	defer sched.Stop()

	bar := progress.NewSimpleProgress(len(pages), "Rendering")
	for i, page := range pages {
		view.SetPage(page)
		if err := renderPageFile(doc, rend, view, page); err != nil {
			return fmt.Errorf("failed to render page %d: %w", page, err)
		}
		bar.Update(i + 1)
	}
	bar.Finish()

	fmt.Printf("✅ Rendered %d pages to %s\n", len(pages), renderOutputDir)
	if verbose {
		stats := tiles.Stats()
		lookups := stats.Hits + stats.Misses
		hitRate := 0.0
		if lookups > 0 {
			hitRate = float64(stats.Hits) / float64(lookups) * 100
		}
		fmt.Printf("Tile cache: %d native + %d scaled tiles, %s of %s (%.0f%% hit rate)\n",
			stats.NativeCount, stats.ScaledCount,
			humanize.Bytes(uint64(stats.TotalSize)), humanize.Bytes(uint64(stats.MaxSize)),
			hitRate)
	}

	return nil
}

// renderPageFile paints one full page through the tile pipeline and writes
// it as a PNG named page_NNNN.png in the output directory.
func renderPageFile(doc *document.Document, rend *render.Renderer, view *viewport.Controller, page int) error {
	zoom := view.ZoomForPage(page)
	rotation := view.Rotation()

	w, h := doc.NativeDimensions(page)
	if rotation == 90 || rotation == 270 {
		w, h = h, w
	}

	outW := int(math.Round(float64(w) * zoom))
	outH := int(math.Round(float64(h) * zoom))
	if outW < 1 || outH < 1 {
		return fmt.Errorf("degenerate output size %dx%d", outW, outH)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, outW, outH))
	clip := image.Rect(0, 0, w, h)
	if _, complete := rend.DrawTiled(dst, page, zoom, rotation, clip, image.Point{}); !complete {
		log.WithField("page", page).Warn("render: page written with placeholder tiles")
	}

	out, err := os.Create(filepath.Join(renderOutputDir, fmt.Sprintf("page_%04d.png", page)))
	if err != nil {
		return err
	}
	defer out.Close()

	return png.Encode(out, dst)
}

func parseZoomMode(name string) (viewport.ZoomMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "width":
		return viewport.ZoomWidth, nil
	case "height":
		return viewport.ZoomHeight, nil
	case "full", "fit":
		return viewport.ZoomFull, nil
	default:
		return viewport.ZoomFull, fmt.Errorf("unknown zoom mode: %s (expected width, height or full)", name)
	}
}

// ensureOutputDir creates the output directory if missing. Its parent must
// already exist; a typoed path should fail rather than build a tree.
func ensureOutputDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("output directory is required")
	}

	if info, err := os.Stat(dir); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("output path exists and is not a directory: %s", dir)
		}
		return nil
	}

	parent := filepath.Dir(filepath.Clean(dir))
	if _, err := os.Stat(parent); os.IsNotExist(err) {
		return fmt.Errorf("parent directory does not exist: %s", parent)
	}

	return os.Mkdir(dir, 0755)
}
