package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alde/mangaview/pkg/display"
	"github.com/alde/mangaview/pkg/document"
	"github.com/alde/mangaview/pkg/export"
	"github.com/alde/mangaview/pkg/render"
	"github.com/alde/mangaview/pkg/tile"
	"github.com/spf13/cobra"
)

var (
	exportOutput   string
	exportProfile  string
	exportPages    string
	exportTitle    string
	exportAuthor   string
	exportLanguage string
	exportWorkers  int
	exportGamma    float64
)

var exportCmd = &cobra.Command{
	Use:   "export [input]",
	Short: "Export a document to EPUB for e-readers",
	Long: `Export a manga document to a fixed-layout EPUB, with images resized
and re-encoded for the target display profile.

Pages render in parallel; any page that cannot be decoded is replaced
with a flat placeholder so numbering stays intact.

Examples:
  mangaview export series-vol1.cbz -o vol1.epub --profile kobo
  mangaview export chapter.pdf -o chapter.epub --title "Chapter 12"
  mangaview export scans/ -o book.epub --pages "1-40" --workers 8`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output EPUB path (required)")
	exportCmd.Flags().StringVar(&exportProfile, "profile", "generic", "Display profile (kobo, kobo-bw, kindle, tablet, generic)")
	exportCmd.Flags().StringVar(&exportPages, "pages", "", "Page ranges to export (e.g. \"1-40,45\"); default all")
	exportCmd.Flags().StringVar(&exportTitle, "title", "", "Book title (defaults to the input name)")
	exportCmd.Flags().StringVar(&exportAuthor, "author", "", "Book author")
	exportCmd.Flags().StringVar(&exportLanguage, "language", "", "Book language code (defaults to en)")
	exportCmd.Flags().IntVar(&exportWorkers, "workers", 0, "Number of worker goroutines (0 = auto)")
	exportCmd.Flags().Float64Var(&exportGamma, "gamma", 1.0, "Gamma correction applied at decode (1.0 = neutral)")

	exportCmd.MarkFlagRequired("output")
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := validateEPUBOutput(exportOutput); err != nil {
		return fmt.Errorf("output validation failed: %w", err)
	}

	profile, err := display.GetProfile(exportProfile)
	if err != nil {
		return fmt.Errorf("display profile error: %w", err)
	}

	doc, err := openDocument(args[0])
	if err != nil {
		return err
	}
	defer doc.Close()

	selection := &document.RangeSet{}
	if exportPages != "" {
		selection, err = document.ParseRanges(exportPages)
		if err != nil {
			return fmt.Errorf("invalid pages format: %w", err)
		}
		if err := selection.Validate(doc.PageCount()); err != nil {
			return err
		}
	}

	tiles := tile.NewCache(tile.Config{})
	rend := render.NewRenderer(doc, tiles, render.Options{Gamma: exportGamma})

	exp := export.New(doc, rend, export.Options{
		Title:       exportTitle,
		Author:      exportAuthor,
		Language:    exportLanguage,
		Profile:     profile,
		Pages:       *selection,
		WorkerCount: exportWorkers,
		Verbose:     verbose,
	})
	if err := exp.Export(exportOutput); err != nil {
		return err
	}

	if !verbose {
		stats := exp.GetStats()
		fmt.Printf("✅ Exported %d pages to %s\n", stats.ExportedPages, exportOutput)
	}
	return nil
}

func validateEPUBOutput(path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("output directory does not exist: %s", dir)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".epub" {
		return fmt.Errorf("unsupported output format: %s (only .epub is supported)", ext)
	}

	return nil
}
