package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alde/mangaview/pkg/document"
	"github.com/alde/mangaview/pkg/source"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "mangaview",
	Short: "Read and export manga and comic archives",
	Long: `Mangaview is a CLI tool for working with manga and comic archives,
built on a paged image document with tile rendering and bounded caching.

Currently supports:
- CBZ archives, PDF files and plain image directories as sources
- Page rendering at e-reader display profiles
- EPUB export with per-device image optimization`,
	Version: "0.1.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

// openDocument opens the input path as a page source and wraps it in a
// document. Directories are read as sorted image folders, .cbz/.zip as
// comic archives, and .pdf through the rasterizing source.
func openDocument(path string) (*document.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open input: %w", err)
	}

	var src source.PageSource
	if info.IsDir() {
		src, err = source.NewDirSource(path)
	} else {
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".cbz", ".zip":
			src, err = source.NewCBZSource(path)
		case ".pdf":
			src, err = source.NewPDFSource(path, source.DefaultPDFDPI)
		default:
			return nil, fmt.Errorf("unsupported input format: %s (expected a directory, .cbz, .zip or .pdf)", ext)
		}
	}
	if err != nil {
		return nil, err
	}

	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return document.NewDocument(id, src), nil
}
