package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmaupin/go-epub"

	"github.com/alde/mangaview/pkg/display"
)

// EPUBGenerator assembles rendered pages into an EPUB book.
type EPUBGenerator struct {
	epub    *epub.Epub
	profile display.Profile
	options EPUBOptions
	cover   bool
}

// EPUBOptions defines EPUB generation settings
type EPUBOptions struct {
	Title       string
	Author      string
	Language    string
	Identifier  string
	Description string
}

// NewEPUBGenerator creates a new EPUB generator
func NewEPUBGenerator(profile display.Profile, opts EPUBOptions) *EPUBGenerator {
	e := epub.NewEpub(opts.Title)

	// Set metadata
	if opts.Author != "" {
		e.SetAuthor(opts.Author)
	}
	if opts.Language != "" {
		e.SetLang(opts.Language)
	} else {
		e.SetLang("en") // Default to English
	}
	if opts.Identifier != "" {
		e.SetIdentifier(opts.Identifier)
	}
	if opts.Description != "" {
		e.SetDescription(opts.Description)
	}

	e.SetPpd("mangaview-cli")

	return &EPUBGenerator{
		epub:    e,
		profile: profile,
		options: opts,
	}
}

// AddPageImage adds one encoded page image as its own section. The first
// page added also becomes the book cover.
func (eg *EPUBGenerator) AddPageImage(page int, imagePath string) error {
	internalName := fmt.Sprintf("page_%04d%s", page, filepath.Ext(imagePath))

	internalPath, err := eg.epub.AddImage(imagePath, internalName)
	if err != nil {
		return fmt.Errorf("failed to add page %d image: %w", page, err)
	}

	if !eg.cover {
		eg.epub.SetCover(internalPath, "")
		eg.cover = true
	}

	title := fmt.Sprintf("Page %d", page)
	html := fmt.Sprintf(`<div style="text-align: center;"><img src=%q alt=%q/></div>`, internalPath, title)

	if _, err := eg.epub.AddSection(html, title, "", ""); err != nil {
		return fmt.Errorf("failed to add page %d section: %w", page, err)
	}

	return nil
}

// Validate checks the book is writable before assembly starts.
func (eg *EPUBGenerator) Validate() error {
	if eg.epub.Title() == "" {
		return fmt.Errorf("EPUB title is required")
	}

	return nil
}

// Title returns the book title.
func (eg *EPUBGenerator) Title() string {
	return eg.epub.Title()
}

// Write saves the EPUB to the specified path
func (eg *EPUBGenerator) Write(outputPath string) error {
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := eg.epub.Write(outputPath); err != nil {
		return fmt.Errorf("failed to write EPUB file: %w", err)
	}

	return nil
}
