// Package source supplies raw encoded page bytes to the document model.
//
// A PageSource is the reader's view of wherever pages actually live: a
// directory of image files, a comic archive, a PDF, a remote server. Fetch
// returns encoded bytes (PNG, JPEG, WebP, GIF); decoding them is the
// renderer's job.
package source

import "fmt"

// PageSource yields the encoded bytes of each page of a document.
// Implementations may fetch lazily and may fail per page; callers treat a
// failed fetch as "no data" and retry on a later access.
type PageSource interface {
	// PageCount returns the number of pages, numbered 1..PageCount().
	PageCount() int

	// Fetch returns the encoded image bytes for a page. A page yields the
	// same bytes across calls.
	Fetch(page int) ([]byte, error)

	// Close releases any resources held by the source.
	Close() error
}

// Dimensions reports the pixel size of one page.
type Dimensions struct {
	Page   int
	Width  int
	Height int
}

// DimensionReporter is implemented by sources that know page sizes without
// fetching full images. The document model uses it to skip placeholder
// dimensions.
type DimensionReporter interface {
	KnownDimensions() []Dimensions
}

// MemorySource serves pages from byte slices held in memory. A nil slice
// makes that page fail, which tests use to exercise degraded paths.
type MemorySource struct {
	pages [][]byte
}

// NewMemorySource creates a source over the given encoded pages.
func NewMemorySource(pages ...[]byte) *MemorySource {
	return &MemorySource{pages: pages}
}

func (s *MemorySource) PageCount() int {
	return len(s.pages)
}

func (s *MemorySource) Fetch(page int) ([]byte, error) {
	if page < 1 || page > len(s.pages) {
		return nil, fmt.Errorf("page number %d out of range (1-%d)", page, len(s.pages))
	}
	data := s.pages[page-1]
	if data == nil {
		return nil, fmt.Errorf("no data for page %d", page)
	}
	return data, nil
}

func (s *MemorySource) Close() error {
	return nil
}
