package source

import (
	"archive/zip"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
)

// CBZSource serves pages from a comic book archive (a zip of image files),
// ordered by entry name.
type CBZSource struct {
	rc    *zip.ReadCloser
	files []*zip.File
}

// NewCBZSource opens a CBZ archive and indexes its image entries.
func NewCBZSource(path string) (*CBZSource, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	var files []*zip.File
	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := filepath.Base(f.Name)
		// Archives from macOS tend to carry ._ resource forks.
		if strings.HasPrefix(name, ".") {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(name))] {
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		rc.Close()
		return nil, fmt.Errorf("no image entries in %s", path)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	return &CBZSource{rc: rc, files: files}, nil
}

func (s *CBZSource) PageCount() int {
	return len(s.files)
}

func (s *CBZSource) Fetch(page int) ([]byte, error) {
	if page < 1 || page > len(s.files) {
		return nil, fmt.Errorf("page number %d out of range (1-%d)", page, len(s.files))
	}

	r, err := s.files[page-1].Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open page %d: %w", page, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read page %d: %w", page, err)
	}
	return data, nil
}

func (s *CBZSource) Close() error {
	return s.rc.Close()
}
