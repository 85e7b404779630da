package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// imageExtensions lists the file extensions DirSource and CBZSource treat
// as pages.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// DirSource serves the image files of a directory as pages, ordered by
// file name.
type DirSource struct {
	dir   string
	files []string
}

// NewDirSource scans dir for image files and builds a source over them.
func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no image files in %s", dir)
	}
	sort.Strings(files)

	return &DirSource{dir: dir, files: files}, nil
}

func (s *DirSource) PageCount() int {
	return len(s.files)
}

func (s *DirSource) Fetch(page int) ([]byte, error) {
	if page < 1 || page > len(s.files) {
		return nil, fmt.Errorf("page number %d out of range (1-%d)", page, len(s.files))
	}

	data, err := os.ReadFile(filepath.Join(s.dir, s.files[page-1]))
	if err != nil {
		return nil, fmt.Errorf("failed to read page %d: %w", page, err)
	}
	return data, nil
}

func (s *DirSource) Close() error {
	return nil
}
