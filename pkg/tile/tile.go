// Package tile defines rendered page tiles and the two-pool cache that owns
// them.
//
// A native tile holds pixels decoded at the source image's true resolution
// and is independent of display zoom; a scaled tile is a native tile
// resampled to one specific zoom factor. Native tiles are the expensive ones
// (a full page decode sits behind each), so they get the larger cache pool;
// scaled tiles are cheap to regenerate and live in a smaller pool that is
// flushed whenever zoom or rotation changes.
package tile

import (
	"image"
	"time"
)

// RenderMode selects the color treatment applied at decode time.
type RenderMode int

const (
	// ModeColor keeps pages in full color.
	ModeColor RenderMode = iota
	// ModeGray converts pages to grayscale, matching e-ink targets.
	ModeGray
)

func (m RenderMode) String() string {
	switch m {
	case ModeColor:
		return "color"
	case ModeGray:
		return "gray"
	default:
		return "unknown"
	}
}

// Tile is a rendered pixel buffer for a rectangle of one page. The cache
// owns stored tiles; callers must consume a returned tile before the next
// cache-mutating call and must not retain it.
type Tile struct {
	Doc       string
	Page      int
	Rect      image.Rectangle // in native pixel coordinates, rotation applied
	Image     *image.NRGBA
	CreatedAt time.Time
}

// ByteSize estimates the memory held by the tile's pixel data.
func (t *Tile) ByteSize() int64 {
	if t == nil || t.Image == nil {
		return 0
	}
	return int64(len(t.Image.Pix))
}
