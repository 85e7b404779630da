package tile

import "image"

// DefaultTileSize is the edge length used to split pages into tiles when no
// other size is configured.
const DefaultTileSize = 1024

// Grid splits a page of the given dimensions into tiles of tileSize pixels
// per edge, aligned to the absolute page origin. Edge tiles are clipped to
// the page bounds. Because the grid never depends on which rectangle
// triggered a render, the same page always yields the same tile rectangles
// and therefore the same cache keys.
func Grid(width, height, tileSize int) []image.Rectangle {
	if width <= 0 || height <= 0 {
		return nil
	}
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}

	cols := (width + tileSize - 1) / tileSize
	rows := (height + tileSize - 1) / tileSize

	rects := make([]image.Rectangle, 0, cols*rows)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			r := image.Rect(col*tileSize, row*tileSize, (col+1)*tileSize, (row+1)*tileSize)
			rects = append(rects, r.Intersect(image.Rect(0, 0, width, height)))
		}
	}
	return rects
}

// GridCovering returns the grid tiles of a page that intersect clip. The
// returned rectangles are full grid cells (clipped only by the page bounds),
// keeping cache keys stable regardless of the clip.
func GridCovering(width, height, tileSize int, clip image.Rectangle) []image.Rectangle {
	if width <= 0 || height <= 0 {
		return nil
	}
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}

	page := image.Rect(0, 0, width, height)
	clip = clip.Intersect(page)
	if clip.Empty() {
		return nil
	}

	firstCol := clip.Min.X / tileSize
	firstRow := clip.Min.Y / tileSize
	lastCol := (clip.Max.X - 1) / tileSize
	lastRow := (clip.Max.Y - 1) / tileSize

	rects := make([]image.Rectangle, 0, (lastCol-firstCol+1)*(lastRow-firstRow+1))
	for row := firstRow; row <= lastRow; row++ {
		for col := firstCol; col <= lastCol; col++ {
			r := image.Rect(col*tileSize, row*tileSize, (col+1)*tileSize, (row+1)*tileSize)
			rects = append(rects, r.Intersect(page))
		}
	}
	return rects
}
