package tile

import (
	"image"
	"math"
)

// Key addresses a native tile. It is a plain comparable struct so Go's map
// hashing provides collision-free lookup; no string formatting is involved.
// Zoom is deliberately absent: native tiles are cached pre-scale, so renders
// at different zoom factors share one decode.
type Key struct {
	Doc      string
	Stamp    int64
	Page     int
	X, Y     int
	W, H     int
	Rotation int
	Gamma    int // quantized, hundredths
	Mode     RenderMode
}

// ScaledKey addresses a scaled tile: the native key plus the zoom factor it
// was resampled for.
type ScaledKey struct {
	Key
	Zoom int // quantized, thousandths
}

// QuantizeGamma rounds a gamma value to hundredths for key purposes, so
// jittery float inputs land on the same cached tile.
func QuantizeGamma(gamma float64) int {
	return int(math.Round(gamma * 100))
}

// QuantizeZoom rounds a zoom factor to thousandths for key purposes.
func QuantizeZoom(zoom float64) int {
	return int(math.Round(zoom * 1000))
}

// NewKey builds the native-tile key for a rectangle of a page. The rectangle
// is in native pixel coordinates (already whole pixels after clamping).
func NewKey(doc string, stamp int64, page int, rect image.Rectangle, rotation int, gamma float64, mode RenderMode) Key {
	return Key{
		Doc:      doc,
		Stamp:    stamp,
		Page:     page,
		X:        rect.Min.X,
		Y:        rect.Min.Y,
		W:        rect.Dx(),
		H:        rect.Dy(),
		Rotation: normalizeRotation(rotation),
		Gamma:    QuantizeGamma(gamma),
		Mode:     mode,
	}
}

// NewScaledKey builds the scaled-tile key for the same rectangle at a
// specific zoom factor.
func NewScaledKey(doc string, stamp int64, page int, rect image.Rectangle, rotation int, gamma float64, mode RenderMode, zoom float64) ScaledKey {
	return ScaledKey{
		Key:  NewKey(doc, stamp, page, rect, rotation, gamma, mode),
		Zoom: QuantizeZoom(zoom),
	}
}

// normalizeRotation maps any degree value onto {0, 90, 180, 270}.
func normalizeRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	// Snap to the nearest quarter turn; inputs are expected to already be
	// quarter turns, this just refuses to produce unkeyable values.
	return (deg / 90 * 90) % 360
}
