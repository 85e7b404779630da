package tile

import (
	"image"
	"testing"
)

func TestNativeKeyExcludesZoom(t *testing.T) {
	rect := image.Rect(0, 0, 1024, 1024)

	// Two renders of the same rectangle at different zoom factors must hit
	// the same native key so they share a single decode.
	a := NewKey("doc", 7, 3, rect, 0, 1.0, ModeColor)
	b := NewKey("doc", 7, 3, rect, 0, 1.0, ModeColor)
	if a != b {
		t.Errorf("identical parameters produced different keys: %+v vs %+v", a, b)
	}

	sa := NewScaledKey("doc", 7, 3, rect, 0, 1.0, ModeColor, 1.0)
	sb := NewScaledKey("doc", 7, 3, rect, 0, 1.0, ModeColor, 1.5)
	if sa.Key != sb.Key {
		t.Error("scaled keys at different zooms should share the native key part")
	}
	if sa == sb {
		t.Error("scaled keys at different zooms must differ")
	}
}

func TestKeyDistinguishesParameters(t *testing.T) {
	base := NewKey("doc", 1, 1, image.Rect(0, 0, 100, 100), 0, 1.0, ModeColor)

	variants := map[string]Key{
		"document": NewKey("other", 1, 1, image.Rect(0, 0, 100, 100), 0, 1.0, ModeColor),
		"stamp":    NewKey("doc", 2, 1, image.Rect(0, 0, 100, 100), 0, 1.0, ModeColor),
		"page":     NewKey("doc", 1, 2, image.Rect(0, 0, 100, 100), 0, 1.0, ModeColor),
		"rect":     NewKey("doc", 1, 1, image.Rect(0, 0, 100, 200), 0, 1.0, ModeColor),
		"rotation": NewKey("doc", 1, 1, image.Rect(0, 0, 100, 100), 90, 1.0, ModeColor),
		"gamma":    NewKey("doc", 1, 1, image.Rect(0, 0, 100, 100), 0, 1.4, ModeColor),
		"mode":     NewKey("doc", 1, 1, image.Rect(0, 0, 100, 100), 0, 1.0, ModeGray),
	}

	for name, k := range variants {
		if k == base {
			t.Errorf("changing %s did not change the key", name)
		}
	}
}

func TestGammaQuantization(t *testing.T) {
	// Float noise below a hundredth lands on the same key.
	a := NewKey("d", 0, 1, image.Rect(0, 0, 10, 10), 0, 1.2, ModeColor)
	b := NewKey("d", 0, 1, image.Rect(0, 0, 10, 10), 0, 1.2001, ModeColor)
	if a != b {
		t.Error("sub-hundredth gamma jitter changed the key")
	}
}

func TestNormalizeRotation(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 0},
		{90, 90},
		{180, 180},
		{270, 270},
		{360, 0},
		{450, 90},
		{-90, 270},
	}

	for _, test := range tests {
		if got := normalizeRotation(test.in); got != test.want {
			t.Errorf("normalizeRotation(%d) = %d, expected %d", test.in, got, test.want)
		}
	}
}
