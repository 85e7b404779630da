package viewport

import (
	"testing"
)

func TestSpreadsLandscapeSolo(t *testing.T) {
	doc := sizedDoc(t,
		[2]int{900, 1400},
		[2]int{900, 1400},
		[2]int{1400, 900}, // landscape
		[2]int{900, 1400},
		[2]int{900, 1400})
	c := NewController(doc, nil)

	expected := []Spread{
		{Left: 1, Right: 2},
		{Left: 3, Right: SoloPage},
		{Left: 4, Right: 5},
	}

	got := c.Spreads()
	if len(got) != len(expected) {
		t.Fatalf("Spreads() returned %d spreads, expected %d", len(got), len(expected))
	}
	for i, s := range got {
		if s != expected[i] {
			t.Errorf("spread %d = %+v, expected %+v", i, s, expected[i])
		}
	}
}

func TestSpreadsOddTailSolo(t *testing.T) {
	doc := sizedDoc(t,
		[2]int{900, 1400}, [2]int{900, 1400}, [2]int{900, 1400})
	c := NewController(doc, nil)

	got := c.Spreads()
	if len(got) != 2 {
		t.Fatalf("Spreads() returned %d spreads, expected 2", len(got))
	}
	if got[1].Left != 3 || !got[1].Solo() {
		t.Errorf("trailing spread = %+v, expected page 3 solo", got[1])
	}
}

func TestSpreadsUnaffectedByDirection(t *testing.T) {
	doc := sizedDoc(t,
		[2]int{900, 1400}, [2]int{900, 1400},
		[2]int{1400, 900}, [2]int{900, 1400})
	c := NewController(doc, nil)

	ltr := c.Spreads()
	c.SetDirection(RTL)
	rtl := c.Spreads()

	if len(ltr) != len(rtl) {
		t.Fatalf("pairing changed with direction: %v vs %v", ltr, rtl)
	}
	for i := range ltr {
		if ltr[i] != rtl[i] {
			t.Errorf("spread %d changed with direction: %+v vs %+v", i, ltr[i], rtl[i])
		}
	}
}

func TestSpreadVisualOrder(t *testing.T) {
	tests := []struct {
		name        string
		spread      Spread
		dir         Direction
		left, right int
	}{
		{"pair ltr", Spread{Left: 1, Right: 2}, LTR, 1, 2},
		{"pair rtl", Spread{Left: 1, Right: 2}, RTL, 2, 1},
		{"solo ltr", Spread{Left: 3, Right: SoloPage}, LTR, 3, 3},
		{"solo rtl", Spread{Left: 3, Right: SoloPage}, RTL, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			left, right := tt.spread.VisualOrder(tt.dir)
			if left != tt.left || right != tt.right {
				t.Errorf("VisualOrder(%v) = (%d, %d), expected (%d, %d)",
					tt.dir, left, right, tt.left, tt.right)
			}
		})
	}
}

func TestSpreadFor(t *testing.T) {
	doc := sizedDoc(t,
		[2]int{900, 1400}, [2]int{900, 1400},
		[2]int{1400, 900}, [2]int{900, 1400})
	c := NewController(doc, nil)

	if got := c.SpreadFor(2); got.Left != 1 || got.Right != 2 {
		t.Errorf("SpreadFor(2) = %+v, expected {1 2}", got)
	}
	if got := c.SpreadFor(3); got.Left != 3 || !got.Solo() {
		t.Errorf("SpreadFor(3) = %+v, expected page 3 solo", got)
	}
	if got := c.SpreadFor(99); got != (Spread{}) {
		t.Errorf("SpreadFor(99) = %+v, expected zero spread", got)
	}
}

func TestSpreadsRotationChangesAspect(t *testing.T) {
	doc := sizedDoc(t,
		[2]int{900, 1400}, [2]int{900, 1400})
	c := NewController(doc, nil)
	c.SetRotation(90)

	// At a quarter turn every portrait page presents landscape, so each
	// page gets its own spread.
	got := c.Spreads()
	if len(got) != 2 {
		t.Fatalf("Spreads() returned %d spreads, expected 2", len(got))
	}
	for i, s := range got {
		if !s.Solo() {
			t.Errorf("spread %d = %+v, expected solo", i, s)
		}
	}
}
