package viewport

// SoloPage marks a spread's right slot as empty: the left page displays
// alone, centered in the full viewport.
const SoloPage = -1

// Spread pairs two physical pages in reading order. Left is always the
// earlier page; reading direction decides which one ends up on the
// visual left.
type Spread struct {
	Left  int
	Right int
}

// Solo reports whether the spread holds a single page.
func (s Spread) Solo() bool {
	return s.Right == SoloPage
}

// VisualOrder returns the pages as (visual left, visual right) under the
// given reading direction. Solo spreads return the page twice.
func (s Spread) VisualOrder(dir Direction) (int, int) {
	if s.Solo() {
		return s.Left, s.Left
	}
	if dir == RTL {
		return s.Right, s.Left
	}
	return s.Left, s.Right
}

// Spreads groups every page into dual-page spreads. Pages pair up in
// reading order; a landscape page always gets a spread of its own, as
// does an odd page left at the end. Reading direction never changes the
// grouping, only VisualOrder.
func (c *Controller) Spreads() []Spread {
	count := c.doc.PageCount()
	if count == 0 {
		return nil
	}
	rotation := c.Rotation()

	spreads := make([]Spread, 0, (count+1)/2)
	page := 1
	for page <= count {
		if c.isWide(page, rotation) {
			spreads = append(spreads, Spread{Left: page, Right: SoloPage})
			page++
			continue
		}
		if page+1 <= count && !c.isWide(page+1, rotation) {
			spreads = append(spreads, Spread{Left: page, Right: page + 1})
			page += 2
			continue
		}
		spreads = append(spreads, Spread{Left: page, Right: SoloPage})
		page++
	}
	return spreads
}

// SpreadFor returns the spread containing the given page. The zero
// Spread is returned for pages outside the document.
func (c *Controller) SpreadFor(page int) Spread {
	for _, s := range c.Spreads() {
		if s.Left == page || s.Right == page {
			return s
		}
	}
	return Spread{}
}

// isWide reports whether a page presents landscape under the current
// rotation. Dimensions come from the current belief, so an unvalidated
// page counts as portrait until its real size is known.
func (c *Controller) isWide(page, rotation int) bool {
	w, h := c.doc.CurrentDimensions(page)
	w, h = rotatedDims(w, h, rotation)
	return w > h
}
