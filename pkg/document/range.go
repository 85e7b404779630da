package document

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is an inclusive span of page numbers.
type Range struct {
	Start int
	End   int
}

// RangeSet holds the page ranges selected for an operation, such as an
// export of chapters 1-3 and the cover.
type RangeSet struct {
	ranges []Range
}

// ParseRanges parses a page selection string like "1-2,5,10-15". An empty
// string yields an empty set, which callers treat as "all pages".
func ParseRanges(rangeStr string) (*RangeSet, error) {
	if rangeStr == "" {
		return &RangeSet{}, nil
	}

	var ranges []Range
	for _, part := range strings.Split(rangeStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if strings.Contains(part, "-") {
			rangeParts := strings.Split(part, "-")
			if len(rangeParts) != 2 {
				return nil, fmt.Errorf("invalid range format: %s", part)
			}

			start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
			if err != nil {
				return nil, fmt.Errorf("invalid start page: %s", rangeParts[0])
			}
			end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
			if err != nil {
				return nil, fmt.Errorf("invalid end page: %s", rangeParts[1])
			}
			if start > end {
				return nil, fmt.Errorf("start page (%d) cannot be greater than end page (%d)", start, end)
			}

			ranges = append(ranges, Range{Start: start, End: end})
		} else {
			page, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid page number: %s", part)
			}
			ranges = append(ranges, Range{Start: page, End: page})
		}
	}

	return &RangeSet{ranges: ranges}, nil
}

// IsEmpty reports whether no ranges were selected.
func (rs *RangeSet) IsEmpty() bool {
	return len(rs.ranges) == 0
}

// Contains reports whether a page number falls inside any selected range.
func (rs *RangeSet) Contains(page int) bool {
	for _, r := range rs.ranges {
		if page >= r.Start && page <= r.End {
			return true
		}
	}
	return false
}

// Count returns the total number of selected pages.
func (rs *RangeSet) Count() int {
	count := 0
	for _, r := range rs.ranges {
		count += r.End - r.Start + 1
	}
	return count
}

// Pages expands the set into page numbers in document order, deduplicated
// and capped to total. An empty set expands to every page.
func (rs *RangeSet) Pages(total int) []int {
	var pages []int
	if rs.IsEmpty() {
		for p := 1; p <= total; p++ {
			pages = append(pages, p)
		}
		return pages
	}

	for p := 1; p <= total; p++ {
		if rs.Contains(p) {
			pages = append(pages, p)
		}
	}
	return pages
}

// Validate checks that every selected page exists in a document of
// totalPages pages.
func (rs *RangeSet) Validate(totalPages int) error {
	for _, r := range rs.ranges {
		if r.Start < 1 {
			return fmt.Errorf("page numbers must be 1 or greater, got: %d", r.Start)
		}
		if r.End > totalPages {
			return fmt.Errorf("page %d exceeds total pages (%d)", r.End, totalPages)
		}
	}
	return nil
}

// String formats the set back into the parseable form.
func (rs *RangeSet) String() string {
	if len(rs.ranges) == 0 {
		return ""
	}

	var parts []string
	for _, r := range rs.ranges {
		if r.Start == r.End {
			parts = append(parts, strconv.Itoa(r.Start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", r.Start, r.End))
		}
	}
	return strings.Join(parts, ",")
}
