package cell

import (
	"strconv"
	"strings"
)

// Range identifies a rectangular cell region on one sheet. Bounds are
// inclusive and normalized so Start <= End on both axes.
type Range struct {
	Sheet    string
	StartCol int
	StartRow int
	EndCol   int
	EndRow   int
}

// String renders the range in canonical Sheet!A1:B10 form.
func (r Range) String() string {
	return r.Sheet + "!" + ColumnName(r.StartCol) + strconv.Itoa(r.StartRow) +
		":" + ColumnName(r.EndCol) + strconv.Itoa(r.EndRow)
}

// Size returns the number of cells covered by the range.
func (r Range) Size() int {
	return (r.EndCol - r.StartCol + 1) * (r.EndRow - r.StartRow + 1)
}

// Contains reports whether the address lies inside the range.
func (r Range) Contains(a Address) bool {
	return a.Sheet == r.Sheet &&
		a.Col >= r.StartCol && a.Col <= r.EndCol &&
		a.Row >= r.StartRow && a.Row <= r.EndRow
}

// Expand lists every address in the range, row-major. When the range covers
// more than limit cells it is not expanded: nil and false are returned and
// the caller must treat the range as opaque. A limit <= 0 means no cap.
func (r Range) Expand(limit int) ([]Address, bool) {
	if limit > 0 && r.Size() > limit {
		return nil, false
	}
	addrs := make([]Address, 0, r.Size())
	for row := r.StartRow; row <= r.EndRow; row++ {
		for col := r.StartCol; col <= r.EndCol; col++ {
			addrs = append(addrs, Address{Sheet: r.Sheet, Col: col, Row: row})
		}
	}
	return addrs, true
}

// ParseRange parses "Sheet1!A1:B10" (or "A1:B10" with a default sheet)
// into a normalized Range.
func ParseRange(s string) (Range, error) {
	return ParseRangeWith(s, "")
}

// ParseRangeWith parses a range, supplying defaultSheet when the input has
// no sheet qualifier.
func ParseRangeWith(s, defaultSheet string) (Range, error) {
	sheet, local := SplitSheet(s, defaultSheet)
	if sheet == "" {
		return Range{}, &AddrError{Input: s, Reason: "missing sheet qualifier"}
	}
	parts := strings.SplitN(local, ":", 2)
	if len(parts) != 2 {
		return Range{}, &AddrError{Input: s, Reason: "missing ':' separator"}
	}
	c1, r1, ok1 := parseLocal(parts[0])
	c2, r2, ok2 := parseLocal(parts[1])
	if !ok1 || !ok2 {
		return Range{}, &AddrError{Input: s, Reason: "malformed range bounds"}
	}
	if c2 < c1 {
		c1, c2 = c2, c1
	}
	if r2 < r1 {
		r1, r2 = r2, r1
	}
	return Range{Sheet: sheet, StartCol: c1, StartRow: r1, EndCol: c2, EndRow: r2}, nil
}

// IsRangeRef reports whether s contains a ':' separating two valid local
// references (ignoring any sheet qualifier).
func IsRangeRef(s string) bool {
	_, local := SplitSheet(s, "x")
	parts := strings.SplitN(local, ":", 2)
	if len(parts) != 2 {
		return false
	}
	return IsLocalRef(parts[0]) && IsLocalRef(parts[1])
}
