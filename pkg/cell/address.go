// Package cell provides parsing and formatting of spreadsheet cell and range
// addresses. The textual form "Sheet!A1" (and "Sheet!A1:B10" for ranges) is
// the universal key exchanged between the classifier, graph builder, logic
// extractor and code generator; no numeric cell IDs leak out of this package.
package cell

import (
	"fmt"
	"strconv"
	"strings"
)

// Address identifies a single cell. Col and Row are 1-based.
type Address struct {
	Sheet string
	Col   int
	Row   int
}

// AddrError reports an address string that could not be parsed.
type AddrError struct {
	Input  string
	Reason string
}

func (e *AddrError) Error() string {
	return fmt.Sprintf("invalid cell address %q: %s", e.Input, e.Reason)
}

// String renders the address in canonical Sheet!A1 form.
func (a Address) String() string {
	return a.Sheet + "!" + ColumnName(a.Col) + strconv.Itoa(a.Row)
}

// Local renders the address without its sheet qualifier (e.g. "B12").
func (a Address) Local() string {
	return ColumnName(a.Col) + strconv.Itoa(a.Row)
}

// Left returns the neighbor one column to the left. At column A the
// result has Col 0; callers check the bound.
func (a Address) Left() Address {
	return Address{Sheet: a.Sheet, Col: a.Col - 1, Row: a.Row}
}

// Right returns the neighbor one column to the right.
func (a Address) Right() Address {
	return Address{Sheet: a.Sheet, Col: a.Col + 1, Row: a.Row}
}

// Above returns the neighbor one row up. At row 1 the result has Row
// 0; callers check the bound.
func (a Address) Above() Address {
	return Address{Sheet: a.Sheet, Col: a.Col, Row: a.Row - 1}
}

// Below returns the neighbor one row down.
func (a Address) Below() Address {
	return Address{Sheet: a.Sheet, Col: a.Col, Row: a.Row + 1}
}

// ColumnName converts a 1-based column number to its letter form (1 -> A,
// 27 -> AA).
func ColumnName(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// ColumnNumber converts a column letter form to its 1-based number.
// Returns 0 for an empty or malformed name.
func ColumnNumber(name string) int {
	n := 0
	for i := 0; i < len(name); i++ {
		ch := name[i]
		switch {
		case ch >= 'A' && ch <= 'Z':
			n = n*26 + int(ch-'A'+1)
		case ch >= 'a' && ch <= 'z':
			n = n*26 + int(ch-'a'+1)
		default:
			return 0
		}
	}
	return n
}

// Parse parses a fully qualified address ("Sheet1!B12"). Absolute markers
// ($B$12) and single quotes around the sheet name are stripped so that the
// canonical form round-trips.
func Parse(s string) (Address, error) {
	return ParseWith(s, "")
}

// ParseWith parses an address, supplying defaultSheet when the input carries
// no sheet qualifier (as references inside a formula usually don't).
func ParseWith(s, defaultSheet string) (Address, error) {
	sheet, local := SplitSheet(s, defaultSheet)
	if sheet == "" {
		return Address{}, &AddrError{Input: s, Reason: "missing sheet qualifier"}
	}
	col, row, ok := parseLocal(local)
	if !ok {
		return Address{}, &AddrError{Input: s, Reason: "malformed cell reference"}
	}
	return Address{Sheet: sheet, Col: col, Row: row}, nil
}

// SplitSheet splits an address or range into sheet name and local part.
// The sheet name loses surrounding single quotes; the local part keeps
// whatever follows the '!'.
func SplitSheet(s, defaultSheet string) (sheet, local string) {
	if i := strings.LastIndexByte(s, '!'); i >= 0 {
		sheet = strings.Trim(s[:i], "'")
		local = s[i+1:]
	} else {
		sheet = defaultSheet
		local = s
	}
	return sheet, local
}

// parseLocal parses "B12" or "$B$12" into column and row numbers.
func parseLocal(s string) (col, row int, ok bool) {
	s = strings.ReplaceAll(s, "$", "")
	i := 0
	for i < len(s) && isAlpha(s[i]) {
		i++
	}
	if i == 0 || i > 3 || i == len(s) {
		return 0, 0, false
	}
	col = ColumnNumber(s[:i])
	row, err := strconv.Atoi(s[i:])
	if err != nil || col == 0 || row <= 0 {
		return 0, 0, false
	}
	return col, row, true
}

func isAlpha(ch byte) bool {
	return (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z')
}

// IsLocalRef reports whether s looks like a bare A1-style cell reference
// (no sheet qualifier). Used by the formula lexer to tell references apart
// from function names and named ranges.
func IsLocalRef(s string) bool {
	_, _, ok := parseLocal(s)
	return ok
}
