package formula

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapsheet/pkg/cell"
)

// Value is a cell value at evaluation time: float64, string, bool, or nil
// for an empty cell.
type Value any

// ValueSource supplies cell values by canonical address during evaluation.
type ValueSource interface {
	CellValue(addr string) (Value, bool)
}

// MapSource is a ValueSource backed by a plain map, used for test synthesis
// and the evaluator tests themselves.
type MapSource map[string]Value

// CellValue implements ValueSource.
func (m MapSource) CellValue(addr string) (Value, bool) {
	v, ok := m[addr]
	return v, ok
}

// rangeValue is the evaluated form of a RangeRef: a row-major grid of cell
// values. Aggregations flatten it; lookups use its shape.
type rangeValue struct {
	cells []Value
	cols  int
}

func (r rangeValue) rows() int {
	if r.cols == 0 {
		return 0
	}
	return len(r.cells) / r.cols
}

func (r rangeValue) at(row, col int) Value {
	i := row*r.cols + col
	if i < 0 || i >= len(r.cells) {
		return nil
	}
	return r.cells[i]
}

// column returns one column of the grid as a flat slice.
func (r rangeValue) column(col int) []Value {
	out := make([]Value, 0, r.rows())
	for row := 0; row < r.rows(); row++ {
		out = append(out, r.at(row, col))
	}
	return out
}

// flat returns the grid as a single row-major slice. For a single-column or
// single-row range this is the natural 1-D view the lookup functions use.
func (r rangeValue) flat() []Value {
	return r.cells
}

// Evaluator walks formula ASTs against a value source. It never aborts:
// malformed fragments evaluate to a neutral zero, unknown functions to nil,
// and every degradation is recorded as a warning the caller can inspect.
type Evaluator struct {
	source     ValueSource
	rangeLimit int

	warnings []string
}

// NewEvaluator creates an evaluator. rangeLimit bounds range expansion the
// same way the graph builder bounds it; ranges over the limit evaluate as
// empty and add a warning.
func NewEvaluator(source ValueSource, rangeLimit int) *Evaluator {
	return &Evaluator{source: source, rangeLimit: rangeLimit}
}

// Warnings returns the degradations recorded since construction.
func (e *Evaluator) Warnings() []string {
	return e.warnings
}

func (e *Evaluator) warnf(format string, args ...any) {
	e.warnings = append(e.warnings, fmt.Sprintf(format, args...))
}

// Eval evaluates the tree to a single value.
func (e *Evaluator) Eval(n Node) Value {
	switch v := e.eval(n).(type) {
	case rangeValue:
		// A bare range in scalar position collapses to its first cell.
		if len(v.cells) > 0 {
			return v.cells[0]
		}
		return nil
	default:
		return v
	}
}

func (e *Evaluator) eval(n Node) Value {
	switch v := n.(type) {
	case *Number:
		return v.Value
	case *String:
		return v.Value
	case *Reference:
		val, ok := e.source.CellValue(v.Addr)
		if !ok {
			return nil
		}
		return val
	case *RangeRef:
		return e.evalRange(v.Ref)
	case *Unary:
		return -ToNumber(e.eval(v.Operand))
	case *Binary:
		return e.evalBinary(v)
	case *Call:
		return e.evalCall(v)
	case *ErrorNode:
		// Parse holes evaluate to a neutral zero rather than aborting.
		return 0.0
	default:
		return nil
	}
}

func (e *Evaluator) evalRange(ref string) Value {
	r, err := cell.ParseRange(ref)
	if err != nil {
		e.warnf("bad range %s: %v", ref, err)
		return rangeValue{}
	}
	addrs, ok := r.Expand(e.rangeLimit)
	if !ok {
		e.warnf("range %s exceeds expansion limit (%d cells), treated as empty", ref, e.rangeLimit)
		return rangeValue{}
	}
	cells := make([]Value, len(addrs))
	for i, a := range addrs {
		if v, found := e.source.CellValue(a.String()); found {
			cells[i] = v
		}
	}
	return rangeValue{cells: cells, cols: r.EndCol - r.StartCol + 1}
}

func (e *Evaluator) evalBinary(b *Binary) Value {
	left := e.eval(b.Left)
	right := e.eval(b.Right)

	switch b.Op {
	case "+":
		return ToNumber(left) + ToNumber(right)
	case "-":
		return ToNumber(left) - ToNumber(right)
	case "*":
		return ToNumber(left) * ToNumber(right)
	case "/":
		d := ToNumber(right)
		if d == 0 {
			e.warnf("division by zero")
			return 0.0
		}
		return ToNumber(left) / d
	case "^":
		return math.Pow(ToNumber(left), ToNumber(right))
	case "&":
		return ToText(left) + ToText(right)
	case "=":
		return equalValues(left, right)
	case "<>":
		return !equalValues(left, right)
	case "<":
		return compareValues(left, right) < 0
	case ">":
		return compareValues(left, right) > 0
	case "<=":
		return compareValues(left, right) <= 0
	case ">=":
		return compareValues(left, right) >= 0
	default:
		e.warnf("unknown operator %q", b.Op)
		return nil
	}
}

func (e *Evaluator) evalCall(c *Call) Value {
	args := make([]Value, len(c.Args))
	for i, arg := range c.Args {
		args[i] = e.eval(arg)
	}
	return e.call(c.Name, args)
}

// ---------- Coercion ----------

// ToNumber coerces a value to float64 the way formula arithmetic does.
// Strings go through locale-aware parsing; empty cells count as zero;
// unparsable text counts as zero.
func ToNumber(v Value) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case bool:
		if val {
			return 1
		}
		return 0
	case string:
		if n, ok := ParseNumericText(val); ok {
			return n
		}
		return 0
	case nil:
		return 0
	default:
		return 0
	}
}

// ToText coerces a value to its text form for '&' concatenation.
func ToText(v Value) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

// ToBool coerces a value to a condition result.
func ToBool(v Value) bool {
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		if strings.EqualFold(val, "TRUE") {
			return true
		}
		if strings.EqualFold(val, "FALSE") {
			return false
		}
		return val != ""
	case nil:
		return false
	default:
		return false
	}
}

// currencyRunes are stripped before numeric parsing.
const currencyRunes = "$€£¥₹"

// ParseNumericText parses human-formatted numeric text. Whichever of '.'
// and ',' appears last is the decimal separator; the other is a thousands
// separator and is removed. Currency symbols are stripped, and a trailing
// '%' divides the result by 100.
func ParseNumericText(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	percent := false
	if strings.HasSuffix(s, "%") {
		percent = true
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	}

	var b strings.Builder
	for _, r := range s {
		if !strings.ContainsRune(currencyRunes, r) && r != ' ' {
			b.WriteRune(r)
		}
	}
	s = b.String()

	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			// European style: 1.234,56
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		// Only commas present: the last one is the decimal separator.
		s = strings.ReplaceAll(s[:lastComma], ",", "") + "." + s[lastComma+1:]
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if percent {
		n /= 100
	}
	return n, true
}

// equalValues implements '=' semantics: numeric when both sides coerce to
// numbers, otherwise case-insensitive text comparison.
func equalValues(a, b Value) bool {
	an, aIsNum := numericValue(a)
	bn, bIsNum := numericValue(b)
	if aIsNum && bIsNum {
		return an == bn
	}
	return strings.EqualFold(ToText(a), ToText(b))
}

// compareValues orders two values: numerically when possible, else by
// case-insensitive text.
func compareValues(a, b Value) int {
	an, aIsNum := numericValue(a)
	bn, bIsNum := numericValue(b)
	if aIsNum && bIsNum {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(strings.ToLower(ToText(a)), strings.ToLower(ToText(b)))
}

// numericValue reports whether the value is inherently numeric (a number,
// a bool, an empty cell, or numeric-looking text).
func numericValue(v Value) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case nil:
		return 0, true
	case string:
		return ParseNumericText(val)
	default:
		return 0, false
	}
}
