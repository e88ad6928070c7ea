package formula

import (
	"math"
	"strings"
)

// call dispatches a worksheet function. Functions outside the supported set
// return nil and record a warning; they are never silently mis-evaluated.
func (e *Evaluator) call(name string, args []Value) Value {
	switch name {
	case "TRUE":
		return true
	case "FALSE":
		return false
	case "SUM":
		return e.aggregate(args, aggSum)
	case "AVERAGE", "AVERAGEA":
		return e.aggregate(args, aggAverage)
	case "MIN":
		return e.aggregate(args, aggMin)
	case "MAX":
		return e.aggregate(args, aggMax)
	case "COUNT":
		return e.aggregate(args, aggCount)
	case "COUNTA":
		return e.aggregate(args, aggCountA)
	case "ABS":
		return math.Abs(e.argNumber(args, 0))
	case "MOD":
		return e.fnMod(args)
	case "ROUND":
		return roundHalfAway(e.argNumber(args, 0), int(e.argNumber(args, 1)))
	case "ROUNDUP":
		return roundDirected(e.argNumber(args, 0), int(e.argNumber(args, 1)), true)
	case "ROUNDDOWN":
		return roundDirected(e.argNumber(args, 0), int(e.argNumber(args, 1)), false)
	case "IF":
		return e.fnIf(args)
	case "IFS":
		return e.fnIfs(args)
	case "AND":
		return e.fnAnd(args)
	case "OR":
		return e.fnOr(args)
	case "NOT":
		return !ToBool(e.arg(args, 0))
	case "SUMIF":
		return e.fnSumIf(args)
	case "SUMIFS":
		return e.fnSumIfs(args)
	case "COUNTIF":
		return e.fnCountIf(args)
	case "COUNTIFS":
		return e.fnCountIfs(args)
	case "AVERAGEIF":
		return e.fnAverageIf(args)
	case "AVERAGEIFS":
		return e.fnAverageIfs(args)
	case "VLOOKUP":
		return e.fnVLookup(args)
	case "MATCH":
		return e.fnMatch(args)
	case "INDEX":
		return e.fnIndex(args)
	case "XLOOKUP":
		return e.fnXLookup(args)
	case "DATE":
		return DateSerial(int(e.argNumber(args, 0)), int(e.argNumber(args, 1)), int(e.argNumber(args, 2)))
	case "YEAR":
		return float64(SerialYear(e.argNumber(args, 0)))
	case "MONTH":
		return float64(SerialMonth(e.argNumber(args, 0)))
	case "DAY":
		return float64(SerialDay(e.argNumber(args, 0)))
	case "CONCATENATE", "CONCAT":
		var b strings.Builder
		for _, a := range args {
			b.WriteString(ToText(a))
		}
		return b.String()
	case "LEN":
		return float64(len([]rune(ToText(e.arg(args, 0)))))
	case "UPPER":
		return strings.ToUpper(ToText(e.arg(args, 0)))
	case "LOWER":
		return strings.ToLower(ToText(e.arg(args, 0)))
	case "TRIM":
		return strings.TrimSpace(ToText(e.arg(args, 0)))
	case "LEFT":
		return takeRunes(ToText(e.arg(args, 0)), e.optNumber(args, 1, 1), true)
	case "RIGHT":
		return takeRunes(ToText(e.arg(args, 0)), e.optNumber(args, 1, 1), false)
	default:
		e.warnf("unsupported function %s", name)
		return nil
	}
}

// arg returns the i-th argument or nil when absent.
func (e *Evaluator) arg(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func (e *Evaluator) argNumber(args []Value, i int) float64 {
	return ToNumber(e.arg(args, i))
}

func (e *Evaluator) optNumber(args []Value, i int, def float64) float64 {
	if i >= len(args) || args[i] == nil {
		return def
	}
	return ToNumber(args[i])
}

// ---------- Aggregations ----------

type aggKind int

const (
	aggSum aggKind = iota
	aggAverage
	aggMin
	aggMax
	aggCount
	aggCountA
)

// aggregate folds numbers out of scalar args and range args alike.
func (e *Evaluator) aggregate(args []Value, kind aggKind) Value {
	var nums []float64
	nonEmpty := 0
	collect := func(v Value) {
		if v == nil {
			return
		}
		nonEmpty++
		if n, ok := numericValue(v); ok {
			// Bare text in an aggregation is skipped, matching how
			// worksheet aggregations ignore labels inside a range.
			if _, isStr := v.(string); isStr {
				if _, parses := ParseNumericText(v.(string)); !parses {
					return
				}
			}
			nums = append(nums, n)
		}
	}
	for _, a := range args {
		if r, ok := a.(rangeValue); ok {
			for _, v := range r.flat() {
				collect(v)
			}
		} else {
			collect(a)
		}
	}

	switch kind {
	case aggCount:
		return float64(len(nums))
	case aggCountA:
		return float64(nonEmpty)
	}
	if len(nums) == 0 {
		return 0.0
	}
	switch kind {
	case aggSum:
		total := 0.0
		for _, n := range nums {
			total += n
		}
		return total
	case aggAverage:
		total := 0.0
		for _, n := range nums {
			total += n
		}
		return total / float64(len(nums))
	case aggMin:
		m := nums[0]
		for _, n := range nums[1:] {
			if n < m {
				m = n
			}
		}
		return m
	case aggMax:
		m := nums[0]
		for _, n := range nums[1:] {
			if n > m {
				m = n
			}
		}
		return m
	}
	return nil
}

func (e *Evaluator) fnMod(args []Value) Value {
	d := e.argNumber(args, 1)
	if d == 0 {
		e.warnf("MOD division by zero")
		return 0.0
	}
	// Excel MOD takes the sign of the divisor.
	r := math.Mod(e.argNumber(args, 0), d)
	if r != 0 && (r < 0) != (d < 0) {
		r += d
	}
	return r
}

// roundHalfAway implements ROUND: halves round away from zero.
func roundHalfAway(n float64, digits int) float64 {
	mult := math.Pow(10, float64(digits))
	return math.Round(n*mult) / mult
}

// roundDirected implements ROUNDUP (away from zero) and ROUNDDOWN (toward
// zero).
func roundDirected(n float64, digits int, up bool) float64 {
	mult := math.Pow(10, float64(digits))
	scaled := n * mult
	if up {
		if scaled >= 0 {
			scaled = math.Ceil(scaled)
		} else {
			scaled = math.Floor(scaled)
		}
	} else {
		scaled = math.Trunc(scaled)
	}
	return scaled / mult
}

func (e *Evaluator) fnIf(args []Value) Value {
	if ToBool(e.arg(args, 0)) {
		return e.arg(args, 1)
	}
	if len(args) > 2 {
		return args[2]
	}
	return false
}

func (e *Evaluator) fnIfs(args []Value) Value {
	for i := 0; i+1 < len(args); i += 2 {
		if ToBool(args[i]) {
			return args[i+1]
		}
	}
	e.warnf("IFS: no condition matched")
	return nil
}

func (e *Evaluator) fnAnd(args []Value) Value {
	for _, a := range args {
		if r, ok := a.(rangeValue); ok {
			for _, v := range r.flat() {
				if v != nil && !ToBool(v) {
					return false
				}
			}
			continue
		}
		if !ToBool(a) {
			return false
		}
	}
	return true
}

func (e *Evaluator) fnOr(args []Value) Value {
	for _, a := range args {
		if r, ok := a.(rangeValue); ok {
			for _, v := range r.flat() {
				if v != nil && ToBool(v) {
					return true
				}
			}
			continue
		}
		if ToBool(a) {
			return true
		}
	}
	return false
}

// ---------- Criteria functions ----------

// matchCriteria implements the shared criteria grammar of SUMIF/COUNTIF and
// friends: a bare value, a string beginning with a comparison operator, or
// a wildcard pattern with '*' and '?'.
func matchCriteria(v Value, criterion Value) bool {
	s, isText := criterion.(string)
	if !isText {
		return equalValues(v, criterion)
	}

	for _, op := range []string{">=", "<=", "<>", ">", "<", "="} {
		if strings.HasPrefix(s, op) {
			operand := parseCriterionOperand(s[len(op):])
			switch op {
			case ">=":
				return compareValues(v, operand) >= 0
			case "<=":
				return compareValues(v, operand) <= 0
			case "<>":
				return !equalValues(v, operand)
			case ">":
				return compareValues(v, operand) > 0
			case "<":
				return compareValues(v, operand) < 0
			default:
				return equalValues(v, operand)
			}
		}
	}

	if strings.ContainsAny(s, "*?") {
		return wildcardMatch(strings.ToLower(ToText(v)), strings.ToLower(s))
	}
	return equalValues(v, criterion)
}

// parseCriterionOperand interprets the text after a comparison operator as
// a number when it looks like one.
func parseCriterionOperand(s string) Value {
	if n, ok := ParseNumericText(s); ok {
		return n
	}
	return s
}

// wildcardMatch matches '*' (any run) and '?' (any single char).
func wildcardMatch(s, pattern string) bool {
	if pattern == "" {
		return s == ""
	}
	switch pattern[0] {
	case '*':
		for i := 0; i <= len(s); i++ {
			if wildcardMatch(s[i:], pattern[1:]) {
				return true
			}
		}
		return false
	case '?':
		return s != "" && wildcardMatch(s[1:], pattern[1:])
	default:
		return s != "" && s[0] == pattern[0] && wildcardMatch(s[1:], pattern[1:])
	}
}

// asList flattens a range argument to a value slice; a scalar becomes a
// one-element list.
func asList(v Value) []Value {
	if r, ok := v.(rangeValue); ok {
		return r.flat()
	}
	if v == nil {
		return nil
	}
	return []Value{v}
}

func (e *Evaluator) fnSumIf(args []Value) Value {
	crit := asList(e.arg(args, 0))
	criterion := e.arg(args, 1)
	sum := asList(e.arg(args, 2))
	if len(sum) == 0 {
		sum = crit
	}
	total := 0.0
	for i, cv := range crit {
		if i < len(sum) && matchCriteria(cv, criterion) {
			total += ToNumber(sum[i])
		}
	}
	return total
}

// ifsSelect returns the indexes where every (range, criterion) pair matches.
func ifsSelect(args []Value, length int) []int {
	var idx []int
	for i := 0; i < length; i++ {
		ok := true
		for p := 0; p+1 < len(args); p += 2 {
			rng := asList(args[p])
			var v Value
			if i < len(rng) {
				v = rng[i]
			}
			if !matchCriteria(v, args[p+1]) {
				ok = false
				break
			}
		}
		if ok {
			idx = append(idx, i)
		}
	}
	return idx
}

func (e *Evaluator) fnSumIfs(args []Value) Value {
	sum := asList(e.arg(args, 0))
	total := 0.0
	for _, i := range ifsSelect(args[1:], len(sum)) {
		total += ToNumber(sum[i])
	}
	return total
}

func (e *Evaluator) fnCountIf(args []Value) Value {
	crit := asList(e.arg(args, 0))
	criterion := e.arg(args, 1)
	count := 0
	for _, v := range crit {
		if matchCriteria(v, criterion) {
			count++
		}
	}
	return float64(count)
}

func (e *Evaluator) fnCountIfs(args []Value) Value {
	if len(args) == 0 {
		return 0.0
	}
	length := len(asList(args[0]))
	return float64(len(ifsSelect(args, length)))
}

func (e *Evaluator) fnAverageIf(args []Value) Value {
	crit := asList(e.arg(args, 0))
	criterion := e.arg(args, 1)
	avg := asList(e.arg(args, 2))
	if len(avg) == 0 {
		avg = crit
	}
	total, count := 0.0, 0
	for i, cv := range crit {
		if i < len(avg) && matchCriteria(cv, criterion) {
			total += ToNumber(avg[i])
			count++
		}
	}
	if count == 0 {
		e.warnf("AVERAGEIF: no cells matched")
		return 0.0
	}
	return total / float64(count)
}

func (e *Evaluator) fnAverageIfs(args []Value) Value {
	avg := asList(e.arg(args, 0))
	idx := ifsSelect(args[1:], len(avg))
	if len(idx) == 0 {
		e.warnf("AVERAGEIFS: no cells matched")
		return 0.0
	}
	total := 0.0
	for _, i := range idx {
		total += ToNumber(avg[i])
	}
	return total / float64(len(idx))
}

// ---------- Lookup functions ----------

func (e *Evaluator) fnVLookup(args []Value) Value {
	lookup := e.arg(args, 0)
	table, ok := e.arg(args, 1).(rangeValue)
	if !ok || table.cols == 0 {
		e.warnf("VLOOKUP: table argument is not a range")
		return nil
	}
	colIndex := int(e.argNumber(args, 2))
	approximate := true
	if len(args) > 3 {
		approximate = ToBool(args[3])
	}
	if colIndex < 1 || colIndex > table.cols {
		e.warnf("VLOOKUP: column index %d out of range", colIndex)
		return nil
	}

	if !approximate {
		for row := 0; row < table.rows(); row++ {
			if equalValues(table.at(row, 0), lookup) {
				return table.at(row, colIndex-1)
			}
		}
		e.warnf("VLOOKUP: %v not found", lookup)
		return nil
	}

	// Approximate match assumes the first column is sorted ascending:
	// the last row whose key is <= the lookup value wins.
	best := -1
	for row := 0; row < table.rows(); row++ {
		if compareValues(table.at(row, 0), lookup) <= 0 {
			best = row
		} else {
			break
		}
	}
	if best < 0 {
		e.warnf("VLOOKUP: %v below first key", lookup)
		return nil
	}
	return table.at(best, colIndex-1)
}

func (e *Evaluator) fnMatch(args []Value) Value {
	lookup := e.arg(args, 0)
	array := asList(e.arg(args, 1))
	matchType := 1
	if len(args) > 2 {
		matchType = int(ToNumber(args[2]))
	}

	switch matchType {
	case 0:
		for i, v := range array {
			if equalValues(v, lookup) {
				return float64(i + 1)
			}
		}
	case 1:
		// Largest value <= lookup; array assumed ascending.
		best := -1
		for i, v := range array {
			if compareValues(v, lookup) <= 0 {
				best = i
			} else {
				break
			}
		}
		if best >= 0 {
			return float64(best + 1)
		}
	case -1:
		// Smallest value >= lookup; array assumed descending.
		best := -1
		for i, v := range array {
			if compareValues(v, lookup) >= 0 {
				best = i
			} else {
				break
			}
		}
		if best >= 0 {
			return float64(best + 1)
		}
	}
	e.warnf("MATCH: %v not found", lookup)
	return nil
}

func (e *Evaluator) fnIndex(args []Value) Value {
	array, ok := e.arg(args, 0).(rangeValue)
	if !ok {
		e.warnf("INDEX: array argument is not a range")
		return nil
	}
	row := int(e.argNumber(args, 1))
	col := int(e.optNumber(args, 2, 1))
	if array.rows() == 1 && len(args) < 3 {
		// Single-row array indexed by its only dimension.
		col, row = row, 1
	}
	if row < 1 || row > array.rows() || col < 1 || col > array.cols {
		e.warnf("INDEX: position (%d,%d) out of range", row, col)
		return nil
	}
	return array.at(row-1, col-1)
}

// XLOOKUP match modes and search modes, per the worksheet function.
const (
	xlookupExact       = 0
	xlookupNextSmaller = -1
	xlookupNextLarger  = 1
)

func (e *Evaluator) fnXLookup(args []Value) Value {
	lookup := e.arg(args, 0)
	lookupArray := asList(e.arg(args, 1))
	returnArray := asList(e.arg(args, 2))
	matchMode := int(e.optNumber(args, 4, 0))
	searchMode := int(e.optNumber(args, 5, 1))

	order := make([]int, len(lookupArray))
	for i := range order {
		if searchMode == -1 {
			order[i] = len(lookupArray) - 1 - i // last-to-first
		} else {
			order[i] = i
		}
	}

	returnAt := func(i int) Value {
		if i < len(returnArray) {
			return returnArray[i]
		}
		return nil
	}

	best := -1
	for _, i := range order {
		v := lookupArray[i]
		if equalValues(v, lookup) {
			return returnAt(i)
		}
		switch matchMode {
		case xlookupNextSmaller:
			if compareValues(v, lookup) < 0 && (best < 0 || compareValues(v, lookupArray[best]) > 0) {
				best = i
			}
		case xlookupNextLarger:
			if compareValues(v, lookup) > 0 && (best < 0 || compareValues(v, lookupArray[best]) < 0) {
				best = i
			}
		}
	}
	if matchMode != xlookupExact && best >= 0 {
		return returnAt(best)
	}
	if len(args) > 3 && args[3] != nil {
		return args[3] // if_not_found
	}
	e.warnf("XLOOKUP: %v not found", lookup)
	return nil
}

func takeRunes(s string, n float64, fromLeft bool) string {
	runes := []rune(s)
	count := int(n)
	if count < 0 {
		count = 0
	}
	if count > len(runes) {
		count = len(runes)
	}
	if fromLeft {
		return string(runes[:count])
	}
	return string(runes[len(runes)-count:])
}
