package formula_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsheet/pkg/formula"
)

const evalRangeLimit = 1000

func evalFormula(t *testing.T, raw string, src formula.MapSource) formula.Value {
	t.Helper()
	parsed, err := formula.Parse(raw, sheet1)
	require.NoError(t, err)
	return formula.NewEvaluator(src, evalRangeLimit).Eval(parsed.Root)
}

func TestEvalChainedFormulas(t *testing.T) {
	src := formula.MapSource{"Sheet1!B1": 5.0}

	c1 := evalFormula(t, "=B1*2", src)
	assert.Equal(t, 10.0, c1)

	src["Sheet1!C1"] = c1
	d1 := evalFormula(t, "=C1+1", src)
	assert.Equal(t, 11.0, d1)
}

func TestEvalArithmetic(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"=1+2*3", 7},
		{"=(1+2)*3", 9},
		{"=2^3^2", 512},
		{"=-2^2", 4}, // unary minus binds tighter than the power operator
		{"=10-4-3", 3},
		{"=7/2", 3.5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, evalFormula(t, tt.raw, formula.MapSource{}), tt.raw)
	}
}

func TestEvalDivisionByZeroWarns(t *testing.T) {
	parsed, err := formula.Parse("=1/0", sheet1)
	require.NoError(t, err)

	ev := formula.NewEvaluator(formula.MapSource{}, evalRangeLimit)
	assert.Equal(t, 0.0, ev.Eval(parsed.Root))
	assert.NotEmpty(t, ev.Warnings())
}

func TestEvalMissingCellIsNil(t *testing.T) {
	assert.Nil(t, evalFormula(t, "=Z99", formula.MapSource{}))
	assert.Equal(t, 0.0, evalFormula(t, "=Z99+0", formula.MapSource{}))
}

func TestEvalConcatenationCoercesText(t *testing.T) {
	src := formula.MapSource{"Sheet1!A1": 2.5}
	assert.Equal(t, "2.5 kg", evalFormula(t, `=A1&" kg"`, src))
}

func TestEvalComparisons(t *testing.T) {
	src := formula.MapSource{"Sheet1!A1": 5.0, "Sheet1!B1": "5"}

	assert.Equal(t, true, evalFormula(t, "=A1=B1", src))
	assert.Equal(t, false, evalFormula(t, "=A1<>B1", src))
	assert.Equal(t, true, evalFormula(t, "=A1>=5", src))
	assert.Equal(t, false, evalFormula(t, "=A1<5", src))
	assert.Equal(t, true, evalFormula(t, `="Apple"="APPLE"`, src))
}

func TestEvalSumOverRange(t *testing.T) {
	src := formula.MapSource{
		"Sheet1!A1": 1.0,
		"Sheet1!A2": 2.0,
		"Sheet1!A3": "label", // ignored by SUM
		"Sheet1!A4": "4",     // numeric text counts
	}
	assert.Equal(t, 7.0, evalFormula(t, "=SUM(A1:A4)", src))
	assert.Equal(t, 3.0, evalFormula(t, "=COUNT(A1:A4)", src))
	assert.Equal(t, 4.0, evalFormula(t, "=COUNTA(A1:A4)", src))
}

func TestEvalSumIfs(t *testing.T) {
	src := formula.MapSource{
		"Sheet1!A1": 10.0, "Sheet1!A2": 20.0, "Sheet1!A3": 30.0,
		"Sheet1!B1": 1.0, "Sheet1!B2": 1.0, "Sheet1!B3": 2.0,
	}
	assert.Equal(t, 30.0, evalFormula(t, "=SUMIFS(A1:A3,B1:B3,1)", src))
	assert.Equal(t, 30.0, evalFormula(t, "=SUMIF(B1:B3,2,A1:A3)", src))
	assert.Equal(t, 2.0, evalFormula(t, "=COUNTIF(B1:B3,1)", src))
	assert.Equal(t, 15.0, evalFormula(t, "=AVERAGEIF(B1:B3,1,A1:A3)", src))
}

func TestEvalCriteriaOperatorsAndWildcards(t *testing.T) {
	src := formula.MapSource{
		"Sheet1!A1": 5.0, "Sheet1!A2": 15.0, "Sheet1!A3": 25.0,
		"Sheet1!B1": "apple", "Sheet1!B2": "apricot", "Sheet1!B3": "banana",
	}
	assert.Equal(t, 2.0, evalFormula(t, `=COUNTIF(A1:A3,">10")`, src))
	assert.Equal(t, 40.0, evalFormula(t, `=SUMIF(A1:A3,">=15")`, src))
	assert.Equal(t, 2.0, evalFormula(t, `=COUNTIF(B1:B3,"ap*")`, src))
	assert.Equal(t, 1.0, evalFormula(t, `=COUNTIF(B1:B3,"?anana")`, src))
	assert.Equal(t, 2.0, evalFormula(t, `=COUNTIF(A1:A3,"<>5")`, src))
}

func TestEvalVLookup(t *testing.T) {
	src := formula.MapSource{
		"Sheet1!A1": 1.0, "Sheet1!B1": "one",
		"Sheet1!A2": 2.0, "Sheet1!B2": "two",
		"Sheet1!A3": 3.0, "Sheet1!B3": "three",
	}
	assert.Equal(t, "two", evalFormula(t, "=VLOOKUP(2,A1:B3,2,FALSE)", src))
	// Approximate match takes the last key <= lookup.
	assert.Equal(t, "two", evalFormula(t, "=VLOOKUP(2.9,A1:B3,2)", src))

	parsed, err := formula.Parse("=VLOOKUP(9,A1:B3,2,FALSE)", sheet1)
	require.NoError(t, err)
	ev := formula.NewEvaluator(src, evalRangeLimit)
	assert.Nil(t, ev.Eval(parsed.Root))
	assert.NotEmpty(t, ev.Warnings())
}

func TestEvalXLookup(t *testing.T) {
	src := formula.MapSource{
		"Sheet1!A1": 1.0, "Sheet1!A2": 2.0, "Sheet1!A3": 3.0,
		"Sheet1!B1": 10.0, "Sheet1!B2": 20.0, "Sheet1!B3": 30.0,
	}
	assert.Equal(t, 20.0, evalFormula(t, "=XLOOKUP(2,A1:A3,B1:B3)", src))
	// Not found with an if_not_found fallback.
	assert.Equal(t, -1.0, evalFormula(t, "=XLOOKUP(5,A1:A3,B1:B3,-1)", src))
	// Next-smaller match mode.
	assert.Equal(t, 20.0, evalFormula(t, "=XLOOKUP(2.5,A1:A3,B1:B3,0,-1)", src))
	// Skipping if_not_found with an empty argument keeps the match
	// mode in its slot.
	assert.Equal(t, 20.0, evalFormula(t, "=XLOOKUP(2.5,A1:A3,B1:B3,,-1)", src))
	// Next-larger match mode.
	assert.Equal(t, 30.0, evalFormula(t, "=XLOOKUP(2.5,A1:A3,B1:B3,0,1)", src))
}

func TestEvalMatchAndIndex(t *testing.T) {
	src := formula.MapSource{
		"Sheet1!A1": 10.0, "Sheet1!A2": 20.0, "Sheet1!A3": 30.0,
	}
	assert.Equal(t, 2.0, evalFormula(t, "=MATCH(20,A1:A3,0)", src))
	assert.Equal(t, 2.0, evalFormula(t, "=MATCH(25,A1:A3,1)", src))
	assert.Equal(t, 30.0, evalFormula(t, "=INDEX(A1:A3,3)", src))
}

func TestEvalConditionals(t *testing.T) {
	src := formula.MapSource{"Sheet1!A1": 5.0}

	assert.Equal(t, "big", evalFormula(t, `=IF(A1>3,"big","small")`, src))
	assert.Equal(t, "small", evalFormula(t, `=IF(A1>30,"big","small")`, src))
	assert.Equal(t, false, evalFormula(t, "=IF(A1>30,1)", src))
	assert.Equal(t, "mid", evalFormula(t, `=IFS(A1>10,"high",A1>3,"mid",TRUE,"low")`, src))
	assert.Equal(t, true, evalFormula(t, "=AND(A1>0,A1<10)", src))
	assert.Equal(t, false, evalFormula(t, "=OR(A1>10,A1<0)", src))
	assert.Equal(t, true, evalFormula(t, "=NOT(A1>10)", src))
}

func TestEvalRounding(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"=ROUND(2.5,0)", 3},
		{"=ROUND(-2.5,0)", -3},
		{"=ROUND(1.234,2)", 1.23},
		{"=ROUNDUP(1.21,1)", 1.3},
		{"=ROUNDDOWN(1.29,1)", 1.2},
		{"=ROUNDUP(-1.21,1)", -1.3},
		{"=MOD(-3,2)", 1},
		{"=MOD(3,-2)", -1},
		{"=ABS(-4)", 4},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, evalFormula(t, tt.raw, formula.MapSource{}), 1e-9, tt.raw)
	}
}

func TestEvalTextFunctions(t *testing.T) {
	src := formula.MapSource{"Sheet1!A1": "  Widget  "}

	assert.Equal(t, "Widget", evalFormula(t, "=TRIM(A1)", src))
	assert.Equal(t, "WIDGET", evalFormula(t, "=UPPER(TRIM(A1))", src))
	assert.Equal(t, 6.0, evalFormula(t, "=LEN(TRIM(A1))", src))
	assert.Equal(t, "Wid", evalFormula(t, "=LEFT(TRIM(A1),3)", src))
	assert.Equal(t, "get", evalFormula(t, "=RIGHT(TRIM(A1),3)", src))
	assert.Equal(t, "a-b", evalFormula(t, `=CONCATENATE("a","-","b")`, formula.MapSource{}))
}

func TestEvalRangeOverLimitIsEmpty(t *testing.T) {
	parsed, err := formula.Parse("=SUM(A1:B1000)", sheet1)
	require.NoError(t, err)

	ev := formula.NewEvaluator(formula.MapSource{"Sheet1!A1": 5.0}, evalRangeLimit)
	assert.Equal(t, 0.0, ev.Eval(parsed.Root))
	assert.NotEmpty(t, ev.Warnings())
}

func TestEvalUnsupportedFunctionWarns(t *testing.T) {
	parsed, err := formula.Parse("=SQRTPI(1)", sheet1)
	require.NoError(t, err)

	ev := formula.NewEvaluator(formula.MapSource{}, evalRangeLimit)
	assert.Nil(t, ev.Eval(parsed.Root))
	assert.NotEmpty(t, ev.Warnings())
}

func TestToNumberCoercions(t *testing.T) {
	assert.Equal(t, 1.0, formula.ToNumber(true))
	assert.Equal(t, 0.0, formula.ToNumber(nil))
	assert.Equal(t, 12.5, formula.ToNumber("12.5"))
	assert.Equal(t, 0.0, formula.ToNumber("widget"))
}

func TestParseNumericText(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1234", 1234, true},
		{"1,234.56", 1234.56, true},
		{"1.234,56", 1234.56, true},
		{"1,5", 1.5, true},
		{"$1,200", 1200, true},
		{"€2.500,75", 2500.75, true},
		{"45%", 0.45, true},
		{" 42 ", 42, true},
		{"", 0, false},
		{"n/a", 0, false},
	}
	for _, tt := range tests {
		got, ok := formula.ParseNumericText(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-9, tt.in)
		}
	}
}
