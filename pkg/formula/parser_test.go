package formula_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsheet/pkg/formula"
)

var sheet1 = formula.Context{DefaultSheet: "Sheet1"}

func mustParse(t *testing.T, raw string, ctx formula.Context) *formula.Parsed {
	t.Helper()
	parsed, err := formula.Parse(raw, ctx)
	require.NoError(t, err)
	require.NotNil(t, parsed.Root)
	return parsed
}

func TestParseEmptyFormula(t *testing.T) {
	_, err := formula.Parse("=", sheet1)
	require.Error(t, err)

	_, err = formula.Parse("", sheet1)
	require.Error(t, err)
}

func TestParseMultiplicationBindsTighterThanAddition(t *testing.T) {
	parsed := mustParse(t, "=1+2*3", sheet1)

	root, ok := parsed.Root.(*formula.Binary)
	require.True(t, ok)
	assert.Equal(t, "+", root.Op)

	right, ok := root.Right.(*formula.Binary)
	require.True(t, ok)
	assert.Equal(t, "*", right.Op)
}

func TestParsePowerIsRightAssociative(t *testing.T) {
	// 2^3^2 must parse as 2^(3^2).
	parsed := mustParse(t, "=2^3^2", sheet1)

	root, ok := parsed.Root.(*formula.Binary)
	require.True(t, ok)
	assert.Equal(t, "^", root.Op)

	left, ok := root.Left.(*formula.Number)
	require.True(t, ok)
	assert.Equal(t, 2.0, left.Value)

	right, ok := root.Right.(*formula.Binary)
	require.True(t, ok)
	assert.Equal(t, "^", right.Op)
}

func TestParseComparisonBindsLoosest(t *testing.T) {
	parsed := mustParse(t, "=A1+1>B1*2", sheet1)

	root, ok := parsed.Root.(*formula.Binary)
	require.True(t, ok)
	assert.Equal(t, ">", root.Op)
}

func TestParseUnaryMinus(t *testing.T) {
	parsed := mustParse(t, "=-A1+5", sheet1)

	root, ok := parsed.Root.(*formula.Binary)
	require.True(t, ok)
	assert.Equal(t, "+", root.Op)

	neg, ok := root.Left.(*formula.Unary)
	require.True(t, ok)
	assert.Equal(t, "-", neg.Op)

	ref, ok := neg.Operand.(*formula.Reference)
	require.True(t, ok)
	assert.Equal(t, "Sheet1!A1", ref.Addr)
}

func TestParseUnaryMinusInsideCall(t *testing.T) {
	parsed := mustParse(t, "=SUM(-1,-2)", sheet1)

	call, ok := parsed.Root.(*formula.Call)
	require.True(t, ok)
	require.Len(t, call.Args, 2)
	for _, arg := range call.Args {
		_, isUnary := arg.(*formula.Unary)
		assert.True(t, isUnary)
	}
}

func TestParseNestedCalls(t *testing.T) {
	parsed := mustParse(t, "=IF(SUM(A1:A3)>10,MAX(B1,B2),0)", sheet1)

	call, ok := parsed.Root.(*formula.Call)
	require.True(t, ok)
	assert.Equal(t, "IF", call.Name)
	require.Len(t, call.Args, 3)

	assert.Equal(t, []string{"IF", "SUM", "MAX"}, parsed.Functions)
	assert.Equal(t, []string{"Sheet1!B1", "Sheet1!B2"}, parsed.Refs)
	assert.Equal(t, []string{"Sheet1!A1:A3"}, parsed.RangeRefs)
}

func TestParseParenthesizedArgument(t *testing.T) {
	parsed := mustParse(t, "=SUM((A1))", sheet1)

	call, ok := parsed.Root.(*formula.Call)
	require.True(t, ok)
	assert.Equal(t, "SUM", call.Name)
	require.Len(t, call.Args, 1)
}

func TestParseZeroArgumentCall(t *testing.T) {
	parsed := mustParse(t, "=TRUE()", sheet1)

	call, ok := parsed.Root.(*formula.Call)
	require.True(t, ok)
	assert.Equal(t, "TRUE", call.Name)
	assert.Empty(t, call.Args)
}

func TestParseBareBooleanName(t *testing.T) {
	parsed := mustParse(t, "=FALSE", sheet1)

	call, ok := parsed.Root.(*formula.Call)
	require.True(t, ok)
	assert.Equal(t, "FALSE", call.Name)
}

func TestParseNamedRange(t *testing.T) {
	ctx := formula.Context{
		DefaultSheet: "Sheet1",
		NamedRanges:  map[string]string{"TaxRate": "Config!B2", "Sales": "Data!A1:A100"},
	}

	parsed := mustParse(t, "=A1*taxrate", ctx)
	assert.Contains(t, parsed.Refs, "Config!B2")

	parsed = mustParse(t, "=SUM(Sales)", ctx)
	assert.Equal(t, []string{"Data!A1:A100"}, parsed.RangeRefs)
}

func TestParseUnknownNameBecomesErrorNode(t *testing.T) {
	parsed := mustParse(t, "=Mystery+1", sheet1)

	root, ok := parsed.Root.(*formula.Binary)
	require.True(t, ok)
	_, isErr := root.Left.(*formula.ErrorNode)
	assert.True(t, isErr)
}

func TestParseMissingOperandBecomesErrorNode(t *testing.T) {
	parsed := mustParse(t, "=1+", sheet1)

	root, ok := parsed.Root.(*formula.Binary)
	require.True(t, ok)

	errCount := 0
	formula.Walk(root, func(n formula.Node) bool {
		if _, isErr := n.(*formula.ErrorNode); isErr {
			errCount++
		}
		return true
	})
	assert.Equal(t, 1, errCount)
}

func TestParseEmptyMiddleArgumentHoldsSlot(t *testing.T) {
	parsed := mustParse(t, "=IF(A1>0,,1)", sheet1)

	call, ok := parsed.Root.(*formula.Call)
	require.True(t, ok)
	require.Len(t, call.Args, 3)

	_, isCond := call.Args[0].(*formula.Binary)
	assert.True(t, isCond, "condition moved out of the first slot")
	_, isHole := call.Args[1].(*formula.ErrorNode)
	assert.True(t, isHole, "empty argument did not hold its slot")
	num, ok := call.Args[2].(*formula.Number)
	require.True(t, ok)
	assert.Equal(t, 1.0, num.Value)
}

func TestParseTrailingEmptyArgumentHoldsSlot(t *testing.T) {
	parsed := mustParse(t, "=SUM(1,)", sheet1)

	call, ok := parsed.Root.(*formula.Call)
	require.True(t, ok)
	require.Len(t, call.Args, 2)
	_, isHole := call.Args[1].(*formula.ErrorNode)
	assert.True(t, isHole)
}

func TestParseQualifiesBareReferences(t *testing.T) {
	parsed := mustParse(t, "=B1+Data!C2", sheet1)
	assert.Equal(t, []string{"Data!C2", "Sheet1!B1"}, parsed.Refs)
}

func TestParseCollectsLiteralsInOrder(t *testing.T) {
	parsed := mustParse(t, "=A1*0+ROUND(B1,2)+7", sheet1)
	assert.Equal(t, []float64{0, 2, 7}, parsed.Literals)
}

func TestParseConcatenation(t *testing.T) {
	parsed := mustParse(t, `=A1&" units"`, sheet1)

	root, ok := parsed.Root.(*formula.Binary)
	require.True(t, ok)
	assert.Equal(t, "&", root.Op)
}
