package logic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsheet/internal/classifier"
	"github.com/leapstack-labs/leapsheet/internal/config"
	"github.com/leapstack-labs/leapsheet/internal/depgraph"
	"github.com/leapstack-labs/leapsheet/internal/logic"
	"github.com/leapstack-labs/leapsheet/internal/workbook"
)

func extract(t *testing.T, sheets ...*workbook.Sheet) *logic.Result {
	t.Helper()
	res := classifier.New(config.Default().Heuristics, nil).Classify(&workbook.Data{Sheets: sheets})
	g := depgraph.Build(res)
	return logic.New(config.Default().Heuristics.RangeExpandLimit, nil).Extract(res, g)
}

func sheetOf(cells ...*workbook.Cell) *workbook.Sheet {
	return &workbook.Sheet{Name: "Sheet1", Cells: cells}
}

func value(local, v string) *workbook.Cell {
	return &workbook.Cell{Local: local, Value: v}
}

func formulaCell(local, f string) *workbook.Cell {
	return &workbook.Cell{Local: local, Formula: f, IsFormula: true}
}

func TestExtractBuildsRulePerCluster(t *testing.T) {
	lr := extract(t, sheetOf(
		value("B1", "5"),
		formulaCell("C1", "=B1*2"),
		formulaCell("D1", "=C1+1"),
	))

	require.Len(t, lr.Rules, 1)
	rule := lr.Rules[0]

	assert.NotEmpty(t, rule.ID)
	require.Len(t, rule.Inputs, 1)
	assert.Equal(t, "Sheet1!B1", rule.Inputs[0].Addr)
	require.Len(t, rule.Outputs, 1)
	assert.Equal(t, "Sheet1!D1", rule.Outputs[0].Addr)
	assert.Contains(t, rule.Description, "1 output(s) from 1 input(s) through 2 formula(s)")

	// Pseudocode lists formulas in dependency order.
	assert.Equal(t, "Sheet1!C1 = =B1*2\nSheet1!D1 = =C1+1", rule.Pseudocode)
}

func TestExtractInfersFieldTypes(t *testing.T) {
	lr := extract(t, sheetOf(
		value("B1", "100"),
		formulaCell("C1", "=B1*1.2"),
	))

	require.Len(t, lr.Rules, 1)
	assert.Equal(t, "number", string(lr.Rules[0].Inputs[0].Type))
	assert.Equal(t, "number", string(lr.Rules[0].Outputs[0].Type))
}

func TestExtractDynamicReferenceIsUnsupported(t *testing.T) {
	lr := extract(t, sheetOf(
		value("B1", "A1"),
		formulaCell("C1", "=INDIRECT(B1)"),
	))

	require.Len(t, lr.Unsupported, 1)
	u := lr.Unsupported[0]
	assert.Equal(t, "Sheet1!C1", u.Cell)
	assert.Equal(t, "INDIRECT", u.Function)
	assert.Equal(t, "dynamic_reference", u.Kind)
	assert.NotEmpty(t, u.Explanation)
	assert.NotEmpty(t, u.Suggestion)

	// Extraction still produces a rule, carrying the constraint.
	require.Len(t, lr.Rules, 1)
	require.NotEmpty(t, lr.Rules[0].Constraints)
	assert.Contains(t, lr.Rules[0].Constraints[0], "INDIRECT")
}

func TestExtractCircularFormulasAreExcluded(t *testing.T) {
	lr := extract(t, sheetOf(
		formulaCell("A1", "=B1+1"),
		formulaCell("B1", "=A1*2"),
		value("C1", "3"),
		formulaCell("D1", "=C1*2"),
	))

	// The cycle cluster yields no unit; only the acyclic one survives.
	require.Len(t, lr.Units, 1)
	assert.Equal(t, "Sheet1!D1 = =C1*2", lr.Units[0].Pseudocode)
}

func TestExtractSelfReferenceYieldsNoUnit(t *testing.T) {
	lr := extract(t, sheetOf(
		formulaCell("A1", "=A1+1"),
		value("C1", "3"),
		formulaCell("D1", "=C1*2"),
	))

	require.Len(t, lr.Units, 1)
	assert.Equal(t, "Sheet1!D1 = =C1*2", lr.Units[0].Pseudocode)
}

func TestExtractTestSynthesisSeeds(t *testing.T) {
	lr := extract(t, sheetOf(
		value("B1", "5"),
		formulaCell("C1", "=B1*2"),
		formulaCell("D1", "=C1+1"),
	))

	require.Len(t, lr.Tests, 3)

	byName := make(map[string]logic.TestCase)
	for _, tc := range lr.Tests {
		short := tc.Name[len(tc.Unit)+1:]
		byName[short] = tc
	}

	zero, ok := byName["all_zero"]
	require.True(t, ok)
	assert.Equal(t, 0.0, zero.Inputs["Sheet1!B1"])
	assert.Equal(t, 1.0, zero.Expected["Sheet1!D1"])

	one, ok := byName["all_one"]
	require.True(t, ok)
	assert.Equal(t, 3.0, one.Expected["Sheet1!D1"])

	// The first non-zero literal in the formulas is 2.
	lit, ok := byName["literal_2"]
	require.True(t, ok)
	assert.Equal(t, 2.0, lit.Inputs["Sheet1!B1"])
	assert.Equal(t, 5.0, lit.Expected["Sheet1!D1"])
}

func TestExtractUnitNameCarriesPurpose(t *testing.T) {
	lr := extract(t, sheetOf(
		value("A1", "1"),
		value("A2", "2"),
		formulaCell("B1", "=SUM(A1:A2)"),
	))

	require.Len(t, lr.Units, 1)
	assert.Equal(t, "aggregation_0", lr.Units[0].Name)
	assert.Equal(t, lr.Units[0].Name, lr.Rules[0].Name)
}

func TestExtractMultipleClusters(t *testing.T) {
	lr := extract(t, sheetOf(
		value("A1", "1"),
		formulaCell("B1", "=A1*2"),
		value("A5", "t"),
		value("A6", "3"),
		formulaCell("B6", "=A6+1"),
	))

	assert.Len(t, lr.Rules, 2)
	assert.Len(t, lr.Units, 2)
}

func TestUnsupportedFor(t *testing.T) {
	lr := extract(t, sheetOf(
		value("B1", "A1"),
		formulaCell("C1", "=INDIRECT(B1)"),
		formulaCell("D1", "=OFFSET(B1,1,0)"),
	))

	assert.Len(t, lr.Unsupported, 2)
	assert.Len(t, lr.UnsupportedFor("Sheet1!C1"), 1)
	assert.Len(t, lr.UnsupportedFor("Sheet1!D1"), 1)
	assert.Empty(t, lr.UnsupportedFor("Sheet1!B1"))
}
