package formula_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsheet/pkg/formula"
)

func observe(t *testing.T, inf *formula.Inference, addr, raw string) {
	t.Helper()
	parsed, err := formula.Parse(raw, sheet1)
	require.NoError(t, err)
	inf.Observe(addr, parsed.Root)
}

func TestInferArithmeticReferences(t *testing.T) {
	inf := formula.NewInference()
	observe(t, inf, "Sheet1!C1", "=A1*B1+2")

	assert.Equal(t, formula.TypeNumber, inf.ReferenceType("Sheet1!A1"))
	assert.Equal(t, formula.TypeNumber, inf.ReferenceType("Sheet1!B1"))
	assert.Equal(t, formula.TypeNumber, inf.ResultType("Sheet1!C1"))
}

func TestInferTextReferences(t *testing.T) {
	inf := formula.NewInference()
	observe(t, inf, "Sheet1!C1", `=A1&" units"`)

	assert.Equal(t, formula.TypeText, inf.ReferenceType("Sheet1!A1"))
	assert.Equal(t, formula.TypeText, inf.ResultType("Sheet1!C1"))
}

func TestInferFunctionArgumentExpectations(t *testing.T) {
	inf := formula.NewInference()
	observe(t, inf, "Sheet1!C1", "=YEAR(A1)")
	observe(t, inf, "Sheet1!C2", "=UPPER(B1)")
	observe(t, inf, "Sheet1!C3", "=NOT(D1)")

	assert.Equal(t, formula.TypeDate, inf.ReferenceType("Sheet1!A1"))
	assert.Equal(t, formula.TypeText, inf.ReferenceType("Sheet1!B1"))
	assert.Equal(t, formula.TypeBoolean, inf.ReferenceType("Sheet1!D1"))
	assert.Equal(t, formula.TypeNumber, inf.ResultType("Sheet1!C1"))
	assert.Equal(t, formula.TypeText, inf.ResultType("Sheet1!C2"))
	assert.Equal(t, formula.TypeBoolean, inf.ResultType("Sheet1!C3"))
}

func TestInferConflictingEvidenceIsUnknown(t *testing.T) {
	inf := formula.NewInference()
	observe(t, inf, "Sheet1!C1", "=A1*2")
	observe(t, inf, "Sheet1!C2", "=UPPER(A1)")

	assert.Equal(t, formula.TypeUnknown, inf.ReferenceType("Sheet1!A1"))
}

func TestInferUnobservedReferenceIsUnknown(t *testing.T) {
	inf := formula.NewInference()

	assert.Equal(t, formula.TypeUnknown, inf.ReferenceType("Sheet1!Z9"))
	assert.Equal(t, formula.TypeUnknown, inf.ResultType("Sheet1!Z9"))
}

func TestInferIfUnifiesBranches(t *testing.T) {
	inf := formula.NewInference()
	observe(t, inf, "Sheet1!C1", "=IF(A1>0,1,2)")
	observe(t, inf, "Sheet1!C2", `=IF(A1>0,"yes",3)`)

	assert.Equal(t, formula.TypeNumber, inf.ResultType("Sheet1!C1"))
	assert.Equal(t, formula.TypeUnknown, inf.ResultType("Sheet1!C2"))
}

func TestInferDateFromResult(t *testing.T) {
	inf := formula.NewInference()
	observe(t, inf, "Sheet1!C1", "=DATE(2024,1,A1)")

	assert.Equal(t, formula.TypeNumber, inf.ReferenceType("Sheet1!A1"))
	assert.Equal(t, formula.TypeDate, inf.ResultType("Sheet1!C1"))
}

func TestInferObservedAddressesSorted(t *testing.T) {
	inf := formula.NewInference()
	observe(t, inf, "Sheet1!D1", "=B1+A1+C1")

	assert.Equal(t, []string{"Sheet1!A1", "Sheet1!B1", "Sheet1!C1"},
		inf.ObservedAddresses())
}
