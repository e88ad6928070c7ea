package codegen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsheet/internal/codegen"
)

func translate(t *testing.T, raw string) string {
	t.Helper()
	tr := codegen.NewTranslator(nil, 1000)
	out, err := tr.Expression(raw, "Sheet1")
	require.NoError(t, err, raw)
	return out
}

func TestTranslateArithmetic(t *testing.T) {
	assert.Equal(t, `ctx["Sheet1!B1"] * 2 + 1`, translate(t, "=B1*2+1"))
}

func TestTranslatePowerOperator(t *testing.T) {
	assert.Equal(t, `ctx["Sheet1!A1"] ** 2`, translate(t, "=A1^2"))
}

func TestTranslateConcatenation(t *testing.T) {
	assert.Equal(t, `ctx["Sheet1!A1"] + "" + " kg"`, translate(t, `=A1&" kg"`))
}

func TestTranslateComparisons(t *testing.T) {
	assert.Equal(t, `fn.eq ( ctx["Sheet1!A1"] , 5 )`, translate(t, "=A1=5"))
	assert.Equal(t, `! fn.eq ( ctx["Sheet1!A1"] , 5 )`, translate(t, "=A1<>5"))
	assert.Equal(t, `ctx["Sheet1!A1"] >= 5`, translate(t, "=A1>=5"))
}

func TestTranslateEqualityInsideCall(t *testing.T) {
	assert.Equal(t,
		`fn.IF ( fn.eq ( ctx["Sheet1!A1"] , "yes" ) , 1 , 0 )`,
		translate(t, `=IF(A1="yes",1,0)`))
}

func TestTranslateEqualityOperandSpansArithmetic(t *testing.T) {
	assert.Equal(t,
		`fn.eq ( ctx["Sheet1!A1"] + 1 , ctx["Sheet1!B1"] * 2 )`,
		translate(t, "=A1+1=B1*2"))
}

func TestTranslateNegatedPowerBase(t *testing.T) {
	assert.Equal(t, `( - ctx["Sheet1!A1"] ) ** 2`, translate(t, "=-A1^2"))
	assert.Equal(t, `2 * ( - ctx["Sheet1!A1"] ) ** 2`, translate(t, "=2*-A1^2"))
	assert.Equal(t, `( - ( ctx["Sheet1!A1"] + 1 ) ) ** 2`, translate(t, "=-(A1+1)^2"))
	// binary minus stays untouched
	assert.Equal(t, `3 - ctx["Sheet1!A1"] ** 2`, translate(t, "=3-A1^2"))
}

func TestTranslateFunctionCall(t *testing.T) {
	assert.Equal(t,
		`fn.SUM ( [ctx["Sheet1!A1"], ctx["Sheet1!A2"], ctx["Sheet1!A3"]] )`,
		translate(t, "=SUM(A1:A3)"))
}

func TestTranslateSheetQualifiedReference(t *testing.T) {
	assert.Equal(t, `ctx["Data!B2"] * 2`, translate(t, "=Data!B2*2"))
}

func TestTranslateBooleans(t *testing.T) {
	assert.Equal(t,
		`fn.IF ( ctx["Sheet1!A1"] > 0 , true , false )`,
		translate(t, "=IF(A1>0,TRUE,FALSE)"))
}

func TestTranslateNamedRange(t *testing.T) {
	tr := codegen.NewTranslator(map[string]string{"TaxRate": "Config!$B$2"}, 1000)
	out, err := tr.Expression("=A1*TaxRate", "Sheet1")
	require.NoError(t, err)
	assert.Equal(t, `ctx["Sheet1!A1"] * ctx["Config!B2"]`, out)
}

func TestTranslateUnknownNameFails(t *testing.T) {
	tr := codegen.NewTranslator(nil, 1000)
	_, err := tr.Expression("=Mystery+1", "Sheet1")
	require.Error(t, err)
}

func TestTranslateUnsupportedFunctionFails(t *testing.T) {
	tr := codegen.NewTranslator(nil, 1000)
	_, err := tr.Expression("=INDIRECT(B1)", "Sheet1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INDIRECT")
}

func TestTranslateOversizedRangeFails(t *testing.T) {
	tr := codegen.NewTranslator(nil, 1000)
	_, err := tr.Expression("=SUM(A1:B1000)", "Sheet1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expansion limit")
}

func TestTranslateNoResolvableSheetFails(t *testing.T) {
	tr := codegen.NewTranslator(nil, 1000)
	_, err := tr.Expression("=B1*2", "")
	require.Error(t, err)
}

func TestTranslateEmptyFormulaFails(t *testing.T) {
	tr := codegen.NewTranslator(nil, 1000)
	for _, raw := range []string{"", "="} {
		_, err := tr.Expression(raw, "Sheet1")
		require.Error(t, err, "input %q", raw)
	}
}

func TestTranslateStringLiteralQuoting(t *testing.T) {
	assert.Equal(t, `fn.CONCAT ( "say \"hi\"" , ctx["Sheet1!A1"] )`,
		translate(t, `=CONCAT("say ""hi""",A1)`))
}
