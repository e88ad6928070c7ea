package formula_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsheet/pkg/formula"
)

// kinds strips a token stream to its types, dropping the trailing EOF.
func kinds(tokens []formula.Token) []formula.TokenType {
	out := make([]formula.TokenType, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Type == formula.TOKEN_EOF {
			break
		}
		out = append(out, tok.Type)
	}
	return out
}

func TestTokenizeArithmetic(t *testing.T) {
	tokens := formula.Tokenize("=B1*2+C3^2")

	assert.Equal(t, []formula.TokenType{
		formula.TOKEN_CELL,
		formula.TOKEN_STAR,
		formula.TOKEN_NUMBER,
		formula.TOKEN_PLUS,
		formula.TOKEN_CELL,
		formula.TOKEN_CARET,
		formula.TOKEN_NUMBER,
	}, kinds(tokens))

	assert.Equal(t, "B1", tokens[0].Literal)
	assert.Equal(t, "2", tokens[2].Literal)
}

func TestTokenizeAlwaysEndsWithEOF(t *testing.T) {
	for _, input := range []string{"", "=", "=1", "=SUM(A1:A3)"} {
		tokens := formula.Tokenize(input)
		require.NotEmpty(t, tokens, "input %q", input)
		assert.Equal(t, formula.TOKEN_EOF, tokens[len(tokens)-1].Type, "input %q", input)
	}
}

func TestTokenizeSheetQualifiedRange(t *testing.T) {
	tokens := formula.Tokenize("=SUM(Data!A1:B10)")

	require.Equal(t, []formula.TokenType{
		formula.TOKEN_IDENT,
		formula.TOKEN_LPAREN,
		formula.TOKEN_RANGE,
		formula.TOKEN_RPAREN,
	}, kinds(tokens))
	assert.Equal(t, "SUM", tokens[0].Literal)
	assert.Equal(t, "Data!A1:B10", tokens[2].Literal)
}

func TestTokenizeQuotedSheetName(t *testing.T) {
	tokens := formula.Tokenize("='My Sheet'!B2+1")

	require.Equal(t, []formula.TokenType{
		formula.TOKEN_CELL,
		formula.TOKEN_PLUS,
		formula.TOKEN_NUMBER,
	}, kinds(tokens))
	assert.Equal(t, "'My Sheet'!B2", tokens[0].Literal)
}

func TestTokenizeStringWithDoubledQuote(t *testing.T) {
	tokens := formula.Tokenize(`="say ""hi"""`)

	require.Equal(t, []formula.TokenType{formula.TOKEN_STRING}, kinds(tokens))
	assert.Equal(t, `say "hi"`, tokens[0].Literal)
}

func TestTokenizeComparisonOperators(t *testing.T) {
	tokens := formula.Tokenize("=A1<>B1")
	require.Equal(t, []formula.TokenType{
		formula.TOKEN_CELL, formula.TOKEN_NE, formula.TOKEN_CELL,
	}, kinds(tokens))

	tokens = formula.Tokenize("=A1>=5")
	require.Equal(t, []formula.TokenType{
		formula.TOKEN_CELL, formula.TOKEN_GE, formula.TOKEN_NUMBER,
	}, kinds(tokens))

	tokens = formula.Tokenize("=A1<=5")
	require.Equal(t, []formula.TokenType{
		formula.TOKEN_CELL, formula.TOKEN_LE, formula.TOKEN_NUMBER,
	}, kinds(tokens))
}

func TestTokenizeNumbers(t *testing.T) {
	tokens := formula.Tokenize("=1.5e3+0.25")
	require.Equal(t, []formula.TokenType{
		formula.TOKEN_NUMBER, formula.TOKEN_PLUS, formula.TOKEN_NUMBER,
	}, kinds(tokens))
	assert.Equal(t, "1.5e3", tokens[0].Literal)
	assert.Equal(t, "0.25", tokens[2].Literal)
}

func TestTokenizeAbsoluteReference(t *testing.T) {
	tokens := formula.Tokenize("=$B$1+A$2")
	require.Equal(t, []formula.TokenType{
		formula.TOKEN_CELL, formula.TOKEN_PLUS, formula.TOKEN_CELL,
	}, kinds(tokens))
	assert.Equal(t, "$B$1", tokens[0].Literal)
}

func TestTokenizeNamedRangeAndCall(t *testing.T) {
	tokens := formula.Tokenize("=IF(TaxRate>0,SUM(A1:A3),0)")

	var idents []string
	for _, tok := range tokens {
		if tok.Type == formula.TOKEN_IDENT {
			idents = append(idents, tok.Literal)
		}
	}
	assert.Equal(t, []string{"IF", "TaxRate", "SUM"}, idents)
}

func TestTokenizeConcatenation(t *testing.T) {
	tokens := formula.Tokenize(`=A1&" total"`)
	require.Equal(t, []formula.TokenType{
		formula.TOKEN_CELL, formula.TOKEN_AMP, formula.TOKEN_STRING,
	}, kinds(tokens))
}
