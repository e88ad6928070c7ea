// Package formula provides lexing, parsing, type inference and evaluation of
// spreadsheet formulas. The lexer and the operator-precedence parser build a
// closed tagged-variant AST that the type inferencer, the evaluator and the
// code generator's expression translator all consume.
package formula

import "fmt"

// TokenType identifies the kind of a lexed token.
type TokenType int

//nolint:revive // TOKEN_* names follow the same convention the SQL lexer uses.
const (
	TOKEN_EOF TokenType = iota
	TOKEN_ILLEGAL

	// Literals and names
	TOKEN_NUMBER
	TOKEN_STRING
	TOKEN_IDENT // function name or named range
	TOKEN_CELL  // A1 or Sheet!A1
	TOKEN_RANGE // A1:B2 or Sheet!A1:B2

	// Operators
	TOKEN_PLUS  // +
	TOKEN_MINUS // -
	TOKEN_STAR  // *
	TOKEN_SLASH // /
	TOKEN_CARET // ^
	TOKEN_AMP   // &
	TOKEN_EQ    // =
	TOKEN_NE    // <>
	TOKEN_LT    // <
	TOKEN_GT    // >
	TOKEN_LE    // <=
	TOKEN_GE    // >=

	// Delimiters
	TOKEN_COMMA  // ,
	TOKEN_LPAREN // (
	TOKEN_RPAREN // )
)

var tokenNames = map[TokenType]string{
	TOKEN_EOF:     "EOF",
	TOKEN_ILLEGAL: "ILLEGAL",
	TOKEN_NUMBER:  "NUMBER",
	TOKEN_STRING:  "STRING",
	TOKEN_IDENT:   "IDENT",
	TOKEN_CELL:    "CELL",
	TOKEN_RANGE:   "RANGE",
	TOKEN_PLUS:    "+",
	TOKEN_MINUS:   "-",
	TOKEN_STAR:    "*",
	TOKEN_SLASH:   "/",
	TOKEN_CARET:   "^",
	TOKEN_AMP:     "&",
	TOKEN_EQ:      "=",
	TOKEN_NE:      "<>",
	TOKEN_LT:      "<",
	TOKEN_GT:      ">",
	TOKEN_LE:      "<=",
	TOKEN_GE:      ">=",
	TOKEN_COMMA:   ",",
	TOKEN_LPAREN:  "(",
	TOKEN_RPAREN:  ")",
}

// String returns a readable name for the token type.
func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a single lexed token. Pos is the byte offset into the formula
// text (formulas are single-line, so no line/column tracking).
type Token struct {
	Type    TokenType
	Literal string
	Pos     int
}

// IsOperator reports whether the token is a binary operator.
func (t Token) IsOperator() bool {
	switch t.Type {
	case TOKEN_PLUS, TOKEN_MINUS, TOKEN_STAR, TOKEN_SLASH, TOKEN_CARET,
		TOKEN_AMP, TOKEN_EQ, TOKEN_NE, TOKEN_LT, TOKEN_GT, TOKEN_LE, TOKEN_GE:
		return true
	}
	return false
}

// IsComparison reports whether the token is a comparison operator.
func (t Token) IsComparison() bool {
	switch t.Type {
	case TOKEN_EQ, TOKEN_NE, TOKEN_LT, TOKEN_GT, TOKEN_LE, TOKEN_GE:
		return true
	}
	return false
}
