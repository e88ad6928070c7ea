package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapsheet/pkg/cell"
	"github.com/leapstack-labs/leapsheet/pkg/formula"
)

// supportedFuncs are the formula functions with a helper of the same
// name in the generated helpers module.
var supportedFuncs = map[string]bool{
	"SUM": true, "AVERAGE": true, "MIN": true, "MAX": true,
	"COUNT": true, "COUNTA": true, "ABS": true, "MOD": true,
	"ROUND": true, "ROUNDUP": true, "ROUNDDOWN": true,
	"IF": true, "IFS": true, "AND": true, "OR": true, "NOT": true,
	"SUMIF": true, "SUMIFS": true, "COUNTIF": true, "COUNTIFS": true,
	"AVERAGEIF": true, "AVERAGEIFS": true,
	"VLOOKUP": true, "MATCH": true, "INDEX": true, "XLOOKUP": true,
	"DATE": true, "YEAR": true, "MONTH": true, "DAY": true,
	"CONCATENATE": true, "CONCAT": true, "LEN": true,
	"UPPER": true, "LOWER": true, "TRIM": true, "LEFT": true, "RIGHT": true,
}

// Translator rewrites formula text into TypeScript expressions that
// read cell values out of a ctx map. It re-tokenizes the raw formula
// rather than consuming a prebuilt tree, so each formula translates
// independently of the analysis pass.
type Translator struct {
	named map[string]string
	limit int
}

// NewTranslator returns a Translator. limit is the range-expansion cap
// and must match the one used when the graph was built.
func NewTranslator(named map[string]string, limit int) *Translator {
	return &Translator{named: named, limit: limit}
}

// Expression translates one formula. It returns an error for any
// construct that cannot be rendered soundly; callers substitute a
// runtime-error stub.
func (t *Translator) Expression(raw, defaultSheet string) (string, error) {
	tokens := formula.Tokenize(raw)
	if len(tokens) == 0 || tokens[0].Type == formula.TOKEN_EOF {
		return "", fmt.Errorf("empty formula")
	}

	pieces := make([]string, 0, len(tokens))
	for i, tok := range tokens {
		if tok.Type == formula.TOKEN_EOF {
			break
		}
		piece, err := t.translateToken(tokens, i, defaultSheet)
		if err != nil {
			return "", err
		}
		pieces = append(pieces, piece)
	}
	pieces = wrapNegatedBases(pieces)
	pieces = rewriteEquality(pieces)
	return strings.Join(pieces, " "), nil
}

var comparisonPiece = map[string]bool{
	"===": true, "!==": true, "<": true, ">": true, "<=": true, ">=": true,
}

func operatorPiece(s string) bool {
	switch s {
	case "+", "-", "*", "/", "**", `+ "" +`, ",":
		return true
	}
	return comparisonPiece[s]
}

// wrapNegatedBases parenthesizes a unary minus whose operand feeds the
// power operator: JavaScript rejects an unparenthesized unary operand
// before **, and the sign applies before exponentiation anyway.
func wrapNegatedBases(pieces []string) []string {
	out := make([]string, 0, len(pieces))
	for i := 0; i < len(pieces); i++ {
		if pieces[i] == "-" && (i == 0 || pieces[i-1] == "(" || operatorPiece(pieces[i-1])) {
			j := operandEnd(pieces, i+1)
			if j >= 0 && j+1 < len(pieces) && pieces[j+1] == "**" {
				out = append(out, "(")
				out = append(out, wrapNegatedBases(pieces[i:j+1])...)
				out = append(out, ")")
				i = j
				continue
			}
		}
		out = append(out, pieces[i])
	}
	return out
}

// operandEnd returns the index of the last piece of the operand that
// starts at k, or -1 when there is none.
func operandEnd(pieces []string, k int) int {
	if k >= len(pieces) {
		return -1
	}
	switch pieces[k] {
	case "-":
		return operandEnd(pieces, k+1)
	case "(":
		return matchParen(pieces, k)
	}
	if k+1 < len(pieces) && pieces[k+1] == "(" {
		// function name followed by its argument list
		return matchParen(pieces, k+1)
	}
	return k
}

func matchParen(pieces []string, open int) int {
	depth := 0
	for i := open; i < len(pieces); i++ {
		switch pieces[i] {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// rewriteEquality replaces strict equality with the eq helper so the
// generated code keeps the coercing, case-insensitive comparison the
// formulas were written against. Comparison binds loosest, so each
// operand extends to the nearest enclosing paren, comma, or another
// comparison.
func rewriteEquality(pieces []string) []string {
	for {
		op := -1
		for k, p := range pieces {
			if p == "===" || p == "!==" {
				op = k
				break
			}
		}
		if op < 0 {
			return pieces
		}
		l := comparisonStart(pieces, op)
		r := comparisonEnd(pieces, op)
		repl := make([]string, 0, r-l+6)
		if pieces[op] == "!==" {
			repl = append(repl, "!")
		}
		repl = append(repl, "fn.eq", "(")
		repl = append(repl, pieces[l:op]...)
		repl = append(repl, ",")
		repl = append(repl, pieces[op+1:r+1]...)
		repl = append(repl, ")")

		next := make([]string, 0, len(pieces)+6)
		next = append(next, pieces[:l]...)
		next = append(next, repl...)
		next = append(next, pieces[r+1:]...)
		pieces = next
	}
}

func comparisonStart(pieces []string, op int) int {
	depth := 0
	for k := op - 1; k >= 0; k-- {
		switch p := pieces[k]; {
		case p == ")":
			depth++
		case p == "(":
			if depth == 0 {
				return k + 1
			}
			depth--
		case depth == 0 && (p == "," || comparisonPiece[p]):
			return k + 1
		}
	}
	return 0
}

func comparisonEnd(pieces []string, op int) int {
	depth := 0
	for k := op + 1; k < len(pieces); k++ {
		switch p := pieces[k]; {
		case p == "(":
			depth++
		case p == ")":
			if depth == 0 {
				return k - 1
			}
			depth--
		case depth == 0 && (p == "," || comparisonPiece[p]):
			return k - 1
		}
	}
	return len(pieces) - 1
}

func (t *Translator) translateToken(tokens []formula.Token, i int, defaultSheet string) (string, error) {
	tok := tokens[i]
	switch tok.Type {
	case formula.TOKEN_NUMBER:
		return tok.Literal, nil
	case formula.TOKEN_STRING:
		return strconv.Quote(tok.Literal), nil
	case formula.TOKEN_CELL:
		return t.cellLookup(tok.Literal, defaultSheet)
	case formula.TOKEN_RANGE:
		return t.rangeArray(tok.Literal, defaultSheet)
	case formula.TOKEN_IDENT:
		return t.translateName(tokens, i, defaultSheet)
	case formula.TOKEN_PLUS:
		return "+", nil
	case formula.TOKEN_MINUS:
		return "-", nil
	case formula.TOKEN_STAR:
		return "*", nil
	case formula.TOKEN_SLASH:
		return "/", nil
	case formula.TOKEN_CARET:
		return "**", nil
	case formula.TOKEN_AMP:
		// String concatenation: the empty-string operand coerces both
		// sides the way & does.
		return `+ "" +`, nil
	case formula.TOKEN_EQ:
		return "===", nil
	case formula.TOKEN_NE:
		return "!==", nil
	case formula.TOKEN_LT:
		return "<", nil
	case formula.TOKEN_GT:
		return ">", nil
	case formula.TOKEN_LE:
		return "<=", nil
	case formula.TOKEN_GE:
		return ">=", nil
	case formula.TOKEN_COMMA:
		return ",", nil
	case formula.TOKEN_LPAREN:
		return "(", nil
	case formula.TOKEN_RPAREN:
		return ")", nil
	default:
		return "", fmt.Errorf("untranslatable token %q", tok.Literal)
	}
}

func (t *Translator) translateName(tokens []formula.Token, i int, defaultSheet string) (string, error) {
	name := strings.ToUpper(tokens[i].Literal)
	if i+1 < len(tokens) && tokens[i+1].Type == formula.TOKEN_LPAREN {
		if !supportedFuncs[name] {
			return "", fmt.Errorf("unsupported function %s", name)
		}
		// Helpers live behind a namespace import in generated modules.
		return "fn." + name, nil
	}
	switch name {
	case "TRUE":
		return "true", nil
	case "FALSE":
		return "false", nil
	}
	ctx := formula.Context{DefaultSheet: defaultSheet, NamedRanges: t.named}
	if dest, ok := ctx.ResolveName(tokens[i].Literal); ok {
		if cell.IsRangeRef(dest) {
			return t.rangeArray(dest, defaultSheet)
		}
		return t.cellLookup(dest, defaultSheet)
	}
	return "", fmt.Errorf("unknown name %q", tokens[i].Literal)
}

func (t *Translator) cellLookup(ref, defaultSheet string) (string, error) {
	addr, err := cell.ParseWith(ref, defaultSheet)
	if err != nil {
		return "", fmt.Errorf("unresolvable reference %q: %w", ref, err)
	}
	if addr.Sheet == "" {
		return "", fmt.Errorf("reference %q has no resolvable sheet", ref)
	}
	return fmt.Sprintf("ctx[%q]", addr.String()), nil
}

// rangeArray expands a range into a literal array of lookups, up to
// the expansion cap.
func (t *Translator) rangeArray(ref, defaultSheet string) (string, error) {
	rng, err := cell.ParseRangeWith(ref, defaultSheet)
	if err != nil {
		return "", fmt.Errorf("unresolvable range %q: %w", ref, err)
	}
	if rng.Sheet == "" {
		return "", fmt.Errorf("range %q has no resolvable sheet", ref)
	}
	addrs, ok := rng.Expand(t.limit)
	if !ok {
		return "", fmt.Errorf("range %q exceeds the %d-cell expansion limit", ref, t.limit)
	}
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = fmt.Sprintf("ctx[%q]", a.String())
	}
	return "[" + strings.Join(parts, ", ") + "]", nil
}
