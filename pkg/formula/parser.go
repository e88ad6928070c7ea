package formula

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapsheet/pkg/cell"
)

// Context carries everything the parser needs to resolve references:
// the sheet an unqualified reference belongs to and the workbook's named
// ranges. It is threaded explicitly through every parse call; there is no
// ambient workbook state.
type Context struct {
	DefaultSheet string
	NamedRanges  map[string]string // name -> Sheet!A1 or Sheet!A1:B10
}

// ResolveName looks up a named range, case-insensitively.
func (c Context) ResolveName(name string) (string, bool) {
	if c.NamedRanges == nil {
		return "", false
	}
	if dest, ok := c.NamedRanges[name]; ok {
		return dest, true
	}
	for k, dest := range c.NamedRanges {
		if strings.EqualFold(k, name) {
			return dest, true
		}
	}
	return "", false
}

// ParseError reports a formula that could not be parsed at all.
// Recoverable problems inside a formula become ErrorNode variants instead.
type ParseError struct {
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Pos, e.Message)
}

// Parsed is the result of parsing one formula.
type Parsed struct {
	Raw       string
	Root      Node
	Functions []string  // function names in first-use order
	Refs      []string  // sorted single-cell addresses
	RangeRefs []string  // sorted range references
	Literals  []float64 // numeric constants in order of appearance
}

// operator precedence; unary minus binds tightest, comparisons loosest.
const (
	precComparison = 1
	precAdditive   = 2 // + - &
	precMultiply   = 3 // * /
	precPower      = 4 // ^
	precUnary      = 5
)

func precedence(op string) int {
	switch op {
	case "u-":
		return precUnary
	case "^":
		return precPower
	case "*", "/":
		return precMultiply
	case "+", "-", "&":
		return precAdditive
	default:
		return precComparison
	}
}

// Parse tokenizes and parses a formula into its AST and derived metadata.
// Only an entirely blank formula is an error; anything else yields a tree,
// possibly containing ErrorNode variants where operands were missing.
func Parse(raw string, ctx Context) (*Parsed, error) {
	tokens := Tokenize(raw)
	if len(tokens) == 1 { // EOF only
		return nil, &ParseError{Pos: 0, Message: "empty formula"}
	}

	p := &exprParser{tokens: tokens, ctx: ctx}
	root := p.parse()

	return &Parsed{
		Raw:       raw,
		Root:      root,
		Functions: Functions(root),
		Refs:      References(root),
		RangeRefs: Ranges(root),
		Literals:  NumericLiterals(root),
	}, nil
}

// opEntry is an operator-stack element of the shunting-yard parser:
// an operator, an open paren, or a function frame collecting arguments.
type opEntry struct {
	op     string
	paren  bool
	fnName string
	argc   int
	sawArg bool
}

type exprParser struct {
	tokens []Token
	ctx    Context

	output []Node
	ops    []opEntry
}

func (p *exprParser) parse() Node {
	var prev Token // zero Type is TOKEN_EOF, treated as "nothing before"
	prevValid := false

	for i := 0; i < len(p.tokens); i++ {
		tok := p.tokens[i]
		switch tok.Type {
		case TOKEN_EOF:
			// handled after the loop

		case TOKEN_NUMBER:
			v, err := strconv.ParseFloat(tok.Literal, 64)
			if err != nil {
				p.push(&ErrorNode{Reason: "bad number " + tok.Literal})
			} else {
				p.push(&Number{Value: v})
			}

		case TOKEN_STRING:
			p.push(&String{Value: tok.Literal})

		case TOKEN_CELL:
			p.push(p.refNode(tok.Literal))

		case TOKEN_RANGE:
			p.push(p.rangeNode(tok.Literal))

		case TOKEN_IDENT:
			if i+1 < len(p.tokens) && p.tokens[i+1].Type == TOKEN_LPAREN {
				// Function call: push a frame, consume the paren.
				p.ops = append(p.ops, opEntry{fnName: strings.ToUpper(tok.Literal)})
				i++
				prev = p.tokens[i]
				prevValid = true
				continue
			}
			p.push(p.nameNode(tok.Literal))

		case TOKEN_MINUS:
			if isUnaryPosition(prev, prevValid) {
				p.pushOp("u-")
			} else {
				p.pushOp("-")
			}

		case TOKEN_PLUS, TOKEN_STAR, TOKEN_SLASH, TOKEN_CARET, TOKEN_AMP,
			TOKEN_EQ, TOKEN_NE, TOKEN_LT, TOKEN_GT, TOKEN_LE, TOKEN_GE:
			p.pushOp(tok.Literal)

		case TOKEN_LPAREN:
			p.ops = append(p.ops, opEntry{paren: true})

		case TOKEN_COMMA:
			p.popUntilFrame()
			if len(p.ops) > 0 && p.ops[len(p.ops)-1].fnName != "" {
				top := &p.ops[len(p.ops)-1]
				if !top.sawArg {
					// Empty argument: hold its slot so later arguments
					// stay aligned.
					p.push(&ErrorNode{Reason: "empty argument"})
				}
				top.argc++
				top.sawArg = false
			}

		case TOKEN_RPAREN:
			p.popUntilFrame()
			if len(p.ops) == 0 {
				// Stray close paren; ignore it.
				continue
			}
			top := p.ops[len(p.ops)-1]
			p.ops = p.ops[:len(p.ops)-1]
			if top.fnName != "" {
				p.closeFrame(top)
			}

		case TOKEN_ILLEGAL:
			// Unparsable fragment; record and move on. The surrounding
			// expression still parses with a hole in it.
			p.push(&ErrorNode{Reason: "illegal token " + strconv.Quote(tok.Literal)})
		}

		prev = tok
		prevValid = true
	}

	// Drain remaining operators; unmatched frames collapse like parens.
	for len(p.ops) > 0 {
		top := p.ops[len(p.ops)-1]
		p.ops = p.ops[:len(p.ops)-1]
		switch {
		case top.fnName != "":
			p.closeFrame(top)
		case top.paren:
			// unmatched open paren, nothing to do
		default:
			p.apply(top.op)
		}
	}

	switch len(p.output) {
	case 0:
		return &ErrorNode{Reason: "no expression"}
	case 1:
		return p.output[0]
	default:
		// Adjacent operands with no operator between them.
		return &ErrorNode{Reason: "malformed expression"}
	}
}

// isUnaryPosition reports whether a '-' at this point is a sign rather than
// subtraction: at the start, or after an operator, '(' or ','.
func isUnaryPosition(prev Token, prevValid bool) bool {
	if !prevValid {
		return true
	}
	if prev.IsOperator() {
		return true
	}
	return prev.Type == TOKEN_LPAREN || prev.Type == TOKEN_COMMA
}

func (p *exprParser) push(n Node) {
	p.output = append(p.output, n)
	// Mark the innermost function frame: any operand produced here belongs
	// to that frame's current argument expression, even through parens.
	for i := len(p.ops) - 1; i >= 0; i-- {
		if p.ops[i].fnName != "" {
			p.ops[i].sawArg = true
			return
		}
	}
}

// pushOp pops higher-precedence operators, then pushes op. '^' is
// right-associative; every other operator is left-associative.
func (p *exprParser) pushOp(op string) {
	prec := precedence(op)
	for len(p.ops) > 0 {
		top := p.ops[len(p.ops)-1]
		if top.paren || top.fnName != "" {
			break
		}
		topPrec := precedence(top.op)
		if topPrec > prec || (topPrec == prec && op != "^") {
			p.ops = p.ops[:len(p.ops)-1]
			p.apply(top.op)
		} else {
			break
		}
	}
	p.ops = append(p.ops, opEntry{op: op})
}

// popUntilFrame applies operators until an open paren or function frame is
// on top of the operator stack.
func (p *exprParser) popUntilFrame() {
	for len(p.ops) > 0 {
		top := p.ops[len(p.ops)-1]
		if top.paren || top.fnName != "" {
			return
		}
		p.ops = p.ops[:len(p.ops)-1]
		p.apply(top.op)
	}
}

// apply builds a Unary or Binary node from the output stack. A missing
// operand becomes an ErrorNode in its place.
func (p *exprParser) apply(op string) {
	if op == "u-" {
		operand := p.pop("missing operand")
		p.push(&Unary{Op: "-", Operand: operand})
		return
	}
	right := p.pop("missing right operand")
	left := p.pop("missing left operand")
	p.push(&Binary{Op: op, Left: left, Right: right})
}

// closeFrame finishes a call. A trailing empty argument gets a
// placeholder like any other; a zero-argument call stays empty.
func (p *exprParser) closeFrame(top opEntry) {
	argc := top.argc
	switch {
	case top.sawArg:
		argc++
	case argc > 0:
		p.push(&ErrorNode{Reason: "empty argument"})
		argc++
	}
	p.applyFunction(top.fnName, argc)
}

func (p *exprParser) applyFunction(name string, argc int) {
	args := make([]Node, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = p.pop("missing argument")
	}
	p.push(&Call{Name: name, Args: args})
}

func (p *exprParser) pop(reason string) Node {
	if len(p.output) == 0 {
		return &ErrorNode{Reason: reason}
	}
	n := p.output[len(p.output)-1]
	p.output = p.output[:len(p.output)-1]
	return n
}

// refNode normalizes a single-cell reference literal against the context.
func (p *exprParser) refNode(lit string) Node {
	addr, err := cell.ParseWith(lit, p.ctx.DefaultSheet)
	if err != nil {
		return &ErrorNode{Reason: err.Error()}
	}
	return &Reference{Addr: addr.String()}
}

// rangeNode normalizes a range reference literal against the context.
func (p *exprParser) rangeNode(lit string) Node {
	r, err := cell.ParseRangeWith(lit, p.ctx.DefaultSheet)
	if err != nil {
		return &ErrorNode{Reason: err.Error()}
	}
	return &RangeRef{Ref: r.String()}
}

// nameNode resolves a bare name: TRUE/FALSE become zero-argument calls,
// named ranges resolve to their destination, anything else is a hole.
func (p *exprParser) nameNode(name string) Node {
	upper := strings.ToUpper(name)
	if upper == "TRUE" || upper == "FALSE" {
		return &Call{Name: upper}
	}
	if dest, ok := p.ctx.ResolveName(name); ok {
		if cell.IsRangeRef(dest) {
			return p.rangeNode(dest)
		}
		return p.refNode(dest)
	}
	return &ErrorNode{Reason: "unknown name " + strconv.Quote(name)}
}
