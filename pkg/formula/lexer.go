package formula

import (
	"strings"

	"github.com/leapstack-labs/leapsheet/pkg/cell"
)

// Lexer tokenizes a single formula. The leading "=" of a formula cell is
// accepted and skipped so callers may pass the raw cell text.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
}

// NewLexer creates a new Lexer for the given formula text.
func NewLexer(input string) *Lexer {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "=") {
		input = input[1:]
	}
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	pos := l.pos
	var tok Token
	tok.Pos = pos

	switch l.ch {
	case 0:
		tok.Type = TOKEN_EOF
		tok.Literal = ""
		return tok
	case '+':
		tok = Token{Type: TOKEN_PLUS, Literal: "+", Pos: pos}
	case '-':
		tok = Token{Type: TOKEN_MINUS, Literal: "-", Pos: pos}
	case '*':
		tok = Token{Type: TOKEN_STAR, Literal: "*", Pos: pos}
	case '/':
		tok = Token{Type: TOKEN_SLASH, Literal: "/", Pos: pos}
	case '^':
		tok = Token{Type: TOKEN_CARET, Literal: "^", Pos: pos}
	case '&':
		tok = Token{Type: TOKEN_AMP, Literal: "&", Pos: pos}
	case '=':
		tok = Token{Type: TOKEN_EQ, Literal: "=", Pos: pos}
	case '<':
		switch l.peekChar() {
		case '>':
			l.readChar()
			tok = Token{Type: TOKEN_NE, Literal: "<>", Pos: pos}
		case '=':
			l.readChar()
			tok = Token{Type: TOKEN_LE, Literal: "<=", Pos: pos}
		default:
			tok = Token{Type: TOKEN_LT, Literal: "<", Pos: pos}
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TOKEN_GE, Literal: ">=", Pos: pos}
		} else {
			tok = Token{Type: TOKEN_GT, Literal: ">", Pos: pos}
		}
	case ',':
		tok = Token{Type: TOKEN_COMMA, Literal: ",", Pos: pos}
	case '(':
		tok = Token{Type: TOKEN_LPAREN, Literal: "(", Pos: pos}
	case ')':
		tok = Token{Type: TOKEN_RPAREN, Literal: ")", Pos: pos}
	case '"':
		tok.Type = TOKEN_STRING
		tok.Literal = l.readString()
		return tok
	case '\'':
		// Quoted sheet name: 'My Sheet'!A1
		return l.readQuotedSheetRef(pos)
	default:
		switch {
		case isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())):
			tok.Type = TOKEN_NUMBER
			tok.Literal = l.readNumber()
			return tok
		case isNameStart(l.ch):
			return l.readNameOrRef(pos)
		default:
			tok = Token{Type: TOKEN_ILLEGAL, Literal: string(l.ch), Pos: pos}
		}
	}

	l.readChar()
	return tok
}

// Tokenize returns all tokens from the input, EOF included.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TOKEN_EOF {
			break
		}
	}
	return tokens
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// readString reads a double-quoted string literal. Doubled quotes are the
// escape form: "it""s" -> it"s.
func (l *Lexer) readString() string {
	l.readChar() // skip opening quote

	var result strings.Builder
	for l.ch != 0 {
		if l.ch == '"' {
			if l.peekChar() == '"' {
				result.WriteByte('"')
				l.readChar()
				l.readChar()
			} else {
				l.readChar() // skip closing quote
				break
			}
		} else {
			result.WriteByte(l.ch)
			l.readChar()
		}
	}
	return result.String()
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		if isDigit(l.peekChar()) || l.peekChar() == '+' || l.peekChar() == '-' {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	return l.input[start:l.pos]
}

// readNameOrRef reads an unquoted name and classifies it as a cell
// reference, a range, or a bare identifier (function name / named range).
// Sheet qualifiers ("Sheet1!B2") and absolute markers ("$B$2") are part of
// the reference literal.
func (l *Lexer) readNameOrRef(pos int) Token {
	word := l.readWord()

	if l.ch == '!' {
		// Sheet-qualified reference.
		l.readChar()
		local := l.readWord()
		if l.ch == ':' && cell.IsLocalRef(local) {
			l.readChar()
			end := l.readWord()
			lit := word + "!" + local + ":" + end
			if cell.IsLocalRef(end) {
				return Token{Type: TOKEN_RANGE, Literal: lit, Pos: pos}
			}
			return Token{Type: TOKEN_ILLEGAL, Literal: lit, Pos: pos}
		}
		lit := word + "!" + local
		if cell.IsLocalRef(local) {
			return Token{Type: TOKEN_CELL, Literal: lit, Pos: pos}
		}
		return Token{Type: TOKEN_ILLEGAL, Literal: lit, Pos: pos}
	}

	if l.ch == ':' && cell.IsLocalRef(word) {
		l.readChar()
		end := l.readWord()
		lit := word + ":" + end
		if cell.IsLocalRef(end) {
			return Token{Type: TOKEN_RANGE, Literal: lit, Pos: pos}
		}
		return Token{Type: TOKEN_ILLEGAL, Literal: lit, Pos: pos}
	}

	if cell.IsLocalRef(word) {
		return Token{Type: TOKEN_CELL, Literal: word, Pos: pos}
	}
	return Token{Type: TOKEN_IDENT, Literal: word, Pos: pos}
}

// readQuotedSheetRef reads 'Sheet Name'!A1 or 'Sheet Name'!A1:B2.
// The quotes are kept out of the token literal.
func (l *Lexer) readQuotedSheetRef(pos int) Token {
	l.readChar() // skip opening quote
	var sheet strings.Builder
	for l.ch != 0 && l.ch != '\'' {
		sheet.WriteByte(l.ch)
		l.readChar()
	}
	if l.ch != '\'' {
		return Token{Type: TOKEN_ILLEGAL, Literal: sheet.String(), Pos: pos}
	}
	l.readChar() // skip closing quote
	if l.ch != '!' {
		return Token{Type: TOKEN_ILLEGAL, Literal: sheet.String(), Pos: pos}
	}
	l.readChar() // skip '!'

	local := l.readWord()
	if l.ch == ':' && cell.IsLocalRef(local) {
		l.readChar()
		end := l.readWord()
		lit := sheet.String() + "!" + local + ":" + end
		if cell.IsLocalRef(end) {
			return Token{Type: TOKEN_RANGE, Literal: lit, Pos: pos}
		}
		return Token{Type: TOKEN_ILLEGAL, Literal: lit, Pos: pos}
	}
	lit := sheet.String() + "!" + local
	if cell.IsLocalRef(local) {
		return Token{Type: TOKEN_CELL, Literal: lit, Pos: pos}
	}
	return Token{Type: TOKEN_ILLEGAL, Literal: lit, Pos: pos}
}

// readWord reads a run of name characters (letters, digits, '_', '.', '$').
func (l *Lexer) readWord() string {
	start := l.pos
	for isNameStart(l.ch) || isDigit(l.ch) || l.ch == '.' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func isNameStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch == '$'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
