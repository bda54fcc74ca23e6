// Package lexer implements the Jsonnet tokenizer.
package lexer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fabvit86/jsonnet-go/ast"
	"github.com/fabvit86/jsonnet-go/diag"
	"github.com/fabvit86/jsonnet-go/scanner"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Keywords
	TokAssert TokenType = iota
	TokElse
	TokError
	TokFalse
	TokFor
	TokFunction
	TokIf
	TokImport
	TokImportStr
	TokIn
	TokLocal
	TokNull
	TokSelf
	TokSuper
	TokTailStrict
	TokThen
	TokTrue

	// Literals
	TokNumber
	TokString

	// Identifiers
	TokIdent

	// Punctuation
	TokLBrace      // {
	TokRBrace      // }
	TokLBracket    // [
	TokRBracket    // ]
	TokLParen      // (
	TokRParen      // )
	TokComma       // ,
	TokDot         // .
	TokSemicolon   // ;
	TokDollar      // $
	TokColon       // :
	TokDoubleColon // ::
	TokTripleColon // :::
	TokEquals      // =

	// TokOp carries the operator spelling in Value (e.g. "==", "<<", "+").
	TokOp

	TokEOF
)

// Token represents a single lexer token.
type Token struct {
	Type  TokenType
	Value string
	Num   float64 // set for TokNumber
	IsInt bool    // the number was spelled without fraction or exponent
	Span  ast.Span
}

var keywords = map[string]TokenType{
	"assert":     TokAssert,
	"else":       TokElse,
	"error":      TokError,
	"false":      TokFalse,
	"for":        TokFor,
	"function":   TokFunction,
	"if":         TokIf,
	"import":     TokImport,
	"importstr":  TokImportStr,
	"in":         TokIn,
	"local":      TokLocal,
	"null":       TokNull,
	"self":       TokSelf,
	"super":      TokSuper,
	"tailstrict": TokTailStrict,
	"then":       TokThen,
	"true":       TokTrue,
}

// Keywords returns the reserved words of the language. Identifiers must
// not collide with any of these.
func Keywords() []string {
	out := make([]string, 0, len(keywords))
	for k := range keywords {
		out = append(out, k)
	}
	return out
}

// twoCharOps are the multi-character operators, checked before the
// single-character ones so lexing is greedy (longest match).
var twoCharOps = []string{"==", "!=", "<=", ">=", "&&", "||", "<<", ">>"}

const singleOpChars = "+-*/%<>!~&|^"

type lexer struct {
	sc *scanner.Scanner
}

// Tokenize breaks source code into a slice of tokens ending with TokEOF.
func Tokenize(source, filename string) ([]Token, error) {
	lx := &lexer{sc: scanner.New(source, filename)}
	var tokens []Token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			return tokens, nil
		}
	}
}

func (lx *lexer) errAt(m scanner.Mark, format string, args ...any) error {
	return diag.New(diag.ParseError, lx.sc.SpanFrom(m), format, args...)
}

func (lx *lexer) skipWhitespaceAndComments() error {
	sc := lx.sc
	for !sc.AtEnd() {
		ch := sc.Peek()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			sc.Next()
		case ch == '#':
			for !sc.AtEnd() && sc.Peek() != '\n' {
				sc.Next()
			}
		case ch == '/' && sc.PeekAt(1) == '/':
			for !sc.AtEnd() && sc.Peek() != '\n' {
				sc.Next()
			}
		case ch == '/' && sc.PeekAt(1) == '*':
			m := sc.Mark()
			sc.Skip(2)
			for !sc.LookingAt("*/") {
				if sc.AtEnd() {
					return lx.errAt(m, "unterminated block comment")
				}
				sc.Next()
			}
			sc.Skip(2)
		default:
			return nil
		}
	}
	return nil
}

func (lx *lexer) next() (Token, error) {
	if err := lx.skipWhitespaceAndComments(); err != nil {
		return Token{}, err
	}
	sc := lx.sc
	m := sc.Mark()
	if sc.AtEnd() {
		return Token{Type: TokEOF, Span: sc.SpanFrom(m)}, nil
	}

	ch := sc.Peek()

	switch ch {
	case '{':
		sc.Next()
		return lx.tok(TokLBrace, "{", m), nil
	case '}':
		sc.Next()
		return lx.tok(TokRBrace, "}", m), nil
	case '[':
		sc.Next()
		return lx.tok(TokLBracket, "[", m), nil
	case ']':
		sc.Next()
		return lx.tok(TokRBracket, "]", m), nil
	case '(':
		sc.Next()
		return lx.tok(TokLParen, "(", m), nil
	case ')':
		sc.Next()
		return lx.tok(TokRParen, ")", m), nil
	case ',':
		sc.Next()
		return lx.tok(TokComma, ",", m), nil
	case ';':
		sc.Next()
		return lx.tok(TokSemicolon, ";", m), nil
	case '$':
		sc.Next()
		return lx.tok(TokDollar, "$", m), nil
	case ':':
		sc.Next()
		if sc.Peek() == ':' {
			sc.Next()
			if sc.Peek() == ':' {
				sc.Next()
				return lx.tok(TokTripleColon, ":::", m), nil
			}
			return lx.tok(TokDoubleColon, "::", m), nil
		}
		return lx.tok(TokColon, ":", m), nil
	case '.':
		sc.Next()
		return lx.tok(TokDot, ".", m), nil
	case '"', '\'':
		return lx.scanQuoted(m, ch)
	case '@':
		quote := sc.PeekAt(1)
		if quote != '"' && quote != '\'' {
			sc.Next()
			return Token{}, lx.errAt(m, "expected string after '@'")
		}
		sc.Next()
		return lx.scanVerbatim(m, quote)
	case '|':
		if sc.LookingAt("|||") {
			return lx.scanTextBlock(m)
		}
	case '=':
		if sc.PeekAt(1) != '=' {
			sc.Next()
			return lx.tok(TokEquals, "=", m), nil
		}
	}

	if scanner.IsDigit(ch) {
		return lx.scanNumber(m)
	}
	if scanner.IsIdentStart(ch) {
		return lx.scanIdentOrKeyword(m), nil
	}

	for _, op := range twoCharOps {
		if sc.LookingAt(op) {
			sc.Skip(2)
			return lx.tok(TokOp, op, m), nil
		}
	}
	if strings.IndexByte(singleOpChars, ch) >= 0 {
		sc.Next()
		return lx.tok(TokOp, string(ch), m), nil
	}

	sc.Next()
	return Token{}, lx.errAt(m, "unexpected character %q", string(ch))
}

func (lx *lexer) tok(typ TokenType, value string, m scanner.Mark) Token {
	return Token{Type: typ, Value: value, Span: lx.sc.SpanFrom(m)}
}

func (lx *lexer) scanIdentOrKeyword(m scanner.Mark) Token {
	sc := lx.sc
	for !sc.AtEnd() && scanner.IsIdent(sc.Peek()) {
		sc.Next()
	}
	text := sc.Slice(m.Pos, sc.Pos())
	if typ, ok := keywords[text]; ok {
		return lx.tok(typ, text, m)
	}
	return lx.tok(TokIdent, text, m)
}

func (lx *lexer) scanNumber(m scanner.Mark) (Token, error) {
	sc := lx.sc
	isInt := true
	for !sc.AtEnd() && scanner.IsDigit(sc.Peek()) {
		sc.Next()
	}
	if sc.Peek() == '.' && scanner.IsDigit(sc.PeekAt(1)) {
		isInt = false
		sc.Next()
		for !sc.AtEnd() && scanner.IsDigit(sc.Peek()) {
			sc.Next()
		}
	}
	if sc.Peek() == 'e' || sc.Peek() == 'E' {
		isInt = false
		sc.Next()
		if sc.Peek() == '+' || sc.Peek() == '-' {
			sc.Next()
		}
		if !scanner.IsDigit(sc.Peek()) {
			return Token{}, lx.errAt(m, "missing exponent digits in number literal")
		}
		for !sc.AtEnd() && scanner.IsDigit(sc.Peek()) {
			sc.Next()
		}
	}
	text := sc.Slice(m.Pos, sc.Pos())
	val, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Token{}, lx.errAt(m, "invalid number literal %q", text)
	}
	tok := lx.tok(TokNumber, text, m)
	tok.Num = val
	tok.IsInt = isInt
	return tok, nil
}

// scanQuoted scans "..." and '...' literals, processing escape sequences.
func (lx *lexer) scanQuoted(m scanner.Mark, quote byte) (Token, error) {
	sc := lx.sc
	sc.Next() // opening quote
	var buf strings.Builder
	for {
		if sc.AtEnd() {
			return Token{}, lx.errAt(m, "unterminated string literal")
		}
		ch := sc.Next()
		if ch == quote {
			return lx.tok(TokString, buf.String(), m), nil
		}
		if ch != '\\' {
			buf.WriteByte(ch)
			continue
		}
		if sc.AtEnd() {
			return Token{}, lx.errAt(m, "unterminated string escape")
		}
		esc := sc.Next()
		switch esc {
		case '"':
			buf.WriteByte('"')
		case '\'':
			buf.WriteByte('\'')
		case '\\':
			buf.WriteByte('\\')
		case '/':
			buf.WriteByte('/')
		case 'b':
			buf.WriteByte('\b')
		case 'f':
			buf.WriteByte('\f')
		case 'n':
			buf.WriteByte('\n')
		case 'r':
			buf.WriteByte('\r')
		case 't':
			buf.WriteByte('\t')
		case 'u':
			hex := make([]byte, 0, 4)
			for i := 0; i < 4; i++ {
				if sc.AtEnd() || !scanner.IsHexDigit(sc.Peek()) {
					return Token{}, lx.errAt(m, "incomplete unicode escape")
				}
				hex = append(hex, sc.Next())
			}
			cp, err := strconv.ParseUint(string(hex), 16, 32)
			if err != nil {
				return Token{}, lx.errAt(m, "invalid unicode escape \\u%s", hex)
			}
			buf.WriteRune(rune(cp))
		default:
			return Token{}, lx.errAt(m, "invalid escape character \\%c", esc)
		}
	}
}

// scanVerbatim scans @"..." and @'...' literals. A doubled quote escapes
// the quote; no other escape processing happens.
func (lx *lexer) scanVerbatim(m scanner.Mark, quote byte) (Token, error) {
	sc := lx.sc
	sc.Next() // opening quote
	var buf strings.Builder
	for {
		if sc.AtEnd() {
			return Token{}, lx.errAt(m, "unterminated verbatim string literal")
		}
		ch := sc.Next()
		if ch == quote {
			if sc.Peek() == quote {
				sc.Next()
				buf.WriteByte(quote)
				continue
			}
			return lx.tok(TokString, buf.String(), m), nil
		}
		buf.WriteByte(ch)
	}
}

// scanTextBlock scans a ||| text block. Content lines share a whitespace
// prefix fixed by the first non-blank line; the block ends at a line whose
// first non-whitespace text is ||| at a shallower indent.
func (lx *lexer) scanTextBlock(m scanner.Mark) (Token, error) {
	sc := lx.sc
	sc.Skip(3) // |||
	for sc.Peek() == ' ' || sc.Peek() == '\t' || sc.Peek() == '\r' {
		sc.Next()
	}
	if sc.AtEnd() || sc.Peek() != '\n' {
		return Token{}, lx.errAt(m, "text block '|||' must be followed by a newline")
	}
	sc.Next() // newline

	var buf strings.Builder
	indent := ""
	for {
		if sc.AtEnd() {
			return Token{}, lx.errAt(m, "unterminated text block")
		}
		lineStart := sc.Pos()
		ws := 0
		for sc.Peek() == ' ' || sc.Peek() == '\t' {
			sc.Next()
			ws++
		}
		if sc.LookingAt("|||") && (indent == "" || ws < len(indent)) {
			sc.Skip(3)
			return lx.tok(TokString, buf.String(), m), nil
		}
		if sc.Peek() == '\n' {
			sc.Next()
			buf.WriteByte('\n')
			continue
		}
		if indent == "" {
			if ws == 0 {
				return Token{}, lx.errAt(m, "text block content must be indented")
			}
			indent = sc.Slice(lineStart, lineStart+ws)
		} else if ws < len(indent) {
			return Token{}, lx.errAt(m, "text block line less indented than first line")
		}
		line := lineStart + len(indent)
		for !sc.AtEnd() && sc.Peek() != '\n' {
			sc.Next()
		}
		buf.WriteString(sc.Slice(line, sc.Pos()))
		if sc.AtEnd() {
			return Token{}, lx.errAt(m, "unterminated text block")
		}
		sc.Next()
		buf.WriteByte('\n')
	}
}

// Describe returns a human-readable name for a token, used in parse errors.
func Describe(t Token) string {
	switch t.Type {
	case TokEOF:
		return "end of file"
	case TokNumber:
		return fmt.Sprintf("number %s", t.Value)
	case TokString:
		return "string literal"
	case TokIdent:
		return fmt.Sprintf("identifier %q", t.Value)
	default:
		return fmt.Sprintf("%q", t.Value)
	}
}
