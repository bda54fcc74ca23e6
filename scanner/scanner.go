// Package scanner provides a position-tracking byte cursor over Jsonnet
// source text. It encapsulates line/column bookkeeping so the lexer never
// maintains its own counters, and offers the small lookahead primitives
// (Peek, PeekAt, LookingAt) that multi-character token detection needs.
package scanner

import (
	"strings"

	"github.com/fabvit86/jsonnet-go/ast"
)

// Scanner iterates byte-by-byte over source text, tracking the 1-based
// line and column of the current position.
type Scanner struct {
	src  string
	file string
	pos  int
	line int
	col  int
}

// New creates a Scanner positioned at the start of src. The file name is
// only used to stamp spans.
func New(src, file string) *Scanner {
	return &Scanner{src: src, file: file, line: 1, col: 1}
}

// AtEnd reports whether the cursor is past the last byte.
func (s *Scanner) AtEnd() bool {
	return s.pos >= len(s.src)
}

// Peek returns the byte at the cursor without advancing, or 0 at end.
func (s *Scanner) Peek() byte {
	if s.AtEnd() {
		return 0
	}
	return s.src[s.pos]
}

// PeekAt returns the byte at the given offset from the cursor, or 0 past end.
func (s *Scanner) PeekAt(offset int) byte {
	p := s.pos + offset
	if p >= len(s.src) {
		return 0
	}
	return s.src[p]
}

// Next consumes and returns the byte at the cursor, updating line/column.
// Callers must not call Next at end of input.
func (s *Scanner) Next() byte {
	ch := s.src[s.pos]
	s.pos++
	if ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return ch
}

// Skip consumes n bytes (or fewer at end of input).
func (s *Scanner) Skip(n int) {
	for i := 0; i < n && !s.AtEnd(); i++ {
		s.Next()
	}
}

// LookingAt reports whether the remaining input starts with prefix.
func (s *Scanner) LookingAt(prefix string) bool {
	return strings.HasPrefix(s.src[s.pos:], prefix)
}

// Pos returns the current byte offset.
func (s *Scanner) Pos() int { return s.pos }

// Line returns the current 1-based line number.
func (s *Scanner) Line() int { return s.line }

// Col returns the current 1-based column number.
func (s *Scanner) Col() int { return s.col }

// Slice returns the source text between two byte offsets.
func (s *Scanner) Slice(from, to int) string { return s.src[from:to] }

// Rest returns the unconsumed source text.
func (s *Scanner) Rest() string { return s.src[s.pos:] }

// Mark captures the current position as the start of a token.
func (s *Scanner) Mark() Mark {
	return Mark{Pos: s.pos, Line: s.line, Col: s.col}
}

// Mark is a saved source position used to build token spans.
type Mark struct {
	Pos  int
	Line int
	Col  int
}

// SpanFrom builds a span from a mark to the current position.
func (s *Scanner) SpanFrom(m Mark) ast.Span {
	return ast.Span{
		File:      s.file,
		StartLine: m.Line,
		StartCol:  m.Col,
		EndLine:   s.line,
		EndCol:    s.col,
	}
}

// IsIdentStart reports whether ch can begin an identifier.
func IsIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// IsIdent reports whether ch can continue an identifier.
func IsIdent(ch byte) bool {
	return IsIdentStart(ch) || IsDigit(ch)
}

// IsDigit reports whether ch is an ASCII digit.
func IsDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// IsHexDigit reports whether ch is an ASCII hexadecimal digit.
func IsHexDigit(ch byte) bool {
	return IsDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
