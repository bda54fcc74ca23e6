// Package diag defines the diagnostic types shared by the Jsonnet pipeline:
// parse, import, type, and runtime errors, all carrying a source span and,
// for evaluation errors, a stack trace of calling spans.
package diag

import (
	"fmt"
	"strings"

	"github.com/fabvit86/jsonnet-go/ast"
)

// Kind classifies a diagnostic.
type Kind string

const (
	// ParseError is a syntax error: unexpected token, bad literal,
	// duplicate object key.
	ParseError Kind = "parse error"
	// ImportError is an I/O failure resolving an import.
	ImportError Kind = "import error"
	// TypeError is an operator/operand mismatch, a non-callable
	// application, or a bad field access type.
	TypeError Kind = "type error"
	// RuntimeError is a user error expression, failed assert, arithmetic
	// domain error, missing parameter or field, or duplicate key.
	RuntimeError Kind = "runtime error"
	// InfiniteLoop is raised on re-entry into a thunk being forced.
	InfiniteLoop Kind = "infinite loop"
	// InfiniteManifest is raised when manifestation detects a value cycle.
	InfiniteManifest Kind = "infinite manifestation"
)

// Frame is one entry of an evaluation stack trace.
type Frame struct {
	Span ast.Span
	Note string // e.g. "function call", "field <name>", "import <path>"
}

// Error is a diagnostic with a kind, a message, a primary span, and an
// optional trace of calling spans (innermost first).
type Error struct {
	Kind  Kind
	Msg   string
	Span  ast.Span
	Trace []Frame
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Span, e.Kind, e.Msg)
}

// New creates a diagnostic of the given kind.
func New(kind Kind, span ast.Span, format string, args ...any) *Error {
	return &Error{Kind: kind, Span: span, Msg: fmt.Sprintf(format, args...)}
}

// WithFrame returns a copy of e with a trace frame appended. Copying
// matters: memoized thunks replay their stored error from multiple
// forcing sites, each extending its own trace.
func (e *Error) WithFrame(span ast.Span, note string) *Error {
	out := *e
	out.Trace = make([]Frame, 0, len(e.Trace)+1)
	out.Trace = append(out.Trace, e.Trace...)
	out.Trace = append(out.Trace, Frame{Span: span, Note: note})
	return &out
}

// ANSI escape codes used by Format.
const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiBold  = "\x1b[1m"
	ansiDim   = "\x1b[2m"
)

// Format renders a diagnostic for terminal display. When color is true the
// kind is highlighted with ANSI escapes. The trace is printed innermost
// first, one frame per line.
func Format(e *Error, color bool) string {
	var sb strings.Builder
	if color {
		sb.WriteString(ansiBold + ansiRed)
	}
	sb.WriteString(string(e.Kind))
	if color {
		sb.WriteString(ansiReset)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Msg)
	sb.WriteString("\n  ")
	sb.WriteString(e.Span.String())
	for _, f := range e.Trace {
		sb.WriteString("\n  ")
		if color {
			sb.WriteString(ansiDim)
		}
		sb.WriteString(f.Span.String())
		if f.Note != "" {
			sb.WriteString("\t" + f.Note)
		}
		if color {
			sb.WriteString(ansiReset)
		}
	}
	return sb.String()
}
