package diag

import (
	"testing"

	"github.com/fabvit86/jsonnet-go/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func span(line, col int) ast.Span {
	return ast.Span{File: "f.jsonnet", StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1}
}

func TestError_Message(t *testing.T) {
	err := New(TypeError, span(3, 7), "cannot add %s and %s", "object", "number")
	assert.Equal(t, "f.jsonnet:3:7: type error: cannot add object and number", err.Error())
}

func TestWithFrame_CopiesTrace(t *testing.T) {
	base := New(RuntimeError, span(1, 1), "boom")
	a := base.WithFrame(span(2, 1), "function call")
	b := base.WithFrame(span(3, 1), "field <x>")

	require.Empty(t, base.Trace, "the original error must stay untouched")
	require.Len(t, a.Trace, 1)
	require.Len(t, b.Trace, 1)
	assert.Equal(t, "function call", a.Trace[0].Note)
	assert.Equal(t, "field <x>", b.Trace[0].Note)
}

func TestFormat_PlainIncludesTrace(t *testing.T) {
	err := New(RuntimeError, span(1, 2), "boom").
		WithFrame(span(4, 5), "function call")
	out := Format(err, false)
	assert.Contains(t, out, "runtime error: boom")
	assert.Contains(t, out, "f.jsonnet:1:2")
	assert.Contains(t, out, "f.jsonnet:4:5")
	assert.Contains(t, out, "function call")
	assert.NotContains(t, out, "\x1b[")
}

func TestFormat_ColorUsesAnsi(t *testing.T) {
	err := New(ParseError, span(1, 1), "bad token")
	assert.Contains(t, Format(err, true), "\x1b[31m")
}
