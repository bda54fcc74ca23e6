package ast

import "fmt"

// Span represents a source location range. Lines and columns are 1-based;
// EndLine/EndCol point just past the last character of the node.
type Span struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// String formats the span as file:line:col for diagnostics.
func (s Span) String() string {
	if s.File == "" {
		return fmt.Sprintf("%d:%d", s.StartLine, s.StartCol)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.StartLine, s.StartCol)
}

// To returns a span covering from the start of s to the end of other.
func (s Span) To(other Span) Span {
	return Span{
		File:      s.File,
		StartLine: s.StartLine,
		StartCol:  s.StartCol,
		EndLine:   other.EndLine,
		EndCol:    other.EndCol,
	}
}
