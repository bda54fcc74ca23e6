package std

import (
	"strings"

	"github.com/fabvit86/jsonnet-go/ast"
	"github.com/fabvit86/jsonnet-go/diag"
	"github.com/fabvit86/jsonnet-go/interp"
)

func init() {
	register("codepoint", []string{"str"}, stdCodepoint)
	register("char", []string{"n"}, stdChar)
	register("substr", []string{"str", "from", "len"}, stdSubstr)
	register("startsWith", []string{"a", "b"}, stdStartsWith)
	register("endsWith", []string{"a", "b"}, stdEndsWith)
	register("split", []string{"str", "c"}, stdSplit)
	register("splitLimit", []string{"str", "c", "maxsplits"}, stdSplitLimit)
	register("strReplace", []string{"str", "from", "to"}, stdStrReplace)
	register("asciiUpper", []string{"str"}, stdAsciiUpper)
	register("asciiLower", []string{"str"}, stdAsciiLower)
	register("stringChars", []string{"str"}, stdStringChars)
}

func stdCodepoint(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	s, err := forceString(it, args[0], at, "std.codepoint str")
	if err != nil {
		return nil, err
	}
	runes := []rune(s)
	if len(runes) != 1 {
		return nil, diag.New(diag.RuntimeError, at, "std.codepoint needs a single-character string, got %d characters", len(runes))
	}
	return interp.Number{F: float64(runes[0])}, nil
}

func stdChar(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	n, err := forceInt(it, args[0], at, "std.char n")
	if err != nil {
		return nil, err
	}
	return interp.String{S: string(rune(n))}, nil
}

func stdSubstr(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	s, err := forceString(it, args[0], at, "std.substr str")
	if err != nil {
		return nil, err
	}
	from, err := forceInt(it, args[1], at, "std.substr from")
	if err != nil {
		return nil, err
	}
	length, err := forceInt(it, args[2], at, "std.substr len")
	if err != nil {
		return nil, err
	}
	if from < 0 || length < 0 {
		return nil, diag.New(diag.RuntimeError, at, "std.substr range must be non-negative")
	}
	runes := []rune(s)
	if from > len(runes) {
		return interp.String{}, nil
	}
	end := from + length
	if end > len(runes) {
		end = len(runes)
	}
	return interp.String{S: string(runes[from:end])}, nil
}

func stdStartsWith(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	a, err := forceString(it, args[0], at, "std.startsWith a")
	if err != nil {
		return nil, err
	}
	b, err := forceString(it, args[1], at, "std.startsWith b")
	if err != nil {
		return nil, err
	}
	return interp.Bool{B: strings.HasPrefix(a, b)}, nil
}

func stdEndsWith(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	a, err := forceString(it, args[0], at, "std.endsWith a")
	if err != nil {
		return nil, err
	}
	b, err := forceString(it, args[1], at, "std.endsWith b")
	if err != nil {
		return nil, err
	}
	return interp.Bool{B: strings.HasSuffix(a, b)}, nil
}

func stdSplit(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	return splitLimit(it, at, args[0], args[1], -1)
}

func stdSplitLimit(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	max, err := forceInt(it, args[2], at, "std.splitLimit maxsplits")
	if err != nil {
		return nil, err
	}
	return splitLimit(it, at, args[0], args[1], max)
}

func splitLimit(it *interp.Interp, at ast.Span, strArg, sepArg *interp.Thunk, max int) (interp.Value, error) {
	s, err := forceString(it, strArg, at, "std.split str")
	if err != nil {
		return nil, err
	}
	sep, err := forceString(it, sepArg, at, "std.split separator")
	if err != nil {
		return nil, err
	}
	if sep == "" {
		return nil, diag.New(diag.RuntimeError, at, "std.split separator must not be empty")
	}
	n := -1
	if max >= 0 {
		n = max + 1
	}
	parts := strings.SplitN(s, sep, n)
	elements := make([]*interp.Thunk, len(parts))
	for i, part := range parts {
		elements[i] = interp.NewValueThunk(interp.String{S: part})
	}
	return &interp.Array{Elements: elements}, nil
}

func stdStrReplace(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	s, err := forceString(it, args[0], at, "std.strReplace str")
	if err != nil {
		return nil, err
	}
	from, err := forceString(it, args[1], at, "std.strReplace from")
	if err != nil {
		return nil, err
	}
	to, err := forceString(it, args[2], at, "std.strReplace to")
	if err != nil {
		return nil, err
	}
	if from == "" {
		return nil, diag.New(diag.RuntimeError, at, "std.strReplace from must not be empty")
	}
	return interp.String{S: strings.ReplaceAll(s, from, to)}, nil
}

func stdAsciiUpper(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	s, err := forceString(it, args[0], at, "std.asciiUpper str")
	if err != nil {
		return nil, err
	}
	return interp.String{S: strings.ToUpper(s)}, nil
}

func stdAsciiLower(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	s, err := forceString(it, args[0], at, "std.asciiLower str")
	if err != nil {
		return nil, err
	}
	return interp.String{S: strings.ToLower(s)}, nil
}

func stdStringChars(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	s, err := forceString(it, args[0], at, "std.stringChars str")
	if err != nil {
		return nil, err
	}
	runes := []rune(s)
	elements := make([]*interp.Thunk, len(runes))
	for i, r := range runes {
		elements[i] = interp.NewValueThunk(interp.String{S: string(r)})
	}
	return &interp.Array{Elements: elements}, nil
}
