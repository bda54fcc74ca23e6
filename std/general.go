package std

import (
	"fmt"
	"os"

	"github.com/fabvit86/jsonnet-go/ast"
	"github.com/fabvit86/jsonnet-go/diag"
	"github.com/fabvit86/jsonnet-go/interp"
)

func init() {
	register("extVar", []string{"x"}, stdExtVar)
	register("type", []string{"x"}, stdType)
	register("length", []string{"x"}, stdLength)
	register("primitiveEquals", []string{"a", "b"}, stdPrimitiveEquals)
	register("equals", []string{"a", "b"}, stdEquals)
	register("toString", []string{"a"}, stdToString)
	register("trace", []string{"str", "rest"}, stdTrace)
	register("mergePatch", []string{"target", "patch"}, stdMergePatch)
	register("manifestJson", []string{"value"}, stdManifestJson)
	register("manifestJsonEx", []string{"value", "indent"}, stdManifestJsonEx)
	register("prune", []string{"a"}, stdPrune)
}

func stdExtVar(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	name, err := forceString(it, args[0], at, "std.extVar name")
	if err != nil {
		return nil, err
	}
	v, ok := it.ExtVar(name)
	if !ok {
		return nil, diag.New(diag.RuntimeError, at, "undefined external variable %q", name)
	}
	return interp.String{S: v}, nil
}

func stdType(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	v, err := args[0].Force(it)
	if err != nil {
		return nil, err
	}
	return interp.String{S: v.TypeName()}, nil
}

func stdLength(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	v, err := args[0].Force(it)
	if err != nil {
		return nil, err
	}
	switch val := v.(type) {
	case interp.String:
		return interp.Number{F: float64(len([]rune(val.S)))}, nil
	case *interp.Array:
		return interp.Number{F: float64(len(val.Elements))}, nil
	case *interp.Object:
		return interp.Number{F: float64(len(val.FieldNames(true)))}, nil
	case *interp.Function:
		return interp.Number{F: float64(len(val.Params))}, nil
	}
	return nil, diag.New(diag.TypeError, at, "std.length operand must be a string, array, object or function, got %s", v.TypeName())
}

func stdPrimitiveEquals(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	a, err := args[0].Force(it)
	if err != nil {
		return nil, err
	}
	b, err := args[1].Force(it)
	if err != nil {
		return nil, err
	}
	switch a.(type) {
	case interp.Null, interp.Bool, interp.Number, interp.String:
	default:
		return nil, diag.New(diag.TypeError, at, "std.primitiveEquals operates on primitives, got %s", a.TypeName())
	}
	if a.TypeName() != b.TypeName() {
		return interp.Bool{B: false}, nil
	}
	eq, err := it.Equals(a, b, at)
	if err != nil {
		return nil, err
	}
	return interp.Bool{B: eq}, nil
}

func stdEquals(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	a, err := args[0].Force(it)
	if err != nil {
		return nil, err
	}
	b, err := args[1].Force(it)
	if err != nil {
		return nil, err
	}
	eq, err := it.Equals(a, b, at)
	if err != nil {
		return nil, err
	}
	return interp.Bool{B: eq}, nil
}

func stdToString(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	v, err := args[0].Force(it)
	if err != nil {
		return nil, err
	}
	if s, ok := v.(interp.String); ok {
		return s, nil
	}
	tree, err := it.Manifest(v, at)
	if err != nil {
		return nil, err
	}
	text, err := interp.EncodeJSON(tree, "")
	if err != nil {
		return nil, err
	}
	return interp.String{S: text}, nil
}

// stdTrace prints the message to stderr and returns rest unchanged.
func stdTrace(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	msg, err := forceString(it, args[0], at, "std.trace message")
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(os.Stderr, "TRACE: %s: %s\n", at, msg)
	return args[1].Force(it)
}

// stdMergePatch applies RFC 7386 JSON merge patch semantics over the
// manifested forms of target and patch.
func stdMergePatch(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	target, err := args[0].Force(it)
	if err != nil {
		return nil, err
	}
	patch, err := args[1].Force(it)
	if err != nil {
		return nil, err
	}
	targetTree, err := it.Manifest(target, at)
	if err != nil {
		return nil, err
	}
	patchTree, err := it.Manifest(patch, at)
	if err != nil {
		return nil, err
	}
	return interp.FromJSON(mergePatch(targetTree, patchTree)), nil
}

func mergePatch(target, patch any) any {
	patchObj, ok := patch.(map[string]any)
	if !ok {
		return patch
	}
	out := map[string]any{}
	if targetObj, ok := target.(map[string]any); ok {
		for k, v := range targetObj {
			out[k] = v
		}
	}
	for k, v := range patchObj {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = mergePatch(out[k], v)
	}
	return out
}

func stdManifestJson(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	return manifestIndented(it, at, args[0], "    ")
}

func stdManifestJsonEx(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	indent, err := forceString(it, args[1], at, "std.manifestJsonEx indent")
	if err != nil {
		return nil, err
	}
	return manifestIndented(it, at, args[0], indent)
}

func manifestIndented(it *interp.Interp, at ast.Span, arg *interp.Thunk, indent string) (interp.Value, error) {
	v, err := arg.Force(it)
	if err != nil {
		return nil, err
	}
	tree, err := it.Manifest(v, at)
	if err != nil {
		return nil, err
	}
	text, err := interp.EncodeJSON(tree, indent)
	if err != nil {
		return nil, err
	}
	return interp.String{S: text}, nil
}

// stdPrune drops null fields, null elements, and empty containers from
// the manifested form of the value.
func stdPrune(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	v, err := args[0].Force(it)
	if err != nil {
		return nil, err
	}
	tree, err := it.Manifest(v, at)
	if err != nil {
		return nil, err
	}
	return interp.FromJSON(prune(tree)), nil
}

func prune(tree any) any {
	switch t := tree.(type) {
	case []any:
		var out []any
		for _, el := range t {
			p := prune(el)
			if !emptyOrNull(p) {
				out = append(out, p)
			}
		}
		if out == nil {
			out = []any{}
		}
		return out
	case map[string]any:
		out := map[string]any{}
		for k, v := range t {
			p := prune(v)
			if !emptyOrNull(p) {
				out[k] = p
			}
		}
		return out
	}
	return tree
}

func emptyOrNull(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}
