// Package std implements the builtin functions exposed through the std
// object. Each group of builtins registers itself with the evaluator's
// native registry from init, so hosts enable the library by blank-
// importing this package.
package std

import (
	"github.com/fabvit86/jsonnet-go/ast"
	"github.com/fabvit86/jsonnet-go/core"
	"github.com/fabvit86/jsonnet-go/diag"
	"github.com/fabvit86/jsonnet-go/interp"
)

type nativeFn = func(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error)

func register(name string, params []string, fn nativeFn) {
	interp.RegisterNative(&interp.NativeFunc{Name: name, Params: params, Fn: fn})
}

// registerOpt registers a builtin whose trailing parameters default to
// null; the implementation treats a null argument as "absent".
func registerOpt(name string, params []string, defaults map[string]core.Node, fn nativeFn) {
	interp.RegisterNative(&interp.NativeFunc{Name: name, Params: params, Defaults: defaults, Fn: fn})
}

func nullDefault() core.Node { return &core.Null{} }

// Forcing helpers shared by the builtin implementations.

func forceString(it *interp.Interp, t *interp.Thunk, at ast.Span, what string) (string, error) {
	v, err := t.Force(it)
	if err != nil {
		return "", err
	}
	s, ok := v.(interp.String)
	if !ok {
		return "", diag.New(diag.TypeError, at, "%s must be a string, got %s", what, v.TypeName())
	}
	return s.S, nil
}

func forceNumber(it *interp.Interp, t *interp.Thunk, at ast.Span, what string) (float64, error) {
	v, err := t.Force(it)
	if err != nil {
		return 0, err
	}
	n, ok := v.(interp.Number)
	if !ok {
		return 0, diag.New(diag.TypeError, at, "%s must be a number, got %s", what, v.TypeName())
	}
	return n.F, nil
}

func forceInt(it *interp.Interp, t *interp.Thunk, at ast.Span, what string) (int, error) {
	f, err := forceNumber(it, t, at, what)
	if err != nil {
		return 0, err
	}
	i := int(f)
	if float64(i) != f {
		return 0, diag.New(diag.RuntimeError, at, "%s must be an integer, got %v", what, f)
	}
	return i, nil
}

func forceArray(it *interp.Interp, t *interp.Thunk, at ast.Span, what string) (*interp.Array, error) {
	v, err := t.Force(it)
	if err != nil {
		return nil, err
	}
	a, ok := v.(*interp.Array)
	if !ok {
		return nil, diag.New(diag.TypeError, at, "%s must be an array, got %s", what, v.TypeName())
	}
	return a, nil
}

func forceObject(it *interp.Interp, t *interp.Thunk, at ast.Span, what string) (*interp.Object, error) {
	v, err := t.Force(it)
	if err != nil {
		return nil, err
	}
	o, ok := v.(*interp.Object)
	if !ok {
		return nil, diag.New(diag.TypeError, at, "%s must be an object, got %s", what, v.TypeName())
	}
	return o, nil
}

func forceFunction(it *interp.Interp, t *interp.Thunk, at ast.Span, what string) (*interp.Function, error) {
	v, err := t.Force(it)
	if err != nil {
		return nil, err
	}
	f, ok := v.(*interp.Function)
	if !ok {
		return nil, diag.New(diag.TypeError, at, "%s must be a function, got %s", what, v.TypeName())
	}
	return f, nil
}

// forceOptional forces a defaulted argument, mapping null to nil.
func forceOptional(it *interp.Interp, t *interp.Thunk) (interp.Value, error) {
	v, err := t.Force(it)
	if err != nil {
		return nil, err
	}
	if _, isNull := v.(interp.Null); isNull {
		return nil, nil
	}
	return v, nil
}
