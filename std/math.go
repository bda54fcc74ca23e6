package std

import (
	"math"

	"github.com/fabvit86/jsonnet-go/ast"
	"github.com/fabvit86/jsonnet-go/diag"
	"github.com/fabvit86/jsonnet-go/interp"
)

func init() {
	register("abs", []string{"n"}, mathUnary("std.abs", math.Abs))
	register("floor", []string{"x"}, mathUnary("std.floor", math.Floor))
	register("ceil", []string{"x"}, mathUnary("std.ceil", math.Ceil))
	register("exp", []string{"x"}, mathUnary("std.exp", math.Exp))
	register("sqrt", []string{"x"}, stdSqrt)
	register("log", []string{"x"}, stdLog)
	register("sign", []string{"n"}, stdSign)
	register("max", []string{"a", "b"}, mathBinary("std.max", math.Max))
	register("min", []string{"a", "b"}, mathBinary("std.min", math.Min))
	register("pow", []string{"x", "n"}, mathBinary("std.pow", math.Pow))
	register("mod", []string{"a", "b"}, stdMod)
}

func mathUnary(name string, f func(float64) float64) nativeFn {
	return func(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
		x, err := forceNumber(it, args[0], at, name+" operand")
		if err != nil {
			return nil, err
		}
		return interp.Number{F: f(x)}, nil
	}
}

func mathBinary(name string, f func(float64, float64) float64) nativeFn {
	return func(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
		a, err := forceNumber(it, args[0], at, name+" first operand")
		if err != nil {
			return nil, err
		}
		b, err := forceNumber(it, args[1], at, name+" second operand")
		if err != nil {
			return nil, err
		}
		return interp.Number{F: f(a, b)}, nil
	}
}

func stdSqrt(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	x, err := forceNumber(it, args[0], at, "std.sqrt operand")
	if err != nil {
		return nil, err
	}
	if x < 0 {
		return nil, diag.New(diag.RuntimeError, at, "std.sqrt of negative number %v", x)
	}
	return interp.Number{F: math.Sqrt(x)}, nil
}

func stdLog(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	x, err := forceNumber(it, args[0], at, "std.log operand")
	if err != nil {
		return nil, err
	}
	if x <= 0 {
		return nil, diag.New(diag.RuntimeError, at, "std.log of non-positive number %v", x)
	}
	return interp.Number{F: math.Log(x)}, nil
}

func stdSign(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	n, err := forceNumber(it, args[0], at, "std.sign operand")
	if err != nil {
		return nil, err
	}
	switch {
	case n > 0:
		return interp.Number{F: 1}, nil
	case n < 0:
		return interp.Number{F: -1}, nil
	}
	return interp.Number{F: 0}, nil
}

func stdMod(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	a, err := forceNumber(it, args[0], at, "std.mod first operand")
	if err != nil {
		return nil, err
	}
	b, err := forceNumber(it, args[1], at, "std.mod second operand")
	if err != nil {
		return nil, err
	}
	if b == 0 {
		return nil, diag.New(diag.RuntimeError, at, "division by zero")
	}
	return interp.Number{F: math.Mod(a, b)}, nil
}
