package interp

import (
	"math"

	"github.com/fabvit86/jsonnet-go/ast"
	"github.com/fabvit86/jsonnet-go/core"
	"github.com/fabvit86/jsonnet-go/diag"
)

func (it *Interp) evalBinary(env *Env, n *core.Binary) (Value, error) {
	// && and || short-circuit; both operands must be booleans.
	if n.Op == ast.OpAnd || n.Op == ast.OpOr {
		left, err := it.evalBool(env, n.Left)
		if err != nil {
			return nil, err
		}
		if (n.Op == ast.OpAnd && !left) || (n.Op == ast.OpOr && left) {
			return Bool{left}, nil
		}
		right, err := it.evalBool(env, n.Right)
		if err != nil {
			return nil, err
		}
		return Bool{right}, nil
	}

	left, err := it.eval(env, n.Left)
	if err != nil {
		return nil, err
	}
	right, err := it.eval(env, n.Right)
	if err != nil {
		return nil, err
	}
	return it.binaryValues(n.Op, left, right, n.Span)
}

func (it *Interp) evalBool(env *Env, node core.Node) (bool, error) {
	v, err := it.eval(env, node)
	if err != nil {
		return false, err
	}
	b, ok := v.(Bool)
	if !ok {
		return false, diag.New(diag.TypeError, node.NodeSpan(), "operand of a logical operator must be a boolean, got %s", v.TypeName())
	}
	return b.B, nil
}

// binaryValues applies a non-short-circuiting binary operator to two
// forced values.
func (it *Interp) binaryValues(op string, left, right Value, at ast.Span) (Value, error) {
	switch op {
	case ast.OpAdd:
		return it.add(left, right, at)
	case ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		return it.arith(op, left, right, at)
	case ast.OpLt, ast.OpLtEq, ast.OpGt, ast.OpGtEq:
		return it.compare(op, left, right, at)
	case ast.OpEq, ast.OpNotEq:
		eq, err := it.Equals(left, right, at)
		if err != nil {
			return nil, err
		}
		if op == ast.OpNotEq {
			eq = !eq
		}
		return Bool{eq}, nil
	case ast.OpIn:
		s, ok := left.(String)
		if !ok {
			return nil, diag.New(diag.TypeError, at, "left operand of 'in' must be a string, got %s", left.TypeName())
		}
		obj, ok := right.(*Object)
		if !ok {
			return nil, diag.New(diag.TypeError, at, "right operand of 'in' must be an object, got %s", right.TypeName())
		}
		return Bool{obj.HasField(s.S)}, nil
	case ast.OpBitAnd, ast.OpBitOr, ast.OpBitXor, ast.OpShiftL, ast.OpShiftR:
		return it.bitwise(op, left, right, at)
	}
	return nil, diag.New(diag.RuntimeError, at, "internal: unknown binary operator %q", op)
}

// add implements the overloaded + operator: numeric addition, string
// concatenation (coercing the other side through manifestation), array
// concatenation, and right-biased object merge.
func (it *Interp) add(left, right Value, at ast.Span) (Value, error) {
	if ls, ok := left.(String); ok {
		rs, err := it.toString(right, at)
		if err != nil {
			return nil, err
		}
		return String{ls.S + rs}, nil
	}
	if rs, ok := right.(String); ok {
		ls, err := it.toString(left, at)
		if err != nil {
			return nil, err
		}
		return String{ls + rs.S}, nil
	}
	switch l := left.(type) {
	case Number:
		r, ok := right.(Number)
		if !ok {
			return nil, it.binOpTypeError("+", left, right, at)
		}
		return Number{l.F + r.F}, nil
	case *Array:
		r, ok := right.(*Array)
		if !ok {
			return nil, it.binOpTypeError("+", left, right, at)
		}
		elements := make([]*Thunk, 0, len(l.Elements)+len(r.Elements))
		elements = append(elements, l.Elements...)
		elements = append(elements, r.Elements...)
		return &Array{Elements: elements}, nil
	case *Object:
		r, ok := right.(*Object)
		if !ok {
			return nil, it.binOpTypeError("+", left, right, at)
		}
		return l.Merge(r), nil
	}
	return nil, it.binOpTypeError("+", left, right, at)
}

func (it *Interp) arith(op string, left, right Value, at ast.Span) (Value, error) {
	l, lok := left.(Number)
	r, rok := right.(Number)
	if !lok || !rok {
		return nil, it.binOpTypeError(op, left, right, at)
	}
	switch op {
	case ast.OpSub:
		return Number{l.F - r.F}, nil
	case ast.OpMul:
		return Number{l.F * r.F}, nil
	case ast.OpDiv:
		if r.F == 0 {
			return nil, diag.New(diag.RuntimeError, at, "division by zero")
		}
		return Number{l.F / r.F}, nil
	case ast.OpMod:
		if r.F == 0 {
			return nil, diag.New(diag.RuntimeError, at, "division by zero")
		}
		return Number{math.Mod(l.F, r.F)}, nil
	}
	return nil, it.binOpTypeError(op, left, right, at)
}

func (it *Interp) compare(op string, left, right Value, at ast.Span) (Value, error) {
	var cmp int
	switch l := left.(type) {
	case Number:
		r, ok := right.(Number)
		if !ok {
			return nil, it.binOpTypeError(op, left, right, at)
		}
		switch {
		case l.F < r.F:
			cmp = -1
		case l.F > r.F:
			cmp = 1
		}
	case String:
		r, ok := right.(String)
		if !ok {
			return nil, it.binOpTypeError(op, left, right, at)
		}
		switch {
		case l.S < r.S:
			cmp = -1
		case l.S > r.S:
			cmp = 1
		}
	default:
		return nil, it.binOpTypeError(op, left, right, at)
	}
	switch op {
	case ast.OpLt:
		return Bool{cmp < 0}, nil
	case ast.OpLtEq:
		return Bool{cmp <= 0}, nil
	case ast.OpGt:
		return Bool{cmp > 0}, nil
	default:
		return Bool{cmp >= 0}, nil
	}
}

// bitwise converts both operands to 64-bit signed integers by
// truncation, applies the operator, and re-lifts the result to double.
func (it *Interp) bitwise(op string, left, right Value, at ast.Span) (Value, error) {
	l, err := it.toInt64(left, at)
	if err != nil {
		return nil, err
	}
	r, err := it.toInt64(right, at)
	if err != nil {
		return nil, err
	}
	var out int64
	switch op {
	case ast.OpBitAnd:
		out = l & r
	case ast.OpBitOr:
		out = l | r
	case ast.OpBitXor:
		out = l ^ r
	case ast.OpShiftL, ast.OpShiftR:
		if r < 0 {
			return nil, diag.New(diag.RuntimeError, at, "shift by negative amount %d", r)
		}
		shift := uint(r) & 63
		if op == ast.OpShiftL {
			out = l << shift
		} else {
			out = l >> shift
		}
	}
	return Number{float64(out)}, nil
}

func (it *Interp) toInt64(v Value, at ast.Span) (int64, error) {
	num, ok := v.(Number)
	if !ok {
		return 0, diag.New(diag.TypeError, at, "bitwise operand must be a number, got %s", v.TypeName())
	}
	if math.IsNaN(num.F) || math.IsInf(num.F, 0) {
		return 0, diag.New(diag.RuntimeError, at, "bitwise operand is not a finite number")
	}
	return int64(num.F), nil
}

func (it *Interp) binOpTypeError(op string, left, right Value, at ast.Span) error {
	return diag.New(diag.TypeError, at, "operator %s cannot be applied to %s and %s", op, left.TypeName(), right.TypeName())
}

func (it *Interp) evalUnary(env *Env, n *core.Unary) (Value, error) {
	operand, err := it.eval(env, n.Operand)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case ast.OpUnaryMinus:
		num, ok := operand.(Number)
		if !ok {
			return nil, diag.New(diag.TypeError, n.Span, "operand of unary - must be a number, got %s", operand.TypeName())
		}
		return Number{-num.F}, nil
	case ast.OpUnaryPlus:
		num, ok := operand.(Number)
		if !ok {
			return nil, diag.New(diag.TypeError, n.Span, "operand of unary + must be a number, got %s", operand.TypeName())
		}
		return num, nil
	case ast.OpNot:
		b, ok := operand.(Bool)
		if !ok {
			return nil, diag.New(diag.TypeError, n.Span, "operand of ! must be a boolean, got %s", operand.TypeName())
		}
		return Bool{!b.B}, nil
	case ast.OpBitNot:
		i, err := it.toInt64(operand, n.Span)
		if err != nil {
			return nil, err
		}
		return Number{float64(^i)}, nil
	}
	return nil, diag.New(diag.RuntimeError, n.Span, "internal: unknown unary operator %q", n.Op)
}

// Equals implements structural equality on manifested forms: functions
// compare equal to nothing, objects compare by visible fields only.
func (it *Interp) Equals(left, right Value, at ast.Span) (bool, error) {
	switch l := left.(type) {
	case Null:
		_, ok := right.(Null)
		return ok, nil
	case Bool:
		r, ok := right.(Bool)
		return ok && l.B == r.B, nil
	case Number:
		r, ok := right.(Number)
		return ok && l.F == r.F, nil
	case String:
		r, ok := right.(String)
		return ok && l.S == r.S, nil
	case *Function:
		return false, nil
	case *Array:
		r, ok := right.(*Array)
		if !ok || len(l.Elements) != len(r.Elements) {
			return false, nil
		}
		for i := range l.Elements {
			lv, err := l.Elements[i].Force(it)
			if err != nil {
				return false, err
			}
			rv, err := r.Elements[i].Force(it)
			if err != nil {
				return false, err
			}
			eq, err := it.Equals(lv, rv, at)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	case *Object:
		r, ok := right.(*Object)
		if !ok {
			return false, nil
		}
		lNames := l.FieldNames(true)
		rNames := r.FieldNames(true)
		if len(lNames) != len(rNames) {
			return false, nil
		}
		for i, name := range lNames {
			if rNames[i] != name {
				return false, nil
			}
			lt, _ := l.Field(it, name)
			rt, _ := r.Field(it, name)
			lv, err := lt.Force(it)
			if err != nil {
				return false, err
			}
			rv, err := rt.Force(it)
			if err != nil {
				return false, err
			}
			eq, err := it.Equals(lv, rv, at)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	}
	return false, nil
}

// evalSlice implements target[lo:hi:step] on arrays and strings with
// Python-like defaulting and negative-index handling.
func (it *Interp) evalSlice(env *Env, n *core.Slice) (Value, error) {
	target, err := it.eval(env, n.Target)
	if err != nil {
		return nil, err
	}

	var length int
	var runes []rune
	arr, isArr := target.(*Array)
	if isArr {
		length = len(arr.Elements)
	} else if s, isStr := target.(String); isStr {
		runes = []rune(s.S)
		length = len(runes)
	} else {
		return nil, diag.New(diag.TypeError, n.Span, "cannot slice a %s value", target.TypeName())
	}

	step, err := it.sliceIndex(env, n.Step, 1, n.Span)
	if err != nil {
		return nil, err
	}
	if step <= 0 {
		return nil, diag.New(diag.RuntimeError, n.Span, "slice step must be positive, got %d", step)
	}
	lo, err := it.sliceIndex(env, n.Lo, 0, n.Span)
	if err != nil {
		return nil, err
	}
	hi, err := it.sliceIndex(env, n.Hi, length, n.Span)
	if err != nil {
		return nil, err
	}
	lo = clampSliceBound(lo, length)
	hi = clampSliceBound(hi, length)

	if isArr {
		var elements []*Thunk
		for i := lo; i < hi; i += step {
			elements = append(elements, arr.Elements[i])
		}
		return &Array{Elements: elements}, nil
	}
	var out []rune
	for i := lo; i < hi; i += step {
		out = append(out, runes[i])
	}
	return String{string(out)}, nil
}

func (it *Interp) sliceIndex(env *Env, node core.Node, dflt int, at ast.Span) (int, error) {
	if node == nil {
		return dflt, nil
	}
	v, err := it.eval(env, node)
	if err != nil {
		return 0, err
	}
	num, ok := v.(Number)
	if !ok {
		return 0, diag.New(diag.TypeError, node.NodeSpan(), "slice bound must be a number, got %s", v.TypeName())
	}
	i := int(num.F)
	if float64(i) != num.F {
		return 0, diag.New(diag.RuntimeError, node.NodeSpan(), "slice bound must be an integer, got %v", num.F)
	}
	return i, nil
}

// clampSliceBound resolves a possibly-negative bound against length and
// clamps it into [0, length].
func clampSliceBound(i, length int) int {
	if i < 0 {
		i += length
	}
	if i < 0 {
		return 0
	}
	if i > length {
		return length
	}
	return i
}
