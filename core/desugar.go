package core

import (
	"github.com/fabvit86/jsonnet-go/ast"
)

// Desugar lowers a surface AST into the core calculus. The pass is a
// single bottom-up traversal and never fails: everything that can go
// wrong has already been rejected by the parser.
//
// Rules applied here:
//   - a.b becomes a["b"]
//   - if without else gets an explicit null branch
//   - $ becomes the reserved variable "$", bound by the evaluator at
//     fields of root object literals
//   - object locals become a let wrapping each field body and assert
//   - methods and local function sugar were already folded by the parser
func Desugar(node ast.Expr) Node {
	d := &desugarer{}
	return d.expr(node, false)
}

type desugarer struct{}

// expr lowers one node. inObject tracks whether the node is lexically
// inside an object literal, which determines the Root flag on objects.
func (d *desugarer) expr(node ast.Expr, inObject bool) Node {
	switch n := node.(type) {
	case *ast.Null:
		return &Null{BaseNode{n.Span}}
	case *ast.Bool:
		return &Bool{BaseNode{n.Span}, n.Value}
	case *ast.Number:
		return &Num{BaseNode{n.Span}, n.Value}
	case *ast.Str:
		return &Str{BaseNode{n.Span}, n.Value}
	case *ast.Ident:
		return &Var{BaseNode{n.Span}, n.Name}
	case *ast.Self:
		return &Self{BaseNode{n.Span}}
	case *ast.Dollar:
		return &Var{BaseNode{n.Span}, "$"}
	case *ast.SuperIndex:
		return &SuperIndex{BaseNode{n.Span}, d.expr(n.Index, inObject)}
	case *ast.InSuper:
		return &InSuper{BaseNode{n.Span}, d.expr(n.Key, inObject)}
	case *ast.Array:
		elements := make([]Node, len(n.Elements))
		for i, el := range n.Elements {
			elements[i] = d.expr(el, inObject)
		}
		return &Array{BaseNode{n.Span}, elements}
	case *ast.ArrayComp:
		return &ArrayComp{
			BaseNode: BaseNode{n.Span},
			Body:     d.expr(n.Body, inObject),
			Specs:    d.specs(n.Specs, inObject),
		}
	case *ast.Object:
		return d.object(n, inObject)
	case *ast.ObjectComp:
		return d.objectComp(n, inObject)
	case *ast.Func:
		return &Function{
			BaseNode: BaseNode{n.Span},
			Params:   d.params(n.Params, inObject),
			Body:     d.expr(n.Body, inObject),
		}
	case *ast.Apply:
		positional := make([]Node, len(n.Positional))
		for i, arg := range n.Positional {
			positional[i] = d.expr(arg, inObject)
		}
		named := make([]NamedArg, len(n.Named))
		for i, arg := range n.Named {
			named[i] = NamedArg{Span: arg.Span, Name: arg.Name, Arg: d.expr(arg.Arg, inObject)}
		}
		return &Apply{
			BaseNode:   BaseNode{n.Span},
			Target:     d.expr(n.Target, inObject),
			Positional: positional,
			Named:      named,
			TailStrict: n.TailStrict,
		}
	case *ast.Lookup:
		return &Index{
			BaseNode: BaseNode{n.Span},
			Target:   d.expr(n.Target, inObject),
			Index:    &Str{BaseNode{n.Span}, n.Name},
		}
	case *ast.Index:
		return &Index{
			BaseNode: BaseNode{n.Span},
			Target:   d.expr(n.Target, inObject),
			Index:    d.expr(n.Index, inObject),
		}
	case *ast.Slice:
		return &Slice{
			BaseNode: BaseNode{n.Span},
			Target:   d.expr(n.Target, inObject),
			Lo:       d.optExpr(n.Lo, inObject),
			Hi:       d.optExpr(n.Hi, inObject),
			Step:     d.optExpr(n.Step, inObject),
		}
	case *ast.Local:
		return &Local{
			BaseNode: BaseNode{n.Span},
			Binds:    d.binds(n.Binds, inObject),
			Body:     d.expr(n.Body, inObject),
		}
	case *ast.If:
		els := d.optExpr(n.Else, inObject)
		if els == nil {
			els = &Null{BaseNode{n.Span}}
		}
		return &If{
			BaseNode: BaseNode{n.Span},
			Cond:     d.expr(n.Cond, inObject),
			Then:     d.expr(n.Then, inObject),
			Else:     els,
		}
	case *ast.Binary:
		return &Binary{
			BaseNode: BaseNode{n.Span},
			Op:       n.Op,
			Left:     d.expr(n.Left, inObject),
			Right:    d.expr(n.Right, inObject),
		}
	case *ast.Unary:
		return &Unary{
			BaseNode: BaseNode{n.Span},
			Op:       n.Op,
			Operand:  d.expr(n.Operand, inObject),
		}
	case *ast.ErrorExpr:
		return &Error{BaseNode{n.Span}, d.expr(n.Msg, inObject)}
	case *ast.Assert:
		return &AssertExpr{
			BaseNode: BaseNode{n.Span},
			Cond:     d.expr(n.Cond, inObject),
			Msg:      d.optExpr(n.Msg, inObject),
			Rest:     d.expr(n.Rest, inObject),
		}
	case *ast.Import:
		return &Import{BaseNode{n.Span}, n.Path}
	case *ast.ImportStr:
		return &ImportStr{BaseNode{n.Span}, n.Path}
	}
	// The parser produces no other node kinds.
	panic("desugar: unknown AST node")
}

func (d *desugarer) optExpr(node ast.Expr, inObject bool) Node {
	if node == nil {
		return nil
	}
	return d.expr(node, inObject)
}

func (d *desugarer) params(params []ast.Param, inObject bool) []Param {
	out := make([]Param, len(params))
	for i, param := range params {
		out[i] = Param{Name: param.Name, Default: d.optExpr(param.Default, inObject)}
	}
	return out
}

func (d *desugarer) binds(binds []ast.Bind, inObject bool) []Bind {
	out := make([]Bind, len(binds))
	for i, bind := range binds {
		out[i] = Bind{Name: bind.Name, Body: d.expr(bind.Body, inObject)}
	}
	return out
}

func (d *desugarer) specs(specs []ast.CompSpec, inObject bool) []CompSpec {
	out := make([]CompSpec, len(specs))
	for i, spec := range specs {
		if spec.For != nil {
			out[i] = CompSpec{For: &ForSpec{
				Span: spec.For.Span,
				Var:  spec.For.Var,
				Expr: d.expr(spec.For.Expr, inObject),
			}}
		} else {
			out[i] = CompSpec{If: &IfSpec{
				Span: spec.If.Span,
				Cond: d.expr(spec.If.Cond, inObject),
			}}
		}
	}
	return out
}

// object lowers an object literal: field keys are lowered outside the
// object scope (they cannot see self or the object's locals), field
// bodies and asserts are wrapped in a let carrying the object locals.
func (d *desugarer) object(n *ast.Object, inObject bool) Node {
	locals := make([]Bind, len(n.Locals))
	for i, l := range n.Locals {
		locals[i] = Bind{Name: l.Bind.Name, Body: d.expr(l.Bind.Body, true)}
	}

	fields := make([]Field, len(n.Fields))
	for i, f := range n.Fields {
		var key Node
		if f.Kind == ast.FieldExpr {
			key = d.expr(f.KeyExpr, inObject)
		} else {
			key = &Str{BaseNode{f.Span}, f.Name}
		}
		fields[i] = Field{
			Span:      f.Span,
			Key:       key,
			Hide:      f.Hide,
			PlusSuper: f.PlusSuper,
			Body:      d.wrapLocals(locals, d.expr(f.Value, true), f.Span),
		}
	}

	asserts := make([]Assert, len(n.Asserts))
	for i, a := range n.Asserts {
		asserts[i] = Assert{
			Span: a.Span,
			Cond: d.wrapLocals(locals, d.expr(a.Cond, true), a.Span),
			Msg:  d.wrapLocalsOpt(locals, d.optExpr(a.Msg, true), a.Span),
		}
	}

	return &Object{
		BaseNode: BaseNode{n.Span},
		Fields:   fields,
		Asserts:  asserts,
		Root:     !inObject,
	}
}

func (d *desugarer) objectComp(n *ast.ObjectComp, inObject bool) Node {
	locals := make([]Bind, len(n.Locals))
	for i, l := range n.Locals {
		locals[i] = Bind{Name: l.Bind.Name, Body: d.expr(l.Bind.Body, true)}
	}
	return &ObjectComp{
		BaseNode: BaseNode{n.Span},
		Key:      d.expr(n.Field.KeyExpr, inObject),
		Value:    d.wrapLocals(locals, d.expr(n.Field.Value, true), n.Field.Span),
		Hide:     n.Field.Hide,
		Specs:    d.specs(n.Specs, inObject),
		Root:     !inObject,
	}
}

func (d *desugarer) wrapLocals(locals []Bind, body Node, span ast.Span) Node {
	if len(locals) == 0 {
		return body
	}
	return &Local{BaseNode: BaseNode{span}, Binds: locals, Body: body}
}

func (d *desugarer) wrapLocalsOpt(locals []Bind, body Node, span ast.Span) Node {
	if body == nil {
		return nil
	}
	return d.wrapLocals(locals, body, span)
}
