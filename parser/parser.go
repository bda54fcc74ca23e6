// Package parser implements the Jsonnet parser: a precedence-climbing
// expression grammar over the lexer's token stream, producing the surface
// AST defined in package ast.
package parser

import (
	"github.com/fabvit86/jsonnet-go/ast"
	"github.com/fabvit86/jsonnet-go/diag"
	"github.com/fabvit86/jsonnet-go/lexer"
)

// binaryPrec maps binary operator spellings to their precedence level.
// Higher binds tighter. All binary operators are left-associative.
var binaryPrec = map[string]int{
	ast.OpMul:    12,
	ast.OpDiv:    12,
	ast.OpMod:    12,
	ast.OpAdd:    11,
	ast.OpSub:    11,
	ast.OpShiftL: 10,
	ast.OpShiftR: 10,
	ast.OpLt:     9,
	ast.OpLtEq:   9,
	ast.OpGt:     9,
	ast.OpGtEq:   9,
	ast.OpIn:     9,
	ast.OpEq:     8,
	ast.OpNotEq:  8,
	ast.OpBitAnd: 7,
	ast.OpBitXor: 6,
	ast.OpBitOr:  5,
	ast.OpAnd:    4,
	ast.OpOr:     3,
}

type parser struct {
	tokens []lexer.Token
	pos    int
}

// Parse tokenizes source and parses it into a single expression AST.
// Jsonnet programs are one expression; trailing input is an error.
func Parse(source, filename string) (ast.Expr, error) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	expr, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if p.peek() != lexer.TokEOF {
		return nil, p.errHere("expected end of file, got %s", lexer.Describe(p.current()))
	}
	return expr, nil
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.TokenType { return p.current().Type }

func (p *parser) peekAt(offset int) lexer.TokenType {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return lexer.TokEOF
	}
	return p.tokens[idx].Type
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) prevSpan() ast.Span {
	if p.pos == 0 {
		return p.current().Span
	}
	return p.tokens[p.pos-1].Span
}

func (p *parser) expect(typ lexer.TokenType, what string) (lexer.Token, error) {
	tok := p.current()
	if tok.Type != typ {
		return tok, p.errHere("expected %s, got %s", what, lexer.Describe(tok))
	}
	return p.advance(), nil
}

func (p *parser) errHere(format string, args ...any) error {
	return diag.New(diag.ParseError, p.current().Span, format, args...)
}

func (p *parser) errAt(span ast.Span, format string, args ...any) error {
	return diag.New(diag.ParseError, span, format, args...)
}

// spanFrom covers from the given start span to the end of the last
// consumed token.
func (p *parser) spanFrom(start ast.Span) ast.Span {
	return start.To(p.prevSpan())
}

func (p *parser) parseExpr(minPrec int) (ast.Expr, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.current()
		var op string
		switch {
		case tok.Type == lexer.TokOp:
			op = tok.Value
		case tok.Type == lexer.TokIn:
			op = ast.OpIn
		default:
			return lhs, nil
		}
		prec, known := binaryPrec[op]
		if !known || prec < minPrec {
			return lhs, nil
		}
		p.advance()
		// `e in super` is its own form, unless super starts a lookup
		// (e in super.f parses as e in (super.f)).
		if op == ast.OpIn && p.peek() == lexer.TokSuper &&
			p.peekAt(1) != lexer.TokDot && p.peekAt(1) != lexer.TokLBracket {
			sup := p.advance()
			lhs = &ast.InSuper{
				BaseNode: ast.BaseNode{Span: lhs.NodeSpan().To(sup.Span)},
				Key:      lhs,
			}
			continue
		}
		rhs, err := p.parseExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		lhs = &ast.Binary{
			BaseNode: ast.BaseNode{Span: lhs.NodeSpan().To(rhs.NodeSpan())},
			Op:       op,
			Left:     lhs,
			Right:    rhs,
		}
	}
}

func (p *parser) parseUnary() (ast.Expr, error) {
	tok := p.current()
	if tok.Type == lexer.TokOp {
		switch tok.Value {
		case ast.OpUnaryPlus, ast.OpUnaryMinus, ast.OpNot, ast.OpBitNot:
			p.advance()
			operand, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return &ast.Unary{
				BaseNode: ast.BaseNode{Span: tok.Span.To(operand.NodeSpan())},
				Op:       tok.Value,
				Operand:  operand,
			}, nil
		}
	}
	primary, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return p.parsePostfix(primary)
}

// parsePostfix parses any mixture of apply, index, slice, lookup, and the
// `e { ... }` object-extension sugar, all left-associative at the highest
// precedence.
func (p *parser) parsePostfix(e ast.Expr) (ast.Expr, error) {
	for {
		switch p.peek() {
		case lexer.TokLParen:
			applied, err := p.parseApply(e)
			if err != nil {
				return nil, err
			}
			e = applied
		case lexer.TokDot:
			p.advance()
			name, err := p.expect(lexer.TokIdent, "field name after '.'")
			if err != nil {
				return nil, err
			}
			e = &ast.Lookup{
				BaseNode: ast.BaseNode{Span: e.NodeSpan().To(name.Span)},
				Target:   e,
				Name:     name.Value,
			}
		case lexer.TokLBracket:
			indexed, err := p.parseIndexOrSlice(e)
			if err != nil {
				return nil, err
			}
			e = indexed
		case lexer.TokLBrace:
			obj, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			e = &ast.Binary{
				BaseNode: ast.BaseNode{Span: e.NodeSpan().To(obj.NodeSpan())},
				Op:       ast.OpAdd,
				Left:     e,
				Right:    obj,
			}
		default:
			return e, nil
		}
	}
}

func (p *parser) parseApply(target ast.Expr) (ast.Expr, error) {
	p.advance() // (
	var positional []ast.Expr
	var named []ast.NamedArg
	for p.peek() != lexer.TokRParen {
		if p.peek() == lexer.TokIdent && p.peekAt(1) == lexer.TokEquals {
			nameTok := p.advance()
			p.advance() // =
			arg, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			named = append(named, ast.NamedArg{
				Span: nameTok.Span.To(arg.NodeSpan()),
				Name: nameTok.Value,
				Arg:  arg,
			})
		} else {
			if len(named) > 0 {
				return nil, p.errHere("positional argument after named argument")
			}
			arg, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			positional = append(positional, arg)
		}
		if p.peek() != lexer.TokComma {
			break
		}
		p.advance()
	}
	if _, err := p.expect(lexer.TokRParen, "')'"); err != nil {
		return nil, err
	}
	tailStrict := false
	if p.peek() == lexer.TokTailStrict {
		p.advance()
		tailStrict = true
	}
	return &ast.Apply{
		BaseNode:   ast.BaseNode{Span: target.NodeSpan().To(p.prevSpan())},
		Target:     target,
		Positional: positional,
		Named:      named,
		TailStrict: tailStrict,
	}, nil
}

func (p *parser) parseIndexOrSlice(target ast.Expr) (ast.Expr, error) {
	p.advance() // [
	var lo, hi, step ast.Expr
	var err error
	if p.peek() != lexer.TokColon && p.peek() != lexer.TokDoubleColon {
		lo, err = p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if p.peek() == lexer.TokRBracket {
			close := p.advance()
			return &ast.Index{
				BaseNode: ast.BaseNode{Span: target.NodeSpan().To(close.Span)},
				Target:   target,
				Index:    lo,
			}, nil
		}
	}
	// The lexer reads `::` as one token: an omitted upper bound followed
	// by the step separator, as in a[::2] or a[1::2].
	hiOmitted := p.peek() == lexer.TokDoubleColon
	if !hiOmitted {
		if _, err := p.expect(lexer.TokColon, "':' or ']' in index"); err != nil {
			return nil, err
		}
	}
	if !hiOmitted && p.peek() != lexer.TokColon && p.peek() != lexer.TokRBracket {
		hi, err = p.parseExpr(0)
		if err != nil {
			return nil, err
		}
	}
	if hiOmitted || p.peek() == lexer.TokColon {
		p.advance()
		if p.peek() != lexer.TokRBracket {
			step, err = p.parseExpr(0)
			if err != nil {
				return nil, err
			}
		}
	}
	close, err := p.expect(lexer.TokRBracket, "']'")
	if err != nil {
		return nil, err
	}
	return &ast.Slice{
		BaseNode: ast.BaseNode{Span: target.NodeSpan().To(close.Span)},
		Target:   target,
		Lo:       lo,
		Hi:       hi,
		Step:     step,
	}, nil
}

func (p *parser) parsePrimary() (ast.Expr, error) {
	tok := p.current()
	switch tok.Type {
	case lexer.TokNull:
		p.advance()
		return &ast.Null{BaseNode: ast.BaseNode{Span: tok.Span}}, nil
	case lexer.TokTrue, lexer.TokFalse:
		p.advance()
		return &ast.Bool{BaseNode: ast.BaseNode{Span: tok.Span}, Value: tok.Type == lexer.TokTrue}, nil
	case lexer.TokNumber:
		p.advance()
		return &ast.Number{BaseNode: ast.BaseNode{Span: tok.Span}, Value: tok.Num, IsInt: tok.IsInt}, nil
	case lexer.TokString:
		p.advance()
		return &ast.Str{BaseNode: ast.BaseNode{Span: tok.Span}, Value: tok.Value}, nil
	case lexer.TokIdent:
		p.advance()
		return &ast.Ident{BaseNode: ast.BaseNode{Span: tok.Span}, Name: tok.Value}, nil
	case lexer.TokSelf:
		p.advance()
		return &ast.Self{BaseNode: ast.BaseNode{Span: tok.Span}}, nil
	case lexer.TokDollar:
		p.advance()
		return &ast.Dollar{BaseNode: ast.BaseNode{Span: tok.Span}}, nil
	case lexer.TokSuper:
		return p.parseSuper()
	case lexer.TokLParen:
		p.advance()
		inner, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	case lexer.TokLBracket:
		return p.parseArray()
	case lexer.TokLBrace:
		return p.parseObject()
	case lexer.TokIf:
		return p.parseIf()
	case lexer.TokFunction:
		return p.parseFunction()
	case lexer.TokLocal:
		return p.parseLocal()
	case lexer.TokImport, lexer.TokImportStr:
		return p.parseImport()
	case lexer.TokError:
		p.advance()
		msg, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		return &ast.ErrorExpr{BaseNode: ast.BaseNode{Span: tok.Span.To(msg.NodeSpan())}, Msg: msg}, nil
	case lexer.TokAssert:
		return p.parseAssert()
	}
	return nil, p.errHere("expected expression, got %s", lexer.Describe(tok))
}

func (p *parser) parseSuper() (ast.Expr, error) {
	sup := p.advance()
	switch p.peek() {
	case lexer.TokDot:
		p.advance()
		name, err := p.expect(lexer.TokIdent, "field name after 'super.'")
		if err != nil {
			return nil, err
		}
		return &ast.SuperIndex{
			BaseNode: ast.BaseNode{Span: sup.Span.To(name.Span)},
			Index:    &ast.Str{BaseNode: ast.BaseNode{Span: name.Span}, Value: name.Value},
		}, nil
	case lexer.TokLBracket:
		p.advance()
		idx, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		close, err := p.expect(lexer.TokRBracket, "']'")
		if err != nil {
			return nil, err
		}
		return &ast.SuperIndex{
			BaseNode: ast.BaseNode{Span: sup.Span.To(close.Span)},
			Index:    idx,
		}, nil
	}
	return nil, p.errHere("'super' must be followed by '.' or '['")
}

func (p *parser) parseArray() (ast.Expr, error) {
	open := p.advance() // [
	if p.peek() == lexer.TokRBracket {
		close := p.advance()
		return &ast.Array{BaseNode: ast.BaseNode{Span: open.Span.To(close.Span)}}, nil
	}
	first, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if p.peek() == lexer.TokFor {
		specs, err := p.parseCompSpecs()
		if err != nil {
			return nil, err
		}
		close, err := p.expect(lexer.TokRBracket, "']'")
		if err != nil {
			return nil, err
		}
		return &ast.ArrayComp{
			BaseNode: ast.BaseNode{Span: open.Span.To(close.Span)},
			Body:     first,
			Specs:    specs,
		}, nil
	}
	elements := []ast.Expr{first}
	for p.peek() == lexer.TokComma {
		p.advance()
		if p.peek() == lexer.TokRBracket {
			break
		}
		el, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		elements = append(elements, el)
	}
	close, err := p.expect(lexer.TokRBracket, "']'")
	if err != nil {
		return nil, err
	}
	return &ast.Array{
		BaseNode: ast.BaseNode{Span: open.Span.To(close.Span)},
		Elements: elements,
	}, nil
}

// parseCompSpecs parses `for x in e` followed by any mixture of further
// for/if clauses. The caller has already seen the leading TokFor.
func (p *parser) parseCompSpecs() ([]ast.CompSpec, error) {
	var specs []ast.CompSpec
	for {
		switch p.peek() {
		case lexer.TokFor:
			start := p.advance()
			name, err := p.expect(lexer.TokIdent, "loop variable after 'for'")
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.TokIn, "'in'"); err != nil {
				return nil, err
			}
			coll, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			specs = append(specs, ast.CompSpec{For: &ast.ForSpec{
				Span: start.Span.To(coll.NodeSpan()),
				Var:  name.Value,
				Expr: coll,
			}})
		case lexer.TokIf:
			start := p.advance()
			cond, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			specs = append(specs, ast.CompSpec{If: &ast.IfSpec{
				Span: start.Span.To(cond.NodeSpan()),
				Cond: cond,
			}})
		default:
			return specs, nil
		}
	}
}

func (p *parser) parseIf() (ast.Expr, error) {
	start := p.advance() // if
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokThen, "'then'"); err != nil {
		return nil, err
	}
	then, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	var els ast.Expr
	if p.peek() == lexer.TokElse {
		p.advance()
		els, err = p.parseExpr(0)
		if err != nil {
			return nil, err
		}
	}
	return &ast.If{
		BaseNode: ast.BaseNode{Span: p.spanFrom(start.Span)},
		Cond:     cond,
		Then:     then,
		Else:     els,
	}, nil
}

func (p *parser) parseParams() ([]ast.Param, error) {
	if _, err := p.expect(lexer.TokLParen, "'('"); err != nil {
		return nil, err
	}
	var params []ast.Param
	seen := map[string]bool{}
	for p.peek() != lexer.TokRParen {
		name, err := p.expect(lexer.TokIdent, "parameter name")
		if err != nil {
			return nil, err
		}
		if seen[name.Value] {
			return nil, p.errAt(name.Span, "duplicate parameter %q", name.Value)
		}
		seen[name.Value] = true
		param := ast.Param{Span: name.Span, Name: name.Value}
		if p.peek() == lexer.TokEquals {
			p.advance()
			def, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			param.Default = def
			param.Span = name.Span.To(def.NodeSpan())
		}
		params = append(params, param)
		if p.peek() != lexer.TokComma {
			break
		}
		p.advance()
	}
	if _, err := p.expect(lexer.TokRParen, "')'"); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *parser) parseFunction() (ast.Expr, error) {
	start := p.advance() // function
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	body, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	return &ast.Func{
		BaseNode: ast.BaseNode{Span: start.Span.To(body.NodeSpan())},
		Params:   params,
		Body:     body,
	}, nil
}

// parseBind parses one local binding, folding function sugar
// (f(params) = body) into a Func value.
func (p *parser) parseBind() (ast.Bind, error) {
	name, err := p.expect(lexer.TokIdent, "binding name")
	if err != nil {
		return ast.Bind{}, err
	}
	var params []ast.Param
	isFunc := false
	if p.peek() == lexer.TokLParen {
		isFunc = true
		params, err = p.parseParams()
		if err != nil {
			return ast.Bind{}, err
		}
	}
	if _, err := p.expect(lexer.TokEquals, "'='"); err != nil {
		return ast.Bind{}, err
	}
	body, err := p.parseExpr(0)
	if err != nil {
		return ast.Bind{}, err
	}
	if isFunc {
		body = &ast.Func{
			BaseNode: ast.BaseNode{Span: name.Span.To(body.NodeSpan())},
			Params:   params,
			Body:     body,
		}
	}
	return ast.Bind{
		Span: name.Span.To(body.NodeSpan()),
		Name: name.Value,
		Body: body,
	}, nil
}

func (p *parser) parseLocal() (ast.Expr, error) {
	start := p.advance() // local
	var binds []ast.Bind
	for {
		bind, err := p.parseBind()
		if err != nil {
			return nil, err
		}
		binds = append(binds, bind)
		if p.peek() != lexer.TokComma {
			break
		}
		p.advance()
	}
	if _, err := p.expect(lexer.TokSemicolon, "';' after local bindings"); err != nil {
		return nil, err
	}
	body, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	return &ast.Local{
		BaseNode: ast.BaseNode{Span: start.Span.To(body.NodeSpan())},
		Binds:    binds,
		Body:     body,
	}, nil
}

func (p *parser) parseImport() (ast.Expr, error) {
	kw := p.advance()
	path, err := p.expect(lexer.TokString, "import path string")
	if err != nil {
		return nil, err
	}
	span := kw.Span.To(path.Span)
	if kw.Type == lexer.TokImportStr {
		return &ast.ImportStr{BaseNode: ast.BaseNode{Span: span}, Path: path.Value}, nil
	}
	return &ast.Import{BaseNode: ast.BaseNode{Span: span}, Path: path.Value}, nil
}

func (p *parser) parseAssert() (ast.Expr, error) {
	start := p.advance() // assert
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	var msg ast.Expr
	if p.peek() == lexer.TokColon {
		p.advance()
		msg, err = p.parseExpr(0)
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.TokSemicolon, "';' after assert"); err != nil {
		return nil, err
	}
	rest, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	return &ast.Assert{
		BaseNode: ast.BaseNode{Span: start.Span.To(rest.NodeSpan())},
		Cond:     cond,
		Msg:      msg,
		Rest:     rest,
	}, nil
}
