package parser

import (
	"github.com/fabvit86/jsonnet-go/ast"
	"github.com/fabvit86/jsonnet-go/lexer"
)

// parseObject parses { ... }: either an object literal or, when a for
// clause follows the entries, an object comprehension.
func (p *parser) parseObject() (ast.Expr, error) {
	open := p.advance() // {
	var fields []ast.Field
	var locals []ast.ObjectLocal
	var asserts []ast.ObjectAssert
	literalKeys := map[string]ast.Span{}

	for p.peek() != lexer.TokRBrace && p.peek() != lexer.TokFor {
		switch p.peek() {
		case lexer.TokLocal:
			start := p.advance()
			bind, err := p.parseBind()
			if err != nil {
				return nil, err
			}
			locals = append(locals, ast.ObjectLocal{Span: start.Span.To(bind.Span), Bind: bind})
		case lexer.TokAssert:
			start := p.advance()
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
			asserts = append(asserts, ast.ObjectAssert{
				Span: p.spanFrom(start.Span),
				Cond: cond,
				Msg:  msg,
			})
		default:
			field, err := p.parseField()
			if err != nil {
				return nil, err
			}
			if field.Kind != ast.FieldExpr {
				if prev, dup := literalKeys[field.Name]; dup {
					return nil, p.errAt(field.Span, "duplicate field %q (first defined at %s)", field.Name, prev)
				}
				literalKeys[field.Name] = field.Span
			}
			fields = append(fields, field)
		}
		if p.peek() != lexer.TokComma {
			break
		}
		p.advance()
	}

	if p.peek() == lexer.TokFor {
		return p.parseObjectComp(open, fields, locals, asserts)
	}
	close, err := p.expect(lexer.TokRBrace, "'}'")
	if err != nil {
		return nil, err
	}
	return &ast.Object{
		BaseNode: ast.BaseNode{Span: open.Span.To(close.Span)},
		Fields:   fields,
		Locals:   locals,
		Asserts:  asserts,
	}, nil
}

// parseField parses one field entry: a plain field, a hidden or
// force-visible field, a method, or the k+: override sugar.
func (p *parser) parseField() (ast.Field, error) {
	tok := p.current()
	field := ast.Field{Span: tok.Span}
	switch tok.Type {
	case lexer.TokIdent:
		p.advance()
		field.Kind = ast.FieldIdent
		field.Name = tok.Value
	case lexer.TokString:
		p.advance()
		field.Kind = ast.FieldStr
		field.Name = tok.Value
	case lexer.TokLBracket:
		p.advance()
		key, err := p.parseExpr(0)
		if err != nil {
			return ast.Field{}, err
		}
		if _, err := p.expect(lexer.TokRBracket, "']'"); err != nil {
			return ast.Field{}, err
		}
		field.Kind = ast.FieldExpr
		field.KeyExpr = key
	default:
		return ast.Field{}, p.errHere("expected field name, got %s", lexer.Describe(tok))
	}

	if p.peek() == lexer.TokLParen {
		params, err := p.parseParams()
		if err != nil {
			return ast.Field{}, err
		}
		field.IsMethod = true
		field.Params = params
	}

	if p.peek() == lexer.TokOp && p.current().Value == ast.OpAdd {
		if field.IsMethod {
			return ast.Field{}, p.errHere("'+' cannot be used on a method field")
		}
		p.advance()
		field.PlusSuper = true
	}

	switch p.peek() {
	case lexer.TokColon:
		field.Hide = ast.VisibleDefault
	case lexer.TokDoubleColon:
		field.Hide = ast.HiddenField
	case lexer.TokTripleColon:
		field.Hide = ast.VisibleForced
	default:
		return ast.Field{}, p.errHere("expected ':', '::' or ':::', got %s", lexer.Describe(p.current()))
	}
	p.advance()

	value, err := p.parseExpr(0)
	if err != nil {
		return ast.Field{}, err
	}
	if field.IsMethod {
		value = &ast.Func{
			BaseNode: ast.BaseNode{Span: field.Span.To(value.NodeSpan())},
			Params:   field.Params,
			Body:     value,
		}
	}
	field.Value = value
	field.Span = field.Span.To(value.NodeSpan())
	return field, nil
}

// parseObjectComp finishes an object comprehension after its entries have
// been parsed. Exactly one computed-key field is allowed; object locals
// scope over the value (not the key), asserts are not allowed.
func (p *parser) parseObjectComp(open lexer.Token, fields []ast.Field, locals []ast.ObjectLocal, asserts []ast.ObjectAssert) (ast.Expr, error) {
	if len(asserts) > 0 {
		return nil, p.errAt(asserts[0].Span, "object comprehension cannot have asserts")
	}
	if len(fields) != 1 || fields[0].Kind != ast.FieldExpr {
		return nil, p.errAt(open.Span, "object comprehension must have a single [computed] field")
	}
	if fields[0].PlusSuper {
		return nil, p.errAt(fields[0].Span, "object comprehension field cannot use '+'")
	}
	specs, err := p.parseCompSpecs()
	if err != nil {
		return nil, err
	}
	close, err := p.expect(lexer.TokRBrace, "'}'")
	if err != nil {
		return nil, err
	}
	return &ast.ObjectComp{
		BaseNode: ast.BaseNode{Span: open.Span.To(close.Span)},
		Field:    fields[0],
		Locals:   locals,
		Specs:    specs,
	}, nil
}
