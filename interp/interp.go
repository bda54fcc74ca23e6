package interp

import (
	"path/filepath"

	"github.com/fabvit86/jsonnet-go/ast"
	"github.com/fabvit86/jsonnet-go/core"
	"github.com/fabvit86/jsonnet-go/diag"
	"github.com/fabvit86/jsonnet-go/parser"
)

// Interp is a single-threaded, synchronous evaluator. Given the same
// inputs and import hook two runs produce identical results; evaluation
// order is observable only through which error fires first.
type Interp struct {
	loader      *parser.Loader
	importCache map[string]*Thunk // canonical path → top-level value thunk
	extVars     map[string]string
	rootEnv     *Env

	// Interrupted, when set, is polled between reductions so a host can
	// cancel a long evaluation.
	Interrupted func() bool
}

func (it *Interp) frame(err error, span ast.Span, note string) error {
	if de, ok := err.(*diag.Error); ok {
		return de.WithFrame(span, note)
	}
	return err
}

// eval reduces a core node under env to a weak head value: the tag is
// known, but array elements and object fields remain thunks.
func (it *Interp) eval(env *Env, node core.Node) (Value, error) {
	if it.Interrupted != nil && it.Interrupted() {
		return nil, diag.New(diag.RuntimeError, node.NodeSpan(), "evaluation interrupted")
	}

	switch n := node.(type) {
	case *core.Null:
		return Null{}, nil
	case *core.Bool:
		return Bool{n.Value}, nil
	case *core.Num:
		return Number{n.Value}, nil
	case *core.Str:
		return String{n.Value}, nil

	case *core.Var:
		t, ok := env.Lookup(n.Name)
		if !ok {
			if n.Name == "$" {
				return nil, diag.New(diag.RuntimeError, n.Span, "$ used outside of an object")
			}
			return nil, diag.New(diag.RuntimeError, n.Span, "unknown variable %q", n.Name)
		}
		return t.Force(it)

	case *core.Self:
		self, _, ok := env.Object()
		if !ok {
			return nil, diag.New(diag.RuntimeError, n.Span, "self used outside of an object")
		}
		return self, nil

	case *core.SuperIndex:
		return it.evalSuperIndex(env, n)

	case *core.InSuper:
		self, layerIdx, ok := env.Object()
		if !ok {
			return nil, diag.New(diag.RuntimeError, n.Span, "super used outside of an object")
		}
		key, err := it.eval(env, n.Key)
		if err != nil {
			return nil, err
		}
		s, ok := key.(String)
		if !ok {
			return nil, diag.New(diag.TypeError, n.Span, "field name must be a string, got %s", key.TypeName())
		}
		return Bool{self.hasFieldBelow(s.S, layerIdx)}, nil

	case *core.Local:
		return it.eval(it.bindLocal(env, n.Binds), n.Body)

	case *core.If:
		cond, err := it.eval(env, n.Cond)
		if err != nil {
			return nil, err
		}
		b, ok := cond.(Bool)
		if !ok {
			return nil, diag.New(diag.TypeError, n.Cond.NodeSpan(), "if condition must be a boolean, got %s", cond.TypeName())
		}
		if b.B {
			return it.eval(env, n.Then)
		}
		return it.eval(env, n.Else)

	case *core.Function:
		return &Function{Params: n.Params, Body: n.Body, Env: env}, nil

	case *core.Apply:
		return it.evalApply(env, n)

	case *core.Array:
		elements := make([]*Thunk, len(n.Elements))
		for i, el := range n.Elements {
			elements[i] = NewThunk(env, el)
		}
		return &Array{Elements: elements}, nil

	case *core.ArrayComp:
		var elements []*Thunk
		err := it.forComp(env, n.Specs, func(iterEnv *Env) error {
			elements = append(elements, NewThunk(iterEnv, n.Body))
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &Array{Elements: elements}, nil

	case *core.Object:
		return it.evalObject(env, n)

	case *core.ObjectComp:
		return it.evalObjectComp(env, n)

	case *core.Index:
		return it.evalIndex(env, n)

	case *core.Slice:
		return it.evalSlice(env, n)

	case *core.Binary:
		return it.evalBinary(env, n)

	case *core.Unary:
		return it.evalUnary(env, n)

	case *core.Error:
		msg, err := it.eval(env, n.Msg)
		if err != nil {
			return nil, err
		}
		text, err := it.toString(msg, n.Span)
		if err != nil {
			return nil, err
		}
		return nil, diag.New(diag.RuntimeError, n.Span, "%s", text)

	case *core.AssertExpr:
		cond, err := it.eval(env, n.Cond)
		if err != nil {
			return nil, err
		}
		b, ok := cond.(Bool)
		if !ok {
			return nil, diag.New(diag.TypeError, n.Cond.NodeSpan(), "assert condition must be a boolean, got %s", cond.TypeName())
		}
		if !b.B {
			msg := "assertion failed"
			if n.Msg != nil {
				msgVal, err := it.eval(env, n.Msg)
				if err != nil {
					return nil, err
				}
				msg, err = it.toString(msgVal, n.Span)
				if err != nil {
					return nil, err
				}
			}
			return nil, diag.New(diag.RuntimeError, n.Span, "%s", msg)
		}
		return it.eval(env, n.Rest)

	case *core.Import:
		return it.evalImport(n)

	case *core.ImportStr:
		contents, _, err := it.loader.LoadString(filepath.Dir(n.Span.File), n.Path, n.Span)
		if err != nil {
			return nil, err
		}
		return String{contents}, nil
	}
	return nil, diag.New(diag.RuntimeError, node.NodeSpan(), "internal: unknown core node %T", node)
}

// bindLocal extends env with a recursive binding group: every binding's
// thunk closes over the extended environment, so the group's names are
// in scope in all right-hand sides.
func (it *Interp) bindLocal(env *Env, binds []core.Bind) *Env {
	bindings := map[string]*Thunk{}
	extended := env.Extend(bindings)
	for _, bind := range binds {
		bindings[bind.Name] = NewThunk(extended, bind.Body)
	}
	return extended
}

func (it *Interp) evalSuperIndex(env *Env, n *core.SuperIndex) (Value, error) {
	self, layerIdx, ok := env.Object()
	if !ok {
		return nil, diag.New(diag.RuntimeError, n.Span, "super used outside of an object")
	}
	if layerIdx == 0 {
		return nil, diag.New(diag.RuntimeError, n.Span, "attempt to use super when there is no super object")
	}
	key, err := it.eval(env, n.Index)
	if err != nil {
		return nil, err
	}
	s, ok := key.(String)
	if !ok {
		return nil, diag.New(diag.TypeError, n.Span, "field name must be a string, got %s", key.TypeName())
	}
	t, ok := self.fieldFrom(it, s.S, layerIdx-1)
	if !ok {
		return nil, diag.New(diag.RuntimeError, n.Span, "field %q does not exist in super", s.S)
	}
	v, err := t.Force(it)
	if err != nil {
		return nil, it.frame(err, n.Span, "field <"+s.S+">")
	}
	return v, nil
}

// evalApply implements function application: positional arguments bind
// first, then named ones; remaining parameters take their defaults,
// which evaluate in the function's environment extended with the call's
// bindings (so defaults may reference other parameters).
func (it *Interp) evalApply(env *Env, n *core.Apply) (Value, error) {
	target, err := it.eval(env, n.Target)
	if err != nil {
		return nil, err
	}
	fn, ok := target.(*Function)
	if !ok {
		return nil, diag.New(diag.TypeError, n.Target.NodeSpan(), "cannot call a %s value", target.TypeName())
	}

	if len(n.Positional) > len(fn.Params) {
		return nil, diag.New(diag.RuntimeError, n.Span, "function expects at most %d arguments, got %d", len(fn.Params), len(n.Positional))
	}
	bound := map[string]*Thunk{}
	for i, arg := range n.Positional {
		bound[fn.Params[i].Name] = NewThunk(env, arg)
	}
	for _, named := range n.Named {
		param := -1
		for i, p := range fn.Params {
			if p.Name == named.Name {
				param = i
				break
			}
		}
		if param < 0 {
			return nil, diag.New(diag.RuntimeError, named.Span, "function has no parameter %q", named.Name)
		}
		if _, dup := bound[named.Name]; dup {
			return nil, diag.New(diag.RuntimeError, named.Span, "argument %q bound twice", named.Name)
		}
		bound[named.Name] = NewThunk(env, named.Arg)
	}

	callEnv := fn.Env
	if callEnv == nil {
		callEnv = it.rootEnv
	}
	callEnv = callEnv.Extend(bound)
	for _, p := range fn.Params {
		if _, ok := bound[p.Name]; ok {
			continue
		}
		if p.Default == nil {
			return nil, diag.New(diag.RuntimeError, n.Span, "missing argument %q", p.Name)
		}
		bound[p.Name] = NewThunk(callEnv, p.Default)
	}

	if n.TailStrict {
		for _, p := range fn.Params {
			if _, err := bound[p.Name].Force(it); err != nil {
				return nil, it.frame(err, n.Span, "function call")
			}
		}
	}

	var result Value
	if fn.Native != nil {
		args := make([]*Thunk, len(fn.Params))
		for i, p := range fn.Params {
			args[i] = bound[p.Name]
		}
		result, err = fn.Native.Fn(it, n.Span, args)
	} else {
		result, err = it.eval(callEnv, fn.Body)
	}
	if err != nil {
		return nil, it.frame(err, n.Span, "function call")
	}
	return result, nil
}

// forComp runs the nested for/if clauses of a comprehension, calling
// yield once per iteration with the environment extended by the loop
// variables. Iteration order is depth-first, left to right.
func (it *Interp) forComp(env *Env, specs []core.CompSpec, yield func(*Env) error) error {
	if len(specs) == 0 {
		return yield(env)
	}
	spec := specs[0]
	if spec.If != nil {
		cond, err := it.eval(env, spec.If.Cond)
		if err != nil {
			return err
		}
		b, ok := cond.(Bool)
		if !ok {
			return diag.New(diag.TypeError, spec.If.Span, "comprehension condition must be a boolean, got %s", cond.TypeName())
		}
		if !b.B {
			return nil
		}
		return it.forComp(env, specs[1:], yield)
	}

	coll, err := it.eval(env, spec.For.Expr)
	if err != nil {
		return err
	}
	arr, ok := coll.(*Array)
	if !ok {
		return diag.New(diag.TypeError, spec.For.Span, "comprehension must iterate over an array, got %s", coll.TypeName())
	}
	for _, element := range arr.Elements {
		iterEnv := env.Extend(map[string]*Thunk{spec.For.Var: element})
		if err := it.forComp(iterEnv, specs[1:], yield); err != nil {
			return err
		}
	}
	return nil
}

// evalObject constructs a single mixin layer. Field keys are evaluated
// strictly (presence is decided at construction); bodies stay suspended.
// A null computed key drops the field.
func (it *Interp) evalObject(env *Env, n *core.Object) (Value, error) {
	fields := map[string]layerField{}
	for _, f := range n.Fields {
		key, err := it.eval(env, f.Key)
		if err != nil {
			return nil, err
		}
		name, drop, err := it.fieldName(key, f.Span)
		if err != nil {
			return nil, err
		}
		if drop {
			continue
		}
		if _, dup := fields[name]; dup {
			return nil, diag.New(diag.RuntimeError, f.Span, "duplicate field %q", name)
		}
		fields[name] = layerField{
			Hide:      f.Hide,
			PlusSuper: f.PlusSuper,
			Body:      f.Body,
			Env:       env,
			Span:      f.Span,
		}
	}
	asserts := make([]layerAssert, len(n.Asserts))
	for i, a := range n.Asserts {
		asserts[i] = layerAssert{Cond: a.Cond, Msg: a.Msg, Env: env, Span: a.Span}
	}
	layer := &objectLayer{fields: fields, asserts: asserts, root: n.Root}
	return newObject([]*objectLayer{layer}), nil
}

func (it *Interp) evalObjectComp(env *Env, n *core.ObjectComp) (Value, error) {
	fields := map[string]layerField{}
	err := it.forComp(env, n.Specs, func(iterEnv *Env) error {
		key, err := it.eval(iterEnv, n.Key)
		if err != nil {
			return err
		}
		name, drop, err := it.fieldName(key, n.Span)
		if err != nil {
			return err
		}
		if drop {
			return nil
		}
		if _, dup := fields[name]; dup {
			return diag.New(diag.RuntimeError, n.Span, "duplicate field %q in object comprehension", name)
		}
		fields[name] = layerField{
			Hide: n.Hide,
			Body: n.Value,
			Env:  iterEnv,
			Span: n.Span,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	layer := &objectLayer{fields: fields, root: n.Root}
	return newObject([]*objectLayer{layer}), nil
}

func (it *Interp) fieldName(key Value, at ast.Span) (name string, drop bool, err error) {
	switch k := key.(type) {
	case String:
		return k.S, false, nil
	case Null:
		return "", true, nil
	}
	return "", false, diag.New(diag.TypeError, at, "field name must be a string, got %s", key.TypeName())
}

func (it *Interp) evalIndex(env *Env, n *core.Index) (Value, error) {
	target, err := it.eval(env, n.Target)
	if err != nil {
		return nil, err
	}
	index, err := it.eval(env, n.Index)
	if err != nil {
		return nil, err
	}

	switch t := target.(type) {
	case *Object:
		s, ok := index.(String)
		if !ok {
			return nil, diag.New(diag.TypeError, n.Index.NodeSpan(), "object index must be a string, got %s", index.TypeName())
		}
		thunk, ok := t.Field(it, s.S)
		if !ok {
			return nil, diag.New(diag.RuntimeError, n.Span, "field %q does not exist", s.S)
		}
		v, err := thunk.Force(it)
		if err != nil {
			return nil, it.frame(err, n.Span, "field <"+s.S+">")
		}
		return v, nil

	case *Array:
		i, err := it.indexNumber(index, n.Index.NodeSpan(), len(t.Elements), "array")
		if err != nil {
			return nil, err
		}
		return t.Elements[i].Force(it)

	case String:
		runes := []rune(t.S)
		i, err := it.indexNumber(index, n.Index.NodeSpan(), len(runes), "string")
		if err != nil {
			return nil, err
		}
		return String{string(runes[i])}, nil
	}
	return nil, diag.New(diag.TypeError, n.Span, "cannot index a %s value", target.TypeName())
}

func (it *Interp) indexNumber(index Value, at ast.Span, length int, what string) (int, error) {
	num, ok := index.(Number)
	if !ok {
		return 0, diag.New(diag.TypeError, at, "%s index must be a number, got %s", what, index.TypeName())
	}
	i := int(num.F)
	if float64(i) != num.F {
		return 0, diag.New(diag.RuntimeError, at, "%s index must be an integer, got %v", what, num.F)
	}
	if i < 0 || i >= length {
		return 0, diag.New(diag.RuntimeError, at, "%s index %d out of bounds [0, %d)", what, i, length)
	}
	return i, nil
}

func (it *Interp) evalImport(n *core.Import) (Value, error) {
	callerDir := filepath.Dir(n.Span.File)
	node, canonical, err := it.loader.Load(callerDir, n.Path, n.Span)
	if err != nil {
		return nil, err
	}
	thunk, ok := it.importCache[canonical]
	if !ok {
		thunk = NewThunk(it.rootEnv, core.Desugar(node))
		it.importCache[canonical] = thunk
	}
	v, err := thunk.Force(it)
	if err != nil {
		return nil, it.frame(err, n.Span, "import <"+n.Path+">")
	}
	return v, nil
}
