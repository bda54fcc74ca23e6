// Package interp implements the call-by-need Jsonnet evaluator: runtime
// values, thunks, the object/mixin model, the core-calculus walker, and
// the manifester.
package interp

import (
	"github.com/fabvit86/jsonnet-go/ast"
	"github.com/fabvit86/jsonnet-go/core"
	"github.com/fabvit86/jsonnet-go/diag"
)

// Value is the interface for all runtime values.
// The sealed marker restricts implementations to this package.
type Value interface {
	value()
	// TypeName is the Jsonnet type name as reported by std.type.
	TypeName() string
}

// Null represents the null value.
type Null struct{}

func (Null) value()           {}
func (Null) TypeName() string { return "null" }

// Bool represents a boolean value.
type Bool struct {
	B bool
}

func (Bool) value()           {}
func (Bool) TypeName() string { return "boolean" }

// Number represents a numeric value. Jsonnet numbers are IEEE-754
// doubles; integers are a parsing distinction only.
type Number struct {
	F float64
}

func (Number) value()           {}
func (Number) TypeName() string { return "number" }

// String represents a string value.
type String struct {
	S string
}

func (String) value()           {}
func (String) TypeName() string { return "string" }

// Array represents an array. Elements are thunks: they evaluate on
// first use, never at construction.
type Array struct {
	Elements []*Thunk
}

func (*Array) value()           {}
func (*Array) TypeName() string { return "array" }

// NativeFunc is a builtin implemented in Go, exposed through the std
// object. Args arrive as thunks in parameter order. Defaults, when set,
// maps parameter names to default expressions (typically null literals
// the implementation treats as "absent").
type NativeFunc struct {
	Name     string
	Params   []string
	Defaults map[string]core.Node
	Fn       func(it *Interp, at ast.Span, args []*Thunk) (Value, error)
}

// Function represents a closure: either a core-calculus function body
// with its captured environment, or a native builtin.
type Function struct {
	Params []core.Param
	Body   core.Node
	Env    *Env
	Native *NativeFunc
}

func (*Function) value()           {}
func (*Function) TypeName() string { return "function" }

type thunkState int

const (
	thunkDelayed thunkState = iota
	thunkForcing
	thunkDone
	thunkFailed
)

// Thunk is a suspended computation that memoizes its first outcome,
// value or error. Forcing a thunk that is already being forced is a
// dependency cycle and fails with InfiniteLoop.
type Thunk struct {
	state thunkState
	env   *Env
	expr  core.Node
	fn    func(it *Interp) (Value, error)
	span  ast.Span
	value Value
	err   error
}

// NewThunk suspends the evaluation of expr under env.
func NewThunk(env *Env, expr core.Node) *Thunk {
	return &Thunk{env: env, expr: expr, span: expr.NodeSpan()}
}

// NewValueThunk wraps an already-computed value.
func NewValueThunk(v Value) *Thunk {
	return &Thunk{state: thunkDone, value: v}
}

// NewCallThunk suspends an arbitrary computation; used for object field
// factories and builtin plumbing.
func NewCallThunk(span ast.Span, fn func(it *Interp) (Value, error)) *Thunk {
	return &Thunk{fn: fn, span: span}
}

// Force evaluates the thunk if needed and returns the memoized outcome.
func (t *Thunk) Force(it *Interp) (Value, error) {
	switch t.state {
	case thunkDone:
		return t.value, nil
	case thunkFailed:
		return nil, t.err
	case thunkForcing:
		return nil, diag.New(diag.InfiniteLoop, t.span, "recursive value dependency")
	}
	t.state = thunkForcing
	var v Value
	var err error
	if t.fn != nil {
		v, err = t.fn(it)
	} else {
		v, err = it.eval(t.env, t.expr)
	}
	if err != nil {
		t.state = thunkFailed
		t.err = err
		return nil, err
	}
	t.state = thunkDone
	t.value = v
	t.env = nil
	t.expr = nil
	t.fn = nil
	return v, nil
}

// Env is a lexical environment: an immutable chain of binding frames
// from names to thunks, plus the object context (self and the layer
// index of the field being evaluated) when inside an object.
type Env struct {
	parent   *Env
	bindings map[string]*Thunk
	self     *Object
	layerIdx int
	hasSelf  bool
}

// NewEnv creates a root environment with the given bindings.
func NewEnv(bindings map[string]*Thunk) *Env {
	return &Env{bindings: bindings}
}

// Extend returns a child environment with additional bindings. The
// object context is inherited.
func (e *Env) Extend(bindings map[string]*Thunk) *Env {
	return &Env{
		parent:   e,
		bindings: bindings,
		self:     e.self,
		layerIdx: e.layerIdx,
		hasSelf:  e.hasSelf,
	}
}

// WithObject returns a child environment whose self/super context is the
// given object and layer index.
func (e *Env) WithObject(self *Object, layerIdx int) *Env {
	return &Env{
		parent:   e,
		bindings: map[string]*Thunk{},
		self:     self,
		layerIdx: layerIdx,
		hasSelf:  true,
	}
}

// Lookup finds a variable, traversing parent frames.
func (e *Env) Lookup(name string) (*Thunk, bool) {
	for env := e; env != nil; env = env.parent {
		if t, ok := env.bindings[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// Object context returns the current self object and the layer index of
// the field under evaluation; ok is false outside any object.
func (e *Env) Object() (self *Object, layerIdx int, ok bool) {
	return e.self, e.layerIdx, e.hasSelf
}
