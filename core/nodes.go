// Package core defines the core calculus the evaluator walks: a reduced
// node set with surface sugar (field lookup, method sugar, default else
// branches, object locals, $) already eliminated by Desugar.
package core

import "github.com/fabvit86/jsonnet-go/ast"

// Node is the interface for all core calculus nodes.
type Node interface {
	coreNode()
	NodeSpan() ast.Span
}

// BaseNode provides the span field shared by all core nodes.
type BaseNode struct {
	Span ast.Span
}

func (b BaseNode) NodeSpan() ast.Span { return b.Span }

// Null is the null literal.
type Null struct{ BaseNode }

func (*Null) coreNode() {}

// Bool is a boolean literal.
type Bool struct {
	BaseNode
	Value bool
}

func (*Bool) coreNode() {}

// Num is a numeric literal (IEEE-754 double).
type Num struct {
	BaseNode
	Value float64
}

func (*Num) coreNode() {}

// Str is a string literal.
type Str struct {
	BaseNode
	Value string
}

func (*Str) coreNode() {}

// Var is a variable reference, resolved lexically in the environment.
// The desugarer rewrites $ into the reserved name "$".
type Var struct {
	BaseNode
	Name string
}

func (*Var) coreNode() {}

// Self is the self keyword: the outermost object of the merge chain.
type Self struct{ BaseNode }

func (*Self) coreNode() {}

// SuperIndex is super[e]: field lookup starting below the current layer.
type SuperIndex struct {
	BaseNode
	Index Node
}

func (*SuperIndex) coreNode() {}

// InSuper is e in super.
type InSuper struct {
	BaseNode
	Key Node
}

func (*InSuper) coreNode() {}

// Param is a function parameter with an optional default body.
type Param struct {
	Name    string
	Default Node // nil when required
}

// Function is a function literal; applying it closes over the defining
// environment.
type Function struct {
	BaseNode
	Params []Param
	Body   Node
}

func (*Function) coreNode() {}

// NamedArg is a name=value argument at a call site.
type NamedArg struct {
	Span ast.Span
	Name string
	Arg  Node
}

// Apply is a function application.
type Apply struct {
	BaseNode
	Target     Node
	Positional []Node
	Named      []NamedArg
	TailStrict bool
}

func (*Apply) coreNode() {}

// Bind is one binding of a Local group.
type Bind struct {
	Name string
	Body Node
}

// Local is a let: all bindings of the group are in scope in every
// binding's body (mutual recursion) and in the let body.
type Local struct {
	BaseNode
	Binds []Bind
	Body  Node
}

func (*Local) coreNode() {}

// If is a conditional with both branches present.
type If struct {
	BaseNode
	Cond Node
	Then Node
	Else Node
}

func (*If) coreNode() {}

// Binary is left op right, with the surface operator spelling.
type Binary struct {
	BaseNode
	Op    string
	Left  Node
	Right Node
}

func (*Binary) coreNode() {}

// Unary is op operand.
type Unary struct {
	BaseNode
	Op      string
	Operand Node
}

func (*Unary) coreNode() {}

// Index is target[index]; surface field lookup a.b arrives here as
// a["b"].
type Index struct {
	BaseNode
	Target Node
	Index  Node
}

func (*Index) coreNode() {}

// Slice is target[lo:hi:step] with Python-like defaulting; any of the
// three may be nil.
type Slice struct {
	BaseNode
	Target Node
	Lo     Node
	Hi     Node
	Step   Node
}

func (*Slice) coreNode() {}

// Array is an array literal; elements evaluate lazily.
type Array struct {
	BaseNode
	Elements []Node
}

func (*Array) coreNode() {}

// ForSpec is a `for x in e` comprehension clause.
type ForSpec struct {
	Span ast.Span
	Var  string
	Expr Node
}

// IfSpec is an `if cond` comprehension clause.
type IfSpec struct {
	Span ast.Span
	Cond Node
}

// CompSpec is one comprehension clause; exactly one of For/If is set.
type CompSpec struct {
	For *ForSpec
	If  *IfSpec
}

// ArrayComp is an array comprehension.
type ArrayComp struct {
	BaseNode
	Body  Node
	Specs []CompSpec
}

func (*ArrayComp) coreNode() {}

// Field is one field of a core object. Key is a computed expression
// (literal keys are Str nodes). Body already has object locals wrapped
// around it.
type Field struct {
	Span      ast.Span
	Key       Node
	Hide      ast.Hidden
	PlusSuper bool
	Body      Node
}

// Assert is an object-level assertion, checked on manifestation.
type Assert struct {
	Span ast.Span
	Cond Node
	Msg  Node // nil when no message
}

// Object is an object literal. Root marks literals that are not lexically
// nested inside another object literal; the evaluator binds $ to self when
// forcing fields of a root layer.
type Object struct {
	BaseNode
	Fields  []Field
	Asserts []Assert
	Root    bool
}

func (*Object) coreNode() {}

// ObjectComp is an object comprehension contributing one field per
// iteration. The comprehension variables are captured per-iteration into
// each field's environment.
type ObjectComp struct {
	BaseNode
	Key   Node
	Value Node
	Hide  ast.Hidden
	Specs []CompSpec
	Root  bool
}

func (*ObjectComp) coreNode() {}

// Error is error msg.
type Error struct {
	BaseNode
	Msg Node
}

func (*Error) coreNode() {}

// AssertExpr is assert cond [: msg]; rest.
type AssertExpr struct {
	BaseNode
	Cond Node
	Msg  Node // nil when no message
	Rest Node
}

func (*AssertExpr) coreNode() {}

// Import evaluates the top-level value of another file.
type Import struct {
	BaseNode
	Path string
}

func (*Import) coreNode() {}

// ImportStr reads another file as a string.
type ImportStr struct {
	BaseNode
	Path string
}

func (*ImportStr) coreNode() {}
