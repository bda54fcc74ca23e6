package core

import (
	"testing"

	"github.com/fabvit86/jsonnet-go/ast"
	"github.com/fabvit86/jsonnet-go/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func desugar(t *testing.T, src string) Node {
	t.Helper()
	expr, err := parser.Parse(src, "test.jsonnet")
	require.NoError(t, err)
	return Desugar(expr)
}

func TestDesugar_LookupBecomesIndex(t *testing.T) {
	node := desugar(t, "a.b").(*Index)
	key, ok := node.Index.(*Str)
	require.True(t, ok)
	assert.Equal(t, "b", key.Value)
	assert.IsType(t, &Var{}, node.Target)
}

func TestDesugar_IfGetsNullElse(t *testing.T) {
	node := desugar(t, "if c then 1").(*If)
	assert.IsType(t, &Null{}, node.Else)
}

func TestDesugar_DollarBecomesVar(t *testing.T) {
	obj := desugar(t, "{a: $.b}").(*Object)
	require.Len(t, obj.Fields, 1)
	idx := obj.Fields[0].Body.(*Index)
	v := idx.Target.(*Var)
	assert.Equal(t, "$", v.Name)
}

func TestDesugar_RootFlag(t *testing.T) {
	outer := desugar(t, "{a: {b: 1}}").(*Object)
	assert.True(t, outer.Root)
	inner := outer.Fields[0].Body.(*Object)
	assert.False(t, inner.Root)
}

func TestDesugar_RootFlagResetsOutsideFields(t *testing.T) {
	// An object inside an array inside a field is still "in an object"
	// lexically, so it is not a root.
	outer := desugar(t, "{a: [{b: 1}]}").(*Object)
	arr := outer.Fields[0].Body.(*Array)
	inner := arr.Elements[0].(*Object)
	assert.False(t, inner.Root)
}

func TestDesugar_ObjectLocalsWrapFieldBodies(t *testing.T) {
	obj := desugar(t, "{local two = 2, a: two, b: 1}").(*Object)
	require.Len(t, obj.Fields, 2)
	for _, f := range obj.Fields {
		local, ok := f.Body.(*Local)
		require.True(t, ok, "field bodies must be wrapped in the object locals")
		require.Len(t, local.Binds, 1)
		assert.Equal(t, "two", local.Binds[0].Name)
	}
}

func TestDesugar_ObjectLocalsWrapAsserts(t *testing.T) {
	obj := desugar(t, "{local lim = 0, assert self.a > lim, a: 1}").(*Object)
	require.Len(t, obj.Asserts, 1)
	assert.IsType(t, &Local{}, obj.Asserts[0].Cond)
}

func TestDesugar_LiteralKeysBecomeStr(t *testing.T) {
	obj := desugar(t, `{a: 1, "b": 2}`).(*Object)
	for _, f := range obj.Fields {
		assert.IsType(t, &Str{}, f.Key)
	}
}

func TestDesugar_PlusSuperPreserved(t *testing.T) {
	obj := desugar(t, "{a+: 1}").(*Object)
	assert.True(t, obj.Fields[0].PlusSuper)
}

func TestDesugar_ArrayComp(t *testing.T) {
	comp := desugar(t, "[x for x in xs if x > 0]").(*ArrayComp)
	require.Len(t, comp.Specs, 2)
	assert.Equal(t, "x", comp.Specs[0].For.Var)
	assert.NotNil(t, comp.Specs[1].If)
}

func TestDesugar_ObjectCompKeepsHide(t *testing.T) {
	comp := desugar(t, "{[k]:: 1 for k in ks}").(*ObjectComp)
	assert.Equal(t, ast.HiddenField, comp.Hide)
	assert.True(t, comp.Root)
}

func TestDesugar_LocalGroupStaysGrouped(t *testing.T) {
	local := desugar(t, "local a = b, b = 1; a").(*Local)
	require.Len(t, local.Binds, 2)
}

func TestDesugar_SuperFormsPreserved(t *testing.T) {
	obj := desugar(t, "{a: super.x, b: \"x\" in super}").(*Object)
	assert.IsType(t, &SuperIndex{}, obj.Fields[0].Body)
	assert.IsType(t, &InSuper{}, obj.Fields[1].Body)
}

func TestDesugar_SpansSurvive(t *testing.T) {
	node := desugar(t, "1 + 2")
	span := node.NodeSpan()
	assert.Equal(t, "test.jsonnet", span.File)
	assert.Equal(t, 1, span.StartLine)
}
