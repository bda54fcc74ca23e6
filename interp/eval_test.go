package interp_test

import (
	"testing"

	"github.com/fabvit86/jsonnet-go/diag"
	"github.com/fabvit86/jsonnet-go/interp"
	"github.com/fabvit86/jsonnet-go/parser"
	_ "github.com/fabvit86/jsonnet-go/std"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInterp(files map[string]string) *interp.Interp {
	if files == nil {
		files = map[string]string{}
	}
	return interp.New(interp.Options{Importer: &parser.MemoryImporter{Files: files}})
}

func eval(t *testing.T, src string) any {
	t.Helper()
	tree, err := newInterp(nil).EvaluateSnippet("test.jsonnet", src)
	require.NoError(t, err)
	return tree
}

func evalErr(t *testing.T, src string) *diag.Error {
	t.Helper()
	_, err := newInterp(nil).EvaluateSnippet("test.jsonnet", src)
	require.Error(t, err)
	de, ok := err.(*diag.Error)
	require.True(t, ok, "expected a diagnostic, got %T: %v", err, err)
	return de
}

func TestEval_Literals(t *testing.T) {
	assert.Equal(t, nil, eval(t, "null"))
	assert.Equal(t, true, eval(t, "true"))
	assert.Equal(t, 1.5, eval(t, "1.5"))
	assert.Equal(t, "hi", eval(t, `"hi"`))
	assert.Equal(t, []any{1.0, 2.0}, eval(t, "[1, 2]"))
}

func TestEval_Arithmetic(t *testing.T) {
	assert.Equal(t, 7.0, eval(t, "1 + 2 * 3"))
	assert.Equal(t, 2.5, eval(t, "5 / 2"))
	assert.Equal(t, 1.0, eval(t, "7 % 3"))
	assert.Equal(t, -1.0, eval(t, "-7 % 3"))
	assert.Equal(t, -4.0, eval(t, "-(2 + 2)"))
}

func TestEval_DivisionByZero(t *testing.T) {
	de := evalErr(t, "1 / 0")
	assert.Equal(t, diag.RuntimeError, de.Kind)
	assert.Contains(t, de.Msg, "division by zero")
}

func TestEval_StringConcatCoercion(t *testing.T) {
	assert.Equal(t, "n=1", eval(t, `"n=" + 1`))
	assert.Equal(t, "1x", eval(t, `1 + "x"`))
	assert.Equal(t, "v=[1,2]", eval(t, `"v=" + [1, 2]`))
}

func TestEval_ArrayConcat(t *testing.T) {
	assert.Equal(t, []any{1.0, 2.0, 3.0}, eval(t, "[1] + [2, 3]"))
}

func TestEval_Comparisons(t *testing.T) {
	assert.Equal(t, true, eval(t, "1 < 2"))
	assert.Equal(t, false, eval(t, "2 <= 1"))
	assert.Equal(t, true, eval(t, `"a" < "b"`))
	assert.Equal(t, true, eval(t, `"abc" >= "abc"`))
}

func TestEval_MixedComparisonRejected(t *testing.T) {
	de := evalErr(t, `1 < "a"`)
	assert.Equal(t, diag.TypeError, de.Kind)
}

func TestEval_Equality(t *testing.T) {
	assert.Equal(t, true, eval(t, "{a: 1} == {a: 1}"))
	assert.Equal(t, false, eval(t, "[1] == [1, 2]"))
	assert.Equal(t, true, eval(t, "[1, [2]] == [1, [2]]"))
	assert.Equal(t, true, eval(t, "1 != 2"))
	assert.Equal(t, false, eval(t, "(function(x) x) == (function(x) x)"))
}

func TestEval_HiddenFieldsIgnoredByEquality(t *testing.T) {
	assert.Equal(t, true, eval(t, "{a: 1, b:: 2} == {a: 1}"))
}

func TestEval_Logical(t *testing.T) {
	assert.Equal(t, true, eval(t, "true || (1 / 0 == 0)"))
	assert.Equal(t, false, eval(t, "false && (1 / 0 == 0)"))
	assert.Equal(t, false, eval(t, "!true"))
}

func TestEval_LogicalNeedsBooleans(t *testing.T) {
	de := evalErr(t, "1 && true")
	assert.Equal(t, diag.TypeError, de.Kind)
}

func TestEval_Bitwise(t *testing.T) {
	assert.Equal(t, 1.0, eval(t, "5 & 3"))
	assert.Equal(t, 7.0, eval(t, "5 | 3"))
	assert.Equal(t, 6.0, eval(t, "5 ^ 3"))
	assert.Equal(t, 8.0, eval(t, "1 << 3"))
	assert.Equal(t, 2.0, eval(t, "9 >> 2"))
	assert.Equal(t, -1.0, eval(t, "~0"))
}

func TestEval_FunctionApplication(t *testing.T) {
	// Spec scenario: ((function(x) x * x)(5)) == 25
	assert.Equal(t, true, eval(t, "((function(x) x * x)(5)) == 25"))
}

func TestEval_LocalFunctionMax(t *testing.T) {
	// Spec scenario: max(4, 8)
	assert.Equal(t, 8.0, eval(t, "local max(a, b) = if a > b then a else b; max(4, 8)"))
}

func TestEval_NamedArgsAndDefaults(t *testing.T) {
	assert.Equal(t, 9.0, eval(t, "local f(a, b=a*2) = a + b; f(3)"))
	assert.Equal(t, 4.0, eval(t, "local f(a, b=a*2) = a + b; f(3, b=1)"))
	assert.Equal(t, 5.0, eval(t, "local f(a, b) = a + b; f(b=3, a=2)"))
}

func TestEval_MissingArgument(t *testing.T) {
	de := evalErr(t, "local f(a, b) = a; f(1)")
	assert.Equal(t, diag.RuntimeError, de.Kind)
	assert.Contains(t, de.Msg, "missing argument")
}

func TestEval_UnknownNamedArgument(t *testing.T) {
	de := evalErr(t, "local f(a) = a; f(1, c=2)")
	assert.Contains(t, de.Msg, "no parameter")
}

func TestEval_DuplicateArgument(t *testing.T) {
	de := evalErr(t, "local f(a) = a; f(1, a=2)")
	assert.Contains(t, de.Msg, "bound twice")
}

func TestEval_TooManyArguments(t *testing.T) {
	de := evalErr(t, "local f(a) = a; f(1, 2)")
	assert.Contains(t, de.Msg, "at most")
}

func TestEval_NonCallable(t *testing.T) {
	de := evalErr(t, "1(2)")
	assert.Equal(t, diag.TypeError, de.Kind)
}

func TestEval_MutualRecursion(t *testing.T) {
	src := `
local isEven(n) = if n == 0 then true else isOdd(n - 1),
      isOdd(n) = if n == 0 then false else isEven(n - 1);
isEven(10)`
	assert.Equal(t, true, eval(t, src))
}

func TestEval_ObjectMerge(t *testing.T) {
	// Spec scenario: right-biased merge
	assert.Equal(t, map[string]any{"a": 2.0, "b": 3.0}, eval(t, "{a: 1} + {a: 2, b: 3}"))
}

func TestEval_HiddenFieldElided(t *testing.T) {
	// Spec scenario: hidden field excluded from output
	assert.Equal(t, map[string]any{"a": 1.0}, eval(t, "{a: 1, b:: 2}"))
}

func TestEval_SelfReference(t *testing.T) {
	// Spec scenario: sibling reference through self
	assert.Equal(t, 2.0, eval(t, "local x = {a: 1, b: self.a + 1}; x.b"))
}

func TestEval_InheritanceLateBinding(t *testing.T) {
	// Spec scenario: self re-binds to the merged object
	src := "local base = {a: 1, b: self.a}; base + {a: 10}"
	assert.Equal(t, map[string]any{"a": 10.0, "b": 10.0}, eval(t, src))
}

func TestEval_SuperLookup(t *testing.T) {
	src := "local base = {a: 1}; (base + {a: super.a + 10}).a"
	assert.Equal(t, 11.0, eval(t, src))
}

func TestEval_SuperThroughThreeLayers(t *testing.T) {
	src := "({a: 1} + {a: super.a + 1} + {a: super.a + 1}).a"
	assert.Equal(t, 3.0, eval(t, src))
}

func TestEval_SuperWithoutParent(t *testing.T) {
	de := evalErr(t, "{a: super.b}.a")
	assert.Contains(t, de.Msg, "super")
}

func TestEval_InSuper(t *testing.T) {
	src := `({a: 1} + {has: "a" in super, hasNot: "z" in super}).has`
	assert.Equal(t, true, eval(t, src))
	src2 := `({a: 1} + {hasNot: "z" in super}).hasNot`
	assert.Equal(t, false, eval(t, src2))
}

func TestEval_PlusSuperField(t *testing.T) {
	assert.Equal(t, map[string]any{"a": 3.0}, eval(t, "{a: 1} + {a+: 2}"))
	// Without a parent the field keeps its own value.
	assert.Equal(t, map[string]any{"a": 2.0}, eval(t, "{a+: 2}"))
}

func TestEval_PlusSuperArrayAppend(t *testing.T) {
	assert.Equal(t, map[string]any{"a": []any{1.0, 2.0}}, eval(t, "{a: [1]} + {a+: [2]}"))
}

func TestEval_HiddennessMerge(t *testing.T) {
	// A ':' child inherits the parent's hiddenness.
	assert.Equal(t, map[string]any{}, eval(t, "{a:: 1} + {a: 2}"))
	// ':::' forces visibility back on.
	assert.Equal(t, map[string]any{"a": 2.0}, eval(t, "{a:: 1} + {a::: 2}"))
	// '::' forces hiding.
	assert.Equal(t, map[string]any{}, eval(t, "{a: 1} + {a:: 2}"))
}

func TestEval_InOperator(t *testing.T) {
	assert.Equal(t, true, eval(t, `"a" in {a: 1}`))
	assert.Equal(t, true, eval(t, `"h" in {h:: 1}`))
	assert.Equal(t, false, eval(t, `"z" in {a: 1}`))
}

func TestEval_DollarBindsToRoot(t *testing.T) {
	src := "{a: 1, b: {c: $.a}}"
	assert.Equal(t, map[string]any{"a": 1.0, "b": map[string]any{"c": 1.0}}, eval(t, src))
}

func TestEval_DollarSeesFinalSelf(t *testing.T) {
	src := "({a: 1, b: {c: $.a}} + {a: 5}).b.c"
	assert.Equal(t, 5.0, eval(t, src))
}

func TestEval_ObjectLocals(t *testing.T) {
	assert.Equal(t, map[string]any{"a": 4.0}, eval(t, "{local two = 2, a: two + two}"))
}

func TestEval_ComputedKeys(t *testing.T) {
	assert.Equal(t, map[string]any{"ab": 1.0}, eval(t, `{["a" + "b"]: 1}`))
	// A null key drops the field.
	assert.Equal(t, map[string]any{}, eval(t, `{[if false then "k"]: 1}`))
}

func TestEval_DuplicateComputedKey(t *testing.T) {
	de := evalErr(t, `{["a"]: 1, a: 2}`)
	assert.Contains(t, de.Msg, "duplicate field")
}

func TestEval_Laziness(t *testing.T) {
	// Spec properties: unforced errors never fire.
	assert.Equal(t, 1.0, eval(t, `local unused = error "x"; 1`))
	assert.Equal(t, 1.0, eval(t, `{a: error "x", b: 1}.b`))
	assert.Equal(t, 1.0, eval(t, `[error "x", 1][1]`))
}

func TestEval_CycleDetection(t *testing.T) {
	de := evalErr(t, "local x = x; x")
	assert.Equal(t, diag.InfiniteLoop, de.Kind)
}

func TestEval_SelfFieldCycle(t *testing.T) {
	de := evalErr(t, "{a: self.a}.a")
	assert.Equal(t, diag.InfiniteLoop, de.Kind)
}

func TestEval_ErrorExpr(t *testing.T) {
	de := evalErr(t, `error "boom"`)
	assert.Equal(t, diag.RuntimeError, de.Kind)
	assert.Equal(t, "boom", de.Msg)
}

func TestEval_ErrorCarriesTrace(t *testing.T) {
	de := evalErr(t, `local f() = error "boom"; f()`)
	assert.Equal(t, diag.RuntimeError, de.Kind)
	require.NotEmpty(t, de.Trace)
	assert.Equal(t, "function call", de.Trace[0].Note)
}

func TestEval_AssertExpr(t *testing.T) {
	assert.Equal(t, 1.0, eval(t, "assert true; 1"))
	de := evalErr(t, `assert 1 > 2 : "nope"; 1`)
	assert.Equal(t, "nope", de.Msg)
}

func TestEval_ObjectAssertFiresOnManifest(t *testing.T) {
	de := evalErr(t, `{assert false : "bad", a: 1}`)
	assert.Contains(t, de.Msg, "bad")
	// Unmanifested objects never run their asserts.
	assert.Equal(t, 1.0, eval(t, `local o = {assert false}; 1`))
}

func TestEval_ObjectAssertSeesMergedSelf(t *testing.T) {
	src := "local base = {assert self.n > 0, n: -1}; base + {n: 5}"
	assert.Equal(t, map[string]any{"n": 5.0}, eval(t, src))
}

func TestEval_Conditionals(t *testing.T) {
	assert.Equal(t, 1.0, eval(t, "if true then 1 else 2"))
	assert.Equal(t, nil, eval(t, "if false then 1"))
	de := evalErr(t, "if 1 then 2 else 3")
	assert.Equal(t, diag.TypeError, de.Kind)
}

func TestEval_ArrayIndexing(t *testing.T) {
	assert.Equal(t, 2.0, eval(t, "[1, 2, 3][1]"))
	de := evalErr(t, "[1][5]")
	assert.Contains(t, de.Msg, "out of bounds")
}

func TestEval_StringIndexing(t *testing.T) {
	assert.Equal(t, "e", eval(t, `"hello"[1]`))
}

func TestEval_MissingField(t *testing.T) {
	de := evalErr(t, "{a: 1}.z")
	assert.Contains(t, de.Msg, "does not exist")
}

func TestEval_Slices(t *testing.T) {
	assert.Equal(t, []any{2.0, 4.0}, eval(t, "[1, 2, 3, 4, 5][1:4:2]"))
	assert.Equal(t, []any{1.0, 2.0}, eval(t, "[1, 2, 3][:2]"))
	assert.Equal(t, []any{2.0, 3.0}, eval(t, "[1, 2, 3][-2:]"))
	assert.Equal(t, "el", eval(t, `"hello"[1:3]`))
	de := evalErr(t, "[1, 2][::0]")
	assert.Contains(t, de.Msg, "step")
}

func TestEval_ArrayComprehension(t *testing.T) {
	assert.Equal(t, []any{1.0, 4.0, 9.0}, eval(t, "[x * x for x in [1, 2, 3]]"))
	assert.Equal(t, []any{2.0}, eval(t, "[x for x in [1, 2] if x > 1]"))
	nested := eval(t, "[[x, y] for x in [1, 2] for y in [3, 4]]")
	assert.Equal(t, []any{
		[]any{1.0, 3.0}, []any{1.0, 4.0}, []any{2.0, 3.0}, []any{2.0, 4.0},
	}, nested)
}

func TestEval_ObjectComprehension(t *testing.T) {
	src := `{[k]: std.length(k) for k in ["a", "bb"]}`
	assert.Equal(t, map[string]any{"a": 1.0, "bb": 2.0}, eval(t, src))
}

func TestEval_ObjectComprehensionDuplicateKey(t *testing.T) {
	de := evalErr(t, `{[k]: 1 for k in ["a", "a"]}`)
	assert.Contains(t, de.Msg, "duplicate field")
}

func TestEval_TextBlock(t *testing.T) {
	assert.Equal(t, "hi\n", eval(t, "|||\n  hi\n|||"))
}

func TestEval_Import(t *testing.T) {
	// Spec scenario 7.
	it := newInterp(map[string]string{"a.jsonnet": "1 + 2"})
	tree, err := it.EvaluateSnippet("b.jsonnet", `import "a.jsonnet"`)
	require.NoError(t, err)
	assert.Equal(t, 3.0, tree)
}

func TestEval_ImportStr(t *testing.T) {
	it := newInterp(map[string]string{"data.txt": "raw text"})
	tree, err := it.EvaluateSnippet("b.jsonnet", `importstr "data.txt"`)
	require.NoError(t, err)
	assert.Equal(t, "raw text", tree)
}

func TestEval_ImportMissing(t *testing.T) {
	_, err := newInterp(nil).EvaluateSnippet("b.jsonnet", `import "missing.jsonnet"`)
	require.Error(t, err)
	de := err.(*diag.Error)
	assert.Equal(t, diag.ImportError, de.Kind)
}

func TestEval_ImportCachedOnce(t *testing.T) {
	// Both import sites see the same cached top-level value.
	it := newInterp(map[string]string{"lib.jsonnet": "{v: 42}"})
	tree, err := it.EvaluateSnippet("b.jsonnet",
		`local a = import "lib.jsonnet", b = import "lib.jsonnet"; a.v + b.v`)
	require.NoError(t, err)
	assert.Equal(t, 84.0, tree)
}

func TestEval_ImportChain(t *testing.T) {
	it := newInterp(map[string]string{
		"one.jsonnet": `(import "two.jsonnet") + 1`,
		"two.jsonnet": "41",
	})
	tree, err := it.EvaluateSnippet("main.jsonnet", `import "one.jsonnet"`)
	require.NoError(t, err)
	assert.Equal(t, 42.0, tree)
}

func TestEval_Determinism(t *testing.T) {
	src := `{b: 2, a: [1, {c: "x"}], d: {e:: 1, f: 2}}`
	render := func() string {
		tree, err := newInterp(nil).EvaluateSnippet("test.jsonnet", src)
		require.NoError(t, err)
		out, err := interp.EncodeJSON(tree, "  ")
		require.NoError(t, err)
		return out
	}
	assert.Equal(t, render(), render())
}

func TestEval_Interrupted(t *testing.T) {
	it := interp.New(interp.Options{
		Importer:    &parser.MemoryImporter{},
		Interrupted: func() bool { return true },
	})
	_, err := it.EvaluateSnippet("test.jsonnet", "1 + 2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interrupted")
}

func TestEval_UnknownVariable(t *testing.T) {
	de := evalErr(t, "nope")
	assert.Contains(t, de.Msg, "unknown variable")
}

func TestEval_DollarOutsideObject(t *testing.T) {
	de := evalErr(t, "$.a")
	assert.Contains(t, de.Msg, "outside of an object")
}

func TestEval_SelfOutsideObject(t *testing.T) {
	de := evalErr(t, "self.a")
	assert.Contains(t, de.Msg, "outside of an object")
}

func TestEval_TailStrictForcesArguments(t *testing.T) {
	// tailstrict parses and forces arguments eagerly.
	de := evalErr(t, `local f(a) = 1; f(error "eager") tailstrict`)
	assert.Equal(t, "eager", de.Msg)
	// Without tailstrict the unused argument stays unforced.
	assert.Equal(t, 1.0, eval(t, `local f(a) = 1; f(error "lazy")`))
}
