package interp

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/fabvit86/jsonnet-go/ast"
	"github.com/fabvit86/jsonnet-go/core"
	"github.com/fabvit86/jsonnet-go/diag"
	"github.com/fabvit86/jsonnet-go/parser"
)

// Options configures an Interp.
type Options struct {
	// Importer resolves import paths. Defaults to a FileImporter whose
	// search paths come from the JSONNET_PATH environment variable.
	Importer parser.Importer
	// ExtVars are the external variables surfaced through std.extVar.
	ExtVars map[string]string
	// Interrupted, when set, is polled between reductions.
	Interrupted func() bool
}

// New creates an evaluator. The std object is assembled from the
// builtin registry; packages providing builtins register themselves in
// init, so callers blank-import the std package.
func New(opts Options) *Interp {
	importer := opts.Importer
	if importer == nil {
		var searchPaths []string
		if jp := os.Getenv("JSONNET_PATH"); jp != "" {
			searchPaths = filepath.SplitList(jp)
		}
		importer = &parser.FileImporter{SearchPaths: searchPaths}
	}
	it := &Interp{
		loader:      parser.NewLoader(importer),
		importCache: map[string]*Thunk{},
		extVars:     opts.ExtVars,
		Interrupted: opts.Interrupted,
	}
	it.rootEnv = NewEnv(map[string]*Thunk{
		"std": NewValueThunk(it.buildStd()),
	})
	return it
}

// EvaluateSnippet parses, desugars, evaluates, and manifests a program.
// The result is a pure JSON tree: nil, bool, float64, string, []any, or
// map[string]any.
func (it *Interp) EvaluateSnippet(filename, source string) (any, error) {
	v, err := it.EvaluateSnippetValue(filename, source)
	if err != nil {
		return nil, err
	}
	span := ast.Span{File: filename, StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 1}
	return it.Manifest(v, span)
}

// EvaluateSnippetValue evaluates a program to its weak head value
// without manifesting it.
func (it *Interp) EvaluateSnippetValue(filename, source string) (Value, error) {
	node, err := parser.Parse(source, filename)
	if err != nil {
		return nil, err
	}
	return it.eval(it.rootEnv, core.Desugar(node))
}

// EvaluateFile reads and evaluates a file from disk.
func (it *Interp) EvaluateFile(path string) (any, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		span := ast.Span{File: path, StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 1}
		return nil, diag.New(diag.ImportError, span, "cannot read %q: %v", path, err)
	}
	return it.EvaluateSnippet(path, string(source))
}

// Call applies a function value to the given argument thunks, binding
// them positionally. Builtins use this to call user closures.
func (it *Interp) Call(fn Value, args []*Thunk, at ast.Span) (Value, error) {
	f, ok := fn.(*Function)
	if !ok {
		return nil, diag.New(diag.TypeError, at, "cannot call a %s value", fn.TypeName())
	}
	if len(args) > len(f.Params) {
		return nil, diag.New(diag.RuntimeError, at, "function expects at most %d arguments, got %d", len(f.Params), len(args))
	}
	bound := map[string]*Thunk{}
	for i, arg := range args {
		bound[f.Params[i].Name] = arg
	}
	callEnv := f.Env
	if callEnv == nil {
		callEnv = it.rootEnv
	}
	callEnv = callEnv.Extend(bound)
	for _, p := range f.Params {
		if _, ok := bound[p.Name]; ok {
			continue
		}
		if p.Default == nil {
			return nil, diag.New(diag.RuntimeError, at, "missing argument %q", p.Name)
		}
		bound[p.Name] = NewThunk(callEnv, p.Default)
	}
	if f.Native != nil {
		ordered := make([]*Thunk, len(f.Params))
		for i, p := range f.Params {
			ordered[i] = bound[p.Name]
		}
		return f.Native.Fn(it, at, ordered)
	}
	return it.eval(callEnv, f.Body)
}

// ExtVar returns the value of an external variable.
func (it *Interp) ExtVar(name string) (string, bool) {
	v, ok := it.extVars[name]
	return v, ok
}

var nativeRegistry = map[string]*NativeFunc{}

// RegisterNative adds a builtin to the std object of every Interp
// created afterwards. Builtin packages call this from init.
func RegisterNative(n *NativeFunc) {
	nativeRegistry[n.Name] = n
}

// buildStd assembles the std object: one layer of hidden fields, each a
// prebuilt function value backed by a registered native.
func (it *Interp) buildStd() *Object {
	fields := map[string]layerField{}
	names := make([]string, 0, len(nativeRegistry))
	for name := range nativeRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		native := nativeRegistry[name]
		params := make([]core.Param, len(native.Params))
		for i, p := range native.Params {
			params[i] = core.Param{Name: p, Default: native.Defaults[p]}
		}
		fn := &Function{Params: params, Native: native}
		fields[name] = layerField{
			Hide:     ast.HiddenField,
			Prebuilt: NewValueThunk(fn),
		}
	}
	return newObject([]*objectLayer{{fields: fields}})
}
