package std

import (
	"sort"
	"strings"

	"github.com/fabvit86/jsonnet-go/ast"
	"github.com/fabvit86/jsonnet-go/core"
	"github.com/fabvit86/jsonnet-go/diag"
	"github.com/fabvit86/jsonnet-go/interp"
)

func init() {
	register("makeArray", []string{"sz", "func"}, stdMakeArray)
	register("filter", []string{"func", "arr"}, stdFilter)
	register("map", []string{"func", "arr"}, stdMap)
	register("flatMap", []string{"func", "arr"}, stdFlatMap)
	register("foldl", []string{"func", "arr", "init"}, stdFoldl)
	register("foldr", []string{"func", "arr", "init"}, stdFoldr)
	register("range", []string{"from", "to"}, stdRange)
	register("join", []string{"sep", "arr"}, stdJoin)
	registerOpt("sort", []string{"arr", "keyF"}, map[string]core.Node{"keyF": nullDefault()}, stdSort)
	registerOpt("uniq", []string{"arr", "keyF"}, map[string]core.Node{"keyF": nullDefault()}, stdUniq)
}

func stdMakeArray(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	size, err := forceInt(it, args[0], at, "std.makeArray size")
	if err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, diag.New(diag.RuntimeError, at, "std.makeArray size must be non-negative, got %d", size)
	}
	fn, err := forceFunction(it, args[1], at, "std.makeArray func")
	if err != nil {
		return nil, err
	}
	elements := make([]*interp.Thunk, size)
	for i := 0; i < size; i++ {
		idx := interp.NewValueThunk(interp.Number{F: float64(i)})
		elements[i] = interp.NewCallThunk(at, func(it *interp.Interp) (interp.Value, error) {
			return it.Call(fn, []*interp.Thunk{idx}, at)
		})
	}
	return &interp.Array{Elements: elements}, nil
}

func stdFilter(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	fn, err := forceFunction(it, args[0], at, "std.filter func")
	if err != nil {
		return nil, err
	}
	arr, err := forceArray(it, args[1], at, "std.filter arr")
	if err != nil {
		return nil, err
	}
	var out []*interp.Thunk
	for _, element := range arr.Elements {
		keep, err := it.Call(fn, []*interp.Thunk{element}, at)
		if err != nil {
			return nil, err
		}
		b, ok := keep.(interp.Bool)
		if !ok {
			return nil, diag.New(diag.TypeError, at, "std.filter func must return a boolean, got %s", keep.TypeName())
		}
		if b.B {
			out = append(out, element)
		}
	}
	return &interp.Array{Elements: out}, nil
}

func stdMap(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	fn, err := forceFunction(it, args[0], at, "std.map func")
	if err != nil {
		return nil, err
	}
	arr, err := forceArray(it, args[1], at, "std.map arr")
	if err != nil {
		return nil, err
	}
	out := make([]*interp.Thunk, len(arr.Elements))
	for i, element := range arr.Elements {
		element := element
		out[i] = interp.NewCallThunk(at, func(it *interp.Interp) (interp.Value, error) {
			return it.Call(fn, []*interp.Thunk{element}, at)
		})
	}
	return &interp.Array{Elements: out}, nil
}

func stdFlatMap(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	fn, err := forceFunction(it, args[0], at, "std.flatMap func")
	if err != nil {
		return nil, err
	}
	arr, err := forceArray(it, args[1], at, "std.flatMap arr")
	if err != nil {
		return nil, err
	}
	var out []*interp.Thunk
	for _, element := range arr.Elements {
		mapped, err := it.Call(fn, []*interp.Thunk{element}, at)
		if err != nil {
			return nil, err
		}
		inner, ok := mapped.(*interp.Array)
		if !ok {
			return nil, diag.New(diag.TypeError, at, "std.flatMap func must return an array, got %s", mapped.TypeName())
		}
		out = append(out, inner.Elements...)
	}
	return &interp.Array{Elements: out}, nil
}

func stdFoldl(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	fn, err := forceFunction(it, args[0], at, "std.foldl func")
	if err != nil {
		return nil, err
	}
	arr, err := forceArray(it, args[1], at, "std.foldl arr")
	if err != nil {
		return nil, err
	}
	acc := args[2]
	for _, element := range arr.Elements {
		v, err := it.Call(fn, []*interp.Thunk{acc, element}, at)
		if err != nil {
			return nil, err
		}
		acc = interp.NewValueThunk(v)
	}
	return acc.Force(it)
}

func stdFoldr(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	fn, err := forceFunction(it, args[0], at, "std.foldr func")
	if err != nil {
		return nil, err
	}
	arr, err := forceArray(it, args[1], at, "std.foldr arr")
	if err != nil {
		return nil, err
	}
	acc := args[2]
	for i := len(arr.Elements) - 1; i >= 0; i-- {
		v, err := it.Call(fn, []*interp.Thunk{arr.Elements[i], acc}, at)
		if err != nil {
			return nil, err
		}
		acc = interp.NewValueThunk(v)
	}
	return acc.Force(it)
}

func stdRange(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	from, err := forceInt(it, args[0], at, "std.range from")
	if err != nil {
		return nil, err
	}
	to, err := forceInt(it, args[1], at, "std.range to")
	if err != nil {
		return nil, err
	}
	var elements []*interp.Thunk
	for i := from; i <= to; i++ {
		elements = append(elements, interp.NewValueThunk(interp.Number{F: float64(i)}))
	}
	return &interp.Array{Elements: elements}, nil
}

func stdJoin(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	sep, err := args[0].Force(it)
	if err != nil {
		return nil, err
	}
	arr, err := forceArray(it, args[1], at, "std.join arr")
	if err != nil {
		return nil, err
	}
	switch s := sep.(type) {
	case interp.String:
		var parts []string
		for _, element := range arr.Elements {
			v, err := element.Force(it)
			if err != nil {
				return nil, err
			}
			if _, isNull := v.(interp.Null); isNull {
				continue
			}
			sv, ok := v.(interp.String)
			if !ok {
				return nil, diag.New(diag.TypeError, at, "std.join with a string separator needs string elements, got %s", v.TypeName())
			}
			parts = append(parts, sv.S)
		}
		return interp.String{S: strings.Join(parts, s.S)}, nil
	case *interp.Array:
		var out []*interp.Thunk
		first := true
		for _, element := range arr.Elements {
			v, err := element.Force(it)
			if err != nil {
				return nil, err
			}
			if _, isNull := v.(interp.Null); isNull {
				continue
			}
			av, ok := v.(*interp.Array)
			if !ok {
				return nil, diag.New(diag.TypeError, at, "std.join with an array separator needs array elements, got %s", v.TypeName())
			}
			if !first {
				out = append(out, s.Elements...)
			}
			first = false
			out = append(out, av.Elements...)
		}
		return &interp.Array{Elements: out}, nil
	}
	return nil, diag.New(diag.TypeError, at, "std.join separator must be a string or an array, got %s", sep.TypeName())
}

// sortKey forces the sort key of an element: the element itself, or
// keyF(element) when a key function was given.
func sortKey(it *interp.Interp, keyF interp.Value, element *interp.Thunk, at ast.Span) (interp.Value, error) {
	if keyF == nil {
		return element.Force(it)
	}
	return it.Call(keyF, []*interp.Thunk{element}, at)
}

func compareKeys(a, b interp.Value, at ast.Span) (int, error) {
	switch av := a.(type) {
	case interp.Number:
		bv, ok := b.(interp.Number)
		if !ok {
			return 0, diag.New(diag.TypeError, at, "cannot compare number with %s", b.TypeName())
		}
		switch {
		case av.F < bv.F:
			return -1, nil
		case av.F > bv.F:
			return 1, nil
		}
		return 0, nil
	case interp.String:
		bv, ok := b.(interp.String)
		if !ok {
			return 0, diag.New(diag.TypeError, at, "cannot compare string with %s", b.TypeName())
		}
		return strings.Compare(av.S, bv.S), nil
	}
	return 0, diag.New(diag.TypeError, at, "sort keys must be numbers or strings, got %s", a.TypeName())
}

func stdSort(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	arr, err := forceArray(it, args[0], at, "std.sort arr")
	if err != nil {
		return nil, err
	}
	keyF, err := forceOptional(it, args[1])
	if err != nil {
		return nil, err
	}
	keys := make([]interp.Value, len(arr.Elements))
	for i, element := range arr.Elements {
		keys[i], err = sortKey(it, keyF, element, at)
		if err != nil {
			return nil, err
		}
	}
	// Sort a permutation so keys and elements stay aligned.
	var sortErr error
	perm := make([]int, len(arr.Elements))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		c, err := compareKeys(keys[perm[i]], keys[perm[j]], at)
		if err != nil {
			sortErr = err
			return false
		}
		return c < 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	out := make([]*interp.Thunk, len(perm))
	for i, p := range perm {
		out[i] = arr.Elements[p]
	}
	return &interp.Array{Elements: out}, nil
}

func stdUniq(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	arr, err := forceArray(it, args[0], at, "std.uniq arr")
	if err != nil {
		return nil, err
	}
	keyF, err := forceOptional(it, args[1])
	if err != nil {
		return nil, err
	}
	var out []*interp.Thunk
	var prevKey interp.Value
	for _, element := range arr.Elements {
		key, err := sortKey(it, keyF, element, at)
		if err != nil {
			return nil, err
		}
		if prevKey != nil {
			eq, err := it.Equals(prevKey, key, at)
			if err != nil {
				return nil, err
			}
			if eq {
				continue
			}
		}
		out = append(out, element)
		prevKey = key
	}
	return &interp.Array{Elements: out}, nil
}
