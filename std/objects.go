package std

import (
	"github.com/fabvit86/jsonnet-go/ast"
	"github.com/fabvit86/jsonnet-go/interp"
)

func init() {
	register("objectHas", []string{"o", "f"}, stdObjectHas)
	register("objectHasAll", []string{"o", "f"}, stdObjectHasAll)
	register("objectFields", []string{"o"}, stdObjectFields)
	register("objectFieldsAll", []string{"o"}, stdObjectFieldsAll)
	register("objectValues", []string{"o"}, stdObjectValues)
	register("objectValuesAll", []string{"o"}, stdObjectValuesAll)
}

func stdObjectHas(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	return objectHas(it, at, args, true)
}

func stdObjectHasAll(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	return objectHas(it, at, args, false)
}

func objectHas(it *interp.Interp, at ast.Span, args []*interp.Thunk, onlyVisible bool) (interp.Value, error) {
	obj, err := forceObject(it, args[0], at, "std.objectHas o")
	if err != nil {
		return nil, err
	}
	name, err := forceString(it, args[1], at, "std.objectHas f")
	if err != nil {
		return nil, err
	}
	if !obj.HasField(name) {
		return interp.Bool{}, nil
	}
	if onlyVisible {
		for _, visible := range obj.FieldNames(true) {
			if visible == name {
				return interp.Bool{B: true}, nil
			}
		}
		return interp.Bool{}, nil
	}
	return interp.Bool{B: true}, nil
}

func stdObjectFields(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	return objectFields(it, at, args, true)
}

func stdObjectFieldsAll(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	return objectFields(it, at, args, false)
}

func objectFields(it *interp.Interp, at ast.Span, args []*interp.Thunk, onlyVisible bool) (interp.Value, error) {
	obj, err := forceObject(it, args[0], at, "std.objectFields o")
	if err != nil {
		return nil, err
	}
	names := obj.FieldNames(onlyVisible)
	elements := make([]*interp.Thunk, len(names))
	for i, name := range names {
		elements[i] = interp.NewValueThunk(interp.String{S: name})
	}
	return &interp.Array{Elements: elements}, nil
}

func stdObjectValues(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	return objectValues(it, at, args, true)
}

func stdObjectValuesAll(it *interp.Interp, at ast.Span, args []*interp.Thunk) (interp.Value, error) {
	return objectValues(it, at, args, false)
}

func objectValues(it *interp.Interp, at ast.Span, args []*interp.Thunk, onlyVisible bool) (interp.Value, error) {
	obj, err := forceObject(it, args[0], at, "std.objectValues o")
	if err != nil {
		return nil, err
	}
	names := obj.FieldNames(onlyVisible)
	elements := make([]*interp.Thunk, len(names))
	for i, name := range names {
		thunk, _ := obj.Field(it, name)
		elements[i] = thunk
	}
	return &interp.Array{Elements: elements}, nil
}
