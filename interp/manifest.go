package interp

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/fabvit86/jsonnet-go/ast"
	"github.com/fabvit86/jsonnet-go/diag"
)

// Manifest recursively forces a value into a pure JSON tree: nil, bool,
// float64, string, []any, or map[string]any. Object assertions run
// before any of the object's fields are manifested; hidden fields are
// excluded. A structural cycle fails with InfiniteManifest.
func (it *Interp) Manifest(v Value, at ast.Span) (any, error) {
	m := &manifester{it: it, active: map[any]bool{}}
	return m.manifest(v, at)
}

type manifester struct {
	it *Interp
	// active tracks the *Array/*Object values on the current
	// manifestation path for cycle detection.
	active map[any]bool
}

func (m *manifester) manifest(v Value, at ast.Span) (any, error) {
	switch val := v.(type) {
	case Null:
		return nil, nil
	case Bool:
		return val.B, nil
	case Number:
		return val.F, nil
	case String:
		return val.S, nil

	case *Array:
		if m.active[val] {
			return nil, diag.New(diag.InfiniteManifest, at, "cycle detected during manifestation")
		}
		m.active[val] = true
		defer delete(m.active, val)
		out := make([]any, len(val.Elements))
		for i, element := range val.Elements {
			ev, err := element.Force(m.it)
			if err != nil {
				return nil, err
			}
			out[i], err = m.manifest(ev, at)
			if err != nil {
				return nil, err
			}
		}
		return out, nil

	case *Object:
		if m.active[val] {
			return nil, diag.New(diag.InfiniteManifest, at, "cycle detected during manifestation")
		}
		m.active[val] = true
		defer delete(m.active, val)
		if err := val.checkAsserts(m.it); err != nil {
			return nil, err
		}
		out := map[string]any{}
		for _, name := range val.FieldNames(true) {
			thunk, _ := val.Field(m.it, name)
			fv, err := thunk.Force(m.it)
			if err != nil {
				return nil, m.it.frame(err, at, "field <"+name+">")
			}
			out[name], err = m.manifest(fv, at)
			if err != nil {
				return nil, err
			}
		}
		return out, nil

	case *Function:
		return nil, diag.New(diag.RuntimeError, at, "a function cannot be manifested")
	}
	return nil, diag.New(diag.RuntimeError, at, "internal: cannot manifest %T", v)
}

// toString renders a value for string concatenation, error messages and
// assert messages: strings pass through, everything else manifests to
// its compact JSON form.
func (it *Interp) toString(v Value, at ast.Span) (string, error) {
	if s, ok := v.(String); ok {
		return s.S, nil
	}
	tree, err := it.Manifest(v, at)
	if err != nil {
		return "", err
	}
	return EncodeJSON(tree, "")
}

// FromJSON lifts a JSON tree (as produced by Manifest) back into a
// runtime value. Objects become single-layer objects with plain visible
// fields.
func FromJSON(tree any) Value {
	switch t := tree.(type) {
	case nil:
		return Null{}
	case bool:
		return Bool{t}
	case float64:
		return Number{t}
	case int:
		return Number{float64(t)}
	case string:
		return String{t}
	case []any:
		elements := make([]*Thunk, len(t))
		for i, el := range t {
			elements[i] = NewValueThunk(FromJSON(el))
		}
		return &Array{Elements: elements}
	case map[string]any:
		fields := map[string]layerField{}
		for name, fv := range t {
			fields[name] = layerField{Prebuilt: NewValueThunk(FromJSON(fv))}
		}
		return newObject([]*objectLayer{{fields: fields}})
	}
	return Null{}
}

// EncodeJSON renders a manifested JSON tree as text. An empty indent
// produces the compact form; map keys are emitted sorted.
func EncodeJSON(tree any, indent string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(tree); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
