package interp

import (
	"fmt"
	"sort"

	"github.com/fabvit86/jsonnet-go/ast"
	"github.com/fabvit86/jsonnet-go/core"
	"github.com/fabvit86/jsonnet-go/diag"
)

// layerField is one field of a mixin layer. Either Body/Env describe a
// suspended field expression, or Prebuilt holds a ready-made thunk
// (used for builtin objects like std).
type layerField struct {
	Hide      ast.Hidden
	PlusSuper bool
	Body      core.Node
	Env       *Env
	Prebuilt  *Thunk
	Span      ast.Span
}

// layerAssert is one object-level assertion of a layer.
type layerAssert struct {
	Cond core.Node
	Msg  core.Node
	Env  *Env
	Span ast.Span
}

// objectLayer is one mixin layer: the fields and asserts contributed by
// a single object literal (or comprehension). Root layers bind $ to self
// when their fields are forced.
type objectLayer struct {
	fields  map[string]layerField
	asserts []layerAssert
	root    bool
}

// Object is a Jsonnet object: a chain of mixin layers, rightmost layer
// taking precedence. Field values are evaluated lazily with self bound
// to the outermost (merged) object and super to the layers below the
// field's layer; forced fields are cached per object.
type Object struct {
	layers []*objectLayer

	cache       map[string]*Thunk
	assertState int // 0 unchecked, 1 running, 2 ok, 3 failed
	assertErr   error
}

func (*Object) value()           {}
func (*Object) TypeName() string { return "object" }

func newObject(layers []*objectLayer) *Object {
	return &Object{layers: layers, cache: map[string]*Thunk{}}
}

// Merge implements object +: the right operand's layers stack on top of
// the left's. Field caches are never shared; self re-binds to the merged
// object.
func (o *Object) Merge(right *Object) *Object {
	layers := make([]*objectLayer, 0, len(o.layers)+len(right.layers))
	layers = append(layers, o.layers...)
	layers = append(layers, right.layers...)
	return newObject(layers)
}

// findField locates the topmost layer at or below top defining name.
func (o *Object) findField(name string, top int) (layerField, int, bool) {
	for i := top; i >= 0; i-- {
		if f, ok := o.layers[i].fields[name]; ok {
			return f, i, true
		}
	}
	return layerField{}, -1, false
}

// HasField reports visible-or-hidden presence of a field, as tested by
// the in operator and std.objectHasAll.
func (o *Object) HasField(name string) bool {
	_, _, ok := o.findField(name, len(o.layers)-1)
	return ok
}

// hasFieldBelow reports presence of a field strictly below the given
// layer index (the `in super` test).
func (o *Object) hasFieldBelow(name string, layerIdx int) bool {
	_, _, ok := o.findField(name, layerIdx-1)
	return ok
}

// FieldNames returns the object's field names sorted. When onlyVisible
// is true, fields whose merged visibility is hidden are excluded.
func (o *Object) FieldNames(onlyVisible bool) []string {
	var names []string
	for name := range o.allFieldSet() {
		if !onlyVisible || o.fieldVisible(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (o *Object) allFieldSet() map[string]struct{} {
	set := map[string]struct{}{}
	for _, layer := range o.layers {
		for name := range layer.fields {
			set[name] = struct{}{}
		}
	}
	return set
}

// fieldVisible computes the merged visibility of a field: walking layers
// from lowest to highest, a `:` field inherits the visibility decided so
// far while `::` and `:::` override it.
func (o *Object) fieldVisible(name string) bool {
	hide := ast.VisibleDefault
	for _, layer := range o.layers {
		f, ok := layer.fields[name]
		if !ok {
			continue
		}
		if f.Hide != ast.VisibleDefault {
			hide = f.Hide
		}
	}
	return hide != ast.HiddenField
}

// Field returns the value thunk of a field, searching all layers. The
// boolean is false when the field does not exist.
func (o *Object) Field(it *Interp, name string) (*Thunk, bool) {
	return o.fieldFrom(it, name, len(o.layers)-1)
}

// fieldFrom returns the value thunk of a field, searching layers from
// index top downwards. Super lookups pass the layer index below the
// current field's layer.
func (o *Object) fieldFrom(it *Interp, name string, top int) (*Thunk, bool) {
	key := name
	if top != len(o.layers)-1 {
		key = fmt.Sprintf("%s@%d", name, top)
	}
	if t, ok := o.cache[key]; ok {
		return t, true
	}
	fld, idx, ok := o.findField(name, top)
	if !ok {
		return nil, false
	}
	t := o.fieldThunk(it, name, fld, idx)
	o.cache[key] = t
	return t, true
}

// fieldThunk builds the value thunk for a field found at layer idx:
// the field body evaluates with self bound to this object and super
// semantics starting below idx. A +: field first looks the name up in
// super and merges with +.
func (o *Object) fieldThunk(it *Interp, name string, fld layerField, idx int) *Thunk {
	if fld.Prebuilt != nil {
		return fld.Prebuilt
	}
	env := fld.Env.WithObject(o, idx)
	if o.layers[idx].root {
		env = bindDollar(env, o)
	}
	if !fld.PlusSuper {
		return NewThunk(env, fld.Body)
	}
	return NewCallThunk(fld.Span, func(it *Interp) (Value, error) {
		body, err := it.eval(env, fld.Body)
		if err != nil {
			return nil, err
		}
		superThunk, ok := o.fieldFrom(it, name, idx-1)
		if !ok {
			return body, nil
		}
		superVal, err := superThunk.Force(it)
		if err != nil {
			return nil, err
		}
		return it.binaryValues(ast.OpAdd, superVal, body, fld.Span)
	})
}

// bindDollar extends env with $ bound to self.
func bindDollar(env *Env, self *Object) *Env {
	return env.Extend(map[string]*Thunk{"$": NewValueThunk(self)})
}

// checkAsserts runs every layer's assertions once, memoizing the
// outcome. Assertions see the final merged self like any field body.
func (o *Object) checkAsserts(it *Interp) error {
	switch o.assertState {
	case 2:
		return nil
	case 3:
		return o.assertErr
	case 1:
		// Assertions that manifest self recurse back here; the cycle is
		// reported by the manifester, not by the assert machinery.
		return nil
	}
	o.assertState = 1
	for idx, layer := range o.layers {
		for _, a := range layer.asserts {
			env := a.Env.WithObject(o, idx)
			if layer.root {
				env = bindDollar(env, o)
			}
			cond, err := it.eval(env, a.Cond)
			if err != nil {
				o.fail(err)
				return err
			}
			b, ok := cond.(Bool)
			if !ok {
				err := diag.New(diag.TypeError, a.Span, "object assert condition must be a boolean, got %s", cond.TypeName())
				o.fail(err)
				return err
			}
			if b.B {
				continue
			}
			msg := "object assertion failed"
			if a.Msg != nil {
				msgVal, err := it.eval(env, a.Msg)
				if err != nil {
					o.fail(err)
					return err
				}
				s, err := it.toString(msgVal, a.Span)
				if err != nil {
					o.fail(err)
					return err
				}
				msg = s
			}
			err = diag.New(diag.RuntimeError, a.Span, "%s", msg)
			o.fail(err)
			return err
		}
	}
	o.assertState = 2
	return nil
}

func (o *Object) fail(err error) {
	o.assertState = 3
	o.assertErr = err
}
