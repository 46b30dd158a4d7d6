package cty

import (
	"fmt"
	"reflect"
)

func (s *scope) infer(raw any, path Path) (Value, error) {
	return s.guard(DynamicPseudoType, raw, path, func() (Value, error) {
		return s.inferKind(raw, path)
	})
}

// inferKind finds the most specific type for raw:
//
//	string, []byte, bool,      the primitive types; byte slices are
//	numbers                    UTF-8 strings
//	map with string keys       object
//	map with other keys        map of the common element type, else map of dynamic
//	slice or array             list of the common element type, else list of dynamic
//	nil                        null of dynamic type
//	Value                      itself
//
// Children are inferred through the guarded entry, so a child cut off by
// containment becomes an unknown of dynamic type.
func (s *scope) inferKind(raw any, path Path) (Value, error) {
	if val, ok := raw.(Value); ok {
		if val.ty == nil {
			return NilVal, validationErrorf(ErrCodeUninferrable, path, "NilVal has no type")
		}
		return val, nil
	}
	if isNil(raw) {
		return NullVal(DynamicPseudoType), nil
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Pointer && !isDecimal(raw) {
		return s.inferKind(rv.Elem().Interface(), path)
	}
	if val, ok, err := numberFromRaw(raw, rv); ok {
		if err != nil {
			return NilVal, validationErrorf(ErrCodeInvalidNumber, path, "%s", err)
		}
		return val, nil
	}

	if str, ok := stringFromRaw(raw, rv); ok {
		return checkedString(str, path)
	}

	switch rv.Kind() {
	case reflect.Bool:
		return BoolVal(rv.Bool()), nil
	case reflect.Slice, reflect.Array:
		return s.inferSequence(rv, path)
	case reflect.Map:
		if k := rv.Type().Key().Kind(); k == reflect.String || (k == reflect.Interface && allStringKeys(rv)) {
			return s.inferObject(raw, rv, path)
		}
		return s.inferMap(raw, rv, path)
	}
	return NilVal, validationErrorf(ErrCodeUninferrable, path, "cannot infer a type for %T", raw)
}

func (s *scope) inferSequence(rv reflect.Value, path Path) (Value, error) {
	elems := make([]Value, rv.Len())
	for i := range elems {
		ev, err := s.infer(rv.Index(i).Interface(), path.Index(i))
		if err != nil {
			return NilVal, err
		}
		elems[i] = ev
	}
	if et, ok := uniformType(elems); ok {
		return Value{ty: List(et), v: elems}, nil
	}
	for i, e := range elems {
		elems[i] = DynamicVal(e)
	}
	return Value{ty: List(DynamicPseudoType), v: elems}, nil
}

func (s *scope) inferObject(raw any, rv reflect.Value, path Path) (Value, error) {
	entries, err := canonicalEntries(DynamicPseudoType, raw, rv, path, true)
	if err != nil {
		return NilVal, err
	}
	attrs := make(map[string]Value, len(entries))
	types := make(map[string]Type, len(entries))
	for _, e := range entries {
		av, err := s.infer(e.raw, path.GetAttr(e.key))
		if err != nil {
			return NilVal, err
		}
		attrs[e.key] = av
		types[e.key] = av.ty
	}
	return Value{ty: Object(types), v: attrs, keys: keyMapOf(entries)}, nil
}

func (s *scope) inferMap(raw any, rv reflect.Value, path Path) (Value, error) {
	entries, err := canonicalEntries(DynamicPseudoType, raw, rv, path, false)
	if err != nil {
		return NilVal, err
	}
	elems := make([]Value, len(entries))
	for i, e := range entries {
		ev, err := s.infer(e.raw, path.Key(e.key))
		if err != nil {
			return NilVal, err
		}
		elems[i] = ev
	}
	et, ok := uniformType(elems)
	if !ok {
		et = DynamicPseudoType
	}
	out := make(map[string]Value, len(entries))
	for i, e := range entries {
		if ok {
			out[e.key] = elems[i]
		} else {
			out[e.key] = DynamicVal(elems[i])
		}
	}
	return Value{ty: Map(et), v: out, keys: keyMapOf(entries)}, nil
}

// uniformType returns the type shared by every element. Null and unknown
// dynamic elements carry no concrete type and break uniformity, as does an
// empty slice.
func uniformType(elems []Value) (Type, bool) {
	if len(elems) == 0 {
		return nil, false
	}
	et := elems[0].ty
	if isDynamic(et) {
		return nil, false
	}
	for _, e := range elems[1:] {
		if !e.ty.Equals(et) {
			return nil, false
		}
	}
	return et, true
}

func allStringKeys(rv reflect.Value) bool {
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key()
		if k.IsNil() || k.Elem().Kind() != reflect.String {
			return false
		}
	}
	return true
}

// InferType returns the type Infer would give raw, without building a value
// the caller needs.
func (v *Validator) InferType(raw any) (Type, error) {
	val, err := v.Infer(raw)
	if err != nil {
		return nil, fmt.Errorf("infer type: %w", err)
	}
	return val.ty, nil
}
