package cty

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// PathStep is one step of a Path: GetAttrStep, KeyStep or IndexStep.
type PathStep interface {
	fmt.Stringer
	apply(v Value) (Value, PathErrorCode, string)
}

// GetAttrStep selects an object attribute by name.
type GetAttrStep struct {
	Name string
}

// KeyStep selects a map element by key.
type KeyStep struct {
	Key string
}

// IndexStep selects a list or tuple element by position.
type IndexStep struct {
	Index int
}

func (s GetAttrStep) String() string { return "." + s.Name }
func (s KeyStep) String() string     { return "[" + strconv.Quote(s.Key) + "]" }
func (s IndexStep) String() string   { return "[" + strconv.Itoa(s.Index) + "]" }

// Path addresses a value nested inside another. Builder methods never modify
// the receiver's backing array.
type Path []PathStep

// GetAttr returns p extended with an attribute step.
func (p Path) GetAttr(name string) Path { return p.with(GetAttrStep{Name: name}) }

// Key returns p extended with a map key step.
func (p Path) Key(key string) Path { return p.with(KeyStep{Key: key}) }

// Index returns p extended with an index step.
func (p Path) Index(i int) Path { return p.with(IndexStep{Index: i}) }

func (p Path) with(s PathStep) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, s)
}

// Copy returns an independent copy of p.
func (p Path) Copy() Path {
	if len(p) == 0 {
		return nil
	}
	return slices.Clone(p)
}

// String renders p as name.attr["key"][0]; the root path renders empty.
func (p Path) String() string {
	var b strings.Builder
	for i, s := range p {
		str := s.String()
		if i == 0 {
			str = strings.TrimPrefix(str, ".")
		}
		b.WriteString(str)
	}
	return b.String()
}

// Apply walks p from v and returns the addressed value. Navigation stops at
// the first failing step with a *PathError naming the step.
//
// Stepping into an unknown container yields an unknown of the addressed type.
// Marks on every container passed through are carried to the result.
func (p Path) Apply(v Value) (Value, error) {
	if v.ty == nil {
		return NilVal, &PathError{Code: ErrCodeNullValue, Message: "NilVal has no elements"}
	}
	cur := v
	for i, step := range p {
		next, code, msg := step.apply(cur)
		if code != "" {
			return NilVal, &PathError{Code: code, Step: step, Index: i, Message: msg}
		}
		cur = next
	}
	return cur, nil
}

// ApplyPath is Path.Apply with the value first.
func ApplyPath(v Value, p Path) (Value, error) {
	return p.Apply(v)
}

// container unwraps dynamic values and rejects nulls.
func container(v Value) (Value, PathErrorCode, string) {
	if v.isDynamicWrapper() {
		v = v.Inner()
	}
	if v.null {
		return v, ErrCodeNullValue, "cannot step into a null " + v.ty.FriendlyName()
	}
	return v, "", ""
}

func (s GetAttrStep) apply(v Value) (Value, PathErrorCode, string) {
	v, code, msg := container(v)
	if code != "" {
		return NilVal, code, msg
	}
	if isDynamic(v.ty) {
		return UnknownVal(DynamicPseudoType).WithMarks(v.marks), "", ""
	}
	ot, ok := v.ty.(ObjectType)
	if !ok {
		return NilVal, ErrCodeNotObject, "attributes are only available on objects, not " + v.ty.FriendlyName()
	}
	name := norm.NFC.String(s.Name)
	at, ok := ot.attrs[name]
	if !ok {
		return NilVal, ErrCodeNoAttribute, fmt.Sprintf("object has no attribute %q", s.Name)
	}
	if v.unknown {
		return UnknownVal(at).WithMarks(v.marks), "", ""
	}
	return v.v.(map[string]Value)[name].WithMarks(v.marks), "", ""
}

func (s KeyStep) apply(v Value) (Value, PathErrorCode, string) {
	v, code, msg := container(v)
	if code != "" {
		return NilVal, code, msg
	}
	if isDynamic(v.ty) {
		return UnknownVal(DynamicPseudoType).WithMarks(v.marks), "", ""
	}
	mt, ok := v.ty.(MapType)
	if !ok {
		return NilVal, ErrCodeNotMap, "keys are only available on maps, not " + v.ty.FriendlyName()
	}
	if v.unknown {
		return UnknownVal(mt.elem).WithMarks(v.marks), "", ""
	}
	elems := v.v.(map[string]Value)
	e, ok := elems[s.Key]
	if !ok {
		e, ok = elems[norm.NFC.String(s.Key)]
	}
	if !ok {
		return NilVal, ErrCodeNoKey, fmt.Sprintf("map has no element for key %q", s.Key)
	}
	return e.WithMarks(v.marks), "", ""
}

func (s IndexStep) apply(v Value) (Value, PathErrorCode, string) {
	v, code, msg := container(v)
	if code != "" {
		return NilVal, code, msg
	}
	if isDynamic(v.ty) {
		return UnknownVal(DynamicPseudoType).WithMarks(v.marks), "", ""
	}
	outOfRange := func(n int) (Value, PathErrorCode, string) {
		return NilVal, ErrCodeIndexOutOfRange, fmt.Sprintf("index %d out of range for length %d", s.Index, n)
	}

	switch t := v.ty.(type) {
	case ListType:
		if s.Index < 0 {
			return NilVal, ErrCodeIndexOutOfRange, fmt.Sprintf("index %d is negative", s.Index)
		}
		if v.unknown {
			if r := v.refinement(); r != nil && r.LengthUpper != nil && int64(s.Index) >= *r.LengthUpper {
				return outOfRange(int(*r.LengthUpper))
			}
			return UnknownVal(t.elem).WithMarks(v.marks), "", ""
		}
		elems := v.v.([]Value)
		if s.Index >= len(elems) {
			return outOfRange(len(elems))
		}
		return elems[s.Index].WithMarks(v.marks), "", ""
	case TupleType:
		if s.Index < 0 || s.Index >= len(t.elems) {
			return outOfRange(len(t.elems))
		}
		if v.unknown {
			return UnknownVal(t.elems[s.Index]).WithMarks(v.marks), "", ""
		}
		return v.v.([]Value)[s.Index].WithMarks(v.marks), "", ""
	}
	return NilVal, ErrCodeNotIndexable, "cannot index " + v.ty.FriendlyName()
}
