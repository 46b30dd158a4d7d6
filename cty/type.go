package cty

import (
	"fmt"
	"reflect"
	"slices"

	"golang.org/x/text/unicode/norm"
)

// Kind identifies the constructor a Type was built with.
type Kind uint8

const (
	KindString Kind = iota + 1
	KindNumber
	KindBool
	KindList
	KindSet
	KindMap
	KindObject
	KindTuple
	KindCapsule
	KindDynamic
)

// String returns the lower-case kind name used in type descriptors.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindMap:
		return "map"
	case KindObject:
		return "object"
	case KindTuple:
		return "tuple"
	case KindCapsule:
		return "capsule"
	case KindDynamic:
		return "dynamic"
	default:
		return "invalid"
	}
}

// Type is a sealed interface describing the shape of a Value.
// Only the types in this package implement it, so switches over the concrete
// types are exhaustive.
//
// Types must be compared with Equals, never with ==: object and tuple types
// hold maps and slices and are not comparable.
type Type interface {
	Kind() Kind
	FriendlyName() string
	Equals(other Type) bool
	UsableAs(want Type) bool
	ctyType() // Sealed
}

// CollectionType is implemented by list, set and map types.
type CollectionType interface {
	Type
	ElementType() Type
}

type primitiveType struct {
	kind Kind
}

func (primitiveType) ctyType() {}

func (t primitiveType) Kind() Kind           { return t.kind }
func (t primitiveType) FriendlyName() string { return t.kind.String() }

func (t primitiveType) Equals(other Type) bool {
	o, ok := other.(primitiveType)
	return ok && o.kind == t.kind
}

func (t primitiveType) UsableAs(want Type) bool {
	return isDynamic(want) || t.Equals(want)
}

// Primitive types.
var (
	String Type = primitiveType{kind: KindString}
	Number Type = primitiveType{kind: KindNumber}
	Bool   Type = primitiveType{kind: KindBool}
)

type dynamicType struct{}

func (dynamicType) ctyType() {}

func (dynamicType) Kind() Kind           { return KindDynamic }
func (dynamicType) FriendlyName() string { return "dynamic" }

func (dynamicType) Equals(other Type) bool {
	_, ok := other.(dynamicType)
	return ok
}

func (dynamicType) UsableAs(want Type) bool {
	return isDynamic(want)
}

// DynamicPseudoType is the wildcard type. Validating against it infers the
// concrete type of the raw data and keeps it inside the resulting Value.
var DynamicPseudoType Type = dynamicType{}

func isDynamic(t Type) bool {
	_, ok := t.(dynamicType)
	return ok
}

// ListType is an ordered sequence of elements of one type.
type ListType struct {
	elem Type
}

func (ListType) ctyType() {}

// List returns a list type with the given element type.
// It panics if elem is nil.
func List(elem Type) Type {
	mustType(elem, "list element")
	return ListType{elem: elem}
}

func (t ListType) Kind() Kind           { return KindList }
func (t ListType) ElementType() Type    { return t.elem }
func (t ListType) FriendlyName() string { return "list of " + t.elem.FriendlyName() }

func (t ListType) Equals(other Type) bool {
	o, ok := other.(ListType)
	return ok && t.elem.Equals(o.elem)
}

func (t ListType) UsableAs(want Type) bool {
	if isDynamic(want) {
		return true
	}
	o, ok := want.(ListType)
	return ok && t.elem.UsableAs(o.elem)
}

// SetType is an unordered collection of distinct elements of one type.
type SetType struct {
	elem Type
}

func (SetType) ctyType() {}

// Set returns a set type with the given element type.
// It panics if elem is nil.
func Set(elem Type) Type {
	mustType(elem, "set element")
	return SetType{elem: elem}
}

func (t SetType) Kind() Kind           { return KindSet }
func (t SetType) ElementType() Type    { return t.elem }
func (t SetType) FriendlyName() string { return "set of " + t.elem.FriendlyName() }

func (t SetType) Equals(other Type) bool {
	o, ok := other.(SetType)
	return ok && t.elem.Equals(o.elem)
}

func (t SetType) UsableAs(want Type) bool {
	if isDynamic(want) {
		return true
	}
	o, ok := want.(SetType)
	return ok && t.elem.UsableAs(o.elem)
}

// MapType maps string keys to elements of one type.
type MapType struct {
	elem Type
}

func (MapType) ctyType() {}

// Map returns a map type with the given element type.
// It panics if elem is nil.
func Map(elem Type) Type {
	mustType(elem, "map element")
	return MapType{elem: elem}
}

func (t MapType) Kind() Kind           { return KindMap }
func (t MapType) ElementType() Type    { return t.elem }
func (t MapType) FriendlyName() string { return "map of " + t.elem.FriendlyName() }

func (t MapType) Equals(other Type) bool {
	o, ok := other.(MapType)
	return ok && t.elem.Equals(o.elem)
}

func (t MapType) UsableAs(want Type) bool {
	if isDynamic(want) {
		return true
	}
	o, ok := want.(MapType)
	return ok && t.elem.UsableAs(o.elem)
}

// ObjectType has a fixed set of named, typed attributes. Every attribute is
// required and no others are tolerated.
type ObjectType struct {
	attrs map[string]Type
	names []string // canonical order, see compareKeysUTF16
}

func (ObjectType) ctyType() {}

// Object returns an object type with the given attributes. Attribute names are
// NFC-normalised. It panics if any attribute type is nil or if two names
// normalise to the same string.
func Object(attrs map[string]Type) Type {
	t := ObjectType{
		attrs: make(map[string]Type, len(attrs)),
		names: make([]string, 0, len(attrs)),
	}
	for name, at := range attrs {
		mustType(at, fmt.Sprintf("attribute %q", name))
		canonical := norm.NFC.String(name)
		if _, dup := t.attrs[canonical]; dup {
			panic(fmt.Sprintf("cty: duplicate attribute %q after normalization", canonical))
		}
		t.attrs[canonical] = at
		t.names = append(t.names, canonical)
	}
	slices.SortFunc(t.names, compareKeysUTF16)
	return t
}

// EmptyObject is the object type with no attributes.
var EmptyObject = Object(nil)

func (t ObjectType) Kind() Kind           { return KindObject }
func (t ObjectType) FriendlyName() string { return "object" }

// AttributeNames returns attribute names in canonical order.
func (t ObjectType) AttributeNames() []string {
	return slices.Clone(t.names)
}

// AttributeType returns the type of the named attribute.
func (t ObjectType) AttributeType(name string) (Type, bool) {
	at, ok := t.attrs[name]
	return at, ok
}

// HasAttribute reports whether the object declares name.
func (t ObjectType) HasAttribute(name string) bool {
	_, ok := t.attrs[name]
	return ok
}

// AttributeTypes returns a copy of the attribute map.
func (t ObjectType) AttributeTypes() map[string]Type {
	out := make(map[string]Type, len(t.attrs))
	for k, v := range t.attrs {
		out[k] = v
	}
	return out
}

func (t ObjectType) Equals(other Type) bool {
	o, ok := other.(ObjectType)
	if !ok || len(o.attrs) != len(t.attrs) {
		return false
	}
	for name, at := range t.attrs {
		ot, ok := o.attrs[name]
		if !ok || !at.Equals(ot) {
			return false
		}
	}
	return true
}

// UsableAs reports whether a value of t can stand in where want is expected.
// An object with extra attributes is usable as one declaring a subset of them.
func (t ObjectType) UsableAs(want Type) bool {
	if isDynamic(want) {
		return true
	}
	o, ok := want.(ObjectType)
	if !ok {
		return false
	}
	for name, wt := range o.attrs {
		at, ok := t.attrs[name]
		if !ok || !at.UsableAs(wt) {
			return false
		}
	}
	return true
}

// TupleType is a fixed-length sequence of positionally typed elements.
type TupleType struct {
	elems []Type
}

func (TupleType) ctyType() {}

// Tuple returns a tuple type. It panics if any element type is nil.
func Tuple(elems ...Type) Type {
	for i, et := range elems {
		mustType(et, fmt.Sprintf("tuple element %d", i))
	}
	return TupleType{elems: slices.Clone(elems)}
}

// EmptyTuple is the tuple type with no elements.
var EmptyTuple = Tuple()

func (t TupleType) Kind() Kind           { return KindTuple }
func (t TupleType) FriendlyName() string { return "tuple" }
func (t TupleType) Len() int             { return len(t.elems) }

// ElementTypes returns a copy of the positional element types.
func (t TupleType) ElementTypes() []Type {
	return slices.Clone(t.elems)
}

func (t TupleType) Equals(other Type) bool {
	o, ok := other.(TupleType)
	if !ok || len(o.elems) != len(t.elems) {
		return false
	}
	for i := range t.elems {
		if !t.elems[i].Equals(o.elems[i]) {
			return false
		}
	}
	return true
}

func (t TupleType) UsableAs(want Type) bool {
	if isDynamic(want) {
		return true
	}
	o, ok := want.(TupleType)
	if !ok || len(o.elems) != len(t.elems) {
		return false
	}
	for i := range t.elems {
		if !t.elems[i].UsableAs(o.elems[i]) {
			return false
		}
	}
	return true
}

// CapsuleOps are optional native operations for a capsule type.
//
// Both functions must be pure and total: the same inputs always give the same
// answer and they never block. A panic inside either is recovered and treated
// as "not equal" or as a missing hash.
type CapsuleOps struct {
	Equals func(a, b any) bool
	Hash   func(v any) string
}

// CapsuleType wraps an opaque host value. Two capsule types are equal when
// they wrap the same native Go type, whatever their display names.
type CapsuleType struct {
	name   string
	native reflect.Type
	ops    *CapsuleOps
}

func (CapsuleType) ctyType() {}

// Capsule returns a capsule type for values whose dynamic Go type is native.
func Capsule(name string, native reflect.Type) Type {
	if native == nil {
		panic("cty: capsule native type must not be nil")
	}
	return CapsuleType{name: name, native: native}
}

// CapsuleWithOps is like Capsule but attaches custom equality and hashing.
func CapsuleWithOps(name string, native reflect.Type, ops CapsuleOps) Type {
	t := Capsule(name, native).(CapsuleType)
	t.ops = &ops
	return t
}

func (t CapsuleType) Kind() Kind               { return KindCapsule }
func (t CapsuleType) FriendlyName() string     { return t.name }
func (t CapsuleType) NativeType() reflect.Type { return t.native }
func (t CapsuleType) Ops() (CapsuleOps, bool) {
	if t.ops == nil {
		return CapsuleOps{}, false
	}
	return *t.ops, true
}

func (t CapsuleType) Equals(other Type) bool {
	o, ok := other.(CapsuleType)
	return ok && o.native == t.native
}

func (t CapsuleType) UsableAs(want Type) bool {
	return isDynamic(want) || t.Equals(want)
}

// equalNative compares two encapsulated values, preferring the custom
// comparator.
func (t CapsuleType) equalNative(a, b any) (eq bool) {
	if t.ops != nil && t.ops.Equals != nil {
		defer func() {
			if recover() != nil {
				eq = false
			}
		}()
		return t.ops.Equals(a, b)
	}
	return reflect.DeepEqual(a, b)
}

// hashNative returns the custom hash, or "" when none is available.
func (t CapsuleType) hashNative(v any) (h string) {
	if t.ops == nil || t.ops.Hash == nil {
		return ""
	}
	defer func() {
		if recover() != nil {
			h = ""
		}
	}()
	return t.ops.Hash(v)
}

// mustType panics on a nil type. Descriptors are built bottom-up from
// immutable parts, so a nil is the only way to produce an ill-formed one.
func mustType(t Type, what string) {
	if t == nil {
		panic("cty: nil type for " + what)
	}
}
