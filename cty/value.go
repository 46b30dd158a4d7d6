package cty

import (
	"fmt"
	"iter"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"golang.org/x/text/unicode/norm"
)

// Value is an immutable typed value. It is known, null, or unknown; an
// unknown value may carry a Refinement. Every operation returns a new Value.
//
// Payload by kind, for known values:
//
//	string          string, NFC-normalised
//	number          *apd.Decimal, never mutated after construction
//	bool            bool
//	list, tuple     []Value
//	set             []Value, deduplicated and in canonical order
//	map, object     map[string]Value keyed by canonical (NFC) key
//	capsule         the encapsulated host value
//	dynamic         the wrapped Value of concrete type
//
// Unknown values hold *Refinement or nil; null values hold nil.
type Value struct {
	ty      Type
	v       any
	null    bool
	unknown bool
	marks   Marks
	keys    KeyMap
}

// KeyMap recovers original keys for map and object values built from data
// whose keys were not canonical strings (non-string keys, or strings changed
// by NFC normalisation). It maps canonical key to original key and takes no
// part in equality.
type KeyMap map[string]any

// NilVal is the zero Value. It has no type and is not valid input to any
// operation; it stands in for "no value" in error returns.
var NilVal = Value{}

// Common boolean values.
var (
	True  = BoolVal(true)
	False = BoolVal(false)
)

// decimalContext is used for all number construction and arithmetic.
var decimalContext = apd.BaseContext.WithPrecision(100)

// DecimalContext returns the arithmetic context shared by number operations.
func DecimalContext() *apd.Context {
	return decimalContext
}

// StringVal returns a known string. The text is NFC-normalised.
func StringVal(s string) Value {
	return Value{ty: String, v: norm.NFC.String(s)}
}

// NumberVal returns a known number holding a copy of d. It panics if d is not
// finite.
func NumberVal(d *apd.Decimal) Value {
	if d == nil || d.Form != apd.Finite {
		panic("cty: number must be finite")
	}
	return Value{ty: Number, v: new(apd.Decimal).Set(d)}
}

// NumberIntVal returns a known integer number.
func NumberIntVal(n int64) Value {
	return Value{ty: Number, v: apd.New(n, 0)}
}

// ParseNumberVal parses a decimal string such as "12.50" or "1e-3".
func ParseNumberVal(s string) (Value, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil || d.Form != apd.Finite {
		return NilVal, validationErrorf(ErrCodeInvalidNumber, nil, "%q is not a finite decimal number", s)
	}
	return Value{ty: Number, v: d}, nil
}

// NumberFloatVal converts f through its shortest decimal representation, so
// 0.1 becomes exactly 0.1 rather than its binary approximation.
func NumberFloatVal(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return NilVal, validationErrorf(ErrCodeInvalidNumber, nil, "%v is not a finite number", f)
	}
	return ParseNumberVal(strconv.FormatFloat(f, 'g', -1, 64))
}

// BoolVal returns a known bool.
func BoolVal(b bool) Value {
	return Value{ty: Bool, v: b}
}

// ListVal returns a list of the given elements. It panics if elems is empty
// or the elements do not all have the same type; use ListValEmpty for an
// empty list.
func ListVal(elems []Value) Value {
	et := commonType("ListVal", elems)
	return Value{ty: List(et), v: slices.Clone(elems)}
}

// ListValEmpty returns an empty list of element type et.
func ListValEmpty(et Type) Value {
	return Value{ty: List(et), v: []Value{}}
}

// SetVal returns a set of the given elements, deduplicated by Equal.
// It panics under the same conditions as ListVal.
func SetVal(elems []Value) Value {
	et := commonType("SetVal", elems)
	return Value{ty: Set(et), v: canonicalSet(elems)}
}

// SetValEmpty returns an empty set of element type et.
func SetValEmpty(et Type) Value {
	return Value{ty: Set(et), v: []Value{}}
}

// MapVal returns a map of the given elements. Keys are NFC-normalised. It
// panics if elems is empty, if element types differ or if two keys normalise
// to the same string.
func MapVal(elems map[string]Value) Value {
	vals := make([]Value, 0, len(elems))
	for _, k := range sortedKeys(elems) {
		vals = append(vals, elems[k])
	}
	et := commonType("MapVal", vals)
	payload, keys := canonicalMap("MapVal", elems)
	return Value{ty: Map(et), v: payload, keys: keys}
}

// MapValEmpty returns an empty map of element type et.
func MapValEmpty(et Type) Value {
	return Value{ty: Map(et), v: map[string]Value{}}
}

// ObjectVal returns an object whose type is derived from the attribute values.
func ObjectVal(attrs map[string]Value) Value {
	payload, keys := canonicalMap("ObjectVal", attrs)
	types := make(map[string]Type, len(payload))
	for k, v := range payload {
		types[k] = v.ty
	}
	return Value{ty: Object(types), v: payload, keys: keys}
}

// TupleVal returns a tuple whose type is derived from the element values.
func TupleVal(elems ...Value) Value {
	types := make([]Type, len(elems))
	for i, e := range elems {
		mustValue("TupleVal", e)
		types[i] = e.ty
	}
	return Value{ty: Tuple(types...), v: slices.Clone(elems)}
}

// CapsuleVal encapsulates a host value. It panics if t is not a capsule type
// or the dynamic type of native differs from the capsule's native type.
func CapsuleVal(t Type, native any) Value {
	ct, ok := t.(CapsuleType)
	if !ok {
		panic("cty: CapsuleVal requires a capsule type, got " + t.FriendlyName())
	}
	if reflect.TypeOf(native) != ct.native {
		panic(fmt.Sprintf("cty: capsule %s holds %s, got %T", ct.name, ct.native, native))
	}
	return Value{ty: t, v: native}
}

// DynamicVal wraps v so it can stand where the dynamic type is expected.
// The concrete type is remembered for equality and serialization. A value
// that is already dynamic is returned as is. Null and unknown values keep
// their marks but lose their concrete type, and an unknown keeps only the
// parts of its refinement that apply to any type.
func DynamicVal(v Value) Value {
	mustValue("DynamicVal", v)
	if isDynamic(v.ty) {
		return v
	}
	switch {
	case v.null:
		return Value{ty: DynamicPseudoType, null: true, marks: v.marks}
	case v.unknown:
		out := Value{ty: DynamicPseudoType, unknown: true, marks: v.marks}
		if r := v.refinement(); r != nil {
			if rr := r.restrict(DynamicPseudoType); !rr.IsEmpty() {
				out.v = &rr
			}
		}
		return out
	}
	return Value{ty: DynamicPseudoType, v: v}
}

// NullVal returns the null value of type t.
func NullVal(t Type) Value {
	mustType(t, "NullVal")
	return Value{ty: t, null: true}
}

// UnknownVal returns an unrefined unknown of type t.
func UnknownVal(t Type) Value {
	mustType(t, "UnknownVal")
	return Value{ty: t, unknown: true}
}

// RefinedUnknownVal returns an unknown of type t carrying r. An empty
// refinement yields a plain unknown. It fails with a *RefinementError when r
// does not apply to t or admits no value.
func RefinedUnknownVal(t Type, r Refinement) (Value, error) {
	mustType(t, "RefinedUnknownVal")
	if r.IsEmpty() {
		return UnknownVal(t), nil
	}
	if err := r.check(t); err != nil {
		return NilVal, err
	}
	rr := r.clone()
	return Value{ty: t, unknown: true, v: &rr}, nil
}

// Refine returns v with r merged into its refinement. Only unknown values can
// be refined.
func (v Value) Refine(r Refinement) (Value, error) {
	if !v.unknown {
		return NilVal, &RefinementError{Code: ErrCodeKnownValue, Message: "only unknown values can be refined"}
	}
	merged := Refinement{}
	if cur := v.refinement(); cur != nil {
		merged = cur.clone()
	}
	merged.NotNull = merged.NotNull || r.NotNull
	if r.StringPrefix != "" {
		if !strings.HasPrefix(r.StringPrefix, merged.StringPrefix) {
			if !strings.HasPrefix(merged.StringPrefix, r.StringPrefix) {
				return NilVal, &RefinementError{Code: ErrCodeEmptyRange, Message: "conflicting string prefixes"}
			}
		} else {
			merged.StringPrefix = r.StringPrefix
		}
	}
	if r.Lower != nil && (merged.Lower == nil || tighterLower(r.Lower, merged.Lower)) {
		merged.Lower = r.Lower.clone()
	}
	if r.Upper != nil && (merged.Upper == nil || tighterUpper(r.Upper, merged.Upper)) {
		merged.Upper = r.Upper.clone()
	}
	if r.LengthLower != nil && (merged.LengthLower == nil || *r.LengthLower > *merged.LengthLower) {
		merged.LengthLower = Int64Ptr(*r.LengthLower)
	}
	if r.LengthUpper != nil && (merged.LengthUpper == nil || *r.LengthUpper < *merged.LengthUpper) {
		merged.LengthUpper = Int64Ptr(*r.LengthUpper)
	}
	out, err := RefinedUnknownVal(v.ty, merged)
	if err != nil {
		return NilVal, err
	}
	out.marks = v.marks
	return out, nil
}

func tighterLower(a, b *Bound) bool {
	c := a.Value.Cmp(b.Value)
	return c > 0 || (c == 0 && !a.Inclusive)
}

func tighterUpper(a, b *Bound) bool {
	c := a.Value.Cmp(b.Value)
	return c < 0 || (c == 0 && !a.Inclusive)
}

// Type returns the type of v. For a dynamic value wrapping a concrete value
// it is DynamicPseudoType; use Inner to reach the concrete type.
func (v Value) Type() Type { return v.ty }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.null }

// IsKnown reports whether v is known (null counts as known).
func (v Value) IsKnown() bool { return !v.unknown }

// IsWhollyKnown reports whether v and every nested value are known.
func (v Value) IsWhollyKnown() bool {
	if v.unknown {
		return false
	}
	if v.null {
		return true
	}
	switch v.ty.Kind() {
	case KindList, KindTuple, KindSet:
		for _, e := range v.v.([]Value) {
			if !e.IsWhollyKnown() {
				return false
			}
		}
	case KindMap, KindObject:
		for _, e := range v.v.(map[string]Value) {
			if !e.IsWhollyKnown() {
				return false
			}
		}
	case KindDynamic:
		return v.v.(Value).IsWhollyKnown()
	}
	return true
}

// Refinement returns the refinement of an unknown value.
func (v Value) Refinement() (Refinement, bool) {
	r := v.refinement()
	if r == nil {
		return Refinement{}, false
	}
	return r.clone(), true
}

func (v Value) refinement() *Refinement {
	if !v.unknown {
		return nil
	}
	r, _ := v.v.(*Refinement)
	return r
}

func (v Value) isDynamicWrapper() bool {
	return !v.null && !v.unknown && isDynamic(v.ty)
}

// Inner returns the concrete value wrapped by a dynamic value, with the
// wrapper's marks added. Any other value is returned unchanged.
func (v Value) Inner() Value {
	if !v.isDynamicWrapper() {
		return v
	}
	return v.v.(Value).WithMarks(v.marks)
}

// AsString returns the payload of a known string. It panics otherwise.
func (v Value) AsString() string {
	v.mustKnown(KindString, "AsString")
	return v.v.(string)
}

// AsDecimal returns a copy of the payload of a known number. It panics otherwise.
func (v Value) AsDecimal() *apd.Decimal {
	v.mustKnown(KindNumber, "AsDecimal")
	return new(apd.Decimal).Set(v.v.(*apd.Decimal))
}

// True returns the payload of a known bool. It panics otherwise.
func (v Value) True() bool {
	v.mustKnown(KindBool, "True")
	return v.v.(bool)
}

// EncapsulatedValue returns the host value of a known capsule. It panics otherwise.
func (v Value) EncapsulatedValue() any {
	v.mustKnown(KindCapsule, "EncapsulatedValue")
	return v.v
}

// LengthInt returns the number of elements of a known collection, tuple or
// object. It panics for any other value.
func (v Value) LengthInt() int {
	if v.null || v.unknown {
		panic("cty: LengthInt on null or unknown value")
	}
	switch v.ty.Kind() {
	case KindList, KindTuple, KindSet:
		return len(v.v.([]Value))
	case KindMap, KindObject:
		return len(v.v.(map[string]Value))
	}
	panic("cty: LengthInt on " + v.ty.FriendlyName())
}

// KeyMap returns a copy of the original-key map of a map or object value.
func (v Value) KeyMap() KeyMap {
	if len(v.keys) == 0 {
		return nil
	}
	out := make(KeyMap, len(v.keys))
	for k, o := range v.keys {
		out[k] = o
	}
	return out
}

// OriginalKey returns the key key was built from, or key itself.
func (v Value) OriginalKey(key string) any {
	if o, ok := v.keys[key]; ok {
		return o
	}
	return key
}

// Index returns element i of a list or tuple.
func (v Value) Index(i int) (Value, error) {
	return Path{IndexStep{Index: i}}.Apply(v)
}

// GetAttr returns the named attribute of an object.
func (v Value) GetAttr(name string) (Value, error) {
	return Path{GetAttrStep{Name: name}}.Apply(v)
}

// MapIndex returns the element of a map under key.
func (v Value) MapIndex(key string) (Value, error) {
	return Path{KeyStep{Key: key}}.Apply(v)
}

// Elements iterates a known collection, tuple or object. Lists, tuples and
// sets yield their position as a number key; maps and objects yield string
// keys in canonical order. Iterating a value of any other kind yields nothing.
func (v Value) Elements() iter.Seq2[Value, Value] {
	return func(yield func(Value, Value) bool) {
		if v.null || v.unknown {
			return
		}
		switch p := v.v.(type) {
		case []Value:
			if !isSequenceKind(v.ty.Kind()) {
				return
			}
			for i, e := range p {
				if !yield(NumberIntVal(int64(i)), e) {
					return
				}
			}
		case map[string]Value:
			if k := v.ty.Kind(); k != KindMap && k != KindObject {
				return
			}
			for _, k := range sortedKeys(p) {
				if !yield(StringVal(k), p[k]) {
					return
				}
			}
		}
	}
}

func isSequenceKind(k Kind) bool {
	return k == KindList || k == KindTuple || k == KindSet
}

// WithElement returns a copy of list v with element i replaced.
func (v Value) WithElement(i int, e Value) (Value, error) {
	elems, err := v.listPayload("WithElement", e)
	if err != nil {
		return NilVal, err
	}
	if i < 0 || i >= len(elems) {
		return NilVal, &FunctionError{Code: ErrCodeInvalidParameter, Function: "WithElement", Param: "index",
			Message: fmt.Sprintf("index %d out of range for list of length %d", i, len(elems))}
	}
	out := slices.Clone(elems)
	out[i] = e
	v.v = out
	return v, nil
}

// Append returns a copy of list v with e added at the end.
func (v Value) Append(e Value) (Value, error) {
	elems, err := v.listPayload("Append", e)
	if err != nil {
		return NilVal, err
	}
	out := make([]Value, len(elems), len(elems)+1)
	copy(out, elems)
	v.v = append(out, e)
	return v, nil
}

func (v Value) listPayload(fn string, e Value) ([]Value, error) {
	lt, ok := v.ty.(ListType)
	if !ok || v.null || v.unknown {
		return nil, &FunctionError{Code: ErrCodeWrongType, Function: fn, Message: "requires a known list"}
	}
	if e.ty == nil || !e.ty.Equals(lt.elem) {
		return nil, &FunctionError{Code: ErrCodeWrongType, Function: fn, Param: "element",
			Message: "element type does not match " + lt.FriendlyName()}
	}
	return v.v.([]Value), nil
}

// WithKey returns a copy of map v with key set to e.
func (v Value) WithKey(key string, e Value) (Value, error) {
	mt, ok := v.ty.(MapType)
	if !ok || v.null || v.unknown {
		return NilVal, &FunctionError{Code: ErrCodeWrongType, Function: "WithKey", Message: "requires a known map"}
	}
	if e.ty == nil || !e.ty.Equals(mt.elem) {
		return NilVal, &FunctionError{Code: ErrCodeWrongType, Function: "WithKey", Param: "element",
			Message: "element type does not match " + mt.FriendlyName()}
	}
	canonical := norm.NFC.String(key)
	out := cloneMap(v.v.(map[string]Value))
	out[canonical] = e
	v.v = out
	v.keys = v.keys.without(canonical)
	if canonical != key {
		v.keys = v.keys.with(canonical, key)
	}
	return v, nil
}

// WithoutKey returns a copy of map v without key.
func (v Value) WithoutKey(key string) (Value, error) {
	if _, ok := v.ty.(MapType); !ok || v.null || v.unknown {
		return NilVal, &FunctionError{Code: ErrCodeWrongType, Function: "WithoutKey", Message: "requires a known map"}
	}
	canonical := norm.NFC.String(key)
	out := cloneMap(v.v.(map[string]Value))
	delete(out, canonical)
	v.v = out
	v.keys = v.keys.without(canonical)
	return v, nil
}

func (k KeyMap) with(canonical string, original any) KeyMap {
	out := make(KeyMap, len(k)+1)
	for c, o := range k {
		out[c] = o
	}
	out[canonical] = original
	return out
}

func (k KeyMap) without(canonical string) KeyMap {
	if _, ok := k[canonical]; !ok {
		return k
	}
	if len(k) == 1 {
		return nil
	}
	out := make(KeyMap, len(k)-1)
	for c, o := range k {
		if c != canonical {
			out[c] = o
		}
	}
	return out
}

// Native converts a wholly known value to plain Go data: string, *apd.Decimal,
// bool, []any, map[string]any, or the encapsulated host value. Nulls become
// nil. Marks are dropped.
func (v Value) Native() (any, error) {
	if v.unknown {
		return nil, &FunctionError{Code: ErrCodeWrongType, Function: "Native", Message: "value is unknown"}
	}
	if v.null {
		return nil, nil
	}
	switch p := v.v.(type) {
	case Value:
		if v.isDynamicWrapper() {
			return p.Native()
		}
	case []Value:
		if isSequenceKind(v.ty.Kind()) {
			out := make([]any, len(p))
			for i, e := range p {
				n, err := e.Native()
				if err != nil {
					return nil, fmt.Errorf("[%d]: %w", i, err)
				}
				out[i] = n
			}
			return out, nil
		}
	case map[string]Value:
		if k := v.ty.Kind(); k == KindMap || k == KindObject {
			out := make(map[string]any, len(p))
			for k, e := range p {
				n, err := e.Native()
				if err != nil {
					return nil, fmt.Errorf("%s: %w", k, err)
				}
				out[k] = n
			}
			return out, nil
		}
	case *apd.Decimal:
		if v.ty.Kind() == KindNumber {
			return new(apd.Decimal).Set(p), nil
		}
	}
	return v.v, nil
}

// Equal reports whether v and o have equal types, the same null and unknown
// state, equal marks at every level and equal payloads. Unknown values are
// equal when their refinements are. Numbers compare by value, so 1.0 equals 1.
func (v Value) Equal(o Value) bool {
	if v.ty == nil || o.ty == nil {
		return v.ty == nil && o.ty == nil
	}
	if !v.ty.Equals(o.ty) || v.null != o.null || v.unknown != o.unknown || !v.marks.Equal(o.marks) {
		return false
	}
	if v.null {
		return true
	}
	if v.unknown {
		a, b := v.refinement(), o.refinement()
		if a == nil || b == nil {
			return a == nil && b == nil
		}
		return a.Equal(*b)
	}

	switch t := v.ty.(type) {
	case primitiveType:
		if t.kind == KindNumber {
			return v.v.(*apd.Decimal).Cmp(o.v.(*apd.Decimal)) == 0
		}
		return v.v == o.v
	case ListType, TupleType:
		return valuesEqual(v.v.([]Value), o.v.([]Value))
	case SetType:
		return setsEqual(v.v.([]Value), o.v.([]Value))
	case MapType, ObjectType:
		a, b := v.v.(map[string]Value), o.v.(map[string]Value)
		if len(a) != len(b) {
			return false
		}
		for k, av := range a {
			bv, ok := b[k]
			if !ok || !av.Equal(bv) {
				return false
			}
		}
		return true
	case CapsuleType:
		return t.equalNative(v.v, o.v)
	case dynamicType:
		return v.v.(Value).Equal(o.v.(Value))
	}
	return false
}

func valuesEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func setsEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	if valuesEqual(a, b) {
		return true
	}
	// Capsule hashes may collide without equality, so canonical order is not
	// guaranteed to line up; fall back to matching.
	used := make([]bool, len(b))
outer:
	for _, x := range a {
		for j, y := range b {
			if !used[j] && x.Equal(y) {
				used[j] = true
				continue outer
			}
		}
		return false
	}
	return true
}

// hashKey renders v deterministically. Equal values have equal keys.
func (v Value) hashKey() string {
	var b strings.Builder
	v.writeKey(&b)
	return b.String()
}

func (v Value) writeKey(b *strings.Builder) {
	if len(v.marks) > 0 {
		b.WriteString("m")
		b.WriteString(v.marks.String())
	}
	switch {
	case v.null:
		b.WriteString("N")
		return
	case v.unknown:
		b.WriteString("U")
		if r := v.refinement(); r != nil {
			b.WriteString("<" + r.String() + ">")
		}
		return
	}
	switch v.ty.Kind() {
	case KindString:
		b.WriteString(strconv.Quote(v.v.(string)))
	case KindNumber:
		b.WriteString("#" + canonicalNumber(v.v.(*apd.Decimal)))
	case KindBool:
		if v.v.(bool) {
			b.WriteString("T")
		} else {
			b.WriteString("F")
		}
	case KindList, KindTuple, KindSet:
		b.WriteByte('[')
		for i, e := range v.v.([]Value) {
			if i > 0 {
				b.WriteByte(';')
			}
			e.writeKey(b)
		}
		b.WriteByte(']')
	case KindMap, KindObject:
		m := v.v.(map[string]Value)
		b.WriteByte('{')
		for i, k := range sortedKeys(m) {
			if i > 0 {
				b.WriteByte(';')
			}
			b.WriteString(strconv.Quote(k) + ":")
			m[k].writeKey(b)
		}
		b.WriteByte('}')
	case KindCapsule:
		ct := v.ty.(CapsuleType)
		if h := ct.hashNative(v.v); h != "" {
			b.WriteString("C" + h)
		} else {
			fmt.Fprintf(b, "C%v", v.v)
		}
	case KindDynamic:
		inner := v.v.(Value)
		b.WriteString("D<" + inner.ty.FriendlyName() + ">")
		inner.writeKey(b)
	}
}

// canonicalNumber renders d with trailing zeros removed, so 1.50 and 1.5
// render identically.
func canonicalNumber(d *apd.Decimal) string {
	var r apd.Decimal
	r.Reduce(d)
	return r.Text('G')
}

// canonicalSet deduplicates elems by Equal and orders them by hash key.
func canonicalSet(elems []Value) []Value {
	type keyed struct {
		key string
		val Value
	}
	ks := make([]keyed, 0, len(elems))
	for _, e := range elems {
		ks = append(ks, keyed{key: e.hashKey(), val: e})
	}
	slices.SortStableFunc(ks, func(a, b keyed) int { return strings.Compare(a.key, b.key) })

	out := make([]Value, 0, len(ks))
	for i, k := range ks {
		dup := false
		for j := i - 1; j >= 0 && ks[j].key == k.key; j-- {
			if ks[j].val.Equal(k.val) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, k.val)
		}
	}
	return out
}

func canonicalMap(fn string, elems map[string]Value) (map[string]Value, KeyMap) {
	out := make(map[string]Value, len(elems))
	var keys KeyMap
	for k, e := range elems {
		mustValue(fn, e)
		canonical := norm.NFC.String(k)
		if _, dup := out[canonical]; dup {
			panic(fmt.Sprintf("cty: %s: duplicate key %q after normalization", fn, canonical))
		}
		out[canonical] = e
		if canonical != k {
			keys = keys.with(canonical, k)
		}
	}
	return out, keys
}

func cloneMap(m map[string]Value) map[string]Value {
	out := make(map[string]Value, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func commonType(fn string, elems []Value) Type {
	if len(elems) == 0 {
		panic("cty: " + fn + " requires at least one element")
	}
	mustValue(fn, elems[0])
	et := elems[0].ty
	for i, e := range elems[1:] {
		mustValue(fn, e)
		if !e.ty.Equals(et) {
			panic(fmt.Sprintf("cty: %s: element %d is %s, want %s", fn, i+1, e.ty.FriendlyName(), et.FriendlyName()))
		}
	}
	return et
}

func mustValue(fn string, v Value) {
	if v.ty == nil {
		panic("cty: " + fn + ": NilVal is not a valid value")
	}
}

func (v Value) mustKnown(k Kind, fn string) {
	if v.ty == nil || v.ty.Kind() != k {
		got := "NilVal"
		if v.ty != nil {
			got = v.ty.FriendlyName()
		}
		panic(fmt.Sprintf("cty: %s on %s value", fn, got))
	}
	if v.null || v.unknown {
		panic(fmt.Sprintf("cty: %s on null or unknown value", fn))
	}
}

// transformDeep rebuilds v bottom-up, applying f to every nested value and
// finally to v itself.
func (v Value) transformDeep(f func(Value) Value) Value {
	if !v.null && !v.unknown && v.ty != nil {
		switch v.ty.Kind() {
		case KindList, KindTuple, KindSet:
			elems := v.v.([]Value)
			out := make([]Value, len(elems))
			for i, e := range elems {
				out[i] = e.transformDeep(f)
			}
			if v.ty.Kind() == KindSet {
				out = canonicalSet(out)
			}
			v.v = out
		case KindMap, KindObject:
			elems := v.v.(map[string]Value)
			out := make(map[string]Value, len(elems))
			for k, e := range elems {
				out[k] = e.transformDeep(f)
			}
			v.v = out
		case KindDynamic:
			v.v = v.v.(Value).transformDeep(f)
		}
	}
	return f(v)
}

// String renders v for diagnostics. The format is not stable.
func (v Value) String() string {
	var b strings.Builder
	v.render(&b)
	return b.String()
}

func (v Value) render(b *strings.Builder) {
	if v.ty == nil {
		b.WriteString("<nil>")
		return
	}
	switch {
	case v.null:
		b.WriteString("null")
	case v.unknown:
		b.WriteString("unknown(" + v.ty.FriendlyName())
		if r := v.refinement(); r != nil {
			b.WriteString(" " + r.String())
		}
		b.WriteString(")")
	default:
		switch v.ty.Kind() {
		case KindString:
			b.WriteString(strconv.Quote(v.v.(string)))
		case KindNumber:
			b.WriteString(v.v.(*apd.Decimal).Text('G'))
		case KindBool:
			b.WriteString(strconv.FormatBool(v.v.(bool)))
		case KindList, KindTuple, KindSet:
			b.WriteByte('[')
			for i, e := range v.v.([]Value) {
				if i > 0 {
					b.WriteString(", ")
				}
				e.render(b)
			}
			b.WriteByte(']')
		case KindMap, KindObject:
			m := v.v.(map[string]Value)
			b.WriteByte('{')
			for i, k := range sortedKeys(m) {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(strconv.Quote(k) + ": ")
				m[k].render(b)
			}
			b.WriteByte('}')
		case KindCapsule:
			fmt.Fprintf(b, "%s(%v)", v.ty.FriendlyName(), v.v)
		case KindDynamic:
			v.v.(Value).render(b)
		}
	}
	if len(v.marks) > 0 {
		b.WriteString(" marked " + v.marks.String())
	}
}
