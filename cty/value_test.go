package cty

import (
	"reflect"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNumber(t *testing.T, s string) Value {
	t.Helper()
	v, err := ParseNumberVal(s)
	require.NoError(t, err)
	return v
}

func TestValueStates(t *testing.T) {
	known := StringVal("x")
	null := NullVal(String)
	unknown := UnknownVal(String)

	assert.True(t, known.IsKnown())
	assert.False(t, known.IsNull())
	assert.True(t, null.IsKnown(), "null is a known state")
	assert.True(t, null.IsNull())
	assert.False(t, unknown.IsKnown())
	assert.False(t, unknown.IsNull())

	assert.False(t, known.Equal(null))
	assert.False(t, null.Equal(unknown))
	assert.True(t, NullVal(String).Equal(NullVal(String)))
	assert.False(t, NullVal(String).Equal(NullVal(Number)))
}

func TestNumberEquality(t *testing.T) {
	assert.True(t, mustNumber(t, "1.0").Equal(NumberIntVal(1)))
	assert.True(t, mustNumber(t, "1.50").Equal(mustNumber(t, "1.5")))
	assert.False(t, mustNumber(t, "0.1").Equal(mustNumber(t, "0.10000000000000001")))
}

func TestParseNumberValRejectsNonFinite(t *testing.T) {
	for _, s := range []string{"NaN", "Infinity", "-inf", "abc", ""} {
		_, err := ParseNumberVal(s)
		require.Error(t, err, s)
		assert.True(t, IsValidationError(err))
	}
}

func TestNumberFloatValUsesShortestDecimal(t *testing.T) {
	v, err := NumberFloatVal(0.1)
	require.NoError(t, err)
	assert.Equal(t, "0.1", v.AsDecimal().String())
}

func TestStringValNormalises(t *testing.T) {
	assert.True(t, StringVal("e\u0301").Equal(StringVal("\u00e9")))
	assert.Equal(t, "\u00e9", StringVal("e\u0301").AsString())
}

func TestListValRequiresUniformTypes(t *testing.T) {
	assert.Panics(t, func() { ListVal(nil) })
	assert.Panics(t, func() { ListVal([]Value{StringVal("a"), NumberIntVal(1)}) })

	l := ListVal([]Value{StringVal("a"), StringVal("b")})
	assert.True(t, l.Type().Equals(List(String)))
	assert.Equal(t, 2, l.LengthInt())
}

func TestSetValDeduplicates(t *testing.T) {
	s := SetVal([]Value{NumberIntVal(2), mustNumber(t, "1.0"), NumberIntVal(1), NumberIntVal(2)})
	assert.Equal(t, 2, s.LengthInt())

	other := SetVal([]Value{NumberIntVal(1), NumberIntVal(2)})
	assert.True(t, s.Equal(other), "sets compare without regard to order")

	marked := SetVal([]Value{NumberIntVal(1), NumberIntVal(1).Mark("sensitive")})
	assert.Equal(t, 2, marked.LengthInt(), "marks take part in equality")
}

func TestMapAndObjectVal(t *testing.T) {
	m := MapVal(map[string]Value{"b": NumberIntVal(2), "a": NumberIntVal(1)})
	assert.True(t, m.Type().Equals(Map(Number)))

	var keys []string
	for k := range m.Elements() {
		keys = append(keys, k.AsString())
	}
	assert.Equal(t, []string{"a", "b"}, keys)

	o := ObjectVal(map[string]Value{"name": StringVal("Alice"), "age": NumberIntVal(30)})
	assert.True(t, o.Type().Equals(Object(map[string]Type{"name": String, "age": Number})))
	assert.True(t, o.Equal(o))
}

func TestObjectValRecordsOriginalKeys(t *testing.T) {
	o := ObjectVal(map[string]Value{"e\u0301": True})
	assert.Equal(t, KeyMap{"\u00e9": "e\u0301"}, o.KeyMap())
	assert.Equal(t, "e\u0301", o.OriginalKey("\u00e9"))
	assert.Equal(t, "other", o.OriginalKey("other"))

	plain := ObjectVal(map[string]Value{"\u00e9": True})
	assert.Nil(t, plain.KeyMap())
	assert.True(t, o.Equal(plain), "key maps take no part in equality")
}

func TestTupleVal(t *testing.T) {
	tv := TupleVal(StringVal("a"), NumberIntVal(1))
	assert.True(t, tv.Type().Equals(Tuple(String, Number)))

	e, err := tv.Index(1)
	require.NoError(t, err)
	assert.True(t, e.Equal(NumberIntVal(1)))
}

func TestCapsuleVal(t *testing.T) {
	ct := Capsule("thing", reflect.TypeOf(&hostThing{}))
	a := &hostThing{id: 1}

	v := CapsuleVal(ct, a)
	assert.Same(t, a, v.EncapsulatedValue())
	assert.True(t, v.Equal(CapsuleVal(ct, &hostThing{id: 1})), "default equality is deep")
	assert.False(t, v.Equal(CapsuleVal(ct, &hostThing{id: 2})))
	assert.Panics(t, func() { CapsuleVal(ct, hostThing{}) })

	byID := CapsuleWithOps("thing", reflect.TypeOf(&hostThing{}), CapsuleOps{
		Equals: func(a, b any) bool { return a.(*hostThing).id%10 == b.(*hostThing).id%10 },
	})
	assert.True(t, CapsuleVal(byID, &hostThing{id: 3}).Equal(CapsuleVal(byID, &hostThing{id: 13})))
}

func TestDynamicVal(t *testing.T) {
	inner := StringVal("x")
	d := DynamicVal(inner)

	assert.True(t, d.Type().Equals(DynamicPseudoType))
	assert.True(t, d.Inner().Equal(inner))
	assert.True(t, DynamicVal(d).Equal(d), "wrapping is idempotent")
	assert.False(t, d.Equal(DynamicVal(NumberIntVal(1))))

	null := DynamicVal(NullVal(String))
	assert.True(t, null.IsNull())
	assert.True(t, null.Type().Equals(DynamicPseudoType))

	r, err := RefinedUnknownVal(Number, Refinement{NotNull: true, Lower: IntBound(0, true)})
	require.NoError(t, err)
	du := DynamicVal(r)
	dr, ok := du.Refinement()
	require.True(t, ok)
	assert.Equal(t, Refinement{NotNull: true}, dr, "only type-independent refinements survive")
}

func TestRefinedUnknownVal(t *testing.T) {
	r := Refinement{Lower: IntBound(1, true), Upper: IntBound(5, false)}
	v, err := RefinedUnknownVal(Number, r)
	require.NoError(t, err)
	assert.False(t, v.IsKnown())

	got, ok := v.Refinement()
	require.True(t, ok)
	assert.True(t, got.Equal(r))

	same, err := RefinedUnknownVal(Number, Refinement{Lower: IntBound(1, true), Upper: IntBound(5, false)})
	require.NoError(t, err)
	assert.True(t, v.Equal(same))
	assert.False(t, v.Equal(UnknownVal(Number)), "a refined unknown carries more than a plain one")

	plain, err := RefinedUnknownVal(Number, Refinement{})
	require.NoError(t, err)
	assert.True(t, plain.Equal(UnknownVal(Number)))
}

func TestRefineTightens(t *testing.T) {
	v, err := UnknownVal(Number).Refine(Refinement{Lower: IntBound(0, true)})
	require.NoError(t, err)
	v, err = v.Refine(Refinement{Lower: IntBound(0, false), Upper: IntBound(10, true)})
	require.NoError(t, err)

	r, _ := v.Refinement()
	assert.False(t, r.Lower.Inclusive, "an exclusive bound at the same point is tighter")
	assert.Equal(t, "10", r.Upper.Value.String())

	_, err = StringVal("x").Refine(Refinement{NotNull: true})
	require.Error(t, err)
	var re *RefinementError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeKnownValue, re.Code)
}

func TestCopyOnWrite(t *testing.T) {
	l := ListVal([]Value{NumberIntVal(1), NumberIntVal(2)})

	l2, err := l.WithElement(0, NumberIntVal(9))
	require.NoError(t, err)
	l3, err := l.Append(NumberIntVal(3))
	require.NoError(t, err)

	first, _ := l.Index(0)
	assert.True(t, first.Equal(NumberIntVal(1)), "original is unchanged")
	assert.Equal(t, 2, l.LengthInt())
	assert.Equal(t, 3, l3.LengthInt())
	changed, _ := l2.Index(0)
	assert.True(t, changed.Equal(NumberIntVal(9)))

	_, err = l.Append(StringVal("x"))
	assert.True(t, IsFunctionError(err))
	_, err = l.WithElement(5, NumberIntVal(0))
	assert.True(t, IsFunctionError(err))

	m := MapVal(map[string]Value{"a": True})
	m2, err := m.WithKey("b", False)
	require.NoError(t, err)
	m3, err := m2.WithoutKey("a")
	require.NoError(t, err)
	assert.Equal(t, 1, m.LengthInt())
	assert.Equal(t, 2, m2.LengthInt())
	assert.Equal(t, 1, m3.LengthInt())
	_, err = m3.MapIndex("a")
	assert.True(t, IsPathError(err))
}

func TestNative(t *testing.T) {
	v := ObjectVal(map[string]Value{
		"name": StringVal("Alice"),
		"tags": ListVal([]Value{StringVal("a")}),
		"age":  NumberIntVal(30),
		"nick": NullVal(String),
	})
	n, err := v.Native()
	require.NoError(t, err)

	m := n.(map[string]any)
	assert.Equal(t, "Alice", m["name"])
	assert.Equal(t, []any{"a"}, m["tags"])
	assert.Nil(t, m["nick"])
	assert.Equal(t, 0, m["age"].(*apd.Decimal).Cmp(apd.New(30, 0)))

	_, err = ListVal([]Value{UnknownVal(String)}).Native()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[0]")
}

func TestIsWhollyKnown(t *testing.T) {
	assert.True(t, ListVal([]Value{StringVal("a")}).IsWhollyKnown())
	assert.False(t, ListVal([]Value{UnknownVal(String)}).IsWhollyKnown())
	assert.False(t, DynamicVal(TupleVal(UnknownVal(Bool))).IsWhollyKnown())
	assert.True(t, NullVal(List(String)).IsWhollyKnown())
}

func TestElementsStopsEarly(t *testing.T) {
	l := ListVal([]Value{NumberIntVal(1), NumberIntVal(2), NumberIntVal(3)})
	var seen []int64
	for k := range l.Elements() {
		i, err := k.AsDecimal().Int64()
		require.NoError(t, err)
		seen = append(seen, i)
		if i == 1 {
			break
		}
	}
	assert.Equal(t, []int64{0, 1}, seen)

	count := 0
	for range StringVal("x").Elements() {
		count++
	}
	assert.Zero(t, count, "primitives have no elements")
}

func TestAccessorsPanicOnMisuse(t *testing.T) {
	assert.Panics(t, func() { NumberIntVal(1).AsString() })
	assert.Panics(t, func() { UnknownVal(String).AsString() })
	assert.Panics(t, func() { NullVal(Bool).True() })
	assert.Panics(t, func() { StringVal("x").LengthInt() })
}

func TestValueString(t *testing.T) {
	v := ObjectVal(map[string]Value{"a": NumberIntVal(1), "b": UnknownVal(String)}).Mark("sensitive")
	assert.Equal(t, `{"a": 1, "b": unknown(string)} marked {sensitive}`, v.String())
}
