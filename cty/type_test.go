package cty

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeEquals(t *testing.T) {
	tests := []struct {
		name string
		a, b Type
		want bool
	}{
		{"same primitive", String, String, true},
		{"different primitives", String, Number, false},
		{"dynamic", DynamicPseudoType, DynamicPseudoType, true},
		{"dynamic vs primitive", DynamicPseudoType, Bool, false},
		{"list elem equal", List(String), List(String), true},
		{"list elem differs", List(String), List(Number), false},
		{"list vs set", List(String), Set(String), false},
		{"map nested", Map(List(Bool)), Map(List(Bool)), true},
		{"object equal", Object(map[string]Type{"a": String, "b": Number}), Object(map[string]Type{"b": Number, "a": String}), true},
		{"object extra attr", Object(map[string]Type{"a": String}), Object(map[string]Type{"a": String, "b": Number}), false},
		{"object attr type differs", Object(map[string]Type{"a": String}), Object(map[string]Type{"a": Number}), false},
		{"tuple equal", Tuple(String, Number), Tuple(String, Number), true},
		{"tuple order matters", Tuple(String, Number), Tuple(Number, String), false},
		{"tuple arity", Tuple(String), Tuple(String, String), false},
		{"empty tuple vs empty object", EmptyTuple, EmptyObject, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equals(tt.b))
			assert.Equal(t, tt.want, tt.b.Equals(tt.a), "equality must be symmetric")
		})
	}
}

func TestTypeUsableAs(t *testing.T) {
	person := Object(map[string]Type{"name": String, "age": Number})
	named := Object(map[string]Type{"name": String})

	tests := []struct {
		name       string
		have, want Type
		usable     bool
	}{
		{"anything as dynamic", person, DynamicPseudoType, true},
		{"dynamic only as dynamic", DynamicPseudoType, String, false},
		{"primitive exact", Number, Number, true},
		{"primitive mismatch", Number, String, false},
		{"object superset as subset", person, named, true},
		{"object subset as superset", named, person, false},
		{"list covariant", List(person), List(named), true},
		{"list into dynamic elem", List(String), List(DynamicPseudoType), true},
		{"list not usable as set", List(String), Set(String), false},
		{"tuple pairwise", Tuple(person, Number), Tuple(named, DynamicPseudoType), true},
		{"tuple arity", Tuple(String), Tuple(String, String), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.usable, tt.have.UsableAs(tt.want))
		})
	}
}

func TestFriendlyName(t *testing.T) {
	assert.Equal(t, "string", String.FriendlyName())
	assert.Equal(t, "list of number", List(Number).FriendlyName())
	assert.Equal(t, "map of set of bool", Map(Set(Bool)).FriendlyName())
	assert.Equal(t, "object", EmptyObject.FriendlyName())
	assert.Equal(t, "dynamic", DynamicPseudoType.FriendlyName())
}

func TestObjectAttributeNamesAreCanonical(t *testing.T) {
	// "e\u0301" (e and a combining acute) normalises to "\u00e9".
	ot := Object(map[string]Type{"zeta": String, "e\u0301": Number, "alpha": Bool}).(ObjectType)

	assert.Equal(t, []string{"alpha", "zeta", "\u00e9"}, ot.AttributeNames())
	at, ok := ot.AttributeType("\u00e9")
	assert.True(t, ok)
	assert.True(t, at.Equals(Number))
}

func TestObjectRejectsNormalisationCollision(t *testing.T) {
	assert.Panics(t, func() {
		Object(map[string]Type{"e\u0301": String, "\u00e9": String})
	})
}

func TestConstructorsRejectNil(t *testing.T) {
	assert.Panics(t, func() { List(nil) })
	assert.Panics(t, func() { Map(nil) })
	assert.Panics(t, func() { Tuple(String, nil) })
	assert.Panics(t, func() { Object(map[string]Type{"a": nil}) })
	assert.Panics(t, func() { Capsule("x", nil) })
}

type hostThing struct{ id int }

func TestCapsuleIdentity(t *testing.T) {
	a := Capsule("thing", reflect.TypeOf(&hostThing{}))
	b := Capsule("other name", reflect.TypeOf(&hostThing{}))
	c := Capsule("thing", reflect.TypeOf(hostThing{}))

	assert.True(t, a.Equals(b), "capsules compare by native type, not name")
	assert.False(t, a.Equals(c))
	assert.Equal(t, "thing", a.FriendlyName())
}

func TestCapsuleOpsRecoverPanics(t *testing.T) {
	ct := CapsuleWithOps("boom", reflect.TypeOf(0), CapsuleOps{
		Equals: func(a, b any) bool { panic("no") },
		Hash:   func(v any) string { panic("no") },
	}).(CapsuleType)

	assert.False(t, ct.equalNative(1, 1))
	assert.Equal(t, "", ct.hashNative(1))
}

func TestCompareKeysUTF16(t *testing.T) {
	// U+10000 encodes as a surrogate pair starting 0xD800, which sorts before
	// U+E000 in UTF-16 even though its UTF-8 encoding sorts after.
	assert.Equal(t, -1, compareKeysUTF16("\U00010000", "\uE000"))
	assert.Equal(t, 1, compareKeysUTF16("b", "a"))
	assert.Equal(t, -1, compareKeysUTF16("a", "ab"))
	assert.Equal(t, 0, compareKeysUTF16("same", "same"))
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]int{"c": 1, "a": 2, "b": 3}))
}
