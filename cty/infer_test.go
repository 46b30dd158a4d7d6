package cty

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfer(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want Type
	}{
		{"string", "x", String},
		{"bytes", []byte("x"), String},
		{"int", 3, Number},
		{"json number", json.Number("1.5"), Number},
		{"bool", false, Bool},
		{"nil", nil, DynamicPseudoType},
		{"object", map[string]any{"name": "Alice", "age": 30}, personType},
		{"uniform list", []any{1, 2}, List(Number)},
		{"typed slice", []string{"a"}, List(String)},
		{"empty list", []any{}, List(DynamicPseudoType)},
		{"mixed list", []any{1, "a"}, List(DynamicPseudoType)},
		{"list with null", []any{nil, "a"}, List(DynamicPseudoType)},
		{"int keyed map", map[int]string{1: "a", 2: "b"}, Map(String)},
		{"mixed map", map[int]any{1: "a", 2: true}, Map(DynamicPseudoType)},
		{"any keyed strings", map[any]any{"k": 1}, Object(map[string]Type{"k": Number})},
		{"nested", map[string]any{"xs": []any{map[string]any{"a": true}}},
			Object(map[string]Type{"xs": List(Object(map[string]Type{"a": Bool}))})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val, err := NewValidator().Infer(tt.raw)
			require.NoError(t, err)
			assert.True(t, val.Type().Equals(tt.want), "got %s", TypeString(val.Type()))
		})
	}
}

func TestInferRejectsInvalidUTF8(t *testing.T) {
	_, err := Infer(map[string]any{"raw": []byte{0x80}})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, ErrCodeInvalidString, ve.Code)
	assert.Equal(t, "raw", ve.Path.String())
}

func TestInferMixedListWrapsElements(t *testing.T) {
	val, err := Infer([]any{1, "a"})
	require.NoError(t, err)

	first, err := val.Index(0)
	require.NoError(t, err)
	assert.True(t, first.Equal(DynamicVal(NumberIntVal(1))))
}

func TestInferKeepsValues(t *testing.T) {
	in := TupleVal(StringVal("a")).Mark("m")
	val, err := Infer(map[string]any{"t": in})
	require.NoError(t, err)

	got, err := val.GetAttr("t")
	require.NoError(t, err)
	assert.True(t, got.Equal(in))
}

func TestInferRejectsUnsupported(t *testing.T) {
	_, err := Infer(map[string]any{"f": func() {}})
	ve := requireValidationCode(t, err, ErrCodeUninferrable)
	assert.Equal(t, "f", ve.Path.String())

	_, err = NewValidator().InferType(struct{}{})
	assert.True(t, IsValidationError(err))
}
