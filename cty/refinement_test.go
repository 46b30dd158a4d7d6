package cty

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefinementCheck(t *testing.T) {
	tests := []struct {
		name string
		ty   Type
		r    Refinement
		code RefinementErrorCode
	}{
		{"bounds on number", Number, Refinement{Lower: IntBound(1, true), Upper: IntBound(2, true)}, ""},
		{"point range inclusive", Number, Refinement{Lower: IntBound(1, true), Upper: IntBound(1, true)}, ""},
		{"point range exclusive", Number, Refinement{Lower: IntBound(1, true), Upper: IntBound(1, false)}, ErrCodeEmptyRange},
		{"inverted range", Number, Refinement{Lower: IntBound(3, true), Upper: IntBound(2, true)}, ErrCodeEmptyRange},
		{"bounds on string", String, Refinement{Lower: IntBound(1, true)}, ErrCodeNotApplicable},
		{"prefix on string", String, Refinement{StringPrefix: "ab"}, ""},
		{"prefix on number", Number, Refinement{StringPrefix: "ab"}, ErrCodeNotApplicable},
		{"length on list", List(String), Refinement{LengthLower: Int64Ptr(1), LengthUpper: Int64Ptr(3)}, ""},
		{"length on tuple", Tuple(String), Refinement{LengthLower: Int64Ptr(1)}, ErrCodeNotApplicable},
		{"negative length", Set(String), Refinement{LengthLower: Int64Ptr(-1)}, ErrCodeInvalidLength},
		{"inverted length", Map(String), Refinement{LengthLower: Int64Ptr(4), LengthUpper: Int64Ptr(3)}, ErrCodeInvalidLength},
		{"not null on anything", DynamicPseudoType, Refinement{NotNull: true}, ""},
		{"bounds on dynamic", DynamicPseudoType, Refinement{Upper: IntBound(1, true)}, ErrCodeNotApplicable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RefinedUnknownVal(tt.ty, tt.r)
			if tt.code == "" {
				require.NoError(t, err)
				return
			}
			var re *RefinementError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.code, re.Code)
			assert.True(t, IsRefinementError(err))
		})
	}
}

func TestRefinementIsolation(t *testing.T) {
	b := IntBound(5, true)
	v, err := RefinedUnknownVal(Number, Refinement{Lower: b})
	require.NoError(t, err)

	b.Value.SetInt64(100)
	r, _ := v.Refinement()
	assert.Equal(t, "5", r.Lower.Value.String(), "the value holds its own copy of the bound")

	r.Lower.Value.SetInt64(7)
	again, _ := v.Refinement()
	assert.Equal(t, "5", again.Lower.Value.String())
}

func TestRefinementString(t *testing.T) {
	r := Refinement{NotNull: true, Lower: IntBound(1, true), Upper: IntBound(5, false)}
	assert.Equal(t, "notnull range=[1, 5)", r.String())

	l := Refinement{LengthUpper: Int64Ptr(3)}
	assert.Equal(t, "len=0..3", l.String())
}
