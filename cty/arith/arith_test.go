package arith

import (
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cty/cty"
)

// rng builds an unknown number with the given bounds. A nil bound is open.
func rng(t *testing.T, lo, hi *cty.Bound) cty.Value {
	t.Helper()
	v, err := cty.RefinedUnknownVal(cty.Number, cty.Refinement{Lower: lo, Upper: hi})
	require.NoError(t, err)
	return v
}

func incl(n int64) *cty.Bound { return cty.IntBound(n, true) }
func excl(n int64) *cty.Bound { return cty.IntBound(n, false) }

func num(t *testing.T, s string) cty.Value {
	t.Helper()
	v, err := cty.ParseNumberVal(s)
	require.NoError(t, err)
	return v
}

// requireBounds checks the refinement of an unknown result. A nil want means
// the side must be open.
func requireBounds(t *testing.T, v cty.Value, lo, hi *cty.Bound) {
	t.Helper()
	require.False(t, v.IsKnown(), "want unknown, got %s", v)
	r, _ := v.Refinement()
	checkBound(t, "lower", r.Lower, lo)
	checkBound(t, "upper", r.Upper, hi)
}

func checkBound(t *testing.T, side string, got, want *cty.Bound) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got, "%s bound should be open", side)
		return
	}
	require.NotNil(t, got, "%s bound missing", side)
	assert.Zero(t, got.Value.Cmp(want.Value), "%s bound: got %s want %s", side, got.Value, want.Value)
	assert.Equal(t, want.Inclusive, got.Inclusive, "%s bound inclusivity", side)
}

func requireNumber(t *testing.T, v cty.Value, want string) {
	t.Helper()
	require.True(t, v.IsKnown(), "want known, got %s", v)
	require.False(t, v.IsNull())
	w, _, err := apd.NewFromString(want)
	require.NoError(t, err)
	assert.Zero(t, v.AsDecimal().Cmp(w), "got %s want %s", v.AsDecimal(), want)
}

func TestKnownArithmetic(t *testing.T) {
	tests := []struct {
		name string
		fn   func(a, b cty.Value) (cty.Value, error)
		a, b string
		want string
	}{
		{"add", Add, "1.5", "2.25", "3.75"},
		{"subtract", Subtract, "1", "3", "-2"},
		{"multiply", Multiply, "-4", "2.5", "-10"},
		{"divide", Divide, "1", "4", "0.25"},
		{"divide repeating", Divide, "10", "4", "2.5"},
		{"large", Add, "123456789012345678901234567890", "1", "123456789012345678901234567891"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(num(t, tt.a), num(t, tt.b))
			require.NoError(t, err)
			requireNumber(t, got, tt.want)
		})
	}
}

func TestMultiplyByNegativeSwapsBounds(t *testing.T) {
	x := rng(t, incl(10), excl(20))

	got, err := Multiply(cty.NumberIntVal(-2), x)
	require.NoError(t, err)
	requireBounds(t, got, excl(-40), incl(-20))

	got, err = Multiply(x, cty.NumberIntVal(-2))
	require.NoError(t, err)
	requireBounds(t, got, excl(-40), incl(-20))
}

func TestMultiplyByZeroIsKnown(t *testing.T) {
	for _, other := range []cty.Value{
		cty.UnknownVal(cty.Number),
		rng(t, incl(1), nil),
		cty.NumberIntVal(7),
	} {
		got, err := Multiply(cty.NumberIntVal(0), other)
		require.NoError(t, err)
		requireNumber(t, got, "0")

		got, err = Multiply(other, cty.NumberIntVal(0))
		require.NoError(t, err)
		requireNumber(t, got, "0")
	}
}

func TestMultiplyIntervals(t *testing.T) {
	tests := []struct {
		name   string
		x, y   cty.Value
		lo, hi *cty.Bound
	}{
		{"positive", rng(t, incl(2), incl(3)), rng(t, incl(4), excl(5)), incl(8), excl(15)},
		{"straddling", rng(t, incl(-1), incl(2)), rng(t, incl(3), incl(4)), incl(-4), incl(8)},
		{"zero endpoint reaches zero", rng(t, incl(0), incl(2)), rng(t, excl(1), excl(3)), incl(0), excl(6)},
		{"half open", rng(t, incl(2), nil), rng(t, incl(1), incl(3)), nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Multiply(tt.x, tt.y)
			require.NoError(t, err)
			requireBounds(t, got, tt.lo, tt.hi)
		})
	}
}

func TestDivideByZero(t *testing.T) {
	dividends := map[string]cty.Value{
		"known":   cty.NumberIntVal(1),
		"null":    cty.NullVal(cty.Number),
		"unknown": cty.UnknownVal(cty.Number),
		"refined": rng(t, incl(1), incl(2)),
	}
	for name, a := range dividends {
		t.Run(name, func(t *testing.T) {
			_, err := Divide(a, cty.NumberIntVal(0))
			require.Error(t, err)
			assert.True(t, cty.IsDivideByZero(err))

			var fe *cty.FunctionError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, "divide", fe.Function)
			assert.Equal(t, "b", fe.Param)
		})
	}
}

func TestDivideRefined(t *testing.T) {
	t.Run("by known", func(t *testing.T) {
		got, err := Divide(rng(t, incl(10), excl(20)), cty.NumberIntVal(-5))
		require.NoError(t, err)
		requireBounds(t, got, excl(-4), incl(-2))
	})

	t.Run("known by positive range", func(t *testing.T) {
		got, err := Divide(cty.NumberIntVal(12), rng(t, incl(2), incl(4)))
		require.NoError(t, err)
		requireBounds(t, got, incl(3), incl(6))
	})

	t.Run("known by range touching zero", func(t *testing.T) {
		got, err := Divide(cty.NumberIntVal(12), rng(t, excl(0), incl(4)))
		require.NoError(t, err)
		requireBounds(t, got, incl(3), nil)

		got, err = Divide(cty.NumberIntVal(-12), rng(t, excl(0), incl(4)))
		require.NoError(t, err)
		requireBounds(t, got, nil, incl(-3))
	})

	t.Run("divisor may be zero", func(t *testing.T) {
		got, err := Divide(cty.NumberIntVal(12), rng(t, incl(-1), incl(4)))
		require.NoError(t, err)
		requireBounds(t, got, nil, nil)
	})

	t.Run("range by range", func(t *testing.T) {
		got, err := Divide(rng(t, incl(4), incl(8)), rng(t, incl(2), incl(4)))
		require.NoError(t, err)
		requireBounds(t, got, incl(1), incl(4))
	})

	t.Run("zero by range", func(t *testing.T) {
		got, err := Divide(cty.NumberIntVal(0), rng(t, incl(1), incl(2)))
		require.NoError(t, err)
		requireNumber(t, got, "0")
	})
}

func TestDivideRoundsOutward(t *testing.T) {
	got, err := Divide(rng(t, incl(1), incl(2)), cty.NumberIntVal(3))
	require.NoError(t, err)
	r, ok := got.Refinement()
	require.True(t, ok)

	// Neither bound may exclude the true quotients 1/3 and 2/3.
	check := new(apd.Decimal)
	_, err = cty.DecimalContext().Mul(check, r.Lower.Value, apd.New(3, 0))
	require.NoError(t, err)
	assert.LessOrEqual(t, check.Cmp(apd.New(1, 0)), 0)
	_, err = cty.DecimalContext().Mul(check, r.Upper.Value, apd.New(3, 0))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, check.Cmp(apd.New(2, 0)), 0)
}

func TestAddSubtractBounds(t *testing.T) {
	x := rng(t, incl(1), excl(5))

	got, err := Add(x, cty.NumberIntVal(10))
	require.NoError(t, err)
	requireBounds(t, got, incl(11), excl(15))

	got, err = Add(x, rng(t, excl(0), nil))
	require.NoError(t, err)
	requireBounds(t, got, excl(1), nil)

	got, err = Subtract(x, rng(t, incl(1), incl(2)))
	require.NoError(t, err)
	requireBounds(t, got, incl(-1), excl(4))

	got, err = Subtract(cty.NumberIntVal(0), x)
	require.NoError(t, err)
	requireBounds(t, got, excl(-5), incl(-1))
}

func TestAddKnownToUnknownIsSound(t *testing.T) {
	// Whatever value the unknown takes, the concrete sum must satisfy the
	// bounds of the refined result.
	for _, l := range []int64{-7, 0, 3, 1000} {
		x := rng(t, incl(l), nil)
		got, err := Add(x, cty.NumberIntVal(5))
		require.NoError(t, err)
		requireBounds(t, got, incl(l+5), nil)

		for _, sample := range []int64{l, l + 1, l + 50} {
			sum, err := Add(cty.NumberIntVal(sample), cty.NumberIntVal(5))
			require.NoError(t, err)
			r, _ := got.Refinement()
			assert.GreaterOrEqual(t, sum.AsDecimal().Cmp(r.Lower.Value), 0)
		}
	}
}

func TestNegate(t *testing.T) {
	got, err := Negate(cty.NumberIntVal(4))
	require.NoError(t, err)
	requireNumber(t, got, "-4")

	got, err = Negate(rng(t, incl(1), excl(3)))
	require.NoError(t, err)
	requireBounds(t, got, excl(-3), incl(-1))

	got, err = Negate(rng(t, nil, incl(2)))
	require.NoError(t, err)
	requireBounds(t, got, incl(-2), nil)
}

func TestAbsolute(t *testing.T) {
	t.Run("known", func(t *testing.T) {
		got, err := Absolute(num(t, "-2.5"))
		require.NoError(t, err)
		requireNumber(t, got, "2.5")
	})

	tests := []struct {
		name   string
		x      cty.Value
		lo, hi *cty.Bound
	}{
		{"unrefined", cty.UnknownVal(cty.Number), nil, nil},
		{"non-negative kept", rng(t, incl(2), excl(9)), incl(2), excl(9)},
		{"non-positive flipped", rng(t, excl(-9), incl(-2)), incl(2), excl(9)},
		{"straddling lower wins", rng(t, excl(-10), incl(3)), incl(0), excl(10)},
		{"straddling upper wins", rng(t, incl(-1), incl(3)), incl(0), incl(3)},
		{"straddling tie", rng(t, excl(-3), incl(3)), incl(0), incl(3)},
		{"half open", rng(t, incl(-3), nil), incl(0), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Absolute(tt.x)
			require.NoError(t, err)
			requireBounds(t, got, tt.lo, tt.hi)
		})
	}
}

func TestNullOperandGivesUnrefinedUnknown(t *testing.T) {
	got, err := Add(cty.NullVal(cty.Number), rng(t, incl(1), nil))
	require.NoError(t, err)
	assert.False(t, got.IsKnown())
	_, refined := got.Refinement()
	assert.False(t, refined)
	assert.True(t, got.Type().Equals(cty.Number))

	got, err = Negate(cty.NullVal(cty.DynamicPseudoType))
	require.NoError(t, err)
	assert.False(t, got.IsKnown())
}

func TestMarksPropagate(t *testing.T) {
	a := cty.NumberIntVal(2).Mark("sensitive")
	b := rng(t, incl(1), incl(3)).Mark("derived")

	got, err := Multiply(a, b)
	require.NoError(t, err)
	assert.True(t, got.HasMark("sensitive"))
	assert.True(t, got.HasMark("derived"))
	unmarked, _ := got.Unmark()
	requireBounds(t, unmarked, incl(2), incl(6))

	got, err = Add(cty.NullVal(cty.Number).Mark("sensitive"), cty.NumberIntVal(1))
	require.NoError(t, err)
	assert.True(t, got.HasMark("sensitive"))

	got, err = Multiply(cty.NumberIntVal(0).Mark("zero"), cty.UnknownVal(cty.Number))
	require.NoError(t, err)
	assert.True(t, got.HasMark("zero"))
}

func TestWrongType(t *testing.T) {
	_, err := Add(cty.StringVal("1"), cty.NumberIntVal(1))
	var fe *cty.FunctionError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, cty.ErrCodeWrongType, fe.Code)
	assert.Equal(t, "a", fe.Param)

	_, err = Divide(cty.NumberIntVal(1), cty.True)
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "b", fe.Param)

	_, err = Negate(cty.NilVal)
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, cty.ErrCodeWrongType, fe.Code)
}

func TestDynamicOperands(t *testing.T) {
	got, err := Add(cty.DynamicVal(cty.NumberIntVal(2)), cty.NumberIntVal(3))
	require.NoError(t, err)
	requireNumber(t, got, "5")

	got, err = Add(cty.UnknownVal(cty.DynamicPseudoType), cty.NumberIntVal(3))
	require.NoError(t, err)
	assert.False(t, got.IsKnown())
	assert.True(t, got.Type().Equals(cty.Number))
}
