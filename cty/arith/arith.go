package arith

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/cty/cty"
)

type binop func(ctx *apd.Context, d, x, y *apd.Decimal) (apd.Condition, error)

var (
	add binop = (*apd.Context).Add
	sub binop = (*apd.Context).Sub
	mul binop = (*apd.Context).Mul
	quo binop = (*apd.Context).Quo
)

// Bounds are rounded outwards so rounding never tightens them.
var (
	exactCtx = cty.DecimalContext()
	floorCtx = withRounding(apd.RoundFloor)
	ceilCtx  = withRounding(apd.RoundCeiling)
)

func withRounding(r apd.Rounder) *apd.Context {
	c := exactCtx.WithPrecision(exactCtx.Precision)
	c.Rounding = r
	return c
}

// Add returns a + b.
func Add(a, b cty.Value) (cty.Value, error) {
	return binary("add", a, b, func(x, y cty.Value) (cty.Value, error) {
		if x.IsKnown() && y.IsKnown() {
			return known("add", add, x, y)
		}
		xi, yi := intervalOf(x), intervalOf(y)
		lo, err := combine(floorCtx, add, xi.lo, yi.lo)
		if err != nil {
			return cty.NilVal, arithError("add", err)
		}
		hi, err := combine(ceilCtx, add, xi.hi, yi.hi)
		if err != nil {
			return cty.NilVal, arithError("add", err)
		}
		return interval{lo: lo, hi: hi}.value(), nil
	})
}

// Subtract returns a - b. Bounds land on the swapped side of b: the lower
// bound of the result comes from the upper bound of b.
func Subtract(a, b cty.Value) (cty.Value, error) {
	return binary("subtract", a, b, func(x, y cty.Value) (cty.Value, error) {
		if x.IsKnown() && y.IsKnown() {
			return known("subtract", sub, x, y)
		}
		xi, yi := intervalOf(x), intervalOf(y)
		lo, err := combine(floorCtx, sub, xi.lo, yi.hi)
		if err != nil {
			return cty.NilVal, arithError("subtract", err)
		}
		hi, err := combine(ceilCtx, sub, xi.hi, yi.lo)
		if err != nil {
			return cty.NilVal, arithError("subtract", err)
		}
		return interval{lo: lo, hi: hi}.value(), nil
	})
}

// Multiply returns a * b. Multiplying by an exact zero gives a known zero
// even when the other operand is unknown. Multiplying a refined unknown by a
// negative number swaps its bounds and flips their signs.
func Multiply(a, b cty.Value) (cty.Value, error) {
	return binary("multiply", a, b, func(x, y cty.Value) (cty.Value, error) {
		if isZero(x) || isZero(y) {
			return cty.NumberIntVal(0), nil
		}
		switch {
		case x.IsKnown() && y.IsKnown():
			return known("multiply", mul, x, y)
		case x.IsKnown():
			iv, err := scale(mul, intervalOf(y), x.AsDecimal())
			return iv.value(), wrapArith("multiply", err)
		case y.IsKnown():
			iv, err := scale(mul, intervalOf(x), y.AsDecimal())
			return iv.value(), wrapArith("multiply", err)
		}
		iv, err := product(mul, true, intervalOf(x), intervalOf(y))
		return iv.value(), wrapArith("multiply", err)
	})
}

// Divide returns a / b. A known divisor of exactly zero is an error for any
// dividend, including null and unknown ones. An unknown divisor only yields
// bounds when its range excludes zero.
func Divide(a, b cty.Value) (cty.Value, error) {
	return binary("divide", a, b, func(x, y cty.Value) (cty.Value, error) {
		switch {
		case x.IsKnown() && y.IsKnown():
			return known("divide", quo, x, y)
		case y.IsKnown():
			iv, err := scale(quo, intervalOf(x), y.AsDecimal())
			return iv.value(), wrapArith("divide", err)
		}

		yi := intervalOf(y)
		if !yi.excludesZero() {
			return cty.UnknownVal(cty.Number), nil
		}
		if isZero(x) {
			return cty.NumberIntVal(0), nil
		}
		if x.IsKnown() {
			iv, err := divideKnown(x.AsDecimal(), yi)
			return iv.value(), wrapArith("divide", err)
		}
		if isZeroBound(yi.lo) || isZeroBound(yi.hi) {
			// The divisor approaches zero; the quotient is unbounded.
			return cty.UnknownVal(cty.Number), nil
		}
		iv, err := product(quo, false, intervalOf(x), yi)
		return iv.value(), wrapArith("divide", err)
	})
}

// Negate returns -a.
func Negate(a cty.Value) (cty.Value, error) {
	return unary("negate", a, func(x cty.Value) (cty.Value, error) {
		if x.IsKnown() {
			return cty.NumberVal(new(apd.Decimal).Neg(x.AsDecimal())), nil
		}
		iv := intervalOf(x)
		return interval{lo: negBound(iv.hi), hi: negBound(iv.lo)}.value(), nil
	})
}

// Absolute returns |a|. For an unknown, a range that is entirely
// non-negative is kept, one that is entirely non-positive is negated, and one
// that may straddle zero becomes [0, max(|lower|, |upper|)].
func Absolute(a cty.Value) (cty.Value, error) {
	return unary("absolute", a, func(x cty.Value) (cty.Value, error) {
		if x.IsKnown() {
			return cty.NumberVal(new(apd.Decimal).Abs(x.AsDecimal())), nil
		}
		iv := intervalOf(x)
		switch {
		case iv.lo == nil && iv.hi == nil:
			return cty.UnknownVal(cty.Number), nil
		case iv.lo != nil && iv.lo.Value.Sign() >= 0:
			return iv.value(), nil
		case iv.hi != nil && iv.hi.Value.Sign() <= 0:
			return interval{lo: negBound(iv.hi), hi: negBound(iv.lo)}.value(), nil
		}

		out := interval{lo: cty.IntBound(0, true)}
		if iv.lo != nil && iv.hi != nil {
			neg := negBound(iv.lo)
			switch c := neg.Value.Cmp(iv.hi.Value); {
			case c > 0:
				out.hi = neg
			case c < 0:
				out.hi = cty.NewBound(iv.hi.Value, iv.hi.Inclusive)
			default:
				out.hi = cty.NewBound(iv.hi.Value, iv.hi.Inclusive || iv.lo.Inclusive)
			}
		}
		return out.value(), nil
	})
}

// binary checks both operands, applies the null rule and the marks rule, and
// runs op on unmarked, non-null number operands.
func binary(fn string, a, b cty.Value, op func(x, y cty.Value) (cty.Value, error)) (cty.Value, error) {
	x, err := numberOperand(fn, "a", a)
	if err != nil {
		return cty.NilVal, err
	}
	y, err := numberOperand(fn, "b", b)
	if err != nil {
		return cty.NilVal, err
	}
	if fn == "divide" && isZero(y) {
		return cty.NilVal, &cty.FunctionError{
			Code:     cty.ErrCodeDivideByZero,
			Function: fn,
			Param:    "b",
			Message:  "divisor is exactly zero",
		}
	}

	x, xm := x.Unmark()
	y, ym := y.Unmark()
	marks := xm.Union(ym)
	if x.IsNull() || y.IsNull() {
		return cty.UnknownVal(cty.Number).WithMarks(marks), nil
	}
	out, err := op(x, y)
	if err != nil {
		return cty.NilVal, err
	}
	return out.WithMarks(marks), nil
}

func unary(fn string, a cty.Value, op func(x cty.Value) (cty.Value, error)) (cty.Value, error) {
	x, err := numberOperand(fn, "a", a)
	if err != nil {
		return cty.NilVal, err
	}
	x, marks := x.Unmark()
	if x.IsNull() {
		return cty.UnknownVal(cty.Number).WithMarks(marks), nil
	}
	out, err := op(x)
	if err != nil {
		return cty.NilVal, err
	}
	return out.WithMarks(marks), nil
}

// numberOperand unwraps dynamic values and checks for a number. A null or
// unknown of dynamic type stands for a number whose type is not yet known.
func numberOperand(fn, param string, v cty.Value) (cty.Value, error) {
	if v.Type() == nil {
		return cty.NilVal, &cty.FunctionError{Code: cty.ErrCodeWrongType, Function: fn, Param: param, Message: "number required, got NilVal"}
	}
	v = v.Inner()
	switch {
	case v.Type().Equals(cty.Number):
		return v, nil
	case v.Type().Equals(cty.DynamicPseudoType) && v.IsNull():
		return cty.NullVal(cty.Number).WithMarks(v.Marks()), nil
	case v.Type().Equals(cty.DynamicPseudoType) && !v.IsKnown():
		return cty.UnknownVal(cty.Number).WithMarks(v.Marks()), nil
	}
	return cty.NilVal, &cty.FunctionError{
		Code:     cty.ErrCodeWrongType,
		Function: fn,
		Param:    param,
		Message:  "number required, got " + v.Type().FriendlyName(),
	}
}

func known(fn string, op binop, x, y cty.Value) (cty.Value, error) {
	d := new(apd.Decimal)
	if _, err := op(exactCtx, d, x.AsDecimal(), y.AsDecimal()); err != nil {
		return cty.NilVal, arithError(fn, err)
	}
	if d.Form != apd.Finite {
		return cty.NilVal, arithError(fn, fmt.Errorf("result is not finite"))
	}
	return cty.NumberVal(d), nil
}

func isZero(v cty.Value) bool {
	return v.IsKnown() && !v.IsNull() && v.AsDecimal().IsZero()
}

func arithError(fn string, err error) error {
	return &cty.FunctionError{Code: cty.ErrCodeArithmetic, Function: fn, Message: err.Error()}
}

func wrapArith(fn string, err error) error {
	if err == nil {
		return nil
	}
	return arithError(fn, err)
}
