package arith

import (
	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/cty/cty"
)

// interval is what is known about a number: optional lower and upper
// bounds. A known number is the closed interval [n, n].
type interval struct {
	lo, hi *cty.Bound
}

func intervalOf(v cty.Value) interval {
	if v.IsKnown() {
		d := v.AsDecimal()
		return interval{lo: &cty.Bound{Value: d, Inclusive: true}, hi: &cty.Bound{Value: d, Inclusive: true}}
	}
	r, ok := v.Refinement()
	if !ok {
		return interval{}
	}
	return interval{lo: r.Lower, hi: r.Upper}
}

// value returns an unknown number carrying the interval's bounds, or a plain
// unknown when none were derived.
func (iv interval) value() cty.Value {
	if iv.lo == nil && iv.hi == nil {
		return cty.UnknownVal(cty.Number)
	}
	v, err := cty.RefinedUnknownVal(cty.Number, cty.Refinement{Lower: iv.lo, Upper: iv.hi})
	if err != nil {
		return cty.UnknownVal(cty.Number)
	}
	return v
}

// excludesZero reports whether the interval is bounded on both sides and
// lies strictly on one side of zero.
func (iv interval) excludesZero() bool {
	if iv.lo == nil || iv.hi == nil {
		return false
	}
	positive := iv.lo.Value.Sign() > 0 || (iv.lo.Value.Sign() == 0 && !iv.lo.Inclusive)
	negative := iv.hi.Value.Sign() < 0 || (iv.hi.Value.Sign() == 0 && !iv.hi.Inclusive)
	return positive || negative
}

// combine applies op to two bounds. The result exists only when both inputs
// do, and is inclusive only when both are.
func combine(ctx *apd.Context, op binop, a, b *cty.Bound) (*cty.Bound, error) {
	if a == nil || b == nil {
		return nil, nil
	}
	d := new(apd.Decimal)
	if _, err := op(ctx, d, a.Value, b.Value); err != nil {
		return nil, err
	}
	return &cty.Bound{Value: d, Inclusive: a.Inclusive && b.Inclusive}, nil
}

// scale applies op(bound, k) to each bound of iv for a known non-zero k.
// A negative k swaps the bounds, so each side is derived from the opposite
// side of iv.
func scale(op binop, iv interval, k *apd.Decimal) (interval, error) {
	kb := &cty.Bound{Value: k, Inclusive: true}
	from := iv
	if k.Sign() < 0 {
		from = interval{lo: iv.hi, hi: iv.lo}
	}
	lo, err := combine(floorCtx, op, from.lo, kb)
	if err != nil {
		return interval{}, err
	}
	hi, err := combine(ceilCtx, op, from.hi, kb)
	if err != nil {
		return interval{}, err
	}
	return interval{lo: lo, hi: hi}, nil
}

// corner is one candidate extreme of a product or quotient.
type corner struct {
	floor, ceil *apd.Decimal
	inclusive   bool
}

// product bounds op(x, y) for x and y ranging over two intervals, where op
// is multiplication, or division by an interval that excludes zero. Both
// functions are monotone in each argument over such intervals, so the
// extremes lie at the corners. Every bound of both intervals is required.
// zeroY reports whether a zero y absorbs the result as a zero x does.
func product(op binop, zeroY bool, x, y interval) (interval, error) {
	if x.lo == nil || x.hi == nil || y.lo == nil || y.hi == nil {
		return interval{}, nil
	}

	var corners []corner
	for _, xb := range []*cty.Bound{x.lo, x.hi} {
		for _, yb := range []*cty.Bound{y.lo, y.hi} {
			c := corner{floor: new(apd.Decimal), ceil: new(apd.Decimal)}
			if _, err := op(floorCtx, c.floor, xb.Value, yb.Value); err != nil {
				return interval{}, err
			}
			if _, err := op(ceilCtx, c.ceil, xb.Value, yb.Value); err != nil {
				return interval{}, err
			}
			// A factor reaching an exact zero makes the product reach zero
			// whatever the other factor is.
			c.inclusive = (xb.Inclusive && yb.Inclusive) ||
				(xb.Inclusive && isZeroBound(xb)) ||
				(zeroY && yb.Inclusive && isZeroBound(yb))
			corners = append(corners, c)
		}
	}

	lo := &cty.Bound{Value: corners[0].floor, Inclusive: corners[0].inclusive}
	hi := &cty.Bound{Value: corners[0].ceil, Inclusive: corners[0].inclusive}
	for _, c := range corners[1:] {
		switch cmp := c.floor.Cmp(lo.Value); {
		case cmp < 0:
			lo = &cty.Bound{Value: c.floor, Inclusive: c.inclusive}
		case cmp == 0:
			lo.Inclusive = lo.Inclusive || c.inclusive
		}
		switch cmp := c.ceil.Cmp(hi.Value); {
		case cmp > 0:
			hi = &cty.Bound{Value: c.ceil, Inclusive: c.inclusive}
		case cmp == 0:
			hi.Inclusive = hi.Inclusive || c.inclusive
		}
	}
	return interval{lo: lo, hi: hi}, nil
}

// divideKnown bounds k / y for y ranging over an interval that excludes
// zero and a non-zero k. k / y is monotone there, so the extremes come from
// the two ends of y; an end at an exclusive zero makes that side unbounded.
func divideKnown(k *apd.Decimal, y interval) (interval, error) {
	var (
		corners   []corner
		unbounded int // sign of the side with no bound, 0 when none
	)
	for _, yb := range []*cty.Bound{y.lo, y.hi} {
		if yb.Value.IsZero() {
			// y approaches zero from the far side of this end.
			side := k.Sign()
			if yb == y.hi {
				side = -side
			}
			unbounded = side
			continue
		}
		c := corner{floor: new(apd.Decimal), ceil: new(apd.Decimal), inclusive: yb.Inclusive}
		if _, err := quo(floorCtx, c.floor, k, yb.Value); err != nil {
			return interval{}, err
		}
		if _, err := quo(ceilCtx, c.ceil, k, yb.Value); err != nil {
			return interval{}, err
		}
		corners = append(corners, c)
	}

	var out interval
	for _, c := range corners {
		if out.lo == nil || c.floor.Cmp(out.lo.Value) < 0 {
			out.lo = &cty.Bound{Value: c.floor, Inclusive: c.inclusive}
		}
		if out.hi == nil || c.ceil.Cmp(out.hi.Value) > 0 {
			out.hi = &cty.Bound{Value: c.ceil, Inclusive: c.inclusive}
		}
	}
	if unbounded > 0 {
		out.hi = nil
	}
	if unbounded < 0 {
		out.lo = nil
	}
	return out, nil
}

func negBound(b *cty.Bound) *cty.Bound {
	if b == nil {
		return nil
	}
	return &cty.Bound{Value: new(apd.Decimal).Neg(b.Value), Inclusive: b.Inclusive}
}

func isZeroBound(b *cty.Bound) bool {
	return b != nil && b.Value.IsZero()
}
