package cty

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Bound is one end of a numeric range known about an unknown number.
type Bound struct {
	Value     *apd.Decimal
	Inclusive bool
}

// NewBound returns a bound at a copy of d.
func NewBound(d *apd.Decimal, inclusive bool) *Bound {
	return &Bound{Value: new(apd.Decimal).Set(d), Inclusive: inclusive}
}

// IntBound returns a bound at the integer n.
func IntBound(n int64, inclusive bool) *Bound {
	return &Bound{Value: apd.New(n, 0), Inclusive: inclusive}
}

func (b *Bound) equal(o *Bound) bool {
	if b == nil || o == nil {
		return b == nil && o == nil
	}
	return b.Inclusive == o.Inclusive && b.Value.Cmp(o.Value) == 0
}

func (b *Bound) clone() *Bound {
	if b == nil {
		return nil
	}
	return NewBound(b.Value, b.Inclusive)
}

// Refinement is partial knowledge about an unknown value. Every field is
// optional; the zero Refinement says nothing and is equivalent to no
// refinement at all.
//
// Numeric bounds apply to numbers, StringPrefix to strings and the length
// bounds to lists, sets and maps. NotNull applies to every type.
type Refinement struct {
	NotNull      bool
	StringPrefix string

	Lower *Bound
	Upper *Bound

	LengthLower *int64
	LengthUpper *int64
}

// IsEmpty reports whether r carries no information.
func (r Refinement) IsEmpty() bool {
	return !r.NotNull && r.StringPrefix == "" && r.Lower == nil && r.Upper == nil &&
		r.LengthLower == nil && r.LengthUpper == nil
}

// Equal reports whether two refinements carry identical knowledge.
func (r Refinement) Equal(o Refinement) bool {
	return r.NotNull == o.NotNull &&
		r.StringPrefix == o.StringPrefix &&
		r.Lower.equal(o.Lower) && r.Upper.equal(o.Upper) &&
		int64PtrEqual(r.LengthLower, o.LengthLower) &&
		int64PtrEqual(r.LengthUpper, o.LengthUpper)
}

func (r Refinement) clone() Refinement {
	out := r
	out.Lower = r.Lower.clone()
	out.Upper = r.Upper.clone()
	if r.LengthLower != nil {
		n := *r.LengthLower
		out.LengthLower = &n
	}
	if r.LengthUpper != nil {
		n := *r.LengthUpper
		out.LengthUpper = &n
	}
	return out
}

// check reports whether r is a consistent refinement for values of type t.
func (r Refinement) check(t Type) error {
	hasNumber := r.Lower != nil || r.Upper != nil
	hasLength := r.LengthLower != nil || r.LengthUpper != nil

	if hasNumber && t.Kind() != KindNumber {
		return &RefinementError{Code: ErrCodeNotApplicable, Message: "numeric bounds on " + t.FriendlyName()}
	}
	if r.StringPrefix != "" && t.Kind() != KindString {
		return &RefinementError{Code: ErrCodeNotApplicable, Message: "string prefix on " + t.FriendlyName()}
	}
	if hasLength {
		switch t.Kind() {
		case KindList, KindSet, KindMap:
		default:
			return &RefinementError{Code: ErrCodeNotApplicable, Message: "length bounds on " + t.FriendlyName()}
		}
	}

	if r.Lower != nil && r.Upper != nil {
		c := r.Lower.Value.Cmp(r.Upper.Value)
		if c > 0 || (c == 0 && !(r.Lower.Inclusive && r.Upper.Inclusive)) {
			return &RefinementError{
				Code:    ErrCodeEmptyRange,
				Message: fmt.Sprintf("no number satisfies %s", r.rangeString()),
			}
		}
	}
	for _, b := range []*Bound{r.Lower, r.Upper} {
		if b != nil && (b.Value == nil || b.Value.Form != apd.Finite) {
			return &RefinementError{Code: ErrCodeEmptyRange, Message: "bound must be a finite number"}
		}
	}

	if r.LengthLower != nil && *r.LengthLower < 0 {
		return &RefinementError{Code: ErrCodeInvalidLength, Message: "length lower bound is negative"}
	}
	if r.LengthUpper != nil && *r.LengthUpper < 0 {
		return &RefinementError{Code: ErrCodeInvalidLength, Message: "length upper bound is negative"}
	}
	if r.LengthLower != nil && r.LengthUpper != nil && *r.LengthLower > *r.LengthUpper {
		return &RefinementError{
			Code:    ErrCodeInvalidLength,
			Message: fmt.Sprintf("length lower bound %d exceeds upper bound %d", *r.LengthLower, *r.LengthUpper),
		}
	}
	return nil
}

// restrict drops every part of r that does not apply to t. It never adds
// knowledge, so the result is always sound.
func (r Refinement) restrict(t Type) Refinement {
	out := Refinement{NotNull: r.NotNull}
	switch t.Kind() {
	case KindNumber:
		out.Lower, out.Upper = r.Lower.clone(), r.Upper.clone()
	case KindString:
		out.StringPrefix = r.StringPrefix
	case KindList, KindSet, KindMap:
		c := r.clone()
		out.LengthLower, out.LengthUpper = c.LengthLower, c.LengthUpper
	}
	return out
}

func (r Refinement) rangeString() string {
	var b strings.Builder
	if r.Lower != nil {
		if r.Lower.Inclusive {
			b.WriteByte('[')
		} else {
			b.WriteByte('(')
		}
		b.WriteString(r.Lower.Value.Text('G'))
	} else {
		b.WriteString("(-inf")
	}
	b.WriteString(", ")
	if r.Upper != nil {
		b.WriteString(r.Upper.Value.Text('G'))
		if r.Upper.Inclusive {
			b.WriteByte(']')
		} else {
			b.WriteByte(')')
		}
	} else {
		b.WriteString("+inf)")
	}
	return b.String()
}

// String renders the refinement for diagnostics.
func (r Refinement) String() string {
	var parts []string
	if r.NotNull {
		parts = append(parts, "notnull")
	}
	if r.StringPrefix != "" {
		parts = append(parts, "prefix="+strconv.Quote(r.StringPrefix))
	}
	if r.Lower != nil || r.Upper != nil {
		parts = append(parts, "range="+r.rangeString())
	}
	if r.LengthLower != nil || r.LengthUpper != nil {
		lo, hi := "0", "inf"
		if r.LengthLower != nil {
			lo = strconv.FormatInt(*r.LengthLower, 10)
		}
		if r.LengthUpper != nil {
			hi = strconv.FormatInt(*r.LengthUpper, 10)
		}
		parts = append(parts, "len="+lo+".."+hi)
	}
	return strings.Join(parts, " ")
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Int64Ptr is a helper for building length refinements.
func Int64Ptr(n int64) *int64 {
	return &n
}
