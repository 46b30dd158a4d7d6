package cty

import (
	"fmt"
	"slices"
	"strings"
)

// Marks is a set of opaque tokens attached to a value, such as "sensitive".
// Mark tokens must be comparable. A nil Marks is the empty set.
type Marks map[any]struct{}

// NewMarks returns a set holding the given tokens, or nil when there are none.
func NewMarks(marks ...any) Marks {
	if len(marks) == 0 {
		return nil
	}
	m := make(Marks, len(marks))
	for _, mk := range marks {
		m[mk] = struct{}{}
	}
	return m
}

// Has reports whether mark is in the set.
func (m Marks) Has(mark any) bool {
	_, ok := m[mark]
	return ok
}

// Union returns a new set holding the marks of m and every other set.
// The receiver is never modified.
func (m Marks) Union(others ...Marks) Marks {
	n := len(m)
	for _, o := range others {
		n += len(o)
	}
	if n == 0 {
		return nil
	}
	out := make(Marks, n)
	for k := range m {
		out[k] = struct{}{}
	}
	for _, o := range others {
		for k := range o {
			out[k] = struct{}{}
		}
	}
	return out
}

// Equal reports whether both sets hold the same tokens.
func (m Marks) Equal(o Marks) bool {
	if len(m) != len(o) {
		return false
	}
	for k := range m {
		if _, ok := o[k]; !ok {
			return false
		}
	}
	return true
}

// Sorted returns the tokens ordered by their printed form, for stable output.
func (m Marks) Sorted() []any {
	out := make([]any, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.SortFunc(out, func(a, b any) int {
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	})
	return out
}

func (m Marks) String() string {
	parts := make([]string, 0, len(m))
	for _, k := range m.Sorted() {
		parts = append(parts, fmt.Sprint(k))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// Mark returns a copy of v carrying mark in addition to its existing marks.
func (v Value) Mark(mark any) Value {
	return v.WithMarks(NewMarks(mark))
}

// WithMarks returns a copy of v carrying the union of its marks and the given
// sets. Marks on a known dynamic value are held by the wrapped value, so
// marking before or after wrapping gives equal results.
func (v Value) WithMarks(marks ...Marks) Value {
	if inner, ok := v.v.(Value); ok && v.isDynamicWrapper() {
		v.v = inner.WithMarks(marks...)
		return v
	}
	v.marks = v.marks.Union(marks...)
	return v
}

// HasMark reports whether v carries mark. For a dynamic value the marks of
// the wrapped value count too.
func (v Value) HasMark(mark any) bool {
	if v.marks.Has(mark) {
		return true
	}
	if inner, ok := v.v.(Value); ok && v.isDynamicWrapper() {
		return inner.HasMark(mark)
	}
	return false
}

// IsMarked reports whether v carries any mark at its top level.
func (v Value) IsMarked() bool {
	if len(v.marks) > 0 {
		return true
	}
	if inner, ok := v.v.(Value); ok && v.isDynamicWrapper() {
		return inner.IsMarked()
	}
	return false
}

// Marks returns the marks carried at the top level of v.
func (v Value) Marks() Marks {
	if inner, ok := v.v.(Value); ok && v.isDynamicWrapper() {
		return v.marks.Union(inner.Marks())
	}
	return v.marks.Union()
}

// Unmark returns v without its top-level marks, and the marks removed.
func (v Value) Unmark() (Value, Marks) {
	marks := v.Marks()
	v.marks = nil
	if inner, ok := v.v.(Value); ok && v.isDynamicWrapper() {
		inner, _ = inner.Unmark()
		v.v = inner
	}
	return v, marks
}

// UnmarkDeep strips marks at every level of v and returns them all.
func (v Value) UnmarkDeep() (Value, Marks) {
	var all Marks
	out := v.transformDeep(func(x Value) Value {
		var m Marks
		x, m = x.Unmark()
		all = all.Union(m)
		return x
	})
	return out, all
}

// ContainsMarked reports whether v or any nested value carries a mark.
func (v Value) ContainsMarked() bool {
	found := false
	v.transformDeep(func(x Value) Value {
		if len(x.marks) > 0 {
			found = true
		}
		return x
	})
	return found
}
