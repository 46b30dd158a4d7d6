package wire

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/roach88/cty/cty"
)

// Extension type codes.
const (
	extRefinedUnknown int8 = 12
	extMarked         int8 = 13
)

// Refinement map keys inside extension 12.
const (
	refKeyNullness    = 1
	refKeyPrefix      = 2
	refKeyLower       = 3
	refKeyUpper       = 4
	refKeyLengthLower = 5
	refKeyLengthUpper = 6
)

// Marshal encodes v as t. A value whose type differs from t is rejected,
// except that any value may be encoded as the dynamic type.
func Marshal(v cty.Value, t cty.Type) ([]byte, error) {
	if t == nil {
		return nil, codecErrorf(ErrCodeTypeMismatch, nil, "type must not be nil")
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := encode(enc, v, t, nil); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encode(enc *msgpack.Encoder, v cty.Value, t cty.Type, path cty.Path) error {
	if v.Type() == nil {
		return codecErrorf(ErrCodeTypeMismatch, path, "%s required, got NilVal", t.FriendlyName())
	}
	if !v.Type().Equals(t) {
		if t.Kind() != cty.KindDynamic {
			return codecErrorf(ErrCodeTypeMismatch, path, "%s required, got %s", t.FriendlyName(), v.Type().FriendlyName())
		}
		v = cty.DynamicVal(v)
	}

	v, marks := v.Unmark()
	if len(marks) > 0 {
		return encodeMarked(enc, v, t, marks, path)
	}

	switch {
	case v.IsNull():
		return enc.EncodeNil()
	case !v.IsKnown():
		return encodeUnknown(enc, v, path)
	}

	switch t.Kind() {
	case cty.KindString:
		return enc.EncodeString(v.AsString())
	case cty.KindNumber:
		d := v.AsDecimal()
		if n, err := d.Int64(); err == nil {
			return enc.EncodeInt(n)
		}
		return enc.EncodeString(d.Text('G'))
	case cty.KindBool:
		return enc.EncodeBool(v.True())
	case cty.KindList, cty.KindSet:
		et := t.(cty.CollectionType).ElementType()
		if err := enc.EncodeArrayLen(v.LengthInt()); err != nil {
			return err
		}
		i := 0
		for _, e := range v.Elements() {
			if err := encode(enc, e, et, path.Index(i)); err != nil {
				return err
			}
			i++
		}
		return nil
	case cty.KindTuple:
		ets := t.(cty.TupleType).ElementTypes()
		if err := enc.EncodeArrayLen(len(ets)); err != nil {
			return err
		}
		i := 0
		for _, e := range v.Elements() {
			if err := encode(enc, e, ets[i], path.Index(i)); err != nil {
				return err
			}
			i++
		}
		return nil
	case cty.KindMap:
		et := t.(cty.CollectionType).ElementType()
		if err := enc.EncodeMapLen(v.LengthInt()); err != nil {
			return err
		}
		for k, e := range v.Elements() {
			key := k.AsString()
			if err := enc.EncodeString(key); err != nil {
				return err
			}
			if err := encode(enc, e, et, path.Key(key)); err != nil {
				return err
			}
		}
		return nil
	case cty.KindObject:
		ot := t.(cty.ObjectType)
		names := ot.AttributeNames()
		if err := enc.EncodeArrayLen(len(names)); err != nil {
			return err
		}
		for _, name := range names {
			at, _ := ot.AttributeType(name)
			av, err := v.GetAttr(name)
			if err != nil {
				return &CodecError{Code: ErrCodeTypeMismatch, Path: path.GetAttr(name), Message: "attribute missing", Err: err}
			}
			if err := encode(enc, av, at, path.GetAttr(name)); err != nil {
				return err
			}
		}
		return nil
	case cty.KindDynamic:
		return encodeDynamic(enc, v.Inner(), path)
	case cty.KindCapsule:
		return codecErrorf(ErrCodeUnrepresentable, path, "capsule %s has no wire representation", t.FriendlyName())
	}
	return codecErrorf(ErrCodeUnrepresentable, path, "unsupported type %s", t.FriendlyName())
}

// encodeDynamic writes [type descriptor, payload] for a known dynamic value.
func encodeDynamic(enc *msgpack.Encoder, inner cty.Value, path cty.Path) error {
	desc, err := cty.MarshalTypeJSON(inner.Type())
	if err != nil {
		return &CodecError{Code: ErrCodeUnrepresentable, Path: path.Copy(), Message: "dynamic value type", Err: err}
	}
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := enc.EncodeBytes(desc); err != nil {
		return err
	}
	return encode(enc, inner, inner.Type(), path)
}

func encodeMarked(enc *msgpack.Encoder, v cty.Value, t cty.Type, marks cty.Marks, path cty.Path) error {
	var buf bytes.Buffer
	sub := msgpack.NewEncoder(&buf)
	sorted := marks.Sorted()
	if err := sub.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := sub.EncodeArrayLen(len(sorted)); err != nil {
		return err
	}
	for _, m := range sorted {
		s, ok := m.(string)
		if !ok {
			return codecErrorf(ErrCodeUnrepresentable, path, "mark %v of type %T is not a string", m, m)
		}
		if err := sub.EncodeString(s); err != nil {
			return err
		}
	}
	if err := encode(sub, v, t, path); err != nil {
		return err
	}
	return writeExt(enc, extMarked, buf.Bytes())
}

func encodeUnknown(enc *msgpack.Encoder, v cty.Value, path cty.Path) error {
	r, ok := v.Refinement()
	if !ok {
		return codecErrorf(ErrCodeUnrepresentable, path, "unknown %s value has no wire representation", v.Type().FriendlyName())
	}

	var buf bytes.Buffer
	sub := msgpack.NewEncoder(&buf)
	if err := sub.EncodeMapLen(refinementFields(r)); err != nil {
		return err
	}
	if r.NotNull {
		if err := encodeRefKey(sub, refKeyNullness); err != nil {
			return err
		}
		if err := sub.EncodeBool(false); err != nil {
			return err
		}
	}
	if r.StringPrefix != "" {
		if err := encodeRefKey(sub, refKeyPrefix); err != nil {
			return err
		}
		if err := sub.EncodeString(r.StringPrefix); err != nil {
			return err
		}
	}
	for _, b := range []struct {
		key   int
		bound *cty.Bound
	}{{refKeyLower, r.Lower}, {refKeyUpper, r.Upper}} {
		if b.bound == nil {
			continue
		}
		if err := encodeRefKey(sub, b.key); err != nil {
			return err
		}
		if err := sub.EncodeArrayLen(2); err != nil {
			return err
		}
		if err := sub.EncodeBytes([]byte(b.bound.Value.Text('G'))); err != nil {
			return err
		}
		if err := sub.EncodeBool(b.bound.Inclusive); err != nil {
			return err
		}
	}
	for _, l := range []struct {
		key int
		n   *int64
	}{{refKeyLengthLower, r.LengthLower}, {refKeyLengthUpper, r.LengthUpper}} {
		if l.n == nil {
			continue
		}
		if err := encodeRefKey(sub, l.key); err != nil {
			return err
		}
		if err := sub.EncodeInt(*l.n); err != nil {
			return err
		}
	}
	return writeExt(enc, extRefinedUnknown, buf.Bytes())
}

func refinementFields(r cty.Refinement) int {
	n := 0
	for _, present := range []bool{
		r.NotNull, r.StringPrefix != "", r.Lower != nil, r.Upper != nil,
		r.LengthLower != nil, r.LengthUpper != nil,
	} {
		if present {
			n++
		}
	}
	return n
}

func encodeRefKey(enc *msgpack.Encoder, key int) error {
	return enc.EncodeInt(int64(key))
}

func writeExt(enc *msgpack.Encoder, id int8, payload []byte) error {
	if err := enc.EncodeExtHeader(id, len(payload)); err != nil {
		return err
	}
	if _, err := enc.Writer().Write(payload); err != nil {
		return fmt.Errorf("write extension %d: %w", id, err)
	}
	return nil
}
