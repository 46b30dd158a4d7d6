package wire

import (
	"bytes"
	"math"
	"strconv"

	"github.com/cockroachdb/apd/v3"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/cty/cty"
)

// maxPrealloc caps slice capacity taken from untrusted length prefixes.
const maxPrealloc = 1024

// Unmarshal decodes data as a value of type t. The whole input must be one
// msgpack value.
func Unmarshal(data []byte, t cty.Type) (cty.Value, error) {
	if t == nil {
		return cty.NilVal, codecErrorf(ErrCodeTypeMismatch, nil, "type must not be nil")
	}
	r := bytes.NewReader(data)
	v, err := decode(msgpack.NewDecoder(r), t, nil)
	if err != nil {
		return cty.NilVal, err
	}
	if r.Len() > 0 {
		return cty.NilVal, codecErrorf(ErrCodeTrailingData, nil, "%d bytes after value", r.Len())
	}
	return v, nil
}

func decode(dec *msgpack.Decoder, t cty.Type, path cty.Path) (cty.Value, error) {
	c, err := dec.PeekCode()
	if err != nil {
		return cty.NilVal, malformed(path, "read value", err)
	}
	switch {
	case c == msgpcode.Nil:
		if err := dec.DecodeNil(); err != nil {
			return cty.NilVal, malformed(path, "read nil", err)
		}
		return cty.NullVal(t), nil
	case msgpcode.IsExt(c):
		return decodeExt(dec, t, path)
	}

	switch t.Kind() {
	case cty.KindString:
		s, err := dec.DecodeString()
		if err != nil {
			return cty.NilVal, mismatch(path, t, err)
		}
		return cty.StringVal(s), nil
	case cty.KindNumber:
		return decodeNumber(dec, c, path)
	case cty.KindBool:
		b, err := dec.DecodeBool()
		if err != nil {
			return cty.NilVal, mismatch(path, t, err)
		}
		return cty.BoolVal(b), nil
	case cty.KindList, cty.KindSet:
		et := t.(cty.CollectionType).ElementType()
		elems, err := decodeArray(dec, t, -1, func(i int) (cty.Value, error) {
			return decode(dec, et, path.Index(i))
		}, path)
		if err != nil {
			return cty.NilVal, err
		}
		switch {
		case t.Kind() == cty.KindSet && len(elems) == 0:
			return cty.SetValEmpty(et), nil
		case t.Kind() == cty.KindSet:
			return cty.SetVal(elems), nil
		case len(elems) == 0:
			return cty.ListValEmpty(et), nil
		}
		return cty.ListVal(elems), nil
	case cty.KindTuple:
		ets := t.(cty.TupleType).ElementTypes()
		elems, err := decodeArray(dec, t, len(ets), func(i int) (cty.Value, error) {
			return decode(dec, ets[i], path.Index(i))
		}, path)
		if err != nil {
			return cty.NilVal, err
		}
		return cty.TupleVal(elems...), nil
	case cty.KindMap:
		return decodeMap(dec, t, path)
	case cty.KindObject:
		ot := t.(cty.ObjectType)
		names := ot.AttributeNames()
		attrs := make(map[string]cty.Value, len(names))
		_, err := decodeArray(dec, t, len(names), func(i int) (cty.Value, error) {
			at, _ := ot.AttributeType(names[i])
			av, err := decode(dec, at, path.GetAttr(names[i]))
			attrs[names[i]] = av
			return av, err
		}, path)
		if err != nil {
			return cty.NilVal, err
		}
		return cty.ObjectVal(attrs), nil
	case cty.KindDynamic:
		return decodeDynamic(dec, path)
	case cty.KindCapsule:
		return cty.NilVal, codecErrorf(ErrCodeUnrepresentable, path, "capsule %s has no wire representation", t.FriendlyName())
	}
	return cty.NilVal, codecErrorf(ErrCodeUnrepresentable, path, "unsupported type %s", t.FriendlyName())
}

func mismatch(path cty.Path, t cty.Type, err error) *CodecError {
	return &CodecError{Code: ErrCodeTypeMismatch, Path: path.Copy(), Message: t.FriendlyName() + " expected", Err: err}
}

// decodeArray reads an array header and then each element with elem. When
// want is not negative the array must have exactly that many elements.
func decodeArray(dec *msgpack.Decoder, t cty.Type, want int, elem func(i int) (cty.Value, error), path cty.Path) ([]cty.Value, error) {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, mismatch(path, t, err)
	}
	if want >= 0 && n != want {
		return nil, codecErrorf(ErrCodeTypeMismatch, path, "%s expects %d elements, got %d", t.FriendlyName(), want, n)
	}
	elems := make([]cty.Value, 0, min(n, maxPrealloc))
	for i := 0; i < n; i++ {
		e, err := elem(i)
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	return elems, nil
}

func decodeMap(dec *msgpack.Decoder, t cty.Type, path cty.Path) (cty.Value, error) {
	et := t.(cty.CollectionType).ElementType()
	n, err := dec.DecodeMapLen()
	if err != nil {
		return cty.NilVal, mismatch(path, t, err)
	}
	if n == 0 {
		return cty.MapValEmpty(et), nil
	}
	elems := make(map[string]cty.Value, min(n, maxPrealloc))
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return cty.NilVal, malformed(path, "map key", err)
		}
		key = norm.NFC.String(key)
		if _, dup := elems[key]; dup {
			return cty.NilVal, codecErrorf(ErrCodeMalformed, path, "duplicate map key %q", key)
		}
		e, err := decode(dec, et, path.Key(key))
		if err != nil {
			return cty.NilVal, err
		}
		elems[key] = e
	}
	return cty.MapVal(elems), nil
}

func decodeNumber(dec *msgpack.Decoder, c byte, path cty.Path) (cty.Value, error) {
	switch {
	case msgpcode.IsFixedNum(c), c == msgpcode.Int8, c == msgpcode.Int16, c == msgpcode.Int32, c == msgpcode.Int64:
		n, err := dec.DecodeInt64()
		if err != nil {
			return cty.NilVal, malformed(path, "read integer", err)
		}
		return cty.NumberIntVal(n), nil
	case c == msgpcode.Uint8, c == msgpcode.Uint16, c == msgpcode.Uint32, c == msgpcode.Uint64:
		n, err := dec.DecodeUint64()
		if err != nil {
			return cty.NilVal, malformed(path, "read integer", err)
		}
		if n <= math.MaxInt64 {
			return cty.NumberIntVal(int64(n)), nil
		}
		return parseNumber(strconv.FormatUint(n, 10), path)
	case c == msgpcode.Float, c == msgpcode.Double:
		f, err := dec.DecodeFloat64()
		if err != nil {
			return cty.NilVal, malformed(path, "read float", err)
		}
		v, err := cty.NumberFloatVal(f)
		if err != nil {
			return cty.NilVal, malformed(path, "float", err)
		}
		return v, nil
	case msgpcode.IsString(c) || msgpcode.IsBin(c):
		s, err := dec.DecodeString()
		if err != nil {
			return cty.NilVal, malformed(path, "read number string", err)
		}
		return parseNumber(s, path)
	}
	return cty.NilVal, codecErrorf(ErrCodeTypeMismatch, path, "number expected, got msgpack code 0x%02x", c)
}

func parseNumber(s string, path cty.Path) (cty.Value, error) {
	v, err := cty.ParseNumberVal(s)
	if err != nil {
		return cty.NilVal, malformed(path, "number", err)
	}
	return v, nil
}

// decodeDynamic reads [type descriptor, payload].
func decodeDynamic(dec *msgpack.Decoder, path cty.Path) (cty.Value, error) {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return cty.NilVal, mismatch(path, cty.DynamicPseudoType, err)
	}
	if n != 2 {
		return cty.NilVal, codecErrorf(ErrCodeMalformed, path, "dynamic value must be a 2 element array, got %d", n)
	}
	desc, err := dec.DecodeBytes()
	if err != nil {
		return cty.NilVal, malformed(path, "dynamic type descriptor", err)
	}
	t, err := cty.ParseTypeJSON(desc)
	if err != nil {
		return cty.NilVal, malformed(path, "dynamic type descriptor", err)
	}
	if t.Kind() == cty.KindDynamic {
		return cty.NilVal, codecErrorf(ErrCodeMalformed, path, "dynamic value cannot wrap the dynamic type")
	}
	inner, err := decode(dec, t, path)
	if err != nil {
		return cty.NilVal, err
	}
	return cty.DynamicVal(inner), nil
}

func decodeExt(dec *msgpack.Decoder, t cty.Type, path cty.Path) (cty.Value, error) {
	id, n, err := dec.DecodeExtHeader()
	if err != nil {
		return cty.NilVal, malformed(path, "extension header", err)
	}
	payload := make([]byte, n)
	if err := dec.ReadFull(payload); err != nil {
		return cty.NilVal, malformed(path, "extension payload", err)
	}
	r := bytes.NewReader(payload)
	sub := msgpack.NewDecoder(r)

	var v cty.Value
	switch id {
	case extRefinedUnknown:
		v, err = decodeRefinedUnknown(sub, t, path)
	case extMarked:
		v, err = decodeMarked(sub, t, path)
	default:
		return cty.NilVal, codecErrorf(ErrCodeMalformed, path, "unknown extension type %d", id)
	}
	if err != nil {
		return cty.NilVal, err
	}
	if r.Len() > 0 {
		return cty.NilVal, codecErrorf(ErrCodeTrailingData, path, "%d bytes after extension %d payload", r.Len(), id)
	}
	return v, nil
}

func decodeMarked(dec *msgpack.Decoder, t cty.Type, path cty.Path) (cty.Value, error) {
	n, err := dec.DecodeArrayLen()
	if err != nil || n != 2 {
		return cty.NilVal, malformed(path, "marked value must be a 2 element array", err)
	}
	count, err := dec.DecodeArrayLen()
	if err != nil {
		return cty.NilVal, malformed(path, "mark list", err)
	}
	marks := make([]any, 0, min(count, maxPrealloc))
	for i := 0; i < count; i++ {
		m, err := dec.DecodeString()
		if err != nil {
			return cty.NilVal, malformed(path, "mark", err)
		}
		marks = append(marks, m)
	}
	if len(marks) == 0 {
		return cty.NilVal, codecErrorf(ErrCodeMalformed, path, "marked value without marks")
	}
	v, err := decode(dec, t, path)
	if err != nil {
		return cty.NilVal, err
	}
	return v.WithMarks(cty.NewMarks(marks...)), nil
}

func decodeRefinedUnknown(dec *msgpack.Decoder, t cty.Type, path cty.Path) (cty.Value, error) {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return cty.NilVal, malformed(path, "refinement map", err)
	}
	var r cty.Refinement
	for i := 0; i < n; i++ {
		key, err := dec.DecodeInt()
		if err != nil {
			return cty.NilVal, malformed(path, "refinement key", err)
		}
		switch key {
		case refKeyNullness:
			isNull, err := dec.DecodeBool()
			if err != nil {
				return cty.NilVal, malformed(path, "refinement nullness", err)
			}
			if isNull {
				return cty.NilVal, codecErrorf(ErrCodeMalformed, path, "unknown value refined as null")
			}
			r.NotNull = true
		case refKeyPrefix:
			if r.StringPrefix, err = dec.DecodeString(); err != nil {
				return cty.NilVal, malformed(path, "refinement prefix", err)
			}
		case refKeyLower, refKeyUpper:
			b, err := decodeBound(dec)
			if err != nil {
				return cty.NilVal, malformed(path, "refinement bound", err)
			}
			if key == refKeyLower {
				r.Lower = b
			} else {
				r.Upper = b
			}
		case refKeyLengthLower, refKeyLengthUpper:
			l, err := dec.DecodeInt64()
			if err != nil {
				return cty.NilVal, malformed(path, "refinement length", err)
			}
			if key == refKeyLengthLower {
				r.LengthLower = cty.Int64Ptr(l)
			} else {
				r.LengthUpper = cty.Int64Ptr(l)
			}
		default:
			// Unknown refinements only ever narrow; dropping one stays sound.
			if err := dec.Skip(); err != nil {
				return cty.NilVal, malformed(path, "refinement value", err)
			}
		}
	}
	if r.IsEmpty() {
		return cty.NilVal, codecErrorf(ErrCodeMalformed, path, "refined unknown without refinements")
	}
	v, err := cty.RefinedUnknownVal(t, r)
	if err != nil {
		return cty.NilVal, &CodecError{Code: ErrCodeTypeMismatch, Path: path.Copy(), Message: "refinement", Err: err}
	}
	return v, nil
}

func decodeBound(dec *msgpack.Decoder) (*cty.Bound, error) {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, err
	}
	if n != 2 {
		return nil, codecErrorf(ErrCodeMalformed, nil, "bound must be a 2 element array, got %d", n)
	}
	raw, err := dec.DecodeBytes()
	if err != nil {
		return nil, err
	}
	inclusive, err := dec.DecodeBool()
	if err != nil {
		return nil, err
	}
	d, _, err := apd.NewFromString(string(raw))
	if err != nil {
		return nil, err
	}
	return cty.NewBound(d, inclusive), nil
}
