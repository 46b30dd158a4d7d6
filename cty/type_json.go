package cty

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// MarshalTypeJSON renders t as its JSON type descriptor:
//
//	"string" "number" "bool" "dynamic"
//	["list", T] ["set", T] ["map", T]
//	["object", {"name": T, ...}]
//	["tuple", [T, ...]]
//
// The output is canonical: object attributes sorted by UTF-16 code units,
// no HTML escaping and no insignificant whitespace, so equal types always
// produce identical bytes. Capsule types have no descriptor.
func MarshalTypeJSON(t Type) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeTypeJSON(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeTypeJSON(buf *bytes.Buffer, t Type) error {
	switch tt := t.(type) {
	case nil:
		return fmt.Errorf("nil type has no descriptor")
	case primitiveType, dynamicType:
		buf.WriteString(`"` + t.Kind().String() + `"`)
	case ListType, SetType, MapType:
		buf.WriteString(`["` + t.Kind().String() + `",`)
		if err := writeTypeJSON(buf, tt.(CollectionType).ElementType()); err != nil {
			return fmt.Errorf("%s element: %w", t.Kind(), err)
		}
		buf.WriteByte(']')
	case ObjectType:
		buf.WriteString(`["object",{`)
		for i, name := range tt.names {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONString(buf, name); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeTypeJSON(buf, tt.attrs[name]); err != nil {
				return fmt.Errorf("object[%q]: %w", name, err)
			}
		}
		buf.WriteString("}]")
	case TupleType:
		buf.WriteString(`["tuple",[`)
		for i, et := range tt.elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeTypeJSON(buf, et); err != nil {
				return fmt.Errorf("tuple[%d]: %w", i, err)
			}
		}
		buf.WriteString("]]")
	case CapsuleType:
		return fmt.Errorf("capsule type %s has no descriptor", tt.name)
	default:
		return fmt.Errorf("unsupported type %T", t)
	}
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

// ParseTypeJSON parses a JSON type descriptor produced by MarshalTypeJSON or
// written by hand.
func ParseTypeJSON(data []byte) (Type, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("type descriptor: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("type descriptor: trailing data")
	}
	return TypeFromDescriptor(raw)
}

// TypeFromDescriptor builds a type from an already decoded descriptor, such
// as the result of unmarshalling the descriptor from JSON or YAML.
func TypeFromDescriptor(raw any) (Type, error) {
	switch d := raw.(type) {
	case string:
		switch d {
		case "string":
			return String, nil
		case "number":
			return Number, nil
		case "bool":
			return Bool, nil
		case "dynamic":
			return DynamicPseudoType, nil
		}
		return nil, fmt.Errorf("unknown primitive type %q", d)
	case []any:
		return typeFromArray(d)
	default:
		return nil, fmt.Errorf("type descriptor must be a string or an array, got %T", raw)
	}
}

func typeFromArray(d []any) (Type, error) {
	if len(d) != 2 {
		return nil, fmt.Errorf("type descriptor array must have 2 elements, got %d", len(d))
	}
	kind, ok := d[0].(string)
	if !ok {
		return nil, fmt.Errorf("type descriptor kind must be a string, got %T", d[0])
	}
	switch kind {
	case "list", "set", "map":
		et, err := TypeFromDescriptor(d[1])
		if err != nil {
			return nil, fmt.Errorf("%s element: %w", kind, err)
		}
		switch kind {
		case "list":
			return List(et), nil
		case "set":
			return Set(et), nil
		default:
			return Map(et), nil
		}
	case "object":
		attrs, err := descriptorAttrs(d[1])
		if err != nil {
			return nil, err
		}
		types := make(map[string]Type, len(attrs))
		seen := make(map[string]bool, len(attrs))
		for name, ad := range attrs {
			canonical := norm.NFC.String(name)
			if seen[canonical] {
				return nil, fmt.Errorf("object: duplicate attribute %q after normalization", canonical)
			}
			seen[canonical] = true
			at, err := TypeFromDescriptor(ad)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", name, err)
			}
			types[name] = at
		}
		return Object(types), nil
	case "tuple":
		elems, ok := d[1].([]any)
		if !ok {
			return nil, fmt.Errorf("tuple element types must be an array, got %T", d[1])
		}
		types := make([]Type, len(elems))
		for i, ed := range elems {
			et, err := TypeFromDescriptor(ed)
			if err != nil {
				return nil, fmt.Errorf("tuple[%d]: %w", i, err)
			}
			types[i] = et
		}
		return Tuple(types...), nil
	}
	return nil, fmt.Errorf("unknown type kind %q", kind)
}

// descriptorAttrs accepts the attribute map as decoded by encoding/json or
// by yaml.v3, which produces map[string]any for string-keyed mappings.
func descriptorAttrs(raw any) (map[string]any, error) {
	switch m := raw.(type) {
	case map[string]any:
		return m, nil
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("object attribute name must be a string, got %T", k)
			}
			out[ks] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("object attribute types must be a map, got %T", raw)
}

// TypeString renders t as its descriptor, or its friendly name when it has
// none.
func TypeString(t Type) string {
	b, err := MarshalTypeJSON(t)
	if err != nil {
		return t.FriendlyName()
	}
	return string(b)
}
