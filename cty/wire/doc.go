// Package wire encodes cty values as MessagePack.
//
// The encoding carries no schema: the caller supplies the same type when
// decoding that was used when encoding.
//
//   - null is the msgpack nil
//   - strings and bools are native msgpack values
//   - numbers that are integers in the int64 range are msgpack ints, every
//     other number is its exact decimal string
//   - lists, sets and tuples are arrays; sets are written in a canonical order
//   - objects are arrays of attribute values in attribute-name order; the
//     bytes never contain attribute names
//   - maps are msgpack maps with keys in canonical order
//   - a value of the dynamic type is a two element array of the JSON type
//     descriptor (as binary) and the value encoded against that type
//   - a refined unknown is extension 12 holding an int-keyed map of its
//     refinements
//   - a marked value is extension 13 holding an array of its string marks and
//     the unmarked value
//
// Unrefined unknowns and capsules have no representation and are rejected.
package wire
