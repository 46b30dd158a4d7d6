// Package cty provides the structural type system and value model for
// exchanging strongly-typed, possibly partially-known data between processes
// that do not share a compiled schema.
//
// The package is the foundational layer: cty/arith and cty/wire import cty,
// cty imports nothing else in this module.
//
// Key design constraints:
//   - Types are a closed, sealed set (primitives, list/set/map, object, tuple,
//     capsule, dynamic). Descriptors are immutable and finite by construction.
//   - Values are immutable. Every derivation returns a new Value.
//   - A Value is exactly one of known, null or unknown. Unknown values may carry
//     a Refinement describing what is known about the eventual value.
//   - Marks are set-union and propagate into every derived value.
//   - Numbers are arbitrary-precision decimals (apd), never binary floats.
//   - Validation of raw Go data goes through a Validator, which bounds depth,
//     identity revisits and wall time per call and degrades the offending
//     sub-value to unknown instead of failing.
package cty
