// Package harness runs YAML conformance scenarios against the type system,
// the refinement arithmetic and the wire codec.
//
// # Scenario Format
//
//	name: people
//	description: "Objects, containment and wire bytes"
//	limits: {max_depth: 10, max_revisits: 5}
//	cases:
//	  - name: alice
//	    op: roundtrip
//	    type: ["object", {name: string, age: number}]
//	    input: {name: Alice, age: 30}
//	    wire: "921ea5416c696365"
//	  - name: missing attribute
//	    type: ["object", {name: string}]
//	    input: {}
//	    expect: error
//	    error_contains: MISSING_ATTRIBUTE
//	  - name: bounded sum
//	    op: arith
//	    function: add
//	    args:
//	      - value: 1
//	      - {unknown: true, lower: {value: "0", inclusive: true}}
//	    result: {unknown: true, lower: {value: "1", inclusive: true}}
//
// # Operations
//
//   - validate: validate input against type (the default)
//   - roundtrip: validate, encode, decode, then store and reload the value;
//     every leg must agree, and wire (if given) must match the encoding
//   - decode: decode hex wire bytes against type
//   - infer: infer a value from input; inferred_type checks its type
//   - arith: apply function to args; result checks the number produced
//
// # Outcomes
//
// expect is valid (the default), error or contained. A contained
// validation is one that recursion containment cut short; path then names
// the stop location. For errors, error_contains and path check the message
// and the error location.
//
// # Deterministic Testing
//
// Each run uses a fresh in-memory snapshot store with sequential IDs and a
// fake clock that advances clock_step per reading, so results and golden
// snapshots are reproducible.
package harness
