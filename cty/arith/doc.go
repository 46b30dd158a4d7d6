// Package arith implements arithmetic over cty number values, including
// unknown numbers whose refinements bound their eventual value.
//
// Every operator follows the same rules:
//   - known with known is ordinary decimal arithmetic
//   - a null operand on either side gives an unrefined unknown
//   - with an unknown operand, each result bound is derived from operand
//     bounds; a bound that cannot be derived is left absent, so the result
//     may degrade to an unrefined unknown but never claims more than is true
//   - the result carries the union of the operands' marks
//
// An exact-zero divisor is always an error, whatever the dividend.
package arith
