// Package vm implements the stacc interpreter.
//
// This package contains:
//   - Dynamic values: functions, strings, numbers and booleans
//   - Scoped environments, each frame with its own operand stack
//   - The tree-walking evaluator over compiler statements
//   - CBOR images of the global scope
package vm
