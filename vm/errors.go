package vm

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Runtime errors
// ---------------------------------------------------------------------------

// ErrEmptyStack is returned when popping from an empty operand stack,
// including when a call has fewer arguments on the caller's stack than its
// function has parameters.
var ErrEmptyStack = errors.New("stack error: stack is empty")

// WrongTypeError reports a value of the wrong type where a specific type
// was required.
type WrongTypeError struct {
	Expected string
	Got      string
}

func (e *WrongTypeError) Error() string {
	return fmt.Sprintf("type error: expected %s, got %s", e.Expected, e.Got)
}

// UndefinedError reports a lookup of a name bound in no scope.
type UndefinedError struct {
	Name string
}

func (e *UndefinedError) Error() string {
	return fmt.Sprintf("value error: %s is undefined", e.Name)
}

// OperationError reports an operation that is not permitted on a type.
type OperationError struct {
	Op   string
	Type string
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("type error: cannot perform %s on %s", e.Op, e.Type)
}

// OperandError reports an operation not permitted between a pair of types.
type OperandError struct {
	Op   string
	Type string
	With string
}

func (e *OperandError) Error() string {
	return fmt.Sprintf("type error: cannot perform %s on %s with %s value", e.Op, e.Type, e.With)
}

// ComparisonError reports a comparison on a type that has no ordering.
type ComparisonError struct {
	Type string
}

func (e *ComparisonError) Error() string {
	return fmt.Sprintf("type error: cannot perform comparison on %s", e.Type)
}

// RepeatError reports a string repetition whose result would exceed
// MaxRepeatLen.
type RepeatError struct {
	Len   int
	Count float64
}

func (e *RepeatError) Error() string {
	return fmt.Sprintf("value error: repeating a string of length %d %s times exceeds %d bytes",
		e.Len, FormatNumber(e.Count), MaxRepeatLen)
}
