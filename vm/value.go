package vm

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chazu/stacc/compiler"
)

// ---------------------------------------------------------------------------
// Value: runtime values
// ---------------------------------------------------------------------------

// Value is a runtime value. The set of implementations is closed: Function,
// String, Number and Bool.
type Value interface {
	// TypeName is the name used in error messages.
	TypeName() string
	// String is the display form written by print.
	String() string
	value()
}

// Type names reported by TypeName.
const (
	TypeFunction = "function"
	TypeString   = "string"
	TypeNumber   = "number"
	TypeBoolean  = "boolean"
)

// Function is a function definition held as a value. It captures no
// environment; calling it is an interpreter operation.
type Function struct {
	Name   string
	Params []string
	Body   []compiler.Stmt
}

// String is a string value. Escape sequences from the literal are kept as
// written.
type String string

// Number is the single numeric representation; integer and float literals
// both evaluate to a Number.
type Number float64

// Bool is a boolean value.
type Bool bool

func (Function) TypeName() string { return TypeFunction }
func (String) TypeName() string   { return TypeString }
func (Number) TypeName() string   { return TypeNumber }
func (Bool) TypeName() string     { return TypeBoolean }

func (f Function) String() string {
	return fmt.Sprintf("<function %s(%s)>", f.Name, strings.Join(f.Params, ", "))
}

func (s String) String() string { return string(s) }
func (n Number) String() string { return FormatNumber(float64(n)) }
func (b Bool) String() string   { return strconv.FormatBool(bool(b)) }

func (Function) value() {}
func (String) value()   {}
func (Number) value()   {}
func (Bool) value()     {}

// FormatNumber renders n in its shortest round-tripping decimal form,
// without an exponent. Integral values have no fractional part.
func FormatNumber(n float64) string {
	switch {
	case math.IsInf(n, 1):
		return "inf"
	case math.IsInf(n, -1):
		return "-inf"
	case math.IsNaN(n):
		return "NaN"
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// Truthy converts v to a boolean for and, or and not. A number is truthy
// only when it is exactly zero.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case Function:
		return len(v.Body) > 0
	case String:
		return v != ""
	case Number:
		return v == 0
	case Bool:
		return bool(v)
	}
	return false
}

// ---------------------------------------------------------------------------
// Coercions
// ---------------------------------------------------------------------------

// AsNumber returns v as a number or a WrongTypeError.
func AsNumber(v Value) (Number, error) {
	if n, ok := v.(Number); ok {
		return n, nil
	}
	return 0, &WrongTypeError{Expected: TypeNumber, Got: v.TypeName()}
}

// AsString returns v as a string or a WrongTypeError.
func AsString(v Value) (String, error) {
	if s, ok := v.(String); ok {
		return s, nil
	}
	return "", &WrongTypeError{Expected: TypeString, Got: v.TypeName()}
}

// AsFunction returns v as a function or a WrongTypeError.
func AsFunction(v Value) (Function, error) {
	if f, ok := v.(Function); ok {
		return f, nil
	}
	return Function{}, &WrongTypeError{Expected: TypeFunction, Got: v.TypeName()}
}

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

// Operation names used in errors.
const (
	OpAddition       = "addition"
	OpSubtraction    = "subtraction"
	OpMultiplication = "multiplication"
	OpDivision       = "division"
)

// Binary applies an arithmetic, relational or equality operator. Dispatch
// is on the left operand's type; the right operand must then match.
func Binary(op compiler.TokenKind, lhs, rhs Value) (Value, error) {
	switch op {
	case compiler.TokenPlus:
		return Add(lhs, rhs)
	case compiler.TokenMinus:
		return Sub(lhs, rhs)
	case compiler.TokenStar:
		return Mul(lhs, rhs)
	case compiler.TokenSlash:
		return Div(lhs, rhs)
	case compiler.TokenLess, compiler.TokenGreater, compiler.TokenLessEq,
		compiler.TokenGreaterEq, compiler.TokenEq, compiler.TokenNotEq:
		return Compare(op, lhs, rhs)
	}
	return nil, fmt.Errorf("unknown binary operator %s", op)
}

// Add is number + number or string + string.
func Add(lhs, rhs Value) (Value, error) {
	switch l := lhs.(type) {
	case Number:
		r, err := AsNumber(rhs)
		if err != nil {
			return nil, err
		}
		return l + r, nil
	case String:
		r, err := AsString(rhs)
		if err != nil {
			return nil, err
		}
		return l + r, nil
	}
	return nil, &OperationError{Op: OpAddition, Type: lhs.TypeName()}
}

// Sub is number - number.
func Sub(lhs, rhs Value) (Value, error) {
	return arith(OpSubtraction, lhs, rhs, func(a, b Number) Number { return a - b })
}

// Div is number / number. Division by zero follows IEEE 754.
func Div(lhs, rhs Value) (Value, error) {
	return arith(OpDivision, lhs, rhs, func(a, b Number) Number { return a / b })
}

func arith(op string, lhs, rhs Value, fn func(a, b Number) Number) (Value, error) {
	l, ok := lhs.(Number)
	if !ok {
		return nil, &OperationError{Op: op, Type: lhs.TypeName()}
	}
	r, err := AsNumber(rhs)
	if err != nil {
		return nil, err
	}
	return fn(l, r), nil
}

// Mul is number * number, or string * number for repetition.
func Mul(lhs, rhs Value) (Value, error) {
	switch l := lhs.(type) {
	case Number:
		r, err := AsNumber(rhs)
		if err != nil {
			return nil, err
		}
		return l * r, nil
	case String:
		r, ok := rhs.(Number)
		if !ok {
			return nil, &OperandError{Op: OpMultiplication, Type: TypeString, With: rhs.TypeName()}
		}
		return Repeat(l, r)
	}
	return nil, &OperationError{Op: OpMultiplication, Type: lhs.TypeName()}
}

// MaxRepeatLen bounds the length in bytes of a string built by repetition.
const MaxRepeatLen = 1 << 24

// Repeat repeats s trunc(count) times. Negative and NaN counts yield the
// empty string.
func Repeat(s String, count Number) (Value, error) {
	n := math.Trunc(float64(count))
	if math.IsNaN(n) || n <= 0 || s == "" {
		return String(""), nil
	}
	if math.IsInf(n, 1) || n*float64(len(s)) > MaxRepeatLen {
		return nil, &RepeatError{Len: len(s), Count: float64(count)}
	}
	return String(strings.Repeat(string(s), int(n))), nil
}

// Compare applies a relational or equality operator to two numbers or two
// strings. Strings compare lexicographically by bytes.
func Compare(op compiler.TokenKind, lhs, rhs Value) (Value, error) {
	switch l := lhs.(type) {
	case Number:
		r, err := AsNumber(rhs)
		if err != nil {
			return nil, err
		}
		return compareOrdered(op, l, r)
	case String:
		r, err := AsString(rhs)
		if err != nil {
			return nil, err
		}
		return compareOrdered(op, l, r)
	}
	return nil, &ComparisonError{Type: lhs.TypeName()}
}

func compareOrdered[T cmp.Ordered](op compiler.TokenKind, a, b T) (Value, error) {
	switch op {
	case compiler.TokenLess:
		return Bool(a < b), nil
	case compiler.TokenGreater:
		return Bool(a > b), nil
	case compiler.TokenLessEq:
		return Bool(a <= b), nil
	case compiler.TokenGreaterEq:
		return Bool(a >= b), nil
	case compiler.TokenEq:
		return Bool(a == b), nil
	case compiler.TokenNotEq:
		return Bool(a != b), nil
	}
	return nil, fmt.Errorf("unknown comparison operator %s", op)
}

// Negate is unary minus on a number.
func Negate(v Value) (Value, error) {
	n, err := AsNumber(v)
	if err != nil {
		return nil, err
	}
	return -n, nil
}

// Not inverts the truthiness of v. It never fails.
func Not(v Value) Value {
	return Bool(!Truthy(v))
}
