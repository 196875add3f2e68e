package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for stacc
// ---------------------------------------------------------------------------

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	String() string
	node() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes. Expressions produce a value
// when evaluated.
type Expr interface {
	Node
	expr() // marker method
}

// Identifier references a variable by name.
type Identifier struct {
	SpanVal Span
	Name    string
}

func (n *Identifier) Span() Span     { return n.SpanVal }
func (n *Identifier) String() string { return n.Name }
func (n *Identifier) node()          {}
func (n *Identifier) expr()          {}

// IntLiteral is an integer literal. It evaluates to a number.
type IntLiteral struct {
	SpanVal Span
	Value   int64
}

func (n *IntLiteral) Span() Span     { return n.SpanVal }
func (n *IntLiteral) String() string { return strconv.FormatInt(n.Value, 10) }
func (n *IntLiteral) node()          {}
func (n *IntLiteral) expr()          {}

// FloatLiteral is a floating-point literal.
type FloatLiteral struct {
	SpanVal Span
	Value   float64
}

func (n *FloatLiteral) Span() Span     { return n.SpanVal }
func (n *FloatLiteral) String() string { return strconv.FormatFloat(n.Value, 'f', -1, 64) }
func (n *FloatLiteral) node()          {}
func (n *FloatLiteral) expr()          {}

// StringLiteral is a string literal with its quotes stripped. Escape
// sequences are kept as written.
type StringLiteral struct {
	SpanVal Span
	Value   string
}

func (n *StringLiteral) Span() Span     { return n.SpanVal }
func (n *StringLiteral) String() string { return n.Value }
func (n *StringLiteral) node()          {}
func (n *StringLiteral) expr()          {}

// BoolLiteral is true or false.
type BoolLiteral struct {
	SpanVal Span
	Value   bool
}

func (n *BoolLiteral) Span() Span     { return n.SpanVal }
func (n *BoolLiteral) String() string { return strconv.FormatBool(n.Value) }
func (n *BoolLiteral) node()          {}
func (n *BoolLiteral) expr()          {}

// BinaryOp applies an infix operator to two operands.
type BinaryOp struct {
	SpanVal Span
	Op      TokenKind
	Lhs     Expr
	Rhs     Expr
}

func (n *BinaryOp) Span() Span { return n.SpanVal }
func (n *BinaryOp) String() string {
	return fmt.Sprintf("(%s %s %s)", n.Op.Symbol(), n.Lhs, n.Rhs)
}
func (n *BinaryOp) node() {}
func (n *BinaryOp) expr() {}

// UnaryOp applies a prefix operator (- or not) to an operand.
type UnaryOp struct {
	SpanVal Span
	Op      TokenKind
	Operand Expr
}

func (n *UnaryOp) Span() Span     { return n.SpanVal }
func (n *UnaryOp) String() string { return fmt.Sprintf("(%s %s)", n.Op.Symbol(), n.Operand) }
func (n *UnaryOp) node()          {}
func (n *UnaryOp) expr()          {}

// PopExpr pops a value off the current scope's stack for use as an operand.
type PopExpr struct {
	SpanVal Span
}

func (n *PopExpr) Span() Span     { return n.SpanVal }
func (n *PopExpr) String() string { return "pop" }
func (n *PopExpr) node()          {}
func (n *PopExpr) expr()          {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes. Statements produce no value.
type Stmt interface {
	Node
	stmt() // marker method
}

// FunctionDef binds a function under Name in the current scope.
type FunctionDef struct {
	SpanVal Span
	Name    string
	Params  []string
	Body    []Stmt
}

func (n *FunctionDef) Span() Span { return n.SpanVal }
func (n *FunctionDef) String() string {
	body := make([]string, len(n.Body))
	for i, s := range n.Body {
		body[i] = s.String()
	}
	return fmt.Sprintf("(define %s (%s) %s)", n.Name, strings.Join(n.Params, " "), strings.Join(body, " "))
}
func (n *FunctionDef) node() {}
func (n *FunctionDef) stmt() {}

// Assign evaluates Value and binds it to Name in the current scope.
type Assign struct {
	SpanVal Span
	Name    string
	Value   Expr
}

func (n *Assign) Span() Span     { return n.SpanVal }
func (n *Assign) String() string { return fmt.Sprintf("(set %s %s)", n.Name, n.Value) }
func (n *Assign) node()          {}
func (n *Assign) stmt()          {}

// Push evaluates Value and pushes it onto the current scope's stack.
type Push struct {
	SpanVal Span
	Value   Expr
}

func (n *Push) Span() Span     { return n.SpanVal }
func (n *Push) String() string { return fmt.Sprintf("(push %s)", n.Value) }
func (n *Push) node()          {}
func (n *Push) stmt()          {}

// Print evaluates Value and writes its display form and a newline.
type Print struct {
	SpanVal Span
	Value   Expr
}

func (n *Print) Span() Span     { return n.SpanVal }
func (n *Print) String() string { return fmt.Sprintf("(print %s)", n.Value) }
func (n *Print) node()          {}
func (n *Print) stmt()          {}

// Call invokes the function bound to Name.
type Call struct {
	SpanVal Span
	Name    string
}

func (n *Call) Span() Span     { return n.SpanVal }
func (n *Call) String() string { return fmt.Sprintf("(call %s)", n.Name) }
func (n *Call) node()          {}
func (n *Call) stmt()          {}

// PopStmt pops and discards the top of the current scope's stack.
type PopStmt struct {
	SpanVal Span
}

func (n *PopStmt) Span() Span     { return n.SpanVal }
func (n *PopStmt) String() string { return "pop" }
func (n *PopStmt) node()          {}
func (n *PopStmt) stmt()          {}
