package compiler

import (
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Canonical source formatter
// ---------------------------------------------------------------------------

const indentUnit = "    "

// FormatSource parses src and returns it canonically formatted.
func FormatSource(src string) (string, error) {
	stmts, err := Parse(src)
	if err != nil {
		return "", err
	}
	return Format(stmts), nil
}

// Format renders statements as source text, one statement per line.
func Format(stmts []Stmt) string {
	f := &formatter{buf: &strings.Builder{}}
	for _, s := range stmts {
		f.formatStmt(s)
	}
	return f.buf.String()
}

// FormatExpr renders a single expression with minimal parentheses.
func FormatExpr(e Expr) string {
	f := &formatter{buf: &strings.Builder{}}
	f.formatExpr(e)
	return f.buf.String()
}

// formatter walks the AST and emits canonically formatted source.
type formatter struct {
	indent int
	buf    *strings.Builder
}

func (f *formatter) write(s string) {
	f.buf.WriteString(s)
}

func (f *formatter) writeIndent() {
	for i := 0; i < f.indent; i++ {
		f.buf.WriteString(indentUnit)
	}
}

func (f *formatter) formatStmt(s Stmt) {
	f.writeIndent()
	switch n := s.(type) {
	case *Assign:
		f.write("set " + n.Name + " ")
		f.formatExpr(n.Value)
	case *Push:
		f.write("push ")
		f.formatExpr(n.Value)
	case *Print:
		f.write("print ")
		f.formatExpr(n.Value)
	case *Call:
		f.write("call " + n.Name)
	case *PopStmt:
		f.write("pop")
	case *FunctionDef:
		f.write("begin " + n.Name + " :")
		for _, param := range n.Params {
			f.write(" " + param)
		}
		f.write("\n")
		f.indent++
		for _, b := range n.Body {
			f.formatStmt(b)
		}
		f.indent--
		f.writeIndent()
		f.write("end")
	}
	f.write("\n")
}

func (f *formatter) formatExpr(e Expr) {
	switch n := e.(type) {
	case *Identifier:
		f.write(n.Name)
	case *PopExpr:
		f.write("pop")
	case *IntLiteral:
		f.write(strconv.FormatInt(n.Value, 10))
	case *FloatLiteral:
		f.write(formatFloatLiteral(n.Value))
	case *StringLiteral:
		f.write(`"` + n.Value + `"`)
	case *BoolLiteral:
		f.write(strconv.FormatBool(n.Value))
	case *UnaryOp:
		f.write(n.Op.Symbol())
		if n.Op == TokenNot {
			f.write(" ")
		}
		f.formatOperand(n.Operand, needsParensAsPrefixOperand(n.Operand))
	case *BinaryOp:
		left, _, _ := InfixBindingPower(n.Op)
		f.formatOperand(n.Lhs, bindsLooser(n.Lhs, left, false))
		f.write(" " + n.Op.Symbol() + " ")
		f.formatOperand(n.Rhs, bindsLooser(n.Rhs, left, true))
	}
}

func (f *formatter) formatOperand(e Expr, parens bool) {
	if parens {
		f.write("(")
	}
	f.formatExpr(e)
	if parens {
		f.write(")")
	}
}

// bindsLooser reports whether e must be parenthesized as an operand of an
// operator with left binding power parent. Right operands also need
// parentheses at equal power because all operators group to the left.
func bindsLooser(e Expr, parent int, right bool) bool {
	bin, ok := e.(*BinaryOp)
	if !ok {
		return false
	}
	child, _, _ := InfixBindingPower(bin.Op)
	if right {
		return child <= parent
	}
	return child < parent
}

// needsParensAsPrefixOperand reports whether e must be parenthesized after a
// prefix operator. Prefix operators bind tighter than every infix operator.
func needsParensAsPrefixOperand(e Expr) bool {
	_, ok := e.(*BinaryOp)
	return ok
}

// formatFloatLiteral renders f so that it lexes back as a float literal.
func formatFloatLiteral(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
