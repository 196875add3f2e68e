package vm

import (
	"fmt"

	"github.com/chazu/stacc/compiler"
)

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (in *Interpreter) execAll(stmts []compiler.Stmt) error {
	for _, stmt := range stmts {
		if err := in.exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interpreter) exec(stmt compiler.Stmt) error {
	switch n := stmt.(type) {
	case *compiler.FunctionDef:
		in.env.Set(n.Name, Function{Name: n.Name, Params: n.Params, Body: n.Body})
		return nil
	case *compiler.Assign:
		v, err := in.eval(n.Value)
		if err != nil {
			return err
		}
		in.env.Set(n.Name, v)
		return nil
	case *compiler.Push:
		v, err := in.eval(n.Value)
		if err != nil {
			return err
		}
		in.env.Push(v)
		return nil
	case *compiler.PopStmt:
		_, err := in.env.Pop()
		return err
	case *compiler.Print:
		v, err := in.eval(n.Value)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(in.out, v.String()); err != nil {
			return fmt.Errorf("print: %w", err)
		}
		return nil
	case *compiler.Call:
		return in.call(n.Name)
	}
	return fmt.Errorf("unknown statement %T", stmt)
}

// call runs the function bound to name. Arguments come off the caller's
// stack, one per parameter, and bind in declaration order to the values
// in the order they were pushed. After the body completes, the top of the
// callee's stack, if any, is pushed onto the caller's stack.
func (in *Interpreter) call(name string) error {
	v, err := in.env.Get(name)
	if err != nil {
		return err
	}
	fn, err := AsFunction(v)
	if err != nil {
		return err
	}

	var ret Value
	err = in.env.WithScope(func(scope *Frame) error {
		args, err := in.env.Caller().PopN(len(fn.Params))
		if err != nil {
			return err
		}
		for i, param := range fn.Params {
			scope.Vars[param] = args[i]
		}

		if err := in.execAll(fn.Body); err != nil {
			return err
		}
		if len(scope.Stack) > 0 {
			ret, _ = scope.Pop()
		}
		return nil
	})
	if err != nil {
		return err
	}

	if ret != nil {
		in.env.Push(ret)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (in *Interpreter) eval(expr compiler.Expr) (Value, error) {
	switch n := expr.(type) {
	case *compiler.Identifier:
		return in.env.Get(n.Name)
	case *compiler.IntLiteral:
		return Number(n.Value), nil
	case *compiler.FloatLiteral:
		return Number(n.Value), nil
	case *compiler.StringLiteral:
		return String(n.Value), nil
	case *compiler.BoolLiteral:
		return Bool(n.Value), nil
	case *compiler.PopExpr:
		return in.env.Pop()
	case *compiler.UnaryOp:
		return in.evalUnary(n)
	case *compiler.BinaryOp:
		return in.evalBinary(n)
	}
	return nil, fmt.Errorf("unknown expression %T", expr)
}

func (in *Interpreter) evalUnary(n *compiler.UnaryOp) (Value, error) {
	v, err := in.eval(n.Operand)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case compiler.TokenMinus:
		return Negate(v)
	case compiler.TokenNot:
		return Not(v), nil
	}
	return nil, fmt.Errorf("unknown unary operator %s", n.Op)
}

// evalBinary evaluates the left operand first. and/or evaluate the right
// operand only when the left does not decide the result.
func (in *Interpreter) evalBinary(n *compiler.BinaryOp) (Value, error) {
	lhs, err := in.eval(n.Lhs)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case compiler.TokenAnd:
		if !Truthy(lhs) {
			return Bool(false), nil
		}
		return in.evalTruthy(n.Rhs)
	case compiler.TokenOr:
		if Truthy(lhs) {
			return Bool(true), nil
		}
		return in.evalTruthy(n.Rhs)
	}

	rhs, err := in.eval(n.Rhs)
	if err != nil {
		return nil, err
	}
	return Binary(n.Op, lhs, rhs)
}

func (in *Interpreter) evalTruthy(expr compiler.Expr) (Value, error) {
	v, err := in.eval(expr)
	if err != nil {
		return nil, err
	}
	return Bool(Truthy(v)), nil
}
