package vm

import (
	"io"
	"maps"
	"os"
	"slices"

	"github.com/chazu/stacc/compiler"
)

// ---------------------------------------------------------------------------
// Interpreter: tree-walking evaluator
// ---------------------------------------------------------------------------

// Interpreter executes statements against its own Environment. It is not
// safe for concurrent use; callers that share one serialize access.
type Interpreter struct {
	env *Environment
	out io.Writer
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithOutput directs print output to w. The default is os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(in *Interpreter) {
		in.out = w
	}
}

// New creates an Interpreter with an empty global scope.
func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		env: NewEnvironment(),
		out: os.Stdout,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// SetOutput replaces the print destination.
func (in *Interpreter) SetOutput(w io.Writer) {
	in.out = w
}

// Output returns the current print destination.
func (in *Interpreter) Output() io.Writer {
	return in.out
}

// Run executes stmts in order and stops at the first error. State changed
// by statements before the failing one is kept.
func (in *Interpreter) Run(stmts []compiler.Stmt) error {
	return in.execAll(stmts)
}

// RunOne executes a single statement.
func (in *Interpreter) RunOne(stmt compiler.Stmt) error {
	return in.exec(stmt)
}

// Eval evaluates an expression in the current scope.
func (in *Interpreter) Eval(expr compiler.Expr) (Value, error) {
	return in.eval(expr)
}

// Depth reports the current environment depth. It is 0 whenever no
// statement is executing.
func (in *Interpreter) Depth() int {
	return in.env.Depth()
}

// Reset discards all global variables and the global stack.
func (in *Interpreter) Reset() {
	in.env = NewEnvironment()
}

// ---------------------------------------------------------------------------
// Snapshot: read-only view of global state
// ---------------------------------------------------------------------------

// Snapshot is a copy of the global variables and the global stack, bottom
// first.
type Snapshot struct {
	Variables map[string]Value
	Stack     []Value
}

// Names returns the variable names in sorted order.
func (s Snapshot) Names() []string {
	return slices.Sorted(maps.Keys(s.Variables))
}

// State returns a copy of the global scope.
func (in *Interpreter) State() Snapshot {
	g := in.env.Global()
	return Snapshot{
		Variables: maps.Clone(g.Vars),
		Stack:     slices.Clone(g.Stack),
	}
}

// Restore replaces the global scope with a copy of snap.
func (in *Interpreter) Restore(snap Snapshot) {
	env := NewEnvironment()
	g := env.Global()
	for name, v := range snap.Variables {
		g.Vars[name] = v
	}
	g.Stack = slices.Clone(snap.Stack)
	in.env = env
}
