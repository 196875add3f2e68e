package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chazu/stacc/compiler"
)

// subcommands maps a leading argument to its handler. Handlers report
// user mistakes wrapped in errUsage.
var subcommands = map[string]func(c *cli, args []string) error{
	"run":     cmdRun,
	"tokens":  cmdTokens,
	"ast":     cmdAST,
	"fmt":     cmdFmt,
	"history": cmdHistory,
}

// readSource reads the single file argument of a subcommand.
func readSource(name string, args []string) (path, src string, err error) {
	if len(args) != 1 {
		return "", "", fmt.Errorf("%w: %s takes exactly one file", errUsage, name)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", err
	}
	return args[0], string(data), nil
}

// ---------------------------------------------------------------------------
// stacc tokens
// ---------------------------------------------------------------------------

func cmdTokens(c *cli, args []string) error {
	_, src, err := readSource("tokens", args)
	if err != nil {
		return err
	}
	writeTokens(c.stdout, src)
	return nil
}

// writeTokens prints one token per line: 1-based position, kind, text.
func writeTokens(w io.Writer, src string) {
	for _, tok := range compiler.TokenizeWithComments(src) {
		line, col := compiler.LineColumn(src, tok.Span.Start)
		fmt.Fprintf(w, "%d:%d\t%s\t%q\n", line+1, col+1, tok.Kind, tok.Span.Text(src))
	}
}

// ---------------------------------------------------------------------------
// stacc ast
// ---------------------------------------------------------------------------

func cmdAST(c *cli, args []string) error {
	path, src, err := readSource("ast", args)
	if err != nil {
		return err
	}
	stmts, err := compiler.Parse(src)
	if err != nil {
		return fmt.Errorf("%s: %s", path, compiler.Diagnose(err, src))
	}
	return writeAST(c.stdout, stmts)
}

// astNode is the YAML shape of a syntax tree node.
type astNode struct {
	Kind    string     `yaml:"kind"`
	Name    string     `yaml:"name,omitempty"`
	Op      string     `yaml:"op,omitempty"`
	Value   any        `yaml:"value,omitempty"`
	Params  []string   `yaml:"params,omitempty,flow"`
	Lhs     *astNode   `yaml:"lhs,omitempty"`
	Rhs     *astNode   `yaml:"rhs,omitempty"`
	Operand *astNode   `yaml:"operand,omitempty"`
	Expr    *astNode   `yaml:"expr,omitempty"`
	Body    []*astNode `yaml:"body,omitempty"`
	Span    [2]int     `yaml:"span,flow"`
}

func writeAST(w io.Writer, stmts []compiler.Stmt) error {
	nodes := make([]*astNode, len(stmts))
	for i, s := range stmts {
		nodes[i] = stmtNode(s)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(nodes); err != nil {
		return err
	}
	return enc.Close()
}

func span(n compiler.Node) [2]int {
	s := n.Span()
	return [2]int{s.Start, s.End}
}

func stmtNode(s compiler.Stmt) *astNode {
	switch n := s.(type) {
	case *compiler.FunctionDef:
		node := &astNode{Kind: "begin", Name: n.Name, Params: n.Params, Span: span(n)}
		for _, b := range n.Body {
			node.Body = append(node.Body, stmtNode(b))
		}
		return node
	case *compiler.Assign:
		return &astNode{Kind: "set", Name: n.Name, Expr: exprNode(n.Value), Span: span(n)}
	case *compiler.Push:
		return &astNode{Kind: "push", Expr: exprNode(n.Value), Span: span(n)}
	case *compiler.PopStmt:
		return &astNode{Kind: "pop", Span: span(n)}
	case *compiler.Print:
		return &astNode{Kind: "print", Expr: exprNode(n.Value), Span: span(n)}
	case *compiler.Call:
		return &astNode{Kind: "call", Name: n.Name, Span: span(n)}
	}
	return &astNode{Kind: fmt.Sprintf("%T", s), Span: span(s)}
}

func exprNode(e compiler.Expr) *astNode {
	switch n := e.(type) {
	case *compiler.Identifier:
		return &astNode{Kind: "ident", Name: n.Name, Span: span(n)}
	case *compiler.IntLiteral:
		return &astNode{Kind: "int", Value: n.Value, Span: span(n)}
	case *compiler.FloatLiteral:
		return &astNode{Kind: "float", Value: n.Value, Span: span(n)}
	case *compiler.StringLiteral:
		return &astNode{Kind: "string", Value: n.Value, Span: span(n)}
	case *compiler.BoolLiteral:
		return &astNode{Kind: "bool", Value: n.Value, Span: span(n)}
	case *compiler.PopExpr:
		return &astNode{Kind: "pop", Span: span(n)}
	case *compiler.UnaryOp:
		return &astNode{Kind: "unary", Op: n.Op.Symbol(), Operand: exprNode(n.Operand), Span: span(n)}
	case *compiler.BinaryOp:
		return &astNode{Kind: "binary", Op: n.Op.Symbol(), Lhs: exprNode(n.Lhs), Rhs: exprNode(n.Rhs), Span: span(n)}
	}
	return &astNode{Kind: fmt.Sprintf("%T", e), Span: span(e)}
}

// ---------------------------------------------------------------------------
// stacc fmt
// ---------------------------------------------------------------------------

func cmdFmt(c *cli, args []string) error {
	fs := flag.NewFlagSet("fmt", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	write := fs.Bool("w", false, "write result to the file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	path, src, err := readSource("fmt", fs.Args())
	if err != nil {
		return err
	}
	out, err := compiler.FormatSource(src)
	if err != nil {
		return fmt.Errorf("%s: %s", path, compiler.Diagnose(err, src))
	}

	if !*write {
		_, err := io.WriteString(c.stdout, out)
		return err
	}
	if out == src {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(out), info.Mode().Perm())
}

// ---------------------------------------------------------------------------
// stacc history
// ---------------------------------------------------------------------------

func cmdHistory(c *cli, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	limit := fs.Int("n", 20, "number of entries to show (0 for all)")
	session := fs.String("session", "", "only this session")
	dbPath := fs.String("db", "", "transcript database; default from stacc.toml")
	clearEntries := fs.Bool("clear", false, "delete the selected entries instead of showing them")
	sessions := fs.Bool("sessions", false, "list session ids")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("%w: history takes no arguments", errUsage)
	}

	store, err := c.openHistory(*dbPath)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("%w: no transcript database; pass -db or set repl.history-db in stacc.toml", errUsage)
	}
	defer store.Close()

	ctx := context.Background()
	switch {
	case *clearEntries:
		n, err := store.Clear(ctx, *session)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "removed %d entries\n", n)
	case *sessions:
		ids, err := store.Sessions(ctx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(c.stdout, id)
		}
	default:
		entries, err := store.Recent(ctx, *session, *limit)
		if err != nil {
			return err
		}
		writeEntries(c.stdout, entries)
	}
	return nil
}
