package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/chazu/stacc/history"
	"github.com/chazu/stacc/manifest"
	"github.com/chazu/stacc/vm"
)

type cliEnv struct {
	c      *cli
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newCLI() *cliEnv {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return &cliEnv{
		c:      &cli{manifest: manifest.Default(), stdout: stdout, stderr: stderr},
		stdout: stdout,
		stderr: stderr,
	}
}

// writeFile creates name in a temporary directory and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestWriteTokens(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{
			"push 1\n",
			"1:1\tpush\t\"push\"\n1:6\tinteger literal\t\"1\"\n1:7\tnewline\t\"\\n\"\n2:1\tEOF\t\"\"\n",
		},
		{
			"pop { note }",
			"1:1\tpop\t\"pop\"\n1:5\tcomment\t\"{ note }\"\n1:13\tnewline\t\"\"\n1:13\tEOF\t\"\"\n",
		},
	}
	for _, tc := range tests {
		var b strings.Builder
		writeTokens(&b, tc.src)
		if b.String() != tc.want {
			t.Errorf("writeTokens(%q) =\n%q\nwant\n%q", tc.src, b.String(), tc.want)
		}
	}
}

func TestCmdAST(t *testing.T) {
	e := newCLI()
	path := writeFile(t, "prog.stacc", "set x 1 + 2\npush \"hi\"\nbegin f : a\npop\nend\n")
	if err := cmdAST(e.c, []string{path}); err != nil {
		t.Fatalf("cmdAST: %v", err)
	}

	var nodes []*astNode
	if err := yaml.Unmarshal(e.stdout.Bytes(), &nodes); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, e.stdout.String())
	}
	if len(nodes) != 3 {
		t.Fatalf("got %d nodes, want 3", len(nodes))
	}

	set := nodes[0]
	if set.Kind != "set" || set.Name != "x" || set.Span != [2]int{0, 11} {
		t.Errorf("set node = %+v", set)
	}
	if set.Expr == nil || set.Expr.Kind != "binary" || set.Expr.Op != "+" {
		t.Fatalf("set expr = %+v, want binary +", set.Expr)
	}
	if got := fmt.Sprint(set.Expr.Lhs.Value); got != "1" {
		t.Errorf("lhs value = %s, want 1", got)
	}
	if set.Expr.Rhs.Span != [2]int{10, 11} {
		t.Errorf("rhs span = %v, want [10 11]", set.Expr.Rhs.Span)
	}

	push := nodes[1]
	if push.Kind != "push" || push.Expr.Kind != "string" || push.Expr.Value != "hi" {
		t.Errorf("push node = %+v, expr = %+v", push, push.Expr)
	}

	def := nodes[2]
	if def.Kind != "begin" || def.Name != "f" || strings.Join(def.Params, ",") != "a" {
		t.Errorf("begin node = %+v", def)
	}
	if len(def.Body) != 1 || def.Body[0].Kind != "pop" {
		t.Errorf("begin body = %+v, want [pop]", def.Body)
	}
}

func TestCmdASTParseError(t *testing.T) {
	e := newCLI()
	path := writeFile(t, "bad.stacc", "set 1 2\n")
	err := cmdAST(e.c, []string{path})
	if err == nil {
		t.Fatal("cmdAST succeeded on bad input")
	}
	want := path + ": parse error at 1:5: expected identifier, got integer literal"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestCmdFmt(t *testing.T) {
	e := newCLI()
	path := writeFile(t, "prog.stacc", "set   x 1+2*3\n")
	if err := cmdFmt(e.c, []string{path}); err != nil {
		t.Fatalf("cmdFmt: %v", err)
	}
	if got := e.stdout.String(); got != "set x 1 + 2 * 3\n" {
		t.Errorf("stdout = %q, want formatted source", got)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "set   x 1+2*3\n" {
		t.Errorf("file changed without -w: %q", data)
	}
}

func TestCmdFmtWrite(t *testing.T) {
	e := newCLI()
	path := writeFile(t, "prog.stacc", "push (1-2)-3")
	if err := os.Chmod(path, 0o600); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	if err := cmdFmt(e.c, []string{"-w", path}); err != nil {
		t.Fatalf("cmdFmt -w: %v", err)
	}
	if e.stdout.Len() != 0 {
		t.Errorf("stdout = %q, want nothing with -w", e.stdout.String())
	}
	data, _ := os.ReadFile(path)
	if string(data) != "push 1 - 2 - 3\n" {
		t.Errorf("file = %q, want %q", data, "push 1 - 2 - 3\n")
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestSubcommandUsage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"tokens", nil},
		{"ast", []string{"a", "b"}},
		{"fmt", []string{"-bogus", "x"}},
		{"run", []string{"a", "b"}},
		{"run", nil},
		{"history", []string{"extra"}},
		{"history", nil},
	}
	for _, tc := range tests {
		e := newCLI()
		err := subcommands[tc.name](e.c, tc.args)
		if !errors.Is(err, errUsage) {
			t.Errorf("%s %v error = %v, want a usage error", tc.name, tc.args, err)
		}
	}
}

func TestRunFile(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		code   int
		stdout string
		stderr string
	}{
		{"ok", "push 2\npush 3\nbegin add : a b\npush a + b\nend\ncall add\nprint pop\n", 0, "5\n", ""},
		{"runtime error keeps output", "print 1\nprint nope\nprint 2\n", 1, "1\n", "value error: nope is undefined\n"},
		{"parse error runs nothing", "print 1\nset 1 2\n", 1, "", "parse error at 2:5: expected identifier, got integer literal\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newCLI()
			path := writeFile(t, "prog.stacc", tc.src)
			if code := e.c.runFile(path); code != tc.code {
				t.Errorf("exit code = %d, want %d", code, tc.code)
			}
			if e.stdout.String() != tc.stdout {
				t.Errorf("stdout = %q, want %q", e.stdout.String(), tc.stdout)
			}
			if !strings.HasSuffix(e.stderr.String(), tc.stderr) {
				t.Errorf("stderr = %q, want suffix %q", e.stderr.String(), tc.stderr)
			}
		})
	}
}

func TestRunFileMissing(t *testing.T) {
	e := newCLI()
	if code := e.c.runFile(filepath.Join(t.TempDir(), "missing.stacc")); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.HasPrefix(e.stderr.String(), "Error: ") {
		t.Errorf("stderr = %q, want an error", e.stderr.String())
	}
}

func TestCmdRunEntry(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.stacc"), []byte("print \"entry\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	e := newCLI()
	e.c.manifest.Dir = dir
	e.c.manifest.Project.Entry = "main.stacc"

	if err := cmdRun(e.c, nil); err != nil {
		t.Fatalf("cmdRun: %v", err)
	}
	if got := e.stdout.String(); got != "entry\n" {
		t.Errorf("stdout = %q, want %q", got, "entry\n")
	}
}

func TestRunFileWithImage(t *testing.T) {
	img := filepath.Join(t.TempDir(), "seed.img")
	seed := vm.Snapshot{
		Variables: map[string]vm.Value{"base": vm.Number(40)},
		Stack:     []vm.Value{vm.Number(2)},
	}
	if err := vm.SaveImage(img, seed); err != nil {
		t.Fatalf("SaveImage: %v", err)
	}

	e := newCLI()
	e.c.imagePath = img
	path := writeFile(t, "prog.stacc", "print base + pop\n")
	if code := e.c.runFile(path); code != 0 {
		t.Fatalf("exit code = %d, stderr %q", code, e.stderr.String())
	}
	if got := e.stdout.String(); got != "42\n" {
		t.Errorf("stdout = %q, want %q", got, "42\n")
	}

	e = newCLI()
	e.c.imagePath = filepath.Join(t.TempDir(), "missing.img")
	if code := e.c.runFile(path); code != 1 {
		t.Errorf("exit code with missing image = %d, want 1", code)
	}
}

func TestCmdHistory(t *testing.T) {
	db := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(db)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	for _, e := range []history.Entry{
		{Session: "a", Source: "push 1\n", OK: true},
		{Session: "b", Source: "pop\n", Message: "stack error: stack is empty"},
		{Session: "a", Source: "print 2\n", OK: true},
	} {
		if _, err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	store.Close()

	e := newCLI()
	if err := cmdHistory(e.c, []string{"-db", db, "-session", "a"}); err != nil {
		t.Fatalf("history: %v", err)
	}
	out := e.stdout.String()
	if !strings.Contains(out, "    push 1\n") || !strings.Contains(out, "    print 2\n") || strings.Contains(out, "pop") {
		t.Errorf("session a transcript = %q", out)
	}

	e = newCLI()
	if err := cmdHistory(e.c, []string{"-db", db, "-sessions"}); err != nil {
		t.Fatalf("history -sessions: %v", err)
	}
	if got := e.stdout.String(); got != "a\nb\n" {
		t.Errorf("sessions = %q, want %q", got, "a\nb\n")
	}

	e = newCLI()
	if err := cmdHistory(e.c, []string{"-db", db, "-clear", "-session", "b"}); err != nil {
		t.Fatalf("history -clear: %v", err)
	}
	if got := e.stdout.String(); got != "removed 1 entries\n" {
		t.Errorf("clear output = %q", got)
	}

	e = newCLI()
	if err := cmdHistory(e.c, []string{"-db", db, "-n", "1"}); err != nil {
		t.Fatalf("history -n 1: %v", err)
	}
	if out := e.stdout.String(); strings.Count(out, "\n[") != 0 || !strings.Contains(out, "print 2") {
		t.Errorf("last entry = %q, want only print 2", out)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err    error
		code   int
		output string
	}{
		{nil, 0, ""},
		{errSilent, 1, ""},
		{fmt.Errorf("%w: bad flag", errUsage), 2, "usage error: bad flag\n"},
		{errors.New("boom"), 1, "boom\n"},
	}
	for _, tc := range tests {
		var b strings.Builder
		if got := exitCode(&b, tc.err); got != tc.code {
			t.Errorf("exitCode(%v) = %d, want %d", tc.err, got, tc.code)
		}
		if b.String() != tc.output {
			t.Errorf("exitCode(%v) wrote %q, want %q", tc.err, b.String(), tc.output)
		}
	}
}
