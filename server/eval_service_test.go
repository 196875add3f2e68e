package server

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"connectrpc.com/connect"

	"github.com/chazu/stacc/history"
	"github.com/chazu/stacc/vm"
)

// ---------------------------------------------------------------------------
// Evaluate: happy paths
// ---------------------------------------------------------------------------

func TestEvaluate_Print(t *testing.T) {
	env := newTestEnv()

	resp, err := env.Eval.Evaluate(bg(), connectReq(&EvaluateRequest{Source: "print 1 + 2\n"}))
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if !resp.Msg.Success {
		t.Fatalf("Evaluate was not successful: %s", resp.Msg.Error)
	}
	if resp.Msg.Output != "3\n" {
		t.Errorf("Output = %q, want %q", resp.Msg.Output, "3\n")
	}
	if len(resp.Msg.Variables) != 0 || len(resp.Msg.Stack) != 0 {
		t.Errorf("state = %v %v, want empty", resp.Msg.Variables, resp.Msg.Stack)
	}
}

func TestEvaluate_ReportsState(t *testing.T) {
	env := newTestEnv()

	resp, err := env.Eval.Evaluate(bg(), connectReq(&EvaluateRequest{
		Source: "set y \"hi\"\nset x 5\npush x * 2\npush true\n",
	}))
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	want := []Binding{
		{Name: "x", Type: "number", Value: "5"},
		{Name: "y", Type: "string", Value: "hi"},
	}
	if len(resp.Msg.Variables) != len(want) {
		t.Fatalf("Variables = %v, want %v", resp.Msg.Variables, want)
	}
	for i := range want {
		if resp.Msg.Variables[i] != want[i] {
			t.Errorf("Variables[%d] = %v, want %v", i, resp.Msg.Variables[i], want[i])
		}
	}
	wantStack := []StackEntry{{Type: "number", Value: "10"}, {Type: "boolean", Value: "true"}}
	if len(resp.Msg.Stack) != len(wantStack) {
		t.Fatalf("Stack = %v, want %v", resp.Msg.Stack, wantStack)
	}
	for i := range wantStack {
		if resp.Msg.Stack[i] != wantStack[i] {
			t.Errorf("Stack[%d] = %v, want %v", i, resp.Msg.Stack[i], wantStack[i])
		}
	}
}

func TestEvaluate_StatePersistsAcrossCalls(t *testing.T) {
	env := newTestEnv()

	steps := []string{
		"begin add : a b\npush a + b\nend\n",
		"push 2\npush 3\ncall add\n",
		"print pop\n",
	}
	var resp *connect.Response[EvaluateResponse]
	for _, src := range steps {
		var err error
		resp, err = env.Eval.Evaluate(bg(), connectReq(&EvaluateRequest{Source: src}))
		if err != nil {
			t.Fatalf("Evaluate(%q) returned error: %v", src, err)
		}
		if !resp.Msg.Success {
			t.Fatalf("Evaluate(%q) failed: %s", src, resp.Msg.Error)
		}
	}
	if resp.Msg.Output != "5\n" {
		t.Errorf("Output = %q, want %q", resp.Msg.Output, "5\n")
	}
}

func TestEvaluate_SessionsAreIsolated(t *testing.T) {
	env := newTestEnv()
	a := env.Sessions.Create("a")
	b := env.Sessions.Create("b")

	if _, err := env.Eval.Evaluate(bg(), connectReq(&EvaluateRequest{SessionID: a.ID, Source: "set x 1\n"})); err != nil {
		t.Fatalf("Evaluate in a: %v", err)
	}
	resp, err := env.Eval.Evaluate(bg(), connectReq(&EvaluateRequest{SessionID: b.ID, Source: "print x\n"}))
	if err != nil {
		t.Fatalf("Evaluate in b: %v", err)
	}
	if resp.Msg.Success {
		t.Fatal("x leaked from session a into session b")
	}
	if resp.Msg.Error != "value error: x is undefined" {
		t.Errorf("Error = %q", resp.Msg.Error)
	}
}

// ---------------------------------------------------------------------------
// Evaluate: failures
// ---------------------------------------------------------------------------

func TestEvaluate_RuntimeErrorKeepsEarlierEffects(t *testing.T) {
	env := newTestEnv()

	resp, err := env.Eval.Evaluate(bg(), connectReq(&EvaluateRequest{
		Source: "set x 1\nprint x\npop\nprint 2\n",
	}))
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if resp.Msg.Success {
		t.Fatal("Evaluate succeeded, want runtime error")
	}
	if resp.Msg.Error != "stack error: stack is empty" {
		t.Errorf("Error = %q, want %q", resp.Msg.Error, "stack error: stack is empty")
	}
	if resp.Msg.Output != "1\n" {
		t.Errorf("Output = %q, want %q", resp.Msg.Output, "1\n")
	}
	if len(resp.Msg.Variables) != 1 || resp.Msg.Variables[0].Name != "x" {
		t.Errorf("Variables = %v, want x", resp.Msg.Variables)
	}
}

func TestEvaluate_ParseError(t *testing.T) {
	env := newTestEnv()

	resp, err := env.Eval.Evaluate(bg(), connectReq(&EvaluateRequest{Source: "set x 1\nset 2 3\n"}))
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if resp.Msg.Success {
		t.Fatal("Evaluate succeeded, want parse error")
	}
	if len(resp.Msg.Diagnostics) != 1 {
		t.Fatalf("Diagnostics = %v, want one", resp.Msg.Diagnostics)
	}
	want := Diagnostic{Line: 1, Column: 4, EndLine: 1, EndColumn: 5, Message: "expected identifier, got integer literal"}
	if resp.Msg.Diagnostics[0] != want {
		t.Errorf("Diagnostic = %+v, want %+v", resp.Msg.Diagnostics[0], want)
	}
	if resp.Msg.Error != "parse error at 2:5: expected identifier, got integer literal" {
		t.Errorf("Error = %q", resp.Msg.Error)
	}
	// Nothing runs when the program does not parse.
	if len(resp.Msg.Variables) != 0 {
		t.Errorf("Variables = %v, want none", resp.Msg.Variables)
	}
}

func TestEvaluate_EmptySource(t *testing.T) {
	env := newTestEnv()

	_, err := env.Eval.Evaluate(bg(), connectReq(&EvaluateRequest{Source: ""}))
	if codeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("code = %v, want %v", codeOf(err), connect.CodeInvalidArgument)
	}
}

func TestEvaluate_UnknownSession(t *testing.T) {
	env := newTestEnv()

	_, err := env.Eval.Evaluate(bg(), connectReq(&EvaluateRequest{SessionID: "s-999", Source: "print 1\n"}))
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		t.Fatalf("error = %v, want *connect.Error", err)
	}
	if connectErr.Code() != connect.CodeNotFound {
		t.Errorf("code = %v, want %v", connectErr.Code(), connect.CodeNotFound)
	}
}

func TestEvaluate_StoppedWorker(t *testing.T) {
	w := NewWorker()
	w.Stop()
	sessions := NewSessionStore()
	sessions.add(DefaultSessionID, "")
	svc := NewEvalService(w, sessions, nil)

	_, err := svc.Evaluate(bg(), connectReq(&EvaluateRequest{Source: "print 1\n"}))
	if codeOf(err) != connect.CodeUnavailable {
		t.Errorf("code = %v, want %v", codeOf(err), connect.CodeUnavailable)
	}
}

func TestEvaluate_RestoresOutput(t *testing.T) {
	env := newTestEnv()
	session, _ := env.Sessions.Get(DefaultSessionID)
	var sink strings.Builder
	session.Interp.SetOutput(&sink)

	if _, err := env.Eval.Evaluate(bg(), connectReq(&EvaluateRequest{Source: "print 1\n"})); err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if session.Interp.Output() != &sink {
		t.Error("Evaluate did not restore the interpreter's output")
	}
	if sink.Len() != 0 {
		t.Errorf("captured output leaked to the original writer: %q", sink.String())
	}
}

// ---------------------------------------------------------------------------
// CheckSyntax
// ---------------------------------------------------------------------------

func TestCheckSyntax(t *testing.T) {
	env := newTestEnv()

	tests := []struct {
		source string
		valid  bool
	}{
		{"print 1 + 2\n", true},
		{"begin f :\npush 1\nend\n", true},
		{"print (1 + 2\n", false},
		{"begin f :\n", false},
		{"end\n", false},
	}
	for _, tc := range tests {
		resp, err := env.Eval.CheckSyntax(bg(), connectReq(&CheckSyntaxRequest{Source: tc.source}))
		if err != nil {
			t.Errorf("CheckSyntax(%q) returned error: %v", tc.source, err)
			continue
		}
		if resp.Msg.Valid != tc.valid {
			t.Errorf("CheckSyntax(%q).Valid = %v, want %v", tc.source, resp.Msg.Valid, tc.valid)
		}
		if !tc.valid && len(resp.Msg.Diagnostics) != 1 {
			t.Errorf("CheckSyntax(%q) diagnostics = %v, want one", tc.source, resp.Msg.Diagnostics)
		}
	}
}

func TestCheckSyntax_DoesNotRun(t *testing.T) {
	env := newTestEnv()

	if _, err := env.Eval.CheckSyntax(bg(), connectReq(&CheckSyntaxRequest{Source: "set x 1\n"})); err != nil {
		t.Fatalf("CheckSyntax returned error: %v", err)
	}
	session, _ := env.Sessions.Get(DefaultSessionID)
	if n := len(session.Interp.State().Variables); n != 0 {
		t.Errorf("CheckSyntax bound %d variables", n)
	}
}

func TestCheckSyntax_EmptySource(t *testing.T) {
	env := newTestEnv()

	_, err := env.Eval.CheckSyntax(bg(), connectReq(&CheckSyntaxRequest{}))
	if codeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("code = %v, want %v", codeOf(err), connect.CodeInvalidArgument)
	}
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

func TestCreateAndDestroySession(t *testing.T) {
	env := newTestEnv()

	created, err := env.Eval.CreateSession(bg(), connectReq(&CreateSessionRequest{Name: "scratch"}))
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	id := created.Msg.ID
	if !strings.HasPrefix(id, "s-") {
		t.Errorf("id = %q, want s-<n>", id)
	}

	list, err := env.Eval.ListSessions(bg(), connectReq(&ListSessionsRequest{}))
	if err != nil {
		t.Fatalf("ListSessions returned error: %v", err)
	}
	if len(list.Msg.Sessions) != 2 || list.Msg.Sessions[1] != (SessionInfo{ID: id, Name: "scratch"}) {
		t.Errorf("Sessions = %v", list.Msg.Sessions)
	}

	if _, err := env.Eval.DestroySession(bg(), connectReq(&DestroySessionRequest{ID: id})); err != nil {
		t.Fatalf("DestroySession returned error: %v", err)
	}
	if _, ok := env.Sessions.Get(id); ok {
		t.Error("session still present after DestroySession")
	}
}

func TestDestroySession_Errors(t *testing.T) {
	env := newTestEnv()

	tests := []struct {
		id   string
		code connect.Code
	}{
		{"", connect.CodeInvalidArgument},
		{DefaultSessionID, connect.CodeInvalidArgument},
		{"s-404", connect.CodeNotFound},
	}
	for _, tc := range tests {
		_, err := env.Eval.DestroySession(bg(), connectReq(&DestroySessionRequest{ID: tc.id}))
		if codeOf(err) != tc.code {
			t.Errorf("DestroySession(%q) code = %v, want %v", tc.id, codeOf(err), tc.code)
		}
	}
}

// ---------------------------------------------------------------------------
// History
// ---------------------------------------------------------------------------

func TestEvaluate_RecordsHistory(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	defer store.Close()

	sessions := NewSessionStore()
	sessions.add(DefaultSessionID, "")
	svc := NewEvalService(testWorker, sessions, store)

	for _, src := range []string{"set x 1\n", "pop\n"} {
		if _, err := svc.Evaluate(bg(), connectReq(&EvaluateRequest{Source: src})); err != nil {
			t.Fatalf("Evaluate(%q) returned error: %v", src, err)
		}
	}

	entries, err := store.Recent(bg(), DefaultSessionID, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if !entries[0].OK || entries[0].Source != "set x 1\n" {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].OK || entries[1].Message != "stack error: stack is empty" {
		t.Errorf("entries[1] = %+v", entries[1])
	}
}

// ---------------------------------------------------------------------------
// Over HTTP
// ---------------------------------------------------------------------------

func TestServer_OverHTTP(t *testing.T) {
	_, client := newTestServer(t)

	id, err := client.CreateSession(bg(), "http")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	resp, err := client.Evaluate(bg(), id, "set greeting \"hello\"\nprint greeting * 2\n")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !resp.Success || resp.Output != "hellohello\n" {
		t.Errorf("Evaluate = %+v", resp)
	}

	check, err := client.CheckSyntax(bg(), "print\n")
	if err != nil {
		t.Fatalf("CheckSyntax: %v", err)
	}
	if check.Valid {
		t.Error("CheckSyntax(print) is valid, want invalid")
	}

	sessions, err := client.ListSessions(bg())
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != DefaultSessionID || sessions[1].ID != id {
		t.Errorf("ListSessions = %v", sessions)
	}

	if err := client.DestroySession(bg(), id); err != nil {
		t.Fatalf("DestroySession: %v", err)
	}
	_, err = client.Evaluate(bg(), id, "print 1\n")
	if codeOf(err) != connect.CodeNotFound {
		t.Errorf("Evaluate after destroy code = %v, want %v", codeOf(err), connect.CodeNotFound)
	}
}

func TestServer_EmptySourceOverHTTP(t *testing.T) {
	_, client := newTestServer(t)

	_, err := client.Evaluate(bg(), "", "")
	if codeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("code = %v, want %v", codeOf(err), connect.CodeInvalidArgument)
	}
}

func TestServer_Seed(t *testing.T) {
	seed := vm.Snapshot{
		Variables: map[string]vm.Value{"x": vm.Number(7)},
		Stack:     []vm.Value{vm.String("bottom")},
	}
	_, client := newTestServer(t, WithSeed(seed))

	resp, err := client.Evaluate(bg(), "", "print x\nprint pop\n")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if resp.Output != "7\nbottom\n" {
		t.Errorf("Output = %q, want %q", resp.Output, "7\nbottom\n")
	}
}
