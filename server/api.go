package server

import (
	"encoding/json"

	"github.com/chazu/stacc/compiler"
	"github.com/chazu/stacc/vm"
)

// ---------------------------------------------------------------------------
// Procedures
// ---------------------------------------------------------------------------

// EvalServiceName is the fully-qualified name of the evaluation service.
const EvalServiceName = "stacc.v1.EvalService"

const (
	CreateSessionProcedure  = "/" + EvalServiceName + "/CreateSession"
	DestroySessionProcedure = "/" + EvalServiceName + "/DestroySession"
	ListSessionsProcedure   = "/" + EvalServiceName + "/ListSessions"
	EvaluateProcedure       = "/" + EvalServiceName + "/Evaluate"
	CheckSyntaxProcedure    = "/" + EvalServiceName + "/CheckSyntax"
)

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

type CreateSessionRequest struct {
	Name string `json:"name,omitempty"`
}

type CreateSessionResponse struct {
	ID string `json:"id"`
}

type DestroySessionRequest struct {
	ID string `json:"id"`
}

type DestroySessionResponse struct{}

type ListSessionsRequest struct{}

type ListSessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

type SessionInfo struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type EvaluateRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Source    string `json:"source"`
}

// EvaluateResponse reports the outcome of running a program and the
// session's global state afterwards. Output holds everything printed,
// including output produced before a runtime error.
type EvaluateResponse struct {
	Success     bool         `json:"success"`
	Output      string       `json:"output,omitempty"`
	Error       string       `json:"error,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	Variables   []Binding    `json:"variables,omitempty"`
	Stack       []StackEntry `json:"stack,omitempty"`
}

type CheckSyntaxRequest struct {
	Source string `json:"source"`
}

type CheckSyntaxResponse struct {
	Valid       bool         `json:"valid"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Diagnostic is a parse error position. Lines and columns are 0-based.
type Diagnostic struct {
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"end_line"`
	EndColumn int    `json:"end_column"`
	Message   string `json:"message"`
}

// Binding is one global variable.
type Binding struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// StackEntry is one global stack slot.
type StackEntry struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func toDiagnostic(d compiler.Diagnostic) Diagnostic {
	return Diagnostic{
		Line:      d.Line,
		Column:    d.Column,
		EndLine:   d.EndLine,
		EndColumn: d.EndCol,
		Message:   d.Message,
	}
}

func fillState(resp *EvaluateResponse, snap vm.Snapshot) {
	for _, name := range snap.Names() {
		v := snap.Variables[name]
		resp.Variables = append(resp.Variables, Binding{Name: name, Type: v.TypeName(), Value: v.String()})
	}
	for _, v := range snap.Stack {
		resp.Stack = append(resp.Stack, StackEntry{Type: v.TypeName(), Value: v.String()})
	}
}

// ---------------------------------------------------------------------------
// Codec
// ---------------------------------------------------------------------------

// jsonCodec carries the plain message structs above as JSON. It is
// registered under connect's "json" name, so ordinary Connect JSON clients
// can call the service.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}
