package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/stacc/compiler"
	"github.com/chazu/stacc/history"
)

var log = commonlog.GetLogger("stacc.server")

// EvalService implements the stacc.v1.EvalService Connect handlers.
type EvalService struct {
	worker   *Worker
	sessions *SessionStore
	history  *history.Store
}

// NewEvalService creates an EvalService. store may be nil, in which case
// evaluations are not recorded.
func NewEvalService(worker *Worker, sessions *SessionStore, store *history.Store) *EvalService {
	return &EvalService{
		worker:   worker,
		sessions: sessions,
		history:  store,
	}
}

// CreateSession creates a session with a fresh interpreter.
func (s *EvalService) CreateSession(
	ctx context.Context,
	req *connect.Request[CreateSessionRequest],
) (*connect.Response[CreateSessionResponse], error) {
	session := s.sessions.Create(req.Msg.Name)
	log.Infof("created session %s", session.ID)
	return connect.NewResponse(&CreateSessionResponse{ID: session.ID}), nil
}

// DestroySession removes a session and its state.
func (s *EvalService) DestroySession(
	ctx context.Context,
	req *connect.Request[DestroySessionRequest],
) (*connect.Response[DestroySessionResponse], error) {
	id := req.Msg.ID
	if id == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("id is required"))
	}
	if id == DefaultSessionID {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("the default session cannot be destroyed"))
	}
	if !s.sessions.Destroy(id) {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", id))
	}
	log.Infof("destroyed session %s", id)
	return connect.NewResponse(&DestroySessionResponse{}), nil
}

// ListSessions returns every live session.
func (s *EvalService) ListSessions(
	ctx context.Context,
	req *connect.Request[ListSessionsRequest],
) (*connect.Response[ListSessionsResponse], error) {
	resp := &ListSessionsResponse{}
	for _, session := range s.sessions.List() {
		resp.Sessions = append(resp.Sessions, SessionInfo{ID: session.ID, Name: session.Name})
	}
	return connect.NewResponse(resp), nil
}

// Evaluate parses and runs a program in a session. Parse and runtime
// errors are reported in the response, not as RPC errors.
func (s *EvalService) Evaluate(
	ctx context.Context,
	req *connect.Request[EvaluateRequest],
) (*connect.Response[EvaluateResponse], error) {
	source := req.Msg.Source
	if source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}

	id := req.Msg.SessionID
	if id == "" {
		id = DefaultSessionID
	}
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", id))
	}

	resp, err := s.evaluate(session, source)
	if errors.Is(err, ErrWorkerStopped) {
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}
	if err != nil {
		resp = &EvaluateResponse{Success: false, Error: err.Error()}
	}

	s.record(ctx, session.ID, source, resp)
	return connect.NewResponse(resp), nil
}

// CheckSyntax parses source without running it.
func (s *EvalService) CheckSyntax(
	ctx context.Context,
	req *connect.Request[CheckSyntaxRequest],
) (*connect.Response[CheckSyntaxResponse], error) {
	source := req.Msg.Source
	if source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}

	if _, err := compiler.Parse(source); err != nil {
		return connect.NewResponse(&CheckSyntaxResponse{
			Valid:       false,
			Diagnostics: []Diagnostic{toDiagnostic(compiler.Diagnose(err, source))},
		}), nil
	}
	return connect.NewResponse(&CheckSyntaxResponse{Valid: true}), nil
}

// evaluate parses source and runs it on the worker goroutine.
func (s *EvalService) evaluate(session *Session, source string) (*EvaluateResponse, error) {
	stmts, err := compiler.Parse(source)
	if err != nil {
		d := compiler.Diagnose(err, source)
		return &EvaluateResponse{
			Success:     false,
			Error:       d.String(),
			Diagnostics: []Diagnostic{toDiagnostic(d)},
		}, nil
	}

	result, err := s.worker.Do(func() (any, error) {
		in := session.Interp
		var out strings.Builder
		prev := in.Output()
		in.SetOutput(&out)
		defer in.SetOutput(prev)

		resp := &EvaluateResponse{Success: true}
		if err := in.Run(stmts); err != nil {
			resp.Success = false
			resp.Error = err.Error()
		}
		resp.Output = out.String()
		fillState(resp, in.State())
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*EvaluateResponse), nil
}

func (s *EvalService) record(ctx context.Context, sessionID, source string, resp *EvaluateResponse) {
	if s.history == nil {
		return
	}
	_, err := s.history.Record(ctx, history.Entry{
		Session: sessionID,
		Source:  source,
		OK:      resp.Success,
		Message: resp.Error,
	})
	if err != nil {
		log.Warningf("recording evaluation for %s: %s", sessionID, err)
	}
}
