package server

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// EvalClient calls a stacc server over Connect.
type EvalClient struct {
	createSession  *connect.Client[CreateSessionRequest, CreateSessionResponse]
	destroySession *connect.Client[DestroySessionRequest, DestroySessionResponse]
	listSessions   *connect.Client[ListSessionsRequest, ListSessionsResponse]
	evaluate       *connect.Client[EvaluateRequest, EvaluateResponse]
	checkSyntax    *connect.Client[CheckSyntaxRequest, CheckSyntaxResponse]
}

// NewEvalClient creates a client for the server at baseURL, for example
// "http://localhost:4567".
func NewEvalClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *EvalClient {
	base := strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &EvalClient{
		createSession:  connect.NewClient[CreateSessionRequest, CreateSessionResponse](httpClient, base+CreateSessionProcedure, opts...),
		destroySession: connect.NewClient[DestroySessionRequest, DestroySessionResponse](httpClient, base+DestroySessionProcedure, opts...),
		listSessions:   connect.NewClient[ListSessionsRequest, ListSessionsResponse](httpClient, base+ListSessionsProcedure, opts...),
		evaluate:       connect.NewClient[EvaluateRequest, EvaluateResponse](httpClient, base+EvaluateProcedure, opts...),
		checkSyntax:    connect.NewClient[CheckSyntaxRequest, CheckSyntaxResponse](httpClient, base+CheckSyntaxProcedure, opts...),
	}
}

// CreateSession creates a session and returns its id.
func (c *EvalClient) CreateSession(ctx context.Context, name string) (string, error) {
	resp, err := c.createSession.CallUnary(ctx, connect.NewRequest(&CreateSessionRequest{Name: name}))
	if err != nil {
		return "", err
	}
	return resp.Msg.ID, nil
}

// DestroySession removes a session.
func (c *EvalClient) DestroySession(ctx context.Context, id string) error {
	_, err := c.destroySession.CallUnary(ctx, connect.NewRequest(&DestroySessionRequest{ID: id}))
	return err
}

// ListSessions returns the server's live sessions.
func (c *EvalClient) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	resp, err := c.listSessions.CallUnary(ctx, connect.NewRequest(&ListSessionsRequest{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Sessions, nil
}

// Evaluate runs source in a session. An empty sessionID selects the
// default session.
func (c *EvalClient) Evaluate(ctx context.Context, sessionID, source string) (*EvaluateResponse, error) {
	resp, err := c.evaluate.CallUnary(ctx, connect.NewRequest(&EvaluateRequest{SessionID: sessionID, Source: source}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// CheckSyntax parses source on the server.
func (c *EvalClient) CheckSyntax(ctx context.Context, source string) (*CheckSyntaxResponse, error) {
	resp, err := c.checkSyntax.CallUnary(ctx, connect.NewRequest(&CheckSyntaxRequest{Source: source}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
