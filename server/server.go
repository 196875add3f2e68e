package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"

	"github.com/chazu/stacc/history"
	"github.com/chazu/stacc/vm"
)

// Server serves the evaluation service over Connect (HTTP/JSON).
type Server struct {
	worker   *Worker
	sessions *SessionStore
	eval     *EvalService
	mux      *http.ServeMux

	mu   sync.Mutex
	http *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	history *history.Store
	seed    *vm.Snapshot
}

// WithHistory records every evaluation in store.
func WithHistory(store *history.Store) ServerOption {
	return func(c *serverConfig) { c.history = store }
}

// WithSeed restores snap into the default session.
func WithSeed(snap vm.Snapshot) ServerOption {
	return func(c *serverConfig) { c.seed = &snap }
}

// New creates a Server with a default session and mounts its handlers.
func New(opts ...ServerOption) *Server {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	worker := NewWorker()
	sessions := NewSessionStore()
	def := sessions.add(DefaultSessionID, "default")
	if cfg.seed != nil {
		def.Interp.Restore(*cfg.seed)
	}

	s := &Server{
		worker:   worker,
		sessions: sessions,
		eval:     NewEvalService(worker, sessions, cfg.history),
		mux:      http.NewServeMux(),
	}

	codec := connect.WithCodec(jsonCodec{})
	s.mux.Handle(CreateSessionProcedure, connect.NewUnaryHandler(CreateSessionProcedure, s.eval.CreateSession, codec))
	s.mux.Handle(DestroySessionProcedure, connect.NewUnaryHandler(DestroySessionProcedure, s.eval.DestroySession, codec))
	s.mux.Handle(ListSessionsProcedure, connect.NewUnaryHandler(ListSessionsProcedure, s.eval.ListSessions, codec))
	s.mux.Handle(EvaluateProcedure, connect.NewUnaryHandler(EvaluateProcedure, s.eval.Evaluate, codec))
	s.mux.Handle(CheckSyntaxProcedure, connect.NewUnaryHandler(CheckSyntaxProcedure, s.eval.CheckSyntax, codec))

	return s
}

// Handler returns the HTTP handler serving every procedure.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Sessions returns the server's session store.
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// ListenAndServe serves on addr ("host:port" or ":port") until Stop is
// called.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	log.Noticef("stacc server listening on %s", addr)
	log.Noticef("  Connect (HTTP/JSON): http://%s%s", addr, EvaluateProcedure)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts down the HTTP listener, if any, and the worker.
func (s *Server) Stop() {
	s.mu.Lock()
	srv := s.http
	s.http = nil
	s.mu.Unlock()

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warningf("shutdown: %s", err)
		}
	}
	s.worker.Stop()
}
