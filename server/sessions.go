package server

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/chazu/stacc/vm"
)

// DefaultSessionID names the session used when a request carries no id.
const DefaultSessionID = "default"

// Session is an evaluation workspace with its own interpreter.
type Session struct {
	ID     string
	Name   string
	Interp *vm.Interpreter
}

// SessionStore manages sessions. The store itself is safe for concurrent
// use; the interpreters it holds are not and are reached through a Worker.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	nextID   atomic.Uint64
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
	}
}

// Create creates a session with an optional name.
func (s *SessionStore) Create(name string) *Session {
	id := fmt.Sprintf("s-%d", s.nextID.Add(1))
	return s.add(id, name)
}

// add registers a session under a fixed id, replacing any existing one.
func (s *SessionStore) add(id, name string) *Session {
	session := &Session{
		ID:     id,
		Name:   name,
		Interp: vm.New(),
	}

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	return session
}

// Get retrieves a session by id.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	return session, ok
}

// Destroy removes a session and reports whether it existed.
func (s *SessionStore) Destroy(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// List returns all sessions in creation order. Sessions with fixed ids
// come first.
func (s *SessionStore) List() []*Session {
	s.mu.RLock()
	out := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Session) int {
		return cmp.Or(cmp.Compare(sessionSeq(a.ID), sessionSeq(b.ID)), strings.Compare(a.ID, b.ID))
	})
	return out
}

// sessionSeq extracts n from an "s-<n>" id. Other ids sort as 0.
func sessionSeq(id string) uint64 {
	n, err := strconv.ParseUint(strings.TrimPrefix(id, "s-"), 10, 64)
	if err != nil || !strings.HasPrefix(id, "s-") {
		return 0
	}
	return n
}
