package search

import (
	"context"
	"errors"
	"sync"

	"github.com/hyperjump/banshi/internal/models"
)

// ErrSuperseded is returned for a turn that a newer turn in the same session replaced.
var ErrSuperseded = errors.New("search superseded by a newer request")

// Session tracks the latest search turn of one client. Starting a turn cancels
// the previous in-flight turn, and a turn's results are only delivered while
// its generation is still current.
type Session struct {
	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

// Turn is one search invocation within a session.
type Turn struct {
	ID      uint64
	ctx     context.Context
	cancel  context.CancelFunc
	session *Session
}

// Begin starts a new turn derived from ctx and cancels the previous one.
func (s *Session) Begin(ctx context.Context) *Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	turnCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	return &Turn{ID: s.generation, ctx: turnCtx, cancel: cancel, session: s}
}

// Generation returns the id of the most recent turn.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Context returns the turn's context. It is canceled when a newer turn begins.
func (t *Turn) Context() context.Context {
	return t.ctx
}

// Current reports whether no newer turn has begun.
func (t *Turn) Current() bool {
	return t.session.Generation() == t.ID
}

// End releases the turn's context.
func (t *Turn) End() {
	t.cancel()
	t.session.mu.Lock()
	if t.session.generation == t.ID {
		t.session.cancel = nil
	}
	t.session.mu.Unlock()
}

// Run executes fn as a new turn and discards its result with ErrSuperseded if
// another turn began before fn returned.
func (s *Session) Run(ctx context.Context, fn func(ctx context.Context) (*models.SearchResponse, error)) (*models.SearchResponse, error) {
	t := s.Begin(ctx)
	defer t.End()

	resp, err := fn(t.Context())
	if !t.Current() {
		return nil, ErrSuperseded
	}
	return resp, err
}
