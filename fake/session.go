// Package fake
// Author: momentics <momentics@gmail.com>

package fake

import (
	"log/slog"
	"sync"

	"github.com/momentics/hioload-frame/buffer"
	"github.com/momentics/hioload-frame/filter"
)

// Session is a filter.Session that records replies instead of writing them.
// Replies are run through the given state, so their bytes are final.
type Session struct {
	mu       sync.Mutex
	alloc    *buffer.Allocator
	state    *filter.State
	attrs    map[string]any
	replies  [][]byte
	shutdown bool
	logger   *slog.Logger
}

// NewSession creates a session over alloc. state may be nil when no stage
// replies.
func NewSession(alloc *buffer.Allocator, state *filter.State) *Session {
	return &Session{
		alloc:  alloc,
		state:  state,
		attrs:  make(map[string]any),
		logger: slog.Default(),
	}
}

func (s *Session) ID() string                   { return "fake" }
func (s *Session) Allocator() *buffer.Allocator { return s.alloc }
func (s *Session) Logger() *slog.Logger         { return s.logger }
func (s *Session) Stage() int                   { return -1 }

func (s *Session) Attr(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.attrs[key]
	return v, ok
}

func (s *Session) SetAttr(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v == nil {
		delete(s.attrs, key)
		return
	}
	s.attrs[key] = v
}

// Reply implements filter.Session.
func (s *Session) Reply(stage int, msg any) error {
	b, err := s.state.DepartFrom(s, stage, msg)
	if err != nil || b == nil {
		return err
	}
	p := b.Bytes()
	b.Release()
	s.mu.Lock()
	s.replies = append(s.replies, p)
	s.mu.Unlock()
	return nil
}

// Shutdown implements filter.Session.
func (s *Session) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown = true
}

// Replies returns the encoded replies in order.
func (s *Session) Replies() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.replies...)
}

// ShutdownRequested reports whether a stage asked to close.
func (s *Session) ShutdownRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

// Close releases attributes holding pooled resources.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.attrs {
		filter.Discard(v)
		delete(s.attrs, k)
	}
}

var _ filter.Session = (*Session)(nil)
