// File: filter/filter.go
// Package filter
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Frame filter SPI: the stages a channel drives over inbound bytes and
// outbound messages.

package filter

import (
	"fmt"
	"log/slog"

	"github.com/momentics/hioload-frame/api"
	"github.com/momentics/hioload-frame/buffer"
)

const (
	// Underflow is returned by TellBoundary when not enough bytes are
	// buffered to decide the frame length.
	Underflow = -1

	// Malformed is a conventional fatal boundary. Any negative value other
	// than Underflow aborts the channel.
	Malformed = -2
)

// Output is the result of one filter transform: either nothing or exactly
// one message for the next stage.
type Output struct {
	msg     any
	present bool
}

// None swallows the message.
var None = Output{}

// Emit forwards msg to the next stage.
func Emit(msg any) Output { return Output{msg: msg, present: true} }

// Message returns the emitted message, if any.
func (o Output) Message() (any, bool) { return o.msg, o.present }

// Filter transforms messages in both directions. A non-nil error aborts
// the channel. A *buffer.Buffer handed to a filter belongs to it: the
// filter releases it or passes it on.
type Filter interface {
	OnArrive(s Session, msg any) (Output, error)
	OnDepart(s Session, msg any) (Output, error)
}

// Framer is a Filter that consumes raw bytes and declares frame boundaries.
type Framer interface {
	Filter

	// TellBoundary returns the length of the frame starting at the read
	// position, 0 for "the whole buffer", Underflow, or another negative
	// value for a fatal error. It must leave the read position where it
	// found it.
	TellBoundary(s Session, r *buffer.Buffer) int
}

// Session is the per-channel view handed to filters.
type Session interface {
	ID() string
	Allocator() *buffer.Allocator
	Logger() *slog.Logger

	// Attr and SetAttr hold per-session filter state. Setting nil deletes
	// the key. Values implementing Release are released on close.
	Attr(key string) (any, bool)
	SetAttr(key string, v any)

	// Stage is the index of the filter currently being driven.
	Stage() int

	// Reply queues msg for writing, bypassing the application. It runs
	// through OnDepart of the stages before stage when it reaches the head
	// of the write queue.
	Reply(stage int, msg any) error

	// Shutdown queues the end of stream; the channel closes once every
	// message queued before it is written.
	Shutdown()
}

// staged reports a fixed stage index for the wrapped session.
type staged struct {
	Session
	stage int
}

func (s staged) Stage() int { return s.stage }

// AtStage returns s reporting stage as its current stage.
func AtStage(s Session, stage int) Session {
	if st, ok := s.(staged); ok {
		s = st.Session
	}
	return staged{Session: s, stage: stage}
}

// Releaser is implemented by messages holding pooled resources.
type Releaser interface {
	Release()
}

// Discard releases msg when it holds pooled resources.
func Discard(msg any) {
	if r, ok := msg.(Releaser); ok && r != nil {
		r.Release()
	}
}

// ToBuffer converts the outbound forms accepted by byte-level filters into
// a Buffer. head bytes of head room are reserved when a new Buffer is made.
func ToBuffer(s Session, msg any, head int) (*buffer.Buffer, error) {
	switch m := msg.(type) {
	case *buffer.Buffer:
		return m, nil
	case []byte:
		b := s.Allocator().NewBuffer()
		b.ReserveHead(head)
		b.WriteBytes(m)
		return b, nil
	case string:
		b := s.Allocator().NewBuffer()
		b.ReserveHead(head)
		_, _ = b.WriteString(m)
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported outbound message %T: %w", msg, api.ErrInvalidArgument)
	}
}

// asBuffer asserts an inbound message is a Buffer.
func asBuffer(stage string, msg any) (*buffer.Buffer, error) {
	b, ok := msg.(*buffer.Buffer)
	if !ok {
		Discard(msg)
		return nil, fmt.Errorf("%s: expected *buffer.Buffer, got %T: %w", stage, msg, api.ErrFraming)
	}
	return b, nil
}
