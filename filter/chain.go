// File: filter/chain.go
// Package filter
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Chain drives an ordered filter array over inbound reads and outbound
// messages. State keeps the partial frames of one channel between reads.

package filter

import (
	"fmt"

	"github.com/momentics/hioload-frame/api"
	"github.com/momentics/hioload-frame/buffer"
)

// Chain is an immutable, ordered list of filters shared by channels.
type Chain struct {
	filters []Filter
	framers []Framer
}

// NewChain builds a chain. Index 0 is closest to the transport.
func NewChain(filters ...Filter) *Chain {
	c := &Chain{
		filters: append([]Filter(nil), filters...),
		framers: make([]Framer, len(filters)),
	}
	for i, f := range filters {
		if fr, ok := f.(Framer); ok {
			c.framers[i] = fr
		}
	}
	return c
}

// Len returns the number of stages.
func (c *Chain) Len() int { return len(c.filters) }

// Filter returns the stage at index i.
func (c *Chain) Filter(i int) Filter { return c.filters[i] }

// NewState creates the per-channel pipeline state.
func (c *Chain) NewState() *State {
	return &State{chain: c, ctx: make([]frameContext, len(c.filters))}
}

// frameContext holds the incomplete frame of one stage.
type frameContext struct {
	pending *buffer.Buffer
	length  int // 0 while unknown
}

// State is the framing state of one channel. Arrive must not run
// concurrently with itself; Depart may run concurrently with Arrive.
type State struct {
	chain  *Chain
	ctx    []frameContext
	closed bool
}

// Chain returns the chain the state belongs to.
func (st *State) Chain() *Chain { return st.chain }

// Arrive pushes one read through the chain. deliver receives every message
// leaving the last stage, in read order. A returned error is fatal for the
// channel; buf is owned by the chain from this call on.
func (st *State) Arrive(s Session, buf *buffer.Buffer, deliver func(any) error) error {
	return st.arrive(s, 0, buf, deliver)
}

func (st *State) arrive(s Session, k int, msg any, deliver func(any) error) error {
	if st.closed {
		Discard(msg)
		return api.ErrChannelClosed
	}
	if k == len(st.chain.filters) {
		return deliver(msg)
	}
	f := st.chain.framers[k]
	if f == nil {
		return st.transform(s, k, msg, deliver)
	}
	buf, err := asBuffer(fmt.Sprintf("stage %d", k), msg)
	if err != nil {
		return err
	}

	ctx := &st.ctx[k]
	if ctx.pending != nil {
		pending := ctx.pending
		ctx.pending = nil
		err := buf.DrainTo(pending)
		buf.Release()
		if err != nil {
			pending.Release()
			return err
		}
		buf = pending
	}

	for {
		if st.closed {
			buf.Release()
			return api.ErrChannelClosed
		}
		if buf.Size() == 0 {
			buf.Release()
			ctx.length = 0
			return nil
		}
		l := ctx.length
		if l == 0 {
			l = f.TellBoundary(AtStage(s, k), buf)
			switch {
			case l == Underflow:
				ctx.pending = buf
				return nil
			case l < 0:
				buf.Release()
				return api.FramingError(k, "invalid frame boundary").WithContext("boundary", l)
			case l == 0:
				l = buf.Size()
			}
		}

		switch size := buf.Size(); {
		case size < l:
			ctx.pending = buf
			ctx.length = l
			return nil
		case size > l:
			frame, err := buf.Split(l)
			if err != nil {
				buf.Release()
				return err
			}
			ctx.length = 0
			if err := st.transform(s, k, frame, deliver); err != nil {
				buf.Release()
				return err
			}
		default:
			ctx.length = 0
			return st.transform(s, k, buf, deliver)
		}
	}
}

// transform runs OnArrive of stage k and forwards the result to k+1.
func (st *State) transform(s Session, k int, msg any, deliver func(any) error) error {
	out, err := st.chain.filters[k].OnArrive(AtStage(s, k), msg)
	if err != nil {
		return fmt.Errorf("stage %d arrive: %w: %w", k, api.ErrFraming, err)
	}
	if next, ok := out.Message(); ok {
		return st.arrive(s, k+1, next, deliver)
	}
	return nil
}

// Depart runs msg through every stage from last to first and returns the
// Buffer to write, or nil when a stage swallowed the message.
func (st *State) Depart(s Session, msg any) (*buffer.Buffer, error) {
	return st.DepartFrom(s, len(st.chain.filters), msg)
}

// DepartFrom runs msg through stages stage-1 down to 0.
func (st *State) DepartFrom(s Session, stage int, msg any) (*buffer.Buffer, error) {
	if stage < 0 || stage > len(st.chain.filters) {
		Discard(msg)
		return nil, fmt.Errorf("depart from stage %d: %w", stage, api.ErrInvalidArgument)
	}
	for k := stage - 1; k >= 0; k-- {
		out, err := st.chain.filters[k].OnDepart(AtStage(s, k), msg)
		if err != nil {
			return nil, fmt.Errorf("stage %d depart: %w: %w", k, api.ErrFraming, err)
		}
		next, ok := out.Message()
		if !ok {
			return nil, nil
		}
		msg = next
	}
	buf, ok := msg.(*buffer.Buffer)
	if !ok {
		Discard(msg)
		return nil, api.FramingError(0, fmt.Sprintf("depart produced %T", msg))
	}
	return buf, nil
}

// Pending returns the unread bytes stashed at stage k.
func (st *State) Pending(k int) int {
	if p := st.ctx[k].pending; p != nil {
		return p.Remaining()
	}
	return 0
}

// PendingLength returns the frame length already decided at stage k, 0 if
// none.
func (st *State) PendingLength(k int) int { return st.ctx[k].length }

// Close releases every stashed frame. It is idempotent.
func (st *State) Close() {
	if st.closed {
		return
	}
	st.closed = true
	for i := range st.ctx {
		if p := st.ctx[i].pending; p != nil {
			st.ctx[i].pending = nil
			p.Release()
		}
		st.ctx[i].length = 0
	}
}
