// File: filter/length_prefix.go
// Package filter
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package filter

import (
	"encoding/binary"
	"fmt"

	"github.com/momentics/hioload-frame/api"
	"github.com/momentics/hioload-frame/buffer"
)

// DefaultMaxFrame bounds payloads of a LengthPrefix without Max whose width
// would allow more.
const DefaultMaxFrame = 16 << 20

// LengthPrefix frames payloads behind an unsigned length of Width bytes.
// The prefix counts payload bytes only.
type LengthPrefix struct {
	Width int
	Order binary.ByteOrder
	// Max bounds the payload length; 0 means the width's natural limit
	// capped at DefaultMaxFrame.
	Max int
}

// NewLengthPrefix creates a big-endian length prefix framer.
func NewLengthPrefix(width, max int) *LengthPrefix {
	return &LengthPrefix{Width: width, Order: binary.BigEndian, Max: max}
}

func (f *LengthPrefix) peek(r *buffer.Buffer) (uint64, error) {
	at := r.Position()
	switch f.Width {
	case 1:
		v, err := r.ByteAt(at)
		return uint64(v), err
	case 2:
		if f.Order == binary.LittleEndian {
			v, err := r.Uint16AtL(at)
			return uint64(v), err
		}
		v, err := r.Uint16AtB(at)
		return uint64(v), err
	case 4:
		if f.Order == binary.LittleEndian {
			v, err := r.Uint32AtL(at)
			return uint64(v), err
		}
		v, err := r.Uint32AtB(at)
		return uint64(v), err
	case 8:
		if f.Order == binary.LittleEndian {
			return r.Uint64AtL(at)
		}
		return r.Uint64AtB(at)
	}
	return 0, fmt.Errorf("length prefix width %d: %w", f.Width, api.ErrInvalidArgument)
}

func (f *LengthPrefix) limit() uint64 {
	if f.Max > 0 {
		return uint64(f.Max)
	}
	if f.Width >= 4 {
		return DefaultMaxFrame
	}
	return 1<<(8*uint(f.Width)) - 1
}

// TellBoundary implements Framer.
func (f *LengthPrefix) TellBoundary(s Session, r *buffer.Buffer) int {
	if r.Remaining() < f.Width {
		return Underflow
	}
	n, err := f.peek(r)
	if err != nil || n > f.limit() {
		s.Logger().Warn("length prefix rejected", "length", n, "max", f.limit(), "error", err)
		return Malformed
	}
	return f.Width + int(n)
}

// OnArrive strips the prefix.
func (f *LengthPrefix) OnArrive(_ Session, msg any) (Output, error) {
	b, err := asBuffer("length prefix", msg)
	if err != nil {
		return None, err
	}
	if err := b.Skip(f.Width); err != nil {
		b.Release()
		return None, err
	}
	b.Compact()
	return Emit(b), nil
}

// OnDepart prepends the prefix.
func (f *LengthPrefix) OnDepart(s Session, msg any) (Output, error) {
	b, err := ToBuffer(s, msg, f.Width)
	if err != nil {
		return None, err
	}
	b.Compact()
	n := uint64(b.Size())
	if n > f.limit() {
		b.Release()
		return None, fmt.Errorf("payload %d exceeds %d: %w", n, f.limit(), api.ErrInvalidArgument)
	}
	b.HeadWriteUint(n, f.Width, f.Order)
	return Emit(b), nil
}

var _ Framer = (*LengthPrefix)(nil)
