// File: filter/delimiter.go
// Package filter
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package filter

import (
	"fmt"

	"github.com/momentics/hioload-frame/api"
	"github.com/momentics/hioload-frame/buffer"
)

// Delimiter frames byte sequences terminated by a fixed delimiter, such as
// CRLF-separated text lines.
type Delimiter struct {
	delim   []byte
	matcher buffer.Matcher
	// MaxFrame bounds a frame including its delimiter; 0 disables the limit.
	MaxFrame int
}

// NewDelimiter creates a delimiter framer. Delimiters longer than two bytes
// are searched with a precomputed linear-time matcher.
func NewDelimiter(delim []byte, maxFrame int) *Delimiter {
	d := &Delimiter{delim: append([]byte(nil), delim...), MaxFrame: maxFrame}
	if len(delim) > 2 {
		d.matcher = buffer.NewMatcher(delim)
	}
	return d
}

// NewLineDelimiter frames CRLF terminated lines.
func NewLineDelimiter(maxFrame int) *Delimiter {
	return NewDelimiter([]byte("\r\n"), maxFrame)
}

// TellBoundary implements Framer.
func (f *Delimiter) TellBoundary(s Session, r *buffer.Buffer) int {
	var at int
	if f.matcher != nil {
		at = r.IndexMatch(f.matcher)
	} else {
		at = r.IndexBytes(f.delim)
	}
	if at < 0 {
		if f.MaxFrame > 0 && r.Remaining() > f.MaxFrame {
			s.Logger().Warn("delimiter not found within limit", "buffered", r.Remaining(), "max", f.MaxFrame)
			return Malformed
		}
		return Underflow
	}
	n := at - r.Position() + len(f.delim)
	if f.MaxFrame > 0 && n > f.MaxFrame {
		return Malformed
	}
	return n
}

// OnArrive strips the delimiter.
func (f *Delimiter) OnArrive(_ Session, msg any) (Output, error) {
	b, err := asBuffer("delimiter", msg)
	if err != nil {
		return None, err
	}
	frame, err := b.Split(b.Size() - len(f.delim))
	b.Release()
	if err != nil {
		return None, err
	}
	return Emit(frame), nil
}

// OnDepart appends the delimiter.
func (f *Delimiter) OnDepart(s Session, msg any) (Output, error) {
	b, err := ToBuffer(s, msg, 0)
	if err != nil {
		return None, err
	}
	if b.IndexBytes(f.delim) >= 0 {
		b.Release()
		return None, fmt.Errorf("outbound frame contains the delimiter: %w", api.ErrInvalidArgument)
	}
	b.WriteBytes(f.delim)
	return Emit(b), nil
}

var _ Framer = (*Delimiter)(nil)
