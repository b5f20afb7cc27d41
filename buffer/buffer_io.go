// File: buffer/buffer_io.go
// Package buffer
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Scatter/gather views for transports and the TLS engine hand-off.

package buffer

import (
	"fmt"

	"github.com/momentics/hioload-frame/api"
)

// maxOverflowRetries bounds how many times one engine call may ask for more
// destination room.
const maxOverflowRetries = 8

// WriteRoom exposes at least want bytes of tail room, appending Segments as
// needed, and always at least one non-empty view. Bytes placed into the
// views become part of the Buffer only through Commit.
func (b *Buffer) WriteRoom(want int) [][]byte {
	b.live()
	b.room = b.room[:0]
	s := b.writable()
	b.room = append(b.room, s)
	total := s.Available()
	for total < want {
		s = b.appendSegment()
		b.room = append(b.room, s)
		total += s.Available()
	}
	views := make([][]byte, len(b.room))
	for i, s := range b.room {
		views[i] = s.room()
	}
	return views
}

// Commit accounts n bytes written into the views of the last WriteRoom call
// and drops the trailing Segments that stayed empty.
func (b *Buffer) Commit(n int) error {
	b.live()
	total := 0
	for _, s := range b.room {
		total += s.Available()
	}
	if n < 0 || n > total {
		return indexError("commit", b.size, n, b.size+total)
	}
	left := n
	for _, s := range b.room {
		k := min(left, s.Available())
		s.size += k
		left -= k
	}
	for i := len(b.room) - 1; i > 0; i-- {
		if s := b.room[i]; s.size == 0 {
			unlink(s)
			b.alloc.ReleaseSegment(s)
		}
	}
	b.room = b.room[:0]
	b.size += n
	return nil
}

// ReadViews exposes the unread bytes, one view per Segment. The views stay
// valid until the next mutation; consume them with Skip.
func (b *Buffer) ReadViews() [][]byte {
	b.live()
	vs := b.views()
	out := make([][]byte, len(vs))
	for i, v := range vs {
		out[i] = v.data
	}
	return out
}

// Unwrap decrypts the unread bytes of b into dst through engine. Consumed
// bytes are skipped in b and produced bytes committed to dst. When the
// engine reports overflow one more destination Segment is supplied and the
// call is retried. It returns when b is drained, the engine needs more input
// or no progress is made.
func (b *Buffer) Unwrap(engine api.TLSEngine, dst *Buffer) error {
	b.live()
	want := 0
	overflows := 0
	for b.Remaining() > 0 {
		views := dst.WriteRoom(want)
		consumed, produced, status, err := engine.Unwrap(b.contiguous(), views)
		if cerr := dst.Commit(produced); cerr != nil {
			return cerr
		}
		if serr := b.Skip(consumed); serr != nil {
			return serr
		}
		if err != nil {
			return fmt.Errorf("tls unwrap: %w", err)
		}
		switch status {
		case api.TLSBufferOverflow:
			overflows++
			if overflows > maxOverflowRetries {
				return fmt.Errorf("tls unwrap: destination overflow: %w", api.ErrResourceExhausted)
			}
			want = roomOf(views) + dst.alloc.Capacity()
			continue
		case api.TLSBufferUnderflow:
			return nil
		case api.TLSClosed:
			return fmt.Errorf("tls unwrap: %w", api.ErrTransportClosed)
		}
		overflows, want = 0, 0
		if consumed == 0 && produced == 0 {
			return nil
		}
	}
	return nil
}

// Wrap encrypts the unread bytes of b into dst through engine. The engine
// writes into the tail room of dst. On overflow a fresh Segment is tried
// first; when a whole Segment is too small the record is staged in a
// contiguous slice, doubled on every retry, and copied into dst.
func (b *Buffer) Wrap(engine api.TLSEngine, dst *Buffer) error {
	b.live()
	dst.live()
	var (
		fresh     bool
		staging   []byte
		overflows int
	)
	for b.Remaining() > 0 {
		var t *Segment
		room := staging
		if staging == nil {
			t = dst.writable()
			if fresh && t.Available() < len(t.data) {
				t = dst.appendSegment()
			}
			room = t.room()
		}
		consumed, produced, status, err := engine.Wrap(b.ReadViews(), room)
		if produced < 0 || produced > len(room) {
			return indexError("wrap", dst.size, produced, dst.size+len(room))
		}
		if t != nil {
			t.size += produced
			dst.size += produced
		} else {
			dst.WriteBytes(room[:produced])
		}
		if serr := b.Skip(consumed); serr != nil {
			return serr
		}
		if err != nil {
			return fmt.Errorf("tls wrap: %w", err)
		}
		switch status {
		case api.TLSBufferOverflow:
			overflows++
			if overflows > maxOverflowRetries {
				return fmt.Errorf("tls wrap: destination overflow: %w", api.ErrResourceExhausted)
			}
			switch {
			case staging != nil:
				staging = make([]byte, 2*len(staging))
			case t.Available() == len(t.data):
				staging = make([]byte, 2*len(t.data))
			default:
				fresh = true
			}
			continue
		case api.TLSBufferUnderflow:
			return nil
		case api.TLSClosed:
			return fmt.Errorf("tls wrap: %w", api.ErrTransportClosed)
		}
		fresh, overflows = false, 0
		if consumed == 0 && produced == 0 {
			return nil
		}
	}
	return nil
}

func roomOf(views [][]byte) int {
	n := 0
	for _, v := range views {
		n += len(v)
	}
	return n
}
