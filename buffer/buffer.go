// File: buffer/buffer.go
// Package buffer
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Buffer is one logical byte sequence over a circular chain of Segments.

package buffer

import (
	"fmt"

	"github.com/momentics/hioload-frame/api"
)

// Buffer is a growable byte sequence spanning a circular, doubly linked chain
// of pooled Segments. It keeps a global read position, a mark and a size
// independent of segment boundaries.
//
// Invariants after every public call: 0 <= mark <= position <= size, the sum
// of segment sizes equals size and the chain holds at least one Segment.
// Segments before posSeg are fully read; segments after it are unread.
//
// A Buffer is not safe for concurrent use.
type Buffer struct {
	alloc *Allocator

	head    *Segment
	posSeg  *Segment
	markSeg *Segment

	size     int
	position int
	mark     int

	// spare keeps the cleared head Segment while the shell sits in a free list.
	spare *Segment

	// room holds the Segments exposed by the last WriteRoom call.
	room []*Segment
}

// live panics when the Buffer has been released.
func (b *Buffer) live() {
	if b.head == nil {
		panic(api.ErrReleased)
	}
}

func (b *Buffer) tail() *Segment { return b.head.prev }

// Allocator returns the allocation context the Buffer is bound to.
func (b *Buffer) Allocator() *Allocator { return b.alloc }

// Bind transfers ownership to a. Segments acquired later, and the Buffer
// itself on Release, go to a.
func (b *Buffer) Bind(a *Allocator) { b.alloc = a }

// Size returns the total number of bytes.
func (b *Buffer) Size() int { return b.size }

// Position returns the read cursor.
func (b *Buffer) Position() int { return b.position }

// MarkPosition returns the saved read cursor.
func (b *Buffer) MarkPosition() int { return b.mark }

// Remaining returns the number of unread bytes.
func (b *Buffer) Remaining() int { return b.size - b.position }

// Segments returns the length of the segment chain.
func (b *Buffer) Segments() int {
	b.live()
	n := 1
	for s := b.head.next; s != b.head; s = s.next {
		n++
	}
	return n
}

// Release returns every Segment and the Buffer itself to the bound allocator.
// The Buffer must not be used afterwards.
func (b *Buffer) Release() {
	b.live()
	a := b.alloc
	h := b.head
	for h.next != h {
		s := h.next
		unlink(s)
		a.ReleaseSegment(s)
	}
	h.Clear()
	b.spare = h
	b.head, b.posSeg, b.markSeg = nil, nil, nil
	b.size, b.position, b.mark = 0, 0, 0
	b.room = b.room[:0]
	a.putBuffer(b)
}

// Clear discards the content and keeps a single empty Segment.
func (b *Buffer) Clear() {
	b.live()
	h := b.head
	for h.next != h {
		s := h.next
		unlink(s)
		b.alloc.ReleaseSegment(s)
	}
	h.Clear()
	b.posSeg, b.markSeg = h, h
	b.size, b.position, b.mark = 0, 0, 0
}

// Mark saves the current read position.
func (b *Buffer) Mark() {
	b.live()
	if b.markSeg != b.posSeg {
		b.markSeg.mark = 0
	}
	b.mark = b.position
	b.markSeg = b.posSeg
	b.posSeg.mark = b.posSeg.position
}

// Reset restores the read position to the mark. It is a no-op unless the
// position has moved past the mark.
func (b *Buffer) Reset() {
	b.live()
	if b.position <= b.mark {
		return
	}
	for s := b.markSeg; ; s = s.next {
		if s == b.markSeg {
			s.position = s.mark
		} else {
			s.position = 0
		}
		if s == b.posSeg {
			break
		}
	}
	b.position = b.mark
	b.posSeg = b.markSeg
}

// Rewind moves the read position and the mark back to zero.
func (b *Buffer) Rewind() {
	b.live()
	b.markSeg.mark = 0
	for s := b.head; ; s = s.next {
		s.position, s.mark = 0, 0
		if s == b.posSeg {
			break
		}
	}
	b.position, b.mark = 0, 0
	b.posSeg, b.markSeg = b.head, b.head
}

// ReserveHead reserves n (mod capacity) bytes of head room so a later head
// write needs no new Segment. It is ignored unless the Buffer is empty and
// holds a single Segment.
func (b *Buffer) ReserveHead(n int) {
	b.live()
	h := b.head
	if b.size != 0 || h.next != h || n < 0 {
		return
	}
	h.Clear()
	h.start = n % len(h.data)
}

// sync recomputes per-segment cursors and the cached segment pointers from
// the global position and mark.
func (b *Buffer) sync() {
	b.posSeg, b.markSeg = nil, nil
	acc := 0
	s := b.head
	for {
		end := acc + s.size
		switch {
		case b.posSeg != nil:
			s.position = 0
		case b.position < end || s.next == b.head:
			s.position = b.position - acc
			b.posSeg = s
		default:
			s.position = s.size
		}
		s.mark = 0
		if b.markSeg == nil && (b.mark < end || s.next == b.head) {
			s.mark = b.mark - acc
			b.markSeg = s
		}
		acc = end
		s = s.next
		if s == b.head {
			return
		}
	}
}

// readSeg returns the Segment holding the next unread byte. The caller has
// checked Remaining() > 0.
func (b *Buffer) readSeg() *Segment {
	s := b.posSeg
	for s.Remaining() == 0 {
		s = s.next
		b.posSeg = s
	}
	return s
}

// writable returns the tail Segment, appending a fresh one when it is full.
func (b *Buffer) writable() *Segment {
	b.live()
	t := b.tail()
	if t.Available() == 0 {
		t = b.alloc.NewSegment()
		linkBefore(b.head, t)
	}
	return t
}

// appendSegment links a fresh Segment at the tail and returns it.
func (b *Buffer) appendSegment() *Segment {
	s := b.alloc.NewSegment()
	linkBefore(b.head, s)
	return s
}

// locate returns the Segment holding absolute offset i and the offset within it.
func (b *Buffer) locate(i int) (*Segment, int) {
	s := b.head
	for i >= s.size {
		i -= s.size
		s = s.next
		if s == b.head {
			panic(outOfBounds("locate", i))
		}
	}
	return s, i
}

func insufficient(op string, want, have int) error {
	return fmt.Errorf("buffer %s: want %d bytes, have %d: %w", op, want, have, api.ErrInsufficientData)
}

func indexError(op string, i, n, size int) error {
	return fmt.Errorf("buffer %s [%d:+%d] of %d: %w", op, i, n, size, api.ErrIndexOutOfBounds)
}

// Bytes returns a copy of the unread bytes. The position is not moved.
func (b *Buffer) Bytes() []byte {
	b.live()
	p := make([]byte, b.Remaining())
	b.copyAt(b.position, p)
	return p
}

// String describes the cursors; it does not dump content.
func (b *Buffer) String() string {
	if b.head == nil {
		return "Buffer(released)"
	}
	return fmt.Sprintf("Buffer(pos=%d mark=%d size=%d segs=%d)", b.position, b.mark, b.size, b.Segments())
}
