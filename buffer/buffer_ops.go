// File: buffer/buffer_ops.go
// Package buffer
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Structural operations: compact, split, drain and comparison.

package buffer

import (
	"bytes"
	"fmt"

	"github.com/momentics/hioload-frame/api"
)

// Compact drops consumed bytes. Fully read Segments go back to the
// allocator; the partially read one is compacted in place.
func (b *Buffer) Compact() {
	b.live()
	if b.position == 0 {
		return
	}
	for b.head != b.posSeg {
		s := b.head
		b.head = s.next
		unlink(s)
		b.alloc.ReleaseSegment(s)
	}
	p := b.posSeg
	switch {
	case p.Remaining() == 0 && p.next != p:
		b.head = p.next
		unlink(p)
		b.alloc.ReleaseSegment(p)
	case p.Remaining() == 0:
		p.Clear()
	default:
		p.Compact()
	}
	b.size -= b.position
	b.position, b.mark = 0, 0
	b.posSeg, b.markSeg = b.head, b.head
	b.head.mark = 0
}

// Split detaches the first n bytes into a new Buffer from the same
// allocator; b keeps the rest. Position and mark are partitioned to the side
// they fall in.
func (b *Buffer) Split(n int) (*Buffer, error) {
	b.live()
	if n < 0 || n > b.size {
		return nil, indexError("split", 0, n, b.size)
	}
	a := b.alloc.NewBuffer()
	if n == 0 {
		return a, nil
	}
	if n == b.size {
		b.swap(a)
		return a, nil
	}

	acc := 0
	s := b.head
	for acc+s.size < n {
		acc += s.size
		s = s.next
	}
	if off := n - acc; off < s.size {
		first, second := s.Cut(s.size-off, b.alloc.NewSegment())
		if first == s {
			linkAfter(s, second)
		} else {
			linkBefore(s, first)
			if b.head == s {
				b.head = first
			}
		}
		s = first
	}

	h1, t1 := b.head, s
	h2, t2 := s.next, b.head.prev
	t1.next, h1.prev = h1, t1
	t2.next, h2.prev = h2, t2

	a.head.Clear()
	b.alloc.ReleaseSegment(a.head)
	a.head = h1
	b.head = h2

	a.size = n
	b.size -= n
	a.position = min(b.position, n)
	b.position = max(b.position-n, 0)
	a.mark = min(b.mark, n)
	b.mark = max(b.mark-n, 0)
	a.sync()
	b.sync()
	return a, nil
}

// swap exchanges chains and cursors with o.
func (b *Buffer) swap(o *Buffer) {
	b.head, o.head = o.head, b.head
	b.posSeg, o.posSeg = o.posSeg, b.posSeg
	b.markSeg, o.markSeg = o.markSeg, b.markSeg
	b.size, o.size = o.size, b.size
	b.position, o.position = o.position, b.position
	b.mark, o.mark = o.mark, b.mark
}

// DrainTo moves every unread byte of b to the tail of dst by relinking
// Segments. b is left empty with a single Segment.
func (b *Buffer) DrainTo(dst *Buffer) error {
	b.live()
	dst.live()
	if dst == b {
		return fmt.Errorf("buffer drain to itself: %w", api.ErrInvalidArgument)
	}
	r := b.Remaining()
	if r == 0 {
		b.Clear()
		return nil
	}

	p := b.readSeg()
	var spare *Segment
	for b.head != p {
		s := b.head
		b.head = s.next
		unlink(s)
		if spare == nil {
			spare = s
		} else {
			b.alloc.ReleaseSegment(s)
		}
	}
	p.Compact()
	chainHead, chainTail := p, p.prev

	if spare == nil {
		spare = b.alloc.NewSegment()
	}
	spare.Clear()
	b.head, b.posSeg, b.markSeg = spare, spare, spare
	b.size, b.position, b.mark = 0, 0, 0

	resync := false
	if t := dst.tail(); t.size == 0 {
		if t == dst.head {
			dst.head = chainHead
			dst.posSeg, dst.markSeg = chainHead, chainHead
			dst.alloc.ReleaseSegment(t)
			dst.size += r
			return nil
		}
		unlink(t)
		dst.alloc.ReleaseSegment(t)
		resync = true
	}
	t := dst.tail()
	t.next, chainHead.prev = chainHead, t
	chainTail.next, dst.head.prev = dst.head, chainTail
	dst.size += r
	if resync {
		dst.sync()
	}
	return nil
}

// chunks iterates the unread bytes of a Buffer one Segment view at a time.
type chunks struct {
	b   *Buffer
	seg *Segment
	cur []byte
}

func (b *Buffer) chunks() *chunks {
	c := &chunks{b: b, seg: b.posSeg}
	c.cur = c.seg.unread()
	return c
}

// next returns a non-empty view or nil at the end.
func (c *chunks) next() []byte {
	for len(c.cur) == 0 {
		c.seg = c.seg.next
		if c.seg == c.b.head {
			return nil
		}
		c.cur = c.seg.valid()
	}
	return c.cur
}

func (c *chunks) advance(n int) { c.cur = c.cur[n:] }

// Compare orders the unread bytes of b and o lexicographically.
func (b *Buffer) Compare(o *Buffer) int {
	b.live()
	o.live()
	ca, co := b.chunks(), o.chunks()
	for {
		x, y := ca.next(), co.next()
		switch {
		case x == nil && y == nil:
			return 0
		case x == nil:
			return -1
		case y == nil:
			return 1
		}
		n := min(len(x), len(y))
		if c := bytes.Compare(x[:n], y[:n]); c != 0 {
			return c
		}
		ca.advance(n)
		co.advance(n)
	}
}

// Equal reports whether the unread bytes of b and o are identical.
func (b *Buffer) Equal(o *Buffer) bool {
	return b.Remaining() == o.Remaining() && b.Compare(o) == 0
}
