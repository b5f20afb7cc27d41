// File: buffer/segment.go
// Package buffer
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Segment is the atomic unit of storage: a fixed-capacity byte array with a
// movable start offset, a fill size, a read cursor and a mark.

package buffer

import (
	"fmt"

	"github.com/momentics/hioload-frame/api"
)

// Segment wraps a fixed-capacity byte array.
//
// Valid bytes occupy data[start : start+size]. position and mark are relative
// to start. Invariants: 0 <= start, start+size <= cap, 0 <= mark <= position <= size.
type Segment struct {
	data     []byte
	start    int
	size     int
	position int
	mark     int

	prev *Segment
	next *Segment
}

func newSegment(capacity int) *Segment {
	s := &Segment{data: make([]byte, capacity)}
	s.prev, s.next = s, s
	return s
}

func outOfBounds(op string, args ...any) error {
	return fmt.Errorf("segment %s %v: %w", op, args, api.ErrIndexOutOfBounds)
}

// Capacity returns the size of the backing array.
func (s *Segment) Capacity() int { return len(s.data) }

// Start returns the offset of the first valid byte.
func (s *Segment) Start() int { return s.start }

// Size returns the number of valid bytes.
func (s *Segment) Size() int { return s.size }

// Position returns the read cursor relative to Start.
func (s *Segment) Position() int { return s.position }

// Mark returns the saved read cursor.
func (s *Segment) Mark() int { return s.mark }

// Available returns the tail room.
func (s *Segment) Available() int { return len(s.data) - s.size - s.start }

// HeadAvailable returns the head room.
func (s *Segment) HeadAvailable() int { return s.start }

// Remaining returns the number of unread bytes.
func (s *Segment) Remaining() int { return s.size - s.position }

// Clear resets all cursors. Content bytes are left as they are.
func (s *Segment) Clear() {
	s.start, s.size, s.position, s.mark = 0, 0, 0, 0
}

// unread is a view of data[position:size].
func (s *Segment) unread() []byte {
	return s.data[s.start+s.position : s.start+s.size]
}

// valid is a view of data[0:size].
func (s *Segment) valid() []byte {
	return s.data[s.start : s.start+s.size]
}

// room is a view of the tail room.
func (s *Segment) room() []byte {
	return s.data[s.start+s.size:]
}

// Read consumes one byte.
func (s *Segment) Read() byte {
	if s.position >= s.size {
		panic(outOfBounds("read", s.position, s.size))
	}
	c := s.data[s.start+s.position]
	s.position++
	return c
}

// ReadUintB shifts n bytes MSB-first into acc and returns the result.
// Callers assemble values spanning segments by chaining calls.
func (s *Segment) ReadUintB(acc uint64, n int) uint64 {
	if n < 0 || n > s.Remaining() {
		panic(outOfBounds("readB", n, s.Remaining()))
	}
	for i := 0; i < n; i++ {
		acc = acc<<8 | uint64(s.data[s.start+s.position])
		s.position++
	}
	return acc
}

// ReadUintL places n bytes LSB-first into acc, the first at byte index shift.
func (s *Segment) ReadUintL(acc uint64, shift, n int) uint64 {
	if n < 0 || n > s.Remaining() {
		panic(outOfBounds("readL", n, s.Remaining()))
	}
	for i := 0; i < n; i++ {
		acc |= uint64(s.data[s.start+s.position]) << (8 * uint(shift+i))
		s.position++
	}
	return acc
}

// WriteByte appends one byte. The caller checks Available first.
func (s *Segment) WriteByte(c byte) error {
	if s.Available() == 0 {
		return outOfBounds("write", s.start+s.size, len(s.data))
	}
	s.data[s.start+s.size] = c
	s.size++
	return nil
}

// HeadWriteByte prepends one byte. The caller checks HeadAvailable first.
func (s *Segment) HeadWriteByte(c byte) error {
	if s.start == 0 {
		return outOfBounds("headWrite", s.start)
	}
	s.start--
	s.data[s.start] = c
	s.size++
	return nil
}

// WriteUintB appends bytes [from, from+n) of the width-byte big-endian
// representation of v.
func (s *Segment) WriteUintB(v uint64, width, from, n int) {
	if n < 0 || n > s.Available() || from+n > width {
		panic(outOfBounds("writeB", from, n, s.Available()))
	}
	for i := from; i < from+n; i++ {
		s.data[s.start+s.size] = byte(v >> (8 * uint(width-1-i)))
		s.size++
	}
}

// WriteUintL appends bytes [from, from+n) of the little-endian
// representation of v.
func (s *Segment) WriteUintL(v uint64, width, from, n int) {
	if n < 0 || n > s.Available() || from+n > width {
		panic(outOfBounds("writeL", from, n, s.Available()))
	}
	for i := from; i < from+n; i++ {
		s.data[s.start+s.size] = byte(v >> (8 * uint(i)))
		s.size++
	}
}

// WriteBytes appends as much of p as fits and returns the count placed.
func (s *Segment) WriteBytes(p []byte) int {
	n := copy(s.data[s.start+s.size:], p)
	s.size += n
	return n
}

// HeadWriteBytes prepends as much of the tail of p as fits and returns the
// count placed. Callers loop from the end of p toward its beginning.
func (s *Segment) HeadWriteBytes(p []byte) int {
	n := min(len(p), s.start)
	copy(s.data[s.start-n:s.start], p[len(p)-n:])
	s.start -= n
	s.size += n
	return n
}

// WriteFill appends up to n copies of c.
func (s *Segment) WriteFill(c byte, n int) int {
	n = min(n, s.Available())
	fill(s.data[s.start+s.size:s.start+s.size+n], c)
	s.size += n
	return n
}

// HeadWriteFill prepends up to n copies of c.
func (s *Segment) HeadWriteFill(c byte, n int) int {
	n = min(n, s.start)
	fill(s.data[s.start-n:s.start], c)
	s.start -= n
	s.size += n
	return n
}

// Cut removes the last n bytes. The smaller side is copied into fresh, so
// the result is two segments, first holding the leading size-n bytes and
// second the trailing n bytes; one of them is s, the other fresh. Position
// and mark are re-partitioned. The caller relinks both.
func (s *Segment) Cut(n int, fresh *Segment) (first, second *Segment) {
	if n < 0 || n > s.size {
		panic(outOfBounds("cut", n, s.size))
	}
	k := s.size - n
	p, m := s.position, s.mark
	fresh.Clear()
	if n <= k {
		copy(fresh.data, s.data[s.start+k:s.start+s.size])
		fresh.size = n
		s.size = k
		first, second = s, fresh
	} else {
		copy(fresh.data, s.data[s.start:s.start+k])
		fresh.size = k
		s.start += k
		s.size = n
		first, second = fresh, s
	}
	first.position, second.position = min(p, k), max(p-k, 0)
	first.mark, second.mark = min(m, k), max(m-k, 0)
	return first, second
}

// Compact discards consumed bytes by advancing start.
func (s *Segment) Compact() {
	s.start += s.position
	s.size -= s.position
	s.position = 0
	s.mark = 0
}

func fill(p []byte, c byte) {
	for i := range p {
		p[i] = c
	}
}

// linking helpers; a detached segment points at itself.

func linkAfter(at, s *Segment) {
	s.prev = at
	s.next = at.next
	at.next.prev = s
	at.next = s
}

func linkBefore(at, s *Segment) {
	linkAfter(at.prev, s)
}

func unlink(s *Segment) {
	s.prev.next = s.next
	s.next.prev = s.prev
	s.prev, s.next = s, s
}
