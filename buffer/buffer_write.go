// File: buffer/buffer_write.go
// Package buffer
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package buffer

import (
	"encoding/binary"
	"math"
)

// WriteByte appends one byte.
func (b *Buffer) WriteByte(c byte) error {
	if err := b.writable().WriteByte(c); err != nil {
		return err
	}
	b.size++
	return nil
}

func (b *Buffer) writeUintB(v uint64, width int) {
	for from := 0; from < width; {
		s := b.writable()
		n := min(width-from, s.Available())
		s.WriteUintB(v, width, from, n)
		from += n
	}
	b.size += width
}

func (b *Buffer) writeUintL(v uint64, width int) {
	for from := 0; from < width; {
		s := b.writable()
		n := min(width-from, s.Available())
		s.WriteUintL(v, width, from, n)
		from += n
	}
	b.size += width
}

// WriteUint16B through WriteUint64L append an unsigned integer; the B
// variants are big-endian and the L variants little-endian.
func (b *Buffer) WriteUint16B(v uint16) { b.writeUintB(uint64(v), 2) }
func (b *Buffer) WriteUint16L(v uint16) { b.writeUintL(uint64(v), 2) }
func (b *Buffer) WriteUint32B(v uint32) { b.writeUintB(uint64(v), 4) }
func (b *Buffer) WriteUint32L(v uint32) { b.writeUintL(uint64(v), 4) }
func (b *Buffer) WriteUint64B(v uint64) { b.writeUintB(v, 8) }
func (b *Buffer) WriteUint64L(v uint64) { b.writeUintL(v, 8) }

// WriteFloat32B through WriteFloat64L append the IEEE 754 bits of f in the
// named byte order.
func (b *Buffer) WriteFloat32B(f float32) { b.writeUintB(uint64(math.Float32bits(f)), 4) }
func (b *Buffer) WriteFloat32L(f float32) { b.writeUintL(uint64(math.Float32bits(f)), 4) }
func (b *Buffer) WriteFloat64B(f float64) { b.writeUintB(math.Float64bits(f), 8) }
func (b *Buffer) WriteFloat64L(f float64) { b.writeUintL(math.Float64bits(f), 8) }

// WriteBytes appends p.
func (b *Buffer) WriteBytes(p []byte) {
	for rest := p; len(rest) > 0; {
		n := b.writable().WriteBytes(rest)
		rest = rest[n:]
	}
	b.size += len(p)
}

// Write implements io.Writer. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.WriteBytes(p)
	return len(p), nil
}

// WriteString appends str.
func (b *Buffer) WriteString(str string) (int, error) {
	for rest := str; len(rest) > 0; {
		s := b.writable()
		n := copy(s.room(), rest)
		s.size += n
		rest = rest[n:]
	}
	b.size += len(str)
	return len(str), nil
}

// WriteFill appends n copies of c.
func (b *Buffer) WriteFill(c byte, n int) {
	for left := n; left > 0; {
		left -= b.writable().WriteFill(c, left)
	}
	b.size += max(n, 0)
}

// headWritable returns the head Segment with head room, prepending a
// Segment whose capacity is all head room when needed.
func (b *Buffer) headWritable() *Segment {
	b.live()
	h := b.head
	if h.start > 0 {
		return h
	}
	if h.size == 0 {
		h.start = len(h.data)
		return h
	}
	s := b.alloc.NewHeadSegment()
	linkBefore(h, s)
	b.head = s
	return s
}

// headPlaced adjusts the cursors of s after n bytes were prepended to it.
func (b *Buffer) headPlaced(s *Segment, n int) {
	if b.position > 0 {
		s.position += n
	}
	if b.mark > 0 && b.markSeg == s {
		s.mark += n
	}
}

// headDone shifts the global cursors after n bytes were prepended.
func (b *Buffer) headDone(n int) {
	b.size += n
	if b.position > 0 {
		b.position += n
	} else {
		b.posSeg = b.head
	}
	if b.mark > 0 {
		b.mark += n
	} else {
		b.markSeg = b.head
	}
}

// HeadWriteByte prepends one byte.
func (b *Buffer) HeadWriteByte(c byte) {
	s := b.headWritable()
	_ = s.HeadWriteByte(c)
	b.headPlaced(s, 1)
	b.headDone(1)
}

// HeadWriteBytes prepends p; the first byte of p becomes the first byte of
// the Buffer.
func (b *Buffer) HeadWriteBytes(p []byte) {
	for rest := p; len(rest) > 0; {
		s := b.headWritable()
		n := s.HeadWriteBytes(rest)
		b.headPlaced(s, n)
		rest = rest[:len(rest)-n]
	}
	b.headDone(len(p))
}

// HeadWriteString prepends str.
func (b *Buffer) HeadWriteString(str string) {
	b.HeadWriteBytes([]byte(str))
}

// HeadWriteFill prepends n copies of c.
func (b *Buffer) HeadWriteFill(c byte, n int) {
	for left := n; left > 0; {
		s := b.headWritable()
		k := s.HeadWriteFill(c, left)
		b.headPlaced(s, k)
		left -= k
	}
	b.headDone(max(n, 0))
}

// HeadWriteUint prepends the low width bytes of v in the given order.
func (b *Buffer) HeadWriteUint(v uint64, width int, order binary.ByteOrder) {
	var scratch [8]byte
	switch order {
	case binary.LittleEndian:
		binary.LittleEndian.PutUint64(scratch[:], v)
		b.HeadWriteBytes(scratch[:width])
	default:
		binary.BigEndian.PutUint64(scratch[:], v)
		b.HeadWriteBytes(scratch[8-width:])
	}
}

// WriteUint appends the low width bytes of v in the given order.
func (b *Buffer) WriteUint(v uint64, width int, order binary.ByteOrder) {
	if order == binary.LittleEndian {
		b.writeUintL(v, width)
		return
	}
	b.writeUintB(v, width)
}

// HeadWriteUint16B through HeadWriteUint64L prepend an unsigned integer in
// the named byte order; see HeadWriteUint.
func (b *Buffer) HeadWriteUint16B(v uint16) { b.HeadWriteUint(uint64(v), 2, binary.BigEndian) }
func (b *Buffer) HeadWriteUint16L(v uint16) { b.HeadWriteUint(uint64(v), 2, binary.LittleEndian) }
func (b *Buffer) HeadWriteUint32B(v uint32) { b.HeadWriteUint(uint64(v), 4, binary.BigEndian) }
func (b *Buffer) HeadWriteUint32L(v uint32) { b.HeadWriteUint(uint64(v), 4, binary.LittleEndian) }
func (b *Buffer) HeadWriteUint64B(v uint64) { b.HeadWriteUint(v, 8, binary.BigEndian) }
func (b *Buffer) HeadWriteUint64L(v uint64) { b.HeadWriteUint(v, 8, binary.LittleEndian) }
