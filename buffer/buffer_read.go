// File: buffer/buffer_read.go
// Package buffer
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package buffer

import (
	"encoding/binary"
	"io"
	"math"
)

// ReadByte consumes one byte.
func (b *Buffer) ReadByte() (byte, error) {
	b.live()
	if b.Remaining() < 1 {
		return 0, insufficient("readByte", 1, 0)
	}
	c := b.readSeg().Read()
	b.position++
	return c, nil
}

func (b *Buffer) readUintB(width int) (uint64, error) {
	b.live()
	if r := b.Remaining(); r < width {
		return 0, insufficient("read", width, r)
	}
	var v uint64
	for left := width; left > 0; {
		s := b.readSeg()
		n := min(left, s.Remaining())
		v = s.ReadUintB(v, n)
		left -= n
	}
	b.position += width
	return v, nil
}

func (b *Buffer) readUintL(width int) (uint64, error) {
	b.live()
	if r := b.Remaining(); r < width {
		return 0, insufficient("read", width, r)
	}
	var v uint64
	for left := width; left > 0; {
		s := b.readSeg()
		n := min(left, s.Remaining())
		v = s.ReadUintL(v, width-left, n)
		left -= n
	}
	b.position += width
	return v, nil
}

// ReadUint16B reads a big-endian uint16.
func (b *Buffer) ReadUint16B() (uint16, error) {
	v, err := b.readUintB(2)
	return uint16(v), err
}

// ReadUint16L reads a little-endian uint16.
func (b *Buffer) ReadUint16L() (uint16, error) {
	v, err := b.readUintL(2)
	return uint16(v), err
}

// ReadUint32B reads a big-endian uint32.
func (b *Buffer) ReadUint32B() (uint32, error) {
	v, err := b.readUintB(4)
	return uint32(v), err
}

// ReadUint32L reads a little-endian uint32.
func (b *Buffer) ReadUint32L() (uint32, error) {
	v, err := b.readUintL(4)
	return uint32(v), err
}

// ReadUint64B reads a big-endian uint64.
func (b *Buffer) ReadUint64B() (uint64, error) { return b.readUintB(8) }

// ReadUint64L reads a little-endian uint64.
func (b *Buffer) ReadUint64L() (uint64, error) { return b.readUintL(8) }

// ReadInt16B reads a big-endian int16.
func (b *Buffer) ReadInt16B() (int16, error) {
	v, err := b.readUintB(2)
	return int16(v), err
}

// ReadInt16L reads a little-endian int16.
func (b *Buffer) ReadInt16L() (int16, error) {
	v, err := b.readUintL(2)
	return int16(v), err
}

// ReadInt32B reads a big-endian int32.
func (b *Buffer) ReadInt32B() (int32, error) {
	v, err := b.readUintB(4)
	return int32(v), err
}

// ReadInt32L reads a little-endian int32.
func (b *Buffer) ReadInt32L() (int32, error) {
	v, err := b.readUintL(4)
	return int32(v), err
}

// ReadInt64B reads a big-endian int64.
func (b *Buffer) ReadInt64B() (int64, error) {
	v, err := b.readUintB(8)
	return int64(v), err
}

// ReadInt64L reads a little-endian int64.
func (b *Buffer) ReadInt64L() (int64, error) {
	v, err := b.readUintL(8)
	return int64(v), err
}

// ReadFloat32B reads a big-endian float32.
func (b *Buffer) ReadFloat32B() (float32, error) {
	v, err := b.readUintB(4)
	return math.Float32frombits(uint32(v)), err
}

// ReadFloat32L reads a little-endian float32.
func (b *Buffer) ReadFloat32L() (float32, error) {
	v, err := b.readUintL(4)
	return math.Float32frombits(uint32(v)), err
}

// ReadFloat64B reads a big-endian float64.
func (b *Buffer) ReadFloat64B() (float64, error) {
	v, err := b.readUintB(8)
	return math.Float64frombits(v), err
}

// ReadFloat64L reads a little-endian float64.
func (b *Buffer) ReadFloat64L() (float64, error) {
	v, err := b.readUintL(8)
	return math.Float64frombits(v), err
}

// readInto fills p from the read position. The caller checks Remaining.
func (b *Buffer) readInto(p []byte) {
	for off := 0; off < len(p); {
		s := b.readSeg()
		n := copy(p[off:], s.unread())
		s.position += n
		off += n
	}
	b.position += len(p)
}

// ReadBytes consumes n bytes into a new slice.
func (b *Buffer) ReadBytes(n int) ([]byte, error) {
	b.live()
	if n < 0 {
		return nil, indexError("readBytes", b.position, n, b.size)
	}
	if r := b.Remaining(); r < n {
		return nil, insufficient("readBytes", n, r)
	}
	p := make([]byte, n)
	b.readInto(p)
	return p, nil
}

// ReadString consumes n bytes as a string.
func (b *Buffer) ReadString(n int) (string, error) {
	p, err := b.ReadBytes(n)
	return string(p), err
}

// Read implements io.Reader.
func (b *Buffer) Read(p []byte) (int, error) {
	b.live()
	if len(p) == 0 {
		return 0, nil
	}
	r := b.Remaining()
	if r == 0 {
		return 0, io.EOF
	}
	n := min(len(p), r)
	b.readInto(p[:n])
	return n, nil
}

// WriteTo implements io.WriterTo; it consumes every unread byte.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	b.live()
	var total int64
	for b.Remaining() > 0 {
		s := b.readSeg()
		n, err := w.Write(s.unread())
		s.position += n
		b.position += n
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Skip advances the read position by n bytes.
func (b *Buffer) Skip(n int) error {
	b.live()
	if n < 0 {
		return indexError("skip", b.position, n, b.size)
	}
	if r := b.Remaining(); r < n {
		return insufficient("skip", n, r)
	}
	for left := n; left > 0; {
		s := b.readSeg()
		k := min(left, s.Remaining())
		s.position += k
		left -= k
	}
	b.position += n
	return nil
}

// copyAt copies len(p) bytes starting at absolute offset i without moving
// any cursor. The caller checks bounds.
func (b *Buffer) copyAt(i int, p []byte) {
	if len(p) == 0 {
		return
	}
	s, off := b.locate(i)
	for n := 0; n < len(p); {
		n += copy(p[n:], s.valid()[off:])
		s, off = s.next, 0
	}
}

func (b *Buffer) checkRange(op string, i, n int) error {
	b.live()
	if i < 0 || n < 0 || i+n > b.size {
		return indexError(op, i, n, b.size)
	}
	return nil
}

// ByteAt returns the byte at absolute offset i.
func (b *Buffer) ByteAt(i int) (byte, error) {
	if err := b.checkRange("byteAt", i, 1); err != nil {
		return 0, err
	}
	s, off := b.locate(i)
	return s.valid()[off], nil
}

// BytesAt copies n bytes starting at absolute offset i.
func (b *Buffer) BytesAt(i, n int) ([]byte, error) {
	if err := b.checkRange("bytesAt", i, n); err != nil {
		return nil, err
	}
	p := make([]byte, n)
	b.copyAt(i, p)
	return p, nil
}

func (b *Buffer) scratchAt(i, width int) ([8]byte, error) {
	var scratch [8]byte
	if err := b.checkRange("getAt", i, width); err != nil {
		return scratch, err
	}
	b.copyAt(i, scratch[:width])
	return scratch, nil
}

// Uint16AtB returns the big-endian uint16 at absolute offset i.
func (b *Buffer) Uint16AtB(i int) (uint16, error) {
	p, err := b.scratchAt(i, 2)
	return binary.BigEndian.Uint16(p[:2]), err
}

// Uint16AtL returns the little-endian uint16 at absolute offset i.
func (b *Buffer) Uint16AtL(i int) (uint16, error) {
	p, err := b.scratchAt(i, 2)
	return binary.LittleEndian.Uint16(p[:2]), err
}

// Uint32AtB returns the big-endian uint32 at absolute offset i.
func (b *Buffer) Uint32AtB(i int) (uint32, error) {
	p, err := b.scratchAt(i, 4)
	return binary.BigEndian.Uint32(p[:4]), err
}

// Uint32AtL returns the little-endian uint32 at absolute offset i.
func (b *Buffer) Uint32AtL(i int) (uint32, error) {
	p, err := b.scratchAt(i, 4)
	return binary.LittleEndian.Uint32(p[:4]), err
}

// Uint64AtB returns the big-endian uint64 at absolute offset i.
func (b *Buffer) Uint64AtB(i int) (uint64, error) {
	p, err := b.scratchAt(i, 8)
	return binary.BigEndian.Uint64(p[:]), err
}

// Uint64AtL returns the little-endian uint64 at absolute offset i.
func (b *Buffer) Uint64AtL(i int) (uint64, error) {
	p, err := b.scratchAt(i, 8)
	return binary.LittleEndian.Uint64(p[:]), err
}
