// File: buffer/buffer_search.go
// Package buffer
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Searches cover the unread range [position, size) and return absolute
// offsets, or -1 when nothing matches.

package buffer

import "bytes"

// view is one searchable run of a Segment with its absolute offset.
type view struct {
	seg  *Segment
	off  int // offset of data[0] inside seg.valid()
	abs  int // absolute offset of data[0]
	data []byte
}

// views returns the unread runs in chain order.
func (b *Buffer) views() []view {
	if b.Remaining() == 0 {
		return nil
	}
	out := make([]view, 0, 4)
	s := b.readSeg()
	abs := b.position
	out = append(out, view{seg: s, off: s.position, abs: abs, data: s.unread()})
	abs += s.Remaining()
	for s = s.next; s != b.head; s = s.next {
		if s.size > 0 {
			out = append(out, view{seg: s, abs: abs, data: s.valid()})
			abs += s.size
		}
	}
	return out
}

// IndexByte returns the offset of the first c at or after the position.
func (b *Buffer) IndexByte(c byte) int {
	b.live()
	for _, v := range b.views() {
		if i := bytes.IndexByte(v.data, c); i >= 0 {
			return v.abs + i
		}
	}
	return -1
}

// LastIndexByte returns the offset of the last c at or after the position.
func (b *Buffer) LastIndexByte(c byte) int {
	b.live()
	vs := b.views()
	for i := len(vs) - 1; i >= 0; i-- {
		if j := bytes.LastIndexByte(vs[i].data, c); j >= 0 {
			return vs[i].abs + j
		}
	}
	return -1
}

// matchFrom reports whether p occurs at offset off of seg.valid(), probing
// following Segments when p straddles a boundary.
func (b *Buffer) matchFrom(seg *Segment, off int, p []byte) bool {
	for len(p) > 0 {
		d := seg.valid()[off:]
		n := min(len(d), len(p))
		if !bytes.Equal(d[:n], p[:n]) {
			return false
		}
		p = p[n:]
		seg, off = seg.next, 0
		if len(p) > 0 && seg == b.head {
			return false
		}
	}
	return true
}

// IndexBytes returns the offset of the first occurrence of p.
func (b *Buffer) IndexBytes(p []byte) int {
	b.live()
	if len(p) == 0 {
		return b.position
	}
	end := b.size - len(p)
	for _, v := range b.views() {
		for i := 0; i < len(v.data); {
			j := bytes.IndexByte(v.data[i:], p[0])
			if j < 0 {
				break
			}
			i += j
			if v.abs+i > end {
				return -1
			}
			if b.matchFrom(v.seg, v.off+i, p) {
				return v.abs + i
			}
			i++
		}
	}
	return -1
}

// LastIndexBytes returns the offset of the last occurrence of p.
func (b *Buffer) LastIndexBytes(p []byte) int {
	b.live()
	if len(p) == 0 {
		return b.size
	}
	end := b.size - len(p)
	vs := b.views()
	for k := len(vs) - 1; k >= 0; k-- {
		v := vs[k]
		for i := len(v.data); i > 0; {
			j := bytes.LastIndexByte(v.data[:i], p[0])
			if j < 0 {
				break
			}
			if v.abs+j <= end && b.matchFrom(v.seg, v.off+j, p) {
				return v.abs + j
			}
			i = j
		}
	}
	return -1
}

// contiguous returns the unread bytes as one slice. It aliases Segment
// memory when a single Segment holds them and copies otherwise.
func (b *Buffer) contiguous() []byte {
	r := b.Remaining()
	if r == 0 {
		return nil
	}
	if s := b.readSeg(); s.Remaining() == r {
		return s.unread()
	}
	p := make([]byte, r)
	b.copyAt(b.position, p)
	return p
}

// IndexMatch returns the offset of the first match of m.
func (b *Buffer) IndexMatch(m Matcher) int {
	b.live()
	if i := m.Index(b.contiguous()); i >= 0 {
		return b.position + i
	}
	return -1
}

// LastIndexMatch returns the offset of the last match of m.
func (b *Buffer) LastIndexMatch(m Matcher) int {
	b.live()
	if i := m.LastIndex(b.contiguous()); i >= 0 {
		return b.position + i
	}
	return -1
}
