// File: filter/record_mark.go
// Package filter
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ONC RPC record marking (RFC 5531 section 11): every fragment carries a
// 4-byte header, high bit set on the last fragment of a record, low 31 bits
// the fragment length.

package filter

import (
	"fmt"

	"github.com/momentics/hioload-frame/api"
	"github.com/momentics/hioload-frame/buffer"
)

const (
	lastFragment   = 0x80000000
	fragmentLength = 0x7FFFFFFF

	// DefaultMaxRecord matches the limit NFS servers commonly apply.
	DefaultMaxRecord = 1 << 20

	recordAttr = "filter.record_mark.partial"
)

// RecordMark frames RPC records and reassembles multi-fragment records.
type RecordMark struct {
	MaxRecord int
}

// NewRecordMark creates a record marking framer; max <= 0 selects
// DefaultMaxRecord.
func NewRecordMark(max int) *RecordMark {
	if max <= 0 {
		max = DefaultMaxRecord
	}
	return &RecordMark{MaxRecord: max}
}

// TellBoundary implements Framer.
func (f *RecordMark) TellBoundary(s Session, r *buffer.Buffer) int {
	if r.Remaining() < 4 {
		return Underflow
	}
	hdr, err := r.Uint32AtB(r.Position())
	if err != nil {
		return Malformed
	}
	n := int(hdr & fragmentLength)
	if n > f.MaxRecord {
		s.Logger().Warn("rpc fragment too large", "length", n, "max", f.MaxRecord)
		return Malformed
	}
	return 4 + n
}

// OnArrive strips the fragment header and emits whole records.
func (f *RecordMark) OnArrive(s Session, msg any) (Output, error) {
	b, err := asBuffer("record mark", msg)
	if err != nil {
		return None, err
	}
	hdr, err := b.ReadUint32B()
	if err != nil {
		b.Release()
		return None, err
	}
	b.Compact()

	if v, ok := s.Attr(recordAttr); ok {
		partial := v.(*buffer.Buffer)
		if err := b.DrainTo(partial); err != nil {
			b.Release()
			return None, err
		}
		b.Release()
		b = partial
		if b.Size() > f.MaxRecord {
			s.SetAttr(recordAttr, nil)
			b.Release()
			return None, fmt.Errorf("rpc record exceeds %d bytes: %w", f.MaxRecord, api.ErrFraming)
		}
	}
	if hdr&lastFragment == 0 {
		s.SetAttr(recordAttr, b)
		return None, nil
	}
	s.SetAttr(recordAttr, nil)
	return Emit(b), nil
}

// OnDepart writes the record as a single last fragment.
func (f *RecordMark) OnDepart(s Session, msg any) (Output, error) {
	b, err := ToBuffer(s, msg, 4)
	if err != nil {
		return None, err
	}
	b.Compact()
	n := b.Size()
	if n > fragmentLength {
		b.Release()
		return None, fmt.Errorf("rpc record of %d bytes: %w", n, api.ErrInvalidArgument)
	}
	b.HeadWriteUint32B(lastFragment | uint32(n))
	return Emit(b), nil
}

var _ Framer = (*RecordMark)(nil)
