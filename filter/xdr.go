// File: filter/xdr.go
// Package filter
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package filter

import (
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"

	"github.com/momentics/hioload-frame/buffer"
)

// XDR decodes whole records into *T and encodes T or *T back to bytes.
// It is a typed stage: place it after a framer such as RecordMark.
type XDR[T any] struct {
	// HeadRoom is reserved in encoded Buffers for the framers below.
	HeadRoom int
}

// NewXDR creates an XDR stage reserving 4 bytes of head room.
func NewXDR[T any]() *XDR[T] {
	return &XDR[T]{HeadRoom: 4}
}

// OnArrive unmarshals the record straight from the Buffer.
func (f *XDR[T]) OnArrive(_ Session, msg any) (Output, error) {
	b, err := asBuffer("xdr", msg)
	if err != nil {
		return None, err
	}
	defer b.Release()
	v := new(T)
	if _, err := xdr.Unmarshal(b, v); err != nil {
		return None, fmt.Errorf("unmarshal %T: %w", v, err)
	}
	return Emit(v), nil
}

// OnDepart marshals the value into a pooled Buffer.
func (f *XDR[T]) OnDepart(s Session, msg any) (Output, error) {
	var v any
	switch m := msg.(type) {
	case *T:
		v = m
	case T:
		v = &m
	case *buffer.Buffer:
		return Emit(m), nil
	default:
		return None, fmt.Errorf("xdr stage cannot encode %T", msg)
	}
	b := s.Allocator().NewBuffer()
	b.ReserveHead(f.HeadRoom)
	if _, err := xdr.Marshal(b, v); err != nil {
		b.Release()
		return None, fmt.Errorf("marshal %T: %w", v, err)
	}
	return Emit(b), nil
}

var _ Filter = (*XDR[struct{}])(nil)
