// File: filter/string.go
// Package filter
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package filter

// String converts frames to strings on arrival and strings to Buffers on
// departure.
type String struct{}

// OnArrive implements Filter.
func (String) OnArrive(_ Session, msg any) (Output, error) {
	b, err := asBuffer("string", msg)
	if err != nil {
		return None, err
	}
	str, err := b.ReadString(b.Remaining())
	b.Release()
	if err != nil {
		return None, err
	}
	return Emit(str), nil
}

// OnDepart implements Filter.
func (String) OnDepart(s Session, msg any) (Output, error) {
	b, err := ToBuffer(s, msg, 8)
	if err != nil {
		return None, err
	}
	return Emit(b), nil
}

var _ Filter = String{}
