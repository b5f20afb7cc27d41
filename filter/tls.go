// File: filter/tls.go
// Package filter
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TLS record stage. Record boundaries come from the 5-byte record header;
// decoding and encoding are delegated to an engine created per session.

package filter

import (
	"sync"

	"github.com/momentics/hioload-frame/api"
	"github.com/momentics/hioload-frame/buffer"
)

const (
	tlsHeaderLen = 5
	// MaxTLSRecord is the largest ciphertext fragment RFC 8446 allows.
	MaxTLSRecord = 1<<14 + 256

	tlsEngineAttr = "filter.tls.engine"
)

// TLS hands whole records to a per-session engine.
type TLS struct {
	NewEngine func(s Session) api.TLSEngine

	mu sync.Mutex
}

// NewTLS creates a TLS stage.
func NewTLS(factory func(s Session) api.TLSEngine) *TLS {
	return &TLS{NewEngine: factory}
}

func (f *TLS) engine(s Session) api.TLSEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := s.Attr(tlsEngineAttr); ok {
		return v.(api.TLSEngine)
	}
	e := f.NewEngine(s)
	s.SetAttr(tlsEngineAttr, e)
	return e
}

// TellBoundary implements Framer.
func (f *TLS) TellBoundary(s Session, r *buffer.Buffer) int {
	if r.Remaining() < tlsHeaderLen {
		return Underflow
	}
	n, err := r.Uint16AtB(r.Position() + 3)
	if err != nil || int(n) > MaxTLSRecord {
		s.Logger().Warn("tls record length rejected", "length", n)
		return Malformed
	}
	return tlsHeaderLen + int(n)
}

// OnArrive decodes one record. Records carrying no application data, such
// as alerts absorbed by the engine, are swallowed.
func (f *TLS) OnArrive(s Session, msg any) (Output, error) {
	b, err := asBuffer("tls", msg)
	if err != nil {
		return None, err
	}
	defer b.Release()
	dst := s.Allocator().NewBuffer()
	if err := b.Unwrap(f.engine(s), dst); err != nil {
		dst.Release()
		return None, err
	}
	if dst.Size() == 0 {
		dst.Release()
		return None, nil
	}
	return Emit(dst), nil
}

// OnDepart encodes the outbound bytes into records.
func (f *TLS) OnDepart(s Session, msg any) (Output, error) {
	b, err := ToBuffer(s, msg, 0)
	if err != nil {
		return None, err
	}
	defer b.Release()
	dst := s.Allocator().NewBuffer()
	if err := b.Wrap(f.engine(s), dst); err != nil {
		dst.Release()
		return None, err
	}
	return Emit(dst), nil
}

var _ Framer = (*TLS)(nil)
