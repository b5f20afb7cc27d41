// File: filter/websocket.go
// Package filter
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// RFC 6455 data framing over pooled Buffers. The opening handshake is not
// part of the pipeline; the stage starts once the connection is upgraded.

package filter

import (
	"crypto/rand"
	"fmt"

	"github.com/momentics/hioload-frame/api"
	"github.com/momentics/hioload-frame/buffer"
)

// WebSocket opcodes.
const (
	OpcodeContinuation = 0x0
	OpcodeText         = 0x1
	OpcodeBinary       = 0x2
	OpcodeClose        = 0x8
	OpcodePing         = 0x9
	OpcodePong         = 0xA

	finBit  = 0x80
	maskBit = 0x80
)

// MaxFramePayload is the default payload limit of a single frame.
const MaxFramePayload = 1 << 20

// WSFrame is one decoded WebSocket frame. Payload is owned by the frame.
type WSFrame struct {
	Fin     bool
	Opcode  byte
	Payload *buffer.Buffer
}

// Release returns the payload to its allocator.
func (f *WSFrame) Release() {
	if f.Payload != nil {
		f.Payload.Release()
		f.Payload = nil
	}
}

// IsControl reports close, ping and pong frames.
func (f *WSFrame) IsControl() bool { return f.Opcode&0x8 != 0 }

// WebSocket is the frame stage. Server side stages require masked input
// and write unmasked frames; client side stages do the opposite.
type WebSocket struct {
	Client     bool
	MaxPayload int
}

// NewWebSocket creates a server side stage.
func NewWebSocket() *WebSocket {
	return &WebSocket{MaxPayload: MaxFramePayload}
}

// header parses the frame header at the read position without moving it.
// ok is false when more bytes are needed.
func (f *WebSocket) header(r *buffer.Buffer) (hdrLen int, payload uint64, ok bool) {
	at, rem := r.Position(), r.Remaining()
	if rem < 2 {
		return 0, 0, false
	}
	b1, _ := r.ByteAt(at + 1)
	hdrLen = 2
	payload = uint64(b1 & 0x7F)
	switch payload {
	case 126:
		if rem < 4 {
			return 0, 0, false
		}
		v, _ := r.Uint16AtB(at + 2)
		payload = uint64(v)
		hdrLen += 2
	case 127:
		if rem < 10 {
			return 0, 0, false
		}
		payload, _ = r.Uint64AtB(at + 2)
		hdrLen += 8
	}
	if b1&maskBit != 0 {
		hdrLen += 4
	}
	return hdrLen, payload, true
}

// TellBoundary implements Framer.
func (f *WebSocket) TellBoundary(s Session, r *buffer.Buffer) int {
	hdrLen, n, ok := f.header(r)
	if !ok {
		return Underflow
	}
	if n > uint64(f.MaxPayload) {
		s.Logger().Warn("websocket frame payload exceeds limit", "length", n, "max", f.MaxPayload)
		return Malformed
	}
	return hdrLen + int(n)
}

// OnArrive unmasks the payload in place and answers control frames.
func (f *WebSocket) OnArrive(s Session, msg any) (Output, error) {
	b, err := asBuffer("websocket", msg)
	if err != nil {
		return None, err
	}
	hdrLen, _, _ := f.header(b)
	b0, _ := b.ReadByte()
	b1, _ := b.ReadByte()
	masked := b1&maskBit != 0
	if masked == f.Client {
		b.Release()
		return None, fmt.Errorf("websocket: unexpected mask bit %v: %w", masked, api.ErrFraming)
	}
	var key [4]byte
	if masked {
		_ = b.Skip(hdrLen - 6)
		k, _ := b.ReadBytes(4)
		copy(key[:], k)
	} else {
		_ = b.Skip(hdrLen - 2)
	}
	b.Compact()
	if masked {
		i := 0
		for _, v := range b.ReadViews() {
			for j := range v {
				v[j] ^= key[i&3]
				i++
			}
		}
	}

	frame := &WSFrame{Fin: b0&finBit != 0, Opcode: b0 & 0x0F, Payload: b}
	switch frame.Opcode {
	case OpcodePing:
		frame.Opcode = OpcodePong
		return None, f.reply(s, frame)
	case OpcodePong:
		frame.Release()
		return None, nil
	case OpcodeClose:
		if err := f.reply(s, frame); err != nil {
			return None, err
		}
		s.Shutdown()
		return None, nil
	}
	return Emit(frame), nil
}

// reply encodes a control frame at this stage and hands it to the stages
// below for writing.
func (f *WebSocket) reply(s Session, frame *WSFrame) error {
	out, err := f.OnDepart(s, frame)
	if err != nil {
		return err
	}
	encoded, _ := out.Message()
	return s.Reply(s.Stage(), encoded)
}

// OnDepart writes the frame header in front of the payload. Buffers, byte
// slices and strings are sent as single binary or text frames.
func (f *WebSocket) OnDepart(s Session, msg any) (Output, error) {
	frame, ok := msg.(*WSFrame)
	if !ok {
		opcode := byte(OpcodeBinary)
		if _, isText := msg.(string); isText {
			opcode = OpcodeText
		}
		b, err := ToBuffer(s, msg, 14)
		if err != nil {
			return None, err
		}
		frame = &WSFrame{Fin: true, Opcode: opcode, Payload: b}
	}
	b := frame.Payload
	if b == nil {
		b = s.Allocator().NewBuffer()
		b.ReserveHead(14)
	}
	frame.Payload = nil
	b.Compact()
	n := b.Size()
	if n > f.MaxPayload && !frame.IsControl() {
		b.Release()
		return None, fmt.Errorf("websocket payload %d exceeds %d: %w", n, f.MaxPayload, api.ErrInvalidArgument)
	}

	var mask byte
	if f.Client {
		var key [4]byte
		if _, err := rand.Read(key[:]); err != nil {
			b.Release()
			return None, err
		}
		i := 0
		for _, v := range b.ReadViews() {
			for j := range v {
				v[j] ^= key[i&3]
				i++
			}
		}
		b.HeadWriteBytes(key[:])
		mask = maskBit
	}
	switch {
	case n <= 125:
		b.HeadWriteByte(mask | byte(n))
	case n <= 0xFFFF:
		b.HeadWriteUint16B(uint16(n))
		b.HeadWriteByte(mask | 126)
	default:
		b.HeadWriteUint64B(uint64(n))
		b.HeadWriteByte(mask | 127)
	}
	b0 := frame.Opcode & 0x0F
	if frame.Fin {
		b0 |= finBit
	}
	b.HeadWriteByte(b0)
	return Emit(b), nil
}

var _ Framer = (*WebSocket)(nil)
