// File: api/tls.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TLS engine contract. The engine is an external collaborator; only the data
// hand-off between pooled buffers and the engine lives in this module.

package api

// TLSStatus is the outcome of a single wrap or unwrap step.
type TLSStatus int

const (
	// TLSOK means the step completed.
	TLSOK TLSStatus = iota
	// TLSBufferOverflow means the destination had too little room.
	// The caller supplies more room and retries.
	TLSBufferOverflow
	// TLSBufferUnderflow means the source does not hold a complete record.
	TLSBufferUnderflow
	// TLSClosed means the engine has been closed by either side.
	TLSClosed
)

func (s TLSStatus) String() string {
	switch s {
	case TLSOK:
		return "ok"
	case TLSBufferOverflow:
		return "buffer_overflow"
	case TLSBufferUnderflow:
		return "buffer_underflow"
	case TLSClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// TLSEngine encodes and decodes TLS records in place.
type TLSEngine interface {
	// Unwrap decodes network bytes from src into the application views dst.
	Unwrap(src []byte, dst [][]byte) (consumed, produced int, status TLSStatus, err error)

	// Wrap encodes application bytes from the src views into dst.
	Wrap(src [][]byte, dst []byte) (consumed, produced int, status TLSStatus, err error)
}
