// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Defines transport socket abstraction (NetConn) for scatter/gather IO
// driven by the reactor and the segmented buffer engine.

package api

// NetConn abstracts a non-blocking, full-duplex connection.
//
// Both directions report the number of bytes actually transferred; a count of
// zero with a nil error means the operation would block. A read that observes
// an orderly shutdown returns io.EOF.
type NetConn interface {
	// ReadBuffers scatter-reads into the given views, in order.
	ReadBuffers(bufs [][]byte) (int, error)

	// WriteBuffers gather-writes the given views, in order.
	WriteBuffers(bufs [][]byte) (int, error)

	// Close shuts the connection down. It is idempotent.
	Close() error

	// FD returns the underlying descriptor, or ^uintptr(0) when there is none.
	FD() uintptr
}
