// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for the transport, TLS and
// executor contracts.

package fake

import (
	"bytes"
	"io"
	"sync"

	"github.com/momentics/hioload-frame/api"
)

// Conn is a scripted api.NetConn. Reads return the queued chunks one per
// call; writes are accumulated and can be throttled to force partial writes.
type Conn struct {
	mu         sync.Mutex
	chunks     [][]byte
	eof        bool
	written    bytes.Buffer
	writeLimit int
	blocked    bool
	closed     bool
	recvError  error
	sendError  error
	closeCalls int
	fd         uintptr
}

// NewConn creates a connection that would block until chunks are queued.
func NewConn(chunks ...[]byte) *Conn {
	c := &Conn{fd: ^uintptr(0)}
	c.Feed(chunks...)
	return c
}

// Feed queues chunks for subsequent reads.
func (c *Conn) Feed(chunks ...[]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range chunks {
		c.chunks = append(c.chunks, append([]byte(nil), p...))
	}
}

// FeedEOF makes the read after the queued chunks report io.EOF.
func (c *Conn) FeedEOF() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eof = true
}

// ReadBuffers implements api.NetConn. A chunk larger than the views is
// delivered across several calls.
func (c *Conn) ReadBuffers(bufs [][]byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, api.ErrTransportClosed
	}
	if c.recvError != nil {
		return 0, c.recvError
	}
	if len(c.chunks) == 0 {
		if c.eof {
			return 0, io.EOF
		}
		return 0, nil
	}
	head := c.chunks[0]
	n := 0
	for _, b := range bufs {
		k := copy(b, head[n:])
		n += k
		if n == len(head) {
			break
		}
	}
	if n == len(head) {
		c.chunks = c.chunks[1:]
	} else {
		c.chunks[0] = head[n:]
	}
	return n, nil
}

// WriteBuffers implements api.NetConn.
func (c *Conn) WriteBuffers(bufs [][]byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, api.ErrTransportClosed
	}
	if c.sendError != nil {
		return 0, c.sendError
	}
	if c.blocked {
		return 0, nil
	}
	budget := -1
	if c.writeLimit > 0 {
		budget = c.writeLimit
	}
	n := 0
	for _, b := range bufs {
		if budget >= 0 && len(b) > budget-n {
			b = b[:budget-n]
		}
		c.written.Write(b)
		n += len(b)
		if budget >= 0 && n == budget {
			break
		}
	}
	return n, nil
}

// Close implements api.NetConn.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCalls++
	c.closed = true
	return nil
}

// FD implements api.NetConn.
func (c *Conn) FD() uintptr { return c.fd }

// SetFD sets the descriptor reported by FD.
func (c *Conn) SetFD(fd uintptr) { c.fd = fd }

// SetWriteLimit caps the bytes accepted per WriteBuffers call; 0 removes
// the cap.
func (c *Conn) SetWriteLimit(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeLimit = n
}

// SetBlocked makes every write report would-block while b is true.
func (c *Conn) SetBlocked(b bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocked = b
}

// SetRecvError configures the connection to fail reads.
func (c *Conn) SetRecvError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recvError = err
}

// SetSendError configures the connection to fail writes.
func (c *Conn) SetSendError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendError = err
}

// Written returns a copy of every byte written so far.
func (c *Conn) Written() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.written.Bytes()...)
}

// CloseCalls returns how many times Close ran.
func (c *Conn) CloseCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCalls
}

// Closed reports whether Close ran.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

var _ api.NetConn = (*Conn)(nil)
