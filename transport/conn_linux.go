//go:build linux
// +build linux

// File: transport/conn_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-blocking socket connection using readv(2)/writev(2).

package transport

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-frame/api"
)

// Conn is a non-blocking connected socket.
type Conn struct {
	fd     int
	closed atomic.Bool
}

// NewConn wraps fd, switching it to non-blocking mode.
func NewConn(fd int) (*Conn, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, fmt.Errorf("set nonblock fd %d: %w", fd, err)
	}
	return &Conn{fd: fd}, nil
}

// ReadBuffers implements api.NetConn.
func (c *Conn) ReadBuffers(bufs [][]byte) (int, error) {
	if c.closed.Load() {
		return 0, api.ErrTransportClosed
	}
	if len(bufs) == 0 {
		return 0, nil
	}
	for {
		n, err := unix.Readv(c.fd, bufs)
		switch {
		case err == nil && n == 0:
			return 0, io.EOF
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return 0, nil
		default:
			return 0, mapErr("readv", err)
		}
	}
}

// WriteBuffers implements api.NetConn.
func (c *Conn) WriteBuffers(bufs [][]byte) (int, error) {
	if c.closed.Load() {
		return 0, api.ErrTransportClosed
	}
	if len(bufs) == 0 {
		return 0, nil
	}
	for {
		n, err := unix.Writev(c.fd, bufs)
		switch {
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return 0, nil
		default:
			return 0, mapErr("writev", err)
		}
	}
}

// Close implements api.NetConn.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return unix.Close(c.fd)
}

// FD implements api.NetConn.
func (c *Conn) FD() uintptr { return uintptr(c.fd) }

// CloseWrite half-closes the sending side.
func (c *Conn) CloseWrite() error {
	if c.closed.Load() {
		return api.ErrTransportClosed
	}
	return unix.Shutdown(c.fd, unix.SHUT_WR)
}

func mapErr(op string, err error) error {
	if errors.Is(err, unix.EPIPE) || errors.Is(err, unix.ECONNRESET) || errors.Is(err, unix.EBADF) {
		return fmt.Errorf("%s: %w: %w", op, api.ErrTransportClosed, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Pair returns two connected non-blocking stream sockets.
func Pair() (*Conn, *Conn, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("socketpair: %w", err)
	}
	return &Conn{fd: fds[0]}, &Conn{fd: fds[1]}, nil
}

var _ api.NetConn = (*Conn)(nil)
