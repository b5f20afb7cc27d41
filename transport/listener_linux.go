//go:build linux
// +build linux

// File: transport/listener_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-blocking TCP listener and dialer.

package transport

import (
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-frame/api"
)

const listenBacklog = 1024

// Listener is a non-blocking listening socket.
type Listener struct {
	fd     int
	addr   *net.TCPAddr
	closed atomic.Bool
}

// Listen binds addr ("host:port"; port 0 picks a free one).
func Listen(addr string) (*Listener, error) {
	sa, family, err := sockaddr(addr)
	if err != nil {
		return nil, err
	}
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	bound, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("getsockname: %w", err)
	}
	return &Listener{fd: fd, addr: tcpAddr(bound)}, nil
}

// Accept returns the next pending connection, or nil when none is ready.
func (l *Listener) Accept() (*Conn, error) {
	if l.closed.Load() {
		return nil, api.ErrTransportClosed
	}
	for {
		nfd, _, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		switch {
		case err == nil:
			_ = unix.SetsockoptInt(nfd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
			return &Conn{fd: nfd}, nil
		case errors.Is(err, unix.EINTR), errors.Is(err, unix.ECONNABORTED):
			continue
		case errors.Is(err, unix.EAGAIN):
			return nil, nil
		default:
			return nil, fmt.Errorf("accept: %w", err)
		}
	}
}

// Addr returns the bound address.
func (l *Listener) Addr() *net.TCPAddr { return l.addr }

// FD returns the listening descriptor.
func (l *Listener) FD() int { return l.fd }

// Close closes the listening socket. It is idempotent.
func (l *Listener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	return unix.Close(l.fd)
}

// Dial starts a non-blocking connect to addr. When inProgress is true the
// caller registers the Conn for Connect interest and waits for completion.
func Dial(addr string) (c *Conn, inProgress bool, err error) {
	sa, family, err := sockaddr(addr)
	if err != nil {
		return nil, false, err
	}
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, false, fmt.Errorf("socket: %w", err)
	}
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	err = unix.Connect(fd, sa)
	switch {
	case err == nil:
		return &Conn{fd: fd}, false, nil
	case errors.Is(err, unix.EINPROGRESS):
		return &Conn{fd: fd}, true, nil
	default:
		unix.Close(fd)
		return nil, false, fmt.Errorf("connect %s: %w", addr, err)
	}
}

func sockaddr(addr string) (unix.Sockaddr, int, error) {
	ta, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, 0, fmt.Errorf("resolve %s: %w", addr, err)
	}
	if ip4 := ta.IP.To4(); ip4 != nil || ta.IP == nil {
		sa := &unix.SockaddrInet4{Port: ta.Port}
		if ip4 != nil {
			copy(sa.Addr[:], ip4)
		}
		return sa, unix.AF_INET, nil
	}
	sa := &unix.SockaddrInet6{Port: ta.Port}
	copy(sa.Addr[:], ta.IP.To16())
	return sa, unix.AF_INET6, nil
}

func tcpAddr(sa unix.Sockaddr) *net.TCPAddr {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(append([]byte(nil), v.Addr[:]...)), Port: v.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(append([]byte(nil), v.Addr[:]...)), Port: v.Port}
	}
	return &net.TCPAddr{}
}
