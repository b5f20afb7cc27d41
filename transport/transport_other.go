//go:build !linux
// +build !linux

// File: transport/transport_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"net"

	"github.com/momentics/hioload-frame/api"
)

// Conn is unavailable on this platform.
type Conn struct{}

func (*Conn) ReadBuffers([][]byte) (int, error)  { return 0, api.ErrNotSupported }
func (*Conn) WriteBuffers([][]byte) (int, error) { return 0, api.ErrNotSupported }
func (*Conn) Close() error                       { return nil }
func (*Conn) FD() uintptr                        { return ^uintptr(0) }
func (*Conn) CloseWrite() error                  { return api.ErrNotSupported }

// Listener is unavailable on this platform.
type Listener struct{}

func (*Listener) Accept() (*Conn, error) { return nil, api.ErrNotSupported }
func (*Listener) Addr() *net.TCPAddr     { return &net.TCPAddr{} }
func (*Listener) FD() int                { return -1 }
func (*Listener) Close() error           { return nil }

// NewConn returns api.ErrNotSupported.
func NewConn(int) (*Conn, error) { return nil, api.ErrNotSupported }

// Listen returns api.ErrNotSupported.
func Listen(string) (*Listener, error) { return nil, api.ErrNotSupported }

// Dial returns api.ErrNotSupported.
func Dial(string) (*Conn, bool, error) { return nil, false, api.ErrNotSupported }

// Pair returns api.ErrNotSupported.
func Pair() (*Conn, *Conn, error) { return nil, nil, api.ErrNotSupported }

var _ api.NetConn = (*Conn)(nil)
