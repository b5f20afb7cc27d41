//go:build !linux
// +build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import (
	"context"
	"errors"

	"github.com/momentics/hioload-frame/api"
)

// ErrClosed is returned by operations on a closed reactor.
var ErrClosed = errors.New("reactor closed")

// Reactor is unavailable on this platform.
type Reactor struct{}

// New returns api.ErrNotSupported.
func New(api.Executor, ...Option) (*Reactor, error) {
	return nil, api.ErrNotSupported
}

func (*Reactor) Register(int, Handler, Interest) error { return api.ErrNotSupported }
func (*Reactor) ArmWrite(int) error                     { return api.ErrNotSupported }
func (*Reactor) Unregister(int) error                   { return api.ErrNotSupported }
func (*Reactor) Len() int                               { return 0 }
func (*Reactor) Dispatched() int64                      { return 0 }
func (*Reactor) Run(context.Context) error              { return api.ErrNotSupported }
func (*Reactor) Close() error                           { return nil }
