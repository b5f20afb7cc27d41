// File: server/server.go
// Package server accepts TCP connections and runs each one as a framed
// channel on the reactor.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-frame/buffer"
	"github.com/momentics/hioload-frame/channel"
	"github.com/momentics/hioload-frame/control"
	"github.com/momentics/hioload-frame/filter"
	"github.com/momentics/hioload-frame/internal/concurrency"
	"github.com/momentics/hioload-frame/pool"
	"github.com/momentics/hioload-frame/reactor"
	"github.com/momentics/hioload-frame/transport"
)

var ErrAlreadyRunning = errors.New("server already running")

// ChainFactory builds the filter chain of a new channel.
type ChainFactory func() *filter.Chain

// Server owns the listener, reactor, executor and allocators.
type Server struct {
	cfg      *Config
	newChain ChainFactory
	handler  channel.Handler
	logger   *slog.Logger
	metrics  *control.Metrics
	probes   *control.DebugProbes

	exec     *concurrency.Executor
	reactor  *reactor.Reactor
	allocs   *pool.Manager[*buffer.Allocator]
	listener *transport.Listener

	mu       sync.Mutex
	channels map[string]*channel.Channel
	running  atomic.Bool
	closed   atomic.Bool
	conns    atomic.Int64
}

// NewServer binds the listener and builds the runtime. Channels are
// framed by chains from newChain and report to h.
func NewServer(cfg *Config, newChain ChainFactory, h channel.Handler, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cp := *cfg
	s := &Server{
		cfg:      &cp,
		newChain: newChain,
		handler:  h,
		logger:   slog.Default(),
		channels: make(map[string]*channel.Channel),
	}
	for _, o := range opts {
		o(s)
	}

	s.exec = concurrency.NewExecutor(s.cfg.Workers, s.cfg.QueueSize, s.logger)
	r, err := reactor.New(s.exec,
		reactor.WithLogger(s.logger),
		reactor.WithMaxEvents(s.cfg.MaxEvents),
		reactor.WithPollTimeout(s.cfg.PollTimeout))
	if err != nil {
		s.exec.Close()
		return nil, fmt.Errorf("reactor: %w", err)
	}
	s.reactor = r
	s.allocs = buffer.NewManager(s.cfg.Groups, s.cfg.SegmentCapacity, s.cfg.MaxFreeSegments, s.cfg.MaxFreeBuffers)

	l, err := transport.Listen(s.cfg.ListenAddr)
	if err != nil {
		r.Close()
		s.exec.Close()
		return nil, err
	}
	s.listener = l
	if s.probes != nil {
		s.registerProbes(s.probes)
	}
	return s, nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() *net.TCPAddr { return s.listener.Addr() }

// Allocators exposes the allocator groups, e.g. for a pool.Collector.
func (s *Server) Allocators() *pool.Manager[*buffer.Allocator] { return s.allocs }

// Run accepts connections and drives the reactor until ctx is done or
// Close is called.
func (s *Server) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	if err := s.reactor.Register(s.listener.FD(), reactor.HandlerFunc(s.acceptAll), reactor.Read); err != nil {
		return err
	}
	s.logger.Info("server listening", "addr", s.Addr().String(), "workers", s.exec.NumWorkers())
	err := s.reactor.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

func (s *Server) acceptAll() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.closed.Load() {
				s.logger.Warn("accept failed", "error", err)
			}
			return
		}
		if conn == nil {
			return
		}
		ch := s.serve(conn, s.newChain(), s.handler)
		if s.start(ch, reactor.Read) == nil {
			ch.Open()
		}
	}
}

// serve starts a channel over an accepted or dialed connection.
func (s *Server) serve(conn *transport.Conn, chain *filter.Chain, h channel.Handler) *channel.Channel {
	n := s.conns.Add(1)
	fd := int(conn.FD())
	ch := channel.New(conn, chain, tracked{s: s, h: h},
		channel.WithAllocator(s.allocs.Pick(uint64(n))),
		channel.WithNotifier(s.reactor.Notifier(fd)),
		channel.WithLogger(s.logger),
		channel.WithMetrics(s.metrics),
		channel.WithReadSize(s.cfg.ReadSize),
		channel.WithMaxReads(s.cfg.MaxReads))
	s.mu.Lock()
	s.channels[ch.ID()] = ch
	s.mu.Unlock()
	return ch
}

func (s *Server) start(ch *channel.Channel, interest reactor.Interest) error {
	if err := s.reactor.Register(int(ch.Conn().FD()), ch, interest); err != nil {
		_ = ch.Close()
		return err
	}
	return nil
}

// Dial connects to addr and runs the connection as a channel on this
// server's reactor. Handler.OnOpen fires once the connect completes.
func (s *Server) Dial(addr string, newChain ChainFactory, h channel.Handler) (*channel.Channel, error) {
	conn, inProgress, err := transport.Dial(addr)
	if err != nil {
		return nil, err
	}
	if newChain == nil {
		newChain = s.newChain
	}
	if h == nil {
		h = s.handler
	}
	ch := s.serve(conn, newChain(), h)
	if inProgress {
		return ch, s.start(ch, reactor.Connect)
	}
	if err := s.start(ch, reactor.Read); err != nil {
		return ch, err
	}
	ch.Open()
	return ch, nil
}

// ResizeWorkers changes the executor worker count at runtime.
func (s *Server) ResizeWorkers(n int) error {
	return s.exec.Resize(n)
}

// Channels returns the number of open channels.
func (s *Server) Channels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.channels)
}

// Stats returns a snapshot of server counters.
func (s *Server) Stats() map[string]any {
	return map[string]any{
		"connections": s.conns.Load(),
		"channels":    s.Channels(),
		"registered":  s.reactor.Len(),
		"dispatched":  s.reactor.Dispatched(),
		"executor":    s.exec.Stats(),
		"pool":        s.allocs.Totals(),
	}
}

func (s *Server) registerProbes(dp *control.DebugProbes) {
	dp.RegisterProbe("server.stats", func() any { return s.Stats() })
	dp.RegisterProbe("server.channels", func() any {
		s.mu.Lock()
		defer s.mu.Unlock()
		out := make(map[string]map[string]int64, len(s.channels))
		for id, ch := range s.channels {
			out[id] = ch.Stats()
		}
		return out
	})
}

// Close stops accepting, closes every channel, then stops the reactor and
// the executor.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	_ = s.reactor.Unregister(s.listener.FD())
	err := s.listener.Close()

	s.mu.Lock()
	open := make([]*channel.Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		open = append(open, ch)
	}
	s.mu.Unlock()
	for _, ch := range open {
		_ = ch.Close()
	}

	if rerr := s.reactor.Close(); err == nil {
		err = rerr
	}
	s.exec.Close()
	s.logger.Info("server closed", "connections", s.conns.Load())
	return err
}

// tracked forgets a channel once it closes.
type tracked struct {
	s *Server
	h channel.Handler
}

func (t tracked) OnOpen(c *channel.Channel) {
	if t.h != nil {
		t.h.OnOpen(c)
	}
}

func (t tracked) OnMessage(c *channel.Channel, msg any) {
	if t.h == nil {
		filter.Discard(msg)
		return
	}
	t.h.OnMessage(c, msg)
}

func (t tracked) OnClose(c *channel.Channel, cause error) {
	t.s.mu.Lock()
	delete(t.s.channels, c.ID())
	t.s.mu.Unlock()
	if t.h != nil {
		t.h.OnClose(c, cause)
	}
}
