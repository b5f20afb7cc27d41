// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral reactor contracts: interest flags, the channel-side
// handler and construction options.

package reactor

import (
	"log/slog"
	"time"
)

// Interest selects the readiness a descriptor is watched for.
type Interest uint8

const (
	// Read watches for inbound data, peer shutdown and errors.
	Read Interest = 1 << iota
	// Write watches for room in the send buffer.
	Write
	// Connect watches for completion of a non-blocking connect.
	Connect
)

// Handler is driven by readiness events. The reactor never runs two calls
// for the same descriptor at once.
type Handler interface {
	OnReadable()
	OnWritable()
	OnConnectable(err error)
}

// HandlerFunc adapts a read-only callback, such as a listener accepting
// connections, to Handler.
type HandlerFunc func()

func (f HandlerFunc) OnReadable()           { f() }
func (HandlerFunc) OnWritable()             {}
func (HandlerFunc) OnConnectable(err error) {}

const (
	// DefaultMaxEvents bounds events fetched per wait.
	DefaultMaxEvents = 256
	// DefaultPollTimeout bounds how long a wait blocks before the loop
	// rechecks for shutdown.
	DefaultPollTimeout = 100 * time.Millisecond
)

type options struct {
	logger      *slog.Logger
	maxEvents   int
	pollTimeout time.Duration
}

// Option customizes a Reactor.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxEvents sets the events fetched per wait.
func WithMaxEvents(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEvents = n
		}
	}
}

// WithPollTimeout sets the wait timeout.
func WithPollTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollTimeout = d
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:      slog.Default(),
		maxEvents:   DefaultMaxEvents,
		pollTimeout: DefaultPollTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Notifier arms write interest for one descriptor and forgets it on
// Detach. It satisfies channel.Notifier and channel.Detacher.
type Notifier struct {
	r  *Reactor
	fd int
}

// ArmWrite requests one writable notification.
func (n Notifier) ArmWrite() error { return n.r.ArmWrite(n.fd) }

// Detach unregisters the descriptor.
func (n Notifier) Detach() { _ = n.r.Unregister(n.fd) }

// Notifier returns the write notifier for fd.
func (r *Reactor) Notifier(fd int) Notifier { return Notifier{r: r, fd: fd} }
