// File: channel/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package channel

import (
	"log/slog"

	"github.com/momentics/hioload-frame/buffer"
	"github.com/momentics/hioload-frame/control"
)

const (
	// DefaultReadSize is the write room requested for each socket read.
	DefaultReadSize = 16 * 1024
	// DefaultMaxReads bounds the reads performed per readable event.
	DefaultMaxReads = 16
)

// Option customizes a Channel.
type Option func(*Channel)

// WithAllocator sets the allocator inbound Buffers come from.
func WithAllocator(a *buffer.Allocator) Option {
	return func(c *Channel) {
		if a != nil {
			c.alloc = a
		}
	}
}

// WithNotifier sets who is asked for writable notifications after a
// partial write.
func WithNotifier(n Notifier) Option {
	return func(c *Channel) { c.notifier = n }
}

// WithLogger sets the base logger; the channel adds its id.
func WithLogger(l *slog.Logger) Option {
	return func(c *Channel) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics sink. nil disables metrics.
func WithMetrics(m *control.Metrics) Option {
	return func(c *Channel) { c.metrics = m }
}

// WithReadSize sets the bytes requested per read.
func WithReadSize(n int) Option {
	return func(c *Channel) {
		if n > 0 {
			c.readSize = n
		}
	}
}

// WithMaxReads bounds the reads per readable event.
func WithMaxReads(n int) Option {
	return func(c *Channel) {
		if n > 0 {
			c.maxReads = n
		}
	}
}
