// File: server/types.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"time"

	"github.com/momentics/hioload-frame/control"
)

// Config holds all server-side configuration parameters.
type Config struct {
	ListenAddr      string        // TCP bind address, e.g. "127.0.0.1:9000"
	Workers         int           // executor workers
	QueueSize       int           // executor overflow queue
	SegmentCapacity int           // bytes per buffer segment
	MaxFreeSegments int           // idle segments kept per allocator
	MaxFreeBuffers  int           // idle buffer shells kept per allocator
	Groups          int           // independent allocators
	ReadSize        int           // bytes requested per socket read
	MaxReads        int           // reads per readable event
	MaxEvents       int           // epoll events per wait
	PollTimeout     time.Duration // epoll wait timeout
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:      "127.0.0.1:9000",
		Workers:         4,
		QueueSize:       1024,
		SegmentCapacity: 4096,
		MaxFreeSegments: 1024,
		MaxFreeBuffers:  256,
		Groups:          1,
		ReadSize:        16 * 1024,
		MaxReads:        16,
		MaxEvents:       256,
		PollTimeout:     100 * time.Millisecond,
	}
}

// ConfigFrom maps a loaded control.Config.
func ConfigFrom(c *control.Config) *Config {
	return &Config{
		ListenAddr:      c.Server.Listen,
		Workers:         c.Executor.Workers,
		QueueSize:       c.Executor.QueueSize,
		SegmentCapacity: c.Pool.SegmentCapacity,
		MaxFreeSegments: c.Pool.MaxFreeSegments,
		MaxFreeBuffers:  c.Pool.MaxFreeBuffers,
		Groups:          c.Pool.Groups,
		ReadSize:        c.Channel.ReadSize,
		MaxReads:        c.Channel.MaxReadsPerEvent,
		MaxEvents:       c.Reactor.MaxEvents,
		PollTimeout:     c.Reactor.PollTimeout,
	}
}
