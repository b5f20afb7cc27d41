// File: server/options.go
// Package server defines functional options for the Server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log/slog"

	"github.com/momentics/hioload-frame/control"
)

// ServerOption customizes server initialization.
type ServerOption func(*Server)

// WithLogger sets the logger handed to every component.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the channel metrics sink.
func WithMetrics(m *control.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithProbes registers server probes on dp.
func WithProbes(dp *control.DebugProbes) ServerOption {
	return func(s *Server) {
		s.probes = dp
	}
}

// WithExecutorWorkers sets the number of background worker goroutines.
func WithExecutorWorkers(n int) ServerOption {
	return func(s *Server) {
		s.cfg.Workers = n
	}
}
