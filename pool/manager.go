// File: pool/manager.go
// Author: momentics <momentics@gmail.com>
//
// Manager hands out one allocation context per key. A key is a worker index
// or a connection group; contexts are created lazily and never shared between
// keys, so pool pressure stays local to the key that produced it.

package pool

import (
	"sort"
	"sync"
)

// Source is an allocation context able to report its free list counters,
// keyed by object kind ("segment", "buffer", ...).
type Source interface {
	PoolStats() map[string]Stats
}

// Manager provides per-key allocation contexts.
type Manager[T Source] struct {
	mu       sync.RWMutex
	contexts map[int]T
	factory  func(key int) T
	groups   int
}

// NewManager creates a manager. groups bounds the key space used by Pick;
// a non-positive value means a single group.
func NewManager[T Source](groups int, factory func(key int) T) *Manager[T] {
	if groups <= 0 {
		groups = 1
	}
	return &Manager[T]{
		contexts: make(map[int]T),
		factory:  factory,
		groups:   groups,
	}
}

// Get obtains or creates the context for key.
func (m *Manager[T]) Get(key int) T {
	m.mu.RLock()
	ctx, ok := m.contexts[key]
	m.mu.RUnlock()
	if ok {
		return ctx
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if ctx, ok := m.contexts[key]; ok {
		return ctx
	}
	ctx = m.factory(key)
	m.contexts[key] = ctx
	return ctx
}

// Pick maps an arbitrary id (for example a file descriptor) onto one of the
// configured groups and returns that group's context.
func (m *Manager[T]) Pick(id uint64) T {
	return m.Get(int(id % uint64(m.groups)))
}

// Groups returns the configured number of groups.
func (m *Manager[T]) Groups() int { return m.groups }

// Len returns the number of live contexts.
func (m *Manager[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.contexts)
}

// Snapshot returns the counters of every context, keyed by context key.
func (m *Manager[T]) Snapshot() map[int]map[string]Stats {
	m.mu.RLock()
	keys := make([]int, 0, len(m.contexts))
	for k := range m.contexts {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	sort.Ints(keys)

	out := make(map[int]map[string]Stats, len(keys))
	for _, k := range keys {
		out[k] = m.Get(k).PoolStats()
	}
	return out
}

// Totals sums the counters of every context per object kind.
func (m *Manager[T]) Totals() map[string]Stats {
	out := make(map[string]Stats)
	for _, kinds := range m.Snapshot() {
		for kind, s := range kinds {
			out[kind] = out[kind].Add(s)
		}
	}
	return out
}
