// File: buffer/allocator.go
// Package buffer
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Allocator is the allocation context for Segments and Buffer shells of one
// configured unit capacity.

package buffer

import (
	"sync"

	"github.com/momentics/hioload-frame/pool"
)

// DefaultCapacity is the segment unit capacity used when none is configured.
const DefaultCapacity = 4096

// Allocator owns the free lists of one allocation context.
//
// Contexts are meant to be local to a worker or a connection group. The
// lock only makes a release from a foreign goroutine legal; a released
// object lands in the context it is bound to, not the one it came from.
type Allocator struct {
	mu       sync.Mutex
	capacity int
	segments *pool.FreeList[*Segment]
	buffers  *pool.FreeList[*Buffer]

	liveSegments int
	liveBuffers  int
}

// NewAllocator creates an allocation context. Non-positive limits make the
// corresponding free list unbounded.
func NewAllocator(capacity, maxFreeSegments, maxFreeBuffers int) *Allocator {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Allocator{
		capacity: capacity,
		segments: pool.NewFreeList[*Segment](maxFreeSegments),
		buffers:  pool.NewFreeList[*Buffer](maxFreeBuffers),
	}
}

// Capacity returns the unit capacity of every Segment of this context.
func (a *Allocator) Capacity() int { return a.capacity }

// NewSegment returns a cleared, detached Segment.
func (a *Allocator) NewSegment() *Segment {
	a.mu.Lock()
	s, ok := a.segments.Get()
	a.liveSegments++
	a.mu.Unlock()
	if !ok {
		s = newSegment(a.capacity)
	}
	return s
}

// NewHeadSegment returns a Segment whose whole capacity is head room.
func (a *Allocator) NewHeadSegment() *Segment {
	s := a.NewSegment()
	s.start = len(s.data)
	return s
}

// ReleaseSegment clears s and returns it to the free list. s must be detached.
func (a *Allocator) ReleaseSegment(s *Segment) {
	s.Clear()
	s.prev, s.next = s, s
	a.mu.Lock()
	a.liveSegments--
	if len(s.data) == a.capacity {
		a.segments.Put(s)
	}
	a.mu.Unlock()
}

// NewBuffer returns an empty Buffer holding exactly one Segment.
func (a *Allocator) NewBuffer() *Buffer {
	a.mu.Lock()
	b, ok := a.buffers.Get()
	a.liveBuffers++
	a.mu.Unlock()
	if !ok {
		b = &Buffer{}
	}
	h := b.spare
	b.spare = nil
	if h == nil {
		h = a.NewSegment()
	} else {
		a.mu.Lock()
		a.liveSegments++
		a.mu.Unlock()
	}
	b.alloc = a
	b.head, b.posSeg, b.markSeg = h, h, h
	return b
}

// putBuffer recycles a shell that still holds one cleared Segment.
func (a *Allocator) putBuffer(b *Buffer) {
	if b.spare != nil && len(b.spare.data) != a.capacity {
		b.spare = nil
	}
	a.mu.Lock()
	a.liveBuffers--
	a.liveSegments--
	a.buffers.Put(b)
	a.mu.Unlock()
}

// Outstanding returns the number of Buffers and Segments handed out by this
// context and not yet released to it.
func (a *Allocator) Outstanding() (buffers, segments int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.liveBuffers, a.liveSegments
}

// PoolStats implements pool.Source.
func (a *Allocator) PoolStats() map[string]pool.Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return map[string]pool.Stats{
		"segment": a.segments.Stats(),
		"buffer":  a.buffers.Stats(),
	}
}

var _ pool.Source = (*Allocator)(nil)

// NewManager builds a pool.Manager of allocators with the given settings.
func NewManager(groups, capacity, maxFreeSegments, maxFreeBuffers int) *pool.Manager[*Allocator] {
	return pool.NewManager(groups, func(int) *Allocator {
		return NewAllocator(capacity, maxFreeSegments, maxFreeBuffers)
	})
}
