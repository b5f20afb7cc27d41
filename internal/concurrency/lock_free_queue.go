// File: internal/concurrency/lock_free_queue.go
// Package concurrency provides a lock-free queue for executors.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bounded multi-producer/multi-consumer ring. Each cell carries a sequence
// number telling producers and consumers whose turn it is, so Submit from
// any goroutine and stealing by any worker need no lock.

package concurrency

import "sync/atomic"

type cell[T any] struct {
	seq atomic.Uint64
	val T
}

// lockFreeQueue is a bounded MPMC ring buffer.
type lockFreeQueue[T any] struct {
	mask  uint64
	cells []cell[T]
	_     [56]byte
	head  atomic.Uint64
	_     [56]byte
	tail  atomic.Uint64
}

// NewLockFreeQueue creates a new queue with capacity rounded to power of two.
func NewLockFreeQueue[T any](capacity int) *lockFreeQueue[T] {
	size := 2
	for size < capacity {
		size <<= 1
	}
	q := &lockFreeQueue[T]{mask: uint64(size - 1), cells: make([]cell[T], size)}
	for i := range q.cells {
		q.cells[i].seq.Store(uint64(i))
	}
	return q
}

// Enqueue adds val; returns false if full.
func (q *lockFreeQueue[T]) Enqueue(val T) bool {
	for {
		pos := q.tail.Load()
		c := &q.cells[pos&q.mask]
		seq := c.seq.Load()
		switch diff := int64(seq) - int64(pos); {
		case diff == 0:
			if q.tail.CompareAndSwap(pos, pos+1) {
				c.val = val
				c.seq.Store(pos + 1)
				return true
			}
		case diff < 0:
			return false
		}
	}
}

// Dequeue removes and returns an item; ok false if empty.
func (q *lockFreeQueue[T]) Dequeue() (item T, ok bool) {
	for {
		pos := q.head.Load()
		c := &q.cells[pos&q.mask]
		seq := c.seq.Load()
		switch diff := int64(seq) - int64(pos+1); {
		case diff == 0:
			if q.head.CompareAndSwap(pos, pos+1) {
				item = c.val
				var zero T
				c.val = zero
				c.seq.Store(pos + q.mask + 1)
				return item, true
			}
		case diff < 0:
			return item, false
		}
	}
}

// Len returns an approximate number of queued items.
func (q *lockFreeQueue[T]) Len() int {
	n := int64(q.tail.Load()) - int64(q.head.Load())
	if n < 0 {
		return 0
	}
	return int(n)
}
