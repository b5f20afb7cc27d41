// File: pool/freelist.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bounded free list owned by a single allocation context.

package pool

// ObjectPool is a generic object pool.
type ObjectPool[T any] interface {
	Get() (T, bool)
	Put(T) bool
}

// FreeList is a bounded LIFO of released objects.
//
// A FreeList belongs to exactly one allocation context and is not
// synchronized; the owner serializes access. Objects must be cleared by the
// releasing side before Put.
type FreeList[T any] struct {
	items []T
	limit int
	stats Stats
}

// NewFreeList creates a free list holding at most limit idle objects.
// A non-positive limit means unbounded.
func NewFreeList[T any](limit int) *FreeList[T] {
	return &FreeList[T]{limit: limit}
}

// Get pops the most recently released object. ok is false when the list is
// empty and the caller must allocate.
func (f *FreeList[T]) Get() (obj T, ok bool) {
	f.stats.Acquired++
	n := len(f.items)
	if n == 0 {
		f.stats.Allocated++
		return obj, false
	}
	obj = f.items[n-1]
	var zero T
	f.items[n-1] = zero
	f.items = f.items[:n-1]
	return obj, true
}

// Put returns obj to the list. It reports false when the list is full and
// the object was dropped for the garbage collector.
func (f *FreeList[T]) Put(obj T) bool {
	f.stats.Released++
	if f.limit > 0 && len(f.items) >= f.limit {
		f.stats.Dropped++
		return false
	}
	f.items = append(f.items, obj)
	return true
}

// Len returns the number of idle objects.
func (f *FreeList[T]) Len() int { return len(f.items) }

// Stats returns a snapshot of the list counters.
func (f *FreeList[T]) Stats() Stats {
	s := f.stats
	s.Free = int64(len(f.items))
	return s
}

var _ ObjectPool[int] = (*FreeList[int])(nil)
