// File: pool/stats.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

// Stats aggregates allocation and reuse counters of one free list.
type Stats struct {
	Acquired  int64 // Get calls
	Allocated int64 // Get calls that missed and required a fresh allocation
	Released  int64 // Put calls
	Dropped   int64 // Put calls rejected because the list was full
	Free      int64 // idle objects at snapshot time
}

// InUse estimates the number of objects handed out and not yet returned.
func (s Stats) InUse() int64 {
	return s.Acquired - s.Released
}

// Add merges other into s.
func (s Stats) Add(other Stats) Stats {
	return Stats{
		Acquired:  s.Acquired + other.Acquired,
		Allocated: s.Allocated + other.Allocated,
		Released:  s.Released + other.Released,
		Dropped:   s.Dropped + other.Dropped,
		Free:      s.Free + other.Free,
	}
}
