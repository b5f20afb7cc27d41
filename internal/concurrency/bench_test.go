// File: internal/concurrency/bench_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"runtime"
	"sync"
	"testing"
)

// BenchmarkLockFreeQueueThroughput measures contended enqueue/dequeue.
func BenchmarkLockFreeQueueThroughput(b *testing.B) {
	q := NewLockFreeQueue[int](1024)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if !q.Enqueue(i) {
				q.Dequeue()
				q.Enqueue(i)
			}
			i++
		}
	})
}

// BenchmarkExecutorSubmit measures submission through the worker queues.
func BenchmarkExecutorSubmit(b *testing.B) {
	e := NewExecutor(4, 1024, nil)
	defer e.Close()

	var wg sync.WaitGroup
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wg.Add(1)
		for e.Submit(wg.Done) != nil {
			runtime.Gosched()
		}
	}
	wg.Wait()
}
