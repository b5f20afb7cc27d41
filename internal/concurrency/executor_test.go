// File: internal/concurrency/executor_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-frame/api"
)

func TestLockFreeQueue_Bounds(t *testing.T) {
	q := NewLockFreeQueue[int](3)
	for i := 0; i < 4; i++ {
		require.True(t, q.Enqueue(i))
	}
	assert.False(t, q.Enqueue(99))
	assert.Equal(t, 4, q.Len())
	for i := 0; i < 4; i++ {
		v, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok := q.Dequeue()
	assert.False(t, ok)
}

func TestLockFreeQueue_ConcurrentProducersConsumers(t *testing.T) {
	q := NewLockFreeQueue[int](64)
	const producers, each = 4, 5000
	var sum atomic.Int64
	var got atomic.Int64
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 1; i <= each; i++ {
				for !q.Enqueue(i) {
					time.Sleep(time.Microsecond)
				}
			}
		}()
	}
	var cwg sync.WaitGroup
	for c := 0; c < 3; c++ {
		cwg.Add(1)
		go func() {
			defer cwg.Done()
			for got.Load() < producers*each {
				if v, ok := q.Dequeue(); ok {
					sum.Add(int64(v))
					got.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	cwg.Wait()
	assert.Equal(t, int64(producers*each*(each+1)/2), sum.Load())
}

func TestExecutor_RunsAllTasks(t *testing.T) {
	e := NewExecutor(4, 16, nil)
	defer e.Close()

	var ran atomic.Int64
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				for {
					err := e.Submit(func() { ran.Add(1) })
					if err == nil {
						break
					}
					if !assert.ErrorIs(t, err, api.ErrResourceExhausted) {
						return
					}
					time.Sleep(time.Microsecond)
				}
			}
		}()
	}
	wg.Wait()
	require.Eventually(t, func() bool { return ran.Load() == 4000 }, 5*time.Second, time.Millisecond)
	assert.Equal(t, 4, e.NumWorkers())
	assert.Equal(t, int64(4000), e.Stats()["completed_tasks"])
}

func TestExecutor_RecoversPanics(t *testing.T) {
	e := NewExecutor(1, 4, nil)
	defer e.Close()
	done := make(chan struct{})
	require.NoError(t, e.Submit(func() { panic("boom") }))
	require.NoError(t, e.Submit(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker died after panic")
	}
	assert.Equal(t, int64(1), e.Stats()["panics"])
}

func TestExecutor_QueuesFull(t *testing.T) {
	e := NewExecutor(1, 1, nil)
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, e.Submit(func() {
		close(started)
		<-release
	}))
	<-started

	var err error
	accepted := 0
	for i := 0; i < localQueueSize+8; i++ {
		if err = e.Submit(func() {}); err != nil {
			break
		}
		accepted++
	}
	assert.ErrorIs(t, err, api.ErrResourceExhausted)
	assert.Equal(t, localQueueSize+1, accepted)

	close(release)
	e.Close()
	assert.Equal(t, e.Stats()["total_tasks"], e.Stats()["completed_tasks"])
	assert.ErrorIs(t, e.Submit(func() {}), api.ErrExecutorClosed)
	e.Close()
}

func TestExecutor_Resize(t *testing.T) {
	e := NewExecutor(2, 8, nil)
	defer e.Close()
	require.NoError(t, e.Resize(5))
	assert.Equal(t, 5, e.NumWorkers())
	require.NoError(t, e.Resize(1))
	assert.Equal(t, 1, e.NumWorkers())
	assert.ErrorIs(t, e.Resize(0), api.ErrInvalidArgument)

	done := make(chan struct{})
	require.NoError(t, e.Submit(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("task not run after shrink")
	}
}
