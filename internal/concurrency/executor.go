// File: internal/concurrency/executor.go
// Package concurrency implements a task executor with work-stealing.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor dispatches tasks across worker goroutines, using lock-free local
// queues and a global queue fallback. Idle workers park on a wake channel
// instead of polling.

package concurrency

import (
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-frame/api"
)

const localQueueSize = 1024

// TaskFunc is a unit of work to execute.
type TaskFunc = func()

// Executor manages a pool of worker goroutines.
type Executor struct {
	mu          sync.RWMutex // Submit holds it shared; Resize and Close exclusively
	workers     []*worker
	globalQueue chan TaskFunc // overflow when the chosen local queue is full
	closed      bool
	wg          sync.WaitGroup
	logger      *slog.Logger

	next           atomic.Uint64
	totalTasks     atomic.Int64
	completedTasks atomic.Int64
	panics         atomic.Int64
	stolen         atomic.Int64
}

// NewExecutor starts numWorkers workers; numWorkers <= 0 means
// runtime.NumCPU(). queueSize bounds the global overflow queue.
func NewExecutor(numWorkers, queueSize int, logger *slog.Logger) *Executor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = numWorkers * 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Executor{
		globalQueue: make(chan TaskFunc, queueSize),
		logger:      logger,
	}
	e.mu.Lock()
	for i := 0; i < numWorkers; i++ {
		e.startWorker(i)
	}
	e.mu.Unlock()
	return e
}

// startWorker runs with mu held.
func (e *Executor) startWorker(id int) {
	w := &worker{
		id:         id,
		executor:   e,
		localQueue: NewLockFreeQueue[TaskFunc](localQueueSize),
		wake:       make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
	}
	e.workers = append(e.workers, w)
	e.wg.Add(1)
	go w.run()
}

// Submit enqueues a task. It returns api.ErrExecutorClosed after Close and
// api.ErrResourceExhausted when every queue is full.
func (e *Executor) Submit(task TaskFunc) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return api.ErrExecutorClosed
	}
	e.totalTasks.Add(1)
	n := uint64(len(e.workers))
	w := e.workers[e.next.Add(1)%n]
	if w.localQueue.Enqueue(task) {
		w.notify()
		return nil
	}
	select {
	case e.globalQueue <- task:
		// Any idle worker will do.
		for _, o := range e.workers {
			if o.notify() {
				break
			}
		}
		return nil
	default:
		e.totalTasks.Add(-1)
		return fmt.Errorf("executor queues full: %w", api.ErrResourceExhausted)
	}
}

// NumWorkers returns the current number of active workers.
func (e *Executor) NumWorkers() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.workers)
}

// Resize grows or shrinks the pool. Removed workers finish their local
// queue before exiting.
func (e *Executor) Resize(n int) error {
	if n <= 0 {
		return fmt.Errorf("resize to %d workers: %w", n, api.ErrInvalidArgument)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return api.ErrExecutorClosed
	}
	for len(e.workers) < n {
		e.startWorker(len(e.workers))
	}
	for len(e.workers) > n {
		last := e.workers[len(e.workers)-1]
		e.workers = e.workers[:len(e.workers)-1]
		close(last.stopCh)
	}
	return nil
}

// Close stops accepting tasks, lets workers drain every queue and waits
// for them to exit.
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	for _, w := range e.workers {
		close(w.stopCh)
	}
	e.mu.Unlock()
	e.wg.Wait()
}

// Stats returns basic executor metrics.
func (e *Executor) Stats() map[string]int64 {
	total, done := e.totalTasks.Load(), e.completedTasks.Load()
	return map[string]int64{
		"total_tasks":     total,
		"completed_tasks": done,
		"pending_tasks":   total - done,
		"panics":          e.panics.Load(),
		"stolen_tasks":    e.stolen.Load(),
		"num_workers":     int64(e.NumWorkers()),
	}
}

// steal takes a task from another worker's local queue.
func (e *Executor) steal(self *worker) (TaskFunc, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, w := range e.workers {
		if w == self {
			continue
		}
		if task, ok := w.localQueue.Dequeue(); ok {
			e.stolen.Add(1)
			return task, true
		}
	}
	return nil, false
}

// worker represents a single executor goroutine.
type worker struct {
	id         int
	executor   *Executor
	localQueue *lockFreeQueue[TaskFunc]
	wake       chan struct{}
	stopCh     chan struct{}
}

// notify wakes the worker if it is parked; false means a wake-up was
// already pending.
func (w *worker) notify() bool {
	select {
	case w.wake <- struct{}{}:
		return true
	default:
		return false
	}
}

func (w *worker) run() {
	defer w.executor.wg.Done()
	for {
		if task, ok := w.localQueue.Dequeue(); ok {
			w.executeTask(task)
			continue
		}
		select {
		case task := <-w.executor.globalQueue:
			w.executeTask(task)
			continue
		default:
		}
		if task, ok := w.executor.steal(w); ok {
			w.executeTask(task)
			continue
		}
		select {
		case task := <-w.executor.globalQueue:
			w.executeTask(task)
		case <-w.wake:
		case <-w.stopCh:
			w.drain()
			return
		}
	}
}

// drain runs what is left in the local queue and, once the executor is
// closed, in the global queue.
func (w *worker) drain() {
	for {
		if task, ok := w.localQueue.Dequeue(); ok {
			w.executeTask(task)
			continue
		}
		w.executor.mu.RLock()
		closed := w.executor.closed
		w.executor.mu.RUnlock()
		if !closed {
			return
		}
		select {
		case task := <-w.executor.globalQueue:
			w.executeTask(task)
		default:
			return
		}
	}
}

// executeTask runs the task and updates statistics, recovering from panics.
func (w *worker) executeTask(task TaskFunc) {
	defer func() {
		if r := recover(); r != nil {
			w.executor.panics.Add(1)
			w.executor.logger.Error("task panicked", "worker", w.id, "panic", r, "stack", string(debug.Stack()))
		}
		w.executor.completedTasks.Add(1)
	}()
	task()
}

var _ api.Executor = (*Executor)(nil)
