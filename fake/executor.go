// Package fake
// Author: momentics <momentics@gmail.com>

package fake

import (
	"sync/atomic"

	"github.com/momentics/hioload-frame/api"
)

// Executor runs every task inline on the submitting goroutine.
type Executor struct {
	submitted atomic.Int64
}

// Submit implements api.Executor.
func (e *Executor) Submit(task func()) error {
	e.submitted.Add(1)
	task()
	return nil
}

// NumWorkers implements api.Executor.
func (e *Executor) NumWorkers() int { return 1 }

// Submitted returns the number of tasks run.
func (e *Executor) Submitted() int64 { return e.submitted.Load() }

var _ api.Executor = (*Executor)(nil)
