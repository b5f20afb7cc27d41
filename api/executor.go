// Package api
// Author: momentics
//
// Executor contract for parallel task dispatch from the reactor.

package api

// Executor abstracts the bounded worker pool that runs read and write tasks.
type Executor interface {
	// Submit schedules task for execution.
	Submit(task func()) error

	// NumWorkers returns current number of active worker routines.
	NumWorkers() int
}
