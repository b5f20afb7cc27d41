// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Concurrency primitives for hioload-frame: a bounded lock-free MPMC queue
// and the work-stealing executor that runs reactor tasks.
package concurrency
