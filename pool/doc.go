// Package pool
// Author: momentics <momentics@gmail.com>
//
// Object reuse for the buffer layer. A FreeList is owned by one allocation
// context and needs no locking; a Manager hands out one context per worker
// or connection group and aggregates their counters. Collector exports those
// counters to Prometheus.
package pool
