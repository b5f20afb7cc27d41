// Package buffer implements pooled, segmented byte buffers.
//
// A Buffer is a circular chain of fixed-capacity Segments obtained from an
// Allocator. Bytes are appended at the tail, prepended into head room,
// split off at any offset and drained into another Buffer by relinking
// Segments instead of copying them. The framing pipeline in package filter
// is built on these operations.
package buffer
