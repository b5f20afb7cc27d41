// File: buffer/matcher.go
// Package buffer
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package buffer

// Matcher finds a fixed pattern in a byte sequence.
type Matcher interface {
	// Index returns the first match offset in data or -1.
	Index(data []byte) int
	// LastIndex returns the last match offset in data or -1.
	LastIndex(data []byte) int
	// Len returns the pattern length.
	Len() int
}

// kmp is a Knuth-Morris-Pratt matcher with tables for both directions.
type kmp struct {
	pattern  []byte
	forward  []int
	backward []int
}

// NewMatcher precomputes a linear-time matcher for pattern.
func NewMatcher(pattern []byte) Matcher {
	p := append([]byte(nil), pattern...)
	rev := make([]byte, len(p))
	for i, c := range p {
		rev[len(p)-1-i] = c
	}
	return &kmp{pattern: p, forward: failure(p), backward: failure(rev)}
}

// failure builds the longest proper prefix-suffix table.
func failure(p []byte) []int {
	f := make([]int, len(p))
	k := 0
	for i := 1; i < len(p); i++ {
		for k > 0 && p[i] != p[k] {
			k = f[k-1]
		}
		if p[i] == p[k] {
			k++
		}
		f[i] = k
	}
	return f
}

func (m *kmp) Len() int { return len(m.pattern) }

func (m *kmp) Index(data []byte) int {
	p := m.pattern
	if len(p) == 0 {
		return 0
	}
	k := 0
	for i, c := range data {
		for k > 0 && c != p[k] {
			k = m.forward[k-1]
		}
		if c == p[k] {
			k++
		}
		if k == len(p) {
			return i - len(p) + 1
		}
	}
	return -1
}

func (m *kmp) LastIndex(data []byte) int {
	p := m.pattern
	n := len(p)
	if n == 0 {
		return len(data)
	}
	k := 0
	for i := len(data) - 1; i >= 0; i-- {
		c := data[i]
		for k > 0 && c != p[n-1-k] {
			k = m.backward[k-1]
		}
		if c == p[n-1-k] {
			k++
		}
		if k == n {
			return i
		}
	}
	return -1
}
