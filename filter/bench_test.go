// File: filter/bench_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package filter_test

import (
	"encoding/binary"
	"testing"

	"github.com/momentics/hioload-frame/buffer"
	"github.com/momentics/hioload-frame/fake"
	"github.com/momentics/hioload-frame/filter"
)

// benchStream holds n length-prefixed frames of size bytes each.
func benchStream(n, size int) []byte {
	frame := make([]byte, 4+size)
	binary.BigEndian.PutUint32(frame, uint32(size))
	out := make([]byte, 0, n*len(frame))
	for i := 0; i < n; i++ {
		out = append(out, frame...)
	}
	return out
}

// BenchmarkLengthPrefixArrive measures framing throughput on 16K reads
// split into 4K segments.
func BenchmarkLengthPrefixArrive(b *testing.B) {
	stream := benchStream(64, 252)
	alloc := buffer.NewAllocator(4096, 64, 64)
	st := filter.NewChain(filter.NewLengthPrefix(4, 0)).NewState()
	s := fake.NewSession(alloc, st)
	deliver := func(m any) error {
		filter.Discard(m)
		return nil
	}

	b.SetBytes(int64(len(stream)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		in := alloc.NewBuffer()
		in.WriteBytes(stream)
		if err := st.Arrive(s, in, deliver); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkLengthPrefixDepart measures header prepending on departure.
func BenchmarkLengthPrefixDepart(b *testing.B) {
	payload := make([]byte, 1024)
	alloc := buffer.NewAllocator(4096, 64, 64)
	st := filter.NewChain(filter.NewLengthPrefix(4, 0)).NewState()
	s := fake.NewSession(alloc, st)

	b.SetBytes(int64(len(payload)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		msg := alloc.NewBuffer()
		msg.WriteBytes(payload)
		out, err := st.Depart(s, msg)
		if err != nil {
			b.Fatal(err)
		}
		out.Release()
	}
}

// BenchmarkDelimiterArrive measures the pattern search across segment
// boundaries.
func BenchmarkDelimiterArrive(b *testing.B) {
	line := append(make([]byte, 125), '\r', '\n')
	for i := range line[:125] {
		line[i] = 'a' + byte(i%26)
	}
	var stream []byte
	for i := 0; i < 128; i++ {
		stream = append(stream, line...)
	}
	alloc := buffer.NewAllocator(1000, 64, 64)
	st := filter.NewChain(filter.NewLineDelimiter(0)).NewState()
	s := fake.NewSession(alloc, st)
	deliver := func(m any) error {
		filter.Discard(m)
		return nil
	}

	b.SetBytes(int64(len(stream)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		in := alloc.NewBuffer()
		in.WriteBytes(stream)
		if err := st.Arrive(s, in, deliver); err != nil {
			b.Fatal(err)
		}
	}
}
