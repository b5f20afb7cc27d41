// File: filter/chain_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package filter_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/momentics/hioload-frame/api"
	"github.com/momentics/hioload-frame/buffer"
	"github.com/momentics/hioload-frame/fake"
	"github.com/momentics/hioload-frame/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feed pushes every chunk as one read and collects delivered messages.
func feed(t *testing.T, st *filter.State, s filter.Session, chunks ...[]byte) ([]any, error) {
	t.Helper()
	var out []any
	deliver := func(m any) error {
		out = append(out, m)
		return nil
	}
	for _, c := range chunks {
		b := s.Allocator().NewBuffer()
		b.WriteBytes(c)
		if err := st.Arrive(s, b, deliver); err != nil {
			return out, err
		}
	}
	return out, nil
}

// texts converts Buffer messages to strings and releases them.
func texts(t *testing.T, msgs []any) []string {
	t.Helper()
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		switch v := m.(type) {
		case *buffer.Buffer:
			out = append(out, string(v.Bytes()))
			v.Release()
		case string:
			out = append(out, v)
		default:
			t.Fatalf("unexpected message %T", m)
		}
	}
	return out
}

func requireNoLeak(t *testing.T, a *buffer.Allocator) {
	t.Helper()
	bufs, segs := a.Outstanding()
	require.Zero(t, bufs, "buffers outstanding")
	require.Zero(t, segs, "segments outstanding")
}

func TestChain_ConcreteScenario(t *testing.T) {
	a := buffer.NewAllocator(8, 0, 0)
	st := filter.NewChain(filter.NewLengthPrefix(1, 0)).NewState()
	s := fake.NewSession(a, st)

	msgs, err := feed(t, st, s, []byte{0x03, 'a'})
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Equal(t, 2, st.Pending(0))
	assert.Equal(t, 4, st.PendingLength(0))

	msgs, err = feed(t, st, s, []byte{'b', 'c', 0x02, 'x', 'y'})
	require.NoError(t, err)
	assert.Equal(t, []string{"abc", "xy"}, texts(t, msgs))
	assert.Equal(t, 0, st.Pending(0))

	st.Close()
	requireNoLeak(t, a)
}

// partitions cuts stream into chunk lists: whole, byte by byte and random.
func partitions(stream []byte) [][][]byte {
	out := [][][]byte{{stream}}
	single := make([][]byte, len(stream))
	for i := range stream {
		single[i] = stream[i : i+1]
	}
	out = append(out, single)
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 20; round++ {
		var chunks [][]byte
		for rest := stream; len(rest) > 0; {
			n := 1 + rng.Intn(min(len(rest), 13))
			chunks = append(chunks, rest[:n])
			rest = rest[n:]
		}
		out = append(out, chunks)
	}
	return out
}

func TestChain_ChunkingInvariance(t *testing.T) {
	var want []string
	var stream []byte
	for i := 0; i < 12; i++ {
		p := fmt.Sprintf("frame-%d-%s", i, string(make([]byte, i*3)))
		want = append(want, p)
		stream = append(stream, byte(len(p)>>8), byte(len(p)))
		stream = append(stream, p...)
	}
	for _, c := range []int{1, 3, 8, 64} {
		for i, chunks := range partitions(stream) {
			t.Run(fmt.Sprintf("cap%d/part%d", c, i), func(t *testing.T) {
				a := buffer.NewAllocator(c, 0, 0)
				st := filter.NewChain(filter.NewLengthPrefix(2, 0)).NewState()
				s := fake.NewSession(a, st)
				msgs, err := feed(t, st, s, chunks...)
				require.NoError(t, err)
				require.Equal(t, want, texts(t, msgs))
				st.Close()
				requireNoLeak(t, a)
			})
		}
	}
}

func TestChain_FatalBoundaryReleases(t *testing.T) {
	a := buffer.NewAllocator(4, 0, 0)
	st := filter.NewChain(filter.NewLengthPrefix(1, 3)).NewState()
	s := fake.NewSession(a, st)

	msgs, err := feed(t, st, s, []byte{2, 'o', 'k', 9, 'x'})
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrFraming)
	assert.Equal(t, []string{"ok"}, texts(t, msgs))
	st.Close()
	requireNoLeak(t, a)
}

func TestLengthPrefix_WideWidthsDefaultToFiniteMax(t *testing.T) {
	for _, width := range []int{4, 8} {
		a := buffer.NewAllocator(16, 0, 0)
		st := filter.NewChain(filter.NewLengthPrefix(width, 0)).NewState()
		s := fake.NewSession(a, st)

		at := make([]byte, width)
		at[width-4] = filter.DefaultMaxFrame >> 24
		msgs, err := feed(t, st, s, at, []byte{'p'})
		require.NoError(t, err, "width %d", width)
		assert.Empty(t, msgs)
		assert.Equal(t, width+1, st.Pending(0))
		assert.Equal(t, width+filter.DefaultMaxFrame, st.PendingLength(0))
		st.Close()

		st = filter.NewChain(filter.NewLengthPrefix(width, 0)).NewState()
		over := make([]byte, width)
		over[0] = 0x80
		_, err = feed(t, st, s, over)
		assert.ErrorIs(t, err, api.ErrFraming, "width %d", width)
		st.Close()
		requireNoLeak(t, a)
	}
}

// greedyPrefix reads its prefix without restoring the cursor on underflow.
type greedyPrefix struct{ *filter.LengthPrefix }

func (g greedyPrefix) TellBoundary(_ filter.Session, r *buffer.Buffer) int {
	n, err := r.ReadByte()
	if err != nil || r.Remaining() < int(n) {
		return filter.Underflow
	}
	r.Rewind()
	return 1 + int(n)
}

func TestChain_MisbehavingFramerIsNotRepaired(t *testing.T) {
	a := buffer.NewAllocator(8, 0, 0)
	st := filter.NewChain(greedyPrefix{filter.NewLengthPrefix(1, 0)}).NewState()
	s := fake.NewSession(a, st)

	_, err := feed(t, st, s, []byte{0x03, 'a'})
	require.NoError(t, err)
	// The consumed prefix byte stays consumed: the chain does not rewind
	// on behalf of the framer.
	assert.Equal(t, 1, st.Pending(0))
	st.Close()
	requireNoLeak(t, a)
}

type upper struct{}

func (upper) OnArrive(_ filter.Session, msg any) (filter.Output, error) {
	str := msg.(string)
	if str == "drop" {
		return filter.None, nil
	}
	return filter.Emit(fmt.Sprintf("<%s>", str)), nil
}

func (upper) OnDepart(_ filter.Session, msg any) (filter.Output, error) {
	return filter.Emit(fmt.Sprint(msg)), nil
}

func TestChain_TypedStagesAndDepart(t *testing.T) {
	a := buffer.NewAllocator(5, 0, 0)
	chain := filter.NewChain(filter.NewLengthPrefix(1, 0), filter.String{}, upper{})
	st := chain.NewState()
	s := fake.NewSession(a, st)

	msgs, err := feed(t, st, s, []byte{2, 'h', 'i', 4, 'd', 'r', 'o', 'p', 1, '!'})
	require.NoError(t, err)
	assert.Equal(t, []string{"<hi>", "<!>"}, texts(t, msgs))

	out, err := st.Depart(s, 42)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, '4', '2'}, out.Bytes())
	out.Release()

	_, err = filter.NewChain().NewState().Depart(s, "not a buffer")
	assert.ErrorIs(t, err, api.ErrFraming)
	st.Close()
	requireNoLeak(t, a)
}

func TestChain_DeliverErrorStopsRead(t *testing.T) {
	a := buffer.NewAllocator(8, 0, 0)
	st := filter.NewChain(filter.NewLengthPrefix(1, 0)).NewState()
	s := fake.NewSession(a, st)

	b := a.NewBuffer()
	b.WriteBytes([]byte{1, 'a', 1, 'b', 1})
	calls := 0
	err := st.Arrive(s, b, func(m any) error {
		calls++
		filter.Discard(m)
		return api.ErrChannelClosed
	})
	assert.ErrorIs(t, err, api.ErrChannelClosed)
	assert.Equal(t, 1, calls)
	st.Close()
	st.Close()
	requireNoLeak(t, a)
}
