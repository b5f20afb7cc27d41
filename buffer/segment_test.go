package buffer

import (
	"testing"

	"github.com/momentics/hioload-frame/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegment_Rooms(t *testing.T) {
	s := newSegment(8)
	assert.Equal(t, 8, s.Available())
	assert.Equal(t, 0, s.HeadAvailable())
	require.ErrorIs(t, s.HeadWriteByte(1), api.ErrIndexOutOfBounds)

	s.start = 4
	assert.Equal(t, 4, s.WriteBytes([]byte("abcdefgh")))
	assert.Equal(t, 2, s.HeadWriteBytes([]byte("xy")))
	assert.Equal(t, "xyabcd", string(s.valid()))
	assert.Equal(t, 2, s.HeadWriteFill('-', 5))
	assert.Equal(t, 0, s.WriteFill('+', 1))
	require.ErrorIs(t, s.WriteByte(1), api.ErrIndexOutOfBounds)
	assert.Equal(t, "--xyabcd", string(s.valid()))
}

func TestSegment_PartialIntegers(t *testing.T) {
	a, b := newSegment(3), newSegment(3)
	a.WriteUintB(0x11223344, 4, 0, 3)
	b.WriteUintB(0x11223344, 4, 3, 1)
	v := a.ReadUintB(0, 3)
	v = b.ReadUintB(v, 1)
	assert.Equal(t, uint64(0x11223344), v)

	a.Clear()
	b.Clear()
	a.WriteUintL(0x11223344, 4, 0, 1)
	b.WriteUintL(0x11223344, 4, 1, 3)
	v = a.ReadUintL(0, 0, 1)
	v = b.ReadUintL(v, 1, 3)
	assert.Equal(t, uint64(0x11223344), v)
}

func TestSegment_Cut(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		pos, mark int
		wantFresh string // side that was copied
	}{
		{"small tail", 2, 5, 3, "second"},
		{"small head", 6, 1, 0, "first"},
		{"cursor in tail", 3, 7, 6, "second"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSegment(16)
			s.WriteBytes([]byte("abcdefgh"))
			s.position, s.mark = tt.pos, tt.mark
			fresh := newSegment(16)
			first, second := s.Cut(tt.n, fresh)
			k := 8 - tt.n
			assert.Equal(t, "abcdefgh"[:k], string(first.valid()))
			assert.Equal(t, "abcdefgh"[k:], string(second.valid()))
			assert.Equal(t, min(tt.pos, k), first.position)
			assert.Equal(t, max(tt.pos-k, 0), second.position)
			assert.Equal(t, min(tt.mark, k), first.mark)
			assert.Equal(t, max(tt.mark-k, 0), second.mark)
			if tt.wantFresh == "first" {
				assert.Same(t, fresh, first)
			} else {
				assert.Same(t, fresh, second)
			}
		})
	}
}

func TestSegment_Compact(t *testing.T) {
	s := newSegment(8)
	s.WriteBytes([]byte("abcdef"))
	s.position, s.mark = 4, 2
	s.Compact()
	assert.Equal(t, 4, s.Start())
	assert.Equal(t, 2, s.Size())
	assert.Equal(t, 0, s.Position())
	assert.Equal(t, 0, s.Mark())
	assert.Equal(t, "ef", string(s.unread()))
}
