//go:build linux
// +build linux

// File: transport/transport_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-frame/api"
)

func TestPair_VectoredIO(t *testing.T) {
	a, b, err := Pair()
	require.NoError(t, err)
	defer a.Close()
	defer b.Close()

	n, err := a.WriteBuffers([][]byte{[]byte("hel"), []byte("lo "), []byte("world")})
	require.NoError(t, err)
	assert.Equal(t, 11, n)

	v1, v2 := make([]byte, 4), make([]byte, 16)
	n, err = b.ReadBuffers([][]byte{v1, v2})
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Equal(t, "hell", string(v1))
	assert.Equal(t, "o world", string(v2[:7]))

	// Nothing pending: would block.
	n, err = b.ReadBuffers([][]byte{v2})
	assert.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	_, err = a.WriteBuffers([][]byte{v1})
	assert.ErrorIs(t, err, api.ErrTransportClosed)

	n, err = b.ReadBuffers([][]byte{v2})
	assert.ErrorIs(t, err, io.EOF)
	assert.Zero(t, n)
}

func TestPair_WriteWouldBlock(t *testing.T) {
	a, b, err := Pair()
	require.NoError(t, err)
	defer a.Close()
	defer b.Close()

	chunk := make([]byte, 64*1024)
	total := 0
	for i := 0; i < 1024; i++ {
		n, err := a.WriteBuffers([][]byte{chunk})
		require.NoError(t, err)
		if n == 0 {
			break
		}
		total += n
	}
	assert.Positive(t, total)
	n, err := a.WriteBuffers([][]byte{chunk})
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestListenDialAccept(t *testing.T) {
	l, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	require.NotZero(t, l.Addr().Port)

	c, err := l.Accept()
	require.NoError(t, err)
	assert.Nil(t, c)

	client, _, err := Dial(l.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	var server *Conn
	require.Eventually(t, func() bool {
		server, err = l.Accept()
		return err == nil && server != nil
	}, 5*time.Second, 5*time.Millisecond)
	defer server.Close()

	require.Eventually(t, func() bool {
		n, err := client.WriteBuffers([][]byte{[]byte("ping")})
		return err == nil && n == 4
	}, 5*time.Second, 5*time.Millisecond)

	buf := make([]byte, 8)
	var got int
	require.Eventually(t, func() bool {
		n, err := server.ReadBuffers([][]byte{buf})
		got = n
		return err == nil && n > 0
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, "ping", string(buf[:got]))

	require.NoError(t, l.Close())
	_, err = l.Accept()
	assert.ErrorIs(t, err, api.ErrTransportClosed)
}

func TestListen_BadAddress(t *testing.T) {
	_, err := Listen("not-an-address")
	assert.Error(t, err)
	_, _, err = Dial("127.0.0.1:bad")
	assert.Error(t, err)
}

func TestConn_CloseWriteSignalsEOF(t *testing.T) {
	a, b, err := Pair()
	require.NoError(t, err)
	defer a.Close()
	defer b.Close()

	_, err = a.WriteBuffers([][]byte{[]byte("bye")})
	require.NoError(t, err)
	require.NoError(t, a.CloseWrite())

	p := make([]byte, 8)
	n, err := b.ReadBuffers([][]byte{p})
	require.NoError(t, err)
	assert.Equal(t, "bye", string(p[:n]))

	_, err = b.ReadBuffers([][]byte{p})
	assert.ErrorIs(t, err, io.EOF)

	// The read side of a stays open.
	_, err = b.WriteBuffers([][]byte{[]byte("ok")})
	require.NoError(t, err)
	n, err = a.ReadBuffers([][]byte{p})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(p[:n]))
}
