//go:build linux

// File: server/server_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server_test

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/momentics/hioload-frame/channel"
	"github.com/momentics/hioload-frame/filter"
	"github.com/momentics/hioload-frame/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prefixChain() *filter.Chain {
	return filter.NewChain(filter.NewLengthPrefix(2, 0), filter.String{})
}

func echo() channel.Handler {
	return channel.HandlerFuncs{
		Message: func(c *channel.Channel, msg any) {
			_ = c.Write(msg)
		},
	}
}

func startServer(t *testing.T, h channel.Handler) *server.Server {
	t.Helper()
	cfg := server.DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.Workers = 2
	s, err := server.NewServer(cfg, prefixChain, h)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()
	t.Cleanup(func() {
		require.NoError(t, s.Close())
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("Run did not return after Close")
		}
	})
	return s
}

func writeFrame(t *testing.T, w io.Writer, s string) {
	t.Helper()
	p := make([]byte, 2+len(s))
	binary.BigEndian.PutUint16(p, uint16(len(s)))
	copy(p[2:], s)
	_, err := w.Write(p)
	require.NoError(t, err)
}

func readFrame(t *testing.T, r io.Reader) string {
	t.Helper()
	var hdr [2]byte
	_, err := io.ReadFull(r, hdr[:])
	require.NoError(t, err)
	p := make([]byte, binary.BigEndian.Uint16(hdr[:]))
	_, err = io.ReadFull(r, p)
	require.NoError(t, err)
	return string(p)
}

func TestServer_Echo(t *testing.T) {
	s := startServer(t, echo())

	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(3*time.Second)))

	// Two frames in one segment and one split across writes.
	_, err = conn.Write(append(frameBytes("one"), frameBytes("two")...))
	require.NoError(t, err)
	three := frameBytes("three")
	_, err = conn.Write(three[:3])
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = conn.Write(three[3:])
	require.NoError(t, err)

	assert.Equal(t, "one", readFrame(t, conn))
	assert.Equal(t, "two", readFrame(t, conn))
	assert.Equal(t, "three", readFrame(t, conn))
	assert.Equal(t, 1, s.Channels())
}

func frameBytes(s string) []byte {
	p := make([]byte, 2+len(s))
	binary.BigEndian.PutUint16(p, uint16(len(s)))
	copy(p[2:], s)
	return p
}

func TestServer_ForgetsClosedChannels(t *testing.T) {
	s := startServer(t, echo())

	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	writeFrame(t, conn, "ping")
	require.NoError(t, conn.SetDeadline(time.Now().Add(3*time.Second)))
	assert.Equal(t, "ping", readFrame(t, conn))
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return s.Channels() == 0 }, 3*time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 1, s.Stats()["connections"])
}

func TestServer_Dial(t *testing.T) {
	s := startServer(t, echo())

	var (
		mu     sync.Mutex
		got    []string
		opened = make(chan struct{})
	)
	client := channel.HandlerFuncs{
		Open: func(c *channel.Channel) {
			close(opened)
			_ = c.Write("hello")
		},
		Message: func(_ *channel.Channel, msg any) {
			mu.Lock()
			got = append(got, msg.(string))
			mu.Unlock()
		},
	}
	ch, err := s.Dial(s.Addr().String(), prefixChain, client)
	require.NoError(t, err)

	select {
	case <-opened:
	case <-time.After(3 * time.Second):
		t.Fatal("dialed channel never opened")
	}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 3*time.Second, 10*time.Millisecond)
	mu.Lock()
	assert.Equal(t, "hello", got[0])
	mu.Unlock()
	assert.Equal(t, 2, s.Channels())

	require.NoError(t, ch.Close())
	require.Eventually(t, func() bool { return s.Channels() == 0 }, 3*time.Second, 10*time.Millisecond)
}

func TestServer_RunTwice(t *testing.T) {
	s := startServer(t, echo())
	require.Eventually(t, func() bool { return s.Stats()["registered"].(int) == 1 }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, s.Run(context.Background()), server.ErrAlreadyRunning)
}

func TestServer_CloseClosesChannels(t *testing.T) {
	cfg := server.DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	closed := make(chan error, 1)
	s, err := server.NewServer(cfg, prefixChain, channel.HandlerFuncs{
		Close: func(_ *channel.Channel, cause error) { closed <- cause },
	})
	require.NoError(t, err)
	go func() { _ = s.Run(context.Background()) }()

	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.Channels() == 1 }, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Close())
	select {
	case cause := <-closed:
		assert.NoError(t, cause)
	case <-time.After(3 * time.Second):
		t.Fatal("channel not closed")
	}
	assert.Equal(t, 0, s.Channels())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, err = conn.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}
