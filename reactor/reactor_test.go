//go:build linux
// +build linux

// File: reactor/reactor_test.go
// Author: momentics <momentics@gmail.com>

package reactor_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-frame/api"
	"github.com/momentics/hioload-frame/fake"
	"github.com/momentics/hioload-frame/reactor"
	"github.com/momentics/hioload-frame/transport"
)

// probe reads everything available and records callbacks.
type probe struct {
	conn     *transport.Conn
	inFlight atomic.Int32
	overlap  atomic.Bool
	reads    atomic.Int32
	writes   atomic.Int32
	connects chan error

	mu   sync.Mutex
	data []byte
}

func (p *probe) enter() func() {
	if p.inFlight.Add(1) > 1 {
		p.overlap.Store(true)
	}
	time.Sleep(time.Millisecond)
	return func() { p.inFlight.Add(-1) }
}

func (p *probe) OnReadable() {
	defer p.enter()()
	p.reads.Add(1)
	buf := make([]byte, 64)
	for {
		n, err := p.conn.ReadBuffers([][]byte{buf})
		if n == 0 || err != nil {
			return
		}
		p.mu.Lock()
		p.data = append(p.data, buf[:n]...)
		p.mu.Unlock()
	}
}

func (p *probe) OnWritable() {
	defer p.enter()()
	p.writes.Add(1)
}

func (p *probe) OnConnectable(err error) {
	if p.connects != nil {
		p.connects <- err
	}
}

func (p *probe) received() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return string(p.data)
}

func start(t *testing.T, exec api.Executor) (*reactor.Reactor, func()) {
	t.Helper()
	r, err := reactor.New(exec, reactor.WithPollTimeout(10*time.Millisecond))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	return r, func() {
		cancel()
		<-done
		require.NoError(t, r.Close())
	}
}

func TestReactor_ReadAndWriteInterest(t *testing.T) {
	r, stop := start(t, &fake.Executor{})
	defer stop()

	a, b, err := transport.Pair()
	require.NoError(t, err)
	defer a.Close()
	defer b.Close()

	p := &probe{conn: b}
	require.NoError(t, r.Register(int(b.FD()), p, reactor.Read))
	assert.Equal(t, 1, r.Len())

	_, err = a.WriteBuffers([][]byte{[]byte("one ")})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return p.received() == "one " }, 5*time.Second, time.Millisecond)

	_, err = a.WriteBuffers([][]byte{[]byte("two")})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return p.received() == "one two" }, 5*time.Second, time.Millisecond)

	// Write interest fires once per request.
	require.NoError(t, r.Notifier(int(b.FD())).ArmWrite())
	require.Eventually(t, func() bool { return p.writes.Load() == 1 }, 5*time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), p.writes.Load())

	r.Notifier(int(b.FD())).Detach()
	assert.Zero(t, r.Len())
	assert.ErrorIs(t, r.ArmWrite(int(b.FD())), api.ErrInvalidArgument)
}

// pool runs tasks on goroutines so overlapping dispatch would be visible.
type pool struct{ wg sync.WaitGroup }

func (p *pool) Submit(task func()) error {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		task()
	}()
	return nil
}

func (p *pool) NumWorkers() int { return 8 }

func TestReactor_OneTaskPerDescriptor(t *testing.T) {
	exec := &pool{}
	r, stop := start(t, exec)

	a, b, err := transport.Pair()
	require.NoError(t, err)
	defer a.Close()
	defer b.Close()

	p := &probe{conn: b}
	require.NoError(t, r.Register(int(b.FD()), p, reactor.Read))

	for i := 0; i < 50; i++ {
		_, err := a.WriteBuffers([][]byte{[]byte("x")})
		require.NoError(t, err)
		if i%10 == 0 {
			require.NoError(t, r.ArmWrite(int(b.FD())))
		}
		time.Sleep(200 * time.Microsecond)
	}
	require.Eventually(t, func() bool { return len(p.received()) == 50 }, 5*time.Second, time.Millisecond)
	stop()
	exec.wg.Wait()

	assert.False(t, p.overlap.Load(), "handler ran concurrently with itself")
	assert.Positive(t, r.Dispatched())
}

func TestReactor_ConnectCompletion(t *testing.T) {
	r, stop := start(t, &fake.Executor{})
	defer stop()

	l, err := transport.Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	c, inProgress, err := transport.Dial(l.Addr().String())
	require.NoError(t, err)
	defer c.Close()

	p := &probe{conn: c, connects: make(chan error, 1)}
	if !inProgress {
		p.connects <- nil
	} else {
		require.NoError(t, r.Register(int(c.FD()), p, reactor.Connect))
	}
	select {
	case err := <-p.connects:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("connect never completed")
	}
}

func TestReactor_CloseStopsRun(t *testing.T) {
	r, err := reactor.New(&fake.Executor{}, reactor.WithPollTimeout(5*time.Millisecond))
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, r.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	require.NoError(t, r.Close())
	assert.ErrorIs(t, r.Register(0, reactor.HandlerFunc(func() {}), reactor.Read), reactor.ErrClosed)
	assert.ErrorIs(t, r.Run(context.Background()), reactor.ErrClosed)

	_, err = reactor.New(nil)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}
