//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7) reactor with one-shot registrations.

package reactor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-frame/api"
)

// ErrClosed is returned by operations on a closed reactor.
var ErrClosed = errors.New("reactor closed")

type registration struct {
	fd        int
	h         Handler
	interest  Interest
	wantWrite bool
	busy      bool
	removed   bool
}

func (reg *registration) mask() uint32 {
	m := uint32(unix.EPOLLONESHOT)
	if reg.interest&Read != 0 {
		m |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if reg.wantWrite || reg.interest&Connect != 0 {
		m |= unix.EPOLLOUT
	}
	return m
}

// Reactor waits on epoll and hands ready descriptors to an executor.
type Reactor struct {
	epfd int
	exec api.Executor
	opts options

	mu     sync.Mutex
	regs   map[int]*registration
	closed bool
	loops  sync.WaitGroup

	dispatched atomic.Int64
}

// New creates a reactor submitting tasks to exec.
func New(exec api.Executor, opts ...Option) (*Reactor, error) {
	if exec == nil {
		return nil, fmt.Errorf("reactor executor: %w", api.ErrInvalidArgument)
	}
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &Reactor{
		epfd: epfd,
		exec: exec,
		opts: buildOptions(opts),
		regs: make(map[int]*registration),
	}, nil
}

// Register starts watching fd. Write interest is cleared after each
// writable dispatch; read interest persists.
func (r *Reactor) Register(fd int, h Handler, interest Interest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	reg := &registration{fd: fd, h: h, interest: interest &^ Write, wantWrite: interest&Write != 0}
	ev := unix.EpollEvent{Events: reg.mask(), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll add fd %d: %w", fd, err)
	}
	r.regs[fd] = reg
	return nil
}

// ArmWrite requests one writable notification for fd. While a task for fd
// is running the request is folded into its re-arm.
func (r *Reactor) ArmWrite(fd int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	reg := r.regs[fd]
	if reg == nil {
		return fmt.Errorf("arm write fd %d: %w", fd, api.ErrInvalidArgument)
	}
	reg.wantWrite = true
	if reg.busy {
		return nil
	}
	ev := unix.EpollEvent{Events: reg.mask(), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("epoll mod fd %d: %w", fd, err)
	}
	return nil
}

// Unregister stops watching fd. It must run before fd is closed.
func (r *Reactor) Unregister(fd int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg := r.regs[fd]
	if reg == nil {
		return nil
	}
	reg.removed = true
	delete(r.regs, fd)
	if r.closed {
		return nil
	}
	err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err != nil && !errors.Is(err, unix.ENOENT) && !errors.Is(err, unix.EBADF) {
		return fmt.Errorf("epoll del fd %d: %w", fd, err)
	}
	return nil
}

// Len returns the number of registered descriptors.
func (r *Reactor) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.regs)
}

// Dispatched returns the number of tasks handed to the executor.
func (r *Reactor) Dispatched() int64 { return r.dispatched.Load() }

// Run waits for events until ctx is done or the reactor is closed.
func (r *Reactor) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.loops.Add(1)
	r.mu.Unlock()
	defer r.loops.Done()

	events := make([]unix.EpollEvent, r.opts.maxEvents)
	timeout := int(r.opts.pollTimeout.Milliseconds())
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.isClosed() {
			return nil
		}
		n, err := unix.EpollWait(r.epfd, events, timeout)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if r.isClosed() {
				return nil
			}
			return fmt.Errorf("epoll wait: %w", err)
		}
		for i := 0; i < n; i++ {
			r.dispatch(int(events[i].Fd), events[i].Events)
		}
	}
}

func (r *Reactor) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Reactor) dispatch(fd int, events uint32) {
	r.mu.Lock()
	reg := r.regs[fd]
	if reg == nil || reg.busy {
		r.mu.Unlock()
		return
	}
	reg.busy = true
	r.mu.Unlock()

	r.dispatched.Add(1)
	task := func() { r.serve(reg, events) }
	if err := r.exec.Submit(task); err != nil {
		r.opts.logger.Debug("executor rejected task, running inline", "fd", fd, "error", err)
		task()
	}
}

func (r *Reactor) serve(reg *registration, events uint32) {
	defer r.rearm(reg)

	failed := events&(unix.EPOLLERR|unix.EPOLLHUP) != 0
	readable := failed || events&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0
	writable := failed || events&unix.EPOLLOUT != 0

	r.mu.Lock()
	connecting := reg.interest&Connect != 0
	wantWrite := reg.wantWrite
	if connecting && writable {
		reg.interest = reg.interest&^Connect | Read
	}
	if writable && wantWrite {
		reg.wantWrite = false
	}
	r.mu.Unlock()

	if connecting {
		if writable {
			reg.h.OnConnectable(socketError(reg.fd))
		}
		return
	}
	if writable && wantWrite {
		reg.h.OnWritable()
	}
	if readable && reg.interest&Read != 0 {
		reg.h.OnReadable()
	}
}

func (r *Reactor) rearm(reg *registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg.busy = false
	if reg.removed || r.closed {
		return
	}
	ev := unix.EpollEvent{Events: reg.mask(), Fd: int32(reg.fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, reg.fd, &ev); err != nil {
		r.opts.logger.Debug("epoll rearm failed", "fd", reg.fd, "error", err)
	}
}

func socketError(fd int) error {
	v, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if v != 0 {
		return fmt.Errorf("connect: %w", unix.Errno(v))
	}
	return nil
}

// Close stops Run, waits for it to return and releases the epoll
// descriptor. Registered descriptors are left open.
func (r *Reactor) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.regs = make(map[int]*registration)
	r.mu.Unlock()

	r.loops.Wait()
	return unix.Close(r.epfd)
}
