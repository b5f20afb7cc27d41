// File: channel/queue.go
// Package channel
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Serialized single-writer outbound queue.

package channel

import (
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-frame/api"
	"github.com/momentics/hioload-frame/buffer"
	"github.com/momentics/hioload-frame/control"
	"github.com/momentics/hioload-frame/filter"
)

type endOfStream struct{}

// EndOfStream, once drained, closes the channel. Messages queued after it
// are discarded.
var EndOfStream any = endOfStream{}

// Notifier asks the reactor for a writable notification.
type Notifier interface {
	ArmWrite() error
}

// Detacher is implemented by notifiers that must forget the descriptor
// before the transport closes it.
type Detacher interface {
	Detach()
}

// reply is a message entering the departure chain below stage.
type reply struct {
	stage int
	msg   any
}

// OutboundQueue keeps message write order for one connection. At most one
// goroutine drains it at a time; enqueueing never blocks on the socket.
type OutboundQueue struct {
	mu        sync.Mutex
	items     *queue.Queue
	writing   bool // a drain owns current
	suspended bool // the owner stopped on a partial write
	closed    bool
	current   *buffer.Buffer

	conn       api.NetConn
	depart     func(msg any) (*buffer.Buffer, error)
	departFrom func(stage int, msg any) (*buffer.Buffer, error)
	notifier   Notifier
	metrics  *control.Metrics

	onEnd   func()
	onError func(error)

	bytesOut  atomic.Int64
	framesOut atomic.Int64
}

func newOutboundQueue(conn api.NetConn, depart func(any) (*buffer.Buffer, error),
	departFrom func(int, any) (*buffer.Buffer, error)) *OutboundQueue {
	return &OutboundQueue{
		items:      queue.New(),
		conn:       conn,
		depart:     depart,
		departFrom: departFrom,
		onEnd:      func() {},
		onError:    func(error) {},
	}
}

// Write enqueues msg and drains on the calling goroutine unless another
// drain is in flight.
func (q *OutboundQueue) Write(msg any) error {
	return q.enqueue(msg)
}

// writeReply enqueues msg for the stages below stage. It is encoded by the
// drain, in queue order with every other message.
func (q *OutboundQueue) writeReply(stage int, msg any) error {
	return q.enqueue(reply{stage: stage, msg: msg})
}

func (q *OutboundQueue) enqueue(item any) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		discardItem(item)
		return api.ErrChannelClosed
	}
	q.items.Add(item)
	if q.writing {
		q.mu.Unlock()
		return nil
	}
	q.writing = true
	q.mu.Unlock()
	return q.drain()
}

// Resume continues a drain suspended on a partial write.
func (q *OutboundQueue) Resume() error {
	q.mu.Lock()
	if !q.suspended || q.closed {
		q.mu.Unlock()
		return nil
	}
	q.suspended = false
	q.mu.Unlock()
	return q.drain()
}

// drain runs with the writing slot held.
func (q *OutboundQueue) drain() error {
	for {
		if q.current == nil {
			q.mu.Lock()
			if q.closed {
				q.writing = false
				q.mu.Unlock()
				return api.ErrChannelClosed
			}
			if q.items.Length() == 0 {
				q.writing = false
				q.mu.Unlock()
				return nil
			}
			item := q.items.Remove()
			q.mu.Unlock()

			buf, err := q.prepare(item)
			if err != nil {
				return q.fail(err)
			}
			if buf == nil {
				if item == EndOfStream {
					q.onEnd()
					return nil
				}
				continue
			}
			q.current = buf
		}

		n, err := q.conn.WriteBuffers(q.current.ReadViews())
		if n > 0 {
			_ = q.current.Skip(n)
			q.bytesOut.Add(int64(n))
			q.metrics.AddBytesOut(n)
		}
		if err != nil {
			return q.fail(err)
		}
		if q.current.Remaining() > 0 {
			q.mu.Lock()
			if q.closed {
				q.current.Release()
				q.current = nil
				q.writing = false
				q.mu.Unlock()
				return api.ErrChannelClosed
			}
			q.suspended = true
			q.mu.Unlock()
			q.metrics.IncPartialWrites()
			if q.notifier == nil {
				return nil
			}
			if err := q.notifier.ArmWrite(); err != nil {
				// current may already belong to a resumed drain.
				q.onError(err)
				return err
			}
			return nil
		}
		q.current.Release()
		q.current = nil
		q.framesOut.Add(1)
		q.metrics.IncFramesOut()
	}
}

// prepare turns a queued item into the Buffer to write. nil means nothing
// to write.
func (q *OutboundQueue) prepare(item any) (*buffer.Buffer, error) {
	switch v := item.(type) {
	case endOfStream:
		return nil, nil
	case reply:
		return q.departFrom(v.stage, v.msg)
	default:
		return q.depart(item)
	}
}

// fail gives up the writing slot and reports err.
func (q *OutboundQueue) fail(err error) error {
	if q.current != nil {
		q.current.Release()
		q.current = nil
	}
	q.mu.Lock()
	q.writing = false
	q.suspended = false
	q.mu.Unlock()
	q.onError(err)
	return err
}

// Len returns the number of queued messages, excluding the one being written.
func (q *OutboundQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

// Close discards queued messages. A Buffer held by a suspended drain is
// released; an active drain releases its own on the next step.
func (q *OutboundQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	for q.items.Length() > 0 {
		discardItem(q.items.Remove())
	}
	if q.suspended || !q.writing {
		if q.current != nil {
			q.current.Release()
			q.current = nil
		}
		q.suspended = false
		q.writing = false
	}
}

func discardItem(item any) {
	if r, ok := item.(reply); ok {
		filter.Discard(r.msg)
		return
	}
	filter.Discard(item)
}
