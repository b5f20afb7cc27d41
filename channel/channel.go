// File: channel/channel.go
// Package channel binds a transport, a filter chain and an outbound queue
// into one full-duplex connection driven by reactor events.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package channel

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/momentics/hioload-frame/api"
	"github.com/momentics/hioload-frame/buffer"
	"github.com/momentics/hioload-frame/control"
	"github.com/momentics/hioload-frame/filter"
)

// Handler receives channel lifecycle events. Messages passed to OnMessage
// belong to the handler, which releases any Buffer it keeps.
type Handler interface {
	OnOpen(c *Channel)
	OnMessage(c *Channel, msg any)
	OnClose(c *Channel, cause error)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are skipped;
// a nil Message discards the message.
type HandlerFuncs struct {
	Open    func(c *Channel)
	Message func(c *Channel, msg any)
	Close   func(c *Channel, cause error)
}

func (h HandlerFuncs) OnOpen(c *Channel) {
	if h.Open != nil {
		h.Open(c)
	}
}

func (h HandlerFuncs) OnMessage(c *Channel, msg any) {
	if h.Message == nil {
		filter.Discard(msg)
		return
	}
	h.Message(c, msg)
}

func (h HandlerFuncs) OnClose(c *Channel, cause error) {
	if h.Close != nil {
		h.Close(c, cause)
	}
}

// Channel is one framed connection. Reads are serialized by the reactor's
// one-shot dispatch; writes may come from any goroutine.
type Channel struct {
	id       string
	conn     api.NetConn
	state    *filter.State
	handler  Handler
	alloc    *buffer.Allocator
	notifier Notifier
	logger   *slog.Logger
	metrics  *control.Metrics
	readSize int
	maxReads int

	queue *OutboundQueue

	// inMu guards state and the read path.
	inMu sync.Mutex

	attrMu sync.Mutex
	attrs  map[string]any

	opened atomic.Bool
	closed atomic.Bool
	cause  error

	bytesIn  atomic.Int64
	framesIn atomic.Int64
}

// New creates a channel over conn framed by chain.
func New(conn api.NetConn, chain *filter.Chain, h Handler, opts ...Option) *Channel {
	c := &Channel{
		id:       uuid.NewString(),
		conn:     conn,
		state:    chain.NewState(),
		handler:  h,
		logger:   slog.Default(),
		readSize: DefaultReadSize,
		maxReads: DefaultMaxReads,
		attrs:    make(map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.alloc == nil {
		c.alloc = buffer.NewAllocator(buffer.DefaultCapacity, 0, 0)
	}
	if c.handler == nil {
		c.handler = HandlerFuncs{}
	}
	c.logger = c.logger.With("channel_id", c.id)

	c.queue = newOutboundQueue(conn,
		func(msg any) (*buffer.Buffer, error) { return c.state.Depart(c, msg) },
		func(stage int, msg any) (*buffer.Buffer, error) { return c.state.DepartFrom(c, stage, msg) })
	c.queue.notifier = c.notifier
	c.queue.metrics = c.metrics
	c.queue.onEnd = func() { c.closeWith(nil) }
	c.queue.onError = c.closeWith
	return c
}

// ID returns the channel's unique id.
func (c *Channel) ID() string { return c.id }

// Allocator implements filter.Session.
func (c *Channel) Allocator() *buffer.Allocator { return c.alloc }

// Logger implements filter.Session.
func (c *Channel) Logger() *slog.Logger { return c.logger }

// Stage implements filter.Session; outside of a filter call the channel
// sits above the top stage.
func (c *Channel) Stage() int { return c.state.Chain().Len() }

// Conn returns the underlying transport.
func (c *Channel) Conn() api.NetConn { return c.conn }

// Attr implements filter.Session.
func (c *Channel) Attr(key string) (any, bool) {
	c.attrMu.Lock()
	defer c.attrMu.Unlock()
	v, ok := c.attrs[key]
	return v, ok
}

// SetAttr implements filter.Session. Values set after close are released.
func (c *Channel) SetAttr(key string, v any) {
	c.attrMu.Lock()
	if c.attrs == nil {
		c.attrMu.Unlock()
		filter.Discard(v)
		return
	}
	if v == nil {
		delete(c.attrs, key)
	} else {
		c.attrs[key] = v
	}
	c.attrMu.Unlock()
}

// Reply implements filter.Session. The stages below stage encode msg when
// it reaches the head of the write queue.
func (c *Channel) Reply(stage int, msg any) error {
	return c.queue.writeReply(stage, msg)
}

// Shutdown implements filter.Session.
func (c *Channel) Shutdown() {
	_ = c.queue.Write(EndOfStream)
}

// Write queues msg for departure through the whole chain.
func (c *Channel) Write(msg any) error {
	return c.queue.Write(msg)
}

// Open reports the channel to the handler. Accepted connections call it
// once registered; dialed ones reach it through OnConnectable. Reads wait
// until OnOpen returns.
func (c *Channel) Open() {
	if c.closed.Load() || !c.opened.CompareAndSwap(false, true) {
		return
	}
	c.metrics.IncChannelsOpened()
	c.logger.Debug("channel opened")
	c.inMu.Lock()
	c.handler.OnOpen(c)
	c.inMu.Unlock()

	if c.closed.Load() {
		c.inMu.Lock()
		c.releaseInbound()
		c.inMu.Unlock()
	}
}

// OnConnectable completes a non-blocking dial.
func (c *Channel) OnConnectable(err error) {
	if err != nil {
		c.closeWith(err)
		return
	}
	c.Open()
}

// OnReadable drains the socket into the chain.
func (c *Channel) OnReadable() {
	if c.closed.Load() {
		return
	}
	c.inMu.Lock()
	err := c.readLoop()
	c.inMu.Unlock()

	if c.closed.Load() {
		// Close ran while the read path was busy.
		c.inMu.Lock()
		c.releaseInbound()
		c.inMu.Unlock()
		return
	}
	switch {
	case errors.Is(err, io.EOF):
		c.closeWith(nil)
	case err != nil:
		c.closeWith(err)
	}
}

func (c *Channel) readLoop() error {
	for i := 0; i < c.maxReads && !c.closed.Load(); i++ {
		b := c.alloc.NewBuffer()
		views := b.WriteRoom(c.readSize)
		n, err := c.conn.ReadBuffers(views)
		if cerr := b.Commit(max(n, 0)); cerr != nil {
			b.Release()
			return cerr
		}
		if n <= 0 {
			b.Release()
			return err
		}
		c.bytesIn.Add(int64(n))
		c.metrics.AddBytesIn(n)
		if aerr := c.state.Arrive(c, b, c.deliver); aerr != nil {
			if errors.Is(aerr, api.ErrChannelClosed) {
				return nil
			}
			if errors.Is(aerr, api.ErrFraming) {
				c.metrics.IncFramingErrors()
			}
			return aerr
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Channel) deliver(msg any) error {
	if c.closed.Load() {
		filter.Discard(msg)
		return api.ErrChannelClosed
	}
	c.framesIn.Add(1)
	c.metrics.IncFramesIn()
	c.handler.OnMessage(c, msg)
	return nil
}

// OnWritable resumes a write suspended on a full socket.
func (c *Channel) OnWritable() {
	_ = c.queue.Resume()
}

// Close closes the channel without a cause.
func (c *Channel) Close() error {
	c.closeWith(nil)
	return nil
}

// Closed reports whether the channel is closed.
func (c *Channel) Closed() bool { return c.closed.Load() }

// Cause returns the error the channel closed with, nil for a clean close.
func (c *Channel) Cause() error {
	if !c.closed.Load() {
		return nil
	}
	c.attrMu.Lock()
	defer c.attrMu.Unlock()
	return c.cause
}

func (c *Channel) closeWith(cause error) {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.attrMu.Lock()
	c.cause = cause
	c.attrMu.Unlock()

	c.queue.Close()
	if c.inMu.TryLock() {
		c.releaseInbound()
		c.inMu.Unlock()
	}
	if d, ok := c.notifier.(Detacher); ok {
		d.Detach()
	}
	if err := c.conn.Close(); err != nil {
		c.logger.Debug("transport close failed", "error", err)
	}

	reason := closeReason(cause)
	if c.opened.Load() {
		c.metrics.IncChannelsClosed(reason)
	}
	if cause != nil {
		c.logger.Warn("channel closed", "reason", reason, "error", cause)
	} else {
		c.logger.Debug("channel closed")
	}
	c.handler.OnClose(c, cause)
}

// releaseInbound frees pending frame contexts and session attributes. It
// runs under inMu and may run twice.
func (c *Channel) releaseInbound() {
	c.state.Close()
	c.attrMu.Lock()
	attrs := c.attrs
	c.attrs = nil
	c.attrMu.Unlock()
	for _, v := range attrs {
		filter.Discard(v)
	}
}

func closeReason(cause error) string {
	switch {
	case cause == nil:
		return "normal"
	case errors.Is(cause, api.ErrFilterRejected):
		return "rejected"
	case errors.Is(cause, api.ErrFraming):
		return "framing"
	default:
		return "transport"
	}
}

// Queued returns the number of messages waiting to be written.
func (c *Channel) Queued() int { return c.queue.Len() }

// Stats returns a snapshot of channel counters.
func (c *Channel) Stats() map[string]int64 {
	return map[string]int64{
		"bytes_received":  c.bytesIn.Load(),
		"bytes_sent":      c.queue.bytesOut.Load(),
		"frames_received": c.framesIn.Load(),
		"frames_sent":     c.queue.framesOut.Load(),
		"queued":          int64(c.queue.Len()),
	}
}

var _ filter.Session = (*Channel)(nil)
