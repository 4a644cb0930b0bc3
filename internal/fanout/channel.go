package fanout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	cfotel "github.com/Strob0t/commitcast/internal/adapter/otel"
	"github.com/Strob0t/commitcast/internal/resilience"
)

// FanoutMode selects how the dispatcher shares the registry with the accept loop.
type FanoutMode int

const (
	// FanoutLocked holds the registry gate for the whole fan-out pass.
	FanoutLocked FanoutMode = iota
	// FanoutSnapshot writes outside the gate and merges survivors afterwards.
	FanoutSnapshot
)

// Encoder turns one message into one complete wire frame.
type Encoder[T any] interface {
	EncodeFrame(v T) ([]byte, error)
}

// EncoderFunc adapts a function to Encoder.
type EncoderFunc[T any] func(v T) ([]byte, error)

// EncodeFrame calls f(v).
func (f EncoderFunc[T]) EncodeFrame(v T) ([]byte, error) { return f(v) }

// Options configures a Channel.
type Options struct {
	Name          string
	SocketPath    string
	ProbeTimeout  time.Duration
	QueueCapacity int // 0 = unbounded
	Overflow      OverflowPolicy
	Mode          FanoutMode
	WriteTimeout  time.Duration // 0 = a write blocks until it completes or fails

	AcceptBackoffInitial time.Duration
	AcceptBackoffMax     time.Duration

	Logger  *slog.Logger
	Metrics *cfotel.FanoutMetrics // nil = instruments on the global meter provider
}

// Stats is a point-in-time view of a channel.
type Stats struct {
	Name           string `json:"name"`
	SocketPath     string `json:"socket_path"`
	Connections    int    `json:"connections"`
	QueueDepth     int    `json:"queue_depth"`
	Published      uint64 `json:"published"`
	Dispatched     uint64 `json:"dispatched"`
	Rejected       uint64 `json:"rejected"`
	Dropped        uint64 `json:"dropped"`
	EncodeFailures uint64 `json:"encode_failures"`
	DispatchPanics uint64 `json:"dispatch_panics"`
}

type envelope[T any] struct {
	payload    T
	enqueuedAt time.Time
	publisher  trace.SpanContext
}

type counters struct {
	published      atomic.Uint64
	dispatched     atomic.Uint64
	rejected       atomic.Uint64
	dropped        atomic.Uint64
	encodeFailures atomic.Uint64
	panics         atomic.Uint64
}

// Channel is one broadcast socket with its registry, queue and goroutines.
type Channel[T any] struct {
	name     string
	opts     Options
	encoder  Encoder[T]
	endpoint *Endpoint
	registry Registry
	queue    *Queue[envelope[T]]
	log      *slog.Logger
	metrics  *cfotel.FanoutMetrics
	stats    counters

	stopping     atomic.Bool
	stop         chan struct{}
	acceptDone   chan struct{}
	dispatchDone chan struct{}
	closeOnce    sync.Once
}

// Open binds the socket and starts the accept loop and the dispatcher.
// Binding errors are fatal: the channel never runs degraded.
func Open[T any](enc Encoder[T], opts Options) (*Channel[T], error) {
	if enc == nil {
		return nil, errors.New("fanout: nil encoder")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	log := opts.Logger.With("channel", opts.Name)

	metrics := opts.Metrics
	if metrics == nil {
		var err error
		if metrics, err = cfotel.NewFanoutMetrics(opts.Name); err != nil {
			return nil, fmt.Errorf("fanout metrics: %w", err)
		}
	}

	ep, err := Bind(opts.SocketPath, opts.ProbeTimeout, log)
	if err != nil {
		return nil, err
	}

	c := &Channel[T]{
		name:         opts.Name,
		opts:         opts,
		encoder:      enc,
		endpoint:     ep,
		queue:        NewQueue[envelope[T]](opts.QueueCapacity, opts.Overflow),
		log:          log,
		metrics:      metrics,
		stop:         make(chan struct{}),
		acceptDone:   make(chan struct{}),
		dispatchDone: make(chan struct{}),
	}

	go c.acceptLoop()
	go c.dispatchLoop()

	return c, nil
}

// Publish queues payload for delivery to every connection live when the
// dispatcher reaches it. It never blocks on I/O. A nil error means the message
// was accepted, not that anyone received it.
func (c *Channel[T]) Publish(ctx context.Context, payload T) error {
	env := envelope[T]{
		payload:    payload,
		enqueuedAt: time.Now(),
		publisher:  trace.SpanContextFromContext(ctx),
	}

	dropped, err := c.queue.Push(env)
	if err != nil {
		c.stats.rejected.Add(1)
		c.metrics.Rejected(ctx)
		return err
	}
	if dropped {
		c.stats.dropped.Add(1)
		c.metrics.Dropped(ctx)
	}
	c.stats.published.Add(1)
	c.metrics.Published(ctx)
	return nil
}

// Name returns the channel name used in logs and metrics.
func (c *Channel[T]) Name() string { return c.name }

// Path returns the absolute socket path.
func (c *Channel[T]) Path() string { return c.endpoint.Path() }

// ConnectionCount returns the number of registered connections. It never blocks.
func (c *Channel[T]) ConnectionCount() int { return c.registry.Len() }

// Stats returns counters and gauges for status reporting.
func (c *Channel[T]) Stats() Stats {
	return Stats{
		Name:           c.name,
		SocketPath:     c.endpoint.Path(),
		Connections:    c.registry.Len(),
		QueueDepth:     c.queue.Len(),
		Published:      c.stats.published.Load(),
		Dispatched:     c.stats.dispatched.Load(),
		Rejected:       c.stats.rejected.Load(),
		Dropped:        c.stats.dropped.Load(),
		EncodeFailures: c.stats.encodeFailures.Load(),
		DispatchPanics: c.stats.panics.Load(),
	}
}

// Close stops accepting, removes the socket file, lets the dispatcher drain the
// messages already queued and closes every connection. If ctx ends first the
// dispatcher is left to finish on its own and ctx's error is returned; the
// socket file is removed either way. Close is idempotent.
func (c *Channel[T]) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		c.stopping.Store(true)
		close(c.stop)
		c.endpoint.Release()
		c.queue.Close()

		select {
		case <-c.acceptDone:
		case <-ctx.Done():
		}

		select {
		case <-c.dispatchDone:
		case <-ctx.Done():
			err = fmt.Errorf("close %s: dispatcher still running: %w", c.name, ctx.Err())
			c.log.Warn("dispatcher did not drain before deadline", "queue_depth", c.queue.Len())
			return
		}

		n := c.registry.CloseAll()
		c.metrics.ConnectionsClosed(context.Background(), n)
		c.log.Info("channel closed", "connections_closed", n)
	})
	return err
}

func (c *Channel[T]) acceptLoop() {
	defer close(c.acceptDone)

	ctx := context.Background()
	ln := c.endpoint.Listener()
	bo := resilience.NewBackoff(c.opts.AcceptBackoffInitial, c.opts.AcceptBackoffMax)

	for !c.stopping.Load() {
		nc, err := ln.Accept()
		if err != nil {
			if c.stopping.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			c.metrics.AcceptFailed(ctx)
			c.log.Error("error accepting connection", "error", err, "consecutive_failures", bo.Failures()+1)
			if !bo.Wait(c.stop) {
				return
			}
			continue
		}
		bo.Reset()

		if c.stopping.Load() {
			_ = nc.Close()
			return
		}

		conn := newConn(nc)
		total := c.registry.Add(conn)
		c.metrics.ConnectionOpened(ctx)
		c.log.Info("observer connected", "conn_id", conn.ID, "connections", total)
	}
}

func (c *Channel[T]) dispatchLoop() {
	defer close(c.dispatchDone)
	// Whatever ends the dispatcher, later publishes must fail fast.
	defer c.queue.Close()
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("dispatcher panic recovered", "panic", r)
		}
	}()

	ctx := context.Background()
	for {
		env, ok := c.queue.Pop(ctx)
		if !ok {
			c.log.Debug("dispatcher stopped")
			return
		}
		c.dispatch(ctx, env)
		c.stats.dispatched.Add(1)
	}
}

func (c *Channel[T]) dispatch(ctx context.Context, env envelope[T]) {
	// A panic while fanning out discards this message only. Registry
	// operations reinstall the connections they were holding.
	defer func() {
		if r := recover(); r != nil {
			c.stats.panics.Add(1)
			c.log.Error("discarding message after dispatch panic", "panic", r)
		}
	}()

	c.metrics.QueueWait(ctx, time.Since(env.enqueuedAt))

	frame, err := c.encode(env.payload)
	if err != nil {
		c.stats.encodeFailures.Add(1)
		c.metrics.EncodeFailed(ctx)
		c.log.Warn("discarding message that failed to encode", "error", err)
		return
	}

	ctx, span := cfotel.StartFanoutSpan(ctx, c.name, env.publisher, len(frame))
	defer span.End()

	start := time.Now()
	var delivered, failed int
	switch c.opts.Mode {
	case FanoutSnapshot:
		delivered, failed = c.fanoutSnapshot(frame)
	default:
		c.registry.Exchange(func(conns []*Conn) []*Conn {
			var survivors []*Conn
			survivors, failed = c.writeAll(conns, frame)
			delivered = len(survivors)
			return survivors
		})
	}

	span.SetAttributes(
		attribute.Int("fanout.delivered", delivered),
		attribute.Int("fanout.failed", failed),
	)
	c.metrics.FanoutDone(ctx, delivered, failed, time.Since(start))
}

// encode turns an encoder panic into an error.
func (c *Channel[T]) encode(payload T) (frame []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("encoder panic: %v", r)
		}
	}()
	return c.encoder.EncodeFrame(payload)
}

// fanoutSnapshot writes outside the registry gate. The taken connections are
// restored even if a write panics.
func (c *Channel[T]) fanoutSnapshot(frame []byte) (delivered, failed int) {
	taken := c.registry.Take()
	survivors := taken
	defer func() { c.registry.Restore(survivors) }()

	survivors, failed = c.writeAll(taken, frame)
	return len(survivors), failed
}

// writeAll writes frame to each connection in order, closing the ones that
// fail. conns is left untouched.
func (c *Channel[T]) writeAll(conns []*Conn, frame []byte) (survivors []*Conn, failed int) {
	survivors = make([]*Conn, 0, len(conns))
	for _, conn := range conns {
		if err := c.write(conn, frame); err != nil {
			failed++
			_ = conn.Close()
			c.log.Info("observer dropped after failed write", "conn_id", conn.ID, "error", err)
			continue
		}
		survivors = append(survivors, conn)
	}
	return survivors, failed
}

func (c *Channel[T]) write(conn *Conn, frame []byte) error {
	if c.opts.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
			return err
		}
	}
	_, err := conn.Write(frame)
	return err
}
