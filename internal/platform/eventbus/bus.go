// Package eventbus delivers domain events to subscribers off the publisher's
// goroutine.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"hrdms/internal/events"
)

// HandlerFunc receives one event. Handlers must not assume any ordering
// across events.
type HandlerFunc func(ctx context.Context, e events.Event)

// Publisher is the side business use cases see.
type Publisher interface {
	Publish(ctx context.Context, e events.Event)
}

// Subscriber registers handlers by event name.
type Subscriber interface {
	Subscribe(name events.Name, h HandlerFunc)
}

const (
	defaultWorkers = 4
	defaultBuffer  = 1024
)

var ErrClosed = errors.New("event bus closed")

type delivery struct {
	ctx      context.Context
	event    events.Event
	handlers []HandlerFunc
}

// Bus is an in-process bus backed by a bounded queue and a fixed worker pool.
// Publish never blocks: when the queue is full the event is dropped.
type Bus struct {
	logger  *slog.Logger
	workers int
	queue   chan delivery
	onDrop  func(events.Event)

	mu       sync.RWMutex
	handlers map[events.Name][]HandlerFunc
	closed   bool

	wg      sync.WaitGroup
	dropped atomic.Int64
}

type Option func(*Bus)

func WithWorkers(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.workers = n
		}
	}
}

func WithBuffer(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.queue = make(chan delivery, n)
		}
	}
}

// WithDropHook is called for every event the bus could not enqueue.
func WithDropHook(fn func(events.Event)) Option {
	return func(b *Bus) {
		b.onDrop = fn
	}
}

// New starts the worker pool. Call Close to stop it.
func New(logger *slog.Logger, opts ...Option) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bus{
		logger:   logger,
		workers:  defaultWorkers,
		queue:    make(chan delivery, defaultBuffer),
		handlers: make(map[events.Name][]HandlerFunc),
	}
	for _, opt := range opts {
		opt(b)
	}
	for range b.workers {
		b.wg.Add(1)
		go b.run()
	}
	return b
}

func (b *Bus) Subscribe(name events.Name, h HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish enqueues e for every handler subscribed to its name. The delivery
// context keeps ctx's values but not its cancellation.
func (b *Bus) Publish(ctx context.Context, e events.Event) {
	if e == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.drop(ctx, e, ErrClosed)
		return
	}
	handlers := b.handlers[e.EventName()]
	if len(handlers) == 0 {
		return
	}
	d := delivery{
		ctx:      context.WithoutCancel(ctx),
		event:    e,
		handlers: append([]HandlerFunc(nil), handlers...),
	}
	select {
	case b.queue <- d:
	default:
		b.drop(ctx, e, fmt.Errorf("queue full (%d)", cap(b.queue)))
	}
}

// Dispatch runs every handler subscribed to e's name on the calling
// goroutine and returns when they are done.
func (b *Bus) Dispatch(ctx context.Context, e events.Event) {
	if e == nil {
		return
	}
	b.mu.RLock()
	handlers := append([]HandlerFunc(nil), b.handlers[e.EventName()]...)
	b.mu.RUnlock()
	for _, h := range handlers {
		b.invoke(ctx, e, h)
	}
}

func (b *Bus) drop(ctx context.Context, e events.Event, reason error) {
	b.dropped.Add(1)
	b.logger.WarnContext(ctx, "event dropped",
		"event_name", e.EventName(),
		"event_id", e.EventID(),
		"error", reason,
	)
	if b.onDrop != nil {
		b.onDrop(e)
	}
}

func (b *Bus) run() {
	defer b.wg.Done()
	for d := range b.queue {
		for _, h := range d.handlers {
			b.invoke(d.ctx, d.event, h)
		}
	}
}

func (b *Bus) invoke(ctx context.Context, e events.Event, h HandlerFunc) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.ErrorContext(ctx, "event handler panicked",
				"event_name", e.EventName(),
				"event_id", e.EventID(),
				"panic", r,
			)
		}
	}()
	h(ctx, e)
}

// Dropped returns how many events were never delivered.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Close stops accepting events and waits for queued ones to be handled, or
// for ctx to end.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain event bus: %w", ctx.Err())
	}
}
