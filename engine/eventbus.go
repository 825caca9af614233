package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"receiptkit/core"
)

// Handler consumes one scoring event.
type Handler func(context.Context, core.Event)

// DispatchMode selects how scoring events reach subscribers.
type DispatchMode int

const (
	// DispatchSync runs handlers inline, so a receipt_scored handler
	// finishes before ProcessReceipt returns.
	DispatchSync DispatchMode = iota
	// DispatchAsync hands events to a worker pool; bursts of receipt
	// submissions never block on slow sinks (webhooks, websockets).
	DispatchAsync
)

const (
	defaultQueueSize = 2048
	defaultWorkers   = 4
)

// BusOption tunes an EventBus at construction.
type BusOption func(*EventBus)

// WithQueueSize sets the async queue capacity.
func WithQueueSize(n int) BusOption {
	return func(b *EventBus) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// WithWorkers sets the async worker count.
func WithWorkers(n int) BusOption {
	return func(b *EventBus) {
		if n > 0 {
			b.workers = n
		}
	}
}

// EventBus fans scoring events out to subscribers, inline or through a
// bounded queue drained by workers. A full queue drops events rather than
// blocking receipt processing; Dropped reports how many.
type EventBus struct {
	mode      DispatchMode
	queueSize int
	workers   int

	mu     sync.RWMutex
	nextID int64
	subs   map[core.EventType][]subscriber

	queue   chan core.Event
	dropped atomic.Int64
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

type subscriber struct {
	id int64
	fn Handler
}

func NewEventBus(mode DispatchMode, opts ...BusOption) *EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &EventBus{
		mode:      mode,
		queueSize: defaultQueueSize,
		workers:   defaultWorkers,
		subs:      make(map[core.EventType][]subscriber),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.queue = make(chan core.Event, b.queueSize)
	if mode == DispatchAsync {
		b.start()
	}
	return b
}

func (b *EventBus) start() {
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			for {
				select {
				case ev := <-b.queue:
					b.deliver(context.Background(), ev)
				case <-b.ctx.Done():
					return
				}
			}
		}()
	}
}

// Close stops the worker pool and waits for in-flight handlers to return.
// Queued but undelivered events are discarded.
func (b *EventBus) Close() {
	b.cancel()
	b.wg.Wait()
}

// Subscribe registers a handler for one event type and returns its
// unsubscribe func.
func (b *EventBus) Subscribe(typ core.EventType, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[typ] = append(b.subs[typ], subscriber{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[typ]
		for i, s := range list {
			if s.id == id {
				b.subs[typ] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// OnReceiptScored subscribes to receipt_scored events.
func (b *EventBus) OnReceiptScored(fn Handler) func() {
	return b.Subscribe(core.EventReceiptScored, fn)
}

// OnRulesReplaced subscribes to rules_replaced events.
func (b *EventBus) OnRulesReplaced(fn Handler) func() {
	return b.Subscribe(core.EventRulesReplaced, fn)
}

// Publish delivers an event per the dispatch mode.
func (b *EventBus) Publish(ctx context.Context, ev core.Event) {
	if b.mode == DispatchAsync {
		select {
		case b.queue <- ev:
		default:
			b.dropped.Add(1)
		}
		return
	}
	b.deliver(ctx, ev)
}

// Dropped reports how many events a full async queue has discarded.
func (b *EventBus) Dropped() int64 { return b.dropped.Load() }

func (b *EventBus) deliver(ctx context.Context, ev core.Event) {
	b.mu.RLock()
	list := b.subs[ev.Type]
	// copy so handlers run without holding the lock
	handlers := make([]Handler, len(list))
	for i, s := range list {
		handlers[i] = s.fn
	}
	b.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, ev)
	}
}
