package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"receiptkit/core"
)

func TestEventBusSyncDispatch(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	defer bus.Close()

	var got []core.Event
	bus.OnReceiptScored(func(_ context.Context, ev core.Event) {
		got = append(got, ev)
	})
	bus.OnRulesReplaced(func(_ context.Context, ev core.Event) {
		t.Errorf("handler for %s received %s", core.EventRulesReplaced, ev.Type)
	})

	bus.Publish(context.Background(), core.NewReceiptScored("r1", "Target", 20, 4))
	bus.Publish(context.Background(), core.NewReceiptScored("r2", "Walgreens", 15, 3))

	if len(got) != 2 {
		t.Fatalf("received %d events, want 2", len(got))
	}
	if got[0].ReceiptID != "r1" || got[1].ReceiptID != "r2" {
		t.Errorf("events out of order: %v", got)
	}
	if got[0].Points != 20 || got[0].Retailer != "Target" {
		t.Errorf("event payload = %+v", got[0])
	}
}

func TestEventBusAsyncDispatch(t *testing.T) {
	bus := NewEventBus(DispatchAsync)
	defer bus.Close()

	var (
		mu    sync.Mutex
		count int
		done  = make(chan struct{})
	)
	bus.Subscribe(core.EventRulesReplaced, func(_ context.Context, ev core.Event) {
		mu.Lock()
		count++
		if count == 3 {
			close(done)
		}
		mu.Unlock()
	})

	for i := 0; i < 3; i++ {
		bus.Publish(context.Background(), core.NewRulesReplaced(7))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async handlers did not run")
	}
}

func TestEventBusDropsWhenQueueFull(t *testing.T) {
	bus := NewEventBus(DispatchAsync, WithQueueSize(1), WithWorkers(1))
	defer bus.Close()

	started := make(chan struct{})
	gate := make(chan struct{})
	var (
		mu        sync.Mutex
		delivered int
	)
	bus.OnReceiptScored(func(_ context.Context, ev core.Event) {
		mu.Lock()
		delivered++
		first := delivered == 1
		mu.Unlock()
		if first {
			close(started)
			<-gate
		}
	})

	ctx := context.Background()
	bus.Publish(ctx, core.NewReceiptScored("r1", "Target", 20, 4))
	<-started // the single worker is now parked in the handler

	bus.Publish(ctx, core.NewReceiptScored("r2", "Target", 20, 4)) // fills the queue
	bus.Publish(ctx, core.NewReceiptScored("r3", "Target", 20, 4)) // no room left

	if got := bus.Dropped(); got != 1 {
		t.Fatalf("dropped = %d, want 1", got)
	}

	close(gate)
	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := delivered
		mu.Unlock()
		if n == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("delivered = %d, want 2", n)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	defer bus.Close()

	count := 0
	unsub := bus.Subscribe(core.EventReceiptScored, func(context.Context, core.Event) {
		count++
	})

	bus.Publish(context.Background(), core.NewReceiptScored("r1", "Target", 20, 4))
	unsub()
	bus.Publish(context.Background(), core.NewReceiptScored("r2", "Target", 20, 4))

	if count != 1 {
		t.Fatalf("handler ran %d times, want 1", count)
	}
}
