package receipts

import (
	"context"
	"sync"
	"testing"

	mem "receiptkit/adapters/memory"
	"receiptkit/analytics"
	"receiptkit/core"
	"receiptkit/engine"
	"receiptkit/leaderboard"
	"receiptkit/realtime"
)

func sampleReceipt() core.Receipt {
	return core.Receipt{
		Retailer:     "Target",
		PurchaseDate: "2022-01-01",
		PurchaseTime: "13:01",
		Total:        "18.74",
		Items: []core.Item{
			{ShortDescription: "Mountain Dew 12PK", Price: "6.49"},
			{ShortDescription: "Emils Cheese Pizza", Price: "12.25"},
		},
	}
}

func TestNewDefaultsAndOptions(t *testing.T) {
	hub := realtime.NewHub()
	svc := New(
		WithRealtime(hub),
		WithStorage(mem.New()),
		WithDispatchMode(engine.DispatchSync),
	)
	defer svc.Close()

	ch, cancel := hub.Subscribe(1)
	defer cancel()

	id, err := svc.ProcessReceipt(context.Background(), sampleReceipt())
	if err != nil {
		t.Fatalf("process receipt: %v", err)
	}
	pts, err := svc.Points(context.Background(), id)
	if err != nil || pts != 20 {
		t.Fatalf("points=%d err=%v", pts, err)
	}

	// realtime bridge should receive the scored event
	ev := <-ch
	if ev.Type != core.EventReceiptScored || ev.ReceiptID != id {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestInMemoryFallback(t *testing.T) {
	svc := New(WithDispatchMode(engine.DispatchSync))
	defer svc.Close()

	id, err := svc.ProcessReceipt(context.Background(), sampleReceipt())
	if err != nil {
		t.Fatalf("fallback process: %v", err)
	}
	rec, err := svc.Receipt(context.Background(), id)
	if err != nil {
		t.Fatalf("fallback lookup: %v", err)
	}
	if rec.Points != 20 || rec.Receipt.Retailer != "Target" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestFallbackStoreConcurrentUse(t *testing.T) {
	svc := New(WithDispatchMode(engine.DispatchSync))
	defer svc.Close()

	const n = 32
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := svc.ProcessReceipt(context.Background(), sampleReceipt())
			if err != nil {
				t.Errorf("process receipt: %v", err)
				return
			}
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		pts, err := svc.Points(context.Background(), id)
		if err != nil || pts != 20 {
			t.Fatalf("points(%s) = %d err=%v", id, pts, err)
		}
	}
}

func TestSinksReceiveEvents(t *testing.T) {
	metrics := analytics.NewMetrics()
	tracker := leaderboard.NewTracker(leaderboard.NewSkipList())
	svc := New(
		WithDispatchMode(engine.DispatchSync),
		WithAnalytics(metrics),
		WithLeaderboard(tracker),
	)
	defer svc.Close()

	if _, err := svc.ProcessReceipt(context.Background(), sampleReceipt()); err != nil {
		t.Fatalf("process receipt: %v", err)
	}

	stats, ok := metrics.Retailer("Target")
	if !ok || stats.Points != 20 {
		t.Fatalf("metrics stats = %+v ok=%v", stats, ok)
	}
	entry, ok := tracker.Board().Get("Target")
	if !ok || entry.Points != 20 {
		t.Fatalf("board entry = %+v ok=%v", entry, ok)
	}
}
