// Package leaderboard ranks retailers by the total points their receipts
// have earned. It is fed from receipt_scored events and kept entirely in
// memory.
package leaderboard

import (
	"context"
	"sync"

	"receiptkit/core"
)

// Entry is one retailer's standing.
type Entry struct {
	Retailer string
	Points   int64
}

// Board abstracts leaderboard operations.
type Board interface {
	Update(retailer string, points int64)
	Remove(retailer string)
	TopN(n int) []Entry
	Get(retailer string) (Entry, bool)
}

// Tracker accumulates per-retailer point totals from scoring events and
// keeps a Board current. Use it as an event bus handler:
//
//	svc.Subscribe(core.EventReceiptScored, tracker.OnEvent)
type Tracker struct {
	mu     sync.Mutex
	totals map[string]int64
	board  Board
}

func NewTracker(board Board) *Tracker {
	return &Tracker{totals: map[string]int64{}, board: board}
}

func (t *Tracker) OnEvent(_ context.Context, ev core.Event) {
	if ev.Type != core.EventReceiptScored || ev.Retailer == "" {
		return
	}
	t.mu.Lock()
	t.totals[ev.Retailer] += ev.Points
	total := t.totals[ev.Retailer]
	t.mu.Unlock()
	t.board.Update(ev.Retailer, total)
}

// Board returns the ranking the tracker maintains.
func (t *Tracker) Board() Board { return t.board }
