package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"receiptkit/core"
)

// Hook receives scoring events for KPI aggregation.
type Hook interface {
	OnEvent(ctx context.Context, e core.Event)
}

// RetailerStats is the aggregate standing of one retailer.
type RetailerStats struct {
	Retailer string `json:"retailer"`
	Receipts int64  `json:"receipts"`
	Points   int64  `json:"points"`
}

// Metrics aggregates receipt scoring activity: volumes per day, week, and
// month, points awarded per day, and per-retailer totals. All counters are
// in memory; the process restart resets them.
type Metrics struct {
	mu sync.RWMutex

	// Volume metrics
	receiptsByDay   map[string]int64
	receiptsByWeek  map[string]int64
	receiptsByMonth map[string]int64

	// Points metrics
	pointsByDay map[string]int64

	// Retailer metrics
	byRetailer map[string]*RetailerStats

	// Rule swap audit trail
	ruleSwaps []time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{
		receiptsByDay:   make(map[string]int64),
		receiptsByWeek:  make(map[string]int64),
		receiptsByMonth: make(map[string]int64),
		pointsByDay:     make(map[string]int64),
		byRetailer:      make(map[string]*RetailerStats),
	}
}

func (m *Metrics) OnEvent(_ context.Context, e core.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch e.Type {
	case core.EventReceiptScored:
		day := e.Time.UTC().Format("2006-01-02")
		m.receiptsByDay[day]++
		m.receiptsByWeek[weekKey(e.Time)]++
		m.receiptsByMonth[monthKey(e.Time)]++
		m.pointsByDay[day] += e.Points

		rs := m.byRetailer[e.Retailer]
		if rs == nil {
			rs = &RetailerStats{Retailer: e.Retailer}
			m.byRetailer[e.Retailer] = rs
		}
		rs.Receipts++
		rs.Points += e.Points

	case core.EventRulesReplaced:
		m.ruleSwaps = append(m.ruleSwaps, e.Time)
	}
}

// ReceiptsByDay returns the receipt count for a YYYY-MM-DD day.
func (m *Metrics) ReceiptsByDay(day string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.receiptsByDay[day]
}

// ReceiptsByWeek returns the receipt count for an ISO week key like 2022-W01.
func (m *Metrics) ReceiptsByWeek(week string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.receiptsByWeek[week]
}

// ReceiptsByMonth returns the receipt count for a YYYY-MM month.
func (m *Metrics) ReceiptsByMonth(month string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.receiptsByMonth[month]
}

// PointsByDay returns the points awarded on a YYYY-MM-DD day.
func (m *Metrics) PointsByDay(day string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pointsByDay[day]
}

// Retailer returns one retailer's aggregate stats.
func (m *Metrics) Retailer(name string) (RetailerStats, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rs, ok := m.byRetailer[name]; ok {
		return *rs, true
	}
	return RetailerStats{}, false
}

// TopRetailers returns up to limit retailers ordered by total points.
func (m *Metrics) TopRetailers(limit int) []RetailerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]RetailerStats, 0, len(m.byRetailer))
	for _, rs := range m.byRetailer {
		out = append(out, *rs)
	}
	// insertion sort; retailer counts stay small
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Points > out[j-1].Points; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// RuleSwapCount reports how many rule-set replacements have happened.
func (m *Metrics) RuleSwapCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ruleSwaps)
}

func weekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

var _ Hook = (*Metrics)(nil)
