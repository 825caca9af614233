package analytics

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// Report is a point-in-time snapshot of the aggregated metrics, in a shape
// fit for serialization.
type Report struct {
	GeneratedAt time.Time        `json:"generated_at"`
	ReceiptsDay map[string]int64 `json:"receipts_by_day"`
	PointsDay   map[string]int64 `json:"points_by_day"`
	Retailers   []RetailerStats  `json:"retailers"`
	RuleSwaps   int              `json:"rule_swaps"`
}

// Snapshot builds a report from the current counters.
func (m *Metrics) Snapshot() Report {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rep := Report{
		GeneratedAt: time.Now().UTC(),
		ReceiptsDay: make(map[string]int64, len(m.receiptsByDay)),
		PointsDay:   make(map[string]int64, len(m.pointsByDay)),
		Retailers:   make([]RetailerStats, 0, len(m.byRetailer)),
		RuleSwaps:   len(m.ruleSwaps),
	}
	for k, v := range m.receiptsByDay {
		rep.ReceiptsDay[k] = v
	}
	for k, v := range m.pointsByDay {
		rep.PointsDay[k] = v
	}
	for _, rs := range m.byRetailer {
		rep.Retailers = append(rep.Retailers, *rs)
	}
	sort.Slice(rep.Retailers, func(i, j int) bool {
		if rep.Retailers[i].Points == rep.Retailers[j].Points {
			return rep.Retailers[i].Retailer < rep.Retailers[j].Retailer
		}
		return rep.Retailers[i].Points > rep.Retailers[j].Points
	})
	return rep
}

// WriteJSON serializes a snapshot of the metrics as indented JSON.
func (m *Metrics) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m.Snapshot())
}

// WriteCSV writes the per-retailer standings as CSV with a header row.
func (m *Metrics) WriteCSV(w io.Writer) error {
	rep := m.Snapshot()
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"retailer", "receipts", "points"}); err != nil {
		return err
	}
	for _, rs := range rep.Retailers {
		row := []string{rs.Retailer, fmt.Sprintf("%d", rs.Receipts), fmt.Sprintf("%d", rs.Points)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
