package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"receiptkit/core"
)

func scoredAt(day string, id, retailer string, points int64) core.Event {
	ev := core.NewReceiptScored(id, retailer, points, 4)
	t, _ := time.Parse("2006-01-02", day)
	ev.Time = t
	return ev
}

func TestMetricsAggregation(t *testing.T) {
	m := NewMetrics()
	ctx := context.Background()

	m.OnEvent(ctx, scoredAt("2022-01-01", "r1", "Target", 20))
	m.OnEvent(ctx, scoredAt("2022-01-01", "r2", "Walgreens", 15))
	m.OnEvent(ctx, scoredAt("2022-01-02", "r3", "Target", 10))
	m.OnEvent(ctx, core.NewRulesReplaced(7))

	if got := m.ReceiptsByDay("2022-01-01"); got != 2 {
		t.Errorf("receipts on 2022-01-01 = %d, want 2", got)
	}
	if got := m.ReceiptsByDay("2022-01-02"); got != 1 {
		t.Errorf("receipts on 2022-01-02 = %d, want 1", got)
	}
	if got := m.PointsByDay("2022-01-01"); got != 35 {
		t.Errorf("points on 2022-01-01 = %d, want 35", got)
	}
	// 2022-01-01 falls in ISO week 2021-W52
	if got := m.ReceiptsByWeek("2021-W52"); got != 3 {
		t.Errorf("receipts in 2021-W52 = %d, want 3", got)
	}
	if got := m.ReceiptsByMonth("2022-01"); got != 3 {
		t.Errorf("receipts in 2022-01 = %d, want 3", got)
	}
	if got := m.RuleSwapCount(); got != 1 {
		t.Errorf("rule swaps = %d, want 1", got)
	}

	target, ok := m.Retailer("Target")
	if !ok || target.Receipts != 2 || target.Points != 30 {
		t.Errorf("Target stats = %+v ok=%v", target, ok)
	}

	top := m.TopRetailers(1)
	if len(top) != 1 || top[0].Retailer != "Target" {
		t.Errorf("top retailers = %+v", top)
	}
}

func TestWriteJSON(t *testing.T) {
	m := NewMetrics()
	m.OnEvent(context.Background(), scoredAt("2022-01-01", "r1", "Target", 20))

	var buf bytes.Buffer
	if err := m.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var rep Report
	if err := json.Unmarshal(buf.Bytes(), &rep); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rep.ReceiptsDay["2022-01-01"] != 1 || rep.PointsDay["2022-01-01"] != 20 {
		t.Errorf("report = %+v", rep)
	}
	if len(rep.Retailers) != 1 || rep.Retailers[0].Retailer != "Target" {
		t.Errorf("retailers = %+v", rep.Retailers)
	}
}

func TestWriteCSV(t *testing.T) {
	m := NewMetrics()
	ctx := context.Background()
	m.OnEvent(ctx, scoredAt("2022-01-01", "r1", "Target", 20))
	m.OnEvent(ctx, scoredAt("2022-01-01", "r2", "Walgreens", 35))

	var buf bytes.Buffer
	if err := m.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("csv lines = %d, want 3:\n%s", len(lines), buf.String())
	}
	if lines[0] != "retailer,receipts,points" {
		t.Errorf("header = %q", lines[0])
	}
	// ordered by points, Walgreens first
	if !strings.HasPrefix(lines[1], "Walgreens,1,35") {
		t.Errorf("first row = %q", lines[1])
	}
}
