package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"

	mem "receiptkit/adapters/memory"
	ws "receiptkit/adapters/websocket"
	"receiptkit/core"
	"receiptkit/engine"
	"receiptkit/realtime"
	"receiptkit/rulesdoc"
)

func main() {
	// Use readable text logging for development/demo
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(textHandler))

	store := mem.New()
	bus := engine.NewEventBus(engine.DispatchAsync)
	ruleEngine, err := engine.NewRuleEngine(rulesdoc.Default())
	if err != nil {
		slog.Error("default rules rejected", "error", err)
		os.Exit(1)
	}
	svc := engine.NewService(store, bus, ruleEngine)
	hub := realtime.NewHub()

	// Forward scoring events to WebSocket clients
	bus.OnReceiptScored(func(ctx context.Context, e core.Event) { hub.Broadcast(ctx, e) })
	bus.OnRulesReplaced(func(ctx context.Context, e core.Event) { hub.Broadcast(ctx, e) })

	http.Handle("/ws", ws.Handler(hub))
	http.HandleFunc("/receipts/", func(w http.ResponseWriter, r *http.Request) {
		// routes: POST /receipts/process, GET /receipts/{id}/points
		parts := split(r.URL.Path, '/')
		switch {
		case r.Method == http.MethodPost && len(parts) == 2 && parts[1] == "process":
			var receipt core.Receipt
			if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&receipt); err != nil {
				http.Error(w, "invalid receipt", http.StatusBadRequest)
				return
			}
			id, err := svc.ProcessReceipt(r.Context(), receipt)
			if errors.Is(err, core.ErrMalformedReceipt) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			writeJSON(w, map[string]any{"id": id})
		case r.Method == http.MethodGet && len(parts) == 3 && parts[2] == "points":
			points, err := svc.Points(r.Context(), parts[1])
			if errors.Is(err, core.ErrReceiptNotFound) {
				http.NotFound(w, r)
				return
			}
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			writeJSON(w, map[string]any{"points": points})
		default:
			http.NotFound(w, r)
		}
	})

	slog.Info("starting demo server on :8080", "rules", svc.RuleCount())

	if err := http.ListenAndServe(":8080", nil); err != nil {
		slog.Error("demo server crashed", "error", err)
		os.Exit(1)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func split(p string, sep rune) []string {
	var parts []string
	current := make([]rune, 0, len(p))

	for _, r := range p {
		if r == sep {
			if len(current) > 0 {
				parts = append(parts, string(current))
				current = current[:0]
			}
			continue
		}
		current = append(current, r)
	}

	if len(current) > 0 {
		parts = append(parts, string(current))
	}

	return parts
}
