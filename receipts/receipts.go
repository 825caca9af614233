// Package receipts is the batteries-included entry point: it assembles a
// scoring service from options and bridges its events to the optional
// sinks (realtime hub, webhooks, analytics, leaderboard).
package receipts

import (
	"context"
	"sync"

	"receiptkit/analytics"
	"receiptkit/core"
	"receiptkit/engine"
	"receiptkit/integrations/webhook"
	"receiptkit/leaderboard"
	"receiptkit/realtime"
	"receiptkit/rulesdoc"
)

// Option configures the service builder.
type Option func(*config)

type config struct {
	storage engine.Storage
	mode    engine.DispatchMode
	busOpts []engine.BusOption
	rules   *core.RuleSet
	hub     *realtime.Hub
	sink    *webhook.Sink
	metrics *analytics.Metrics
	tracker *leaderboard.Tracker
}

// WithStorage sets the persistence adapter.
func WithStorage(s engine.Storage) Option { return func(c *config) { c.storage = s } }

// WithRules sets the initial rule set. It must already be valid; New
// panics on a set the engine rejects.
func WithRules(rs core.RuleSet) Option { return func(c *config) { c.rules = &rs } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(c *config) { c.mode = m } }

// WithEventTuning sizes the async dispatch queue and worker pool.
func WithEventTuning(queueSize, workers int) Option {
	return func(c *config) {
		c.busOpts = append(c.busOpts, engine.WithQueueSize(queueSize), engine.WithWorkers(workers))
	}
}

// WithRealtime wires a realtime hub to receive all scoring events.
func WithRealtime(h *realtime.Hub) Option { return func(c *config) { c.hub = h } }

// WithWebhook posts every scoring event to the sink's endpoints.
func WithWebhook(s *webhook.Sink) Option { return func(c *config) { c.sink = s } }

// WithAnalytics feeds scoring events into the metrics aggregator.
func WithAnalytics(m *analytics.Metrics) Option { return func(c *config) { c.metrics = m } }

// WithLeaderboard feeds scored receipts into the retailer standings.
func WithLeaderboard(t *leaderboard.Tracker) Option { return func(c *config) { c.tracker = t } }

// New builds a configured scoring service. If not provided, defaults are
// used:
//   - storage: in-memory
//   - rules: the built-in default set
//   - dispatch: async
func New(opts ...Option) *engine.Service {
	cfg := &config{mode: engine.DispatchAsync}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.storage == nil {
		cfg.storage = newMemStore()
	}
	rules := rulesdoc.Default()
	if cfg.rules != nil {
		rules = *cfg.rules
	}
	eng, err := engine.NewRuleEngine(rules)
	if err != nil {
		panic("receipts: invalid initial rule set: " + err.Error())
	}

	bus := engine.NewEventBus(cfg.mode, cfg.busOpts...)
	svc := engine.NewService(cfg.storage, bus, eng)

	for _, typ := range []core.EventType{core.EventReceiptScored, core.EventRulesReplaced} {
		if cfg.hub != nil {
			bus.Subscribe(typ, cfg.hub.Broadcast)
		}
		if cfg.sink != nil {
			bus.Subscribe(typ, cfg.sink.OnEvent)
		}
		if cfg.metrics != nil {
			bus.Subscribe(typ, cfg.metrics.OnEvent)
		}
		if cfg.tracker != nil {
			bus.Subscribe(typ, cfg.tracker.OnEvent)
		}
	}
	return svc
}

// memStore mirrors adapters/memory so New() stays usable without picking
// an adapter; production callers pass explicit storage.
type memStore struct {
	mu   sync.Mutex
	data map[string]core.ScoredReceipt
}

func newMemStore() *memStore {
	return &memStore{data: map[string]core.ScoredReceipt{}}
}

func (s *memStore) SaveScore(_ context.Context, rec core.ScoredReceipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[rec.ID] = rec
	return nil
}

func (s *memStore) GetScore(_ context.Context, id string) (core.ScoredReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.data[id]
	if !ok {
		return core.ScoredReceipt{}, core.ErrReceiptNotFound
	}
	return rec, nil
}
