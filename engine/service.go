package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"receiptkit/core"
)

// Service wires storage, event bus, and the rule engine into a cohesive
// API: submit a receipt, look its points up later, and swap the rule set.
type Service struct {
	storage Storage
	bus     *EventBus
	engine  *RuleEngine
}

func NewService(storage Storage, bus *EventBus, engine *RuleEngine) *Service {
	if storage == nil || bus == nil || engine == nil {
		panic("NewService requires non-nil storage, bus, and engine")
	}
	return &Service{storage: storage, bus: bus, engine: engine}
}

// Subscribe convenience method.
func (s *Service) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	return s.bus.Subscribe(typ, handler)
}

func (s *Service) Publish(ctx context.Context, ev core.Event) {
	s.bus.Publish(ctx, ev)
}

// ProcessReceipt scores a receipt against the active rule set, persists the
// result under a fresh id, and publishes a receipt_scored event. The
// service holds no reference to the receipt once it returns.
func (s *Service) ProcessReceipt(ctx context.Context, r core.Receipt) (string, error) {
	score, err := s.engine.Score(r)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	rec := core.ScoredReceipt{
		ID:       id,
		Receipt:  r,
		Points:   score.Total,
		ScoredAt: time.Now().UTC(),
	}
	if err := s.storage.SaveScore(ctx, rec); err != nil {
		return "", err
	}

	matched := 0
	for _, rs := range score.Rules {
		if rs.Matched {
			matched++
		}
	}
	s.bus.Publish(ctx, core.NewReceiptScored(id, r.Retailer, score.Total, matched))
	return id, nil
}

// Points returns the stored points for a previously processed receipt.
func (s *Service) Points(ctx context.Context, id string) (int64, error) {
	rec, err := s.storage.GetScore(ctx, id)
	if err != nil {
		return 0, err
	}
	return rec.Points, nil
}

// Receipt returns the full stored record for a previously processed receipt.
func (s *Service) Receipt(ctx context.Context, id string) (core.ScoredReceipt, error) {
	return s.storage.GetScore(ctx, id)
}

// ReplaceRules swaps the active rule set wholesale after validation.
func (s *Service) ReplaceRules(ctx context.Context, rs core.RuleSet) error {
	if err := s.engine.Replace(rs); err != nil {
		return err
	}
	s.bus.Publish(ctx, core.NewRulesReplaced(len(rs.Rules)))
	return nil
}

// CurrentRules returns a copy of the active rule set.
func (s *Service) CurrentRules() core.RuleSet {
	return s.engine.Rules()
}

// RuleCount reports the number of active rules.
func (s *Service) RuleCount() int {
	return s.engine.Len()
}

// RulesStore exposes the storage backend's rule-document persistence when
// it has any.
func (s *Service) RulesStore() (RulesStore, bool) {
	rs, ok := s.storage.(RulesStore)
	return rs, ok
}

func (s *Service) Close() { s.bus.Close() }
