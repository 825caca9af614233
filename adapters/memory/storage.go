package memory

import (
	"context"
	"sync"

	"receiptkit/core"
)

// Store is a concurrent in-memory Storage implementation.
type Store struct {
	recs sync.Map // map[string]core.ScoredReceipt

	rulesMu sync.RWMutex
	rules   []byte
}

func New() *Store { return &Store{} }

func (s *Store) SaveScore(_ context.Context, rec core.ScoredReceipt) error {
	s.recs.Store(rec.ID, rec)
	return nil
}

func (s *Store) GetScore(_ context.Context, id string) (core.ScoredReceipt, error) {
	v, ok := s.recs.Load(id)
	if !ok {
		return core.ScoredReceipt{}, core.ErrReceiptNotFound
	}
	return v.(core.ScoredReceipt), nil
}

// SaveRules keeps the serialized rule document so a restart can resume
// with the last active configuration.
func (s *Store) SaveRules(_ context.Context, doc []byte) error {
	s.rulesMu.Lock()
	defer s.rulesMu.Unlock()
	s.rules = append([]byte(nil), doc...)
	return nil
}

func (s *Store) LoadRules(_ context.Context) ([]byte, error) {
	s.rulesMu.RLock()
	defer s.rulesMu.RUnlock()
	if s.rules == nil {
		return nil, core.ErrRulesNotFound
	}
	return append([]byte(nil), s.rules...), nil
}

var _ interface {
	SaveScore(context.Context, core.ScoredReceipt) error
	GetScore(context.Context, string) (core.ScoredReceipt, error)
	SaveRules(context.Context, []byte) error
	LoadRules(context.Context) ([]byte, error)
} = (*Store)(nil)
