package engine

import (
	"context"

	"receiptkit/core"
)

// Storage abstracts persistence for scored receipts. The engine itself
// never touches storage; the service stores (receipt, points) under a
// generated id and later answers point lookups by id.
type Storage interface {
	SaveScore(ctx context.Context, rec core.ScoredReceipt) error
	GetScore(ctx context.Context, id string) (core.ScoredReceipt, error)
}

// RulesStore is implemented by storage backends that can also persist the
// serialized rule document, so a restart resumes with the last active
// configuration. LoadRules returns core.ErrRulesNotFound when nothing has
// been stored yet.
type RulesStore interface {
	SaveRules(ctx context.Context, doc []byte) error
	LoadRules(ctx context.Context) ([]byte, error)
}
