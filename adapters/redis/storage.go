package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"receiptkit/core"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// ReceiptTTL expires stored receipts after the given duration.
	// Zero keeps them forever.
	ReceiptTTL time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Store implements the engine.Storage interface using Redis as the backend.
// Data structure:
// - receipt:{id} -> JSON blob of ScoredReceipt
// - receipts:count -> int64 (receipts processed)
// - rules_config -> serialized rule document
type Store struct {
	client     *redis.Client
	receiptTTL time.Duration
}

// New creates a new Redis-backed storage with the provided configuration
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client, receiptTTL: config.ReceiptTTL}, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

const (
	countKey = "receipts:count"
	rulesKey = "rules_config"
)

// receiptKey generates the Redis key for a stored receipt
func receiptKey(id string) string {
	return "receipt:" + id
}

// SaveScore persists the scored receipt and bumps the processed counter in
// one transaction.
func (s *Store) SaveScore(ctx context.Context, rec core.ScoredReceipt) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode receipt: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, receiptKey(rec.ID), data, s.receiptTTL)
		pipe.Incr(ctx, countKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save receipt: %w", err)
	}
	return nil
}

// GetScore retrieves a stored receipt by id.
func (s *Store) GetScore(ctx context.Context, id string) (core.ScoredReceipt, error) {
	data, err := s.client.Get(ctx, receiptKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.ScoredReceipt{}, core.ErrReceiptNotFound
	}
	if err != nil {
		return core.ScoredReceipt{}, fmt.Errorf("failed to get receipt: %w", err)
	}

	var rec core.ScoredReceipt
	if err := json.Unmarshal(data, &rec); err != nil {
		return core.ScoredReceipt{}, fmt.Errorf("failed to decode receipt: %w", err)
	}
	return rec, nil
}

// ProcessedCount reports how many receipts have been saved.
func (s *Store) ProcessedCount(ctx context.Context) (int64, error) {
	n, err := s.client.Get(ctx, countKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get processed count: %w", err)
	}
	return n, nil
}

// SaveRules persists the serialized rule document.
func (s *Store) SaveRules(ctx context.Context, doc []byte) error {
	if err := s.client.Set(ctx, rulesKey, doc, 0).Err(); err != nil {
		return fmt.Errorf("failed to save rules: %w", err)
	}
	return nil
}

// LoadRules retrieves the persisted rule document.
func (s *Store) LoadRules(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, rulesKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrRulesNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	return data, nil
}
