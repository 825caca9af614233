package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receiptkit/core"
)

// newTestClient spins up a miniredis server and returns a client plus cleanup.
func newTestClient(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}
	return client, cleanup
}

func sampleReceipt(id string) core.ScoredReceipt {
	return core.ScoredReceipt{
		ID: id,
		Receipt: core.Receipt{
			Retailer:     "Target",
			PurchaseDate: "2022-01-01",
			PurchaseTime: "13:01",
			Items: []core.Item{
				{ShortDescription: "Mountain Dew 12PK", Price: "6.49"},
				{ShortDescription: "Emils Cheese Pizza", Price: "12.25"},
			},
			Total: "18.74",
		},
		Points:   20,
		ScoredAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestStore_SaveAndGetScore(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client)
	ctx := context.Background()

	rec := sampleReceipt("r1")
	require.NoError(t, store.SaveScore(ctx, rec))

	got, err := store.GetScore(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, int64(20), got.Points)
	assert.Equal(t, "Target", got.Receipt.Retailer)
	assert.Len(t, got.Receipt.Items, 2)
	assert.True(t, rec.ScoredAt.Equal(got.ScoredAt))
}

func TestStore_GetScore_Missing(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client)

	_, err := store.GetScore(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, core.ErrReceiptNotFound)
}

func TestStore_ProcessedCount(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client)
	ctx := context.Background()

	n, err := store.ProcessedCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	require.NoError(t, store.SaveScore(ctx, sampleReceipt("r1")))
	require.NoError(t, store.SaveScore(ctx, sampleReceipt("r2")))

	n, err = store.ProcessedCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestStore_ReceiptTTL(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client)
	store.receiptTTL = time.Minute
	ctx := context.Background()

	require.NoError(t, store.SaveScore(ctx, sampleReceipt("r1")))

	ttl, err := client.TTL(ctx, receiptKey("r1")).Result()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)
}

func TestStore_Rules(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client)
	ctx := context.Background()

	_, err := store.LoadRules(ctx)
	assert.ErrorIs(t, err, core.ErrRulesNotFound)

	doc := []byte("rules:\n  - name: odd_purchase_day\n")
	require.NoError(t, store.SaveRules(ctx, doc))

	got, err := store.LoadRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestConfig_DefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "localhost:6379", config.Addr)
	assert.Equal(t, "", config.Password)
	assert.Equal(t, 0, config.DB)
	assert.Equal(t, 10, config.PoolSize)
	assert.Equal(t, 2, config.MinIdleConns)
	assert.Equal(t, 5*time.Second, config.DialTimeout)
	assert.Equal(t, 3*time.Second, config.ReadTimeout)
	assert.Equal(t, 3*time.Second, config.WriteTimeout)
	assert.Equal(t, time.Duration(0), config.ReceiptTTL)
}
