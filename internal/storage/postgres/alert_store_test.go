package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openckai/sui-whale-ai-agent/internal/domain"
	"github.com/openckai/sui-whale-ai-agent/internal/storage"
)

func TestAlertStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	seedWalletAndToken(t, pool)

	ctx := context.Background()
	require.NoError(t, NewTransactionStore(pool).Insert(ctx, seedTx("h1", 1000)))

	store := NewAlertStore(pool)
	alert := &domain.Alert{
		WalletAddress: "0xwallet",
		TxHash:        "h1",
		PriceAtTxn:    ptr(2.0),
		EnrichedScore: 0.42,
		CreatedAtMs:   1700000000000,
	}
	require.NoError(t, store.Insert(ctx, alert))
	assert.NotZero(t, alert.ID)

	got, err := store.GetByTxHash(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, alert.ID, got.ID)
	assert.Equal(t, 0.42, got.EnrichedScore)
	require.NotNil(t, got.PriceAtTxn)
	assert.Equal(t, 2.0, *got.PriceAtTxn)
	assert.False(t, got.LowConfidence)
}

func TestAlertStore_OneAlertPerTransaction(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	seedWalletAndToken(t, pool)

	ctx := context.Background()
	require.NoError(t, NewTransactionStore(pool).Insert(ctx, seedTx("h1", 1000)))

	store := NewAlertStore(pool)
	first := &domain.Alert{WalletAddress: "0xwallet", TxHash: "h1", EnrichedScore: 0.5, CreatedAtMs: 1}
	require.NoError(t, store.Insert(ctx, first))

	second := &domain.Alert{WalletAddress: "0xwallet", TxHash: "h1", EnrichedScore: 0.9, CreatedAtMs: 2}
	err := store.Insert(ctx, second)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// The first alert stands.
	got, err := store.GetByTxHash(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, 0.5, got.EnrichedScore)
}

func TestAlertStore_GetByWallet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	seedWalletAndToken(t, pool)

	ctx := context.Background()
	txStore := NewTransactionStore(pool)
	store := NewAlertStore(pool)

	for _, hash := range []string{"h1", "h2"} {
		require.NoError(t, txStore.Insert(ctx, seedTx(hash, 1000)))
		require.NoError(t, store.Insert(ctx, &domain.Alert{
			WalletAddress: "0xwallet", TxHash: hash, EnrichedScore: 1, CreatedAtMs: 1,
		}))
	}

	alerts, err := store.GetByWallet(ctx, "0xwallet")
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Less(t, alerts[0].ID, alerts[1].ID)
}
