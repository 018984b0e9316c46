package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openckai/sui-whale-ai-agent/internal/domain"
	"github.com/openckai/sui-whale-ai-agent/internal/storage"
)

func TestTokenStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	tok := &domain.Token{
		Address:     "0xtoken",
		Symbol:      "WHL",
		Name:        ptr("Whale Token"),
		Decimals:    9,
		CreatedAtMs: 1700000000000,
	}
	require.NoError(t, store.Insert(ctx, tok))

	got, err := store.GetByAddress(ctx, "0xtoken")
	require.NoError(t, err)
	assert.Equal(t, "WHL", got.Symbol)
	require.NotNil(t, got.Name)
	assert.Equal(t, "Whale Token", *got.Name)
	assert.Equal(t, 9, got.Decimals)
}

func TestTokenStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &domain.Token{Address: "0xtoken", Symbol: "WHL", Decimals: 9, CreatedAtMs: 1}))

	err := store.Insert(ctx, &domain.Token{Address: "0xtoken", Symbol: "DUP", Decimals: 6, CreatedAtMs: 2})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTokenStore_UpdateMetadata(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &domain.Token{Address: "0xtoken", Symbol: "WHL", Decimals: 9, CreatedAtMs: 1}))

	require.NoError(t, store.UpdateMetadata(ctx, "0xtoken", "WHALE", ptr("Renamed"), 6))
	got, err := store.GetByAddress(ctx, "0xtoken")
	require.NoError(t, err)
	assert.Equal(t, "WHALE", got.Symbol)
	require.NotNil(t, got.Name)
	assert.Equal(t, "Renamed", *got.Name)
	assert.Equal(t, 6, got.Decimals)

	err = store.UpdateMetadata(ctx, "0xmissing", "X", nil, 18)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenStore_List(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	for _, addr := range []string{"0xccc", "0xaaa", "0xbbb"} {
		require.NoError(t, store.Insert(ctx, &domain.Token{Address: addr, Symbol: "T", Decimals: 18, CreatedAtMs: 1}))
	}

	tokens, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, "0xaaa", tokens[0].Address)
	assert.Equal(t, "0xbbb", tokens[1].Address)
	assert.Equal(t, "0xccc", tokens[2].Address)
}
