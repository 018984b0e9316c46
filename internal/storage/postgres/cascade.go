package postgres

import (
	"context"
	"fmt"

	"github.com/openckai/sui-whale-ai-agent/internal/storage"
)

// Cascade implements storage.WalletCascade using a single database
// transaction: alerts are removed first, then transactions, then the
// wallet row. Rolls back on any failure, so the cascade is all-or-nothing.
type Cascade struct {
	pool *Pool
}

// NewCascade creates a new Cascade.
func NewCascade(pool *Pool) *Cascade {
	return &Cascade{pool: pool}
}

// Compile-time interface check.
var _ storage.WalletCascade = (*Cascade)(nil)

// DeleteWallet removes the wallet and everything it owns.
func (c *Cascade) DeleteWallet(ctx context.Context, address string) (*storage.CascadeResult, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	result := &storage.CascadeResult{}

	tag, err := tx.Exec(ctx, `DELETE FROM alerts WHERE wallet_address = $1`, address)
	if err != nil {
		return nil, fmt.Errorf("delete alerts: %w", err)
	}
	result.AlertsDeleted = int(tag.RowsAffected())

	tag, err = tx.Exec(ctx, `DELETE FROM transactions WHERE wallet_address = $1`, address)
	if err != nil {
		return nil, fmt.Errorf("delete transactions: %w", err)
	}
	result.TransactionsDeleted = int(tag.RowsAffected())

	tag, err = tx.Exec(ctx, `DELETE FROM wallets WHERE address = $1`, address)
	if err != nil {
		return nil, fmt.Errorf("delete wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, storage.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}
