package memory

import (
	"context"
	"sync"

	"github.com/openckai/sui-whale-ai-agent/internal/storage"
)

// Cascade implements storage.WalletCascade over the in-memory stores.
// Dependents are removed alerts-first, then transactions, then the wallet.
// A cascade-wide mutex keeps concurrent cascades from interleaving; the
// in-process removal cannot partially fail, so the operation is all-or-nothing.
type Cascade struct {
	mu           sync.Mutex
	wallets      *WalletStore
	transactions *TransactionStore
	alerts       *AlertStore
}

// NewCascade creates a cascade over the given memory stores.
func NewCascade(wallets *WalletStore, transactions *TransactionStore, alerts *AlertStore) *Cascade {
	return &Cascade{
		wallets:      wallets,
		transactions: transactions,
		alerts:       alerts,
	}
}

var _ storage.WalletCascade = (*Cascade)(nil)

// DeleteWallet removes the wallet and everything it owns.
func (c *Cascade) DeleteWallet(ctx context.Context, address string) (*storage.CascadeResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.wallets.GetByAddress(ctx, address); err != nil {
		return nil, err
	}

	result := &storage.CascadeResult{}
	result.AlertsDeleted = c.alerts.deleteByWallet(address)
	result.TransactionsDeleted = c.transactions.deleteByWallet(address)
	c.wallets.delete(address)

	return result, nil
}
