package storage

import (
	"context"

	"github.com/openckai/sui-whale-ai-agent/internal/domain"
)

// WalletStore provides access to wallets storage.
type WalletStore interface {
	// Insert adds a new wallet. Returns ErrDuplicateKey if the address exists.
	Insert(ctx context.Context, w *domain.Wallet) error

	// GetByAddress retrieves a wallet. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, address string) (*domain.Wallet, error)

	// UpdateLabel replaces the wallet's label. Labels are the only mutable
	// wallet attribute. Returns ErrNotFound if the wallet does not exist.
	UpdateLabel(ctx context.Context, address string, label *string) error

	// List retrieves all wallets, ordered by address ASC.
	List(ctx context.Context) ([]*domain.Wallet, error)
}

// TokenStore provides access to tokens storage.
type TokenStore interface {
	// Insert adds a new token. Returns ErrDuplicateKey if the address exists.
	Insert(ctx context.Context, t *domain.Token) error

	// GetByAddress retrieves a token. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, address string) (*domain.Token, error)

	// UpdateMetadata corrects symbol/name/decimals. The address is immutable.
	// Returns ErrNotFound if the token does not exist.
	UpdateMetadata(ctx context.Context, address, symbol string, name *string, decimals int) error

	// List retrieves all tokens, ordered by address ASC.
	List(ctx context.Context) ([]*domain.Token, error)
}

// TransactionStore provides access to transactions storage.
type TransactionStore interface {
	// Insert adds a new transaction. Returns ErrDuplicateKey if tx_hash
	// exists. The uniqueness check and insert are atomic per hash.
	Insert(ctx context.Context, tx *domain.Transaction) error

	// GetByHash retrieves a transaction by hash. Returns ErrNotFound if not exists.
	GetByHash(ctx context.Context, txHash string) (*domain.Transaction, error)

	// GetByWallet retrieves all transactions for a wallet, ordered by block time ASC.
	GetByWallet(ctx context.Context, walletAddress string) ([]*domain.Transaction, error)

	// GetByToken retrieves all transactions referencing a token, ordered by block time ASC.
	GetByToken(ctx context.Context, tokenAddress string) ([]*domain.Transaction, error)
}

// AlertStore provides access to alerts storage.
type AlertStore interface {
	// Insert adds a new alert. Returns ErrDuplicateKey if an alert for the
	// same tx_hash exists. This constraint is what makes emission idempotent
	// under concurrent enrichment attempts.
	Insert(ctx context.Context, a *domain.Alert) error

	// GetByTxHash retrieves the alert for a transaction. Returns ErrNotFound if not exists.
	GetByTxHash(ctx context.Context, txHash string) (*domain.Alert, error)

	// GetByWallet retrieves all alerts for a wallet, ordered by creation ASC.
	GetByWallet(ctx context.Context, walletAddress string) ([]*domain.Alert, error)
}

// PriceSeriesStore provides access to the per-token price series.
type PriceSeriesStore interface {
	// Record appends a sample. The store assigns Seq in insertion order;
	// out-of-order timestamps are accepted.
	Record(ctx context.Context, p *domain.PricePoint) error

	// AsOf returns the sample with the greatest timestamp <= tsMs for the
	// token, breaking timestamp ties by insertion order (last recorded wins).
	// Returns ErrNotFound when no such sample exists.
	AsOf(ctx context.Context, tokenAddress string, tsMs int64) (*domain.PricePoint, error)

	// GetByToken retrieves all samples for a token, ordered by (timestamp, seq) ASC.
	GetByToken(ctx context.Context, tokenAddress string) ([]*domain.PricePoint, error)

	// GetByTimeRange retrieves samples for a token within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, tokenAddress string, start, end int64) ([]*domain.PricePoint, error)
}

// SentimentSeriesStore provides access to the per-token sentiment series.
type SentimentSeriesStore interface {
	// Record appends a sample. Same semantics as PriceSeriesStore.Record.
	Record(ctx context.Context, p *domain.SentimentPoint) error

	// AsOf returns the predecessor sample at tsMs with insertion-order
	// tie-break. Returns ErrNotFound when no such sample exists.
	AsOf(ctx context.Context, tokenAddress string, tsMs int64) (*domain.SentimentPoint, error)

	// GetByToken retrieves all samples for a token, ordered by (timestamp, seq) ASC.
	GetByToken(ctx context.Context, tokenAddress string) ([]*domain.SentimentPoint, error)
}

// CascadeResult reports what a wallet cascade removed.
type CascadeResult struct {
	AlertsDeleted       int
	TransactionsDeleted int
}

// WalletCascade removes a wallet together with everything it owns.
// Dependents are removed in a defined order (alerts, then transactions,
// then the wallet itself) and the removal is all-or-nothing.
// Token series are untouched: tokens are shared reference data.
type WalletCascade interface {
	// DeleteWallet removes the wallet and its dependents.
	// Returns ErrNotFound if the wallet does not exist.
	DeleteWallet(ctx context.Context, address string) (*CascadeResult, error)
}
