// Package ledger is the authoritative, deduplicated record of observed
// transactions and the registry of wallets and tokens they reference.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openckai/sui-whale-ai-agent/internal/domain"
	"github.com/openckai/sui-whale-ai-agent/internal/retry"
	"github.com/openckai/sui-whale-ai-agent/internal/storage"
)

// Validation errors surfaced synchronously by Submit. None of them cause
// any state change.
var (
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrUnknownWallet          = errors.New("unknown wallet")
	ErrUnknownToken           = errors.New("unknown token")
)

// SubmitStatus is the definite outcome of a submit call.
type SubmitStatus string

const (
	// StatusAccepted means the transaction was recorded for the first time.
	StatusAccepted SubmitStatus = "accepted"
	// StatusDuplicate means the hash was already recorded. No side effect.
	StatusDuplicate SubmitStatus = "duplicate"
)

// SubmitRequest is the ingestion adapter's view of a transaction.
type SubmitRequest struct {
	WalletAddress string
	TokenAddress  string
	Amount        float64
	USDValue      *float64
	TxType        string
	BlockTimeMs   int64
	TxHash        string
}

// SubmitResult reports the outcome of a submit call. Transaction is set
// only when the status is StatusAccepted.
type SubmitResult struct {
	Status      SubmitStatus
	Transaction *domain.Transaction
}

// Ledger validates and records transactions and owns the wallet/token
// registries, including the wallet delete cascade.
type Ledger struct {
	wallets      storage.WalletStore
	tokens       storage.TokenStore
	transactions storage.TransactionStore
	alerts       storage.AlertStore
	cascade      storage.WalletCascade

	retryCfg retry.Config
	now      func() time.Time
}

// Options for creating a Ledger.
type Options struct {
	WalletStore      storage.WalletStore
	TokenStore       storage.TokenStore
	TransactionStore storage.TransactionStore
	AlertStore       storage.AlertStore
	Cascade          storage.WalletCascade

	// RetryConfig bounds retries of transient storage failures.
	// Zero value means retry.DefaultConfig.
	RetryConfig retry.Config

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// New creates a new Ledger.
func New(opts Options) *Ledger {
	cfg := opts.RetryConfig
	if cfg.MaxAttempts == 0 {
		cfg = retry.DefaultConfig()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		wallets:      opts.WalletStore,
		tokens:       opts.TokenStore,
		transactions: opts.TransactionStore,
		alerts:       opts.AlertStore,
		cascade:      opts.Cascade,
		retryCfg:     cfg,
		now:          now,
	}
}

// RegisterWallet registers a wallet address. Registration is idempotent:
// re-registering an existing address returns the stored wallet unchanged.
func (l *Ledger) RegisterWallet(ctx context.Context, address string, label *string) (*domain.Wallet, error) {
	address = domain.CanonicalAddress(address)
	if address == "" {
		return nil, storage.ErrInvalidInput
	}

	w := &domain.Wallet{
		Address:     address,
		Label:       label,
		CreatedAtMs: l.now().UnixMilli(),
	}

	err := l.wallets.Insert(ctx, w)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return l.wallets.GetByAddress(ctx, address)
	}
	if err != nil {
		return nil, fmt.Errorf("register wallet: %w", err)
	}
	return w, nil
}

// GetWallet retrieves a registered wallet.
func (l *Ledger) GetWallet(ctx context.Context, address string) (*domain.Wallet, error) {
	return l.wallets.GetByAddress(ctx, domain.CanonicalAddress(address))
}

// ListWallets retrieves all registered wallets.
func (l *Ledger) ListWallets(ctx context.Context) ([]*domain.Wallet, error) {
	return l.wallets.List(ctx)
}

// UpdateWalletLabel replaces the only mutable wallet attribute.
func (l *Ledger) UpdateWalletLabel(ctx context.Context, address string, label *string) error {
	return l.wallets.UpdateLabel(ctx, domain.CanonicalAddress(address), label)
}

// RegisterToken registers a token. Pass a negative decimals to use the
// default precision. Idempotent like RegisterWallet.
func (l *Ledger) RegisterToken(ctx context.Context, address, symbol string, name *string, decimals int) (*domain.Token, error) {
	address = domain.CanonicalAddress(address)
	if address == "" || symbol == "" {
		return nil, storage.ErrInvalidInput
	}
	if decimals < 0 {
		decimals = domain.DefaultTokenDecimals
	}

	t := &domain.Token{
		Address:     address,
		Symbol:      symbol,
		Name:        name,
		Decimals:    decimals,
		CreatedAtMs: l.now().UnixMilli(),
	}

	err := l.tokens.Insert(ctx, t)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return l.tokens.GetByAddress(ctx, address)
	}
	if err != nil {
		return nil, fmt.Errorf("register token: %w", err)
	}
	return t, nil
}

// GetToken retrieves a registered token.
func (l *Ledger) GetToken(ctx context.Context, address string) (*domain.Token, error) {
	return l.tokens.GetByAddress(ctx, domain.CanonicalAddress(address))
}

// ListTokens retrieves all registered tokens.
func (l *Ledger) ListTokens(ctx context.Context) ([]*domain.Token, error) {
	return l.tokens.List(ctx)
}

// UpdateTokenMetadata applies a metadata correction to a registered token.
func (l *Ledger) UpdateTokenMetadata(ctx context.Context, address, symbol string, name *string, decimals int) error {
	return l.tokens.UpdateMetadata(ctx, domain.CanonicalAddress(address), symbol, name, decimals)
}

// Submit validates and records a transaction. Validation failures are
// returned synchronously and cause no state change. A hash that already
// exists yields StatusDuplicate, never an error: re-ingestion is a no-op.
func (l *Ledger) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if !domain.ValidSide(req.TxType) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTransactionType, req.TxType)
	}
	if req.Amount < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, req.Amount)
	}
	if req.TxHash == "" {
		return nil, storage.ErrInvalidInput
	}

	walletAddr := domain.CanonicalAddress(req.WalletAddress)
	tokenAddr := domain.CanonicalAddress(req.TokenAddress)

	if _, err := l.wallets.GetByAddress(ctx, walletAddr); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownWallet, walletAddr)
		}
		return nil, fmt.Errorf("lookup wallet: %w", err)
	}
	if _, err := l.tokens.GetByAddress(ctx, tokenAddr); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownToken, tokenAddr)
		}
		return nil, fmt.Errorf("lookup token: %w", err)
	}

	tx := &domain.Transaction{
		WalletAddress: walletAddr,
		TokenAddress:  tokenAddr,
		TxHash:        req.TxHash,
		Side:          req.TxType,
		Amount:        req.Amount,
		USDValue:      req.USDValue,
		BlockTimeMs:   req.BlockTimeMs,
		CreatedAtMs:   l.now().UnixMilli(),
	}

	// The store's compare-and-insert makes exactly one concurrent submit
	// win; transient storage failures are retried, duplicates are not.
	var duplicate bool
	err := retry.Do(ctx, l.retryCfg, func(ctx context.Context) error {
		err := l.transactions.Insert(ctx, tx)
		if errors.Is(err, storage.ErrDuplicateKey) {
			duplicate = true
			return nil
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	if duplicate {
		return &SubmitResult{Status: StatusDuplicate}, nil
	}
	return &SubmitResult{Status: StatusAccepted, Transaction: tx}, nil
}

// GetTransaction retrieves a recorded transaction by hash.
func (l *Ledger) GetTransaction(ctx context.Context, txHash string) (*domain.Transaction, error) {
	return l.transactions.GetByHash(ctx, txHash)
}

// WalletTransactions retrieves a wallet's transactions in block-time order.
// Returns ErrNotFound if the wallet is not registered.
func (l *Ledger) WalletTransactions(ctx context.Context, address string) ([]*domain.Transaction, error) {
	address = domain.CanonicalAddress(address)
	if _, err := l.wallets.GetByAddress(ctx, address); err != nil {
		return nil, err
	}
	return l.transactions.GetByWallet(ctx, address)
}

// WalletAlerts retrieves a wallet's alerts in emission order.
// Returns ErrNotFound if the wallet is not registered.
func (l *Ledger) WalletAlerts(ctx context.Context, address string) ([]*domain.Alert, error) {
	address = domain.CanonicalAddress(address)
	if _, err := l.wallets.GetByAddress(ctx, address); err != nil {
		return nil, err
	}
	return l.alerts.GetByWallet(ctx, address)
}

// DeleteWallet removes a wallet and everything it owns: alerts first, then
// transactions, then the wallet. Tokens and their series survive.
func (l *Ledger) DeleteWallet(ctx context.Context, address string) (*storage.CascadeResult, error) {
	return l.cascade.DeleteWallet(ctx, domain.CanonicalAddress(address))
}

// WalletStats are per-wallet aggregates derived from the ledger.
type WalletStats struct {
	Address        string  `json:"address"`
	TotalTrades    int     `json:"total_trades"`
	Buys           int     `json:"buys"`
	Sells          int     `json:"sells"`
	TotalVolumeUSD float64 `json:"total_volume_usd"`
	AlertsEmitted  int     `json:"alerts_emitted"`
}

// Stats computes aggregates for a wallet from its transactions and alerts.
func (l *Ledger) Stats(ctx context.Context, address string) (*WalletStats, error) {
	address = domain.CanonicalAddress(address)
	if _, err := l.wallets.GetByAddress(ctx, address); err != nil {
		return nil, err
	}

	txs, err := l.transactions.GetByWallet(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	alerts, err := l.alerts.GetByWallet(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("load alerts: %w", err)
	}

	stats := &WalletStats{Address: address, TotalTrades: len(txs), AlertsEmitted: len(alerts)}
	for _, tx := range txs {
		switch tx.Side {
		case domain.TxSideBuy:
			stats.Buys++
		case domain.TxSideSell:
			stats.Sells++
		}
		if tx.USDValue != nil {
			stats.TotalVolumeUSD += *tx.USDValue
		}
	}
	return stats, nil
}
