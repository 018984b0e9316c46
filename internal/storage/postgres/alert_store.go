package postgres

import (
	"context"
	"fmt"

	"github.com/openckai/sui-whale-ai-agent/internal/domain"
	"github.com/openckai/sui-whale-ai-agent/internal/storage"
)

// AlertStore implements storage.AlertStore using PostgreSQL.
// The unique index on tx_hash enforces at most one alert per transaction;
// concurrent enrichment attempts collapse to one row at the database.
type AlertStore struct {
	pool *Pool
}

// NewAlertStore creates a new AlertStore.
func NewAlertStore(pool *Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AlertStore = (*AlertStore)(nil)

// Insert adds a new alert. Returns ErrDuplicateKey if one exists for the tx_hash.
func (s *AlertStore) Insert(ctx context.Context, a *domain.Alert) error {
	if a == nil || a.TxHash == "" || a.WalletAddress == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO alerts (
			wallet_address, tx_hash, price_at_txn, enriched_score, low_confidence, created_at_ms
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := s.pool.QueryRow(ctx, query,
		a.WalletAddress,
		a.TxHash,
		a.PriceAtTxn,
		a.EnrichedScore,
		a.LowConfidence,
		a.CreatedAtMs,
	).Scan(&a.ID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// GetByTxHash retrieves the alert for a transaction. Returns ErrNotFound if not exists.
func (s *AlertStore) GetByTxHash(ctx context.Context, txHash string) (*domain.Alert, error) {
	query := `
		SELECT id, wallet_address, tx_hash, price_at_txn, enriched_score, low_confidence, created_at_ms
		FROM alerts
		WHERE tx_hash = $1
	`

	var a domain.Alert
	err := s.pool.QueryRow(ctx, query, txHash).Scan(
		&a.ID,
		&a.WalletAddress,
		&a.TxHash,
		&a.PriceAtTxn,
		&a.EnrichedScore,
		&a.LowConfidence,
		&a.CreatedAtMs,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get alert by tx hash: %w", err)
	}
	return &a, nil
}

// GetByWallet retrieves all alerts for a wallet, ordered by creation ASC.
func (s *AlertStore) GetByWallet(ctx context.Context, walletAddress string) ([]*domain.Alert, error) {
	query := `
		SELECT id, wallet_address, tx_hash, price_at_txn, enriched_score, low_confidence, created_at_ms
		FROM alerts
		WHERE wallet_address = $1
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query, walletAddress)
	if err != nil {
		return nil, fmt.Errorf("get alerts by wallet: %w", err)
	}
	defer rows.Close()

	var alerts []*domain.Alert
	for rows.Next() {
		var a domain.Alert
		err := rows.Scan(
			&a.ID,
			&a.WalletAddress,
			&a.TxHash,
			&a.PriceAtTxn,
			&a.EnrichedScore,
			&a.LowConfidence,
			&a.CreatedAtMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		alerts = append(alerts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alert rows: %w", err)
	}
	return alerts, nil
}
