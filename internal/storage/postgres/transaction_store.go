package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/openckai/sui-whale-ai-agent/internal/domain"
	"github.com/openckai/sui-whale-ai-agent/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
// The unique index on tx_hash makes Insert a compare-and-insert: exactly
// one of N concurrent writers with the same hash succeeds.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

// Insert adds a new transaction. Returns ErrDuplicateKey if tx_hash exists.
func (s *TransactionStore) Insert(ctx context.Context, tx *domain.Transaction) error {
	if tx == nil || tx.TxHash == "" || tx.WalletAddress == "" || tx.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO transactions (
			wallet_address, token_address, tx_hash, side, amount, usd_value, block_time_ms, created_at_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := s.pool.QueryRow(ctx, query,
		tx.WalletAddress,
		tx.TokenAddress,
		tx.TxHash,
		tx.Side,
		tx.Amount,
		tx.USDValue,
		tx.BlockTimeMs,
		tx.CreatedAtMs,
	).Scan(&tx.ID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByHash retrieves a transaction by hash. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetByHash(ctx context.Context, txHash string) (*domain.Transaction, error) {
	query := `
		SELECT id, wallet_address, token_address, tx_hash, side, amount, usd_value, block_time_ms, created_at_ms
		FROM transactions
		WHERE tx_hash = $1
	`

	var tx domain.Transaction
	err := s.pool.QueryRow(ctx, query, txHash).Scan(
		&tx.ID,
		&tx.WalletAddress,
		&tx.TokenAddress,
		&tx.TxHash,
		&tx.Side,
		&tx.Amount,
		&tx.USDValue,
		&tx.BlockTimeMs,
		&tx.CreatedAtMs,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction by hash: %w", err)
	}
	return &tx, nil
}

// GetByWallet retrieves all transactions for a wallet, ordered by block time ASC.
func (s *TransactionStore) GetByWallet(ctx context.Context, walletAddress string) ([]*domain.Transaction, error) {
	query := `
		SELECT id, wallet_address, token_address, tx_hash, side, amount, usd_value, block_time_ms, created_at_ms
		FROM transactions
		WHERE wallet_address = $1
		ORDER BY block_time_ms ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, walletAddress)
	if err != nil {
		return nil, fmt.Errorf("get transactions by wallet: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetByToken retrieves all transactions referencing a token, ordered by block time ASC.
func (s *TransactionStore) GetByToken(ctx context.Context, tokenAddress string) ([]*domain.Transaction, error) {
	query := `
		SELECT id, wallet_address, token_address, tx_hash, side, amount, usd_value, block_time_ms, created_at_ms
		FROM transactions
		WHERE token_address = $1
		ORDER BY block_time_ms ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("get transactions by token: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// scanTransactions scans multiple rows into a slice of Transaction.
func scanTransactions(rows pgx.Rows) ([]*domain.Transaction, error) {
	var txs []*domain.Transaction

	for rows.Next() {
		var tx domain.Transaction
		err := rows.Scan(
			&tx.ID,
			&tx.WalletAddress,
			&tx.TokenAddress,
			&tx.TxHash,
			&tx.Side,
			&tx.Amount,
			&tx.USDValue,
			&tx.BlockTimeMs,
			&tx.CreatedAtMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txs = append(txs, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txs, nil
}
