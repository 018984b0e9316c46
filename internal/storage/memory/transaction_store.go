package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/openckai/sui-whale-ai-agent/internal/domain"
	"github.com/openckai/sui-whale-ai-agent/internal/storage"
)

// TransactionStore is an in-memory implementation of storage.TransactionStore.
type TransactionStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.Transaction // keyed by tx_hash
	nextID atomic.Int64
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		data: make(map[string]*domain.Transaction),
	}
}

var _ storage.TransactionStore = (*TransactionStore)(nil)

// Insert adds a new transaction. The existence check and insert happen under
// one lock, so exactly one of N concurrent writers with the same hash wins.
func (s *TransactionStore) Insert(_ context.Context, tx *domain.Transaction) error {
	if tx == nil || tx.TxHash == "" || tx.WalletAddress == "" || tx.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[tx.TxHash]; exists {
		return storage.ErrDuplicateKey
	}

	txCopy := *tx
	txCopy.ID = s.nextID.Add(1)
	s.data[tx.TxHash] = &txCopy
	tx.ID = txCopy.ID
	return nil
}

// GetByHash retrieves a transaction by hash. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetByHash(_ context.Context, txHash string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.data[txHash]
	if !ok {
		return nil, storage.ErrNotFound
	}

	txCopy := *tx
	return &txCopy, nil
}

// GetByWallet retrieves all transactions for a wallet, ordered by block time ASC.
func (s *TransactionStore) GetByWallet(_ context.Context, walletAddress string) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Transaction
	for _, tx := range s.data {
		if tx.WalletAddress == walletAddress {
			txCopy := *tx
			result = append(result, &txCopy)
		}
	}

	sortTransactions(result)
	return result, nil
}

// GetByToken retrieves all transactions referencing a token, ordered by block time ASC.
func (s *TransactionStore) GetByToken(_ context.Context, tokenAddress string) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Transaction
	for _, tx := range s.data {
		if tx.TokenAddress == tokenAddress {
			txCopy := *tx
			result = append(result, &txCopy)
		}
	}

	sortTransactions(result)
	return result, nil
}

// deleteByWallet removes all transactions for a wallet.
// Used by the memory cascade.
func (s *TransactionStore) deleteByWallet(walletAddress string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for hash, tx := range s.data {
		if tx.WalletAddress == walletAddress {
			delete(s.data, hash)
			deleted++
		}
	}
	return deleted
}

func sortTransactions(txs []*domain.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if txs[i].BlockTimeMs != txs[j].BlockTimeMs {
			return txs[i].BlockTimeMs < txs[j].BlockTimeMs
		}
		return txs[i].ID < txs[j].ID
	})
}
