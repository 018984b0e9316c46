package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/openckai/sui-whale-ai-agent/internal/domain"
	"github.com/openckai/sui-whale-ai-agent/internal/storage"
)

// AlertStore is an in-memory implementation of storage.AlertStore.
type AlertStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.Alert // keyed by tx_hash (at most one alert per tx)
	nextID atomic.Int64
}

// NewAlertStore creates a new in-memory alert store.
func NewAlertStore() *AlertStore {
	return &AlertStore{
		data: make(map[string]*domain.Alert),
	}
}

var _ storage.AlertStore = (*AlertStore)(nil)

// Insert adds a new alert. Returns ErrDuplicateKey if an alert for the
// same tx_hash exists. Concurrent enrichment attempts collapse to one winner.
func (s *AlertStore) Insert(_ context.Context, a *domain.Alert) error {
	if a == nil || a.TxHash == "" || a.WalletAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.TxHash]; exists {
		return storage.ErrDuplicateKey
	}

	alertCopy := *a
	alertCopy.ID = s.nextID.Add(1)
	s.data[a.TxHash] = &alertCopy
	a.ID = alertCopy.ID
	return nil
}

// GetByTxHash retrieves the alert for a transaction. Returns ErrNotFound if not exists.
func (s *AlertStore) GetByTxHash(_ context.Context, txHash string) (*domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.data[txHash]
	if !ok {
		return nil, storage.ErrNotFound
	}

	alertCopy := *a
	return &alertCopy, nil
}

// GetByWallet retrieves all alerts for a wallet, ordered by creation ASC.
func (s *AlertStore) GetByWallet(_ context.Context, walletAddress string) ([]*domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Alert
	for _, a := range s.data {
		if a.WalletAddress == walletAddress {
			alertCopy := *a
			result = append(result, &alertCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// deleteByWallet removes all alerts for a wallet. Used by the memory cascade.
func (s *AlertStore) deleteByWallet(walletAddress string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for hash, a := range s.data {
		if a.WalletAddress == walletAddress {
			delete(s.data, hash)
			deleted++
		}
	}
	return deleted
}
