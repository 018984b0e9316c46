package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/openckai/sui-whale-ai-agent/internal/domain"
	"github.com/openckai/sui-whale-ai-agent/internal/storage"
)

// WalletStore is an in-memory implementation of storage.WalletStore.
type WalletStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Wallet // keyed by canonical address
}

// NewWalletStore creates a new in-memory wallet store.
func NewWalletStore() *WalletStore {
	return &WalletStore{
		data: make(map[string]*domain.Wallet),
	}
}

var _ storage.WalletStore = (*WalletStore)(nil)

// Insert adds a new wallet. Returns ErrDuplicateKey if the address exists.
func (s *WalletStore) Insert(_ context.Context, w *domain.Wallet) error {
	if w == nil || w.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[w.Address]; exists {
		return storage.ErrDuplicateKey
	}

	walletCopy := *w
	s.data[w.Address] = &walletCopy
	return nil
}

// GetByAddress retrieves a wallet. Returns ErrNotFound if not exists.
func (s *WalletStore) GetByAddress(_ context.Context, address string) (*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.data[address]
	if !ok {
		return nil, storage.ErrNotFound
	}

	walletCopy := *w
	return &walletCopy, nil
}

// UpdateLabel replaces the wallet's label.
func (s *WalletStore) UpdateLabel(_ context.Context, address string, label *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.data[address]
	if !ok {
		return storage.ErrNotFound
	}

	if label == nil {
		w.Label = nil
		return nil
	}
	labelCopy := *label
	w.Label = &labelCopy
	return nil
}

// List retrieves all wallets, ordered by address ASC.
func (s *WalletStore) List(_ context.Context) ([]*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Wallet, 0, len(s.data))
	for _, w := range s.data {
		walletCopy := *w
		result = append(result, &walletCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Address < result[j].Address
	})

	return result, nil
}

// delete removes a wallet without cascading. Used by the memory cascade.
func (s *WalletStore) delete(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[address]; !ok {
		return false
	}
	delete(s.data, address)
	return true
}
