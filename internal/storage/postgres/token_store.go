package postgres

import (
	"context"
	"fmt"

	"github.com/openckai/sui-whale-ai-agent/internal/domain"
	"github.com/openckai/sui-whale-ai-agent/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Insert adds a new token. Returns ErrDuplicateKey if the address exists.
func (s *TokenStore) Insert(ctx context.Context, t *domain.Token) error {
	if t == nil || t.Address == "" || t.Symbol == "" || t.Decimals < 0 {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tokens (address, symbol, name, decimals, created_at_ms)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query, t.Address, t.Symbol, t.Name, t.Decimals, t.CreatedAtMs)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// GetByAddress retrieves a token. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByAddress(ctx context.Context, address string) (*domain.Token, error) {
	query := `
		SELECT address, symbol, name, decimals, created_at_ms
		FROM tokens
		WHERE address = $1
	`

	var t domain.Token
	err := s.pool.QueryRow(ctx, query, address).Scan(&t.Address, &t.Symbol, &t.Name, &t.Decimals, &t.CreatedAtMs)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by address: %w", err)
	}
	return &t, nil
}

// UpdateMetadata corrects symbol/name/decimals for an existing token.
func (s *TokenStore) UpdateMetadata(ctx context.Context, address, symbol string, name *string, decimals int) error {
	if symbol == "" || decimals < 0 {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE tokens SET symbol = $2, name = $3, decimals = $4 WHERE address = $1
	`

	tag, err := s.pool.Exec(ctx, query, address, symbol, name, decimals)
	if err != nil {
		return fmt.Errorf("update token metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// List retrieves all tokens, ordered by address ASC.
func (s *TokenStore) List(ctx context.Context) ([]*domain.Token, error) {
	query := `
		SELECT address, symbol, name, decimals, created_at_ms
		FROM tokens
		ORDER BY address ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*domain.Token
	for rows.Next() {
		var t domain.Token
		if err := rows.Scan(&t.Address, &t.Symbol, &t.Name, &t.Decimals, &t.CreatedAtMs); err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		tokens = append(tokens, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token rows: %w", err)
	}
	return tokens, nil
}
