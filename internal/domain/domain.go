// Package domain holds the core entity types shared by storage,
// enrichment and the API layer.
package domain

import "strings"

// Transaction sides.
const (
	TxSideBuy  = "buy"
	TxSideSell = "sell"
)

// DefaultTokenDecimals is used when a token is registered without an
// explicit precision.
const DefaultTokenDecimals = 18

// EnrichmentStatus describes where a transaction sits in the
// enrichment pipeline.
type EnrichmentStatus string

const (
	// StatusPending means the transaction is recorded but no
	// enrichment attempt has concluded yet.
	StatusPending EnrichmentStatus = "pending"
	// StatusEnriched means an alert was emitted for the transaction.
	StatusEnriched EnrichmentStatus = "enriched"
	// StatusUnresolvable means the price could not be resolved; the
	// transaction is revisited on redrive.
	StatusUnresolvable EnrichmentStatus = "unresolvable"
	// StatusDuplicate means an alert for the transaction already
	// exists and nothing was emitted.
	StatusDuplicate EnrichmentStatus = "duplicate"
)

// ValidSide reports whether side is a recognized transaction side.
func ValidSide(side string) bool {
	return side == TxSideBuy || side == TxSideSell
}

// CanonicalAddress normalizes an address for storage and lookup.
// Addresses are opaque identifiers; equality is case-insensitive.
func CanonicalAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Wallet is a tracked wallet. The label is the only mutable attribute.
type Wallet struct {
	Address     string  `json:"address"`
	Label       *string `json:"label,omitempty"`
	CreatedAtMs int64   `json:"created_at_ms"`
}

// Token is a tracked token with display metadata.
type Token struct {
	Address     string  `json:"address"`
	Symbol      string  `json:"symbol"`
	Name        *string `json:"name,omitempty"`
	Decimals    int     `json:"decimals"`
	CreatedAtMs int64   `json:"created_at_ms"`
}

// Transaction is an observed on-chain trade. TxHash is unique across
// the ledger and drives idempotent ingestion.
type Transaction struct {
	ID            int64    `json:"id"`
	WalletAddress string   `json:"wallet_address"`
	TokenAddress  string   `json:"token_address"`
	TxHash        string   `json:"tx_hash"`
	Side          string   `json:"side"`
	Amount        float64  `json:"amount"`
	USDValue      *float64 `json:"usd_value,omitempty"`
	BlockTimeMs   int64    `json:"block_time_ms"`
	CreatedAtMs   int64    `json:"created_at_ms"`
}

// Alert is the enrichment output for a transaction. At most one alert
// exists per transaction hash.
type Alert struct {
	ID            int64    `json:"id"`
	WalletAddress string   `json:"wallet_address"`
	TxHash        string   `json:"tx_hash"`
	PriceAtTxn    *float64 `json:"price_at_txn,omitempty"`
	EnrichedScore float64  `json:"enriched_score"`
	LowConfidence bool     `json:"low_confidence"`
	CreatedAtMs   int64    `json:"created_at_ms"`
}

// PricePoint is a single price sample. Seq is assigned by the store on
// record and orders samples that share a timestamp.
type PricePoint struct {
	TokenAddress string   `json:"token_address"`
	TimestampMs  int64    `json:"timestamp_ms"`
	Price        float64  `json:"price"`
	Volume24h    *float64 `json:"volume_24h,omitempty"`
	Seq          int64    `json:"-"`
}

// SentimentPoint is a single sentiment sample in [-1, 1].
type SentimentPoint struct {
	TokenAddress string  `json:"token_address"`
	TimestampMs  int64   `json:"timestamp_ms"`
	Score        float64 `json:"score"`
	Source       string  `json:"source"`
	Seq          int64   `json:"-"`
}
