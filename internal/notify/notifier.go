// Package notify publishes alert events to downstream consumers.
// Delivery mechanics past the publish call are out of scope.
package notify

import (
	"context"
	"log"
)

// AlertEvent is emitted once per terminal enrichment transition.
type AlertEvent struct {
	EventID       string   `json:"event_id"`
	WalletAddress string   `json:"wallet_address"`
	TxHash        string   `json:"tx_hash"`
	PriceAtTxn    *float64 `json:"price_at_txn,omitempty"`
	EnrichedScore float64  `json:"enriched_score"`
	Status        string   `json:"status"`
	EmittedAtMs   int64    `json:"emitted_at_ms"`
}

// Notifier delivers alert events to the notification collaborator.
type Notifier interface {
	Publish(ctx context.Context, ev *AlertEvent) error
}

// LogNotifier writes events to a logger. Used in dev mode and tests.
type LogNotifier struct {
	logger *log.Logger
}

// NewLogNotifier creates a notifier that logs instead of publishing.
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

var _ Notifier = (*LogNotifier)(nil)

// Publish logs the event.
func (n *LogNotifier) Publish(_ context.Context, ev *AlertEvent) error {
	if n.logger != nil {
		n.logger.Printf("alert %s wallet=%s tx=%s score=%f", ev.Status, ev.WalletAddress, ev.TxHash, ev.EnrichedScore)
	}
	return nil
}
