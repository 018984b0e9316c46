// Package emitter orchestrates enrichment: it consumes accepted
// transactions, resolves price and sentiment as of the transaction's block
// time, invokes the scorer, and durably records exactly one alert per
// transaction.
//
// Per-transaction state machine:
//
//	Pending -> Enriched      alert persisted (terminal success)
//	Pending -> Unresolvable  no usable price sample and policy requires one
//	                         (terminal but revisitable via Redrive)
//	Pending -> Duplicate     transaction already enriched (terminal no-op)
package emitter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openckai/sui-whale-ai-agent/internal/domain"
	"github.com/openckai/sui-whale-ai-agent/internal/enrich"
	"github.com/openckai/sui-whale-ai-agent/internal/notify"
	"github.com/openckai/sui-whale-ai-agent/internal/observability"
	"github.com/openckai/sui-whale-ai-agent/internal/retry"
	"github.com/openckai/sui-whale-ai-agent/internal/storage"
)

// Policy controls how the emitter treats missing price data.
type Policy struct {
	// RequirePrice forbids fallback alerts: transactions without a
	// resolvable price become Unresolvable instead of Enriched.
	RequirePrice bool

	// LookupTimeout bounds each price/sentiment lookup. A lookup that
	// exceeds it resolves as "unresolved" rather than blocking.
	LookupTimeout time.Duration
}

// DefaultPolicy requires a price and bounds lookups at two seconds.
func DefaultPolicy() Policy {
	return Policy{RequirePrice: true, LookupTimeout: 2 * time.Second}
}

// Outcome reports a terminal transition for one transaction.
type Outcome struct {
	Status domain.EnrichmentStatus
	Alert  *domain.Alert // set when Status is Enriched or Duplicate
}

// Emitter drives the enrichment state machine. Safe for concurrent use:
// no cross-transaction lock is held across lookups or persistence, and the
// alert store's unique constraint collapses concurrent attempts on the
// same transaction to a single alert.
type Emitter struct {
	wallets      storage.WalletStore
	transactions storage.TransactionStore
	alerts       storage.AlertStore
	prices       storage.PriceSeriesStore
	sentiments   storage.SentimentSeriesStore
	notifier     notify.Notifier

	policy   Policy
	retryCfg retry.Config
	logger   *log.Logger
	now      func() time.Time

	// unresolvable tracks tx hashes awaiting price data, per token.
	// Re-derivable after restart via Rebuild.
	mu           sync.Mutex
	unresolvable map[string]map[string]struct{}
}

// Options for creating an Emitter.
type Options struct {
	WalletStore      storage.WalletStore
	TransactionStore storage.TransactionStore
	AlertStore       storage.AlertStore
	PriceSeries      storage.PriceSeriesStore
	SentimentSeries  storage.SentimentSeriesStore
	Notifier         notify.Notifier

	Policy      Policy           // zero value means DefaultPolicy
	RetryConfig retry.Config     // zero value means retry.DefaultConfig
	Logger      *log.Logger      // optional
	Now         func() time.Time // overrides the clock, for tests
}

// New creates a new Emitter.
func New(opts Options) *Emitter {
	policy := opts.Policy
	if policy.LookupTimeout == 0 {
		policy = DefaultPolicy()
	}
	cfg := opts.RetryConfig
	if cfg.MaxAttempts == 0 {
		cfg = retry.DefaultConfig()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(opts.Logger)
	}
	return &Emitter{
		wallets:      opts.WalletStore,
		transactions: opts.TransactionStore,
		alerts:       opts.AlertStore,
		prices:       opts.PriceSeries,
		sentiments:   opts.SentimentSeries,
		notifier:     notifier,
		policy:       policy,
		retryCfg:     cfg,
		logger:       opts.Logger,
		now:          now,
		unresolvable: make(map[string]map[string]struct{}),
	}
}

// Process drives one transaction to a terminal status. Re-invocation for
// an already enriched transaction is a no-op returning Duplicate, which
// keeps emission idempotent under at-least-once delivery.
func (e *Emitter) Process(ctx context.Context, tx *domain.Transaction) (*Outcome, error) {
	if tx == nil || tx.TxHash == "" {
		return nil, storage.ErrInvalidInput
	}

	if existing, err := e.alerts.GetByTxHash(ctx, tx.TxHash); err == nil {
		return &Outcome{Status: domain.StatusDuplicate, Alert: existing}, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("check existing alert: %w", err)
	}

	pricePoint, err := e.resolvePrice(ctx, tx.TokenAddress, tx.BlockTimeMs)
	if err != nil {
		return nil, err
	}

	if pricePoint == nil && e.policy.RequirePrice {
		e.markUnresolvable(tx.TokenAddress, tx.TxHash)
		observability.RecordAlert(string(domain.StatusUnresolvable))
		e.publish(ctx, tx, nil, 0, domain.StatusUnresolvable)
		return &Outcome{Status: domain.StatusUnresolvable}, nil
	}

	// Sentiment is optional by design: any failure degrades to neutral.
	sentiment := e.resolveSentiment(ctx, tx.TokenAddress, tx.BlockTimeMs)

	var price *float64
	if pricePoint != nil {
		price = &pricePoint.Price
	}
	scored := enrich.Score(enrich.Input{
		Amount:    tx.Amount,
		Side:      tx.Side,
		USDValue:  tx.USDValue,
		Price:     price,
		Sentiment: sentiment,
	})

	alert := &domain.Alert{
		WalletAddress: tx.WalletAddress,
		TxHash:        tx.TxHash,
		PriceAtTxn:    price,
		EnrichedScore: scored.Score,
		LowConfidence: scored.LowConfidence,
		CreatedAtMs:   e.now().UnixMilli(),
	}

	var duplicate bool
	err = retry.Do(ctx, e.retryCfg, func(ctx context.Context) error {
		err := e.alerts.Insert(ctx, alert)
		if errors.Is(err, storage.ErrDuplicateKey) {
			duplicate = true
			return nil
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("persist alert: %w", err)
	}

	e.clearUnresolvable(tx.TokenAddress, tx.TxHash)

	if duplicate {
		// A concurrent attempt won the insert race.
		existing, err := e.alerts.GetByTxHash(ctx, tx.TxHash)
		if err != nil {
			return nil, fmt.Errorf("load winning alert: %w", err)
		}
		return &Outcome{Status: domain.StatusDuplicate, Alert: existing}, nil
	}

	observability.RecordAlert(string(domain.StatusEnriched))
	e.publish(ctx, tx, price, scored.Score, domain.StatusEnriched)
	return &Outcome{Status: domain.StatusEnriched, Alert: alert}, nil
}

// Status reports the enrichment state of a transaction.
func (e *Emitter) Status(ctx context.Context, txHash string) (domain.EnrichmentStatus, error) {
	if _, err := e.alerts.GetByTxHash(ctx, txHash); err == nil {
		return domain.StatusEnriched, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("check alert: %w", err)
	}

	tx, err := e.transactions.GetByHash(ctx, txHash)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	_, waiting := e.unresolvable[tx.TokenAddress][txHash]
	e.mu.Unlock()
	if waiting {
		return domain.StatusUnresolvable, nil
	}
	return domain.StatusPending, nil
}

// RedriveResult reports what a re-drive pass did.
type RedriveResult struct {
	Attempted         int
	Enriched          int
	StillUnresolvable int
}

// Redrive re-processes Unresolvable transactions for one token. Called
// after new price samples arrive; transactions that now resolve transition
// to Enriched without being duplicated.
func (e *Emitter) Redrive(ctx context.Context, tokenAddress string) (*RedriveResult, error) {
	e.mu.Lock()
	hashes := make([]string, 0, len(e.unresolvable[tokenAddress]))
	for hash := range e.unresolvable[tokenAddress] {
		hashes = append(hashes, hash)
	}
	e.mu.Unlock()

	result := &RedriveResult{}
	for _, hash := range hashes {
		tx, err := e.transactions.GetByHash(ctx, hash)
		if errors.Is(err, storage.ErrNotFound) {
			// Transaction removed by a wallet cascade in the meantime.
			e.clearUnresolvable(tokenAddress, hash)
			continue
		}
		if err != nil {
			return result, fmt.Errorf("load transaction %s: %w", hash, err)
		}

		result.Attempted++
		outcome, err := e.Process(ctx, tx)
		if err != nil {
			return result, fmt.Errorf("redrive %s: %w", hash, err)
		}
		switch outcome.Status {
		case domain.StatusEnriched, domain.StatusDuplicate:
			result.Enriched++
		default:
			result.StillUnresolvable++
		}
	}

	observability.RecordRedrive(result.Enriched)
	return result, nil
}

// RedriveAll re-drives every token with pending Unresolvable transactions.
func (e *Emitter) RedriveAll(ctx context.Context) (*RedriveResult, error) {
	e.mu.Lock()
	tokens := make([]string, 0, len(e.unresolvable))
	for token := range e.unresolvable {
		tokens = append(tokens, token)
	}
	e.mu.Unlock()

	total := &RedriveResult{}
	for _, token := range tokens {
		r, err := e.Redrive(ctx, token)
		if err != nil {
			return total, err
		}
		total.Attempted += r.Attempted
		total.Enriched += r.Enriched
		total.StillUnresolvable += r.StillUnresolvable
	}
	return total, nil
}

// Rebuild re-processes every alert-less transaction. Used on startup to
// re-derive the unresolvable set, which is kept in memory only: the alert
// store is the durable source of truth for Enriched.
func (e *Emitter) Rebuild(ctx context.Context) (*RedriveResult, error) {
	if e.wallets == nil {
		return nil, errors.New("rebuild requires a wallet store")
	}

	wallets, err := e.wallets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}

	result := &RedriveResult{}
	for _, w := range wallets {
		txs, err := e.transactions.GetByWallet(ctx, w.Address)
		if err != nil {
			return result, fmt.Errorf("load transactions for %s: %w", w.Address, err)
		}
		for _, tx := range txs {
			outcome, err := e.Process(ctx, tx)
			if err != nil {
				return result, fmt.Errorf("rebuild %s: %w", tx.TxHash, err)
			}
			switch outcome.Status {
			case domain.StatusEnriched:
				result.Attempted++
				result.Enriched++
			case domain.StatusUnresolvable:
				result.Attempted++
				result.StillUnresolvable++
			}
		}
	}
	return result, nil
}

// resolvePrice looks up the as-of price under the policy timeout.
// A timed-out or absent lookup returns (nil, nil): unresolved, not an error.
func (e *Emitter) resolvePrice(ctx context.Context, token string, tsMs int64) (*domain.PricePoint, error) {
	ctx, cancel := context.WithTimeout(ctx, e.policy.LookupTimeout)
	defer cancel()

	start := time.Now()
	var point *domain.PricePoint
	err := retry.Do(ctx, e.retryCfg, func(ctx context.Context) error {
		p, err := e.prices.AsOf(ctx, token, tsMs)
		if errors.Is(err, storage.ErrNotFound) {
			point = nil
			return nil
		}
		if err != nil {
			return err
		}
		point = p
		return nil
	})
	observability.ObservePriceLookup(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve price: %w", err)
	}
	return point, nil
}

// resolveSentiment looks up the as-of sentiment. Absence or failure is
// never fatal: both degrade to the neutral score 0.
func (e *Emitter) resolveSentiment(ctx context.Context, token string, tsMs int64) float64 {
	if e.sentiments == nil {
		return 0
	}

	ctx, cancel := context.WithTimeout(ctx, e.policy.LookupTimeout)
	defer cancel()

	p, err := e.sentiments.AsOf(ctx, token, tsMs)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) && e.logger != nil {
			e.logger.Printf("sentiment lookup failed for %s, using neutral: %v", token, err)
		}
		return 0
	}
	return p.Score
}

func (e *Emitter) markUnresolvable(token, txHash string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.unresolvable[token] == nil {
		e.unresolvable[token] = make(map[string]struct{})
	}
	e.unresolvable[token][txHash] = struct{}{}
}

func (e *Emitter) clearUnresolvable(token, txHash string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.unresolvable[token], txHash)
	if len(e.unresolvable[token]) == 0 {
		delete(e.unresolvable, token)
	}
}

// publish sends the terminal-transition event. Publish failures are logged,
// not propagated: delivery is the notification collaborator's concern.
func (e *Emitter) publish(ctx context.Context, tx *domain.Transaction, price *float64, score float64, status domain.EnrichmentStatus) {
	ev := &notify.AlertEvent{
		EventID:       uuid.NewString(),
		WalletAddress: tx.WalletAddress,
		TxHash:        tx.TxHash,
		PriceAtTxn:    price,
		EnrichedScore: score,
		Status:        string(status),
		EmittedAtMs:   e.now().UnixMilli(),
	}
	if err := e.notifier.Publish(ctx, ev); err != nil && e.logger != nil {
		e.logger.Printf("publish alert event for %s: %v", tx.TxHash, err)
	}
}
