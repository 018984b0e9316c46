package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/openckai/sui-whale-ai-agent/internal/domain"
	"github.com/openckai/sui-whale-ai-agent/internal/observability"
	"github.com/openckai/sui-whale-ai-agent/internal/storage"
)

// QuotePoller periodically fetches spot quotes for a set of tokens from a
// DEX aggregator HTTP API and records them into the price series.
type QuotePoller struct {
	baseURL  string
	tokens   []string
	interval time.Duration
	client   *http.Client
	limiter  *rate.Limiter
	prices   storage.PriceSeriesStore
	logger   *log.Logger

	// onRecord fires after each recorded sample, with the token address.
	// The server uses it to re-drive unresolved transactions for the token.
	onRecord func(tokenAddress string)
}

// QuotePollerOptions configures a QuotePoller.
type QuotePollerOptions struct {
	BaseURL     string
	Tokens      []string
	Interval    time.Duration
	RatePerSec  float64
	Burst       int
	HTTPTimeout time.Duration
	Prices      storage.PriceSeriesStore
	Logger      *log.Logger
	OnRecord    func(tokenAddress string)
}

// NewQuotePoller creates a new QuotePoller.
func NewQuotePoller(opts QuotePollerOptions) (*QuotePoller, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("quote poller requires a base URL")
	}
	if opts.Prices == nil {
		return nil, fmt.Errorf("quote poller requires a price series store")
	}
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 10
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[quotes] ", log.LstdFlags)
	}

	return &QuotePoller{
		baseURL:  opts.BaseURL,
		tokens:   opts.Tokens,
		interval: opts.Interval,
		client:   &http.Client{Timeout: opts.HTTPTimeout},
		limiter:  rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.Burst),
		prices:   opts.Prices,
		logger:   opts.Logger,
		onRecord: opts.OnRecord,
	}, nil
}

// quoteResponse mirrors the aggregator's pair listing payload.
type quoteResponse struct {
	Pairs []struct {
		PriceUSD string `json:"priceUsd"`
		Volume   struct {
			H24 float64 `json:"h24"`
		} `json:"volume"`
	} `json:"pairs"`
}

// Run polls until the context is cancelled.
func (p *QuotePoller) Run(ctx context.Context) {
	p.logger.Printf("polling %d tokens every %s", len(p.tokens), p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Printf("stopped: %v", ctx.Err())
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *QuotePoller) pollOnce(ctx context.Context) {
	for _, token := range p.tokens {
		if err := p.limiter.Wait(ctx); err != nil {
			return
		}
		if err := p.pollToken(ctx, token); err != nil {
			p.logger.Printf("poll %s: %v", token, err)
		}
	}
}

func (p *QuotePoller) pollToken(ctx context.Context, tokenAddress string) error {
	url := fmt.Sprintf("%s/tokens/%s", p.baseURL, tokenAddress)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode quote: %w", err)
	}
	if len(body.Pairs) == 0 {
		return fmt.Errorf("no pairs for token")
	}

	pair := body.Pairs[0]
	price, err := strconv.ParseFloat(pair.PriceUSD, 64)
	if err != nil {
		return fmt.Errorf("parse price %q: %w", pair.PriceUSD, err)
	}
	if price <= 0 {
		return fmt.Errorf("non-positive price %f", price)
	}

	point := &domain.PricePoint{
		TokenAddress: tokenAddress,
		TimestampMs:  time.Now().UnixMilli(),
		Price:        price,
	}
	if pair.Volume.H24 > 0 {
		v := pair.Volume.H24
		point.Volume24h = &v
	}

	if err := p.prices.Record(ctx, point); err != nil {
		return fmt.Errorf("record price: %w", err)
	}

	observability.RecordFeedSample("price")
	if p.onRecord != nil {
		p.onRecord(tokenAddress)
	}
	return nil
}
