package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/openckai/sui-whale-ai-agent/internal/domain"
	"github.com/openckai/sui-whale-ai-agent/internal/observability"
	"github.com/openckai/sui-whale-ai-agent/internal/storage"
)

// SentimentPoller periodically fetches aggregate sentiment scores for a
// set of tokens and records them into the sentiment series. Sentiment is
// advisory, so individual poll failures are logged and skipped.
type SentimentPoller struct {
	baseURL   string
	tokens    []string
	interval  time.Duration
	client    *http.Client
	sentiment storage.SentimentSeriesStore
	logger    *log.Logger
}

// SentimentPollerOptions configures a SentimentPoller.
type SentimentPollerOptions struct {
	BaseURL     string
	Tokens      []string
	Interval    time.Duration
	HTTPTimeout time.Duration
	Sentiment   storage.SentimentSeriesStore
	Logger      *log.Logger
}

// NewSentimentPoller creates a new SentimentPoller.
func NewSentimentPoller(opts SentimentPollerOptions) (*SentimentPoller, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("sentiment poller requires a base URL")
	}
	if opts.Sentiment == nil {
		return nil, fmt.Errorf("sentiment poller requires a sentiment series store")
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[sentiment] ", log.LstdFlags)
	}

	return &SentimentPoller{
		baseURL:   opts.BaseURL,
		tokens:    opts.Tokens,
		interval:  opts.Interval,
		client:    &http.Client{Timeout: opts.HTTPTimeout},
		sentiment: opts.Sentiment,
		logger:    opts.Logger,
	}, nil
}

// sentimentResponse mirrors the aggregator's sentiment payload.
type sentimentResponse struct {
	Score  float64 `json:"score"`
	Source string  `json:"source"`
}

// Run polls until the context is cancelled.
func (p *SentimentPoller) Run(ctx context.Context) {
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

func (p *SentimentPoller) pollOnce(ctx context.Context) {
	for _, token := range p.tokens {
		if err := p.pollToken(ctx, token); err != nil {
			p.logger.Printf("poll %s: %v", token, err)
		}
	}
}

func (p *SentimentPoller) pollToken(ctx context.Context, tokenAddress string) error {
	url := fmt.Sprintf("%s/sentiment/%s", p.baseURL, tokenAddress)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch sentiment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body sentimentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode sentiment: %w", err)
	}
	if body.Score < -1 || body.Score > 1 {
		return fmt.Errorf("score %f out of range", body.Score)
	}
	if body.Source == "" {
		body.Source = "aggregate"
	}

	point := &domain.SentimentPoint{
		TokenAddress: tokenAddress,
		TimestampMs:  time.Now().UnixMilli(),
		Score:        body.Score,
		Source:       body.Source,
	}
	if err := p.sentiment.Record(ctx, point); err != nil {
		return fmt.Errorf("record sentiment: %w", err)
	}

	observability.RecordFeedSample("sentiment")
	return nil
}
