package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openckai/sui-whale-ai-agent/internal/domain"
	"github.com/openckai/sui-whale-ai-agent/internal/observability"
	"github.com/openckai/sui-whale-ai-agent/internal/storage"
)

// PriceStream consumes a streaming quote feed over WebSocket and records
// each tick into the price series. Reconnects with exponential backoff.
type PriceStream struct {
	url      string
	prices   storage.PriceSeriesStore
	logger   *log.Logger
	onRecord func(tokenAddress string)

	reconnectDelay    time.Duration
	maxReconnectDelay time.Duration
	readTimeout       time.Duration
}

// PriceStreamOptions configures a PriceStream.
type PriceStreamOptions struct {
	URL      string
	Prices   storage.PriceSeriesStore
	Logger   *log.Logger
	OnRecord func(tokenAddress string)
}

// NewPriceStream creates a new PriceStream.
func NewPriceStream(opts PriceStreamOptions) (*PriceStream, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("price stream requires a URL")
	}
	if opts.Prices == nil {
		return nil, fmt.Errorf("price stream requires a price series store")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[stream] ", log.LstdFlags)
	}

	return &PriceStream{
		url:               opts.URL,
		prices:            opts.Prices,
		logger:            opts.Logger,
		onRecord:          opts.OnRecord,
		reconnectDelay:    1 * time.Second,
		maxReconnectDelay: 30 * time.Second,
		readTimeout:       60 * time.Second,
	}, nil
}

// tick is one streamed quote.
type tick struct {
	TokenAddress string   `json:"token_address"`
	Price        float64  `json:"price"`
	TimestampMs  int64    `json:"timestamp_ms"`
	Volume24h    *float64 `json:"volume_24h,omitempty"`
}

// Run consumes the stream until the context is cancelled.
func (s *PriceStream) Run(ctx context.Context) {
	delay := s.reconnectDelay

	for {
		if ctx.Err() != nil {
			return
		}

		connected, err := s.consume(ctx)
		if ctx.Err() != nil {
			return
		}
		if connected {
			// The dial succeeded, so the backoff starts over.
			delay = s.reconnectDelay
		}
		s.logger.Printf("stream disconnected: %v, reconnecting in %s", err, delay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		delay *= 2
		if delay > s.maxReconnectDelay {
			delay = s.maxReconnectDelay
		}
	}
}

// consume dials once and reads ticks until the connection drops. The
// bool reports whether the dial succeeded.
func (s *PriceStream) consume(ctx context.Context) (bool, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return false, fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	s.logger.Printf("connected to %s", s.url)

	// Unblock ReadMessage when the context is cancelled. The done channel
	// releases the watcher once this connection is finished, so watchers
	// do not pile up across reconnects.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("read message: %w", err)
		}

		var t tick
		if err := json.Unmarshal(data, &t); err != nil {
			s.logger.Printf("skip malformed tick: %v", err)
			continue
		}
		if t.TokenAddress == "" || t.Price <= 0 {
			continue
		}
		if t.TimestampMs == 0 {
			t.TimestampMs = time.Now().UnixMilli()
		}

		point := &domain.PricePoint{
			TokenAddress: t.TokenAddress,
			TimestampMs:  t.TimestampMs,
			Price:        t.Price,
			Volume24h:    t.Volume24h,
		}
		if err := s.prices.Record(ctx, point); err != nil {
			s.logger.Printf("record tick for %s: %v", t.TokenAddress, err)
			continue
		}

		observability.RecordFeedSample("price")
		if s.onRecord != nil {
			s.onRecord(t.TokenAddress)
		}
	}
}
