package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openckai/sui-whale-ai-agent/internal/storage/memory"
)

func TestQuotePoller_RecordsQuote(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tokens/0xtoken" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"pairs":[{"priceUsd":"2.5","volume":{"h24":12345.0}}]}`)
	}))
	defer ts.Close()

	prices := memory.NewPriceSeriesStore()
	var redriven []string

	poller, err := NewQuotePoller(QuotePollerOptions{
		BaseURL:  ts.URL,
		Tokens:   []string{"0xtoken"},
		Prices:   prices,
		OnRecord: func(token string) { redriven = append(redriven, token) },
	})
	if err != nil {
		t.Fatalf("NewQuotePoller failed: %v", err)
	}

	poller.pollOnce(context.Background())

	points, err := prices.GetByToken(context.Background(), "0xtoken")
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("recorded %d points, want 1", len(points))
	}
	if points[0].Price != 2.5 {
		t.Errorf("price = %v, want 2.5", points[0].Price)
	}
	if points[0].Volume24h == nil || *points[0].Volume24h != 12345.0 {
		t.Errorf("volume = %v, want 12345", points[0].Volume24h)
	}
	if len(redriven) != 1 || redriven[0] != "0xtoken" {
		t.Errorf("onRecord calls = %v, want [0xtoken]", redriven)
	}
}

func TestQuotePoller_SkipsBadPayloads(t *testing.T) {
	payloads := map[string]string{
		"empty pairs":        `{"pairs":[]}`,
		"non-numeric price":  `{"pairs":[{"priceUsd":"n/a"}]}`,
		"non-positive price": `{"pairs":[{"priceUsd":"0"}]}`,
	}

	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, payload)
			}))
			defer ts.Close()

			prices := memory.NewPriceSeriesStore()
			poller, err := NewQuotePoller(QuotePollerOptions{
				BaseURL: ts.URL,
				Tokens:  []string{"0xtoken"},
				Prices:  prices,
			})
			if err != nil {
				t.Fatalf("NewQuotePoller failed: %v", err)
			}

			poller.pollOnce(context.Background())

			points, _ := prices.GetByToken(context.Background(), "0xtoken")
			if len(points) != 0 {
				t.Errorf("recorded %d points, want 0", len(points))
			}
		})
	}
}

func TestQuotePoller_RequiresBaseURL(t *testing.T) {
	_, err := NewQuotePoller(QuotePollerOptions{Prices: memory.NewPriceSeriesStore()})
	if err == nil {
		t.Fatal("expected error for missing base URL")
	}
}
