package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/openckai/sui-whale-ai-agent/internal/domain"
	"github.com/openckai/sui-whale-ai-agent/internal/storage"
)

func recordSentiment(t *testing.T, store *SentimentSeriesStore, token string, tsMs int64, score float64) {
	t.Helper()
	err := store.Record(context.Background(), &domain.SentimentPoint{
		TokenAddress: token,
		TimestampMs:  tsMs,
		Score:        score,
		Source:       "test",
	})
	if err != nil {
		t.Fatalf("Record(%d, %f) failed: %v", tsMs, score, err)
	}
}

func TestSentimentSeriesStore_AsOf(t *testing.T) {
	store := NewSentimentSeriesStore()
	ctx := context.Background()

	recordSentiment(t, store, "tok", 100, -0.5)
	recordSentiment(t, store, "tok", 200, 0.8)

	got, err := store.AsOf(ctx, "tok", 150)
	if err != nil {
		t.Fatalf("AsOf failed: %v", err)
	}
	if got.Score != -0.5 {
		t.Errorf("Expected score -0.5, got %f", got.Score)
	}

	got, err = store.AsOf(ctx, "tok", 200)
	if err != nil {
		t.Fatalf("AsOf failed: %v", err)
	}
	if got.Score != 0.8 {
		t.Errorf("Expected score 0.8, got %f", got.Score)
	}
}

func TestSentimentSeriesStore_AsOfBeforeFirstSample(t *testing.T) {
	store := NewSentimentSeriesStore()

	recordSentiment(t, store, "tok", 100, 0.1)

	_, err := store.AsOf(context.Background(), "tok", 99)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSentimentSeriesStore_TieBreakByInsertionOrder(t *testing.T) {
	store := NewSentimentSeriesStore()

	recordSentiment(t, store, "tok", 100, 0.2)
	recordSentiment(t, store, "tok", 100, 0.9)

	got, err := store.AsOf(context.Background(), "tok", 100)
	if err != nil {
		t.Fatalf("AsOf failed: %v", err)
	}
	if got.Score != 0.9 {
		t.Errorf("Expected last recorded score 0.9, got %f", got.Score)
	}
}

func TestSentimentSeriesStore_RejectsOutOfRangeScore(t *testing.T) {
	store := NewSentimentSeriesStore()
	ctx := context.Background()

	for _, score := range []float64{-1.1, 1.1} {
		err := store.Record(ctx, &domain.SentimentPoint{
			TokenAddress: "tok",
			TimestampMs:  100,
			Score:        score,
			Source:       "test",
		})
		if !errors.Is(err, storage.ErrInvalidInput) {
			t.Errorf("Expected ErrInvalidInput for score %f, got %v", score, err)
		}
	}
}
