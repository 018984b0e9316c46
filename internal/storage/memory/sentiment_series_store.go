package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/openckai/sui-whale-ai-agent/internal/domain"
	"github.com/openckai/sui-whale-ai-agent/internal/storage"
)

// SentimentSeriesStore is an in-memory implementation of
// storage.SentimentSeriesStore with the same ordered-series layout as
// PriceSeriesStore.
type SentimentSeriesStore struct {
	mu      sync.RWMutex
	series  map[string][]*domain.SentimentPoint // per token, sorted by (timestamp, seq)
	nextSeq int64
}

// NewSentimentSeriesStore creates a new in-memory sentiment series store.
func NewSentimentSeriesStore() *SentimentSeriesStore {
	return &SentimentSeriesStore{
		series: make(map[string][]*domain.SentimentPoint),
	}
}

var _ storage.SentimentSeriesStore = (*SentimentSeriesStore)(nil)

// Record appends a sample. Scores outside [-1, 1] are rejected.
func (s *SentimentSeriesStore) Record(_ context.Context, p *domain.SentimentPoint) error {
	if p == nil || p.TokenAddress == "" || p.Score < -1 || p.Score > 1 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq++
	pointCopy := *p
	pointCopy.Seq = s.nextSeq
	p.Seq = pointCopy.Seq

	points := s.series[p.TokenAddress]
	idx := sort.Search(len(points), func(i int) bool {
		return points[i].TimestampMs > pointCopy.TimestampMs
	})
	points = append(points, nil)
	copy(points[idx+1:], points[idx:])
	points[idx] = &pointCopy
	s.series[p.TokenAddress] = points

	return nil
}

// AsOf returns the predecessor sample at tsMs with insertion-order tie-break.
func (s *SentimentSeriesStore) AsOf(_ context.Context, tokenAddress string, tsMs int64) (*domain.SentimentPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.series[tokenAddress]
	idx := sort.Search(len(points), func(i int) bool {
		return points[i].TimestampMs > tsMs
	})
	if idx == 0 {
		return nil, storage.ErrNotFound
	}

	pointCopy := *points[idx-1]
	return &pointCopy, nil
}

// GetByToken retrieves all samples for a token, ordered by (timestamp, seq) ASC.
func (s *SentimentSeriesStore) GetByToken(_ context.Context, tokenAddress string) ([]*domain.SentimentPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.series[tokenAddress]
	result := make([]*domain.SentimentPoint, 0, len(points))
	for _, p := range points {
		pointCopy := *p
		result = append(result, &pointCopy)
	}
	return result, nil
}
