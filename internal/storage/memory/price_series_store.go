package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/openckai/sui-whale-ai-agent/internal/domain"
	"github.com/openckai/sui-whale-ai-agent/internal/storage"
)

// PriceSeriesStore is an in-memory implementation of storage.PriceSeriesStore.
// Each token's series is kept sorted by (timestamp, seq) so that recording an
// out-of-order sample and the predecessor lookup are both O(log n) searches,
// not linear scans. The price history of an active token grows unbounded.
type PriceSeriesStore struct {
	mu      sync.RWMutex
	series  map[string][]*domain.PricePoint // per token, sorted by (timestamp, seq)
	nextSeq int64
}

// NewPriceSeriesStore creates a new in-memory price series store.
func NewPriceSeriesStore() *PriceSeriesStore {
	return &PriceSeriesStore{
		series: make(map[string][]*domain.PricePoint),
	}
}

var _ storage.PriceSeriesStore = (*PriceSeriesStore)(nil)

// Record appends a sample, assigning the next insertion sequence number.
// Samples with equal timestamps keep insertion order, so the last one
// recorded wins predecessor lookups at that exact timestamp.
func (s *PriceSeriesStore) Record(_ context.Context, p *domain.PricePoint) error {
	if p == nil || p.TokenAddress == "" || p.Price <= 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq++
	pointCopy := *p
	pointCopy.Seq = s.nextSeq
	p.Seq = pointCopy.Seq

	points := s.series[p.TokenAddress]
	// Insert after any samples sharing the timestamp.
	idx := sort.Search(len(points), func(i int) bool {
		return points[i].TimestampMs > pointCopy.TimestampMs
	})
	points = append(points, nil)
	copy(points[idx+1:], points[idx:])
	points[idx] = &pointCopy
	s.series[p.TokenAddress] = points

	return nil
}

// AsOf returns the sample with the greatest timestamp <= tsMs, breaking
// timestamp ties by insertion order. Returns ErrNotFound if the token is
// unknown or all samples are strictly after tsMs.
func (s *PriceSeriesStore) AsOf(_ context.Context, tokenAddress string, tsMs int64) (*domain.PricePoint, error) {
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
func (s *PriceSeriesStore) GetByToken(_ context.Context, tokenAddress string) ([]*domain.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.series[tokenAddress]
	result := make([]*domain.PricePoint, 0, len(points))
	for _, p := range points {
		pointCopy := *p
		result = append(result, &pointCopy)
	}
	return result, nil
}

// GetByTimeRange retrieves samples for a token within [start, end] (inclusive).
func (s *PriceSeriesStore) GetByTimeRange(_ context.Context, tokenAddress string, start, end int64) ([]*domain.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.series[tokenAddress]
	lo := sort.Search(len(points), func(i int) bool {
		return points[i].TimestampMs >= start
	})
	hi := sort.Search(len(points), func(i int) bool {
		return points[i].TimestampMs > end
	})

	var result []*domain.PricePoint
	for _, p := range points[lo:hi] {
		pointCopy := *p
		result = append(result, &pointCopy)
	}
	return result, nil
}
