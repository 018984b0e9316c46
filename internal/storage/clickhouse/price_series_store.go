package clickhouse

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/openckai/sui-whale-ai-agent/internal/domain"
	"github.com/openckai/sui-whale-ai-agent/internal/storage"
)

// PriceSeriesStore implements storage.PriceSeriesStore using ClickHouse.
//
// Seq is assigned from a process-local counter seeded with the current
// nanosecond clock. Counters from different processes never collide in
// practice, and ties at the same timestamp are resolved by the larger
// seq, which is the later write.
type PriceSeriesStore struct {
	conn    *Conn
	nextSeq atomic.Int64
}

// NewPriceSeriesStore creates a new PriceSeriesStore.
func NewPriceSeriesStore(conn *Conn) *PriceSeriesStore {
	s := &PriceSeriesStore{conn: conn}
	s.nextSeq.Store(time.Now().UnixNano())
	return s
}

// Compile-time interface check.
var _ storage.PriceSeriesStore = (*PriceSeriesStore)(nil)

// Record appends a sample. Out-of-order timestamps are accepted.
func (s *PriceSeriesStore) Record(ctx context.Context, p *domain.PricePoint) error {
	if p == nil || p.TokenAddress == "" || p.Price <= 0 {
		return storage.ErrInvalidInput
	}

	p.Seq = s.nextSeq.Add(1)

	query := `
		INSERT INTO price_series (token_address, timestamp_ms, price, volume_24h, seq)
		VALUES (?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query, p.TokenAddress, uint64(p.TimestampMs), p.Price, p.Volume24h, uint64(p.Seq))
	if err != nil {
		return fmt.Errorf("insert price point: %w", err)
	}
	return nil
}

// AsOf returns the sample with the greatest timestamp <= tsMs, breaking
// timestamp ties by seq (last recorded wins). Returns ErrNotFound when
// no sample at or before tsMs exists.
func (s *PriceSeriesStore) AsOf(ctx context.Context, tokenAddress string, tsMs int64) (*domain.PricePoint, error) {
	query := `
		SELECT token_address, timestamp_ms, price, volume_24h, seq
		FROM price_series
		WHERE token_address = ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms DESC, seq DESC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, tokenAddress, uint64(tsMs))
	if err != nil {
		return nil, fmt.Errorf("query price as-of: %w", err)
	}
	defer rows.Close()

	points, err := scanPricePoints(rows)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, storage.ErrNotFound
	}
	return points[0], nil
}

// GetByToken retrieves all samples for a token, ordered by (timestamp, seq) ASC.
func (s *PriceSeriesStore) GetByToken(ctx context.Context, tokenAddress string) ([]*domain.PricePoint, error) {
	query := `
		SELECT token_address, timestamp_ms, price, volume_24h, seq
		FROM price_series
		WHERE token_address = ?
		ORDER BY timestamp_ms ASC, seq ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("query price by token: %w", err)
	}
	defer rows.Close()

	return scanPricePoints(rows)
}

// GetByTimeRange retrieves samples for a token within [start, end] (inclusive).
func (s *PriceSeriesStore) GetByTimeRange(ctx context.Context, tokenAddress string, start, end int64) ([]*domain.PricePoint, error) {
	query := `
		SELECT token_address, timestamp_ms, price, volume_24h, seq
		FROM price_series
		WHERE token_address = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC, seq ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenAddress, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query price by time range: %w", err)
	}
	defer rows.Close()

	return scanPricePoints(rows)
}

// scanPricePoints scans multiple rows.
func scanPricePoints(rows chRows) ([]*domain.PricePoint, error) {
	var points []*domain.PricePoint

	for rows.Next() {
		var p domain.PricePoint
		var timestampMs, seq uint64

		err := rows.Scan(&p.TokenAddress, &timestampMs, &p.Price, &p.Volume24h, &seq)
		if err != nil {
			return nil, fmt.Errorf("scan price point row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		p.Seq = int64(seq)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price point rows: %w", err)
	}

	return points, nil
}
