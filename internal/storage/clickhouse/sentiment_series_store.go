package clickhouse

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/openckai/sui-whale-ai-agent/internal/domain"
	"github.com/openckai/sui-whale-ai-agent/internal/storage"
)

// SentimentSeriesStore implements storage.SentimentSeriesStore using ClickHouse.
type SentimentSeriesStore struct {
	conn    *Conn
	nextSeq atomic.Int64
}

// NewSentimentSeriesStore creates a new SentimentSeriesStore.
func NewSentimentSeriesStore(conn *Conn) *SentimentSeriesStore {
	s := &SentimentSeriesStore{conn: conn}
	s.nextSeq.Store(time.Now().UnixNano())
	return s
}

// Compile-time interface check.
var _ storage.SentimentSeriesStore = (*SentimentSeriesStore)(nil)

// Record appends a sample. Scores are bounded to [-1, 1].
func (s *SentimentSeriesStore) Record(ctx context.Context, p *domain.SentimentPoint) error {
	if p == nil || p.TokenAddress == "" || p.Score < -1 || p.Score > 1 {
		return storage.ErrInvalidInput
	}

	p.Seq = s.nextSeq.Add(1)

	query := `
		INSERT INTO sentiment_series (token_address, timestamp_ms, score, source, seq)
		VALUES (?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query, p.TokenAddress, uint64(p.TimestampMs), p.Score, p.Source, uint64(p.Seq))
	if err != nil {
		return fmt.Errorf("insert sentiment point: %w", err)
	}
	return nil
}

// AsOf returns the sample with the greatest timestamp <= tsMs, breaking
// timestamp ties by seq. Returns ErrNotFound when no such sample exists.
func (s *SentimentSeriesStore) AsOf(ctx context.Context, tokenAddress string, tsMs int64) (*domain.SentimentPoint, error) {
	query := `
		SELECT token_address, timestamp_ms, score, source, seq
		FROM sentiment_series
		WHERE token_address = ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms DESC, seq DESC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, tokenAddress, uint64(tsMs))
	if err != nil {
		return nil, fmt.Errorf("query sentiment as-of: %w", err)
	}
	defer rows.Close()

	points, err := scanSentimentPoints(rows)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, storage.ErrNotFound
	}
	return points[0], nil
}

// GetByToken retrieves all samples for a token, ordered by (timestamp, seq) ASC.
func (s *SentimentSeriesStore) GetByToken(ctx context.Context, tokenAddress string) ([]*domain.SentimentPoint, error) {
	query := `
		SELECT token_address, timestamp_ms, score, source, seq
		FROM sentiment_series
		WHERE token_address = ?
		ORDER BY timestamp_ms ASC, seq ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("query sentiment by token: %w", err)
	}
	defer rows.Close()

	return scanSentimentPoints(rows)
}

// scanSentimentPoints scans multiple rows.
func scanSentimentPoints(rows chRows) ([]*domain.SentimentPoint, error) {
	var points []*domain.SentimentPoint

	for rows.Next() {
		var p domain.SentimentPoint
		var timestampMs, seq uint64

		err := rows.Scan(&p.TokenAddress, &timestampMs, &p.Score, &p.Source, &seq)
		if err != nil {
			return nil, fmt.Errorf("scan sentiment point row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		p.Seq = int64(seq)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sentiment point rows: %w", err)
	}

	return points, nil
}
