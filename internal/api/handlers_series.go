package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/openckai/sui-whale-ai-agent/internal/domain"
	"github.com/openckai/sui-whale-ai-agent/internal/observability"
)

// handleRecordPrice handles POST /api/prices. Recording a sample kicks off
// a re-drive for the token in the background, so transactions waiting on
// price data get another chance immediately.
func (s *Server) handleRecordPrice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TokenAddress string   `json:"token_address"`
		TimestampMs  int64    `json:"timestamp_ms"`
		Price        float64  `json:"price"`
		Volume24h    *float64 `json:"volume_24h,omitempty"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid request body")
		return
	}

	point := &domain.PricePoint{
		TokenAddress: domain.CanonicalAddress(req.TokenAddress),
		TimestampMs:  req.TimestampMs,
		Price:        req.Price,
		Volume24h:    req.Volume24h,
	}
	if err := s.prices.Record(r.Context(), point); err != nil {
		mapError(w, err)
		return
	}
	observability.RecordFeedSample("price")

	redriveCtx := context.WithoutCancel(r.Context())
	go func() {
		if _, err := s.emitter.Redrive(redriveCtx, point.TokenAddress); err != nil {
			s.logger.Printf("redrive %s: %v", point.TokenAddress, err)
		}
	}()

	respondJSON(w, http.StatusCreated, point)
}

// handleQueryPrice handles GET /api/prices/{token}. With ?at=<ms> it
// returns the as-of sample; with ?from=&to= a range; otherwise the full
// series.
func (s *Server) handleQueryPrice(w http.ResponseWriter, r *http.Request) {
	token := domain.CanonicalAddress(mux.Vars(r)["token"])
	q := r.URL.Query()

	if at := q.Get("at"); at != "" {
		tsMs, err := strconv.ParseInt(at, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid at parameter")
			return
		}
		point, err := s.prices.AsOf(r.Context(), token, tsMs)
		if err != nil {
			mapError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, point)
		return
	}

	if from, to := q.Get("from"), q.Get("to"); from != "" && to != "" {
		start, err1 := strconv.ParseInt(from, 10, 64)
		end, err2 := strconv.ParseInt(to, 10, 64)
		if err1 != nil || err2 != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid from/to parameters")
			return
		}
		points, err := s.prices.GetByTimeRange(r.Context(), token, start, end)
		if err != nil {
			mapError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, points)
		return
	}

	points, err := s.prices.GetByToken(r.Context(), token)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, points)
}

// handleRecordSentiment handles POST /api/sentiment.
func (s *Server) handleRecordSentiment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TokenAddress string  `json:"token_address"`
		TimestampMs  int64   `json:"timestamp_ms"`
		Score        float64 `json:"score"`
		Source       string  `json:"source"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid request body")
		return
	}

	point := &domain.SentimentPoint{
		TokenAddress: domain.CanonicalAddress(req.TokenAddress),
		TimestampMs:  req.TimestampMs,
		Score:        req.Score,
		Source:       req.Source,
	}
	if err := s.sentiments.Record(r.Context(), point); err != nil {
		mapError(w, err)
		return
	}
	observability.RecordFeedSample("sentiment")
	respondJSON(w, http.StatusCreated, point)
}
