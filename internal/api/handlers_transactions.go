package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/openckai/sui-whale-ai-agent/internal/ledger"
	"github.com/openckai/sui-whale-ai-agent/internal/observability"
)

// handleSubmitTransaction handles POST /api/transactions. An accepted
// transaction is driven through enrichment synchronously; a duplicate hash
// is reported as such, never as an error.
func (s *Server) handleSubmitTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletAddress string   `json:"wallet_address"`
		TokenAddress  string   `json:"token_address"`
		Amount        float64  `json:"amount"`
		USDValue      *float64 `json:"usd_value,omitempty"`
		TxType        string   `json:"tx_type"`
		BlockTimeMs   int64    `json:"block_time_ms"`
		TxHash        string   `json:"tx_hash"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid request body")
		return
	}

	result, err := s.ledger.Submit(r.Context(), ledger.SubmitRequest{
		WalletAddress: req.WalletAddress,
		TokenAddress:  req.TokenAddress,
		Amount:        req.Amount,
		USDValue:      req.USDValue,
		TxType:        req.TxType,
		BlockTimeMs:   req.BlockTimeMs,
		TxHash:        req.TxHash,
	})
	if err != nil {
		observability.RecordSubmit("rejected")
		mapError(w, err)
		return
	}
	observability.RecordSubmit(string(result.Status))

	if result.Status == ledger.StatusDuplicate {
		respondJSON(w, http.StatusOK, map[string]string{
			"status":  string(result.Status),
			"tx_hash": req.TxHash,
		})
		return
	}

	outcome, err := s.emitter.Process(r.Context(), result.Transaction)
	if err != nil {
		s.logger.Printf("enrich %s: %v", req.TxHash, err)
		// The transaction is recorded; enrichment will be retried by the
		// periodic re-drive.
		respondJSON(w, http.StatusAccepted, map[string]string{
			"status":  string(result.Status),
			"tx_hash": req.TxHash,
		})
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":      string(result.Status),
		"tx_hash":     req.TxHash,
		"enrichment":  string(outcome.Status),
		"alert":       outcome.Alert,
		"transaction": result.Transaction,
	})
}

// handleGetTransaction handles GET /api/transactions/{hash}.
func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]

	tx, err := s.ledger.GetTransaction(r.Context(), hash)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

// handleTransactionStatus handles GET /api/transactions/{hash}/status.
func (s *Server) handleTransactionStatus(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]

	status, err := s.emitter.Status(r.Context(), hash)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"tx_hash": hash,
		"status":  string(status),
	})
}

// handleRedrive handles POST /api/redrive. With a token in the body only
// that token's unresolved transactions are retried; without one, all are.
func (s *Server) handleRedrive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TokenAddress string `json:"token_address,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := parseJSONBody(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid request body")
			return
		}
	}

	var result interface{}
	var err error
	if req.TokenAddress != "" {
		result, err = s.emitter.Redrive(r.Context(), req.TokenAddress)
	} else {
		result, err = s.emitter.RedriveAll(r.Context())
	}
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
