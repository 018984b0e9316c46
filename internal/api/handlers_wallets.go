package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// handleRegisterWallet handles POST /api/wallets.
func (s *Server) handleRegisterWallet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string  `json:"address"`
		Label   *string `json:"label,omitempty"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid request body")
		return
	}

	wallet, err := s.ledger.RegisterWallet(r.Context(), req.Address, req.Label)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, wallet)
}

// handleListWallets handles GET /api/wallets.
func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := s.ledger.ListWallets(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, wallets)
}

// handleGetWallet handles GET /api/wallets/{address}.
func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	wallet, err := s.ledger.GetWallet(r.Context(), address)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, wallet)
}

// handleUpdateWalletLabel handles PUT /api/wallets/{address}/label.
func (s *Server) handleUpdateWalletLabel(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	var req struct {
		Label *string `json:"label"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid request body")
		return
	}

	if err := s.ledger.UpdateWalletLabel(r.Context(), address, req.Label); err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"address": address})
}

// handleDeleteWallet handles DELETE /api/wallets/{address}. The delete
// cascades to the wallet's transactions and alerts atomically.
func (s *Server) handleDeleteWallet(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	result, err := s.ledger.DeleteWallet(r.Context(), address)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"address":              address,
		"alerts_deleted":       result.AlertsDeleted,
		"transactions_deleted": result.TransactionsDeleted,
	})
}

// handleWalletStats handles GET /api/wallets/{address}/stats.
func (s *Server) handleWalletStats(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	stats, err := s.ledger.Stats(r.Context(), address)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// handleWalletTransactions handles GET /api/wallets/{address}/transactions.
func (s *Server) handleWalletTransactions(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	txs, err := s.ledger.WalletTransactions(r.Context(), address)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, txs)
}

// handleWalletAlerts handles GET /api/wallets/{address}/alerts.
func (s *Server) handleWalletAlerts(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	alerts, err := s.ledger.WalletAlerts(r.Context(), address)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}
