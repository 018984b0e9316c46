package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// handleRegisterToken handles POST /api/tokens.
func (s *Server) handleRegisterToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address  string  `json:"address"`
		Symbol   string  `json:"symbol"`
		Name     *string `json:"name,omitempty"`
		Decimals *int    `json:"decimals,omitempty"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid request body")
		return
	}

	decimals := -1
	if req.Decimals != nil {
		decimals = *req.Decimals
	}

	token, err := s.ledger.RegisterToken(r.Context(), req.Address, req.Symbol, req.Name, decimals)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, token)
}

// handleListTokens handles GET /api/tokens.
func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := s.ledger.ListTokens(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tokens)
}

// handleGetToken handles GET /api/tokens/{address}.
func (s *Server) handleGetToken(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	token, err := s.ledger.GetToken(r.Context(), address)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, token)
}

// handleUpdateTokenMetadata handles PUT /api/tokens/{address}/metadata.
func (s *Server) handleUpdateTokenMetadata(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	var req struct {
		Symbol   string  `json:"symbol"`
		Name     *string `json:"name,omitempty"`
		Decimals int     `json:"decimals"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid request body")
		return
	}

	if err := s.ledger.UpdateTokenMetadata(r.Context(), address, req.Symbol, req.Name, req.Decimals); err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"address": address})
}
