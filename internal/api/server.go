// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"github.com/openckai/sui-whale-ai-agent/internal/emitter"
	"github.com/openckai/sui-whale-ai-agent/internal/ledger"
	"github.com/openckai/sui-whale-ai-agent/internal/storage"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	ledger     *ledger.Ledger
	emitter    *emitter.Emitter
	prices     storage.PriceSeriesStore
	sentiments storage.SentimentSeriesStore
	logger     *log.Logger
}

// ServerOptions configures a Server.
type ServerOptions struct {
	Config     ServerConfig
	Ledger     *ledger.Ledger
	Emitter    *emitter.Emitter
	Prices     storage.PriceSeriesStore
	Sentiments storage.SentimentSeriesStore
	Logger     *log.Logger
}

// NewServer creates a new API server instance.
func NewServer(opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[api] ", log.LstdFlags)
	}

	s := &Server{
		router:     mux.NewRouter(),
		ledger:     opts.Ledger,
		emitter:    opts.Emitter,
		prices:     opts.Prices,
		sentiments: opts.Sentiments,
		logger:     logger,
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         opts.Config.Addr,
		Handler:      s.router,
		ReadTimeout:  opts.Config.ReadTimeout,
		WriteTimeout: opts.Config.WriteTimeout,
	}

	return s
}

// Router exposes the handler, for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Wallet endpoints
	api.HandleFunc("/wallets", s.handleRegisterWallet).Methods("POST")
	api.HandleFunc("/wallets", s.handleListWallets).Methods("GET")
	api.HandleFunc("/wallets/{address}", s.handleGetWallet).Methods("GET")
	api.HandleFunc("/wallets/{address}", s.handleDeleteWallet).Methods("DELETE")
	api.HandleFunc("/wallets/{address}/label", s.handleUpdateWalletLabel).Methods("PUT")
	api.HandleFunc("/wallets/{address}/stats", s.handleWalletStats).Methods("GET")
	api.HandleFunc("/wallets/{address}/transactions", s.handleWalletTransactions).Methods("GET")
	api.HandleFunc("/wallets/{address}/alerts", s.handleWalletAlerts).Methods("GET")

	// Token endpoints
	api.HandleFunc("/tokens", s.handleRegisterToken).Methods("POST")
	api.HandleFunc("/tokens", s.handleListTokens).Methods("GET")
	api.HandleFunc("/tokens/{address}", s.handleGetToken).Methods("GET")
	api.HandleFunc("/tokens/{address}/metadata", s.handleUpdateTokenMetadata).Methods("PUT")

	// Transaction endpoints
	api.HandleFunc("/transactions", s.handleSubmitTransaction).Methods("POST")
	api.HandleFunc("/transactions/{hash}", s.handleGetTransaction).Methods("GET")
	api.HandleFunc("/transactions/{hash}/status", s.handleTransactionStatus).Methods("GET")

	// Series endpoints
	api.HandleFunc("/prices", s.handleRecordPrice).Methods("POST")
	api.HandleFunc("/prices/{token}", s.handleQueryPrice).Methods("GET")
	api.HandleFunc("/sentiment", s.handleRecordSentiment).Methods("POST")

	// Operational endpoints
	api.HandleFunc("/redrive", s.handleRedrive).Methods("POST")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "whale-alert-engine",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Printf("listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Println("shutting down")
	return s.httpServer.Shutdown(ctx)
}
