package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openckai/sui-whale-ai-agent/internal/emitter"
	"github.com/openckai/sui-whale-ai-agent/internal/ledger"
	"github.com/openckai/sui-whale-ai-agent/internal/storage/memory"
)

// newTestServer wires the full API over in-memory stores.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	wallets := memory.NewWalletStore()
	tokens := memory.NewTokenStore()
	transactions := memory.NewTransactionStore()
	alerts := memory.NewAlertStore()
	prices := memory.NewPriceSeriesStore()
	sentiments := memory.NewSentimentSeriesStore()

	led := ledger.New(ledger.Options{
		WalletStore:      wallets,
		TokenStore:       tokens,
		TransactionStore: transactions,
		AlertStore:       alerts,
		Cascade:          memory.NewCascade(wallets, transactions, alerts),
	})
	em := emitter.New(emitter.Options{
		WalletStore:      wallets,
		TransactionStore: transactions,
		AlertStore:       alerts,
		PriceSeries:      prices,
		SentimentSeries:  sentiments,
	})

	return NewServer(ServerOptions{
		Ledger:     led,
		Emitter:    em,
		Prices:     prices,
		Sentiments: sentiments,
	})
}

func doRequest(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// registerPair registers a wallet and a token so submits pass validation.
func registerPair(t *testing.T, srv *Server) {
	t.Helper()

	rec := doRequest(t, srv, http.MethodPost, "/api/wallets", map[string]interface{}{
		"address": "0xwallet", "label": "whale one",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register wallet: got %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/tokens", map[string]interface{}{
		"address": "0xtoken", "symbol": "WHL", "decimals": 9,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register token: got %d, body %s", rec.Code, rec.Body.String())
	}
}

func recordPrice(t *testing.T, srv *Server, tsMs int64, price float64) {
	t.Helper()

	rec := doRequest(t, srv, http.MethodPost, "/api/prices", map[string]interface{}{
		"token_address": "0xtoken", "timestamp_ms": tsMs, "price": price,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("record price: got %d, body %s", rec.Code, rec.Body.String())
	}
}

func submitTx(t *testing.T, srv *Server, hash string) *httptest.ResponseRecorder {
	t.Helper()
	return doRequest(t, srv, http.MethodPost, "/api/transactions", map[string]interface{}{
		"wallet_address": "0xwallet",
		"token_address":  "0xtoken",
		"amount":         100.0,
		"usd_value":      250.0,
		"tx_type":        "buy",
		"block_time_ms":  1000,
		"tx_hash":        hash,
	})
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
}

func TestRegisterWalletIdempotent(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/wallets", map[string]interface{}{
		"address": "0xAbC", "label": "first",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("got %d, body %s", rec.Code, rec.Body.String())
	}

	var created struct {
		Address string  `json:"address"`
		Label   *string `json:"label"`
	}
	decodeBody(t, rec, &created)
	if created.Address != "0xabc" {
		t.Errorf("address not canonicalized: %q", created.Address)
	}

	// Re-registering keeps the stored label.
	rec = doRequest(t, srv, http.MethodPost, "/api/wallets", map[string]interface{}{
		"address": "0xabc", "label": "second",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("re-register: got %d", rec.Code)
	}
	decodeBody(t, rec, &created)
	if created.Label == nil || *created.Label != "first" {
		t.Errorf("label = %v, want first", created.Label)
	}
}

func TestGetWalletNotFound(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/wallets/0xmissing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", rec.Code)
	}

	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	if resp.Error.Code != ErrCodeNotFound {
		t.Errorf("error code = %q, want %q", resp.Error.Code, ErrCodeNotFound)
	}
}

func TestSubmitTransactionEnriched(t *testing.T) {
	srv := newTestServer(t)
	registerPair(t, srv)
	recordPrice(t, srv, 900, 2.0)

	rec := submitTx(t, srv, "hash1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("got %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Status     string `json:"status"`
		Enrichment string `json:"enrichment"`
		Alert      struct {
			TxHash        string   `json:"tx_hash"`
			PriceAtTxn    *float64 `json:"price_at_txn"`
			EnrichedScore float64  `json:"enriched_score"`
		} `json:"alert"`
	}
	decodeBody(t, rec, &resp)
	if resp.Status != "accepted" {
		t.Errorf("status = %q, want accepted", resp.Status)
	}
	if resp.Enrichment != "enriched" {
		t.Errorf("enrichment = %q, want enriched", resp.Enrichment)
	}
	if resp.Alert.PriceAtTxn == nil || *resp.Alert.PriceAtTxn != 2.0 {
		t.Errorf("price_at_txn = %v, want 2.0", resp.Alert.PriceAtTxn)
	}
	if resp.Alert.EnrichedScore <= 0 {
		t.Errorf("enriched_score = %v, want > 0", resp.Alert.EnrichedScore)
	}
}

func TestSubmitTransactionDuplicate(t *testing.T) {
	srv := newTestServer(t)
	registerPair(t, srv)
	recordPrice(t, srv, 900, 2.0)

	if rec := submitTx(t, srv, "hash1"); rec.Code != http.StatusCreated {
		t.Fatalf("first submit: got %d", rec.Code)
	}

	rec := submitTx(t, srv, "hash1")
	if rec.Code != http.StatusOK {
		t.Fatalf("duplicate submit: got %d, want 200", rec.Code)
	}

	var resp struct {
		Status string `json:"status"`
	}
	decodeBody(t, rec, &resp)
	if resp.Status != "duplicate" {
		t.Errorf("status = %q, want duplicate", resp.Status)
	}
}

func TestSubmitTransactionValidation(t *testing.T) {
	srv := newTestServer(t)
	registerPair(t, srv)

	tests := []struct {
		name string
		body map[string]interface{}
		want int
	}{
		{
			name: "bad side",
			body: map[string]interface{}{
				"wallet_address": "0xwallet", "token_address": "0xtoken",
				"amount": 1.0, "tx_type": "swap", "block_time_ms": 1000, "tx_hash": "h",
			},
			want: http.StatusBadRequest,
		},
		{
			name: "negative amount",
			body: map[string]interface{}{
				"wallet_address": "0xwallet", "token_address": "0xtoken",
				"amount": -5.0, "tx_type": "buy", "block_time_ms": 1000, "tx_hash": "h",
			},
			want: http.StatusBadRequest,
		},
		{
			name: "unknown wallet",
			body: map[string]interface{}{
				"wallet_address": "0xnobody", "token_address": "0xtoken",
				"amount": 1.0, "tx_type": "buy", "block_time_ms": 1000, "tx_hash": "h",
			},
			want: http.StatusNotFound,
		},
		{
			name: "unknown token",
			body: map[string]interface{}{
				"wallet_address": "0xwallet", "token_address": "0xnothing",
				"amount": 1.0, "tx_type": "buy", "block_time_ms": 1000, "tx_hash": "h",
			},
			want: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPost, "/api/transactions", tt.body)
			if rec.Code != tt.want {
				t.Errorf("got %d, want %d, body %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestTransactionStatusLifecycle(t *testing.T) {
	srv := newTestServer(t)
	registerPair(t, srv)

	// No price recorded: the submit is accepted but unresolvable.
	rec := submitTx(t, srv, "hash1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: got %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/transactions/hash1/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var status struct {
		Status string `json:"status"`
	}
	decodeBody(t, rec, &status)
	if status.Status != "unresolvable" {
		t.Fatalf("status = %q, want unresolvable", status.Status)
	}

	// A price at or before block time plus a redrive resolves it.
	recordPrice(t, srv, 1000, 2.0)
	rec = doRequest(t, srv, http.MethodPost, "/api/redrive", map[string]interface{}{
		"token_address": "0xtoken",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("redrive: got %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/transactions/hash1/status", nil)
	decodeBody(t, rec, &status)
	if status.Status != "enriched" {
		t.Errorf("status after redrive = %q, want enriched", status.Status)
	}
}

func TestQueryPriceAsOf(t *testing.T) {
	srv := newTestServer(t)
	registerPair(t, srv)
	recordPrice(t, srv, 100, 1.0)
	recordPrice(t, srv, 200, 2.0)

	rec := doRequest(t, srv, http.MethodGet, "/api/prices/0xtoken?at=150", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, body %s", rec.Code, rec.Body.String())
	}
	var point struct {
		Price float64 `json:"price"`
	}
	decodeBody(t, rec, &point)
	if point.Price != 1.0 {
		t.Errorf("price = %v, want 1.0", point.Price)
	}

	// Before the first sample there is nothing to return.
	rec = doRequest(t, srv, http.MethodGet, "/api/prices/0xtoken?at=50", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("as-of before first sample: got %d, want 404", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/prices/0xtoken?from=100&to=200", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("range query: got %d", rec.Code)
	}
	var points []struct {
		Price float64 `json:"price"`
	}
	decodeBody(t, rec, &points)
	if len(points) != 2 {
		t.Errorf("range returned %d points, want 2", len(points))
	}
}

func TestRecordSentimentValidation(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/sentiment", map[string]interface{}{
		"token_address": "0xtoken", "timestamp_ms": 100, "score": 1.5, "source": "social",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("out-of-range score: got %d, want 400", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/sentiment", map[string]interface{}{
		"token_address": "0xtoken", "timestamp_ms": 100, "score": 0.5, "source": "social",
	})
	if rec.Code != http.StatusCreated {
		t.Errorf("valid sample: got %d, want 201", rec.Code)
	}
}

func TestDeleteWalletCascade(t *testing.T) {
	srv := newTestServer(t)
	registerPair(t, srv)
	recordPrice(t, srv, 900, 2.0)

	for i := 0; i < 2; i++ {
		if rec := submitTx(t, srv, fmt.Sprintf("hash%d", i)); rec.Code != http.StatusCreated {
			t.Fatalf("submit %d: got %d", i, rec.Code)
		}
	}

	rec := doRequest(t, srv, http.MethodDelete, "/api/wallets/0xwallet", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: got %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		AlertsDeleted       int `json:"alerts_deleted"`
		TransactionsDeleted int `json:"transactions_deleted"`
	}
	decodeBody(t, rec, &resp)
	if resp.AlertsDeleted != 2 || resp.TransactionsDeleted != 2 {
		t.Errorf("deleted %d alerts / %d transactions, want 2 / 2",
			resp.AlertsDeleted, resp.TransactionsDeleted)
	}

	// The token registry is untouched by the cascade.
	rec = doRequest(t, srv, http.MethodGet, "/api/tokens/0xtoken", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("token after cascade: got %d, want 200", rec.Code)
	}
	rec = doRequest(t, srv, http.MethodGet, "/api/wallets/0xwallet", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("wallet after cascade: got %d, want 404", rec.Code)
	}
}

func TestUpdateTokenMetadata(t *testing.T) {
	srv := newTestServer(t)
	registerPair(t, srv)

	rec := doRequest(t, srv, http.MethodPut, "/api/tokens/0xtoken/metadata", map[string]interface{}{
		"symbol": "WHALE", "name": "Whale Token", "decimals": 6,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/tokens/0xtoken", nil)
	var tok struct {
		Symbol   string `json:"symbol"`
		Decimals int    `json:"decimals"`
	}
	decodeBody(t, rec, &tok)
	if tok.Symbol != "WHALE" || tok.Decimals != 6 {
		t.Errorf("token = %+v, want symbol WHALE decimals 6", tok)
	}
}

func TestMalformedBody(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/wallets", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", rec.Code)
	}

	// Unknown fields are rejected too.
	rec = doRequest(t, srv, http.MethodPost, "/api/wallets", map[string]interface{}{
		"address": "0xabc", "bogus": true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown field: got %d, want 400", rec.Code)
	}
}
