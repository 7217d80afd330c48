package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"futures-trader/internal/trading"
	"futures-trader/pkg/binance"
	"futures-trader/pkg/db"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testHarness spins up the full stack against a stub exchange.
type testHarness struct {
	t        *testing.T
	server   *Server
	exchange *stubExchange
}

type stubExchange struct {
	orderStatus int
	orderBody   string
	orderCalls  int
}

func (s *stubExchange) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fapi/v1/ping":
			w.Write([]byte(`{}`))
		case "/fapi/v1/order":
			s.orderCalls++
			status := s.orderStatus
			if status == 0 {
				status = http.StatusOK
			}
			body := s.orderBody
			if body == "" {
				body = `{"orderId":1001,"clientOrderId":"cid-1","symbol":"BTCUSDT","side":"BUY","type":"LIMIT","status":"NEW","origQty":"0.001","price":"90000"}`
			}
			w.WriteHeader(status)
			w.Write([]byte(body))
		case "/fapi/v1/exchangeInfo":
			w.Write([]byte(`{"symbols":[
				{"symbol":"BTCUSDT","status":"TRADING","baseAsset":"BTC","quoteAsset":"USDT"},
				{"symbol":"DELISTED","status":"BREAK","baseAsset":"X","quoteAsset":"USDT"}
			]}`))
		default:
			w.Write([]byte(`{}`))
		}
	}
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.ApplyMigrations(database); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	exchange := &stubExchange{}
	exchangeSrv := httptest.NewServer(exchange.handler())
	t.Cleanup(exchangeSrv.Close)

	client := binance.NewClient(binance.Config{
		APIKey:         "k",
		APISecret:      "s",
		BaseURL:        exchangeSrv.URL,
		RetryBaseDelay: time.Millisecond,
	})
	manager := trading.NewManager(client, nil)
	server := NewServer(database, manager, "test-jwt-secret", nil)

	return &testHarness{t: t, server: server, exchange: exchange}
}

func (h *testHarness) request(method, path, token string, payload any) *httptest.ResponseRecorder {
	h.t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			h.t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.server.Router.ServeHTTP(rec, req)
	return rec
}

func (h *testHarness) registerAndLogin(username string) string {
	h.t.Helper()
	creds := gin.H{"username": username, "password": "s3cret"}
	if rec := h.request(http.MethodPost, "/api/auth/register", "", creds); rec.Code != http.StatusCreated {
		h.t.Fatalf("register: status %d body %s", rec.Code, rec.Body.String())
	}
	rec := h.request(http.MethodPost, "/api/auth/login", "", creds)
	if rec.Code != http.StatusOK {
		h.t.Fatalf("login: status %d body %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil || out.Token == "" {
		h.t.Fatalf("login response: %s", rec.Body.String())
	}
	return out.Token
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestRegisterLoginAndMe(t *testing.T) {
	h := newHarness(t)
	token := h.registerAndLogin("alice")

	rec := h.request(http.MethodGet, "/api/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: status %d body %s", rec.Code, rec.Body.String())
	}
	if out := decodeJSON(t, rec); out["username"] != "alice" {
		t.Fatalf("username = %v", out["username"])
	}

	// Duplicate registration conflicts.
	rec = h.request(http.MethodPost, "/api/auth/register", "", gin.H{"username": "alice", "password": "x"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: status %d", rec.Code)
	}

	// Wrong password rejected.
	rec = h.request(http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: status %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/api/account", "/api/journal", "/api/open-orders"} {
		rec := h.request(http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status %d, want 401", path, rec.Code)
		}
	}
	rec := h.request(http.MethodGet, "/api/journal", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: status %d", rec.Code)
	}
}

func TestPlaceOrderPersistsJournalRow(t *testing.T) {
	h := newHarness(t)
	token := h.registerAndLogin("bob")

	rec := h.request(http.MethodPost, "/api/order", token, gin.H{
		"symbol":        "btcusdt",
		"side":          "buy",
		"order_type":    "LIMIT",
		"quantity":      "0.001",
		"price":         "90000",
		"time_in_force": "GTC",
		"notes":         "breakout entry",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("place order: status %d body %s", rec.Code, rec.Body.String())
	}
	out := decodeJSON(t, rec)
	order, _ := out["order"].(map[string]any)
	if order == nil || order["status"] != "NEW" {
		t.Fatalf("order in response: %v", out)
	}
	if order["symbol"] != "BTCUSDT" {
		t.Fatalf("symbol = %v, want normalized BTCUSDT", order["symbol"])
	}

	rec = h.request(http.MethodGet, "/api/journal", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("journal: status %d", rec.Code)
	}
	var rows []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode journal: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("journal rows = %d, want 1", len(rows))
	}
	row := rows[0]
	if row["symbol"] != "BTCUSDT" || row["notes"] != "breakout entry" || row["status"] != "NEW" {
		t.Fatalf("journal row: %v", row)
	}
	if row["quantity"] != "0.001" || row["price"] != "90000" {
		t.Fatalf("decimal strings mangled in journal: %v", row)
	}
}

func TestPlaceOrderValidationMapsTo422(t *testing.T) {
	h := newHarness(t)
	token := h.registerAndLogin("carol")

	rec := h.request(http.MethodPost, "/api/order", token, gin.H{
		"symbol":     "BTCUSDT",
		"side":       "BUY",
		"order_type": "MARKET",
		"quantity":   "-1",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (body %s)", rec.Code, rec.Body.String())
	}
	out := decodeJSON(t, rec)
	if out["field"] != "quantity" {
		t.Fatalf("field = %v", out["field"])
	}
	if h.exchange.orderCalls != 0 {
		t.Fatalf("exchange called %d times for invalid input", h.exchange.orderCalls)
	}
}

func TestPlaceOrderExchangeErrorMapsTo400(t *testing.T) {
	h := newHarness(t)
	token := h.registerAndLogin("dave")
	h.exchange.orderStatus = http.StatusBadRequest
	h.exchange.orderBody = `{"code":-2019,"msg":"Margin is insufficient."}`

	rec := h.request(http.MethodPost, "/api/order", token, gin.H{
		"symbol":     "BTCUSDT",
		"side":       "BUY",
		"order_type": "MARKET",
		"quantity":   "100",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
	}
	out := decodeJSON(t, rec)
	if out["code"] != "EXCHANGE_ERROR" {
		t.Fatalf("code = %v", out["code"])
	}
	if code, ok := out["exchange_code"].(float64); !ok || int64(code) != -2019 {
		t.Fatalf("exchange_code = %v", out["exchange_code"])
	}

	// Nothing journaled for a rejected order.
	rec = h.request(http.MethodGet, "/api/journal", token, nil)
	var rows []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil || len(rows) != 0 {
		t.Fatalf("journal rows = %d after rejection", len(rows))
	}
}

func TestPlaceOrderTransportErrorMapsTo502(t *testing.T) {
	h := newHarness(t)
	token := h.registerAndLogin("erin")
	h.exchange.orderStatus = http.StatusServiceUnavailable
	h.exchange.orderBody = `{}`

	rec := h.request(http.MethodPost, "/api/order", token, gin.H{
		"symbol":     "BTCUSDT",
		"side":       "BUY",
		"order_type": "MARKET",
		"quantity":   "1",
	})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502 (body %s)", rec.Code, rec.Body.String())
	}
	if h.exchange.orderCalls != binance.DefaultMaxAttempts {
		t.Fatalf("exchange calls = %d, want %d", h.exchange.orderCalls, binance.DefaultMaxAttempts)
	}
}

func TestJournalUpdateAndDeleteWithOwnership(t *testing.T) {
	h := newHarness(t)
	owner := h.registerAndLogin("frank")
	other := h.registerAndLogin("grace")

	rec := h.request(http.MethodPost, "/api/order", owner, gin.H{
		"symbol":     "BTCUSDT",
		"side":       "BUY",
		"order_type": "MARKET",
		"quantity":   "1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("place order: %d %s", rec.Code, rec.Body.String())
	}
	tradeID, _ := decodeJSON(t, rec)["trade_id"].(string)
	if tradeID == "" {
		t.Fatal("missing trade_id in response")
	}

	// A different user cannot touch the row.
	rec = h.request(http.MethodPatch, "/api/journal/"+tradeID, other, gin.H{"notes": "x"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cross-user patch: status %d", rec.Code)
	}
	rec = h.request(http.MethodDelete, "/api/journal/"+tradeID, other, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cross-user delete: status %d", rec.Code)
	}

	rec = h.request(http.MethodPatch, "/api/journal/"+tradeID, owner, gin.H{"notes": "scaled out"})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: status %d body %s", rec.Code, rec.Body.String())
	}
	if out := decodeJSON(t, rec); out["notes"] != "scaled out" {
		t.Fatalf("notes = %v", out["notes"])
	}

	rec = h.request(http.MethodDelete, "/api/journal/"+tradeID, owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d", rec.Code)
	}
	rec = h.request(http.MethodDelete, "/api/journal/"+tradeID, owner, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("double delete: status %d", rec.Code)
	}
}

func TestExchangeInfoFiltersNonTrading(t *testing.T) {
	h := newHarness(t)
	rec := h.request(http.MethodGet, "/api/exchange-info", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	out := decodeJSON(t, rec)
	symbols, _ := out["symbols"].([]any)
	if len(symbols) != 1 {
		t.Fatalf("symbols = %v, want only TRADING entries", out["symbols"])
	}
	first, _ := symbols[0].(map[string]any)
	if first["symbol"] != "BTCUSDT" {
		t.Fatalf("symbol = %v", first["symbol"])
	}
}

func TestHealthAndPing(t *testing.T) {
	h := newHarness(t)
	if rec := h.request(http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("health: status %d", rec.Code)
	}
	rec := h.request(http.MethodGet, "/api/ping", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ping: status %d", rec.Code)
	}
	if out := decodeJSON(t, rec); out["status"] != "ok" {
		t.Fatalf("ping status = %v", out["status"])
	}
}
