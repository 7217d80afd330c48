package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL points at the USDT-M futures testnet; override via
	// config for production.
	DefaultBaseURL = "https://testnet.binancefuture.com"

	// DefaultRecvWindow is the tolerated gap (ms) between our timestamp and
	// the exchange clock before it rejects the request as stale.
	DefaultRecvWindow int64 = 5000

	// DefaultTimeout bounds each HTTP attempt.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxAttempts is the total attempt budget (1 initial + retries).
	DefaultMaxAttempts = 3

	defaultRetryBaseDelay = 500 * time.Millisecond
	futuresWeightLimit    = 2400 // weight/min for USDT-M futures
	maxLoggedBody         = 512
)

// Config holds credentials and tunables for the futures client.
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string

	RecvWindow     int64
	Timeout        time.Duration
	MaxAttempts    int
	RetryBaseDelay time.Duration

	Logger *zap.Logger
}

// Client executes signed and unsigned requests against the futures REST API.
// It is safe for concurrent use: credentials are read-only after
// construction and every call builds its own parameter set.
type Client struct {
	cfg        Config
	httpClient *http.Client
	usage      *usageTracker
	clock      *timeSync
	log        *zap.Logger
}

// NewClient builds a client. Credentials may be empty; unsigned endpoints
// still work and signed calls fail with ErrMissingCredentials.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.RecvWindow == 0 {
		cfg.RecvWindow = DefaultRecvWindow
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryBaseDelay == 0 {
		cfg.RetryBaseDelay = defaultRetryBaseDelay
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		usage:      newUsageTracker(futuresWeightLimit, time.Minute, log),
		clock:      &timeSync{},
		log:        log,
	}
}

// HasCredentials reports whether signed endpoints can be used.
func (c *Client) HasCredentials() bool {
	return c.cfg.APIKey != "" && c.cfg.APISecret != ""
}

// Usage exposes the rate-limit weight reported by the exchange.
func (c *Client) Usage() (used, limit int, percentage float64) {
	return c.usage.Usage()
}

func sign(data, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// retryableStatus mirrors the transient statuses worth retrying; everything
// else carries a definitive exchange answer.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// do runs the request pipeline: per-attempt signing (fresh timestamp and
// signature every time), bounded retry with exponential backoff, and
// classification of the response into body / APIError / TransportError.
func (c *Client) do(ctx context.Context, method, path string, params *Params, signed bool) ([]byte, error) {
	if signed && !c.HasCredentials() {
		return nil, ErrMissingCredentials
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := c.cfg.RetryBaseDelay << (attempt - 2)
			select {
			case <-ctx.Done():
				return nil, &TransportError{Method: method, Path: path, Attempts: attempt - 1, Err: ctx.Err()}
			case <-time.After(delay):
			}
		}

		body, retryable, err := c.attempt(ctx, method, path, params, signed, attempt)
		if err == nil {
			return body, nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return nil, err
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}
	return nil, &TransportError{Method: method, Path: path, Attempts: c.cfg.MaxAttempts, Err: lastErr}
}

// attempt executes one HTTP round trip. A stale signature is never reused:
// the caller's params are cloned and timestamp/recvWindow/signature are
// regenerated here, per attempt.
func (c *Client) attempt(ctx context.Context, method, path string, params *Params, signed bool, attempt int) (body []byte, retryable bool, err error) {
	p := params.Clone()
	if signed {
		p.Set("timestamp", strconv.FormatInt(c.clock.nowMilli(), 10))
		p.Set("recvWindow", strconv.FormatInt(c.cfg.RecvWindow, 10))
		p.Set("signature", sign(p.Encode(), c.cfg.APISecret))
	}
	encoded := p.Encode()

	var req *http.Request
	switch method {
	case http.MethodGet, http.MethodDelete:
		url := c.cfg.BaseURL + path
		if encoded != "" {
			url += "?" + encoded
		}
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	case http.MethodPost:
		req, err = http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, strings.NewReader(encoded))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	default:
		return nil, false, fmt.Errorf("unsupported HTTP method: %s", method)
	}
	if err != nil {
		return nil, false, err
	}
	if c.cfg.APIKey != "" {
		// Key travels in the header, never in body or query.
		req.Header.Set("X-MBX-APIKEY", c.cfg.APIKey)
	}

	c.log.Debug("binance request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("attempt", attempt),
		zap.Any("params", p.redacted()),
	)

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("binance transport failure",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return nil, true, err
	}
	defer res.Body.Close()

	body, readErr := io.ReadAll(res.Body)
	if readErr != nil {
		return nil, true, readErr
	}
	c.usage.updateFromHeader(res.Header.Get("X-MBX-USED-WEIGHT-1M"))

	c.log.Debug("binance response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", res.StatusCode),
		zap.String("body", truncate(body, maxLoggedBody)),
	)

	if retryableStatus(res.StatusCode) {
		return nil, true, fmt.Errorf("status %d: %s", res.StatusCode, truncate(body, maxLoggedBody))
	}

	// Exchange errors carry a nonzero code in the body regardless of the
	// HTTP status, including 2xx.
	var probe struct {
		Code int64  `json:"code"`
		Msg  string `json:"msg"`
	}
	if jsonErr := json.Unmarshal(body, &probe); jsonErr == nil && probe.Code != 0 {
		apiErr := &APIError{Code: probe.Code, Message: probe.Msg}
		c.log.Warn("binance api error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int64("code", apiErr.Code),
			zap.String("message", apiErr.Message),
		)
		return nil, false, apiErr
	}

	if res.StatusCode >= 300 {
		return nil, false, fmt.Errorf("unexpected status %d: %s", res.StatusCode, truncate(body, maxLoggedBody))
	}
	if !json.Valid(body) {
		c.log.Error("binance returned malformed body",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", res.StatusCode),
			zap.String("body", truncate(body, maxLoggedBody)),
		)
		return nil, false, fmt.Errorf("malformed response body on %s %s", method, path)
	}
	return body, false, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "...(truncated)"
}

// Ping checks connectivity without credentials.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/fapi/v1/ping", NewParams(), false)
	return err
}

// ServerTime fetches the exchange clock and records the local offset.
func (c *Client) ServerTime(ctx context.Context) (int64, error) {
	body, err := c.do(ctx, http.MethodGet, "/fapi/v1/time", NewParams(), false)
	if err != nil {
		return 0, err
	}
	var out struct {
		ServerTime int64 `json:"serverTime"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("decode server time: %w", err)
	}
	c.clock.update(out.ServerTime)
	return out.ServerTime, nil
}

// ExchangeInfo fetches trading rules and symbol metadata.
func (c *Client) ExchangeInfo(ctx context.Context) (*ExchangeInfo, error) {
	body, err := c.do(ctx, http.MethodGet, "/fapi/v1/exchangeInfo", NewParams(), false)
	if err != nil {
		return nil, err
	}
	var info ExchangeInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode exchange info: %w", err)
	}
	return &info, nil
}

// Account fetches balances and positions.
func (c *Client) Account(ctx context.Context) (*AccountInfo, error) {
	body, err := c.do(ctx, http.MethodGet, "/fapi/v2/account", NewParams(), true)
	if err != nil {
		return nil, err
	}
	var info AccountInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode account info: %w", err)
	}
	return &info, nil
}

// PlaceOrder submits an order. The raw body is returned so the caller can
// map it into its result type with the full payload preserved for audit.
func (c *Client) PlaceOrder(ctx context.Context, params *Params) ([]byte, error) {
	return c.do(ctx, http.MethodPost, "/fapi/v1/order", params, true)
}

// GetOrder fetches a single order by symbol and exchange order id.
func (c *Client) GetOrder(ctx context.Context, symbol string, orderID int64) ([]byte, error) {
	params := NewParams().
		Set("symbol", symbol).
		Set("orderId", strconv.FormatInt(orderID, 10))
	return c.do(ctx, http.MethodGet, "/fapi/v1/order", params, true)
}

// CancelOrder cancels an open order by symbol and exchange order id.
func (c *Client) CancelOrder(ctx context.Context, symbol string, orderID int64) ([]byte, error) {
	params := NewParams().
		Set("symbol", symbol).
		Set("orderId", strconv.FormatInt(orderID, 10))
	return c.do(ctx, http.MethodDelete, "/fapi/v1/order", params, true)
}

// OpenOrders lists open orders, optionally filtered by symbol.
func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]OpenOrder, error) {
	params := NewParams()
	if symbol != "" {
		params.Set("symbol", symbol)
	}
	body, err := c.do(ctx, http.MethodGet, "/fapi/v1/openOrders", params, true)
	if err != nil {
		return nil, err
	}
	var orders []OpenOrder
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, fmt.Errorf("decode open orders: %w", err)
	}
	return orders, nil
}
