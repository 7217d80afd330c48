package trading

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"futures-trader/pkg/binance"
)

// Manager is the order-lifecycle controller: it turns a validated intent
// into the correct payload shape, runs it through the signed request
// pipeline, and maps the response into an OrderResult. Each submission is
// independent; a pipeline failure is final for that call (the pipeline owns
// all retrying).
type Manager struct {
	client      *binance.Client
	log         *zap.Logger
	newClientID func() string
}

// NewManager wires a controller around a configured client.
func NewManager(client *binance.Client, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		client:      client,
		log:         log,
		newClientID: uuid.NewString,
	}
}

// Submit places an order for a validated intent. Every submission carries a
// freshly generated client order id, held constant across the pipeline's
// retry attempts so the exchange deduplicates a retried placement.
func (m *Manager) Submit(ctx context.Context, intent Intent) (*OrderResult, error) {
	params := buildPayload(intent).params()
	params.Set("newClientOrderId", m.newClientID())

	m.log.Info("submitting order",
		zap.String("symbol", intent.Symbol),
		zap.String("side", string(intent.Side)),
		zap.String("type", string(intent.Kind)),
		zap.String("quantity", intent.Quantity.String()),
	)

	raw, err := m.client.PlaceOrder(ctx, params)
	if err != nil {
		return nil, err
	}
	result, err := ParseOrderResult(raw)
	if err != nil {
		return nil, err
	}
	m.log.Info("order placed",
		zap.Int64("orderId", result.OrderID),
		zap.String("status", result.Status),
	)
	return result, nil
}

// PlaceMarketOrder places a MARKET order.
func (m *Manager) PlaceMarketOrder(ctx context.Context, symbol string, side Side, quantity decimal.Decimal) (*OrderResult, error) {
	return m.Submit(ctx, Intent{Symbol: symbol, Side: side, Kind: KindMarket, Quantity: quantity})
}

// PlaceLimitOrder places a LIMIT order. Empty time-in-force means GTC.
func (m *Manager) PlaceLimitOrder(ctx context.Context, symbol string, side Side, quantity, price decimal.Decimal, tif TimeInForce) (*OrderResult, error) {
	if tif == "" {
		tif = TIFGTC
	}
	return m.Submit(ctx, Intent{Symbol: symbol, Side: side, Kind: KindLimit, Quantity: quantity, Price: price, TimeInForce: tif})
}

// PlaceStopOrder places a stop order. A positive limit price selects
// stop-limit (STOP); a zero price selects STOP_MARKET.
func (m *Manager) PlaceStopOrder(ctx context.Context, symbol string, side Side, quantity, stopPrice, price decimal.Decimal) (*OrderResult, error) {
	intent := Intent{Symbol: symbol, Side: side, Kind: KindStopMarket, Quantity: quantity, StopPrice: stopPrice}
	if price.IsPositive() {
		intent.Kind = KindStopLimit
		intent.Price = price
	}
	return m.Submit(ctx, intent)
}

// GetOrder fetches a single order by symbol and exchange order id.
func (m *Manager) GetOrder(ctx context.Context, symbol string, orderID int64) (*OrderResult, error) {
	raw, err := m.client.GetOrder(ctx, symbol, orderID)
	if err != nil {
		return nil, err
	}
	return ParseOrderResult(raw)
}

// CancelOrder cancels an open order and returns its final state.
func (m *Manager) CancelOrder(ctx context.Context, symbol string, orderID int64) (*OrderResult, error) {
	raw, err := m.client.CancelOrder(ctx, symbol, orderID)
	if err != nil {
		return nil, err
	}
	return ParseOrderResult(raw)
}

// OpenOrders lists open orders, optionally filtered by symbol.
func (m *Manager) OpenOrders(ctx context.Context, symbol string) ([]binance.OpenOrder, error) {
	return m.client.OpenOrders(ctx, symbol)
}

// Account fetches the account snapshot.
func (m *Manager) Account(ctx context.Context) (*binance.AccountInfo, error) {
	return m.client.Account(ctx)
}

// ExchangeInfo fetches trading rules and symbol metadata.
func (m *Manager) ExchangeInfo(ctx context.Context) (*binance.ExchangeInfo, error) {
	return m.client.ExchangeInfo(ctx)
}

// Ping reports reachability as a boolean instead of an error.
func (m *Manager) Ping(ctx context.Context) bool {
	if err := m.client.Ping(ctx); err != nil {
		m.log.Warn("ping failed", zap.Error(err))
		return false
	}
	return true
}
