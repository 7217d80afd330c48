package trading

import (
	"github.com/shopspring/decimal"

	"futures-trader/pkg/binance"
)

// Side denotes order side.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderKind denotes the supported order variants.
type OrderKind string

const (
	KindMarket     OrderKind = "MARKET"
	KindLimit      OrderKind = "LIMIT"
	KindStopLimit  OrderKind = "STOP"
	KindStopMarket OrderKind = "STOP_MARKET"
)

// TimeInForce captures how long a limit order stays active.
type TimeInForce string

const (
	TIFGTC TimeInForce = "GTC" // Good Till Cancelled
	TIFIOC TimeInForce = "IOC" // Immediate Or Cancel
	TIFFOK TimeInForce = "FOK" // Fill Or Kill
)

// Intent is a validated, normalized trade intention. It is produced only by
// ParseIntent and never mutated afterwards; Price/StopPrice are zero when
// the kind does not use them (validated prices are strictly positive).
type Intent struct {
	Symbol      string
	Side        Side
	Kind        OrderKind
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	StopPrice   decimal.Decimal
	TimeInForce TimeInForce
}

// orderPayload is one concrete wire shape per order kind. Having a variant
// per kind makes an invalid field combination unrepresentable; conversion
// to the wire encoding happens only here, at the serialization boundary.
type orderPayload interface {
	params() *binance.Params
}

type marketPayload struct {
	symbol   string
	side     Side
	quantity decimal.Decimal
}

func (p marketPayload) params() *binance.Params {
	return binance.NewParams().
		Set("symbol", p.symbol).
		Set("side", string(p.side)).
		Set("type", string(KindMarket)).
		Set("quantity", p.quantity.String())
}

type limitPayload struct {
	symbol      string
	side        Side
	quantity    decimal.Decimal
	price       decimal.Decimal
	timeInForce TimeInForce
}

func (p limitPayload) params() *binance.Params {
	return binance.NewParams().
		Set("symbol", p.symbol).
		Set("side", string(p.side)).
		Set("type", string(KindLimit)).
		Set("quantity", p.quantity.String()).
		Set("price", p.price.String()).
		Set("timeInForce", string(p.timeInForce))
}

type stopLimitPayload struct {
	symbol    string
	side      Side
	quantity  decimal.Decimal
	price     decimal.Decimal
	stopPrice decimal.Decimal
}

func (p stopLimitPayload) params() *binance.Params {
	return binance.NewParams().
		Set("symbol", p.symbol).
		Set("side", string(p.side)).
		Set("type", string(KindStopLimit)).
		Set("quantity", p.quantity.String()).
		Set("price", p.price.String()).
		Set("stopPrice", p.stopPrice.String()).
		Set("timeInForce", string(TIFGTC))
}

type stopMarketPayload struct {
	symbol    string
	side      Side
	quantity  decimal.Decimal
	stopPrice decimal.Decimal
}

func (p stopMarketPayload) params() *binance.Params {
	return binance.NewParams().
		Set("symbol", p.symbol).
		Set("side", string(p.side)).
		Set("type", string(KindStopMarket)).
		Set("quantity", p.quantity.String()).
		Set("stopPrice", p.stopPrice.String())
}

// buildPayload selects the wire shape for a validated intent. The stop-limit
// vs stop-market decision was already made during validation, so the switch
// is exhaustive over the four kinds.
func buildPayload(i Intent) orderPayload {
	switch i.Kind {
	case KindLimit:
		return limitPayload{symbol: i.Symbol, side: i.Side, quantity: i.Quantity, price: i.Price, timeInForce: i.TimeInForce}
	case KindStopLimit:
		return stopLimitPayload{symbol: i.Symbol, side: i.Side, quantity: i.Quantity, price: i.Price, stopPrice: i.StopPrice}
	case KindStopMarket:
		return stopMarketPayload{symbol: i.Symbol, side: i.Side, quantity: i.Quantity, stopPrice: i.StopPrice}
	default:
		return marketPayload{symbol: i.Symbol, side: i.Side, quantity: i.Quantity}
	}
}
