package trading

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidationError identifies which input field was rejected and why. It is
// purely local: no request reaches the network when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// OrderInput carries raw, untrusted order fields as strings (from CLI flags
// or an HTTP body). Empty strings mean "not provided".
type OrderInput struct {
	Symbol      string
	Side        string
	Kind        string
	Quantity    string
	Price       string
	StopPrice   string
	TimeInForce string
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func parsePositiveDecimal(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: field, Message: fmt.Sprintf("%q is not a valid number", raw)}
	}
	if !d.IsPositive() {
		return decimal.Zero, &ValidationError{Field: field, Message: fmt.Sprintf("must be greater than 0 (got %s)", d)}
	}
	return d, nil
}

// ParseIntent validates and normalizes raw order fields into an Intent.
// It is a pure function: no network, no side effects, usable without
// credentials. The first failing field is reported as a *ValidationError.
//
// Normalization rules beyond trimming/upper-casing:
//   - a price supplied with MARKET or STOP_MARKET is ignored, except that a
//     price alongside STOP_MARKET's stop price upgrades the order to STOP
//     (stop-limit); that tie-break is decided here, never re-derived later;
//   - empty time-in-force defaults to GTC.
func ParseIntent(in OrderInput) (Intent, error) {
	symbol := strings.ToUpper(strings.TrimSpace(in.Symbol))
	if symbol == "" {
		return Intent{}, &ValidationError{Field: "symbol", Message: "symbol cannot be empty"}
	}
	if !isAlnum(symbol) {
		return Intent{}, &ValidationError{Field: "symbol", Message: fmt.Sprintf("%q contains invalid characters, use alphanumeric only (e.g. BTCUSDT)", symbol)}
	}

	side := Side(strings.ToUpper(strings.TrimSpace(in.Side)))
	if side != SideBuy && side != SideSell {
		return Intent{}, &ValidationError{Field: "side", Message: fmt.Sprintf("%q is not a valid side, must be BUY or SELL", in.Side)}
	}

	kind := OrderKind(strings.ToUpper(strings.TrimSpace(in.Kind)))
	switch kind {
	case KindMarket, KindLimit, KindStopLimit, KindStopMarket:
	default:
		return Intent{}, &ValidationError{Field: "type", Message: fmt.Sprintf("%q is not a valid order type, must be one of MARKET, LIMIT, STOP, STOP_MARKET", in.Kind)}
	}

	qty, err := parsePositiveDecimal("quantity", strings.TrimSpace(in.Quantity))
	if err != nil {
		return Intent{}, err
	}

	rawPrice := strings.TrimSpace(in.Price)
	rawStop := strings.TrimSpace(in.StopPrice)

	// A limit price alongside a stop trigger always selects stop-limit.
	if kind == KindStopMarket && rawPrice != "" {
		kind = KindStopLimit
	}

	var price decimal.Decimal
	switch kind {
	case KindLimit, KindStopLimit:
		if rawPrice == "" {
			return Intent{}, &ValidationError{Field: "price", Message: fmt.Sprintf("price is required for %s orders", kind)}
		}
		price, err = parsePositiveDecimal("price", rawPrice)
		if err != nil {
			return Intent{}, err
		}
	}

	var stopPrice decimal.Decimal
	switch kind {
	case KindStopLimit, KindStopMarket:
		if rawStop == "" {
			return Intent{}, &ValidationError{Field: "stop_price", Message: fmt.Sprintf("stop price is required for %s orders", kind)}
		}
		stopPrice, err = parsePositiveDecimal("stop_price", rawStop)
		if err != nil {
			return Intent{}, err
		}
	}

	tif := TimeInForce(strings.ToUpper(strings.TrimSpace(in.TimeInForce)))
	switch tif {
	case "":
		tif = TIFGTC
	case TIFGTC, TIFIOC, TIFFOK:
	default:
		return Intent{}, &ValidationError{Field: "time_in_force", Message: fmt.Sprintf("%q is not a valid time-in-force, must be GTC, IOC or FOK", in.TimeInForce)}
	}

	return Intent{
		Symbol:      symbol,
		Side:        side,
		Kind:        kind,
		Quantity:    qty,
		Price:       price,
		StopPrice:   stopPrice,
		TimeInForce: tif,
	}, nil
}
