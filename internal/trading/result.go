package trading

import (
	"encoding/json"
	"fmt"
	"strings"
)

// OrderResult is the canonical view of an exchange order response,
// immutable once built. Quantity and price fields stay as the exchange's
// decimal strings; the status is kept verbatim so unknown values pass
// through opaquely. Raw preserves the full body for audit.
type OrderResult struct {
	OrderID       int64           `json:"orderId"`
	ClientOrderID string          `json:"clientOrderId"`
	Symbol        string          `json:"symbol"`
	Side          string          `json:"side"`
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	OrigQty       string          `json:"origQty"`
	ExecutedQty   string          `json:"executedQty"`
	AvgPrice      string          `json:"avgPrice"`
	Price         string          `json:"price"`
	Raw           json.RawMessage `json:"-"`
}

// ParseOrderResult maps a raw order response body into an OrderResult.
// The exchange omits fields depending on order kind, so missing numerics
// default to "0" and missing identifiers to "" instead of failing.
func ParseOrderResult(raw []byte) (*OrderResult, error) {
	var resp struct {
		OrderID       int64  `json:"orderId"`
		ClientOrderID string `json:"clientOrderId"`
		Symbol        string `json:"symbol"`
		Side          string `json:"side"`
		Type          string `json:"type"`
		Status        string `json:"status"`
		OrigQty       string `json:"origQty"`
		ExecutedQty   string `json:"executedQty"`
		AvgPrice      string `json:"avgPrice"`
		Price         string `json:"price"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}
	return &OrderResult{
		OrderID:       resp.OrderID,
		ClientOrderID: resp.ClientOrderID,
		Symbol:        resp.Symbol,
		Side:          resp.Side,
		Type:          resp.Type,
		Status:        resp.Status,
		OrigQty:       zeroDefault(resp.OrigQty),
		ExecutedQty:   zeroDefault(resp.ExecutedQty),
		AvgPrice:      zeroDefault(resp.AvgPrice),
		Price:         zeroDefault(resp.Price),
		Raw:           json.RawMessage(append([]byte(nil), raw...)),
	}, nil
}

func zeroDefault(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// Summary renders the human-readable block printed by the CLI.
func (r *OrderResult) Summary() string {
	sep := strings.Repeat("-", 52)
	lines := []string{
		sep,
		"  ORDER RESULT",
		sep,
		fmt.Sprintf("  Order ID       : %d", r.OrderID),
		fmt.Sprintf("  Client OID     : %s", r.ClientOrderID),
		fmt.Sprintf("  Symbol         : %s", r.Symbol),
		fmt.Sprintf("  Side           : %s", r.Side),
		fmt.Sprintf("  Type           : %s", r.Type),
		fmt.Sprintf("  Status         : %s", r.Status),
		fmt.Sprintf("  Orig Qty       : %s", r.OrigQty),
		fmt.Sprintf("  Executed Qty   : %s", r.ExecutedQty),
		fmt.Sprintf("  Avg Fill Price : %s", r.AvgPrice),
		fmt.Sprintf("  Limit Price    : %s", r.Price),
		sep,
	}
	return strings.Join(lines, "\n")
}
