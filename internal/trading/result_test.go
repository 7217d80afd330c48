package trading

import (
	"strings"
	"testing"
)

func TestParseOrderResultFullResponse(t *testing.T) {
	raw := []byte(`{
		"orderId": 123456,
		"clientOrderId": "abc-1",
		"symbol": "BTCUSDT",
		"side": "BUY",
		"type": "LIMIT",
		"status": "NEW",
		"origQty": "0.001",
		"executedQty": "0",
		"avgPrice": "0.00000",
		"price": "90000"
	}`)

	r, err := ParseOrderResult(raw)
	if err != nil {
		t.Fatalf("ParseOrderResult: %v", err)
	}
	if r.OrderID != 123456 || r.ClientOrderID != "abc-1" {
		t.Fatalf("ids = %d / %q", r.OrderID, r.ClientOrderID)
	}
	if r.Status != "NEW" || r.Type != "LIMIT" {
		t.Fatalf("status/type = %q / %q", r.Status, r.Type)
	}
	if string(r.Raw) != string(raw) {
		t.Fatal("Raw does not preserve the original body")
	}
}

func TestParseOrderResultDefaultsMissingNumerics(t *testing.T) {
	// STOP_MARKET responses omit most fill fields.
	r, err := ParseOrderResult([]byte(`{"orderId":9,"symbol":"BTCUSDT","status":"NEW"}`))
	if err != nil {
		t.Fatalf("ParseOrderResult: %v", err)
	}
	if r.OrigQty != "0" || r.ExecutedQty != "0" || r.AvgPrice != "0" || r.Price != "0" {
		t.Fatalf("missing numerics not defaulted: %+v", r)
	}
	if r.ClientOrderID != "" {
		t.Fatalf("ClientOrderID = %q, want empty", r.ClientOrderID)
	}
}

func TestParseOrderResultUnknownStatusIsOpaque(t *testing.T) {
	r, err := ParseOrderResult([]byte(`{"orderId":1,"status":"PENDING_NEW_VARIANT"}`))
	if err != nil {
		t.Fatalf("unknown status must not fail: %v", err)
	}
	if r.Status != "PENDING_NEW_VARIANT" {
		t.Fatalf("Status = %q", r.Status)
	}
}

func TestParseOrderResultMalformed(t *testing.T) {
	if _, err := ParseOrderResult([]byte(`{"orderId":`)); err == nil {
		t.Fatal("expected error for truncated body")
	}
}

func TestSummaryContainsKeyFields(t *testing.T) {
	r := &OrderResult{
		OrderID: 42, ClientOrderID: "cid", Symbol: "BTCUSDT",
		Side: "SELL", Type: "MARKET", Status: "FILLED",
		OrigQty: "0.5", ExecutedQty: "0.5", AvgPrice: "91000.2", Price: "0",
	}
	s := r.Summary()
	for _, want := range []string{"42", "cid", "BTCUSDT", "SELL", "MARKET", "FILLED", "91000.2"} {
		if !strings.Contains(s, want) {
			t.Errorf("Summary() missing %q:\n%s", want, s)
		}
	}
}
