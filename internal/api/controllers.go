package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"futures-trader/internal/trading"
	"futures-trader/pkg/binance"
	"futures-trader/pkg/db"
)

// writeTradingError maps the error taxonomy onto HTTP statuses: validation
// errors are the client's fault (422), exchange rejections carry the
// exchange code (400), transport failures mean we could not reach the
// exchange (502), everything else is internal (500).
func (s *Server) writeTradingError(c *gin.Context, err error) {
	var valErr *trading.ValidationError
	if errors.As(err, &valErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"code":  "VALIDATION_ERROR",
			"field": valErr.Field,
			"error": valErr.Error(),
		})
		return
	}
	var apiErr *binance.APIError
	if errors.As(err, &apiErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":          "EXCHANGE_ERROR",
			"exchange_code": apiErr.Code,
			"error":         apiErr.Message,
		})
		return
	}
	var transportErr *binance.TransportError
	if errors.As(err, &transportErr) {
		c.JSON(http.StatusBadGateway, gin.H{
			"code":  "TRANSPORT_ERROR",
			"error": "could not reach exchange",
		})
		return
	}
	if errors.Is(err, binance.ErrMissingCredentials) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":  "MISSING_CREDENTIALS",
			"error": "exchange API credentials are not configured",
		})
		return
	}
	s.Log.Error("unexpected trading error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":  "INTERNAL_ERROR",
		"error": err.Error(),
	})
}

// ping reports exchange reachability; it never fails the request.
func (s *Server) ping(c *gin.Context) {
	if s.Manager.Ping(c.Request.Context()) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unreachable"})
}

// exchangeInfo returns tradable symbols (unprotected, used for UI init).
func (s *Server) exchangeInfo(c *gin.Context) {
	info, err := s.Manager.ExchangeInfo(c.Request.Context())
	if err != nil {
		s.writeTradingError(c, err)
		return
	}
	symbols := make([]gin.H, 0, len(info.Symbols))
	for _, sym := range info.Symbols {
		if sym.Status != "TRADING" {
			continue
		}
		symbols = append(symbols, gin.H{
			"symbol":     sym.Symbol,
			"baseAsset":  sym.BaseAsset,
			"quoteAsset": sym.QuoteAsset,
			"status":     sym.Status,
		})
	}
	c.JSON(http.StatusOK, gin.H{"symbols": symbols})
}

// account returns balances and open positions, zero rows filtered out.
func (s *Server) account(c *gin.Context) {
	info, err := s.Manager.Account(c.Request.Context())
	if err != nil {
		s.writeTradingError(c, err)
		return
	}

	balances := make([]gin.H, 0, len(info.Assets))
	for _, a := range info.Assets {
		if isZeroAmount(a.Balance) {
			continue
		}
		balances = append(balances, gin.H{
			"asset":            a.Asset,
			"balance":          a.Balance,
			"availableBalance": a.AvailableBalance,
			"unrealizedProfit": a.CrossUnPnl,
		})
	}
	positions := make([]gin.H, 0, len(info.Positions))
	for _, p := range info.Positions {
		if isZeroAmount(p.PositionAmt) {
			continue
		}
		positions = append(positions, gin.H{
			"symbol":           p.Symbol,
			"positionAmt":      p.PositionAmt,
			"entryPrice":       p.EntryPrice,
			"unrealizedProfit": p.UnrealizedProfit,
			"leverage":         p.Leverage,
			"positionSide":     p.PositionSide,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"totalWalletBalance":    info.TotalWalletBalance,
		"totalUnrealizedProfit": info.TotalUnrealizedProfit,
		"availableBalance":      info.AvailableBalance,
		"balances":              balances,
		"positions":             positions,
	})
}

// isZeroAmount treats "", "0", "0.000" etc. as zero without parsing floats.
func isZeroAmount(s string) bool {
	s = strings.TrimPrefix(strings.TrimSpace(s), "-")
	if s == "" {
		return true
	}
	for _, r := range s {
		if r != '0' && r != '.' {
			return false
		}
	}
	return true
}

// decimalText accepts a JSON number or string and keeps the exact decimal
// text; binary float parsing would corrupt prices like 0.001.
type decimalText string

func (d *decimalText) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = decimalText(s)
		return nil
	}
	*d = decimalText(b)
	return nil
}

type orderRequest struct {
	Symbol      string      `json:"symbol"`
	Side        string      `json:"side"`
	OrderType   string      `json:"order_type"`
	Quantity    decimalText `json:"quantity"`
	Price       decimalText `json:"price"`
	StopPrice   decimalText `json:"stop_price"`
	TimeInForce string      `json:"time_in_force"`
	Notes       string      `json:"notes"`
}

// placeOrder validates, submits and journals an order for the current user.
func (s *Server) placeOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_PAYLOAD",
			"error": "invalid request payload",
		})
		return
	}

	intent, err := trading.ParseIntent(trading.OrderInput{
		Symbol:      req.Symbol,
		Side:        req.Side,
		Kind:        req.OrderType,
		Quantity:    string(req.Quantity),
		Price:       string(req.Price),
		StopPrice:   string(req.StopPrice),
		TimeInForce: req.TimeInForce,
	})
	if err != nil {
		s.writeTradingError(c, err)
		return
	}

	result, err := s.Manager.Submit(c.Request.Context(), intent)
	if err != nil {
		s.writeTradingError(c, err)
		return
	}

	trade := db.Trade{
		ID:            uuid.NewString(),
		UserID:        CurrentUserID(c),
		Symbol:        result.Symbol,
		Side:          result.Side,
		OrderType:     result.Type,
		Quantity:      result.OrigQty,
		Price:         result.Price,
		Status:        result.Status,
		ExecutedQty:   result.ExecutedQty,
		AvgPrice:      result.AvgPrice,
		OrderID:       result.OrderID,
		ClientOrderID: result.ClientOrderID,
		Notes:         req.Notes,
		CreatedAt:     time.Now(),
	}
	if !intent.StopPrice.IsZero() {
		trade.StopPrice = intent.StopPrice.String()
	}
	if err := s.DB.CreateTrade(c.Request.Context(), trade); err != nil {
		// The order is live on the exchange; report the journal failure
		// rather than pretend the order does not exist.
		s.Log.Error("journal write failed after order placement",
			zap.Int64("orderId", result.OrderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "JOURNAL_WRITE_FAILED",
			"error": "order placed but journaling failed",
			"order": orderJSON(result),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"order":    orderJSON(result),
		"trade_id": trade.ID,
	})
}

func orderJSON(r *trading.OrderResult) gin.H {
	return gin.H{
		"orderId":       r.OrderID,
		"clientOrderId": r.ClientOrderID,
		"symbol":        r.Symbol,
		"side":          r.Side,
		"type":          r.Type,
		"status":        r.Status,
		"origQty":       r.OrigQty,
		"executedQty":   r.ExecutedQty,
		"avgPrice":      r.AvgPrice,
		"price":         r.Price,
	}
}

// getOrder fetches a single order by symbol and exchange order id.
func (s *Server) getOrder(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	orderID, err := strconv.ParseInt(c.Query("order_id"), 10, 64)
	if symbol == "" || err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_PAYLOAD",
			"error": "symbol and order_id are required",
		})
		return
	}
	result, lookupErr := s.Manager.GetOrder(c.Request.Context(), symbol, orderID)
	if lookupErr != nil {
		s.writeTradingError(c, lookupErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": orderJSON(result)})
}

// cancelOrder cancels an open order.
func (s *Server) cancelOrder(c *gin.Context) {
	var req struct {
		Symbol  string `json:"symbol"`
		OrderID int64  `json:"order_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Symbol == "" || req.OrderID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_PAYLOAD",
			"error": "symbol and order_id are required",
		})
		return
	}
	result, err := s.Manager.CancelOrder(c.Request.Context(), strings.ToUpper(req.Symbol), req.OrderID)
	if err != nil {
		s.writeTradingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": orderJSON(result)})
}

// openOrders lists open orders, optionally filtered by symbol.
func (s *Server) openOrders(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	orders, err := s.Manager.OpenOrders(c.Request.Context(), symbol)
	if err != nil {
		s.writeTradingError(c, err)
		return
	}
	out := make([]gin.H, 0, len(orders))
	for _, o := range orders {
		out = append(out, gin.H{
			"orderId":     o.OrderID,
			"symbol":      o.Symbol,
			"side":        o.Side,
			"type":        o.Type,
			"status":      o.Status,
			"price":       o.Price,
			"stopPrice":   o.StopPrice,
			"origQty":     o.OrigQty,
			"executedQty": o.ExecutedQty,
			"time":        o.Time,
		})
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}

func tradeJSON(t db.Trade) gin.H {
	return gin.H{
		"id":              t.ID,
		"symbol":          t.Symbol,
		"side":            t.Side,
		"order_type":      t.OrderType,
		"quantity":        t.Quantity,
		"price":           t.Price,
		"stop_price":      t.StopPrice,
		"status":          t.Status,
		"executed_qty":    t.ExecutedQty,
		"avg_price":       t.AvgPrice,
		"order_id":        t.OrderID,
		"client_order_id": t.ClientOrderID,
		"notes":           t.Notes,
		"created_at":      t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// listJournal returns the current user's journal, newest first.
func (s *Server) listJournal(c *gin.Context) {
	trades, err := s.DB.ListTradesByUser(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": err.Error(),
		})
		return
	}
	out := make([]gin.H, 0, len(trades))
	for _, t := range trades {
		out = append(out, tradeJSON(t))
	}
	c.JSON(http.StatusOK, out)
}

// updateJournalEntry updates the notes on a journal row the user owns.
func (s *Server) updateJournalEntry(c *gin.Context) {
	var req struct {
		Notes string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_PAYLOAD",
			"error": "invalid request payload",
		})
		return
	}
	userID := CurrentUserID(c)
	tradeID := c.Param("id")
	if err := s.DB.UpdateTradeNotes(c.Request.Context(), userID, tradeID, req.Notes); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"code":  "NOT_FOUND",
				"error": "trade not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": err.Error(),
		})
		return
	}
	trade, err := s.DB.GetTradeByID(c.Request.Context(), userID, tradeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, tradeJSON(*trade))
}

// deleteJournalEntry deletes a journal row the user owns.
func (s *Server) deleteJournalEntry(c *gin.Context) {
	if err := s.DB.DeleteTrade(c.Request.Context(), CurrentUserID(c), c.Param("id")); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"code":  "NOT_FOUND",
				"error": "trade not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
