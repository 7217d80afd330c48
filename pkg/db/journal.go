// Package db provides user-isolated persistence for accounts and the trade
// journal. Every journal query is scoped to its owning user.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUserIDRequired = errors.New("user_id is required for data isolation")
	ErrNotFound       = errors.New("record not found")
)

// User represents an application user.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Trade is one journal row: the canonical order result plus the user's
// annotation. Numeric fields are decimal strings.
type Trade struct {
	ID            string
	UserID        string
	Symbol        string
	Side          string
	OrderType     string
	Quantity      string
	Price         string
	StopPrice     string
	Status        string
	ExecutedQty   string
	AvgPrice      string
	OrderID       int64
	ClientOrderID string
	Notes         string
	CreatedAt     time.Time
}

// CreateUser inserts a new user row.
func (d *Database) CreateUser(ctx context.Context, u User) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP), COALESCE(?, CURRENT_TIMESTAMP))
	`, u.ID, strings.ToLower(u.Username), u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	return err
}

// GetUserByUsername returns a user by username or nil if not found.
func (d *Database) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	row := d.DB.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at, updated_at
		FROM users WHERE username = ?
	`, strings.ToLower(username))
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// GetUserByID returns a user by id or nil if not found.
func (d *Database) GetUserByID(ctx context.Context, id string) (*User, error) {
	row := d.DB.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at, updated_at
		FROM users WHERE id = ?
	`, id)
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// CreateTrade inserts a new journal row for its owning user.
func (d *Database) CreateTrade(ctx context.Context, t Trade) error {
	if t.UserID == "" {
		return ErrUserIDRequired
	}
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO trades (
			id, user_id, symbol, side, order_type, quantity, price, stop_price,
			status, executed_qty, avg_price, order_id, client_order_id, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))
	`,
		t.ID, t.UserID, t.Symbol, t.Side, t.OrderType, t.Quantity, t.Price, t.StopPrice,
		t.Status, t.ExecutedQty, t.AvgPrice, t.OrderID, t.ClientOrderID, t.Notes, t.CreatedAt,
	)
	return err
}

// ListTradesByUser returns a user's journal, newest first.
func (d *Database) ListTradesByUser(ctx context.Context, userID string) ([]Trade, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, user_id, symbol, side, order_type, quantity,
		       COALESCE(price, ''), COALESCE(stop_price, ''), status,
		       executed_qty, avg_price, COALESCE(order_id, 0),
		       COALESCE(client_order_id, ''), COALESCE(notes, ''), created_at
		FROM trades
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var trades []Trade
	for rows.Next() {
		var t Trade
		if err := rows.Scan(&t.ID, &t.UserID, &t.Symbol, &t.Side, &t.OrderType, &t.Quantity,
			&t.Price, &t.StopPrice, &t.Status, &t.ExecutedQty, &t.AvgPrice,
			&t.OrderID, &t.ClientOrderID, &t.Notes, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// GetTradeByID returns a journal row, verifying user ownership.
func (d *Database) GetTradeByID(ctx context.Context, userID, tradeID string) (*Trade, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	var t Trade
	err := d.DB.QueryRowContext(ctx, `
		SELECT id, user_id, symbol, side, order_type, quantity,
		       COALESCE(price, ''), COALESCE(stop_price, ''), status,
		       executed_qty, avg_price, COALESCE(order_id, 0),
		       COALESCE(client_order_id, ''), COALESCE(notes, ''), created_at
		FROM trades
		WHERE id = ? AND user_id = ?
	`, tradeID, userID).Scan(&t.ID, &t.UserID, &t.Symbol, &t.Side, &t.OrderType, &t.Quantity,
		&t.Price, &t.StopPrice, &t.Status, &t.ExecutedQty, &t.AvgPrice,
		&t.OrderID, &t.ClientOrderID, &t.Notes, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query trade: %w", err)
	}
	return &t, nil
}

// UpdateTradeNotes updates the annotation on a journal row the user owns.
func (d *Database) UpdateTradeNotes(ctx context.Context, userID, tradeID, notes string) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	res, err := d.DB.ExecContext(ctx, `
		UPDATE trades SET notes = ? WHERE id = ? AND user_id = ?
	`, notes, tradeID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTrade removes a journal row the user owns.
func (d *Database) DeleteTrade(ctx context.Context, userID, tradeID string) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	res, err := d.DB.ExecContext(ctx, `
		DELETE FROM trades WHERE id = ? AND user_id = ?
	`, tradeID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
