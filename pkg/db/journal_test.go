package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	database, err := New(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := ApplyMigrations(database); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return database
}

func seedUser(t *testing.T, d *Database, username string) User {
	t.Helper()
	now := time.Now().UTC()
	u := User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := d.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func seedTrade(t *testing.T, d *Database, userID, symbol string) Trade {
	t.Helper()
	tr := Trade{
		ID:            uuid.NewString(),
		UserID:        userID,
		Symbol:        symbol,
		Side:          "BUY",
		OrderType:     "LIMIT",
		Quantity:      "0.001",
		Price:         "90000",
		Status:        "NEW",
		ExecutedQty:   "0",
		AvgPrice:      "0",
		OrderID:       123,
		ClientOrderID: "cid-" + symbol,
		CreatedAt:     time.Now().UTC(),
	}
	if err := d.CreateTrade(context.Background(), tr); err != nil {
		t.Fatalf("create trade: %v", err)
	}
	return tr
}

func TestUserLookupIsCaseInsensitive(t *testing.T) {
	d := newTestDB(t)
	u := seedUser(t, d, "Alice")

	got, err := d.GetUserByUsername(context.Background(), "ALICE")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got == nil || got.ID != u.ID {
		t.Fatalf("lookup failed: %+v", got)
	}

	missing, err := d.GetUserByUsername(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("get missing user: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing user, got %+v", missing)
	}
}

func TestCreateTradeRequiresUserID(t *testing.T) {
	d := newTestDB(t)
	err := d.CreateTrade(context.Background(), Trade{ID: uuid.NewString(), Symbol: "BTCUSDT"})
	if !errors.Is(err, ErrUserIDRequired) {
		t.Fatalf("err = %v, want ErrUserIDRequired", err)
	}
	if _, err := d.ListTradesByUser(context.Background(), ""); !errors.Is(err, ErrUserIDRequired) {
		t.Fatalf("list err = %v, want ErrUserIDRequired", err)
	}
}

func TestJournalIsolatedPerUser(t *testing.T) {
	d := newTestDB(t)
	alice := seedUser(t, d, "alice")
	bob := seedUser(t, d, "bob")

	aliceTrade := seedTrade(t, d, alice.ID, "BTCUSDT")
	seedTrade(t, d, bob.ID, "ETHUSDT")

	ctx := context.Background()
	trades, err := d.ListTradesByUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(trades) != 1 || trades[0].ID != aliceTrade.ID {
		t.Fatalf("alice sees %d trades: %+v", len(trades), trades)
	}

	// Bob cannot read, annotate or delete Alice's row.
	if _, err := d.GetTradeByID(ctx, bob.ID, aliceTrade.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-user get err = %v, want ErrNotFound", err)
	}
	if err := d.UpdateTradeNotes(ctx, bob.ID, aliceTrade.ID, "stolen"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-user update err = %v, want ErrNotFound", err)
	}
	if err := d.DeleteTrade(ctx, bob.ID, aliceTrade.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-user delete err = %v, want ErrNotFound", err)
	}

	// Alice still has her trade, untouched.
	got, err := d.GetTradeByID(ctx, alice.ID, aliceTrade.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Notes != "" {
		t.Fatalf("notes = %q, want empty", got.Notes)
	}
}

func TestUpdateAndDeleteTrade(t *testing.T) {
	d := newTestDB(t)
	u := seedUser(t, d, "carol")
	tr := seedTrade(t, d, u.ID, "BTCUSDT")

	ctx := context.Background()
	if err := d.UpdateTradeNotes(ctx, u.ID, tr.ID, "took profit early"); err != nil {
		t.Fatalf("update notes: %v", err)
	}
	got, err := d.GetTradeByID(ctx, u.ID, tr.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Notes != "took profit early" {
		t.Fatalf("notes = %q", got.Notes)
	}
	if got.Quantity != "0.001" || got.Price != "90000" {
		t.Fatalf("decimal strings mangled: qty=%q price=%q", got.Quantity, got.Price)
	}

	if err := d.DeleteTrade(ctx, u.ID, tr.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := d.GetTradeByID(ctx, u.ID, tr.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete err = %v, want ErrNotFound", err)
	}
	if err := d.DeleteTrade(ctx, u.ID, tr.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete err = %v, want ErrNotFound", err)
	}
}

func TestListTradesNewestFirst(t *testing.T) {
	d := newTestDB(t)
	u := seedUser(t, d, "dave")

	base := time.Now().UTC().Add(-time.Hour)
	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		tr := Trade{
			ID:        uuid.NewString(),
			UserID:    u.ID,
			Symbol:    "BTCUSDT",
			Side:      "BUY",
			OrderType: "MARKET",
			Quantity:  "1",
			Status:    "FILLED",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := d.CreateTrade(ctx, tr); err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, tr.ID)
	}

	trades, err := d.ListTradesByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(trades) != 3 {
		t.Fatalf("len = %d", len(trades))
	}
	// Most recent insert first.
	if trades[0].ID != ids[2] || trades[2].ID != ids[0] {
		t.Fatalf("order wrong: %v", []string{trades[0].ID, trades[1].ID, trades[2].ID})
	}
}
