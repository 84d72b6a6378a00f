package cart

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
)

const (
	querySelectCart = `SELECT id FROM carts WHERE user_id = $1 FOR UPDATE`
	queryInsertCart = `INSERT INTO carts (user_id, created_at, updated_at) VALUES ($1, NOW(), NOW()) RETURNING id`
	querySelectItem = `SELECT id, quantity FROM cart_items WHERE cart_id = $1 AND product_id = $2`
	queryInsertItem = `INSERT INTO cart_items (cart_id, product_id, quantity, created_at, updated_at) VALUES ($1, $2, $3, NOW(), NOW()) RETURNING id`
)

func newConf(t *testing.T) (Conf, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	conf, err := NewConf(db)
	if err != nil {
		t.Fatalf("NewConf: %v", err)
	}
	return conf, mock
}

func TestAddItem_CreatesNewLineItem(t *testing.T) {
	conf, mock := newConf(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(querySelectCart)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(regexp.QuoteMeta(querySelectItem)).
		WithArgs(int64(7), "p1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(queryInsertItem)).
		WithArgs(int64(7), "p1", 2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(101)))
	mock.ExpectCommit()

	item, created, err := conf.AddItem(context.Background(), "u1", "p1", 2)
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if !created {
		t.Fatalf("expected created=true")
	}
	if item.Quantity != 2 || item.ProductID != "p1" {
		t.Fatalf("unexpected item: %+v", item)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAddItem_RepeatAddAccumulates(t *testing.T) {
	conf, mock := newConf(t)

	// existing line item with quantity 1, adding 2 more -> 3
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(querySelectCart)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(regexp.QuoteMeta(querySelectItem)).
		WithArgs(int64(7), "p1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "quantity"}).AddRow(int64(101), 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE cart_items SET quantity = $1, updated_at = NOW() WHERE id = $2`)).
		WithArgs(3, int64(101)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	item, created, err := conf.AddItem(context.Background(), "u1", "p1", 2)
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if created {
		t.Fatalf("expected created=false for existing line item")
	}
	if item.Quantity != 3 {
		t.Fatalf("expected accumulated quantity 3, got %d", item.Quantity)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAddItem_CreatesCartLazily(t *testing.T) {
	conf, mock := newConf(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(querySelectCart)).
		WithArgs("u1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(queryInsertCart)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))
	mock.ExpectQuery(regexp.QuoteMeta(querySelectItem)).
		WithArgs(int64(9), "p1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(queryInsertItem)).
		WithArgs(int64(9), "p1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(50)))
	mock.ExpectCommit()

	_, created, err := conf.AddItem(context.Background(), "u1", "p1", 1)
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if !created {
		t.Fatalf("expected created=true")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRemoveItem_NoCartIsNotFoundNotError(t *testing.T) {
	conf, mock := newConf(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(querySelectCart)).
		WithArgs("u1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectCommit()

	removed, err := conf.RemoveItem(context.Background(), "u1", "p1")
	if err != nil {
		t.Fatalf("RemoveItem failed: %v", err)
	}
	if removed {
		t.Fatalf("expected removed=false when user has no cart")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRemoveItem_NoMatchingProduct(t *testing.T) {
	conf, mock := newConf(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(querySelectCart)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`)).
		WithArgs(int64(7), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	removed, err := conf.RemoveItem(context.Background(), "u1", "missing")
	if err != nil {
		t.Fatalf("RemoveItem failed: %v", err)
	}
	if removed {
		t.Fatalf("expected removed=false for missing line item")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateQuantity_ReplacesNotAdds(t *testing.T) {
	conf, mock := newConf(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(querySelectCart)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE cart_items SET quantity = $1, updated_at = NOW() WHERE cart_id = $2 AND product_id = $3`)).
		WithArgs(4, int64(7), "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := conf.UpdateQuantity(context.Background(), "u1", "p1", 4)
	if err != nil {
		t.Fatalf("UpdateQuantity failed: %v", err)
	}
	if !updated {
		t.Fatalf("expected updated=true")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetCart_TotalsAreExact(t *testing.T) {
	conf, mock := newConf(t)

	itemRows := sqlmock.NewRows([]string{"id", "product_id", "title", "price", "quantity"}).
		AddRow(int64(1), "p1", "Keyboard", "10.00", 2).
		AddRow(int64(2), "p2", "Mouse pad", "5.50", 1)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(querySelectCart)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ci.id, ci.product_id, p.title, p.price, ci.quantity FROM cart_items ci JOIN products p ON p.id = ci.product_id WHERE ci.cart_id = $1 ORDER BY ci.id`)).
		WithArgs(int64(7)).
		WillReturnRows(itemRows)
	mock.ExpectCommit()

	resp, err := conf.GetCart(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetCart failed: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(resp.Items))
	}
	want := decimal.RequireFromString("25.50")
	if !resp.Total.Equal(want) {
		t.Fatalf("expected total 25.50, got %s", resp.Total)
	}
	sub := decimal.RequireFromString("20.00")
	if !resp.Items[0].Subtotal.Equal(sub) {
		t.Fatalf("expected subtotal 20.00, got %s", resp.Items[0].Subtotal)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCartTotal_ExactDecimalArithmetic(t *testing.T) {
	items := []CartItem{
		{Price: decimal.RequireFromString("10.00"), Quantity: 2},
		{Price: decimal.RequireFromString("5.50"), Quantity: 1},
	}
	total := CartTotal(items)
	if !total.Equal(decimal.RequireFromString("25.50")) {
		t.Fatalf("expected 25.50, got %s", total)
	}

	// the classic float trap: 0.1 + 0.2
	items = []CartItem{
		{Price: decimal.RequireFromString("0.10"), Quantity: 1},
		{Price: decimal.RequireFromString("0.20"), Quantity: 1},
	}
	if got := CartTotal(items); got.String() != "0.3" {
		t.Fatalf("expected 0.3 exactly, got %s", got)
	}
}

func TestCartTotal_EmptyCartIsZero(t *testing.T) {
	if !CartTotal(nil).IsZero() {
		t.Fatalf("expected zero total for empty cart")
	}
}
