// Package payments stores at most one payment per order.
package payments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var ErrPaymentExists = errors.New("payment already exists for order")

const uniqueViolation = "23505"

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (Conf, error) {
	if db == nil {
		return Conf{}, fmt.Errorf("db is nil")
	}
	return Conf{db: db}, nil
}

// InsertPayment records a pending payment for the order. A second payment for
// the same order yields ErrPaymentExists.
func (c *Conf) InsertPayment(ctx context.Context, orderID string, amount decimal.Decimal, method string) (Payment, error) {
	payment := Payment{
		OrderID: orderID,
		Amount:  amount,
		Method:  method,
		Status:  StatusPending,
	}
	query := `
		INSERT INTO payments (order_id, amount, method, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := c.db.QueryRowContext(ctx, query, orderID, amount, method, StatusPending).
		Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Payment{}, ErrPaymentExists
		}
		return Payment{}, fmt.Errorf("inserting payment: %w", err)
	}
	return payment, nil
}

// UpdateStatus sets the payment status and transaction id for an order.
// It returns false when the order has no payment record.
func (c *Conf) UpdateStatus(ctx context.Context, orderID, status, transactionID string) (bool, error) {
	query := `
		UPDATE payments
		SET status = $1, transaction_id = $2, updated_at = NOW()
		WHERE order_id = $3
	`
	res, err := c.db.ExecContext(ctx, query, status, transactionID, orderID)
	if err != nil {
		return false, fmt.Errorf("updating payment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListPayments projects payment rows, optionally filtered by status and
// method, newest first.
func (c *Conf) ListPayments(ctx context.Context, status, method string) ([]Payment, error) {
	query := `
		SELECT id, order_id, amount, method, status, transaction_id, created_at, updated_at
		FROM payments
	`
	var (
		conditions string
		args       []any
	)
	if status != "" {
		args = append(args, status)
		conditions = fmt.Sprintf(" WHERE status = $%d", len(args))
	}
	if method != "" {
		args = append(args, method)
		if conditions == "" {
			conditions = fmt.Sprintf(" WHERE method = $%d", len(args))
		} else {
			conditions += fmt.Sprintf(" AND method = $%d", len(args))
		}
	}
	query += conditions + " ORDER BY id DESC"

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying payments: %w", err)
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.Status,
			&p.TransactionID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning payment: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating payments: %w", err)
	}
	return out, nil
}
