// Package orders turns a cart into an immutable order snapshot and serves
// order history. Checkout validates and decrements stock, copies each line
// item with the product's current price, and clears the cart — all in one
// transaction.
package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (Conf, error) {
	if db == nil {
		return Conf{}, fmt.Errorf("db is nil")
	}
	return Conf{db: db}, nil
}

// CreateOrderFromCart snapshots the user's cart into a pending order.
func (c *Conf) CreateOrderFromCart(ctx context.Context, orderID, userID string) (Order, error) {
	order := Order{
		ID:     orderID,
		UserID: userID,
		Status: StatusPending,
	}

	err := c.withTx(ctx, func(tx *sql.Tx) error {
		queryCartItems := `
			SELECT c.id, ci.product_id, ci.quantity, p.price, p.stock
			FROM cart_items ci
			JOIN carts c ON c.id = ci.cart_id
			JOIN products p ON p.id = ci.product_id
			WHERE c.user_id = $1
			ORDER BY ci.id
			FOR UPDATE
		`
		rows, err := tx.QueryContext(ctx, queryCartItems, userID)
		if err != nil {
			return fmt.Errorf("querying cart items: %w", err)
		}

		var (
			cartID int64
			items  []OrderItem
		)
		for rows.Next() {
			var (
				item  OrderItem
				stock int
			)
			if err := rows.Scan(&cartID, &item.ProductID, &item.Quantity, &item.Price, &stock); err != nil {
				rows.Close()
				return fmt.Errorf("scanning cart item: %w", err)
			}
			if item.Quantity > stock {
				rows.Close()
				return fmt.Errorf("product %s: requested %d, available %d: %w",
					item.ProductID, item.Quantity, stock, ErrInsufficientStock)
			}
			items = append(items, item)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("iterating cart items: %w", err)
		}
		rows.Close()

		if len(items) == 0 {
			return ErrEmptyCart
		}

		total := decimal.Zero
		for _, item := range items {
			total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		queryInsertOrder := `
			INSERT INTO orders (id, user_id, status, total_price, created_at, updated_at)
			VALUES ($1, $2, $3, $4, NOW(), NOW())
			RETURNING created_at, updated_at
		`
		err = tx.QueryRowContext(ctx, queryInsertOrder, orderID, userID, StatusPending, total).
			Scan(&order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return fmt.Errorf("inserting order: %w", err)
		}

		queryInsertItem := `
			INSERT INTO order_items (order_id, product_id, quantity, price)
			VALUES ($1, $2, $3, $4)
		`
		queryDecrementStock := `
			UPDATE products
			SET stock = stock - $1, updated_at = NOW()
			WHERE id = $2
		`
		for _, item := range items {
			if _, err := tx.ExecContext(ctx, queryInsertItem, orderID, item.ProductID, item.Quantity, item.Price); err != nil {
				return fmt.Errorf("inserting order item: %w", err)
			}
			if _, err := tx.ExecContext(ctx, queryDecrementStock, item.Quantity, item.ProductID); err != nil {
				return fmt.Errorf("decrementing stock: %w", err)
			}
		}

		queryClearCart := `DELETE FROM cart_items WHERE cart_id = $1`
		if _, err := tx.ExecContext(ctx, queryClearCart, cartID); err != nil {
			return fmt.Errorf("clearing cart: %w", err)
		}

		order.TotalPrice = total
		order.Items = items
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

// ListOrders returns the user's orders newest first, items included.
func (c *Conf) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	queryOrders := `
		SELECT id, user_id, status, stripe_session_id, total_price, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, queryOrders, userID)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	defer rows.Close()

	var (
		out  []Order
		byID = map[string]int{}
	)
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.StripeSessionID,
			&o.TotalPrice, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		byID[o.ID] = len(out)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating orders: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	queryItems := `
		SELECT oi.order_id, oi.product_id, oi.quantity, oi.price
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.user_id = $1
		ORDER BY oi.id
	`
	itemRows, err := c.db.QueryContext(ctx, queryItems, userID)
	if err != nil {
		return nil, fmt.Errorf("querying order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			id   string
			item OrderItem
		)
		if err := itemRows.Scan(&id, &item.ProductID, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("scanning order item: %w", err)
		}
		if idx, ok := byID[id]; ok {
			out[idx].Items = append(out[idx].Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order items: %w", err)
	}
	return out, nil
}

// GetOrderItems returns the line items of one order.
func (c *Conf) GetOrderItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	query := `
		SELECT product_id, quantity, price
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`
	rows, err := c.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("querying order items: %w", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("scanning order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order items: %w", err)
	}
	return items, nil
}

// UpdateOrderStatus moves the order through pending → paid/canceled.
func (c *Conf) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`
	res, err := c.db.ExecContext(ctx, query, status, orderID)
	if err != nil {
		return fmt.Errorf("updating order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetStripeSession attaches the Stripe checkout session to the order.
func (c *Conf) SetStripeSession(ctx context.Context, orderID, sessionID string) error {
	query := `
		UPDATE orders
		SET stripe_session_id = $1, updated_at = NOW()
		WHERE id = $2
	`
	if _, err := c.db.ExecContext(ctx, query, sessionID, orderID); err != nil {
		return fmt.Errorf("setting stripe session: %w", err)
	}
	return nil
}

func (c *Conf) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		er := tx.Rollback()
		if er != nil && !errors.Is(er, sql.ErrTxDone) {
			return fmt.Errorf("failed to rollback withTx: %w", err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit withTx: %w", err)
	}
	return nil
}
