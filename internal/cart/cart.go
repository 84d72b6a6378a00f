// Package cart owns every mutation of a user's cart and the total
// computation. Each operation runs in a single transaction; "not found"
// outcomes are reported as booleans, never as errors.
package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
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

// GetOrCreateCart returns the user's cart, creating an empty one on first
// access. There is at most one cart per user.
func (c *Conf) GetOrCreateCart(ctx context.Context, userID string) (Cart, error) {
	cart := Cart{UserID: userID}
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		cart.ID, err = getOrCreateCartTx(ctx, tx, userID)
		return err
	})
	if err != nil {
		return Cart{}, err
	}
	return cart, nil
}

func getOrCreateCartTx(ctx context.Context, tx *sql.Tx, userID string) (int64, error) {
	var cartID int64
	queryCart := `
		SELECT id
		FROM carts
		WHERE user_id = $1
		FOR UPDATE
	`
	err := tx.QueryRowContext(ctx, queryCart, userID).Scan(&cartID)
	if err == nil {
		return cartID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("querying cart: %w", err)
	}

	queryCreateCart := `
		INSERT INTO carts (user_id, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		RETURNING id
	`
	if err := tx.QueryRowContext(ctx, queryCreateCart, userID).Scan(&cartID); err != nil {
		return 0, fmt.Errorf("creating cart: %w", err)
	}
	return cartID, nil
}

// AddItem creates a line item for (cart, product) with the given quantity, or
// increments the existing one. Repeated adds accumulate. The caller validates
// that quantity is positive and that the product exists.
func (c *Conf) AddItem(ctx context.Context, userID, productID string, quantity int) (CartItem, bool, error) {
	var (
		item    CartItem
		created bool
	)
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		cartID, err := getOrCreateCartTx(ctx, tx, userID)
		if err != nil {
			return err
		}

		queryItem := `
			SELECT id, quantity
			FROM cart_items
			WHERE cart_id = $1 AND product_id = $2
		`
		var (
			itemID           int64
			existingQuantity int
		)
		err = tx.QueryRowContext(ctx, queryItem, cartID, productID).Scan(&itemID, &existingQuantity)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("querying cart item: %w", err)
			}
			queryInsert := `
				INSERT INTO cart_items (cart_id, product_id, quantity, created_at, updated_at)
				VALUES ($1, $2, $3, NOW(), NOW())
				RETURNING id
			`
			if err := tx.QueryRowContext(ctx, queryInsert, cartID, productID, quantity).Scan(&itemID); err != nil {
				return fmt.Errorf("inserting cart item: %w", err)
			}
			created = true
			item = CartItem{ID: itemID, ProductID: productID, Quantity: quantity}
			return nil
		}

		newQuantity := existingQuantity + quantity
		queryUpdate := `
			UPDATE cart_items
			SET quantity = $1, updated_at = NOW()
			WHERE id = $2
		`
		if _, err := tx.ExecContext(ctx, queryUpdate, newQuantity, itemID); err != nil {
			return fmt.Errorf("updating cart item quantity: %w", err)
		}
		item = CartItem{ID: itemID, ProductID: productID, Quantity: newQuantity}
		return nil
	})
	if err != nil {
		return CartItem{}, false, err
	}
	return item, created, nil
}

// RemoveItem deletes the line item for (user's cart, product). It returns
// false when the user has no cart or no such line item.
func (c *Conf) RemoveItem(ctx context.Context, userID, productID string) (bool, error) {
	var removed bool
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		cartID, ok, err := findCartTx(ctx, tx, userID)
		if err != nil || !ok {
			return err
		}

		queryDelete := `
			DELETE FROM cart_items
			WHERE cart_id = $1 AND product_id = $2
		`
		res, err := tx.ExecContext(ctx, queryDelete, cartID, productID)
		if err != nil {
			return fmt.Errorf("deleting cart item: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("reading rows affected: %w", err)
		}
		removed = affected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// UpdateQuantity replaces (not increments) the quantity of an existing line
// item. It returns false when the user has no cart or no such line item. The
// caller validates that quantity is positive.
func (c *Conf) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (bool, error) {
	var updated bool
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		cartID, ok, err := findCartTx(ctx, tx, userID)
		if err != nil || !ok {
			return err
		}

		queryUpdate := `
			UPDATE cart_items
			SET quantity = $1, updated_at = NOW()
			WHERE cart_id = $2 AND product_id = $3
		`
		res, err := tx.ExecContext(ctx, queryUpdate, quantity, cartID, productID)
		if err != nil {
			return fmt.Errorf("updating cart item: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("reading rows affected: %w", err)
		}
		updated = affected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return updated, nil
}

// GetCart returns the cart with its line items, per-item subtotals and the
// exact decimal total, creating the cart on first access.
func (c *Conf) GetCart(ctx context.Context, userID string) (*CartResponse, error) {
	var (
		cartID int64
		items  []CartItem
	)
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		cartID, err = getOrCreateCartTx(ctx, tx, userID)
		if err != nil {
			return err
		}

		queryItems := `
			SELECT ci.id, ci.product_id, p.title, p.price, ci.quantity
			FROM cart_items ci
			JOIN products p ON p.id = ci.product_id
			WHERE ci.cart_id = $1
			ORDER BY ci.id
		`
		rows, err := tx.QueryContext(ctx, queryItems, cartID)
		if err != nil {
			return fmt.Errorf("querying cart items: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var item CartItem
			if err := rows.Scan(&item.ID, &item.ProductID, &item.Title, &item.Price, &item.Quantity); err != nil {
				return fmt.Errorf("scanning cart item: %w", err)
			}
			item.Subtotal = item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
			items = append(items, item)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating cart items: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CartResponse{
		CartID: cartID,
		Items:  items,
		Total:  CartTotal(items),
	}, nil
}

// CartTotal sums price × quantity over the line items using exact decimal
// arithmetic. Money never touches floating point.
func CartTotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

func findCartTx(ctx context.Context, tx *sql.Tx, userID string) (int64, bool, error) {
	var cartID int64
	queryCart := `
		SELECT id
		FROM carts
		WHERE user_id = $1
		FOR UPDATE
	`
	err := tx.QueryRowContext(ctx, queryCart, userID).Scan(&cartID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("querying cart: %w", err)
	}
	return cartID, true, nil
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
		return fmt.Errorf("failed to execute withTx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit withTx: %w", err)
	}
	return nil
}
