package cart

import "github.com/shopspring/decimal"

type Cart struct {
	ID     int64  `json:"id"`
	UserID string `json:"user_id"`
}

// CartItem is one (product, quantity) line in the cart. Price and Subtotal
// reflect the live product price; orders snapshot their own copy.
type CartItem struct {
	ID        int64           `json:"id"`
	ProductID string          `json:"product_id"`
	Title     string          `json:"title,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type CartResponse struct {
	CartID int64           `json:"cart_id"`
	Items  []CartItem      `json:"items"`
	Total  decimal.Decimal `json:"total"`
}
