package products

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID          string          `json:"id"`
	CategoryID  int64           `json:"category_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type NewProduct struct {
	CategoryID  int64           `json:"category_id" validate:"required"`
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"min=0"`
}

type NewCategory struct {
	Name string `json:"name" validate:"required"`
}

// ListParams are the caller-supplied list controls. Sort and Order are
// whitelisted in ListProductsFromDB.
type ListParams struct {
	CategoryID int64
	Search     string
	Sort       string
	Order      string
	Limit      int
	Offset     int
}
