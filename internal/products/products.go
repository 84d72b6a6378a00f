// Package products is the catalog store: categories and products, with
// read-side filtering, search and ordering.
package products

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
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

const productColumns = `id, category_id, title, description, price, stock, created_at, updated_at`

func (c *Conf) InsertProduct(ctx context.Context, np NewProduct) (Product, error) {
	product := Product{
		ID:          uuid.NewString(),
		CategoryID:  np.CategoryID,
		Title:       np.Title,
		Description: np.Description,
		Price:       np.Price,
		Stock:       np.Stock,
	}
	query := `
		INSERT INTO products (id, category_id, title, description, price, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := c.db.QueryRowContext(ctx, query,
		product.ID, product.CategoryID, product.Title, product.Description,
		product.Price, product.Stock,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return Product{}, fmt.Errorf("inserting product: %w", err)
	}
	return product, nil
}

// GetProductByID returns sql.ErrNoRows unchanged so handlers can map it to 404.
func (c *Conf) GetProductByID(ctx context.Context, productID string) (Product, error) {
	var p Product
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	err := c.db.QueryRowContext(ctx, query, productID).Scan(
		&p.ID, &p.CategoryID, &p.Title, &p.Description, &p.Price, &p.Stock,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (c *Conf) UpdateProductInDB(ctx context.Context, productID string, p Product) (Product, error) {
	query := `
		UPDATE products
		SET category_id = $1, title = $2, description = $3, price = $4, stock = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING created_at, updated_at
	`
	err := c.db.QueryRowContext(ctx, query,
		p.CategoryID, p.Title, p.Description, p.Price, p.Stock, productID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, fmt.Errorf("updating product: %w", err)
	}
	p.ID = productID
	return p, nil
}

func (c *Conf) DeleteProductFromDB(ctx context.Context, productID string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	return nil
}

// sortColumns whitelists the caller-facing sort keys.
var sortColumns = map[string]string{
	"price": "price",
	"title": "title",
	"stock": "stock",
}

// ListProductsFromDB projects stored rows with an exact category filter, a
// substring search over title and description, and a whitelisted sort key.
// The default order is newest first.
func (c *Conf) ListProductsFromDB(ctx context.Context, params ListParams) ([]Product, error) {
	var (
		conditions []string
		args       []any
	)
	if params.CategoryID > 0 {
		args = append(args, params.CategoryID)
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if params.Search != "" {
		args = append(args, "%"+params.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	orderBy := "created_at DESC"
	if params.Sort != "" {
		column, ok := sortColumns[params.Sort]
		if !ok {
			return nil, fmt.Errorf("invalid sort key: %s", params.Sort)
		}
		direction := "ASC"
		if params.Order == "desc" {
			direction = "DESC"
		} else if params.Order != "" && params.Order != "asc" {
			return nil, fmt.Errorf("invalid sort order: %s", params.Order)
		}
		orderBy = column + " " + direction
	}
	query += " ORDER BY " + orderBy

	args = append(args, params.Limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, params.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Title, &p.Description,
			&p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating products: %w", err)
	}
	return out, nil
}

func (c *Conf) InsertCategory(ctx context.Context, nc NewCategory) (Category, error) {
	var category Category
	query := `INSERT INTO categories (name) VALUES ($1) RETURNING id, name`
	err := c.db.QueryRowContext(ctx, query, nc.Name).Scan(&category.ID, &category.Name)
	if err != nil {
		return Category{}, fmt.Errorf("inserting category: %w", err)
	}
	return category, nil
}

func (c *Conf) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var cat Category
		if err := rows.Scan(&cat.ID, &cat.Name); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		out = append(out, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}
	return out, nil
}

// GetCategoryByID returns sql.ErrNoRows unchanged so handlers can map it to 404.
func (c *Conf) GetCategoryByID(ctx context.Context, categoryID int64) (Category, error) {
	var category Category
	err := c.db.QueryRowContext(ctx, `SELECT id, name FROM categories WHERE id = $1`, categoryID).
		Scan(&category.ID, &category.Name)
	if err != nil {
		return Category{}, err
	}
	return category, nil
}
