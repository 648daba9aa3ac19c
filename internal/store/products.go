package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dacardenas/tenis-store/internal/database"
	"github.com/dacardenas/tenis-store/internal/models"
	"github.com/shopspring/decimal"
)

const productColumns = "id, name, brand, price, stock, active, created_at, updated_at"

func scanProduct(row interface{ Scan(...interface{}) error }) (*models.Product, error) {
	product := &models.Product{}
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Brand,
		&product.Price,
		&product.Stock,
		&product.Active,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

// CreateProduct stamps creation time and always starts the product active.
func CreateProduct(ctx context.Context, db *sql.DB, name, brand string, price decimal.Decimal, stock int) (*models.Product, error) {
	query := `
		INSERT INTO products (name, brand, price, stock, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
		RETURNING ` + productColumns

	product, err := scanProduct(db.QueryRowContext(ctx, query, name, brand, price, stock))
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, db *sql.DB, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

func ListActiveProducts(ctx context.Context, db *sql.DB) ([]models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE active
		ORDER BY created_at DESC`

	return queryProducts(ctx, db, "list active products", query)
}

func ListProductsByBrand(ctx context.Context, db *sql.DB, brand string) ([]models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE active AND brand = $1
		ORDER BY created_at DESC`

	return queryProducts(ctx, db, "list products by brand", query, brand)
}

// ListNovelties returns the most recently created active products, bounded
// to limit.
func ListNovelties(ctx context.Context, db *sql.DB, limit int) ([]models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE active
		ORDER BY created_at DESC
		LIMIT $1`

	return queryProducts(ctx, db, "list novelties", query, limit)
}

// UpdateProduct merges the non-nil fields of upd into the record and stamps
// updated_at. With nothing to change it degrades to a plain read.
func UpdateProduct(ctx context.Context, db *sql.DB, id int64, upd models.ProductUpdate) (*models.Product, error) {
	var sets []string
	var args []interface{}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Brand != nil {
		add("brand", *upd.Brand)
	}
	if upd.Price != nil {
		add("price", *upd.Price)
	}
	if upd.Stock != nil {
		add("stock", *upd.Stock)
	}
	if upd.Active != nil {
		add("active", *upd.Active)
	}

	if len(sets) == 0 {
		return GetProduct(ctx, db, id)
	}

	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(
		`UPDATE products SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), productColumns)

	product, err := scanProduct(db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	return product, nil
}

func DeleteProduct(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}

// FindProductWithStock returns some product with positive stock, falling
// back to any product at all. ErrProductNotFound means the catalog is empty.
func FindProductWithStock(ctx context.Context, db *sql.DB) (*models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		ORDER BY (stock > 0) DESC, created_at DESC
		LIMIT 1`

	product, err := scanProduct(db.QueryRowContext(ctx, query))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("find product with stock: %w", err)
	}

	return product, nil
}

// DecrementProductStock applies a single-statement atomic decrement and
// stamps updated_at. Each call is its own request; callers that decrement
// several products get no cross-product atomicity.
func DecrementProductStock(ctx context.Context, db *sql.DB, id int64, quantity int) error {
	result, err := db.ExecContext(ctx,
		`UPDATE products
		 SET stock = stock - $1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock >= $1`,
		quantity, id)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrInsufficientStock
	}

	return nil
}

func queryProducts(ctx context.Context, db *sql.DB, op, query string, args ...interface{}) ([]models.Product, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}
