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

const variantColumns = "id, product_id, size, price, discount, stock, created_at, updated_at"

func scanVariant(row interface{ Scan(...interface{}) error }) (*models.Variant, error) {
	variant := &models.Variant{}
	err := row.Scan(
		&variant.ID,
		&variant.ProductID,
		&variant.Size,
		&variant.Price,
		&variant.Discount,
		&variant.Stock,
		&variant.CreatedAt,
		&variant.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return variant, nil
}

func CreateVariant(ctx context.Context, db *sql.DB, productID int64, size string, price, discount decimal.Decimal, stock int) (*models.Variant, error) {
	query := `
		INSERT INTO variants (product_id, size, price, discount, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING ` + variantColumns

	variant, err := scanVariant(db.QueryRowContext(ctx, query, productID, size, price, discount, stock))
	if err != nil {
		return nil, fmt.Errorf("create variant: %w", err)
	}

	return variant, nil
}

func GetVariant(ctx context.Context, db *sql.DB, id int64) (*models.Variant, error) {
	query := `SELECT ` + variantColumns + ` FROM variants WHERE id = $1`

	variant, err := scanVariant(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrVariantNotFound
		}
		return nil, fmt.Errorf("get variant: %w", err)
	}

	return variant, nil
}

func ListVariantsByProduct(ctx context.Context, db *sql.DB, productID int64) ([]models.Variant, error) {
	query := `
		SELECT ` + variantColumns + `
		FROM variants
		WHERE product_id = $1
		ORDER BY size`

	return queryVariants(ctx, db, "list variants by product", query, productID)
}

// ListAvailableVariants returns variants of a product that still have stock.
func ListAvailableVariants(ctx context.Context, db *sql.DB, productID int64) ([]models.Variant, error) {
	query := `
		SELECT ` + variantColumns + `
		FROM variants
		WHERE product_id = $1 AND stock > 0
		ORDER BY size`

	return queryVariants(ctx, db, "list available variants", query, productID)
}

// ListVariantsByPriceRange returns in-stock variants priced within
// [min, max], both bounds inclusive.
func ListVariantsByPriceRange(ctx context.Context, db *sql.DB, min, max decimal.Decimal) ([]models.Variant, error) {
	query := `
		SELECT ` + variantColumns + `
		FROM variants
		WHERE price >= $1 AND price <= $2 AND stock > 0
		ORDER BY price`

	return queryVariants(ctx, db, "list variants by price range", query, min, max)
}

func ListDiscountedVariants(ctx context.Context, db *sql.DB) ([]models.Variant, error) {
	query := `
		SELECT ` + variantColumns + `
		FROM variants
		WHERE discount > 0 AND stock > 0
		ORDER BY discount DESC`

	return queryVariants(ctx, db, "list discounted variants", query)
}

// UpdateVariant merges the non-nil fields of upd and stamps updated_at.
func UpdateVariant(ctx context.Context, db *sql.DB, id int64, upd models.VariantUpdate) (*models.Variant, error) {
	var sets []string
	var args []interface{}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Size != nil {
		add("size", *upd.Size)
	}
	if upd.Price != nil {
		add("price", *upd.Price)
	}
	if upd.Discount != nil {
		add("discount", *upd.Discount)
	}
	if upd.Stock != nil {
		add("stock", *upd.Stock)
	}

	if len(sets) == 0 {
		return GetVariant(ctx, db, id)
	}

	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(
		`UPDATE variants SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), variantColumns)

	variant, err := scanVariant(db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrVariantNotFound
		}
		return nil, fmt.Errorf("update variant: %w", err)
	}

	return variant, nil
}

// SetVariantStock overwrites the stock count outright; it is not a delta.
func SetVariantStock(ctx context.Context, db *sql.DB, id int64, stock int) error {
	result, err := db.ExecContext(ctx,
		`UPDATE variants
		 SET stock = $1,
		     updated_at = NOW()
		 WHERE id = $2`,
		stock, id)
	if err != nil {
		return fmt.Errorf("set variant stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrVariantNotFound
	}

	return nil
}

func DeleteVariant(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM variants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete variant: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrVariantNotFound
	}

	return nil
}

func queryVariants(ctx context.Context, db *sql.DB, op, query string, args ...interface{}) ([]models.Variant, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var variants []models.Variant
	for rows.Next() {
		variant, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		variants = append(variants, *variant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return variants, nil
}
