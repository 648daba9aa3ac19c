package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dacardenas/tenis-store/internal/database"
	"github.com/dacardenas/tenis-store/internal/models"
	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Address       string
	PaymentMethod string
	ProofURL      string
	Items         []OrderItemRequest
}

type OrderItemRequest struct {
	ProductID int64
	Quantity  int
}

// CreateOrder snapshots product name and price into the line items at
// creation time. Stock is not touched here; fulfillment decrements it later.
func CreateOrder(ctx context.Context, db *sql.DB, req CreateOrderRequest) (*models.Order, error) {
	var order *models.Order

	err := database.WithRetry(ctx, db, database.TxOptions{
		IsolationLevel: sql.LevelSerializable,
		MaxRetries:     3,
	}, func(tx *sql.Tx) error {
		type snapshot struct {
			name  string
			price decimal.Decimal
		}

		var totalAmount decimal.Decimal
		snapshots := make(map[int64]snapshot)

		for _, item := range req.Items {
			var name string
			var price decimal.Decimal

			err := tx.QueryRowContext(ctx,
				`SELECT name, price FROM products WHERE id = $1`,
				item.ProductID).Scan(&name, &price)
			if err != nil {
				if err == sql.ErrNoRows {
					return database.ErrProductNotFound
				}
				return fmt.Errorf("read product %d: %w", item.ProductID, err)
			}

			snapshots[item.ProductID] = snapshot{name: name, price: price}
			totalAmount = totalAmount.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		var orderID int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO orders (status, total_amount, customer_name, customer_email, customer_phone,
			                     address, payment_method, proof_url, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
			 RETURNING id`,
			models.OrderStatusPending, totalAmount, req.CustomerName, req.CustomerEmail,
			req.CustomerPhone, req.Address, req.PaymentMethod, req.ProofURL).Scan(&orderID)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for _, item := range req.Items {
			snap := snapshots[item.ProductID]
			subtotal := snap.price.Mul(decimal.NewFromInt(int64(item.Quantity)))

			_, err = tx.ExecContext(ctx,
				`INSERT INTO order_items (order_id, product_id, name, quantity, unit_price, subtotal, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
				orderID, item.ProductID, snap.name, item.Quantity, snap.price, subtotal)
			if err != nil {
				return fmt.Errorf("create order item: %w", err)
			}
		}

		order = &models.Order{ID: orderID}
		err = tx.QueryRowContext(ctx,
			`SELECT status, total_amount, customer_name, customer_email, customer_phone,
			        address, payment_method, proof_url, created_at, updated_at
			 FROM orders WHERE id = $1`,
			orderID).Scan(
			&order.Status,
			&order.TotalAmount,
			&order.CustomerName,
			&order.CustomerEmail,
			&order.CustomerPhone,
			&order.Address,
			&order.PaymentMethod,
			&order.ProofURL,
			&order.CreatedAt,
			&order.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("fetch created order: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return order, nil
}

func GetOrder(ctx context.Context, db *sql.DB, id int64) (*models.Order, error) {
	order := &models.Order{}

	query := `
		SELECT id, status, total_amount, customer_name, customer_email, customer_phone,
		       address, payment_method, proof_url, created_at, updated_at
		FROM orders
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.Status,
		&order.TotalAmount,
		&order.CustomerName,
		&order.CustomerEmail,
		&order.CustomerPhone,
		&order.Address,
		&order.PaymentMethod,
		&order.ProofURL,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := getOrderItems(ctx, db, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

// ListRecentOrders returns the newest orders first, items included, bounded
// to limit.
func ListRecentOrders(ctx context.Context, db *sql.DB, limit int) ([]models.Order, error) {
	query := `
		SELECT id, status, total_amount, customer_name, customer_email, customer_phone,
		       address, payment_method, proof_url, created_at, updated_at
		FROM orders
		ORDER BY created_at DESC, id DESC
		LIMIT $1`

	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		err := rows.Scan(
			&order.ID,
			&order.Status,
			&order.TotalAmount,
			&order.CustomerName,
			&order.CustomerEmail,
			&order.CustomerPhone,
			&order.Address,
			&order.PaymentMethod,
			&order.ProofURL,
			&order.CreatedAt,
			&order.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	for i := range orders {
		items, err := getOrderItems(ctx, db, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

// UpdateOrderStatus writes the new status unconditionally and stamps
// updated_at.
func UpdateOrderStatus(ctx context.Context, db *sql.DB, id int64, status string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE orders
		 SET status = $1,
		     updated_at = NOW()
		 WHERE id = $2`,
		status, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrOrderNotFound
	}

	return nil
}

func ListOrdersCursor(ctx context.Context, db *sql.DB, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT id, status, total_amount, customer_name, customer_email, customer_phone,
		       address, payment_method, proof_url, created_at, updated_at
		FROM orders
		WHERE (created_at, id) < ($1, $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3`

	rows, err := db.QueryContext(ctx, query, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		err := rows.Scan(
			&order.ID,
			&order.Status,
			&order.TotalAmount,
			&order.CustomerName,
			&order.CustomerEmail,
			&order.CustomerPhone,
			&order.Address,
			&order.PaymentMethod,
			&order.ProofURL,
			&order.CreatedAt,
			&order.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func getOrderItems(ctx context.Context, db *sql.DB, orderID int64) ([]models.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, name, quantity, unit_price, subtotal, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`

	rows, err := db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Name,
			&item.Quantity,
			&item.UnitPrice,
			&item.Subtotal,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}
