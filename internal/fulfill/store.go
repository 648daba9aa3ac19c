package fulfill

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dacardenas/tenis-store/internal/models"
	"github.com/dacardenas/tenis-store/internal/store"
	"github.com/shopspring/decimal"
)

// SQLStore adapts the store package to the Store interface.
type SQLStore struct {
	DB *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{DB: db}
}

func (s *SQLStore) RecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	return store.ListRecentOrders(ctx, s.DB, limit)
}

func (s *SQLStore) ProductStock(ctx context.Context, productID int64) (int, error) {
	product, err := store.GetProduct(ctx, s.DB, productID)
	if err != nil {
		return 0, err
	}
	return product.Stock, nil
}

func (s *SQLStore) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	return store.DecrementProductStock(ctx, s.DB, productID, quantity)
}

func (s *SQLStore) SetOrderStatus(ctx context.Context, orderID int64, status string) error {
	return store.UpdateOrderStatus(ctx, s.DB, orderID, status)
}

func (s *SQLStore) FindProductWithStock(ctx context.Context) (*models.Product, error) {
	return store.FindProductWithStock(ctx, s.DB)
}

func (s *SQLStore) CreateProduct(ctx context.Context, name, brand string, price decimal.Decimal, stock int) (*models.Product, error) {
	return store.CreateProduct(ctx, s.DB, name, brand, price, stock)
}

func (s *SQLStore) CreateSubstituteOrder(ctx context.Context, product *models.Product) (*models.Order, error) {
	order, err := store.CreateOrder(ctx, s.DB, store.CreateOrderRequest{
		CustomerName:  "inventory check",
		PaymentMethod: "none",
		Items: []store.OrderItemRequest{
			{ProductID: product.ID, Quantity: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create substitute order: %w", err)
	}
	// Re-read to pick up the persisted line items.
	return store.GetOrder(ctx, s.DB, order.ID)
}
