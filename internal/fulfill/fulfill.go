// Package fulfill closes out pending orders: it decrements product stock for
// each line item and marks the order completed.
package fulfill

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/dacardenas/tenis-store/internal/database"
	"github.com/dacardenas/tenis-store/internal/models"
	"github.com/shopspring/decimal"
)

// Store is the slice of the data layer the flow needs. The SQL
// implementation lives in store.go; tests swap in an in-memory fake.
type Store interface {
	RecentOrders(ctx context.Context, limit int) ([]models.Order, error)
	ProductStock(ctx context.Context, productID int64) (int, error)
	DecrementStock(ctx context.Context, productID int64, quantity int) error
	SetOrderStatus(ctx context.Context, orderID int64, status string) error
	FindProductWithStock(ctx context.Context) (*models.Product, error)
	CreateProduct(ctx context.Context, name, brand string, price decimal.Decimal, stock int) (*models.Product, error)
	CreateSubstituteOrder(ctx context.Context, product *models.Product) (*models.Order, error)
}

const (
	// How many of the newest orders are scanned for a pending candidate.
	candidatePage = 5

	placeholderName  = "Tenis basico"
	placeholderBrand = "generica"
	placeholderStock = 10
)

var placeholderPrice = decimal.RequireFromString("9.99")

type Service struct {
	store  Store
	logger *log.Logger
}

func New(store Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{store: store, logger: logger}
}

// ItemResult records what happened to a single line item.
type ItemResult struct {
	ProductID int64
	Quantity  int
	Skipped   bool // referenced product no longer exists
	Err       error
}

// StockChange is a before/after pair for one touched product. Informational
// only; nothing is written during verification.
type StockChange struct {
	ProductID int64
	Before    int
	After     int
}

type Report struct {
	NoOp       bool  // no pending order found, nothing written
	OrderID    int64 // order that was processed
	Substitute bool  // a substitute order was created and processed
	OriginalID int64 // the malformed order left untouched, when Substitute
	Items      []ItemResult
	Changes    []StockChange
}

// Run selects one pending order, decrements stock per line item, marks the
// order completed, and re-reads touched products for the report. Decrements
// are issued one statement at a time: a failure on one item does not stop
// the rest, and the completion write is not rolled back by anything that
// happened before it.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	orders, err := s.store.RecentOrders(ctx, candidatePage)
	if err != nil {
		return nil, fmt.Errorf("list recent orders: %w", err)
	}

	var target *models.Order
	for i := range orders {
		if orders[i].Status != models.OrderStatusCompleted {
			target = &orders[i]
			break
		}
	}
	if target == nil {
		s.logger.Printf("no pending order found, nothing to do")
		return &Report{NoOp: true}, nil
	}

	report := &Report{OrderID: target.ID}

	if !eligible(target) {
		s.logger.Printf("order %d has no usable line items, creating a substitute order", target.ID)
		substitute, err := s.createSubstitute(ctx)
		if err != nil {
			return nil, err
		}
		report.Substitute = true
		report.OriginalID = target.ID
		report.OrderID = substitute.ID
		target = substitute
	}

	// Capture current stock per item. A vanished product downgrades the
	// item to a warning, not a failure.
	type pending struct {
		productID int64
		quantity  int
		before    int
	}
	var surviving []pending
	for _, item := range target.Items {
		stock, err := s.store.ProductStock(ctx, item.ProductID)
		if errors.Is(err, database.ErrProductNotFound) {
			s.logger.Printf("warning: product %d referenced by order %d no longer exists, skipping item", item.ProductID, target.ID)
			report.Items = append(report.Items, ItemResult{ProductID: item.ProductID, Quantity: item.Quantity, Skipped: true})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read stock of product %d: %w", item.ProductID, err)
		}
		surviving = append(surviving, pending{productID: item.ProductID, quantity: item.Quantity, before: stock})
	}

	for _, item := range surviving {
		result := ItemResult{ProductID: item.productID, Quantity: item.quantity}
		if err := s.store.DecrementStock(ctx, item.productID, item.quantity); err != nil {
			s.logger.Printf("warning: decrement product %d by %d: %v", item.productID, item.quantity, err)
			result.Err = err
		}
		report.Items = append(report.Items, result)
	}

	if err := s.store.SetOrderStatus(ctx, target.ID, models.OrderStatusCompleted); err != nil {
		// Stock already moved; the order stays pending. There is no
		// compensating write, so surface the gap to the caller.
		return report, fmt.Errorf("mark order %d completed: %w", target.ID, err)
	}
	s.logger.Printf("order %d marked %s", target.ID, models.OrderStatusCompleted)

	seen := make(map[int64]bool)
	for _, item := range surviving {
		if seen[item.productID] {
			continue
		}
		seen[item.productID] = true

		after, err := s.store.ProductStock(ctx, item.productID)
		if err != nil {
			s.logger.Printf("warning: verify stock of product %d: %v", item.productID, err)
			continue
		}
		report.Changes = append(report.Changes, StockChange{
			ProductID: item.productID,
			Before:    item.before,
			After:     after,
		})
	}

	return report, nil
}

// eligible reports whether every line item carries a product reference.
func eligible(order *models.Order) bool {
	if len(order.Items) == 0 {
		return false
	}
	for _, item := range order.Items {
		if item.ProductID == 0 {
			return false
		}
	}
	return true
}

// createSubstitute builds a minimal well-formed order against some existing
// product, seeding a placeholder product when the catalog is empty. The
// malformed original is never written to.
func (s *Service) createSubstitute(ctx context.Context) (*models.Order, error) {
	product, err := s.store.FindProductWithStock(ctx)
	if errors.Is(err, database.ErrProductNotFound) {
		s.logger.Printf("catalog is empty, creating placeholder product")
		product, err = s.store.CreateProduct(ctx, placeholderName, placeholderBrand, placeholderPrice, placeholderStock)
	}
	if err != nil {
		return nil, fmt.Errorf("find product for substitute order: %w", err)
	}

	order, err := s.store.CreateSubstituteOrder(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("create substitute order: %w", err)
	}
	s.logger.Printf("created substitute order %d referencing product %d", order.ID, product.ID)
	return order, nil
}
