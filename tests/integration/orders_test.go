package integration

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/dacardenas/tenis-store/internal/fulfill"
	"github.com/dacardenas/tenis-store/internal/models"
	"github.com/dacardenas/tenis-store/internal/store"
	"github.com/shopspring/decimal"
)

func TestCreateOrderSnapshotsItems(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	product, err := store.CreateProduct(ctx, db, "Runner 5", "velox", decimal.NewFromFloat(89.90), 10)
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}

	order, err := store.CreateOrder(ctx, db, store.CreateOrderRequest{
		CustomerName:  "Maria Lopez",
		CustomerEmail: "maria@example.com",
		PaymentMethod: "transfer",
		Items: []store.OrderItemRequest{
			{ProductID: product.ID, Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}
	if order.Status != models.OrderStatusPending {
		t.Errorf("expected pending, got %s", order.Status)
	}
	if !order.TotalAmount.Equal(decimal.NewFromFloat(179.80)) {
		t.Errorf("expected total 179.80, got %s", order.TotalAmount)
	}

	// Creating the order must not touch stock; fulfillment does that.
	after, err := store.GetProduct(ctx, db, product.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if after.Stock != 10 {
		t.Errorf("expected stock untouched at 10, got %d", after.Stock)
	}

	// The line item keeps its snapshot even after the product changes.
	newName := "Runner 6"
	newPrice := decimal.NewFromInt(120)
	if _, err := store.UpdateProduct(ctx, db, product.ID, models.ProductUpdate{Name: &newName, Price: &newPrice}); err != nil {
		t.Fatalf("Update product: %v", err)
	}

	reloaded, err := store.GetOrder(ctx, db, order.ID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}
	if len(reloaded.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(reloaded.Items))
	}
	if reloaded.Items[0].Name != "Runner 5" {
		t.Errorf("item name followed the product edit: %s", reloaded.Items[0].Name)
	}
	if !reloaded.Items[0].UnitPrice.Equal(decimal.NewFromFloat(89.90)) {
		t.Errorf("item price followed the product edit: %s", reloaded.Items[0].UnitPrice)
	}
}

func TestFulfillPendingOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	p1, err := store.CreateProduct(ctx, db, "Runner 5", "velox", decimal.NewFromInt(90), 8)
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}
	p2, err := store.CreateProduct(ctx, db, "Court", "velox", decimal.NewFromInt(70), 5)
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}

	order, err := store.CreateOrder(ctx, db, store.CreateOrderRequest{
		CustomerName: "Maria Lopez",
		Items: []store.OrderItemRequest{
			{ProductID: p1.ID, Quantity: 3},
			{ProductID: p2.ID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}

	svc := fulfill.New(fulfill.NewSQLStore(db), log.New(io.Discard, "", 0))

	report, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.NoOp || report.OrderID != order.ID {
		t.Fatalf("expected order %d processed, report %+v", order.ID, report)
	}

	after1, _ := store.GetProduct(ctx, db, p1.ID)
	after2, _ := store.GetProduct(ctx, db, p2.ID)
	if after1.Stock != 5 {
		t.Errorf("product 1: expected stock 5, got %d", after1.Stock)
	}
	if after2.Stock != 4 {
		t.Errorf("product 2: expected stock 4, got %d", after2.Stock)
	}

	done, err := store.GetOrder(ctx, db, order.ID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}
	if done.Status != models.OrderStatusCompleted {
		t.Errorf("expected completed, got %s", done.Status)
	}
	if !done.UpdatedAt.After(order.UpdatedAt) {
		t.Errorf("updated_at not stamped on completion")
	}

	// Second run: nothing pending, no writes.
	report, err = svc.Run(ctx)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !report.NoOp {
		t.Fatalf("expected no-op on second run")
	}
	again1, _ := store.GetProduct(ctx, db, p1.ID)
	if again1.Stock != 5 {
		t.Errorf("second run changed stock: %d", again1.Stock)
	}
}

func TestFulfillEmptyCatalogSeedsPlaceholder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	// A malformed order with no line items against an empty catalog.
	if _, err := db.ExecContext(ctx,
		`INSERT INTO orders (status, total_amount, customer_name) VALUES ('pending', 0, 'seed')`); err != nil {
		t.Fatalf("seed malformed order: %v", err)
	}

	svc := fulfill.New(fulfill.NewSQLStore(db), log.New(io.Discard, "", 0))

	report, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Substitute {
		t.Fatalf("expected a substitute order, report %+v", report)
	}

	products, err := store.ListActiveProducts(ctx, db)
	if err != nil {
		t.Fatalf("List products: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected exactly one placeholder product, got %d", len(products))
	}
	if !products[0].Price.Equal(decimal.RequireFromString("9.99")) {
		t.Errorf("expected placeholder price 9.99, got %s", products[0].Price)
	}
	if products[0].Stock != 9 {
		t.Errorf("expected placeholder stock 10 minus one, got %d", products[0].Stock)
	}

	// The malformed original is still pending and untouched.
	original, err := store.GetOrder(ctx, db, report.OriginalID)
	if err != nil {
		t.Fatalf("Get original order: %v", err)
	}
	if original.Status != models.OrderStatusPending {
		t.Errorf("original order was mutated: %s", original.Status)
	}

	substitute, err := store.GetOrder(ctx, db, report.OrderID)
	if err != nil {
		t.Fatalf("Get substitute order: %v", err)
	}
	if substitute.Status != models.OrderStatusCompleted {
		t.Errorf("expected substitute completed, got %s", substitute.Status)
	}
}
