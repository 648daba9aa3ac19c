package fulfill

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/dacardenas/tenis-store/internal/database"
	"github.com/dacardenas/tenis-store/internal/models"
	"github.com/shopspring/decimal"
)

type fakeStore struct {
	orders   []models.Order
	products map[int64]*models.Product

	nextProductID int64
	nextOrderID   int64

	decrementErr map[int64]error // forced failure per product
	statusErr    error

	statusWrites []int64
	writes       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:      make(map[int64]*models.Product),
		decrementErr:  make(map[int64]error),
		nextProductID: 100,
		nextOrderID:   500,
	}
}

func (f *fakeStore) addProduct(id int64, stock int) *models.Product {
	p := &models.Product{ID: id, Name: "sneaker", Stock: stock, Active: true, Price: decimal.NewFromInt(50)}
	f.products[id] = p
	return p
}

func (f *fakeStore) addOrder(id int64, status string, items ...models.OrderItem) {
	f.orders = append(f.orders, models.Order{
		ID:        id,
		Status:    status,
		Items:     items,
		CreatedAt: time.Now(),
	})
}

func (f *fakeStore) RecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	if len(f.orders) > limit {
		return f.orders[:limit], nil
	}
	return f.orders, nil
}

func (f *fakeStore) ProductStock(ctx context.Context, productID int64) (int, error) {
	p, ok := f.products[productID]
	if !ok {
		return 0, database.ErrProductNotFound
	}
	return p.Stock, nil
}

func (f *fakeStore) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	if err := f.decrementErr[productID]; err != nil {
		return err
	}
	p, ok := f.products[productID]
	if !ok || p.Stock < quantity {
		return database.ErrInsufficientStock
	}
	p.Stock -= quantity
	f.writes++
	return nil
}

func (f *fakeStore) SetOrderStatus(ctx context.Context, orderID int64, status string) error {
	if f.statusErr != nil {
		return f.statusErr
	}
	for i := range f.orders {
		if f.orders[i].ID == orderID {
			f.orders[i].Status = status
		}
	}
	f.statusWrites = append(f.statusWrites, orderID)
	f.writes++
	return nil
}

func (f *fakeStore) FindProductWithStock(ctx context.Context) (*models.Product, error) {
	var fallback *models.Product
	for _, p := range f.products {
		if p.Stock > 0 {
			return p, nil
		}
		fallback = p
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, database.ErrProductNotFound
}

func (f *fakeStore) CreateProduct(ctx context.Context, name, brand string, price decimal.Decimal, stock int) (*models.Product, error) {
	f.nextProductID++
	p := &models.Product{ID: f.nextProductID, Name: name, Brand: brand, Price: price, Stock: stock, Active: true}
	f.products[p.ID] = p
	f.writes++
	return p, nil
}

func (f *fakeStore) CreateSubstituteOrder(ctx context.Context, product *models.Product) (*models.Order, error) {
	f.nextOrderID++
	order := models.Order{
		ID:     f.nextOrderID,
		Status: models.OrderStatusPending,
		Items: []models.OrderItem{
			{OrderID: f.nextOrderID, ProductID: product.ID, Quantity: 1, UnitPrice: product.Price},
		},
	}
	f.orders = append(f.orders, order)
	f.writes++
	return &order, nil
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestRun_DecrementsStockAndCompletesOrder(t *testing.T) {
	f := newFakeStore()
	f.addProduct(1, 10)
	f.addProduct(2, 4)
	f.addOrder(900, models.OrderStatusPending,
		models.OrderItem{ProductID: 1, Quantity: 3},
		models.OrderItem{ProductID: 2, Quantity: 1},
	)

	report, err := New(f, quietLogger()).Run(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.NoOp {
		t.Fatalf("expected an order to be processed")
	}
	if report.OrderID != 900 {
		t.Fatalf("expected order 900, got %d", report.OrderID)
	}
	if got := f.products[1].Stock; got != 7 {
		t.Errorf("product 1: expected stock 7, got %d", got)
	}
	if got := f.products[2].Stock; got != 3 {
		t.Errorf("product 2: expected stock 3, got %d", got)
	}
	if f.orders[0].Status != models.OrderStatusCompleted {
		t.Errorf("expected order completed, got %s", f.orders[0].Status)
	}
	if len(report.Changes) != 2 {
		t.Fatalf("expected 2 stock changes, got %d", len(report.Changes))
	}
	if report.Changes[0].Before != 10 || report.Changes[0].After != 7 {
		t.Errorf("unexpected change for product 1: %+v", report.Changes[0])
	}
}

func TestRun_NoPendingOrderIsNoOp(t *testing.T) {
	f := newFakeStore()
	f.addProduct(1, 10)
	f.addOrder(900, models.OrderStatusCompleted, models.OrderItem{ProductID: 1, Quantity: 2})

	svc := New(f, quietLogger())

	// Twice in a row: neither run may write anything.
	for i := 0; i < 2; i++ {
		report, err := svc.Run(context.Background())
		if err != nil {
			t.Fatalf("run %d: expected no error, got %v", i, err)
		}
		if !report.NoOp {
			t.Fatalf("run %d: expected no-op", i)
		}
	}
	if f.writes != 0 {
		t.Errorf("expected no writes, got %d", f.writes)
	}
	if f.products[1].Stock != 10 {
		t.Errorf("expected stock untouched, got %d", f.products[1].Stock)
	}
}

func TestRun_EmptyCatalogSeedsPlaceholderAndSubstituteOrder(t *testing.T) {
	f := newFakeStore()
	f.addOrder(900, models.OrderStatusPending) // no line items at all

	report, err := New(f, quietLogger()).Run(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !report.Substitute {
		t.Fatalf("expected a substitute order")
	}
	if report.OriginalID != 900 {
		t.Fatalf("expected original order 900, got %d", report.OriginalID)
	}
	if report.OrderID == 900 {
		t.Fatalf("substitute order must not be the original")
	}

	// The malformed original is left untouched.
	if f.orders[0].Status != models.OrderStatusPending {
		t.Errorf("original order was mutated: %s", f.orders[0].Status)
	}
	if len(f.orders[0].Items) != 0 {
		t.Errorf("original order items were mutated")
	}

	// Exactly one placeholder product, with the seeded stock and price.
	if len(f.products) != 1 {
		t.Fatalf("expected exactly one product, got %d", len(f.products))
	}
	for _, p := range f.products {
		if p.Stock != placeholderStock-1 {
			t.Errorf("expected placeholder stock %d after one decrement, got %d", placeholderStock-1, p.Stock)
		}
		if !p.Price.Equal(placeholderPrice) {
			t.Errorf("expected placeholder price %s, got %s", placeholderPrice, p.Price)
		}
	}

	// The substitute, not the original, was completed.
	if len(f.statusWrites) != 1 || f.statusWrites[0] != report.OrderID {
		t.Errorf("expected status write on order %d, got %v", report.OrderID, f.statusWrites)
	}
}

func TestRun_MissingItemReferenceUsesExistingStockedProduct(t *testing.T) {
	f := newFakeStore()
	f.addProduct(7, 0)
	f.addProduct(8, 5)
	f.addOrder(900, models.OrderStatusPending, models.OrderItem{ProductID: 0, Quantity: 2})

	report, err := New(f, quietLogger()).Run(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !report.Substitute {
		t.Fatalf("expected a substitute order")
	}
	if len(f.products) != 2 {
		t.Errorf("no placeholder product should be created when the catalog has entries")
	}
	if f.products[8].Stock != 4 {
		t.Errorf("expected stocked product 8 decremented to 4, got %d", f.products[8].Stock)
	}
}

func TestRun_MissingProductSkipsItemAndContinues(t *testing.T) {
	f := newFakeStore()
	f.addProduct(2, 6)
	f.addOrder(900, models.OrderStatusPending,
		models.OrderItem{ProductID: 999, Quantity: 1}, // vanished product
		models.OrderItem{ProductID: 2, Quantity: 2},
	)

	report, err := New(f, quietLogger()).Run(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(report.Items) != 2 {
		t.Fatalf("expected 2 item results, got %d", len(report.Items))
	}
	if !report.Items[0].Skipped {
		t.Errorf("expected item for product 999 skipped")
	}
	if f.products[2].Stock != 4 {
		t.Errorf("expected product 2 decremented to 4, got %d", f.products[2].Stock)
	}
	if f.orders[0].Status != models.OrderStatusCompleted {
		t.Errorf("order should still be completed, got %s", f.orders[0].Status)
	}
}

func TestRun_DecrementFailureDoesNotBlockLaterItems(t *testing.T) {
	f := newFakeStore()
	f.addProduct(1, 1)
	f.addProduct(2, 9)
	f.addOrder(900, models.OrderStatusPending,
		models.OrderItem{ProductID: 1, Quantity: 5}, // more than stock
		models.OrderItem{ProductID: 2, Quantity: 1},
	)

	report, err := New(f, quietLogger()).Run(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.Items[0].Err == nil {
		t.Errorf("expected decrement failure recorded for product 1")
	}
	if f.products[1].Stock != 1 {
		t.Errorf("failed decrement must not change stock, got %d", f.products[1].Stock)
	}
	if f.products[2].Stock != 8 {
		t.Errorf("expected product 2 decremented to 8, got %d", f.products[2].Stock)
	}
	if f.orders[0].Status != models.OrderStatusCompleted {
		t.Errorf("order should be completed despite the per-item failure")
	}
}

func TestRun_PicksFirstNonCompletedInPage(t *testing.T) {
	f := newFakeStore()
	f.addProduct(1, 10)
	f.addOrder(901, models.OrderStatusCompleted, models.OrderItem{ProductID: 1, Quantity: 1})
	f.addOrder(902, "paid", models.OrderItem{ProductID: 1, Quantity: 2})
	f.addOrder(903, models.OrderStatusPending, models.OrderItem{ProductID: 1, Quantity: 3})

	report, err := New(f, quietLogger()).Run(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	// Any status other than completed is a candidate; 902 comes first.
	if report.OrderID != 902 {
		t.Fatalf("expected order 902, got %d", report.OrderID)
	}
	if f.products[1].Stock != 8 {
		t.Errorf("expected stock 8, got %d", f.products[1].Stock)
	}
}
