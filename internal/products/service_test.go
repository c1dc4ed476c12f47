package products

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pharmadesk/pharmadesk-backend/internal/inventory"
	dbpkg "github.com/pharmadesk/pharmadesk-backend/pkg/db"
	"github.com/pharmadesk/pharmadesk-backend/pkg/db/models"
	pkgerrors "github.com/pharmadesk/pharmadesk-backend/pkg/errors"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := "file:products_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}); err != nil {
		t.Fatalf("migrate products: %v", err)
	}
	svc := NewService(dbpkg.NewWithConn(db), NewRepository(db), inventory.NewLedger())
	return svc, db
}

func TestCreateProduct(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	storeID := uuid.New()

	created, err := svc.Create(ctx, storeID, CreateInput{
		Name:         " Paracetamol 500mg ",
		SKU:          "PARA-500",
		Quantity:     20,
		SellingPrice: decimal.NewFromInt(50),
		TaxPct:       decimal.NewFromInt(5),
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if created.Name != "Paracetamol 500mg" {
		t.Fatalf("expected trimmed name, got %q", created.Name)
	}
	if created.Quantity != 20 {
		t.Fatalf("expected quantity 20, got %d", created.Quantity)
	}
}

func TestCreateProductValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	storeID := uuid.New()

	tests := []struct {
		name string
		in   CreateInput
	}{
		{"missing name", CreateInput{SKU: "X"}},
		{"missing sku", CreateInput{Name: "X"}},
		{"negative quantity", CreateInput{Name: "X", SKU: "X", Quantity: -1}},
		{"negative price", CreateInput{Name: "X", SKU: "X", SellingPrice: decimal.NewFromInt(-1)}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.Create(ctx, storeID, tt.in)
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestAdjustStock(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	storeID := uuid.New()

	created, err := svc.Create(ctx, storeID, CreateInput{Name: "ORS", SKU: "ORS-1", Quantity: 5})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	got, err := svc.AdjustStock(ctx, storeID, created.ID, 10)
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if got.Quantity != 15 {
		t.Fatalf("expected quantity 15, got %d", got.Quantity)
	}

	got, err = svc.AdjustStock(ctx, storeID, created.ID, -15)
	if err != nil {
		t.Fatalf("draw down: %v", err)
	}
	if got.Quantity != 0 {
		t.Fatalf("expected quantity 0, got %d", got.Quantity)
	}

	_, err = svc.AdjustStock(ctx, storeID, created.ID, -1)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	_, err = svc.AdjustStock(ctx, storeID, created.ID, 0)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for zero delta, got %v", err)
	}
}

func TestUpdateProductDoesNotTouchQuantity(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	storeID := uuid.New()

	created, err := svc.Create(ctx, storeID, CreateInput{Name: "Ibuprofen", SKU: "IBU-200", Quantity: 7})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	price := decimal.NewFromInt(75)
	updated, err := svc.Update(ctx, storeID, created.ID, UpdateInput{SellingPrice: &price})
	if err != nil {
		t.Fatalf("update product: %v", err)
	}
	if !updated.SellingPrice.Equal(price) {
		t.Fatalf("price not updated: %s", updated.SellingPrice)
	}
	if updated.Quantity != 7 {
		t.Fatalf("quantity must be untouched by update, got %d", updated.Quantity)
	}
}

func TestLowStock(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	storeID := uuid.New()

	for _, p := range []struct {
		sku string
		qty int
	}{
		{"A", 2}, {"B", 10}, {"C", 50},
	} {
		if _, err := svc.Create(ctx, storeID, CreateInput{Name: p.sku, SKU: p.sku, Quantity: p.qty}); err != nil {
			t.Fatalf("create %s: %v", p.sku, err)
		}
	}

	rows, err := svc.LowStock(ctx, storeID, 10)
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 low stock rows, got %d", len(rows))
	}
	if rows[0].SKU != "A" {
		t.Fatalf("expected most depleted first, got %s", rows[0].SKU)
	}
}

func TestNearExpiry(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	storeID := uuid.New()

	soon := time.Now().UTC().Add(30 * 24 * time.Hour)
	far := time.Now().UTC().Add(365 * 24 * time.Hour)

	if _, err := svc.Create(ctx, storeID, CreateInput{Name: "Soon", SKU: "SOON", ExpiryDate: &soon}); err != nil {
		t.Fatalf("create soon: %v", err)
	}
	if _, err := svc.Create(ctx, storeID, CreateInput{Name: "Far", SKU: "FAR", ExpiryDate: &far}); err != nil {
		t.Fatalf("create far: %v", err)
	}
	if _, err := svc.Create(ctx, storeID, CreateInput{Name: "NoExpiry", SKU: "NOEXP"}); err != nil {
		t.Fatalf("create no expiry: %v", err)
	}

	rows, err := svc.NearExpiry(ctx, storeID, 90*24*time.Hour)
	if err != nil {
		t.Fatalf("near expiry: %v", err)
	}
	if len(rows) != 1 || rows[0].SKU != "SOON" {
		t.Fatalf("expected only the soon-expiring product, got %+v", rows)
	}
}
