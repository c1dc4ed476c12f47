package reports

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pharmadesk/pharmadesk-backend/pkg/db/models"
	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:reports_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Bill{}, &models.BillLineItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedBill(t *testing.T, db *gorm.DB, storeID uuid.UUID, billNo string, at time.Time, total, tax, discount string, lines []models.BillLineItem) {
	t.Helper()
	bill := models.Bill{
		StoreID:        storeID,
		BillNo:         billNo,
		BillerID:       uuid.New(),
		Status:         enums.BillStatusCompleted,
		PaymentMethod:  enums.PaymentMethodCash,
		GrandTotal:     mustDec(t, total),
		TaxAmount:      mustDec(t, tax),
		DiscountAmount: mustDec(t, discount),
		LineItems:      lines,
	}
	if err := db.Create(&bill).Error; err != nil {
		t.Fatalf("seed bill %s: %v", billNo, err)
	}
	// gorm's autoCreateTime wins on insert, so pin created_at afterwards.
	if err := db.Model(&models.Bill{}).Where("id = ?", bill.ID).Update("created_at", at).Error; err != nil {
		t.Fatalf("pin created_at: %v", err)
	}
}

func line(t *testing.T, productID uuid.UUID, name, sku string, qty int, lineTotal string) models.BillLineItem {
	t.Helper()
	return models.BillLineItem{
		ProductID:   &productID,
		ProductName: name,
		SKU:         sku,
		Quantity:    qty,
		UnitPrice:   mustDec(t, "10"),
		LineTotal:   mustDec(t, lineTotal),
	}
}

func mustDec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse decimal %s: %v", value, err)
	}
	return d
}

func TestDailySummary(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	storeID := uuid.New()
	productID := uuid.New()
	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	seedBill(t, db, storeID, "INV-20260829-0001", day.Add(9*time.Hour), "210", "10", "0",
		[]models.BillLineItem{line(t, productID, "Paracetamol", "PARA-500", 2, "210")})
	seedBill(t, db, storeID, "INV-20260829-0002", day.Add(17*time.Hour), "65", "0", "5",
		[]models.BillLineItem{line(t, productID, "Paracetamol", "PARA-500", 1, "45")})
	// Next day, must be excluded.
	seedBill(t, db, storeID, "INV-20260830-0001", day.Add(25*time.Hour), "999", "0", "0",
		[]models.BillLineItem{line(t, productID, "Paracetamol", "PARA-500", 9, "999")})
	// Another store, must be excluded.
	seedBill(t, db, uuid.New(), "INV-20260829-0001", day.Add(10*time.Hour), "500", "0", "0", nil)

	summary, err := svc.Daily(ctx, storeID, day)
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if summary.BillCount != 2 {
		t.Fatalf("expected 2 bills, got %d", summary.BillCount)
	}
	if !summary.GrossSales.Equal(mustDec(t, "275")) {
		t.Fatalf("expected gross 275, got %s", summary.GrossSales)
	}
	if !summary.TaxAmount.Equal(mustDec(t, "10")) {
		t.Fatalf("expected tax 10, got %s", summary.TaxAmount)
	}
	if !summary.DiscountAmount.Equal(mustDec(t, "5")) {
		t.Fatalf("expected discount 5, got %s", summary.DiscountAmount)
	}
	if summary.ItemsSold != 3 {
		t.Fatalf("expected 3 items sold, got %d", summary.ItemsSold)
	}
}

func TestDailySummaryEmptyDay(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)

	summary, err := svc.Daily(context.Background(), uuid.New(), time.Now())
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if summary.BillCount != 0 || summary.ItemsSold != 0 {
		t.Fatalf("expected empty summary, got %+v", summary)
	}
	if !summary.GrossSales.Equal(decimal.Zero) {
		t.Fatalf("expected zero gross, got %s", summary.GrossSales)
	}
}

func TestSalesByDay(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	storeID := uuid.New()

	day1 := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	seedBill(t, db, storeID, "A-1", day1, "100", "0", "0", nil)
	seedBill(t, db, storeID, "A-2", day1.Add(time.Hour), "50", "0", "0", nil)
	seedBill(t, db, storeID, "A-3", day2, "75", "0", "0", nil)

	rows, err := svc.SalesByDay(ctx, storeID, day1.Add(-time.Hour), day2.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("sales by day: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(rows))
	}
	if rows[0].Day != "2026-08-27" || rows[0].BillCount != 2 {
		t.Fatalf("unexpected first bucket: %+v", rows[0])
	}
	if !rows[0].GrossSales.Equal(mustDec(t, "150")) {
		t.Fatalf("expected 150 on day1, got %s", rows[0].GrossSales)
	}
	if rows[1].Day != "2026-08-28" || rows[1].BillCount != 1 {
		t.Fatalf("unexpected second bucket: %+v", rows[1])
	}
}

func TestSalesByDayInvalidRange(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)

	now := time.Now()
	if _, err := svc.SalesByDay(context.Background(), uuid.New(), now, now); err == nil {
		t.Fatal("expected error for empty range")
	}
}

func TestTopProducts(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	storeID := uuid.New()

	para := uuid.New()
	ors := uuid.New()
	at := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	seedBill(t, db, storeID, "B-1", at, "100", "0", "0", []models.BillLineItem{
		line(t, para, "Paracetamol", "PARA-500", 5, "50"),
		line(t, ors, "ORS", "ORS-1", 2, "20"),
	})
	seedBill(t, db, storeID, "B-2", at.Add(time.Hour), "100", "0", "0", []models.BillLineItem{
		line(t, para, "Paracetamol", "PARA-500", 3, "30"),
	})
	// Ad-hoc lines have no product reference and stay out of the ranking.
	seedBill(t, db, storeID, "B-3", at.Add(2*time.Hour), "40", "0", "0", []models.BillLineItem{
		{ProductName: "Crepe Bandage", Quantity: 4, UnitPrice: mustDec(t, "10"), LineTotal: mustDec(t, "40")},
	})

	rows, err := svc.TopProducts(ctx, storeID, at.Add(-time.Hour), at.Add(24*time.Hour), 10)
	if err != nil {
		t.Fatalf("top products: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 products, got %d", len(rows))
	}
	if rows[0].ProductID != para || rows[0].UnitsSold != 8 {
		t.Fatalf("unexpected leader: %+v", rows[0])
	}
	if !rows[0].Revenue.Equal(mustDec(t, "80")) {
		t.Fatalf("expected revenue 80, got %s", rows[0].Revenue)
	}
	if rows[1].ProductID != ors || rows[1].UnitsSold != 2 {
		t.Fatalf("unexpected runner-up: %+v", rows[1])
	}
}
