package billing

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pharmadesk/pharmadesk-backend/internal/customers"
	"github.com/pharmadesk/pharmadesk-backend/internal/inventory"
	dbpkg "github.com/pharmadesk/pharmadesk-backend/pkg/db"
	"github.com/pharmadesk/pharmadesk-backend/pkg/db/models"
	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
	pkgerrors "github.com/pharmadesk/pharmadesk-backend/pkg/errors"
	"github.com/pharmadesk/pharmadesk-backend/pkg/metrics"
	"github.com/pharmadesk/pharmadesk-backend/pkg/outbox"
)

type engineFixture struct {
	db     *gorm.DB
	engine *Engine
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	dsn := "file:engine_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.Product{},
		&models.Customer{},
		&models.Bill{},
		&models.BillLineItem{},
		&models.BillSequence{},
		&models.OutboxEvent{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	client := dbpkg.NewWithConn(db)
	engine := NewEngine(
		client,
		NewRepository(db),
		inventory.NewLedger(),
		NewSequenceGenerator(),
		customers.NewService(customers.NewRepository(db)),
		outbox.NewService(outbox.NewRepository(db), nil),
		metrics.NewCheckoutMetrics(nil),
		nil,
	)
	return &engineFixture{db: db, engine: engine}
}

func (f *engineFixture) seedProduct(t *testing.T, storeID uuid.UUID, sku string, qty int, price, taxPct string) models.Product {
	t.Helper()
	product := models.Product{
		StoreID:      storeID,
		Name:         "Product " + sku,
		SKU:          sku,
		Quantity:     qty,
		SellingPrice: dec(price),
		TaxPct:       dec(taxPct),
	}
	if err := f.db.Create(&product).Error; err != nil {
		t.Fatalf("seed product %s: %v", sku, err)
	}
	return product
}

func (f *engineFixture) seedCustomer(t *testing.T, storeID uuid.UUID) models.Customer {
	t.Helper()
	customer := models.Customer{StoreID: storeID, Name: "Walk In Regular", TotalPurchases: decimal.Zero}
	if err := f.db.Create(&customer).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return customer
}

func (f *engineFixture) productQty(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := f.db.First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Quantity
}

func TestCheckoutHappyPath(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()
	storeID := uuid.New()
	billerID := uuid.New()

	para := f.seedProduct(t, storeID, "PARA-500", 10, "100", "5")
	ors := f.seedProduct(t, storeID, "ORS-1", 4, "25", "0")
	customer := f.seedCustomer(t, storeID)

	bill, err := f.engine.Checkout(ctx, storeID, CheckoutInput{
		BillerID:      billerID,
		CustomerID:    &customer.ID,
		PaymentMethod: enums.PaymentMethodCash,
		OtherCharges:  decimal.Zero,
		PaidAmount:    dec("260"),
		Lines: []CheckoutLine{
			{ProductID: &para.ID, Qty: 2},
			{ProductID: &ors.ID, Qty: 2},
		},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if bill.BillNo == "" {
		t.Fatal("bill number not assigned")
	}
	// 2x100 @5% tax = 210, 2x25 = 50, grand 260.
	if !bill.SubTotal.Equal(dec("250")) {
		t.Fatalf("subtotal: expected 250, got %s", bill.SubTotal)
	}
	if !bill.TaxAmount.Equal(dec("10")) {
		t.Fatalf("tax: expected 10, got %s", bill.TaxAmount)
	}
	if !bill.GrandTotal.Equal(dec("260")) {
		t.Fatalf("grand total: expected 260, got %s", bill.GrandTotal)
	}
	if !bill.ChangeAmount.Equal(decimal.Zero) {
		t.Fatalf("change: expected 0, got %s", bill.ChangeAmount)
	}
	if len(bill.LineItems) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(bill.LineItems))
	}
	if bill.LineItems[0].ProductName == "" || bill.LineItems[0].SKU == "" {
		t.Fatalf("line item snapshot incomplete: %+v", bill.LineItems[0])
	}

	if got := f.productQty(t, para.ID); got != 8 {
		t.Fatalf("expected paracetamol qty 8, got %d", got)
	}
	if got := f.productQty(t, ors.ID); got != 2 {
		t.Fatalf("expected ors qty 2, got %d", got)
	}

	var gotCustomer models.Customer
	if err := f.db.First(&gotCustomer, "id = ?", customer.ID).Error; err != nil {
		t.Fatalf("load customer: %v", err)
	}
	if !gotCustomer.TotalPurchases.Equal(dec("260")) {
		t.Fatalf("expected customer total 260, got %s", gotCustomer.TotalPurchases)
	}

	var events []models.OutboxEvent
	if err := f.db.Find(&events).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 outbox event, got %d", len(events))
	}
	if events[0].EventType != enums.EventBillCreated {
		t.Fatalf("unexpected event type %s", events[0].EventType)
	}
}

func TestCheckoutAllOrNothingOnInsufficientStock(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()
	storeID := uuid.New()

	plenty := f.seedProduct(t, storeID, "PLENTY", 100, "10", "0")
	scarce := f.seedProduct(t, storeID, "SCARCE", 1, "10", "0")

	_, err := f.engine.Checkout(ctx, storeID, CheckoutInput{
		BillerID:      uuid.New(),
		PaymentMethod: enums.PaymentMethodCash,
		PaidAmount:    dec("100"),
		Lines: []CheckoutLine{
			{ProductID: &plenty.ID, Qty: 5},
			{ProductID: &scarce.ID, Qty: 2},
		},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	// First line's decrement must roll back with the transaction.
	if got := f.productQty(t, plenty.ID); got != 100 {
		t.Fatalf("expected qty 100 after rollback, got %d", got)
	}
	if got := f.productQty(t, scarce.ID); got != 1 {
		t.Fatalf("expected qty 1 after rollback, got %d", got)
	}

	var billCount int64
	if err := f.db.Model(&models.Bill{}).Count(&billCount).Error; err != nil {
		t.Fatalf("count bills: %v", err)
	}
	if billCount != 0 {
		t.Fatalf("expected no bills, got %d", billCount)
	}
	var eventCount int64
	if err := f.db.Model(&models.OutboxEvent{}).Count(&eventCount).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if eventCount != 0 {
		t.Fatalf("expected no outbox events, got %d", eventCount)
	}
}

func TestCheckoutUnknownCustomerRollsBackStock(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()
	storeID := uuid.New()

	product := f.seedProduct(t, storeID, "PARA-500", 10, "100", "0")
	ghost := uuid.New()

	_, err := f.engine.Checkout(ctx, storeID, CheckoutInput{
		BillerID:      uuid.New(),
		CustomerID:    &ghost,
		PaymentMethod: enums.PaymentMethodCard,
		PaidAmount:    dec("100"),
		Lines:         []CheckoutLine{{ProductID: &product.ID, Qty: 1}},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	if got := f.productQty(t, product.ID); got != 10 {
		t.Fatalf("expected qty 10 after rollback, got %d", got)
	}
	var billCount int64
	if err := f.db.Model(&models.Bill{}).Count(&billCount).Error; err != nil {
		t.Fatalf("count bills: %v", err)
	}
	if billCount != 0 {
		t.Fatalf("expected no bills, got %d", billCount)
	}
}

func TestCheckoutExhaustsStockExactly(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()
	storeID := uuid.New()

	// Stock 5, two units per sale: exactly floor(5/2) = 2 sales succeed.
	product := f.seedProduct(t, storeID, "LIMITED", 5, "10", "0")

	succeeded := 0
	var lastErr error
	for i := 0; i < 4; i++ {
		_, err := f.engine.Checkout(ctx, storeID, CheckoutInput{
			BillerID:      uuid.New(),
			PaymentMethod: enums.PaymentMethodUPI,
			PaidAmount:    dec("20"),
			Lines:         []CheckoutLine{{ProductID: &product.ID, Qty: 2}},
		})
		if err != nil {
			lastErr = err
			continue
		}
		succeeded++
	}

	if succeeded != 2 {
		t.Fatalf("expected exactly 2 successful checkouts, got %d", succeeded)
	}
	if typed := pkgerrors.As(lastErr); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock for the rest, got %v", lastErr)
	}
	if got := f.productQty(t, product.ID); got != 1 {
		t.Fatalf("expected 1 unit left, got %d", got)
	}
}

func TestCheckoutBillNumbersAreSequential(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()
	storeID := uuid.New()

	product := f.seedProduct(t, storeID, "BULK", 100, "10", "0")

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		bill, err := f.engine.Checkout(ctx, storeID, CheckoutInput{
			BillerID:      uuid.New(),
			PaymentMethod: enums.PaymentMethodCash,
			PaidAmount:    dec("10"),
			Lines:         []CheckoutLine{{ProductID: &product.ID, Qty: 1}},
		})
		if err != nil {
			t.Fatalf("checkout %d: %v", i, err)
		}
		if seen[bill.BillNo] {
			t.Fatalf("duplicate bill number %s", bill.BillNo)
		}
		seen[bill.BillNo] = true
	}
}

func TestCheckoutEmitsStockDepletedEvent(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()
	storeID := uuid.New()

	product := f.seedProduct(t, storeID, "LAST-ONE", 2, "10", "0")

	_, err := f.engine.Checkout(ctx, storeID, CheckoutInput{
		BillerID:      uuid.New(),
		PaymentMethod: enums.PaymentMethodCash,
		PaidAmount:    dec("20"),
		Lines:         []CheckoutLine{{ProductID: &product.ID, Qty: 2}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	var events []models.OutboxEvent
	if err := f.db.Order("created_at ASC").Find(&events).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected bill_created plus stock_depleted, got %d events", len(events))
	}
	foundDepleted := false
	for _, event := range events {
		if event.EventType == enums.EventStockDepleted && event.AggregateID == product.ID {
			foundDepleted = true
		}
	}
	if !foundDepleted {
		t.Fatal("stock_depleted event not emitted")
	}
}

func TestCheckoutValidation(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()
	storeID := uuid.New()
	productID := uuid.New()

	tests := []struct {
		name string
		in   CheckoutInput
	}{
		{
			name: "missing biller",
			in: CheckoutInput{
				PaymentMethod: enums.PaymentMethodCash,
				Lines:         []CheckoutLine{{ProductID: &productID, Qty: 1}},
			},
		},
		{
			name: "invalid payment method",
			in: CheckoutInput{
				BillerID:      uuid.New(),
				PaymentMethod: "barter",
				Lines:         []CheckoutLine{{ProductID: &productID, Qty: 1}},
			},
		},
		{
			name: "no lines",
			in: CheckoutInput{
				BillerID:      uuid.New(),
				PaymentMethod: enums.PaymentMethodCash,
			},
		},
		{
			name: "duplicate product lines",
			in: CheckoutInput{
				BillerID:      uuid.New(),
				PaymentMethod: enums.PaymentMethodCash,
				Lines: []CheckoutLine{
					{ProductID: &productID, Qty: 1},
					{ProductID: &productID, Qty: 2},
				},
			},
		},
		{
			name: "negative paid amount",
			in: CheckoutInput{
				BillerID:      uuid.New(),
				PaymentMethod: enums.PaymentMethodCash,
				PaidAmount:    dec("-1"),
				Lines:         []CheckoutLine{{ProductID: &productID, Qty: 1}},
			},
		},
		{
			name: "ad-hoc line without name",
			in: CheckoutInput{
				BillerID:      uuid.New(),
				PaymentMethod: enums.PaymentMethodCash,
				PaidAmount:    dec("30"),
				Lines:         []CheckoutLine{{Qty: 1, UnitPrice: decPtr("30")}},
			},
		},
		{
			name: "ad-hoc line without unit price",
			in: CheckoutInput{
				BillerID:      uuid.New(),
				PaymentMethod: enums.PaymentMethodCash,
				PaidAmount:    dec("30"),
				Lines:         []CheckoutLine{{Name: "Crepe Bandage", Qty: 1}},
			},
		},
		{
			name: "negative doctor fees",
			in: CheckoutInput{
				BillerID:      uuid.New(),
				PaymentMethod: enums.PaymentMethodCash,
				DoctorFees:    dec("-10"),
				Lines:         []CheckoutLine{{ProductID: &productID, Qty: 1}},
			},
		},
		{
			name: "negative global discount",
			in: CheckoutInput{
				BillerID:       uuid.New(),
				PaymentMethod:  enums.PaymentMethodCash,
				GlobalDiscount: dec("-10"),
				Lines:          []CheckoutLine{{ProductID: &productID, Qty: 1}},
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := f.engine.Checkout(ctx, storeID, tt.in)
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCheckoutPriceOverrides(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()
	storeID := uuid.New()

	product := f.seedProduct(t, storeID, "OVERRIDE", 10, "100", "0")

	override := dec("80")
	discount := dec("10")
	bill, err := f.engine.Checkout(ctx, storeID, CheckoutInput{
		BillerID:      uuid.New(),
		PaymentMethod: enums.PaymentMethodCash,
		PaidAmount:    dec("72"),
		Lines: []CheckoutLine{
			{ProductID: &product.ID, Qty: 1, UnitPrice: &override, DiscountPct: &discount},
		},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if !bill.SubTotal.Equal(dec("72")) {
		t.Fatalf("expected overridden taxable subtotal 72, got %s", bill.SubTotal)
	}
	if !bill.DiscountAmount.Equal(dec("8")) {
		t.Fatalf("expected discount 8, got %s", bill.DiscountAmount)
	}
	if !bill.GrandTotal.Equal(dec("72")) {
		t.Fatalf("expected grand total 72, got %s", bill.GrandTotal)
	}
	if !bill.LineItems[0].UnitPrice.Equal(override) {
		t.Fatalf("line item should carry the overridden price, got %s", bill.LineItems[0].UnitPrice)
	}
}

func decPtr(value string) *decimal.Decimal {
	d := dec(value)
	return &d
}

func TestCheckoutWithAdHocLine(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()
	storeID := uuid.New()

	product := f.seedProduct(t, storeID, "PARA-500", 10, "100", "0")

	bill, err := f.engine.Checkout(ctx, storeID, CheckoutInput{
		BillerID:      uuid.New(),
		PaymentMethod: enums.PaymentMethodCash,
		PaidAmount:    dec("160"),
		Lines: []CheckoutLine{
			{ProductID: &product.ID, Qty: 1},
			{Name: "Crepe Bandage", SKU: "CB-10", Qty: 2, UnitPrice: decPtr("30")},
		},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if len(bill.LineItems) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(bill.LineItems))
	}
	if !bill.GrandTotal.Equal(dec("160")) {
		t.Fatalf("grand total: expected 160, got %s", bill.GrandTotal)
	}

	var adHoc *models.BillLineItem
	for i := range bill.LineItems {
		if bill.LineItems[i].ProductID == nil {
			adHoc = &bill.LineItems[i]
		}
	}
	if adHoc == nil {
		t.Fatal("ad-hoc line item not persisted")
	}
	if adHoc.ProductName != "Crepe Bandage" || adHoc.SKU != "CB-10" {
		t.Fatalf("ad-hoc snapshot wrong: %+v", adHoc)
	}
	if adHoc.CostPrice != nil || adHoc.BatchNo != nil || adHoc.ExpiryDate != nil {
		t.Fatalf("ad-hoc line must carry no inventory snapshot: %+v", adHoc)
	}
	if !adHoc.LineTotal.Equal(dec("60")) {
		t.Fatalf("ad-hoc line total: expected 60, got %s", adHoc.LineTotal)
	}

	// Only the inventory-backed line touches stock.
	if got := f.productQty(t, product.ID); got != 9 {
		t.Fatalf("expected qty 9, got %d", got)
	}
}

func TestCheckoutDoctorFeesAndGlobalDiscount(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()
	storeID := uuid.New()

	product := f.seedProduct(t, storeID, "AMOX-250", 10, "50", "0")

	doctor := "Dr. Rao"
	notes := "follow up in two weeks"
	discount := dec("10")
	bill, err := f.engine.Checkout(ctx, storeID, CheckoutInput{
		BillerID:      uuid.New(),
		PaymentMethod: enums.PaymentMethodCash,
		DoctorFees:    dec("20"),
		PaidAmount:    dec("100"),
		DoctorName:    &doctor,
		Notes:         &notes,
		Lines: []CheckoutLine{
			{ProductID: &product.ID, Qty: 1, DiscountPct: &discount},
		},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	// 50 less 10% = 45 taxable, plus 20 doctor fees = 65; 100 tendered.
	if !bill.SubTotal.Equal(dec("45")) {
		t.Fatalf("subtotal: expected 45, got %s", bill.SubTotal)
	}
	if !bill.DiscountAmount.Equal(dec("5")) {
		t.Fatalf("discount: expected 5, got %s", bill.DiscountAmount)
	}
	if !bill.DoctorFees.Equal(dec("20")) {
		t.Fatalf("doctor fees: expected 20, got %s", bill.DoctorFees)
	}
	if !bill.GrandTotal.Equal(dec("65")) {
		t.Fatalf("grand total: expected 65, got %s", bill.GrandTotal)
	}
	if !bill.ChangeAmount.Equal(dec("35")) {
		t.Fatalf("change: expected 35, got %s", bill.ChangeAmount)
	}
	if bill.DoctorName == nil || *bill.DoctorName != doctor {
		t.Fatalf("doctor name not persisted: %v", bill.DoctorName)
	}
	if bill.Notes == nil || *bill.Notes != notes {
		t.Fatalf("notes not persisted: %v", bill.Notes)
	}

	globalDiscount := dec("15")
	discounted, err := f.engine.Checkout(ctx, storeID, CheckoutInput{
		BillerID:       uuid.New(),
		PaymentMethod:  enums.PaymentMethodCash,
		GlobalDiscount: globalDiscount,
		PaidAmount:     dec("35"),
		Lines:          []CheckoutLine{{ProductID: &product.ID, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("discounted checkout: %v", err)
	}
	if !discounted.GlobalDiscount.Equal(globalDiscount) {
		t.Fatalf("global discount: expected 15, got %s", discounted.GlobalDiscount)
	}
	if !discounted.GrandTotal.Equal(dec("35")) {
		t.Fatalf("grand total: expected 35, got %s", discounted.GrandTotal)
	}
}

func TestCheckoutTaxOverride(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()
	storeID := uuid.New()

	product := f.seedProduct(t, storeID, "TAXED", 10, "100", "5")

	override := dec("12")
	bill, err := f.engine.Checkout(ctx, storeID, CheckoutInput{
		BillerID:      uuid.New(),
		PaymentMethod: enums.PaymentMethodCash,
		PaidAmount:    dec("112"),
		Lines: []CheckoutLine{
			{ProductID: &product.ID, Qty: 1, TaxPct: &override},
		},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if !bill.LineItems[0].TaxPct.Equal(override) {
		t.Fatalf("line tax pct: expected 12, got %s", bill.LineItems[0].TaxPct)
	}
	if !bill.LineItems[0].TaxAmount.Equal(dec("12")) {
		t.Fatalf("line tax amount: expected 12, got %s", bill.LineItems[0].TaxAmount)
	}
	if !bill.GrandTotal.Equal(dec("112")) {
		t.Fatalf("grand total: expected 112, got %s", bill.GrandTotal)
	}
}

func TestConcurrentCheckoutsExhaustStockExactly(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	storeID := uuid.New()

	// One sqlite connection serializes commits while the goroutines still
	// race to submit; the conditional decrement decides who wins.
	sqlDB, err := f.db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	// Stock 5, two per checkout: exactly floor(5/2) = 2 may succeed.
	product := f.seedProduct(t, storeID, "RACE", 5, "10", "0")

	const workers = 8
	results := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Checkout(context.Background(), storeID, CheckoutInput{
				BillerID:      uuid.New(),
				PaymentMethod: enums.PaymentMethodCash,
				PaidAmount:    dec("20"),
				Lines:         []CheckoutLine{{ProductID: &product.ID, Qty: 2}},
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, outOfStock := 0, 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeInsufficientStock {
			outOfStock++
			continue
		}
		t.Fatalf("unexpected error: %v", err)
	}

	if succeeded != 2 {
		t.Fatalf("expected exactly 2 winners, got %d", succeeded)
	}
	if outOfStock != workers-2 {
		t.Fatalf("expected %d insufficient stock failures, got %d", workers-2, outOfStock)
	}
	if got := f.productQty(t, product.ID); got != 1 {
		t.Fatalf("expected 5 mod 2 = 1 unit left, got %d", got)
	}
}

func TestConcurrentCheckoutBillNumbersUnique(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	storeID := uuid.New()

	sqlDB, err := f.db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	product := f.seedProduct(t, storeID, "BULK", 100, "10", "0")

	const workers = 8
	billNos := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bill, err := f.engine.Checkout(context.Background(), storeID, CheckoutInput{
				BillerID:      uuid.New(),
				PaymentMethod: enums.PaymentMethodCash,
				PaidAmount:    dec("10"),
				Lines:         []CheckoutLine{{ProductID: &product.ID, Qty: 1}},
			})
			if err != nil {
				t.Errorf("checkout: %v", err)
				return
			}
			billNos <- bill.BillNo
		}()
	}
	wg.Wait()
	close(billNos)

	seen := make(map[string]bool)
	count := 0
	for billNo := range billNos {
		if seen[billNo] {
			t.Fatalf("duplicate bill number %s", billNo)
		}
		seen[billNo] = true
		count++
	}
	if count != workers {
		t.Fatalf("expected %d bills, got %d", workers, count)
	}
}
