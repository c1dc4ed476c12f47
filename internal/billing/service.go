package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pharmadesk/pharmadesk-backend/internal/inventory"
	dbpkg "github.com/pharmadesk/pharmadesk-backend/pkg/db"
	"github.com/pharmadesk/pharmadesk-backend/pkg/db/models"
	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
	pkgerrors "github.com/pharmadesk/pharmadesk-backend/pkg/errors"
	"github.com/pharmadesk/pharmadesk-backend/pkg/logger"
	"github.com/pharmadesk/pharmadesk-backend/pkg/metrics"
	"github.com/pharmadesk/pharmadesk-backend/pkg/outbox"
	"github.com/pharmadesk/pharmadesk-backend/pkg/pagination"
)

// maxCheckoutAttempts bounds retries after serialization failures.
const maxCheckoutAttempts = 3

// StockDecrementer is the guarded inventory operation the engine runs per line.
type StockDecrementer interface {
	ReserveAndDecrement(ctx context.Context, tx *gorm.DB, storeID, productID uuid.UUID, qty int) (*inventory.Snapshot, error)
}

// CustomerRecorder folds a committed sale into the customer aggregate.
type CustomerRecorder interface {
	RecordPurchase(ctx context.Context, tx *gorm.DB, storeID, customerID uuid.UUID, amount decimal.Decimal) error
}

// BillNumberSource issues the next bill number within the transaction.
type BillNumberSource interface {
	Next(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, at time.Time) (string, error)
}

// EventEmitter captures domain events alongside the transaction.
type EventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Engine executes checkouts. Everything a checkout touches, stock, the bill,
// its line items, the bill counter, the customer aggregate and the outbox row,
// commits or rolls back as one unit.
type Engine struct {
	client    *dbpkg.Client
	repo      *Repository
	stock     StockDecrementer
	sequence  BillNumberSource
	customers CustomerRecorder
	events    EventEmitter
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger
	now       func() time.Time
}

func NewEngine(
	client *dbpkg.Client,
	repo *Repository,
	stock StockDecrementer,
	sequence BillNumberSource,
	customers CustomerRecorder,
	events EventEmitter,
	checkoutMetrics *metrics.CheckoutMetrics,
	logg *logger.Logger,
) *Engine {
	return &Engine{
		client:    client,
		repo:      repo,
		stock:     stock,
		sequence:  sequence,
		customers: customers,
		events:    events,
		metrics:   checkoutMetrics,
		logg:      logg,
		now:       time.Now,
	}
}

// Checkout completes a sale. On serialization failures the whole transaction
// is retried from scratch; any other failure rolls everything back.
func (e *Engine) Checkout(ctx context.Context, storeID uuid.UUID, in CheckoutInput) (*models.Bill, error) {
	if err := e.validate(storeID, in); err != nil {
		e.metrics.IncFailure(string(pkgerrors.CodeValidation))
		return nil, err
	}

	started := e.now()
	var bill *models.Bill
	var err error
	for attempt := 1; ; attempt++ {
		bill, err = e.checkoutOnce(ctx, storeID, in)
		if err == nil || attempt >= maxCheckoutAttempts || !dbpkg.IsSerializationFailure(err) {
			break
		}
		e.metrics.IncRetry()
		if e.logg != nil {
			e.logg.Warn(e.logg.WithField(ctx, "attempt", attempt), "retrying checkout after serialization failure")
		}
	}
	e.metrics.ObserveDuration(string(in.PaymentMethod), e.now().Sub(started))

	if err != nil {
		code := pkgerrors.CodeInternal
		if typed := pkgerrors.As(err); typed != nil {
			code = typed.Code()
		}
		e.metrics.IncFailure(string(code))
		return nil, err
	}

	e.metrics.IncSuccess(string(in.PaymentMethod))
	if e.logg != nil {
		fields := map[string]any{
			"bill_no":     bill.BillNo,
			"grand_total": bill.GrandTotal.String(),
			"lines":       len(bill.LineItems),
		}
		e.logg.Info(e.logg.WithFields(ctx, fields), "checkout committed")
	}
	return bill, nil
}

func (e *Engine) checkoutOnce(ctx context.Context, storeID uuid.UUID, in CheckoutInput) (*models.Bill, error) {
	var created *models.Bill

	err := e.client.WithTx(ctx, func(tx *gorm.DB) error {
		lineItems := make([]models.BillLineItem, 0, len(in.Lines))
		lineAmounts := make([]LineAmounts, 0, len(in.Lines))
		depleted := make([]*inventory.Snapshot, 0)

		for _, line := range in.Lines {
			item := models.BillLineItem{
				ProductName: line.Name,
				SKU:         line.SKU,
				Quantity:    line.Qty,
			}
			// Ad-hoc lines carry their own price; inventory defaults
			// come from the in-transaction snapshot.
			var unitPrice, discountPct, taxPct decimal.Decimal

			if line.IsInventoryBacked() {
				snap, err := e.stock.ReserveAndDecrement(ctx, tx, storeID, *line.ProductID, line.Qty)
				if err != nil {
					return err
				}

				unitPrice = snap.SellingPrice
				discountPct = snap.DiscountPct
				taxPct = snap.TaxPct

				cost := snap.CostPrice
				item.ProductID = &snap.ProductID
				item.ProductName = snap.Name
				item.SKU = snap.SKU
				item.CostPrice = &cost
				item.BatchNo = snap.BatchNo
				item.ExpiryDate = snap.ExpiryDate

				if snap.Remaining == 0 {
					depleted = append(depleted, snap)
				}
			}
			if line.UnitPrice != nil {
				unitPrice = *line.UnitPrice
			}
			if line.DiscountPct != nil {
				discountPct = *line.DiscountPct
			}
			if line.TaxPct != nil {
				taxPct = *line.TaxPct
			}

			amounts, err := ComputeLine(LineInput{
				UnitPrice:   unitPrice,
				Qty:         line.Qty,
				DiscountPct: discountPct,
				TaxPct:      taxPct,
			})
			if err != nil {
				return err
			}

			item.UnitPrice = unitPrice
			item.DiscountPct = discountPct
			item.TaxPct = taxPct
			item.TaxAmount = amounts.TaxAmount
			item.LineTotal = amounts.LineTotal

			lineAmounts = append(lineAmounts, amounts)
			lineItems = append(lineItems, item)
		}

		totals, err := ComputeTotals(lineAmounts, Charges{
			GlobalDiscount: in.GlobalDiscount,
			DoctorFees:     in.DoctorFees,
			OtherCharges:   in.OtherCharges,
		}, in.PaidAmount)
		if err != nil {
			return err
		}

		billNo, err := e.sequence.Next(ctx, tx, storeID, e.now())
		if err != nil {
			return err
		}

		bill := &models.Bill{
			StoreID:        storeID,
			BillNo:         billNo,
			CustomerID:     in.CustomerID,
			BillerID:       in.BillerID,
			Status:         enums.BillStatusCompleted,
			PaymentMethod:  in.PaymentMethod,
			SubTotal:       totals.SubTotal,
			DiscountAmount: totals.DiscountAmount,
			TaxAmount:      totals.TaxAmount,
			GlobalDiscount: totals.GlobalDiscount,
			DoctorFees:     totals.DoctorFees,
			OtherCharges:   totals.OtherCharges,
			GrandTotal:     totals.GrandTotal,
			PaidAmount:     in.PaidAmount,
			ChangeAmount:   totals.ChangeAmount,
			DoctorName:     in.DoctorName,
			Notes:          in.Notes,
			LineItems:      lineItems,
		}
		if err := e.repo.CreateBill(tx, bill); err != nil {
			if dbpkg.IsUniqueViolation(err, "idx_bills_store_bill_no") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "bill number already taken")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating bill")
		}

		if in.CustomerID != nil {
			if err := e.customers.RecordPurchase(ctx, tx, storeID, *in.CustomerID, totals.GrandTotal); err != nil {
				return err
			}
		}

		if e.events != nil {
			actor := &outbox.ActorRef{UserID: in.BillerID, StoreID: storeID}
			event := outbox.DomainEvent{
				EventType:     enums.EventBillCreated,
				AggregateType: enums.AggregateBill,
				AggregateID:   bill.ID,
				StoreID:       storeID,
				Actor:         actor,
				Version:       1,
				Data: billCreatedPayload{
					BillNo:        bill.BillNo,
					CustomerID:    bill.CustomerID,
					GrandTotal:    bill.GrandTotal,
					PaymentMethod: string(bill.PaymentMethod),
					LineCount:     len(bill.LineItems),
				},
			}
			if err := e.events.Emit(ctx, tx, event); err != nil {
				return err
			}
			for _, snap := range depleted {
				depletedEvent := outbox.DomainEvent{
					EventType:     enums.EventStockDepleted,
					AggregateType: enums.AggregateProduct,
					AggregateID:   snap.ProductID,
					StoreID:       storeID,
					Actor:         actor,
					Version:       1,
					Data: stockDepletedPayload{
						ProductID: snap.ProductID,
						SKU:       snap.SKU,
						BillNo:    bill.BillNo,
					},
				}
				if err := e.events.Emit(ctx, tx, depletedEvent); err != nil {
					return err
				}
			}
		}

		created = bill
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (e *Engine) validate(storeID uuid.UUID, in CheckoutInput) error {
	if storeID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	if in.BillerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "biller id is required")
	}
	if !in.PaymentMethod.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment method %q", in.PaymentMethod)
	}
	if len(in.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "bill requires at least one line")
	}
	seen := make(map[uuid.UUID]struct{}, len(in.Lines))
	for _, line := range in.Lines {
		if line.Qty <= 0 {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "line quantity must be positive, got %d", line.Qty)
		}
		if !line.IsInventoryBacked() {
			if line.Name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "ad-hoc line requires a name")
			}
			if line.UnitPrice == nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "ad-hoc line requires a unit price")
			}
			continue
		}
		if *line.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "line product id cannot be empty")
		}
		if _, dup := seen[*line.ProductID]; dup {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "duplicate product %s, merge quantities into one line", line.ProductID)
		}
		seen[*line.ProductID] = struct{}{}
	}
	if in.GlobalDiscount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "global discount cannot be negative")
	}
	if in.DoctorFees.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "doctor fees cannot be negative")
	}
	if in.OtherCharges.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "other charges cannot be negative")
	}
	if in.PaidAmount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "paid amount cannot be negative")
	}
	return nil
}

// GetBill loads one bill with its lines.
func (e *Engine) GetBill(ctx context.Context, storeID, billID uuid.UUID) (*models.Bill, error) {
	return e.repo.GetByID(ctx, storeID, billID)
}

// GetBillByNo resolves a bill by number.
func (e *Engine) GetBillByNo(ctx context.Context, storeID uuid.UUID, billNo string) (*models.Bill, error) {
	return e.repo.GetByBillNo(ctx, storeID, billNo)
}

// ListBills pages bills newest-first.
func (e *Engine) ListBills(ctx context.Context, storeID uuid.UUID, params pagination.Params, filters ListFilters) ([]models.Bill, string, error) {
	return e.repo.List(ctx, storeID, params, filters)
}
