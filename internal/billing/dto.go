package billing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
)

// CheckoutLine is one requested sale line. A non-nil ProductID marks the line
// as inventory-backed: stock is decremented and name, SKU and prices are
// frozen from the product row inside the transaction, with UnitPrice,
// DiscountPct and TaxPct acting as optional overrides. A nil ProductID marks
// an ad-hoc line: Name and UnitPrice must be supplied directly and the
// inventory ledger is never touched.
type CheckoutLine struct {
	ProductID   *uuid.UUID
	Name        string
	SKU         string
	Qty         int
	UnitPrice   *decimal.Decimal
	DiscountPct *decimal.Decimal
	TaxPct      *decimal.Decimal
}

// IsInventoryBacked reports whether the line consumes stock.
func (l CheckoutLine) IsInventoryBacked() bool {
	return l.ProductID != nil
}

// CheckoutInput is everything the engine needs to complete a sale.
type CheckoutInput struct {
	BillerID       uuid.UUID
	CustomerID     *uuid.UUID
	PaymentMethod  enums.PaymentMethod
	GlobalDiscount decimal.Decimal
	DoctorFees     decimal.Decimal
	OtherCharges   decimal.Decimal
	PaidAmount     decimal.Decimal
	DoctorName     *string
	Notes          *string
	Lines          []CheckoutLine
}

// ListFilters narrows bill listings.
type ListFilters struct {
	CustomerID *uuid.UUID
	From       *int64
	To         *int64
}

type billCreatedPayload struct {
	BillNo        string          `json:"billNo"`
	CustomerID    *uuid.UUID      `json:"customerId,omitempty"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
	PaymentMethod string          `json:"paymentMethod"`
	LineCount     int             `json:"lineCount"`
}

type stockDepletedPayload struct {
	ProductID uuid.UUID `json:"productId"`
	SKU       string    `json:"sku"`
	BillNo    string    `json:"billNo"`
}
