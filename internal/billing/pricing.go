package billing

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/pharmadesk/pharmadesk-backend/pkg/errors"
)

var oneHundred = decimal.NewFromInt(100)

// LineInput carries the per-line pricing facts. UnitPrice and the percentages
// come from the in-transaction product snapshot, or from explicit overrides.
type LineInput struct {
	UnitPrice   decimal.Decimal
	Qty         int
	DiscountPct decimal.Decimal
	TaxPct      decimal.Decimal
}

// LineAmounts is the result of pricing one line. All amounts are rounded to
// two decimal places at the line level; totals are plain sums of these.
type LineAmounts struct {
	Gross          decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxableAmount  decimal.Decimal
	TaxAmount      decimal.Decimal
	LineTotal      decimal.Decimal
}

// Charges carries the bill-level adjustments applied on top of the lines.
type Charges struct {
	GlobalDiscount decimal.Decimal
	DoctorFees     decimal.Decimal
	OtherCharges   decimal.Decimal
}

// Totals aggregates the bill-level amounts. SubTotal is the sum of taxable
// line amounts, so line discounts are already taken out of it.
type Totals struct {
	SubTotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	GlobalDiscount decimal.Decimal
	DoctorFees     decimal.Decimal
	OtherCharges   decimal.Decimal
	GrandTotal     decimal.Decimal
	ChangeAmount   decimal.Decimal
}

// ComputeLine prices a single line. Discount applies to the gross amount and
// tax applies to the discounted amount.
func ComputeLine(in LineInput) (LineAmounts, error) {
	if in.Qty <= 0 {
		return LineAmounts{}, pkgerrors.Newf(pkgerrors.CodeValidation, "line quantity must be positive, got %d", in.Qty)
	}
	if in.UnitPrice.IsNegative() {
		return LineAmounts{}, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	if err := validatePct("discount", in.DiscountPct); err != nil {
		return LineAmounts{}, err
	}
	if err := validatePct("tax", in.TaxPct); err != nil {
		return LineAmounts{}, err
	}

	gross := in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Qty))).Round(2)
	discount := gross.Mul(in.DiscountPct).Div(oneHundred).Round(2)
	taxable := gross.Sub(discount)
	tax := taxable.Mul(in.TaxPct).Div(oneHundred).Round(2)

	return LineAmounts{
		Gross:          gross,
		DiscountAmount: discount,
		TaxableAmount:  taxable,
		TaxAmount:      tax,
		LineTotal:      taxable.Add(tax),
	}, nil
}

// ComputeTotals sums the priced lines and applies bill-level charges and the
// tendered amount. Paying less than the grand total is allowed; change is
// never negative.
func ComputeTotals(lines []LineAmounts, charges Charges, paidAmount decimal.Decimal) (Totals, error) {
	if len(lines) == 0 {
		return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "bill requires at least one line")
	}
	if charges.GlobalDiscount.IsNegative() {
		return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "global discount cannot be negative")
	}
	if charges.DoctorFees.IsNegative() {
		return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "doctor fees cannot be negative")
	}
	if charges.OtherCharges.IsNegative() {
		return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "other charges cannot be negative")
	}
	if paidAmount.IsNegative() {
		return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "paid amount cannot be negative")
	}

	totals := Totals{
		GlobalDiscount: charges.GlobalDiscount,
		DoctorFees:     charges.DoctorFees,
		OtherCharges:   charges.OtherCharges,
	}
	for _, line := range lines {
		totals.SubTotal = totals.SubTotal.Add(line.TaxableAmount)
		totals.DiscountAmount = totals.DiscountAmount.Add(line.DiscountAmount)
		totals.TaxAmount = totals.TaxAmount.Add(line.TaxAmount)
	}
	totals.GrandTotal = totals.SubTotal.
		Add(totals.TaxAmount).
		Add(charges.DoctorFees).
		Add(charges.OtherCharges).
		Sub(charges.GlobalDiscount)
	if totals.GrandTotal.IsNegative() {
		return Totals{}, pkgerrors.Newf(pkgerrors.CodeValidation,
			"global discount %s exceeds the bill total", charges.GlobalDiscount)
	}

	change := paidAmount.Sub(totals.GrandTotal)
	if change.IsNegative() {
		change = decimal.Zero
	}
	totals.ChangeAmount = change
	return totals, nil
}

func validatePct(name string, pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(oneHundred) {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "%s percent must be between 0 and 100, got %s", name, pct)
	}
	return nil
}
