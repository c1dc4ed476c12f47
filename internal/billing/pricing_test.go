package billing

import (
	"testing"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/pharmadesk/pharmadesk-backend/pkg/errors"
)

func dec(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		in           LineInput
		wantGross    string
		wantDiscount string
		wantTax      string
		wantTotal    string
	}{
		{
			name:         "tax only",
			in:           LineInput{UnitPrice: dec("100"), Qty: 2, TaxPct: dec("5")},
			wantGross:    "200",
			wantDiscount: "0",
			wantTax:      "10",
			wantTotal:    "210",
		},
		{
			name:         "discount only",
			in:           LineInput{UnitPrice: dec("50"), Qty: 1, DiscountPct: dec("10")},
			wantGross:    "50",
			wantDiscount: "5",
			wantTax:      "0",
			wantTotal:    "45",
		},
		{
			name:         "discount then tax",
			in:           LineInput{UnitPrice: dec("80"), Qty: 3, DiscountPct: dec("25"), TaxPct: dec("12")},
			wantGross:    "240",
			wantDiscount: "60",
			wantTax:      "21.6",
			wantTotal:    "201.6",
		},
		{
			name:         "fractional rounding",
			in:           LineInput{UnitPrice: dec("9.99"), Qty: 3, DiscountPct: dec("7.5"), TaxPct: dec("18")},
			wantGross:    "29.97",
			wantDiscount: "2.25",
			wantTax:      "4.99",
			wantTotal:    "32.71",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ComputeLine(tt.in)
			if err != nil {
				t.Fatalf("compute line: %v", err)
			}
			if !got.Gross.Equal(dec(tt.wantGross)) {
				t.Fatalf("gross: expected %s, got %s", tt.wantGross, got.Gross)
			}
			if !got.DiscountAmount.Equal(dec(tt.wantDiscount)) {
				t.Fatalf("discount: expected %s, got %s", tt.wantDiscount, got.DiscountAmount)
			}
			if !got.TaxAmount.Equal(dec(tt.wantTax)) {
				t.Fatalf("tax: expected %s, got %s", tt.wantTax, got.TaxAmount)
			}
			if !got.LineTotal.Equal(dec(tt.wantTotal)) {
				t.Fatalf("total: expected %s, got %s", tt.wantTotal, got.LineTotal)
			}
		})
	}
}

func TestComputeLineValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   LineInput
	}{
		{"zero qty", LineInput{UnitPrice: dec("10"), Qty: 0}},
		{"negative qty", LineInput{UnitPrice: dec("10"), Qty: -1}},
		{"negative price", LineInput{UnitPrice: dec("-1"), Qty: 1}},
		{"discount above 100", LineInput{UnitPrice: dec("10"), Qty: 1, DiscountPct: dec("101")}},
		{"negative tax", LineInput{UnitPrice: dec("10"), Qty: 1, TaxPct: dec("-5")}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ComputeLine(tt.in)
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestComputeTotalsExactPayment(t *testing.T) {
	t.Parallel()

	line, err := ComputeLine(LineInput{UnitPrice: dec("100"), Qty: 2, TaxPct: dec("5")})
	if err != nil {
		t.Fatalf("compute line: %v", err)
	}

	totals, err := ComputeTotals([]LineAmounts{line}, Charges{}, dec("210"))
	if err != nil {
		t.Fatalf("compute totals: %v", err)
	}
	if !totals.SubTotal.Equal(dec("200")) {
		t.Fatalf("subtotal: expected 200, got %s", totals.SubTotal)
	}
	if !totals.TaxAmount.Equal(dec("10")) {
		t.Fatalf("tax: expected 10, got %s", totals.TaxAmount)
	}
	if !totals.GrandTotal.Equal(dec("210")) {
		t.Fatalf("grand total: expected 210, got %s", totals.GrandTotal)
	}
	if !totals.ChangeAmount.Equal(decimal.Zero) {
		t.Fatalf("change: expected 0, got %s", totals.ChangeAmount)
	}
}

func TestComputeTotalsWithDoctorFeesAndChange(t *testing.T) {
	t.Parallel()

	line, err := ComputeLine(LineInput{UnitPrice: dec("50"), Qty: 1, DiscountPct: dec("10")})
	if err != nil {
		t.Fatalf("compute line: %v", err)
	}

	totals, err := ComputeTotals([]LineAmounts{line}, Charges{DoctorFees: dec("20")}, dec("100"))
	if err != nil {
		t.Fatalf("compute totals: %v", err)
	}
	if !totals.DiscountAmount.Equal(dec("5")) {
		t.Fatalf("discount: expected 5, got %s", totals.DiscountAmount)
	}
	if !totals.SubTotal.Equal(dec("45")) {
		t.Fatalf("subtotal: expected taxable 45, got %s", totals.SubTotal)
	}
	if !totals.GrandTotal.Equal(dec("65")) {
		t.Fatalf("grand total: expected 65, got %s", totals.GrandTotal)
	}
	if !totals.ChangeAmount.Equal(dec("35")) {
		t.Fatalf("change: expected 35, got %s", totals.ChangeAmount)
	}
}

func TestComputeTotalsGlobalDiscount(t *testing.T) {
	t.Parallel()

	line, err := ComputeLine(LineInput{UnitPrice: dec("100"), Qty: 1})
	if err != nil {
		t.Fatalf("compute line: %v", err)
	}

	totals, err := ComputeTotals([]LineAmounts{line}, Charges{GlobalDiscount: dec("30")}, dec("70"))
	if err != nil {
		t.Fatalf("compute totals: %v", err)
	}
	if !totals.GrandTotal.Equal(dec("70")) {
		t.Fatalf("grand total: expected 70, got %s", totals.GrandTotal)
	}
	if !totals.GlobalDiscount.Equal(dec("30")) {
		t.Fatalf("global discount: expected 30, got %s", totals.GlobalDiscount)
	}

	// A discount bigger than the whole bill makes no sense.
	if _, err := ComputeTotals([]LineAmounts{line}, Charges{GlobalDiscount: dec("101")}, dec("0")); err == nil {
		t.Fatal("expected error when the global discount exceeds the total")
	}
}

func TestComputeTotalsPartialPayment(t *testing.T) {
	t.Parallel()

	line, err := ComputeLine(LineInput{UnitPrice: dec("100"), Qty: 1})
	if err != nil {
		t.Fatalf("compute line: %v", err)
	}

	// Paying less than the grand total is a valid sale; change stays zero.
	totals, err := ComputeTotals([]LineAmounts{line}, Charges{}, dec("60"))
	if err != nil {
		t.Fatalf("compute totals: %v", err)
	}
	if !totals.GrandTotal.Equal(dec("100")) {
		t.Fatalf("grand total: expected 100, got %s", totals.GrandTotal)
	}
	if !totals.ChangeAmount.Equal(decimal.Zero) {
		t.Fatalf("change: expected 0, got %s", totals.ChangeAmount)
	}
}

func TestComputeTotalsValidation(t *testing.T) {
	t.Parallel()

	line, _ := ComputeLine(LineInput{UnitPrice: dec("10"), Qty: 1})

	if _, err := ComputeTotals(nil, Charges{}, decimal.Zero); err == nil {
		t.Fatal("expected error for empty lines")
	}
	if _, err := ComputeTotals([]LineAmounts{line}, Charges{OtherCharges: dec("-1")}, decimal.Zero); err == nil {
		t.Fatal("expected error for negative charges")
	}
	if _, err := ComputeTotals([]LineAmounts{line}, Charges{DoctorFees: dec("-1")}, decimal.Zero); err == nil {
		t.Fatal("expected error for negative doctor fees")
	}
	if _, err := ComputeTotals([]LineAmounts{line}, Charges{GlobalDiscount: dec("-1")}, decimal.Zero); err == nil {
		t.Fatal("expected error for negative global discount")
	}
	if _, err := ComputeTotals([]LineAmounts{line}, Charges{}, dec("-1")); err == nil {
		t.Fatal("expected error for negative paid amount")
	}
}
