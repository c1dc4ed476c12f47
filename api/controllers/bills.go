package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pharmadesk/pharmadesk-backend/api/responses"
	"github.com/pharmadesk/pharmadesk-backend/api/validators"
	"github.com/pharmadesk/pharmadesk-backend/internal/billing"
	"github.com/pharmadesk/pharmadesk-backend/internal/quota"
	"github.com/pharmadesk/pharmadesk-backend/pkg/db/models"
	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
	pkgerrors "github.com/pharmadesk/pharmadesk-backend/pkg/errors"
	"github.com/pharmadesk/pharmadesk-backend/pkg/logger"
)

// A line either references a product (inventory-backed) or supplies name and
// unit price directly (ad-hoc, never decrements stock).
type checkoutLineRequest struct {
	ProductID   *string `json:"product_id,omitempty" validate:"omitempty,uuid"`
	Name        string  `json:"name,omitempty"`
	SKU         string  `json:"sku,omitempty"`
	Qty         int     `json:"qty" validate:"required,gt=0"`
	UnitPrice   *string `json:"unit_price,omitempty"`
	DiscountPct *string `json:"discount_pct,omitempty"`
	TaxPct      *string `json:"tax_pct,omitempty"`
}

type checkoutRequest struct {
	CustomerID     *string               `json:"customer_id,omitempty" validate:"omitempty,uuid"`
	PaymentMethod  string                `json:"payment_method" validate:"required,oneof=cash card upi"`
	GlobalDiscount *string               `json:"global_discount,omitempty"`
	DoctorFees     *string               `json:"doctor_fees,omitempty"`
	OtherCharges   *string               `json:"other_charges,omitempty"`
	PaidAmount     string                `json:"paid_amount" validate:"required"`
	DoctorName     *string               `json:"doctor_name,omitempty"`
	Notes          *string               `json:"notes,omitempty"`
	Lines          []checkoutLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (req checkoutRequest) toInput(billerID uuid.UUID) (billing.CheckoutInput, error) {
	in := billing.CheckoutInput{
		BillerID:      billerID,
		PaymentMethod: enums.PaymentMethod(req.PaymentMethod),
	}

	if req.CustomerID != nil {
		id, err := pathUUID(*req.CustomerID, "customer id")
		if err != nil {
			return billing.CheckoutInput{}, err
		}
		in.CustomerID = &id
	}

	paid, err := parseDecimal(req.PaidAmount, "paid amount")
	if err != nil {
		return billing.CheckoutInput{}, err
	}
	in.PaidAmount = paid

	in.GlobalDiscount = decimal.Zero
	if req.GlobalDiscount != nil {
		discount, err := parseDecimal(*req.GlobalDiscount, "global discount")
		if err != nil {
			return billing.CheckoutInput{}, err
		}
		in.GlobalDiscount = discount
	}

	in.DoctorFees = decimal.Zero
	if req.DoctorFees != nil {
		fees, err := parseDecimal(*req.DoctorFees, "doctor fees")
		if err != nil {
			return billing.CheckoutInput{}, err
		}
		in.DoctorFees = fees
	}

	in.OtherCharges = decimal.Zero
	if req.OtherCharges != nil {
		charges, err := parseDecimal(*req.OtherCharges, "other charges")
		if err != nil {
			return billing.CheckoutInput{}, err
		}
		in.OtherCharges = charges
	}

	in.DoctorName = req.DoctorName
	in.Notes = req.Notes

	in.Lines = make([]billing.CheckoutLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		var productID *uuid.UUID
		if line.ProductID != nil {
			id, err := pathUUID(*line.ProductID, "product id")
			if err != nil {
				return billing.CheckoutInput{}, err
			}
			productID = &id
		}
		unitPrice, err := parseOptionalDecimal(line.UnitPrice, "unit price")
		if err != nil {
			return billing.CheckoutInput{}, err
		}
		discountPct, err := parseOptionalDecimal(line.DiscountPct, "discount pct")
		if err != nil {
			return billing.CheckoutInput{}, err
		}
		taxPct, err := parseOptionalDecimal(line.TaxPct, "tax pct")
		if err != nil {
			return billing.CheckoutInput{}, err
		}
		in.Lines = append(in.Lines, billing.CheckoutLine{
			ProductID:   productID,
			Name:        line.Name,
			SKU:         line.SKU,
			Qty:         line.Qty,
			UnitPrice:   unitPrice,
			DiscountPct: discountPct,
			TaxPct:      taxPct,
		})
	}
	return in, nil
}

type billLineResponse struct {
	ProductID   *uuid.UUID      `json:"product_id,omitempty"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku,omitempty"`
	BatchNo     *string         `json:"batch_no,omitempty"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	TaxPct      decimal.Decimal `json:"tax_pct"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type billResponse struct {
	ID             uuid.UUID          `json:"id"`
	BillNo         string             `json:"bill_no"`
	CustomerID     *uuid.UUID         `json:"customer_id,omitempty"`
	BillerID       uuid.UUID          `json:"biller_id"`
	Status         string             `json:"status"`
	PaymentMethod  string             `json:"payment_method"`
	SubTotal       decimal.Decimal    `json:"sub_total"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	TaxAmount      decimal.Decimal    `json:"tax_amount"`
	GlobalDiscount decimal.Decimal    `json:"global_discount"`
	DoctorFees     decimal.Decimal    `json:"doctor_fees"`
	OtherCharges   decimal.Decimal    `json:"other_charges"`
	GrandTotal     decimal.Decimal    `json:"grand_total"`
	PaidAmount     decimal.Decimal    `json:"paid_amount"`
	ChangeAmount   decimal.Decimal    `json:"change_amount"`
	DoctorName     *string            `json:"doctor_name,omitempty"`
	Notes          *string            `json:"notes,omitempty"`
	Lines          []billLineResponse `json:"lines"`
	CreatedAt      time.Time          `json:"created_at"`
}

func toBillResponse(bill *models.Bill) billResponse {
	lines := make([]billLineResponse, 0, len(bill.LineItems))
	for _, item := range bill.LineItems {
		lines = append(lines, billLineResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			SKU:         item.SKU,
			BatchNo:     item.BatchNo,
			ExpiryDate:  item.ExpiryDate,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			DiscountPct: item.DiscountPct,
			TaxPct:      item.TaxPct,
			TaxAmount:   item.TaxAmount,
			LineTotal:   item.LineTotal,
		})
	}
	return billResponse{
		ID:             bill.ID,
		BillNo:         bill.BillNo,
		CustomerID:     bill.CustomerID,
		BillerID:       bill.BillerID,
		Status:         string(bill.Status),
		PaymentMethod:  string(bill.PaymentMethod),
		SubTotal:       bill.SubTotal,
		DiscountAmount: bill.DiscountAmount,
		TaxAmount:      bill.TaxAmount,
		GlobalDiscount: bill.GlobalDiscount,
		DoctorFees:     bill.DoctorFees,
		OtherCharges:   bill.OtherCharges,
		GrandTotal:     bill.GrandTotal,
		PaidAmount:     bill.PaidAmount,
		ChangeAmount:   bill.ChangeAmount,
		DoctorName:     bill.DoctorName,
		Notes:          bill.Notes,
		Lines:          lines,
		CreatedAt:      bill.CreatedAt,
	}
}

type billListResponse struct {
	Bills      []billResponse `json:"bills"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// Checkout completes a sale for the active store. The quota gate is consulted
// before the transaction and charged only after it commits.
func Checkout(engine *billing.Engine, gate *quota.Gate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing engine unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		now := time.Now()
		if gate != nil {
			if err := gate.Allow(r.Context(), storeID, now); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		bill, err := engine.Checkout(r.Context(), storeID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if gate != nil {
			gate.Commit(r.Context(), storeID, now)
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toBillResponse(bill))
	}
}

// BillDetail loads one bill with its lines.
func BillDetail(engine *billing.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing engine unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		billID, err := pathUUID(chi.URLParam(r, "billId"), "bill id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bill, err := engine.GetBill(r.Context(), storeID, billID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toBillResponse(bill))
	}
}

// BillList pages the store's bills newest-first.
func BillList(engine *billing.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing engine unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := billing.ListFilters{}
		if raw := r.URL.Query().Get("customer_id"); raw != "" {
			id, err := pathUUID(raw, "customer id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			filters.CustomerID = &id
		}
		if raw := r.URL.Query().Get("from"); raw != "" {
			ts, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from"))
				return
			}
			filters.From = &ts
		}
		if raw := r.URL.Query().Get("to"); raw != "" {
			ts, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid to"))
				return
			}
			filters.To = &ts
		}

		bills, nextCursor, err := engine.ListBills(r.Context(), storeID, queryPagination(r), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := billListResponse{Bills: make([]billResponse, 0, len(bills)), NextCursor: nextCursor}
		for i := range bills {
			payload.Bills = append(payload.Bills, toBillResponse(&bills[i]))
		}
		responses.WriteSuccess(w, payload)
	}
}
