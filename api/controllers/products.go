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
	productsvc "github.com/pharmadesk/pharmadesk-backend/internal/products"
	"github.com/pharmadesk/pharmadesk-backend/pkg/db/models"
	pkgerrors "github.com/pharmadesk/pharmadesk-backend/pkg/errors"
	"github.com/pharmadesk/pharmadesk-backend/pkg/logger"
)

type createProductRequest struct {
	Name         string  `json:"name" validate:"required,min=1"`
	SKU          string  `json:"sku" validate:"required,min=1"`
	Quantity     int     `json:"quantity" validate:"min=0"`
	CostPrice    string  `json:"cost_price" validate:"required"`
	SellingPrice string  `json:"selling_price" validate:"required"`
	MRP          *string `json:"mrp,omitempty"`
	TaxPct       *string `json:"tax_pct,omitempty"`
	DiscountPct  *string `json:"discount_pct,omitempty"`
	BatchNo      *string `json:"batch_no,omitempty"`
	ExpiryDate   *string `json:"expiry_date,omitempty"`
}

func (req createProductRequest) toInput() (productsvc.CreateInput, error) {
	in := productsvc.CreateInput{
		Name:     req.Name,
		SKU:      req.SKU,
		Quantity: req.Quantity,
		BatchNo:  req.BatchNo,
	}

	var err error
	if in.CostPrice, err = parseDecimal(req.CostPrice, "cost price"); err != nil {
		return productsvc.CreateInput{}, err
	}
	if in.SellingPrice, err = parseDecimal(req.SellingPrice, "selling price"); err != nil {
		return productsvc.CreateInput{}, err
	}

	in.MRP = in.SellingPrice
	if req.MRP != nil {
		if in.MRP, err = parseDecimal(*req.MRP, "mrp"); err != nil {
			return productsvc.CreateInput{}, err
		}
	}
	in.TaxPct = decimal.Zero
	if req.TaxPct != nil {
		if in.TaxPct, err = parseDecimal(*req.TaxPct, "tax pct"); err != nil {
			return productsvc.CreateInput{}, err
		}
	}
	in.DiscountPct = decimal.Zero
	if req.DiscountPct != nil {
		if in.DiscountPct, err = parseDecimal(*req.DiscountPct, "discount pct"); err != nil {
			return productsvc.CreateInput{}, err
		}
	}

	if req.ExpiryDate != nil {
		expiry, parseErr := time.Parse("2006-01-02", *req.ExpiryDate)
		if parseErr != nil {
			return productsvc.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid expiry date, expected YYYY-MM-DD")
		}
		in.ExpiryDate = &expiry
	}
	return in, nil
}

type updateProductRequest struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,min=1"`
	CostPrice    *string `json:"cost_price,omitempty"`
	SellingPrice *string `json:"selling_price,omitempty"`
	MRP          *string `json:"mrp,omitempty"`
	TaxPct       *string `json:"tax_pct,omitempty"`
	DiscountPct  *string `json:"discount_pct,omitempty"`
	BatchNo      *string `json:"batch_no,omitempty"`
	ExpiryDate   *string `json:"expiry_date,omitempty"`
}

func (req updateProductRequest) toInput() (productsvc.UpdateInput, error) {
	in := productsvc.UpdateInput{
		Name:    req.Name,
		BatchNo: req.BatchNo,
	}

	var err error
	if in.CostPrice, err = parseOptionalDecimal(req.CostPrice, "cost price"); err != nil {
		return productsvc.UpdateInput{}, err
	}
	if in.SellingPrice, err = parseOptionalDecimal(req.SellingPrice, "selling price"); err != nil {
		return productsvc.UpdateInput{}, err
	}
	if in.MRP, err = parseOptionalDecimal(req.MRP, "mrp"); err != nil {
		return productsvc.UpdateInput{}, err
	}
	if in.TaxPct, err = parseOptionalDecimal(req.TaxPct, "tax pct"); err != nil {
		return productsvc.UpdateInput{}, err
	}
	if in.DiscountPct, err = parseOptionalDecimal(req.DiscountPct, "discount pct"); err != nil {
		return productsvc.UpdateInput{}, err
	}

	if req.ExpiryDate != nil {
		expiry, parseErr := time.Parse("2006-01-02", *req.ExpiryDate)
		if parseErr != nil {
			return productsvc.UpdateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid expiry date, expected YYYY-MM-DD")
		}
		in.ExpiryDate = &expiry
	}
	return in, nil
}

type adjustStockRequest struct {
	Delta int `json:"delta" validate:"required"`
}

type productResponse struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	Quantity     int             `json:"quantity"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	MRP          decimal.Decimal `json:"mrp"`
	TaxPct       decimal.Decimal `json:"tax_pct"`
	DiscountPct  decimal.Decimal `json:"discount_pct"`
	BatchNo      *string         `json:"batch_no,omitempty"`
	ExpiryDate   *time.Time      `json:"expiry_date,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func toProductResponse(p *models.Product) productResponse {
	return productResponse{
		ID:           p.ID,
		Name:         p.Name,
		SKU:          p.SKU,
		Quantity:     p.Quantity,
		CostPrice:    p.CostPrice,
		SellingPrice: p.SellingPrice,
		MRP:          p.MRP,
		TaxPct:       p.TaxPct,
		DiscountPct:  p.DiscountPct,
		BatchNo:      p.BatchNo,
		ExpiryDate:   p.ExpiryDate,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toProductResponses(products []models.Product) []productResponse {
	out := make([]productResponse, 0, len(products))
	for i := range products {
		out = append(out, toProductResponse(&products[i]))
	}
	return out
}

type productListResponse struct {
	Products   []productResponse `json:"products"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// ProductCreate adds a product to the active store's catalog.
func ProductCreate(svc *productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), storeID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toProductResponse(product))
	}
}

// ProductUpdate adjusts the mutable catalog fields. Stock is excluded; it
// only moves through the stock endpoint and checkout.
func ProductUpdate(svc *productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := pathUUID(chi.URLParam(r, "productId"), "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), storeID, productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toProductResponse(product))
	}
}

// ProductDetail loads one product.
func ProductDetail(svc *productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := pathUUID(chi.URLParam(r, "productId"), "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Get(r.Context(), storeID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toProductResponse(product))
	}
}

// ProductList pages the catalog, optionally filtered by a name/sku search.
func ProductList(svc *productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		products, nextCursor, err := svc.List(r.Context(), storeID, r.URL.Query().Get("search"), queryPagination(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, productListResponse{
			Products:   toProductResponses(products),
			NextCursor: nextCursor,
		})
	}
}

// ProductAdjustStock moves quantity by a signed delta.
func ProductAdjustStock(svc *productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := pathUUID(chi.URLParam(r, "productId"), "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adjustStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.AdjustStock(r.Context(), storeID, productID, payload.Delta)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toProductResponse(product))
	}
}

// ProductLowStock lists products at or below the given quantity threshold.
func ProductLowStock(svc *productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		threshold := 0
		if raw := r.URL.Query().Get("threshold"); raw != "" {
			parsed, parseErr := strconv.Atoi(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid threshold"))
				return
			}
			threshold = parsed
		}

		products, err := svc.LowStock(r.Context(), storeID, threshold)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"products": toProductResponses(products)})
	}
}

// ProductNearExpiry lists products expiring within the given number of days.
func ProductNearExpiry(svc *productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var window time.Duration
		if raw := r.URL.Query().Get("days"); raw != "" {
			days, parseErr := strconv.Atoi(raw)
			if parseErr != nil || days <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "days must be a positive integer"))
				return
			}
			window = time.Duration(days) * 24 * time.Hour
		}

		products, err := svc.NearExpiry(r.Context(), storeID, window)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"products": toProductResponses(products)})
	}
}
