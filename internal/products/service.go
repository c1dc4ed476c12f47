package products

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pharmadesk/pharmadesk-backend/internal/inventory"
	dbpkg "github.com/pharmadesk/pharmadesk-backend/pkg/db"
	"github.com/pharmadesk/pharmadesk-backend/pkg/db/models"
	pkgerrors "github.com/pharmadesk/pharmadesk-backend/pkg/errors"
	"github.com/pharmadesk/pharmadesk-backend/pkg/pagination"
)

// DefaultLowStockThreshold applies when the caller does not supply one.
const DefaultLowStockThreshold = 10

// DefaultNearExpiryWindow is how far ahead the expiry report looks.
const DefaultNearExpiryWindow = 90 * 24 * time.Hour

// CreateInput carries new product fields from the API layer.
type CreateInput struct {
	Name         string
	SKU          string
	Quantity     int
	CostPrice    decimal.Decimal
	SellingPrice decimal.Decimal
	MRP          decimal.Decimal
	TaxPct       decimal.Decimal
	DiscountPct  decimal.Decimal
	BatchNo      *string
	ExpiryDate   *time.Time
}

// UpdateInput carries the mutable product fields. Quantity is deliberately
// absent; stock moves only through AdjustStock and checkout.
type UpdateInput struct {
	Name         *string
	SellingPrice *decimal.Decimal
	CostPrice    *decimal.Decimal
	MRP          *decimal.Decimal
	TaxPct       *decimal.Decimal
	DiscountPct  *decimal.Decimal
	BatchNo      *string
	ExpiryDate   *time.Time
}

type Service struct {
	client *dbpkg.Client
	repo   *Repository
	ledger *inventory.Ledger
}

func NewService(client *dbpkg.Client, repo *Repository, ledger *inventory.Ledger) *Service {
	return &Service{client: client, repo: repo, ledger: ledger}
}

func (s *Service) Create(ctx context.Context, storeID uuid.UUID, in CreateInput) (*models.Product, error) {
	name := strings.TrimSpace(in.Name)
	sku := strings.TrimSpace(in.SKU)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product sku is required")
	}
	if in.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if in.SellingPrice.IsNegative() || in.CostPrice.IsNegative() || in.MRP.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prices cannot be negative")
	}

	product := &models.Product{
		StoreID:      storeID,
		Name:         name,
		SKU:          sku,
		Quantity:     in.Quantity,
		CostPrice:    in.CostPrice,
		SellingPrice: in.SellingPrice,
		MRP:          in.MRP,
		TaxPct:       in.TaxPct,
		DiscountPct:  in.DiscountPct,
		BatchNo:      in.BatchNo,
		ExpiryDate:   in.ExpiryDate,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		if dbpkg.IsUniqueViolation(err, "idx_products_store_sku") {
			return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "sku %s already exists in this store", sku)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating product")
	}
	return product, nil
}

func (s *Service) Update(ctx context.Context, storeID, productID uuid.UUID, in UpdateInput) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, storeID, productID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be empty")
		}
		product.Name = name
	}
	if in.SellingPrice != nil {
		if in.SellingPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "selling price cannot be negative")
		}
		product.SellingPrice = *in.SellingPrice
	}
	if in.CostPrice != nil {
		if in.CostPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost price cannot be negative")
		}
		product.CostPrice = *in.CostPrice
	}
	if in.MRP != nil {
		product.MRP = *in.MRP
	}
	if in.TaxPct != nil {
		product.TaxPct = *in.TaxPct
	}
	if in.DiscountPct != nil {
		product.DiscountPct = *in.DiscountPct
	}
	if in.BatchNo != nil {
		product.BatchNo = in.BatchNo
	}
	if in.ExpiryDate != nil {
		product.ExpiryDate = in.ExpiryDate
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating product")
	}
	return product, nil
}

func (s *Service) Get(ctx context.Context, storeID, productID uuid.UUID) (*models.Product, error) {
	return s.repo.GetByID(ctx, storeID, productID)
}

func (s *Service) List(ctx context.Context, storeID uuid.UUID, search string, params pagination.Params) ([]models.Product, string, error) {
	return s.repo.List(ctx, storeID, search, params)
}

// AdjustStock moves quantity by delta. Negative deltas run through the same
// guarded decrement as checkout, so an adjustment can never drive stock below
// zero even against concurrent sales.
func (s *Service) AdjustStock(ctx context.Context, storeID, productID uuid.UUID, delta int) (*models.Product, error) {
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta cannot be zero")
	}

	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if delta > 0 {
			return s.ledger.Restock(ctx, tx, storeID, productID, delta)
		}
		_, err := s.ledger.ReserveAndDecrement(ctx, tx, storeID, productID, -delta)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, storeID, productID)
}

func (s *Service) LowStock(ctx context.Context, storeID uuid.UUID, threshold int) ([]models.Product, error) {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return s.repo.LowStock(ctx, storeID, threshold)
}

func (s *Service) NearExpiry(ctx context.Context, storeID uuid.UUID, window time.Duration) ([]models.Product, error) {
	if window <= 0 {
		window = DefaultNearExpiryWindow
	}
	return s.repo.NearExpiry(ctx, storeID, time.Now().UTC().Add(window))
}
