package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pharmadesk/pharmadesk-backend/pkg/db/models"
	pkgerrors "github.com/pharmadesk/pharmadesk-backend/pkg/errors"
)

// Snapshot freezes the product facts read inside the checkout transaction.
// Line items are built from it, never from a later read of the product row.
type Snapshot struct {
	ProductID    uuid.UUID
	Name         string
	SKU          string
	CostPrice    decimal.Decimal
	SellingPrice decimal.Decimal
	MRP          decimal.Decimal
	TaxPct       decimal.Decimal
	DiscountPct  decimal.Decimal
	BatchNo      *string
	ExpiryDate   *time.Time
	Remaining    int
}

// InsufficientStockDetails is attached to INSUFFICIENT_STOCK errors so the
// till can show what is actually available.
type InsufficientStockDetails struct {
	ProductID uuid.UUID `json:"product_id"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// Ledger performs guarded stock movements. All methods take the caller's open
// transaction; the ledger itself never begins or commits one.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// ReserveAndDecrement atomically takes qty units off the product's quantity.
// The decrement and the availability check are a single conditional UPDATE so
// two concurrent checkouts can never both consume the last unit.
func (l *Ledger) ReserveAndDecrement(ctx context.Context, tx *gorm.DB, storeID, productID uuid.UUID, qty int) (*Snapshot, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if qty <= 0 {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity must be positive, got %d", qty)
	}

	res := tx.WithContext(ctx).Exec(
		`UPDATE products
		 SET quantity = quantity - ?, updated_at = ?
		 WHERE id = ? AND store_id = ? AND quantity >= ?`,
		qty, time.Now().UTC(), productID, storeID, qty,
	)
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "decrementing stock")
	}

	if res.RowsAffected == 0 {
		// Reload scoped to the store to tell a missing product apart from
		// one that simply ran out.
		var product models.Product
		err := tx.WithContext(ctx).
			Where("id = ? AND store_id = ?", productID, storeID).
			First(&product).Error
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", productID)
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
		}
		return nil, pkgerrors.Newf(pkgerrors.CodeInsufficientStock,
			"insufficient stock for %s: requested %d, available %d", product.Name, qty, product.Quantity).
			WithDetails(InsufficientStockDetails{
				ProductID: productID,
				Requested: qty,
				Available: product.Quantity,
			})
	}

	// The row is locked by the UPDATE above for the rest of the transaction,
	// so this read observes the post-decrement state.
	var product models.Product
	if err := tx.WithContext(ctx).
		Where("id = ? AND store_id = ?", productID, storeID).
		First(&product).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product snapshot")
	}

	return &Snapshot{
		ProductID:    product.ID,
		Name:         product.Name,
		SKU:          product.SKU,
		CostPrice:    product.CostPrice,
		SellingPrice: product.SellingPrice,
		MRP:          product.MRP,
		TaxPct:       product.TaxPct,
		DiscountPct:  product.DiscountPct,
		BatchNo:      product.BatchNo,
		ExpiryDate:   product.ExpiryDate,
		Remaining:    product.Quantity,
	}, nil
}

// Restock adds qty units back. Used by stock adjustments, not by checkout;
// checkout failures roll the decrement back with the transaction.
func (l *Ledger) Restock(ctx context.Context, tx *gorm.DB, storeID, productID uuid.UUID, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if qty <= 0 {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "quantity must be positive, got %d", qty)
	}

	res := tx.WithContext(ctx).Exec(
		`UPDATE products
		 SET quantity = quantity + ?, updated_at = ?
		 WHERE id = ? AND store_id = ?`,
		qty, time.Now().UTC(), productID, storeID,
	)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "restocking")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", productID)
	}
	return nil
}
