package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a stock keeping unit within a store. Quantity is only ever
// mutated through guarded conditional updates; it must never go negative.
type Product struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	StoreID      uuid.UUID       `gorm:"column:store_id;type:uuid;not null;index;uniqueIndex:idx_products_store_sku"`
	Name         string          `gorm:"column:name;not null"`
	SKU          string          `gorm:"column:sku;not null;uniqueIndex:idx_products_store_sku"`
	Quantity     int             `gorm:"column:quantity;not null;default:0"`
	CostPrice    decimal.Decimal `gorm:"column:cost_price;type:numeric(12,2);not null;default:0"`
	SellingPrice decimal.Decimal `gorm:"column:selling_price;type:numeric(12,2);not null;default:0"`
	MRP          decimal.Decimal `gorm:"column:mrp;type:numeric(12,2);not null;default:0"`
	TaxPct       decimal.Decimal `gorm:"column:tax_pct;type:numeric(5,2);not null;default:0"`
	DiscountPct  decimal.Decimal `gorm:"column:discount_pct;type:numeric(5,2);not null;default:0"`
	BatchNo      *string         `gorm:"column:batch_no"`
	ExpiryDate   *time.Time      `gorm:"column:expiry_date"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
