package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BillLineItem freezes the product facts at the moment of sale. Later edits
// to the product row never touch these columns. ProductID, CostPrice, BatchNo
// and ExpiryDate are nil for ad-hoc lines that never existed in inventory.
type BillLineItem struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	BillID      uuid.UUID        `gorm:"column:bill_id;type:uuid;not null;index"`
	ProductID   *uuid.UUID       `gorm:"column:product_id;type:uuid"`
	ProductName string           `gorm:"column:product_name;not null"`
	SKU         string           `gorm:"column:sku"`
	BatchNo     *string          `gorm:"column:batch_no"`
	ExpiryDate  *time.Time       `gorm:"column:expiry_date"`
	Quantity    int              `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal  `gorm:"column:unit_price;type:numeric(12,2);not null"`
	CostPrice   *decimal.Decimal `gorm:"column:cost_price;type:numeric(12,2)"`
	DiscountPct decimal.Decimal  `gorm:"column:discount_pct;type:numeric(5,2);not null;default:0"`
	TaxPct      decimal.Decimal  `gorm:"column:tax_pct;type:numeric(5,2);not null;default:0"`
	TaxAmount   decimal.Decimal  `gorm:"column:tax_amount;type:numeric(12,2);not null;default:0"`
	LineTotal   decimal.Decimal  `gorm:"column:line_total;type:numeric(12,2);not null"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
}

func (li *BillLineItem) BeforeCreate(*gorm.DB) error {
	if li.ID == uuid.Nil {
		li.ID = uuid.New()
	}
	return nil
}
