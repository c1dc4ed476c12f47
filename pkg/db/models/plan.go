package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan captures the limits a subscription tier grants.
type Plan struct {
	ID             string          `gorm:"column:id;primaryKey"`
	Name           string          `gorm:"column:name;not null"`
	Price          decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null;default:0"`
	DailyBillLimit int             `gorm:"column:daily_bill_limit;not null;default:0"`
	ProductLimit   int             `gorm:"column:product_limit;not null;default:0"`
	IsDefault      bool            `gorm:"column:is_default;not null;default:false"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
