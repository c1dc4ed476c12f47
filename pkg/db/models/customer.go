package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Customer is the optional counterparty of a bill. TotalPurchases is a
// lifetime aggregate incremented atomically at checkout, never decremented.
type Customer struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	StoreID        uuid.UUID       `gorm:"column:store_id;type:uuid;not null;index"`
	Name           string          `gorm:"column:name;not null"`
	Phone          *string         `gorm:"column:phone"`
	Email          *string         `gorm:"column:email"`
	TotalPurchases decimal.Decimal `gorm:"column:total_purchases;type:numeric(14,2);not null;default:0"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
