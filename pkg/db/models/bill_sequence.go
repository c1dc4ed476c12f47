package models

import "github.com/google/uuid"

// BillSequence backs bill number generation. One row per store and period,
// bumped with an upsert inside the checkout transaction so numbers are gapless
// per committed bill and unique per store.
type BillSequence struct {
	StoreID uuid.UUID `gorm:"column:store_id;type:uuid;primaryKey"`
	Period  string    `gorm:"column:period;primaryKey"`
	Counter int64     `gorm:"column:counter;not null;default:0"`
}

func (BillSequence) TableName() string { return "bill_sequences" }
