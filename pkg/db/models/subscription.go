package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
)

// Subscription links a store to its plan. The quota gate reads it; nothing in
// the checkout core writes it.
type Subscription struct {
	ID               uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	StoreID          uuid.UUID                `gorm:"column:store_id;type:uuid;not null;uniqueIndex"`
	PlanID           string                   `gorm:"column:plan_id;not null"`
	Status           enums.SubscriptionStatus `gorm:"column:status;not null;default:'trial'"`
	CurrentPeriodEnd *time.Time               `gorm:"column:current_period_end"`
	Plan             *Plan                    `gorm:"foreignKey:PlanID"`
	CreatedAt        time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Subscription) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
