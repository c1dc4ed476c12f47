package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
)

// Bill is the immutable record of a completed sale. Rows are never updated
// after the checkout transaction commits; corrections go on new bills.
type Bill struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	StoreID        uuid.UUID           `gorm:"column:store_id;type:uuid;not null;index;uniqueIndex:idx_bills_store_bill_no"`
	BillNo         string              `gorm:"column:bill_no;not null;uniqueIndex:idx_bills_store_bill_no"`
	CustomerID     *uuid.UUID          `gorm:"column:customer_id;type:uuid;index"`
	BillerID       uuid.UUID           `gorm:"column:biller_id;type:uuid;not null"`
	Status         enums.BillStatus    `gorm:"column:status;not null;default:'completed'"`
	PaymentMethod  enums.PaymentMethod `gorm:"column:payment_method;not null"`
	SubTotal       decimal.Decimal     `gorm:"column:sub_total;type:numeric(12,2);not null;default:0"`
	DiscountAmount decimal.Decimal     `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	TaxAmount      decimal.Decimal     `gorm:"column:tax_amount;type:numeric(12,2);not null;default:0"`
	GlobalDiscount decimal.Decimal     `gorm:"column:global_discount;type:numeric(12,2);not null;default:0"`
	DoctorFees     decimal.Decimal     `gorm:"column:doctor_fees;type:numeric(12,2);not null;default:0"`
	OtherCharges   decimal.Decimal     `gorm:"column:other_charges;type:numeric(12,2);not null;default:0"`
	GrandTotal     decimal.Decimal     `gorm:"column:grand_total;type:numeric(12,2);not null;default:0"`
	PaidAmount     decimal.Decimal     `gorm:"column:paid_amount;type:numeric(12,2);not null;default:0"`
	ChangeAmount   decimal.Decimal     `gorm:"column:change_amount;type:numeric(12,2);not null;default:0"`
	DoctorName     *string             `gorm:"column:doctor_name"`
	Notes          *string             `gorm:"column:notes"`
	LineItems      []BillLineItem      `gorm:"foreignKey:BillID"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime;index"`
}

func (b *Bill) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
