package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgerrors "github.com/pharmadesk/pharmadesk-backend/pkg/errors"
)

// DailySummary is the end-of-day snapshot for a store.
type DailySummary struct {
	Day            string          `json:"day"`
	BillCount      int64           `json:"bill_count"`
	ItemsSold      int64           `json:"items_sold"`
	GrossSales     decimal.Decimal `json:"gross_sales"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
}

// DayBucket is one row of the sales-by-day report.
type DayBucket struct {
	Day        string          `json:"day"`
	BillCount  int64           `json:"bill_count"`
	GrossSales decimal.Decimal `json:"gross_sales"`
}

// TopProduct is one row of the best-sellers report.
type TopProduct struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	UnitsSold   int64           `json:"units_sold"`
	Revenue     decimal.Decimal `json:"revenue"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Daily aggregates the store's committed bills for one calendar day.
func (s *Service) Daily(ctx context.Context, storeID uuid.UUID, day time.Time) (*DailySummary, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	summary := DailySummary{Day: dayStart.Format("2006-01-02")}
	row := struct {
		BillCount      int64
		GrossSales     decimal.NullDecimal
		DiscountAmount decimal.NullDecimal
		TaxAmount      decimal.NullDecimal
	}{}

	err := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS bill_count,
		        SUM(grand_total) AS gross_sales,
		        SUM(discount_amount) AS discount_amount,
		        SUM(tax_amount) AS tax_amount
		 FROM bills
		 WHERE store_id = ? AND created_at >= ? AND created_at < ?`,
		storeID, dayStart, dayEnd,
	).Scan(&row).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregating daily bills")
	}

	summary.BillCount = row.BillCount
	summary.GrossSales = row.GrossSales.Decimal
	summary.DiscountAmount = row.DiscountAmount.Decimal
	summary.TaxAmount = row.TaxAmount.Decimal

	var itemsSold *int64
	err = s.db.WithContext(ctx).Raw(
		`SELECT SUM(li.quantity)
		 FROM bill_line_items li
		 JOIN bills b ON b.id = li.bill_id
		 WHERE b.store_id = ? AND b.created_at >= ? AND b.created_at < ?`,
		storeID, dayStart, dayEnd,
	).Scan(&itemsSold).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregating items sold")
	}
	if itemsSold != nil {
		summary.ItemsSold = *itemsSold
	}
	return &summary, nil
}

// SalesByDay buckets committed bills per calendar day over [from, to).
func (s *Service) SalesByDay(ctx context.Context, storeID uuid.UUID, from, to time.Time) ([]DayBucket, error) {
	if !to.After(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "'to' must be after 'from'")
	}

	var rows []DayBucket
	err := s.db.WithContext(ctx).Raw(
		`SELECT date(created_at) AS day,
		        COUNT(*) AS bill_count,
		        SUM(grand_total) AS gross_sales
		 FROM bills
		 WHERE store_id = ? AND created_at >= ? AND created_at < ?
		 GROUP BY date(created_at)
		 ORDER BY day ASC`,
		storeID, from.UTC(), to.UTC(),
	).Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregating sales by day")
	}
	return rows, nil
}

// TopProducts ranks products by units sold over [from, to).
func (s *Service) TopProducts(ctx context.Context, storeID uuid.UUID, from, to time.Time, limit int) ([]TopProduct, error) {
	if !to.After(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "'to' must be after 'from'")
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	var rows []TopProduct
	err := s.db.WithContext(ctx).Raw(
		`SELECT li.product_id AS product_id,
		        li.product_name AS product_name,
		        li.sku AS sku,
		        SUM(li.quantity) AS units_sold,
		        SUM(li.line_total) AS revenue
		 FROM bill_line_items li
		 JOIN bills b ON b.id = li.bill_id
		 WHERE b.store_id = ? AND b.created_at >= ? AND b.created_at < ?
		   AND li.product_id IS NOT NULL
		 GROUP BY li.product_id, li.product_name, li.sku
		 ORDER BY units_sold DESC
		 LIMIT ?`,
		storeID, from.UTC(), to.UTC(), limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregating top products")
	}
	return rows, nil
}
