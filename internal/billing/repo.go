package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pharmadesk/pharmadesk-backend/pkg/db/models"
	pkgerrors "github.com/pharmadesk/pharmadesk-backend/pkg/errors"
	"github.com/pharmadesk/pharmadesk-backend/pkg/pagination"
)

// Repository persists bills. Write paths always run on the caller's open
// transaction; reads use the shared connection.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateBill inserts the bill and its line items in one shot.
func (r *Repository) CreateBill(tx *gorm.DB, bill *models.Bill) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(bill).Error
}

// GetByID loads a bill with its line items, scoped to the store.
func (r *Repository) GetByID(ctx context.Context, storeID, billID uuid.UUID) (*models.Bill, error) {
	var bill models.Bill
	err := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("id = ? AND store_id = ?", billID, storeID).
		First(&bill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "bill %s not found", billID)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading bill")
	}
	return &bill, nil
}

// GetByBillNo resolves a bill by its human-facing number.
func (r *Repository) GetByBillNo(ctx context.Context, storeID uuid.UUID, billNo string) (*models.Bill, error) {
	var bill models.Bill
	err := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("store_id = ? AND bill_no = ?", storeID, billNo).
		First(&bill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "bill %s not found", billNo)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading bill")
	}
	return &bill, nil
}

// List pages bills newest-first using a created_at/id cursor.
func (r *Repository) List(ctx context.Context, storeID uuid.UUID, params pagination.Params, filters ListFilters) ([]models.Bill, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit + 1)

	if filters.CustomerID != nil {
		query = query.Where("customer_id = ?", *filters.CustomerID)
	}
	if filters.From != nil {
		query = query.Where("created_at >= ?", time.Unix(*filters.From, 0).UTC())
	}
	if filters.To != nil {
		query = query.Where("created_at < ?", time.Unix(*filters.To, 0).UTC())
	}
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Bill
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing bills")
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}
