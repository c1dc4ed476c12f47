package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/pharmadesk/pharmadesk-backend/pkg/errors"
)

const billNoPrefix = "INV"

// SequenceGenerator issues bill numbers of the form INV-YYYYMMDD-NNNN, unique
// per store. The counter row is bumped inside the checkout transaction, so a
// rolled back checkout never burns a number that a committed bill skipped.
type SequenceGenerator struct{}

func NewSequenceGenerator() *SequenceGenerator {
	return &SequenceGenerator{}
}

// Next reserves the next bill number for the store within tx. Concurrent
// transactions serialize on the counter row; the second one blocks until the
// first commits or rolls back.
func (g *SequenceGenerator) Next(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, at time.Time) (string, error) {
	if tx == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}

	period := at.UTC().Format("20060102")

	res := tx.WithContext(ctx).Exec(
		`INSERT INTO bill_sequences (store_id, period, counter)
		 VALUES (?, ?, 1)
		 ON CONFLICT (store_id, period) DO UPDATE SET counter = bill_sequences.counter + 1`,
		storeID, period,
	)
	if res.Error != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "bumping bill sequence")
	}

	var counter int64
	err := tx.WithContext(ctx).
		Raw(`SELECT counter FROM bill_sequences WHERE store_id = ? AND period = ?`, storeID, period).
		Scan(&counter).Error
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading bill sequence")
	}

	return fmt.Sprintf("%s-%s-%04d", billNoPrefix, period, counter), nil
}
