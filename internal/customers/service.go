package customers

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pharmadesk/pharmadesk-backend/pkg/db/models"
	pkgerrors "github.com/pharmadesk/pharmadesk-backend/pkg/errors"
	"github.com/pharmadesk/pharmadesk-backend/pkg/pagination"
)

// CreateInput carries customer fields from the API layer.
type CreateInput struct {
	Name  string
	Phone *string
	Email *string
}

// UpdateInput carries the mutable customer fields.
type UpdateInput struct {
	Name  *string
	Phone *string
	Email *string
}

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, storeID uuid.UUID, in CreateInput) (*models.Customer, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}

	customer := &models.Customer{
		StoreID:        storeID,
		Name:           name,
		Phone:          in.Phone,
		Email:          in.Email,
		TotalPurchases: decimal.Zero,
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating customer")
	}
	return customer, nil
}

func (s *Service) Update(ctx context.Context, storeID, customerID uuid.UUID, in UpdateInput) (*models.Customer, error) {
	customer, err := s.repo.GetByID(ctx, storeID, customerID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name cannot be empty")
		}
		customer.Name = name
	}
	if in.Phone != nil {
		customer.Phone = in.Phone
	}
	if in.Email != nil {
		customer.Email = in.Email
	}

	if err := s.repo.Update(ctx, customer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating customer")
	}
	return customer, nil
}

func (s *Service) Get(ctx context.Context, storeID, customerID uuid.UUID) (*models.Customer, error) {
	return s.repo.GetByID(ctx, storeID, customerID)
}

func (s *Service) List(ctx context.Context, storeID uuid.UUID, search string, params pagination.Params) ([]models.Customer, string, error) {
	return s.repo.List(ctx, storeID, search, params)
}

// RecordPurchase participates in the checkout transaction; the amount joins
// the lifetime aggregate only if the whole sale commits.
func (s *Service) RecordPurchase(ctx context.Context, tx *gorm.DB, storeID, customerID uuid.UUID, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "purchase amount cannot be negative")
	}
	return s.repo.AddPurchase(ctx, tx, storeID, customerID, amount)
}
