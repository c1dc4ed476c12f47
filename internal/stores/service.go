package stores

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/pharmadesk/pharmadesk-backend/pkg/db/models"
	pkgerrors "github.com/pharmadesk/pharmadesk-backend/pkg/errors"
)

// UpdateInput carries the mutable store profile fields.
type UpdateInput struct {
	Name      *string
	LicenseNo *string
	Phone     *string
	Email     *string
	Address   *string
}

// Profile bundles the store with its subscription state for the settings page.
type Profile struct {
	Store        *models.Store
	Subscription *models.Subscription
}

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetProfile(ctx context.Context, storeID uuid.UUID) (*Profile, error) {
	store, err := s.repo.GetByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	sub, err := s.repo.GetSubscription(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return &Profile{Store: store, Subscription: sub}, nil
}

func (s *Service) UpdateProfile(ctx context.Context, storeID uuid.UUID, in UpdateInput) (*models.Store, error) {
	store, err := s.repo.GetByID(ctx, storeID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "store name cannot be empty")
		}
		store.Name = name
	}
	if in.LicenseNo != nil {
		store.LicenseNo = in.LicenseNo
	}
	if in.Phone != nil {
		store.Phone = in.Phone
	}
	if in.Email != nil {
		store.Email = in.Email
	}
	if in.Address != nil {
		store.Address = in.Address
	}

	if err := s.repo.Update(ctx, store); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating store")
	}
	return store, nil
}
