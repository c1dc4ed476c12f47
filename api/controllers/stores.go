package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pharmadesk/pharmadesk-backend/api/responses"
	"github.com/pharmadesk/pharmadesk-backend/api/validators"
	storesvc "github.com/pharmadesk/pharmadesk-backend/internal/stores"
	"github.com/pharmadesk/pharmadesk-backend/pkg/db/models"
	pkgerrors "github.com/pharmadesk/pharmadesk-backend/pkg/errors"
	"github.com/pharmadesk/pharmadesk-backend/pkg/logger"
)

type storeUpdateRequest struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,min=1"`
	LicenseNo *string `json:"license_no,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Address   *string `json:"address,omitempty"`
}

type storeResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	LicenseNo *string   `json:"license_no,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Address   *string   `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type subscriptionResponse struct {
	PlanID           string     `json:"plan_id"`
	PlanName         string     `json:"plan_name,omitempty"`
	Status           string     `json:"status"`
	DailyBillLimit   int        `json:"daily_bill_limit"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
}

type storeProfileResponse struct {
	Store        storeResponse         `json:"store"`
	Subscription *subscriptionResponse `json:"subscription,omitempty"`
}

func toStoreResponse(s *models.Store) storeResponse {
	return storeResponse{
		ID:        s.ID,
		Name:      s.Name,
		LicenseNo: s.LicenseNo,
		Phone:     s.Phone,
		Email:     s.Email,
		Address:   s.Address,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toProfileResponse(p *storesvc.Profile) storeProfileResponse {
	out := storeProfileResponse{Store: toStoreResponse(p.Store)}
	if p.Subscription != nil {
		sub := subscriptionResponse{
			PlanID:           p.Subscription.PlanID,
			Status:           string(p.Subscription.Status),
			CurrentPeriodEnd: p.Subscription.CurrentPeriodEnd,
		}
		if p.Subscription.Plan != nil {
			sub.PlanName = p.Subscription.Plan.Name
			sub.DailyBillLimit = p.Subscription.Plan.DailyBillLimit
		}
		out.Subscription = &sub
	}
	return out
}

// StoreProfile returns the active store's profile and subscription state.
func StoreProfile(svc *storesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.GetProfile(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toProfileResponse(profile))
	}
}

// StoreUpdate adjusts the mutable store profile fields.
func StoreUpdate(svc *storesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}

		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload storeUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store, err := svc.UpdateProfile(r.Context(), storeID, storesvc.UpdateInput{
			Name:      payload.Name,
			LicenseNo: payload.LicenseNo,
			Phone:     payload.Phone,
			Email:     payload.Email,
			Address:   payload.Address,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toStoreResponse(store))
	}
}
