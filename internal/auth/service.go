package auth

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	pkgauth "github.com/pharmadesk/pharmadesk-backend/pkg/auth"
	"github.com/pharmadesk/pharmadesk-backend/pkg/config"
	dbpkg "github.com/pharmadesk/pharmadesk-backend/pkg/db"
	"github.com/pharmadesk/pharmadesk-backend/pkg/db/models"
	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
	pkgerrors "github.com/pharmadesk/pharmadesk-backend/pkg/errors"
	"github.com/pharmadesk/pharmadesk-backend/pkg/logger"
	"github.com/pharmadesk/pharmadesk-backend/pkg/security"
)

type Service struct {
	client *dbpkg.Client
	repo   *Repository
	cfg    *config.Config
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(client *dbpkg.Client, repo *Repository, cfg *config.Config, logg *logger.Logger) *Service {
	return &Service{client: client, repo: repo, cfg: cfg, logg: logg, now: time.Now}
}

// Register creates the store, its owner account, and a trial subscription on
// the default plan in one transaction, then signs the owner in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	storeName := strings.TrimSpace(in.StoreName)
	ownerName := strings.TrimSpace(in.OwnerName)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if storeName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store name is required")
	}
	if ownerName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner name is required")
	}
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if len(in.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	hash, err := security.HashPassword(in.Password, s.cfg.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	defaultPlan, err := s.repo.GetDefaultPlan(ctx)
	if err != nil {
		return nil, err
	}

	var store models.Store
	var owner models.User
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		store = models.Store{
			Name:      storeName,
			Phone:     in.Phone,
			LicenseNo: in.LicenseNo,
		}
		if err := tx.Create(&store).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating store")
		}

		owner = models.User{
			StoreID:      store.ID,
			Name:         ownerName,
			Email:        email,
			PasswordHash: hash,
			Role:         enums.UserRoleOwner,
		}
		if err := tx.Create(&owner).Error; err != nil {
			if dbpkg.IsUniqueViolation(err, "idx_users_email") {
				return pkgerrors.Newf(pkgerrors.CodeConflict, "email %s is already registered", email)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating owner")
		}

		if err := tx.Model(&store).Update("owner_id", owner.ID).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "linking owner")
		}

		if defaultPlan != nil {
			periodEnd := s.now().UTC().Add(14 * 24 * time.Hour)
			sub := models.Subscription{
				StoreID:          store.ID,
				PlanID:           defaultPlan.ID,
				Status:           enums.SubscriptionStatusTrial,
				CurrentPeriodEnd: &periodEnd,
			}
			if err := tx.Create(&sub).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating subscription")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithStoreID(ctx, store.ID.String()), "store registered")
	}
	return s.issueSession(&store, &owner)
}

// Login verifies credentials and returns a fresh session.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	user, err := s.repo.GetUserByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}

	ok, err := security.VerifyPassword(in.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	var store models.Store
	if err := s.client.DB().WithContext(ctx).Where("id = ?", user.StoreID).First(&store).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading store")
	}

	return s.issueSession(&store, user)
}

func (s *Service) issueSession(store *models.Store, user *models.User) (*Session, error) {
	token, err := pkgauth.MintAccessToken(s.cfg.JWT, s.now(), pkgauth.AccessTokenPayload{
		UserID:  user.ID,
		StoreID: store.ID,
		Role:    user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting token")
	}
	return &Session{
		Token:     token,
		UserID:    user.ID,
		StoreID:   store.ID,
		Role:      user.Role,
		StoreName: store.Name,
		UserName:  user.Name,
	}, nil
}
