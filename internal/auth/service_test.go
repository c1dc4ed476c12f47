package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pharmadesk/pharmadesk-backend/pkg/config"
	dbpkg "github.com/pharmadesk/pharmadesk-backend/pkg/db"
	"github.com/pharmadesk/pharmadesk-backend/pkg/db/models"
	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
	pkgerrors "github.com/pharmadesk/pharmadesk-backend/pkg/errors"
)

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:            "test-secret",
			Issuer:            "pharmadesk",
			ExpirationMinutes: 30,
		},
		Password: config.PasswordConfig{
			ArgonMemoryKB:    8,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		},
	}
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(&models.Store{}, &models.User{}, &models.Plan{}, &models.Subscription{})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Create(&models.Plan{ID: "free", Name: "Free", DailyBillLimit: 30, IsDefault: true}).Error; err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	svc := NewService(dbpkg.NewWithConn(db), NewRepository(db), testConfig(), nil)
	return svc, db
}

func registerInput() RegisterInput {
	return RegisterInput{
		StoreName: "City Pharmacy",
		OwnerName: "Asha Rao",
		Email:     "asha@example.com",
		Password:  "long-enough-pass",
	}
}

func TestRegisterCreatesStoreOwnerAndSubscription(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, registerInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if session.Token == "" {
		t.Fatal("expected a token")
	}
	if session.Role != enums.UserRoleOwner {
		t.Fatalf("expected owner role, got %s", session.Role)
	}

	var store models.Store
	if err := db.First(&store, "id = ?", session.StoreID).Error; err != nil {
		t.Fatalf("load store: %v", err)
	}
	if store.OwnerID == nil || *store.OwnerID != session.UserID {
		t.Fatal("store not linked to owner")
	}

	var sub models.Subscription
	if err := db.First(&sub, "store_id = ?", session.StoreID).Error; err != nil {
		t.Fatalf("load subscription: %v", err)
	}
	if sub.PlanID != "free" || sub.Status != enums.SubscriptionStatusTrial {
		t.Fatalf("unexpected subscription: %+v", sub)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, registerInput()); err != nil {
		t.Fatalf("first register: %v", err)
	}

	in := registerInput()
	in.StoreName = "Another Pharmacy"
	_, err := svc.Register(ctx, in)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	short := registerInput()
	short.Password = "short"
	if _, err := svc.Register(ctx, short); pkgerrors.As(err) == nil {
		t.Fatal("expected error for short password")
	}

	noEmail := registerInput()
	noEmail.Email = " "
	if _, err := svc.Register(ctx, noEmail); pkgerrors.As(err) == nil {
		t.Fatal("expected error for missing email")
	}
}

func TestLogin(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, registerInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	session, err := svc.Login(ctx, LoginInput{Email: "Asha@Example.com", Password: "long-enough-pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.UserID != registered.UserID || session.StoreID != registered.StoreID {
		t.Fatalf("session mismatch: %+v vs %+v", session, registered)
	}

	_, err = svc.Login(ctx, LoginInput{Email: "asha@example.com", Password: "wrong-password"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "whatever"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for unknown email, got %v", err)
	}
}
