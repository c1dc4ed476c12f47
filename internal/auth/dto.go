package auth

import (
	"github.com/google/uuid"

	"github.com/pharmadesk/pharmadesk-backend/pkg/enums"
)

// RegisterInput signs up a new store with its owner account.
type RegisterInput struct {
	StoreName string
	OwnerName string
	Email     string
	Password  string
	Phone     *string
	LicenseNo *string
}

// LoginInput authenticates an existing user.
type LoginInput struct {
	Email    string
	Password string
}

// Session is what a successful register or login hands back to the client.
type Session struct {
	Token     string
	UserID    uuid.UUID
	StoreID   uuid.UUID
	Role      enums.UserRole
	StoreName string
	UserName  string
}
