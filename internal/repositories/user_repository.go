package repositories

import (
	"context"
	"errors"

	"tourneypay/internal/models"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrTargetNotFound = errors.New("donation target not found")
)

// UserRepository is a read view over the identity service's users. Create
// exists for seeding standalone deployments and tests.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// ResolveUserID maps a username to its user id.
	ResolveUserID(ctx context.Context, username string) (uint, error)
	// UserExists reports whether the id names an active user.
	UserExists(ctx context.Context, userID uint) (bool, error)
	// IsWalletOwner reports whether the user's role may hold a wallet.
	IsWalletOwner(ctx context.Context, userID uint) (bool, error)
}

// BeneficiaryRepository resolves donation targets to the user credited.
type BeneficiaryRepository interface {
	ResolveBeneficiaryUser(ctx context.Context, targetType string, targetID uint) (uint, error)
}
