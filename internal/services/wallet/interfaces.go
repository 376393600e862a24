package wallet

import (
	"context"

	"tourneypay/internal/models"
)

// Service defines the main wallet service interface
type Service interface {
	// Balance-affecting operations
	Deposit(ctx context.Context, userID uint, amount int64, opts Options) (TransactionResult, error)
	Withdraw(ctx context.Context, userID uint, amount int64, opts Options) (TransactionResult, error)
	Transfer(ctx context.Context, fromUserID, toUserID uint, amount int64, opts Options) (TransactionResult, error)
	Donate(ctx context.Context, userID uint, amount int64, targetType string, targetID uint, opts Options) (TransactionResult, error)

	// Balance operations
	GetBalance(ctx context.Context, userID uint) (int64, error)
	HasSufficientBalance(ctx context.Context, userID uint, amount int64) (bool, error)

	// Wallet management
	GetWalletInfo(ctx context.Context, userID uint) (*models.WalletInfo, error)
	EnsureWallet(ctx context.Context, userID uint) (*models.WalletInfo, error)
	FreezeWallet(ctx context.Context, userID uint, reason string) (*models.WalletInfo, error)
	UnfreezeWallet(ctx context.Context, userID uint) (*models.WalletInfo, error)
}

// Directory answers identity questions owned by the user service.
type Directory interface {
	ResolveUserID(ctx context.Context, username string) (uint, error)
	UserExists(ctx context.Context, userID uint) (bool, error)
	IsWalletOwner(ctx context.Context, userID uint) (bool, error)
}

// BeneficiaryResolver maps a donation target to the user credited.
type BeneficiaryResolver interface {
	ResolveBeneficiaryUser(ctx context.Context, targetType string, targetID uint) (uint, error)
}

// CacheOperator defines the wallet snapshot cache
type CacheOperator interface {
	GetWallet(ctx context.Context, userID uint) (*models.WalletInfo, error)
	CacheWallet(ctx context.Context, info models.WalletInfo) error
	InvalidateWallet(ctx context.Context, userID uint) error
}

// EventPublisher announces ledger changes to other services.
type EventPublisher interface {
	PublishTransaction(ctx context.Context, tx *models.Transaction) error
	PublishWalletStatus(ctx context.Context, wallet *models.Wallet) error
}
