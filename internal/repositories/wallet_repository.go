package repositories

import (
	"context"
	"errors"
	"time"

	"tourneypay/internal/models"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDuplicateReference  = errors.New("reference code already committed")
	ErrConcurrentUpdate    = errors.New("wallet modified concurrently")
	ErrStoreUnavailable    = errors.New("ledger store unavailable")
)

// WalletRepository defines the ledger write-side operations. Methods that
// mutate money are only meaningful inside ExecuteInTransaction.
type WalletRepository interface {
	// Wallet lookups
	GetByID(ctx context.Context, id uint) (*models.Wallet, error)
	GetByUserID(ctx context.Context, userID uint) (*models.Wallet, error)

	// EnsureWallet returns the user's wallet, creating an empty active one
	// when none exists.
	EnsureWallet(ctx context.Context, userID uint) (*models.Wallet, error)

	// LockWallets takes row locks on the given wallets in ascending id order
	// and returns them keyed by id.
	LockWallets(ctx context.Context, ids ...uint) (map[uint]*models.Wallet, error)

	// ApplyWallet persists balance, totals and status of a locked wallet if its
	// version still equals expectedVersion, then bumps the version.
	ApplyWallet(ctx context.Context, wallet *models.Wallet, expectedVersion int64) error

	// Transaction rows
	InsertTransactions(ctx context.Context, txs ...*models.Transaction) error
	FindCompletedByReference(ctx context.Context, reference string) (*models.Transaction, error)
	FindByCorrelation(ctx context.Context, correlation string) ([]models.Transaction, error)

	// CompletedForWallet returns the wallet's committed rows in id order. Read
	// it after LockWallets to see the rows that produced the locked balance.
	CompletedForWallet(ctx context.Context, walletID uint) ([]models.Transaction, error)

	// Status operations
	ListWalletIDs(ctx context.Context, afterID uint, limit int) ([]uint, error)

	ExecuteInTransaction(ctx context.Context, fn func(WalletRepository) error) error
}

// TransactionFilter narrows a history listing. Zero values mean no filter.
type TransactionFilter struct {
	UserID uint
	From   time.Time
	To     time.Time
	Type   string
	Status string
	Limit  int
	Offset int
}
