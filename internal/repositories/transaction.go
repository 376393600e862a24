package repositories

import (
	"context"
	"time"

	"tourneypay/internal/models"
)

// TransactionRepository is the read side of the ledger plus the one
// maintenance write used by reconciliation. Aggregates only count completed
// rows.
type TransactionRepository interface {
	// Listing
	List(ctx context.Context, filter TransactionFilter) ([]models.Transaction, int64, error)
	FindByReference(ctx context.Context, userID uint, reference string) ([]models.Transaction, error)
	CompletedForUserSince(ctx context.Context, userID uint, since time.Time) ([]models.Transaction, error)

	// Aggregates
	IncomeExpense(ctx context.Context, userID uint) (*IncomeExpense, error)
	DonationOverview(ctx context.Context) (*models.DonationOverview, error)
	TopDonationReceivers(ctx context.Context, limit int) ([]models.DonationRank, error)
	TopDonators(ctx context.Context, limit int) ([]models.DonationRank, error)
	TypeTotals(ctx context.Context, userID uint) ([]models.TypeTotal, error)

	// Maintenance
	FailStalePending(ctx context.Context, before time.Time, reason string) (int64, error)
}

// IncomeExpense is the completed activity summary of one wallet owner.
type IncomeExpense struct {
	Count   int64
	Income  int64
	Expense int64
}
