// Package history serves read-only views of the ledger: paginated
// transaction history, per-wallet statistics and donation leaderboards.
// Aggregates only count completed transactions.
package history

import (
	"context"
	"errors"
	"time"

	"tourneypay/internal/models"
	"tourneypay/internal/repositories"
	"tourneypay/internal/utils"

	"go.uber.org/zap"
)

const (
	DefaultPageSize = 20
	StatsMonths     = 12
	DefaultTopLimit = 10
	MaxTopLimit     = 100
)

type Reader interface {
	GetTransactionHistory(ctx context.Context, filter HistoryFilter) (*Page, error)
	FindByReference(ctx context.Context, userID uint, reference string) ([]models.Transaction, error)
	GetWalletStats(ctx context.Context, userID uint) (*models.WalletStats, error)
	GetDonationOverview(ctx context.Context) (*models.DonationOverview, error)
	GetTopDonationReceivers(ctx context.Context, limit int) ([]models.DonationRank, error)
	GetTopDonators(ctx context.Context, limit int) ([]models.DonationRank, error)
	GetTypeTotals(ctx context.Context, userID uint) ([]models.TypeTotal, error)
}

// HistoryFilter selects a user's transactions. Zero values mean no filter;
// From is inclusive and To exclusive.
type HistoryFilter struct {
	UserID   uint
	From     time.Time
	To       time.Time
	Type     string
	Status   string
	Page     int
	PageSize int
}

// Page is one page of history, newest first.
type Page struct {
	Items      []models.Transaction `json:"items"`
	Pagination utils.Pagination     `json:"pagination"`
}

type reader struct {
	transactions repositories.TransactionRepository
	wallets      repositories.WalletRepository
	log          *zap.Logger
	now          func() time.Time
}

func NewReader(transactions repositories.TransactionRepository, wallets repositories.WalletRepository, log *zap.Logger) Reader {
	if log == nil {
		log = zap.NewNop()
	}
	return &reader{
		transactions: transactions,
		wallets:      wallets,
		log:          log.Named("history"),
		now:          time.Now,
	}
}

func (r *reader) GetTransactionHistory(ctx context.Context, filter HistoryFilter) (*Page, error) {
	p := utils.NewPagination(filter.Page, filter.PageSize, DefaultPageSize)

	txs, total, err := r.transactions.List(ctx, repositories.TransactionFilter{
		UserID: filter.UserID,
		From:   filter.From,
		To:     filter.To,
		Type:   filter.Type,
		Status: filter.Status,
		Limit:  p.Limit,
		Offset: p.Offset,
	})
	if err != nil {
		return nil, r.failed("history", filter.UserID, err)
	}
	p.SetTotal(total)

	if txs == nil {
		txs = []models.Transaction{}
	}
	return &Page{Items: txs, Pagination: p}, nil
}

func (r *reader) FindByReference(ctx context.Context, userID uint, reference string) ([]models.Transaction, error) {
	txs, err := r.transactions.FindByReference(ctx, userID, reference)
	if err != nil {
		return nil, r.failed("find by reference", userID, err)
	}
	return txs, nil
}

// GetWalletStats returns lifetime totals and a breakdown of the last twelve
// calendar months (UTC, oldest first, current month last). A user without a
// wallet gets zeroed stats.
func (r *reader) GetWalletStats(ctx context.Context, userID uint) (*models.WalletStats, error) {
	stats := &models.WalletStats{}

	wallet, err := r.wallets.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		stats.CurrentBalance = wallet.Balance
	case errors.Is(err, repositories.ErrWalletNotFound):
	default:
		return nil, r.failed("wallet stats", userID, err)
	}

	totals, err := r.transactions.IncomeExpense(ctx, userID)
	if err != nil {
		return nil, r.failed("wallet stats", userID, err)
	}
	stats.TotalTransactions = totals.Count
	stats.TotalIncome = totals.Income
	stats.TotalExpense = totals.Expense

	months := lastMonths(r.now(), StatsMonths)
	since, _ := time.Parse("2006-01", months[0].Month)
	recent, err := r.transactions.CompletedForUserSince(ctx, userID, since)
	if err != nil {
		return nil, r.failed("monthly breakdown", userID, err)
	}

	index := make(map[string]int, len(months))
	for i, m := range months {
		index[m.Month] = i
	}
	for _, tx := range recent {
		i, ok := index[tx.CreatedAt.UTC().Format("2006-01")]
		if !ok {
			continue
		}
		months[i].Count++
		if tx.Amount > 0 {
			months[i].Income += tx.Amount
		} else {
			months[i].Expense -= tx.Amount
		}
	}
	stats.MonthlyBreakdown = months
	return stats, nil
}

func (r *reader) GetDonationOverview(ctx context.Context) (*models.DonationOverview, error) {
	overview, err := r.transactions.DonationOverview(ctx)
	if err != nil {
		return nil, r.failed("donation overview", 0, err)
	}
	return overview, nil
}

// GetTopDonationReceivers ranks beneficiaries by donations received.
func (r *reader) GetTopDonationReceivers(ctx context.Context, limit int) ([]models.DonationRank, error) {
	ranks, err := r.transactions.TopDonationReceivers(ctx, topLimit(limit))
	if err != nil {
		return nil, r.failed("top receivers", 0, err)
	}
	return ranks, nil
}

// GetTopDonators ranks donors by donated principal, fees excluded.
func (r *reader) GetTopDonators(ctx context.Context, limit int) ([]models.DonationRank, error) {
	ranks, err := r.transactions.TopDonators(ctx, topLimit(limit))
	if err != nil {
		return nil, r.failed("top donators", 0, err)
	}
	return ranks, nil
}

// GetTypeTotals sums completed transactions per type. userID 0 covers every
// wallet.
func (r *reader) GetTypeTotals(ctx context.Context, userID uint) ([]models.TypeTotal, error) {
	totals, err := r.transactions.TypeTotals(ctx, userID)
	if err != nil {
		return nil, r.failed("type totals", userID, err)
	}
	return totals, nil
}

func (r *reader) failed(query string, userID uint, err error) error {
	r.log.Error("ledger read failed",
		zap.String("query", query),
		zap.Uint("user_id", userID),
		zap.Error(err),
	)
	return err
}

func lastMonths(now time.Time, n int) []models.MonthlyTotals {
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	months := make([]models.MonthlyTotals, n)
	for i := range months {
		months[i].Month = first.AddDate(0, i-n+1, 0).Format("2006-01")
	}
	return months
}

func topLimit(limit int) int {
	if limit < 1 {
		return DefaultTopLimit
	}
	if limit > MaxTopLimit {
		return MaxTopLimit
	}
	return limit
}
