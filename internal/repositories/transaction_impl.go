package repositories

import (
	"context"
	"time"

	"tourneypay/internal/models"

	"gorm.io/gorm"
)

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) completed(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("status = ?", models.TransactionStatusCompleted)
}

func (r *transactionRepository) List(ctx context.Context, f TransactionFilter) ([]models.Transaction, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Transaction{})
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("created_at < ?", f.To)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, storeError("count transactions", err)
	}

	var txs []models.Transaction
	err := q.Order("id DESC").Limit(f.Limit).Offset(f.Offset).Find(&txs).Error
	if err != nil {
		return nil, 0, storeError("list transactions", err)
	}
	return txs, total, nil
}

func (r *transactionRepository) FindByReference(ctx context.Context, userID uint, reference string) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND (reference_code = ? OR correlation_code = ?)", userID, reference, reference).
		Order("id ASC").
		Find(&txs).Error
	if err != nil {
		return nil, storeError("find by reference", err)
	}
	return txs, nil
}

func (r *transactionRepository) CompletedForUserSince(ctx context.Context, userID uint, since time.Time) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.completed(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("id ASC").
		Find(&txs).Error
	if err != nil {
		return nil, storeError("recent transactions", err)
	}
	return txs, nil
}

func (r *transactionRepository) IncomeExpense(ctx context.Context, userID uint) (*IncomeExpense, error) {
	var out IncomeExpense
	err := r.completed(ctx).
		Where("user_id = ?", userID).
		Select(`COUNT(*) AS count,
			CAST(COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0) AS BIGINT) AS income,
			CAST(COALESCE(SUM(CASE WHEN amount < 0 THEN -amount ELSE 0 END), 0) AS BIGINT) AS expense`).
		Scan(&out).Error
	if err != nil {
		return nil, storeError("income expense", err)
	}
	return &out, nil
}

func (r *transactionRepository) DonationOverview(ctx context.Context) (*models.DonationOverview, error) {
	var out models.DonationOverview
	err := r.completed(ctx).
		Where("type = ?", models.TransactionTypeDonation).
		Select(`COUNT(*) AS total_donations,
			CAST(COALESCE(SUM(-amount - fee), 0) AS BIGINT) AS total_donated,
			CAST(COALESCE(SUM(fee), 0) AS BIGINT) AS total_fees,
			COUNT(DISTINCT user_id) AS unique_donors`).
		Scan(&out).Error
	if err != nil {
		return nil, storeError("donation overview", err)
	}

	err = r.completed(ctx).
		Where("type = ?", models.TransactionTypeDonationReceived).
		Select("COUNT(DISTINCT user_id)").
		Scan(&out.UniqueReceivers).Error
	if err != nil {
		return nil, storeError("donation receivers", err)
	}
	return &out, nil
}

func (r *transactionRepository) TopDonationReceivers(ctx context.Context, limit int) ([]models.DonationRank, error) {
	return r.ranked(ctx, models.TransactionTypeDonationReceived, "amount", limit)
}

func (r *transactionRepository) TopDonators(ctx context.Context, limit int) ([]models.DonationRank, error) {
	return r.ranked(ctx, models.TransactionTypeDonation, "-amount - fee", limit)
}

// ranked sums principal per user. Ties go to the user whose last
// contributing row came first.
func (r *transactionRepository) ranked(ctx context.Context, txType, principal string, limit int) ([]models.DonationRank, error) {
	var rows []models.DonationRank
	err := r.completed(ctx).
		Where("type = ?", txType).
		Select("user_id, CAST(SUM(" + principal + ") AS BIGINT) AS total, COUNT(*) AS count, MAX(id) AS last_id").
		Group("user_id").
		Order("total DESC, last_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, storeError("donation ranking", err)
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}

func (r *transactionRepository) TypeTotals(ctx context.Context, userID uint) ([]models.TypeTotal, error) {
	q := r.completed(ctx)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}

	var totals []models.TypeTotal
	err := q.Select("type, COUNT(*) AS count, CAST(COALESCE(SUM(amount), 0) AS BIGINT) AS sum").
		Group("type").
		Order("type ASC").
		Scan(&totals).Error
	if err != nil {
		return nil, storeError("type totals", err)
	}
	return totals, nil
}

func (r *transactionRepository) FailStalePending(ctx context.Context, before time.Time, reason string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("status = ? AND created_at < ?", models.TransactionStatusPending, before).
		Updates(map[string]interface{}{
			"status":         models.TransactionStatusFailed,
			"failure_reason": reason,
		})
	if result.Error != nil {
		return 0, storeError("fail stale pending", result.Error)
	}
	return result.RowsAffected, nil
}
