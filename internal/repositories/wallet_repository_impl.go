package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tourneypay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type walletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{
		db: db,
	}
}

// storeError classifies a driver error. Not-found and duplicate errors keep
// their own sentinels; everything else is an unavailable store.
func storeError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, ErrDuplicateReference)
	case errors.Is(err, ErrConcurrentUpdate),
		errors.Is(err, ErrDuplicateReference),
		errors.Is(err, ErrStoreUnavailable):
		return err
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
}

func (r *walletRepository) GetByID(ctx context.Context, id uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).First(&wallet, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, storeError("get wallet", err)
	}
	return &wallet, nil
}

func (r *walletRepository) GetByUserID(ctx context.Context, userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, storeError("get wallet", err)
	}
	return &wallet, nil
}

func (r *walletRepository) EnsureWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	wallet, err := r.GetByUserID(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return nil, err
	}

	wallet = &models.Wallet{
		UserID: userID,
		Status: models.WalletStatusActive,
	}
	err = r.db.WithContext(ctx).Create(wallet).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// lost the creation race; the other writer's wallet is the one
		return r.GetByUserID(ctx, userID)
	}
	if err != nil {
		return nil, storeError("create wallet", err)
	}
	return wallet, nil
}

func (r *walletRepository) LockWallets(ctx context.Context, ids ...uint) (map[uint]*models.Wallet, error) {
	var wallets []*models.Wallet
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&wallets).Error
	if err != nil {
		return nil, storeError("lock wallets", err)
	}

	locked := make(map[uint]*models.Wallet, len(wallets))
	for _, w := range wallets {
		locked[w.ID] = w
	}
	for _, id := range ids {
		if _, ok := locked[id]; !ok {
			return nil, fmt.Errorf("lock wallet %d: %w", id, ErrWalletNotFound)
		}
	}
	return locked, nil
}

func (r *walletRepository) ApplyWallet(ctx context.Context, wallet *models.Wallet, expectedVersion int64) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ? AND version = ?", wallet.ID, expectedVersion).
		Updates(map[string]interface{}{
			"balance":         wallet.Balance,
			"total_received":  wallet.TotalReceived,
			"total_withdrawn": wallet.TotalWithdrawn,
			"status":          wallet.Status,
			"status_reason":   wallet.StatusReason,
			"version":         expectedVersion + 1,
			"updated_at":      now,
		})
	if result.Error != nil {
		return storeError("update wallet", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	wallet.Version = expectedVersion + 1
	wallet.UpdatedAt = now
	return nil
}

func (r *walletRepository) InsertTransactions(ctx context.Context, txs ...*models.Transaction) error {
	for _, tx := range txs {
		if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
			return storeError("insert transaction", err)
		}
	}
	return nil
}

func (r *walletRepository) FindCompletedByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).
		Where("reference_code = ? AND status = ?", reference, models.TransactionStatusCompleted).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, storeError("find transaction", err)
	}
	return &tx, nil
}

func (r *walletRepository) FindByCorrelation(ctx context.Context, correlation string) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("correlation_code = ?", correlation).
		Order("id ASC").
		Find(&txs).Error
	if err != nil {
		return nil, storeError("find transactions", err)
	}
	return txs, nil
}

func (r *walletRepository) CompletedForWallet(ctx context.Context, walletID uint) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("wallet_id = ? AND status = ?", walletID, models.TransactionStatusCompleted).
		Order("id ASC").
		Find(&txs).Error
	if err != nil {
		return nil, storeError("wallet transactions", err)
	}
	return txs, nil
}

func (r *walletRepository) ListWalletIDs(ctx context.Context, afterID uint, limit int) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, storeError("list wallets", err)
	}
	return ids, nil
}

func (r *walletRepository) ExecuteInTransaction(ctx context.Context, fn func(WalletRepository) error) error {
	var fnErr error
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&walletRepository{db: tx})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	// begin or commit failed
	return storeError("ledger transaction", err)
}
