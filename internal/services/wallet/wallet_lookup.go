package wallet

import (
	"context"
	"errors"
	"fmt"

	apperrors "tourneypay/internal/errors"
	"tourneypay/internal/models"
	"tourneypay/internal/repositories"

	"go.uber.org/zap"
)

// GetBalance returns the committed balance. A user without a wallet gets
// apperrors.ErrWalletNotFound.
func (s *service) GetBalance(ctx context.Context, userID uint) (int64, error) {
	wallet, err := s.lookup(ctx, userID)
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

// HasSufficientBalance reports whether a debit of amount would leave the
// balance non-negative. A missing wallet has nothing to spend.
func (s *service) HasSufficientBalance(ctx context.Context, userID uint, amount int64) (bool, error) {
	wallet, err := s.lookup(ctx, userID)
	if errors.Is(err, apperrors.ErrWalletNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return wallet.Balance >= amount, nil
}

// GetWalletInfo serves the wallet snapshot, from cache when possible.
func (s *service) GetWalletInfo(ctx context.Context, userID uint) (*models.WalletInfo, error) {
	if s.cache != nil {
		info, err := s.cache.GetWallet(ctx, userID)
		if err != nil {
			s.log.Warn("wallet cache read failed", zap.Uint("user_id", userID), zap.Error(err))
		}
		if info != nil {
			s.metrics.RecordCacheHit("wallet")
			return info, nil
		}
		s.metrics.RecordCacheMiss("wallet")
	}

	wallet, err := s.lookup(ctx, userID)
	if err != nil {
		return nil, err
	}
	info := wallet.Info()
	s.remember(ctx, info)
	return &info, nil
}

// EnsureWallet returns the user's wallet, creating an empty active one for
// users allowed to hold a wallet.
func (s *service) EnsureWallet(ctx context.Context, userID uint) (*models.WalletInfo, error) {
	ok, err := s.directory.IsWalletOwner(ctx, userID)
	if err != nil {
		return nil, s.storeFailure("ensure wallet", userID, err)
	}
	if !ok {
		return nil, apperrors.ErrPermissionDenied
	}

	wallet, err := s.repo.EnsureWallet(ctx, userID)
	if err != nil {
		return nil, s.storeFailure("ensure wallet", userID, err)
	}
	info := wallet.Info()
	return &info, nil
}

// FreezeWallet blocks every mutation of the wallet until it is unfrozen.
func (s *service) FreezeWallet(ctx context.Context, userID uint, reason string) (*models.WalletInfo, error) {
	return s.setStatus(ctx, OperationFreeze, userID, models.WalletStatusFrozen, reason)
}

func (s *service) UnfreezeWallet(ctx context.Context, userID uint) (*models.WalletInfo, error) {
	return s.setStatus(ctx, OperationUnfreeze, userID, models.WalletStatusActive, "")
}

func (s *service) setStatus(ctx context.Context, operation string, userID uint, status, reason string) (*models.WalletInfo, error) {
	wallet, err := s.lookup(ctx, userID)
	if err != nil {
		return nil, err
	}

	var updated models.Wallet
	for attempt := 0; ; attempt++ {
		err = s.repo.ExecuteInTransaction(ctx, func(tx repositories.WalletRepository) error {
			locked, err := tx.LockWallets(ctx, wallet.ID)
			if err != nil {
				return err
			}
			w := locked[wallet.ID]
			version := w.Version
			w.Status = status
			w.StatusReason = reason
			if err := tx.ApplyWallet(ctx, w, version); err != nil {
				return err
			}
			updated = *w
			return nil
		})
		if !errors.Is(err, repositories.ErrConcurrentUpdate) || attempt >= s.config.MaxRetries {
			break
		}
		s.metrics.RecordRetry(operation)
	}
	if err != nil {
		s.metrics.RecordOperationResult(operation, ResultError)
		return nil, s.storeFailure(operation, userID, err)
	}

	s.metrics.RecordOperationResult(operation, ResultSuccess)
	s.log.Info("wallet status changed",
		zap.String("operation", operation),
		zap.Uint("user_id", userID),
		zap.Uint("wallet_id", updated.ID),
		zap.String("status", updated.Status),
		zap.String("reason", reason),
	)
	s.refresh(ctx, s.log, userID)
	if s.events != nil {
		if err := s.events.PublishWalletStatus(ctx, &updated); err != nil {
			s.log.Warn("failed to publish wallet status", zap.Uint("wallet_id", updated.ID), zap.Error(err))
		}
	}

	info := updated.Info()
	return &info, nil
}

// lookup reads the wallet row, mapping a miss to the business error.
func (s *service) lookup(ctx context.Context, userID uint) (*models.Wallet, error) {
	wallet, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, repositories.ErrWalletNotFound) {
		return nil, apperrors.ErrWalletNotFound
	}
	if err != nil {
		return nil, s.storeFailure("wallet lookup", userID, err)
	}
	return wallet, nil
}

func (s *service) remember(ctx context.Context, info models.WalletInfo) {
	if s.cache == nil {
		return
	}
	if err := s.cache.CacheWallet(ctx, info); err != nil {
		s.log.Warn("failed to cache wallet", zap.Uint("user_id", info.UserID), zap.Error(err))
	}
}

func (s *service) storeFailure(operation string, userID uint, err error) error {
	if errors.Is(err, repositories.ErrWalletNotFound) {
		return apperrors.ErrWalletNotFound
	}
	if !errors.Is(err, ErrStoreUnavailable) {
		err = fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	s.log.Error("wallet store operation failed",
		zap.String("operation", operation),
		zap.Uint("user_id", userID),
		zap.Error(err),
	)
	return err
}
