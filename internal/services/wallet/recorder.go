package wallet

import (
	"context"
	"errors"
	"fmt"
	"sort"

	apperrors "tourneypay/internal/errors"
	"tourneypay/internal/models"
	"tourneypay/internal/repositories"

	"go.uber.org/zap"
)

// Entry is one leg of a ledger write: a signed change to one wallet.
type Entry struct {
	WalletID        uint
	UserID          uint
	Type            string
	Amount          int64 // signed, debits include Fee
	Fee             int64
	ReferenceCode   string
	CorrelationCode string
	RelatedType     string
	RelatedID       *uint
	Note            string
	Metadata        models.JSON

	// Check re-validates the leg against the locked wallet. nil skips it.
	Check func(w *models.Wallet) *apperrors.DomainError
}

// RejectedError is a business rule violation found on locked state.
type RejectedError struct {
	Err    *apperrors.DomainError
	Wallet models.Wallet
}

func (e *RejectedError) Error() string { return "rejected: " + e.Err.Error() }
func (e *RejectedError) Unwrap() error { return e.Err }

// ReplayError reports that the reference already committed.
type ReplayError struct {
	Prior *models.Transaction
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("reference %q already committed as transaction %d", e.Prior.ReferenceCode, e.Prior.ID)
}

// Recorder applies entries atomically: it locks every involved wallet in
// ascending id order, re-runs each leg's check on the locked rows, inserts the
// completed rows and writes the wallets back under a version check.
type Recorder struct {
	repo       repositories.WalletRepository
	maxRetries int
	metrics    MetricsCollector
	log        *zap.Logger
}

func NewRecorder(repo repositories.WalletRepository, maxRetries int, metrics MetricsCollector, log *zap.Logger) *Recorder {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Recorder{repo: repo, maxRetries: maxRetries, metrics: metrics, log: log}
}

// Record commits all entries or none. The first entry's reference is the
// idempotency key of the whole unit; if it already committed a *ReplayError
// is returned. Failed checks return *RejectedError. Version conflicts are
// retried up to the configured limit.
func (r *Recorder) Record(ctx context.Context, operation string, entries ...Entry) ([]models.Transaction, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no entries", ErrInvariantViolation)
	}

	for attempt := 0; ; attempt++ {
		rows, err := r.recordOnce(ctx, entries)
		if !errors.Is(err, repositories.ErrConcurrentUpdate) {
			return rows, err
		}
		if attempt >= r.maxRetries {
			r.log.Error("ledger write kept conflicting",
				zap.String("operation", operation),
				zap.String("reference", entries[0].ReferenceCode),
				zap.Int("attempts", attempt+1),
			)
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, ErrRetriesExhausted)
		}
		r.metrics.RecordRetry(operation)
		r.log.Debug("version conflict, retrying",
			zap.String("operation", operation),
			zap.String("reference", entries[0].ReferenceCode),
			zap.Int("attempt", attempt+1),
		)
	}
}

func (r *Recorder) recordOnce(ctx context.Context, entries []Entry) ([]models.Transaction, error) {
	var rows []models.Transaction

	err := r.repo.ExecuteInTransaction(ctx, func(tx repositories.WalletRepository) error {
		locked, err := tx.LockWallets(ctx, walletIDs(entries)...)
		if err != nil {
			return err
		}

		// checked under the lock so concurrent retries of one reference
		// converge on a single effect
		prior, err := tx.FindCompletedByReference(ctx, entries[0].ReferenceCode)
		if err == nil {
			return &ReplayError{Prior: prior}
		}
		if !errors.Is(err, repositories.ErrTransactionNotFound) {
			return err
		}

		versions := make(map[uint]int64, len(locked))
		for id, w := range locked {
			versions[id] = w.Version
		}

		pending := make([]*models.Transaction, 0, len(entries))
		for _, e := range entries {
			w := locked[e.WalletID]
			if e.Check != nil {
				if derr := e.Check(w); derr != nil {
					return &RejectedError{Err: derr, Wallet: *w}
				}
			}

			newBalance := w.Balance + e.Amount
			if newBalance < 0 {
				r.log.Error("negative balance after validation",
					zap.Uint("user_id", e.UserID),
					zap.Uint("wallet_id", e.WalletID),
					zap.String("reference", e.ReferenceCode),
					zap.String("operation", e.Type),
					zap.Int64("amount", e.Amount),
					zap.Int64("balance", w.Balance),
				)
				return fmt.Errorf("%w: wallet %d balance %d cannot take %d",
					ErrInvariantViolation, w.ID, w.Balance, e.Amount)
			}

			w.Balance = newBalance
			if e.Amount > 0 {
				w.TotalReceived += e.Amount
			} else {
				w.TotalWithdrawn += -e.Amount
			}

			pending = append(pending, &models.Transaction{
				WalletID:          e.WalletID,
				UserID:            e.UserID,
				Type:              e.Type,
				Amount:            e.Amount,
				Fee:               e.Fee,
				BalanceAfter:      newBalance,
				Status:            models.TransactionStatusCompleted,
				ReferenceCode:     e.ReferenceCode,
				CorrelationCode:   e.CorrelationCode,
				RelatedEntityType: e.RelatedType,
				RelatedEntityID:   e.RelatedID,
				Note:              e.Note,
				Metadata:          e.Metadata,
			})
		}

		if err := tx.InsertTransactions(ctx, pending...); err != nil {
			return err
		}
		for _, id := range sortedIDs(locked) {
			if err := tx.ApplyWallet(ctx, locked[id], versions[id]); err != nil {
				return err
			}
		}

		rows = make([]models.Transaction, len(pending))
		for i, p := range pending {
			rows[i] = *p
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func walletIDs(entries []Entry) []uint {
	seen := make(map[uint]struct{}, len(entries))
	ids := make([]uint, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.WalletID]; ok {
			continue
		}
		seen[e.WalletID] = struct{}{}
		ids = append(ids, e.WalletID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortedIDs(m map[uint]*models.Wallet) []uint {
	ids := make([]uint, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
