// Package reconcile checks the ledger against itself. It fails pending rows
// nobody finished and replays each wallet's completed transactions to prove
// BalanceAfter, balance and totals agree.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"tourneypay/internal/config"
	"tourneypay/internal/models"
	"tourneypay/internal/repositories"

	"go.uber.org/zap"
)

// StaleReason is the failure reason written on expired pending rows.
const StaleReason = "PENDING_TIMEOUT"

type Config struct {
	Interval     time.Duration
	PendingAfter time.Duration
	BatchSize    int
}

func LoadConfig() Config {
	return Config{
		Interval:     config.GetDurationEnv("RECONCILE_INTERVAL", time.Hour),
		PendingAfter: config.GetDurationEnv("PENDING_TIMEOUT", 15*time.Minute),
		BatchSize:    config.GetIntEnv("RECONCILE_BATCH_SIZE", 500),
	}
}

// Mismatch is one disagreement between a wallet and its transactions.
type Mismatch struct {
	WalletID      uint   `json:"wallet_id"`
	UserID        uint   `json:"user_id"`
	TransactionID uint   `json:"transaction_id,omitempty"`
	Field         string `json:"field"`
	Expected      int64  `json:"expected"`
	Actual        int64  `json:"actual"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("wallet %d %s: expected %d, got %d", m.WalletID, m.Field, m.Expected, m.Actual)
}

type Report struct {
	StaleFailed    int64         `json:"stale_failed"`
	WalletsChecked int           `json:"wallets_checked"`
	Mismatches     []Mismatch    `json:"mismatches"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
}

func (r *Report) OK() bool { return len(r.Mismatches) == 0 }

type Reconciler struct {
	wallets      repositories.WalletRepository
	transactions repositories.TransactionRepository
	cfg          Config
	log          *zap.Logger
}

func NewReconciler(wallets repositories.WalletRepository, transactions repositories.TransactionRepository, cfg Config, log *zap.Logger) *Reconciler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{wallets: wallets, transactions: transactions, cfg: cfg, log: log.Named("reconcile")}
}

// FailStalePending marks pending rows older than olderThan as failed. Pending
// rows never moved a balance, so failing them is always safe.
func (r *Reconciler) FailStalePending(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := r.transactions.FailStalePending(ctx, time.Now().Add(-olderThan), StaleReason)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.log.Warn("failed stale pending transactions", zap.Int64("count", n), zap.Duration("older_than", olderThan))
	}
	return n, nil
}

// VerifyWallet replays the wallet's completed transactions in id order. The
// wallet row stays locked while its rows are read, so a commit cannot land
// between the two reads.
func (r *Reconciler) VerifyWallet(ctx context.Context, walletID uint) ([]Mismatch, error) {
	var (
		wallet *models.Wallet
		txs    []models.Transaction
	)
	err := r.wallets.ExecuteInTransaction(ctx, func(tx repositories.WalletRepository) error {
		locked, err := tx.LockWallets(ctx, walletID)
		if err != nil {
			return err
		}
		wallet = locked[walletID]
		txs, err = tx.CompletedForWallet(ctx, walletID)
		return err
	})
	if err != nil {
		return nil, err
	}

	var (
		mismatches       []Mismatch
		running, in, out int64
	)
	add := func(txID uint, field string, expected, actual int64) {
		m := Mismatch{WalletID: wallet.ID, UserID: wallet.UserID, TransactionID: txID, Field: field, Expected: expected, Actual: actual}
		mismatches = append(mismatches, m)
		r.log.Error("ledger mismatch",
			zap.Uint("wallet_id", m.WalletID),
			zap.Uint("user_id", m.UserID),
			zap.Uint("transaction_id", m.TransactionID),
			zap.String("field", m.Field),
			zap.Int64("expected", m.Expected),
			zap.Int64("actual", m.Actual),
		)
	}

	for _, tx := range txs {
		running += tx.Amount
		if tx.Amount > 0 {
			in += tx.Amount
		} else {
			out -= tx.Amount
		}
		if tx.BalanceAfter != running {
			add(tx.ID, "balance_after", running, tx.BalanceAfter)
		}
		if running < 0 {
			add(tx.ID, "negative_balance", 0, running)
		}
		if !tx.SignMatchesType() {
			add(tx.ID, "amount_sign", 0, tx.Amount)
		}
	}
	if wallet.Balance != running {
		add(0, "balance", running, wallet.Balance)
	}
	if wallet.TotalReceived != in {
		add(0, "total_received", in, wallet.TotalReceived)
	}
	if wallet.TotalWithdrawn != out {
		add(0, "total_withdrawn", out, wallet.TotalWithdrawn)
	}
	return mismatches, nil
}

// VerifyAll walks every wallet in id batches.
func (r *Reconciler) VerifyAll(ctx context.Context) (int, []Mismatch, error) {
	var (
		checked    int
		mismatches []Mismatch
		after      uint
	)
	for {
		ids, err := r.wallets.ListWalletIDs(ctx, after, r.cfg.BatchSize)
		if err != nil {
			return checked, mismatches, err
		}
		for _, id := range ids {
			found, err := r.VerifyWallet(ctx, id)
			if err != nil {
				return checked, mismatches, err
			}
			checked++
			mismatches = append(mismatches, found...)
		}
		if len(ids) < r.cfg.BatchSize {
			return checked, mismatches, nil
		}
		after = ids[len(ids)-1]
	}
}

// Run fails stale pending rows and then verifies every wallet.
func (r *Reconciler) Run(ctx context.Context) (*Report, error) {
	report := &Report{StartedAt: time.Now(), Mismatches: []Mismatch{}}

	n, err := r.FailStalePending(ctx, r.cfg.PendingAfter)
	if err != nil {
		return nil, err
	}
	report.StaleFailed = n

	checked, mismatches, err := r.VerifyAll(ctx)
	if err != nil {
		return nil, err
	}
	report.WalletsChecked = checked
	report.Mismatches = append(report.Mismatches, mismatches...)
	report.Duration = time.Since(report.StartedAt)

	r.log.Info("reconciliation finished",
		zap.Int64("stale_failed", report.StaleFailed),
		zap.Int("wallets_checked", report.WalletsChecked),
		zap.Int("mismatches", len(report.Mismatches)),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

