package reconcile

import (
	"context"
	"testing"
	"time"

	"tourneypay/internal/models"
	"tourneypay/internal/repositories"
	"tourneypay/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newReconciler(t *testing.T, batch int) (*Reconciler, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	r := NewReconciler(
		repositories.NewWalletRepository(db),
		repositories.NewTransactionRepository(db),
		Config{PendingAfter: time.Minute, BatchSize: batch},
		zap.NewNop(),
	)
	return r, db
}

func createWallet(t *testing.T, db *gorm.DB, w *models.Wallet) *models.Wallet {
	t.Helper()
	w.Status = models.WalletStatusActive
	require.NoError(t, db.Create(w).Error)
	return w
}

func createTx(t *testing.T, db *gorm.DB, tx models.Transaction) {
	t.Helper()
	if tx.Status == "" {
		tx.Status = models.TransactionStatusCompleted
	}
	require.NoError(t, db.Create(&tx).Error)
}

func TestVerifyWallet(t *testing.T) {
	ctx := context.Background()
	r, db := newReconciler(t, 10)

	good := createWallet(t, db, &models.Wallet{UserID: 1, Balance: 60, TotalReceived: 100, TotalWithdrawn: 40})
	createTx(t, db, models.Transaction{WalletID: good.ID, UserID: 1, Type: models.TransactionTypeDeposit, Amount: 100, BalanceAfter: 100, ReferenceCode: "g1"})
	createTx(t, db, models.Transaction{WalletID: good.ID, UserID: 1, Type: models.TransactionTypeWithdrawal, Amount: -40, BalanceAfter: 60, ReferenceCode: "g2"})
	createTx(t, db, models.Transaction{WalletID: good.ID, UserID: 1, Type: models.TransactionTypeWithdrawal, Amount: -999, BalanceAfter: 60,
		ReferenceCode: "g3", Status: models.TransactionStatusFailed})

	mismatches, err := r.VerifyWallet(ctx, good.ID)
	require.NoError(t, err)
	assert.Empty(t, mismatches)

	bad := createWallet(t, db, &models.Wallet{UserID: 2, Balance: 75, TotalReceived: 100})
	createTx(t, db, models.Transaction{WalletID: bad.ID, UserID: 2, Type: models.TransactionTypeDeposit, Amount: 100, BalanceAfter: 90, ReferenceCode: "b1"})

	mismatches, err = r.VerifyWallet(ctx, bad.ID)
	require.NoError(t, err)
	require.Len(t, mismatches, 2)
	assert.Equal(t, "balance_after", mismatches[0].Field)
	assert.Equal(t, int64(100), mismatches[0].Expected)
	assert.Equal(t, int64(90), mismatches[0].Actual)
	assert.Equal(t, "balance", mismatches[1].Field)
	assert.Equal(t, int64(75), mismatches[1].Actual)

	flipped := createWallet(t, db, &models.Wallet{UserID: 3, Balance: 0, TotalReceived: 20, TotalWithdrawn: 20})
	createTx(t, db, models.Transaction{WalletID: flipped.ID, UserID: 3, Type: models.TransactionTypeDeposit, Amount: 20, BalanceAfter: 20, ReferenceCode: "f1"})
	createTx(t, db, models.Transaction{WalletID: flipped.ID, UserID: 3, Type: models.TransactionTypeTransferIn, Amount: -20, BalanceAfter: 0, ReferenceCode: "f2"})

	mismatches, err = r.VerifyWallet(ctx, flipped.ID)
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "amount_sign", mismatches[0].Field)

	_, err = r.VerifyWallet(ctx, 999)
	assert.ErrorIs(t, err, repositories.ErrWalletNotFound)
}

func TestRunFailsStalePendingAndWalksBatches(t *testing.T) {
	ctx := context.Background()
	r, db := newReconciler(t, 2)

	for userID := uint(1); userID <= 5; userID++ {
		createWallet(t, db, &models.Wallet{UserID: userID})
	}
	drift := createWallet(t, db, &models.Wallet{UserID: 6, Balance: 10, TotalReceived: 10})

	createTx(t, db, models.Transaction{WalletID: 1, UserID: 1, Type: models.TransactionTypeDeposit, Amount: 50,
		ReferenceCode: "old", Status: models.TransactionStatusPending, CreatedAt: time.Now().Add(-time.Hour)})
	createTx(t, db, models.Transaction{WalletID: 1, UserID: 1, Type: models.TransactionTypeDeposit, Amount: 50,
		ReferenceCode: "new", Status: models.TransactionStatusPending})

	report, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.StaleFailed)
	assert.Equal(t, 6, report.WalletsChecked)
	assert.False(t, report.OK())
	require.Len(t, report.Mismatches, 2)
	assert.Equal(t, drift.ID, report.Mismatches[0].WalletID)

	var old models.Transaction
	require.NoError(t, db.Where("reference_code = ?", "old").First(&old).Error)
	assert.Equal(t, models.TransactionStatusFailed, old.Status)
	assert.Equal(t, StaleReason, old.FailureReason)

	var fresh models.Transaction
	require.NoError(t, db.Where("reference_code = ?", "new").First(&fresh).Error)
	assert.Equal(t, models.TransactionStatusPending, fresh.Status)
}

func TestWorkerStops(t *testing.T) {
	r, _ := newReconciler(t, 10)
	w := NewWorker(r, time.Millisecond, zap.NewNop())

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	w.Stop()
	w.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

// callLog records which ledger reads run inside a transaction.
type callLog struct {
	repositories.WalletRepository
	inTx  bool
	calls *[]string
}

func (c callLog) record(name string) {
	if c.inTx {
		name = "tx:" + name
	}
	*c.calls = append(*c.calls, name)
}

func (c callLog) ExecuteInTransaction(ctx context.Context, fn func(repositories.WalletRepository) error) error {
	c.record("begin")
	return c.WalletRepository.ExecuteInTransaction(ctx, func(tx repositories.WalletRepository) error {
		return fn(callLog{WalletRepository: tx, inTx: true, calls: c.calls})
	})
}

func (c callLog) GetByID(ctx context.Context, id uint) (*models.Wallet, error) {
	c.record("get")
	return c.WalletRepository.GetByID(ctx, id)
}

func (c callLog) LockWallets(ctx context.Context, ids ...uint) (map[uint]*models.Wallet, error) {
	c.record("lock")
	return c.WalletRepository.LockWallets(ctx, ids...)
}

func (c callLog) CompletedForWallet(ctx context.Context, walletID uint) ([]models.Transaction, error) {
	c.record("completed")
	return c.WalletRepository.CompletedForWallet(ctx, walletID)
}

func TestVerifyWalletReadsUnderLock(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	w := createWallet(t, db, &models.Wallet{UserID: 1, Balance: 100, TotalReceived: 100})
	createTx(t, db, models.Transaction{WalletID: w.ID, UserID: 1, Type: models.TransactionTypeDeposit, Amount: 100, BalanceAfter: 100, ReferenceCode: "s1"})

	var calls []string
	r := NewReconciler(
		callLog{WalletRepository: repositories.NewWalletRepository(db), calls: &calls},
		repositories.NewTransactionRepository(db),
		Config{BatchSize: 10},
		zap.NewNop(),
	)

	mismatches, err := r.VerifyWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
	assert.Equal(t, []string{"begin", "tx:lock", "tx:completed"}, calls)
}
