package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"tourneypay/internal/config"
	apperrors "tourneypay/internal/errors"
	"tourneypay/internal/models"
	"tourneypay/internal/repositories"
	"tourneypay/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetWallet(ctx context.Context, userID uint) (*models.WalletInfo, error) {
	args := m.Called(ctx, userID)
	info, _ := args.Get(0).(*models.WalletInfo)
	return info, args.Error(1)
}

func (m *MockCache) CacheWallet(ctx context.Context, info models.WalletInfo) error {
	return m.Called(ctx, info).Error(0)
}

func (m *MockCache) InvalidateWallet(ctx context.Context, userID uint) error {
	return m.Called(ctx, userID).Error(0)
}

type MockEvents struct {
	mock.Mock
}

func (m *MockEvents) PublishTransaction(ctx context.Context, tx *models.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockEvents) PublishWalletStatus(ctx context.Context, wallet *models.Wallet) error {
	return m.Called(ctx, wallet).Error(0)
}

type fixture struct {
	db   *gorm.DB
	repo repositories.WalletRepository
	svc  Service
}

// Users 1, 2 and 3 are players, 9 is an admin. Team 7 is captained by 3.
func newFixture(t *testing.T, limits config.LedgerLimits, cache CacheOperator, events EventPublisher) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	testutil.SeedUser(t, db, 1, "alice", models.RolePlayer)
	testutil.SeedUser(t, db, 2, "bob", models.RolePlayer)
	testutil.SeedUser(t, db, 3, "carol", models.RolePlayer)
	testutil.SeedUser(t, db, 9, "root", models.RoleAdmin)
	require.NoError(t, db.Create(&models.Team{ID: 7, Name: "Seven", CaptainUserID: 3}).Error)
	require.NoError(t, db.Create(&models.Tournament{ID: 4, Name: "Cup", OrganizerUserID: 1}).Error)

	repo := repositories.NewWalletRepository(db)
	deps := Dependencies{
		Repo:          repo,
		Directory:     repositories.NewUserRepository(db, nil, zap.NewNop()),
		Beneficiaries: repositories.NewBeneficiaryRepository(db),
		Logger:        zap.NewNop(),
	}
	if cache != nil {
		deps.Cache = cache
	}
	if events != nil {
		deps.Events = events
	}
	return &fixture{db: db, repo: repo, svc: NewService(deps, WalletConfig{Limits: limits})}
}

// flatLimits has no fees and a minimum of one unit everywhere.
func flatLimits() config.LedgerLimits {
	l := config.DefaultLedgerLimits()
	l.MinTopUp, l.MinWithdrawal, l.MinTransfer, l.MinDonation = 1, 1, 1, 1
	l.WithdrawalFee, l.TransferFee = 0, 0
	l.DonationFeePercent = decimal.Zero
	return l
}

func (f *fixture) balance(t *testing.T, userID uint) int64 {
	t.Helper()
	w, err := f.repo.GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	return w.Balance
}

func (f *fixture) rows(t *testing.T, userID uint, status string) []models.Transaction {
	t.Helper()
	var txs []models.Transaction
	require.NoError(t, f.db.Where("user_id = ? AND status = ?", userID, status).Order("id ASC").Find(&txs).Error)
	return txs
}

func (f *fixture) fund(t *testing.T, userID uint, amount int64) {
	t.Helper()
	res, err := f.svc.Deposit(context.Background(), userID, amount, Options{})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
}

func TestExampleScenarios(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.DefaultLedgerLimits(), nil, nil)

	res, err := f.svc.Deposit(ctx, 1, 100_000, Options{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int64(100_000), res.BalanceAfter)

	res, err = f.svc.Withdraw(ctx, 1, 50_000, Options{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int64(10_000), res.Fee)
	assert.Equal(t, int64(40_000), res.BalanceAfter)

	res, err = f.svc.Withdraw(ctx, 1, 40_000, Options{})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, apperrors.KindInsufficientBalance, res.ErrorKind)
	assert.Equal(t, int64(40_000), res.BalanceAfter)
	assert.Equal(t, int64(40_000), f.balance(t, 1))

	res, err = f.svc.Transfer(ctx, 1, 2, 20_000, Options{ReferenceCode: "xfer-1"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int64(20_000), res.BalanceAfter)
	assert.Equal(t, int64(20_000), f.balance(t, 2))

	legs, err := f.repo.FindByCorrelation(ctx, "xfer-1")
	require.NoError(t, err)
	require.Len(t, legs, 2)
	assert.Equal(t, models.TransactionTypeTransferOut, legs[0].Type)
	assert.Equal(t, int64(-20_000), legs[0].Amount)
	assert.Equal(t, models.TransactionTypeTransferIn, legs[1].Type)
	assert.Equal(t, int64(20_000), legs[1].Amount)
	assert.Equal(t, "xfer-1"+TransferInSuffix, legs[1].ReferenceCode)
	require.NotNil(t, legs[1].RelatedEntityID)
	assert.Equal(t, uint(1), *legs[1].RelatedEntityID)

	res, err = f.svc.Donate(ctx, 1, 10_000, models.EntityTypeTeam, 7, Options{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int64(100), res.Fee)
	assert.Equal(t, int64(9_900), res.BalanceAfter)
	assert.Equal(t, int64(10_000), f.balance(t, 3))

	received := f.rows(t, 3, models.TransactionStatusCompleted)
	require.Len(t, received, 1)
	assert.Equal(t, models.TransactionTypeDonationReceived, received[0].Type)
	assert.Equal(t, models.EntityTypeTeam, received[0].RelatedEntityType)
}

func TestNonNegativeAndLedgerReplay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.DefaultLedgerLimits(), nil, nil)

	f.fund(t, 1, 300_000)
	f.fund(t, 2, 50_000)
	ops := []func() (TransactionResult, error){
		func() (TransactionResult, error) { return f.svc.Withdraw(ctx, 1, 120_000, Options{}) },
		func() (TransactionResult, error) { return f.svc.Transfer(ctx, 1, 2, 70_000, Options{}) },
		func() (TransactionResult, error) { return f.svc.Transfer(ctx, 2, 1, 500_000, Options{}) },
		func() (TransactionResult, error) { return f.svc.Donate(ctx, 2, 55_000, models.EntityTypeTournament, 4, Options{}) },
		func() (TransactionResult, error) { return f.svc.Withdraw(ctx, 1, 200_000, Options{}) },
		func() (TransactionResult, error) { return f.svc.Deposit(ctx, 2, 10_000, Options{}) },
	}
	for i, op := range ops {
		_, err := op()
		require.NoError(t, err, "op %d", i)
	}

	for _, userID := range []uint{1, 2} {
		w, err := f.repo.GetByUserID(ctx, userID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, w.Balance, int64(0))

		var running, in, out int64
		for _, tx := range f.rows(t, userID, models.TransactionStatusCompleted) {
			running += tx.Amount
			assert.Equal(t, running, tx.BalanceAfter, "transaction %d", tx.ID)
			assert.GreaterOrEqual(t, tx.BalanceAfter, int64(0))
			if tx.Amount > 0 {
				in += tx.Amount
			} else {
				out -= tx.Amount
			}
		}
		assert.Equal(t, w.Balance, running, "user %d", userID)
		assert.Equal(t, w.TotalReceived, in)
		assert.Equal(t, w.TotalWithdrawn, out)
	}
}

func TestIdempotentReplay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.DefaultLedgerLimits(), nil, nil)

	opts := Options{ReferenceCode: "dep-1"}
	first, err := f.svc.Deposit(ctx, 1, 100_000, opts)
	require.NoError(t, err)
	require.True(t, first.Success)
	assert.False(t, first.Replayed)

	second, err := f.svc.Deposit(ctx, 1, 100_000, opts)
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.TransactionID, second.TransactionID)
	assert.Equal(t, first.BalanceAfter, second.BalanceAfter)
	assert.Equal(t, first.ReferenceCode, second.ReferenceCode)
	assert.Equal(t, first.Fee, second.Fee)

	assert.Equal(t, int64(100_000), f.balance(t, 1))
	assert.Len(t, f.rows(t, 1, models.TransactionStatusCompleted), 1)

	xfer := Options{ReferenceCode: "xfer-9"}
	_, err = f.svc.Transfer(ctx, 1, 2, 30_000, xfer)
	require.NoError(t, err)
	again, err := f.svc.Transfer(ctx, 1, 2, 30_000, xfer)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, int64(70_000), f.balance(t, 1))
	assert.Equal(t, int64(30_000), f.balance(t, 2))
}

func TestConcurrentSameReference(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.DefaultLedgerLimits(), nil, nil)

	var wg sync.WaitGroup
	results := make([]TransactionResult, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.Deposit(ctx, 1, 20_000, Options{ReferenceCode: "same"})
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	fresh := 0
	for _, res := range results {
		assert.True(t, res.Success)
		if !res.Replayed {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
	assert.Equal(t, int64(20_000), f.balance(t, 1))
}

func TestConcurrentWithdrawals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, flatLimits(), nil, nil)
	f.fund(t, 1, 100)

	var wg sync.WaitGroup
	results := make([]TransactionResult, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.Withdraw(ctx, 1, 60, Options{ReferenceCode: fmt.Sprintf("wd-%d", i)})
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, res := range results {
		if res.Success {
			succeeded++
		} else {
			assert.Equal(t, apperrors.KindInsufficientBalance, res.ErrorKind)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(40), f.balance(t, 1))
}

func TestRejections(t *testing.T) {
	tests := []struct {
		name      string
		run       func(ctx context.Context, svc Service) (TransactionResult, error)
		kind      apperrors.Kind
		auditUser uint
	}{
		{
			name: "admin cannot hold a wallet",
			run: func(ctx context.Context, svc Service) (TransactionResult, error) {
				return svc.Deposit(ctx, 9, 20_000, Options{})
			},
			kind: apperrors.KindPermissionDenied,
		},
		{
			name: "zero amount",
			run: func(ctx context.Context, svc Service) (TransactionResult, error) {
				return svc.Withdraw(ctx, 1, 0, Options{})
			},
			kind:      apperrors.KindInvalidAmount,
			auditUser: 1,
		},
		{
			name: "deposit below minimum",
			run: func(ctx context.Context, svc Service) (TransactionResult, error) {
				return svc.Deposit(ctx, 2, 9_999, Options{})
			},
			kind: apperrors.KindBelowMinimum,
		},
		{
			name: "withdrawal above maximum",
			run: func(ctx context.Context, svc Service) (TransactionResult, error) {
				return svc.Withdraw(ctx, 1, 20_000_001, Options{})
			},
			kind:      apperrors.KindAboveMaximum,
			auditUser: 1,
		},
		{
			name: "withdraw without a wallet",
			run: func(ctx context.Context, svc Service) (TransactionResult, error) {
				return svc.Withdraw(ctx, 2, 10_000, Options{})
			},
			kind: apperrors.KindWalletNotFound,
		},
		{
			name: "transfer to self",
			run: func(ctx context.Context, svc Service) (TransactionResult, error) {
				return svc.Transfer(ctx, 1, 1, 5_000, Options{})
			},
			kind:      apperrors.KindInvalidCounterparty,
			auditUser: 1,
		},
		{
			name: "transfer to unknown user",
			run: func(ctx context.Context, svc Service) (TransactionResult, error) {
				return svc.Transfer(ctx, 1, 404, 5_000, Options{})
			},
			kind:      apperrors.KindInvalidCounterparty,
			auditUser: 1,
		},
		{
			name: "donation to own tournament",
			run: func(ctx context.Context, svc Service) (TransactionResult, error) {
				return svc.Donate(ctx, 1, 5_000, models.EntityTypeTournament, 4, Options{})
			},
			kind:      apperrors.KindInvalidCounterparty,
			auditUser: 1,
		},
		{
			name: "donation to unknown team",
			run: func(ctx context.Context, svc Service) (TransactionResult, error) {
				return svc.Donate(ctx, 1, 5_000, models.EntityTypeTeam, 404, Options{})
			},
			kind:      apperrors.KindInvalidCounterparty,
			auditUser: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, config.DefaultLedgerLimits(), nil, nil)
			f.fund(t, 1, 100_000)

			res, err := tt.run(ctx, f.svc)
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, tt.kind, res.ErrorKind)
			assert.Equal(t, int64(100_000), f.balance(t, 1))

			if tt.auditUser != 0 {
				failed := f.rows(t, tt.auditUser, models.TransactionStatusFailed)
				require.Len(t, failed, 1)
				assert.Equal(t, string(tt.kind), failed[0].FailureReason)
				assert.Equal(t, int64(100_000), failed[0].BalanceAfter)
				assert.Equal(t, res.TransactionID, failed[0].ID)
			}
		})
	}
}

func TestFrozenWallets(t *testing.T) {
	ctx := context.Background()
	events := new(MockEvents)
	events.On("PublishTransaction", mock.Anything, mock.Anything).Return(nil)
	events.On("PublishWalletStatus", mock.Anything, mock.MatchedBy(func(w *models.Wallet) bool {
		return w.UserID == 2
	})).Return(nil).Twice()

	f := newFixture(t, config.DefaultLedgerLimits(), nil, events)
	f.fund(t, 1, 100_000)
	f.fund(t, 2, 100_000)

	info, err := f.svc.FreezeWallet(ctx, 2, "chargeback review")
	require.NoError(t, err)
	assert.Equal(t, models.WalletStatusFrozen, info.Status)

	res, err := f.svc.Withdraw(ctx, 2, 10_000, Options{})
	require.NoError(t, err)
	assert.Equal(t, apperrors.KindWalletFrozen, res.ErrorKind)

	// frozen receiver fails the whole transfer
	res, err = f.svc.Transfer(ctx, 1, 2, 10_000, Options{ReferenceCode: "to-frozen"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, apperrors.KindInvalidCounterparty, res.ErrorKind)
	assert.Equal(t, int64(100_000), f.balance(t, 1))
	assert.Equal(t, int64(100_000), f.balance(t, 2))
	legs, err := f.repo.FindByCorrelation(ctx, "to-frozen")
	require.NoError(t, err)
	for _, leg := range legs {
		assert.Equal(t, models.TransactionStatusFailed, leg.Status)
	}

	info, err = f.svc.UnfreezeWallet(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, models.WalletStatusActive, info.Status)

	res, err = f.svc.Transfer(ctx, 1, 2, 10_000, Options{ReferenceCode: "to-frozen"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int64(110_000), f.balance(t, 2))

	_, err = f.svc.FreezeWallet(ctx, 3, "no wallet")
	assert.ErrorIs(t, err, apperrors.ErrWalletNotFound)

	events.AssertExpectations(t)
}

func TestWalletReads(t *testing.T) {
	ctx := context.Background()
	cache := new(MockCache)
	// written through after the commit, then again by the read miss
	cache.On("CacheWallet", mock.Anything, mock.MatchedBy(func(info models.WalletInfo) bool {
		return info.UserID == 1 && info.Balance == 50_000 && info.Version == 1
	})).Return(nil).Twice()
	cache.On("GetWallet", mock.Anything, uint(1)).Return(nil, nil).Once()
	cached := &models.WalletInfo{UserID: 1, Balance: 50_000, Status: models.WalletStatusActive}
	cache.On("GetWallet", mock.Anything, uint(1)).Return(cached, nil).Once()

	f := newFixture(t, config.DefaultLedgerLimits(), cache, nil)
	f.fund(t, 1, 50_000)

	balance, err := f.svc.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(50_000), balance)

	_, err = f.svc.GetBalance(ctx, 2)
	assert.ErrorIs(t, err, apperrors.ErrWalletNotFound)

	ok, err := f.svc.HasSufficientBalance(ctx, 1, 50_000)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.svc.HasSufficientBalance(ctx, 1, 50_001)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = f.svc.HasSufficientBalance(ctx, 2, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	// miss fills the cache, then the hit is served from it
	info, err := f.svc.GetWalletInfo(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(50_000), info.Balance)
	info, err = f.svc.GetWalletInfo(ctx, 1)
	require.NoError(t, err)
	assert.Same(t, cached, info)

	created, err := f.svc.EnsureWallet(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), created.Balance)
	_, err = f.svc.EnsureWallet(ctx, 9)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	cache.AssertExpectations(t)
}

func TestInvariantViolationRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.DefaultLedgerLimits(), nil, nil)
	f.fund(t, 1, 10_000)
	w, err := f.repo.GetByUserID(ctx, 1)
	require.NoError(t, err)
	other, err := f.repo.EnsureWallet(ctx, 2)
	require.NoError(t, err)

	rec := NewRecorder(f.repo, 0, &NoopMetricsCollector{}, zap.NewNop())
	_, err = rec.Record(ctx, OperationTransfer,
		Entry{WalletID: w.ID, UserID: 1, Type: models.TransactionTypeTransferOut, Amount: -10_001, ReferenceCode: "bad"},
		Entry{WalletID: other.ID, UserID: 2, Type: models.TransactionTypeTransferIn, Amount: 10_001, ReferenceCode: "bad/in"},
	)
	assert.ErrorIs(t, err, ErrInvariantViolation)
	assert.Equal(t, int64(10_000), f.balance(t, 1))
	assert.Equal(t, int64(0), f.balance(t, 2))

	_, err = rec.Record(ctx, OperationDeposit)
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

func TestRecorderReplaysUnderLock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.DefaultLedgerLimits(), nil, nil)
	f.fund(t, 1, 10_000)
	w, err := f.repo.GetByUserID(ctx, 1)
	require.NoError(t, err)

	rec := NewRecorder(f.repo, 0, &NoopMetricsCollector{}, zap.NewNop())
	entry := Entry{WalletID: w.ID, UserID: 1, Type: models.TransactionTypeDeposit, Amount: 500, ReferenceCode: "rec-1", CorrelationCode: "rec-1"}
	rows, err := rec.Record(ctx, OperationDeposit, entry)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(10_500), rows[0].BalanceAfter)

	_, err = rec.Record(ctx, OperationDeposit, entry)
	var replay *ReplayError
	require.ErrorAs(t, err, &replay)
	assert.Equal(t, rows[0].ID, replay.Prior.ID)

	entry.ReferenceCode = "rec-2"
	entry.Check = func(*models.Wallet) *apperrors.DomainError { return apperrors.ErrWalletFrozen }
	_, err = rec.Record(ctx, OperationDeposit, entry)
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.ErrorIs(t, err, apperrors.ErrWalletFrozen)
	assert.Equal(t, int64(10_500), rejected.Wallet.Balance)
}

func TestStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.DefaultLedgerLimits(), nil, nil)

	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	res, err := f.svc.Deposit(ctx, 1, 20_000, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.False(t, res.Success)
	assert.Equal(t, apperrors.KindStoreUnavailable, res.ErrorKind)

	_, err = f.svc.GetBalance(ctx, 1)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestReferenceReuseAcrossRequests(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, flatLimits(), nil, nil)

	first, err := f.svc.Deposit(ctx, 1, 500, Options{ReferenceCode: "shared"})
	require.NoError(t, err)
	require.True(t, first.Success)

	tests := []struct {
		name string
		run  func() (TransactionResult, error)
	}{
		{"other user", func() (TransactionResult, error) { return f.svc.Deposit(ctx, 2, 7, Options{ReferenceCode: "shared"}) }},
		{"other operation", func() (TransactionResult, error) { return f.svc.Withdraw(ctx, 1, 100, Options{ReferenceCode: "shared"}) }},
		{"other amount", func() (TransactionResult, error) { return f.svc.Deposit(ctx, 1, 600, Options{ReferenceCode: "shared"}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.run()
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.False(t, res.Replayed)
			assert.Equal(t, apperrors.KindDuplicateReference, res.ErrorKind)
			assert.Zero(t, res.TransactionID)
			assert.Zero(t, res.BalanceAfter)
		})
	}

	_, err = f.repo.GetByUserID(ctx, 2)
	assert.ErrorIs(t, err, repositories.ErrWalletNotFound)
	assert.Equal(t, int64(500), f.balance(t, 1))
	assert.Len(t, f.rows(t, 1, models.TransactionStatusCompleted), 1)

	again, err := f.svc.Deposit(ctx, 1, 500, Options{ReferenceCode: "shared"})
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, first.TransactionID, again.TransactionID)

	// same sender and amount, different receiver
	res, err := f.svc.Transfer(ctx, 1, 2, 50, Options{ReferenceCode: "t-1"})
	require.NoError(t, err)
	require.True(t, res.Success)
	res, err = f.svc.Transfer(ctx, 1, 3, 50, Options{ReferenceCode: "t-1"})
	require.NoError(t, err)
	assert.Equal(t, apperrors.KindDuplicateReference, res.ErrorKind)
	assert.Equal(t, int64(450), f.balance(t, 1))
	_, err = f.repo.GetByUserID(ctx, 3)
	assert.ErrorIs(t, err, repositories.ErrWalletNotFound)
}

func TestReservedAndCollidingReferences(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, flatLimits(), nil, nil)
	f.fund(t, 1, 1_000)

	for _, ref := range []string{"abc" + TransferInSuffix, "a/b", strings.Repeat("r", 65)} {
		res, err := f.svc.Deposit(ctx, 2, 100, Options{ReferenceCode: ref})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, apperrors.KindInvalidReference, res.ErrorKind, ref)
	}
	_, err := f.repo.GetByUserID(ctx, 2)
	assert.ErrorIs(t, err, repositories.ErrWalletNotFound)

	// a credit-leg key written before references were restricted
	bob, err := f.repo.EnsureWallet(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, f.repo.InsertTransactions(ctx, &models.Transaction{
		WalletID: bob.ID, UserID: 2, Type: models.TransactionTypeDeposit, Amount: 100, BalanceAfter: 100,
		Status: models.TransactionStatusCompleted, ReferenceCode: "abc" + TransferInSuffix, CorrelationCode: "abc",
	}))

	for i := 0; i < 2; i++ {
		res, err := f.svc.Transfer(ctx, 1, 2, 100, Options{ReferenceCode: "abc"})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, apperrors.KindDuplicateReference, res.ErrorKind)
	}
	assert.Equal(t, int64(1_000), f.balance(t, 1))
	assert.Len(t, f.rows(t, 1, models.TransactionStatusFailed), 2)
}

func TestCacheFollowsCommits(t *testing.T) {
	ctx := context.Background()
	cache := new(MockCache)
	var written []models.WalletInfo
	cache.On("CacheWallet", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		written = append(written, args.Get(1).(models.WalletInfo))
	}).Return(nil).Times(3)
	cache.On("CacheWallet", mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()
	cache.On("InvalidateWallet", mock.Anything, uint(1)).Return(nil).Once()

	f := newFixture(t, flatLimits(), cache, nil)
	f.fund(t, 1, 100)
	f.fund(t, 1, 50)
	_, err := f.svc.FreezeWallet(ctx, 1, "review")
	require.NoError(t, err)

	require.Len(t, written, 3)
	assert.Equal(t, int64(100), written[0].Balance)
	assert.Equal(t, int64(150), written[1].Balance)
	assert.Equal(t, models.WalletStatusFrozen, written[2].Status)
	for i := 1; i < len(written); i++ {
		assert.Greater(t, written[i].Version, written[i-1].Version)
	}

	// a failed write-through drops the entry
	_, err = f.svc.UnfreezeWallet(ctx, 1)
	require.NoError(t, err)

	cache.AssertExpectations(t)
}
