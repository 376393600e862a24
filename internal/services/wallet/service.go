package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tourneypay/internal/config"
	apperrors "tourneypay/internal/errors"
	"tourneypay/internal/models"
	"tourneypay/internal/repositories"
	"tourneypay/internal/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type service struct {
	repo          repositories.WalletRepository
	recorder      *Recorder
	directory     Directory
	beneficiaries BeneficiaryResolver
	cache         CacheOperator
	events        EventPublisher
	config        WalletConfig
	metrics       MetricsCollector
	log           *zap.Logger
}

// NewService creates a new wallet service
func NewService(deps Dependencies, cfg WalletConfig) Service {
	if deps.Repo == nil {
		panic("repo is required")
	}
	if deps.Directory == nil {
		panic("directory is required")
	}
	if deps.Beneficiaries == nil {
		panic("beneficiary resolver is required")
	}

	// Set default configuration values if not provided
	if cfg.Limits.MaxTopUp == 0 {
		cfg.Limits = config.DefaultLedgerLimits()
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.ProcessingTimeout == 0 {
		cfg.ProcessingTimeout = DefaultTimeout
	}

	// Metrics is optional, create no-op collector if nil
	if deps.Metrics == nil {
		deps.Metrics = &NoopMetricsCollector{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	log := deps.Logger.Named("wallet")

	return &service{
		repo:          deps.Repo,
		recorder:      NewRecorder(deps.Repo, cfg.MaxRetries, deps.Metrics, log),
		directory:     deps.Directory,
		beneficiaries: deps.Beneficiaries,
		cache:         deps.Cache,
		events:        deps.Events,
		config:        cfg,
		metrics:       deps.Metrics,
		log:           log,
	}
}

// request is one mutating call after argument parsing.
type request struct {
	operation     string
	op            validation.Operation
	userID        uint
	amount        int64
	opts          Options
	txType        string
	relatedType   string
	relatedID     *uint
	creditType    string
	creditSuffix  string
	resolveCredit func(ctx context.Context) (uint, *apperrors.DomainError, error)
}

func (s *service) Deposit(ctx context.Context, userID uint, amount int64, opts Options) (TransactionResult, error) {
	return s.execute(ctx, &request{
		operation: OperationDeposit,
		op:        validation.OpDeposit,
		userID:    userID,
		amount:    amount,
		opts:      opts,
		txType:    models.TransactionTypeDeposit,
	})
}

func (s *service) Withdraw(ctx context.Context, userID uint, amount int64, opts Options) (TransactionResult, error) {
	return s.execute(ctx, &request{
		operation: OperationWithdrawal,
		op:        validation.OpWithdrawal,
		userID:    userID,
		amount:    amount,
		opts:      opts,
		txType:    models.TransactionTypeWithdrawal,
	})
}

func (s *service) Transfer(ctx context.Context, fromUserID, toUserID uint, amount int64, opts Options) (TransactionResult, error) {
	receiver := toUserID
	return s.execute(ctx, &request{
		operation:    OperationTransfer,
		op:           validation.OpTransfer,
		userID:       fromUserID,
		amount:       amount,
		opts:         opts,
		txType:       models.TransactionTypeTransferOut,
		relatedType:  models.EntityTypeUser,
		relatedID:    &receiver,
		creditType:   models.TransactionTypeTransferIn,
		creditSuffix: TransferInSuffix,
		resolveCredit: func(ctx context.Context) (uint, *apperrors.DomainError, error) {
			if derr := validation.ValidateCounterparty(fromUserID, toUserID); derr != nil {
				return 0, derr, nil
			}
			ok, err := s.directory.IsWalletOwner(ctx, toUserID)
			if err != nil {
				return 0, nil, err
			}
			if !ok {
				return 0, apperrors.New(apperrors.KindInvalidCounterparty, "receiver %d cannot hold a wallet", toUserID), nil
			}
			return toUserID, nil, nil
		},
	})
}

func (s *service) Donate(ctx context.Context, userID uint, amount int64, targetType string, targetID uint, opts Options) (TransactionResult, error) {
	target := targetID
	return s.execute(ctx, &request{
		operation:    OperationDonation,
		op:           validation.OpDonation,
		userID:       userID,
		amount:       amount,
		opts:         opts,
		txType:       models.TransactionTypeDonation,
		relatedType:  targetType,
		relatedID:    &target,
		creditType:   models.TransactionTypeDonationReceived,
		creditSuffix: DonationReceivedSuffix,
		resolveCredit: func(ctx context.Context) (uint, *apperrors.DomainError, error) {
			beneficiary, err := s.beneficiaries.ResolveBeneficiaryUser(ctx, targetType, targetID)
			if errors.Is(err, repositories.ErrStoreUnavailable) {
				return 0, nil, err
			}
			if err != nil {
				return 0, apperrors.New(apperrors.KindInvalidCounterparty, "unresolvable donation target: %v", err), nil
			}
			if beneficiary == userID {
				return 0, apperrors.New(apperrors.KindInvalidCounterparty, "cannot donate to a target you own"), nil
			}
			return beneficiary, nil, nil
		},
	})
}

// execute runs the shared operation pipeline: replay check, permission,
// amount, counterparty, precheck, atomic record, side effects.
func (s *service) execute(ctx context.Context, req *request) (TransactionResult, error) {
	start := time.Now()
	defer func() { s.metrics.RecordOperationDuration(req.operation, time.Since(start)) }()

	ctx, cancel := context.WithTimeout(ctx, s.config.ProcessingTimeout)
	defer cancel()

	ref := req.opts.ReferenceCode
	if ref == "" {
		ref = uuid.NewString()
	}
	log := s.log.With(
		zap.String("operation", req.operation),
		zap.Uint("user_id", req.userID),
		zap.String("reference", ref),
		zap.Int64("amount", req.amount),
	)

	if derr := validation.ValidateReference(req.opts.ReferenceCode); derr != nil {
		return s.reject(ctx, log, req, ref, nil, 0, derr)
	}

	// fast path for retries; re-checked under the lock by the recorder
	prior, err := s.repo.FindCompletedByReference(ctx, ref)
	if err == nil {
		return s.replayed(ctx, log, req, ref, prior)
	}
	if !errors.Is(err, repositories.ErrTransactionNotFound) {
		return s.infraFailure(log, req, ref, err)
	}

	ok, err := s.directory.IsWalletOwner(ctx, req.userID)
	if err != nil {
		return s.infraFailure(log, req, ref, err)
	}

	wallet, err := s.repo.GetByUserID(ctx, req.userID)
	if err != nil && !errors.Is(err, repositories.ErrWalletNotFound) {
		return s.infraFailure(log, req, ref, err)
	}
	if err != nil {
		wallet = nil
	}

	if !ok {
		return s.reject(ctx, log, req, ref, wallet, 0, apperrors.ErrPermissionDenied)
	}
	if req.amount <= 0 {
		return s.reject(ctx, log, req, ref, wallet, 0,
			apperrors.New(apperrors.KindInvalidAmount, "amount must be positive, got %d", req.amount))
	}

	fee := validation.FeeFor(req.op, req.amount, s.config.Limits)

	var creditUser uint
	if req.resolveCredit != nil {
		uid, derr, err := req.resolveCredit(ctx)
		if err != nil {
			return s.infraFailure(log, req, ref, err)
		}
		if derr != nil {
			return s.reject(ctx, log, req, ref, wallet, fee, derr)
		}
		creditUser = uid
	}

	if derr := validation.ValidateOperation(wallet, req.op, req.amount, fee, s.config.Limits); derr != nil {
		return s.reject(ctx, log, req, ref, wallet, fee, derr)
	}

	if wallet == nil {
		// only deposits get here without a wallet
		if wallet, err = s.repo.EnsureWallet(ctx, req.userID); err != nil {
			return s.infraFailure(log, req, ref, err)
		}
	}

	entries := []Entry{s.callerEntry(req, wallet, ref, fee)}

	if creditUser != 0 {
		credited, err := s.repo.EnsureWallet(ctx, creditUser)
		if err != nil {
			return s.infraFailure(log, req, ref, err)
		}
		if derr := validation.ValidateCounterpartyWallet(credited); derr != nil {
			return s.reject(ctx, log, req, ref, wallet, fee, derr)
		}
		entries = append(entries, s.creditEntry(req, credited, ref))
	}

	rows, err := s.recorder.Record(ctx, req.operation, entries...)
	var (
		replay   *ReplayError
		rejected *RejectedError
	)
	switch {
	case err == nil:
	case errors.As(err, &replay):
		return s.replayed(ctx, log, req, ref, replay.Prior)
	case errors.As(err, &rejected):
		return s.reject(ctx, log, req, ref, &rejected.Wallet, fee, rejected.Err)
	case errors.Is(err, repositories.ErrDuplicateReference):
		// a concurrent call with the same reference committed first, unless
		// the key that collided belongs to a credit leg
		prior, ferr := s.repo.FindCompletedByReference(ctx, ref)
		if errors.Is(ferr, repositories.ErrTransactionNotFound) {
			return s.reject(ctx, log, req, ref, wallet, fee,
				apperrors.New(apperrors.KindDuplicateReference, "reference %q collides with an existing ledger entry", ref))
		}
		if ferr != nil {
			return s.infraFailure(log, req, ref, ferr)
		}
		return s.replayed(ctx, log, req, ref, prior)
	default:
		return s.infraFailure(log, req, ref, err)
	}

	s.afterCommit(ctx, log, rows)
	s.metrics.RecordOperationResult(req.operation, ResultSuccess)

	caller := rows[0]
	log.Info("ledger operation committed",
		zap.Uint("transaction_id", caller.ID),
		zap.Int64("fee", caller.Fee),
		zap.Int64("balance", caller.BalanceAfter),
	)
	return TransactionResult{
		Success:       true,
		BalanceAfter:  caller.BalanceAfter,
		TransactionID: caller.ID,
		ReferenceCode: ref,
		Fee:           caller.Fee,
	}, nil
}

func (s *service) callerEntry(req *request, w *models.Wallet, ref string, fee int64) Entry {
	amount := req.amount + fee
	if req.op.Debits() {
		amount = -amount
	}
	op, limits, principal := req.op, s.config.Limits, req.amount
	return Entry{
		WalletID:        w.ID,
		UserID:          req.userID,
		Type:            req.txType,
		Amount:          amount,
		Fee:             fee,
		ReferenceCode:   ref,
		CorrelationCode: ref,
		RelatedType:     req.relatedType,
		RelatedID:       req.relatedID,
		Note:            req.opts.Note,
		Metadata:        models.NewJSON(req.opts.Metadata),
		Check: func(locked *models.Wallet) *apperrors.DomainError {
			return validation.ValidateOperation(locked, op, principal, fee, limits)
		},
	}
}

func (s *service) creditEntry(req *request, w *models.Wallet, ref string) Entry {
	related := req.relatedID
	if req.op == validation.OpTransfer {
		sender := req.userID
		related = &sender
	}
	return Entry{
		WalletID:        w.ID,
		UserID:          w.UserID,
		Type:            req.creditType,
		Amount:          req.amount,
		ReferenceCode:   ref + req.creditSuffix,
		CorrelationCode: ref,
		RelatedType:     req.relatedType,
		RelatedID:       related,
		Note:            req.opts.Note,
		Check:           validation.ValidateCounterpartyWallet,
	}
}

// reject records a business failure. The audit row is best effort: losing
// it never changes the outcome reported to the caller.
func (s *service) reject(ctx context.Context, log *zap.Logger, req *request, ref string, w *models.Wallet, fee int64, derr *apperrors.DomainError) (TransactionResult, error) {
	s.metrics.RecordOperationResult(req.operation, ResultRejected)
	s.metrics.RecordError(req.operation, string(derr.Code))

	result := TransactionResult{
		Success:       false,
		ReferenceCode: ref,
		Fee:           fee,
		ErrorKind:     derr.Code,
		Message:       derr.Message,
	}
	if w == nil {
		log.Info("ledger operation rejected", zap.String("kind", string(derr.Code)))
		return result, nil
	}
	result.BalanceAfter = w.Balance

	amount := req.amount + fee
	if req.op.Debits() {
		amount = -amount
	}
	audit := &models.Transaction{
		WalletID:          w.ID,
		UserID:            req.userID,
		Type:              req.txType,
		Amount:            amount,
		Fee:               fee,
		BalanceAfter:      w.Balance,
		Status:            models.TransactionStatusFailed,
		ReferenceCode:     ref,
		CorrelationCode:   ref,
		RelatedEntityType: req.relatedType,
		RelatedEntityID:   req.relatedID,
		FailureReason:     string(derr.Code),
		Note:              req.opts.Note,
	}
	if err := s.repo.InsertTransactions(ctx, audit); err != nil {
		log.Warn("failed to write audit row", zap.Error(err))
	} else {
		result.TransactionID = audit.ID
		s.publish(ctx, log, audit)
	}

	log.Info("ledger operation rejected",
		zap.String("kind", string(derr.Code)),
		zap.Uint("wallet_id", w.ID),
		zap.Int64("balance", w.Balance),
	)
	return result, nil
}

// infraFailure logs and reports a store failure or broken invariant.
func (s *service) infraFailure(log *zap.Logger, req *request, ref string, err error) (TransactionResult, error) {
	kind := apperrors.KindStoreUnavailable
	if errors.Is(err, ErrInvariantViolation) {
		kind = apperrors.KindInvariantViolation
	} else if !errors.Is(err, ErrStoreUnavailable) {
		err = fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	s.metrics.RecordOperationResult(req.operation, ResultError)
	s.metrics.RecordError(req.operation, string(kind))
	log.Error("ledger operation failed", zap.String("kind", string(kind)), zap.Error(err))

	return TransactionResult{
		Success:       false,
		ReferenceCode: ref,
		ErrorKind:     kind,
		Message:       err.Error(),
	}, err
}

// replayed answers a retry with the committed result. A reference that
// committed for another request is rejected without revealing that row.
func (s *service) replayed(ctx context.Context, log *zap.Logger, req *request, ref string, prior *models.Transaction) (TransactionResult, error) {
	if derr := validation.ValidateReplay(prior, req.userID, req.txType, req.amount, req.relatedType, req.relatedID); derr != nil {
		log.Warn("reference reused for a different request",
			zap.Uint("committed_transaction_id", prior.ID),
			zap.String("committed_type", prior.Type),
		)
		return s.reject(ctx, log, req, ref, nil, 0, derr)
	}

	s.metrics.RecordOperationResult(req.operation, ResultReplayed)
	return TransactionResult{
		Success:       true,
		BalanceAfter:  prior.BalanceAfter,
		TransactionID: prior.ID,
		ReferenceCode: prior.ReferenceCode,
		Fee:           prior.Fee,
		Replayed:      true,
	}, nil
}

// afterCommit refreshes caches, publishes events and counts volume. None of
// it can undo the committed rows.
func (s *service) afterCommit(ctx context.Context, log *zap.Logger, rows []models.Transaction) {
	for i := range rows {
		tx := &rows[i]
		s.metrics.RecordTransaction(tx.Type, tx.Amount)
		s.refresh(ctx, log, tx.UserID)
		s.publish(ctx, log, tx)
	}
}

func (s *service) publish(ctx context.Context, log *zap.Logger, tx *models.Transaction) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransaction(ctx, tx); err != nil {
		log.Warn("failed to publish transaction event", zap.Uint("transaction_id", tx.ID), zap.Error(err))
	}
}

// refresh writes the committed snapshot through to the cache. The cache keeps
// the highest version, so a reader holding an older row loses. If the write
// fails the entry is dropped instead.
func (s *service) refresh(ctx context.Context, log *zap.Logger, userID uint) {
	if s.cache == nil {
		return
	}
	wallet, err := s.repo.GetByUserID(ctx, userID)
	if err == nil {
		if err = s.cache.CacheWallet(ctx, wallet.Info()); err == nil {
			return
		}
	}
	log.Warn("failed to refresh wallet cache", zap.Uint("cached_user_id", userID), zap.Error(err))
	if err := s.cache.InvalidateWallet(ctx, userID); err != nil {
		log.Warn("failed to invalidate wallet cache", zap.Uint("cached_user_id", userID), zap.Error(err))
	}
}
