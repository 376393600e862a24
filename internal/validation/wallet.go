// Package validation holds the pure balance checks applied to every wallet
// operation, both as a precheck and again on locked wallet state.
package validation

import (
	"strings"

	"tourneypay/internal/config"
	"tourneypay/internal/errors"
	"tourneypay/internal/models"
)

// Operation is the kind of balance-affecting request being checked.
type Operation string

// Caller references are at most MaxReferenceLength long and never contain
// ReferenceSeparator, which prefixes the suffix of derived credit-leg keys.
const (
	MaxReferenceLength = 64
	ReferenceSeparator = "/"
)

const (
	OpDeposit    Operation = "deposit"
	OpWithdrawal Operation = "withdrawal"
	OpTransfer   Operation = "transfer"
	OpDonation   Operation = "donation"
)

// Debits reports whether the operation takes funds out of the caller's wallet.
func (op Operation) Debits() bool {
	return op != OpDeposit
}

// ValidateCounterparty rejects transfers a user would make to themself.
func ValidateCounterparty(fromUserID, toUserID uint) *errors.DomainError {
	if toUserID == 0 {
		return errors.New(errors.KindInvalidCounterparty, "missing receiver")
	}
	if fromUserID == toUserID {
		return errors.New(errors.KindInvalidCounterparty, "cannot transfer to own wallet")
	}
	return nil
}

// ValidateCounterpartyWallet rejects a credit to a wallet that is not active.
func ValidateCounterpartyWallet(wallet *models.Wallet) *errors.DomainError {
	if !wallet.IsActive() {
		return errors.ErrCounterpartyFrozen
	}
	return nil
}

// ValidateReference checks a caller-chosen idempotency key. The separator is
// reserved for the keys of credit legs.
func ValidateReference(ref string) *errors.DomainError {
	if len(ref) > MaxReferenceLength {
		return errors.New(errors.KindInvalidReference, "reference longer than %d characters", MaxReferenceLength)
	}
	if strings.Contains(ref, ReferenceSeparator) {
		return errors.New(errors.KindInvalidReference, "reference must not contain %q", ReferenceSeparator)
	}
	return nil
}

// ValidateReplay decides whether a committed row answers a retry of the
// request. A reference reused by another user, for another operation type,
// amount or counterparty is a conflict, never a replay.
func ValidateReplay(prior *models.Transaction, userID uint, txType string, amount int64, relatedType string, relatedID *uint) *errors.DomainError {
	if prior.UserID != userID || prior.Type != txType || prior.Principal() != amount {
		return errors.ErrReferenceConflict
	}
	if prior.RelatedEntityType != relatedType || !sameID(prior.RelatedEntityID, relatedID) {
		return errors.ErrReferenceConflict
	}
	return nil
}

func sameID(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ValidateOperation checks amount positivity, wallet status, the configured
// range and, for debits, that balance covers amount plus fee. A nil wallet is
// only acceptable for deposits, where it stands for a wallet not yet created.
func ValidateOperation(wallet *models.Wallet, op Operation, amount, fee int64, limits config.LedgerLimits) *errors.DomainError {
	if amount <= 0 {
		return errors.New(errors.KindInvalidAmount, "amount must be positive, got %d", amount)
	}
	if fee < 0 {
		return errors.New(errors.KindInvalidAmount, "fee must not be negative, got %d", fee)
	}

	if wallet == nil {
		if op.Debits() {
			return errors.ErrWalletNotFound
		}
	} else if !wallet.IsActive() {
		return errors.ErrWalletFrozen
	}

	min, max := bounds(op, limits)
	if amount < min {
		return errors.New(errors.KindBelowMinimum, "%s amount %d is below minimum %d", op, amount, min)
	}
	if amount > max {
		return errors.New(errors.KindAboveMaximum, "%s amount %d is above maximum %d", op, amount, max)
	}

	if op.Debits() {
		// amount and fee are bounded by the configured maximums, no overflow.
		if wallet.Balance-amount-fee < 0 {
			return errors.New(errors.KindInsufficientBalance,
				"balance %d does not cover %d plus fee %d", wallet.Balance, amount, fee)
		}
	}
	return nil
}

// FeeFor returns the fee charged on top of amount for the operation.
func FeeFor(op Operation, amount int64, limits config.LedgerLimits) int64 {
	switch op {
	case OpWithdrawal:
		return limits.WithdrawalFee
	case OpTransfer:
		return limits.TransferFee
	case OpDonation:
		return limits.DonationFee(amount)
	default:
		return 0
	}
}

func bounds(op Operation, limits config.LedgerLimits) (int64, int64) {
	switch op {
	case OpDeposit:
		return limits.MinTopUp, limits.MaxTopUp
	case OpWithdrawal:
		return limits.MinWithdrawal, limits.MaxWithdrawal
	case OpTransfer:
		return limits.MinTransfer, limits.MaxTransfer
	default:
		return limits.MinDonation, limits.MaxDonation
	}
}
