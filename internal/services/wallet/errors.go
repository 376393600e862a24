package wallet

import (
	"errors"

	"tourneypay/internal/repositories"
)

// Service errors
var (
	// ErrStoreUnavailable is the ledger store failure surfaced to callers.
	ErrStoreUnavailable = repositories.ErrStoreUnavailable

	// ErrInvariantViolation means a write would have broken a ledger
	// invariant after validation passed. It always indicates a bug.
	ErrInvariantViolation = errors.New("ledger invariant violated")

	// ErrRetriesExhausted means the version check kept failing.
	ErrRetriesExhausted = errors.New("concurrent update retries exhausted")
)
