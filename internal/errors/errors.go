package errors

import "fmt"

// Kind identifies a ledger outcome category. Business kinds are expected
// results returned to callers; infrastructure kinds signal a failed operation.
type Kind string

const (
	KindInsufficientBalance Kind = "INSUFFICIENT_BALANCE"
	KindBelowMinimum        Kind = "BELOW_MINIMUM"
	KindAboveMaximum        Kind = "ABOVE_MAXIMUM"
	KindWalletFrozen        Kind = "WALLET_FROZEN"
	KindWalletNotFound      Kind = "WALLET_NOT_FOUND"
	KindInvalidCounterparty Kind = "INVALID_COUNTERPARTY"
	KindInvalidAmount       Kind = "INVALID_AMOUNT"
	KindPermissionDenied    Kind = "PERMISSION_DENIED"
	KindDuplicateReference  Kind = "DUPLICATE_REFERENCE"
	KindInvalidReference    Kind = "INVALID_REFERENCE"
	KindStoreUnavailable    Kind = "STORE_UNAVAILABLE"
	KindInvariantViolation  Kind = "INVARIANT_VIOLATION"
)

// DomainError is a business rule violation with a stable code.
type DomainError struct {
	Code    Kind
	Message string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches domain errors by code so wrapped instances compare equal to the
// package-level values below.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New builds a DomainError with a formatted message.
func New(code Kind, format string, args ...interface{}) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Business reports whether the kind is an expected, caller-recoverable outcome.
func (k Kind) Business() bool {
	switch k {
	case KindStoreUnavailable, KindInvariantViolation, "":
		return false
	}
	return true
}
