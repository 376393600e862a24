package errors

var (
	ErrInsufficientBalance = &DomainError{
		Code:    KindInsufficientBalance,
		Message: "insufficient wallet balance",
	}
	ErrBelowMinimum = &DomainError{
		Code:    KindBelowMinimum,
		Message: "amount below minimum",
	}
	ErrAboveMaximum = &DomainError{
		Code:    KindAboveMaximum,
		Message: "amount above maximum",
	}
	ErrInvalidAmount = &DomainError{
		Code:    KindInvalidAmount,
		Message: "invalid amount",
	}
	ErrWalletFrozen = &DomainError{
		Code:    KindWalletFrozen,
		Message: "wallet is frozen",
	}
	ErrWalletNotFound = &DomainError{
		Code:    KindWalletNotFound,
		Message: "wallet not found",
	}
	ErrInvalidCounterparty = &DomainError{
		Code:    KindInvalidCounterparty,
		Message: "invalid counterparty",
	}
	ErrCounterpartyFrozen = &DomainError{
		Code:    KindInvalidCounterparty,
		Message: "counterparty wallet is frozen",
	}
	ErrReferenceConflict = &DomainError{
		Code:    KindDuplicateReference,
		Message: "reference already used for a different operation",
	}
	ErrPermissionDenied = &DomainError{
		Code:    KindPermissionDenied,
		Message: "user may not operate a wallet",
	}
)
